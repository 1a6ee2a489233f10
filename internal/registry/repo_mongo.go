package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	driver "go.mongodb.org/mongo-driver/mongo"

	"github.com/coravoice/call-gateway/pkg/mongo"
)

const callsCollection = "calls"

// MongoRepository stores calls in MongoDB. The unique index on
// provider_call_sid (see Client.EnsureIndexes) backs ErrDuplicateSID.
type MongoRepository struct {
	db *mongo.Client
}

func NewMongoRepository(db *mongo.Client) *MongoRepository {
	return &MongoRepository{db: db}
}

func (r *MongoRepository) Insert(ctx context.Context, call *Call) error {
	_, err := r.db.Collection(callsCollection).InsertOne(ctx, call)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateSID
		}
		return fmt.Errorf("failed to insert call: %w", err)
	}
	return nil
}

func (r *MongoRepository) FindBySID(ctx context.Context, providerCallSID string) (*Call, error) {
	return r.findOne(ctx, bson.M{"provider_call_sid": providerCallSID})
}

func (r *MongoRepository) FindByID(ctx context.Context, id string) (*Call, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.M) (*Call, error) {
	var call Call
	err := r.db.Collection(callsCollection).FindOne(ctx, filter).Decode(&call)
	if errors.Is(err, driver.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find call: %w", err)
	}
	return &call, nil
}

func (r *MongoRepository) List(ctx context.Context, filter ListFilter, page, pageSize int) ([]Call, int64, error) {
	query := r.db.NewQuery(callsCollection)
	if filter.TenantID != "" {
		query.Eq("tenant_id", filter.TenantID)
	}
	if filter.Status != "" {
		query.Eq("status", filter.Status)
	}

	total, err := query.Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count calls: %w", err)
	}

	calls := []Call{}
	err = query.
		Sort("started_at", false).
		Skip(int64((page - 1) * pageSize)).
		Limit(int64(pageSize)).
		All(ctx, &calls)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list calls: %w", err)
	}
	return calls, total, nil
}

func (r *MongoRepository) MarkCompleted(ctx context.Context, id string, endedAt time.Time, durationSec int) error {
	result, err := r.db.Collection(callsCollection).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"status":       StatusCompleted,
			"ended_at":     endedAt,
			"duration_sec": durationSec,
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark call completed: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
