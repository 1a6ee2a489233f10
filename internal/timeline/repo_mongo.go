package timeline

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/coravoice/call-gateway/pkg/mongo"
)

const eventsCollection = "events"

// MongoRepository stores timeline events in MongoDB. Sequence numbers come
// from an atomic per-call counter so concurrent appends interleave without
// duplicates or gaps, regardless of caller clocks.
type MongoRepository struct {
	db *mongo.Client
}

func NewMongoRepository(db *mongo.Client) *MongoRepository {
	return &MongoRepository{db: db}
}

func (r *MongoRepository) Append(ctx context.Context, event *Event) error {
	seq, err := r.db.NextSequence(ctx, "events:"+event.CallID)
	if err != nil {
		return err
	}
	event.Seq = seq

	if _, err := r.db.Collection(eventsCollection).InsertOne(ctx, event); err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

func (r *MongoRepository) ListByCall(ctx context.Context, callID string) ([]Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: 1}})
	cursor, err := r.db.Collection(eventsCollection).Find(ctx, bson.M{"call_id": callID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer cursor.Close(ctx)

	events := []Event{}
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode events: %w", err)
	}
	return events, nil
}
