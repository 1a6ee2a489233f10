package tools

import (
	"context"
	"fmt"

	"github.com/coravoice/call-gateway/pkg/mongo"
)

// MongoStores bundles the MongoDB-backed stores the tool handlers need.
type MongoStores struct {
	Listings  *MongoListingStore
	Bookings  *MongoBookingStore
	Leads     *MongoLeadStore
	Callbacks *MongoCallbackStore
}

func NewMongoStores(db *mongo.Client) *MongoStores {
	return &MongoStores{
		Listings:  &MongoListingStore{db: db},
		Bookings:  &MongoBookingStore{db: db},
		Leads:     &MongoLeadStore{db: db},
		Callbacks: &MongoCallbackStore{db: db},
	}
}

type MongoListingStore struct {
	db *mongo.Client
}

// Search queries active listings, most expensive first, capped at the tool
// page size.
func (s *MongoListingStore) Search(ctx context.Context, q ListingQuery) ([]map[string]interface{}, error) {
	query := s.db.NewQuery("listings").
		Eq("status", "active").
		Sort("price", false).
		Limit(searchPageSize)

	if q.City != "" {
		query.Like("city", q.City)
	}
	if q.MinPrice != nil {
		query.Gte("price", *q.MinPrice)
	}
	if q.MaxPrice != nil {
		query.Lte("price", *q.MaxPrice)
	}
	if q.Beds != nil {
		query.Gte("beds", *q.Beds)
	}
	if q.Baths != nil {
		query.Gte("baths", *q.Baths)
	}

	results, err := query.Find(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing search failed: %w", err)
	}
	return results, nil
}

type MongoBookingStore struct {
	db *mongo.Client
}

func (s *MongoBookingStore) Insert(ctx context.Context, b *Booking) error {
	if _, err := s.db.Collection("bookings").InsertOne(ctx, b); err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}
	return nil
}

type MongoLeadStore struct {
	db *mongo.Client
}

func (s *MongoLeadStore) Insert(ctx context.Context, l *Lead) error {
	if _, err := s.db.Collection("leads").InsertOne(ctx, l); err != nil {
		return fmt.Errorf("failed to insert lead: %w", err)
	}
	return nil
}

type MongoCallbackStore struct {
	db *mongo.Client
}

func (s *MongoCallbackStore) Insert(ctx context.Context, cb *Callback) error {
	if _, err := s.db.Collection("callbacks").InsertOne(ctx, cb); err != nil {
		return fmt.Errorf("failed to insert callback: %w", err)
	}
	return nil
}
