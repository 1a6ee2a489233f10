package tools

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryListingStore serves listings from a fixed slice, applying the same
// filter, sort, and page-size rules as the MongoDB store. Each listing map
// uses the keys id, city, price, beds, baths, status.
type MemoryListingStore struct {
	Listings []map[string]interface{}
}

func (s *MemoryListingStore) Search(ctx context.Context, q ListingQuery) ([]map[string]interface{}, error) {
	matched := []map[string]interface{}{}
	for _, l := range s.Listings {
		if l["status"] != "active" {
			continue
		}
		if q.City != "" {
			city, _ := l["city"].(string)
			if !strings.Contains(strings.ToLower(city), strings.ToLower(q.City)) {
				continue
			}
		}
		price, _ := l["price"].(float64)
		if q.MinPrice != nil && price < *q.MinPrice {
			continue
		}
		if q.MaxPrice != nil && price > *q.MaxPrice {
			continue
		}
		beds, _ := l["beds"].(float64)
		if q.Beds != nil && int(beds) < *q.Beds {
			continue
		}
		baths, _ := l["baths"].(float64)
		if q.Baths != nil && int(baths) < *q.Baths {
			continue
		}
		matched = append(matched, l)
	}

	sort.Slice(matched, func(i, j int) bool {
		pi, _ := matched[i]["price"].(float64)
		pj, _ := matched[j]["price"].(float64)
		return pi > pj
	})

	if len(matched) > searchPageSize {
		matched = matched[:searchPageSize]
	}
	return matched, nil
}

// MemoryBookingStore captures inserted bookings for assertions.
type MemoryBookingStore struct {
	mu       sync.Mutex
	Bookings []Booking
}

func (s *MemoryBookingStore) Insert(ctx context.Context, b *Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Bookings = append(s.Bookings, *b)
	return nil
}

// MemoryLeadStore captures inserted leads for assertions.
type MemoryLeadStore struct {
	mu    sync.Mutex
	Leads []Lead
}

func (s *MemoryLeadStore) Insert(ctx context.Context, l *Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Leads = append(s.Leads, *l)
	return nil
}

// MemoryCallbackStore captures inserted callbacks for assertions.
type MemoryCallbackStore struct {
	mu        sync.Mutex
	Callbacks []Callback
}

func (s *MemoryCallbackStore) Insert(ctx context.Context, cb *Callback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Callbacks = append(s.Callbacks, *cb)
	return nil
}
