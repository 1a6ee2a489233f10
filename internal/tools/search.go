package tools

import (
	"context"
)

const searchPageSize = 5

// ListingQuery is the filter set for a property search. Nil numeric fields
// mean "no bound".
type ListingQuery struct {
	City     string
	MinPrice *float64
	MaxPrice *float64
	Beds     *int
	Baths    *int
}

// ListingStore searches active property listings, most expensive first,
// capped at searchPageSize.
type ListingStore interface {
	Search(ctx context.Context, q ListingQuery) ([]map[string]interface{}, error)
}

// SearchHandler implements the search_properties tool.
type SearchHandler struct {
	listings ListingStore
}

func NewSearchHandler(listings ListingStore) *SearchHandler {
	return &SearchHandler{listings: listings}
}

func (h *SearchHandler) Name() string { return "search_properties" }

func (h *SearchHandler) Execute(ctx context.Context, args map[string]interface{}) (map[string]interface{}, *ToolError) {
	q := ListingQuery{City: stringArg(args, "city")}

	var ok bool
	if q.MinPrice, ok = optFloat(args, "minPrice"); !ok {
		return nil, ValidationError("minPrice must be a number")
	}
	if q.MaxPrice, ok = optFloat(args, "maxPrice"); !ok {
		return nil, ValidationError("maxPrice must be a number")
	}
	if q.Beds, ok = optInt(args, "beds"); !ok {
		return nil, ValidationError("beds must be a whole number")
	}
	if q.Baths, ok = optInt(args, "baths"); !ok {
		return nil, ValidationError("baths must be a whole number")
	}

	results, err := h.listings.Search(ctx, q)
	if err != nil {
		return nil, ExecutionError("property search failed")
	}

	return map[string]interface{}{
		"results": results,
		"count":   len(results),
	}, nil
}

func stringArg(args map[string]interface{}, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

// optFloat reads an optional numeric argument. JSON numbers always decode
// as float64; any other type present under the key fails validation.
func optFloat(args map[string]interface{}, key string) (*float64, bool) {
	v, present := args[key]
	if !present || v == nil {
		return nil, true
	}
	f, ok := v.(float64)
	if !ok {
		return nil, false
	}
	return &f, true
}

func optInt(args map[string]interface{}, key string) (*int, bool) {
	f, ok := optFloat(args, key)
	if !ok {
		return nil, false
	}
	if f == nil {
		return nil, true
	}
	n := int(*f)
	return &n, true
}
