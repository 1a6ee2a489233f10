package registry

import (
	"context"
	"errors"
	"time"
)

const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

var (
	ErrNotFound     = errors.New("call not found")
	ErrDuplicateSID = errors.New("provider call sid already registered")
)

// Call is one voice call tracked by the gateway. ProviderCallSID is the
// telephony vendor's session id and is unique across all calls.
type Call struct {
	ID              string     `bson:"_id" json:"call_id"`
	TenantID        string     `bson:"tenant_id" json:"tenant_id"`
	ProviderCallSID string     `bson:"provider_call_sid" json:"provider_call_sid"`
	CallerNumber    string     `bson:"caller_number" json:"caller_number"`
	AgentNumber     string     `bson:"agent_number" json:"agent_number"`
	Status          string     `bson:"status" json:"status"`
	StartedAt       time.Time  `bson:"started_at" json:"started_at"`
	EndedAt         *time.Time `bson:"ended_at,omitempty" json:"ended_at,omitempty"`
	DurationSec     int        `bson:"duration_sec" json:"duration_sec"`
}

// ListFilter narrows call listings. Zero-valued fields match everything.
type ListFilter struct {
	TenantID string
	Status   string
}

// Repository persists calls. Insert must enforce ProviderCallSID uniqueness
// and surface violations as ErrDuplicateSID.
type Repository interface {
	Insert(ctx context.Context, call *Call) error
	FindBySID(ctx context.Context, providerCallSID string) (*Call, error)
	FindByID(ctx context.Context, id string) (*Call, error)
	List(ctx context.Context, filter ListFilter, page, pageSize int) ([]Call, int64, error)
	MarkCompleted(ctx context.Context, id string, endedAt time.Time, durationSec int) error
}
