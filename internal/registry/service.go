package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/coravoice/call-gateway/pkg/logger"
)

// Outcome tags how CreateOrGet resolved a registration request.
type Outcome string

const (
	// OutcomeFound means a call with the same provider sid already existed.
	OutcomeFound Outcome = "found"
	// OutcomeCreated means a new call row was inserted.
	OutcomeCreated Outcome = "created"
	// OutcomeConflictResolved means a concurrent create won the insert race
	// and we returned the winner's row.
	OutcomeConflictResolved Outcome = "conflict_resolved"
)

// CreateParams carries the fields needed to register a call.
type CreateParams struct {
	TenantID        string
	ProviderCallSID string
	CallerNumber    string
	AgentNumber     string
}

// Service owns the call registry: idempotent registration keyed by the
// provider's session id, lookup, listing, and completion.
type Service struct {
	repo Repository
	log  *zap.Logger
}

func NewService(repo Repository, log *zap.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// CreateOrGet registers a call, or returns the existing one when the same
// provider sid was already registered. Two requests racing on the same sid
// both get the same call: the insert loser re-reads the winner's row.
func (s *Service) CreateOrGet(ctx context.Context, p CreateParams) (*Call, Outcome, error) {
	if p.ProviderCallSID == "" {
		return nil, "", fmt.Errorf("provider call sid is required")
	}
	if p.TenantID == "" {
		return nil, "", fmt.Errorf("tenant id is required")
	}

	existing, err := s.repo.FindBySID(ctx, p.ProviderCallSID)
	if err == nil {
		return existing, OutcomeFound, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, "", fmt.Errorf("failed to look up call: %w", err)
	}

	call := &Call{
		ID:              uuid.NewString(),
		TenantID:        p.TenantID,
		ProviderCallSID: p.ProviderCallSID,
		CallerNumber:    p.CallerNumber,
		AgentNumber:     p.AgentNumber,
		Status:          StatusInProgress,
		StartedAt:       time.Now().UTC(),
	}

	err = s.repo.Insert(ctx, call)
	if err == nil {
		s.log.Info("Call registered",
			zap.String("call_id", call.ID),
			zap.String("tenant_id", call.TenantID),
			zap.String("provider_call_sid", call.ProviderCallSID),
			logger.MaskPhoneIfPresent("caller_number", call.CallerNumber),
		)
		return call, OutcomeCreated, nil
	}
	if !errors.Is(err, ErrDuplicateSID) {
		return nil, "", fmt.Errorf("failed to register call: %w", err)
	}

	// Lost the insert race. The winner's row must exist now.
	winner, ferr := s.repo.FindBySID(ctx, p.ProviderCallSID)
	if ferr != nil {
		return nil, "", fmt.Errorf("failed to resolve concurrent registration: %w", ferr)
	}
	s.log.Info("Concurrent call registration resolved",
		zap.String("call_id", winner.ID),
		zap.String("provider_call_sid", p.ProviderCallSID),
	)
	return winner, OutcomeConflictResolved, nil
}

// Get returns a call by its gateway id.
func (s *Service) Get(ctx context.Context, id string) (*Call, error) {
	return s.repo.FindByID(ctx, id)
}

// GetBySID returns a call by the provider's session id.
func (s *Service) GetBySID(ctx context.Context, providerCallSID string) (*Call, error) {
	return s.repo.FindBySID(ctx, providerCallSID)
}

// List returns a page of calls matching the filter, newest first, with the
// total count.
func (s *Service) List(ctx context.Context, filter ListFilter, page, pageSize int) ([]Call, int64, error) {
	return s.repo.List(ctx, filter, page, pageSize)
}

// Complete marks a call finished. The vendor's reported duration wins when
// provided; otherwise duration is derived from StartedAt. Completing an
// already-completed call is idempotent, but a provided duration still
// overwrites the stored one, so a late webhook can correct an estimate.
func (s *Service) Complete(ctx context.Context, id string, reportedDurationSec *int) (*Call, error) {
	call, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if call.Status == StatusCompleted {
		if reportedDurationSec == nil || *reportedDurationSec == call.DurationSec {
			return call, nil
		}
		durationSec := *reportedDurationSec
		if durationSec < 0 {
			durationSec = 0
		}
		if err := s.repo.MarkCompleted(ctx, id, *call.EndedAt, durationSec); err != nil {
			return nil, fmt.Errorf("failed to update call duration: %w", err)
		}
		call.DurationSec = durationSec
		s.log.Info("Call duration corrected",
			zap.String("call_id", id),
			zap.Int("duration_sec", durationSec),
		)
		return call, nil
	}

	endedAt := time.Now().UTC()
	var durationSec int
	if reportedDurationSec != nil {
		durationSec = *reportedDurationSec
	} else {
		durationSec = int(endedAt.Sub(call.StartedAt).Seconds())
	}
	if durationSec < 0 {
		durationSec = 0
	}

	if err := s.repo.MarkCompleted(ctx, id, endedAt, durationSec); err != nil {
		return nil, fmt.Errorf("failed to complete call: %w", err)
	}

	call.Status = StatusCompleted
	call.EndedAt = &endedAt
	call.DurationSec = durationSec

	s.log.Info("Call completed",
		zap.String("call_id", id),
		zap.Int("duration_sec", durationSec),
	)
	return call, nil
}
