package timeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrInvalidTimestamp means the caller-supplied timestamp failed to parse
// as RFC 3339.
var ErrInvalidTimestamp = errors.New("timestamp must be RFC 3339")

// AppendInput is what the realtime agent posts for a timeline entry.
type AppendInput struct {
	Type      string
	Role      string
	Text      string
	Timestamp string
}

// AppendResult reports what Append did. Skipped is true for event types the
// timeline does not persist.
type AppendResult struct {
	Seq     int64
	Skipped bool
}

// Service owns the per-call event timeline.
type Service struct {
	repo Repository
	log  *zap.Logger
}

func NewService(repo Repository, log *zap.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Append stores a conversation turn on the call's timeline. Only turn events
// with text are persisted; everything else is acknowledged and dropped, so
// agents can stream their full event feed without filtering client-side.
func (s *Service) Append(ctx context.Context, callID string, in AppendInput) (*AppendResult, error) {
	if in.Type != string(EventTurn) || strings.TrimSpace(in.Text) == "" {
		return &AppendResult{Skipped: true}, nil
	}

	ts, err := parseTimestamp(in.Timestamp)
	if err != nil {
		return nil, err
	}

	event := &Event{
		CallID:    callID,
		Type:      EventTurn,
		Role:      in.Role,
		Text:      in.Text,
		Timestamp: ts,
		StoredAt:  time.Now().UTC(),
	}
	if err := s.repo.Append(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to append event: %w", err)
	}

	s.log.Debug("Timeline event appended",
		zap.String("call_id", callID),
		zap.Int64("seq", event.Seq),
		zap.String("role", in.Role),
	)
	return &AppendResult{Seq: event.Seq}, nil
}

// RecordToolExchange appends the tool_call/tool_result pair for an executed
// tool, keeping the audit trail inline with the conversation.
func (s *Service) RecordToolExchange(ctx context.Context, callID, tool string, args, result map[string]interface{}) error {
	now := time.Now().UTC()

	call := &Event{
		CallID:    callID,
		Type:      EventToolCall,
		Tool:      tool,
		Payload:   args,
		Timestamp: now,
		StoredAt:  now,
	}
	if err := s.repo.Append(ctx, call); err != nil {
		return fmt.Errorf("failed to record tool call: %w", err)
	}

	res := &Event{
		CallID:    callID,
		Type:      EventToolResult,
		Tool:      tool,
		Payload:   result,
		Timestamp: time.Now().UTC(),
		StoredAt:  time.Now().UTC(),
	}
	if err := s.repo.Append(ctx, res); err != nil {
		return fmt.Errorf("failed to record tool result: %w", err)
	}
	return nil
}

// List returns a call's timeline ordered by sequence number.
func (s *Service) List(ctx context.Context, callID string) ([]Event, error) {
	return s.repo.ListByCall(ctx, callID)
}

// parseTimestamp accepts RFC 3339 with any UTC designator. An empty value
// defaults to now rather than rejecting agents that omit clocks.
func parseTimestamp(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now().UTC(), nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, ErrInvalidTimestamp
	}
	return ts.UTC(), nil
}
