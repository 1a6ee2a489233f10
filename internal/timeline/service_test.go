package timeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestService() *Service {
	return NewService(NewMemoryRepository(), zap.NewNop())
}

func TestService_Append_AssignsIncreasingSeq(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		res, err := s.Append(ctx, "call-1", AppendInput{
			Type:      "turn",
			Role:      "caller",
			Text:      "hello",
			Timestamp: time.Now().Format(time.RFC3339),
		})
		if err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		if res.Skipped {
			t.Fatal("Append() skipped a turn event")
		}
		if res.Seq != want {
			t.Errorf("seq = %d, want %d", res.Seq, want)
		}
	}
}

func TestService_Append_SkipsNonTurns(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	tests := []struct {
		name string
		in   AppendInput
	}{
		{"non-turn type", AppendInput{Type: "prompt", Text: "system text"}},
		{"turn without text", AppendInput{Type: "turn", Role: "caller"}},
		{"turn with blank text", AppendInput{Type: "turn", Text: "   "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.Append(ctx, "call-1", tt.in)
			if err != nil {
				t.Fatalf("Append() error = %v", err)
			}
			if !res.Skipped {
				t.Error("Append() persisted an event it should skip")
			}
		})
	}

	events, err := s.List(ctx, "call-1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(events) != 0 {
		t.Errorf("timeline has %d events, want 0", len(events))
	}
}

func TestService_Append_RejectsBadTimestamp(t *testing.T) {
	s := newTestService()

	_, err := s.Append(context.Background(), "call-1", AppendInput{
		Type:      "turn",
		Text:      "hello",
		Timestamp: "yesterday at noon",
	})
	if !errors.Is(err, ErrInvalidTimestamp) {
		t.Errorf("Append() error = %v, want ErrInvalidTimestamp", err)
	}
}

func TestService_Append_AcceptsZuluAndOffset(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	for _, ts := range []string{"2026-08-25T10:00:00Z", "2026-08-25T10:00:00+00:00", ""} {
		if _, err := s.Append(ctx, "call-1", AppendInput{Type: "turn", Text: "hi", Timestamp: ts}); err != nil {
			t.Errorf("Append(timestamp=%q) error = %v", ts, err)
		}
	}
}

func TestService_Append_ConcurrentGapFree(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Append(ctx, "call-1", AppendInput{Type: "turn", Text: "x"}); err != nil {
				t.Errorf("Append() error = %v", err)
			}
		}()
	}
	wg.Wait()

	events, err := s.List(ctx, "call-1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(events) != workers {
		t.Fatalf("timeline has %d events, want %d", len(events), workers)
	}
	seen := make(map[int64]bool)
	for _, e := range events {
		if e.Seq < 1 || e.Seq > workers {
			t.Errorf("seq %d out of range", e.Seq)
		}
		if seen[e.Seq] {
			t.Errorf("seq %d assigned twice", e.Seq)
		}
		seen[e.Seq] = true
	}
}

func TestService_RecordToolExchange_AppendsPair(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	err := s.RecordToolExchange(ctx, "call-1", "book_showing",
		map[string]interface{}{"propertyId": "prop_1"},
		map[string]interface{}{"ok": true},
	)
	if err != nil {
		t.Fatalf("RecordToolExchange() error = %v", err)
	}

	events, err := s.List(ctx, "call-1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("timeline has %d events, want 2", len(events))
	}
	if events[0].Type != EventToolCall || events[1].Type != EventToolResult {
		t.Errorf("event types = %s, %s; want tool_call, tool_result", events[0].Type, events[1].Type)
	}
	if events[0].Tool != "book_showing" {
		t.Errorf("tool = %q, want book_showing", events[0].Tool)
	}
	if events[1].Seq != events[0].Seq+1 {
		t.Errorf("result seq %d does not follow call seq %d", events[1].Seq, events[0].Seq)
	}
}

func TestService_List_IsolatedPerCall(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	if _, err := s.Append(ctx, "call-a", AppendInput{Type: "turn", Text: "a"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if _, err := s.Append(ctx, "call-b", AppendInput{Type: "turn", Text: "b"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	events, err := s.List(ctx, "call-a")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(events) != 1 || events[0].Text != "a" {
		t.Errorf("call-a timeline = %+v, want its own single turn", events)
	}
}
