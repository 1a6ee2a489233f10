package registry

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/zap"
)

func newTestService() *Service {
	return NewService(NewMemoryRepository(), zap.NewNop())
}

func TestService_CreateOrGet_Created(t *testing.T) {
	s := newTestService()

	call, outcome, err := s.CreateOrGet(context.Background(), CreateParams{
		TenantID:        "tenant-a",
		ProviderCallSID: "CA100",
		CallerNumber:    "+15125550100",
	})
	if err != nil {
		t.Fatalf("CreateOrGet() error = %v", err)
	}
	if outcome != OutcomeCreated {
		t.Errorf("outcome = %q, want %q", outcome, OutcomeCreated)
	}
	if call.ID == "" {
		t.Error("created call has empty id")
	}
	if call.Status != StatusInProgress {
		t.Errorf("status = %q, want %q", call.Status, StatusInProgress)
	}
}

func TestService_CreateOrGet_FoundOnRepeat(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	first, _, err := s.CreateOrGet(ctx, CreateParams{TenantID: "tenant-a", ProviderCallSID: "CA200"})
	if err != nil {
		t.Fatalf("CreateOrGet() error = %v", err)
	}

	second, outcome, err := s.CreateOrGet(ctx, CreateParams{TenantID: "tenant-a", ProviderCallSID: "CA200"})
	if err != nil {
		t.Fatalf("CreateOrGet() repeat error = %v", err)
	}
	if outcome != OutcomeFound {
		t.Errorf("outcome = %q, want %q", outcome, OutcomeFound)
	}
	if second.ID != first.ID {
		t.Errorf("repeat returned call %q, want %q", second.ID, first.ID)
	}
}

func TestService_CreateOrGet_MissingFields(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	if _, _, err := s.CreateOrGet(ctx, CreateParams{TenantID: "tenant-a"}); err == nil {
		t.Error("expected error for missing provider call sid")
	}
	if _, _, err := s.CreateOrGet(ctx, CreateParams{ProviderCallSID: "CA300"}); err == nil {
		t.Error("expected error for missing tenant id")
	}
}

func TestService_CreateOrGet_ConcurrentSameSID(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	const workers = 16
	var wg sync.WaitGroup
	ids := make([]string, workers)
	outcomes := make([]Outcome, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			call, outcome, err := s.CreateOrGet(ctx, CreateParams{
				TenantID:        "tenant-a",
				ProviderCallSID: "CA-race",
			})
			if err != nil {
				t.Errorf("CreateOrGet() error = %v", err)
				return
			}
			ids[i] = call.ID
			outcomes[i] = outcome
		}(i)
	}
	wg.Wait()

	created := 0
	for i := 1; i < workers; i++ {
		if ids[i] != ids[0] {
			t.Fatalf("diverging call ids under concurrency: %q vs %q", ids[i], ids[0])
		}
	}
	for _, o := range outcomes {
		if o == OutcomeCreated {
			created++
		}
	}
	if created != 1 {
		t.Errorf("created outcomes = %d, want exactly 1", created)
	}
}

func TestService_Complete_Idempotent(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	call, _, err := s.CreateOrGet(ctx, CreateParams{TenantID: "tenant-a", ProviderCallSID: "CA400"})
	if err != nil {
		t.Fatalf("CreateOrGet() error = %v", err)
	}

	first, err := s.Complete(ctx, call.ID, nil)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if first.Status != StatusCompleted || first.EndedAt == nil {
		t.Errorf("Complete() = %+v, want completed with ended_at", first)
	}

	second, err := s.Complete(ctx, call.ID, nil)
	if err != nil {
		t.Fatalf("Complete() repeat error = %v", err)
	}
	if !second.EndedAt.Equal(*first.EndedAt) {
		t.Errorf("repeat completion moved ended_at: %v vs %v", second.EndedAt, first.EndedAt)
	}
}

func TestService_Complete_ReportedDuration(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	call, _, err := s.CreateOrGet(ctx, CreateParams{TenantID: "tenant-a", ProviderCallSID: "CA500"})
	if err != nil {
		t.Fatalf("CreateOrGet() error = %v", err)
	}

	reported := 42
	first, err := s.Complete(ctx, call.ID, &reported)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if first.DurationSec != 42 {
		t.Errorf("duration_sec = %d, want 42 from the reported value", first.DurationSec)
	}

	// A late correction overwrites the duration without moving ended_at.
	corrected := 45
	second, err := s.Complete(ctx, call.ID, &corrected)
	if err != nil {
		t.Fatalf("Complete() correction error = %v", err)
	}
	if second.DurationSec != 45 {
		t.Errorf("corrected duration_sec = %d, want 45", second.DurationSec)
	}
	if !second.EndedAt.Equal(*first.EndedAt) {
		t.Errorf("duration correction moved ended_at: %v vs %v", second.EndedAt, first.EndedAt)
	}

	// A repeat without a duration keeps the stored value.
	third, err := s.Complete(ctx, call.ID, nil)
	if err != nil {
		t.Fatalf("Complete() repeat error = %v", err)
	}
	if third.DurationSec != 45 {
		t.Errorf("repeat reset duration_sec to %d, want 45", third.DurationSec)
	}

	negative := -7
	clamped, err := s.Complete(ctx, call.ID, &negative)
	if err != nil {
		t.Fatalf("Complete() negative error = %v", err)
	}
	if clamped.DurationSec != 0 {
		t.Errorf("negative duration stored as %d, want clamped to 0", clamped.DurationSec)
	}
}

func TestService_List_Paginated(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	for _, sid := range []string{"CA1", "CA2", "CA3"} {
		if _, _, err := s.CreateOrGet(ctx, CreateParams{TenantID: "tenant-a", ProviderCallSID: sid}); err != nil {
			t.Fatalf("CreateOrGet(%s) error = %v", sid, err)
		}
	}

	page, total, err := s.List(ctx, ListFilter{}, 1, 2)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(page) != 2 {
		t.Errorf("page size = %d, want 2", len(page))
	}

	page2, _, err := s.List(ctx, ListFilter{}, 2, 2)
	if err != nil {
		t.Fatalf("List() page 2 error = %v", err)
	}
	if len(page2) != 1 {
		t.Errorf("page 2 size = %d, want 1", len(page2))
	}
}

func TestService_List_Filtered(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	aCall, _, err := s.CreateOrGet(ctx, CreateParams{TenantID: "tenant-a", ProviderCallSID: "CA-f1"})
	if err != nil {
		t.Fatalf("CreateOrGet() error = %v", err)
	}
	if _, _, err := s.CreateOrGet(ctx, CreateParams{TenantID: "tenant-a", ProviderCallSID: "CA-f2"}); err != nil {
		t.Fatalf("CreateOrGet() error = %v", err)
	}
	if _, _, err := s.CreateOrGet(ctx, CreateParams{TenantID: "tenant-b", ProviderCallSID: "CA-f3"}); err != nil {
		t.Fatalf("CreateOrGet() error = %v", err)
	}
	if _, err := s.Complete(ctx, aCall.ID, nil); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	byTenant, total, err := s.List(ctx, ListFilter{TenantID: "tenant-a"}, 1, 10)
	if err != nil {
		t.Fatalf("List(tenant-a) error = %v", err)
	}
	if total != 2 || len(byTenant) != 2 {
		t.Errorf("tenant filter: total = %d, page = %d, want 2 and 2", total, len(byTenant))
	}
	for _, c := range byTenant {
		if c.TenantID != "tenant-a" {
			t.Errorf("tenant filter leaked call from %q", c.TenantID)
		}
	}

	completed, total, err := s.List(ctx, ListFilter{Status: StatusCompleted}, 1, 10)
	if err != nil {
		t.Fatalf("List(completed) error = %v", err)
	}
	if total != 1 || len(completed) != 1 {
		t.Errorf("status filter: total = %d, page = %d, want 1 and 1", total, len(completed))
	}
	if len(completed) == 1 && completed[0].ID != aCall.ID {
		t.Errorf("status filter returned %q, want %q", completed[0].ID, aCall.ID)
	}

	both, _, err := s.List(ctx, ListFilter{TenantID: "tenant-b", Status: StatusCompleted}, 1, 10)
	if err != nil {
		t.Fatalf("List(combined) error = %v", err)
	}
	if len(both) != 0 {
		t.Errorf("combined filter matched %d calls, want 0", len(both))
	}
}
