package history

import (
	"context"
	"testing"

	"github.com/cinequest/cinequest/internal/request"
	"github.com/cinequest/cinequest/internal/testutil"
)

func TestService_RecordAndRecent(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()

	service := NewService(tdb.Conn, tdb.Logger)
	ctx := context.Background()

	service.Record(ctx, request.OutcomeSubmitted, "Dune")
	service.Record(ctx, request.OutcomeApproved, "request #17")
	service.Record(ctx, request.OutcomeCancelled, "")

	entries, err := service.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Recent() returned %d entries, want 3", len(entries))
	}

	// Newest first.
	if entries[0].Outcome != request.OutcomeCancelled {
		t.Errorf("entries[0].Outcome = %q, want cancelled", entries[0].Outcome)
	}
	if entries[2].Outcome != request.OutcomeSubmitted || entries[2].Subject != "Dune" {
		t.Errorf("entries[2] = %+v, want submitted Dune", entries[2])
	}
	if entries[0].ID == 0 || entries[0].CreatedAt.IsZero() {
		t.Error("entries must carry id and timestamp")
	}
}

func TestService_RecentLimit(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()

	service := NewService(tdb.Conn, tdb.Logger)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		service.Record(ctx, request.OutcomeSubmitted, "Movie")
	}

	entries, err := service.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("Recent(2) returned %d entries, want 2", len(entries))
	}
}
