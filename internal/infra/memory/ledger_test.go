package memory

import (
	"context"
	"testing"
	"time"

	"gauntlet-service/internal/domain"
)

func TestLedgerCreateIsInsertIfAbsent(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger()

	winner := domain.ProgressRecord{
		ParticipantID: "u1",
		ChallengeID:   1,
		StartedAt:     time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC),
		Status:        domain.StatusInProgress,
	}
	created, err := ledger.Create(ctx, winner)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !created.StartedAt.Equal(winner.StartedAt) {
		t.Fatalf("expected winner's startedAt, got %v", created.StartedAt)
	}

	// A racing second create must adopt the winner's row, not overwrite it.
	loser := winner
	loser.StartedAt = winner.StartedAt.Add(3 * time.Second)
	adopted, err := ledger.Create(ctx, loser)
	if err != nil {
		t.Fatalf("create duplicate: %v", err)
	}
	if !adopted.StartedAt.Equal(winner.StartedAt) {
		t.Fatalf("expected loser to adopt winner's startedAt, got %v", adopted.StartedAt)
	}
}

func TestLedgerUpdateRejectsFinalizedRows(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger()
	started := time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)

	rec := domain.ProgressRecord{
		ParticipantID: "u1",
		ChallengeID:   1,
		StartedAt:     started,
		Status:        domain.StatusInProgress,
	}
	if _, err := ledger.Create(ctx, rec); err != nil {
		t.Fatalf("create: %v", err)
	}

	rec.Attempts = 1
	rec.SolvedAt = started.Add(time.Minute)
	rec.DurationSeconds = 60
	rec.Status = domain.StatusSolved
	if err := ledger.Update(ctx, rec); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	// A late write must not resurrect an already-solved record.
	late := rec
	late.Status = domain.StatusInProgress
	late.IncorrectAttempts = 1
	if err := ledger.Update(ctx, late); err != domain.ErrRecordFinalized {
		t.Fatalf("expected ErrRecordFinalized, got %v", err)
	}

	stored, ok, _ := ledger.Get(ctx, "u1", 1)
	if !ok || !stored.Solved() || stored.DurationSeconds != 60 {
		t.Fatalf("finalized record mutated: %+v", stored)
	}
}

func TestLedgerUpdateRequiresExistingRow(t *testing.T) {
	ledger := NewLedger()
	err := ledger.Update(context.Background(), domain.ProgressRecord{ParticipantID: "u1", ChallengeID: 9})
	if err != domain.ErrRecordNotFound {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestLedgerListByParticipant(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger()

	for _, rec := range []domain.ProgressRecord{
		{ParticipantID: "u1", ChallengeID: 1, Status: domain.StatusInProgress, StartedAt: time.Now()},
		{ParticipantID: "u1", ChallengeID: 2, Status: domain.StatusInProgress, StartedAt: time.Now()},
		{ParticipantID: "u2", ChallengeID: 1, Status: domain.StatusInProgress, StartedAt: time.Now()},
	} {
		if _, err := ledger.Create(ctx, rec); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	mine, err := ledger.ListByParticipant(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("expected 2 records for u1, got %d", len(mine))
	}
	all, err := ledger.ListAll(ctx)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 records, got %d", len(all))
	}
}
