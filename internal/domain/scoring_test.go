package domain

import (
	"testing"
	"time"
)

func TestScoreIsDeterministic(t *testing.T) {
	first := Score(100, 3, 2, 200)
	for i := 0; i < 10; i++ {
		if got := Score(100, 3, 2, 200); got != first {
			t.Fatalf("score changed between calls: %d vs %d", got, first)
		}
	}
}

func TestScoreNeverBelowOne(t *testing.T) {
	if got := Score(10, 50, 10, 10000); got != 1 {
		t.Fatalf("expected floor of 1, got %d", got)
	}
	if got := Score(1, 0, 0, 0); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
}

func TestTimePenaltyGracePeriod(t *testing.T) {
	cases := []struct {
		duration int
		want     int
	}{
		{0, 100},
		{120, 100}, // at the grace boundary
		{121, 100}, // 1s past grace rounds down to no penalty
		{134, 100}, // still inside the first step
		{135, 99},  // first full step elapsed
	}
	for _, c := range cases {
		if got := Score(100, 0, 0, c.duration); got != c.want {
			t.Fatalf("score(100,0,0,%d) = %d, want %d", c.duration, got, c.want)
		}
	}
}

func TestTimePenaltyCap(t *testing.T) {
	if got := TimePenalty(120 + 15*100); got != 100 {
		t.Fatalf("expected penalty at cap, got %d", got)
	}
	if got := TimePenalty(1_000_000); got != 100 {
		t.Fatalf("expected capped penalty of 100, got %d", got)
	}
}

func TestHintCostSequence(t *testing.T) {
	for n, want := range map[int]int{1: 5, 2: 10, 3: 15} {
		if got := HintCost(n); got != want {
			t.Fatalf("hint %d cost = %d, want %d", n, got, want)
		}
	}
	// Cumulative penalty after 3 hints is 5+10+15 = 30.
	if got := HintPenalty(3); got != 30 {
		t.Fatalf("expected cumulative hint penalty 30, got %d", got)
	}
	if got := Score(100, 0, 3, 0); got != 70 {
		t.Fatalf("score(100,0,3,0) = %d, want 70", got)
	}
}

func TestHintPenaltyCap(t *testing.T) {
	if got := HintPenalty(100); got != 100 {
		t.Fatalf("expected hint penalty cap of 100, got %d", got)
	}
}

func TestIncorrectPenalty(t *testing.T) {
	if got := Score(100, 1, 0, 0); got != 100 {
		t.Fatalf("score(100,1,0,0) = %d, want 100", got)
	}
	if got := Score(100, 2, 0, 0); got != 99 {
		t.Fatalf("score(100,2,0,0) = %d, want 99", got)
	}
	if got := Score(100, 5, 0, 0); got != 97 {
		t.Fatalf("score(100,5,0,0) = %d, want 97", got)
	}
}

func TestScoreRecord(t *testing.T) {
	ch := Challenge{ID: 1, BasePoints: 100}

	// No ledger row yet: nothing has been spent.
	if got := ScoreRecord(ch, nil, time.Now()); got != 100 {
		t.Fatalf("expected base points for absent record, got %d", got)
	}

	started := time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)

	// In-progress records are scored against live elapsed time.
	rec := &ProgressRecord{
		ChallengeID: 1,
		StartedAt:   started,
		Status:      StatusInProgress,
	}
	now := started.Add(150 * time.Second)
	if got := ScoreRecord(ch, rec, now); got != 98 {
		t.Fatalf("expected live preview 98, got %d", got)
	}

	// Solved records use the stored duration regardless of now.
	solved := &ProgressRecord{
		ChallengeID:     1,
		StartedAt:       started,
		SolvedAt:        started.Add(150 * time.Second),
		DurationSeconds: 150,
		Status:          StatusSolved,
	}
	if got := ScoreRecord(ch, solved, started.Add(24*time.Hour)); got != 98 {
		t.Fatalf("expected finalized score 98, got %d", got)
	}
}
