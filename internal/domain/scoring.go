package domain

import "time"

// Scoring constants. The grace period is the initial window during which no
// time penalty accrues; beyond it, one point is lost per penalty step.
const (
	GracePeriodSeconds     = 120
	TimePenaltyStepSeconds = 15
	MaxTimePenalty         = 100
	MaxHintPenalty         = 100
	HintCostStep           = 5
)

// Score computes the points currently awarded for a challenge given the
// penalties spent on it. It is the single source of truth for scoring and
// is used both for live previews and for finalized records.
func Score(basePoints, incorrectAttempts, hintsUsed, durationSeconds int) int {
	points := basePoints -
		IncorrectPenalty(incorrectAttempts) -
		HintPenalty(hintsUsed) -
		TimePenalty(durationSeconds)
	if points < 1 {
		return 1
	}
	return points
}

// IncorrectPenalty costs one point per two wrong guesses.
func IncorrectPenalty(incorrectAttempts int) int {
	if incorrectAttempts < 0 {
		return 0
	}
	return incorrectAttempts / 2
}

// HintCost is the incremental cost of the n-th hint: 5, 10, 15, ...
func HintCost(n int) int { return HintCostStep * n }

// HintPenalty is the cumulative cost of h hints, capped at MaxHintPenalty.
func HintPenalty(hintsUsed int) int {
	if hintsUsed < 0 {
		return 0
	}
	penalty := HintCostStep * hintsUsed * (hintsUsed + 1) / 2
	if penalty > MaxHintPenalty {
		return MaxHintPenalty
	}
	return penalty
}

// TimePenalty costs one point per penalty step beyond the grace period,
// capped at MaxTimePenalty. Partial steps do not count.
func TimePenalty(durationSeconds int) int {
	excess := durationSeconds - GracePeriodSeconds
	if excess <= 0 {
		return 0
	}
	penalty := excess / TimePenaltyStepSeconds
	if penalty > MaxTimePenalty {
		return MaxTimePenalty
	}
	return penalty
}

// ScoreRecord computes the awarded points for a ledger row. A nil record
// means nothing has been spent yet, so the challenge is worth its base
// points. In-progress records are scored against the live elapsed time at
// now; solved records against their stored duration.
func ScoreRecord(ch Challenge, rec *ProgressRecord, now time.Time) int {
	if rec == nil {
		return ch.BasePoints
	}
	duration := rec.DurationSeconds
	if !rec.Solved() && !rec.StartedAt.IsZero() {
		duration = int(now.Sub(rec.StartedAt) / time.Second)
	}
	return Score(ch.BasePoints, rec.IncorrectAttempts, rec.HintsUsed, duration)
}
