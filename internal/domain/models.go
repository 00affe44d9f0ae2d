package domain

import "time"

// Progress status values. A participant with no ledger row for a challenge
// has not started it; absence of a row is the "not started" state.
const (
	StatusInProgress = "in_progress"
	StatusSolved     = "solved"
)

// Event status values as kept in the event settings store.
const (
	EventNotStarted = "not_started"
	EventLive       = "live"
	EventPaused     = "paused"
	EventEnded      = "ended"
)

// AnswerSpec describes how a submission is judged: an exact literal match
// or a case-insensitive regular expression (partial match suffices).
type AnswerSpec struct {
	Value     string `json:"value"`
	IsPattern bool   `json:"isPattern"`
}

// Challenge is one puzzle in the ordered competition sequence. Challenges
// are admin-owned content and read-only to this service.
type Challenge struct {
	ID         int64      `json:"id"`
	Title      string     `json:"title"`
	PromptMD   string     `json:"promptMd"`
	HintMD     string     `json:"hintMd"`
	OrderIndex int        `json:"orderIndex"`
	BasePoints int        `json:"basePoints"`
	Answer     AnswerSpec `json:"answer"`
	Active     bool       `json:"active"`
}

// ProgressRecord is the ledger row for one (participant, challenge) pair.
// StartedAt is set when the participant first submits or takes a hint, not
// when the challenge unlocks. Once Status is solved the record is final.
type ProgressRecord struct {
	ParticipantID     string    `json:"participantId"`
	ChallengeID       int64     `json:"challengeId"`
	StartedAt         time.Time `json:"startedAt"`
	SolvedAt          time.Time `json:"solvedAt,omitempty"`
	DurationSeconds   int       `json:"durationSeconds"`
	Attempts          int       `json:"attempts"`
	IncorrectAttempts int       `json:"incorrectAttempts"`
	HintsUsed         int       `json:"hintsUsed"`
	Status            string    `json:"status"`
}

// Solved reports whether the record has been finalized.
func (r ProgressRecord) Solved() bool { return r.Status == StatusSolved }

// GateState is a challenge's state from one participant's perspective.
type GateState string

const (
	GateLocked             GateState = "locked"
	GateUnlockedNotStarted GateState = "unlocked"
	GateUnlockedInProgress GateState = "in_progress"
	GateSolved             GateState = "solved"
)

// ChallengeState pairs a challenge with its gate state and, when started,
// the participant's ledger row.
type ChallengeState struct {
	Challenge Challenge       `json:"challenge"`
	State     GateState       `json:"state"`
	Record    *ProgressRecord `json:"record,omitempty"`
}

// SubmitResult is the outcome of one accepted answer submission.
// AlreadySolved marks a duplicate submission against a finalized record:
// the original solve's values are reported and nothing is mutated.
type SubmitResult struct {
	Correct         bool `json:"correct"`
	AwardedPoints   int  `json:"awardedPoints"`
	DurationSeconds int  `json:"durationSeconds"`
	AlreadySolved   bool `json:"alreadySolved"`
}

// HintResult reports the hint just revealed. PointCost is the incremental
// cost of this hint, not the cumulative score penalty.
type HintResult struct {
	HintNumber int    `json:"hintNumber"`
	PointCost  int    `json:"pointCost"`
	HintMD     string `json:"hintMd"`
}

// EventState is the competition-wide admission control snapshot.
type EventState struct {
	Status          string `json:"status"`
	AllowNewEntries bool   `json:"allowNewEntries"`
	PauseTimers     bool   `json:"pauseTimers"`
}

// SubmissionsAllowed reports whether new submissions are accepted.
func (e EventState) SubmissionsAllowed() bool {
	return e.Status == EventLive && e.AllowNewEntries
}

// Standing is one leaderboard row, derived from ledger rows on demand.
type Standing struct {
	ParticipantID     string    `json:"participantId"`
	DisplayName       string    `json:"displayName"`
	SolvedCount       int       `json:"solvedCount"`
	TotalPoints       int       `json:"totalPoints"`
	TotalTimeSeconds  int       `json:"totalTimeSeconds"`
	LastSolveAt       time.Time `json:"lastSolveAt,omitempty"`
	CurrentOrderIndex int       `json:"currentOrderIndex"`
}

// Standings captures the ordered leaderboard.
type Standings struct {
	Entries   []Standing `json:"entries"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// TimerView is the display read for a challenge timer. Running is false for
// solved challenges and while timers are paused; clients must not advance
// the displayed value when Running is false.
type TimerView struct {
	Seconds int  `json:"seconds"`
	Running bool `json:"running"`
}
