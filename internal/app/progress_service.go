package app

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"gauntlet-service/internal/domain"
)

// ChallengeCatalog supplies the ordered sequence of active challenges
// (from cache/backing store), sorted ascending by order index.
type ChallengeCatalog interface {
	ListActive(ctx context.Context) ([]domain.Challenge, error)
}

// ProgressLedger abstracts how progress records are stored (in-memory,
// Postgres, etc). Implementations must guarantee at most one record per
// (participant, challenge) pair.
type ProgressLedger interface {
	// Get returns the record for the pair, reporting whether it exists.
	Get(ctx context.Context, participantID string, challengeID int64) (domain.ProgressRecord, bool, error)
	// Create inserts the record if absent and returns the authoritative
	// row. When a concurrent insert wins the race, the existing row is
	// returned instead of the argument; callers must adopt it.
	Create(ctx context.Context, rec domain.ProgressRecord) (domain.ProgressRecord, error)
	// Update overwrites an existing record. Writes against a solved record
	// fail with domain.ErrRecordFinalized.
	Update(ctx context.Context, rec domain.ProgressRecord) error
	ListByParticipant(ctx context.Context, participantID string) ([]domain.ProgressRecord, error)
	ListAll(ctx context.Context) ([]domain.ProgressRecord, error)
}

// EventStateSource reports the competition-wide admission state.
type EventStateSource interface {
	Current(ctx context.Context) (domain.EventState, error)
}

// ProgressService contains the challenge progression use cases: answer
// submission, hint reveal, the unlock gate, timer reads, and standings.
type ProgressService struct {
	catalog ChallengeCatalog
	ledger  ProgressLedger
	events  EventStateSource
	now     func() time.Time

	mu          sync.RWMutex
	names       map[string]string
	subscribers map[chan domain.Standings]struct{}
}

func NewProgressService(catalog ChallengeCatalog, ledger ProgressLedger, events EventStateSource) *ProgressService {
	return NewProgressServiceWithClock(catalog, ledger, events, time.Now)
}

// NewProgressServiceWithClock allows deterministic timestamps in tests.
func NewProgressServiceWithClock(catalog ChallengeCatalog, ledger ProgressLedger, events EventStateSource, now func() time.Time) *ProgressService {
	return &ProgressService{
		catalog:     catalog,
		ledger:      ledger,
		events:      events,
		now:         now,
		names:       make(map[string]string),
		subscribers: make(map[chan domain.Standings]struct{}),
	}
}

// Join registers a participant's display name and returns the current
// standings snapshot.
func (s *ProgressService) Join(ctx context.Context, participantID, displayName string) (domain.Standings, error) {
	s.mu.Lock()
	s.names[participantID] = displayName
	s.mu.Unlock()

	standings, err := s.Standings(ctx)
	if err != nil {
		return domain.Standings{}, err
	}
	s.broadcast(standings)
	return standings, nil
}

// Submit judges one answer submission end-to-end: admission check, gate
// check, lazy start, evaluation, ledger update, and auto-start of the next
// challenge on a solve. The ledger write is the authoritative outcome; no
// result is reported unless persistence succeeded.
func (s *ProgressService) Submit(ctx context.Context, participantID string, challengeID int64, answer string) (domain.SubmitResult, error) {
	state, err := s.events.Current(ctx)
	if err != nil {
		return domain.SubmitResult{}, err
	}
	if !state.SubmissionsAllowed() {
		return domain.SubmitResult{}, domain.ErrSubmissionsDisabled
	}

	challenges, err := s.catalog.ListActive(ctx)
	if err != nil {
		return domain.SubmitResult{}, err
	}
	pos := challengePosition(challenges, challengeID)
	if pos < 0 {
		return domain.SubmitResult{}, domain.ErrChallengeNotFound
	}
	ch := challenges[pos]

	records, err := s.ledger.ListByParticipant(ctx, participantID)
	if err != nil {
		return domain.SubmitResult{}, err
	}
	if locked(challenges, records, pos) {
		return domain.SubmitResult{}, domain.ErrChallengeLocked
	}

	if domain.NormalizeAnswer(answer) == "" {
		return domain.SubmitResult{}, domain.ErrEmptyAnswer
	}

	now := s.now()
	rec, err := s.startIfAbsent(ctx, participantID, challengeID, now)
	if err != nil {
		return domain.SubmitResult{}, err
	}
	if rec.Solved() {
		// Duplicate or late submission against a finalized record: report
		// the original solve, mutate nothing.
		return solvedResult(ch, rec), nil
	}

	correct, err := ch.Answer.Match(answer)
	if err != nil {
		// Patterns are validated at catalog load time, so this indicates
		// corrupted challenge data rather than user error.
		return domain.SubmitResult{}, err
	}

	rec.Attempts++
	if !correct {
		rec.IncorrectAttempts++
		if err := s.ledger.Update(ctx, rec); err != nil {
			if errors.Is(err, domain.ErrRecordFinalized) {
				return s.adoptFinalized(ctx, ch, participantID, challengeID)
			}
			return domain.SubmitResult{}, err
		}
		return domain.SubmitResult{Correct: false}, nil
	}

	rec.SolvedAt = now
	rec.DurationSeconds = int(now.Sub(rec.StartedAt) / time.Second)
	rec.Status = domain.StatusSolved
	if err := s.ledger.Update(ctx, rec); err != nil {
		if errors.Is(err, domain.ErrRecordFinalized) {
			return s.adoptFinalized(ctx, ch, participantID, challengeID)
		}
		return domain.SubmitResult{}, err
	}

	// Auto-start the next challenge so timing stays continuous across the
	// run. The solve is already persisted; a failure here only delays the
	// next timer until the participant's first interaction with it.
	if pos+1 < len(challenges) {
		if _, err := s.startIfAbsent(ctx, participantID, challenges[pos+1].ID, s.now()); err != nil {
			log.Printf("auto-start challenge %d for %s: %v", challenges[pos+1].ID, participantID, err)
		}
	}

	if standings, err := s.Standings(ctx); err == nil {
		s.broadcast(standings)
	}

	return domain.SubmitResult{
		Correct:         true,
		AwardedPoints:   domain.Score(ch.BasePoints, rec.IncorrectAttempts, rec.HintsUsed, rec.DurationSeconds),
		DurationSeconds: rec.DurationSeconds,
	}, nil
}

// RevealHint reveals the next hint for a challenge, lazily starting it (and
// its timer) when no record exists yet. Repeated calls keep incrementing
// the counter; deduplication is a client concern.
func (s *ProgressService) RevealHint(ctx context.Context, participantID string, challengeID int64) (domain.HintResult, error) {
	challenges, err := s.catalog.ListActive(ctx)
	if err != nil {
		return domain.HintResult{}, err
	}
	pos := challengePosition(challenges, challengeID)
	if pos < 0 {
		return domain.HintResult{}, domain.ErrChallengeNotFound
	}
	ch := challenges[pos]

	records, err := s.ledger.ListByParticipant(ctx, participantID)
	if err != nil {
		return domain.HintResult{}, err
	}
	if locked(challenges, records, pos) {
		return domain.HintResult{}, domain.ErrChallengeLocked
	}

	rec, err := s.startIfAbsent(ctx, participantID, challengeID, s.now())
	if err != nil {
		return domain.HintResult{}, err
	}
	if rec.Solved() {
		return domain.HintResult{}, domain.ErrRecordFinalized
	}

	rec.HintsUsed++
	if err := s.ledger.Update(ctx, rec); err != nil {
		return domain.HintResult{}, err
	}

	return domain.HintResult{
		HintNumber: rec.HintsUsed,
		PointCost:  domain.HintCost(rec.HintsUsed),
		HintMD:     ch.HintMD,
	}, nil
}

// ChallengeStates returns the gate view of every active challenge for a
// participant, plus the current challenge (first unsolved in order, nil
// when the run is complete).
func (s *ProgressService) ChallengeStates(ctx context.Context, participantID string) ([]domain.ChallengeState, *domain.Challenge, error) {
	challenges, err := s.catalog.ListActive(ctx)
	if err != nil {
		return nil, nil, err
	}
	records, err := s.ledger.ListByParticipant(ctx, participantID)
	if err != nil {
		return nil, nil, err
	}

	byChallenge := recordIndex(records)
	states := make([]domain.ChallengeState, 0, len(challenges))
	var current *domain.Challenge
	for i := range challenges {
		ch := challenges[i]
		state := domain.ChallengeState{Challenge: ch}
		rec, started := byChallenge[ch.ID]
		if started {
			r := rec
			state.Record = &r
		}
		switch {
		case started && rec.Solved():
			state.State = domain.GateSolved
		case locked(challenges, records, i):
			state.State = domain.GateLocked
		case started && !rec.StartedAt.IsZero():
			state.State = domain.GateUnlockedInProgress
		default:
			state.State = domain.GateUnlockedNotStarted
		}
		if current == nil && state.State != domain.GateSolved {
			c := ch
			current = &c
		}
		states = append(states, state)
	}
	return states, current, nil
}

// Timer is the display read for a challenge timer. Solved challenges report
// their stored duration; in-progress ones report live elapsed time, with
// Running cleared while the event's timers are paused so the display
// freezes. The authoritative solve-time duration is unaffected by pausing.
func (s *ProgressService) Timer(ctx context.Context, participantID string, challengeID int64) (domain.TimerView, error) {
	rec, ok, err := s.ledger.Get(ctx, participantID, challengeID)
	if err != nil {
		return domain.TimerView{}, err
	}
	if !ok || rec.StartedAt.IsZero() {
		return domain.TimerView{}, nil
	}
	if rec.Solved() {
		return domain.TimerView{Seconds: rec.DurationSeconds}, nil
	}

	state, err := s.events.Current(ctx)
	if err != nil {
		return domain.TimerView{}, err
	}
	return domain.TimerView{
		Seconds: int(s.now().Sub(rec.StartedAt) / time.Second),
		Running: !state.PauseTimers,
	}, nil
}

// PreviewPoints reports the points the participant would earn for a
// challenge if they solved it right now, using the same scoring function
// that finalization uses.
func (s *ProgressService) PreviewPoints(ctx context.Context, participantID string, challengeID int64) (int, error) {
	challenges, err := s.catalog.ListActive(ctx)
	if err != nil {
		return 0, err
	}
	pos := challengePosition(challenges, challengeID)
	if pos < 0 {
		return 0, domain.ErrChallengeNotFound
	}
	rec, ok, err := s.ledger.Get(ctx, participantID, challengeID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return domain.ScoreRecord(challenges[pos], nil, s.now()), nil
	}
	return domain.ScoreRecord(challenges[pos], &rec, s.now()), nil
}

// Standings derives the leaderboard from ledger rows alone: total points,
// total solve time, solved count, and last solve per participant, ordered
// by points descending, then total time and last solve ascending.
func (s *ProgressService) Standings(ctx context.Context) (domain.Standings, error) {
	challenges, err := s.catalog.ListActive(ctx)
	if err != nil {
		return domain.Standings{}, err
	}
	records, err := s.ledger.ListAll(ctx)
	if err != nil {
		return domain.Standings{}, err
	}

	byID := make(map[int64]domain.Challenge, len(challenges))
	for _, ch := range challenges {
		byID[ch.ID] = ch
	}

	perParticipant := make(map[string][]domain.ProgressRecord)
	for _, rec := range records {
		perParticipant[rec.ParticipantID] = append(perParticipant[rec.ParticipantID], rec)
	}

	s.mu.RLock()
	participants := make(map[string]string, len(s.names))
	for id, name := range s.names {
		participants[id] = name
	}
	s.mu.RUnlock()
	for id := range perParticipant {
		if _, ok := participants[id]; !ok {
			participants[id] = id
		}
	}

	now := s.now()
	entries := make([]domain.Standing, 0, len(participants))
	for id, name := range participants {
		entry := domain.Standing{ParticipantID: id, DisplayName: name}
		solved := recordIndex(perParticipant[id])
		for _, rec := range solved {
			ch, ok := byID[rec.ChallengeID]
			if !ok || !rec.Solved() {
				continue
			}
			entry.SolvedCount++
			entry.TotalPoints += domain.Score(ch.BasePoints, rec.IncorrectAttempts, rec.HintsUsed, rec.DurationSeconds)
			entry.TotalTimeSeconds += rec.DurationSeconds
			if rec.SolvedAt.After(entry.LastSolveAt) {
				entry.LastSolveAt = rec.SolvedAt
			}
		}
		for _, ch := range challenges {
			rec, ok := solved[ch.ID]
			if !ok || !rec.Solved() {
				entry.CurrentOrderIndex = ch.OrderIndex
				break
			}
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalPoints != entries[j].TotalPoints {
			return entries[i].TotalPoints > entries[j].TotalPoints
		}
		if entries[i].TotalTimeSeconds != entries[j].TotalTimeSeconds {
			return entries[i].TotalTimeSeconds < entries[j].TotalTimeSeconds
		}
		if !entries[i].LastSolveAt.Equal(entries[j].LastSolveAt) {
			return entries[i].LastSolveAt.Before(entries[j].LastSolveAt)
		}
		return entries[i].DisplayName < entries[j].DisplayName
	})

	return domain.Standings{Entries: entries, UpdatedAt: now}, nil
}

// Subscribe returns a channel that receives standings updates. The caller
// must invoke the returned cancel function to avoid leaks.
func (s *ProgressService) Subscribe(ctx context.Context) (<-chan domain.Standings, func(), error) {
	initial, err := s.Standings(ctx)
	if err != nil {
		return nil, nil, err
	}

	ch := make(chan domain.Standings, 8)
	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel, nil
}

func (s *ProgressService) broadcast(standings domain.Standings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers {
		select {
		case ch <- standings:
		default:
			// Drop the stale update so slow clients never block a solve.
			select {
			case <-ch:
			default:
			}
			ch <- standings
		}
	}
}

// startIfAbsent lazily creates the ledger row for a first interaction. The
// returned record is the authoritative row: when a concurrent create wins
// the race, the winner's startedAt is adopted rather than overwritten.
func (s *ProgressService) startIfAbsent(ctx context.Context, participantID string, challengeID int64, now time.Time) (domain.ProgressRecord, error) {
	rec, ok, err := s.ledger.Get(ctx, participantID, challengeID)
	if err != nil {
		return domain.ProgressRecord{}, err
	}
	if ok && !rec.StartedAt.IsZero() {
		return rec, nil
	}
	return s.ledger.Create(ctx, domain.ProgressRecord{
		ParticipantID: participantID,
		ChallengeID:   challengeID,
		StartedAt:     now,
		Status:        domain.StatusInProgress,
	})
}

// adoptFinalized re-reads a record after losing a write race against a
// concurrent solve and reports the winner's result.
func (s *ProgressService) adoptFinalized(ctx context.Context, ch domain.Challenge, participantID string, challengeID int64) (domain.SubmitResult, error) {
	rec, ok, err := s.ledger.Get(ctx, participantID, challengeID)
	if err != nil {
		return domain.SubmitResult{}, err
	}
	if !ok || !rec.Solved() {
		return domain.SubmitResult{}, domain.ErrRecordNotFound
	}
	return solvedResult(ch, rec), nil
}

func solvedResult(ch domain.Challenge, rec domain.ProgressRecord) domain.SubmitResult {
	return domain.SubmitResult{
		Correct:         true,
		AwardedPoints:   domain.Score(ch.BasePoints, rec.IncorrectAttempts, rec.HintsUsed, rec.DurationSeconds),
		DurationSeconds: rec.DurationSeconds,
		AlreadySolved:   true,
	}
}

// challengePosition returns the index of a challenge in the ordered active
// list, or -1 when absent.
func challengePosition(challenges []domain.Challenge, challengeID int64) int {
	for i := range challenges {
		if challenges[i].ID == challengeID {
			return i
		}
	}
	return -1
}

// locked reports whether the challenge at position pos is locked for the
// participant: every challenge except the first requires its predecessor to
// be solved.
func locked(challenges []domain.Challenge, records []domain.ProgressRecord, pos int) bool {
	if pos == 0 {
		return false
	}
	prev := challenges[pos-1]
	for _, rec := range records {
		if rec.ChallengeID == prev.ID && rec.Solved() {
			return false
		}
	}
	return true
}

func recordIndex(records []domain.ProgressRecord) map[int64]domain.ProgressRecord {
	byChallenge := make(map[int64]domain.ProgressRecord, len(records))
	for _, rec := range records {
		byChallenge[rec.ChallengeID] = rec
	}
	return byChallenge
}
