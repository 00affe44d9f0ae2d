package memory

import (
	"context"
	"sync"

	"gauntlet-service/internal/domain"
)

type ledgerKey struct {
	participantID string
	challengeID   int64
}

// Ledger is an in-memory implementation of app.ProgressLedger. It enforces
// at most one record per (participant, challenge) pair: the loser of a
// concurrent create gets the winner's row back.
type Ledger struct {
	mu      sync.RWMutex
	records map[ledgerKey]domain.ProgressRecord
}

func NewLedger() *Ledger {
	return &Ledger{records: make(map[ledgerKey]domain.ProgressRecord)}
}

func (l *Ledger) Get(_ context.Context, participantID string, challengeID int64) (domain.ProgressRecord, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok := l.records[ledgerKey{participantID, challengeID}]
	return rec, ok, nil
}

func (l *Ledger) Create(_ context.Context, rec domain.ProgressRecord) (domain.ProgressRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := ledgerKey{rec.ParticipantID, rec.ChallengeID}
	if existing, ok := l.records[key]; ok {
		return existing, nil
	}
	l.records[key] = rec
	return rec, nil
}

func (l *Ledger) Update(_ context.Context, rec domain.ProgressRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := ledgerKey{rec.ParticipantID, rec.ChallengeID}
	existing, ok := l.records[key]
	if !ok {
		return domain.ErrRecordNotFound
	}
	if existing.Solved() {
		return domain.ErrRecordFinalized
	}
	l.records[key] = rec
	return nil
}

func (l *Ledger) ListByParticipant(_ context.Context, participantID string) ([]domain.ProgressRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []domain.ProgressRecord
	for key, rec := range l.records {
		if key.participantID == participantID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (l *Ledger) ListAll(_ context.Context) ([]domain.ProgressRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.ProgressRecord, 0, len(l.records))
	for _, rec := range l.records {
		out = append(out, rec)
	}
	return out, nil
}
