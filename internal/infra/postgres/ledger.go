package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gauntlet-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// Ledger stores progress records in Postgres. The (participant, challenge)
// primary key plus insert-if-absent makes concurrent lazy starts resolve to
// a single authoritative row, and a status guard on updates keeps solved
// rows immutable.
type Ledger struct {
	pool *pgxpool.Pool
}

func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

const recordColumns = `participant_id, challenge_id, started_at, solved_at,
	duration_seconds, attempts, incorrect_attempts, hints_used, status`

func (l *Ledger) Get(ctx context.Context, participantID string, challengeID int64) (domain.ProgressRecord, bool, error) {
	row := l.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM challenge_progress WHERE participant_id=$1 AND challenge_id=$2`,
		participantID, challengeID)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ProgressRecord{}, false, nil
	}
	if err != nil {
		return domain.ProgressRecord{}, false, fmt.Errorf("get progress: %w", err)
	}
	return rec, true, nil
}

func (l *Ledger) Create(ctx context.Context, rec domain.ProgressRecord) (domain.ProgressRecord, error) {
	_, err := l.pool.Exec(ctx,
		`INSERT INTO challenge_progress (`+recordColumns+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 ON CONFLICT (participant_id, challenge_id) DO NOTHING`,
		rec.ParticipantID, rec.ChallengeID, rec.StartedAt, nullTime(rec.SolvedAt),
		rec.DurationSeconds, rec.Attempts, rec.IncorrectAttempts, rec.HintsUsed, rec.Status)
	if err != nil {
		return domain.ProgressRecord{}, fmt.Errorf("create progress: %w", err)
	}
	// Read back so the race loser adopts the winner's row.
	stored, ok, err := l.Get(ctx, rec.ParticipantID, rec.ChallengeID)
	if err != nil {
		return domain.ProgressRecord{}, err
	}
	if !ok {
		return domain.ProgressRecord{}, domain.ErrRecordNotFound
	}
	return stored, nil
}

func (l *Ledger) Update(ctx context.Context, rec domain.ProgressRecord) error {
	tag, err := l.pool.Exec(ctx,
		`UPDATE challenge_progress
		 SET started_at=$3, solved_at=$4, duration_seconds=$5, attempts=$6,
		     incorrect_attempts=$7, hints_used=$8, status=$9, updated_at=now()
		 WHERE participant_id=$1 AND challenge_id=$2 AND status <> $10`,
		rec.ParticipantID, rec.ChallengeID, rec.StartedAt, nullTime(rec.SolvedAt),
		rec.DurationSeconds, rec.Attempts, rec.IncorrectAttempts, rec.HintsUsed,
		rec.Status, domain.StatusSolved)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	_, ok, err := l.Get(ctx, rec.ParticipantID, rec.ChallengeID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrRecordNotFound
	}
	return domain.ErrRecordFinalized
}

func (l *Ledger) ListByParticipant(ctx context.Context, participantID string) ([]domain.ProgressRecord, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT `+recordColumns+` FROM challenge_progress WHERE participant_id=$1`,
		participantID)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

func (l *Ledger) ListAll(ctx context.Context) ([]domain.ProgressRecord, error) {
	rows, err := l.pool.Query(ctx, `SELECT `+recordColumns+` FROM challenge_progress`)
	if err != nil {
		return nil, fmt.Errorf("list all progress: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

func collectRecords(rows pgx.Rows) ([]domain.ProgressRecord, error) {
	var out []domain.ProgressRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanRecord(row pgx.Row) (domain.ProgressRecord, error) {
	var rec domain.ProgressRecord
	var solvedAt *time.Time
	err := row.Scan(&rec.ParticipantID, &rec.ChallengeID, &rec.StartedAt, &solvedAt,
		&rec.DurationSeconds, &rec.Attempts, &rec.IncorrectAttempts, &rec.HintsUsed, &rec.Status)
	if err != nil {
		return domain.ProgressRecord{}, err
	}
	if solvedAt != nil {
		rec.SolvedAt = *solvedAt
	}
	return rec, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
