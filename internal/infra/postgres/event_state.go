package postgres

import (
	"context"
	"fmt"
	"strconv"

	"gauntlet-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// EventState reads the admission control settings from the event_settings
// key/value table that admin tooling maintains.
type EventState struct {
	pool *pgxpool.Pool
}

func NewEventState(pool *pgxpool.Pool) *EventState {
	return &EventState{pool: pool}
}

func (e *EventState) Current(ctx context.Context) (domain.EventState, error) {
	rows, err := e.pool.Query(ctx,
		`SELECT key, value FROM event_settings
		 WHERE key IN ('event_status', 'allow_new_entries', 'pause_timers')`)
	if err != nil {
		return domain.EventState{}, fmt.Errorf("load event settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string, 3)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return domain.EventState{}, fmt.Errorf("scan event setting: %w", err)
		}
		settings[key] = value
	}
	if err := rows.Err(); err != nil {
		return domain.EventState{}, err
	}

	state := domain.EventState{
		Status:          domain.EventLive,
		AllowNewEntries: true,
	}
	if v, ok := settings["event_status"]; ok && v != "" {
		state.Status = v
	}
	if v, ok := settings["allow_new_entries"]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			state.AllowNewEntries = b
		}
	}
	if v, ok := settings["pause_timers"]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			state.PauseTimers = b
		}
	}
	return state, nil
}
