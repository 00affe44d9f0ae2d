package redis

import (
	"context"
	"strconv"

	"gauntlet-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

const eventKey = "gauntlet:event"

// EventState reads the competition admission state from a Redis hash that
// admin tooling writes to. Missing fields fall back to a live, open event
// so a freshly provisioned instance is playable out of the box.
type EventState struct {
	client *redis.Client
}

func NewEventState(client *redis.Client) *EventState {
	return &EventState{client: client}
}

func (e *EventState) Current(ctx context.Context) (domain.EventState, error) {
	fields, err := e.client.HGetAll(ctx, eventKey).Result()
	if err != nil {
		return domain.EventState{}, err
	}

	state := domain.EventState{
		Status:          domain.EventLive,
		AllowNewEntries: true,
	}
	if v, ok := fields["status"]; ok && v != "" {
		state.Status = v
	}
	if v, ok := fields["allow_new_entries"]; ok {
		state.AllowNewEntries = parseBool(v, true)
	}
	if v, ok := fields["pause_timers"]; ok {
		state.PauseTimers = parseBool(v, false)
	}
	return state, nil
}

// Apply writes the full admission state; used by admin tooling and tests.
func (e *EventState) Apply(ctx context.Context, state domain.EventState) error {
	return e.client.HSet(ctx, eventKey,
		"status", state.Status,
		"allow_new_entries", strconv.FormatBool(state.AllowNewEntries),
		"pause_timers", strconv.FormatBool(state.PauseTimers),
	).Err()
}

func parseBool(raw string, fallback bool) bool {
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}
