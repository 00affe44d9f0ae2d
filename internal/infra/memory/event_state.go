package memory

import (
	"context"
	"sync"

	"gauntlet-service/internal/domain"
)

// EventState is an in-memory implementation of app.EventStateSource with a
// setter, used in demo mode and tests.
type EventState struct {
	mu    sync.RWMutex
	state domain.EventState
}

func NewEventState(state domain.EventState) *EventState {
	return &EventState{state: state}
}

func (e *EventState) Current(_ context.Context) (domain.EventState, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state, nil
}

func (e *EventState) Set(state domain.EventState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = state
}
