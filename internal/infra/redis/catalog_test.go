package redis

import (
	"context"
	"testing"
	"time"

	"gauntlet-service/internal/domain"
	"gauntlet-service/internal/infra/memory"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestCatalogCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)
	loader := &countingLoader{
		CatalogLoader: memory.NewStaticCatalogLoader(sampleChallenges()),
	}
	catalog := NewCatalog(client, loader, time.Minute)

	challenges, err := catalog.ListActive(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if len(challenges) != 2 || challenges[0].OrderIndex != 1 {
		t.Fatalf("expected prepared active list, got %+v", challenges)
	}
	if !mr.Exists("gauntlet:challenges") {
		t.Fatalf("expected challenge list cached in redis")
	}

	// Second call hits the cache, loader not incremented.
	if _, err := catalog.ListActive(context.Background()); err != nil {
		t.Fatalf("list 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}

	// Invalidation forces the next read through the loader.
	if err := catalog.Invalidate(context.Background()); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := catalog.ListActive(context.Background()); err != nil {
		t.Fatalf("list 3: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidation, loader calls=%d", loader.calls)
	}
}

func TestEventStateRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	events := NewEventState(newClient(mr))

	// Empty store defaults to a live, open event.
	state, err := events.Current(context.Background())
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if !state.SubmissionsAllowed() || state.PauseTimers {
		t.Fatalf("expected live defaults, got %+v", state)
	}

	want := domain.EventState{Status: domain.EventPaused, AllowNewEntries: false, PauseTimers: true}
	if err := events.Apply(context.Background(), want); err != nil {
		t.Fatalf("apply: %v", err)
	}
	state, err = events.Current(context.Background())
	if err != nil {
		t.Fatalf("current 2: %v", err)
	}
	if state != want {
		t.Fatalf("expected %+v, got %+v", want, state)
	}
	if state.SubmissionsAllowed() {
		t.Fatalf("paused event must not accept submissions")
	}
}

type countingLoader struct {
	memory.CatalogLoader
	calls int
}

func (l *countingLoader) LoadChallenges(ctx context.Context) ([]domain.Challenge, error) {
	l.calls++
	return l.CatalogLoader.LoadChallenges(ctx)
}

func sampleChallenges() []domain.Challenge {
	return []domain.Challenge{
		{
			ID:         2,
			Title:      "Caesar's Secret",
			OrderIndex: 2,
			BasePoints: 100,
			Answer:     domain.AnswerSpec{Value: "cipher2"},
			Active:     true,
		},
		{
			ID:         1,
			Title:      "First Steps",
			OrderIndex: 1,
			BasePoints: 100,
			Answer:     domain.AnswerSpec{Value: "cipher1"},
			Active:     true,
		},
		{
			ID:         3,
			Title:      "Hidden",
			OrderIndex: 3,
			BasePoints: 100,
			Answer:     domain.AnswerSpec{Value: "cipher3"},
			Active:     false,
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
