package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"gauntlet-service/internal/domain"
	"gauntlet-service/internal/infra/memory"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const challengesKey = "gauntlet:challenges"

// Catalog caches the prepared active challenge list in Redis as JSON and
// falls back to a loader on cache miss. Challenges are validated and
// sorted before they are cached, so cache hits serve ready-to-use data.
type Catalog struct {
	client *redis.Client
	loader memory.CatalogLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewCatalog(client *redis.Client, loader memory.CatalogLoader, ttl time.Duration) *Catalog {
	return &Catalog{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *Catalog) ListActive(ctx context.Context) ([]domain.Challenge, error) {
	if cached, ok := c.fromCache(ctx); ok {
		return cached, nil
	}

	result, err, _ := c.sf.Do(challengesKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if cached, ok := c.fromCache(ctx); ok {
			return cached, nil
		}

		challenges, err := c.loader.LoadChallenges(ctx)
		if err != nil {
			return nil, err
		}
		prepared, err := memory.PrepareChallenges(challenges)
		if err != nil {
			return nil, err
		}

		if data, err := json.Marshal(prepared); err == nil {
			// Cache write is best-effort; the loader result is served
			// either way.
			_ = c.client.Set(ctx, challengesKey, data, c.ttlWithJitter()).Err()
		}
		return prepared, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Challenge), nil
}

// Invalidate drops the cached list, forcing the next read through the
// loader. Admin tooling calls this after editing challenges.
func (c *Catalog) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, challengesKey).Err()
}

func (c *Catalog) fromCache(ctx context.Context) ([]domain.Challenge, bool) {
	data, err := c.client.Get(ctx, challengesKey).Bytes()
	if err != nil || len(data) == 0 {
		return nil, false
	}
	var challenges []domain.Challenge
	if err := json.Unmarshal(data, &challenges); err != nil {
		return nil, false
	}
	return challenges, true
}

func (c *Catalog) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
