package memory

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"gauntlet-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// CatalogLoader fetches challenge definitions from a backing store.
type CatalogLoader interface {
	LoadChallenges(ctx context.Context) ([]domain.Challenge, error)
}

// Catalog caches the active challenge list with a TTL to avoid repeated
// store hits. Loaded challenges are validated (answer patterns must
// compile) and sorted by order index before they are served.
type Catalog struct {
	loader CatalogLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu        sync.RWMutex
	cached    []domain.Challenge
	expiresAt time.Time
}

func NewCatalog(loader CatalogLoader, ttl time.Duration) *Catalog {
	return &Catalog{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *Catalog) ListActive(ctx context.Context) ([]domain.Challenge, error) {
	now := c.clock()

	c.mu.RLock()
	if c.cached != nil && c.expiresAt.After(now) {
		cached := c.cached
		c.mu.RUnlock()
		return cached, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do("challenges", func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if c.cached != nil && c.expiresAt.After(now) {
			cached := c.cached
			c.mu.RUnlock()
			return cached, nil
		}
		c.mu.RUnlock()

		challenges, err := c.loader.LoadChallenges(ctx)
		if err != nil {
			return nil, err
		}
		prepared, err := PrepareChallenges(challenges)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.cached = prepared
		c.expiresAt = now.Add(c.ttlWithJitter())
		c.mu.Unlock()
		return prepared, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Challenge), nil
}

func (c *Catalog) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

// PrepareChallenges filters out inactive challenges, validates answer
// specs, and sorts by order index. Malformed patterns fail here, at load
// time, never at submission time.
func PrepareChallenges(challenges []domain.Challenge) ([]domain.Challenge, error) {
	active := make([]domain.Challenge, 0, len(challenges))
	for _, ch := range challenges {
		if !ch.Active {
			continue
		}
		if err := ch.Answer.Validate(); err != nil {
			return nil, err
		}
		active = append(active, ch)
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].OrderIndex < active[j].OrderIndex
	})
	return active, nil
}

// StaticCatalogLoader is a loader backed by an in-memory slice (useful for
// tests and demo mode).
type StaticCatalogLoader struct {
	challenges []domain.Challenge
}

func NewStaticCatalogLoader(challenges []domain.Challenge) *StaticCatalogLoader {
	return &StaticCatalogLoader{challenges: challenges}
}

func (l *StaticCatalogLoader) LoadChallenges(_ context.Context) ([]domain.Challenge, error) {
	out := make([]domain.Challenge, len(l.challenges))
	copy(out, l.challenges)
	return out, nil
}
