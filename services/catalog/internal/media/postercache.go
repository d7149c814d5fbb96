package media

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// LookupFunc resolves one key to a URL; nil means absent.
type LookupFunc func(ctx context.Context, key string) (*string, error)

// PosterCache memoizes lookups for the lifetime of one aggregation call.
// Each key is resolved at most once, concurrent callers for the same key
// wait for the first. Failures are cached as nil.
type PosterCache struct {
	lookup LookupFunc
	log    *zap.Logger

	mu      sync.Mutex
	entries map[string]*posterEntry
	calls   int
}

type posterEntry struct {
	once sync.Once
	url  *string
}

func NewPosterCache(lookup LookupFunc, log *zap.Logger) *PosterCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &PosterCache{lookup: lookup, log: log, entries: make(map[string]*posterEntry)}
}

func (c *PosterCache) GetOrResolve(ctx context.Context, key string) *string {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		e = &posterEntry{}
		c.entries[key] = e
	}
	c.mu.Unlock()

	e.once.Do(func() {
		c.mu.Lock()
		c.calls++
		c.mu.Unlock()

		url, err := c.lookup(ctx, key)
		if err != nil {
			c.log.Warn("poster lookup failed", zap.String("key", key), zap.Error(err))
			return
		}
		e.url = url
	})
	return e.url
}

// Calls is the number of lookups actually issued.
func (c *PosterCache) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Snapshot copies the resolved values. Call it after all GetOrResolve
// calls have returned.
func (c *PosterCache) Snapshot() map[string]*string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]*string, len(c.entries))
	for k, e := range c.entries {
		out[k] = e.url
	}
	return out
}
