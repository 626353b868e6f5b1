package cache

import (
	"context"
	"errors"
	"sync"

	"ctchen222/tictactoe-solver/internal/bot"
)

// MemoryCache keeps results in process memory.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]bot.Result
	limit   int
}

// NewMemoryCache creates a cache holding at most limit results. A limit of
// zero or less means unbounded.
func NewMemoryCache(limit int) *MemoryCache {
	return &MemoryCache{entries: make(map[string]bot.Result), limit: limit}
}

func (c *MemoryCache) Get(_ context.Context, key string) (bot.Result, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.entries[key]
	return r, ok, nil
}

// Set stores r. Once the cache is full new keys are dropped.
func (c *MemoryCache) Set(_ context.Context, key string, r bot.Result) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok && c.limit > 0 && len(c.entries) >= c.limit {
		return nil
	}
	c.entries[key] = r
	return nil
}

// Len returns the number of stored results.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Chain reads from each cache in order and writes to all of them.
type Chain []bot.ResultCache

func (ch Chain) Get(ctx context.Context, key string) (bot.Result, bool, error) {
	var errs []error
	for _, c := range ch {
		r, ok, err := c.Get(ctx, key)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			return r, true, nil
		}
	}
	return bot.Result{}, false, errors.Join(errs...)
}

func (ch Chain) Set(ctx context.Context, key string, r bot.Result) error {
	var errs []error
	for _, c := range ch {
		if err := c.Set(ctx, key, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
