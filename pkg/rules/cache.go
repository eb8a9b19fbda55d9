package rules

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// ProgramCache stores compiled expression programs keyed by engine and
// expression.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// NewProgramCache returns an unbounded ProgramCache safe for concurrent use.
func NewProgramCache() ProgramCache {
	return &memoryCache{items: map[string]any{}}
}

type memoryCache struct {
	mu    sync.RWMutex
	items map[string]any
}

func (c *memoryCache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, ok := c.items[key]
	return value, ok
}

func (c *memoryCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
}

// loadOrCompile returns the cached program for key, compiling it at most once
// across concurrent callers on a miss.
func loadOrCompile[P any](cache ProgramCache, flight *singleflight.Group, key string, compile func() (P, error)) (P, error) {
	if cache != nil {
		if cached, ok := cache.Get(key); ok {
			if program, ok := cached.(P); ok {
				return program, nil
			}
		}
	}
	value, err, _ := flight.Do(key, func() (any, error) {
		program, err := compile()
		if err != nil {
			return nil, err
		}
		if cache != nil {
			cache.Set(key, program)
		}
		return program, nil
	})
	if err != nil {
		var zero P
		return zero, err
	}
	return value.(P), nil
}
