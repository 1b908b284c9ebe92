package core

import (
	"sync"

	"golang.org/x/sync/singleflight"

	"dmx-platform/backend/internal/model"
)

// TypeCache is the process-wide read-through cache of materialized types.
// Concurrent misses for the same URI share one load. A load that overlaps an
// invalidation of its URI is returned to its callers but not cached.
type TypeCache struct {
	mu       sync.RWMutex
	types    map[string]*model.TypeModel
	gens     map[string]uint64
	epoch    uint64
	group    singleflight.Group
	recorder Recorder
}

// NewTypeCache creates an empty cache
func NewTypeCache(recorder Recorder) *TypeCache {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &TypeCache{
		types:    make(map[string]*model.TypeModel),
		gens:     make(map[string]uint64),
		recorder: recorder,
	}
}

// Get returns the cached type or loads it. Callers receive a private copy.
func (c *TypeCache) Get(uri string, load func() (*model.TypeModel, error)) (*model.TypeModel, error) {
	c.mu.RLock()
	t, ok := c.types[uri]
	c.mu.RUnlock()
	if ok {
		c.recorder.TypeCacheHit()
		return t.Clone(), nil
	}

	c.recorder.TypeCacheMiss()
	v, err, _ := c.group.Do(uri, func() (interface{}, error) {
		c.mu.RLock()
		gen, epoch := c.gens[uri], c.epoch
		c.mu.RUnlock()

		t, err := load()
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.gens[uri] == gen && c.epoch == epoch {
			c.types[uri] = t
		}
		c.mu.Unlock()
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.TypeModel).Clone(), nil
}

// Invalidate drops the given types
func (c *TypeCache) Invalidate(uris ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, uri := range uris {
		delete(c.types, uri)
		c.gens[uri]++
		c.group.Forget(uri)
	}
}

// Clear drops every type
func (c *TypeCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for uri := range c.types {
		c.group.Forget(uri)
	}
	c.types = make(map[string]*model.TypeModel)
	c.epoch++
}

// Len returns the number of cached types
func (c *TypeCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.types)
}

// Contains reports whether uri is cached
func (c *TypeCache) Contains(uri string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.types[uri]
	return ok
}
