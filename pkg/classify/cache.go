package classify

import (
	"sync"

	"github.com/mitchellh/hashstructure"
)

// cacheKey is hashed to a stable cache key for one SAT check: the exact
// formula text plus the model version/name it was checked against, per
// SPEC_FULL §10's "stable cache/dedupe key for a proved formula + model
// version" note. Two escalation runs against an unchanged model can
// therefore skip re-solving an identical formula, which the globality
// pass's per-arch re-derivation makes common.
type cacheKey struct {
	Formula      string
	ModelVersion string
}

// ResultCache memoizes escalation-step SAT results. A nil *ResultCache is
// valid everywhere it is accepted and simply disables caching.
type ResultCache struct {
	mu    sync.Mutex
	cache map[uint64]bool
}

// NewResultCache returns an empty ResultCache.
func NewResultCache() *ResultCache {
	return &ResultCache{cache: make(map[uint64]bool)}
}

func (c *ResultCache) key(formula, modelVersion string) (uint64, error) {
	return hashstructure.Hash(cacheKey{Formula: formula, ModelVersion: modelVersion}, nil)
}

// Get returns a cached SAT result for formula under modelVersion.
func (c *ResultCache) Get(formula, modelVersion string) (bool, bool) {
	if c == nil {
		return false, false
	}
	h, err := c.key(formula, modelVersion)
	if err != nil {
		return false, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.cache[h]
	return v, ok
}

// Put records a SAT result for reuse.
func (c *ResultCache) Put(formula, modelVersion string, sat bool) {
	if c == nil {
		return
	}
	h, err := c.key(formula, modelVersion)
	if err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[h] = sat
}

// Len reports the number of memoized results, mainly for tests and
// diagnostics.
func (c *ResultCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}
