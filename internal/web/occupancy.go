package web

import (
	"context"
	"sync"
	"time"
)

// Occupancy does not need sub-minute precision; a short TTL keeps the upstream
// from being hit on every page view.
const occupancyCacheTTL = 30 * time.Second

// occupancyEntry holds the last known percentage and its timestamp.
type occupancyEntry struct {
	percent   float64
	updatedAt time.Time
}

// occupancyCache is a small in-memory cache keyed by occupancy id.
type occupancyCache struct {
	ttl time.Duration

	mu      sync.RWMutex
	entries map[int]occupancyEntry
}

func newOccupancyCache(ttl time.Duration) *occupancyCache {
	return &occupancyCache{ttl: ttl, entries: make(map[int]occupancyEntry)}
}

// get returns a cached value younger than the TTL, or reads a fresh one.
// Failures are not cached.
func (c *occupancyCache) get(ctx context.Context, r OccupancyReader, mdoID int, now time.Time) (float64, error) {
	c.mu.RLock()
	e, ok := c.entries[mdoID]
	c.mu.RUnlock()
	if ok && now.Sub(e.updatedAt) < c.ttl {
		return e.percent, nil
	}

	pct, err := r.Occupancy(ctx, mdoID)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.entries[mdoID] = occupancyEntry{percent: pct, updatedAt: now}
	c.mu.Unlock()
	return pct, nil
}
