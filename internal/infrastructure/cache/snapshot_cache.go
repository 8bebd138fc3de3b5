// Package cache keeps the latest portfolio snapshot in memory.
package cache

import (
	"sync"
	"time"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
)

// DefaultTTL is how long a snapshot is served before a refresh is required.
const DefaultTTL = 5 * time.Minute

// SnapshotCache is a single-slot, last-writer-wins holder for the latest snapshot.
type SnapshotCache struct {
	mu   sync.RWMutex
	snap entity.Snapshot
	set  bool
	ttl  time.Duration
	now  func() time.Time
}

// NewSnapshotCache creates an empty cache. ttl <= 0 uses DefaultTTL; now == nil uses time.Now.
func NewSnapshotCache(ttl time.Duration, now func() time.Time) port.SnapshotCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &SnapshotCache{ttl: ttl, now: now}
}

// Fresh implements port.SnapshotCache.
func (c *SnapshotCache) Fresh() (entity.Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.set {
		return entity.Snapshot{}, false
	}
	if c.now().Sub(c.snap.FetchedAt) >= c.ttl {
		return entity.Snapshot{}, false
	}
	return c.snap, true
}

// Store implements port.SnapshotCache.
func (c *SnapshotCache) Store(snap entity.Snapshot) entity.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap.FetchedAt = c.now()
	c.snap = snap
	c.set = true
	return snap
}
