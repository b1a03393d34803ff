// Package snapshot caches computed risk snapshots per org so dashboard reads
// do not rerun the engine on every request.
package snapshot

import (
	"context"
	"log"
	"sync"
	"time"

	"teampulse/internal/risk"
)

type ComputeFunc func(ctx context.Context, orgID string) risk.Snapshot

type entry struct {
	snap  risk.Snapshot
	valid bool
	// gen increments on every invalidation; an async recompute only stores
	// its result when no newer invalidation landed in the meantime.
	gen uint64
}

type Cache struct {
	compute ComputeFunc
	log     *log.Logger

	mu      sync.Mutex
	entries map[string]*entry
}

func NewCache(compute ComputeFunc, logger *log.Logger) *Cache {
	return &Cache{
		compute: compute,
		log:     logger,
		entries: map[string]*entry{},
	}
}

// Get returns the cached snapshot for an org, computing one synchronously
// when none is valid.
func (c *Cache) Get(ctx context.Context, orgID string) risk.Snapshot {
	c.mu.Lock()
	e, ok := c.entries[orgID]
	if ok && e.valid {
		snap := e.snap
		c.mu.Unlock()
		return snap
	}
	var gen uint64
	if ok {
		gen = e.gen
	}
	c.mu.Unlock()

	snap := c.compute(ctx, orgID)
	c.store(orgID, gen, snap)
	return snap
}

// Invalidate marks an org's snapshot stale and kicks off a background
// recompute so the next Get usually hits a fresh entry.
func (c *Cache) Invalidate(orgID string) {
	c.mu.Lock()
	e, ok := c.entries[orgID]
	if !ok {
		e = &entry{}
		c.entries[orgID] = e
	}
	e.valid = false
	e.gen++
	gen := e.gen
	c.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		snap := c.compute(ctx, orgID)
		c.store(orgID, gen, snap)
	}()
}

// store installs a computed snapshot unless a newer invalidation superseded
// the computation that produced it.
func (c *Cache) store(orgID string, gen uint64, snap risk.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[orgID]
	if !ok {
		e = &entry{}
		c.entries[orgID] = e
	}
	if e.gen != gen {
		return
	}
	e.snap = snap
	e.valid = true
}

// Run refreshes every known org on a fixed interval until the context ends.
func (c *Cache) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			orgs := make([]string, 0, len(c.entries))
			for orgID := range c.entries {
				orgs = append(orgs, orgID)
			}
			c.mu.Unlock()
			for _, orgID := range orgs {
				c.Invalidate(orgID)
			}
			if c.log != nil && len(orgs) > 0 {
				c.log.Printf("snapshot cache refreshed %d org(s)", len(orgs))
			}
		}
	}
}
