// Package directory keeps an in-memory snapshot of configured webhook
// targets so the queue worker can resolve them without a database round
// trip per job.
package directory

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/zoff-tech/webhook-relay/pkg/store"
)

type snapshot map[string]store.Target

// Cache holds a periodically refreshed snapshot of the target directory.
// The snapshot is replaced wholesale on refresh, never mutated in place, so
// lookups are safe without locks.
type Cache struct {
	targets  store.TargetStore
	snapshot atomic.Pointer[snapshot]
}

func NewCache(targets store.TargetStore) *Cache {
	return &Cache{targets: targets}
}

// Refresh replaces the snapshot with the current full set of targets,
// active and inactive. On error the previous snapshot keeps serving.
func (c *Cache) Refresh(ctx context.Context) error {
	targets, err := c.targets.List(ctx)
	if err != nil {
		return err
	}

	next := make(snapshot, len(targets))
	for _, t := range targets {
		next[t.ID] = t
	}
	c.snapshot.Store(&next)
	return nil
}

// Resolve looks a target up in the latest snapshot.
func (c *Cache) Resolve(id string) (store.Target, bool) {
	snap := c.snapshot.Load()
	if snap == nil {
		return store.Target{}, false
	}
	target, ok := (*snap)[id]
	return target, ok
}

// Populated reports whether the cache has been refreshed at least once.
func (c *Cache) Populated() bool {
	return c.snapshot.Load() != nil
}

// Run refreshes the cache on a fixed timer until the context is canceled.
// A failed refresh is logged; the stale snapshot stays in service until the
// next successful one.
func (c *Cache) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Refresh(ctx); err != nil {
				log.Printf("Error refreshing target directory cache: %v", err)
			}
		}
	}
}
