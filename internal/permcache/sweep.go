package permcache

import (
	"log/slog"
	"time"
)

// Start launches the background sweep goroutine. The sweep removes expired
// entries on a fixed interval regardless of get/set traffic, bounding
// memory under low query volume. Calling Start twice is a no-op.
func (c *Cache) Start() {
	c.mu.Lock()
	if c.stopSweep != nil {
		c.mu.Unlock()
		return
	}
	c.stopSweep = make(chan struct{})
	c.sweepDone = make(chan struct{})
	stop, done := c.stopSweep, c.sweepDone
	c.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(c.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				removed := c.sweepOnce()
				if removed > 0 {
					slog.Debug("Cache sweep removed expired entries", "count", removed)
				}
			}
		}
	}()
}

// Stop cancels the sweep goroutine and waits for it to exit.
// Safe to call without a prior Start.
func (c *Cache) Stop() {
	c.mu.Lock()
	stop, done := c.stopSweep, c.sweepDone
	c.stopSweep = nil
	c.sweepDone = nil
	c.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// sweepOnce scans a bounded slice of the LRU list from the cold end and
// removes entries past their TTL. The scan limit keeps lock hold time
// short so foreground lookups are never starved.
func (c *Cache) sweepOnce() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	cutoff := c.now().Add(-c.ttl)
	elem := c.lru.Back()
	for i := 0; i < sweepScanLimit && elem != nil; i++ {
		prev := elem.Prev()
		e := elem.Value.(*entry)
		if e.cachedAt.Before(cutoff) {
			c.remove(e)
			c.evictions++
			removed++
		}
		elem = prev
	}
	return removed
}
