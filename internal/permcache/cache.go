// Package permcache provides a TTL+LRU cache of authorization decisions.
//
// The cache is process-wide state with an explicit lifecycle: construct it
// once at startup, inject it into callers, Start the background sweep, and
// Stop it on shutdown. It never panics or returns errors to the caller;
// anything inconsistent inside is logged and reported as a miss.
package permcache

import (
	"container/list"
	"log/slog"
	"sync"
	"time"
)

// Defaults per the cache contract.
const (
	DefaultTTL           = 60 * time.Second
	DefaultMaxSize       = 1000
	DefaultSweepInterval = 30 * time.Second

	// sweepScanLimit bounds how many entries one sweep iteration examines
	// so the sweep never starves foreground lookups.
	sweepScanLimit = 256
)

// Decision is the cached outcome of a policy evaluation.
type Decision struct {
	Allowed       bool   `json:"allowed"`
	NeedsApproval bool   `json:"needs_approval"`
	Reason        string `json:"reason"`
	Level         string `json:"level"`
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits          uint64
	Misses        uint64
	Evictions     uint64
	Invalidations uint64
	Size          int
}

// HitRate returns hits/(hits+misses) as a percentage, 0 with no traffic.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

type entry struct {
	agentID    string
	actionType string
	decision   Decision
	cachedAt   time.Time
	elem       *list.Element
}

// Cache is a thread-safe decision cache with absolute TTL and LRU eviction.
type Cache struct {
	mu      sync.Mutex
	byAgent map[string]map[string]*entry
	lru     *list.List // front = most recently used; values are *entry
	size    int

	ttl     time.Duration
	maxSize int

	hits          uint64
	misses        uint64
	evictions     uint64
	invalidations uint64

	now func() time.Time

	sweepInterval time.Duration
	stopSweep     chan struct{}
	sweepDone     chan struct{}
}

// Option adjusts cache construction.
type Option func(*Cache)

// WithTTL overrides the default entry TTL.
func WithTTL(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// WithMaxSize overrides the default capacity.
func WithMaxSize(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.maxSize = n
		}
	}
}

// WithSweepInterval overrides the background sweep cadence.
func WithSweepInterval(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.sweepInterval = d
		}
	}
}

// New creates a cache. The background sweep does not run until Start.
func New(opts ...Option) *Cache {
	c := &Cache{
		byAgent:       make(map[string]map[string]*entry),
		lru:           list.New(),
		ttl:           DefaultTTL,
		maxSize:       DefaultMaxSize,
		sweepInterval: DefaultSweepInterval,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached decision for (agentID, actionType). The second
// return is false on a miss, including expired or inconsistent entries.
func (c *Cache) Get(agentID, actionType string) (Decision, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.lookup(agentID, actionType)
	if e == nil {
		c.misses++
		return Decision{}, false
	}
	if e.cachedAt.IsZero() {
		// Should be unreachable; treat as a miss rather than trusting it.
		slog.Warn("Cache entry missing timestamp, dropping", "agent", agentID, "action", actionType)
		c.remove(e)
		c.misses++
		return Decision{}, false
	}
	if c.now().Sub(e.cachedAt) > c.ttl {
		c.remove(e)
		c.evictions++
		c.misses++
		return Decision{}, false
	}

	c.lru.MoveToFront(e.elem)
	c.hits++
	return e.decision, true
}

// Set stores a decision, overwriting any previous entry for the key and
// evicting the least-recently-used entry when at capacity.
func (c *Cache) Set(agentID, actionType string, d Decision) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e := c.lookup(agentID, actionType); e != nil {
		e.decision = d
		e.cachedAt = c.now()
		c.lru.MoveToFront(e.elem)
		return
	}

	if c.size >= c.maxSize {
		if oldest := c.lru.Back(); oldest != nil {
			c.remove(oldest.Value.(*entry))
			c.evictions++
		}
	}

	e := &entry{
		agentID:    agentID,
		actionType: actionType,
		decision:   d,
		cachedAt:   c.now(),
	}
	e.elem = c.lru.PushFront(e)
	actions, ok := c.byAgent[agentID]
	if !ok {
		actions = make(map[string]*entry)
		c.byAgent[agentID] = actions
	}
	actions[actionType] = e
	c.size++
}

// Invalidate removes the single entry for (agentID, actionType).
func (c *Cache) Invalidate(agentID, actionType string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e := c.lookup(agentID, actionType); e != nil {
		c.remove(e)
		c.invalidations++
	}
}

// InvalidateAgent removes every entry belonging to agentID. Used after a
// graduation transition so stale maturity decisions are not served.
func (c *Cache) InvalidateAgent(agentID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	actions := c.byAgent[agentID]
	for _, e := range actions {
		c.lru.Remove(e.elem)
		c.size--
		c.invalidations++
	}
	delete(c.byAgent, agentID)
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:          c.hits,
		Misses:        c.misses,
		Evictions:     c.evictions,
		Invalidations: c.invalidations,
		Size:          c.size,
	}
}

// lookup finds an entry without touching counters or LRU order.
// Caller must hold c.mu.
func (c *Cache) lookup(agentID, actionType string) *entry {
	actions := c.byAgent[agentID]
	if actions == nil {
		return nil
	}
	return actions[actionType]
}

// remove deletes an entry from both indexes. Caller must hold c.mu.
func (c *Cache) remove(e *entry) {
	c.lru.Remove(e.elem)
	if actions := c.byAgent[e.agentID]; actions != nil {
		delete(actions, e.actionType)
		if len(actions) == 0 {
			delete(c.byAgent, e.agentID)
		}
	}
	c.size--
}
