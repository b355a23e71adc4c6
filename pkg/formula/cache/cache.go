// Package cache keeps parsed expressions so repeated sources skip lexing and
// parsing.
//
// Entries are keyed by the source with leading and trailing whitespace
// trimmed and nothing else normalized. Cached trees are immutable and carry
// no evaluation state, so one tree serves every caller and every context.
package cache

import (
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"mercator-hq/formula/pkg/formula/ast"
)

// DefaultCapacity is the default number of cached expressions.
const DefaultCapacity = 1024

// Config controls the cache.
type Config struct {
	// Capacity is the maximum number of entries. <= 0 disables caching.
	Capacity int

	// OnEvict is called with the key of each entry evicted for capacity.
	OnEvict func(key string)

	// Logger receives debug logs for evictions. Default: slog.Default().
	Logger *slog.Logger
}

// Entry is a cached parse result.
type Entry struct {
	Key       string
	Root      ast.Node
	CreatedAt time.Time

	hits atomic.Int64
}

// Hits returns how many lookups this entry has served.
func (e *Entry) Hits() int64 {
	return e.hits.Load()
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Size      int   `json:"size"`
	Capacity  int   `json:"capacity"`
}

// HitRate returns hits / (hits + misses), or 0 before any lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Cache is a bounded LRU of parsed expressions, safe for concurrent use.
type Cache struct {
	lru      *lru.Cache
	capacity int
	onEvict  func(key string)
	logger   *slog.Logger
	now      func() time.Time

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
	purging   atomic.Bool
}

// New creates a cache. A non-positive capacity returns a disabled cache
// that stores nothing and reports every lookup as a miss.
func New(config Config) (*Cache, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Cache{
		capacity: config.Capacity,
		onEvict:  config.OnEvict,
		logger:   logger.With("component", "formula.cache"),
		now:      time.Now,
	}
	if config.Capacity <= 0 {
		c.capacity = 0
		return c, nil
	}

	l, err := lru.NewWithEvict(config.Capacity, c.evicted)
	if err != nil {
		return nil, err
	}
	c.lru = l
	return c, nil
}

// Normalize returns the cache key for src.
func Normalize(src string) string {
	return strings.TrimSpace(src)
}

// Enabled reports whether the cache stores entries.
func (c *Cache) Enabled() bool {
	return c.lru != nil
}

// Capacity returns the configured maximum number of entries.
func (c *Cache) Capacity() int {
	return c.capacity
}

// Get returns the cached tree for src and marks it recently used.
func (c *Cache) Get(src string) (ast.Node, bool) {
	if c.lru == nil {
		c.misses.Add(1)
		return nil, false
	}

	v, ok := c.lru.Get(Normalize(src))
	if !ok {
		c.misses.Add(1)
		return nil, false
	}

	entry := v.(*Entry)
	entry.hits.Add(1)
	c.hits.Add(1)
	return entry.Root, true
}

// Add stores root under src unless an entry already exists, and returns the
// tree that is now cached. Concurrent misses on the same source therefore
// converge on one tree.
func (c *Cache) Add(src string, root ast.Node) ast.Node {
	if c.lru == nil || root == nil {
		return root
	}

	key := Normalize(src)
	entry := &Entry{Key: key, Root: root, CreatedAt: c.now()}
	if prev, ok, _ := c.lru.PeekOrAdd(key, entry); ok {
		return prev.(*Entry).Root
	}
	return root
}

// Entry returns the entry for src without touching recency or counters.
func (c *Cache) Entry(src string) (*Entry, bool) {
	if c.lru == nil {
		return nil, false
	}
	v, ok := c.lru.Peek(Normalize(src))
	if !ok {
		return nil, false
	}
	return v.(*Entry), true
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	if c.lru == nil {
		return 0
	}
	return c.lru.Len()
}

// Purge removes every entry. Purged entries are not counted as evictions.
func (c *Cache) Purge() {
	if c.lru == nil {
		return
	}
	c.purging.Store(true)
	c.lru.Purge()
	c.purging.Store(false)
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Size:      c.Len(),
		Capacity:  c.capacity,
	}
}

func (c *Cache) evicted(key, value any) {
	if c.purging.Load() {
		return
	}
	c.evictions.Add(1)

	k, _ := key.(string)
	if entry, ok := value.(*Entry); ok {
		c.logger.Debug("expression evicted",
			"key_length", len(k),
			"hits", entry.Hits(),
			"age", c.now().Sub(entry.CreatedAt),
		)
	}
	if c.onEvict != nil {
		c.onEvict(k)
	}
}
