package fhirpath

import (
	"container/list"
	"sync"
	"time"
)

// ExpressionCache is a thread-safe, size-bounded LRU of compiled
// Expressions keyed by their exact source text. Embedding callers that
// evaluate the same handful of expressions against many resources should
// go through a cache (or EvaluateCached/the DefaultCache below) rather than
// calling Compile per resource.
type ExpressionCache struct {
	mu      sync.Mutex
	entries map[string]*list.Element // key -> element wrapping *cacheEntry
	order   *list.List               // front = most recently used
	limit   int
	hits    int64
	misses  int64
}

type cacheEntry struct {
	key      string
	expr     *Expression
	lastUsed time.Time
}

// CacheStats is a point-in-time snapshot of an ExpressionCache's
// occupancy and hit/miss counters.
type CacheStats struct {
	Size   int
	Limit  int
	Hits   int64
	Misses int64
}

// NewExpressionCache creates a cache holding at most limit compiled
// expressions; limit <= 0 means unbounded (no eviction ever runs).
func NewExpressionCache(limit int) *ExpressionCache {
	return &ExpressionCache{
		entries: make(map[string]*list.Element),
		order:   list.New(),
		limit:   limit,
	}
}

// Get returns the cached Expression for expr, compiling and inserting it on
// a miss. The mutex is released while compiling, so concurrent misses on
// the same expression may each compile it; only the first insert is kept.
func (c *ExpressionCache) Get(expr string) (*Expression, error) {
	c.mu.Lock()
	if el, ok := c.entries[expr]; ok {
		c.order.MoveToFront(el)
		el.Value.(*cacheEntry).lastUsed = time.Now()
		c.hits++
		compiled := el.Value.(*cacheEntry).expr
		c.mu.Unlock()
		return compiled, nil
	}
	c.mu.Unlock()

	compiled, err := Compile(expr)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another goroutine may have compiled and inserted expr while this one
	// held no lock; prefer its entry so the cache never holds two
	// *Expression instances for the same source.
	if el, ok := c.entries[expr]; ok {
		c.order.MoveToFront(el)
		el.Value.(*cacheEntry).lastUsed = time.Now()
		return el.Value.(*cacheEntry).expr, nil
	}

	c.misses++
	if c.limit > 0 && len(c.entries) >= c.limit {
		c.evictLRU()
	}

	el := c.order.PushFront(&cacheEntry{key: expr, expr: compiled, lastUsed: time.Now()})
	c.entries[expr] = el
	return compiled, nil
}

// evictLRU drops the least-recently-used entry. Caller must hold c.mu.
func (c *ExpressionCache) evictLRU() {
	oldest := c.order.Back()
	if oldest == nil {
		return
	}
	c.order.Remove(oldest)
	delete(c.entries, oldest.Value.(*cacheEntry).key)
}

// MustGet is Get but panics on a compile error; for call sites building a
// cache of expressions known at compile-time to be valid (e.g. constants).
func (c *ExpressionCache) MustGet(expr string) *Expression {
	compiled, err := c.Get(expr)
	if err != nil {
		panic(err)
	}
	return compiled
}

// Clear empties the cache and resets its hit/miss counters.
func (c *ExpressionCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order = list.New()
	c.hits, c.misses = 0, 0
}

func (c *ExpressionCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *ExpressionCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Size: len(c.entries), Limit: c.limit, Hits: c.hits, Misses: c.misses}
}

// HitRate is the cache's hit percentage (0-100); 0 when nothing has been
// requested yet.
func (c *ExpressionCache) HitRate() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := c.hits + c.misses
	if total == 0 {
		return 0
	}
	return float64(c.hits) / float64(total) * 100
}

// DefaultCache backs the package-level GetCached/EvaluateCached helpers.
// Construct a dedicated ExpressionCache instead when a caller needs its own
// size limit or wants to avoid sharing state with other callers of this
// package in the same process.
var DefaultCache = NewExpressionCache(1000)

func GetCached(expr string) (*Expression, error) {
	return DefaultCache.Get(expr)
}

func MustGetCached(expr string) *Expression {
	return DefaultCache.MustGet(expr)
}

// EvaluateCached compiles expr through DefaultCache and evaluates it
// against resource — the recommended entry point for any caller that
// re-evaluates the same expression text across many resources.
func EvaluateCached(resource []byte, expr string) (Collection, error) {
	compiled, err := DefaultCache.Get(expr)
	if err != nil {
		return nil, err
	}
	return compiled.Evaluate(resource)
}
