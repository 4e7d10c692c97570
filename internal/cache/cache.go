package cache

import "sync"

// LRU is a bounded least-recently-used map.
type LRU[K comparable, V any] struct {
	mu       sync.Mutex
	entries  map[K]*node[K, V]
	order    list[K, V]
	capacity int
	onEvict  func(K, V)

	hits, misses, evictions uint64
}

// New creates an LRU holding at most capacity entries. A capacity of 0
// is unlimited. onEvict, if not nil, receives every entry removed by
// eviction, Delete or Purge; it runs without the cache lock held.
func New[K comparable, V any](capacity int, onEvict func(K, V)) *LRU[K, V] {
	return &LRU[K, V]{
		entries:  make(map[K]*node[K, V]),
		capacity: capacity,
		onEvict:  onEvict,
	}
}

// Get returns the value for key and marks it recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.entries[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	c.hits++
	c.order.touch(n)
	return n.value, true
}

// Set stores value under key, replacing and evicting as needed.
func (c *LRU[K, V]) Set(key K, value V) {
	c.mu.Lock()
	dropped := c.setLocked(key, value)
	c.mu.Unlock()
	c.evict(dropped)
}

// GetOrLoad returns the cached value for key or stores the result of load.
// load runs under the cache lock, so concurrent callers never load the
// same key twice. A load error is returned and nothing is stored.
func (c *LRU[K, V]) GetOrLoad(key K, load func() (V, error)) (V, error) {
	c.mu.Lock()
	if n, ok := c.entries[key]; ok {
		c.hits++
		c.order.touch(n)
		c.mu.Unlock()
		return n.value, nil
	}
	c.misses++

	value, err := load()
	if err != nil {
		c.mu.Unlock()
		var zero V
		return zero, err
	}
	dropped := c.setLocked(key, value)
	c.mu.Unlock()

	c.evict(dropped)
	return value, nil
}

// Delete removes key. It reports whether the key was present.
func (c *LRU[K, V]) Delete(key K) bool {
	c.mu.Lock()
	n, ok := c.entries[key]
	if ok {
		delete(c.entries, key)
		c.order.unlink(n)
	}
	c.mu.Unlock()

	if ok {
		c.evict([]*node[K, V]{n})
	}
	return ok
}

// Purge removes every entry.
func (c *LRU[K, V]) Purge() {
	c.mu.Lock()
	dropped := make([]*node[K, V], 0, len(c.entries))
	for n := c.order.head; n != nil; n = n.next {
		dropped = append(dropped, n)
	}
	c.entries = make(map[K]*node[K, V])
	c.order = list[K, V]{}
	c.mu.Unlock()

	c.evict(dropped)
}

// Len returns the number of entries.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns usage counters.
func (c *LRU[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Len:       len(c.entries),
		Capacity:  c.capacity,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

// setLocked inserts or replaces key and returns the nodes pushed out.
// Caller must hold c.mu.
func (c *LRU[K, V]) setLocked(key K, value V) []*node[K, V] {
	var dropped []*node[K, V]
	if n, ok := c.entries[key]; ok {
		old := *n
		n.value = value
		c.order.touch(n)
		dropped = append(dropped, &old)
		return dropped
	}

	n := &node[K, V]{key: key, value: value}
	c.entries[key] = n
	c.order.pushFront(n)

	for c.capacity > 0 && c.order.len > c.capacity {
		oldest := c.order.tail
		c.order.unlink(oldest)
		delete(c.entries, oldest.key)
		c.evictions++
		dropped = append(dropped, oldest)
	}
	return dropped
}

func (c *LRU[K, V]) evict(nodes []*node[K, V]) {
	if c.onEvict == nil {
		return
	}
	for _, n := range nodes {
		c.onEvict(n.key, n.value)
	}
}

// Stats contains cache counters.
type Stats struct {
	Len       int
	Capacity  int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// HitRate returns hits / (hits + misses), or 0 before any lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
