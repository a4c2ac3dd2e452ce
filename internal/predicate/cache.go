package predicate

import (
	"sync"

	"archguard/internal/graph"
)

// Cache memoises selections per predicate description for a single graph.
// It is safe for use by concurrently evaluated rules.
type Cache struct {
	g  *graph.Graph
	mu sync.Mutex
	m  map[string][]*graph.Symbol

	hits, misses int
}

func NewCache(g *graph.Graph) *Cache {
	return &Cache{g: g, m: make(map[string][]*graph.Symbol)}
}

// Select behaves like the package-level Select but reuses earlier results for an equal description.
func (c *Cache) Select(p Predicate) []*graph.Symbol {
	c.mu.Lock()
	if syms, ok := c.m[p.desc]; ok {
		c.hits++
		c.mu.Unlock()
		return syms
	}
	c.misses++
	c.mu.Unlock()

	syms := Select(c.g, p)

	c.mu.Lock()
	c.m[p.desc] = syms
	c.mu.Unlock()
	return syms
}

// Graph returns the graph the cache selects from.
func (c *Cache) Graph() *graph.Graph { return c.g }

// Stats returns hit and miss counters.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
