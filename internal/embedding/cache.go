package embedding

import (
	"container/list"
	"sync"
)

// EmbeddingCache maps query or chunk text to its vector. It holds at most
// capacity entries and evicts the least recently used one on overflow.
// Cached slices are shared and must not be modified by callers.
type EmbeddingCache struct {
	mu       sync.Mutex
	capacity int
	index    map[string]*list.Element
	order    *list.List // front is most recently used

	hits, misses uint64
}

type cachedVector struct {
	text string
	vec  []float32
}

// NewEmbeddingCache creates a cache holding up to capacity vectors (minimum 1).
func NewEmbeddingCache(capacity int) *EmbeddingCache {
	if capacity < 1 {
		capacity = 1
	}
	return &EmbeddingCache{
		capacity: capacity,
		index:    make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
}

// Get returns the vector for text and marks it recently used.
func (c *EmbeddingCache) Get(text string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.index[text]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.order.MoveToFront(el)
	return el.Value.(*cachedVector).vec, true
}

// Set stores vec for text.
func (c *EmbeddingCache) Set(text string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.index[text]; ok {
		el.Value.(*cachedVector).vec = vec
		c.order.MoveToFront(el)
		return
	}
	c.index[text] = c.order.PushFront(&cachedVector{text: text, vec: vec})
	for c.order.Len() > c.capacity {
		c.evictOldest()
	}
}

func (c *EmbeddingCache) evictOldest() {
	el := c.order.Back()
	if el == nil {
		return
	}
	c.order.Remove(el)
	delete(c.index, el.Value.(*cachedVector).text)
}

// Len returns the number of cached vectors.
func (c *EmbeddingCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns lookup hits and misses since creation.
func (c *EmbeddingCache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
