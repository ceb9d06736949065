// Package cache is a weighted least recently used cache.
package cache

import (
	"container/list"
	"sync"

	"github.com/sirupsen/logrus"
)

// Cache holds values up to a total weight budget, evicting the least recently
// used entries first.
type Cache[V any] interface {
	// Insert adds or replaces the value for key.
	Insert(key string, value V, weight int)
	// Retrieve returns the value for key and marks it recently used.
	Retrieve(key string) (V, bool)
	Weight() int
	Budget() int
	Len() int
	Clear()
}

type entry[V any] struct {
	key    string
	value  V
	weight int
}

type cache[V any] struct {
	log *logrus.Entry

	mu      sync.Mutex
	order   *list.List
	entries map[string]*list.Element
	weight  int
	budget  int
}

// New returns an empty cache with the given weight budget.
func New[V any](name string, budget int) Cache[V] {
	return &cache[V]{
		log:     logrus.StandardLogger().WithFields(logrus.Fields{"type": "cache", "cache": name}),
		order:   list.New(),
		entries: make(map[string]*list.Element),
		budget:  budget,
	}
}

func (c *cache[V]) Insert(key string, value V, weight int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[key]; ok {
		c.remove(existing)
	}

	c.entries[key] = c.order.PushFront(&entry[V]{key: key, value: value, weight: weight})
	c.weight += weight

	for c.weight > c.budget && c.order.Len() > 0 {
		evicted := c.order.Back()
		c.remove(evicted)

		c.log.WithFields(logrus.Fields{
			"key":          evicted.Value.(*entry[V]).key,
			"spare_weight": c.budget - c.weight,
		}).Trace("evicted entry")
	}
}

func (c *cache[V]) Retrieve(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	element, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}

	c.order.MoveToFront(element)
	return element.Value.(*entry[V]).value, true
}

func (c *cache[V]) Weight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.weight
}

func (c *cache[V]) Budget() int {
	return c.budget
}

func (c *cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order.Init()
	c.entries = make(map[string]*list.Element)
	c.weight = 0
}

func (c *cache[V]) remove(element *list.Element) {
	e := element.Value.(*entry[V])
	c.order.Remove(element)
	delete(c.entries, e.key)
	c.weight -= e.weight
}
