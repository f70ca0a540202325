package icon

import (
	"sort"
	"time"
)

// evictFraction is the share of MaxEntries dropped when the cache overflows.
const evictFraction = 0.2

// Entry is one cached icon for a source URL.
type Entry struct {
	Key          string
	Icon         Ref
	ResolvedAt   time.Time // last successful resolution, extension or default assignment
	LastAccessed time.Time
}

// entries is the bounded in-memory entry set. It is not safe for
// concurrent use; Service serializes access.
type entries struct {
	items map[string]*Entry
	limit int
}

func newEntries(limit int) *entries {
	return &entries{items: make(map[string]*Entry), limit: limit}
}

func (c *entries) get(key string) (*Entry, bool) {
	e, ok := c.items[key]
	return e, ok
}

// put inserts or replaces the entry for e.Key, keeping ResolvedAt from
// moving backwards. It returns the number of entries evicted to stay
// within limit.
func (c *entries) put(e Entry) int {
	if prev, ok := c.items[e.Key]; ok && prev.ResolvedAt.After(e.ResolvedAt) {
		e.ResolvedAt = prev.ResolvedAt
	}
	c.items[e.Key] = &e

	if c.limit > 0 && len(c.items) > c.limit {
		return c.evict()
	}
	return 0
}

func (c *entries) delete(key string) {
	delete(c.items, key)
}

func (c *entries) size() int {
	return len(c.items)
}

func (c *entries) reset() {
	c.items = make(map[string]*Entry)
}

// evict drops the least recently accessed fifth of the limit.
func (c *entries) evict() int {
	n := int(float64(c.limit) * evictFraction)
	if n < 1 {
		n = 1
	}

	ranked := c.sorted(func(a, b *Entry) bool {
		if a.LastAccessed.Equal(b.LastAccessed) {
			return a.Key < b.Key
		}
		return a.LastAccessed.Before(b.LastAccessed)
	})
	if n > len(ranked) {
		n = len(ranked)
	}
	for _, e := range ranked[:n] {
		delete(c.items, e.Key)
	}
	return n
}

// sorted returns the entries ordered by less.
func (c *entries) sorted(less func(a, b *Entry) bool) []*Entry {
	list := make([]*Entry, 0, len(c.items))
	for _, e := range c.items {
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool { return less(list[i], list[j]) })
	return list
}

// snapshot returns copies of all entries ordered by key.
func (c *entries) snapshot() []Entry {
	ranked := c.sorted(func(a, b *Entry) bool { return a.Key < b.Key })
	out := make([]Entry, len(ranked))
	for i, e := range ranked {
		out[i] = *e
	}
	return out
}
