package introspect

import (
	"context"
	"sync"
)

// Cache memoizes column lists for the process lifetime so repeated
// compilations do not pay a catalog round trip per query. Reads are
// lock-cheap since many requests hit the cache concurrently; Invalidate is
// the hook schema migrations call to restore correctness after a change.
type Cache struct {
	mu     sync.RWMutex
	source Lister
	tables map[string][]string
}

// NewCache wraps a Lister with process-lifetime memoization.
func NewCache(source Lister) *Cache {
	return &Cache{
		source: source,
		tables: make(map[string][]string),
	}
}

// Columns returns the cached column list, fetching it from the underlying
// catalog on first use. Callers must not modify the returned slice.
func (c *Cache) Columns(ctx context.Context, table string) ([]string, error) {
	c.mu.RLock()
	columns, ok := c.tables[table]
	c.mu.RUnlock()
	if ok {
		return columns, nil
	}

	columns, err := c.source.Columns(ctx, table)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.tables[table] = columns
	c.mu.Unlock()
	return columns, nil
}

// Invalidate drops the cached columns for one table.
func (c *Cache) Invalidate(table string) {
	c.mu.Lock()
	delete(c.tables, table)
	c.mu.Unlock()
}

// InvalidateAll drops every cached table.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.tables = make(map[string][]string)
	c.mu.Unlock()
}
