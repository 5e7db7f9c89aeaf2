package calc

import "log/slog"

// Cache memoizes parsed expressions by normalized formula text. When it is
// full the whole map is dropped before the next insert.
type Cache struct {
	max     int
	entries map[string]Expr
	logger  *slog.Logger
}

func newCache(max int, logger *slog.Logger) *Cache {
	return &Cache{max: max, entries: map[string]Expr{}, logger: logger}
}

// Get returns the cached expression for key.
func (c *Cache) Get(key string) (Expr, bool) {
	expr, ok := c.entries[key]
	return expr, ok
}

// Put stores expr under key, clearing the cache first if it is full.
func (c *Cache) Put(key string, expr Expr) {
	if _, ok := c.entries[key]; !ok && len(c.entries) >= c.max {
		c.Clear()
	}
	c.entries[key] = expr
}

// Clear drops all entries.
func (c *Cache) Clear() {
	if len(c.entries) > 0 {
		c.logger.Debug("expression cache cleared", "size", len(c.entries))
	}
	c.entries = map[string]Expr{}
}

// Len returns the number of cached expressions.
func (c *Cache) Len() int { return len(c.entries) }

// Cap returns the configured bound.
func (c *Cache) Cap() int { return c.max }
