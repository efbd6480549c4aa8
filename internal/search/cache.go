package search

import (
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/webcrawl/webdex/internal/search/parser"
	"github.com/webcrawl/webdex/pkg/metrics"
)

// resultCache memoises query results in-process. Safe because the opened
// index is immutable: a cached result can never go stale within a process.
// Concurrent identical queries are collapsed to one evaluation via
// singleflight.
type resultCache struct {
	group   singleflight.Group
	mu      sync.Mutex
	entries map[string]*Result
	order   []string
	maxSize int
}

func newResultCache(maxSize int) *resultCache {
	return &resultCache{
		entries: make(map[string]*Result, maxSize),
		maxSize: maxSize,
	}
}

func cacheKey(rawQuery string, mode parser.Mode, topK int) string {
	return fmt.Sprintf("%s|%s|%d", rawQuery, mode, topK)
}

func (c *resultCache) get(key string, m *metrics.Metrics, eval func() (*Result, error)) (*Result, error) {
	c.mu.Lock()
	if cached, ok := c.entries[key]; ok {
		c.mu.Unlock()
		if m != nil {
			m.CacheHitsTotal.Inc()
		}
		return cached, nil
	}
	c.mu.Unlock()
	if m != nil {
		m.CacheMissesTotal.Inc()
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		result, err := eval()
		if err != nil {
			return nil, err
		}
		c.put(key, result)
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

// put inserts with FIFO eviction once the cache is full.
func (c *resultCache) put(key string, result *Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; ok {
		return
	}
	if len(c.entries) >= c.maxSize && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[key] = result
	c.order = append(c.order, key)
}
