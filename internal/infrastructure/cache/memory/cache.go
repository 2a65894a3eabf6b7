// Package memory is a process-local translation cache for tests and one-shot CLI runs.
package memory

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"sync"

	"github.com/kirillkom/docqa-assistant/internal/core/domain"
)

type Cache struct {
	mu      sync.RWMutex
	entries map[string]domain.TranslationCacheEntry
}

func New() *Cache {
	return &Cache{entries: make(map[string]domain.TranslationCacheEntry)}
}

func (c *Cache) Get(_ context.Context, key string) (*domain.TranslationCacheEntry, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	return &entry, true, nil
}

func (c *Cache) Put(_ context.Context, entry domain.TranslationCacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[entry.Key] = entry
	return nil
}

func (c *Cache) Clear(_ context.Context, pattern string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for key := range c.entries {
		if pattern == "" || strings.Contains(key, pattern) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed, nil
}

// Stats reports the JSON-encoded size so numbers line up with the file cache.
func (c *Cache) Stats(_ context.Context) (domain.CacheStats, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var total int64
	for _, entry := range c.entries {
		raw, err := json.Marshal(entry)
		if err != nil {
			continue
		}
		total += int64(len(raw))
	}
	return domain.CacheStats{
		TotalEntries:   len(c.entries),
		TotalSizeBytes: total,
		TotalSizeMB:    math.Round(float64(total)/(1024*1024)*100) / 100,
		Location:       "memory",
	}, nil
}
