package quiz

import (
	"fmt"
	"sync"
	"time"

	"github.com/victornm/satsquest/internal/domain"
)

// CacheKey groups quiz versions by the request shape.
func CacheKey(topic string, count int) string {
	return fmt.Sprintf("quiz-%s-%d", topic, count)
}

// cache holds up to maxVersions entries per key, newest first. Expired entries are swept lazily
// when their key is read.
type cache struct {
	mu          sync.Mutex
	maxVersions int
	entries     map[string][]domain.QuizCacheEntry
}

func newCache(maxVersions int) *cache {
	return &cache{
		maxVersions: maxVersions,
		entries:     make(map[string][]domain.QuizCacheEntry),
	}
}

// valid drops the expired entries of key and returns the remaining ones, newest first.
func (c *cache) valid(key string, now time.Time) []domain.QuizCacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	es := c.entries[key]
	kept := es[:0]
	for _, e := range es {
		if !e.Expired(now) {
			kept = append(kept, e)
		}
	}

	if len(kept) == 0 {
		delete(c.entries, key)
		return nil
	}

	c.entries[key] = kept
	return append([]domain.QuizCacheEntry(nil), kept...)
}

// newest returns the most recently fetched valid entry of key.
func (c *cache) newest(key string, now time.Time) (domain.QuizCacheEntry, bool) {
	es := c.valid(key, now)
	if len(es) == 0 {
		return domain.QuizCacheEntry{}, false
	}

	return es[0], true
}

// insert puts e in front of key's versions, evicts the oldest beyond maxVersions and returns the number of versions kept.
func (c *cache) insert(key string, e domain.QuizCacheEntry) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	es := append([]domain.QuizCacheEntry{e}, c.entries[key]...)
	if len(es) > c.maxVersions {
		es = es[:c.maxVersions]
	}

	c.entries[key] = es
	return len(es)
}
