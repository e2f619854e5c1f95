// Package cache provides the in-memory, TTL-based response cache for
// text-only generation results.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"sync"

	"github.com/zimalabs/genflow/pkg/models"
)

// creationVerbs disqualify a prompt from caching: creation and modification
// requests are non-idempotent.
var creationVerbs = []string{
	"create", "generate", "make", "build",
	"update", "modify", "change", "edit",
}

// questionCues qualify a prompt for caching when it starts with one.
var questionCues = []string{
	"what", "how", "why", "explain", "list", "describe",
}

// Entry is one cached result with its lifetime bounds.
type Entry struct {
	Key       string
	Result    *models.GenerationResult
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Stats is a point-in-time snapshot of cache observability counters.
type Stats struct {
	Entries int     `json:"entries"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// Cache is a content-addressed store of prior successful text-only results.
// Entries and counters share one mutex so the reported hit rate is always
// consistent with entry reads.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]*Entry
	capacity int
	ttl      time.Duration

	hits   int64
	misses int64

	stopSweep chan struct{}
	sweepOnce sync.Once
}

// New creates a Cache with the given default TTL and capacity bound, and
// starts a background sweep that removes expired entries on the given
// interval. A non-positive interval disables the sweeper.
func New(ttl time.Duration, capacity int, sweepInterval time.Duration) *Cache {
	c := &Cache{
		entries:   make(map[string]*Entry),
		capacity:  capacity,
		ttl:       ttl,
		stopSweep: make(chan struct{}),
	}
	if sweepInterval > 0 {
		go c.sweepLoop(sweepInterval)
	}
	return c
}

// Key computes the deterministic cache key for a request: a hash of the
// trimmed, case-folded prompt concatenated with the filtered message count.
// Message content is intentionally not part of the key; two conversations
// with the same prompt and trailing-message count collide. Known
// limitation, preserved deliberately.
func Key(prompt string, messageCount int) string {
	normalized := strings.ToLower(strings.TrimSpace(prompt))
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", normalized, messageCount)))
	return hex.EncodeToString(sum[:])
}

// IsCacheable reports whether a prompt's result may be served from cache.
// Creation and modification verbs always disqualify; question cues and
// short prompts qualify.
func IsCacheable(prompt string) bool {
	lower := strings.ToLower(strings.TrimSpace(prompt))

	for _, verb := range creationVerbs {
		if strings.Contains(lower, verb) {
			return false
		}
	}
	for _, cue := range questionCues {
		if strings.HasPrefix(lower, cue) {
			return true
		}
	}
	return len(lower) < 100
}

// Get returns the cached result for a key, or nil on miss or expiry.
func (c *Cache) Get(key string) *models.GenerationResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok || time.Now().After(entry.ExpiresAt) {
		if ok {
			delete(c.entries, key)
		}
		c.misses++
		return nil
	}
	c.hits++
	return entry.Result
}

// Put stores a result under the key with the default TTL. Results that
// failed or produced generated files are never stored.
func (c *Cache) Put(key string, result *models.GenerationResult) {
	c.PutWithTTL(key, result, c.ttl)
}

// PutWithTTL stores a result with an explicit TTL.
func (c *Cache) PutWithTTL(key string, result *models.GenerationResult, ttl time.Duration) {
	if result == nil || !result.Success || len(result.Files) > 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capacity > 0 && len(c.entries) >= c.capacity {
		c.evictOldestLocked()
	}

	now := time.Now()
	c.entries[key] = &Entry{
		Key:       key,
		Result:    result,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// evictOldestLocked removes the oldest 10% of entries by creation time.
// Must be called with the mutex held.
func (c *Cache) evictOldestLocked() {
	n := len(c.entries) / 10
	if n < 1 {
		n = 1
	}

	all := make([]*Entry, 0, len(c.entries))
	for _, e := range c.entries {
		all = append(all, e)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	for i := 0; i < n && i < len(all); i++ {
		delete(c.entries, all[i].Key)
	}
	log.Printf("[cache] evicted %d oldest entries at capacity %d", n, c.capacity)
}

// sweepLoop removes expired entries on a fixed interval, independent of reads.
func (c *Cache) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Sweep()
		case <-c.stopSweep:
			return
		}
	}
}

// Sweep removes all expired entries now and returns how many were removed.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for key, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Stop terminates the background sweeper.
func (c *Cache) Stop() {
	c.sweepOnce.Do(func() {
		close(c.stopSweep)
	})
}

// Len returns the current number of entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a consistent snapshot of hit/miss counters and size.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Entries: len(c.entries),
		Hits:    c.hits,
		Misses:  c.misses,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}
