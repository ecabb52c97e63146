// Package results keeps finished judge results around for token lookups.
package results

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/CodeDeck/codedeck_backend/types"
	"github.com/jonboulle/clockwork"
)

type entry struct {
	result  types.JudgeResult
	expires time.Time
}

// Cache maps judge tokens to finished results for a retention period.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]entry
	retention  time.Duration
	gcInterval time.Duration
	clock      clockwork.Clock
	hits       int64
	misses     int64
}

const minGCInterval = time.Millisecond

// NewCache keeps results for retention. gcInterval is raised to at least
// one millisecond.
func NewCache(retention, gcInterval time.Duration) *Cache {
	if gcInterval < minGCInterval {
		gcInterval = minGCInterval
	}
	return &Cache{
		entries:    make(map[string]entry),
		retention:  retention,
		gcInterval: gcInterval,
		clock:      clockwork.NewRealClock(),
	}
}

// Put stores a result if it has a token and is final.
func (c *Cache) Put(result types.JudgeResult) {
	if result.Token == "" || !result.Finished() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[result.Token] = entry{result: result, expires: c.clock.Now().Add(c.retention)}
}

// Get returns the cached result for token unless it has expired.
func (c *Cache) Get(token string) (types.JudgeResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, exists := c.entries[token]
	if !exists || c.clock.Now().After(e.expires) {
		c.misses++
		return types.JudgeResult{}, false
	}
	c.hits++
	return e.result, true
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// StartGC evicts expired entries until ctx is done. It blocks.
func (c *Cache) StartGC(ctx context.Context) {
	ticker := c.clock.NewTicker(c.gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			c.cleanup()
		}
	}
}

func (c *Cache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	for token, e := range c.entries {
		if now.After(e.expires) {
			delete(c.entries, token)
		}
	}
}

func (c *Cache) PartName() string {
	return "result_cache"
}

func (c *Cache) JSON() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, _ := json.MarshalIndent(map[string]any{
		"entries":           len(c.entries),
		"hits":              c.hits,
		"misses":            c.misses,
		"retention_seconds": c.retention.Seconds(),
	}, "", "  ")
	return b
}
