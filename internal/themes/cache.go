package themes

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/codr1/orgthemes/internal/models"
)

const (
	DefaultCacheSize    = 50
	DefaultCacheTimeout = 5 * time.Minute
	cacheKeyPrefix      = "theme:"
)

// CacheEntry is a rendered theme snapshot.
type CacheEntry struct {
	Key        string
	Theme      models.Theme
	CSS        string
	DarkCSS    string
	InsertedAt time.Time
}

type CacheStats struct {
	Size      int           `json:"size"`
	MaxSize   int           `json:"maxSize"`
	TTL       time.Duration `json:"ttl"`
	Hits      uint64        `json:"hits"`
	Misses    uint64        `json:"misses"`
	Evictions uint64        `json:"evictions"`
	Expired   uint64        `json:"expired"`
	Keys      []string      `json:"keys"`
}

// cacheKeyInput is the subset of a theme that determines its generated CSS.
// Branding and layout are deliberately absent so changing them reuses cached CSS.
type cacheKeyInput struct {
	ID         string                           `json:"id"`
	Version    string                           `json:"version"`
	UpdatedAt  *time.Time                       `json:"updatedAt"`
	Colors     models.Colors                    `json:"colors"`
	Typography models.Typography                `json:"typography"`
	Components map[string]models.ComponentStyle `json:"components"`
}

// CacheKey derives a content hash from the CSS-relevant subset of theme.
// encoding/json sorts map keys, so structurally equal themes share a key.
func CacheKey(theme models.Theme) (string, error) {
	data, err := json.Marshal(cacheKeyInput{
		ID:         theme.ID,
		Version:    theme.Version,
		UpdatedAt:  theme.UpdatedAt,
		Colors:     theme.Colors,
		Typography: theme.Typography,
		Components: theme.Components,
	})
	if err != nil {
		return "", fmt.Errorf("derive cache key: %w", err)
	}
	sum := sha256.Sum256(data)
	return cacheKeyPrefix + hex.EncodeToString(sum[:16]), nil
}

// Cache is a bounded, TTL-expiring store of generated CSS. When full, the oldest
// inserted entry is evicted regardless of how recently it was read.
type Cache struct {
	mu      sync.Mutex
	clock   Clock
	maxSize int
	ttl     time.Duration
	entries map[string]*CacheEntry
	order   []string // insertion order, oldest first

	hits      uint64
	misses    uint64
	evictions uint64
	expired   uint64
}

func NewCache(maxSize int, ttl time.Duration, clock Clock) *Cache {
	if maxSize <= 0 {
		maxSize = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTimeout
	}
	if clock == nil {
		clock = realClock{}
	}
	return &Cache{
		clock:   clock,
		maxSize: maxSize,
		ttl:     ttl,
		entries: make(map[string]*CacheEntry),
	}
}

// Get returns the entry for key when present and not older than the TTL.
// Expired entries are removed on lookup.
func (c *Cache) Get(key string) (CacheEntry, bool) {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		return CacheEntry{}, false
	}
	if now.Sub(entry.InsertedAt) > c.ttl {
		c.remove(key)
		c.expired++
		c.misses++
		return CacheEntry{}, false
	}
	c.hits++
	out := *entry
	out.Theme = entry.Theme.Clone()
	return out, true
}

// Put stores a snapshot of theme with its CSS. Re-putting a key counts as a new insertion.
func (c *Cache) Put(key string, theme models.Theme, css, darkCSS string) {
	entry := &CacheEntry{
		Key:        key,
		Theme:      theme.Clone(),
		CSS:        css,
		DarkCSS:    darkCSS,
		InsertedAt: c.clock.Now(),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		c.remove(key)
	}
	c.entries[key] = entry
	c.order = append(c.order, key)
	for len(c.order) > c.maxSize {
		c.remove(c.order[0])
		c.evictions++
	}
}

// Invalidate drops every entry whose stored theme has the given id and returns how many were removed.
func (c *Cache) Invalidate(themeID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for _, key := range slices.Clone(c.order) {
		if c.entries[key].Theme.ID == themeID {
			c.remove(key)
			removed++
		}
	}
	return removed
}

// Sweep removes every expired entry and returns how many were removed.
func (c *Cache) Sweep() int {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for _, key := range slices.Clone(c.order) {
		if now.Sub(c.entries[key].InsertedAt) > c.ttl {
			c.remove(key)
			c.expired++
			removed++
		}
	}
	return removed
}

func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*CacheEntry)
	c.order = nil
}

func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return CacheStats{
		Size:      len(c.entries),
		MaxSize:   c.maxSize,
		TTL:       c.ttl,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Expired:   c.expired,
		Keys:      slices.Clone(c.order),
	}
}

// remove must be called with mu held.
func (c *Cache) remove(key string) {
	delete(c.entries, key)
	if i := slices.Index(c.order, key); i >= 0 {
		c.order = slices.Delete(c.order, i, i+1)
	}
}
