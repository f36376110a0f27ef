package themes

import (
	"strings"
	"testing"
	"time"
)

func TestCacheKey(t *testing.T) {
	theme := themeWithID("acme", "#ff0000")

	key, err := CacheKey(theme)
	if err != nil {
		t.Fatalf("CacheKey() error = %v", err)
	}
	if !strings.HasPrefix(key, "theme:") || len(key) != len("theme:")+32 {
		t.Fatalf("unexpected key format %q", key)
	}

	cloneKey, err := CacheKey(theme.Clone())
	if err != nil {
		t.Fatalf("CacheKey() error = %v", err)
	}
	if cloneKey != key {
		t.Fatalf("structurally equal themes produced different keys: %q vs %q", key, cloneKey)
	}

	rebranded := theme.Clone()
	rebranded.Branding.Logo = "/static/img/other.svg"
	rebranded.Layout.SidebarWidth = "20rem"
	if got, _ := CacheKey(rebranded); got != key {
		t.Fatalf("branding and layout should not affect the key")
	}

	recolored := theme.Clone()
	recolored.Colors.Text.Primary = "#000000"
	if got, _ := CacheKey(recolored); got == key {
		t.Fatalf("color change should change the key")
	}

	touched := theme.Clone()
	updated := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	touched.UpdatedAt = &updated
	if got, _ := CacheKey(touched); got == key {
		t.Fatalf("updatedAt change should change the key")
	}
}

func TestCache_TTL(t *testing.T) {
	clock := newMockClock()
	cache := NewCache(10, time.Minute, clock)
	cache.Put("k", themeWithID("a", "#ff0000"), "css", "")

	clock.Advance(time.Minute)
	if _, ok := cache.Get("k"); !ok {
		t.Fatalf("entry exactly at the TTL should still hit")
	}

	clock.Advance(time.Millisecond)
	if _, ok := cache.Get("k"); ok {
		t.Fatalf("entry past the TTL should miss")
	}
	stats := cache.Stats()
	if stats.Size != 0 {
		t.Fatalf("expired entry should be removed, size = %d", stats.Size)
	}
	if stats.Expired != 1 || stats.Hits != 1 || stats.Misses != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestCache_EvictsOldestInsertion(t *testing.T) {
	clock := newMockClock()
	cache := NewCache(3, time.Hour, clock)

	for _, key := range []string{"k1", "k2", "k3"} {
		cache.Put(key, themeWithID(key, "#ff0000"), key, "")
		clock.Advance(time.Second)
	}
	// Reads do not refresh an entry's position.
	if _, ok := cache.Get("k1"); !ok {
		t.Fatalf("k1 should be cached")
	}
	cache.Put("k4", themeWithID("k4", "#ff0000"), "k4", "")

	stats := cache.Stats()
	if stats.Size != 3 {
		t.Fatalf("size = %d, want 3", stats.Size)
	}
	if _, ok := cache.Get("k1"); ok {
		t.Fatalf("oldest entry k1 should have been evicted")
	}
	if stats.Evictions != 1 {
		t.Fatalf("evictions = %d, want 1", stats.Evictions)
	}
}

func TestCache_RePutIsNewInsertion(t *testing.T) {
	cache := NewCache(3, time.Hour, newMockClock())
	for _, key := range []string{"k1", "k2", "k3"} {
		cache.Put(key, themeWithID(key, "#ff0000"), key, "")
	}
	cache.Put("k1", themeWithID("k1", "#ff0000"), "k1-again", "")
	cache.Put("k4", themeWithID("k4", "#ff0000"), "k4", "")

	if _, ok := cache.Get("k2"); ok {
		t.Fatalf("k2 should be the oldest insertion and evicted")
	}
	entry, ok := cache.Get("k1")
	if !ok || entry.CSS != "k1-again" {
		t.Fatalf("k1 = %+v, %v; want refreshed entry", entry, ok)
	}
	if got := cache.Stats().Keys; strings.Join(got, ",") != "k3,k1,k4" {
		t.Fatalf("insertion order = %v", got)
	}
}

func TestCache_InvalidateSweepClear(t *testing.T) {
	clock := newMockClock()
	cache := NewCache(10, time.Minute, clock)

	cache.Put("a1", themeWithID("a", "#ff0000"), "a1", "")
	cache.Put("a2", themeWithID("a", "#00ff00"), "a2", "")
	cache.Put("b1", themeWithID("b", "#0000ff"), "b1", "")

	if removed := cache.Invalidate("a"); removed != 2 {
		t.Fatalf("Invalidate() removed %d, want 2", removed)
	}
	if removed := cache.Invalidate("missing"); removed != 0 {
		t.Fatalf("Invalidate() of unknown id removed %d", removed)
	}

	clock.Advance(30 * time.Second)
	cache.Put("c1", themeWithID("c", "#ffffff"), "c1", "")
	clock.Advance(31 * time.Second)
	if removed := cache.Sweep(); removed != 1 {
		t.Fatalf("Sweep() removed %d, want 1", removed)
	}
	if _, ok := cache.Get("c1"); !ok {
		t.Fatalf("fresh entry should survive the sweep")
	}

	cache.Clear()
	if size := cache.Stats().Size; size != 0 {
		t.Fatalf("size after Clear() = %d", size)
	}
}

func TestCache_ReturnsSnapshots(t *testing.T) {
	cache := NewCache(10, time.Minute, newMockClock())
	theme := themeWithID("a", "#ff0000")
	cache.Put("k", theme, "css", "")

	theme.Colors.Neutral["50"] = "#000000"
	entry, _ := cache.Get("k")
	if entry.Theme.Colors.Neutral["50"] == "#000000" {
		t.Fatalf("cache shares state with the caller's theme")
	}

	entry.Theme.Colors.Primary = "#123456"
	again, _ := cache.Get("k")
	if again.Theme.Colors.Primary != "#ff0000" {
		t.Fatalf("cache shares state with a returned entry")
	}
}

func TestNewCache_Defaults(t *testing.T) {
	stats := NewCache(0, 0, nil).Stats()
	if stats.MaxSize != DefaultCacheSize || stats.TTL != DefaultCacheTimeout {
		t.Fatalf("defaults = %d/%v", stats.MaxSize, stats.TTL)
	}
}
