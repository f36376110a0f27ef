// Package ratelimit throttles theme applies per organization.
package ratelimit

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Clock interface for testing time-dependent behavior.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Config holds rate limit configuration. A zero value disables the matching check.
type Config struct {
	Cooldown   time.Duration // Minimum time between applies for one organization
	MaxPerHour int           // Max applies per organization per hour

	// Clock for testing (nil uses real time)
	Clock Clock
}

// DefaultConfig returns production-ready defaults.
func DefaultConfig() *Config {
	return &Config{
		Cooldown:   time.Second,
		MaxPerHour: 120,
	}
}

// LimitResult contains the result of a rate limit check.
type LimitResult struct {
	Allowed    bool
	RetryAfter time.Duration
	Reason     string // For logging
}

type entry struct {
	count   int
	firstAt time.Time // First request in window
	lastAt  time.Time // Most recent request (for cooldown)
}

// Limiter tracks applies per organization.
type Limiter struct {
	config  *Config
	clock   Clock
	mu      sync.RWMutex
	entries map[string]*entry

	cleanupCtx    context.Context
	cleanupCancel context.CancelFunc
	cleanupOnce   sync.Once
	cleanupWg     sync.WaitGroup
}

// New creates a new rate limiter with the given config.
func New(cfg *Config) *Limiter {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = realClock{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Limiter{
		config:        cfg,
		clock:         clock,
		entries:       make(map[string]*entry),
		cleanupCtx:    ctx,
		cleanupCancel: cancel,
	}
}

// Close stops the cleanup goroutine and releases resources.
func (l *Limiter) Close() {
	l.cleanupCancel()
	l.cleanupWg.Wait()
}

// Check reports whether organizationID may apply a theme now.
// Does NOT record the attempt - call Record once the apply has been accepted.
func (l *Limiter) Check(organizationID string) LimitResult {
	l.startCleanup()
	now := l.clock.Now()
	key := normalizeKey(organizationID)

	l.mu.RLock()
	defer l.mu.RUnlock()

	e := l.entries[key]
	if e == nil {
		return LimitResult{Allowed: true}
	}
	if elapsed := now.Sub(e.lastAt); l.config.Cooldown > 0 && elapsed < l.config.Cooldown {
		return LimitResult{
			Allowed:    false,
			RetryAfter: l.config.Cooldown - elapsed,
			Reason:     "cooldown",
		}
	}
	if l.config.MaxPerHour > 0 && now.Sub(e.firstAt) < time.Hour && e.count >= l.config.MaxPerHour {
		return LimitResult{
			Allowed:    false,
			RetryAfter: time.Hour - now.Sub(e.firstAt),
			Reason:     "hourly_limit",
		}
	}
	return LimitResult{Allowed: true}
}

// Record counts one apply for organizationID.
func (l *Limiter) Record(organizationID string) {
	now := l.clock.Now()
	key := normalizeKey(organizationID)

	l.mu.Lock()
	defer l.mu.Unlock()

	e := l.entries[key]
	if e == nil || now.Sub(e.firstAt) >= time.Hour {
		l.entries[key] = &entry{count: 1, firstAt: now, lastAt: now}
		return
	}
	e.count++
	e.lastAt = now
}

// Reset forgets organizationID.
func (l *Limiter) Reset(organizationID string) {
	l.mu.Lock()
	delete(l.entries, normalizeKey(organizationID))
	l.mu.Unlock()
}

func normalizeKey(organizationID string) string {
	return strings.ToLower(strings.TrimSpace(organizationID))
}

func (l *Limiter) startCleanup() {
	l.cleanupOnce.Do(func() {
		l.cleanupWg.Add(1)
		go func() {
			defer l.cleanupWg.Done()
			ticker := time.NewTicker(5 * time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-l.cleanupCtx.Done():
					return
				case <-ticker.C:
					l.cleanup()
				}
			}
		}()
	})
}

func (l *Limiter) cleanup() {
	now := l.clock.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	for k, e := range l.entries {
		if now.Sub(e.lastAt) > time.Hour {
			delete(l.entries, k)
		}
	}
}
