package themes

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/codr1/orgthemes/internal/models"
)

const (
	AttrThemeID        = "data-theme-id"
	AttrThemeName      = "data-theme-name"
	AttrOrganizationID = "data-organization-id"
	PropPrimaryColor   = "--theme-primary"
)

type State string

const (
	StateUninitialized State = "uninitialized"
	StateApplying      State = "applying"
	StateActive        State = "active"
)

// Options configures an Engine.
type Options struct {
	EnableCaching               bool
	CacheTimeout                time.Duration
	CacheSize                   int
	EnableValidation            bool
	EnableAccessibilityCheck    bool
	EnablePerformanceMonitoring bool // timing logs only
	// OperationTimeout bounds each validator, generator and sink call. Zero disables it.
	OperationTimeout time.Duration
	// FallbackTheme is applied when an apply fails after validation. Nil means platform defaults.
	FallbackTheme *models.Theme

	Clock  Clock
	Logger *zerolog.Logger
}

// DefaultOptions returns production-ready defaults.
func DefaultOptions() *Options {
	return &Options{
		EnableCaching:               true,
		CacheTimeout:                DefaultCacheTimeout,
		CacheSize:                   DefaultCacheSize,
		EnableValidation:            true,
		EnableAccessibilityCheck:    true,
		EnablePerformanceMonitoring: true,
	}
}

type activeTheme struct {
	theme models.Theme
	css   string
}

// Applied describes what an apply committed to the sink.
type Applied struct {
	Theme    models.Theme
	CacheKey string
	// Fallback is set when the requested theme failed and the fallback theme was committed instead.
	Fallback bool
}

type rendered struct {
	key     string
	css     string
	darkCSS string
}

// Engine resolves themes through the inheritance chain, caches their CSS and owns
// the single active theme written to its Sink.
type Engine struct {
	opts      Options
	clock     Clock
	logger    zerolog.Logger
	resolver  *Resolver
	cache     *Cache
	validator Validator
	generator CSSGenerator
	sink      Sink

	// immutable after New
	defaults models.Theme
	fallback models.Theme

	flight    singleflight.Group
	submitted atomic.Uint64
	inflight  atomic.Int32

	// mu serializes sink writes and guards active and committed.
	mu        sync.Mutex
	active    *activeTheme
	committed uint64
}

// New creates an engine. A nil validator disables validation; generator and sink are required.
func New(validator Validator, generator CSSGenerator, sink Sink, opts *Options) (*Engine, error) {
	if generator == nil {
		return nil, errors.New("css generator is required")
	}
	if sink == nil {
		return nil, errors.New("application sink is required")
	}
	if opts == nil {
		opts = DefaultOptions()
	}
	clock := opts.Clock
	if clock == nil {
		clock = realClock{}
	}
	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	defaults := models.PlatformDefaults()
	now := clock.Now().UTC()
	defaults.CreatedAt = &now
	defaults.UpdatedAt = &now

	fallback := defaults.Clone()
	if opts.FallbackTheme != nil {
		fallback = opts.FallbackTheme.Clone()
	}

	return &Engine{
		opts:      *opts,
		clock:     clock,
		logger:    logger,
		resolver:  NewResolver(clock),
		cache:     NewCache(opts.CacheSize, opts.CacheTimeout, clock),
		validator: validator,
		generator: generator,
		sink:      sink,
		defaults:  defaults,
		fallback:  fallback,
	}, nil
}

// ResolveTheme runs the inheritance chain for overrides on top of an optional template.
// It touches neither the cache nor the sink and is safe to call concurrently.
func (e *Engine) ResolveTheme(overrides models.ThemeUpdate, template *models.Theme) (ThemeInheritance, error) {
	resolved, err := e.resolver.Resolve(e.defaults, template, overrides)
	if err != nil {
		return ThemeInheritance{}, err
	}

	record := ThemeInheritance{
		PlatformDefaults:      e.defaults.Clone(),
		OrganizationOverrides: overrides.Clone(),
		Resolved:              resolved,
	}
	if record.OrganizationOverrides == nil {
		record.OrganizationOverrides = models.ThemeUpdate{}
	}
	if template != nil {
		base := template.Clone()
		record.TemplateBase = &base
	}
	return record, nil
}

// ApplyTheme validates, renders and installs theme as the active theme. Failures after
// validation fall back once to the fallback theme. A result overtaken by a newer,
// already committed apply is discarded and ErrSuperseded is returned.
func (e *Engine) ApplyTheme(ctx context.Context, theme models.Theme) error {
	_, err := e.Apply(ctx, theme)
	return err
}

// Apply is ApplyTheme reporting the committed theme. The result is captured under the
// commit lock, so a later apply committing right after does not change it.
func (e *Engine) Apply(ctx context.Context, theme models.Theme) (Applied, error) {
	ticket := e.submitted.Add(1)
	e.inflight.Add(1)
	defer e.inflight.Add(-1)

	return e.apply(ctx, theme.Clone(), ticket, false)
}

func (e *Engine) apply(ctx context.Context, theme models.Theme, ticket uint64, fallingBack bool) (Applied, error) {
	start := e.clock.Now()
	logger := e.logger.With().Str("theme_id", theme.ID).Uint64("ticket", ticket).Bool("fallback", fallingBack).Logger()

	applied, err := e.applyOnce(ctx, theme, ticket)
	if err == nil {
		if e.opts.EnablePerformanceMonitoring {
			logger.Info().Dur("duration", e.clock.Now().Sub(start)).Msg("Theme applied")
		}
		return applied, nil
	}
	if errors.Is(err, ErrSuperseded) {
		logger.Debug().Msg("Discarding superseded theme apply")
		return Applied{}, err
	}

	var validationErr *ValidationError
	if fallingBack || errors.As(err, &validationErr) || theme.ID == e.fallback.ID {
		return Applied{}, err
	}

	logger.Warn().Err(err).Str("fallback_id", e.fallback.ID).Msg("Theme apply failed, applying fallback")
	applied, fallbackErr := e.apply(ctx, e.fallback.Clone(), ticket, true)
	if fallbackErr == nil {
		applied.Fallback = true
		return applied, nil
	}
	if errors.Is(fallbackErr, ErrSuperseded) {
		return Applied{}, fallbackErr
	}
	logger.Error().Err(fallbackErr).Str("fallback_id", e.fallback.ID).Msg("Fallback theme apply failed")
	return Applied{}, &FallbackExhaustedError{
		ThemeID:     theme.ID,
		FallbackID:  e.fallback.ID,
		Cause:       err,
		FallbackErr: fallbackErr,
	}
}

func (e *Engine) applyOnce(ctx context.Context, theme models.Theme, ticket uint64) (Applied, error) {
	if err := e.validate(ctx, theme); err != nil {
		return Applied{}, err
	}
	r, err := e.render(ctx, theme)
	if err != nil {
		return Applied{}, err
	}
	return e.commit(ctx, theme, r, ticket)
}

func (e *Engine) validate(ctx context.Context, theme models.Theme) error {
	if !e.opts.EnableValidation || e.validator == nil {
		return nil
	}

	result, err := callWithTimeout(ctx, e.opts.OperationTimeout, func(ctx context.Context) (ValidationResult, error) {
		return e.validator.Validate(ctx, theme, e.opts.EnableAccessibilityCheck)
	})
	if err != nil {
		return &ValidationError{
			ThemeID: theme.ID,
			Issues: []Issue{{
				Field:    "theme",
				Message:  fmt.Sprintf("validator failed: %v", err),
				Severity: SeverityError,
				Code:     "validator_failed",
			}},
		}
	}

	if blocking := result.Blocking(); len(blocking) > 0 {
		return &ValidationError{ThemeID: theme.ID, Issues: blocking}
	}
	for _, issue := range append(append([]Issue{}, result.Errors...), result.Warnings...) {
		e.logger.Warn().
			Str("theme_id", theme.ID).
			Str("field", issue.Field).
			Str("code", issue.Code).
			Str("severity", string(issue.Severity)).
			Msg(issue.Message)
	}
	return nil
}

// render returns the CSS for theme from the cache or the generator. Concurrent
// renders of the same key share one generation, which runs detached from any single
// caller's cancellation; each caller stops waiting when its own ctx is done.
func (e *Engine) render(ctx context.Context, theme models.Theme) (rendered, error) {
	key, err := CacheKey(theme)
	if err != nil {
		return rendered{}, &GenerationError{ThemeID: theme.ID, Err: err}
	}

	if e.opts.EnableCaching {
		if entry, ok := e.cache.Get(key); ok {
			e.logger.Debug().Str("theme_id", theme.ID).Str("cache_key", key).Msg("Theme cache hit")
			return rendered{key: key, css: entry.CSS, darkCSS: entry.DarkCSS}, nil
		}
	}

	ch := e.flight.DoChan(key, func() (any, error) {
		ctx := context.WithoutCancel(ctx)
		start := e.clock.Now()
		css, err := callWithTimeout(ctx, e.opts.OperationTimeout, func(ctx context.Context) (string, error) {
			return e.generator.Generate(ctx, theme)
		})
		if err != nil {
			return nil, err
		}
		var darkCSS string
		if theme.DarkMode != nil {
			darkCSS, err = callWithTimeout(ctx, e.opts.OperationTimeout, func(ctx context.Context) (string, error) {
				return e.generator.GenerateDarkMode(ctx, theme)
			})
			if err != nil {
				return nil, fmt.Errorf("dark mode: %w", err)
			}
		}
		if e.opts.EnableCaching {
			e.cache.Put(key, theme, css, darkCSS)
		}
		if e.opts.EnablePerformanceMonitoring {
			e.logger.Debug().
				Str("theme_id", theme.ID).
				Str("cache_key", key).
				Int("css_bytes", len(css)+len(darkCSS)).
				Dur("duration", e.clock.Now().Sub(start)).
				Msg("Theme CSS generated")
		}
		return rendered{key: key, css: css, darkCSS: darkCSS}, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return rendered{}, &GenerationError{ThemeID: theme.ID, Err: res.Err}
		}
		return res.Val.(rendered), nil
	case <-ctx.Done():
		return rendered{}, &GenerationError{ThemeID: theme.ID, Err: ctx.Err()}
	}
}

func (e *Engine) commit(ctx context.Context, theme models.Theme, r rendered, ticket uint64) (Applied, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if ticket < e.committed {
		return Applied{}, ErrSuperseded
	}

	css := joinCSS(r.css, r.darkCSS)
	if err := e.writeSink(ctx, theme, css); err != nil {
		e.rollback(context.WithoutCancel(ctx), e.active)
		return Applied{}, err
	}
	e.active = &activeTheme{theme: theme, css: css}
	e.committed = ticket
	return Applied{Theme: theme.Clone(), CacheKey: r.key}, nil
}

// writeSink must be called with mu held.
func (e *Engine) writeSink(ctx context.Context, theme models.Theme, css string) error {
	type step struct {
		op string
		fn func(context.Context) error
	}
	steps := []step{
		{"inject css", func(ctx context.Context) error { return e.sink.InjectCSS(ctx, css) }},
		{"set " + AttrThemeID, func(ctx context.Context) error { return e.sink.SetAttribute(ctx, AttrThemeID, theme.ID) }},
		{"set " + AttrThemeName, func(ctx context.Context) error { return e.sink.SetAttribute(ctx, AttrThemeName, theme.Name) }},
	}
	if theme.OrganizationID != "" {
		steps = append(steps, step{"set " + AttrOrganizationID, func(ctx context.Context) error {
			return e.sink.SetAttribute(ctx, AttrOrganizationID, theme.OrganizationID)
		}})
	}
	steps = append(steps, step{"set " + PropPrimaryColor, func(ctx context.Context) error {
		return e.sink.SetCustomProperty(ctx, PropPrimaryColor, theme.Colors.Primary)
	}})

	for _, s := range steps {
		if err := e.sinkCall(ctx, s.fn); err != nil {
			return &SinkError{ThemeID: theme.ID, Op: s.op, Err: err}
		}
	}
	return nil
}

// sinkCall runs one sink write bounded by OperationTimeout and waits for it to return,
// so no write can land after mu is released. Sinks must honour ctx. A write that
// returns after the deadline counts as failed.
func (e *Engine) sinkCall(ctx context.Context, fn func(context.Context) error) error {
	if e.opts.OperationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.OperationTimeout)
		defer cancel()
	}
	if err := fn(ctx); err != nil {
		return err
	}
	return ctx.Err()
}

// rollback restores the sink to prev, or clears the injected CSS when nothing was active.
// It must be called with mu held.
func (e *Engine) rollback(ctx context.Context, prev *activeTheme) {
	if prev == nil {
		err := e.sinkCall(ctx, func(ctx context.Context) error { return e.sink.InjectCSS(ctx, "") })
		if err != nil {
			e.logger.Error().Err(err).Msg("Failed to clear partially applied theme")
		}
		return
	}
	if err := e.writeSink(ctx, prev.theme, prev.css); err != nil {
		e.logger.Error().Err(err).Str("theme_id", prev.theme.ID).Msg("Failed to restore previous theme")
	}
}

// PreloadTheme renders and caches theme without touching the active theme or the sink.
// It returns the cache key.
func (e *Engine) PreloadTheme(ctx context.Context, theme models.Theme) (string, error) {
	r, err := e.render(ctx, theme.Clone())
	if err != nil {
		return "", err
	}
	return r.key, nil
}

// PlatformDefaults returns a copy of the platform baseline.
func (e *Engine) PlatformDefaults() models.Theme {
	return e.defaults.Clone()
}

// ActiveTheme returns a copy of the active theme, if any.
func (e *Engine) ActiveTheme() (models.Theme, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active == nil {
		return models.Theme{}, false
	}
	return e.active.theme.Clone(), true
}

func (e *Engine) State() State {
	if e.inflight.Load() > 0 {
		return StateApplying
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == nil {
		return StateUninitialized
	}
	return StateActive
}

// RemoveCachedTheme drops every cached render of the theme with the given id.
func (e *Engine) RemoveCachedTheme(themeID string) int {
	return e.cache.Invalidate(themeID)
}

func (e *Engine) ClearCache() {
	e.cache.Clear()
}

// SweepCache drops expired cache entries.
func (e *Engine) SweepCache() int {
	return e.cache.Sweep()
}

func (e *Engine) CacheStats() CacheStats {
	return e.cache.Stats()
}

func joinCSS(css, darkCSS string) string {
	if darkCSS == "" {
		return css
	}
	return css + "\n" + darkCSS
}

// callWithTimeout runs fn and gives up once timeout elapses, even if fn ignores ctx.
// It is only used for calls without side effects on engine state.
func callWithTimeout[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		value, err := fn(ctx)
		done <- result{value: value, err: err}
	}()

	select {
	case res := <-done:
		return res.value, res.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
