package themes

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/codr1/orgthemes/internal/models"
)

// mockClock is a controllable clock for testing.
type mockClock struct {
	mu  sync.Mutex
	now time.Time
}

func newMockClock() *mockClock {
	return &mockClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type mockGenerator struct {
	mu       sync.Mutex
	calls    int
	darkCall int
	failIDs  map[string]error
	// block, when set for a theme id, is waited on before generating.
	block   map[string]chan struct{}
	entered chan string
}

func newMockGenerator() *mockGenerator {
	return &mockGenerator{
		failIDs: make(map[string]error),
		block:   make(map[string]chan struct{}),
	}
}

func (g *mockGenerator) Generate(ctx context.Context, theme models.Theme) (string, error) {
	g.mu.Lock()
	g.calls++
	err := g.failIDs[theme.ID]
	gate := g.block[theme.ID]
	entered := g.entered
	g.mu.Unlock()

	if entered != nil {
		entered <- theme.ID
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err != nil {
		return "", err
	}
	return ":root{--theme-primary:" + theme.Colors.Primary + ";}", nil
}

func (g *mockGenerator) GenerateDarkMode(ctx context.Context, theme models.Theme) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.darkCall++
	return "[data-theme-mode=dark]{--theme-background:" + theme.DarkMode.Colors.Background + ";}", nil
}

func (g *mockGenerator) Fail(id string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failIDs[id] = err
}

func (g *mockGenerator) Block(id string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	gate := make(chan struct{})
	g.block[id] = gate
	if g.entered == nil {
		g.entered = make(chan string, 16)
	}
	return gate
}

func (g *mockGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type mockSink struct {
	mu         sync.Mutex
	css        string
	injections int
	attributes map[string]string
	properties map[string]string
	// rejectNames fails the theme-name attribute write for these theme names.
	rejectNames map[string]bool
	// slowCSS delays InjectCSS, ignoring ctx, when the css contains the key.
	slowCSS map[string]time.Duration
}

func newMockSink() *mockSink {
	return &mockSink{
		attributes:  make(map[string]string),
		properties:  make(map[string]string),
		rejectNames: make(map[string]bool),
		slowCSS:     make(map[string]time.Duration),
	}
}

func (s *mockSink) InjectCSS(ctx context.Context, css string) error {
	s.mu.Lock()
	var delay time.Duration
	for marker, d := range s.slowCSS {
		if strings.Contains(css, marker) {
			delay = d
		}
	}
	s.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.css = css
	s.injections++
	return nil
}

func (s *mockSink) SetAttribute(ctx context.Context, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if name == AttrThemeName && s.rejectNames[value] {
		return errors.New("attribute write rejected")
	}
	s.attributes[name] = value
	return nil
}

func (s *mockSink) SetCustomProperty(ctx context.Context, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.properties[name] = value
	return nil
}

func (s *mockSink) CSS() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.css
}

func (s *mockSink) Injections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.injections
}

func (s *mockSink) Slow(marker string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slowCSS[marker] = d
}

func (s *mockSink) Reject(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectNames[name] = true
}

func (s *mockSink) Attribute(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attributes[name]
}

type mockValidator struct {
	mu     sync.Mutex
	result ValidationResult
	err    error
	calls  int
	// accessibility records the checkAccessibility flag of the last call.
	accessibility bool
}

func (v *mockValidator) Validate(ctx context.Context, theme models.Theme, checkAccessibility bool) (ValidationResult, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++
	v.accessibility = checkAccessibility
	return v.result, v.err
}

func newTestEngine(t *testing.T, opts *Options) (*Engine, *mockGenerator, *mockSink, *mockClock) {
	t.Helper()
	return newValidatedTestEngine(t, nil, opts)
}

func newValidatedTestEngine(t *testing.T, validator Validator, opts *Options) (*Engine, *mockGenerator, *mockSink, *mockClock) {
	t.Helper()

	clock := newMockClock()
	if opts == nil {
		opts = DefaultOptions()
	}
	opts.Clock = clock
	logger := zerolog.Nop()
	opts.Logger = &logger

	generator := newMockGenerator()
	sink := newMockSink()
	engine, err := New(validator, generator, sink, opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return engine, generator, sink, clock
}

func themeWithID(id, primary string) models.Theme {
	theme := models.PlatformDefaults()
	theme.ID = id
	theme.Name = "Theme " + id
	theme.Colors.Primary = primary
	return theme
}
