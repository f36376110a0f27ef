package themes

import (
	"errors"
	"fmt"
	"strings"

	"github.com/codr1/orgthemes/internal/deepmerge"
)

// MergeError is returned by resolution when tiers disagree on structure.
type MergeError = deepmerge.MergeError

var (
	// ErrSuperseded is returned by ApplyTheme when a later-submitted apply has
	// already been committed; the stale result was discarded.
	ErrSuperseded = errors.New("theme apply superseded by a newer request")
	// ErrNoActiveTheme is returned when an operation needs an active theme and none exists.
	ErrNoActiveTheme = errors.New("no active theme")
)

// ValidationError aborts an apply before the runtime is touched.
type ValidationError struct {
	ThemeID string
	Issues  []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, fmt.Sprintf("%s: %s", issue.Field, issue.Message))
	}
	return fmt.Sprintf("theme %q failed validation: %s", e.ThemeID, strings.Join(parts, "; "))
}

// GenerationError reports a CSS generation failure (including cache key derivation
// and timeouts). The runtime was not mutated.
type GenerationError struct {
	ThemeID string
	Err     error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate css for theme %q: %v", e.ThemeID, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// SinkError reports a failure writing to the application sink. Any partial write
// has been rolled back to the previously active theme.
type SinkError struct {
	ThemeID string
	Op      string
	Err     error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("apply theme %q: %s: %v", e.ThemeID, e.Op, e.Err)
}

func (e *SinkError) Unwrap() error { return e.Err }

// FallbackExhaustedError is returned when both the requested theme and the
// fallback theme failed. The active slot is left as it was before the call.
type FallbackExhaustedError struct {
	ThemeID     string
	FallbackID  string
	Cause       error
	FallbackErr error
}

func (e *FallbackExhaustedError) Error() string {
	return fmt.Sprintf("apply theme %q failed (%v); fallback %q failed (%v)", e.ThemeID, e.Cause, e.FallbackID, e.FallbackErr)
}

func (e *FallbackExhaustedError) Unwrap() []error {
	return []error{e.Cause, e.FallbackErr}
}
