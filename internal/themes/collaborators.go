package themes

import (
	"context"
	"time"

	"github.com/codr1/orgthemes/internal/models"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

type Issue struct {
	Field    string   `json:"field"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
}

type ValidationResult struct {
	IsValid  bool    `json:"isValid"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

// Blocking returns every issue with error severity, wherever it was reported.
func (r ValidationResult) Blocking() []Issue {
	var blocking []Issue
	for _, issue := range append(append([]Issue{}, r.Errors...), r.Warnings...) {
		if issue.Severity == SeverityError {
			blocking = append(blocking, issue)
		}
	}
	return blocking
}

// Validator checks a resolved theme. Accessibility checks are only run when
// checkAccessibility is set.
type Validator interface {
	Validate(ctx context.Context, theme models.Theme, checkAccessibility bool) (ValidationResult, error)
}

// CSSGenerator renders a resolved theme to CSS text.
type CSSGenerator interface {
	Generate(ctx context.Context, theme models.Theme) (string, error)
	GenerateDarkMode(ctx context.Context, theme models.Theme) (string, error)
}

// Sink is the runtime surface that owns visual presentation. The engine is its only writer.
// Writes must return once ctx is done; the engine waits for every call.
type Sink interface {
	InjectCSS(ctx context.Context, css string) error
	SetAttribute(ctx context.Context, name, value string) error
	SetCustomProperty(ctx context.Context, name, value string) error
}

// Clock interface for testing time-dependent behavior.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
