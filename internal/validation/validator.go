// Package validation holds the default theme validator: structural completeness,
// color formats and WCAG contrast.
package validation

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/codr1/orgthemes/internal/models"
	"github.com/codr1/orgthemes/internal/themes"
)

const (
	maxThemeNameLength = 100

	// WCAG AA for body text.
	minTextContrastRatio = 4.5
	// WCAG AA for large text and UI components.
	minUIContrastRatio = 3.0
)

const (
	CodeMissingField   = "missing_field"
	CodeInvalidName    = "invalid_name"
	CodeInvalidColor   = "invalid_color"
	CodeInvalidVersion = "invalid_version"
	CodeLowContrast    = "insufficient_contrast"
	CodeEmptyComponent = "empty_component"
)

var versionRegex = regexp.MustCompile(`^\d+\.\d+\.\d+([-+][0-9A-Za-z.-]+)?$`)

// Validator is the default themes.Validator.
type Validator struct{}

func New() *Validator {
	return &Validator{}
}

var _ themes.Validator = (*Validator)(nil)

// Validate reports blocking issues as errors and everything else as warnings.
func (v *Validator) Validate(ctx context.Context, theme models.Theme, checkAccessibility bool) (themes.ValidationResult, error) {
	if err := ctx.Err(); err != nil {
		return themes.ValidationResult{}, err
	}

	var r report
	r.checkIdentity(theme)
	for _, path := range models.EmptyLeaves(theme) {
		r.add(themes.SeverityError, path, CodeMissingField, "is required")
	}
	r.checkColors("colors", theme.Colors)
	if theme.DarkMode != nil {
		r.checkColors("darkMode.colors", theme.DarkMode.Colors)
	}
	r.checkComponents(theme.Components)

	if checkAccessibility {
		r.checkContrast("colors", theme.Colors)
		if theme.DarkMode != nil && theme.DarkMode.Colors.Background != "" {
			r.checkContrast("darkMode.colors", theme.DarkMode.Colors)
		}
	}

	return themes.ValidationResult{
		IsValid:  len(r.errors) == 0,
		Errors:   r.errors,
		Warnings: r.warnings,
	}, nil
}

type report struct {
	errors   []themes.Issue
	warnings []themes.Issue
}

func (r *report) add(severity themes.Severity, field, code, message string) {
	issue := themes.Issue{Field: field, Message: message, Severity: severity, Code: code}
	if severity == themes.SeverityError {
		r.errors = append(r.errors, issue)
		return
	}
	r.warnings = append(r.warnings, issue)
}

func (r *report) checkIdentity(theme models.Theme) {
	trimmedName := strings.TrimSpace(theme.Name)
	switch {
	case trimmedName == "":
		r.add(themes.SeverityError, "name", CodeMissingField, "is required")
	case trimmedName != theme.Name:
		r.add(themes.SeverityWarning, "name", CodeInvalidName, "has leading or trailing whitespace")
	case len(trimmedName) > maxThemeNameLength:
		r.add(themes.SeverityError, "name", CodeInvalidName, fmt.Sprintf("must be %d characters or fewer", maxThemeNameLength))
	}
	if strings.TrimSpace(theme.ID) == "" {
		r.add(themes.SeverityError, "id", CodeMissingField, "is required")
	}
	if theme.Version != "" && !versionRegex.MatchString(theme.Version) {
		r.add(themes.SeverityWarning, "version", CodeInvalidVersion, "should be a semantic version like 1.0.0")
	}
}

func (r *report) checkColors(prefix string, colors models.Colors) {
	fields := map[string]string{
		"primary":        colors.Primary,
		"secondary":      colors.Secondary,
		"accent":         colors.Accent,
		"background":     colors.Background,
		"surface":        colors.Surface,
		"text.primary":   colors.Text.Primary,
		"text.secondary": colors.Text.Secondary,
		"text.muted":     colors.Text.Muted,
		"border":         colors.Border,
		"input":          colors.Input,
		"ring":           colors.Ring,
		"destructive":    colors.Destructive,
		"warning":        colors.Warning,
		"success":        colors.Success,
		"info":           colors.Info,
	}
	for stop, value := range colors.Neutral {
		fields["neutral."+stop] = value
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		value := fields[name]
		if value == "" {
			continue
		}
		if !models.IsHexColor(value) {
			r.add(themes.SeverityError, prefix+"."+name, CodeInvalidColor, fmt.Sprintf("%q must be a hex color like #AABBCC", value))
		}
	}
}

func (r *report) checkComponents(components map[string]models.ComponentStyle) {
	names := make([]string, 0, len(components))
	for name := range components {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		component := components[name]
		if len(component.Variants) == 0 && len(component.BaseStyles) == 0 && component.CustomCSS == "" {
			r.add(themes.SeverityWarning, "components."+name, CodeEmptyComponent, "defines no styles")
		}
	}
}

func (r *report) checkContrast(prefix string, colors models.Colors) {
	pairs := []struct {
		field      string
		foreground string
		background string
		min        float64
		severity   themes.Severity
	}{
		{"text.primary", colors.Text.Primary, colors.Background, minTextContrastRatio, themes.SeverityError},
		{"text.secondary", colors.Text.Secondary, colors.Background, minTextContrastRatio, themes.SeverityWarning},
		{"text.muted", colors.Text.Muted, colors.Background, minUIContrastRatio, themes.SeverityWarning},
		{"primary", colors.Primary, colors.Background, minUIContrastRatio, themes.SeverityWarning},
	}
	for _, pair := range pairs {
		if pair.foreground == "" || pair.background == "" {
			continue
		}
		ratio, err := ContrastRatio(pair.foreground, pair.background)
		if err != nil {
			// Format problems are already reported by checkColors.
			continue
		}
		if ratio < pair.min {
			r.add(pair.severity, prefix+"."+pair.field, CodeLowContrast, fmt.Sprintf(
				"contrast ratio against background is %.2f, want at least %.1f", ratio, pair.min,
			))
		}
	}
}

// ContrastRatio returns the WCAG contrast ratio between two hex colors.
func ContrastRatio(foreground, background string) (float64, error) {
	fl, err := relativeLuminance(foreground)
	if err != nil {
		return 0, err
	}
	bl, err := relativeLuminance(background)
	if err != nil {
		return 0, err
	}
	lightest := math.Max(fl, bl)
	darkest := math.Min(fl, bl)
	return (lightest + 0.05) / (darkest + 0.05), nil
}

func relativeLuminance(hexColor string) (float64, error) {
	if !models.IsHexColor(hexColor) {
		return 0, fmt.Errorf("invalid hex color: %s", hexColor)
	}
	c, err := colorful.Hex(strings.TrimSpace(hexColor))
	if err != nil {
		return 0, fmt.Errorf("invalid hex color: %s", hexColor)
	}
	rl, gl, bl := c.LinearRgb()
	return 0.2126*rl + 0.7152*gl + 0.0722*bl, nil
}
