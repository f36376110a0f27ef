// Package cssgen renders resolved themes to CSS custom properties and component rules.
package cssgen

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/codr1/orgthemes/internal/models"
	"github.com/codr1/orgthemes/internal/themes"
)

const (
	VarPrefix = "--theme-"
	// ClassPrefix prefixes component class names, e.g. ".theme-button".
	ClassPrefix = "theme-"
	// DarkModeSelector scopes the dark-mode block.
	DarkModeSelector = `[data-theme-mode="dark"]`
)

var (
	identRegex     = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	closeStyleTag  = regexp.MustCompile(`(?i)</\s*style`)
	errNoDarkMode  = errors.New("theme has no dark mode")
	unsafeValueSet = ";{}<>"
)

// Generator is the default themes.CSSGenerator. Declarations whose name or value
// could break out of a rule are skipped.
type Generator struct {
	// Minify drops the newlines between declarations.
	Minify bool
}

func New() *Generator {
	return &Generator{Minify: true}
}

var _ themes.CSSGenerator = (*Generator)(nil)

func (g *Generator) Generate(ctx context.Context, theme models.Theme) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if theme.Colors.Primary == "" {
		return "", fmt.Errorf("theme %q has no primary color", theme.ID)
	}

	var b cssBuilder
	b.minify = g.Minify

	b.open(":root")
	writeColors(&b, theme.Colors)
	writeTypography(&b, theme.Typography)
	b.scale("spacing-", theme.Spacing)
	b.scale("radius-", theme.BorderRadius)
	b.scale("shadow-", theme.Shadows)
	writeLayout(&b, theme.Layout)
	b.scale("duration-", theme.Animations.Duration)
	b.scale("easing-", theme.Animations.Easing)
	b.scale("transition-", theme.Animations.Transitions)
	b.close()

	writeComponents(&b, theme.Components)
	return b.String(), nil
}

func (g *Generator) GenerateDarkMode(ctx context.Context, theme models.Theme) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if theme.DarkMode == nil {
		return "", errNoDarkMode
	}

	var b cssBuilder
	b.minify = g.Minify
	b.open(DarkModeSelector)
	writeColors(&b, theme.DarkMode.Colors)
	b.scale("shadow-", theme.DarkMode.Shadows)
	b.close()
	return b.String(), nil
}

func writeColors(b *cssBuilder, colors models.Colors) {
	b.decl("primary", colors.Primary)
	b.decl("secondary", colors.Secondary)
	b.decl("accent", colors.Accent)
	b.decl("background", colors.Background)
	b.decl("surface", colors.Surface)
	b.decl("text-primary", colors.Text.Primary)
	b.decl("text-secondary", colors.Text.Secondary)
	b.decl("text-muted", colors.Text.Muted)
	b.decl("border", colors.Border)
	b.decl("input", colors.Input)
	b.decl("ring", colors.Ring)
	b.decl("destructive", colors.Destructive)
	b.decl("warning", colors.Warning)
	b.decl("success", colors.Success)
	b.decl("info", colors.Info)
	for _, stop := range models.NeutralStops {
		b.decl("neutral-"+stop, colors.Neutral[stop])
	}
}

func writeTypography(b *cssBuilder, typography models.Typography) {
	b.decl("font-family", typography.FontFamily)
	b.decl("heading-font", typography.HeadingFont)
	b.scale("font-size-", typography.FontSize)
	b.scale("font-weight-", typography.FontWeight)
	b.scale("line-height-", typography.LineHeight)
	b.scale("letter-spacing-", typography.LetterSpacing)
}

func writeLayout(b *cssBuilder, layout models.Layout) {
	b.decl("sidebar-width", layout.SidebarWidth)
	b.decl("sidebar-collapsed-width", layout.SidebarCollapsedWidth)
	b.decl("header-height", layout.HeaderHeight)
	b.decl("footer-height", layout.FooterHeight)
	b.decl("container-max-width", layout.ContainerMaxWidth)
	b.decl("content-padding", layout.ContentPadding)
	b.decl("section-gap", layout.SectionGap)
	b.decl("card-gap", layout.CardGap)
}

func writeComponents(b *cssBuilder, components map[string]models.ComponentStyle) {
	for _, name := range sortedKeys(components) {
		if !identRegex.MatchString(name) {
			continue
		}
		component := components[name]
		class := "." + ClassPrefix + name

		if len(component.BaseStyles) > 0 {
			b.open(class)
			b.props(component.BaseStyles)
			b.close()
		}
		for _, variant := range sortedKeys(component.Variants) {
			if !identRegex.MatchString(variant) {
				continue
			}
			b.open(class + "--" + variant)
			b.props(component.Variants[variant])
			b.close()
		}
		if css := strings.TrimSpace(component.CustomCSS); css != "" {
			b.raw(closeStyleTag.ReplaceAllString(css, ""))
		}
	}
}

type cssBuilder struct {
	sb     strings.Builder
	minify bool
}

func (b *cssBuilder) open(selector string) {
	if b.sb.Len() > 0 {
		b.sb.WriteByte('\n')
	}
	b.sb.WriteString(selector)
	b.sb.WriteByte('{')
}

func (b *cssBuilder) close() {
	if !b.minify {
		b.sb.WriteByte('\n')
	}
	b.sb.WriteByte('}')
}

// decl writes a theme custom property.
func (b *cssBuilder) decl(name, value string) {
	b.prop(VarPrefix+name, value)
}

func (b *cssBuilder) scale(prefix string, values map[string]string) {
	for _, key := range sortedKeys(values) {
		if !identRegex.MatchString(key) {
			continue
		}
		b.decl(prefix+key, values[key])
	}
}

func (b *cssBuilder) props(values map[string]string) {
	for _, key := range sortedKeys(values) {
		if !identRegex.MatchString(key) {
			continue
		}
		b.prop(key, values[key])
	}
}

func (b *cssBuilder) prop(name, value string) {
	value = strings.TrimSpace(value)
	if value == "" || strings.ContainsAny(value, unsafeValueSet) {
		return
	}
	if !b.minify {
		b.sb.WriteString("\n  ")
	}
	b.sb.WriteString(name)
	b.sb.WriteByte(':')
	b.sb.WriteString(value)
	b.sb.WriteByte(';')
}

func (b *cssBuilder) raw(css string) {
	if b.sb.Len() > 0 {
		b.sb.WriteByte('\n')
	}
	b.sb.WriteString(css)
}

func (b *cssBuilder) String() string {
	return b.sb.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
