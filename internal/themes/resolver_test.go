package themes

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/codr1/orgthemes/internal/models"
)

func TestResolve_TierPrecedence(t *testing.T) {
	resolver := NewResolver(newMockClock())

	template := models.Theme{
		Colors: models.Colors{Primary: "#111111", Accent: "#333333"},
	}
	overrides := models.ThemeUpdate{
		"colors": map[string]any{"secondary": "#222222", "accent": "#444444"},
	}

	resolved, err := resolver.Resolve(models.PlatformDefaults(), &template, overrides)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if resolved.Colors.Primary != "#111111" {
		t.Fatalf("colors.primary = %q, want template value #111111", resolved.Colors.Primary)
	}
	if resolved.Colors.Secondary != "#222222" {
		t.Fatalf("colors.secondary = %q, want override #222222", resolved.Colors.Secondary)
	}
	if resolved.Colors.Accent != "#444444" {
		t.Fatalf("colors.accent = %q, want override #444444", resolved.Colors.Accent)
	}
	if resolved.Colors.Background != models.PlatformDefaults().Colors.Background {
		t.Fatalf("colors.background = %q, want platform default", resolved.Colors.Background)
	}
}

func TestResolve_NullAndEmptyNeverOverwrite(t *testing.T) {
	resolver := NewResolver(newMockClock())
	overrides := models.ThemeUpdate{
		"colors": map[string]any{"primary": nil, "text": map[string]any{"primary": ""}},
		"layout": map[string]any{"sidebarWidth": nil},
	}

	resolved, err := resolver.Resolve(models.PlatformDefaults(), nil, overrides)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	defaults := models.PlatformDefaults()
	if resolved.Colors.Primary != defaults.Colors.Primary {
		t.Fatalf("null override replaced primary: %q", resolved.Colors.Primary)
	}
	if resolved.Colors.Text.Primary != defaults.Colors.Text.Primary {
		t.Fatalf("empty override replaced text.primary: %q", resolved.Colors.Text.Primary)
	}
	if resolved.Layout.SidebarWidth != defaults.Layout.SidebarWidth {
		t.Fatalf("null override replaced sidebarWidth: %q", resolved.Layout.SidebarWidth)
	}
}

func TestResolve_NoEmptyLeaves(t *testing.T) {
	resolver := NewResolver(newMockClock())
	cases := map[string]models.ThemeUpdate{
		"empty":   {},
		"nil":     nil,
		"colors":  {"colors": map[string]any{"primary": "#000000", "text": map[string]any{"muted": "#999999"}}},
		"spacing": {"spacing": map[string]any{"md": "1.25rem"}},
		"components": {"components": map[string]any{
			"badge": map[string]any{"baseStyles": map[string]any{"padding": "0 0.5rem"}},
		}},
		"layout_branding": {
			"layout":   map[string]any{"sidebarWidth": "18rem"},
			"branding": map[string]any{"logo": "https://cdn.example.com/logo.svg"},
		},
	}

	for name, overrides := range cases {
		t.Run(name, func(t *testing.T) {
			resolved, err := resolver.Resolve(models.PlatformDefaults(), nil, overrides)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if missing := models.EmptyLeaves(resolved); len(missing) != 0 {
				t.Fatalf("resolved theme has empty leaves: %v", missing)
			}
		})
	}
}

func TestResolve_FillsStatusColorsAndNeutralRamp(t *testing.T) {
	resolver := NewResolver(newMockClock())
	platform := models.PlatformDefaults()
	platform.Colors.Success = ""
	platform.Colors.Info = ""
	platform.Colors.Neutral = map[string]string{"50": "#fafafa"}

	resolved, err := resolver.Resolve(platform, nil, nil)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if resolved.Colors.Success != models.DefaultSuccessColor {
		t.Fatalf("success = %q, want %q", resolved.Colors.Success, models.DefaultSuccessColor)
	}
	if resolved.Colors.Info != models.DefaultInfoColor {
		t.Fatalf("info = %q, want %q", resolved.Colors.Info, models.DefaultInfoColor)
	}
	if len(resolved.Colors.Neutral) != len(models.NeutralStops) {
		t.Fatalf("neutral ramp has %d stops, want %d", len(resolved.Colors.Neutral), len(models.NeutralStops))
	}
	for _, stop := range models.NeutralStops {
		if !models.IsHexColor(resolved.Colors.Neutral[stop]) {
			t.Fatalf("neutral %s = %q, want hex color", stop, resolved.Colors.Neutral[stop])
		}
	}
}

func TestGenerateNeutralRamp(t *testing.T) {
	ramp := GenerateNeutralRamp("#0f172a", "#ffffff")
	if len(ramp) != len(models.NeutralStops) {
		t.Fatalf("ramp has %d stops", len(ramp))
	}
	// Anchors are ordered light to dark regardless of argument order.
	if ramp["50"] <= ramp["950"] {
		t.Fatalf("ramp should run light to dark, got 50=%s 950=%s", ramp["50"], ramp["950"])
	}

	fallback := GenerateNeutralRamp("not-a-color", "#000000")
	if fallback["500"] != models.DefaultNeutralRamp()["500"] {
		t.Fatalf("unparseable anchors should use the default ramp")
	}
}

func TestResolve_FontFallback(t *testing.T) {
	tests := []struct {
		name   string
		family string
		want   string
	}{
		{name: "appends_generic", family: "Roboto", want: "Roboto, system-ui, sans-serif"},
		{name: "keeps_generic", family: "Georgia, serif", want: "Georgia, serif"},
		{name: "quoted_generic", family: `"Fira Code", 'monospace'`, want: `"Fira Code", 'monospace'`},
		{name: "trailing_comma", family: "Lato,", want: "Lato, system-ui, sans-serif"},
	}

	resolver := NewResolver(newMockClock())
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			overrides := models.ThemeUpdate{
				"typography": map[string]any{"fontFamily": test.family, "headingFont": test.family},
			}
			resolved, err := resolver.Resolve(models.PlatformDefaults(), nil, overrides)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if resolved.Typography.FontFamily != test.want {
				t.Fatalf("fontFamily = %q, want %q", resolved.Typography.FontFamily, test.want)
			}
			if resolved.Typography.HeadingFont != test.want {
				t.Fatalf("headingFont = %q, want %q", resolved.Typography.HeadingFont, test.want)
			}
		})
	}
}

func TestResolve_TypographyScalesMergeKeyByKey(t *testing.T) {
	resolver := NewResolver(newMockClock())
	overrides := models.ThemeUpdate{
		"typography": map[string]any{"fontSize": map[string]any{"base": "1.0625rem"}},
	}

	resolved, err := resolver.Resolve(models.PlatformDefaults(), nil, overrides)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if resolved.Typography.FontSize["base"] != "1.0625rem" {
		t.Fatalf("fontSize.base = %q", resolved.Typography.FontSize["base"])
	}
	if resolved.Typography.FontSize["xs"] != "0.75rem" {
		t.Fatalf("fontSize.xs should be inherited, got %q", resolved.Typography.FontSize["xs"])
	}
}

func TestResolve_ComponentMergeRules(t *testing.T) {
	resolver := NewResolver(newMockClock())
	template := models.Theme{
		Components: map[string]models.ComponentStyle{
			"button": {CustomCSS: ".btn{letter-spacing:0.02em}"},
		},
	}
	overrides := models.ThemeUpdate{
		"components": map[string]any{
			"button": map[string]any{
				"variants": map[string]any{
					"primary": map[string]any{"background": "#000000"},
				},
				"baseStyles": map[string]any{"padding": "0.75rem 1.25rem"},
				"customCSS":  ".btn{text-transform:uppercase}",
			},
		},
	}

	resolved, err := resolver.Resolve(models.PlatformDefaults(), &template, overrides)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	button := resolved.Components["button"]
	if button.BaseStyles["padding"] != "0.75rem 1.25rem" {
		t.Fatalf("baseStyles.padding = %q", button.BaseStyles["padding"])
	}
	if button.BaseStyles["font-weight"] != "500" {
		t.Fatalf("baseStyles should shallow-merge, lost font-weight: %v", button.BaseStyles)
	}
	// variants merge one level deep: the primary variant is replaced, siblings kept.
	if _, ok := button.Variants["ghost"]; !ok {
		t.Fatalf("sibling variant lost: %v", button.Variants)
	}
	if _, ok := button.Variants["primary"]["color"]; ok {
		t.Fatalf("variant should be replaced wholesale, got %v", button.Variants["primary"])
	}
	if button.CustomCSS != ".btn{text-transform:uppercase}" {
		t.Fatalf("customCSS = %q, want organization override", button.CustomCSS)
	}
	if button.DefaultProps["variant"] != "primary" {
		t.Fatalf("defaultProps lost: %v", button.DefaultProps)
	}
	if _, ok := resolved.Components["card"]; !ok {
		t.Fatalf("untouched component dropped")
	}
}

func TestResolve_Normalization(t *testing.T) {
	clock := newMockClock()
	resolver := NewResolver(clock)

	resolved, err := resolver.Resolve(models.PlatformDefaults(), nil, nil)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	wantID := "theme-1704110400000"
	if resolved.ID != wantID {
		t.Fatalf("id = %q, want %q", resolved.ID, wantID)
	}
	if resolved.Name != models.DefaultThemeName {
		t.Fatalf("name = %q, want %q", resolved.Name, models.DefaultThemeName)
	}
	if resolved.Version != "1.0.0" {
		t.Fatalf("version = %q, want 1.0.0", resolved.Version)
	}
	if resolved.UpdatedAt == nil || !resolved.UpdatedAt.Equal(clock.Now()) {
		t.Fatalf("updatedAt = %v, want %v", resolved.UpdatedAt, clock.Now())
	}

	createdAt := clock.Now().Add(-24 * time.Hour)
	clock.Advance(time.Minute)
	resolved, err = resolver.Resolve(models.PlatformDefaults(), nil, models.ThemeUpdate{
		"id":        "org-theme",
		"name":      "Org Theme",
		"version":   "2.1.0",
		"createdAt": createdAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if resolved.ID != "org-theme" || resolved.Name != "Org Theme" || resolved.Version != "2.1.0" {
		t.Fatalf("identity not preserved: %s %s %s", resolved.ID, resolved.Name, resolved.Version)
	}
	if !resolved.CreatedAt.Equal(createdAt) {
		t.Fatalf("createdAt = %v, want %v", resolved.CreatedAt, createdAt)
	}
	if !resolved.UpdatedAt.Equal(clock.Now()) {
		t.Fatalf("updatedAt not refreshed: %v", resolved.UpdatedAt)
	}
}

func TestResolve_MergeErrors(t *testing.T) {
	tests := []struct {
		name      string
		overrides models.ThemeUpdate
		path      string
	}{
		{name: "array_into_colors", overrides: models.ThemeUpdate{"colors": []any{"#000000"}}, path: "colors"},
		{name: "object_into_scalar", overrides: models.ThemeUpdate{"colors": map[string]any{"primary": map[string]any{"x": "y"}}}, path: "colors.primary"},
		{name: "scalar_into_nested_group", overrides: models.ThemeUpdate{"colors": map[string]any{"text": "#000000"}}, path: "colors.text"},
		{name: "array_into_spacing", overrides: models.ThemeUpdate{"spacing": []any{"1rem"}}, path: "spacing"},
		{name: "array_into_component", overrides: models.ThemeUpdate{"components": map[string]any{"button": []any{}}}, path: "components.button"},
		{name: "object_id", overrides: models.ThemeUpdate{"id": map[string]any{}}, path: "id"},
		{name: "number_into_string_leaf", overrides: models.ThemeUpdate{"layout": map[string]any{"headerHeight": 64}}, path: "layout.headerHeight"},
	}

	resolver := NewResolver(newMockClock())
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := resolver.Resolve(models.PlatformDefaults(), nil, test.overrides)
			var mergeErr *MergeError
			if !errors.As(err, &mergeErr) {
				t.Fatalf("Resolve() error = %v, want *MergeError", err)
			}
			if !strings.HasPrefix(mergeErr.Path, test.path) {
				t.Fatalf("merge error path = %q, want prefix %q", mergeErr.Path, test.path)
			}
		})
	}
}

func TestResolve_DoesNotMutateInputs(t *testing.T) {
	resolver := NewResolver(newMockClock())
	platform := models.PlatformDefaults()
	template := models.Theme{Colors: models.Colors{Primary: "#111111"}}
	overrides := models.ThemeUpdate{"colors": map[string]any{"secondary": "#222222"}}

	if _, err := resolver.Resolve(platform, &template, overrides); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if platform.Colors.Primary != models.PlatformDefaults().Colors.Primary {
		t.Fatalf("platform tier mutated")
	}
	if template.Colors.Secondary != "" {
		t.Fatalf("template tier mutated")
	}
	if len(overrides["colors"].(map[string]any)) != 1 {
		t.Fatalf("overrides mutated: %v", overrides)
	}
}
