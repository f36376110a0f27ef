package cssgen

import (
	"context"
	"strings"
	"testing"

	"github.com/codr1/orgthemes/internal/models"
)

func TestGenerate_RootVariables(t *testing.T) {
	theme := models.PlatformDefaults()

	css, err := New().Generate(context.Background(), theme)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !strings.HasPrefix(css, ":root{--theme-primary:#3b82f6;") {
		t.Fatalf("css should start with the primary variable, got %q", css[:60])
	}
	for _, want := range []string{
		"--theme-text-primary:#0f172a;",
		"--theme-neutral-950:#020617;",
		"--theme-font-family:Inter, system-ui, sans-serif;",
		"--theme-font-size-base:1rem;",
		"--theme-spacing-6xl:6rem;",
		"--theme-radius-full:9999px;",
		"--theme-shadow-sm:0 1px 2px 0 rgb(0 0 0 / 0.05);",
		"--theme-sidebar-width:16rem;",
		"--theme-duration-fast:150ms;",
		"--theme-easing-default:cubic-bezier(0.4, 0, 0.2, 1);",
	} {
		if !strings.Contains(css, want) {
			t.Fatalf("css missing %q", want)
		}
	}
}

func TestGenerate_ComponentRules(t *testing.T) {
	theme := models.PlatformDefaults()
	button := theme.Components["button"]
	button.CustomCSS = ".theme-button:hover{filter:brightness(1.1)}</style><script>"
	theme.Components["button"] = button

	css, err := New().Generate(context.Background(), theme)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	for _, want := range []string{
		".theme-button{border-radius:var(--theme-radius-md);font-weight:500;padding:0.5rem 1rem;}",
		".theme-button--ghost{background:transparent;color:var(--theme-text-primary);}",
		".theme-card{",
		".theme-button:hover{filter:brightness(1.1)}",
	} {
		if !strings.Contains(css, want) {
			t.Fatalf("css missing %q in\n%s", want, css)
		}
	}
	if strings.Contains(strings.ToLower(css), "</style") {
		t.Fatalf("custom css must not close the style element")
	}
}

func TestGenerate_SkipsUnsafeDeclarations(t *testing.T) {
	theme := models.PlatformDefaults()
	theme.Colors.Accent = "red;}body{display:none"
	theme.Spacing["bad key"] = "1rem"

	css, err := New().Generate(context.Background(), theme)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if strings.Contains(css, "display:none") || strings.Contains(css, "bad key") {
		t.Fatalf("unsafe declaration emitted: %s", css)
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	theme := models.PlatformDefaults()
	first, _ := New().Generate(context.Background(), theme)
	for i := 0; i < 5; i++ {
		again, _ := New().Generate(context.Background(), theme.Clone())
		if again != first {
			t.Fatalf("output differs between runs")
		}
	}
}

func TestGenerate_Pretty(t *testing.T) {
	g := &Generator{}
	css, err := g.Generate(context.Background(), models.PlatformDefaults())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !strings.Contains(css, ":root{\n  --theme-primary:#3b82f6;") {
		t.Fatalf("pretty output not indented: %q", css[:40])
	}
}

func TestGenerate_RequiresPrimary(t *testing.T) {
	if _, err := New().Generate(context.Background(), models.Theme{ID: "empty"}); err == nil {
		t.Fatalf("Generate() should fail without a primary color")
	}
}

func TestGenerateDarkMode(t *testing.T) {
	theme := models.PlatformDefaults()
	if _, err := New().GenerateDarkMode(context.Background(), theme); err == nil {
		t.Fatalf("GenerateDarkMode() should fail without dark mode")
	}

	theme.DarkMode = &models.DarkMode{
		Colors:  models.Colors{Background: "#020617", Text: models.TextColors{Primary: "#f8fafc"}},
		Shadows: map[string]string{"sm": "0 1px 2px 0 rgb(0 0 0 / 0.4)"},
	}
	css, err := New().GenerateDarkMode(context.Background(), theme)
	if err != nil {
		t.Fatalf("GenerateDarkMode() error = %v", err)
	}
	want := `[data-theme-mode="dark"]{--theme-background:#020617;--theme-text-primary:#f8fafc;--theme-shadow-sm:0 1px 2px 0 rgb(0 0 0 / 0.4);}`
	if css != want {
		t.Fatalf("css = %q, want %q", css, want)
	}
}
