package models

// Status colors fill gaps the inheritance chain leaves open.
const (
	DefaultSuccessColor     = "#16a34a"
	DefaultWarningColor     = "#d97706"
	DefaultInfoColor        = "#0284c7"
	DefaultDestructiveColor = "#dc2626"
)

const (
	PlatformThemeID      = "platform-default"
	PlatformThemeName    = "Platform Default"
	DefaultThemeName     = "Custom Theme"
	DefaultThemeVersion  = "1.0.0"
	defaultThemePrimary  = "#3b82f6"
	defaultThemeFontBody = "Inter, system-ui, sans-serif"
)

// DefaultNeutralRamp is the slate palette used when no ramp can be derived.
func DefaultNeutralRamp() map[string]string {
	return map[string]string{
		"50":  "#f8fafc",
		"100": "#f1f5f9",
		"200": "#e2e8f0",
		"300": "#cbd5e1",
		"400": "#94a3b8",
		"500": "#64748b",
		"600": "#475569",
		"700": "#334155",
		"800": "#1e293b",
		"900": "#0f172a",
		"950": "#020617",
	}
}

// PlatformDefaults returns the fully populated baseline every resolution starts from.
// Each call builds a fresh value.
func PlatformDefaults() Theme {
	return Theme{
		ID:      PlatformThemeID,
		Name:    PlatformThemeName,
		Version: DefaultThemeVersion,
		Colors: Colors{
			Primary:    defaultThemePrimary,
			Secondary:  "#64748b",
			Accent:     "#8b5cf6",
			Background: "#ffffff",
			Surface:    "#f8fafc",
			Text: TextColors{
				Primary:   "#0f172a",
				Secondary: "#475569",
				Muted:     "#94a3b8",
			},
			Border:      "#e2e8f0",
			Input:       "#e2e8f0",
			Ring:        defaultThemePrimary,
			Destructive: DefaultDestructiveColor,
			Warning:     DefaultWarningColor,
			Success:     DefaultSuccessColor,
			Info:        DefaultInfoColor,
			Neutral:     DefaultNeutralRamp(),
		},
		Typography: Typography{
			FontFamily:  defaultThemeFontBody,
			HeadingFont: defaultThemeFontBody,
			FontSize: map[string]string{
				"xs":   "0.75rem",
				"sm":   "0.875rem",
				"base": "1rem",
				"lg":   "1.125rem",
				"xl":   "1.25rem",
				"2xl":  "1.5rem",
				"3xl":  "1.875rem",
				"4xl":  "2.25rem",
			},
			FontWeight: map[string]string{
				"light":    "300",
				"normal":   "400",
				"medium":   "500",
				"semibold": "600",
				"bold":     "700",
			},
			LineHeight: map[string]string{
				"tight":   "1.25",
				"normal":  "1.5",
				"relaxed": "1.75",
			},
			LetterSpacing: map[string]string{
				"tight":  "-0.025em",
				"normal": "0",
				"wide":   "0.025em",
			},
		},
		Spacing: map[string]string{
			"xs":  "0.25rem",
			"sm":  "0.5rem",
			"md":  "1rem",
			"lg":  "1.5rem",
			"xl":  "2rem",
			"2xl": "2.5rem",
			"3xl": "3rem",
			"4xl": "4rem",
			"5xl": "5rem",
			"6xl": "6rem",
		},
		BorderRadius: map[string]string{
			"none": "0",
			"sm":   "0.125rem",
			"md":   "0.375rem",
			"lg":   "0.5rem",
			"xl":   "0.75rem",
			"full": "9999px",
		},
		Shadows: map[string]string{
			"sm": "0 1px 2px 0 rgb(0 0 0 / 0.05)",
			"md": "0 4px 6px -1px rgb(0 0 0 / 0.1)",
			"lg": "0 10px 15px -3px rgb(0 0 0 / 0.1)",
			"xl": "0 20px 25px -5px rgb(0 0 0 / 0.1)",
		},
		Components: map[string]ComponentStyle{
			"button": {
				Variants: map[string]map[string]string{
					"primary":   {"background": "var(--theme-primary)", "color": "#ffffff"},
					"secondary": {"background": "var(--theme-secondary)", "color": "#ffffff"},
					"ghost":     {"background": "transparent", "color": "var(--theme-text-primary)"},
				},
				BaseStyles: map[string]string{
					"border-radius": "var(--theme-radius-md)",
					"font-weight":   "500",
					"padding":       "0.5rem 1rem",
				},
				DefaultProps: map[string]any{"variant": "primary", "size": "md"},
			},
			"card": {
				BaseStyles: map[string]string{
					"background":    "var(--theme-surface)",
					"border":        "1px solid var(--theme-border)",
					"border-radius": "var(--theme-radius-lg)",
					"box-shadow":    "var(--theme-shadow-sm)",
				},
			},
			"input": {
				BaseStyles: map[string]string{
					"border":        "1px solid var(--theme-input)",
					"border-radius": "var(--theme-radius-md)",
					"padding":       "0.5rem 0.75rem",
				},
				DefaultProps: map[string]any{"size": "md"},
			},
		},
		Branding: Branding{
			Logo:           "/static/images/logo.svg",
			LogoDark:       "/static/images/logo-dark.svg",
			Favicon:        "/static/favicon.ico",
			AppIcon:        "/static/images/app-icon.png",
			AppleTouchIcon: "/static/images/apple-touch-icon.png",
			OGImage:        "/static/images/og-image.png",
		},
		Layout: Layout{
			SidebarWidth:          "16rem",
			SidebarCollapsedWidth: "4rem",
			HeaderHeight:          "4rem",
			FooterHeight:          "3rem",
			ContainerMaxWidth:     "80rem",
			ContentPadding:        "1.5rem",
			SectionGap:            "2rem",
			CardGap:               "1rem",
		},
		Animations: Animations{
			Duration: map[string]string{
				"fast":   "150ms",
				"normal": "250ms",
				"slow":   "400ms",
			},
			Easing: map[string]string{
				"default": "cubic-bezier(0.4, 0, 0.2, 1)",
				"in":      "cubic-bezier(0.4, 0, 1, 1)",
				"out":     "cubic-bezier(0, 0, 0.2, 1)",
			},
			Transitions: map[string]string{
				"colors":    "color, background-color, border-color",
				"transform": "transform",
			},
		},
	}
}
