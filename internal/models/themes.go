// internal/models/themes.go
package models

import (
	"maps"
	"regexp"
	"strings"
	"time"

	"github.com/codr1/orgthemes/internal/deepmerge"
)

var hexColorRegex = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

func IsHexColor(value string) bool {
	return hexColorRegex.MatchString(strings.TrimSpace(value))
}

// NeutralStops lists the stops of a complete neutral ramp, lightest first.
var NeutralStops = []string{"50", "100", "200", "300", "400", "500", "600", "700", "800", "900", "950"}

// SpacingScale lists the named spacing steps every resolved theme carries.
var SpacingScale = []string{"xs", "sm", "md", "lg", "xl", "2xl", "3xl", "4xl", "5xl", "6xl"}

type TextColors struct {
	Primary   string `json:"primary,omitempty"`
	Secondary string `json:"secondary,omitempty"`
	Muted     string `json:"muted,omitempty"`
}

type Colors struct {
	Primary     string            `json:"primary,omitempty"`
	Secondary   string            `json:"secondary,omitempty"`
	Accent      string            `json:"accent,omitempty"`
	Background  string            `json:"background,omitempty"`
	Surface     string            `json:"surface,omitempty"`
	Text        TextColors        `json:"text"`
	Border      string            `json:"border,omitempty"`
	Input       string            `json:"input,omitempty"`
	Ring        string            `json:"ring,omitempty"`
	Destructive string            `json:"destructive,omitempty"`
	Warning     string            `json:"warning,omitempty"`
	Success     string            `json:"success,omitempty"`
	Info        string            `json:"info,omitempty"`
	Neutral     map[string]string `json:"neutral,omitempty"`
}

type Typography struct {
	FontFamily    string            `json:"fontFamily,omitempty"`
	HeadingFont   string            `json:"headingFont,omitempty"`
	FontSize      map[string]string `json:"fontSize,omitempty"`
	FontWeight    map[string]string `json:"fontWeight,omitempty"`
	LineHeight    map[string]string `json:"lineHeight,omitempty"`
	LetterSpacing map[string]string `json:"letterSpacing,omitempty"`
}

// ComponentStyle is the per-component slice of a theme. CustomCSS is raw CSS
// appended after the generated rules for the component.
type ComponentStyle struct {
	Variants     map[string]map[string]string `json:"variants,omitempty"`
	BaseStyles   map[string]string            `json:"baseStyles,omitempty"`
	DefaultProps map[string]any               `json:"defaultProps,omitempty"`
	CustomCSS    string                       `json:"customCSS,omitempty"`
}

type Branding struct {
	Logo           string `json:"logo,omitempty"`
	LogoDark       string `json:"logoDark,omitempty"`
	Favicon        string `json:"favicon,omitempty"`
	AppIcon        string `json:"appIcon,omitempty"`
	AppleTouchIcon string `json:"appleTouchIcon,omitempty"`
	OGImage        string `json:"ogImage,omitempty"`
}

type Layout struct {
	SidebarWidth          string `json:"sidebarWidth,omitempty"`
	SidebarCollapsedWidth string `json:"sidebarCollapsedWidth,omitempty"`
	HeaderHeight          string `json:"headerHeight,omitempty"`
	FooterHeight          string `json:"footerHeight,omitempty"`
	ContainerMaxWidth     string `json:"containerMaxWidth,omitempty"`
	ContentPadding        string `json:"contentPadding,omitempty"`
	SectionGap            string `json:"sectionGap,omitempty"`
	CardGap               string `json:"cardGap,omitempty"`
}

type Animations struct {
	Duration    map[string]string `json:"duration,omitempty"`
	Easing      map[string]string `json:"easing,omitempty"`
	Transitions map[string]string `json:"transitions,omitempty"`
}

// DarkMode carries the color and shadow overrides used when the dark scheme is active.
type DarkMode struct {
	Colors  Colors            `json:"colors"`
	Shadows map[string]string `json:"shadows,omitempty"`
}

type Theme struct {
	ID             string                    `json:"id,omitempty"`
	Name           string                    `json:"name,omitempty"`
	Version        string                    `json:"version,omitempty"`
	OrganizationID string                    `json:"organizationId,omitempty"`
	TemplateID     string                    `json:"templateId,omitempty"`
	Colors         Colors                    `json:"colors"`
	Typography     Typography                `json:"typography"`
	Spacing        map[string]string         `json:"spacing,omitempty"`
	BorderRadius   map[string]string         `json:"borderRadius,omitempty"`
	Shadows        map[string]string         `json:"shadows,omitempty"`
	Components     map[string]ComponentStyle `json:"components,omitempty"`
	Branding       Branding                  `json:"branding"`
	Layout         Layout                    `json:"layout"`
	Animations     Animations                `json:"animations"`
	DarkMode       *DarkMode                 `json:"darkMode,omitempty"`
	CreatedAt      *time.Time                `json:"createdAt,omitempty"`
	UpdatedAt      *time.Time                `json:"updatedAt,omitempty"`
}

// Clone returns a deep copy that shares no maps or pointers with t.
func (t Theme) Clone() Theme {
	out := t
	out.Colors = t.Colors.clone()
	out.Typography = Typography{
		FontFamily:    t.Typography.FontFamily,
		HeadingFont:   t.Typography.HeadingFont,
		FontSize:      maps.Clone(t.Typography.FontSize),
		FontWeight:    maps.Clone(t.Typography.FontWeight),
		LineHeight:    maps.Clone(t.Typography.LineHeight),
		LetterSpacing: maps.Clone(t.Typography.LetterSpacing),
	}
	out.Spacing = maps.Clone(t.Spacing)
	out.BorderRadius = maps.Clone(t.BorderRadius)
	out.Shadows = maps.Clone(t.Shadows)
	if t.Components != nil {
		out.Components = make(map[string]ComponentStyle, len(t.Components))
		for name, component := range t.Components {
			out.Components[name] = component.clone()
		}
	}
	out.Animations = Animations{
		Duration:    maps.Clone(t.Animations.Duration),
		Easing:      maps.Clone(t.Animations.Easing),
		Transitions: maps.Clone(t.Animations.Transitions),
	}
	if t.DarkMode != nil {
		out.DarkMode = &DarkMode{
			Colors:  t.DarkMode.Colors.clone(),
			Shadows: maps.Clone(t.DarkMode.Shadows),
		}
	}
	out.CreatedAt = cloneTime(t.CreatedAt)
	out.UpdatedAt = cloneTime(t.UpdatedAt)
	return out
}

func (c Colors) clone() Colors {
	c.Neutral = maps.Clone(c.Neutral)
	return c
}

func (c ComponentStyle) clone() ComponentStyle {
	out := ComponentStyle{
		BaseStyles: maps.Clone(c.BaseStyles),
		CustomCSS:  c.CustomCSS,
	}
	if c.Variants != nil {
		out.Variants = make(map[string]map[string]string, len(c.Variants))
		for name, styles := range c.Variants {
			out.Variants[name] = maps.Clone(styles)
		}
	}
	if c.DefaultProps != nil {
		out.DefaultProps = deepmerge.CloneMap(c.DefaultProps)
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
