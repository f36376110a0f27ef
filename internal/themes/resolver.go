package themes

import (
	"strconv"

	"github.com/codr1/orgthemes/internal/deepmerge"
	"github.com/codr1/orgthemes/internal/models"
)

// ThemeInheritance records one resolution: the inputs of every tier and the result.
type ThemeInheritance struct {
	PlatformDefaults      models.Theme       `json:"platformDefaults"`
	TemplateBase          *models.Theme      `json:"templateBase,omitempty"`
	OrganizationOverrides models.ThemeUpdate `json:"organizationOverrides"`
	Resolved              models.Theme       `json:"resolved"`
}

// Domains merged key by key at every depth.
var deepDomains = []string{"colors", "typography", "animations", "darkMode"}

// Domains whose leaves are scalar and only need top-level assignment.
var shallowDomains = []string{"spacing", "layout", "branding", "borderRadius", "shadows"}

var scalarFields = []string{"id", "name", "version", "organizationId", "templateId", "createdAt", "updatedAt"}

// componentMergeFields are shallow-merged per component; customCSS is replaced outright.
var componentMergeFields = []string{"variants", "baseStyles", "defaultProps"}

// Resolver merges the platform → template → organization tiers into a complete theme.
// It holds no mutable state and is safe for concurrent use.
type Resolver struct {
	clock Clock
}

func NewResolver(clock Clock) *Resolver {
	if clock == nil {
		clock = realClock{}
	}
	return &Resolver{clock: clock}
}

// Resolve merges the tiers in order, later defined leaves winning, then fills derived
// values and normalizes identity fields. A structural mismatch between tiers returns
// a *MergeError and no theme.
func (r *Resolver) Resolve(platform models.Theme, template *models.Theme, overrides models.ThemeUpdate) (models.Theme, error) {
	merged, err := models.ToMap(platform)
	if err != nil {
		return models.Theme{}, err
	}

	tiers := make([]map[string]any, 0, 2)
	if template != nil {
		templateMap, err := models.ToMap(*template)
		if err != nil {
			return models.Theme{}, err
		}
		tiers = append(tiers, templateMap)
	}
	if overrides != nil {
		normalized, err := overrides.Normalize()
		if err != nil {
			return models.Theme{}, err
		}
		tiers = append(tiers, normalized)
	}

	for _, tier := range tiers {
		if merged, err = mergeTier(merged, tier); err != nil {
			return models.Theme{}, err
		}
	}

	resolved, err := models.FromMap(merged)
	if err != nil {
		return models.Theme{}, err
	}
	r.fillDerived(&resolved)
	r.normalize(&resolved)
	return resolved, nil
}

func mergeTier(base, tier map[string]any) (map[string]any, error) {
	out := deepmerge.CloneMap(base)

	for _, field := range scalarFields {
		value, ok := tier[field]
		if !ok || deepmerge.Unset(value) {
			continue
		}
		if kind := deepmerge.Kind(value); kind != "scalar" {
			return nil, &MergeError{Path: field, Dst: "scalar", Src: kind}
		}
		out[field] = value
	}

	for _, domain := range deepDomains {
		src, err := deepmerge.AsObject(domain, tier[domain])
		if err != nil {
			return nil, err
		}
		if src == nil {
			continue
		}
		dst, err := deepmerge.AsObject(domain, out[domain])
		if err != nil {
			return nil, err
		}
		merged, err := mergeNested(domain, dst, src)
		if err != nil {
			return nil, err
		}
		out[domain] = merged
	}

	for _, domain := range shallowDomains {
		src, err := deepmerge.AsObject(domain, tier[domain])
		if err != nil {
			return nil, err
		}
		if src == nil {
			continue
		}
		dst, err := deepmerge.AsObject(domain, out[domain])
		if err != nil {
			return nil, err
		}
		merged, err := deepmerge.Shallow(domain, dst, src)
		if err != nil {
			return nil, err
		}
		out[domain] = merged
	}

	components, err := mergeComponents(out["components"], tier["components"])
	if err != nil {
		return nil, err
	}
	if components != nil {
		out["components"] = components
	}
	return out, nil
}

func mergeNested(path string, dst, src map[string]any) (map[string]any, error) {
	merged, err := deepmerge.Merge(dst, src)
	if err != nil {
		if mergeErr, ok := err.(*MergeError); ok {
			mergeErr.Path = path + "." + mergeErr.Path
		}
		return nil, err
	}
	return merged, nil
}

func mergeComponents(base, tier any) (map[string]any, error) {
	src, err := deepmerge.AsObject("components", tier)
	if err != nil {
		return nil, err
	}
	dst, err := deepmerge.AsObject("components", base)
	if err != nil {
		return nil, err
	}
	if src == nil {
		return dst, nil
	}

	out := deepmerge.CloneMap(dst)
	for name, raw := range src {
		path := "components." + name
		component, err := deepmerge.AsObject(path, raw)
		if err != nil {
			return nil, err
		}
		if component == nil {
			continue
		}
		existing, err := deepmerge.AsObject(path, out[name])
		if err != nil {
			return nil, err
		}
		merged := deepmerge.CloneMap(existing)
		for _, field := range componentMergeFields {
			fieldPath := path + "." + field
			srcField, err := deepmerge.AsObject(fieldPath, component[field])
			if err != nil {
				return nil, err
			}
			if srcField == nil {
				continue
			}
			dstField, err := deepmerge.AsObject(fieldPath, merged[field])
			if err != nil {
				return nil, err
			}
			if merged[field], err = deepmerge.Shallow(fieldPath, dstField, srcField); err != nil {
				return nil, err
			}
		}
		if css, ok := component["customCSS"]; ok && !deepmerge.Unset(css) {
			if kind := deepmerge.Kind(css); kind != "scalar" {
				return nil, &MergeError{Path: path + ".customCSS", Dst: "scalar", Src: kind}
			}
			merged["customCSS"] = css
		}
		out[name] = merged
	}
	return out, nil
}

func (r *Resolver) fillDerived(t *models.Theme) {
	colors := &t.Colors
	if colors.Success == "" {
		colors.Success = models.DefaultSuccessColor
	}
	if colors.Warning == "" {
		colors.Warning = models.DefaultWarningColor
	}
	if colors.Info == "" {
		colors.Info = models.DefaultInfoColor
	}
	if colors.Destructive == "" {
		colors.Destructive = models.DefaultDestructiveColor
	}
	if !neutralRampComplete(colors.Neutral) {
		colors.Neutral = GenerateNeutralRamp(colors.Background, colors.Text.Primary)
	}

	t.Typography.FontFamily = ensureFontFallback(t.Typography.FontFamily)
	t.Typography.HeadingFont = ensureFontFallback(t.Typography.HeadingFont)
	if t.DarkMode != nil && len(t.DarkMode.Colors.Neutral) > 0 && !neutralRampComplete(t.DarkMode.Colors.Neutral) {
		t.DarkMode.Colors.Neutral = GenerateNeutralRamp(t.DarkMode.Colors.Background, t.DarkMode.Colors.Text.Primary)
	}
}

func (r *Resolver) normalize(t *models.Theme) {
	now := r.clock.Now().UTC()
	if t.ID == "" || t.ID == models.PlatformThemeID {
		t.ID = "theme-" + strconv.FormatInt(now.UnixMilli(), 10)
	}
	if t.Name == "" || t.Name == models.PlatformThemeName {
		t.Name = models.DefaultThemeName
	}
	if t.Version == "" {
		t.Version = models.DefaultThemeVersion
	}
	if t.CreatedAt == nil {
		created := now
		t.CreatedAt = &created
	}
	t.UpdatedAt = &now
}
