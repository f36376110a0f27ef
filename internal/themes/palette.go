package themes

import (
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/codr1/orgthemes/internal/models"
)

// genericFontFamilies are CSS generic family keywords. A resolved font stack must
// end in one of them.
var genericFontFamilies = []string{
	"serif", "sans-serif", "monospace", "cursive", "fantasy", "system-ui",
	"ui-serif", "ui-sans-serif", "ui-monospace", "ui-rounded", "emoji", "math",
}

const fontFallbackSuffix = ", system-ui, sans-serif"

// GenerateNeutralRamp builds an 11-stop neutral ramp by blending in CIE-Lab from the
// lighter of the two anchors to the darker one. Unparseable anchors yield the
// platform slate ramp.
func GenerateNeutralRamp(background, text string) map[string]string {
	light, errLight := colorful.Hex(strings.TrimSpace(background))
	dark, errDark := colorful.Hex(strings.TrimSpace(text))
	if errLight != nil || errDark != nil {
		return models.DefaultNeutralRamp()
	}
	lightL, _, _ := light.Lab()
	darkL, _, _ := dark.Lab()
	if lightL < darkL {
		light, dark = dark, light
	}
	if light.DistanceLab(dark) < 0.05 {
		return models.DefaultNeutralRamp()
	}

	ramp := make(map[string]string, len(models.NeutralStops))
	steps := float64(len(models.NeutralStops))
	for i, stop := range models.NeutralStops {
		t := (float64(i) + 0.5) / steps
		ramp[stop] = light.BlendLab(dark, t).Clamped().Hex()
	}
	return ramp
}

func neutralRampComplete(ramp map[string]string) bool {
	if len(ramp) < len(models.NeutralStops) {
		return false
	}
	for _, stop := range models.NeutralStops {
		if strings.TrimSpace(ramp[stop]) == "" {
			return false
		}
	}
	return true
}

// ensureFontFallback appends the generic fallback stack to a family list that does
// not already name a generic family.
func ensureFontFallback(family string) string {
	family = strings.TrimSpace(family)
	if family == "" {
		return family
	}
	for _, part := range strings.Split(family, ",") {
		name := strings.ToLower(strings.Trim(strings.TrimSpace(part), `"'`))
		for _, generic := range genericFontFamilies {
			if name == generic {
				return family
			}
		}
	}
	return strings.TrimRight(family, ", ") + fontFallbackSuffix
}
