package themes

import (
	"github.com/codr1/orgthemes/internal/deepmerge"
	"github.com/codr1/orgthemes/internal/models"
)

// Change is a changed leaf between two themes.
type Change = deepmerge.Change

// CreateThemeDiff returns the leaves that differ between before and after, keyed by
// dotted path (for example "colors.text.primary").
func (e *Engine) CreateThemeDiff(before, after models.Theme) (map[string]Change, error) {
	return DiffThemes(before, after)
}

func DiffThemes(before, after models.Theme) (map[string]Change, error) {
	from, err := models.ToMap(before)
	if err != nil {
		return nil, err
	}
	to, err := models.ToMap(after)
	if err != nil {
		return nil, err
	}
	return deepmerge.Diff(from, to), nil
}
