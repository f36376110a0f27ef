package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/codr1/orgthemes/internal/deepmerge"
)

// ThemeUpdate is a deep-partial theme in its JSON shape. It is only ever used as
// an override input and never as a resolved value.
type ThemeUpdate map[string]any

// ParseThemeUpdate decodes a JSON object into a ThemeUpdate.
func ParseThemeUpdate(data []byte) (ThemeUpdate, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return ThemeUpdate{}, nil
	}
	var update ThemeUpdate
	if err := json.Unmarshal(data, &update); err != nil {
		return nil, fmt.Errorf("decode theme update: %w", err)
	}
	if update == nil {
		update = ThemeUpdate{}
	}
	return update, nil
}

// UpdateFromTheme converts a partially populated Theme into an update. Zero-valued
// fields are omitted and therefore never override an earlier tier.
func UpdateFromTheme(t Theme) (ThemeUpdate, error) {
	m, err := ToMap(t)
	if err != nil {
		return nil, err
	}
	return ThemeUpdate(m), nil
}

// Normalize returns a deep copy of u with every value in its JSON form
// (numbers as float64, nested maps as map[string]any).
func (u ThemeUpdate) Normalize() (ThemeUpdate, error) {
	if u == nil {
		return ThemeUpdate{}, nil
	}
	data, err := json.Marshal(map[string]any(u))
	if err != nil {
		return nil, fmt.Errorf("encode theme update: %w", err)
	}
	return ParseThemeUpdate(data)
}

func (u ThemeUpdate) Clone() ThemeUpdate {
	if u == nil {
		return nil
	}
	return ThemeUpdate(deepmerge.CloneMap(u))
}

// ToMap converts t to its JSON tree.
func ToMap(t Theme) (map[string]any, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("encode theme: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode theme tree: %w", err)
	}
	return m, nil
}

// FromMap converts a JSON tree back to a Theme. A leaf of the wrong shape is
// reported as a *deepmerge.MergeError naming the offending path.
func FromMap(m map[string]any) (Theme, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return Theme{}, fmt.Errorf("encode theme tree: %w", err)
	}
	var t Theme
	if err := json.Unmarshal(data, &t); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return Theme{}, &deepmerge.MergeError{Path: typeErr.Field, Dst: typeErr.Type.String(), Src: typeErr.Value}
		}
		return Theme{}, fmt.Errorf("decode theme: %w", err)
	}
	return t, nil
}

// EmptyLeaves lists the dotted paths of required leaves that are missing in the
// six domain sub-trees (colors, typography, spacing, components, layout, branding).
func EmptyLeaves(t Theme) []string {
	var missing []string
	missing = appendEmptyStrings(missing, "colors", reflect.ValueOf(t.Colors))
	for _, stop := range NeutralStops {
		if t.Colors.Neutral[stop] == "" {
			missing = append(missing, "colors.neutral."+stop)
		}
	}
	missing = appendEmptyStrings(missing, "typography", reflect.ValueOf(t.Typography))
	for _, scale := range []struct {
		name   string
		values map[string]string
	}{
		{"typography.fontSize", t.Typography.FontSize},
		{"typography.fontWeight", t.Typography.FontWeight},
		{"typography.lineHeight", t.Typography.LineHeight},
		{"typography.letterSpacing", t.Typography.LetterSpacing},
	} {
		if len(scale.values) == 0 {
			missing = append(missing, scale.name)
		}
	}
	for _, step := range SpacingScale {
		if t.Spacing[step] == "" {
			missing = append(missing, "spacing."+step)
		}
	}
	if len(t.Components) == 0 {
		missing = append(missing, "components")
	}
	names := make([]string, 0, len(t.Components))
	for name := range t.Components {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if t.Components[name].BaseStyles == nil {
			missing = append(missing, "components."+name+".baseStyles")
		}
	}
	missing = appendEmptyStrings(missing, "layout", reflect.ValueOf(t.Layout))
	missing = appendEmptyStrings(missing, "branding", reflect.ValueOf(t.Branding))
	return missing
}

// appendEmptyStrings reports empty string fields of a struct, descending into
// nested structs. Map fields are checked by the caller.
func appendEmptyStrings(missing []string, prefix string, v reflect.Value) []string {
	typ := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := typ.Field(i)
		name := jsonName(field)
		path := prefix + "." + name
		switch fv := v.Field(i); fv.Kind() {
		case reflect.String:
			if fv.String() == "" {
				missing = append(missing, path)
			}
		case reflect.Struct:
			missing = appendEmptyStrings(missing, path, fv)
		}
	}
	return missing
}

func jsonName(field reflect.StructField) string {
	tag := field.Tag.Get("json")
	for i := 0; i < len(tag); i++ {
		if tag[i] == ',' {
			tag = tag[:i]
			break
		}
	}
	if tag == "" {
		return field.Name
	}
	return tag
}
