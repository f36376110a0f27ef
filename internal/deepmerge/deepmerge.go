// Package deepmerge implements structural merge, clone and diff over JSON-shaped trees
// (map[string]any, []any and scalar leaves).
package deepmerge

import (
	"fmt"
	"reflect"
	"sort"
)

// MergeError reports a structural mismatch, such as merging an array into an object.
type MergeError struct {
	Path string
	Dst  string
	Src  string
}

func (e *MergeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("cannot merge %s into %s", e.Src, e.Dst)
	}
	return fmt.Sprintf("cannot merge %s into %s at %q", e.Src, e.Dst, e.Path)
}

// Change is a single changed leaf reported by Diff.
type Change struct {
	From any `json:"from"`
	To   any `json:"to"`
}

// Kind names the structural shape of a value: "object", "array", "null" or "scalar".
func Kind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	default:
		return "scalar"
	}
}

// Unset reports whether v must never overwrite a defined value.
// Empty strings count as unset since typed themes omit them when serialized.
func Unset(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	}
	return false
}

// Clone returns a deep copy of v.
func Clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = Clone(item)
		}
		return out
	default:
		return t
	}
}

// CloneMap returns a deep copy of m. A nil map clones to an empty one.
func CloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = Clone(v)
	}
	return out
}

// Merge deep-merges src onto a clone of dst. Nested objects are merged key by key,
// arrays and scalars from src replace those in dst, and unset src leaves are skipped.
func Merge(dst, src map[string]any) (map[string]any, error) {
	return mergeAt("", dst, src)
}

func mergeAt(path string, dst, src map[string]any) (map[string]any, error) {
	out := CloneMap(dst)
	for _, key := range sortedKeys(src) {
		value := src[key]
		if Unset(value) {
			continue
		}
		childPath := join(path, key)
		existing, ok := out[key]
		if !ok || Unset(existing) {
			out[key] = Clone(value)
			continue
		}
		if err := compatible(childPath, existing, value); err != nil {
			return nil, err
		}
		srcMap, isMap := value.(map[string]any)
		if !isMap {
			out[key] = Clone(value)
			continue
		}
		merged, err := mergeAt(childPath, existing.(map[string]any), srcMap)
		if err != nil {
			return nil, err
		}
		out[key] = merged
	}
	return out, nil
}

// Shallow assigns the top-level keys of src onto a clone of dst without descending
// into nested objects. Unset src values are skipped.
func Shallow(path string, dst, src map[string]any) (map[string]any, error) {
	out := CloneMap(dst)
	for _, key := range sortedKeys(src) {
		value := src[key]
		if Unset(value) {
			continue
		}
		if existing, ok := out[key]; ok && !Unset(existing) {
			if err := compatible(join(path, key), existing, value); err != nil {
				return nil, err
			}
		}
		out[key] = Clone(value)
	}
	return out, nil
}

// AsObject returns v as an object. A nil value yields (nil, nil); any other
// non-object yields a MergeError at path.
func AsObject(path string, v any) (map[string]any, error) {
	if v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, &MergeError{Path: path, Dst: "object", Src: Kind(v)}
	}
	return m, nil
}

func compatible(path string, dst, src any) error {
	dk, sk := Kind(dst), Kind(src)
	if dk == sk {
		return nil
	}
	if dk == "scalar" && sk == "scalar" {
		return nil
	}
	return &MergeError{Path: path, Dst: dk, Src: sk}
}

// Diff walks before and after and returns every changed leaf keyed by its dotted path.
// Nested objects are descended into; arrays and scalars are compared as whole values.
func Diff(before, after map[string]any) map[string]Change {
	changes := make(map[string]Change)
	diffAt("", before, after, changes)
	return changes
}

func diffAt(path string, before, after map[string]any, changes map[string]Change) {
	keys := make(map[string]struct{}, len(before)+len(after))
	for k := range before {
		keys[k] = struct{}{}
	}
	for k := range after {
		keys[k] = struct{}{}
	}
	for k := range keys {
		childPath := join(path, k)
		from, to := before[k], after[k]
		fromMap, fromIsMap := from.(map[string]any)
		toMap, toIsMap := to.(map[string]any)
		if fromIsMap && toIsMap {
			diffAt(childPath, fromMap, toMap, changes)
			continue
		}
		if !reflect.DeepEqual(from, to) {
			changes[childPath] = Change{From: from, To: to}
		}
	}
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

// sortedKeys keeps merge errors deterministic when several keys mismatch.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
