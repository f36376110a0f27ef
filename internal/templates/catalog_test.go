package templates

import (
	"errors"
	"strings"
	"testing"
	"testing/fstest"
)

func TestLoad(t *testing.T) {
	catalog, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	all := catalog.All()
	// templates.yaml currently defines 5 templates.
	if len(all) != 5 {
		t.Fatalf("template count = %d, want 5", len(all))
	}
	if catalog.DefaultID() != "slate" {
		t.Fatalf("default template = %q, want slate", catalog.DefaultID())
	}
	if all[0].ID != "slate" {
		t.Fatalf("catalogue order not kept: first is %q", all[0].ID)
	}

	ocean, err := catalog.Get("ocean")
	if err != nil {
		t.Fatalf("Get(ocean) error = %v", err)
	}
	if ocean.Colors.Primary != "#0369a1" || ocean.TemplateID != "ocean" || ocean.Name != "Ocean" {
		t.Fatalf("ocean = %+v", ocean)
	}
	if ocean.BorderRadius["lg"] != "0.75rem" {
		t.Fatalf("ocean border radius = %v", ocean.BorderRadius)
	}

	midnight, err := catalog.Get("midnight")
	if err != nil {
		t.Fatalf("Get(midnight) error = %v", err)
	}
	if midnight.DarkMode == nil || midnight.DarkMode.Colors.Background != "#0b1120" {
		t.Fatalf("midnight dark mode = %+v", midnight.DarkMode)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	catalog, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	ocean, _ := catalog.Get("ocean")
	ocean.BorderRadius["lg"] = "99rem"

	again, _ := catalog.Get("ocean")
	if again.BorderRadius["lg"] != "0.75rem" {
		t.Fatalf("catalogue mutated through a returned copy")
	}
}

func TestLookup(t *testing.T) {
	catalog, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	theme, err := catalog.Lookup("")
	if err != nil || theme != nil {
		t.Fatalf("Lookup(\"\") = %v, %v; want nil, nil", theme, err)
	}
	if _, err := catalog.Lookup("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Lookup(missing) error = %v, want ErrNotFound", err)
	}
	theme, err = catalog.Lookup("forest")
	if err != nil || theme == nil || theme.ID != "forest" {
		t.Fatalf("Lookup(forest) = %v, %v", theme, err)
	}
	if ids := catalog.IDs(); strings.Join(ids, ",") != "forest,midnight,ocean,slate,sunset" {
		t.Fatalf("IDs() = %v", ids)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "duplicate_id",
			yaml:    "- {id: a, name: A}\n- {id: a, name: B}\n",
			wantErr: "duplicate id",
		},
		{
			name:    "multiple_defaults",
			yaml:    "- {id: a, name: A, default: true}\n- {id: b, name: B, default: true}\n",
			wantErr: "multiple default templates",
		},
		{
			name:    "bad_id",
			yaml:    "- {id: Not Valid, name: A}\n",
			wantErr: "invalid id",
		},
		{
			name:    "missing_name",
			yaml:    "- {id: a}\n",
			wantErr: "name is required",
		},
		{
			name:    "bad_color",
			yaml:    "- id: a\n  name: A\n  theme:\n    colors:\n      text:\n        primary: black\n",
			wantErr: "colors.text.primary",
		},
		{
			name:    "wrong_shape",
			yaml:    "- id: a\n  name: A\n  theme:\n    spacing: [1, 2]\n",
			wantErr: "spacing",
		},
		{
			name:    "not_a_list",
			yaml:    "id: a\n",
			wantErr: "parse template catalogue",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Parse([]byte(test.yaml))
			if err == nil || !strings.Contains(err.Error(), test.wantErr) {
				t.Fatalf("Parse() error = %v, want %q", err, test.wantErr)
			}
		})
	}
}

func TestLoadFS(t *testing.T) {
	fsys := fstest.MapFS{
		"custom.yaml": {Data: []byte("- id: solo\n  name: Solo\n  theme:\n    colors:\n      primary: \"#123456\"\n")},
	}
	catalog, err := LoadFS(fsys, "custom.yaml")
	if err != nil {
		t.Fatalf("LoadFS() error = %v", err)
	}
	if catalog.DefaultID() != "" {
		t.Fatalf("no default expected, got %q", catalog.DefaultID())
	}
	if _, err := LoadFS(fsys, "missing.yaml"); err == nil {
		t.Fatalf("LoadFS() should fail for a missing file")
	}
}
