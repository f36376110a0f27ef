// Package templates loads the embedded catalogue of template bases.
package templates

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/codr1/orgthemes/internal/models"
)

//go:embed catalog/templates.yaml
var catalogFS embed.FS

const catalogPath = "catalog/templates.yaml"

var (
	ErrNotFound = errors.New("template not found")

	templateIDRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)
)

// Template is one entry of the catalogue.
type Template struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Default     bool         `json:"default,omitempty"`
	Theme       models.Theme `json:"theme"`
}

type templateEntry struct {
	ID          string         `yaml:"id"`
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Default     bool           `yaml:"default"`
	Theme       map[string]any `yaml:"theme"`
}

// Catalog is an immutable, ordered set of templates.
type Catalog struct {
	templates []Template
	byID      map[string]int
	defaultID string
}

// Load parses the embedded catalogue.
func Load() (*Catalog, error) {
	return LoadFS(catalogFS, catalogPath)
}

// LoadFS parses a catalogue file from fsys.
func LoadFS(fsys fs.FS, path string) (*Catalog, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("open template catalogue: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalogue. Ids must be unique and at most one entry may be the default.
func Parse(data []byte) (*Catalog, error) {
	var entries []templateEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse template catalogue: %w", err)
	}

	c := &Catalog{
		templates: make([]Template, 0, len(entries)),
		byID:      make(map[string]int, len(entries)),
	}
	for i, entry := range entries {
		id := strings.TrimSpace(entry.ID)
		if !templateIDRegex.MatchString(id) {
			return nil, fmt.Errorf("template %d: invalid id %q", i+1, entry.ID)
		}
		if _, exists := c.byID[id]; exists {
			return nil, fmt.Errorf("template %q: duplicate id", id)
		}
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			return nil, fmt.Errorf("template %q: name is required", id)
		}
		if entry.Default {
			if c.defaultID != "" {
				return nil, fmt.Errorf("multiple default templates: %q and %q", c.defaultID, id)
			}
			c.defaultID = id
		}

		theme, err := themeFromEntry(entry.Theme)
		if err != nil {
			return nil, fmt.Errorf("template %q: %w", id, err)
		}
		theme.ID = id
		theme.TemplateID = id
		theme.Name = name

		c.byID[id] = len(c.templates)
		c.templates = append(c.templates, Template{
			ID:          id,
			Name:        name,
			Description: strings.TrimSpace(entry.Description),
			Default:     entry.Default,
			Theme:       theme,
		})
	}
	return c, nil
}

func themeFromEntry(raw map[string]any) (models.Theme, error) {
	if raw == nil {
		return models.Theme{}, nil
	}
	theme, err := models.FromMap(raw)
	if err != nil {
		return models.Theme{}, err
	}
	for path, value := range colorLeaves(theme.Colors, "colors") {
		if !models.IsHexColor(value) {
			return models.Theme{}, fmt.Errorf("%s: %q is not a hex color", path, value)
		}
	}
	if theme.DarkMode != nil {
		for path, value := range colorLeaves(theme.DarkMode.Colors, "darkMode.colors") {
			if !models.IsHexColor(value) {
				return models.Theme{}, fmt.Errorf("%s: %q is not a hex color", path, value)
			}
		}
	}
	return theme, nil
}

// colorLeaves returns the set color leaves of colors keyed by dotted path.
func colorLeaves(colors models.Colors, prefix string) map[string]string {
	tree, err := models.ToMap(models.Theme{Colors: colors})
	if err != nil {
		return nil
	}
	leaves := make(map[string]string)
	var walk func(path string, node any)
	walk = func(path string, node any) {
		switch v := node.(type) {
		case map[string]any:
			for key, child := range v {
				walk(path+"."+key, child)
			}
		case string:
			if v != "" {
				leaves[path] = v
			}
		}
	}
	walk(prefix, tree["colors"])
	return leaves
}

// All returns the templates in catalogue order.
func (c *Catalog) All() []Template {
	out := make([]Template, len(c.templates))
	for i, t := range c.templates {
		out[i] = t
		out[i].Theme = t.Theme.Clone()
	}
	return out
}

// IDs returns the template ids sorted alphabetically.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.byID))
	for id := range c.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Get returns a copy of the template base with the given id.
func (c *Catalog) Get(id string) (models.Theme, error) {
	i, ok := c.byID[strings.TrimSpace(id)]
	if !ok {
		return models.Theme{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return c.templates[i].Theme.Clone(), nil
}

// Lookup resolves an optional template id: an empty id yields nil, which means
// no template tier.
func (c *Catalog) Lookup(id string) (*models.Theme, error) {
	if strings.TrimSpace(id) == "" {
		return nil, nil
	}
	theme, err := c.Get(id)
	if err != nil {
		return nil, err
	}
	return &theme, nil
}

// DefaultID returns the id of the default template, or "" when none is marked.
func (c *Catalog) DefaultID() string {
	return c.defaultID
}
