// Package sink provides Document, an in-memory application sink holding one
// organization's injected stylesheet, root attributes and custom properties.
package sink

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/codr1/orgthemes/internal/themes"
)

// Snapshot is a point-in-time copy of a Document.
type Snapshot struct {
	CSS              string            `json:"css"`
	Attributes       map[string]string `json:"attributes"`
	CustomProperties map[string]string `json:"customProperties"`
	Revision         uint64            `json:"revision"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// Document is safe for concurrent use. Every write bumps the revision.
type Document struct {
	mu         sync.RWMutex
	css        string
	attributes map[string]string
	properties map[string]string
	revision   uint64
	updatedAt  time.Time
	now        func() time.Time
}

func NewDocument() *Document {
	return &Document{
		attributes: make(map[string]string),
		properties: make(map[string]string),
		now:        time.Now,
	}
}

var _ themes.Sink = (*Document)(nil)

// InjectCSS replaces the injected stylesheet.
func (d *Document) InjectCSS(ctx context.Context, css string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.css = css
	d.touch()
	return nil
}

func (d *Document) SetAttribute(ctx context.Context, name, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !strings.HasPrefix(name, "data-") {
		return fmt.Errorf("attribute %q must be a data attribute", name)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.attributes[name] = value
	d.touch()
	return nil
}

func (d *Document) SetCustomProperty(ctx context.Context, name, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !strings.HasPrefix(name, "--") {
		return fmt.Errorf("custom property %q must start with --", name)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.properties[name] = value
	d.touch()
	return nil
}

// touch must be called with mu held.
func (d *Document) touch() {
	d.revision++
	d.updatedAt = d.now().UTC()
}

func (d *Document) CSS() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.css
}

func (d *Document) Attribute(name string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	value, ok := d.attributes[name]
	return value, ok
}

func (d *Document) Revision() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.revision
}

func (d *Document) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return Snapshot{
		CSS:              d.css,
		Attributes:       maps.Clone(d.attributes),
		CustomProperties: maps.Clone(d.properties),
		Revision:         d.revision,
		UpdatedAt:        d.updatedAt,
	}
}

// Stylesheet renders the document as a standalone stylesheet: the custom properties
// set directly on the root, followed by the injected CSS.
func (d *Document) Stylesheet() string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var b strings.Builder
	if len(d.properties) > 0 {
		names := make([]string, 0, len(d.properties))
		for name := range d.properties {
			names = append(names, name)
		}
		sort.Strings(names)
		b.WriteString(":root{")
		for _, name := range names {
			b.WriteString(name)
			b.WriteByte(':')
			b.WriteString(d.properties[name])
			b.WriteByte(';')
		}
		b.WriteString("}")
	}
	if d.css != "" {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(d.css)
	}
	return b.String()
}
