package themes

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Tenant is one organization's engine and the sink it writes to.
type Tenant[S Sink] struct {
	OrganizationID string
	Engine         *Engine
	Sink           S
}

// TenantFactory builds the engine and sink for an organization.
type TenantFactory[S Sink] func(organizationID string) (*Engine, S, error)

// Registry lazily creates one Tenant per organization. Engines are never shared
// between organizations.
type Registry[S Sink] struct {
	mu      sync.Mutex
	build   TenantFactory[S]
	tenants map[string]*Tenant[S]
}

func NewRegistry[S Sink](build TenantFactory[S]) *Registry[S] {
	return &Registry[S]{
		build:   build,
		tenants: make(map[string]*Tenant[S]),
	}
}

// Get returns the tenant for organizationID, creating it on first use.
func (r *Registry[S]) Get(organizationID string) (*Tenant[S], error) {
	organizationID = strings.TrimSpace(organizationID)
	if organizationID == "" {
		return nil, fmt.Errorf("organization id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if tenant, ok := r.tenants[organizationID]; ok {
		return tenant, nil
	}
	engine, sink, err := r.build(organizationID)
	if err != nil {
		return nil, fmt.Errorf("build theme engine for organization %s: %w", organizationID, err)
	}
	tenant := &Tenant[S]{OrganizationID: organizationID, Engine: engine, Sink: sink}
	r.tenants[organizationID] = tenant
	return tenant, nil
}

// Lookup returns the tenant for organizationID without creating it.
func (r *Registry[S]) Lookup(organizationID string) (*Tenant[S], bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tenant, ok := r.tenants[organizationID]
	return tenant, ok
}

// Tenants returns a snapshot of all tenants ordered by organization id.
func (r *Registry[S]) Tenants() []*Tenant[S] {
	r.mu.Lock()
	tenants := make([]*Tenant[S], 0, len(r.tenants))
	for _, tenant := range r.tenants {
		tenants = append(tenants, tenant)
	}
	r.mu.Unlock()

	sort.Slice(tenants, func(i, j int) bool {
		return tenants[i].OrganizationID < tenants[j].OrganizationID
	})
	return tenants
}

// SweepCaches drops expired cache entries in every tenant engine.
func (r *Registry[S]) SweepCaches() int {
	removed := 0
	for _, tenant := range r.Tenants() {
		removed += tenant.Engine.SweepCache()
	}
	return removed
}
