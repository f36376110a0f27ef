// internal/api/themes/handlers.go
package themes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/codr1/orgthemes/internal/api/apiutil"
	"github.com/codr1/orgthemes/internal/models"
	"github.com/codr1/orgthemes/internal/ratelimit"
	"github.com/codr1/orgthemes/internal/request"
	"github.com/codr1/orgthemes/internal/sink"
	"github.com/codr1/orgthemes/internal/store"
	"github.com/codr1/orgthemes/internal/templates"
	"github.com/codr1/orgthemes/internal/themes"
)

const (
	defaultOperationTimeout = 5 * time.Second
	themeIDParam            = "themeId"
	templateIDParam         = "templateId"
	maxAppliesLimit         = 200
)

var (
	deps     *Deps
	depsOnce sync.Once
)

type themeStore interface {
	Load(ctx context.Context, organizationID string) (store.OrganizationTheme, error)
	Save(ctx context.Context, theme store.OrganizationTheme) (store.OrganizationTheme, error)
	Delete(ctx context.Context, organizationID string) error
	RecordApply(ctx context.Context, record store.ApplyRecord) (store.ApplyRecord, error)
	RecentApplies(ctx context.Context, organizationID string, limit int) ([]store.ApplyRecord, error)
}

// Deps are the collaborators shared by every theme handler.
type Deps struct {
	Registry *themes.Registry[*sink.Document]
	Store    themeStore
	Catalog  *templates.Catalog
	// Limiter throttles PUT requests per organization. Nil disables throttling.
	Limiter *ratelimit.Limiter
	// Timeout bounds store and engine work inside one request.
	Timeout time.Duration
}

type themeRequest struct {
	TemplateID *string         `json:"templateId"`
	Overrides  json.RawMessage `json:"overrides"`
}

type diffRequest struct {
	Before models.Theme `json:"before"`
	After  models.Theme `json:"after"`
}

type templateSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Default     bool   `json:"default,omitempty"`
}

type templatesResponse struct {
	DefaultID string            `json:"defaultId,omitempty"`
	Templates []templateSummary `json:"templates"`
}

type orgThemeResponse struct {
	OrganizationID string                  `json:"organizationId"`
	TemplateID     string                  `json:"templateId,omitempty"`
	Stored         bool                    `json:"stored"`
	State          themes.State            `json:"state"`
	Inheritance    themes.ThemeInheritance `json:"inheritance"`
	Active         *models.Theme           `json:"active,omitempty"`
}

type applyResponse struct {
	OrganizationID string                   `json:"organizationId"`
	Outcome        string                   `json:"outcome"`
	CacheKey       string                   `json:"cacheKey"`
	Resolved       models.Theme             `json:"resolved"`
	Active         models.Theme             `json:"active"`
	Diff           map[string]themes.Change `json:"diff"`
}

type previewResponse struct {
	OrganizationID string                   `json:"organizationId"`
	CacheKey       string                   `json:"cacheKey"`
	Resolved       models.Theme             `json:"resolved"`
	Diff           map[string]themes.Change `json:"diff"`
}

type diffResponse struct {
	Changes map[string]themes.Change `json:"changes"`
}

type removedResponse struct {
	Removed int `json:"removed"`
}

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(d Deps) {
	if d.Registry == nil || d.Store == nil || d.Catalog == nil {
		return
	}
	if d.Timeout <= 0 {
		d.Timeout = defaultOperationTimeout
	}
	depsOnce.Do(func() {
		deps = &d
	})
}

func loadDeps() *Deps {
	return deps
}

// HandleDefaults handles GET /api/v1/themes/defaults.
func HandleDefaults(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, models.PlatformDefaults())
}

// HandleTemplates handles GET /api/v1/themes/templates.
func HandleTemplates(w http.ResponseWriter, r *http.Request) {
	d := loadDeps()
	if d == nil {
		notInitialized(w, r)
		return
	}

	all := d.Catalog.All()
	resp := templatesResponse{
		DefaultID: d.Catalog.DefaultID(),
		Templates: make([]templateSummary, 0, len(all)),
	}
	for _, t := range all {
		resp.Templates = append(resp.Templates, templateSummary{
			ID:          t.ID,
			Name:        t.Name,
			Description: t.Description,
			Default:     t.Default,
		})
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// HandleTemplate handles GET /api/v1/themes/templates/{templateId}.
func HandleTemplate(w http.ResponseWriter, r *http.Request) {
	d := loadDeps()
	if d == nil {
		notInitialized(w, r)
		return
	}

	theme, err := d.Catalog.Get(r.PathValue(templateIDParam))
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, theme)
}

// HandleDiff handles POST /api/v1/themes/diff.
func HandleDiff(w http.ResponseWriter, r *http.Request) {
	var req diffRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	changes, err := themes.DiffThemes(req.Before, req.After)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, diffResponse{Changes: changes})
}

// HandleOrgTheme handles GET /api/v1/orgs/{id}/theme.
func HandleOrgTheme(w http.ResponseWriter, r *http.Request) {
	d := loadDeps()
	if d == nil {
		notInitialized(w, r)
		return
	}
	organizationID, ok := request.OrganizationID(r)
	if !ok {
		http.Error(w, "Invalid organization ID", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), d.Timeout)
	defer cancel()

	tenant, err := d.Registry.Get(organizationID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	stored, found, err := d.loadStored(ctx, organizationID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	template, err := d.Catalog.Lookup(stored.TemplateID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	inheritance, err := tenant.Engine.ResolveTheme(withOrganization(stored.Overrides, organizationID), template)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	resp := orgThemeResponse{
		OrganizationID: organizationID,
		TemplateID:     stored.TemplateID,
		Stored:         found,
		State:          tenant.Engine.State(),
		Inheritance:    inheritance,
	}
	if active, ok := tenant.Engine.ActiveTheme(); ok {
		resp.Active = &active
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// HandleOrgThemeUpdate handles PUT /api/v1/orgs/{id}/theme. The overrides are
// resolved and applied; they are stored only when the apply commits.
func HandleOrgThemeUpdate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	d := loadDeps()
	if d == nil {
		notInitialized(w, r)
		return
	}
	organizationID, ok := request.OrganizationID(r)
	if !ok {
		http.Error(w, "Invalid organization ID", http.StatusBadRequest)
		return
	}

	if d.Limiter != nil {
		if result := d.Limiter.Check(organizationID); !result.Allowed {
			logger.Warn().
				Str("organization_id", organizationID).
				Str("reason", result.Reason).
				Dur("retry_after", result.RetryAfter).
				Msg("Theme apply rate limited")
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(result.RetryAfter.Seconds()))))
			apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusTooManyRequests, Message: "Too many theme updates"})
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), d.Timeout)
	defer cancel()

	current, _, err := d.loadStored(ctx, organizationID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	templateID, overrides, err := d.decodeThemeRequest(r, organizationID, current.TemplateID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	tenant, err := d.Registry.Get(organizationID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	template, err := d.Catalog.Lookup(templateID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	inheritance, err := tenant.Engine.ResolveTheme(overrides, template)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	resolved := inheritance.Resolved

	previous, hadActive := tenant.Engine.ActiveTheme()
	if !hadActive {
		previous = tenant.Engine.PlatformDefaults()
	}

	if d.Limiter != nil {
		d.Limiter.Record(organizationID)
	}
	applied, applyErr := tenant.Engine.Apply(ctx, resolved)
	active := applied.Theme
	outcome := applyOutcome(applyErr, applied)

	// A theme that only got through via the fallback is not kept.
	if outcome == store.OutcomeApplied {
		if _, err := d.Store.Save(ctx, store.OrganizationTheme{
			OrganizationID: organizationID,
			TemplateID:     templateID,
			Overrides:      overrides,
		}); err != nil {
			logger.Error().Err(err).Str("organization_id", organizationID).Msg("Failed to save organization theme")
			apiutil.WriteError(w, r, err)
			return
		}
	}

	cacheKey := applied.CacheKey
	d.recordApply(ctx, organizationID, resolved.ID, cacheKey, outcome, applyErr)

	if applyErr != nil {
		apiutil.WriteError(w, r, applyErr)
		return
	}

	diff, err := themes.DiffThemes(previous, active)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	logger.Info().
		Str("organization_id", organizationID).
		Str("theme_id", active.ID).
		Str("outcome", outcome).
		Int("changes", len(diff)).
		Msg("Organization theme updated")

	writeJSON(w, r, http.StatusOK, applyResponse{
		OrganizationID: organizationID,
		Outcome:        outcome,
		CacheKey:       cacheKey,
		Resolved:       resolved,
		Active:         active,
		Diff:           diff,
	})
}

// HandleOrgThemeDelete handles DELETE /api/v1/orgs/{id}/theme: the stored
// overrides are removed and the organization falls back to platform defaults.
func HandleOrgThemeDelete(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	d := loadDeps()
	if d == nil {
		notInitialized(w, r)
		return
	}
	organizationID, ok := request.OrganizationID(r)
	if !ok {
		http.Error(w, "Invalid organization ID", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), d.Timeout)
	defer cancel()

	if err := d.Store.Delete(ctx, organizationID); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	if tenant, ok := d.Registry.Lookup(organizationID); ok {
		if _, active := tenant.Engine.ActiveTheme(); active {
			if err := tenant.Engine.ApplyTheme(ctx, tenant.Engine.PlatformDefaults()); err != nil {
				apiutil.WriteError(w, r, err)
				return
			}
		}
	}

	logger.Info().Str("organization_id", organizationID).Msg("Organization theme deleted")
	w.WriteHeader(http.StatusNoContent)
}

// HandleOrgThemePreview handles POST /api/v1/orgs/{id}/theme/preview. The theme is
// resolved and its CSS warmed in the cache; the active theme is untouched.
func HandleOrgThemePreview(w http.ResponseWriter, r *http.Request) {
	d := loadDeps()
	if d == nil {
		notInitialized(w, r)
		return
	}
	organizationID, ok := request.OrganizationID(r)
	if !ok {
		http.Error(w, "Invalid organization ID", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), d.Timeout)
	defer cancel()

	current, _, err := d.loadStored(ctx, organizationID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	templateID, overrides, err := d.decodeThemeRequest(r, organizationID, current.TemplateID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	tenant, err := d.Registry.Get(organizationID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	template, err := d.Catalog.Lookup(templateID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	inheritance, err := tenant.Engine.ResolveTheme(overrides, template)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	cacheKey, err := tenant.Engine.PreloadTheme(ctx, inheritance.Resolved)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	before, ok := tenant.Engine.ActiveTheme()
	if !ok {
		before = tenant.Engine.PlatformDefaults()
	}
	diff, err := themes.DiffThemes(before, inheritance.Resolved)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, previewResponse{
		OrganizationID: organizationID,
		CacheKey:       cacheKey,
		Resolved:       inheritance.Resolved,
		Diff:           diff,
	})
}

// HandleOrgStylesheet handles GET /api/v1/orgs/{id}/theme.css. An organization
// without an active theme gets its stored theme applied first.
func HandleOrgStylesheet(w http.ResponseWriter, r *http.Request) {
	d := loadDeps()
	if d == nil {
		notInitialized(w, r)
		return
	}
	organizationID, ok := request.OrganizationID(r)
	if !ok {
		http.Error(w, "Invalid organization ID", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), d.Timeout)
	defer cancel()

	tenant, err := d.ensureActive(ctx, organizationID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("ETag", fmt.Sprintf(`"%s-%d"`, organizationID, tenant.Sink.Revision()))
	if themeID, ok := tenant.Sink.Attribute(themes.AttrThemeID); ok {
		w.Header().Set("X-Theme-ID", themeID)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(tenant.Sink.Stylesheet())); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write stylesheet")
	}
}

// HandleOrgCacheStats handles GET /api/v1/orgs/{id}/theme/cache.
func HandleOrgCacheStats(w http.ResponseWriter, r *http.Request) {
	d := loadDeps()
	if d == nil {
		notInitialized(w, r)
		return
	}
	organizationID, ok := request.OrganizationID(r)
	if !ok {
		http.Error(w, "Invalid organization ID", http.StatusBadRequest)
		return
	}

	tenant, err := d.Registry.Get(organizationID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, tenant.Engine.CacheStats())
}

// HandleOrgCacheClear handles DELETE /api/v1/orgs/{id}/theme/cache.
func HandleOrgCacheClear(w http.ResponseWriter, r *http.Request) {
	d := loadDeps()
	if d == nil {
		notInitialized(w, r)
		return
	}
	organizationID, ok := request.OrganizationID(r)
	if !ok {
		http.Error(w, "Invalid organization ID", http.StatusBadRequest)
		return
	}

	if tenant, ok := d.Registry.Lookup(organizationID); ok {
		tenant.Engine.ClearCache()
	}
	log.Ctx(r.Context()).Info().Str("organization_id", organizationID).Msg("Theme cache cleared")
	w.WriteHeader(http.StatusNoContent)
}

// HandleOrgCacheRemove handles DELETE /api/v1/orgs/{id}/theme/cache/{themeId}.
func HandleOrgCacheRemove(w http.ResponseWriter, r *http.Request) {
	d := loadDeps()
	if d == nil {
		notInitialized(w, r)
		return
	}
	organizationID, ok := request.OrganizationID(r)
	if !ok {
		http.Error(w, "Invalid organization ID", http.StatusBadRequest)
		return
	}
	themeID := strings.TrimSpace(r.PathValue(themeIDParam))
	if themeID == "" {
		http.Error(w, "Invalid theme ID", http.StatusBadRequest)
		return
	}

	removed := 0
	if tenant, ok := d.Registry.Lookup(organizationID); ok {
		removed = tenant.Engine.RemoveCachedTheme(themeID)
	}
	writeJSON(w, r, http.StatusOK, removedResponse{Removed: removed})
}

// HandleOrgApplies handles GET /api/v1/orgs/{id}/theme/applies?limit=N.
func HandleOrgApplies(w http.ResponseWriter, r *http.Request) {
	d := loadDeps()
	if d == nil {
		notInitialized(w, r)
		return
	}
	organizationID, ok := request.OrganizationID(r)
	if !ok {
		http.Error(w, "Invalid organization ID", http.StatusBadRequest)
		return
	}

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > maxAppliesLimit {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	ctx, cancel := context.WithTimeout(r.Context(), d.Timeout)
	defer cancel()

	records, err := d.Store.RecentApplies(ctx, organizationID, limit)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, records)
}

// loadStored returns the stored theme for organizationID. A missing row yields
// empty overrides on the catalogue's default template.
func (d *Deps) loadStored(ctx context.Context, organizationID string) (store.OrganizationTheme, bool, error) {
	stored, err := d.Store.Load(ctx, organizationID)
	if errors.Is(err, store.ErrNotFound) {
		return store.OrganizationTheme{
			OrganizationID: organizationID,
			TemplateID:     d.Catalog.DefaultID(),
			Overrides:      models.ThemeUpdate{},
		}, false, nil
	}
	if err != nil {
		return store.OrganizationTheme{}, false, err
	}
	return stored, true, nil
}

// decodeThemeRequest reads a PUT or preview body. An absent templateId keeps
// currentTemplate; an explicit empty one removes the template tier.
func (d *Deps) decodeThemeRequest(r *http.Request, organizationID, currentTemplate string) (string, models.ThemeUpdate, error) {
	var req themeRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		return "", nil, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "Invalid request body", Err: err}
	}

	templateID := currentTemplate
	if req.TemplateID != nil {
		templateID = strings.TrimSpace(*req.TemplateID)
	}
	if templateID != "" {
		if _, err := d.Catalog.Get(templateID); err != nil {
			return "", nil, apiutil.FieldError{Field: "templateId", Reason: "is not a known template"}
		}
	}

	overrides, err := models.ParseThemeUpdate(req.Overrides)
	if err != nil {
		return "", nil, apiutil.FieldError{Field: "overrides", Reason: "must be a JSON object"}
	}
	overrides["organizationId"] = organizationID
	if templateID != "" {
		overrides["templateId"] = templateID
	} else {
		delete(overrides, "templateId")
	}
	return templateID, overrides, nil
}

// ensureActive applies the stored theme of organizationID when its engine has
// never committed one.
func (d *Deps) ensureActive(ctx context.Context, organizationID string) (*themes.Tenant[*sink.Document], error) {
	tenant, err := d.Registry.Get(organizationID)
	if err != nil {
		return nil, err
	}
	if _, ok := tenant.Engine.ActiveTheme(); ok {
		return tenant, nil
	}

	stored, _, err := d.loadStored(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	template, err := d.Catalog.Lookup(stored.TemplateID)
	if err != nil {
		return nil, err
	}
	inheritance, err := tenant.Engine.ResolveTheme(withOrganization(stored.Overrides, organizationID), template)
	if err != nil {
		return nil, err
	}

	applyErr := tenant.Engine.ApplyTheme(ctx, inheritance.Resolved)
	if errors.Is(applyErr, themes.ErrSuperseded) {
		// A concurrent apply committed first; its theme is what we serve.
		applyErr = nil
	}
	if applyErr != nil {
		return nil, applyErr
	}
	return tenant, nil
}

// withOrganization returns a copy of overrides stamped with organizationID.
func withOrganization(overrides models.ThemeUpdate, organizationID string) models.ThemeUpdate {
	stamped := overrides.Clone()
	if stamped == nil {
		stamped = models.ThemeUpdate{}
	}
	stamped["organizationId"] = organizationID
	return stamped
}

func (d *Deps) recordApply(ctx context.Context, organizationID, themeID, cacheKey, outcome string, applyErr error) {
	record := store.ApplyRecord{
		OrganizationID: organizationID,
		ThemeID:        themeID,
		CacheKey:       cacheKey,
		Outcome:        outcome,
		RequestID:      request.ID(ctx),
	}
	if applyErr != nil {
		record.Error = applyErr.Error()
	}
	if _, err := d.Store.RecordApply(ctx, record); err != nil {
		// Organizations without a stored theme have no log to append to.
		log.Ctx(ctx).Debug().Err(err).Str("organization_id", organizationID).Msg("Theme apply not recorded")
	}
}

func applyOutcome(err error, applied themes.Applied) string {
	switch {
	case errors.Is(err, themes.ErrSuperseded):
		return store.OutcomeSuperseded
	case err != nil:
		return store.OutcomeFailed
	case applied.Fallback:
		return store.OutcomeFallback
	default:
		return store.OutcomeApplied
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	if err := apiutil.WriteJSON(w, status, payload); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write response")
	}
}

func notInitialized(w http.ResponseWriter, r *http.Request) {
	log.Ctx(r.Context()).Error().Msg("Theme handlers not initialized")
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

// Warm applies the stored theme of every organization in organizationIDs, at most
// concurrency at a time. Failures are logged and do not stop the others.
func Warm(ctx context.Context, organizationIDs []string, concurrency int) int {
	d := loadDeps()
	if d == nil {
		return 0
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	var warmed atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, organizationID := range organizationIDs {
		g.Go(func() error {
			opCtx, cancel := context.WithTimeout(gctx, d.Timeout)
			defer cancel()
			if _, err := d.ensureActive(opCtx, organizationID); err != nil {
				log.Ctx(ctx).Warn().Err(err).Str("organization_id", organizationID).Msg("Failed to warm organization theme")
				return nil
			}
			warmed.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	return int(warmed.Load())
}
