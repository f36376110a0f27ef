// cmd/server/server.go
package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/codr1/orgthemes/internal/api"
	themeapi "github.com/codr1/orgthemes/internal/api/themes"
	"github.com/codr1/orgthemes/internal/config"
)

func newServer(cfg *config.Config) *http.Server {
	return &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.App.Port),
		Handler:      newHandler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func newHandler() http.Handler {
	router := http.NewServeMux()

	// Register routes
	registerRoutes(router)

	// Setup middleware chain
	return api.ChainMiddleware(
		router,
		api.WithLogging,
		api.WithRecovery,
		api.WithContentType,
		api.WithRequestID,
	)
}

func registerRoutes(mux *http.ServeMux) {
	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Platform routes
	mux.HandleFunc("GET /api/v1/themes/defaults", themeapi.HandleDefaults)
	mux.HandleFunc("GET /api/v1/themes/templates", themeapi.HandleTemplates)
	mux.HandleFunc("GET /api/v1/themes/templates/{templateId}", themeapi.HandleTemplate)
	mux.HandleFunc("POST /api/v1/themes/diff", themeapi.HandleDiff)

	// Organization routes
	mux.HandleFunc("GET /api/v1/orgs/{id}/theme", themeapi.HandleOrgTheme)
	mux.HandleFunc("PUT /api/v1/orgs/{id}/theme", themeapi.HandleOrgThemeUpdate)
	mux.HandleFunc("DELETE /api/v1/orgs/{id}/theme", themeapi.HandleOrgThemeDelete)
	mux.HandleFunc("POST /api/v1/orgs/{id}/theme/preview", themeapi.HandleOrgThemePreview)
	mux.HandleFunc("GET /api/v1/orgs/{id}/theme.css", themeapi.HandleOrgStylesheet)
	mux.HandleFunc("GET /api/v1/orgs/{id}/theme/applies", themeapi.HandleOrgApplies)
	mux.HandleFunc("GET /api/v1/orgs/{id}/theme/cache", themeapi.HandleOrgCacheStats)
	mux.HandleFunc("DELETE /api/v1/orgs/{id}/theme/cache", themeapi.HandleOrgCacheClear)
	mux.HandleFunc("DELETE /api/v1/orgs/{id}/theme/cache/{themeId}", themeapi.HandleOrgCacheRemove)
}
