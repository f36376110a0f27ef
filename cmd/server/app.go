// cmd/server/app.go
package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	themeapi "github.com/codr1/orgthemes/internal/api/themes"
	"github.com/codr1/orgthemes/internal/config"
	"github.com/codr1/orgthemes/internal/cssgen"
	"github.com/codr1/orgthemes/internal/db"
	"github.com/codr1/orgthemes/internal/ratelimit"
	"github.com/codr1/orgthemes/internal/scheduler"
	"github.com/codr1/orgthemes/internal/sink"
	"github.com/codr1/orgthemes/internal/store"
	"github.com/codr1/orgthemes/internal/templates"
	"github.com/codr1/orgthemes/internal/themes"
	"github.com/codr1/orgthemes/internal/validation"
)

const warmConcurrency = 4

// App owns the long-lived services behind the HTTP server.
type App struct {
	db        *db.DB
	store     *store.Store
	registry  *themes.Registry[*sink.Document]
	limiter   *ratelimit.Limiter
	scheduler *scheduler.Service

	closeOnce sync.Once
}

func newApp(cfg *config.Config) (*App, error) {
	database, err := db.NewFromConfig(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	catalog, err := templates.Load()
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("load template catalogue: %w", err)
	}

	registry := themes.NewRegistry[*sink.Document](newTenantFactory(cfg.Engine))

	sched, err := scheduler.New(&log.Logger)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	if interval := cfg.Scheduler.CacheSweepInterval; interval > 0 {
		if err := scheduler.RegisterCacheSweep(sched, registry, interval); err != nil {
			_ = sched.Stop()
			database.Close()
			return nil, err
		}
	}

	appStore := store.New(database)
	if retention := cfg.Scheduler.ApplyLogRetention; retention > 0 {
		if err := scheduler.RegisterApplyLogPrune(sched, appStore, cfg.Scheduler.ApplyLogPruneCron, retention); err != nil {
			_ = sched.Stop()
			database.Close()
			return nil, err
		}
	}

	limiter := ratelimit.New(&ratelimit.Config{
		Cooldown:   cfg.RateLimit.ApplyCooldown,
		MaxPerHour: cfg.RateLimit.ApplyMaxPerHour,
	})

	app := &App{
		db:        database,
		store:     appStore,
		registry:  registry,
		limiter:   limiter,
		scheduler: sched,
	}

	themeapi.InitHandlers(themeapi.Deps{
		Registry: registry,
		Store:    app.store,
		Catalog:  catalog,
		Limiter:  limiter,
		Timeout:  cfg.Server.RequestTimeout,
	})

	log.Info().
		Int("templates", len(catalog.IDs())).
		Str("default_template", catalog.DefaultID()).
		Msg("Theme engine initialized")
	return app, nil
}

// newTenantFactory builds one engine and document per organization.
func newTenantFactory(engineCfg config.EngineConfig) themes.TenantFactory[*sink.Document] {
	validator := validation.New()
	generator := cssgen.New()

	return func(organizationID string) (*themes.Engine, *sink.Document, error) {
		logger := log.With().Str("organization_id", organizationID).Logger()
		opts := engineCfg.Options()
		opts.Logger = &logger

		doc := sink.NewDocument()
		engine, err := themes.New(validator, generator, doc, opts)
		if err != nil {
			return nil, nil, err
		}
		return engine, doc, nil
	}
}

// Start applies every stored organization theme and starts scheduled jobs.
func (a *App) Start(ctx context.Context) {
	ids, err := a.store.ListOrganizations(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list organizations for warm-up")
	} else {
		warmed := themeapi.Warm(ctx, ids, warmConcurrency)
		log.Info().Int("organizations", len(ids)).Int("warmed", warmed).Msg("Organization themes warmed")
	}
	a.scheduler.Start()
}

func (a *App) Close() {
	a.closeOnce.Do(func() {
		if err := a.scheduler.Stop(); err != nil {
			log.Error().Err(err).Msg("Failed to stop scheduler")
		}
		a.limiter.Close()
		if err := a.db.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database")
		}
	})
}
