package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/HumanBrainProject/kg-editor-sub000/internal/api"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/api/admin"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/api/instances"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/api/types"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/cache"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/config"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/database"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/domain"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/enrich"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/idnorm"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/kg"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/metrics"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/seed"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/service"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/store"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/typegraph"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/vocab"
)

// app is the wired server: its HTTP handler and the resources to release
// on shutdown.
type app struct {
	handler http.Handler
	closers []func() error
}

// newApp wires the graph store backend selected by cfg, the optional type
// cache, the enrichers and the HTTP routes. Collectors are registered with
// reg, which also backs /metrics.
func newApp(ctx context.Context, cfg *config.Config, reg *prometheus.Registry) (*app, error) {
	a := &app{}
	ids := idnorm.New(cfg.InstancePrefix)
	v := vocab.Default()

	m, err := metrics.New(reg)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	var (
		metadata  domain.MetadataSource
		insts     domain.InstanceSource
		status    domain.ReleaseStatusSource
		local     *store.Store
		typeCache *cache.MetadataCache
	)

	switch cfg.Source {
	case config.SourceLocal:
		db, err := database.Open(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		if err := database.Migrate(ctx, db); err != nil {
			a.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		local = store.New(db, ids, v)
		if err := seed.Seed(ctx, local, ids); err != nil {
			a.Close()
			return nil, fmt.Errorf("seed data: %w", err)
		}
		metadata, insts, status = local, local, local
	default:
		client := kg.New(cfg.KGURL, cfg.KGTimeout, ids, v)
		metadata, insts, status = client, client, client
	}

	if cfg.RedisAddr != "" {
		rdb, err := cache.Dial(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, rdb.Close)
		typeCache = cache.New(metadata, rdb, cfg.CacheTTL, m)
		metadata = typeCache
	}

	resolver := typegraph.NewResolver(metadata, m)
	batch := enrich.NewBatchEnricher(resolver, enrich.NewEnricher(ids, v, cfg.InferenceUser), m)
	scope := enrich.NewScopeEnricher(resolver, status, ids)
	svc := service.New(insts, resolver, batch, scope, ids)

	mux := http.NewServeMux()
	instances.RegisterRoutes(mux, svc)
	types.RegisterRoutes(mux, svc)
	if local != nil {
		var clearer admin.Clearer
		if typeCache != nil {
			clearer = typeCache
		}
		admin.RegisterRoutes(mux, local, ids, clearer)
	}
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		corrID := api.CorrelationID(r.Context())
		api.WriteError(w, http.StatusNotFound, api.NewNotFoundError(
			fmt.Sprintf("No route found for %s %s", r.Method, r.URL.Path),
			corrID,
		))
	})

	a.handler = api.Chain(mux,
		api.RequestID(),
		api.Recovery(),
		api.Auth(cfg.AuthToken),
		api.TokenRelay(),
		api.Logging(),
	)
	return a, nil
}

// Close releases the resources of the app in reverse order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Warn("close resource", "error", err)
		}
	}
	a.closers = nil
}
