// Package app wires configuration into a ready-to-use engine: store, metrics and service.
package app

import (
	"context"

	"go.uber.org/zap"

	"dmx-platform/backend/internal/core"
	"dmx-platform/backend/internal/metrics"
	"dmx-platform/backend/internal/schema"
	"dmx-platform/backend/internal/storage"
	"dmx-platform/backend/internal/storage/memory"
	"dmx-platform/backend/internal/storage/neo4jstore"
	"dmx-platform/backend/pkg/config"
	dmxerrors "dmx-platform/backend/pkg/errors"
)

// App holds the wired components
type App struct {
	Config  *config.Config
	Store   storage.Storage
	Metrics *metrics.Collector
	Service *core.Service
	logger  *zap.Logger
}

// New opens the configured store, bootstraps it and applies the types file if one is configured
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	store, err := OpenStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	collector := metrics.NewCollector(cfg.MetricsNamespace)
	svc := core.NewService(store,
		core.WithRecorder(collector),
		core.WithLogger(log.Named("core")),
	)
	a := &App{Config: cfg, Store: store, Metrics: collector, Service: svc, logger: log}

	if err := svc.Bootstrap(ctx); err != nil {
		store.Close(ctx)
		return nil, err
	}
	if cfg.TypesFile != "" {
		if _, err := a.ApplySchemaFile(ctx, cfg.TypesFile); err != nil {
			store.Close(ctx)
			return nil, err
		}
	}
	return a, nil
}

// OpenStore creates the storage backend named by the configuration
func OpenStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (storage.Storage, error) {
	switch cfg.Store {
	case config.StoreMemory:
		log.Info("Using in-memory store")
		return memory.NewStore(), nil
	case config.StoreNeo4j:
		store, err := neo4jstore.Open(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword, cfg.Neo4jDatabase)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close(ctx)
			return nil, err
		}
		log.Info("Using Neo4j store",
			zap.String("uri", cfg.Neo4jURI),
			zap.String("database", cfg.Neo4jDatabase),
		)
		return store, nil
	default:
		return nil, dmxerrors.NewConfigValidationFailed("STORE", "unknown store "+cfg.Store)
	}
}

// ApplySchemaFile installs the types declared in a YAML file
func (a *App) ApplySchemaFile(ctx context.Context, path string) (*schema.Result, error) {
	doc, err := schema.LoadFile(path)
	if err != nil {
		return nil, err
	}
	res, err := schema.Install(ctx, a.Service, doc)
	if err != nil {
		return res, err
	}
	a.logger.Info("Schema applied",
		zap.String("file", path),
		zap.Int("created", len(res.Created)),
		zap.Int("extended", len(res.Extended)),
		zap.Int("unchanged", len(res.Unchanged)),
	)
	return res, nil
}

// Close releases the store
func (a *App) Close(ctx context.Context) error {
	return a.Store.Close(ctx)
}
