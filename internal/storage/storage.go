// Package storage opens the configured graph backend and stacks the
// decorators the configuration enables.
package storage

import (
	"context"

	"github.com/rohankatakam/grin/internal/boltgraph"
	"github.com/rohankatakam/grin/internal/cache"
	"github.com/rohankatakam/grin/internal/config"
	gerrors "github.com/rohankatakam/grin/internal/errors"
	"github.com/rohankatakam/grin/internal/grin"
	"github.com/rohankatakam/grin/internal/memgraph"
	"github.com/rohankatakam/grin/internal/metrics"
	"github.com/rohankatakam/grin/internal/neo4jgraph"
	"github.com/rohankatakam/grin/internal/sqlgraph"
	"github.com/sirupsen/logrus"
)

// Open builds the backend named by cfg.Backend, requests cfg's feature set,
// and wraps the result with the cache and then the metrics decorator when
// they are enabled. Metrics sit outermost so cache hits are measured too.
func Open(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (grin.Store, error) {
	return OpenWith(ctx, cfg, metrics.Default(), logger)
}

// OpenWith is Open with an explicit metrics collector
func OpenWith(ctx context.Context, cfg *config.Config, collector *metrics.Collector, logger *logrus.Logger) (grin.Store, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	features, err := cfg.RequestedFeatures()
	if err != nil {
		return nil, gerrors.ConfigErrorf("features: %v", err)
	}

	store, err := OpenBackend(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	store.SetFeatures(features)

	if cfg.Cache.Enabled {
		store = cache.New(store, cache.Options{
			TTL:             cfg.Cache.TTL,
			CleanupInterval: cfg.Cache.CleanupInterval,
		}, logger)
	}
	if cfg.Metrics.Enabled && collector != nil {
		wrapped, err := metrics.Wrap(store, collector)
		if err != nil {
			store.Close()
			return nil, err
		}
		store = wrapped
	}

	logger.WithFields(logrus.Fields{
		"backend":  cfg.Backend,
		"graph":    store.ID(),
		"features": store.Features().String(),
		"cache":    cfg.Cache.Enabled,
		"metrics":  cfg.Metrics.Enabled,
	}).Debug("Opened graph")
	return store, nil
}

// OpenBackend builds the bare backend without decorators or feature changes
func OpenBackend(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (grin.Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return memgraph.New(logger), nil
	case config.BackendBolt:
		return boltgraph.Open(cfg.Bolt.Path, boltgraph.Options{
			BatchSize: cfg.Bolt.BatchSize,
			Timeout:   cfg.Bolt.Timeout,
		}, logger)
	case config.BackendSQLite:
		return sqlgraph.OpenSQLite(ctx, cfg.SQLite.Path, sqlgraph.Options{BatchSize: cfg.SQLite.BatchSize}, logger)
	case config.BackendPostgres:
		if cfg.Postgres.DSN == "" {
			return nil, gerrors.ConfigError("POSTGRES_DSN is required for the postgres backend")
		}
		return sqlgraph.OpenPostgres(ctx, cfg.Postgres.DSN, sqlgraph.Options{BatchSize: cfg.Postgres.BatchSize}, logger)
	case config.BackendNeo4j:
		return neo4jgraph.Open(ctx, neo4jgraph.Options{
			URI:              cfg.Neo4j.URI,
			User:             cfg.Neo4j.User,
			Password:         cfg.Neo4j.Password,
			Database:         cfg.Neo4j.Database,
			BatchSize:        cfg.Neo4j.BatchSize,
			QueriesPerSecond: cfg.Neo4j.QueriesPerSecond,
			Burst:            cfg.Neo4j.Burst,
			MaxPoolSize:      cfg.Neo4j.MaxPoolSize,
			ReadTimeout:      cfg.Neo4j.ReadTimeout,
			WriteTimeout:     cfg.Neo4j.WriteTimeout,
		}, logger)
	}
	return nil, gerrors.ConfigErrorf("unknown backend %q", cfg.Backend)
}

// Unwrap strips decorators down to the backend
func Unwrap(s grin.Store) grin.Store {
	for {
		u, ok := s.(interface{ Unwrap() grin.Store })
		if !ok {
			return s
		}
		s = u.Unwrap()
	}
}
