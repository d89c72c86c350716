package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rohankatakam/grin/internal/boltgraph"
	"github.com/rohankatakam/grin/internal/cache"
	"github.com/rohankatakam/grin/internal/config"
	gerrors "github.com/rohankatakam/grin/internal/errors"
	"github.com/rohankatakam/grin/internal/grin"
	"github.com/rohankatakam/grin/internal/grintest"
	"github.com/rohankatakam/grin/internal/memgraph"
	"github.com/rohankatakam/grin/internal/metrics"
	"github.com/rohankatakam/grin/internal/sqlgraph"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger
}

func testConfig(t *testing.T, backend string) *config.Config {
	cfg := config.Default()
	cfg.Backend = backend
	cfg.Bolt.Path = filepath.Join(t.TempDir(), "graph.db")
	cfg.SQLite.Path = ":memory:"
	return cfg
}

func open(t *testing.T, cfg *config.Config) grin.Store {
	t.Helper()
	collector := metrics.NewCollector(prometheus.NewRegistry())
	s, err := OpenWith(context.Background(), cfg, collector, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenBackends(t *testing.T) {
	tests := []struct {
		backend string
		check   func(t *testing.T, s grin.Store)
	}{
		{config.BackendMemory, func(t *testing.T, s grin.Store) { assert.IsType(t, &memgraph.Graph{}, s) }},
		{config.BackendBolt, func(t *testing.T, s grin.Store) { assert.IsType(t, &boltgraph.Graph{}, s) }},
		{config.BackendSQLite, func(t *testing.T, s grin.Store) { assert.IsType(t, &sqlgraph.Graph{}, s) }},
	}

	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			s := open(t, testConfig(t, tt.backend))
			assert.IsType(t, &metrics.Graph{}, s)
			tt.check(t, Unwrap(s))

			_, err := grintest.Populate(context.Background(), s, grin.Int64)
			require.NoError(t, err)
			v, err := s.VertexByOriginalIDOfInt64(context.Background(), 2)
			require.NoError(t, err)
			id, err := s.VertexOriginalIDOfInt64(context.Background(), v)
			require.NoError(t, err)
			assert.Equal(t, int64(2), id)
		})
	}
}

func TestDecoratorOrder(t *testing.T) {
	cfg := testConfig(t, config.BackendMemory)
	s := open(t, cfg)

	m, ok := s.(*metrics.Graph)
	require.True(t, ok)
	assert.IsType(t, &cache.Graph{}, m.Unwrap())

	cfg = testConfig(t, config.BackendMemory)
	cfg.Cache.Enabled = false
	cfg.Metrics.Enabled = false
	assert.IsType(t, &memgraph.Graph{}, open(t, cfg))
}

func TestAppliesFeatures(t *testing.T) {
	cfg := testConfig(t, config.BackendMemory)
	cfg.Features = []string{"vertex_original_id_int64", "vertex_property"}
	s := open(t, cfg)

	_, err := grintest.Populate(context.Background(), s, grin.Int64)
	require.NoError(t, err)
	assert.Equal(t, grin.FeaturesOf(grin.FeatureVertexOriginalIDInt64, grin.FeatureVertexProperty), s.Features())

	_, err = s.VertexPropertiesByName(context.Background(), "name")
	assert.ErrorIs(t, err, grin.ErrUnsupported)
}

func TestOpenErrors(t *testing.T) {
	cfg := testConfig(t, "tinkerpop")
	_, err := OpenWith(context.Background(), cfg, nil, testLogger())
	assert.Equal(t, gerrors.ErrorTypeConfig, gerrors.GetType(err))

	cfg = testConfig(t, config.BackendPostgres)
	_, err = OpenWith(context.Background(), cfg, nil, testLogger())
	assert.Equal(t, gerrors.ErrorTypeConfig, gerrors.GetType(err))

	cfg = testConfig(t, config.BackendMemory)
	cfg.Features = []string{"warp_drive"}
	_, err = OpenWith(context.Background(), cfg, nil, testLogger())
	assert.Equal(t, gerrors.ErrorTypeConfig, gerrors.GetType(err))
}
