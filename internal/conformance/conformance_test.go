package conformance

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/rohankatakam/grin/internal/boltgraph"
	"github.com/rohankatakam/grin/internal/grin"
	"github.com/rohankatakam/grin/internal/grintest"
	"github.com/rohankatakam/grin/internal/memgraph"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger
}

func populated(t *testing.T, idType grin.DataType) *memgraph.Graph {
	t.Helper()
	g := memgraph.New(testLogger())
	t.Cleanup(func() { _ = g.Close() })
	_, err := grintest.Populate(context.Background(), g, idType)
	require.NoError(t, err)
	return g
}

func run(t *testing.T, g grin.Graph) *Report {
	t.Helper()
	report, err := New(g, 4, testLogger()).Run(context.Background())
	require.NoError(t, err)
	return report
}

func statuses(r *Report) map[string]string {
	out := make(map[string]string, len(r.Results))
	for _, res := range r.Results {
		out[res.Name] = res.Status()
	}
	return out
}

func TestPassesOnSampleGraphs(t *testing.T) {
	tests := []struct {
		idType grin.DataType
		want   map[string]string
	}{
		{grin.Int64, map[string]string{"original_id_int64": "pass", "original_id_string": "skip"}},
		{grin.String, map[string]string{"original_id_int64": "skip", "original_id_string": "pass"}},
		{grin.Undefined, map[string]string{"original_id_int64": "skip", "original_id_string": "skip"}},
	}

	for _, tt := range tests {
		t.Run(tt.idType.String(), func(t *testing.T) {
			g := populated(t, tt.idType)
			report := run(t, g)
			assert.True(t, report.Passed(), "failed: %+v", report.Failed())
			assert.Len(t, report.Results, len(checks)+1)

			got := statuses(report)
			for name, status := range tt.want {
				assert.Equal(t, status, got[name], name)
			}
			for _, name := range []string{"feature_gating", "property_name", "property_by_name", "typed_reads", "handle_balance"} {
				assert.Equal(t, "pass", got[name], name)
			}
			assert.Equal(t, grin.Stats{}, g.Tracker().Stats())
		})
	}
}

func TestPassesOnBolt(t *testing.T) {
	g, err := boltgraph.Open(filepath.Join(t.TempDir(), "graph.db"), boltgraph.Options{}, testLogger())
	require.NoError(t, err)
	defer g.Close()
	_, err = grintest.Populate(context.Background(), g, grin.String)
	require.NoError(t, err)

	report := run(t, g)
	assert.True(t, report.Passed(), "failed: %+v", report.Failed())
}

func TestNaNValuesPass(t *testing.T) {
	ctx := context.Background()
	g := memgraph.New(testLogger())
	defer g.Close()

	require.NoError(t, g.SetOriginalIDType(ctx, grin.Int64))
	vt, err := g.AddVertexType(ctx, "sensor")
	require.NoError(t, err)
	single, err := g.AddVertexProperty(ctx, vt, "single", grin.Float32)
	require.NoError(t, err)
	double, err := g.AddVertexProperty(ctx, vt, "double", grin.Float64)
	require.NoError(t, err)
	_, err = g.AddVertex(ctx, vt, grin.Int64ID(1), map[grin.VertexProperty]any{
		single: float32(math.NaN()),
		double: math.NaN(),
	})
	require.NoError(t, err)

	report := run(t, g)
	assert.Equal(t, "pass", statuses(report)["typed_reads"], "failed: %+v", report.Failed())
}

func TestSkipsDisabledFeatures(t *testing.T) {
	g := populated(t, grin.Int64)
	g.SetFeatures(grin.FeaturesOf(grin.FeatureVertexOriginalIDInt64))

	got := statuses(run(t, g))
	assert.Equal(t, "pass", got["feature_gating"])
	assert.Equal(t, "pass", got["original_id_int64"])
	assert.Equal(t, "skip", got["property_name"])
	assert.Equal(t, "skip", got["property_by_name"])
	assert.Equal(t, "skip", got["typed_reads"])
}

// lyingFeatures reports a flag as disabled while the graph still serves it
type lyingFeatures struct {
	*memgraph.Graph
}

func (l lyingFeatures) Features() grin.Features {
	return l.Graph.Features().Without(grin.FeatureEdgePropertyName)
}

func TestDetectsUngatedOperations(t *testing.T) {
	report := run(t, lyingFeatures{populated(t, grin.Int64)})
	assert.False(t, report.Passed())
	assert.Equal(t, "fail", statuses(report)["feature_gating"])
}

// shiftedIDs maps original IDs back to the wrong vertex
type shiftedIDs struct {
	*memgraph.Graph
}

func (s shiftedIDs) VertexByOriginalIDOfInt64(ctx context.Context, id int64) (grin.Vertex, error) {
	return s.Graph.VertexByOriginalIDOfInt64(ctx, 1)
}

func TestDetectsBrokenRoundTrip(t *testing.T) {
	report := run(t, shiftedIDs{populated(t, grin.Int64)})
	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "original_id_int64", failed[0].Name)
	assert.Contains(t, failed[0].Err.Error(), "maps back to vertex")
}

// leakyNames never releases names
type leakyNames struct {
	*memgraph.Graph
}

func (leakyNames) DestroyStringValue(string) {}

func TestDetectsHandleLeaks(t *testing.T) {
	report := run(t, leakyNames{populated(t, grin.String)})
	got := statuses(report)
	assert.Equal(t, "fail", got["handle_balance"])
	assert.Equal(t, "pass", got["typed_reads"])
}

func TestCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(populated(t, grin.Int64), 1, testLogger()).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
