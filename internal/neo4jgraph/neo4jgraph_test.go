package neo4jgraph

import (
	"context"
	"math"
	"os"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	gerrors "github.com/rohankatakam/grin/internal/errors"
	"github.com/rohankatakam/grin/internal/grin"
	"github.com/rohankatakam/grin/internal/grintest"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCypherBuilderParams(t *testing.T) {
	b := NewCypherBuilder()
	assert.Equal(t, "$p0", b.AddParam(int64(7)))
	assert.Equal(t, "$p1", b.AddParam("x"))
	assert.Equal(t, map[string]any{"p0": int64(7), "p1": "x"}, b.Params())
}

func TestLabelRejectsInjection(t *testing.T) {
	label, err := Label("person")
	require.NoError(t, err)
	assert.Equal(t, "`person`", label)

	for _, bad := range []string{"", "a b", "x`) DETACH DELETE (n", "1abc", "a-b"} {
		_, err := Label(bad)
		assert.Error(t, err, bad)
		assert.Equal(t, gerrors.ErrorTypeValidation, gerrors.GetType(err))
	}
}

func TestBuildCreateVertices(t *testing.T) {
	b := NewCypherBuilder()
	rows := []map[string]any{{"name": "alice"}}
	query, err := b.BuildCreateVertices("person", rows)
	require.NoError(t, err)

	assert.Contains(t, query, "UNWIND $p0 AS row")
	assert.Contains(t, query, "CREATE (n:GrinVertex:`person`)")
	assert.Equal(t, rows, b.Params()["p0"])

	_, err = NewCypherBuilder().BuildCreateVertices("bad name", rows)
	assert.Error(t, err)
}

func TestBuildCreateEdges(t *testing.T) {
	b := NewCypherBuilder()
	query, err := b.BuildCreateEdges("knows", []map[string]any{{"src": int64(1), "dst": int64(2)}})
	require.NoError(t, err)

	assert.Contains(t, query, "MATCH (s:GrinVertex {grin_vid: row.src})")
	assert.Contains(t, query, "CREATE (s)-[r:`knows`]->(d)")
	assert.Contains(t, query, "count(r) AS created")
}

func TestEdgeQueries(t *testing.T) {
	b := NewCypherBuilder()
	query, err := b.BuildMatchEdge("lives_in", 42)
	require.NoError(t, err)
	assert.Equal(t, "MATCH ()-[r:`lives_in` {grin_eid: $p0}]->() RETURN r", query)
	assert.Equal(t, int64(42), b.Params()["p0"])

	query, err = BuildEdgeIndex("lives_in")
	require.NoError(t, err)
	assert.Equal(t, "CREATE INDEX grin_eid_lives_in IF NOT EXISTS FOR ()-[r:`lives_in`]-() ON (r.grin_eid)", query)
}

func TestValueEncoding(t *testing.T) {
	cases := []struct {
		dt  grin.DataType
		in  any
		neo any
	}{
		{grin.Int32, int32(-5), int64(-5)},
		{grin.UInt32, uint32(math.MaxUint32), int64(math.MaxUint32)},
		{grin.Int64, int64(math.MinInt64), int64(math.MinInt64)},
		{grin.UInt64, uint64(math.MaxUint64), int64(-1)},
		{grin.Float32, float32(1.5), float64(1.5)},
		{grin.Float64, 2.25, 2.25},
		{grin.String, "oslo", "oslo"},
		{grin.Date32, grin.Date(19000), int64(19000)},
		{grin.Time32, grin.TimeOfDay(3600000), int64(3600000)},
		{grin.Timestamp64, grin.Timestamp(1700000000000), int64(1700000000000)},
	}

	for _, tc := range cases {
		t.Run(tc.dt.String(), func(t *testing.T) {
			stored := encodeValue(tc.dt, tc.in)
			assert.Equal(t, tc.neo, stored)

			cell, err := cellOf(stored)
			require.NoError(t, err)
			assert.Equal(t, tc.in, cell.Decode(tc.dt))
		})
	}

	_, err := cellOf(true)
	assert.Error(t, err)
}

func TestDropBatchForgetsRowCounters(t *testing.T) {
	v := grin.Vertex(2)
	g := &Graph{
		pendingV:    []pendingVertex{{vt: 0, props: map[string]any{keyRow: int64(2)}}},
		pendingE:    []pendingEdge{{et: 0, src: v, dst: v}},
		pendingOIDs: map[grin.OriginalID]struct{}{grin.Int64ID(7): {}},
		pendingSet:  map[grin.Vertex]struct{}{v: {}},
		nextV:       map[uint32]uint64{0: 3},
		nextE:       map[uint32]uint64{0: 1},
	}

	g.resetPending()
	assert.Empty(t, g.pendingV)
	assert.Empty(t, g.pendingOIDs)
	assert.Equal(t, uint64(3), g.nextV[0], "a committed batch keeps its counters")

	g.pendingV = append(g.pendingV, pendingVertex{vt: 0, props: map[string]any{keyRow: int64(3)}})
	g.pendingSet[grin.Vertex(3)] = struct{}{}
	g.dropBatch()
	assert.Empty(t, g.pendingV)
	assert.Empty(t, g.pendingE)
	assert.Empty(t, g.pendingSet)
	assert.Empty(t, g.nextV, "rows of a dropped batch must not stay reserved")
	assert.Empty(t, g.nextE)
}

func TestOpenRequiresCredentials(t *testing.T) {
	_, err := Open(context.Background(), Options{URI: "neo4j://localhost:7687"}, nil)
	require.Error(t, err)
	assert.Equal(t, gerrors.ErrorTypeConfig, gerrors.GetType(err))
}

func TestOptionDefaults(t *testing.T) {
	var o Options
	o.setDefaults()
	assert.Equal(t, "neo4j", o.Database)
	assert.Equal(t, DefaultBatchSize, o.BatchSize)
	assert.Equal(t, DefaultMaxPoolSize, o.MaxPoolSize)
	assert.Equal(t, DefaultReadTimeout, o.ReadTimeout)
	assert.Equal(t, DefaultWriteTimeout, o.WriteTimeout)
}

// The remaining tests need a disposable database:
//
//	NEO4J_URI=neo4j://localhost:7687 NEO4J_USER=neo4j NEO4J_PASSWORD=... go test ./internal/neo4jgraph
func liveOptions(t *testing.T) Options {
	t.Helper()
	uri := os.Getenv("NEO4J_URI")
	if uri == "" {
		t.Skip("NEO4J_URI not set")
	}
	return Options{
		URI:      uri,
		User:     os.Getenv("NEO4J_USER"),
		Password: os.Getenv("NEO4J_PASSWORD"),
		Database: os.Getenv("NEO4J_DATABASE"),
	}
}

func openLive(t *testing.T) grin.Store {
	opts := liveOptions(t)
	ctx := context.Background()

	driver, err := neo4j.NewDriverWithContext(opts.URI, neo4j.BasicAuth(opts.User, opts.Password, ""))
	require.NoError(t, err)
	db := opts.Database
	if db == "" {
		db = "neo4j"
	}
	_, err = neo4j.ExecuteQuery(ctx, driver, "MATCH (n) DETACH DELETE n", nil,
		neo4j.EagerResultTransformer, neo4j.ExecuteQueryWithDatabase(db))
	require.NoError(t, err)
	require.NoError(t, driver.Close(ctx))

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	g, err := Open(ctx, opts, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })
	return g
}

func TestContract(t *testing.T) {
	liveOptions(t)
	grintest.RunContract(t, openLive)
}

func TestReopen(t *testing.T) {
	ctx := context.Background()
	g := openLive(t).(*Graph)
	f, err := grintest.Populate(ctx, g, grin.String)
	require.NoError(t, err)
	id := g.ID()
	require.NoError(t, g.Close())

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	g, err = Open(ctx, liveOptions(t), logger)
	require.NoError(t, err)
	defer g.Close()

	assert.Equal(t, id, g.ID())
	v, err := g.VertexByOriginalIDOfString(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, f.People[1], v)
	require.NoError(t, g.HealthCheck(ctx))
}
