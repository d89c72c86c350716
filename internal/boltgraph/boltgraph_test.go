package boltgraph

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	gerrors "github.com/rohankatakam/grin/internal/errors"
	"github.com/rohankatakam/grin/internal/grin"
	"github.com/rohankatakam/grin/internal/grintest"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger
}

func openTest(t *testing.T) grin.Store {
	g, err := Open(filepath.Join(t.TempDir(), "graph.db"), Options{}, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })
	return g
}

func TestContract(t *testing.T) {
	grintest.RunContract(t, openTest)
}

func TestReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "graph.db")

	g, err := Open(path, Options{}, testLogger())
	require.NoError(t, err)
	f, err := grintest.Populate(ctx, g, grin.String)
	require.NoError(t, err)
	id := g.ID()
	require.NoError(t, g.Close())

	g, err = Open(path, Options{}, testLogger())
	require.NoError(t, err)
	defer g.Close()

	assert.Equal(t, id, g.ID())
	dt, err := g.VertexOriginalIDDataType(ctx)
	require.NoError(t, err)
	assert.Equal(t, grin.String, dt)

	v, err := g.VertexByOriginalIDOfString(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, f.People[2], v)

	age, err := g.VertexPropertyByName(ctx, f.Person, "age")
	require.NoError(t, err)
	n, err := grin.VertexPropertyInt32(ctx, g, v, age)
	require.NoError(t, err)
	assert.Equal(t, int32(-1), n)
	g.DestroyVertexProperty(age)

	// rows continue after the stored sequence
	next, err := g.AddVertex(ctx, f.Person, grin.StringID("dave"), nil)
	require.NoError(t, err)
	assert.NotContains(t, f.People, next)
	require.NoError(t, g.Flush(ctx))

	count, err := g.VertexCount(ctx, f.Person)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestBufferedWrites(t *testing.T) {
	ctx := context.Background()
	g, err := Open(filepath.Join(t.TempDir(), "graph.db"), Options{BatchSize: 2}, testLogger())
	require.NoError(t, err)
	defer g.Close()

	require.NoError(t, g.SetOriginalIDType(ctx, grin.Int64))
	vt, err := g.AddVertexType(ctx, "node")
	require.NoError(t, err)

	_, err = g.AddVertex(ctx, vt, grin.Int64ID(1), nil)
	require.NoError(t, err)

	_, err = g.VertexByOriginalIDOfInt64(ctx, 1)
	assert.True(t, errors.Is(err, grin.ErrNotFound), "not visible before flush")

	_, err = g.AddVertex(ctx, vt, grin.Int64ID(1), nil)
	assert.True(t, errors.Is(err, grin.ErrDuplicate), "pending ids are checked")

	_, err = g.AddVertex(ctx, vt, grin.Int64ID(2), nil)
	require.NoError(t, err)

	// the batch size was reached
	_, err = g.VertexByOriginalIDOfInt64(ctx, 1)
	assert.NoError(t, err)
	assert.Empty(t, g.pendingV)
}

func TestFailedFlushDropsBatch(t *testing.T) {
	ctx := context.Background()
	g, err := Open(filepath.Join(t.TempDir(), "graph.db"), Options{}, testLogger())
	require.NoError(t, err)

	require.NoError(t, g.SetOriginalIDType(ctx, grin.String))
	vt, err := g.AddVertexType(ctx, "node")
	require.NoError(t, err)

	lost, err := g.AddVertex(ctx, vt, grin.StringID("bob"), nil)
	require.NoError(t, err)
	// bbolt refuses empty keys, which fails the whole transaction
	g.pendingV[0].id = grin.StringID("")

	err = g.Flush(ctx)
	require.Error(t, err)
	assert.Equal(t, gerrors.ErrorTypeDatabase, gerrors.GetType(err))
	assert.Empty(t, g.pendingV)
	assert.Empty(t, g.nextV)

	_, err = g.VertexByOriginalIDOfString(ctx, "bob")
	assert.True(t, errors.Is(err, grin.ErrNotFound))

	alice, err := g.AddVertex(ctx, vt, grin.StringID("alice"), nil)
	require.NoError(t, err)
	assert.Equal(t, lost, alice, "rows of the dropped batch are reissued")
	require.NoError(t, g.Flush(ctx))

	back, err := g.VertexByOriginalIDOfString(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice, back)
	assert.NoError(t, g.Close())
}

func TestNoValuePointers(t *testing.T) {
	g, _ := grintest.Open(t, openTest, grin.Int64)
	assert.False(t, g.Features().Has(grin.FeatureConstValuePtr))
}

func TestOpenLocked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.db")
	g, err := Open(path, Options{}, testLogger())
	require.NoError(t, err)
	defer g.Close()

	_, err = Open(path, Options{Timeout: 50 * time.Millisecond}, testLogger())
	assert.Error(t, err)
}
