package memgraph

import (
	"context"
	"testing"

	"github.com/rohankatakam/grin/internal/grin"
	"github.com/rohankatakam/grin/internal/grintest"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T) grin.Store {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	g := New(logger)
	t.Cleanup(func() { _ = g.Close() })
	return g
}

func TestContract(t *testing.T) {
	grintest.RunContract(t, openTest)
}

func TestSupportsAllFeatures(t *testing.T) {
	g, _ := grintest.Open(t, openTest, grin.String)
	assert.Equal(t, grin.AllFeatures.Without(grin.FeatureVertexOriginalIDInt64), g.Features())
}

func TestColumnPresence(t *testing.T) {
	col := newColumn(grin.Int64)
	require.NotNil(t, col)
	assert.Equal(t, grin.Int64, col.dataType())

	col.set(5, int64(-9))
	_, ok := col.get(0)
	assert.False(t, ok, "rows before the first set value stay unset")

	v, ok := col.get(5)
	require.True(t, ok)
	assert.Equal(t, int64(-9), v)

	p, ok := col.ptr(5)
	require.True(t, ok)
	assert.Equal(t, int64(-9), *p.(*int64))

	_, ok = col.get(6)
	assert.False(t, ok)

	assert.Nil(t, newColumn(grin.Undefined))
}

func TestValuePointerTracksColumn(t *testing.T) {
	ctx := context.Background()
	g, f := grintest.Open(t, openTest, grin.Int64)

	name, err := g.VertexPropertyByName(ctx, f.City, "name")
	require.NoError(t, err)
	defer g.DestroyVertexProperty(name)

	ptr, err := g.VertexPropertyValuePtr(ctx, f.Cities[1], name)
	require.NoError(t, err)
	assert.Equal(t, "oslo", *ptr.(*string))
	assert.Equal(t, grin.Stats{LiveVertexProperties: 1}, g.Tracker().Stats(), "pointers are not caller-owned")
}

func TestEmptyTypes(t *testing.T) {
	ctx := context.Background()
	g := openTest(t)

	vt, err := g.AddVertexType(ctx, "lonely")
	require.NoError(t, err)

	vs, err := g.Vertices(ctx, vt)
	require.NoError(t, err)
	assert.Empty(t, vs)

	n, err := g.VertexCount(ctx, vt)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = g.VertexTypeOf(ctx, 0)
	assert.Error(t, err)
}
