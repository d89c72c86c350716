package grintest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rohankatakam/grin/internal/catalog"
	gerrors "github.com/rohankatakam/grin/internal/errors"
	"github.com/rohankatakam/grin/internal/grin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Opener returns a fresh, empty store. It registers its own cleanup.
type Opener func(t *testing.T) grin.Store

// Open populates a fresh store with the fixture graph
func Open(t *testing.T, open Opener, idType grin.DataType) (grin.Store, *Fixture) {
	t.Helper()
	s := open(t)
	f, err := Populate(context.Background(), s, idType)
	require.NoError(t, err)
	return s, f
}

// RunContract runs the behaviour every backend must share
func RunContract(t *testing.T, open Opener) {
	t.Run("schema", func(t *testing.T) { testSchema(t, open) })
	t.Run("int64 original ids", func(t *testing.T) { testInt64IDs(t, open) })
	t.Run("string original ids", func(t *testing.T) { testStringIDs(t, open) })
	t.Run("no original ids", func(t *testing.T) { testNoIDs(t, open) })
	t.Run("property names", func(t *testing.T) { testPropertyNames(t, open) })
	t.Run("properties by name", func(t *testing.T) { testPropertiesByName(t, open) })
	t.Run("vertex values", func(t *testing.T) { testVertexValues(t, open) })
	t.Run("edge values", func(t *testing.T) { testEdgeValues(t, open) })
	t.Run("type mismatch", func(t *testing.T) { testTypeMismatch(t, open) })
	t.Run("feature gating", func(t *testing.T) { testFeatureGating(t, open) })
	t.Run("builder validation", func(t *testing.T) { testBuilderValidation(t, open) })
	t.Run("const value pointers", func(t *testing.T) { testValuePointers(t, open) })
	t.Run("closed", func(t *testing.T) { testClosed(t, open) })
}

func testSchema(t *testing.T, open Opener) {
	ctx := context.Background()
	g, f := Open(t, open, grin.Int64)

	vts, err := g.VertexTypes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []grin.VertexType{f.Person, f.City}, vts)

	ets, err := g.EdgeTypes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []grin.EdgeType{f.Knows, f.LivesIn}, ets)

	name, err := g.VertexTypeName(ctx, f.City)
	require.NoError(t, err)
	assert.Equal(t, "city", name)

	et, err := g.EdgeTypeByName(ctx, "lives_in")
	require.NoError(t, err)
	assert.Equal(t, f.LivesIn, et)

	people, err := g.Vertices(ctx, f.Person)
	require.NoError(t, err)
	assert.ElementsMatch(t, f.People, people)

	n, err := g.VertexCount(ctx, f.City)
	require.NoError(t, err)
	assert.Equal(t, len(f.Cities), n)

	n, err = g.EdgeCount(ctx, f.Knows)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	for _, v := range f.Cities {
		vt, err := g.VertexTypeOf(ctx, v)
		require.NoError(t, err)
		assert.Equal(t, f.City, vt)
	}

	for _, rec := range f.Edges {
		et, err := g.EdgeTypeOf(ctx, rec.Edge)
		require.NoError(t, err)
		assert.Equal(t, rec.Type, et)

		src, dst, err := g.EdgeEndpoints(ctx, rec.Edge)
		require.NoError(t, err)
		assert.Equal(t, rec.Src, src)
		assert.Equal(t, rec.Dst, dst)
	}

	_, err = g.VertexTypeByName(ctx, "planet")
	assert.True(t, errors.Is(err, grin.ErrNotFound))
}

func testInt64IDs(t *testing.T, open Opener) {
	ctx := context.Background()
	g, f := Open(t, open, grin.Int64)

	dt, err := g.VertexOriginalIDDataType(ctx)
	require.NoError(t, err)
	assert.Equal(t, grin.Int64, dt)
	assert.True(t, g.Features().Has(grin.FeatureVertexOriginalIDInt64))
	assert.False(t, g.Features().Has(grin.FeatureVertexOriginalIDString))

	idx, err := grin.Int64OriginalIDs(g)
	require.NoError(t, err)
	for _, v := range f.Vertices() {
		id, err := idx.VertexOriginalIDOfInt64(ctx, v)
		require.NoError(t, err)
		assert.Equal(t, f.IDs[v].Int(), id)

		back, err := idx.VertexByOriginalIDOfInt64(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, v, back)
	}

	_, err = idx.VertexByOriginalIDOfInt64(ctx, 999)
	assert.True(t, errors.Is(err, grin.ErrNotFound))

	_, err = grin.StringOriginalIDs(g)
	assert.True(t, errors.Is(err, grin.ErrUnsupported))
	_, err = g.VertexByOriginalIDOfString(ctx, "alice")
	assert.True(t, errors.Is(err, grin.ErrUnsupported))
}

func testStringIDs(t *testing.T, open Opener) {
	ctx := context.Background()
	g, f := Open(t, open, grin.String)

	dt, err := g.VertexOriginalIDDataType(ctx)
	require.NoError(t, err)
	assert.Equal(t, grin.String, dt)

	before := g.Tracker().Stats()
	idx, err := grin.StringOriginalIDs(g)
	require.NoError(t, err)
	for _, v := range f.Vertices() {
		id, err := idx.VertexOriginalIDOfString(ctx, v)
		require.NoError(t, err)
		assert.Equal(t, f.IDs[v].Str(), id)

		back, err := idx.VertexByOriginalIDOfString(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, v, back)
		g.DestroyStringValue(id)
	}
	assert.Equal(t, before, g.Tracker().Stats())

	_, err = idx.VertexByOriginalIDOfString(ctx, "nobody")
	assert.True(t, errors.Is(err, grin.ErrNotFound))

	_, err = g.VertexOriginalIDOfInt64(ctx, f.People[0])
	assert.True(t, errors.Is(err, grin.ErrUnsupported))

	// keys the index cannot hold are refused up front and leave the builder usable
	for _, bad := range []string{"", strings.Repeat("x", grin.MaxStringIDLen+1)} {
		_, err = g.AddVertex(ctx, f.Person, grin.StringID(bad), nil)
		assert.Equal(t, gerrors.ErrorTypeValidation, gerrors.GetType(err), "%d bytes", len(bad))
	}
	long := strings.Repeat("y", grin.MaxStringIDLen)
	v, err := g.AddVertex(ctx, f.Person, grin.StringID(long), nil)
	require.NoError(t, err)
	require.NoError(t, g.Flush(ctx))
	back, err := idx.VertexByOriginalIDOfString(ctx, long)
	require.NoError(t, err)
	assert.Equal(t, v, back)
	_, err = idx.VertexByOriginalIDOfString(ctx, "")
	assert.True(t, errors.Is(err, grin.ErrNotFound))
}

func testNoIDs(t *testing.T, open Opener) {
	ctx := context.Background()
	g, f := Open(t, open, grin.Undefined)

	dt, err := g.VertexOriginalIDDataType(ctx)
	require.NoError(t, err)
	assert.Equal(t, grin.Undefined, dt)

	_, err = g.VertexOriginalIDOfInt64(ctx, f.People[0])
	assert.True(t, errors.Is(err, grin.ErrUnsupported))
	_, err = g.VertexOriginalIDOfString(ctx, f.People[0])
	assert.True(t, errors.Is(err, grin.ErrUnsupported))
}

func testPropertyNames(t *testing.T, open Opener) {
	ctx := context.Background()
	g, f := Open(t, open, grin.Int64)
	before := g.Tracker().Stats()

	for _, vt := range []grin.VertexType{f.Person, f.City} {
		props, err := g.VertexPropertyList(ctx, vt)
		require.NoError(t, err)
		require.NotEmpty(t, props)

		for _, p := range props {
			name, err := g.VertexPropertyName(ctx, vt, p)
			require.NoError(t, err)

			back, err := g.VertexPropertyByName(ctx, vt, name)
			require.NoError(t, err)
			assert.True(t, g.EqualVertexProperty(p, back), name)
			assert.True(t, g.EqualVertexProperty(p, p))

			owner, err := g.VertexTypeFromProperty(ctx, p)
			require.NoError(t, err)
			assert.Equal(t, vt, owner)

			g.DestroyVertexProperty(back)
			g.DestroyStringValue(name)
		}
		for _, p := range props {
			g.DestroyVertexProperty(p)
		}
	}

	props, err := g.EdgePropertyList(ctx, f.Knows)
	require.NoError(t, err)
	require.Len(t, props, 3)
	for _, p := range props {
		name, err := g.EdgePropertyName(ctx, f.Knows, p)
		require.NoError(t, err)
		back, err := g.EdgePropertyByName(ctx, f.Knows, name)
		require.NoError(t, err)
		assert.True(t, g.EqualEdgeProperty(p, back))

		owner, err := g.EdgeTypeFromProperty(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, f.Knows, owner)

		g.DestroyEdgeProperty(back)
		g.DestroyStringValue(name)
		g.DestroyEdgeProperty(p)
	}

	_, err = g.VertexPropertyByName(ctx, f.Person, "population")
	assert.True(t, errors.Is(err, grin.ErrNotFound))

	assert.Equal(t, before, g.Tracker().Stats())
}

func testPropertiesByName(t *testing.T, open Opener) {
	ctx := context.Background()
	g, f := Open(t, open, grin.Int64)

	props, err := g.VertexPropertiesByName(ctx, "name")
	require.NoError(t, err)
	require.Len(t, props, 2)

	owners := make([]grin.VertexType, len(props))
	for i, p := range props {
		owners[i], err = g.VertexTypeFromProperty(ctx, p)
		require.NoError(t, err)
	}
	assert.Equal(t, []grin.VertexType{f.Person, f.City}, owners)
	assert.False(t, g.EqualVertexProperty(props[0], props[1]))

	none, err := g.VertexPropertiesByName(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)

	eprops, err := g.EdgePropertiesByName(ctx, "rank")
	require.NoError(t, err)
	require.Len(t, eprops, 1)
	owner, err := g.EdgeTypeFromProperty(ctx, eprops[0])
	require.NoError(t, err)
	assert.Equal(t, f.LivesIn, owner)

	stats := g.Tracker().Stats()
	assert.Equal(t, int64(2), stats.LiveVertexProperties)
	assert.Equal(t, int64(1), stats.LiveEdgeProperties)

	for _, p := range props {
		g.DestroyVertexProperty(p)
	}
	g.DestroyEdgeProperty(eprops[0])
	assert.Equal(t, grin.Stats{}, g.Tracker().Stats())
}

func testVertexValues(t *testing.T, open Opener) {
	ctx := context.Background()
	g, f := Open(t, open, grin.Int64)

	for _, v := range f.Vertices() {
		vt, err := g.VertexTypeOf(ctx, v)
		require.NoError(t, err)
		props, err := g.VertexPropertyList(ctx, vt)
		require.NoError(t, err)

		for _, p := range props {
			name, err := g.VertexPropertyName(ctx, vt, p)
			require.NoError(t, err)
			dt, err := g.VertexPropertyDataType(ctx, p)
			require.NoError(t, err)

			want, set := f.VertexValues[v][name]
			got, err := grin.TypedVertexValue(ctx, g, v, p, dt)
			if !set {
				assert.True(t, errors.Is(err, grin.ErrNullValue), "%s of %#x", name, uint64(v))

				val, err := g.VertexPropertyValue(ctx, v, p)
				require.NoError(t, err)
				assert.True(t, val.IsNull())
				assert.Equal(t, dt, val.Type)
			} else {
				require.NoError(t, err, name)
				assert.Equal(t, want, got, name)
				if s, ok := got.(string); ok {
					g.DestroyStringValue(s)
				}
			}
			g.DestroyStringValue(name)
			g.DestroyVertexProperty(p)
		}
	}
	assert.Equal(t, grin.Stats{}, g.Tracker().Stats())
}

func testEdgeValues(t *testing.T, open Opener) {
	ctx := context.Background()
	g, f := Open(t, open, grin.String)

	for _, rec := range f.Edges {
		props, err := g.EdgePropertyList(ctx, rec.Type)
		require.NoError(t, err)

		for _, p := range props {
			name, err := g.EdgePropertyName(ctx, rec.Type, p)
			require.NoError(t, err)
			dt, err := g.EdgePropertyDataType(ctx, p)
			require.NoError(t, err)

			want, set := f.EdgeValues[rec.Edge][name]
			got, err := grin.TypedEdgeValue(ctx, g, rec.Edge, p, dt)
			if !set {
				assert.True(t, errors.Is(err, grin.ErrNullValue), name)
			} else {
				require.NoError(t, err, name)
				assert.Equal(t, want, got, name)
				if s, ok := got.(string); ok {
					g.DestroyStringValue(s)
				}
			}
			g.DestroyStringValue(name)
			g.DestroyEdgeProperty(p)
		}
	}
	assert.Equal(t, grin.Stats{}, g.Tracker().Stats())
}

func testTypeMismatch(t *testing.T, open Opener) {
	ctx := context.Background()
	g, f := Open(t, open, grin.Int64)

	population, err := g.VertexPropertyByName(ctx, f.City, "population")
	require.NoError(t, err)
	_, err = g.VertexPropertyValue(ctx, f.People[0], population)
	assert.True(t, errors.Is(err, grin.ErrTypeMismatch))

	_, err = g.VertexPropertyName(ctx, f.Person, population)
	assert.True(t, errors.Is(err, grin.ErrTypeMismatch))

	age, err := g.VertexPropertyByName(ctx, f.Person, "age")
	require.NoError(t, err)
	_, err = grin.VertexPropertyInt64(ctx, g, f.People[0], age)
	assert.True(t, errors.Is(err, grin.ErrTypeMismatch))
	n, err := grin.VertexPropertyInt32(ctx, g, f.People[0], age)
	require.NoError(t, err)
	assert.Equal(t, int32(34), n)

	rank, err := g.EdgePropertyByName(ctx, f.LivesIn, "rank")
	require.NoError(t, err)
	_, err = g.EdgePropertyValue(ctx, f.Edges[0].Edge, rank)
	assert.True(t, errors.Is(err, grin.ErrTypeMismatch), "knows edge read with a lives_in property")

	_, err = g.VertexPropertyValue(ctx, grin.NullVertex, age)
	assert.Error(t, err)
	ghost := catalog.PackVertex(f.City, 1<<20)
	_, err = g.VertexPropertyValue(ctx, ghost, age)
	assert.True(t, errors.Is(err, grin.ErrNotFound), "a missing vertex is not found before its type is compared")
	_, err = g.VertexPropertyDataType(ctx, grin.NullVertexProperty)
	assert.True(t, errors.Is(err, grin.ErrNotFound))

	g.DestroyVertexProperty(population)
	g.DestroyVertexProperty(age)
	g.DestroyEdgeProperty(rank)
}

func testFeatureGating(t *testing.T, open Opener) {
	ctx := context.Background()
	g, f := Open(t, open, grin.Int64)

	g.SetFeatures(grin.FeaturesOf(grin.FeatureVertexProperty, grin.FeatureVertexOriginalIDString))
	have := g.Features()
	assert.True(t, have.Has(grin.FeatureVertexProperty))
	assert.False(t, have.Has(grin.FeatureVertexOriginalIDString), "graph stores int64 ids")
	assert.NoError(t, have.Validate())

	_, err := grin.VertexProperties(g)
	assert.NoError(t, err)
	_, err = grin.VertexPropertyNames(g)
	assert.True(t, errors.Is(err, grin.ErrUnsupported))
	_, err = grin.EdgeProperties(g)
	assert.True(t, errors.Is(err, grin.ErrUnsupported))
	_, err = grin.Int64OriginalIDs(g)
	assert.True(t, errors.Is(err, grin.ErrUnsupported))

	_, err = g.VertexPropertyByName(ctx, f.Person, "age")
	assert.True(t, errors.Is(err, grin.ErrUnsupported))
	_, err = g.EdgePropertyList(ctx, f.Knows)
	assert.True(t, errors.Is(err, grin.ErrUnsupported))
	_, err = g.VertexByOriginalIDOfInt64(ctx, 1)
	assert.True(t, errors.Is(err, grin.ErrUnsupported))
	_, err = g.VertexPropertyValuePtr(ctx, f.People[0], grin.NullVertexProperty)
	assert.True(t, errors.Is(err, grin.ErrUnsupported))

	props, err := g.VertexPropertyList(ctx, f.Person)
	require.NoError(t, err)
	for _, p := range props {
		g.DestroyVertexProperty(p)
	}

	g.SetFeatures(grin.AllFeatures)
	_, err = grin.VertexPropertyNames(g)
	assert.NoError(t, err)
}

func testBuilderValidation(t *testing.T, open Opener) {
	ctx := context.Background()
	g, f := Open(t, open, grin.Int64)

	_, err := g.AddVertex(ctx, f.Person, grin.Int64ID(1), nil)
	assert.True(t, errors.Is(err, grin.ErrDuplicate), "ids are unique across types")
	_, err = g.AddVertex(ctx, f.City, grin.Int64ID(2), nil)
	assert.True(t, errors.Is(err, grin.ErrDuplicate))

	_, err = g.AddVertex(ctx, f.Person, grin.StringID("dave"), nil)
	assert.True(t, errors.Is(err, grin.ErrTypeMismatch))

	_, err = g.AddVertex(ctx, grin.VertexType(42), grin.Int64ID(50), nil)
	assert.True(t, errors.Is(err, grin.ErrNotFound))

	age, err := g.VertexPropertyByName(ctx, f.Person, "age")
	require.NoError(t, err)
	_, err = g.AddVertex(ctx, f.Person, grin.Int64ID(51), map[grin.VertexProperty]any{age: "old"})
	assert.True(t, errors.Is(err, grin.ErrTypeMismatch))
	_, err = g.AddVertex(ctx, f.City, grin.Int64ID(52), map[grin.VertexProperty]any{age: 3})
	assert.True(t, errors.Is(err, grin.ErrTypeMismatch))
	g.DestroyVertexProperty(age)

	_, err = g.AddEdge(ctx, f.Knows, f.People[0], grin.NullVertex, nil)
	assert.True(t, errors.Is(err, grin.ErrNotFound))

	_, err = g.AddVertexType(ctx, "person")
	assert.True(t, errors.Is(err, grin.ErrDuplicate))

	v, err := g.AddVertex(ctx, f.Person, grin.Int64ID(4), nil)
	require.NoError(t, err)
	require.NoError(t, g.Flush(ctx))
	back, err := g.VertexByOriginalIDOfInt64(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, v, back)

	n, err := g.VertexCount(ctx, f.Person)
	require.NoError(t, err)
	assert.Equal(t, len(f.People)+1, n)
}

func testValuePointers(t *testing.T, open Opener) {
	ctx := context.Background()
	g, f := Open(t, open, grin.Int64)

	age, err := g.VertexPropertyByName(ctx, f.Person, "age")
	require.NoError(t, err)
	defer g.DestroyVertexProperty(age)

	if !g.Features().Has(grin.FeatureConstValuePtr) {
		_, err := grin.VertexValuePointers(g)
		assert.True(t, errors.Is(err, grin.ErrUnsupported))
		_, err = g.VertexPropertyValuePtr(ctx, f.People[0], age)
		assert.True(t, errors.Is(err, grin.ErrUnsupported))
		return
	}

	ptrs, err := grin.VertexValuePointers(g)
	require.NoError(t, err)
	ptr, err := ptrs.VertexPropertyValuePtr(ctx, f.People[0], age)
	require.NoError(t, err)
	require.IsType(t, (*int32)(nil), ptr)
	assert.Equal(t, int32(34), *ptr.(*int32))

	_, err = ptrs.VertexPropertyValuePtr(ctx, f.People[1], age)
	assert.True(t, errors.Is(err, grin.ErrNullValue))

	weight, err := g.EdgePropertyByName(ctx, f.Knows, "weight")
	require.NoError(t, err)
	defer g.DestroyEdgeProperty(weight)
	eptr, err := g.EdgePropertyValuePtr(ctx, f.Edges[0].Edge, weight)
	require.NoError(t, err)
	assert.Equal(t, 0.75, *eptr.(*float64))
}

func testClosed(t *testing.T, open Opener) {
	ctx := context.Background()
	g, f := Open(t, open, grin.Int64)

	require.NoError(t, g.Close())
	require.NoError(t, g.Close())

	_, err := g.VertexTypes(ctx)
	assert.True(t, errors.Is(err, grin.ErrClosed))
	_, err = g.VertexByOriginalIDOfInt64(ctx, 1)
	assert.True(t, errors.Is(err, grin.ErrClosed))
	_, err = g.Vertices(ctx, f.Person)
	assert.True(t, errors.Is(err, grin.ErrClosed))
	_, err = g.AddVertex(ctx, f.Person, grin.Int64ID(77), nil)
	assert.True(t, errors.Is(err, grin.ErrClosed))
}
