package catalog

import (
	"context"
	"errors"
	"strings"
	"testing"

	gerrors "github.com/rohankatakam/grin/internal/errors"
	"github.com/rohankatakam/grin/internal/grin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCatalog(t *testing.T) (*Catalog, grin.VertexType, grin.EdgeType) {
	t.Helper()
	ctx := context.Background()

	c := New(grin.AllFeatures, nil)
	require.NoError(t, c.SetOriginalIDType(ctx, grin.Int64))

	person, err := c.AddVertexType(ctx, "person")
	require.NoError(t, err)
	_, err = c.AddVertexProperty(ctx, person, "name", grin.String)
	require.NoError(t, err)
	_, err = c.AddVertexProperty(ctx, person, "age", grin.Int32)
	require.NoError(t, err)

	city, err := c.AddVertexType(ctx, "city")
	require.NoError(t, err)
	_, err = c.AddVertexProperty(ctx, city, "name", grin.String)
	require.NoError(t, err)

	knows, err := c.AddEdgeType(ctx, "knows")
	require.NoError(t, err)
	_, err = c.AddEdgeProperty(ctx, knows, "weight", grin.Float64)
	require.NoError(t, err)

	return c, person, knows
}

func TestPackRoundTrip(t *testing.T) {
	v := PackVertex(7, 123456)
	vt, row := UnpackVertex(v)
	assert.Equal(t, grin.VertexType(7), vt)
	assert.Equal(t, uint64(123456), row)

	e := PackEdge(3, RowMask)
	et, erow := UnpackEdge(e)
	assert.Equal(t, grin.EdgeType(3), et)
	assert.Equal(t, RowMask, erow)

	p := PackVertexProperty(2, 5)
	pt, slot := UnpackVertexProperty(p)
	assert.Equal(t, grin.VertexType(2), pt)
	assert.Equal(t, uint32(5), slot)

	nt, _ := UnpackVertex(grin.NullVertex)
	assert.Equal(t, grin.VertexType(MaxTypes), nt)
}

func TestIntStorageRoundTrip(t *testing.T) {
	values := []struct {
		dt grin.DataType
		v  any
	}{
		{grin.Int32, int32(-5)},
		{grin.UInt32, uint32(4000000000)},
		{grin.Int64, int64(-1)},
		{grin.UInt64, uint64(18446744073709551615)},
		{grin.Date32, grin.Date(19000)},
		{grin.Time32, grin.TimeOfDay(1000)},
		{grin.Timestamp64, grin.Timestamp(1700000000000)},
	}
	for _, tt := range values {
		n, ok := ToInt64(tt.v)
		require.True(t, ok, tt.dt.String())
		assert.Equal(t, tt.v, FromInt64(tt.dt, n), tt.dt.String())
	}

	_, ok := ToInt64("x")
	assert.False(t, ok)
}

func TestTypeLookup(t *testing.T) {
	ctx := context.Background()
	c, person, knows := newTestCatalog(t)

	vts, err := c.VertexTypes(ctx)
	require.NoError(t, err)
	assert.Len(t, vts, 2)

	name, err := c.VertexTypeName(ctx, person)
	require.NoError(t, err)
	assert.Equal(t, "person", name)

	et, err := c.EdgeTypeByName(ctx, "knows")
	require.NoError(t, err)
	assert.Equal(t, knows, et)

	_, err = c.VertexTypeByName(ctx, "planet")
	assert.True(t, errors.Is(err, grin.ErrNotFound))

	_, err = c.VertexTypeName(ctx, 99)
	assert.True(t, errors.Is(err, grin.ErrNotFound))
}

func TestAddValidation(t *testing.T) {
	ctx := context.Background()
	c, person, _ := newTestCatalog(t)

	_, err := c.AddVertexType(ctx, "person")
	assert.True(t, errors.Is(err, grin.ErrDuplicate))

	_, err = c.AddVertexType(ctx, "bad-name")
	assert.Error(t, err)

	_, err = c.AddVertexType(ctx, "grin_internal")
	assert.Error(t, err)

	_, err = c.AddVertexProperty(ctx, person, "age", grin.Int64)
	assert.True(t, errors.Is(err, grin.ErrDuplicate))

	_, err = c.AddVertexProperty(ctx, person, "height", grin.Undefined)
	assert.Error(t, err)

	_, err = c.AddVertexProperty(ctx, 42, "x", grin.Int32)
	assert.True(t, errors.Is(err, grin.ErrNotFound))

	assert.Error(t, c.SetOriginalIDType(ctx, grin.String), "id type is fixed once types exist")
	assert.NoError(t, c.SetOriginalIDType(ctx, grin.Int64))
	assert.Error(t, c.SetOriginalIDType(ctx, grin.Float64))
}

func TestPropertyNameRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, person, _ := newTestCatalog(t)

	props, err := c.VertexPropertyList(ctx, person)
	require.NoError(t, err)
	require.Len(t, props, 2)

	for _, p := range props {
		name, err := c.VertexPropertyName(ctx, person, p)
		require.NoError(t, err)
		back, err := c.VertexPropertyByName(ctx, person, name)
		require.NoError(t, err)
		assert.True(t, c.EqualVertexProperty(p, back))
		c.DestroyVertexProperty(back)
		c.DestroyStringValue(name)
	}
	for _, p := range props {
		c.DestroyVertexProperty(p)
	}
	assert.Equal(t, grin.Stats{}, c.Tracker().Stats())
}

func TestPropertiesByName(t *testing.T) {
	ctx := context.Background()
	c, person, _ := newTestCatalog(t)

	props, err := c.VertexPropertiesByName(ctx, "name")
	require.NoError(t, err)
	require.Len(t, props, 2)

	vt, err := c.VertexTypeFromProperty(ctx, props[0])
	require.NoError(t, err)
	assert.Equal(t, person, vt)
	assert.False(t, c.EqualVertexProperty(props[0], props[1]))

	none, err := c.VertexPropertiesByName(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)

	assert.Equal(t, int64(2), c.Tracker().Stats().LiveVertexProperties)
}

func TestPropertyNameBoundToOtherType(t *testing.T) {
	ctx := context.Background()
	c, person, _ := newTestCatalog(t)

	city, err := c.VertexTypeByName(ctx, "city")
	require.NoError(t, err)
	p, err := c.VertexPropertyByName(ctx, person, "age")
	require.NoError(t, err)

	_, err = c.VertexPropertyName(ctx, city, p)
	assert.True(t, errors.Is(err, grin.ErrTypeMismatch))

	_, _, err = c.VertexSlot(PackVertex(city, 0), p, nil)
	assert.True(t, errors.Is(err, grin.ErrTypeMismatch))

	missing := func() error { return grin.ErrNotFound }
	_, _, err = c.VertexSlot(PackVertex(city, 0), p, missing)
	assert.True(t, errors.Is(err, grin.ErrNotFound), "existence is checked before the type")

	slot, dt, err := c.VertexSlot(PackVertex(person, 3), p, missing)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), slot)
	assert.Equal(t, grin.Int32, dt)
}

func TestFeatureGating(t *testing.T) {
	ctx := context.Background()
	c, person, knows := newTestCatalog(t)
	c.SetFeatures(grin.FeaturesOf(grin.FeatureVertexProperty))

	assert.True(t, c.Features().Has(grin.FeatureVertexProperty))
	assert.False(t, c.Features().Has(grin.FeatureVertexOriginalIDInt64))

	_, err := c.VertexPropertyByName(ctx, person, "age")
	assert.True(t, errors.Is(err, grin.ErrUnsupported))

	_, err = c.EdgePropertyList(ctx, knows)
	assert.True(t, errors.Is(err, grin.ErrUnsupported))

	_, err = c.VertexPropertyList(ctx, person)
	assert.NoError(t, err)
}

func TestCoerceValues(t *testing.T) {
	ctx := context.Background()
	c, person, knows := newTestCatalog(t)

	age := PackVertexProperty(person, 1)
	name := PackVertexProperty(person, 0)
	values, err := c.CoerceVertexValues(person, map[grin.VertexProperty]any{age: 31, name: nil})
	require.NoError(t, err)
	assert.Equal(t, map[uint32]any{1: int32(31)}, values)

	_, err = c.CoerceVertexValues(person, map[grin.VertexProperty]any{age: "old"})
	assert.True(t, errors.Is(err, grin.ErrTypeMismatch))

	weight, err := c.EdgePropertyByName(ctx, knows, "weight")
	require.NoError(t, err)
	evalues, err := c.CoerceEdgeValues(knows, map[grin.EdgeProperty]any{weight: 1})
	require.NoError(t, err)
	assert.Equal(t, map[uint32]any{0: float64(1)}, evalues)
}

func TestMarshalRoundTrip(t *testing.T) {
	c, _, _ := newTestCatalog(t)

	b, err := c.Marshal()
	require.NoError(t, err)

	s, err := DecodeSchema(b)
	require.NoError(t, err)
	assert.Equal(t, c.Schema(), s)

	restored, err := FromSchema(s, grin.AllFeatures, nil)
	require.NoError(t, err)
	assert.Equal(t, c.ID(), restored.ID())
	assert.Equal(t, c.Schema(), restored.Schema())

	_, err = DecodeSchema([]byte{0xc1})
	assert.Error(t, err)
}

func TestClosedCatalog(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestCatalog(t)
	c.MarkClosed()

	_, err := c.VertexTypes(ctx)
	assert.True(t, errors.Is(err, grin.ErrClosed))
	_, err = c.VertexOriginalIDDataType(ctx)
	assert.True(t, errors.Is(err, grin.ErrClosed))
}

func TestCellRoundTrip(t *testing.T) {
	values := []struct {
		dt grin.DataType
		v  any
	}{
		{grin.String, "héllo"},
		{grin.Float32, float32(105.4)},
		{grin.Float64, 0.75},
		{grin.Int32, int32(-7)},
		{grin.UInt64, uint64(1) << 63},
		{grin.Timestamp64, grin.Timestamp(-1)},
	}
	for _, tt := range values {
		assert.Equal(t, tt.v, EncodeCell(tt.dt, tt.v).Decode(tt.dt), tt.dt.String())
	}

	assert.Less(t, SortableInt64(-5), SortableInt64(3))
	assert.Equal(t, int64(-5), FromSortableInt64(SortableInt64(-5)))
}

func TestCheckOriginalID(t *testing.T) {
	c := New(grin.AllFeatures, nil)
	require.NoError(t, c.SetOriginalIDType(context.Background(), grin.String))

	tests := []struct {
		name    string
		id      grin.OriginalID
		valid   bool
		errType gerrors.ErrorType
	}{
		{"plain", grin.StringID("alice"), true, 0},
		{"at limit", grin.StringID(strings.Repeat("a", grin.MaxStringIDLen)), true, 0},
		{"empty", grin.StringID(""), false, gerrors.ErrorTypeValidation},
		{"over limit", grin.StringID(strings.Repeat("a", grin.MaxStringIDLen+1)), false, gerrors.ErrorTypeValidation},
		{"wrong kind", grin.Int64ID(1), false, gerrors.ErrorTypeTypeMismatch},
		{"missing", grin.NoID, false, gerrors.ErrorTypeTypeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.CheckOriginalID(tt.id)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.errType, gerrors.GetType(err))
		})
	}
}
