// Package grintest provides a sample graph and a shared contract test run
// against every backend.
package grintest

import (
	"context"
	"time"

	"github.com/rohankatakam/grin/internal/grin"
)

// Fixture describes the sample graph written by Populate
type Fixture struct {
	IDType grin.DataType

	Person  grin.VertexType
	City    grin.VertexType
	Knows   grin.EdgeType
	LivesIn grin.EdgeType

	// People and Cities are in insertion order
	People []grin.Vertex
	Cities []grin.Vertex
	// Edges holds every edge with its endpoints
	Edges []EdgeRecord

	// IDs maps each vertex to the original ID it was added with
	IDs map[grin.Vertex]grin.OriginalID
	// VertexValues maps each vertex to its set values by property name
	VertexValues map[grin.Vertex]map[string]any
	// EdgeValues maps each edge to its set values by property name
	EdgeValues map[grin.Edge]map[string]any
}

// EdgeRecord is one edge of the fixture
type EdgeRecord struct {
	Edge     grin.Edge
	Type     grin.EdgeType
	Src, Dst grin.Vertex
}

type propSpec struct {
	name string
	dt   grin.DataType
}

var personProps = []propSpec{
	{"name", grin.String},
	{"age", grin.Int32},
	{"score", grin.Float64},
	{"visits", grin.UInt32},
	{"born", grin.Date32},
	{"wakes", grin.Time32},
	{"joined", grin.Timestamp64},
}

var cityProps = []propSpec{
	{"name", grin.String},
	{"population", grin.UInt64},
	{"area", grin.Float32},
	{"code", grin.Int64},
}

var knowsProps = []propSpec{
	{"weight", grin.Float64},
	{"since", grin.Date32},
	{"note", grin.String},
}

var livesInProps = []propSpec{
	{"rank", grin.UInt32},
	{"moved", grin.Timestamp64},
}

type personRow struct {
	intID  int64
	strID  string
	values map[string]any
}

var joined = time.Date(2021, 3, 14, 15, 9, 26, 0, time.UTC)

var people = []personRow{
	{1, "alice", map[string]any{
		"name":   "alice",
		"age":    int32(34),
		"score":  float64(91.5),
		"visits": uint32(3000000000),
		"born":   grin.DateOf(time.Date(1990, 1, 2, 0, 0, 0, 0, time.UTC)),
		"wakes":  grin.TimeOfDay(7 * 3600 * 1000),
		"joined": grin.TimestampOf(joined),
	}},
	// bob has no age, score or dates
	{2, "bob", map[string]any{
		"name":   "bob",
		"visits": uint32(7),
	}},
	{3, "carol", map[string]any{
		"name":  "carol",
		"age":   int32(-1),
		"score": float64(0),
	}},
}

var cities = []personRow{
	{100, "paris", map[string]any{
		"name":       "paris",
		"population": uint64(2102650),
		"area":       float32(105.4),
		"code":       int64(-75056),
	}},
	{101, "oslo", map[string]any{
		"name": "oslo",
		"code": int64(301),
	}},
}

// Populate writes the sample graph into b using original IDs of idType
// (grin.Int64, grin.String, or grin.Undefined for none) and flushes it.
func Populate(ctx context.Context, b grin.Builder, idType grin.DataType) (*Fixture, error) {
	f := &Fixture{
		IDType:       idType,
		IDs:          make(map[grin.Vertex]grin.OriginalID),
		VertexValues: make(map[grin.Vertex]map[string]any),
		EdgeValues:   make(map[grin.Edge]map[string]any),
	}
	if err := b.SetOriginalIDType(ctx, idType); err != nil {
		return nil, err
	}

	var err error
	var personHandles, cityHandles map[string]grin.VertexProperty
	if f.Person, personHandles, err = addVertexType(ctx, b, "person", personProps); err != nil {
		return nil, err
	}
	if f.City, cityHandles, err = addVertexType(ctx, b, "city", cityProps); err != nil {
		return nil, err
	}

	knowsHandles := make(map[string]grin.EdgeProperty)
	if f.Knows, err = b.AddEdgeType(ctx, "knows"); err != nil {
		return nil, err
	}
	for _, ps := range knowsProps {
		if knowsHandles[ps.name], err = b.AddEdgeProperty(ctx, f.Knows, ps.name, ps.dt); err != nil {
			return nil, err
		}
	}
	livesHandles := make(map[string]grin.EdgeProperty)
	if f.LivesIn, err = b.AddEdgeType(ctx, "lives_in"); err != nil {
		return nil, err
	}
	for _, ps := range livesInProps {
		if livesHandles[ps.name], err = b.AddEdgeProperty(ctx, f.LivesIn, ps.name, ps.dt); err != nil {
			return nil, err
		}
	}

	for _, row := range people {
		v, err := f.addVertex(ctx, b, f.Person, row, personHandles)
		if err != nil {
			return nil, err
		}
		f.People = append(f.People, v)
	}
	for _, row := range cities {
		v, err := f.addVertex(ctx, b, f.City, row, cityHandles)
		if err != nil {
			return nil, err
		}
		f.Cities = append(f.Cities, v)
	}

	knows := []struct {
		src, dst int
		values   map[string]any
	}{
		{0, 1, map[string]any{"weight": 0.75, "since": grin.Date(18000), "note": "colleagues"}},
		{1, 2, map[string]any{"weight": 0.25}},
		{2, 0, map[string]any{}},
	}
	for _, k := range knows {
		if err := f.addEdge(ctx, b, f.Knows, f.People[k.src], f.People[k.dst], k.values, knowsHandles); err != nil {
			return nil, err
		}
	}

	lives := []struct {
		src, dst int
		values   map[string]any
	}{
		{0, 0, map[string]any{"rank": uint32(1), "moved": grin.TimestampOf(joined)}},
		{1, 1, map[string]any{"rank": uint32(2)}},
	}
	for _, l := range lives {
		if err := f.addEdge(ctx, b, f.LivesIn, f.People[l.src], f.Cities[l.dst], l.values, livesHandles); err != nil {
			return nil, err
		}
	}

	return f, b.Flush(ctx)
}

func addVertexType(ctx context.Context, b grin.Builder, name string, props []propSpec) (grin.VertexType, map[string]grin.VertexProperty, error) {
	vt, err := b.AddVertexType(ctx, name)
	if err != nil {
		return grin.NullVertexType, nil, err
	}
	handles := make(map[string]grin.VertexProperty, len(props))
	for _, ps := range props {
		if handles[ps.name], err = b.AddVertexProperty(ctx, vt, ps.name, ps.dt); err != nil {
			return grin.NullVertexType, nil, err
		}
	}
	return vt, handles, nil
}

func (f *Fixture) addVertex(ctx context.Context, b grin.Builder, vt grin.VertexType, row personRow, handles map[string]grin.VertexProperty) (grin.Vertex, error) {
	id := grin.NoID
	switch f.IDType {
	case grin.Int64:
		id = grin.Int64ID(row.intID)
	case grin.String:
		id = grin.StringID(row.strID)
	}

	values := make(map[grin.VertexProperty]any, len(row.values))
	for name, val := range row.values {
		values[handles[name]] = val
	}
	v, err := b.AddVertex(ctx, vt, id, values)
	if err != nil {
		return grin.NullVertex, err
	}
	f.IDs[v] = id
	f.VertexValues[v] = row.values
	return v, nil
}

func (f *Fixture) addEdge(ctx context.Context, b grin.Builder, et grin.EdgeType, src, dst grin.Vertex, raw map[string]any, handles map[string]grin.EdgeProperty) error {
	values := make(map[grin.EdgeProperty]any, len(raw))
	for name, val := range raw {
		values[handles[name]] = val
	}
	e, err := b.AddEdge(ctx, et, src, dst, values)
	if err != nil {
		return err
	}
	f.Edges = append(f.Edges, EdgeRecord{Edge: e, Type: et, Src: src, Dst: dst})
	f.EdgeValues[e] = raw
	return nil
}

// Vertices returns every fixture vertex, people first
func (f *Fixture) Vertices() []grin.Vertex {
	return append(append([]grin.Vertex(nil), f.People...), f.Cities...)
}
