package loader

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	gerrors "github.com/rohankatakam/grin/internal/errors"
	"github.com/rohankatakam/grin/internal/grin"
	"github.com/rohankatakam/grin/internal/memgraph"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
original_id: string
vertex_types:
  - name: person
    properties:
      - {name: name, type: string}
      - {name: age, type: int32}
      - {name: born, type: date32}
  - name: city
    properties:
      - {name: population, type: uint64}
edge_types:
  - name: lives_in
    properties:
      - {name: since, type: timestamp64}
vertices:
  - {type: person, id: alice, values: {name: Alice, age: 31, born: "1993-04-01"}}
  - {type: person, id: bob, values: {name: Bob}}
  - {type: city, id: paris, values: {population: 2102650}}
edges:
  - {type: lives_in, src: alice, dst: paris, values: {since: "2020-01-02T03:04:05Z"}}
  - {type: lives_in, src: bob, dst: paris}
`

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger
}

func parse(t *testing.T, src string) *Document {
	t.Helper()
	doc, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	return doc
}

func TestLoadSample(t *testing.T) {
	ctx := context.Background()
	g := memgraph.New(testLogger())
	defer g.Close()

	st, err := New(0, testLogger()).Load(ctx, parse(t, sample), g)
	require.NoError(t, err)
	assert.Equal(t, 2, st.VertexTypes)
	assert.Equal(t, 1, st.EdgeTypes)
	assert.Equal(t, 3, st.Vertices)
	assert.Equal(t, 2, st.Edges)

	alice, err := g.VertexByOriginalIDOfString(ctx, "alice")
	require.NoError(t, err)
	person, err := g.VertexTypeByName(ctx, "person")
	require.NoError(t, err)

	born, err := g.VertexPropertyByName(ctx, person, "born")
	require.NoError(t, err)
	defer g.DestroyVertexProperty(born)
	d, err := grin.VertexPropertyDate32(ctx, g, alice, born)
	require.NoError(t, err)
	assert.Equal(t, "1993-04-01", d.String())

	bob, err := g.VertexByOriginalIDOfString(ctx, "bob")
	require.NoError(t, err)
	age, err := g.VertexPropertyByName(ctx, person, "age")
	require.NoError(t, err)
	defer g.DestroyVertexProperty(age)
	_, err = grin.VertexPropertyInt32(ctx, g, bob, age)
	assert.True(t, errors.Is(err, grin.ErrNullValue))

	livesIn, err := g.EdgeTypeByName(ctx, "lives_in")
	require.NoError(t, err)
	n, err := g.EdgeCount(ctx, livesIn)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestLoadJSON(t *testing.T) {
	src := `{
    "original_id": "int64",
    "vertex_types": [{"name": "node", "properties": [{"name": "weight", "type": "double"}]}],
    "edge_types": [{"name": "link"}],
    "vertices": [
      {"type": "node", "id": 10, "values": {"weight": 0.5}},
      {"type": "node", "id": 11}
    ],
    "edges": [{"type": "link", "src": 10, "dst": 11}]
  }`
	ctx := context.Background()
	g := memgraph.New(testLogger())
	defer g.Close()

	st, err := New(0, testLogger()).Load(ctx, parse(t, src), g)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Vertices)

	v, err := g.VertexByOriginalIDOfInt64(ctx, 11)
	require.NoError(t, err)
	id, err := g.VertexOriginalIDOfInt64(ctx, v)
	require.NoError(t, err)
	assert.Equal(t, int64(11), id)
}

func TestKeysWithoutOriginalIDs(t *testing.T) {
	src := `
vertex_types: [{name: node}]
edge_types: [{name: link}]
vertices:
  - {type: node, key: a}
  - {type: node, key: b}
edges:
  - {type: link, src: a, dst: b}
`
	ctx := context.Background()
	g := memgraph.New(testLogger())
	defer g.Close()

	st, err := New(0, testLogger()).Load(ctx, parse(t, src), g)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Edges)

	dt, err := g.VertexOriginalIDDataType(ctx)
	require.NoError(t, err)
	assert.Equal(t, grin.Undefined, dt)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "unknown vertex type",
			src:  "vertices: [{type: ghost}]",
			want: `unknown vertex type "ghost"`,
		},
		{
			name: "unknown property",
			src:  "vertex_types: [{name: n}]\nvertices: [{type: n, values: {x: 1}}]",
			want: `unknown property "x"`,
		},
		{
			name: "duplicate id",
			src:  "original_id: int64\nvertex_types: [{name: n}]\nvertices: [{type: n, id: 1}, {type: n, id: 1}]",
			want: "duplicate id 1",
		},
		{
			name: "missing endpoint",
			src:  "original_id: int64\nvertex_types: [{name: n}]\nedge_types: [{name: e}]\nvertices: [{type: n, id: 1}]\nedges: [{type: e, src: 1, dst: 2}]",
			want: "unknown endpoint 2",
		},
		{
			name: "bad value",
			src:  "vertex_types: [{name: n, properties: [{name: age, type: int32}]}]\nvertices: [{type: n, values: {age: old}}]",
			want: `property "age"`,
		},
		{
			name: "id without original ids",
			src:  "vertex_types: [{name: n}]\nvertices: [{type: n, id: 7}]",
			want: "declares no original ids",
		},
		{
			name: "invalid type name",
			src:  "vertex_types: [{name: \"bad name\"}]",
			want: "invalid name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := parse(t, tt.src).Validate()
			require.Error(t, err)
			assert.Equal(t, gerrors.ErrorTypeValidation, gerrors.GetType(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse(strings.NewReader("vertex_typez: []"))
	assert.Error(t, err)
}

// flushCounter counts Flush calls
type flushCounter struct {
	*memgraph.Graph
	flushes int
}

func (f *flushCounter) Flush(ctx context.Context) error {
	f.flushes++
	return f.Graph.Flush(ctx)
}

func TestBatchedFlush(t *testing.T) {
	ctx := context.Background()
	g := &flushCounter{Graph: memgraph.New(testLogger())}
	defer g.Close()

	// five writes with a batch of two: flushes after 2 and 4, then the final one
	_, err := New(2, testLogger()).Load(ctx, parse(t, sample), g)
	require.NoError(t, err)
	assert.Equal(t, 3, g.flushes)
}

func TestLoadFileAndEncode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0644))

	doc, err := ParseFile(path)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, doc.Encode(&buf))
	again := parse(t, buf.String())
	assert.Equal(t, doc.OriginalID, again.OriginalID)
	assert.Equal(t, doc.VertexTypes, again.VertexTypes)
	assert.Len(t, again.Edges, 2)

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, gerrors.ErrorTypeFileSystem, gerrors.GetType(err))
}
