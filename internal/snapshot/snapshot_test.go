package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/rohankatakam/grin/internal/boltgraph"
	gerrors "github.com/rohankatakam/grin/internal/errors"
	"github.com/rohankatakam/grin/internal/grin"
	"github.com/rohankatakam/grin/internal/grintest"
	"github.com/rohankatakam/grin/internal/memgraph"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger
}

// element is a backend-neutral view of one vertex or edge
type element struct {
	Type   string
	Key    string
	Src    string
	Dst    string
	Values map[string]any
}

// describe lists every element of g keyed by original ID, or by position
// within its type when the graph has none
func describe(t *testing.T, g grin.Graph) []element {
	t.Helper()
	ctx := context.Background()
	idType, err := g.VertexOriginalIDDataType(ctx)
	require.NoError(t, err)

	keys := make(map[grin.Vertex]string)
	var out []element

	vts, err := g.VertexTypes(ctx)
	require.NoError(t, err)
	for _, vt := range vts {
		name, err := g.VertexTypeName(ctx, vt)
		require.NoError(t, err)
		props, err := g.VertexPropertyList(ctx, vt)
		require.NoError(t, err)
		vs, err := g.Vertices(ctx, vt)
		require.NoError(t, err)
		for i, v := range vs {
			key := fmt.Sprintf("%s#%d", name, i)
			switch idType {
			case grin.Int64:
				id, err := g.VertexOriginalIDOfInt64(ctx, v)
				require.NoError(t, err)
				key = fmt.Sprint(id)
			case grin.String:
				id, err := g.VertexOriginalIDOfString(ctx, v)
				require.NoError(t, err)
				key = id
				g.DestroyStringValue(id)
			}
			keys[v] = key
			el := element{Type: name, Key: key, Values: map[string]any{}}
			for _, p := range props {
				pname, err := g.VertexPropertyName(ctx, vt, p)
				require.NoError(t, err)
				val, err := g.VertexPropertyValue(ctx, v, p)
				require.NoError(t, err)
				el.Values[pname] = val.Interface()
				g.DestroyStringValue(pname)
				if s, err := val.AsString(); err == nil {
					g.DestroyStringValue(s)
				}
			}
			out = append(out, el)
		}
		for _, p := range props {
			g.DestroyVertexProperty(p)
		}
	}

	ets, err := g.EdgeTypes(ctx)
	require.NoError(t, err)
	for _, et := range ets {
		name, err := g.EdgeTypeName(ctx, et)
		require.NoError(t, err)
		props, err := g.EdgePropertyList(ctx, et)
		require.NoError(t, err)
		es, err := g.Edges(ctx, et)
		require.NoError(t, err)
		for _, e := range es {
			src, dst, err := g.EdgeEndpoints(ctx, e)
			require.NoError(t, err)
			el := element{Type: name, Src: keys[src], Dst: keys[dst], Values: map[string]any{}}
			for _, p := range props {
				pname, err := g.EdgePropertyName(ctx, et, p)
				require.NoError(t, err)
				val, err := g.EdgePropertyValue(ctx, e, p)
				require.NoError(t, err)
				el.Values[pname] = val.Interface()
				g.DestroyStringValue(pname)
				if s, err := val.AsString(); err == nil {
					g.DestroyStringValue(s)
				}
			}
			out = append(out, el)
		}
		for _, p := range props {
			g.DestroyEdgeProperty(p)
		}
	}
	return out
}

func populated(t *testing.T, idType grin.DataType) *memgraph.Graph {
	t.Helper()
	g := memgraph.New(testLogger())
	t.Cleanup(func() { _ = g.Close() })
	_, err := grintest.Populate(context.Background(), g, idType)
	require.NoError(t, err)
	return g
}

func TestRoundTrip(t *testing.T) {
	targets := map[string]func(t *testing.T) grin.Store{
		"memgraph": func(t *testing.T) grin.Store {
			g := memgraph.New(testLogger())
			t.Cleanup(func() { _ = g.Close() })
			return g
		},
		"boltgraph": func(t *testing.T) grin.Store {
			g, err := boltgraph.Open(filepath.Join(t.TempDir(), "graph.db"), boltgraph.Options{}, testLogger())
			require.NoError(t, err)
			t.Cleanup(func() { _ = g.Close() })
			return g
		},
	}

	for target, open := range targets {
		for _, idType := range []grin.DataType{grin.Int64, grin.String, grin.Undefined} {
			t.Run(fmt.Sprintf("%s/%s", target, idType), func(t *testing.T) {
				ctx := context.Background()
				src := populated(t, idType)

				var buf bytes.Buffer
				dumped, err := Dump(ctx, src, &buf, Options{Level: 3, Logger: testLogger()})
				require.NoError(t, err)
				assert.Equal(t, uint64(5), dumped.Vertices)
				assert.Equal(t, uint64(5), dumped.Edges)

				dst := open(t)
				restored, err := Restore(ctx, &buf, dst, RestoreOptions{BatchSize: 2, Logger: testLogger()})
				require.NoError(t, err)
				assert.Equal(t, dumped, restored)

				assert.Equal(t, describe(t, src), describe(t, dst))

				dt, err := dst.VertexOriginalIDDataType(ctx)
				require.NoError(t, err)
				assert.Equal(t, idType, dt)

				assert.Equal(t, grin.Stats{}, src.Tracker().Stats())
				assert.Equal(t, grin.Stats{}, dst.Tracker().Stats())
			})
		}
	}
}

// reversedTypes lists types in the opposite order of their handles
type reversedTypes struct {
	*memgraph.Graph
}

func (g reversedTypes) VertexTypes(ctx context.Context) ([]grin.VertexType, error) {
	vts, err := g.Graph.VertexTypes(ctx)
	vts = slices.Clone(vts)
	slices.Reverse(vts)
	return vts, err
}

func (g reversedTypes) EdgeTypes(ctx context.Context) ([]grin.EdgeType, error) {
	ets, err := g.Graph.EdgeTypes(ctx)
	ets = slices.Clone(ets)
	slices.Reverse(ets)
	return ets, err
}

func TestRecordsUseTypePositions(t *testing.T) {
	ctx := context.Background()
	src := reversedTypes{populated(t, grin.Int64)}

	var buf bytes.Buffer
	_, err := Dump(ctx, src, &buf, Options{Logger: testLogger()})
	require.NoError(t, err)

	dst := memgraph.New(testLogger())
	defer dst.Close()
	_, err = Restore(ctx, &buf, dst, RestoreOptions{Logger: testLogger()})
	require.NoError(t, err)

	assert.ElementsMatch(t, describe(t, src), describe(t, dst))
}

func TestDumpSkipsDisabledProperties(t *testing.T) {
	ctx := context.Background()
	src := populated(t, grin.Int64)
	src.SetFeatures(grin.AllFeatures.Without(grin.FeatureVertexProperty).Without(grin.FeatureEdgeProperty))

	var buf bytes.Buffer
	_, err := Dump(ctx, src, &buf, Options{Logger: testLogger()})
	require.NoError(t, err)

	dst := memgraph.New(testLogger())
	defer dst.Close()
	_, err = Restore(ctx, &buf, dst, RestoreOptions{Logger: testLogger()})
	require.NoError(t, err)

	person, err := dst.VertexTypeByName(ctx, "person")
	require.NoError(t, err)
	props, err := dst.VertexPropertyList(ctx, person)
	require.NoError(t, err)
	assert.Empty(t, props)

	n, err := dst.VertexCount(ctx, person)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestDumpNeedsPropertyNames(t *testing.T) {
	src := populated(t, grin.Int64)
	src.SetFeatures(grin.AllFeatures.Without(grin.FeatureVertexPropertyName))

	_, err := Dump(context.Background(), src, &bytes.Buffer{}, Options{Logger: testLogger()})
	assert.ErrorIs(t, err, grin.ErrUnsupported)
	assert.Equal(t, grin.Stats{}, src.Tracker().Stats())
}

func encodeStream(t *testing.T, values ...any) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	enc := msgpack.NewEncoder(zw)
	for _, v := range values {
		require.NoError(t, enc.Encode(v))
	}
	require.NoError(t, zw.Close())
	return &buf
}

func TestRestoreRejectsBadStreams(t *testing.T) {
	tests := []struct {
		name   string
		stream *bytes.Buffer
		want   string
	}{
		{
			name:   "magic",
			stream: encodeStream(t, header{Magic: "NOPE", Version: version}),
			want:   "not a graph snapshot",
		},
		{
			name:   "version",
			stream: encodeStream(t, header{Magic: magic, Version: version + 1}),
			want:   "not supported",
		},
		{
			name:   "missing trailer",
			stream: encodeStream(t, header{Magic: magic, Version: version}),
			want:   "missing trailer",
		},
		{
			name: "count mismatch",
			stream: encodeStream(t,
				header{Magic: magic, Version: version},
				record{Kind: kindTrailer, Vertices: 4}),
			want: "count mismatch",
		},
		{
			name: "unknown type",
			stream: encodeStream(t,
				header{Magic: magic, Version: version},
				record{Kind: kindVertex, Type: 3}),
			want: "unknown type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := memgraph.New(testLogger())
			defer g.Close()
			_, err := Restore(context.Background(), tt.stream, g, RestoreOptions{Logger: testLogger()})
			require.Error(t, err)
			assert.Equal(t, gerrors.ErrorTypeValidation, gerrors.GetType(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRestoreRejectsGarbage(t *testing.T) {
	g := memgraph.New(testLogger())
	defer g.Close()
	_, err := Restore(context.Background(), bytes.NewReader([]byte("plain text")), g, RestoreOptions{Logger: testLogger()})
	require.Error(t, err)
	assert.Equal(t, gerrors.ErrorTypeFileSystem, gerrors.GetType(err))
}
