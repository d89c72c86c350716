package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/rohankatakam/grin/internal/catalog"
	gerrors "github.com/rohankatakam/grin/internal/errors"
	"github.com/rohankatakam/grin/internal/grin"
	"github.com/sirupsen/logrus"
	"github.com/vmihailenco/msgpack/v5"
)

// RestoreOptions tunes Restore
type RestoreOptions struct {
	// BatchSize flushes the builder every BatchSize records. Zero flushes once at the end.
	BatchSize int
	Logger    *logrus.Logger
}

// Restore reads a stream written by Dump into b. The builder must be empty.
func Restore(ctx context.Context, r io.Reader, b grin.Builder, opts RestoreOptions) (Stats, error) {
	var st Stats
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	zr, err := zstd.NewReader(r)
	if err != nil {
		return st, readError(err)
	}
	defer zr.Close()
	dec := msgpack.NewDecoder(zr)

	var h header
	if err := dec.Decode(&h); err != nil {
		return st, readError(err)
	}
	if h.Magic != magic {
		return st, gerrors.ValidationErrorf("not a graph snapshot (magic %q)", h.Magic)
	}
	if h.Version != version {
		return st, gerrors.ValidationErrorf("snapshot version %d not supported (want %d)", h.Version, version)
	}
	idType := h.Schema.OriginalIDType

	if err := b.SetOriginalIDType(ctx, idType); err != nil {
		return st, err
	}
	vtypes, vprops, err := addVertexTypes(ctx, b, h.Schema.VertexTypes)
	if err != nil {
		return st, err
	}
	etypes, eprops, err := addEdgeTypes(ctx, b, h.Schema.EdgeTypes)
	if err != nil {
		return st, err
	}

	var (
		byIndex []grin.Vertex
		byInt   = make(map[int64]grin.Vertex)
		byStr   = make(map[string]grin.Vertex)
		pending int
	)
	resolve := func(rf ref) (grin.Vertex, bool) {
		switch idType {
		case grin.Int64:
			v, ok := byInt[rf.Int]
			return v, ok
		case grin.String:
			v, ok := byStr[rf.Str]
			return v, ok
		}
		if rf.Index >= uint64(len(byIndex)) {
			return 0, false
		}
		return byIndex[rf.Index], true
	}
	flush := func() error {
		pending++
		if opts.BatchSize <= 0 || pending < opts.BatchSize {
			return nil
		}
		pending = 0
		return b.Flush(ctx)
	}

	for {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		var rec record
		if err := dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				return st, gerrors.ValidationError("snapshot truncated: missing trailer")
			}
			return st, readError(err)
		}

		switch rec.Kind {
		case kindVertex:
			if int(rec.Type) >= len(vtypes) {
				return st, gerrors.ValidationErrorf("vertex %d: unknown type %d", st.Vertices, rec.Type)
			}
			id := grin.NoID
			switch idType {
			case grin.Int64:
				id = grin.Int64ID(rec.IDInt)
			case grin.String:
				id = grin.StringID(rec.IDStr)
			}
			props := vprops[rec.Type]
			values := make(map[grin.VertexProperty]any, len(rec.Values))
			for slot, c := range rec.Values {
				if int(slot) >= len(props.handles) {
					return st, gerrors.ValidationErrorf("vertex %d: unknown property slot %d", st.Vertices, slot)
				}
				values[props.handles[slot]] = c.Decode(props.types[slot])
			}
			v, err := b.AddVertex(ctx, vtypes[rec.Type], id, values)
			if err != nil {
				return st, fmt.Errorf("restore vertex %d: %w", st.Vertices, err)
			}
			switch idType {
			case grin.Int64:
				byInt[rec.IDInt] = v
			case grin.String:
				byStr[rec.IDStr] = v
			default:
				byIndex = append(byIndex, v)
			}
			st.Vertices++

		case kindEdge:
			if int(rec.Type) >= len(etypes) {
				return st, gerrors.ValidationErrorf("edge %d: unknown type %d", st.Edges, rec.Type)
			}
			src, ok := resolve(rec.Src)
			dst, ok2 := resolve(rec.Dst)
			if !ok || !ok2 {
				return st, gerrors.ValidationErrorf("edge %d: unknown endpoint", st.Edges)
			}
			props := eprops[rec.Type]
			values := make(map[grin.EdgeProperty]any, len(rec.Values))
			for slot, c := range rec.Values {
				if int(slot) >= len(props.handles) {
					return st, gerrors.ValidationErrorf("edge %d: unknown property slot %d", st.Edges, slot)
				}
				values[props.handles[slot]] = c.Decode(props.types[slot])
			}
			if _, err := b.AddEdge(ctx, etypes[rec.Type], src, dst, values); err != nil {
				return st, fmt.Errorf("restore edge %d: %w", st.Edges, err)
			}
			st.Edges++

		case kindTrailer:
			if rec.Vertices != st.Vertices || rec.Edges != st.Edges {
				return st, gerrors.ValidationErrorf("snapshot count mismatch: trailer says %d vertices and %d edges, read %d and %d",
					rec.Vertices, rec.Edges, st.Vertices, st.Edges)
			}
			if err := b.Flush(ctx); err != nil {
				return st, err
			}
			logger.WithFields(logrus.Fields{
				"vertices": st.Vertices,
				"edges":    st.Edges,
			}).Info("Restored graph")
			return st, nil

		default:
			return st, gerrors.ValidationErrorf("unknown snapshot record kind %q", rec.Kind)
		}

		if err := flush(); err != nil {
			return st, err
		}
	}
}

func readError(err error) error {
	return gerrors.FileSystemError(err, "read snapshot")
}

func addVertexTypes(ctx context.Context, b grin.Builder, tds []catalog.TypeDef) ([]grin.VertexType, []typeProps[grin.VertexProperty], error) {
	types := make([]grin.VertexType, 0, len(tds))
	props := make([]typeProps[grin.VertexProperty], 0, len(tds))
	for _, td := range tds {
		vt, err := b.AddVertexType(ctx, td.Name)
		if err != nil {
			return nil, nil, err
		}
		var tp typeProps[grin.VertexProperty]
		for _, pd := range td.Properties {
			p, err := b.AddVertexProperty(ctx, vt, pd.Name, pd.DataType)
			if err != nil {
				return nil, nil, err
			}
			tp.handles = append(tp.handles, p)
			tp.types = append(tp.types, pd.DataType)
		}
		types = append(types, vt)
		props = append(props, tp)
	}
	return types, props, nil
}

func addEdgeTypes(ctx context.Context, b grin.Builder, tds []catalog.TypeDef) ([]grin.EdgeType, []typeProps[grin.EdgeProperty], error) {
	types := make([]grin.EdgeType, 0, len(tds))
	props := make([]typeProps[grin.EdgeProperty], 0, len(tds))
	for _, td := range tds {
		et, err := b.AddEdgeType(ctx, td.Name)
		if err != nil {
			return nil, nil, err
		}
		var tp typeProps[grin.EdgeProperty]
		for _, pd := range td.Properties {
			p, err := b.AddEdgeProperty(ctx, et, pd.Name, pd.DataType)
			if err != nil {
				return nil, nil, err
			}
			tp.handles = append(tp.handles, p)
			tp.types = append(tp.types, pd.DataType)
		}
		types = append(types, et)
		props = append(props, tp)
	}
	return types, props, nil
}
