// Package snapshot dumps any grin.Graph to a portable stream and restores it
// into any grin.Builder.
//
// A stream is zstd-compressed msgpack: one header carrying the schema, one
// record per vertex, one per edge, and a trailer with the counts. Edges name
// their endpoints by original ID when the graph has them, otherwise by the
// position of the vertex in the stream.
package snapshot

import (
	"context"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/rohankatakam/grin/internal/catalog"
	gerrors "github.com/rohankatakam/grin/internal/errors"
	"github.com/rohankatakam/grin/internal/grin"
	"github.com/sirupsen/logrus"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	magic   = "GRIN-SNAPSHOT"
	version = 1
)

const (
	kindVertex  byte = 'v'
	kindEdge    byte = 'e'
	kindTrailer byte = 't'
)

type header struct {
	Magic   string         `msgpack:"magic"`
	Version int            `msgpack:"version"`
	Schema  catalog.Schema `msgpack:"schema"`
}

// ref names an edge endpoint
type ref struct {
	Index uint64 `msgpack:"n,omitempty"`
	Int   int64  `msgpack:"i,omitempty"`
	Str   string `msgpack:"s,omitempty"`
}

type record struct {
	Kind   byte                    `msgpack:"k"`
	Type   uint32                  `msgpack:"t,omitempty"`
	IDInt  int64                   `msgpack:"i,omitempty"`
	IDStr  string                  `msgpack:"s,omitempty"`
	Src    ref                     `msgpack:"a,omitempty"`
	Dst    ref                     `msgpack:"b,omitempty"`
	Values map[uint32]catalog.Cell `msgpack:"v,omitempty"`

	// trailer only
	Vertices uint64 `msgpack:"nv,omitempty"`
	Edges    uint64 `msgpack:"ne,omitempty"`
}

// Stats counts what a dump or restore processed
type Stats struct {
	Vertices uint64
	Edges    uint64
}

// Options tunes Dump
type Options struct {
	// Level is a zstd level from 1 (fastest) to 22. Zero means the encoder default.
	Level  int
	Logger *logrus.Logger
}

type typeProps[P any] struct {
	handles []P
	types   []grin.DataType
}

// Dump writes g to w. Property values are included when the property and
// property-name features are enabled.
func Dump(ctx context.Context, g grin.Graph, w io.Writer, opts Options) (Stats, error) {
	var st Stats
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	idType, err := g.VertexOriginalIDDataType(ctx)
	if err != nil {
		return st, err
	}
	schema, vprops, eprops, err := readSchema(ctx, g)
	defer release(g, vprops, eprops)
	if err != nil {
		return st, err
	}
	schema.OriginalIDType = idType

	var zopts []zstd.EOption
	if opts.Level > 0 {
		zopts = append(zopts, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(opts.Level)))
	}
	zw, err := zstd.NewWriter(w, zopts...)
	if err != nil {
		return st, gerrors.Wrap(err, gerrors.ErrorTypeInternal, gerrors.SeverityHigh, "create zstd writer")
	}
	enc := msgpack.NewEncoder(zw)

	if err := enc.Encode(header{Magic: magic, Version: version, Schema: schema}); err != nil {
		zw.Close()
		return st, writeError(err)
	}

	vts, err := g.VertexTypes(ctx)
	if err != nil {
		zw.Close()
		return st, err
	}
	index := make(map[grin.Vertex]ref)
	for i, vt := range vts {
		vs, err := g.Vertices(ctx, vt)
		if err != nil {
			zw.Close()
			return st, err
		}
		for _, v := range vs {
			if err := ctx.Err(); err != nil {
				zw.Close()
				return st, err
			}
			rec := record{Kind: kindVertex, Type: uint32(i)}
			r := ref{Index: st.Vertices}
			switch idType {
			case grin.Int64:
				if rec.IDInt, err = g.VertexOriginalIDOfInt64(ctx, v); err != nil {
					zw.Close()
					return st, err
				}
				r = ref{Int: rec.IDInt}
			case grin.String:
				if rec.IDStr, err = g.VertexOriginalIDOfString(ctx, v); err != nil {
					zw.Close()
					return st, err
				}
				g.DestroyStringValue(rec.IDStr)
				r = ref{Str: rec.IDStr}
			}
			if rec.Values, err = vertexCells(ctx, g, v, vprops[i]); err != nil {
				zw.Close()
				return st, err
			}
			if err := enc.Encode(rec); err != nil {
				zw.Close()
				return st, writeError(err)
			}
			index[v] = r
			st.Vertices++
		}
	}

	ets, err := g.EdgeTypes(ctx)
	if err != nil {
		zw.Close()
		return st, err
	}
	for i, et := range ets {
		es, err := g.Edges(ctx, et)
		if err != nil {
			zw.Close()
			return st, err
		}
		for _, e := range es {
			src, dst, err := g.EdgeEndpoints(ctx, e)
			if err != nil {
				zw.Close()
				return st, err
			}
			rec := record{Kind: kindEdge, Type: uint32(i), Src: index[src], Dst: index[dst]}
			if rec.Values, err = edgeCells(ctx, g, e, eprops[i]); err != nil {
				zw.Close()
				return st, err
			}
			if err := enc.Encode(rec); err != nil {
				zw.Close()
				return st, writeError(err)
			}
			st.Edges++
		}
	}

	if err := enc.Encode(record{Kind: kindTrailer, Vertices: st.Vertices, Edges: st.Edges}); err != nil {
		zw.Close()
		return st, writeError(err)
	}
	if err := zw.Close(); err != nil {
		return st, writeError(err)
	}

	logger.WithFields(logrus.Fields{
		"graph":    g.ID(),
		"vertices": st.Vertices,
		"edges":    st.Edges,
	}).Info("Dumped graph")
	return st, nil
}

func writeError(err error) error {
	return gerrors.FileSystemError(err, "write snapshot")
}

// readSchema rebuilds the schema through the public API and keeps the
// property handles for reading values. Handles acquired before a failure are
// still returned so the caller can release them.
func readSchema(ctx context.Context, g grin.Graph) (s catalog.Schema, vprops []typeProps[grin.VertexProperty], eprops []typeProps[grin.EdgeProperty], err error) {
	features := g.Features()
	withV := features.Has(grin.FeatureVertexProperty)
	withE := features.Has(grin.FeatureEdgeProperty)
	if withV && !features.Has(grin.FeatureVertexPropertyName) {
		return s, nil, nil, gerrors.Unsupportedf(grin.ErrUnsupported, "dumping vertex properties needs %s", grin.FeatureVertexPropertyName)
	}
	if withE && !features.Has(grin.FeatureEdgePropertyName) {
		return s, nil, nil, gerrors.Unsupportedf(grin.ErrUnsupported, "dumping edge properties needs %s", grin.FeatureEdgePropertyName)
	}

	vts, err := g.VertexTypes(ctx)
	if err != nil {
		return s, vprops, eprops, err
	}
	vprops = make([]typeProps[grin.VertexProperty], len(vts))
	for i, vt := range vts {
		name, err := g.VertexTypeName(ctx, vt)
		if err != nil {
			return s, vprops, eprops, err
		}
		td := catalog.TypeDef{Name: name}
		if withV {
			ps, err := g.VertexPropertyList(ctx, vt)
			if err != nil {
				return s, vprops, eprops, err
			}
			vprops[i].handles = ps
			for _, p := range ps {
				pname, err := g.VertexPropertyName(ctx, vt, p)
				if err != nil {
					return s, vprops, eprops, err
				}
				g.DestroyStringValue(pname)
				dt, err := g.VertexPropertyDataType(ctx, p)
				if err != nil {
					return s, vprops, eprops, err
				}
				td.Properties = append(td.Properties, catalog.PropertyDef{Name: pname, DataType: dt})
				vprops[i].types = append(vprops[i].types, dt)
			}
		}
		s.VertexTypes = append(s.VertexTypes, td)
	}

	ets, err := g.EdgeTypes(ctx)
	if err != nil {
		return s, vprops, eprops, err
	}
	eprops = make([]typeProps[grin.EdgeProperty], len(ets))
	for i, et := range ets {
		name, err := g.EdgeTypeName(ctx, et)
		if err != nil {
			return s, vprops, eprops, err
		}
		td := catalog.TypeDef{Name: name}
		if withE {
			ps, err := g.EdgePropertyList(ctx, et)
			if err != nil {
				return s, vprops, eprops, err
			}
			eprops[i].handles = ps
			for _, p := range ps {
				pname, err := g.EdgePropertyName(ctx, et, p)
				if err != nil {
					return s, vprops, eprops, err
				}
				g.DestroyStringValue(pname)
				dt, err := g.EdgePropertyDataType(ctx, p)
				if err != nil {
					return s, vprops, eprops, err
				}
				td.Properties = append(td.Properties, catalog.PropertyDef{Name: pname, DataType: dt})
				eprops[i].types = append(eprops[i].types, dt)
			}
		}
		s.EdgeTypes = append(s.EdgeTypes, td)
	}
	return s, vprops, eprops, nil
}

func release(g grin.Graph, vprops []typeProps[grin.VertexProperty], eprops []typeProps[grin.EdgeProperty]) {
	for _, tp := range vprops {
		for _, p := range tp.handles {
			g.DestroyVertexProperty(p)
		}
	}
	for _, tp := range eprops {
		for _, p := range tp.handles {
			g.DestroyEdgeProperty(p)
		}
	}
}

func vertexCells(ctx context.Context, g grin.Graph, v grin.Vertex, tp typeProps[grin.VertexProperty]) (map[uint32]catalog.Cell, error) {
	var out map[uint32]catalog.Cell
	for slot, p := range tp.handles {
		val, err := g.VertexPropertyValue(ctx, v, p)
		if err != nil {
			return nil, err
		}
		if val.IsNull() {
			continue
		}
		if out == nil {
			out = make(map[uint32]catalog.Cell)
		}
		out[uint32(slot)] = catalog.EncodeCell(tp.types[slot], val.Interface())
		if s, err := val.AsString(); err == nil {
			g.DestroyStringValue(s)
		}
	}
	return out, nil
}

func edgeCells(ctx context.Context, g grin.Graph, e grin.Edge, tp typeProps[grin.EdgeProperty]) (map[uint32]catalog.Cell, error) {
	var out map[uint32]catalog.Cell
	for slot, p := range tp.handles {
		val, err := g.EdgePropertyValue(ctx, e, p)
		if err != nil {
			return nil, err
		}
		if val.IsNull() {
			continue
		}
		if out == nil {
			out = make(map[uint32]catalog.Cell)
		}
		out[uint32(slot)] = catalog.EncodeCell(tp.types[slot], val.Interface())
		if s, err := val.AsString(); err == nil {
			g.DestroyStringValue(s)
		}
	}
	return out, nil
}
