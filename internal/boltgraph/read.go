package boltgraph

import (
	"context"
	"encoding/binary"

	"github.com/rohankatakam/grin/internal/catalog"
	gerrors "github.com/rohankatakam/grin/internal/errors"
	"github.com/rohankatakam/grin/internal/grin"
	bolt "go.etcd.io/bbolt"
)

func (g *Graph) Vertices(ctx context.Context, vt grin.VertexType) ([]grin.Vertex, error) {
	if err := g.CheckVertexType(vt); err != nil {
		return nil, err
	}
	out := []grin.Vertex{}
	err := g.view(func(tx *bolt.Tx) error {
		b := typeBucket(tx, bucketVertices, uint32(vt))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, _ []byte) error {
			out = append(out, catalog.PackVertex(vt, binary.BigEndian.Uint64(k)))
			return nil
		})
	})
	return out, err
}

func (g *Graph) Edges(ctx context.Context, et grin.EdgeType) ([]grin.Edge, error) {
	if err := g.CheckEdgeType(et); err != nil {
		return nil, err
	}
	out := []grin.Edge{}
	err := g.view(func(tx *bolt.Tx) error {
		b := typeBucket(tx, bucketEdges, uint32(et))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, _ []byte) error {
			out = append(out, catalog.PackEdge(et, binary.BigEndian.Uint64(k)))
			return nil
		})
	})
	return out, err
}

func (g *Graph) VertexCount(ctx context.Context, vt grin.VertexType) (int, error) {
	if err := g.CheckVertexType(vt); err != nil {
		return 0, err
	}
	var n int
	err := g.view(func(tx *bolt.Tx) error {
		if b := typeBucket(tx, bucketVertices, uint32(vt)); b != nil {
			n = b.Stats().KeyN
		}
		return nil
	})
	return n, err
}

func (g *Graph) EdgeCount(ctx context.Context, et grin.EdgeType) (int, error) {
	if err := g.CheckEdgeType(et); err != nil {
		return 0, err
	}
	var n int
	err := g.view(func(tx *bolt.Tx) error {
		if b := typeBucket(tx, bucketEdges, uint32(et)); b != nil {
			n = b.Stats().KeyN
		}
		return nil
	})
	return n, err
}

func (g *Graph) VertexTypeOf(ctx context.Context, v grin.Vertex) (grin.VertexType, error) {
	err := g.view(func(tx *bolt.Tx) error {
		_, err := g.loadVertex(tx, v)
		return err
	})
	if err != nil {
		return grin.NullVertexType, err
	}
	vt, _ := catalog.UnpackVertex(v)
	return vt, nil
}

func (g *Graph) EdgeTypeOf(ctx context.Context, e grin.Edge) (grin.EdgeType, error) {
	err := g.view(func(tx *bolt.Tx) error {
		_, err := g.loadEdge(tx, e)
		return err
	})
	if err != nil {
		return grin.NullEdgeType, err
	}
	et, _ := catalog.UnpackEdge(e)
	return et, nil
}

func (g *Graph) EdgeEndpoints(ctx context.Context, e grin.Edge) (grin.Vertex, grin.Vertex, error) {
	var rec *edgeRecord
	err := g.view(func(tx *bolt.Tx) (err error) {
		rec, err = g.loadEdge(tx, e)
		return err
	})
	if err != nil {
		return grin.NullVertex, grin.NullVertex, err
	}
	return grin.Vertex(rec.Src), grin.Vertex(rec.Dst), nil
}

// Original IDs

func (g *Graph) VertexOriginalIDOfInt64(ctx context.Context, v grin.Vertex) (int64, error) {
	if err := g.RequireFeature(grin.FeatureVertexOriginalIDInt64); err != nil {
		return 0, err
	}
	var rec *vertexRecord
	err := g.view(func(tx *bolt.Tx) (err error) {
		rec, err = g.loadVertex(tx, v)
		return err
	})
	if err != nil {
		return 0, err
	}
	return rec.OIDInt, nil
}

func (g *Graph) VertexByOriginalIDOfInt64(ctx context.Context, id int64) (grin.Vertex, error) {
	if err := g.RequireFeature(grin.FeatureVertexOriginalIDInt64); err != nil {
		return grin.NullVertex, err
	}
	return g.lookupOID(bucketOIDInt, u64key(catalog.SortableInt64(id)), grin.Int64ID(id))
}

func (g *Graph) VertexOriginalIDOfString(ctx context.Context, v grin.Vertex) (string, error) {
	if err := g.RequireFeature(grin.FeatureVertexOriginalIDString); err != nil {
		return "", err
	}
	var rec *vertexRecord
	err := g.view(func(tx *bolt.Tx) (err error) {
		rec, err = g.loadVertex(tx, v)
		return err
	})
	if err != nil {
		return "", err
	}
	g.Tracker().Issue(grin.KindString, 1)
	return rec.OIDStr, nil
}

func (g *Graph) VertexByOriginalIDOfString(ctx context.Context, id string) (grin.Vertex, error) {
	if err := g.RequireFeature(grin.FeatureVertexOriginalIDString); err != nil {
		return grin.NullVertex, err
	}
	return g.lookupOID(bucketOIDStr, []byte(id), grin.StringID(id))
}

func (g *Graph) lookupOID(bucket, key []byte, id grin.OriginalID) (grin.Vertex, error) {
	v := grin.NullVertex
	err := g.view(func(tx *bolt.Tx) error {
		if data := tx.Bucket(bucket).Get(key); data != nil {
			v = grin.Vertex(binary.BigEndian.Uint64(data))
			return nil
		}
		return gerrors.NotFoundf(grin.ErrNotFound, "vertex with original id %s", id)
	})
	return v, err
}

// Property values

func (g *Graph) VertexPropertyValue(ctx context.Context, v grin.Vertex, p grin.VertexProperty) (grin.Value, error) {
	slot, dt, err := g.VertexSlot(v, p, func() error {
		return g.view(func(tx *bolt.Tx) error {
			_, err := g.loadVertex(tx, v)
			return err
		})
	})
	if err != nil {
		return grin.Value{}, err
	}
	var rec *vertexRecord
	err = g.view(func(tx *bolt.Tx) (err error) {
		rec, err = g.loadVertex(tx, v)
		return err
	})
	if err != nil {
		return grin.Value{}, err
	}
	return g.value(rec.Values, slot, dt)
}

func (g *Graph) EdgePropertyValue(ctx context.Context, e grin.Edge, p grin.EdgeProperty) (grin.Value, error) {
	slot, dt, err := g.EdgeSlot(e, p, func() error {
		return g.view(func(tx *bolt.Tx) error {
			_, err := g.loadEdge(tx, e)
			return err
		})
	})
	if err != nil {
		return grin.Value{}, err
	}
	var rec *edgeRecord
	err = g.view(func(tx *bolt.Tx) (err error) {
		rec, err = g.loadEdge(tx, e)
		return err
	})
	if err != nil {
		return grin.Value{}, err
	}
	return g.value(rec.Values, slot, dt)
}

func (g *Graph) value(cells map[uint32]catalog.Cell, slot uint32, dt grin.DataType) (grin.Value, error) {
	cell, ok := cells[slot]
	if !ok {
		return grin.NullValue(dt), nil
	}
	val, err := grin.NewValue(dt, cell.Decode(dt))
	if err != nil {
		return grin.Value{}, err
	}
	return g.IssueValue(val), nil
}

func (g *Graph) VertexPropertyValuePtr(ctx context.Context, v grin.Vertex, p grin.VertexProperty) (any, error) {
	return nil, g.RequireFeature(grin.FeatureConstValuePtr)
}

func (g *Graph) EdgePropertyValuePtr(ctx context.Context, e grin.Edge, p grin.EdgeProperty) (any, error) {
	return nil, g.RequireFeature(grin.FeatureConstValuePtr)
}
