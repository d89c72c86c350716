package boltgraph

import (
	"context"

	"github.com/rohankatakam/grin/internal/catalog"
	gerrors "github.com/rohankatakam/grin/internal/errors"
	"github.com/rohankatakam/grin/internal/grin"
	bolt "go.etcd.io/bbolt"
)

func (g *Graph) AddVertex(ctx context.Context, vt grin.VertexType, id grin.OriginalID, values map[grin.VertexProperty]any) (grin.Vertex, error) {
	td, err := g.VertexTypeDef(vt)
	if err != nil {
		return grin.NullVertex, err
	}
	if err := g.CheckOriginalID(id); err != nil {
		return grin.NullVertex, err
	}
	bySlot, err := g.CoerceVertexValues(vt, values)
	if err != nil {
		return grin.NullVertex, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.Guard(); err != nil {
		return grin.NullVertex, err
	}

	if err := g.checkUnique(id); err != nil {
		return grin.NullVertex, err
	}
	row, err := g.nextRow(bucketVertices, g.nextV, uint32(vt))
	if err != nil {
		return grin.NullVertex, err
	}

	rec := vertexRecord{OIDInt: id.Int(), OIDStr: id.Str(), Values: catalog.EncodeCells(td.Properties, bySlot)}
	g.pendingV = append(g.pendingV, pendingVertex{vt: vt, row: row, id: id, rec: rec})
	if !id.IsZero() {
		g.pendingOIDs[id] = struct{}{}
	}
	v := catalog.PackVertex(vt, row)
	g.pendingSet[v] = struct{}{}

	if err := g.maybeFlush(); err != nil {
		return grin.NullVertex, err
	}
	return v, nil
}

func (g *Graph) AddEdge(ctx context.Context, et grin.EdgeType, src, dst grin.Vertex, values map[grin.EdgeProperty]any) (grin.Edge, error) {
	td, err := g.EdgeTypeDef(et)
	if err != nil {
		return grin.NullEdge, err
	}
	bySlot, err := g.CoerceEdgeValues(et, values)
	if err != nil {
		return grin.NullEdge, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.Guard(); err != nil {
		return grin.NullEdge, err
	}

	for _, v := range []grin.Vertex{src, dst} {
		if err := g.checkVertex(v); err != nil {
			return grin.NullEdge, err
		}
	}
	row, err := g.nextRow(bucketEdges, g.nextE, uint32(et))
	if err != nil {
		return grin.NullEdge, err
	}

	rec := edgeRecord{Src: uint64(src), Dst: uint64(dst), Values: catalog.EncodeCells(td.Properties, bySlot)}
	g.pendingE = append(g.pendingE, pendingEdge{et: et, row: row, rec: rec})

	if err := g.maybeFlush(); err != nil {
		return grin.NullEdge, err
	}
	return catalog.PackEdge(et, row), nil
}

func (g *Graph) maybeFlush() error {
	if len(g.pendingV)+len(g.pendingE) < g.batchSize {
		return nil
	}
	return g.flushLocked()
}

// nextRow hands out the next row of a type. The first call per type reads
// the bucket sequence.
func (g *Graph) nextRow(root []byte, next map[uint32]uint64, typ uint32) (uint64, error) {
	if n, ok := next[typ]; ok {
		next[typ] = n + 1
		return n, nil
	}

	var seq uint64
	err := g.db.View(func(tx *bolt.Tx) error {
		if b := typeBucket(tx, root, typ); b != nil {
			seq = b.Sequence()
		}
		return nil
	})
	if err != nil {
		return 0, gerrors.DatabaseError(err, "read row sequence")
	}
	if seq > catalog.RowMask {
		return 0, gerrors.ValidationErrorf("type %d is full (%d rows)", typ, seq)
	}
	next[typ] = seq + 1
	return seq, nil
}

// checkUnique looks at both buffered and stored original IDs. Callers hold g.mu.
func (g *Graph) checkUnique(id grin.OriginalID) error {
	if id.IsZero() {
		return nil
	}
	if _, ok := g.pendingOIDs[id]; ok {
		return gerrors.Conflictf(grin.ErrDuplicate, "original id %s", id)
	}

	var taken bool
	err := g.db.View(func(tx *bolt.Tx) error {
		switch id.Type() {
		case grin.Int64:
			taken = tx.Bucket(bucketOIDInt).Get(u64key(catalog.SortableInt64(id.Int()))) != nil
		case grin.String:
			taken = tx.Bucket(bucketOIDStr).Get([]byte(id.Str())) != nil
		}
		return nil
	})
	if err != nil {
		return gerrors.DatabaseError(err, "check original id")
	}
	if taken {
		return gerrors.Conflictf(grin.ErrDuplicate, "original id %s", id)
	}
	return nil
}

// checkVertex accepts buffered and stored vertices. Callers hold g.mu.
func (g *Graph) checkVertex(v grin.Vertex) error {
	if _, ok := g.pendingSet[v]; ok {
		return nil
	}
	return g.db.View(func(tx *bolt.Tx) error {
		_, err := g.loadVertex(tx, v)
		return err
	})
}
