package neo4jgraph

import (
	"context"

	"github.com/rohankatakam/grin/internal/catalog"
	gerrors "github.com/rohankatakam/grin/internal/errors"
	"github.com/rohankatakam/grin/internal/grin"
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

	if err := g.checkUnique(ctx, id); err != nil {
		return grin.NullVertex, err
	}
	row, err := g.nextVertexRow(ctx, vt)
	if err != nil {
		return grin.NullVertex, err
	}

	v := catalog.PackVertex(vt, row)
	props := encodeProps(td.Properties, bySlot)
	props[keyVID] = int64(v)
	props[keyVType] = int64(vt)
	props[keyRow] = int64(row)
	if !id.IsZero() {
		props[keyOID] = id.Interface()
		g.pendingOIDs[id] = struct{}{}
	}
	g.pendingV = append(g.pendingV, pendingVertex{vt: vt, props: props})
	g.pendingSet[v] = struct{}{}

	if err := g.maybeFlush(ctx); err != nil {
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
		if err := g.checkVertex(ctx, v); err != nil {
			return grin.NullEdge, err
		}
	}
	row, err := g.nextEdgeRow(ctx, et, td.Name)
	if err != nil {
		return grin.NullEdge, err
	}

	e := catalog.PackEdge(et, row)
	props := encodeProps(td.Properties, bySlot)
	props[keyEID] = int64(e)
	props[keyRow] = int64(row)
	props[keySrc] = int64(src)
	props[keyDst] = int64(dst)
	g.pendingE = append(g.pendingE, pendingEdge{et: et, src: src, dst: dst, props: props})

	if err := g.maybeFlush(ctx); err != nil {
		return grin.NullEdge, err
	}
	return e, nil
}

func encodeProps(defs []catalog.PropertyDef, bySlot map[uint32]any) map[string]any {
	props := make(map[string]any, len(bySlot)+4)
	for slot, v := range bySlot {
		pd := defs[slot]
		props[pd.Name] = encodeValue(pd.DataType, v)
	}
	return props
}

func (g *Graph) maybeFlush(ctx context.Context) error {
	if len(g.pendingV)+len(g.pendingE) < g.opts.BatchSize {
		return nil
	}
	return g.flushLocked(ctx)
}

func (g *Graph) nextVertexRow(ctx context.Context, vt grin.VertexType) (uint64, error) {
	if n, ok := g.nextV[uint32(vt)]; ok {
		g.nextV[uint32(vt)] = n + 1
		return n, nil
	}
	b := NewCypherBuilder()
	query := "MATCH (n:" + vertexLabel + ") WHERE n." + keyVType + " = " + b.AddParam(int64(vt)) +
		" RETURN coalesce(max(n." + keyRow + ") + 1, 0) AS n"
	return g.firstRow(ctx, g.nextV, uint32(vt), query, b.Params())
}

func (g *Graph) nextEdgeRow(ctx context.Context, et grin.EdgeType, name string) (uint64, error) {
	if n, ok := g.nextE[uint32(et)]; ok {
		g.nextE[uint32(et)] = n + 1
		return n, nil
	}
	b := NewCypherBuilder()
	query, err := b.BuildNextEdgeRow(name)
	if err != nil {
		return 0, err
	}
	return g.firstRow(ctx, g.nextE, uint32(et), query, b.Params())
}

// firstRow reads the stored row counter of a type and caches the next one
func (g *Graph) firstRow(ctx context.Context, next map[uint32]uint64, typ uint32, query string, params map[string]any) (uint64, error) {
	n, err := g.scalar(ctx, "read row counter", query, params)
	if err != nil {
		return 0, err
	}
	if uint64(n) > catalog.RowMask {
		return 0, gerrors.ValidationErrorf("type %d is full (%d rows)", typ, n)
	}
	next[typ] = uint64(n) + 1
	return uint64(n), nil
}

// checkUnique looks at both buffered and stored original IDs. Callers hold g.mu.
func (g *Graph) checkUnique(ctx context.Context, id grin.OriginalID) error {
	if id.IsZero() {
		return nil
	}
	if _, ok := g.pendingOIDs[id]; ok {
		return gerrors.Conflictf(grin.ErrDuplicate, "original id %s", id)
	}

	b := NewCypherBuilder()
	query := "MATCH (n:" + vertexLabel + " {" + keyOID + ": " + b.AddParam(id.Interface()) + "}) RETURN count(n) AS n"
	n, err := g.scalar(ctx, "check original id", query, b.Params())
	if err != nil {
		return err
	}
	if n > 0 {
		return gerrors.Conflictf(grin.ErrDuplicate, "original id %s", id)
	}
	return nil
}

// checkVertex accepts buffered and stored vertices. Callers hold g.mu.
func (g *Graph) checkVertex(ctx context.Context, v grin.Vertex) error {
	if _, ok := g.pendingSet[v]; ok {
		return nil
	}
	_, err := g.loadVertex(ctx, v)
	return err
}
