package memgraph

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

	if err := g.checkUnique(id); err != nil {
		return grin.NullVertex, err
	}
	t := g.vertexTable(vt)
	if uint64(len(t.oids)) >= maxRows {
		return grin.NullVertex, gerrors.ValidationErrorf("vertex type %q is full (%d rows)", td.Name, len(t.oids))
	}

	row := uint32(len(t.oids))
	t.oids = append(t.oids, id)
	for slot, val := range bySlot {
		t.cols = store(t.cols, slot, td.Properties[slot].DataType, row, val)
	}

	v := catalog.PackVertex(vt, uint64(row))
	switch id.Type() {
	case grin.Int64:
		g.oidInt[id.Int()] = v
	case grin.String:
		g.oidStr[id.Str()] = v
	}
	return v, nil
}

func (g *Graph) checkUnique(id grin.OriginalID) error {
	var taken bool
	switch id.Type() {
	case grin.Int64:
		_, taken = g.oidInt[id.Int()]
	case grin.String:
		_, taken = g.oidStr[id.Str()]
	}
	if taken {
		return gerrors.Conflictf(grin.ErrDuplicate, "original id %s", id)
	}
	return nil
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

	if _, _, err := g.vertexRow(src); err != nil {
		return grin.NullEdge, err
	}
	if _, _, err := g.vertexRow(dst); err != nil {
		return grin.NullEdge, err
	}
	t := g.edgeTable(et)
	if uint64(len(t.src)) >= maxRows {
		return grin.NullEdge, gerrors.ValidationErrorf("edge type %q is full (%d rows)", td.Name, len(t.src))
	}

	row := uint32(len(t.src))
	t.src = append(t.src, src)
	t.dst = append(t.dst, dst)
	for slot, val := range bySlot {
		t.cols = store(t.cols, slot, td.Properties[slot].DataType, row, val)
	}
	return catalog.PackEdge(et, uint64(row)), nil
}
