package memgraph

import (
	"context"

	gerrors "github.com/rohankatakam/grin/internal/errors"
	"github.com/rohankatakam/grin/internal/grin"
)

func notFoundID(id grin.OriginalID) error {
	return gerrors.NotFoundf(grin.ErrNotFound, "vertex with original id %s", id)
}

func nullValue(what string, dt grin.DataType) error {
	return gerrors.NotFoundf(grin.ErrNullValue, "%s has no %s value", what, dt)
}

func (g *Graph) VertexPropertyValue(ctx context.Context, v grin.Vertex, p grin.VertexProperty) (grin.Value, error) {
	slot, dt, err := g.VertexSlot(v, p, g.vertexExists(v))
	if err != nil {
		return grin.Value{}, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	t, row, err := g.vertexRow(v)
	if err != nil {
		return grin.Value{}, err
	}
	return g.value(lookup(t.cols, slot), row, dt)
}

func (g *Graph) EdgePropertyValue(ctx context.Context, e grin.Edge, p grin.EdgeProperty) (grin.Value, error) {
	slot, dt, err := g.EdgeSlot(e, p, g.edgeExists(e))
	if err != nil {
		return grin.Value{}, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	t, row, err := g.edgeRow(e)
	if err != nil {
		return grin.Value{}, err
	}
	return g.value(lookup(t.cols, slot), row, dt)
}

func (g *Graph) value(col column, row uint32, dt grin.DataType) (grin.Value, error) {
	if col == nil {
		return grin.NullValue(dt), nil
	}
	raw, ok := col.get(row)
	if !ok {
		return grin.NullValue(dt), nil
	}
	val, err := grin.NewValue(dt, raw)
	if err != nil {
		return grin.Value{}, err
	}
	return g.IssueValue(val), nil
}

func (g *Graph) VertexPropertyValuePtr(ctx context.Context, v grin.Vertex, p grin.VertexProperty) (any, error) {
	if err := g.RequireFeature(grin.FeatureConstValuePtr, grin.FeatureVertexProperty); err != nil {
		return nil, err
	}
	slot, dt, err := g.VertexSlot(v, p, g.vertexExists(v))
	if err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	t, row, err := g.vertexRow(v)
	if err != nil {
		return nil, err
	}
	if col := lookup(t.cols, slot); col != nil {
		if ptr, ok := col.ptr(row); ok {
			return ptr, nil
		}
	}
	return nil, nullValue("vertex", dt)
}

func (g *Graph) EdgePropertyValuePtr(ctx context.Context, e grin.Edge, p grin.EdgeProperty) (any, error) {
	if err := g.RequireFeature(grin.FeatureConstValuePtr, grin.FeatureEdgeProperty); err != nil {
		return nil, err
	}
	slot, dt, err := g.EdgeSlot(e, p, g.edgeExists(e))
	if err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	t, row, err := g.edgeRow(e)
	if err != nil {
		return nil, err
	}
	if col := lookup(t.cols, slot); col != nil {
		if ptr, ok := col.ptr(row); ok {
			return ptr, nil
		}
	}
	return nil, nullValue("edge", dt)
}

func (g *Graph) vertexExists(v grin.Vertex) func() error {
	return func() error {
		g.mu.RLock()
		defer g.mu.RUnlock()
		_, _, err := g.vertexRow(v)
		return err
	}
}

func (g *Graph) edgeExists(e grin.Edge) func() error {
	return func() error {
		g.mu.RLock()
		defer g.mu.RUnlock()
		_, _, err := g.edgeRow(e)
		return err
	}
}
