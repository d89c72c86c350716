package memgraph

import (
	"context"

	"github.com/rohankatakam/grin/internal/catalog"
	"github.com/rohankatakam/grin/internal/grin"
)

func (g *Graph) Vertices(ctx context.Context, vt grin.VertexType) ([]grin.Vertex, error) {
	if err := g.CheckVertexType(vt); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	if int(vt) >= len(g.vertices) {
		return []grin.Vertex{}, nil
	}
	out := make([]grin.Vertex, len(g.vertices[vt].oids))
	for i := range out {
		out[i] = catalog.PackVertex(vt, uint64(i))
	}
	return out, nil
}

func (g *Graph) Edges(ctx context.Context, et grin.EdgeType) ([]grin.Edge, error) {
	if err := g.CheckEdgeType(et); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	if int(et) >= len(g.edges) {
		return []grin.Edge{}, nil
	}
	out := make([]grin.Edge, len(g.edges[et].src))
	for i := range out {
		out[i] = catalog.PackEdge(et, uint64(i))
	}
	return out, nil
}

func (g *Graph) VertexCount(ctx context.Context, vt grin.VertexType) (int, error) {
	if err := g.CheckVertexType(vt); err != nil {
		return 0, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	if int(vt) >= len(g.vertices) {
		return 0, nil
	}
	return len(g.vertices[vt].oids), nil
}

func (g *Graph) EdgeCount(ctx context.Context, et grin.EdgeType) (int, error) {
	if err := g.CheckEdgeType(et); err != nil {
		return 0, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	if int(et) >= len(g.edges) {
		return 0, nil
	}
	return len(g.edges[et].src), nil
}

func (g *Graph) VertexTypeOf(ctx context.Context, v grin.Vertex) (grin.VertexType, error) {
	if err := g.Guard(); err != nil {
		return grin.NullVertexType, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, _, err := g.vertexRow(v); err != nil {
		return grin.NullVertexType, err
	}
	vt, _ := catalog.UnpackVertex(v)
	return vt, nil
}

func (g *Graph) EdgeTypeOf(ctx context.Context, e grin.Edge) (grin.EdgeType, error) {
	if err := g.Guard(); err != nil {
		return grin.NullEdgeType, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, _, err := g.edgeRow(e); err != nil {
		return grin.NullEdgeType, err
	}
	et, _ := catalog.UnpackEdge(e)
	return et, nil
}

func (g *Graph) EdgeEndpoints(ctx context.Context, e grin.Edge) (grin.Vertex, grin.Vertex, error) {
	if err := g.Guard(); err != nil {
		return grin.NullVertex, grin.NullVertex, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	t, row, err := g.edgeRow(e)
	if err != nil {
		return grin.NullVertex, grin.NullVertex, err
	}
	return t.src[row], t.dst[row], nil
}

// Original IDs

func (g *Graph) VertexOriginalIDOfInt64(ctx context.Context, v grin.Vertex) (int64, error) {
	if err := g.RequireFeature(grin.FeatureVertexOriginalIDInt64); err != nil {
		return 0, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	t, row, err := g.vertexRow(v)
	if err != nil {
		return 0, err
	}
	return t.oids[row].Int(), nil
}

func (g *Graph) VertexByOriginalIDOfInt64(ctx context.Context, id int64) (grin.Vertex, error) {
	if err := g.RequireFeature(grin.FeatureVertexOriginalIDInt64); err != nil {
		return grin.NullVertex, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	v, ok := g.oidInt[id]
	if !ok {
		return grin.NullVertex, notFoundID(grin.Int64ID(id))
	}
	return v, nil
}

func (g *Graph) VertexOriginalIDOfString(ctx context.Context, v grin.Vertex) (string, error) {
	if err := g.RequireFeature(grin.FeatureVertexOriginalIDString); err != nil {
		return "", err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	t, row, err := g.vertexRow(v)
	if err != nil {
		return "", err
	}
	g.Tracker().Issue(grin.KindString, 1)
	return t.oids[row].Str(), nil
}

func (g *Graph) VertexByOriginalIDOfString(ctx context.Context, id string) (grin.Vertex, error) {
	if err := g.RequireFeature(grin.FeatureVertexOriginalIDString); err != nil {
		return grin.NullVertex, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	v, ok := g.oidStr[id]
	if !ok {
		return grin.NullVertex, notFoundID(grin.StringID(id))
	}
	return v, nil
}
