package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rohankatakam/grin/internal/grin"
)

// Graph instruments the lookup, value and write paths of a store. Schema
// enumeration is served from memory by every backend and is not measured.
type Graph struct {
	grin.Store

	c      *Collector
	gauges []prometheus.Collector
}

// Wrap instruments inner and registers its live-handle gauges with c
func Wrap(inner grin.Store, c *Collector) (*Graph, error) {
	g := &Graph{Store: inner, c: c, gauges: c.handleGauges(inner.ID(), inner.Tracker())}
	for i, col := range g.gauges {
		if err := c.reg.Register(col); err != nil {
			for _, done := range g.gauges[:i] {
				c.reg.Unregister(done)
			}
			return nil, err
		}
	}
	return g, nil
}

// Unwrap returns the instrumented store
func (g *Graph) Unwrap() grin.Store {
	return g.Store
}

func (g *Graph) VertexByOriginalIDOfInt64(ctx context.Context, id int64) (grin.Vertex, error) {
	start := time.Now()
	v, err := g.Store.VertexByOriginalIDOfInt64(ctx, id)
	g.c.observe("vertex_by_original_id", start, err)
	return v, err
}

func (g *Graph) VertexByOriginalIDOfString(ctx context.Context, id string) (grin.Vertex, error) {
	start := time.Now()
	v, err := g.Store.VertexByOriginalIDOfString(ctx, id)
	g.c.observe("vertex_by_original_id", start, err)
	return v, err
}

func (g *Graph) VertexOriginalIDOfInt64(ctx context.Context, v grin.Vertex) (int64, error) {
	start := time.Now()
	id, err := g.Store.VertexOriginalIDOfInt64(ctx, v)
	g.c.observe("vertex_original_id", start, err)
	return id, err
}

func (g *Graph) VertexOriginalIDOfString(ctx context.Context, v grin.Vertex) (string, error) {
	start := time.Now()
	id, err := g.Store.VertexOriginalIDOfString(ctx, v)
	g.c.observe("vertex_original_id", start, err)
	return id, err
}

func (g *Graph) VertexPropertyByName(ctx context.Context, vt grin.VertexType, name string) (grin.VertexProperty, error) {
	start := time.Now()
	p, err := g.Store.VertexPropertyByName(ctx, vt, name)
	g.c.observe("vertex_property_by_name", start, err)
	return p, err
}

func (g *Graph) EdgePropertyByName(ctx context.Context, et grin.EdgeType, name string) (grin.EdgeProperty, error) {
	start := time.Now()
	p, err := g.Store.EdgePropertyByName(ctx, et, name)
	g.c.observe("edge_property_by_name", start, err)
	return p, err
}

func (g *Graph) VertexPropertyValue(ctx context.Context, v grin.Vertex, p grin.VertexProperty) (grin.Value, error) {
	start := time.Now()
	val, err := g.Store.VertexPropertyValue(ctx, v, p)
	g.c.observe("vertex_property_value", start, err)
	return val, err
}

func (g *Graph) EdgePropertyValue(ctx context.Context, e grin.Edge, p grin.EdgeProperty) (grin.Value, error) {
	start := time.Now()
	val, err := g.Store.EdgePropertyValue(ctx, e, p)
	g.c.observe("edge_property_value", start, err)
	return val, err
}

func (g *Graph) VertexPropertyValuePtr(ctx context.Context, v grin.Vertex, p grin.VertexProperty) (any, error) {
	start := time.Now()
	ptr, err := g.Store.VertexPropertyValuePtr(ctx, v, p)
	g.c.observe("vertex_property_value_ptr", start, err)
	return ptr, err
}

func (g *Graph) EdgePropertyValuePtr(ctx context.Context, e grin.Edge, p grin.EdgeProperty) (any, error) {
	start := time.Now()
	ptr, err := g.Store.EdgePropertyValuePtr(ctx, e, p)
	g.c.observe("edge_property_value_ptr", start, err)
	return ptr, err
}

func (g *Graph) AddVertex(ctx context.Context, vt grin.VertexType, id grin.OriginalID, values map[grin.VertexProperty]any) (grin.Vertex, error) {
	start := time.Now()
	v, err := g.Store.AddVertex(ctx, vt, id, values)
	g.c.observe("add_vertex", start, err)
	return v, err
}

func (g *Graph) AddEdge(ctx context.Context, et grin.EdgeType, src, dst grin.Vertex, values map[grin.EdgeProperty]any) (grin.Edge, error) {
	start := time.Now()
	e, err := g.Store.AddEdge(ctx, et, src, dst, values)
	g.c.observe("add_edge", start, err)
	return e, err
}

func (g *Graph) Flush(ctx context.Context) error {
	start := time.Now()
	err := g.Store.Flush(ctx)
	g.c.observe("flush", start, err)
	return err
}

// Close unregisters the handle gauges and closes the wrapped store
func (g *Graph) Close() error {
	for _, col := range g.gauges {
		g.c.reg.Unregister(col)
	}
	start := time.Now()
	err := g.Store.Close()
	g.c.observe("close", start, err)
	return err
}
