// Package memgraph is an in-memory columnar grin backend. Every feature flag
// is supported, including const value pointers into its columns.
package memgraph

import (
	"context"
	"math"
	"sync"

	"github.com/rohankatakam/grin/internal/catalog"
	gerrors "github.com/rohankatakam/grin/internal/errors"
	"github.com/rohankatakam/grin/internal/grin"
	"github.com/sirupsen/logrus"
)

// maxRows bounds rows per type; the presence bitmaps are 32-bit
const maxRows = math.MaxUint32

type vertexTable struct {
	oids []grin.OriginalID
	cols []column
}

type edgeTable struct {
	src  []grin.Vertex
	dst  []grin.Vertex
	cols []column
}

// Graph implements grin.Store in memory
type Graph struct {
	*catalog.Catalog

	mu       sync.RWMutex
	vertices []*vertexTable
	edges    []*edgeTable
	oidInt   map[int64]grin.Vertex
	oidStr   map[string]grin.Vertex
}

var _ grin.Store = (*Graph)(nil)

// New creates an empty graph
func New(logger *logrus.Logger) *Graph {
	return &Graph{
		Catalog: catalog.New(grin.AllFeatures, logger),
		oidInt:  make(map[int64]grin.Vertex),
		oidStr:  make(map[string]grin.Vertex),
	}
}

// Close releases all rows. Later calls fail with grin.ErrClosed.
func (g *Graph) Close() error {
	if g.Closed() {
		return nil
	}
	g.MarkClosed()

	g.mu.Lock()
	defer g.mu.Unlock()

	stats := g.Tracker().Stats()
	g.Logger().WithFields(logrus.Fields{
		"live_vertex_properties": stats.LiveVertexProperties,
		"live_edge_properties":   stats.LiveEdgeProperties,
		"live_strings":           stats.LiveStrings,
	}).Debug("Closing in-memory graph")

	g.vertices = nil
	g.edges = nil
	g.oidInt = nil
	g.oidStr = nil
	return nil
}

// Flush is a no-op: writes are visible as soon as they return
func (g *Graph) Flush(ctx context.Context) error {
	return g.Guard()
}

// vertexRow resolves v to its table and row. Callers hold g.mu.
func (g *Graph) vertexRow(v grin.Vertex) (*vertexTable, uint32, error) {
	vt, row := catalog.UnpackVertex(v)
	if int(vt) < len(g.vertices) {
		if t := g.vertices[vt]; row < uint64(len(t.oids)) {
			return t, uint32(row), nil
		}
	}
	return nil, 0, gerrors.NotFoundf(grin.ErrNotFound, "vertex %#x", uint64(v))
}

func (g *Graph) edgeRow(e grin.Edge) (*edgeTable, uint32, error) {
	et, row := catalog.UnpackEdge(e)
	if int(et) < len(g.edges) {
		if t := g.edges[et]; row < uint64(len(t.src)) {
			return t, uint32(row), nil
		}
	}
	return nil, 0, gerrors.NotFoundf(grin.ErrNotFound, "edge %#x", uint64(e))
}

func (g *Graph) vertexTable(vt grin.VertexType) *vertexTable {
	for len(g.vertices) <= int(vt) {
		g.vertices = append(g.vertices, &vertexTable{})
	}
	return g.vertices[vt]
}

func (g *Graph) edgeTable(et grin.EdgeType) *edgeTable {
	for len(g.edges) <= int(et) {
		g.edges = append(g.edges, &edgeTable{})
	}
	return g.edges[et]
}

func lookup(cols []column, slot uint32) column {
	if int(slot) < len(cols) {
		return cols[slot]
	}
	return nil
}

func store(cols []column, slot uint32, dt grin.DataType, row uint32, v any) []column {
	for len(cols) <= int(slot) {
		cols = append(cols, nil)
	}
	if cols[slot] == nil {
		cols[slot] = newColumn(dt)
	}
	cols[slot].set(row, v)
	return cols
}
