package sqlgraph

import (
	"context"
	"database/sql"

	"github.com/rohankatakam/grin/internal/catalog"
	gerrors "github.com/rohankatakam/grin/internal/errors"
	"github.com/rohankatakam/grin/internal/grin"
)

type vertexRow struct {
	VType  uint32         `db:"vtype"`
	RowID  int64          `db:"row_id"`
	OIDInt sql.NullInt64  `db:"oid_int"`
	OIDStr sql.NullString `db:"oid_str"`
}

type edgeRow struct {
	Src int64 `db:"src"`
	Dst int64 `db:"dst"`
}

type valueRow struct {
	VInt  sql.NullInt64   `db:"v_int"`
	VReal sql.NullFloat64 `db:"v_real"`
	VText sql.NullString  `db:"v_text"`
}

func (r valueRow) cell() catalog.Cell {
	return catalog.Cell{I: r.VInt.Int64, F: r.VReal.Float64, S: r.VText.String}
}

func (g *Graph) Vertices(ctx context.Context, vt grin.VertexType) ([]grin.Vertex, error) {
	if err := g.CheckVertexType(vt); err != nil {
		return nil, err
	}
	var rows []int64
	if err := g.selectRows(ctx, &rows, `SELECT row_id FROM grin_vertices WHERE vtype = ? ORDER BY row_id`, uint32(vt)); err != nil {
		return nil, dbError(err, "list vertices")
	}
	out := make([]grin.Vertex, len(rows))
	for i, row := range rows {
		out[i] = catalog.PackVertex(vt, uint64(row))
	}
	return out, nil
}

func (g *Graph) Edges(ctx context.Context, et grin.EdgeType) ([]grin.Edge, error) {
	if err := g.CheckEdgeType(et); err != nil {
		return nil, err
	}
	var rows []int64
	if err := g.selectRows(ctx, &rows, `SELECT row_id FROM grin_edges WHERE etype = ? ORDER BY row_id`, uint32(et)); err != nil {
		return nil, dbError(err, "list edges")
	}
	out := make([]grin.Edge, len(rows))
	for i, row := range rows {
		out[i] = catalog.PackEdge(et, uint64(row))
	}
	return out, nil
}

func (g *Graph) VertexCount(ctx context.Context, vt grin.VertexType) (int, error) {
	if err := g.CheckVertexType(vt); err != nil {
		return 0, err
	}
	var n int
	if err := g.get(ctx, &n, `SELECT COUNT(*) FROM grin_vertices WHERE vtype = ?`, uint32(vt)); err != nil {
		return 0, dbError(err, "count vertices")
	}
	return n, nil
}

func (g *Graph) EdgeCount(ctx context.Context, et grin.EdgeType) (int, error) {
	if err := g.CheckEdgeType(et); err != nil {
		return 0, err
	}
	var n int
	if err := g.get(ctx, &n, `SELECT COUNT(*) FROM grin_edges WHERE etype = ?`, uint32(et)); err != nil {
		return 0, dbError(err, "count edges")
	}
	return n, nil
}

func (g *Graph) loadVertex(ctx context.Context, v grin.Vertex) (*vertexRow, error) {
	vt, row := catalog.UnpackVertex(v)
	var rec vertexRow
	err := g.get(ctx, &rec, `SELECT vtype, row_id, oid_int, oid_str FROM grin_vertices WHERE vtype = ? AND row_id = ?`, uint32(vt), int64(row))
	if err == sql.ErrNoRows {
		return nil, gerrors.NotFoundf(grin.ErrNotFound, "vertex %#x", uint64(v))
	}
	if err != nil {
		return nil, dbError(err, "load vertex")
	}
	return &rec, nil
}

func (g *Graph) loadEdge(ctx context.Context, e grin.Edge) (*edgeRow, error) {
	et, row := catalog.UnpackEdge(e)
	var rec edgeRow
	err := g.get(ctx, &rec, `SELECT src, dst FROM grin_edges WHERE etype = ? AND row_id = ?`, uint32(et), int64(row))
	if err == sql.ErrNoRows {
		return nil, gerrors.NotFoundf(grin.ErrNotFound, "edge %#x", uint64(e))
	}
	if err != nil {
		return nil, dbError(err, "load edge")
	}
	return &rec, nil
}

func (g *Graph) VertexTypeOf(ctx context.Context, v grin.Vertex) (grin.VertexType, error) {
	if _, err := g.loadVertex(ctx, v); err != nil {
		return grin.NullVertexType, err
	}
	vt, _ := catalog.UnpackVertex(v)
	return vt, nil
}

func (g *Graph) EdgeTypeOf(ctx context.Context, e grin.Edge) (grin.EdgeType, error) {
	if _, err := g.loadEdge(ctx, e); err != nil {
		return grin.NullEdgeType, err
	}
	et, _ := catalog.UnpackEdge(e)
	return et, nil
}

func (g *Graph) EdgeEndpoints(ctx context.Context, e grin.Edge) (grin.Vertex, grin.Vertex, error) {
	rec, err := g.loadEdge(ctx, e)
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
	rec, err := g.loadVertex(ctx, v)
	if err != nil {
		return 0, err
	}
	return rec.OIDInt.Int64, nil
}

func (g *Graph) VertexByOriginalIDOfInt64(ctx context.Context, id int64) (grin.Vertex, error) {
	if err := g.RequireFeature(grin.FeatureVertexOriginalIDInt64); err != nil {
		return grin.NullVertex, err
	}
	return g.lookupOID(ctx, `SELECT vtype, row_id FROM grin_vertices WHERE oid_int = ?`, grin.Int64ID(id))
}

func (g *Graph) VertexOriginalIDOfString(ctx context.Context, v grin.Vertex) (string, error) {
	if err := g.RequireFeature(grin.FeatureVertexOriginalIDString); err != nil {
		return "", err
	}
	rec, err := g.loadVertex(ctx, v)
	if err != nil {
		return "", err
	}
	g.Tracker().Issue(grin.KindString, 1)
	return rec.OIDStr.String, nil
}

func (g *Graph) VertexByOriginalIDOfString(ctx context.Context, id string) (grin.Vertex, error) {
	if err := g.RequireFeature(grin.FeatureVertexOriginalIDString); err != nil {
		return grin.NullVertex, err
	}
	return g.lookupOID(ctx, `SELECT vtype, row_id FROM grin_vertices WHERE oid_str = ?`, grin.StringID(id))
}

func (g *Graph) lookupOID(ctx context.Context, query string, id grin.OriginalID) (grin.Vertex, error) {
	var rec struct {
		VType uint32 `db:"vtype"`
		RowID int64  `db:"row_id"`
	}
	err := g.get(ctx, &rec, query, id.Interface())
	if err == sql.ErrNoRows {
		return grin.NullVertex, gerrors.NotFoundf(grin.ErrNotFound, "vertex with original id %s", id)
	}
	if err != nil {
		return grin.NullVertex, dbError(err, "look up original id")
	}
	return catalog.PackVertex(grin.VertexType(rec.VType), uint64(rec.RowID)), nil
}

// Property values

func (g *Graph) VertexPropertyValue(ctx context.Context, v grin.Vertex, p grin.VertexProperty) (grin.Value, error) {
	slot, dt, err := g.VertexSlot(v, p, func() error {
		_, err := g.loadVertex(ctx, v)
		return err
	})
	if err != nil {
		return grin.Value{}, err
	}
	if _, err := g.loadVertex(ctx, v); err != nil {
		return grin.Value{}, err
	}
	vt, row := catalog.UnpackVertex(v)
	return g.value(ctx, `SELECT v_int, v_real, v_text FROM grin_vertex_values WHERE vtype = ? AND row_id = ? AND slot = ?`,
		dt, uint32(vt), int64(row), slot)
}

func (g *Graph) EdgePropertyValue(ctx context.Context, e grin.Edge, p grin.EdgeProperty) (grin.Value, error) {
	slot, dt, err := g.EdgeSlot(e, p, func() error {
		_, err := g.loadEdge(ctx, e)
		return err
	})
	if err != nil {
		return grin.Value{}, err
	}
	if _, err := g.loadEdge(ctx, e); err != nil {
		return grin.Value{}, err
	}
	et, row := catalog.UnpackEdge(e)
	return g.value(ctx, `SELECT v_int, v_real, v_text FROM grin_edge_values WHERE etype = ? AND row_id = ? AND slot = ?`,
		dt, uint32(et), int64(row), slot)
}

func (g *Graph) value(ctx context.Context, query string, dt grin.DataType, typ uint32, row int64, slot uint32) (grin.Value, error) {
	var rec valueRow
	err := g.get(ctx, &rec, query, typ, row, slot)
	if err == sql.ErrNoRows {
		return grin.NullValue(dt), nil
	}
	if err != nil {
		return grin.Value{}, dbError(err, "read property value")
	}
	val, err := grin.NewValue(dt, rec.cell().Decode(dt))
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

// dbError keeps closed-graph errors intact and wraps driver errors
func dbError(err error, message string) error {
	if gerrors.GetType(err) == gerrors.ErrorTypeDatabase {
		return err
	}
	return gerrors.Wrap(err, gerrors.ErrorTypeDatabase, gerrors.SeverityHigh, message)
}
