package neo4jgraph

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rohankatakam/grin/internal/catalog"
	gerrors "github.com/rohankatakam/grin/internal/errors"
	"github.com/rohankatakam/grin/internal/grin"
)

func (g *Graph) Vertices(ctx context.Context, vt grin.VertexType) ([]grin.Vertex, error) {
	if err := g.CheckVertexType(vt); err != nil {
		return nil, err
	}
	b := NewCypherBuilder()
	query := "MATCH (n:" + vertexLabel + ") WHERE n." + keyVType + " = " + b.AddParam(int64(vt)) +
		" RETURN n." + keyRow + " AS row ORDER BY row"
	rows, err := g.rows(ctx, "list vertices", query, b.Params())
	if err != nil {
		return nil, err
	}
	out := make([]grin.Vertex, len(rows))
	for i, row := range rows {
		out[i] = catalog.PackVertex(vt, uint64(row))
	}
	return out, nil
}

func (g *Graph) Edges(ctx context.Context, et grin.EdgeType) ([]grin.Edge, error) {
	name, err := g.edgeTypeName(et)
	if err != nil {
		return nil, err
	}
	b := NewCypherBuilder()
	query, err := b.BuildListEdges(name)
	if err != nil {
		return nil, err
	}
	rows, err := g.rows(ctx, "list edges", query, b.Params())
	if err != nil {
		return nil, err
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
	b := NewCypherBuilder()
	query := "MATCH (n:" + vertexLabel + ") WHERE n." + keyVType + " = " + b.AddParam(int64(vt)) + " RETURN count(n) AS n"
	n, err := g.scalar(ctx, "count vertices", query, b.Params())
	return int(n), err
}

func (g *Graph) EdgeCount(ctx context.Context, et grin.EdgeType) (int, error) {
	name, err := g.edgeTypeName(et)
	if err != nil {
		return 0, err
	}
	b := NewCypherBuilder()
	query, err := b.BuildCountEdges(name)
	if err != nil {
		return 0, err
	}
	n, err := g.scalar(ctx, "count edges", query, b.Params())
	return int(n), err
}

func (g *Graph) edgeTypeName(et grin.EdgeType) (string, error) {
	td, err := g.EdgeTypeDef(et)
	if err != nil {
		return "", err
	}
	return td.Name, nil
}

// rows collects the int64 "row" column of a result
func (g *Graph) rows(ctx context.Context, op, query string, params map[string]any) ([]int64, error) {
	res, err := g.read(ctx, op, query, params)
	if err != nil {
		return nil, err
	}
	out := make([]int64, 0, len(res.Records))
	for _, rec := range res.Records {
		row, _, err := neo4j.GetRecordValue[int64](rec, "row")
		if err != nil {
			return nil, gerrors.DatabaseError(err, op)
		}
		out = append(out, row)
	}
	return out, nil
}

// scalar reads the int64 "n" column of a single-row result
func (g *Graph) scalar(ctx context.Context, op, query string, params map[string]any) (int64, error) {
	res, err := g.read(ctx, op, query, params)
	if err != nil {
		return 0, err
	}
	if len(res.Records) == 0 {
		return 0, nil
	}
	n, _, err := neo4j.GetRecordValue[int64](res.Records[0], "n")
	if err != nil {
		return 0, gerrors.DatabaseError(err, op)
	}
	return n, nil
}

func (g *Graph) loadVertex(ctx context.Context, v grin.Vertex) (map[string]any, error) {
	b := NewCypherBuilder()
	query := "MATCH (n:" + vertexLabel + " {" + keyVID + ": " + b.AddParam(int64(v)) + "}) RETURN n"
	res, err := g.read(ctx, "load vertex", query, b.Params())
	if err != nil {
		return nil, err
	}
	if len(res.Records) == 0 {
		return nil, gerrors.NotFoundf(grin.ErrNotFound, "vertex %#x", uint64(v))
	}
	node, _, err := neo4j.GetRecordValue[neo4j.Node](res.Records[0], "n")
	if err != nil {
		return nil, gerrors.DatabaseError(err, "load vertex")
	}
	return node.Props, nil
}

func (g *Graph) loadEdge(ctx context.Context, e grin.Edge) (map[string]any, error) {
	et, _ := catalog.UnpackEdge(e)
	name, err := g.edgeTypeName(et)
	if err != nil {
		return nil, gerrors.NotFoundf(grin.ErrNotFound, "edge %#x", uint64(e))
	}
	b := NewCypherBuilder()
	query, err := b.BuildMatchEdge(name, int64(e))
	if err != nil {
		return nil, err
	}
	res, err := g.read(ctx, "load edge", query, b.Params())
	if err != nil {
		return nil, err
	}
	if len(res.Records) == 0 {
		return nil, gerrors.NotFoundf(grin.ErrNotFound, "edge %#x", uint64(e))
	}
	rel, _, err := neo4j.GetRecordValue[neo4j.Relationship](res.Records[0], "r")
	if err != nil {
		return nil, gerrors.DatabaseError(err, "load edge")
	}
	return rel.Props, nil
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
	props, err := g.loadEdge(ctx, e)
	if err != nil {
		return grin.NullVertex, grin.NullVertex, err
	}
	src, _ := props[keySrc].(int64)
	dst, _ := props[keyDst].(int64)
	return grin.Vertex(src), grin.Vertex(dst), nil
}

// Original IDs

func (g *Graph) VertexOriginalIDOfInt64(ctx context.Context, v grin.Vertex) (int64, error) {
	if err := g.RequireFeature(grin.FeatureVertexOriginalIDInt64); err != nil {
		return 0, err
	}
	props, err := g.loadVertex(ctx, v)
	if err != nil {
		return 0, err
	}
	id, _ := props[keyOID].(int64)
	return id, nil
}

func (g *Graph) VertexByOriginalIDOfInt64(ctx context.Context, id int64) (grin.Vertex, error) {
	if err := g.RequireFeature(grin.FeatureVertexOriginalIDInt64); err != nil {
		return grin.NullVertex, err
	}
	return g.lookupOID(ctx, grin.Int64ID(id))
}

func (g *Graph) VertexOriginalIDOfString(ctx context.Context, v grin.Vertex) (string, error) {
	if err := g.RequireFeature(grin.FeatureVertexOriginalIDString); err != nil {
		return "", err
	}
	props, err := g.loadVertex(ctx, v)
	if err != nil {
		return "", err
	}
	id, _ := props[keyOID].(string)
	g.Tracker().Issue(grin.KindString, 1)
	return id, nil
}

func (g *Graph) VertexByOriginalIDOfString(ctx context.Context, id string) (grin.Vertex, error) {
	if err := g.RequireFeature(grin.FeatureVertexOriginalIDString); err != nil {
		return grin.NullVertex, err
	}
	return g.lookupOID(ctx, grin.StringID(id))
}

func (g *Graph) lookupOID(ctx context.Context, id grin.OriginalID) (grin.Vertex, error) {
	b := NewCypherBuilder()
	query := "MATCH (n:" + vertexLabel + " {" + keyOID + ": " + b.AddParam(id.Interface()) + "}) RETURN n." + keyVID + " AS n"
	res, err := g.read(ctx, "look up original id", query, b.Params())
	if err != nil {
		return grin.NullVertex, err
	}
	if len(res.Records) == 0 {
		return grin.NullVertex, gerrors.NotFoundf(grin.ErrNotFound, "vertex with original id %s", id)
	}
	vid, _, err := neo4j.GetRecordValue[int64](res.Records[0], "n")
	if err != nil {
		return grin.NullVertex, gerrors.DatabaseError(err, "look up original id")
	}
	return grin.Vertex(vid), nil
}

// Property values

func (g *Graph) VertexPropertyValue(ctx context.Context, v grin.Vertex, p grin.VertexProperty) (grin.Value, error) {
	_, dt, err := g.VertexSlot(v, p, func() error {
		_, err := g.loadVertex(ctx, v)
		return err
	})
	if err != nil {
		return grin.Value{}, err
	}
	def, err := g.VertexPropertyDef(p)
	if err != nil {
		return grin.Value{}, err
	}
	props, err := g.loadVertex(ctx, v)
	if err != nil {
		return grin.Value{}, err
	}
	return g.value(dt, props[def.Name])
}

func (g *Graph) EdgePropertyValue(ctx context.Context, e grin.Edge, p grin.EdgeProperty) (grin.Value, error) {
	_, dt, err := g.EdgeSlot(e, p, func() error {
		_, err := g.loadEdge(ctx, e)
		return err
	})
	if err != nil {
		return grin.Value{}, err
	}
	def, err := g.EdgePropertyDef(p)
	if err != nil {
		return grin.Value{}, err
	}
	props, err := g.loadEdge(ctx, e)
	if err != nil {
		return grin.Value{}, err
	}
	return g.value(dt, props[def.Name])
}

func (g *Graph) value(dt grin.DataType, raw any) (grin.Value, error) {
	if raw == nil {
		return grin.NullValue(dt), nil
	}
	cell, err := cellOf(raw)
	if err != nil {
		return grin.Value{}, err
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

// encodeValue maps a canonical value onto a Neo4j property: integers,
// dates and times as INTEGER, floats as FLOAT, strings as STRING. UInt64
// keeps its bit pattern.
func encodeValue(dt grin.DataType, v any) any {
	cell := catalog.EncodeCell(dt, v)
	switch dt {
	case grin.String:
		return cell.S
	case grin.Float32, grin.Float64:
		return cell.F
	}
	return cell.I
}

func cellOf(raw any) (catalog.Cell, error) {
	switch r := raw.(type) {
	case int64:
		return catalog.Cell{I: r}, nil
	case float64:
		return catalog.Cell{F: r}, nil
	case string:
		return catalog.Cell{S: r}, nil
	}
	return catalog.Cell{}, gerrors.InternalErrorf("unexpected neo4j property type %T", raw)
}
