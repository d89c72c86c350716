package sqlgraph

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
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
	tx, err := g.beginLocked(ctx)
	if err != nil {
		return grin.NullVertex, err
	}

	var row uint64
	err = g.savepoint(ctx, tx, g.nextV, uint32(vt), func() error {
		if err := g.checkUnique(ctx, tx, id); err != nil {
			return err
		}
		var err error
		row, err = g.nextRow(ctx, tx, g.nextV, uint32(vt), `SELECT COALESCE(MAX(row_id) + 1, 0) FROM grin_vertices WHERE vtype = ?`)
		if err != nil {
			return err
		}

		var oidInt sql.NullInt64
		var oidStr sql.NullString
		switch id.Type() {
		case grin.Int64:
			oidInt = sql.NullInt64{Int64: id.Int(), Valid: true}
		case grin.String:
			oidStr = sql.NullString{String: id.Str(), Valid: true}
		}
		_, err = tx.ExecContext(ctx, tx.Rebind(`INSERT INTO grin_vertices (vtype, row_id, oid_int, oid_str) VALUES (?, ?, ?, ?)`),
			uint32(vt), int64(row), oidInt, oidStr)
		if err != nil {
			return dbError(err, "insert vertex")
		}

		query := tx.Rebind(`INSERT INTO grin_vertex_values (vtype, row_id, slot, v_int, v_real, v_text) VALUES (?, ?, ?, ?, ?, ?)`)
		return insertValues(ctx, tx, query, uint32(vt), row, td.Properties, bySlot)
	})
	if err != nil {
		return grin.NullVertex, err
	}

	v := catalog.PackVertex(vt, row)
	if err := g.maybeCommit(ctx); err != nil {
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
	tx, err := g.beginLocked(ctx)
	if err != nil {
		return grin.NullEdge, err
	}

	var row uint64
	err = g.savepoint(ctx, tx, g.nextE, uint32(et), func() error {
		for _, v := range []grin.Vertex{src, dst} {
			vt, row := catalog.UnpackVertex(v)
			var n int
			err := tx.GetContext(ctx, &n, tx.Rebind(`SELECT COUNT(*) FROM grin_vertices WHERE vtype = ? AND row_id = ?`), uint32(vt), int64(row))
			if err != nil {
				return dbError(err, "check edge endpoint")
			}
			if n == 0 {
				return gerrors.NotFoundf(grin.ErrNotFound, "vertex %#x", uint64(v))
			}
		}

		var err error
		row, err = g.nextRow(ctx, tx, g.nextE, uint32(et), `SELECT COALESCE(MAX(row_id) + 1, 0) FROM grin_edges WHERE etype = ?`)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, tx.Rebind(`INSERT INTO grin_edges (etype, row_id, src, dst) VALUES (?, ?, ?, ?)`),
			uint32(et), int64(row), int64(src), int64(dst))
		if err != nil {
			return dbError(err, "insert edge")
		}

		query := tx.Rebind(`INSERT INTO grin_edge_values (etype, row_id, slot, v_int, v_real, v_text) VALUES (?, ?, ?, ?, ?, ?)`)
		return insertValues(ctx, tx, query, uint32(et), row, td.Properties, bySlot)
	})
	if err != nil {
		return grin.NullEdge, err
	}

	e := catalog.PackEdge(et, row)
	if err := g.maybeCommit(ctx); err != nil {
		return grin.NullEdge, err
	}
	return e, nil
}

func insertValues(ctx context.Context, tx *sqlx.Tx, query string, typ uint32, row uint64, props []catalog.PropertyDef, bySlot map[uint32]any) error {
	for slot, cell := range catalog.EncodeCells(props, bySlot) {
		var vInt sql.NullInt64
		var vReal sql.NullFloat64
		var vText sql.NullString
		switch dt := props[slot].DataType; {
		case dt == grin.String:
			vText = sql.NullString{String: cell.S, Valid: true}
		case dt == grin.Float32 || dt == grin.Float64:
			vReal = sql.NullFloat64{Float64: cell.F, Valid: true}
		default:
			vInt = sql.NullInt64{Int64: cell.I, Valid: true}
		}
		if _, err := tx.ExecContext(ctx, query, typ, int64(row), slot, vInt, vReal, vText); err != nil {
			return dbError(err, "insert property value")
		}
	}
	return nil
}

// beginLocked returns the open write transaction, starting one if needed.
// Callers hold g.mu.
func (g *Graph) beginLocked(ctx context.Context) (*sqlx.Tx, error) {
	if err := g.Guard(); err != nil {
		return nil, err
	}
	if g.tx != nil {
		return g.tx, nil
	}
	tx, err := g.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, dbError(err, "begin graph writes")
	}
	g.tx = tx
	return tx, nil
}

// savepoint runs one add inside a savepoint of the open transaction. On
// failure its statements are rolled back and the row counter of typ is
// restored, so the rest of the batch stays intact. Callers hold g.mu.
func (g *Graph) savepoint(ctx context.Context, tx *sqlx.Tx, next map[uint32]uint64, typ uint32, fn func() error) error {
	if _, err := tx.ExecContext(ctx, "SAVEPOINT grin_add"); err != nil {
		return dbError(err, "open savepoint")
	}
	n, counted := next[typ]

	if err := fn(); err != nil {
		if counted {
			next[typ] = n
		} else {
			delete(next, typ)
		}
		if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT grin_add"); rbErr != nil {
			g.Logger().WithError(rbErr).Warn("Failed to roll back savepoint")
		}
		if _, relErr := tx.ExecContext(ctx, "RELEASE SAVEPOINT grin_add"); relErr != nil {
			g.Logger().WithError(relErr).Warn("Failed to release savepoint")
		}
		return err
	}

	if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT grin_add"); err != nil {
		return dbError(err, "release savepoint")
	}
	return nil
}

func (g *Graph) maybeCommit(ctx context.Context) error {
	g.pending++
	if g.pending < g.batchSize {
		return nil
	}
	return g.commitLocked(ctx)
}

func (g *Graph) nextRow(ctx context.Context, tx *sqlx.Tx, next map[uint32]uint64, typ uint32, query string) (uint64, error) {
	if n, ok := next[typ]; ok {
		next[typ] = n + 1
		return n, nil
	}

	var n int64
	if err := tx.GetContext(ctx, &n, tx.Rebind(query), typ); err != nil {
		return 0, dbError(err, "read row counter")
	}
	if uint64(n) > catalog.RowMask {
		return 0, gerrors.ValidationErrorf("type %d is full (%d rows)", typ, n)
	}
	next[typ] = uint64(n) + 1
	return uint64(n), nil
}

func (g *Graph) checkUnique(ctx context.Context, tx *sqlx.Tx, id grin.OriginalID) error {
	var query string
	switch id.Type() {
	case grin.Int64:
		query = `SELECT COUNT(*) FROM grin_vertices WHERE oid_int = ?`
	case grin.String:
		query = `SELECT COUNT(*) FROM grin_vertices WHERE oid_str = ?`
	default:
		return nil
	}

	var n int
	if err := tx.GetContext(ctx, &n, tx.Rebind(query), id.Interface()); err != nil {
		return dbError(err, "check original id")
	}
	if n > 0 {
		return gerrors.Conflictf(grin.ErrDuplicate, "original id %s", id)
	}
	return nil
}
