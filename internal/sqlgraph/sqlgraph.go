// Package sqlgraph stores a grin graph in SQLite or PostgreSQL through sqlx.
// Property values live in one narrow table per element kind with a typed
// column per storage class (v_int, v_real, v_text).
package sqlgraph

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rohankatakam/grin/internal/catalog"
	gerrors "github.com/rohankatakam/grin/internal/errors"
	"github.com/rohankatakam/grin/internal/grin"
	"github.com/sirupsen/logrus"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect captures the differences between the supported databases
type Dialect struct {
	Name     string
	Driver   string
	BlobType string
}

var (
	SQLite   = Dialect{Name: "sqlite", Driver: "sqlite3", BlobType: "BLOB"}
	Postgres = Dialect{Name: "postgres", Driver: "pgx", BlobType: "BYTEA"}
)

// Values are scanned on every read, so there is no stable storage to point at
const supported = grin.AllFeatures &^ grin.Features(grin.FeatureConstValuePtr)

const DefaultBatchSize = 1000

// Options tunes a SQL-backed graph
type Options struct {
	// BatchSize is the number of writes after which the open transaction is
	// committed. Zero means DefaultBatchSize.
	BatchSize int
}

// Graph implements grin.Store over a SQL database. Builder calls run in one
// transaction that Flush commits; reads issued while it is open go through it.
type Graph struct {
	*catalog.Catalog

	db        *sqlx.DB
	dialect   Dialect
	batchSize int

	mu      sync.RWMutex
	tx      *sqlx.Tx
	pending int
	nextV   map[uint32]uint64
	nextE   map[uint32]uint64
}

var _ grin.Store = (*Graph)(nil)

// OpenSQLite opens a SQLite database file; ":memory:" gives a private
// in-memory database.
func OpenSQLite(ctx context.Context, path string, opts Options, logger *logrus.Logger) (*Graph, error) {
	memory := path == ":memory:"
	if !memory {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, gerrors.FileSystemErrorf(err, "create database directory for %s", path)
		}
	}

	db, err := sqlx.ConnectContext(ctx, SQLite.Driver, path)
	if err != nil {
		return nil, gerrors.DatabaseErrorf(err, "connect to sqlite %s", path)
	}
	if memory {
		// every connection would see its own empty database
		db.SetMaxOpenConns(1)
	} else {
		db.Exec("PRAGMA journal_mode = WAL")
	}
	db.Exec("PRAGMA foreign_keys = ON")

	g, err := Open(ctx, db, SQLite, opts, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return g, nil
}

// OpenPostgres connects to PostgreSQL through pgx
func OpenPostgres(ctx context.Context, dsn string, opts Options, logger *logrus.Logger) (*Graph, error) {
	db, err := sqlx.ConnectContext(ctx, Postgres.Driver, dsn)
	if err != nil {
		return nil, gerrors.DatabaseErrorf(err, "connect to postgres")
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	g, err := Open(ctx, db, Postgres, opts, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return g, nil
}

// Open creates the tables if needed and loads the stored catalog
func Open(ctx context.Context, db *sqlx.DB, dialect Dialect, opts Options, logger *logrus.Logger) (*Graph, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}

	for _, stmt := range schemaStatements(dialect) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, gerrors.DatabaseErrorf(err, "init %s schema", dialect.Name)
		}
	}

	cat, err := loadCatalog(ctx, db, logger)
	if err != nil {
		return nil, err
	}

	g := &Graph{
		Catalog:   cat,
		db:        db,
		dialect:   dialect,
		batchSize: opts.BatchSize,
		nextV:     make(map[uint32]uint64),
		nextE:     make(map[uint32]uint64),
	}
	if err := g.saveCatalog(ctx, db); err != nil {
		return nil, err
	}

	g.Logger().WithField("dialect", dialect.Name).Debug("Opened SQL graph")
	return g, nil
}

func schemaStatements(d Dialect) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS grin_meta (
			key TEXT PRIMARY KEY,
			value %s NOT NULL
		)`, d.BlobType),
		`CREATE TABLE IF NOT EXISTS grin_vertices (
			vtype INTEGER NOT NULL,
			row_id BIGINT NOT NULL,
			oid_int BIGINT,
			oid_str TEXT,
			PRIMARY KEY (vtype, row_id)
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_grin_vertices_oid_int ON grin_vertices(oid_int)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_grin_vertices_oid_str ON grin_vertices(oid_str)`,
		`CREATE TABLE IF NOT EXISTS grin_edges (
			etype INTEGER NOT NULL,
			row_id BIGINT NOT NULL,
			src BIGINT NOT NULL,
			dst BIGINT NOT NULL,
			PRIMARY KEY (etype, row_id)
		)`,
		`CREATE TABLE IF NOT EXISTS grin_vertex_values (
			vtype INTEGER NOT NULL,
			row_id BIGINT NOT NULL,
			slot INTEGER NOT NULL,
			v_int BIGINT,
			v_real DOUBLE PRECISION,
			v_text TEXT,
			PRIMARY KEY (vtype, row_id, slot)
		)`,
		`CREATE TABLE IF NOT EXISTS grin_edge_values (
			etype INTEGER NOT NULL,
			row_id BIGINT NOT NULL,
			slot INTEGER NOT NULL,
			v_int BIGINT,
			v_real DOUBLE PRECISION,
			v_text TEXT,
			PRIMARY KEY (etype, row_id, slot)
		)`,
	}
}

func loadCatalog(ctx context.Context, db *sqlx.DB, logger *logrus.Logger) (*catalog.Catalog, error) {
	var data []byte
	err := db.GetContext(ctx, &data, db.Rebind(`SELECT value FROM grin_meta WHERE key = ?`), "catalog")
	if err == sql.ErrNoRows {
		return catalog.New(supported, logger), nil
	}
	if err != nil {
		return nil, gerrors.DatabaseError(err, "load catalog")
	}

	s, err := catalog.DecodeSchema(data)
	if err != nil {
		return nil, gerrors.DatabaseError(err, "load catalog")
	}
	return catalog.FromSchema(s, supported, logger)
}

func (g *Graph) saveCatalog(ctx context.Context, q sqlx.ExecerContext) error {
	data, err := g.Marshal()
	if err != nil {
		return gerrors.Wrap(err, gerrors.ErrorTypeInternal, gerrors.SeverityHigh, "encode catalog")
	}
	query := g.db.Rebind(`
		INSERT INTO grin_meta (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`)
	if _, err := q.ExecContext(ctx, query, "catalog", data); err != nil {
		return gerrors.DatabaseError(err, "save catalog")
	}
	return nil
}

// Dialect reports which database the graph lives in
func (g *Graph) Dialect() Dialect {
	return g.dialect
}

// Flush commits the open write transaction together with the catalog
func (g *Graph) Flush(ctx context.Context) error {
	if err := g.Guard(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.Guard(); err != nil {
		return err
	}
	return g.commitLocked(ctx)
}

func (g *Graph) commitLocked(ctx context.Context) error {
	if g.tx == nil {
		return g.saveCatalog(ctx, g.db)
	}

	tx := g.tx
	g.tx = nil
	if err := g.saveCatalog(ctx, tx); err != nil {
		tx.Rollback()
		g.resetRows()
		return err
	}
	if err := tx.Commit(); err != nil {
		g.resetRows()
		return gerrors.DatabaseError(err, "commit graph writes")
	}

	g.Logger().WithField("writes", g.pending).Debug("Committed SQL graph writes")
	g.pending = 0
	return nil
}

// resetRows forgets cached row counters after a rollback
func (g *Graph) resetRows() {
	g.pending = 0
	clear(g.nextV)
	clear(g.nextE)
}

// Close commits pending writes and closes the database
func (g *Graph) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Closed() {
		return nil
	}

	commitErr := g.commitLocked(context.Background())
	g.MarkClosed()
	if err := g.db.Close(); err != nil {
		return gerrors.DatabaseError(err, "close SQL graph")
	}
	return commitErr
}

// querier returns the open transaction, if any, so reads see buffered
// writes. Callers hold g.mu.
func (g *Graph) querier() sqlx.QueryerContext {
	if g.tx != nil {
		return g.tx
	}
	return g.db
}

func (g *Graph) get(ctx context.Context, dest any, query string, args ...any) error {
	if err := g.Guard(); err != nil {
		return err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sqlx.GetContext(ctx, g.querier(), dest, g.db.Rebind(query), args...)
}

func (g *Graph) selectRows(ctx context.Context, dest any, query string, args ...any) error {
	if err := g.Guard(); err != nil {
		return err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sqlx.SelectContext(ctx, g.querier(), dest, g.db.Rebind(query), args...)
}
