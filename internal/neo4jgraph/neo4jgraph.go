// Package neo4jgraph stores a grin graph in Neo4j.
//
// Every vertex is a node labelled GrinVertex plus its type name. Nodes carry
// grin_vid (the packed vertex handle), grin_vtype, grin_row and, when the
// graph has original IDs, grin_oid. Edges are relationships typed by their
// edge type name carrying grin_eid, grin_row, grin_src and grin_dst.
// Property values are stored under their property names. The catalog lives
// on a single _GrinCatalog node, so one database holds one graph.
package neo4jgraph

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rohankatakam/grin/internal/catalog"
	gerrors "github.com/rohankatakam/grin/internal/errors"
	"github.com/rohankatakam/grin/internal/grin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Values are fetched per call, so there is no stable storage to point at
const supported = grin.AllFeatures &^ grin.Features(grin.FeatureConstValuePtr)

const (
	DefaultBatchSize    = 1000
	DefaultReadTimeout  = 30 * time.Second
	DefaultWriteTimeout = 3 * time.Minute
	DefaultMaxPoolSize  = 50
)

// Options configures the driver and write batching
type Options struct {
	URI      string
	User     string
	Password string
	// Database defaults to "neo4j"
	Database string

	// BatchSize is the number of buffered vertices and edges that triggers
	// an implicit Flush
	BatchSize int
	// QueriesPerSecond caps the query rate. Zero disables the limit.
	QueriesPerSecond float64
	Burst            int

	MaxPoolSize  int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func (o *Options) setDefaults() {
	if o.Database == "" {
		o.Database = "neo4j"
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.Burst <= 0 {
		o.Burst = 1
	}
	if o.MaxPoolSize <= 0 {
		o.MaxPoolSize = DefaultMaxPoolSize
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = DefaultReadTimeout
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = DefaultWriteTimeout
	}
}

type pendingVertex struct {
	vt    grin.VertexType
	props map[string]any
}

type pendingEdge struct {
	et    grin.EdgeType
	src   grin.Vertex
	dst   grin.Vertex
	props map[string]any
}

// Graph implements grin.Store on a Neo4j database. Writes are buffered until
// Flush; readers see flushed data only.
type Graph struct {
	*catalog.Catalog

	driver  neo4j.DriverWithContext
	opts    Options
	limiter *rate.Limiter

	mu          sync.Mutex
	pendingV    []pendingVertex
	pendingE    []pendingEdge
	pendingOIDs map[grin.OriginalID]struct{}
	pendingSet  map[grin.Vertex]struct{}
	nextV       map[uint32]uint64
	nextE       map[uint32]uint64
	indexed     map[string]bool
}

var _ grin.Store = (*Graph)(nil)

// Open connects to Neo4j, creates constraints and loads the stored catalog
func Open(ctx context.Context, opts Options, logger *logrus.Logger) (*Graph, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if opts.URI == "" || opts.User == "" || opts.Password == "" {
		return nil, gerrors.ConfigErrorf("neo4j credentials missing: uri=%s, user=%s", opts.URI, opts.User)
	}
	opts.setDefaults()

	driver, err := neo4j.NewDriverWithContext(opts.URI,
		neo4j.BasicAuth(opts.User, opts.Password, ""),
		func(config *neo4j.Config) {
			config.MaxConnectionPoolSize = opts.MaxPoolSize
			config.ConnectionAcquisitionTimeout = 60 * time.Second
			config.MaxConnectionLifetime = time.Hour
			config.ConnectionLivenessCheckTimeout = 5 * time.Second
			config.SocketConnectTimeout = 5 * time.Second
			config.SocketKeepalive = true
		})
	if err != nil {
		return nil, gerrors.NetworkErrorf(err, "create neo4j driver")
	}

	// fail fast on startup
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, gerrors.NetworkErrorf(err, "connect to neo4j at %s", opts.URI)
	}

	limit := rate.Inf
	if opts.QueriesPerSecond > 0 {
		limit = rate.Limit(opts.QueriesPerSecond)
	}

	g := &Graph{
		driver:      driver,
		opts:        opts,
		limiter:     rate.NewLimiter(limit, opts.Burst),
		pendingOIDs: make(map[grin.OriginalID]struct{}),
		pendingSet:  make(map[grin.Vertex]struct{}),
		nextV:       make(map[uint32]uint64),
		nextE:       make(map[uint32]uint64),
		indexed:     make(map[string]bool),
	}

	if err := g.init(ctx, logger); err != nil {
		driver.Close(ctx)
		return nil, err
	}

	g.Logger().WithFields(logrus.Fields{
		"uri":           opts.URI,
		"database":      opts.Database,
		"max_pool_size": opts.MaxPoolSize,
	}).Info("Connected neo4j graph")
	return g, nil
}

func (g *Graph) init(ctx context.Context, logger *logrus.Logger) error {
	for _, stmt := range schemaStatements {
		if _, err := g.run(ctx, "init schema", stmt, nil, true); err != nil {
			return err
		}
	}

	res, err := g.run(ctx, "load catalog",
		"MATCH (c:"+catalogLabel+" {key: 'catalog'}) RETURN c.data AS data", nil, false)
	if err != nil {
		return err
	}
	if len(res.Records) == 0 {
		g.Catalog = catalog.New(supported, logger)
		return g.saveCatalog(ctx)
	}

	data, _, err := neo4j.GetRecordValue[[]byte](res.Records[0], "data")
	if err != nil {
		return gerrors.DatabaseError(err, "load catalog")
	}
	s, err := catalog.DecodeSchema(data)
	if err != nil {
		return gerrors.DatabaseError(err, "load catalog")
	}
	g.Catalog, err = catalog.FromSchema(s, supported, logger)
	return err
}

func (g *Graph) saveCatalog(ctx context.Context) error {
	data, err := g.Marshal()
	if err != nil {
		return gerrors.Wrap(err, gerrors.ErrorTypeInternal, gerrors.SeverityHigh, "encode catalog")
	}
	_, err = g.run(ctx, "save catalog", catalogQuery, map[string]any{"data": data}, true)
	return err
}

const catalogQuery = "MERGE (c:" + catalogLabel + " {key: 'catalog'}) SET c.data = $data"

// run executes one auto-routed query after waiting for the rate limiter
func (g *Graph) run(ctx context.Context, op, query string, params map[string]any, write bool) (*neo4j.EagerResult, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, gerrors.NetworkErrorf(err, "%s: rate limit", op)
	}

	timeout, routing := g.opts.ReadTimeout, neo4j.ExecuteQueryWithReadersRouting()
	if write {
		timeout, routing = g.opts.WriteTimeout, neo4j.ExecuteQueryWithWritersRouting()
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := neo4j.ExecuteQuery(ctx, g.driver, query, params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(g.opts.Database),
		routing)
	if err != nil {
		return nil, gerrors.DatabaseErrorf(err, "%s", op)
	}
	return res, nil
}

// read is run for graph reads; it fails once the graph is closed
func (g *Graph) read(ctx context.Context, op, query string, params map[string]any) (*neo4j.EagerResult, error) {
	if err := g.Guard(); err != nil {
		return nil, err
	}
	return g.run(ctx, op, query, params, false)
}

// HealthCheck verifies connectivity
func (g *Graph) HealthCheck(ctx context.Context) error {
	if err := g.Guard(); err != nil {
		return err
	}
	if err := g.driver.VerifyConnectivity(ctx); err != nil {
		return gerrors.NetworkErrorf(err, "neo4j health check")
	}
	return nil
}

// Flush writes buffered vertices, edges and the catalog in one transaction
func (g *Graph) Flush(ctx context.Context) error {
	if err := g.Guard(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.Guard(); err != nil {
		return err
	}
	return g.flushLocked(ctx)
}

type batch struct {
	query string
	want  int
	what  string
}

func (g *Graph) flushLocked(ctx context.Context) error {
	if err := g.ensureEdgeIndexes(ctx); err != nil {
		return err
	}

	schema, err := g.Marshal()
	if err != nil {
		return gerrors.Wrap(err, gerrors.ErrorTypeInternal, gerrors.SeverityHigh, "encode catalog")
	}
	batches, params, err := g.buildBatches(ctx)
	if err != nil {
		return err
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return gerrors.NetworkErrorf(err, "flush: rate limit")
	}
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: g.opts.Database,
		AccessMode:   neo4j.AccessModeWrite,
	})
	defer session.Close(ctx)

	_, err = session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, catalogQuery, map[string]any{"data": schema})
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}

		for i, b := range batches {
			res, err := tx.Run(ctx, b.query, params[i])
			if err != nil {
				return nil, err
			}
			rec, err := res.Single(ctx)
			if err != nil {
				return nil, err
			}
			created, _, err := neo4j.GetRecordValue[int64](rec, "created")
			if err != nil {
				return nil, err
			}
			if int(created) != b.want {
				return nil, gerrors.InternalErrorf("created %d of %d %s", created, b.want, b.what)
			}
		}
		return nil, nil
	},
		neo4j.WithTxTimeout(g.opts.WriteTimeout),
		neo4j.WithTxMetadata(map[string]any{"operation": "grin_flush", "type": "write"}))
	fields := logrus.Fields{
		"vertices": len(g.pendingV),
		"edges":    len(g.pendingE),
	}
	if err != nil {
		g.Logger().WithError(err).WithFields(fields).Warn("Dropped neo4j batch after failed flush")
		g.dropBatch()
		return gerrors.DatabaseError(err, "flush neo4j graph").
			WithContext("dropped_vertices", fields["vertices"]).
			WithContext("dropped_edges", fields["edges"])
	}

	g.Logger().WithFields(fields).Debug("Flushed neo4j graph")
	g.resetPending()
	return nil
}

func (g *Graph) resetPending() {
	g.pendingV = g.pendingV[:0]
	g.pendingE = g.pendingE[:0]
	clear(g.pendingOIDs)
	clear(g.pendingSet)
}

// dropBatch discards an uncommitted batch together with the row counters
// handed out for it, so the next row is read back from the database
func (g *Graph) dropBatch() {
	g.resetPending()
	clear(g.nextV)
	clear(g.nextE)
}

// buildBatches groups pending writes into one UNWIND query per type
func (g *Graph) buildBatches(ctx context.Context) ([]batch, []map[string]any, error) {
	var batches []batch
	var params []map[string]any

	vrows := make(map[grin.VertexType][]map[string]any)
	for _, pv := range g.pendingV {
		vrows[pv.vt] = append(vrows[pv.vt], pv.props)
	}
	for _, vt := range sortedKeys(vrows) {
		name, err := g.VertexTypeName(ctx, vt)
		if err != nil {
			return nil, nil, err
		}
		b := NewCypherBuilder()
		q, err := b.BuildCreateVertices(name, vrows[vt])
		if err != nil {
			return nil, nil, err
		}
		batches = append(batches, batch{query: q, want: len(vrows[vt]), what: name + " vertices"})
		params = append(params, b.Params())
	}

	erows := make(map[grin.EdgeType][]map[string]any)
	for _, pe := range g.pendingE {
		erows[pe.et] = append(erows[pe.et], map[string]any{
			"src":   int64(pe.src),
			"dst":   int64(pe.dst),
			"props": pe.props,
		})
	}
	for _, et := range sortedKeys(erows) {
		name, err := g.EdgeTypeName(ctx, et)
		if err != nil {
			return nil, nil, err
		}
		b := NewCypherBuilder()
		q, err := b.BuildCreateEdges(name, erows[et])
		if err != nil {
			return nil, nil, err
		}
		batches = append(batches, batch{query: q, want: len(erows[et]), what: name + " edges"})
		params = append(params, b.Params())
	}
	return batches, params, nil
}

func sortedKeys[K ~uint32, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// ensureEdgeIndexes creates the handle index of every edge type once.
// Schema changes cannot share a transaction with data writes.
func (g *Graph) ensureEdgeIndexes(ctx context.Context) error {
	ets, err := g.EdgeTypes(ctx)
	if err != nil {
		return err
	}
	for _, et := range ets {
		name, err := g.EdgeTypeName(ctx, et)
		if err != nil {
			return err
		}
		if g.indexed[name] {
			continue
		}
		stmt, err := BuildEdgeIndex(name)
		if err != nil {
			return err
		}
		if _, err := g.run(ctx, "create edge index", stmt, nil, true); err != nil {
			return err
		}
		g.indexed[name] = true
	}
	return nil
}

// Close flushes pending writes and closes the driver
func (g *Graph) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Closed() {
		return nil
	}

	ctx := context.Background()
	flushErr := g.flushLocked(ctx)
	g.MarkClosed()
	if err := g.driver.Close(ctx); err != nil {
		return gerrors.NetworkErrorf(err, "close neo4j driver")
	}
	g.Logger().Info("Closed neo4j graph")
	return flushErr
}
