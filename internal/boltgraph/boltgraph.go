// Package boltgraph stores a grin graph in a single bbolt file.
//
// Layout:
//
//	meta/catalog            msgpack catalog schema
//	vertices/<type>/<row>   msgpack vertexRecord
//	edges/<type>/<row>      msgpack edgeRecord
//	oid_int/<int64>         vertex handle
//	oid_str/<string>        vertex handle
//
// Type keys are 4-byte and row keys 8-byte big-endian integers. The sequence
// of each nested type bucket holds its next free row.
package boltgraph

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	"github.com/rohankatakam/grin/internal/catalog"
	gerrors "github.com/rohankatakam/grin/internal/errors"
	"github.com/rohankatakam/grin/internal/grin"
	"github.com/sirupsen/logrus"
	"github.com/vmihailenco/msgpack/v5"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketMeta     = []byte("meta")
	bucketVertices = []byte("vertices")
	bucketEdges    = []byte("edges")
	bucketOIDInt   = []byte("oid_int")
	bucketOIDStr   = []byte("oid_str")

	keyCatalog = []byte("catalog")
)

// Values are decoded on every read, so there is no stable storage to point at
const supported = grin.AllFeatures &^ grin.Features(grin.FeatureConstValuePtr)

// Options tunes a bolt-backed graph
type Options struct {
	// BatchSize is the number of buffered vertices and edges that triggers
	// an implicit Flush. Zero means DefaultBatchSize.
	BatchSize int
	// Timeout bounds waiting for the file lock. Zero means one second.
	Timeout time.Duration
}

const DefaultBatchSize = 1000

type vertexRecord struct {
	OIDInt int64                   `msgpack:"oi,omitempty"`
	OIDStr string                  `msgpack:"os,omitempty"`
	Values map[uint32]catalog.Cell `msgpack:"v,omitempty"`
}

type edgeRecord struct {
	Src    uint64                  `msgpack:"s"`
	Dst    uint64                  `msgpack:"d"`
	Values map[uint32]catalog.Cell `msgpack:"v,omitempty"`
}

type pendingVertex struct {
	vt  grin.VertexType
	row uint64
	id  grin.OriginalID
	rec vertexRecord
}

type pendingEdge struct {
	et  grin.EdgeType
	row uint64
	rec edgeRecord
}

// Graph implements grin.Store on top of bbolt. Writes are buffered until
// Flush; readers see flushed data only.
type Graph struct {
	*catalog.Catalog

	db        *bolt.DB
	path      string
	batchSize int

	mu          sync.Mutex
	pendingV    []pendingVertex
	pendingE    []pendingEdge
	pendingOIDs map[grin.OriginalID]struct{}
	pendingSet  map[grin.Vertex]struct{}
	nextV       map[uint32]uint64
	nextE       map[uint32]uint64
}

var _ grin.Store = (*Graph)(nil)

// Open opens or creates the graph file at path
func Open(path string, opts Options, logger *logrus.Logger) (*Graph, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Second
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: opts.Timeout})
	if err != nil {
		return nil, gerrors.DatabaseErrorf(err, "open bolt file %s", path)
	}

	var cat *catalog.Catalog
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketMeta, bucketVertices, bucketEdges, bucketOIDInt, bucketOIDStr} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}

		meta := tx.Bucket(bucketMeta)
		if data := meta.Get(keyCatalog); data != nil {
			s, err := catalog.DecodeSchema(data)
			if err != nil {
				return err
			}
			cat, err = catalog.FromSchema(s, supported, logger)
			return err
		}

		cat = catalog.New(supported, logger)
		data, err := cat.Marshal()
		if err != nil {
			return err
		}
		return meta.Put(keyCatalog, data)
	})
	if err != nil {
		db.Close()
		return nil, gerrors.DatabaseErrorf(err, "initialize bolt file %s", path)
	}

	g := &Graph{
		Catalog:     cat,
		db:          db,
		path:        path,
		batchSize:   opts.BatchSize,
		pendingOIDs: make(map[grin.OriginalID]struct{}),
		pendingSet:  make(map[grin.Vertex]struct{}),
		nextV:       make(map[uint32]uint64),
		nextE:       make(map[uint32]uint64),
	}
	g.Logger().WithField("path", path).Debug("Opened bolt graph")
	return g, nil
}

// Path returns the file backing the graph
func (g *Graph) Path() string {
	return g.path
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
	return g.flushLocked()
}

func (g *Graph) flushLocked() error {
	schema, err := g.Marshal()
	if err != nil {
		return gerrors.Wrap(err, gerrors.ErrorTypeInternal, gerrors.SeverityHigh, "encode catalog")
	}

	err = g.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketMeta).Put(keyCatalog, schema); err != nil {
			return err
		}

		vertices := tx.Bucket(bucketVertices)
		oidInt := tx.Bucket(bucketOIDInt)
		oidStr := tx.Bucket(bucketOIDStr)
		for _, pv := range g.pendingV {
			b, err := vertices.CreateBucketIfNotExists(u32key(uint32(pv.vt)))
			if err != nil {
				return err
			}
			if err := putRecord(b, pv.row, pv.rec); err != nil {
				return err
			}

			handle := u64key(uint64(catalog.PackVertex(pv.vt, pv.row)))
			switch pv.id.Type() {
			case grin.Int64:
				err = oidInt.Put(u64key(catalog.SortableInt64(pv.id.Int())), handle)
			case grin.String:
				err = oidStr.Put([]byte(pv.id.Str()), handle)
			}
			if err != nil {
				return err
			}
		}

		edges := tx.Bucket(bucketEdges)
		for _, pe := range g.pendingE {
			b, err := edges.CreateBucketIfNotExists(u32key(uint32(pe.et)))
			if err != nil {
				return err
			}
			if err := putRecord(b, pe.row, pe.rec); err != nil {
				return err
			}
		}
		return nil
	})
	fields := logrus.Fields{
		"vertices": len(g.pendingV),
		"edges":    len(g.pendingE),
	}
	if err != nil {
		// stored sequences are untouched by the rollback, so rows are reissued
		g.Logger().WithError(err).WithFields(fields).Warn("Dropped bolt batch after failed flush")
		g.resetPending()
		clear(g.nextV)
		clear(g.nextE)
		return gerrors.Wrap(err, gerrors.ErrorTypeDatabase, gerrors.SeverityHigh, "flush bolt graph").
			WithContext("dropped_vertices", fields["vertices"]).
			WithContext("dropped_edges", fields["edges"])
	}

	g.Logger().WithFields(fields).Debug("Flushed bolt graph")
	g.resetPending()
	return nil
}

func (g *Graph) resetPending() {
	g.pendingV = g.pendingV[:0]
	g.pendingE = g.pendingE[:0]
	clear(g.pendingOIDs)
	clear(g.pendingSet)
}

func putRecord(b *bolt.Bucket, row uint64, rec any) error {
	data, err := msgpack.Marshal(rec)
	if err != nil {
		return err
	}
	if err := b.Put(u64key(row), data); err != nil {
		return err
	}
	if b.Sequence() <= row {
		return b.SetSequence(row + 1)
	}
	return nil
}

// Close flushes pending writes and closes the file
func (g *Graph) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Closed() {
		return nil
	}

	flushErr := g.flushLocked()
	g.MarkClosed()
	if err := g.db.Close(); err != nil {
		return gerrors.Wrap(err, gerrors.ErrorTypeDatabase, gerrors.SeverityHigh, "close bolt graph")
	}
	return flushErr
}

func u32key(n uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, n)
	return b
}

func u64key(n uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, n)
	return b
}

func typeBucket(tx *bolt.Tx, root []byte, typ uint32) *bolt.Bucket {
	return tx.Bucket(root).Bucket(u32key(typ))
}

func getRecord(b *bolt.Bucket, row uint64, rec any) (bool, error) {
	if b == nil {
		return false, nil
	}
	data := b.Get(u64key(row))
	if data == nil {
		return false, nil
	}
	if err := msgpack.Unmarshal(data, rec); err != nil {
		return false, gerrors.Wrap(err, gerrors.ErrorTypeDatabase, gerrors.SeverityHigh, "decode record")
	}
	return true, nil
}

func (g *Graph) loadVertex(tx *bolt.Tx, v grin.Vertex) (*vertexRecord, error) {
	vt, row := catalog.UnpackVertex(v)
	var rec vertexRecord
	ok, err := getRecord(typeBucket(tx, bucketVertices, uint32(vt)), row, &rec)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, gerrors.NotFoundf(grin.ErrNotFound, "vertex %#x", uint64(v))
	}
	return &rec, nil
}

func (g *Graph) loadEdge(tx *bolt.Tx, e grin.Edge) (*edgeRecord, error) {
	et, row := catalog.UnpackEdge(e)
	var rec edgeRecord
	ok, err := getRecord(typeBucket(tx, bucketEdges, uint32(et)), row, &rec)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, gerrors.NotFoundf(grin.ErrNotFound, "edge %#x", uint64(e))
	}
	return &rec, nil
}

func (g *Graph) view(fn func(tx *bolt.Tx) error) error {
	if err := g.Guard(); err != nil {
		return err
	}
	return g.db.View(fn)
}
