package catalog

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	gerrors "github.com/rohankatakam/grin/internal/errors"
	"github.com/rohankatakam/grin/internal/grin"
	"github.com/sirupsen/logrus"
)

// PropertyDef declares one property slot of a type
type PropertyDef struct {
	Name     string        `msgpack:"name" yaml:"name" json:"name"`
	DataType grin.DataType `msgpack:"type" yaml:"type" json:"type"`
}

// TypeDef declares a vertex or edge type and its property slots
type TypeDef struct {
	Name       string        `msgpack:"name" yaml:"name" json:"name"`
	Properties []PropertyDef `msgpack:"properties" yaml:"properties" json:"properties"`
}

// Schema is the persisted part of a catalog
type Schema struct {
	ID             string        `msgpack:"id"`
	OriginalIDType grin.DataType `msgpack:"original_id_type"`
	VertexTypes    []TypeDef     `msgpack:"vertex_types"`
	EdgeTypes      []TypeDef     `msgpack:"edge_types"`
}

// Catalog holds the schema of one graph and answers every schema-only
// operation of grin.Graph. Backends embed it and add the data path.
type Catalog struct {
	mu        sync.RWMutex
	schema    Schema
	requested grin.Features
	supported grin.Features
	closed    atomic.Bool

	vtByName map[string]grin.VertexType
	etByName map[string]grin.EdgeType
	vpByName []map[string]uint32
	epByName []map[string]uint32

	tracker *grin.Tracker
	logger  *logrus.Entry
}

// New creates an empty catalog with a fresh graph ID.
// supported is the feature set the owning backend can serve.
func New(supported grin.Features, logger *logrus.Logger) *Catalog {
	c, _ := FromSchema(Schema{ID: uuid.NewString()}, supported, logger)
	return c
}

// FromSchema rebuilds a catalog from a persisted schema
func FromSchema(s Schema, supported grin.Features, logger *logrus.Logger) (*Catalog, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}

	c := &Catalog{
		schema:    Schema{ID: s.ID, OriginalIDType: s.OriginalIDType},
		requested: grin.AllFeatures,
		supported: supported,
		vtByName:  make(map[string]grin.VertexType),
		etByName:  make(map[string]grin.EdgeType),
		logger:    logger.WithField("graph", s.ID),
	}
	c.tracker = grin.NewTracker(func(kind grin.HandleKind) {
		c.logger.WithField("kind", kind).Warn("Released more handles than were issued")
	})

	ctx := context.Background()
	for _, td := range s.VertexTypes {
		vt, err := c.AddVertexType(ctx, td.Name)
		if err != nil {
			return nil, err
		}
		for _, pd := range td.Properties {
			if _, err := c.AddVertexProperty(ctx, vt, pd.Name, pd.DataType); err != nil {
				return nil, err
			}
		}
	}
	for _, td := range s.EdgeTypes {
		et, err := c.AddEdgeType(ctx, td.Name)
		if err != nil {
			return nil, err
		}
		for _, pd := range td.Properties {
			if _, err := c.AddEdgeProperty(ctx, et, pd.Name, pd.DataType); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

// Schema returns a deep copy of the current schema
func (c *Catalog) Schema() Schema {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := Schema{ID: c.schema.ID, OriginalIDType: c.schema.OriginalIDType}
	out.VertexTypes = copyTypes(c.schema.VertexTypes)
	out.EdgeTypes = copyTypes(c.schema.EdgeTypes)
	return out
}

func copyTypes(in []TypeDef) []TypeDef {
	out := make([]TypeDef, len(in))
	for i, td := range in {
		out[i] = TypeDef{Name: td.Name, Properties: append([]PropertyDef(nil), td.Properties...)}
	}
	return out
}

// SetFeatures records the feature set requested by configuration. The
// effective set is narrowed by Features.
func (c *Catalog) SetFeatures(requested grin.Features) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requested = requested
}

// MarkClosed makes every later call fail with grin.ErrClosed
func (c *Catalog) MarkClosed() {
	c.closed.Store(true)
}

// Closed reports whether MarkClosed was called
func (c *Catalog) Closed() bool {
	return c.closed.Load()
}

// Guard returns the closed error, if any
func (c *Catalog) Guard() error {
	if c.closed.Load() {
		return gerrors.Wrap(grin.ErrClosed, gerrors.ErrorTypeDatabase, gerrors.SeverityHigh, "graph "+c.schema.ID)
	}
	return nil
}

// Logger returns the catalog's log entry, tagged with the graph ID
func (c *Catalog) Logger() *logrus.Entry {
	return c.logger
}

func (c *Catalog) ID() string {
	return c.schema.ID
}

func (c *Catalog) Features() grin.Features {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.requested.Effective(c.supported, c.schema.OriginalIDType)
}

func (c *Catalog) Tracker() *grin.Tracker {
	return c.tracker
}

func (c *Catalog) DestroyStringValue(s string) {
	c.tracker.Release(grin.KindString)
}

// RequireFeature fails with grin.ErrUnsupported unless every flag is enabled
func (c *Catalog) RequireFeature(fs ...grin.Feature) error {
	if err := c.Guard(); err != nil {
		return err
	}
	have := c.Features()
	for _, f := range fs {
		if !have.Has(f) {
			return gerrors.Unsupportedf(grin.ErrUnsupported, "%s", f)
		}
	}
	return nil
}

func (c *Catalog) VertexOriginalIDDataType(ctx context.Context) (grin.DataType, error) {
	if err := c.Guard(); err != nil {
		return grin.Undefined, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.schema.OriginalIDType, nil
}

// CheckOriginalID validates an ID handed to a builder
func (c *Catalog) CheckOriginalID(id grin.OriginalID) error {
	c.mu.RLock()
	want := c.schema.OriginalIDType
	c.mu.RUnlock()

	if id.Type() != want {
		return gerrors.TypeMismatchf(grin.ErrTypeMismatch, "original id %s is %s, graph uses %s", id, id.Type(), want)
	}
	if id.Type() == grin.String {
		switch n := len(id.Str()); {
		case n == 0:
			return gerrors.ValidationError("string original id is empty")
		case n > grin.MaxStringIDLen:
			return gerrors.ValidationErrorf("string original id is %d bytes, limit is %d", n, grin.MaxStringIDLen)
		}
	}
	return nil
}

// SetOriginalIDType fixes how original IDs are represented. It can only be
// changed before the first vertex type is declared.
func (c *Catalog) SetOriginalIDType(ctx context.Context, dt grin.DataType) error {
	if err := c.Guard(); err != nil {
		return err
	}
	if dt != grin.Int64 && dt != grin.String && dt != grin.Undefined {
		return gerrors.ValidationErrorf("original ids cannot be of type %s", dt)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if dt == c.schema.OriginalIDType {
		return nil
	}
	if len(c.schema.VertexTypes) > 0 {
		return gerrors.ValidationErrorf("original id type is fixed once vertex types exist (have %s)", c.schema.OriginalIDType)
	}
	c.schema.OriginalIDType = dt
	return nil
}

func (c *Catalog) String() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return fmt.Sprintf("catalog %s: %d vertex types, %d edge types, ids=%s",
		c.schema.ID, len(c.schema.VertexTypes), len(c.schema.EdgeTypes), c.schema.OriginalIDType)
}
