package loader

import (
	"context"
	"fmt"
	"time"

	gerrors "github.com/rohankatakam/grin/internal/errors"
	"github.com/rohankatakam/grin/internal/grin"
	"github.com/sirupsen/logrus"
)

const DefaultBatchSize = 10000

// Stats summarizes one load
type Stats struct {
	VertexTypes int
	EdgeTypes   int
	Vertices    int
	Edges       int
	Duration    time.Duration
}

// Loader writes documents into a builder
type Loader struct {
	batchSize int
	logger    *logrus.Entry
}

// New returns a loader that flushes every batchSize vertices and edges.
// Zero means DefaultBatchSize.
func New(batchSize int, logger *logrus.Logger) *Loader {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Loader{batchSize: batchSize, logger: logger.WithField("component", "loader")}
}

type typeHandles[T any] struct {
	handle T
	props  map[string]uint64
}

// Load validates doc and writes it into b. The target must not already
// declare the document's types.
func (l *Loader) Load(ctx context.Context, doc *Document, b grin.Builder) (Stats, error) {
	start := time.Now()
	var st Stats
	if err := doc.Validate(); err != nil {
		return st, err
	}

	if err := b.SetOriginalIDType(ctx, doc.OriginalID); err != nil {
		return st, err
	}

	vtypes := make(map[string]typeHandles[grin.VertexType], len(doc.VertexTypes))
	for _, td := range doc.VertexTypes {
		vt, err := b.AddVertexType(ctx, td.Name)
		if err != nil {
			return st, err
		}
		th := typeHandles[grin.VertexType]{handle: vt, props: make(map[string]uint64)}
		for _, pd := range td.Properties {
			p, err := b.AddVertexProperty(ctx, vt, pd.Name, pd.DataType)
			if err != nil {
				return st, err
			}
			th.props[pd.Name] = uint64(p)
		}
		vtypes[td.Name] = th
		st.VertexTypes++
	}

	etypes := make(map[string]typeHandles[grin.EdgeType], len(doc.EdgeTypes))
	for _, td := range doc.EdgeTypes {
		et, err := b.AddEdgeType(ctx, td.Name)
		if err != nil {
			return st, err
		}
		th := typeHandles[grin.EdgeType]{handle: et, props: make(map[string]uint64)}
		for _, pd := range td.Properties {
			p, err := b.AddEdgeProperty(ctx, et, pd.Name, pd.DataType)
			if err != nil {
				return st, err
			}
			th.props[pd.Name] = uint64(p)
		}
		etypes[td.Name] = th
		st.EdgeTypes++
	}

	pending := 0
	flush := func(force bool) error {
		if !force && pending < l.batchSize {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := b.Flush(ctx); err != nil {
			return err
		}
		l.logger.WithFields(logrus.Fields{
			"vertices": st.Vertices,
			"edges":    st.Edges,
		}).Debug("Flushed batch")
		pending = 0
		return nil
	}

	refs := make(map[string]grin.Vertex, len(doc.Vertices))
	for i, dv := range doc.Vertices {
		th := vtypes[dv.Type]
		id, err := doc.OriginalIDOf(dv.ID)
		if err != nil {
			return st, err
		}
		values := make(map[grin.VertexProperty]any, len(dv.Values))
		for name, raw := range dv.Values {
			values[grin.VertexProperty(th.props[name])] = raw
		}
		v, err := b.AddVertex(ctx, th.handle, id, values)
		if err != nil {
			return st, fmt.Errorf("vertex %d: %w", i, err)
		}
		if r := dv.ref(); r != "" {
			refs[r] = v
		}
		st.Vertices++
		pending++
		if err := flush(false); err != nil {
			return st, err
		}
	}

	for i, de := range doc.Edges {
		th := etypes[de.Type]
		src, ok := refs[fmt.Sprint(de.Src)]
		dst, ok2 := refs[fmt.Sprint(de.Dst)]
		if !ok || !ok2 {
			return st, gerrors.ValidationErrorf("edge %d: unknown endpoint", i)
		}
		values := make(map[grin.EdgeProperty]any, len(de.Values))
		for name, raw := range de.Values {
			values[grin.EdgeProperty(th.props[name])] = raw
		}
		if _, err := b.AddEdge(ctx, th.handle, src, dst, values); err != nil {
			return st, fmt.Errorf("edge %d: %w", i, err)
		}
		st.Edges++
		pending++
		if err := flush(false); err != nil {
			return st, err
		}
	}

	if err := flush(true); err != nil {
		return st, err
	}

	st.Duration = time.Since(start)
	l.logger.WithFields(logrus.Fields{
		"vertex_types": st.VertexTypes,
		"edge_types":   st.EdgeTypes,
		"vertices":     st.Vertices,
		"edges":        st.Edges,
		"duration":     st.Duration,
	}).Info("Loaded graph document")
	return st, nil
}

// LoadFile parses and loads the document at path
func (l *Loader) LoadFile(ctx context.Context, path string, b grin.Builder) (Stats, error) {
	doc, err := ParseFile(path)
	if err != nil {
		return Stats{}, err
	}
	return l.Load(ctx, doc, b)
}
