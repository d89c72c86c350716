// Package cache memoizes original-ID lookups and by-name property resolution
// in front of any grin.Store.
package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rohankatakam/grin/internal/grin"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTTL             = 5 * time.Minute
	DefaultCleanupInterval = 10 * time.Minute
)

// Options tunes the cache
type Options struct {
	TTL             time.Duration
	CleanupInterval time.Duration
}

// Stats counts cache traffic
type Stats struct {
	Hits   int64
	Misses int64
}

// Graph wraps a store. Only successful lookups are cached; misses, errors
// and disabled features always reach the wrapped store. Handles served from
// the cache are still accounted as issued to the caller.
type Graph struct {
	grin.Store

	oids  *cache.Cache
	names *cache.Cache
	group singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
	logger *logrus.Entry
}

// New wraps inner
func New(inner grin.Store, opts Options, logger *logrus.Logger) *Graph {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = DefaultCleanupInterval
	}
	return &Graph{
		Store:  inner,
		oids:   cache.New(opts.TTL, opts.CleanupInterval),
		names:  cache.New(opts.TTL, opts.CleanupInterval),
		logger: logger.WithField("component", "cache"),
	}
}

// Unwrap returns the wrapped store
func (g *Graph) Unwrap() grin.Store {
	return g.Store
}

func (g *Graph) Stats() Stats {
	return Stats{Hits: g.hits.Load(), Misses: g.misses.Load()}
}

// lookup serves key from c, collapsing concurrent misses into one call of fn
func lookup[T any](g *Graph, c *cache.Cache, key string, fn func() (T, error)) (T, error) {
	if v, ok := c.Get(key); ok {
		g.hits.Add(1)
		return v.(T), nil
	}
	g.misses.Add(1)

	v, err, _ := g.group.Do(key, func() (any, error) {
		v, err := fn()
		if err != nil {
			return nil, err
		}
		c.SetDefault(key, v)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Original IDs

func (g *Graph) VertexByOriginalIDOfInt64(ctx context.Context, id int64) (grin.Vertex, error) {
	if !g.Features().Has(grin.FeatureVertexOriginalIDInt64) {
		return g.Store.VertexByOriginalIDOfInt64(ctx, id)
	}
	return lookup(g, g.oids, fmt.Sprintf("oid:i:%d", id), func() (grin.Vertex, error) {
		return g.Store.VertexByOriginalIDOfInt64(ctx, id)
	})
}

func (g *Graph) VertexByOriginalIDOfString(ctx context.Context, id string) (grin.Vertex, error) {
	if !g.Features().Has(grin.FeatureVertexOriginalIDString) {
		return g.Store.VertexByOriginalIDOfString(ctx, id)
	}
	return lookup(g, g.oids, "oid:s:"+id, func() (grin.Vertex, error) {
		return g.Store.VertexByOriginalIDOfString(ctx, id)
	})
}

func (g *Graph) VertexOriginalIDOfInt64(ctx context.Context, v grin.Vertex) (int64, error) {
	if !g.Features().Has(grin.FeatureVertexOriginalIDInt64) {
		return g.Store.VertexOriginalIDOfInt64(ctx, v)
	}
	return lookup(g, g.oids, fmt.Sprintf("vid:i:%d", v), func() (int64, error) {
		return g.Store.VertexOriginalIDOfInt64(ctx, v)
	})
}

func (g *Graph) VertexOriginalIDOfString(ctx context.Context, v grin.Vertex) (string, error) {
	if !g.Features().Has(grin.FeatureVertexOriginalIDString) {
		return g.Store.VertexOriginalIDOfString(ctx, v)
	}
	s, err := lookup(g, g.oids, fmt.Sprintf("vid:s:%d", v), func() (string, error) {
		s, err := g.Store.VertexOriginalIDOfString(ctx, v)
		if err == nil {
			g.Store.DestroyStringValue(s)
		}
		return s, err
	})
	if err != nil {
		return "", err
	}
	g.Tracker().Issue(grin.KindString, 1)
	return s, nil
}

// Properties by name

func (g *Graph) VertexPropertyByName(ctx context.Context, vt grin.VertexType, name string) (grin.VertexProperty, error) {
	if !g.Features().Has(grin.FeatureVertexPropertyName) {
		return g.Store.VertexPropertyByName(ctx, vt, name)
	}
	p, err := lookup(g, g.names, fmt.Sprintf("vp:%d:%s", vt, name), func() (grin.VertexProperty, error) {
		p, err := g.Store.VertexPropertyByName(ctx, vt, name)
		if err == nil {
			g.Store.DestroyVertexProperty(p)
		}
		return p, err
	})
	if err != nil {
		return grin.NullVertexProperty, err
	}
	g.Tracker().Issue(grin.KindVertexProperty, 1)
	return p, nil
}

func (g *Graph) VertexPropertiesByName(ctx context.Context, name string) ([]grin.VertexProperty, error) {
	if !g.Features().Has(grin.FeatureVertexPropertyName) {
		return g.Store.VertexPropertiesByName(ctx, name)
	}
	ps, err := lookup(g, g.names, "vps:"+name, func() ([]grin.VertexProperty, error) {
		ps, err := g.Store.VertexPropertiesByName(ctx, name)
		for _, p := range ps {
			g.Store.DestroyVertexProperty(p)
		}
		return ps, err
	})
	if err != nil {
		return nil, err
	}
	g.Tracker().Issue(grin.KindVertexProperty, len(ps))
	return append([]grin.VertexProperty(nil), ps...), nil
}

func (g *Graph) EdgePropertyByName(ctx context.Context, et grin.EdgeType, name string) (grin.EdgeProperty, error) {
	if !g.Features().Has(grin.FeatureEdgePropertyName) {
		return g.Store.EdgePropertyByName(ctx, et, name)
	}
	p, err := lookup(g, g.names, fmt.Sprintf("ep:%d:%s", et, name), func() (grin.EdgeProperty, error) {
		p, err := g.Store.EdgePropertyByName(ctx, et, name)
		if err == nil {
			g.Store.DestroyEdgeProperty(p)
		}
		return p, err
	})
	if err != nil {
		return grin.NullEdgeProperty, err
	}
	g.Tracker().Issue(grin.KindEdgeProperty, 1)
	return p, nil
}

func (g *Graph) EdgePropertiesByName(ctx context.Context, name string) ([]grin.EdgeProperty, error) {
	if !g.Features().Has(grin.FeatureEdgePropertyName) {
		return g.Store.EdgePropertiesByName(ctx, name)
	}
	ps, err := lookup(g, g.names, "eps:"+name, func() ([]grin.EdgeProperty, error) {
		ps, err := g.Store.EdgePropertiesByName(ctx, name)
		for _, p := range ps {
			g.Store.DestroyEdgeProperty(p)
		}
		return ps, err
	})
	if err != nil {
		return nil, err
	}
	g.Tracker().Issue(grin.KindEdgeProperty, len(ps))
	return append([]grin.EdgeProperty(nil), ps...), nil
}

// Schema changes invalidate name lookups

func (g *Graph) AddVertexProperty(ctx context.Context, vt grin.VertexType, name string, dt grin.DataType) (grin.VertexProperty, error) {
	p, err := g.Store.AddVertexProperty(ctx, vt, name, dt)
	if err == nil {
		g.names.Flush()
	}
	return p, err
}

func (g *Graph) AddEdgeProperty(ctx context.Context, et grin.EdgeType, name string, dt grin.DataType) (grin.EdgeProperty, error) {
	p, err := g.Store.AddEdgeProperty(ctx, et, name, dt)
	if err == nil {
		g.names.Flush()
	}
	return p, err
}

// Close empties the cache and closes the wrapped store
func (g *Graph) Close() error {
	st := g.Stats()
	g.logger.WithFields(logrus.Fields{"hits": st.Hits, "misses": st.Misses}).Debug("Closing cache")
	g.oids.Flush()
	g.names.Flush()
	return g.Store.Close()
}
