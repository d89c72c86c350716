package conformance

import (
	"context"
	"errors"
	"math"

	"github.com/rohankatakam/grin/internal/grin"
)

// checkFeatureGating probes one operation per feature group with null
// handles. A disabled group must answer ErrUnsupported, an enabled one must
// answer anything else.
func checkFeatureGating(ctx context.Context, g grin.Graph) (int, error) {
	fs := g.Features()
	probes := []struct {
		name    string
		enabled bool
		call    func() error
	}{
		{"vertex_original_id_int64", fs.Has(grin.FeatureVertexOriginalIDInt64), func() error {
			_, err := g.VertexByOriginalIDOfInt64(ctx, 0)
			return err
		}},
		{"vertex_original_id_string", fs.Has(grin.FeatureVertexOriginalIDString), func() error {
			_, err := g.VertexByOriginalIDOfString(ctx, "")
			return err
		}},
		{"vertex_property", fs.Has(grin.FeatureVertexProperty), func() error {
			_, err := g.VertexPropertyDataType(ctx, grin.NullVertexProperty)
			return err
		}},
		{"vertex_property_name", fs.Has(grin.FeatureVertexPropertyName), func() error {
			ps, err := g.VertexPropertiesByName(ctx, "")
			for _, p := range ps {
				g.DestroyVertexProperty(p)
			}
			return err
		}},
		{"edge_property", fs.Has(grin.FeatureEdgeProperty), func() error {
			_, err := g.EdgePropertyDataType(ctx, grin.NullEdgeProperty)
			return err
		}},
		{"edge_property_name", fs.Has(grin.FeatureEdgePropertyName), func() error {
			ps, err := g.EdgePropertiesByName(ctx, "")
			for _, p := range ps {
				g.DestroyEdgeProperty(p)
			}
			return err
		}},
		{"vertex_const_value_ptr", fs.Has(grin.FeatureConstValuePtr) && fs.Has(grin.FeatureVertexProperty), func() error {
			_, err := g.VertexPropertyValuePtr(ctx, grin.NullVertex, grin.NullVertexProperty)
			return err
		}},
		{"edge_const_value_ptr", fs.Has(grin.FeatureConstValuePtr) && fs.Has(grin.FeatureEdgeProperty), func() error {
			_, err := g.EdgePropertyValuePtr(ctx, grin.NullEdge, grin.NullEdgeProperty)
			return err
		}},
	}

	for _, p := range probes {
		unsupported := errors.Is(p.call(), grin.ErrUnsupported)
		if p.enabled && unsupported {
			return 0, failf("%s is enabled but its operations report unsupported", p.name)
		}
		if !p.enabled && !unsupported {
			return 0, failf("%s is disabled but its operations did not report unsupported", p.name)
		}
	}

	if err := fs.Validate(); err != nil {
		return len(probes), failf("effective features are inconsistent: %v", err)
	}
	return len(probes), nil
}

// forEachVertex calls fn for every vertex of every type
func forEachVertex(ctx context.Context, g grin.Graph, fn func(vt grin.VertexType, v grin.Vertex) error) (int, error) {
	vts, err := g.VertexTypes(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, vt := range vts {
		vs, err := g.Vertices(ctx, vt)
		if err != nil {
			return n, err
		}
		for _, v := range vs {
			if err := ctx.Err(); err != nil {
				return n, err
			}
			if err := fn(vt, v); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

func forEachEdge(ctx context.Context, g grin.Graph, fn func(et grin.EdgeType, e grin.Edge) error) (int, error) {
	ets, err := g.EdgeTypes(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, et := range ets {
		es, err := g.Edges(ctx, et)
		if err != nil {
			return n, err
		}
		for _, e := range es {
			if err := ctx.Err(); err != nil {
				return n, err
			}
			if err := fn(et, e); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

func checkInt64RoundTrip(ctx context.Context, g grin.Graph) (int, error) {
	if !g.Features().Has(grin.FeatureVertexOriginalIDInt64) {
		return 0, errSkip
	}
	seen := make(map[int64]grin.Vertex)
	return forEachVertex(ctx, g, func(_ grin.VertexType, v grin.Vertex) error {
		id, err := g.VertexOriginalIDOfInt64(ctx, v)
		if err != nil {
			return failf("original id of vertex %d: %w", v, err)
		}
		if other, dup := seen[id]; dup {
			return failf("vertices %d and %d share original id %d", other, v, id)
		}
		seen[id] = v
		back, err := g.VertexByOriginalIDOfInt64(ctx, id)
		if err != nil {
			return failf("vertex by original id %d: %w", id, err)
		}
		if back != v {
			return failf("original id %d maps back to vertex %d, want %d", id, back, v)
		}
		return nil
	})
}

func checkStringRoundTrip(ctx context.Context, g grin.Graph) (int, error) {
	if !g.Features().Has(grin.FeatureVertexOriginalIDString) {
		return 0, errSkip
	}
	seen := make(map[string]grin.Vertex)
	return forEachVertex(ctx, g, func(_ grin.VertexType, v grin.Vertex) error {
		id, err := g.VertexOriginalIDOfString(ctx, v)
		if err != nil {
			return failf("original id of vertex %d: %w", v, err)
		}
		defer g.DestroyStringValue(id)
		if other, dup := seen[id]; dup {
			return failf("vertices %d and %d share original id %q", other, v, id)
		}
		seen[id] = v
		back, err := g.VertexByOriginalIDOfString(ctx, id)
		if err != nil {
			return failf("vertex by original id %q: %w", id, err)
		}
		if back != v {
			return failf("original id %q maps back to vertex %d, want %d", id, back, v)
		}
		return nil
	})
}

// checkPropertyNames verifies name(p) -> byName -> p and the bound type of
// every listed property
func checkPropertyNames(ctx context.Context, g grin.Graph) (int, error) {
	fs := g.Features()
	withV := fs.Has(grin.FeatureVertexPropertyName)
	withE := fs.Has(grin.FeatureEdgePropertyName)
	if !withV && !withE {
		return 0, errSkip
	}
	n := 0
	if withV {
		vts, err := g.VertexTypes(ctx)
		if err != nil {
			return n, err
		}
		for _, vt := range vts {
			ps, err := g.VertexPropertyList(ctx, vt)
			if err != nil {
				return n, err
			}
			err = vertexNameRoundTrip(ctx, g, vt, ps)
			for _, p := range ps {
				g.DestroyVertexProperty(p)
			}
			if err != nil {
				return n, err
			}
			n += len(ps)
		}
	}
	if withE {
		ets, err := g.EdgeTypes(ctx)
		if err != nil {
			return n, err
		}
		for _, et := range ets {
			ps, err := g.EdgePropertyList(ctx, et)
			if err != nil {
				return n, err
			}
			err = edgeNameRoundTrip(ctx, g, et, ps)
			for _, p := range ps {
				g.DestroyEdgeProperty(p)
			}
			if err != nil {
				return n, err
			}
			n += len(ps)
		}
	}
	return n, nil
}

func vertexNameRoundTrip(ctx context.Context, g grin.Graph, vt grin.VertexType, ps []grin.VertexProperty) error {
	for _, p := range ps {
		if !g.EqualVertexProperty(p, p) {
			return failf("vertex property %d is not equal to itself", p)
		}
		bound, err := g.VertexTypeFromProperty(ctx, p)
		if err != nil {
			return err
		}
		if bound != vt {
			return failf("vertex property %d is bound to type %d, listed under %d", p, bound, vt)
		}
		name, err := g.VertexPropertyName(ctx, vt, p)
		if err != nil {
			return err
		}
		q, err := g.VertexPropertyByName(ctx, vt, name)
		g.DestroyStringValue(name)
		if err != nil {
			return failf("vertex property %q by name: %w", name, err)
		}
		equal := g.EqualVertexProperty(p, q)
		g.DestroyVertexProperty(q)
		if !equal {
			return failf("vertex property %q does not resolve back to itself", name)
		}
	}
	return nil
}

func edgeNameRoundTrip(ctx context.Context, g grin.Graph, et grin.EdgeType, ps []grin.EdgeProperty) error {
	for _, p := range ps {
		if !g.EqualEdgeProperty(p, p) {
			return failf("edge property %d is not equal to itself", p)
		}
		bound, err := g.EdgeTypeFromProperty(ctx, p)
		if err != nil {
			return err
		}
		if bound != et {
			return failf("edge property %d is bound to type %d, listed under %d", p, bound, et)
		}
		name, err := g.EdgePropertyName(ctx, et, p)
		if err != nil {
			return err
		}
		q, err := g.EdgePropertyByName(ctx, et, name)
		g.DestroyStringValue(name)
		if err != nil {
			return failf("edge property %q by name: %w", name, err)
		}
		equal := g.EqualEdgeProperty(p, q)
		g.DestroyEdgeProperty(q)
		if !equal {
			return failf("edge property %q does not resolve back to itself", name)
		}
	}
	return nil
}

// checkByName verifies that the cross-type by-name list holds exactly one
// property for every type declaring the name
func checkByName(ctx context.Context, g grin.Graph) (int, error) {
	fs := g.Features()
	withV := fs.Has(grin.FeatureVertexPropertyName)
	withE := fs.Has(grin.FeatureEdgePropertyName)
	if !withV && !withE {
		return 0, errSkip
	}
	n := 0
	if withV {
		m, err := vertexByNameCoverage(ctx, g)
		n += m
		if err != nil {
			return n, err
		}
	}
	if withE {
		m, err := edgeByNameCoverage(ctx, g)
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func vertexByNameCoverage(ctx context.Context, g grin.Graph) (int, error) {
	vts, err := g.VertexTypes(ctx)
	if err != nil {
		return 0, err
	}
	// declared maps each name to the types declaring it
	declared := make(map[string][]grin.VertexType)
	for _, vt := range vts {
		ps, err := g.VertexPropertyList(ctx, vt)
		if err != nil {
			return 0, err
		}
		for _, p := range ps {
			name, err := g.VertexPropertyName(ctx, vt, p)
			g.DestroyVertexProperty(p)
			if err != nil {
				return 0, err
			}
			declared[name] = append(declared[name], vt)
			g.DestroyStringValue(name)
		}
	}

	for name, types := range declared {
		list, err := g.VertexPropertiesByName(ctx, name)
		if err != nil {
			return 0, err
		}
		err = coverVertexList(ctx, g, name, types, list)
		for _, p := range list {
			g.DestroyVertexProperty(p)
		}
		if err != nil {
			return 0, err
		}
	}
	return len(declared), nil
}

func coverVertexList(ctx context.Context, g grin.Graph, name string, types []grin.VertexType, list []grin.VertexProperty) error {
	if len(list) != len(types) {
		return failf("vertex properties named %q: got %d, want %d", name, len(list), len(types))
	}
	for _, vt := range types {
		want, err := g.VertexPropertyByName(ctx, vt, name)
		if err != nil {
			return err
		}
		found := false
		for _, p := range list {
			if g.EqualVertexProperty(p, want) {
				found = true
				break
			}
		}
		g.DestroyVertexProperty(want)
		if !found {
			return failf("vertex properties named %q miss the one of type %d", name, vt)
		}
	}
	return nil
}

func edgeByNameCoverage(ctx context.Context, g grin.Graph) (int, error) {
	ets, err := g.EdgeTypes(ctx)
	if err != nil {
		return 0, err
	}
	declared := make(map[string][]grin.EdgeType)
	for _, et := range ets {
		ps, err := g.EdgePropertyList(ctx, et)
		if err != nil {
			return 0, err
		}
		for _, p := range ps {
			name, err := g.EdgePropertyName(ctx, et, p)
			g.DestroyEdgeProperty(p)
			if err != nil {
				return 0, err
			}
			declared[name] = append(declared[name], et)
			g.DestroyStringValue(name)
		}
	}

	for name, types := range declared {
		list, err := g.EdgePropertiesByName(ctx, name)
		if err != nil {
			return 0, err
		}
		err = coverEdgeList(ctx, g, name, types, list)
		for _, p := range list {
			g.DestroyEdgeProperty(p)
		}
		if err != nil {
			return 0, err
		}
	}
	return len(declared), nil
}

func coverEdgeList(ctx context.Context, g grin.Graph, name string, types []grin.EdgeType, list []grin.EdgeProperty) error {
	if len(list) != len(types) {
		return failf("edge properties named %q: got %d, want %d", name, len(list), len(types))
	}
	for _, et := range types {
		want, err := g.EdgePropertyByName(ctx, et, name)
		if err != nil {
			return err
		}
		found := false
		for _, p := range list {
			if g.EqualEdgeProperty(p, want) {
				found = true
				break
			}
		}
		g.DestroyEdgeProperty(want)
		if !found {
			return failf("edge properties named %q miss the one of type %d", name, et)
		}
	}
	return nil
}

// checkTypedReads reads every property of every element through the getter
// matching its datatype. Set values must read back unchanged, unset ones must
// report ErrNullValue, and a getter of another datatype must report
// ErrTypeMismatch.
func checkTypedReads(ctx context.Context, g grin.Graph) (int, error) {
	fs := g.Features()
	withV := fs.Has(grin.FeatureVertexProperty)
	withE := fs.Has(grin.FeatureEdgeProperty)
	if !withV && !withE {
		return 0, errSkip
	}
	n := 0
	if withV {
		props := make(map[grin.VertexType][]grin.VertexProperty)
		defer func() {
			for _, ps := range props {
				for _, p := range ps {
					g.DestroyVertexProperty(p)
				}
			}
		}()
		m, err := forEachVertex(ctx, g, func(vt grin.VertexType, v grin.Vertex) error {
			ps, ok := props[vt]
			if !ok {
				var err error
				if ps, err = g.VertexPropertyList(ctx, vt); err != nil {
					return err
				}
				props[vt] = ps
			}
			for _, p := range ps {
				dt, err := g.VertexPropertyDataType(ctx, p)
				if err != nil {
					return err
				}
				val, err := g.VertexPropertyValue(ctx, v, p)
				if err != nil {
					return failf("vertex %d property %d: %w", v, p, err)
				}
				got, err := grin.TypedVertexValue(ctx, g, v, p, dt)
				if err := compareTyped(val, dt, got, err); err != nil {
					return failf("vertex %d property %d: %w", v, p, err)
				}
				releaseString(g, val, got)
				if _, err := grin.TypedVertexValue(ctx, g, v, p, otherType(dt)); !errors.Is(err, grin.ErrTypeMismatch) {
					return failf("vertex %d property %d: %s getter on a %s property returned %v", v, p, otherType(dt), dt, err)
				}
			}
			return nil
		})
		n += m
		if err != nil {
			return n, err
		}
	}
	if withE {
		props := make(map[grin.EdgeType][]grin.EdgeProperty)
		defer func() {
			for _, ps := range props {
				for _, p := range ps {
					g.DestroyEdgeProperty(p)
				}
			}
		}()
		m, err := forEachEdge(ctx, g, func(et grin.EdgeType, e grin.Edge) error {
			ps, ok := props[et]
			if !ok {
				var err error
				if ps, err = g.EdgePropertyList(ctx, et); err != nil {
					return err
				}
				props[et] = ps
			}
			for _, p := range ps {
				dt, err := g.EdgePropertyDataType(ctx, p)
				if err != nil {
					return err
				}
				val, err := g.EdgePropertyValue(ctx, e, p)
				if err != nil {
					return failf("edge %d property %d: %w", e, p, err)
				}
				got, err := grin.TypedEdgeValue(ctx, g, e, p, dt)
				if err := compareTyped(val, dt, got, err); err != nil {
					return failf("edge %d property %d: %w", e, p, err)
				}
				releaseString(g, val, got)
				if _, err := grin.TypedEdgeValue(ctx, g, e, p, otherType(dt)); !errors.Is(err, grin.ErrTypeMismatch) {
					return failf("edge %d property %d: %s getter on a %s property returned %v", e, p, otherType(dt), dt, err)
				}
			}
			return nil
		})
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func compareTyped(val grin.Value, dt grin.DataType, got any, err error) error {
	if val.Type != dt {
		return failf("value tagged %s, property declares %s", val.Type, dt)
	}
	if val.IsNull() {
		if !errors.Is(err, grin.ErrNullValue) {
			return failf("unset value read as %v (err %v), want a null error", got, err)
		}
		return nil
	}
	if err != nil {
		return failf("typed read: %w", err)
	}
	if !sameValue(got, val.Interface()) {
		return failf("typed read %v differs from value %v", got, val.Interface())
	}
	return nil
}

// sameValue compares floats by bit pattern so NaN matches itself
func sameValue(a, b any) bool {
	switch x := a.(type) {
	case float32:
		y, ok := b.(float32)
		return ok && math.Float32bits(x) == math.Float32bits(y)
	case float64:
		y, ok := b.(float64)
		return ok && math.Float64bits(x) == math.Float64bits(y)
	}
	return a == b
}

// releaseString returns the strings a value read and a typed read issued
func releaseString(g grin.Graph, val grin.Value, got any) {
	if s, err := val.AsString(); err == nil {
		g.DestroyStringValue(s)
	}
	if s, ok := got.(string); ok {
		g.DestroyStringValue(s)
	}
}

// otherType picks a datatype that differs from dt
func otherType(dt grin.DataType) grin.DataType {
	if dt == grin.Int32 {
		return grin.String
	}
	return grin.Int32
}
