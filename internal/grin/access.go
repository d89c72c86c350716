package grin

import (
	"context"

	gerrors "github.com/rohankatakam/grin/internal/errors"
)

func need(g Graph, fs ...Feature) error {
	have := g.Features()
	for _, f := range fs {
		if !have.Has(f) {
			return gerrors.Unsupportedf(ErrUnsupported, "%s", f)
		}
	}
	return nil
}

// Int64OriginalIDs returns the int64 original-ID index of g.
func Int64OriginalIDs(g Graph) (Int64OriginalIDIndex, error) {
	if err := need(g, FeatureVertexOriginalIDInt64); err != nil {
		return nil, err
	}
	return g, nil
}

// StringOriginalIDs returns the string original-ID index of g.
func StringOriginalIDs(g Graph) (StringOriginalIDIndex, error) {
	if err := need(g, FeatureVertexOriginalIDString); err != nil {
		return nil, err
	}
	return g, nil
}

// VertexProperties returns the vertex property reader of g.
func VertexProperties(g Graph) (VertexPropertyReader, error) {
	if err := need(g, FeatureVertexProperty); err != nil {
		return nil, err
	}
	return g, nil
}

// VertexPropertyNames returns the vertex property name lookup of g.
func VertexPropertyNames(g Graph) (VertexPropertyNamer, error) {
	if err := need(g, FeatureVertexProperty, FeatureVertexPropertyName); err != nil {
		return nil, err
	}
	return g, nil
}

// EdgeProperties returns the edge property reader of g.
func EdgeProperties(g Graph) (EdgePropertyReader, error) {
	if err := need(g, FeatureEdgeProperty); err != nil {
		return nil, err
	}
	return g, nil
}

// EdgePropertyNames returns the edge property name lookup of g.
func EdgePropertyNames(g Graph) (EdgePropertyNamer, error) {
	if err := need(g, FeatureEdgeProperty, FeatureEdgePropertyName); err != nil {
		return nil, err
	}
	return g, nil
}

// VertexValuePointers returns the zero-copy vertex value accessor of g.
func VertexValuePointers(g Graph) (VertexValuePointer, error) {
	if err := need(g, FeatureVertexProperty, FeatureConstValuePtr); err != nil {
		return nil, err
	}
	return g, nil
}

// EdgeValuePointers returns the zero-copy edge value accessor of g.
func EdgeValuePointers(g Graph) (EdgeValuePointer, error) {
	if err := need(g, FeatureEdgeProperty, FeatureConstValuePtr); err != nil {
		return nil, err
	}
	return g, nil
}

// Typed vertex getters. Each fails with ErrTypeMismatch when the property's
// datatype differs and with ErrNullValue when the element has no value.

func VertexPropertyInt32(ctx context.Context, r VertexPropertyReader, v Vertex, p VertexProperty) (int32, error) {
	return vertexAs(ctx, r, v, p, Value.AsInt32)
}

func VertexPropertyUInt32(ctx context.Context, r VertexPropertyReader, v Vertex, p VertexProperty) (uint32, error) {
	return vertexAs(ctx, r, v, p, Value.AsUInt32)
}

func VertexPropertyInt64(ctx context.Context, r VertexPropertyReader, v Vertex, p VertexProperty) (int64, error) {
	return vertexAs(ctx, r, v, p, Value.AsInt64)
}

func VertexPropertyUInt64(ctx context.Context, r VertexPropertyReader, v Vertex, p VertexProperty) (uint64, error) {
	return vertexAs(ctx, r, v, p, Value.AsUInt64)
}

func VertexPropertyFloat32(ctx context.Context, r VertexPropertyReader, v Vertex, p VertexProperty) (float32, error) {
	return vertexAs(ctx, r, v, p, Value.AsFloat32)
}

func VertexPropertyFloat64(ctx context.Context, r VertexPropertyReader, v Vertex, p VertexProperty) (float64, error) {
	return vertexAs(ctx, r, v, p, Value.AsFloat64)
}

func VertexPropertyString(ctx context.Context, r VertexPropertyReader, v Vertex, p VertexProperty) (string, error) {
	return vertexAs(ctx, r, v, p, Value.AsString)
}

func VertexPropertyDate32(ctx context.Context, r VertexPropertyReader, v Vertex, p VertexProperty) (Date, error) {
	return vertexAs(ctx, r, v, p, Value.AsDate32)
}

func VertexPropertyTime32(ctx context.Context, r VertexPropertyReader, v Vertex, p VertexProperty) (TimeOfDay, error) {
	return vertexAs(ctx, r, v, p, Value.AsTime32)
}

func VertexPropertyTimestamp64(ctx context.Context, r VertexPropertyReader, v Vertex, p VertexProperty) (Timestamp, error) {
	return vertexAs(ctx, r, v, p, Value.AsTimestamp64)
}

// Typed edge getters.

func EdgePropertyInt32(ctx context.Context, r EdgePropertyReader, e Edge, p EdgeProperty) (int32, error) {
	return edgeAs(ctx, r, e, p, Value.AsInt32)
}

func EdgePropertyUInt32(ctx context.Context, r EdgePropertyReader, e Edge, p EdgeProperty) (uint32, error) {
	return edgeAs(ctx, r, e, p, Value.AsUInt32)
}

func EdgePropertyInt64(ctx context.Context, r EdgePropertyReader, e Edge, p EdgeProperty) (int64, error) {
	return edgeAs(ctx, r, e, p, Value.AsInt64)
}

func EdgePropertyUInt64(ctx context.Context, r EdgePropertyReader, e Edge, p EdgeProperty) (uint64, error) {
	return edgeAs(ctx, r, e, p, Value.AsUInt64)
}

func EdgePropertyFloat32(ctx context.Context, r EdgePropertyReader, e Edge, p EdgeProperty) (float32, error) {
	return edgeAs(ctx, r, e, p, Value.AsFloat32)
}

func EdgePropertyFloat64(ctx context.Context, r EdgePropertyReader, e Edge, p EdgeProperty) (float64, error) {
	return edgeAs(ctx, r, e, p, Value.AsFloat64)
}

func EdgePropertyString(ctx context.Context, r EdgePropertyReader, e Edge, p EdgeProperty) (string, error) {
	return edgeAs(ctx, r, e, p, Value.AsString)
}

func EdgePropertyDate32(ctx context.Context, r EdgePropertyReader, e Edge, p EdgeProperty) (Date, error) {
	return edgeAs(ctx, r, e, p, Value.AsDate32)
}

func EdgePropertyTime32(ctx context.Context, r EdgePropertyReader, e Edge, p EdgeProperty) (TimeOfDay, error) {
	return edgeAs(ctx, r, e, p, Value.AsTime32)
}

func EdgePropertyTimestamp64(ctx context.Context, r EdgePropertyReader, e Edge, p EdgeProperty) (Timestamp, error) {
	return edgeAs(ctx, r, e, p, Value.AsTimestamp64)
}

func vertexAs[T any](ctx context.Context, r VertexPropertyReader, v Vertex, p VertexProperty, as func(Value) (T, error)) (T, error) {
	val, err := r.VertexPropertyValue(ctx, v, p)
	if err != nil {
		var zero T
		return zero, err
	}
	out, err := as(val)
	if err != nil {
		releaseString(r, val)
	}
	return out, err
}

func edgeAs[T any](ctx context.Context, r EdgePropertyReader, e Edge, p EdgeProperty, as func(Value) (T, error)) (T, error) {
	val, err := r.EdgePropertyValue(ctx, e, p)
	if err != nil {
		var zero T
		return zero, err
	}
	out, err := as(val)
	if err != nil {
		releaseString(r, val)
	}
	return out, err
}

// releaseString returns a string value the caller never received
func releaseString(r any, val Value) {
	s, err := val.AsString()
	if err != nil {
		return
	}
	if d, ok := r.(interface{ DestroyStringValue(string) }); ok {
		d.DestroyStringValue(s)
	}
}

// TypedVertexValue reads p through the typed getter matching dt
func TypedVertexValue(ctx context.Context, r VertexPropertyReader, v Vertex, p VertexProperty, dt DataType) (any, error) {
	switch dt {
	case Int32:
		return VertexPropertyInt32(ctx, r, v, p)
	case UInt32:
		return VertexPropertyUInt32(ctx, r, v, p)
	case Int64:
		return VertexPropertyInt64(ctx, r, v, p)
	case UInt64:
		return VertexPropertyUInt64(ctx, r, v, p)
	case Float32:
		return VertexPropertyFloat32(ctx, r, v, p)
	case Float64:
		return VertexPropertyFloat64(ctx, r, v, p)
	case String:
		return VertexPropertyString(ctx, r, v, p)
	case Date32:
		return VertexPropertyDate32(ctx, r, v, p)
	case Time32:
		return VertexPropertyTime32(ctx, r, v, p)
	case Timestamp64:
		return VertexPropertyTimestamp64(ctx, r, v, p)
	}
	return nil, gerrors.TypeMismatchf(ErrTypeMismatch, "no getter for %s", dt)
}

// TypedEdgeValue reads p through the typed getter matching dt
func TypedEdgeValue(ctx context.Context, r EdgePropertyReader, e Edge, p EdgeProperty, dt DataType) (any, error) {
	switch dt {
	case Int32:
		return EdgePropertyInt32(ctx, r, e, p)
	case UInt32:
		return EdgePropertyUInt32(ctx, r, e, p)
	case Int64:
		return EdgePropertyInt64(ctx, r, e, p)
	case UInt64:
		return EdgePropertyUInt64(ctx, r, e, p)
	case Float32:
		return EdgePropertyFloat32(ctx, r, e, p)
	case Float64:
		return EdgePropertyFloat64(ctx, r, e, p)
	case String:
		return EdgePropertyString(ctx, r, e, p)
	case Date32:
		return EdgePropertyDate32(ctx, r, e, p)
	case Time32:
		return EdgePropertyTime32(ctx, r, e, p)
	case Timestamp64:
		return EdgePropertyTimestamp64(ctx, r, e, p)
	}
	return nil, gerrors.TypeMismatchf(ErrTypeMismatch, "no getter for %s", dt)
}
