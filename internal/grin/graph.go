package grin

import "context"

// Topology enumerates types and elements. It is always available.
type Topology interface {
	VertexTypes(ctx context.Context) ([]VertexType, error)
	EdgeTypes(ctx context.Context) ([]EdgeType, error)
	VertexTypeName(ctx context.Context, vt VertexType) (string, error)
	VertexTypeByName(ctx context.Context, name string) (VertexType, error)
	EdgeTypeName(ctx context.Context, et EdgeType) (string, error)
	EdgeTypeByName(ctx context.Context, name string) (EdgeType, error)

	Vertices(ctx context.Context, vt VertexType) ([]Vertex, error)
	Edges(ctx context.Context, et EdgeType) ([]Edge, error)
	VertexCount(ctx context.Context, vt VertexType) (int, error)
	EdgeCount(ctx context.Context, et EdgeType) (int, error)
	VertexTypeOf(ctx context.Context, v Vertex) (VertexType, error)
	EdgeTypeOf(ctx context.Context, e Edge) (EdgeType, error)
	EdgeEndpoints(ctx context.Context, e Edge) (src, dst Vertex, err error)
}

// OriginalIDIndex reports how original IDs are represented. Always available;
// returns Undefined when the graph carries no original IDs.
type OriginalIDIndex interface {
	VertexOriginalIDDataType(ctx context.Context) (DataType, error)
}

// Int64OriginalIDIndex maps vertices to int64 original IDs and back.
// Gated by FeatureVertexOriginalIDInt64.
type Int64OriginalIDIndex interface {
	VertexOriginalIDOfInt64(ctx context.Context, v Vertex) (int64, error)
	VertexByOriginalIDOfInt64(ctx context.Context, id int64) (Vertex, error)
}

// StringOriginalIDIndex maps vertices to string original IDs and back.
// Gated by FeatureVertexOriginalIDString.
type StringOriginalIDIndex interface {
	VertexOriginalIDOfString(ctx context.Context, v Vertex) (string, error)
	VertexByOriginalIDOfString(ctx context.Context, id string) (Vertex, error)
}

// VertexPropertyReader is gated by FeatureVertexProperty.
type VertexPropertyReader interface {
	VertexPropertyList(ctx context.Context, vt VertexType) ([]VertexProperty, error)
	EqualVertexProperty(a, b VertexProperty) bool
	DestroyVertexProperty(p VertexProperty)
	VertexPropertyDataType(ctx context.Context, p VertexProperty) (DataType, error)
	VertexPropertyValue(ctx context.Context, v Vertex, p VertexProperty) (Value, error)
	VertexTypeFromProperty(ctx context.Context, p VertexProperty) (VertexType, error)
}

// VertexPropertyNamer is gated by FeatureVertexPropertyName.
type VertexPropertyNamer interface {
	VertexPropertyName(ctx context.Context, vt VertexType, p VertexProperty) (string, error)
	VertexPropertyByName(ctx context.Context, vt VertexType, name string) (VertexProperty, error)
	VertexPropertiesByName(ctx context.Context, name string) ([]VertexProperty, error)
}

// EdgePropertyReader is gated by FeatureEdgeProperty.
type EdgePropertyReader interface {
	EdgePropertyList(ctx context.Context, et EdgeType) ([]EdgeProperty, error)
	EqualEdgeProperty(a, b EdgeProperty) bool
	DestroyEdgeProperty(p EdgeProperty)
	EdgePropertyDataType(ctx context.Context, p EdgeProperty) (DataType, error)
	EdgePropertyValue(ctx context.Context, e Edge, p EdgeProperty) (Value, error)
	EdgeTypeFromProperty(ctx context.Context, p EdgeProperty) (EdgeType, error)
}

// EdgePropertyNamer is gated by FeatureEdgePropertyName.
type EdgePropertyNamer interface {
	EdgePropertyName(ctx context.Context, et EdgeType, p EdgeProperty) (string, error)
	EdgePropertyByName(ctx context.Context, et EdgeType, name string) (EdgeProperty, error)
	EdgePropertiesByName(ctx context.Context, name string) ([]EdgeProperty, error)
}

// VertexValuePointer exposes backend-owned storage without copying. The
// returned value is a pointer (*int32, *string, ...) that stays valid until
// the graph is next modified or closed. Callers must not write through it.
// Gated by FeatureConstValuePtr together with FeatureVertexProperty.
type VertexValuePointer interface {
	VertexPropertyValuePtr(ctx context.Context, v Vertex, p VertexProperty) (any, error)
}

// EdgeValuePointer is the edge counterpart of VertexValuePointer.
type EdgeValuePointer interface {
	EdgePropertyValuePtr(ctx context.Context, e Edge, p EdgeProperty) (any, error)
}

// Graph is the full retrieval surface every backend implements. Operations of
// a disabled feature group fail with ErrUnsupported.
type Graph interface {
	Topology
	OriginalIDIndex
	Int64OriginalIDIndex
	StringOriginalIDIndex
	VertexPropertyReader
	VertexPropertyNamer
	EdgePropertyReader
	EdgePropertyNamer
	VertexValuePointer
	EdgeValuePointer

	// ID identifies the graph instance.
	ID() string
	// Features returns the effective capability set.
	Features() Features
	// SetFeatures requests a capability set. Flags the backend or the stored
	// original-ID type cannot serve are dropped from Features.
	SetFeatures(requested Features)
	// DestroyStringValue releases a string returned by a getter.
	DestroyStringValue(s string)
	// Tracker exposes handle accounting.
	Tracker() *Tracker
	Close() error
}

// Builder populates a graph. Handles returned by a Builder are not
// caller-owned and need no Destroy call.
type Builder interface {
	SetOriginalIDType(ctx context.Context, dt DataType) error
	AddVertexType(ctx context.Context, name string) (VertexType, error)
	AddEdgeType(ctx context.Context, name string) (EdgeType, error)
	AddVertexProperty(ctx context.Context, vt VertexType, name string, dt DataType) (VertexProperty, error)
	AddEdgeProperty(ctx context.Context, et EdgeType, name string, dt DataType) (EdgeProperty, error)
	AddVertex(ctx context.Context, vt VertexType, id OriginalID, values map[VertexProperty]any) (Vertex, error)
	AddEdge(ctx context.Context, et EdgeType, src, dst Vertex, values map[EdgeProperty]any) (Edge, error)
	// Flush makes buffered writes visible to readers.
	Flush(ctx context.Context) error
}

// Store is a graph that can also be populated.
type Store interface {
	Graph
	Builder
}
