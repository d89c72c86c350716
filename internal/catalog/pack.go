package catalog

import (
	"github.com/rohankatakam/grin/internal/grin"
)

// Handle layout shared by the bundled backends:
//
//	vertex/edge:  type(24 bits) | row(40 bits)
//	property:     type(32 bits) | slot(32 bits)
const (
	rowBits  = 40
	RowMask  = uint64(1)<<rowBits - 1
	MaxTypes = 1<<(64-rowBits) - 1
)

func PackVertex(vt grin.VertexType, row uint64) grin.Vertex {
	return grin.Vertex(uint64(vt)<<rowBits | row&RowMask)
}

func UnpackVertex(v grin.Vertex) (grin.VertexType, uint64) {
	return grin.VertexType(uint64(v) >> rowBits), uint64(v) & RowMask
}

func PackEdge(et grin.EdgeType, row uint64) grin.Edge {
	return grin.Edge(uint64(et)<<rowBits | row&RowMask)
}

func UnpackEdge(e grin.Edge) (grin.EdgeType, uint64) {
	return grin.EdgeType(uint64(e) >> rowBits), uint64(e) & RowMask
}

func PackVertexProperty(vt grin.VertexType, slot uint32) grin.VertexProperty {
	return grin.VertexProperty(uint64(vt)<<32 | uint64(slot))
}

func UnpackVertexProperty(p grin.VertexProperty) (grin.VertexType, uint32) {
	return grin.VertexType(uint64(p) >> 32), uint32(p)
}

func PackEdgeProperty(et grin.EdgeType, slot uint32) grin.EdgeProperty {
	return grin.EdgeProperty(uint64(et)<<32 | uint64(slot))
}

func UnpackEdgeProperty(p grin.EdgeProperty) (grin.EdgeType, uint32) {
	return grin.EdgeType(uint64(p) >> 32), uint32(p)
}

// ToInt64 maps an integral canonical value onto a signed 64-bit column.
// uint64 keeps its bit pattern; FromInt64 reverses it.
func ToInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int32:
		return int64(x), true
	case uint32:
		return int64(x), true
	case int64:
		return x, true
	case uint64:
		return int64(x), true
	case grin.Date:
		return int64(x), true
	case grin.TimeOfDay:
		return int64(x), true
	case grin.Timestamp:
		return int64(x), true
	}
	return 0, false
}

// FromInt64 rebuilds the canonical value of an integral datatype
func FromInt64(dt grin.DataType, n int64) any {
	switch dt {
	case grin.Int32:
		return int32(n)
	case grin.UInt32:
		return uint32(n)
	case grin.Int64:
		return n
	case grin.UInt64:
		return uint64(n)
	case grin.Date32:
		return grin.Date(n)
	case grin.Time32:
		return grin.TimeOfDay(n)
	case grin.Timestamp64:
		return grin.Timestamp(n)
	}
	return nil
}
