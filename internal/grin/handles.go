package grin

import (
	"fmt"
	"math"
	"strconv"
)

// Handle types. Their bit layout belongs to the backend that issued them.
type (
	Vertex         uint64
	Edge           uint64
	VertexType     uint32
	EdgeType       uint32
	VertexProperty uint64
	EdgeProperty   uint64
)

// Null handles. No operation returns one together with a nil error.
const (
	NullVertex         = Vertex(math.MaxUint64)
	NullEdge           = Edge(math.MaxUint64)
	NullVertexType     = VertexType(math.MaxUint32)
	NullEdgeType       = EdgeType(math.MaxUint32)
	NullVertexProperty = VertexProperty(math.MaxUint64)
	NullEdgeProperty   = EdgeProperty(math.MaxUint64)
)

// OriginalID is an external vertex identifier assigned by the data source.
// It is either an int64, a string, or absent.
type OriginalID struct {
	kind DataType
	i    int64
	s    string
}

// NoID marks a vertex without an original ID.
var NoID = OriginalID{}

// MaxStringIDLen bounds the byte length of a string original ID. Every
// backend indexes the ID as a key, and the tightest key limit sits above it.
const MaxStringIDLen = 1024

// Int64ID builds an integer original ID.
func Int64ID(n int64) OriginalID {
	return OriginalID{kind: Int64, i: n}
}

// StringID builds a string original ID.
func StringID(s string) OriginalID {
	return OriginalID{kind: String, s: s}
}

// ParseOriginalID interprets s according to dt.
func ParseOriginalID(dt DataType, s string) (OriginalID, error) {
	switch dt {
	case Int64:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return NoID, fmt.Errorf("original id %q is not an int64: %w", s, err)
		}
		return Int64ID(n), nil
	case String:
		return StringID(s), nil
	case Undefined:
		return NoID, nil
	}
	return NoID, fmt.Errorf("original ids cannot be of type %s", dt)
}

// Type returns Int64, String, or Undefined for NoID.
func (o OriginalID) Type() DataType { return o.kind }

// Int returns the integer form; zero unless Type is Int64.
func (o OriginalID) Int() int64 { return o.i }

// Str returns the string form; empty unless Type is String.
func (o OriginalID) Str() string { return o.s }

// IsZero reports whether o is NoID.
func (o OriginalID) IsZero() bool { return o.kind == Undefined }

// Interface returns the ID as int64, string or nil.
func (o OriginalID) Interface() any {
	switch o.kind {
	case Int64:
		return o.i
	case String:
		return o.s
	}
	return nil
}

func (o OriginalID) String() string {
	switch o.kind {
	case Int64:
		return strconv.FormatInt(o.i, 10)
	case String:
		return o.s
	}
	return "<none>"
}

// OriginalIDOf converts an int64 or string into an OriginalID.
func OriginalIDOf(v any) (OriginalID, error) {
	switch x := v.(type) {
	case nil:
		return NoID, nil
	case string:
		return StringID(x), nil
	case OriginalID:
		return x, nil
	}
	if n, ok := toInt(v); ok {
		return Int64ID(n), nil
	}
	return NoID, mismatch(Int64, v)
}
