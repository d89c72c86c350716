package memgraph

import (
	"github.com/RoaringBitmap/roaring/v2"
	"github.com/rohankatakam/grin/internal/grin"
)

// column stores the values of one property slot for every row of a type.
// Unset rows are absent from the presence bitmap.
type column interface {
	dataType() grin.DataType
	set(row uint32, v any)
	get(row uint32) (any, bool)
	ptr(row uint32) (any, bool)
}

type typedColumn[T any] struct {
	dt      grin.DataType
	vals    []T
	present *roaring.Bitmap
}

func newTypedColumn[T any](dt grin.DataType) *typedColumn[T] {
	return &typedColumn[T]{dt: dt, present: roaring.New()}
}

func newColumn(dt grin.DataType) column {
	switch dt {
	case grin.Int32:
		return newTypedColumn[int32](dt)
	case grin.UInt32:
		return newTypedColumn[uint32](dt)
	case grin.Int64:
		return newTypedColumn[int64](dt)
	case grin.UInt64:
		return newTypedColumn[uint64](dt)
	case grin.Float32:
		return newTypedColumn[float32](dt)
	case grin.Float64:
		return newTypedColumn[float64](dt)
	case grin.String:
		return newTypedColumn[string](dt)
	case grin.Date32:
		return newTypedColumn[grin.Date](dt)
	case grin.Time32:
		return newTypedColumn[grin.TimeOfDay](dt)
	case grin.Timestamp64:
		return newTypedColumn[grin.Timestamp](dt)
	}
	return nil
}

func (c *typedColumn[T]) dataType() grin.DataType {
	return c.dt
}

func (c *typedColumn[T]) set(row uint32, v any) {
	if int(row) >= len(c.vals) {
		c.vals = append(c.vals, make([]T, int(row)+1-len(c.vals))...)
	}
	c.vals[row] = v.(T)
	c.present.Add(row)
}

func (c *typedColumn[T]) get(row uint32) (any, bool) {
	if !c.present.Contains(row) {
		return nil, false
	}
	return c.vals[row], true
}

func (c *typedColumn[T]) ptr(row uint32) (any, bool) {
	if !c.present.Contains(row) {
		return nil, false
	}
	return &c.vals[row], true
}
