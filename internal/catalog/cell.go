package catalog

import (
	"github.com/rohankatakam/grin/internal/grin"
)

// Cell is the storage form of one canonical value. Integral and temporal
// values use I, floats use F, strings use S.
type Cell struct {
	I int64   `msgpack:"i,omitempty"`
	F float64 `msgpack:"f,omitempty"`
	S string  `msgpack:"s,omitempty"`
}

// EncodeCell stores a canonical value of dt
func EncodeCell(dt grin.DataType, v any) Cell {
	switch dt {
	case grin.String:
		s, _ := v.(string)
		return Cell{S: s}
	case grin.Float32:
		f, _ := v.(float32)
		return Cell{F: float64(f)}
	case grin.Float64:
		f, _ := v.(float64)
		return Cell{F: f}
	}
	n, _ := ToInt64(v)
	return Cell{I: n}
}

// Decode rebuilds the canonical value of dt
func (c Cell) Decode(dt grin.DataType) any {
	switch dt {
	case grin.String:
		return c.S
	case grin.Float32:
		return float32(c.F)
	case grin.Float64:
		return c.F
	}
	return FromInt64(dt, c.I)
}

// EncodeCells converts coerced builder values keyed by slot
func EncodeCells(props []PropertyDef, values map[uint32]any) map[uint32]Cell {
	out := make(map[uint32]Cell, len(values))
	for slot, v := range values {
		out[slot] = EncodeCell(props[slot].DataType, v)
	}
	return out
}

// SortableInt64 maps n onto a uint64 whose unsigned order matches the signed
// order of n. Used for big-endian index keys.
func SortableInt64(n int64) uint64 {
	return uint64(n) ^ (1 << 63)
}

// FromSortableInt64 reverses SortableInt64
func FromSortableInt64(u uint64) int64 {
	return int64(u ^ (1 << 63))
}
