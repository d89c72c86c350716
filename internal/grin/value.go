package grin

import (
	"fmt"

	gerrors "github.com/rohankatakam/grin/internal/errors"
)

// Value is a property value tagged with its datatype. The zero Value is a
// null of Undefined type.
type Value struct {
	Type DataType
	v    any
}

// NewValue coerces raw into dt. A nil raw produces a null value.
func NewValue(dt DataType, raw any) (Value, error) {
	c, err := Coerce(dt, raw)
	if err != nil {
		return Value{}, err
	}
	return Value{Type: dt, v: c}, nil
}

// NullValue returns an unset value of the given type.
func NullValue(dt DataType) Value {
	return Value{Type: dt}
}

// IsNull reports whether the value was never set.
func (v Value) IsNull() bool {
	return v.v == nil
}

// Interface returns the canonical Go value, or nil for a null value.
func (v Value) Interface() any {
	return v.v
}

func (v Value) String() string {
	if v.v == nil {
		return "null"
	}
	return fmt.Sprint(v.v)
}

func (v Value) AsInt32() (int32, error)             { return valueAs[int32](v, Int32) }
func (v Value) AsUInt32() (uint32, error)           { return valueAs[uint32](v, UInt32) }
func (v Value) AsInt64() (int64, error)             { return valueAs[int64](v, Int64) }
func (v Value) AsUInt64() (uint64, error)           { return valueAs[uint64](v, UInt64) }
func (v Value) AsFloat32() (float32, error)         { return valueAs[float32](v, Float32) }
func (v Value) AsFloat64() (float64, error)         { return valueAs[float64](v, Float64) }
func (v Value) AsString() (string, error)           { return valueAs[string](v, String) }
func (v Value) AsDate32() (Date, error)             { return valueAs[Date](v, Date32) }
func (v Value) AsTime32() (TimeOfDay, error)        { return valueAs[TimeOfDay](v, Time32) }
func (v Value) AsTimestamp64() (Timestamp, error)   { return valueAs[Timestamp](v, Timestamp64) }

func valueAs[T any](v Value, want DataType) (T, error) {
	var zero T
	if v.Type != want {
		return zero, gerrors.TypeMismatchf(ErrTypeMismatch, "value is %s, not %s", v.Type, want)
	}
	if v.v == nil {
		return zero, gerrors.NotFoundf(ErrNullValue, "%s value", want)
	}
	t, ok := v.v.(T)
	if !ok {
		return zero, gerrors.InternalErrorf("value of type %s holds %T", v.Type, v.v)
	}
	return t, nil
}
