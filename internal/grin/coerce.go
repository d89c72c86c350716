package grin

import (
	"math"
	"reflect"
	"time"

	gerrors "github.com/rohankatakam/grin/internal/errors"
)

// Coerce converts a loosely typed input into the canonical Go representation
// of dt. Numbers of any width are accepted when they fit; temporal types also
// accept time.Time and their textual layouts. A nil input yields nil.
func Coerce(dt DataType, v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	switch dt {
	case String:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case Float32:
		if f, ok := toFloat(v); ok && (math.Abs(f) <= math.MaxFloat32 || math.IsInf(f, 0) || math.IsNaN(f)) {
			return float32(f), nil
		}
	case Float64:
		if f, ok := toFloat(v); ok {
			return f, nil
		}
	case Int32:
		if n, ok := toInt(v); ok && n >= math.MinInt32 && n <= math.MaxInt32 {
			return int32(n), nil
		}
	case UInt32:
		if n, ok := toUint(v); ok && n <= math.MaxUint32 {
			return uint32(n), nil
		}
	case Int64:
		if n, ok := toInt(v); ok {
			return n, nil
		}
	case UInt64:
		if n, ok := toUint(v); ok {
			return n, nil
		}
	case Date32:
		return coerceDate(v)
	case Time32:
		return coerceTime(v)
	case Timestamp64:
		return coerceTimestamp(v)
	}

	return nil, mismatch(dt, v)
}

func mismatch(dt DataType, v any) error {
	return gerrors.TypeMismatchf(ErrTypeMismatch, "cannot use %v (%T) as %s", v, v, dt)
}

func coerceDate(v any) (any, error) {
	switch x := v.(type) {
	case time.Time:
		return DateOf(x), nil
	case string:
		t, err := time.Parse(dateLayout, x)
		if err != nil {
			t, err = time.Parse(time.RFC3339, x)
		}
		if err != nil {
			return nil, mismatch(Date32, v)
		}
		return DateOf(t), nil
	}
	if n, ok := toInt(v); ok && n >= math.MinInt32 && n <= math.MaxInt32 {
		return Date(n), nil
	}
	return nil, mismatch(Date32, v)
}

func coerceTime(v any) (any, error) {
	switch x := v.(type) {
	case time.Time:
		return TimeOf(x), nil
	case string:
		for _, layout := range []string{timeLayout, "15:04:05.000", "15:04"} {
			if t, err := time.Parse(layout, x); err == nil {
				return TimeOf(t), nil
			}
		}
		return nil, mismatch(Time32, v)
	}
	if n, ok := toInt(v); ok && n >= 0 && n < millisPerDay {
		return TimeOfDay(n), nil
	}
	return nil, mismatch(Time32, v)
}

func coerceTimestamp(v any) (any, error) {
	switch x := v.(type) {
	case time.Time:
		return TimestampOf(x), nil
	case string:
		for _, layout := range []string{time.RFC3339Nano, dateLayout} {
			if t, err := time.Parse(layout, x); err == nil {
				return TimestampOf(t), nil
			}
		}
		return nil, mismatch(Timestamp64, v)
	}
	if n, ok := toInt(v); ok {
		return Timestamp(n), nil
	}
	return nil, mismatch(Timestamp64, v)
}

func toInt(v any) (int64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, false
		}
		return int64(u), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
			return 0, false
		}
		return int64(f), true
	}
	return 0, false
}

func toUint(v any) (uint64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n := rv.Int()
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint(), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != math.Trunc(f) || f < 0 || f >= math.MaxUint64 {
			return 0, false
		}
		return uint64(f), true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}
