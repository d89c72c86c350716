package grin

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerce(t *testing.T) {
	tests := []struct {
		name  string
		dt    DataType
		input any
		want  any
	}{
		{"int to int32", Int32, 42, int32(42)},
		{"int8 to int64", Int64, int8(-3), int64(-3)},
		{"whole float to int32", Int32, 7.0, int32(7)},
		{"uint64 to uint32", UInt32, uint64(9), uint32(9)},
		{"int to uint64", UInt64, 12, uint64(12)},
		{"max uint64", UInt64, uint64(math.MaxUint64), uint64(math.MaxUint64)},
		{"int to float", Float32, 3, float32(3)},
		{"float32 to double", Float64, float32(1.5), float64(1.5)},
		{"largest float", Float32, math.MaxFloat32, float32(math.MaxFloat32)},
		{"infinity to float", Float32, math.Inf(-1), float32(math.Inf(-1))},
		{"string", String, "alice", "alice"},
		{"date string", Date32, "1970-01-11", Date(10)},
		{"date int", Date32, 10, Date(10)},
		{"date from named type", Date32, Date(5), Date(5)},
		{"time string", Time32, "00:01:00", TimeOfDay(60000)},
		{"time int", Time32, 1500, TimeOfDay(1500)},
		{"timestamp rfc3339", Timestamp64, "1970-01-01T00:00:01Z", Timestamp(1000)},
		{"timestamp time", Timestamp64, time.UnixMilli(42), Timestamp(42)},
		{"nil passes through", Int32, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Coerce(tt.dt, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCoerceRejects(t *testing.T) {
	tests := []struct {
		name  string
		dt    DataType
		input any
	}{
		{"int32 overflow", Int32, int64(math.MaxInt32) + 1},
		{"negative uint", UInt32, -1},
		{"fractional int", Int64, 1.5},
		{"string to int", Int32, "42"},
		{"int to string", String, 42},
		{"bad date", Date32, "15/03/2024"},
		{"time out of range", Time32, int64(millisPerDay)},
		{"bool", Float64, true},
		{"float overflow", Float32, 1e39},
		{"negative float overflow", Float32, -math.MaxFloat64},
		{"undefined", Undefined, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Coerce(tt.dt, tt.input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrTypeMismatch))
		})
	}
}
