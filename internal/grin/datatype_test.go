package grin

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDataType(t *testing.T) {
	tests := []struct {
		input   string
		want    DataType
		wantErr bool
	}{
		{"int32", Int32, false},
		{"UINT64", UInt64, false},
		{"float", Float32, false},
		{"float32", Float32, false},
		{"double", Float64, false},
		{"float64", Float64, false},
		{" string ", String, false},
		{"timestamp64", Timestamp64, false},
		{"", Undefined, false},
		{"none", Undefined, false},
		{"decimal", Undefined, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDataType(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDataTypeNamesRoundTrip(t *testing.T) {
	for dt := Int32; dt <= Timestamp64; dt++ {
		parsed, err := ParseDataType(dt.String())
		require.NoError(t, err)
		assert.Equal(t, dt, parsed)
		assert.True(t, dt.Valid())
	}
	assert.False(t, Undefined.Valid())
	assert.Equal(t, "datatype(42)", DataType(42).String())
}

func TestDataTypeTextMarshal(t *testing.T) {
	b, err := Date32.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "date32", string(b))

	var dt DataType
	require.NoError(t, dt.UnmarshalText([]byte("time32")))
	assert.Equal(t, Time32, dt)
	assert.Error(t, dt.UnmarshalText([]byte("bogus")))
}

func TestTemporalConversions(t *testing.T) {
	ts := time.Date(2024, 3, 15, 13, 45, 30, 250*int(time.Millisecond), time.UTC)

	d := DateOf(ts)
	assert.Equal(t, "2024-03-15", d.String())
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), d.Time())

	tm := TimeOf(ts)
	assert.Equal(t, TimeOfDay((13*3600+45*60+30)*1000+250), tm)
	assert.Equal(t, "13:45:30.250", tm.String())

	stamp := TimestampOf(ts)
	assert.Equal(t, ts, stamp.Time())
}

func TestDateOfBeforeEpoch(t *testing.T) {
	d := DateOf(time.Date(1969, 12, 31, 23, 0, 0, 0, time.UTC))
	assert.Equal(t, Date(-1), d)
	assert.Equal(t, "1969-12-31", d.String())
}
