package grin

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueAccessors(t *testing.T) {
	v, err := NewValue(Int32, 12)
	require.NoError(t, err)

	n, err := v.AsInt32()
	require.NoError(t, err)
	assert.Equal(t, int32(12), n)
	assert.Equal(t, "12", v.String())

	_, err = v.AsInt64()
	assert.True(t, errors.Is(err, ErrTypeMismatch))
}

func TestValueNull(t *testing.T) {
	v := NullValue(String)
	assert.True(t, v.IsNull())
	assert.Nil(t, v.Interface())
	assert.Equal(t, "null", v.String())

	_, err := v.AsString()
	assert.True(t, errors.Is(err, ErrNullValue))

	_, err = v.AsFloat64()
	assert.True(t, errors.Is(err, ErrTypeMismatch))
}

func TestNewValueCoerces(t *testing.T) {
	v, err := NewValue(Date32, "2000-01-01")
	require.NoError(t, err)
	d, err := v.AsDate32()
	require.NoError(t, err)
	assert.Equal(t, "2000-01-01", d.String())

	_, err = NewValue(UInt32, -4)
	assert.Error(t, err)
}
