package grin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOriginalID(t *testing.T) {
	id := Int64ID(-7)
	assert.Equal(t, Int64, id.Type())
	assert.Equal(t, int64(-7), id.Int())
	assert.Equal(t, "-7", id.String())
	assert.Equal(t, int64(-7), id.Interface())

	s := StringID("alice")
	assert.Equal(t, String, s.Type())
	assert.Equal(t, "alice", s.Str())
	assert.False(t, s.IsZero())

	assert.True(t, NoID.IsZero())
	assert.Nil(t, NoID.Interface())
}

func TestParseOriginalID(t *testing.T) {
	id, err := ParseOriginalID(Int64, "42")
	require.NoError(t, err)
	assert.Equal(t, Int64ID(42), id)

	id, err = ParseOriginalID(String, "42")
	require.NoError(t, err)
	assert.Equal(t, StringID("42"), id)

	_, err = ParseOriginalID(Int64, "forty-two")
	assert.Error(t, err)

	_, err = ParseOriginalID(Float64, "1")
	assert.Error(t, err)
}

func TestOriginalIDOf(t *testing.T) {
	id, err := OriginalIDOf(3)
	require.NoError(t, err)
	assert.Equal(t, Int64ID(3), id)

	id, err = OriginalIDOf("x")
	require.NoError(t, err)
	assert.Equal(t, StringID("x"), id)

	id, err = OriginalIDOf(nil)
	require.NoError(t, err)
	assert.True(t, id.IsZero())

	_, err = OriginalIDOf(2.5)
	assert.Error(t, err)
}
