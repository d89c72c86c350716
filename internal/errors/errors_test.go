package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errSentinel = stderrors.New("sentinel")

func TestWrapMatchesSentinel(t *testing.T) {
	err := NotFoundf(errSentinel, "vertex %d", 42)

	assert.True(t, stderrors.Is(err, errSentinel))
	assert.Equal(t, "vertex 42: sentinel", err.Error())
	assert.Equal(t, ErrorTypeNotFound, GetType(err))
	assert.Equal(t, SeverityLow, GetSeverity(err))
	assert.Empty(t, err.StackTrace)
}

func TestIsMatchesByType(t *testing.T) {
	err := TypeMismatchf(errSentinel, "int32 vs string")
	wrapped := fmt.Errorf("read failed: %w", err)

	assert.True(t, stderrors.Is(wrapped, &Error{Type: ErrorTypeTypeMismatch}))
	assert.False(t, stderrors.Is(wrapped, &Error{Type: ErrorTypeNotFound}))
	assert.Equal(t, ErrorTypeTypeMismatch, GetType(wrapped))
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorTypeDatabase, SeverityCritical, "x"))
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", stderrors.New("x"), false},
		{"config", ConfigError("bad"), true},
		{"lookup", NotFoundf(errSentinel, "x"), false},
		{"database", DatabaseError(errSentinel, "query"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsFatal(tt.err))
		})
	}
}

func TestDetailedString(t *testing.T) {
	err := DatabaseErrorf(errSentinel, "open %s", "graph.db").WithContext("backend", "bolt")
	out := err.DetailedString()

	require.Contains(t, out, "[CRITICAL] [DATABASE] open graph.db")
	assert.Contains(t, out, "Caused by: sentinel")
	assert.Contains(t, out, "backend: bolt")
	assert.Contains(t, out, "Stack trace:")
}

func TestTypeName(t *testing.T) {
	assert.Equal(t, "not_found", TypeName(ErrorTypeNotFound))
	assert.Equal(t, "unsupported", TypeName(ErrorTypeUnsupported))
	assert.Equal(t, "unknown", TypeName(ErrorType(99)))
}
