package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "grin.log")
	l, err := New(Config{Level: "debug", OutputFile: path, JSONFormat: true})
	require.NoError(t, err)

	l.WithField("graph", "g1").Debug("opened")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"graph":"g1"`)
	assert.Contains(t, string(data), `"msg":"opened"`)
	assert.Equal(t, path, l.FilePath())
}

func TestInvalidLevel(t *testing.T) {
	_, err := New(Config{Level: "chatty"})
	assert.Error(t, err)
}

func TestRotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "grin.log")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("x", 64)), 0644))
	require.NoError(t, os.WriteFile(path+".1", []byte("older"), 0644))

	l, err := New(Config{OutputFile: path, MaxSize: 32, MaxBackups: 2})
	require.NoError(t, err)
	defer l.Close()

	rotated, err := os.ReadFile(path + ".1")
	require.NoError(t, err)
	assert.Len(t, rotated, 64)

	older, err := os.ReadFile(path + ".2")
	require.NoError(t, err)
	assert.Equal(t, "older", string(older))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestDefaultConfig(t *testing.T) {
	l, err := New(DefaultConfig(true))
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())
	assert.True(t, l.ReportCaller)

	l, err = New(DefaultConfig(false))
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
}
