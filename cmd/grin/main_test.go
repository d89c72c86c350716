package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	gerrors "github.com/rohankatakam/grin/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const people = `
original_id: int64
vertex_types:
  - name: person
    properties:
      - {name: name, type: string}
      - {name: age, type: int32}
edge_types:
  - name: knows
    properties:
      - {name: since, type: int64}
vertices:
  - {type: person, id: 1, values: {name: alice, age: 30}}
  - {type: person, id: 2, values: {name: bob}}
  - {type: person, id: 3, values: {name: carol, age: 41}}
edges:
  - {type: knows, src: 1, dst: 2, values: {since: 2019}}
  - {type: knows, src: 2, dst: 3}
`

type workspace struct {
	dir    string
	config string
}

func newWorkspace(t *testing.T) workspace {
	t.Helper()
	color.NoColor = true
	dir := t.TempDir()
	body := fmt.Sprintf(`
backend: bolt
bolt:
  path: %s
sqlite:
  path: %s
metrics:
  enabled: false
logging:
  level: error
`, filepath.Join(dir, "graph.db"), filepath.Join(dir, "graph.sqlite"))
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "people.yaml"), []byte(people), 0644))
	return workspace{dir: dir, config: path}
}

func (w workspace) path(name string) string {
	return filepath.Join(w.dir, name)
}

// run executes one CLI invocation and returns what it printed
func (w workspace) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfgFile, backend, verbose = "", "", false
	vertexOID, propName = "", ""
	forceInit, dumpLevel, checkConcurrency = false, 0, 4

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", w.config}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestLoadAndRead(t *testing.T) {
	w := newWorkspace(t)

	out, err := w.run(t, "load", w.path("people.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "Vertices:     3")
	assert.Contains(t, out, "Edges:        2")

	out, err = w.run(t, "vertex", "--oid", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Type:   person")
	assert.Regexp(t, `name\s+string\s+alice`, out)
	assert.Regexp(t, `age\s+int32\s+30`, out)

	out, err = w.run(t, "prop", "--oid", "3", "--name", "age")
	require.NoError(t, err)
	assert.Equal(t, "age (int32): 41\n", out)

	out, err = w.run(t, "prop", "--oid", "2", "--name", "age")
	require.NoError(t, err)
	assert.Equal(t, "age (int32): null\n", out)

	out, err = w.run(t, "status")
	require.NoError(t, err)
	assert.Regexp(t, `vertex person\s+3`, out)
	assert.Regexp(t, `edge\s+knows\s+2`, out)
	assert.Contains(t, out, "Original IDs: int64")
}

func TestLookupErrors(t *testing.T) {
	w := newWorkspace(t)
	_, err := w.run(t, "load", w.path("people.yaml"))
	require.NoError(t, err)

	_, err = w.run(t, "vertex", "--oid", "42")
	assert.Equal(t, gerrors.ErrorTypeNotFound, gerrors.GetType(err))

	_, err = w.run(t, "vertex", "--oid", "alice")
	assert.Equal(t, gerrors.ErrorTypeValidation, gerrors.GetType(err))

	_, err = w.run(t, "prop", "--oid", "1", "--name", "height")
	assert.Equal(t, gerrors.ErrorTypeNotFound, gerrors.GetType(err))
}

func TestCheck(t *testing.T) {
	w := newWorkspace(t)
	_, err := w.run(t, "load", w.path("people.yaml"))
	require.NoError(t, err)

	out, err := w.run(t, "check")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ original_id_int64")
	assert.Contains(t, out, "- original_id_string")
	assert.Contains(t, out, "All checks passed")
}

func TestDumpRestoreAcrossBackends(t *testing.T) {
	w := newWorkspace(t)
	_, err := w.run(t, "load", w.path("people.yaml"))
	require.NoError(t, err)

	snap := w.path("people.snap")
	out, err := w.run(t, "dump", snap)
	require.NoError(t, err)
	assert.Contains(t, out, "Vertices: 3")

	out, err = w.run(t, "--backend", "sqlite", "restore", snap)
	require.NoError(t, err)
	assert.Contains(t, out, "into sqlite")

	out, err = w.run(t, "--backend", "sqlite", "prop", "--oid", "1", "--name", "name")
	require.NoError(t, err)
	assert.Equal(t, "name (string): alice\n", out)

	_, err = w.run(t, "restore", w.path("missing.snap"))
	assert.Equal(t, gerrors.ErrorTypeFileSystem, gerrors.GetType(err))
}

func TestConfigInit(t *testing.T) {
	w := newWorkspace(t)
	target := w.path("init.yaml")

	out, err := w.run(t, "config", "init", target)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+target)

	_, err = w.run(t, "config", "init", target)
	assert.Equal(t, gerrors.ErrorTypeConfig, gerrors.GetType(err))

	_, err = w.run(t, "config", "init", "--force", target)
	assert.NoError(t, err)

	out, err = w.run(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "backend: bolt")
}
