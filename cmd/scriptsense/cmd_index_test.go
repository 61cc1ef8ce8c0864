package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runRoot(t *testing.T, args ...string) (string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	require.NoError(t, root.Execute())
	return stdout.String(), stderr.String()
}

func TestIndexCommandWritesToStdout(t *testing.T) {
	workspace := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(workspace, "app.py"), []byte("class App:\n    pass\n"), 0o644))

	stdout, stderr := runRoot(t, "index", "--workspace", workspace, "--log-level", "off")
	assert.Contains(t, stdout, "Indexed 1 files")
	assert.Contains(t, stdout, "GROUP")
	assert.Empty(t, stderr)
}

func TestInitCommandWritesToStdout(t *testing.T) {
	workspace := t.TempDir()
	path := filepath.Join(workspace, "config.yaml")

	stdout, stderr := runRoot(t, "init", "--workspace", workspace, "--config", path)
	assert.Contains(t, stdout, "Config saved to "+path)
	assert.Empty(t, stderr)
	assert.FileExists(t, path)
}
