package server

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexcodex/scriptsense/framework/config"
)

func TestEngineKeywordTablePerLanguage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keywords.yaml")
	require.NoError(t, os.WriteFile(path, []byte("keywords: [def]\nbuiltins: [pyonly]\n"), 0o644))
	engine := NewEngine(config.Config{KeywordsPath: path}, nil)

	py, err := engine.Open("a.py", "python", 1, "")
	require.NoError(t, err)
	defer py.Close()
	assert.Contains(t, py.Provider().Candidates(""), "pyonly")

	goDoc, err := engine.Open("a.go", "go", 1, "package main\n")
	require.NoError(t, err)
	defer goDoc.Close()
	candidates := goDoc.Provider().Candidates("")
	assert.NotContains(t, candidates, "pyonly")
	assert.Contains(t, candidates, "defer")
	assert.Contains(t, candidates, "make")
}
