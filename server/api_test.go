package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/lexcodex/scriptsense/framework/ast"
)

func postJSON(t *testing.T, handler http.HandlerFunc, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func newAPI(t *testing.T) *APIServer {
	return &APIServer{Logger: zaptest.NewLogger(t)}
}

func TestAPIServerHandleSymbols(t *testing.T) {
	api := newAPI(t)
	rec := postJSON(t, api.handleSymbols, "/api/symbols", SourceRequest{Path: "greeter.py", Text: greeterSource})
	require.Equal(t, http.StatusOK, rec.Code)

	var snap ast.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Contains(t, snap.Symbols, "Greeter")
	assert.Contains(t, snap.ClassMembers["Greeter"], "greet")
	assert.Equal(t, "Greeter", snap.ObjectTypes["g"])
	assert.Equal(t, "self, name", snap.FunctionParameters["Greeter.__init__"])
	assert.NotEmpty(t, snap.ContentHash)
}

func TestAPIServerHandleComplete(t *testing.T) {
	api := newAPI(t)
	rec := postJSON(t, api.handleComplete, "/api/complete", CompleteRequest{
		SourceRequest: SourceRequest{Language: "python", Text: greeterSource},
		Token:         "g.gr",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp CompleteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Dotted)
	assert.True(t, resp.ForceVisible)
	assert.Equal(t, "g", resp.Object)
	assert.Equal(t, "gr", resp.Prefix)
	require.NotEmpty(t, resp.Items)
	assert.Equal(t, CompleteItem{Label: "greet", Kind: "function"}, resp.Items[0])

	rec = postJSON(t, api.handleComplete, "/api/complete", CompleteRequest{
		SourceRequest: SourceRequest{Language: "python", Text: "wh"},
		Line:          1,
		Column:        3,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	resp = CompleteResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Dotted)
	assert.Equal(t, "wh", resp.Prefix)
	var while CompleteItem
	for _, item := range resp.Items {
		if item.Label == "while" {
			while = item
		}
	}
	assert.Equal(t, "template", while.Kind)
	assert.Equal(t, "while True:\n    ", while.Expansion)
}

func TestAPIServerHandleDefinition(t *testing.T) {
	api := newAPI(t)
	rec := postJSON(t, api.handleDefinition, "/api/definition", DefinitionRequest{
		SourceRequest: SourceRequest{Language: "python", Text: greeterSource},
		Name:          "greet",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp DefinitionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Found)
	assert.Equal(t, 5, resp.Record.Line)
	assert.Equal(t, "Greeter", resp.Record.Scope)

	rec = postJSON(t, api.handleDefinition, "/api/definition", DefinitionRequest{
		SourceRequest: SourceRequest{Language: "python", Text: greeterSource},
		Line:          8,
		Column:        6,
	})
	resp = DefinitionResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Found)
	assert.Equal(t, ast.SymbolKindClass, resp.Record.Kind)
}

func TestAPIServerRejectsBadRequests(t *testing.T) {
	api := newAPI(t)

	rec := postJSON(t, api.handleSymbols, "/api/symbols", SourceRequest{Language: "cobol", Text: "x"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = postJSON(t, api.handleSymbols, "/api/symbols", SourceRequest{Text: "x = 1"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/complete", bytes.NewBufferString("{"))
	rr := httptest.NewRecorder()
	api.handleComplete(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/definition", nil)
	rr = httptest.NewRecorder()
	api.handleDefinition(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/search?q=x", nil)
	rr = httptest.NewRecorder()
	api.handleSearch(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAPIServerRoutes(t *testing.T) {
	api := newAPI(t)
	srv := httptest.NewServer(api.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/languages")
	require.NoError(t, err)
	defer resp.Body.Close()
	var body map[string][]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, []string{"go", "python"}, body["languages"])
}

func TestAPIServerSearch(t *testing.T) {
	dir := t.TempDir()
	store, err := ast.NewSQLiteStore(filepath.Join(dir, "index.db"))
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "greeter.py"), []byte(greeterSource), 0o644))
	manager := ast.NewIndexManager(store, ast.IndexConfig{WorkspacePath: dir})
	require.NoError(t, manager.IndexWorkspace(context.Background()))

	api := &APIServer{Index: manager, Logger: zaptest.NewLogger(t)}

	req := httptest.NewRequest(http.MethodGet, "/api/search?q=Greet%25", nil)
	rec := httptest.NewRecorder()
	api.handleSearch(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var hits []ast.StoredSymbol
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hits))
	var names []string
	for _, hit := range hits {
		names = append(names, hit.Name)
	}
	assert.Contains(t, names, "Greeter")
	assert.Contains(t, names, "greet")

	req = httptest.NewRequest(http.MethodGet, "/api/search?q=greter&fuzzy=true", nil)
	rec = httptest.NewRecorder()
	api.handleSearch(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var matches []ast.FuzzyMatch
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &matches))
	require.NotEmpty(t, matches)
	assert.Equal(t, "Greeter", matches[0].Name)

	req = httptest.NewRequest(http.MethodGet, "/api/search", nil)
	rec = httptest.NewRecorder()
	api.handleSearch(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
