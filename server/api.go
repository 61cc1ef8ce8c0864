package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lexcodex/scriptsense/framework/ast"
	"github.com/lexcodex/scriptsense/framework/completion"
	"github.com/lexcodex/scriptsense/framework/config"
)

// APIServer exposes the engine over HTTP for clients without an LSP host.
type APIServer struct {
	Engine *Engine
	// Index backs /api/search; the route answers 404 without it.
	Index  *ast.IndexManager
	Logger *zap.Logger

	once sync.Once
}

// SourceRequest carries one buffer. Language wins over Path when both are
// set.
type SourceRequest struct {
	Language string `json:"language"`
	Path     string `json:"path"`
	Text     string `json:"text"`
}

// CompleteRequest asks for candidates at a 1-based position, or for an
// explicit token when Token is set.
type CompleteRequest struct {
	SourceRequest
	Line   int    `json:"line"`
	Column int    `json:"column"`
	Token  string `json:"token"`
}

// CompleteItem is one candidate with its classification.
type CompleteItem struct {
	Label     string `json:"label"`
	Kind      string `json:"kind"`
	Expansion string `json:"expansion,omitempty"`
}

// CompleteResponse mirrors completion.Result with classified items.
type CompleteResponse struct {
	Items        []CompleteItem `json:"items"`
	Dotted       bool           `json:"dotted"`
	Object       string         `json:"object,omitempty"`
	Prefix       string         `json:"prefix"`
	ForceVisible bool           `json:"force_visible"`
}

// DefinitionRequest resolves Name, or the word at Line/Column when Name is
// empty.
type DefinitionRequest struct {
	SourceRequest
	Line   int    `json:"line"`
	Column int    `json:"column"`
	Name   string `json:"name"`
}

// DefinitionResponse reports the first declaration found.
type DefinitionResponse struct {
	Found  bool             `json:"found"`
	Record ast.SymbolRecord `json:"record"`
}

// Serve starts listening on the provided address.
func (s *APIServer) Serve(addr string) error {
	return s.ServeContext(context.Background(), addr)
}

// ServeContext allows the caller to control shutdown via context cancellation.
func (s *APIServer) ServeContext(ctx context.Context, addr string) error {
	server := s.newHTTPServer(addr)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	s.logger().Info("API listening", zap.String("addr", addr))
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Handler returns the API routes.
func (s *APIServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/languages", s.handleLanguages)
	mux.HandleFunc("/api/symbols", s.handleSymbols)
	mux.HandleFunc("/api/complete", s.handleComplete)
	mux.HandleFunc("/api/definition", s.handleDefinition)
	mux.HandleFunc("/api/search", s.handleSearch)
	return mux
}

func (s *APIServer) newHTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (s *APIServer) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s *APIServer) engine() *Engine {
	s.once.Do(func() {
		if s.Engine == nil {
			s.Engine = NewEngine(config.Config{}, s.Logger)
		}
	})
	return s.Engine
}

func (s *APIServer) handleLanguages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string][]string{"languages": s.engine().registry().SupportedLanguages()})
}

func (s *APIServer) handleSymbols(w http.ResponseWriter, r *http.Request) {
	var req SourceRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	doc, ok := s.open(w, req)
	if !ok {
		return
	}
	defer doc.Close()
	writeJSON(w, doc.Extractor().Snapshot())
}

func (s *APIServer) handleComplete(w http.ResponseWriter, r *http.Request) {
	var req CompleteRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	doc, ok := s.open(w, req.SourceRequest)
	if !ok {
		return
	}
	defer doc.Close()

	var res completion.Result
	if req.Token != "" {
		res = doc.Provider().Complete(req.Token)
	} else {
		res = doc.CompletionAt(req.Line, req.Column)
	}
	resp := CompleteResponse{
		Items:        make([]CompleteItem, 0, len(res.Items)),
		Dotted:       res.Dotted,
		Object:       res.Object,
		Prefix:       res.Prefix,
		ForceVisible: res.ForceVisible,
	}
	provider := doc.Provider()
	for _, label := range res.Items {
		kind := provider.Classify(label, res)
		item := CompleteItem{Label: label, Kind: kind.String()}
		if kind == completion.KindTemplate {
			item.Expansion, _ = provider.Template(label)
		}
		resp.Items = append(resp.Items, item)
	}
	writeJSON(w, resp)
}

func (s *APIServer) handleDefinition(w http.ResponseWriter, r *http.Request) {
	var req DefinitionRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	doc, ok := s.open(w, req.SourceRequest)
	if !ok {
		return
	}
	defer doc.Close()

	var resp DefinitionResponse
	if req.Name != "" {
		resp.Record, resp.Found = doc.Locator().Definition(req.Name)
	} else {
		resp.Record, resp.Found = doc.Locator().DefinitionAt(req.Text, req.Line, req.Column)
	}
	writeJSON(w, resp)
}

func (s *APIServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.Index == nil {
		http.Error(w, "no index configured", http.StatusNotFound)
		return
	}
	query := r.URL.Query().Get("q")
	if query == "" {
		http.Error(w, "missing q", http.StatusBadRequest)
		return
	}
	if fuzzy, _ := strconv.ParseBool(r.URL.Query().Get("fuzzy")); fuzzy {
		matches, err := s.Index.FuzzySearch(query, 20)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, matches)
		return
	}
	hits, err := s.Index.QuerySymbol(query)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, hits)
}

func decodeRequest(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func (s *APIServer) open(w http.ResponseWriter, req SourceRequest) (*Document, bool) {
	e := s.engine()
	language := e.Language(req.Language, req.Path)
	doc, err := e.Open(req.Path, language, 0, req.Text)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ast.ErrUnsupportedLanguage) {
			status = http.StatusUnprocessableEntity
		}
		s.logger().Debug("request rejected", zap.String("language", language), zap.Error(err))
		http.Error(w, err.Error(), status)
		return nil, false
	}
	return doc, true
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
