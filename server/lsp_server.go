package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/sourcegraph/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"go.uber.org/zap"

	"github.com/lexcodex/scriptsense/framework/ast"
	"github.com/lexcodex/scriptsense/framework/completion"
	"github.com/lexcodex/scriptsense/framework/config"
)

// ErrDocumentNotOpen is returned for requests against a URI the client never
// opened.
var ErrDocumentNotOpen = errors.New("document not open")

// LSPServer answers completion, hover, definition and symbol requests for
// open buffers over JSON-RPC.
type LSPServer struct {
	Engine *Engine
	// Index answers workspace/symbol when set; otherwise open buffers are
	// searched.
	Index *ast.IndexManager

	mu            sync.RWMutex
	openDocuments map[protocol.DocumentURI]*Document
	logger        *zap.Logger
	shutdown      bool
}

// NewLSPServer builds a server instance.
func NewLSPServer(engine *Engine, index *ast.IndexManager, logger *zap.Logger) *LSPServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if engine == nil {
		engine = NewEngine(config.Config{}, logger)
	}
	return &LSPServer{
		Engine:        engine,
		Index:         index,
		openDocuments: make(map[protocol.DocumentURI]*Document),
		logger:        logger,
	}
}

// Serve runs the JSON-RPC loop on rwc until the peer disconnects or ctx ends.
func (s *LSPServer) Serve(ctx context.Context, rwc io.ReadWriteCloser) error {
	stream := jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{})
	conn := jsonrpc2.NewConn(ctx, stream, jsonrpc2.HandlerWithError(s.handle),
		jsonrpc2.SetLogger(zap.NewStdLog(s.logger.Named("jsonrpc2"))))
	select {
	case <-ctx.Done():
		_ = conn.Close()
		return ctx.Err()
	case <-conn.DisconnectNotify():
		return nil
	}
}

// ServeStdio speaks LSP over the process's stdin and stdout.
func (s *LSPServer) ServeStdio(ctx context.Context) error {
	return s.Serve(ctx, &stdioReadWriteCloser{reader: os.Stdin, writer: os.Stdout})
}

func (s *LSPServer) handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
	s.logger.Debug("lsp request", zap.String("method", req.Method), zap.Bool("notification", req.Notif))
	s.mu.RLock()
	down := s.shutdown
	s.mu.RUnlock()
	if down && req.Method != protocol.MethodExit && !req.Notif {
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidRequest, Message: "server is shutting down"}
	}
	switch req.Method {
	case protocol.MethodInitialize:
		return s.Initialize(), nil
	case protocol.MethodInitialized:
		return nil, nil
	case protocol.MethodShutdown:
		s.mu.Lock()
		s.shutdown = true
		s.mu.Unlock()
		return nil, nil
	case protocol.MethodExit:
		return nil, conn.Close()
	case protocol.MethodTextDocumentDidOpen:
		var params protocol.DidOpenTextDocumentParams
		if err := decodeParams(req, &params); err != nil {
			return nil, err
		}
		return nil, s.TextDocumentDidOpen(params)
	case protocol.MethodTextDocumentDidChange:
		var params protocol.DidChangeTextDocumentParams
		if err := decodeParams(req, &params); err != nil {
			return nil, err
		}
		return nil, s.TextDocumentDidChange(params)
	case protocol.MethodTextDocumentDidClose:
		var params protocol.DidCloseTextDocumentParams
		if err := decodeParams(req, &params); err != nil {
			return nil, err
		}
		return nil, s.TextDocumentDidClose(params)
	case protocol.MethodTextDocumentCompletion:
		var params protocol.CompletionParams
		if err := decodeParams(req, &params); err != nil {
			return nil, err
		}
		return s.Completion(params)
	case protocol.MethodTextDocumentDefinition:
		var params protocol.DefinitionParams
		if err := decodeParams(req, &params); err != nil {
			return nil, err
		}
		return s.Definition(params)
	case protocol.MethodTextDocumentHover:
		var params protocol.HoverParams
		if err := decodeParams(req, &params); err != nil {
			return nil, err
		}
		return s.Hover(params)
	case protocol.MethodTextDocumentDocumentSymbol:
		var params protocol.DocumentSymbolParams
		if err := decodeParams(req, &params); err != nil {
			return nil, err
		}
		return s.DocumentSymbols(params)
	case protocol.MethodWorkspaceSymbol:
		var params protocol.WorkspaceSymbolParams
		if err := decodeParams(req, &params); err != nil {
			return nil, err
		}
		return s.WorkspaceSymbols(params)
	}
	if req.Notif {
		return nil, nil
	}
	return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "method not handled: " + req.Method}
}

func decodeParams(req *jsonrpc2.Request, v interface{}) error {
	if req.Params == nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: "missing params"}
	}
	if err := json.Unmarshal(*req.Params, v); err != nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: err.Error()}
	}
	return nil
}

// Initialize advertises full-text sync and the supported requests.
func (s *LSPServer) Initialize() *protocol.InitializeResult {
	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindFull,
			},
			CompletionProvider: &protocol.CompletionOptions{
				TriggerCharacters: []string{"."},
			},
			HoverProvider:           true,
			DefinitionProvider:      true,
			DocumentSymbolProvider:  true,
			WorkspaceSymbolProvider: true,
		},
		ServerInfo: &protocol.ServerInfo{Name: "scriptsense"},
	}
}

// TextDocumentDidOpen extracts the buffer and starts tracking it.
func (s *LSPServer) TextDocumentDidOpen(params protocol.DidOpenTextDocumentParams) error {
	item := params.TextDocument
	language := s.Engine.Language(string(item.LanguageID), documentPath(item.URI))
	doc, err := s.Engine.Open(string(item.URI), language, item.Version, item.Text)
	if err != nil {
		s.logger.Warn("document not analysed", zap.String("uri", string(item.URI)), zap.Error(err))
		return nil
	}
	s.mu.Lock()
	prev := s.openDocuments[item.URI]
	s.openDocuments[item.URI] = doc
	s.mu.Unlock()
	if prev != nil {
		prev.Close()
	}
	return nil
}

// TextDocumentDidChange applies the last full-text change.
func (s *LSPServer) TextDocumentDidChange(params protocol.DidChangeTextDocumentParams) error {
	doc, err := s.document(params.TextDocument.URI)
	if err != nil {
		return err
	}
	if len(params.ContentChanges) == 0 {
		return nil
	}
	doc.Update(params.TextDocument.Version, params.ContentChanges[len(params.ContentChanges)-1].Text)
	return nil
}

// TextDocumentDidClose drops the buffer.
func (s *LSPServer) TextDocumentDidClose(params protocol.DidCloseTextDocumentParams) error {
	s.mu.Lock()
	doc := s.openDocuments[params.TextDocument.URI]
	delete(s.openDocuments, params.TextDocument.URI)
	s.mu.Unlock()
	if doc != nil {
		doc.Close()
	}
	return nil
}

func (s *LSPServer) document(u protocol.DocumentURI) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.openDocuments[u]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotOpen, u)
	}
	return doc, nil
}

// Completion completes the token before the cursor.
func (s *LSPServer) Completion(params protocol.CompletionParams) (*protocol.CompletionList, error) {
	doc, err := s.document(params.TextDocument.URI)
	if err != nil {
		return nil, err
	}
	pos := params.Position
	res := doc.CompletionAt(int(pos.Line)+1, int(pos.Character)+1)
	provider := doc.Provider()
	list := &protocol.CompletionList{Items: make([]protocol.CompletionItem, 0, len(res.Items))}
	for _, label := range res.Items {
		item := protocol.CompletionItem{Label: label, Kind: completionKind(provider.Classify(label, res))}
		if expansion, ok := provider.Template(label); ok && !res.Dotted {
			item.Kind = protocol.CompletionItemKindSnippet
			item.InsertText = expansion
			item.InsertTextFormat = protocol.InsertTextFormatPlainText
			item.Detail = "template"
		}
		list.Items = append(list.Items, item)
	}
	return list, nil
}

func completionKind(k completion.Kind) protocol.CompletionItemKind {
	switch k {
	case completion.KindKeyword:
		return protocol.CompletionItemKindKeyword
	case completion.KindTemplate:
		return protocol.CompletionItemKindSnippet
	case completion.KindClass:
		return protocol.CompletionItemKindClass
	case completion.KindFunction:
		return protocol.CompletionItemKindFunction
	case completion.KindVariable:
		return protocol.CompletionItemKindVariable
	case completion.KindImport:
		return protocol.CompletionItemKindModule
	case completion.KindMember:
		return protocol.CompletionItemKindField
	default:
		return protocol.CompletionItemKindText
	}
}

// Definition resolves the word under the cursor to its first declaration.
func (s *LSPServer) Definition(params protocol.DefinitionParams) ([]protocol.Location, error) {
	doc, err := s.document(params.TextDocument.URI)
	if err != nil {
		return nil, err
	}
	text, _ := doc.Content()
	pos := params.Position
	rec, ok := doc.Locator().DefinitionAt(text, int(pos.Line)+1, int(pos.Character)+1)
	if !ok {
		return []protocol.Location{}, nil
	}
	return []protocol.Location{{URI: params.TextDocument.URI, Range: recordRange(rec)}}, nil
}

// Hover describes the symbol at the cursor, or the declaration of the word
// under it.
func (s *LSPServer) Hover(params protocol.HoverParams) (*protocol.Hover, error) {
	doc, err := s.document(params.TextDocument.URI)
	if err != nil {
		return nil, err
	}
	text, _ := doc.Content()
	line, col := int(params.Position.Line)+1, int(params.Position.Character)+1
	rec := doc.Locator().SymbolAt(line, col)
	if rec.IsEmpty() || rec.Kind == ast.SymbolKindKeyword {
		def, ok := doc.Locator().DefinitionAt(text, line, col)
		if !ok {
			if rec.IsEmpty() {
				return nil, nil
			}
		} else {
			rec = def
		}
	}
	rng := recordRange(rec)
	return &protocol.Hover{
		Contents: protocol.MarkupContent{Kind: protocol.Markdown, Value: describe(rec)},
		Range:    &rng,
	}, nil
}

func describe(rec ast.SymbolRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s** `%s", rec.Kind, rec.QualifiedName())
	if rec.Kind == ast.SymbolKindFunction {
		fmt.Fprintf(&b, "(%s)", rec.Parameters)
	}
	b.WriteString("`")
	if rec.Scope != "" {
		fmt.Fprintf(&b, "\n\nin `%s`", rec.Scope)
	}
	return b.String()
}

// DocumentSymbols lists declarations, nesting scoped records under their
// class.
func (s *LSPServer) DocumentSymbols(params protocol.DocumentSymbolParams) ([]protocol.DocumentSymbol, error) {
	doc, err := s.document(params.TextDocument.URI)
	if err != nil {
		return nil, err
	}
	return documentSymbols(doc.Locator().Records()), nil
}

func documentSymbols(records []ast.SymbolRecord) []protocol.DocumentSymbol {
	out := make([]protocol.DocumentSymbol, 0, len(records))
	classes := make(map[string]int)
	var scoped []ast.SymbolRecord
	for _, rec := range records {
		switch {
		case rec.Kind == ast.SymbolKindKeyword:
		case rec.Kind == ast.SymbolKindClass:
			if _, seen := classes[rec.Name]; !seen {
				classes[rec.Name] = len(out)
			}
			out = append(out, documentSymbol(rec))
		case rec.Scope != "":
			scoped = append(scoped, rec)
		default:
			out = append(out, documentSymbol(rec))
		}
	}
	for _, rec := range scoped {
		idx, ok := classes[rec.Scope]
		if !ok {
			out = append(out, documentSymbol(rec))
			continue
		}
		out[idx].Children = append(out[idx].Children, documentSymbol(rec))
	}
	return out
}

func documentSymbol(rec ast.SymbolRecord) protocol.DocumentSymbol {
	rng := recordRange(rec)
	return protocol.DocumentSymbol{
		Name:           rec.Name,
		Detail:         rec.Parameters,
		Kind:           symbolKind(rec),
		Range:          rng,
		SelectionRange: rng,
	}
}

func symbolKind(rec ast.SymbolRecord) protocol.SymbolKind {
	switch rec.Kind {
	case ast.SymbolKindClass:
		return protocol.SymbolKindClass
	case ast.SymbolKindFunction:
		if rec.Scope != "" {
			return protocol.SymbolKindMethod
		}
		return protocol.SymbolKindFunction
	case ast.SymbolKindImport:
		return protocol.SymbolKindModule
	case ast.SymbolKindKeyword:
		return protocol.SymbolKindKey
	default:
		return protocol.SymbolKindVariable
	}
}

func recordRange(rec ast.SymbolRecord) protocol.Range {
	line := uint32(max(rec.Line-1, 0))
	start := uint32(max(rec.Column-1, 0))
	return protocol.Range{
		Start: protocol.Position{Line: line, Character: start},
		End:   protocol.Position{Line: line, Character: start + uint32(rec.Length)},
	}
}

// WorkspaceSymbols searches the index when one is attached, otherwise every
// open buffer. Matching is a case-insensitive substring test.
func (s *LSPServer) WorkspaceSymbols(params protocol.WorkspaceSymbolParams) ([]protocol.SymbolInformation, error) {
	if s.Index != nil {
		hits, err := s.Index.QuerySymbol("%" + params.Query + "%")
		if err != nil {
			return nil, err
		}
		out := make([]protocol.SymbolInformation, 0, len(hits))
		for _, hit := range hits {
			out = append(out, protocol.SymbolInformation{
				Name:          hit.Name,
				Kind:          symbolKind(hit.SymbolRecord),
				ContainerName: hit.Scope,
				Location:      protocol.Location{URI: uri.File(hit.Path), Range: recordRange(hit.SymbolRecord)},
			})
		}
		return out, nil
	}

	query := strings.ToLower(params.Query)
	s.mu.RLock()
	uris := make([]protocol.DocumentURI, 0, len(s.openDocuments))
	docs := make(map[protocol.DocumentURI]*Document, len(s.openDocuments))
	for u, doc := range s.openDocuments {
		uris = append(uris, u)
		docs[u] = doc
	}
	s.mu.RUnlock()
	sort.Slice(uris, func(i, j int) bool { return uris[i] < uris[j] })

	var out []protocol.SymbolInformation
	for _, u := range uris {
		for _, rec := range docs[u].Locator().Records() {
			if rec.Kind == ast.SymbolKindKeyword || !strings.Contains(strings.ToLower(rec.Name), query) {
				continue
			}
			out = append(out, protocol.SymbolInformation{
				Name:          rec.Name,
				Kind:          symbolKind(rec),
				ContainerName: rec.Scope,
				Location:      protocol.Location{URI: u, Range: recordRange(rec)},
			})
		}
	}
	return out, nil
}

// OpenDocuments lists tracked URIs in sorted order.
func (s *LSPServer) OpenDocuments() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.openDocuments))
	for u := range s.openDocuments {
		out = append(out, string(u))
	}
	sort.Strings(out)
	return out
}

// Close releases every open document.
func (s *LSPServer) Close() {
	s.mu.Lock()
	docs := s.openDocuments
	s.openDocuments = make(map[protocol.DocumentURI]*Document)
	s.mu.Unlock()
	for _, doc := range docs {
		doc.Close()
	}
}

// documentPath returns the file path of a file URI, or "" for other schemes
// such as untitled buffers.
func documentPath(u protocol.DocumentURI) string {
	if !strings.HasPrefix(string(u), uri.FileScheme+"://") {
		return ""
	}
	return u.Filename()
}

type stdioReadWriteCloser struct {
	reader io.ReadCloser
	writer io.WriteCloser
}

func (s *stdioReadWriteCloser) Read(p []byte) (int, error)  { return s.reader.Read(p) }
func (s *stdioReadWriteCloser) Write(p []byte) (int, error) { return s.writer.Write(p) }
func (s *stdioReadWriteCloser) Close() error {
	_ = s.reader.Close()
	return s.writer.Close()
}
