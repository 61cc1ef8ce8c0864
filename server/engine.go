package server

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/lexcodex/scriptsense/framework/ast"
	"github.com/lexcodex/scriptsense/framework/completion"
	"github.com/lexcodex/scriptsense/framework/config"
	"github.com/lexcodex/scriptsense/framework/locator"
)

// Engine builds analysed documents. The LSP server keeps them open across
// edits; the HTTP API builds one per request.
type Engine struct {
	Registry     *ast.ExtractorRegistry
	Detector     *ast.LanguageDetector
	KeywordsPath string
	Templates    map[string]string
	Logger       *zap.Logger

	mu       sync.Mutex
	keywords map[string]config.KeywordTable
}

// NewEngine fills missing collaborators with defaults.
func NewEngine(cfg config.Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		Registry:     ast.DefaultRegistry(),
		Detector:     ast.NewLanguageDetector(),
		KeywordsPath: cfg.KeywordsPath,
		Templates:    cfg.Templates,
		Logger:       logger,
	}
}

func (e *Engine) registry() *ast.ExtractorRegistry {
	if e.Registry == nil {
		return ast.DefaultRegistry()
	}
	return e.Registry
}

// Language resolves an editor language id, falling back to the file name.
func (e *Engine) Language(languageID, path string) string {
	detector := e.Detector
	if detector == nil {
		detector = ast.NewLanguageDetector()
	}
	return detector.FromLanguageID(languageID, path)
}

func (e *Engine) keywordTable(language string) (config.KeywordTable, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if table, ok := e.keywords[language]; ok {
		return table, nil
	}
	table, err := config.LoadKeywords(e.KeywordsPath, language)
	if err != nil {
		return config.KeywordTable{}, err
	}
	if e.keywords == nil {
		e.keywords = make(map[string]config.KeywordTable)
	}
	e.keywords[language] = table
	return table, nil
}

// Open builds a document for language and extracts text once.
func (e *Engine) Open(uri, language string, version int32, text string) (*Document, error) {
	extractor, err := e.registry().New(language)
	if err != nil {
		return nil, err
	}
	table, err := e.keywordTable(language)
	if err != nil {
		return nil, fmt.Errorf("keywords for %s: %w", language, err)
	}
	logger := e.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	provider := completion.NewProvider(completion.Config{
		Builtins:  table.All(),
		Templates: e.Templates,
		// The stock skeletons are Python syntax.
		DisableDefaultTemplates: language != "python",
	}, completion.WithLogger(logger.Named("completion")), completion.WithExtractor(extractor))
	doc := &Document{
		URI:        uri,
		LanguageID: language,
		extractor:  extractor,
		provider:   provider,
		locator:    locator.New(extractor),
	}
	doc.Update(version, text)
	return doc, nil
}

// Document is one buffer with its extractor and the consumers that follow it.
type Document struct {
	URI        string
	LanguageID string
	Version    int32
	Text       string

	mu        sync.Mutex
	extractor ast.Extractor
	provider  *completion.Provider
	locator   *locator.Locator
}

// Update replaces the text and re-extracts. Subscribers are refreshed before
// Update returns.
func (d *Document) Update(version int32, text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Version = version
	d.Text = text
	d.extractor.Extract(text)
}

// Content returns the current text and version.
func (d *Document) Content() (string, int32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Text, d.Version
}

func (d *Document) Extractor() ast.Extractor       { return d.extractor }
func (d *Document) Provider() *completion.Provider { return d.provider }
func (d *Document) Locator() *locator.Locator      { return d.locator }

// CompletionAt completes the token ending before the 1-based position.
func (d *Document) CompletionAt(line, column int) completion.Result {
	text, _ := d.Content()
	return d.provider.Complete(completion.TokenBefore(lineAt(text, line), column))
}

// Close detaches the provider and the locator.
func (d *Document) Close() {
	d.provider.Close()
	d.locator.Close()
}

func lineAt(text string, line int) string {
	lines := strings.Split(text, "\n")
	if line < 1 || line > len(lines) {
		return ""
	}
	return strings.TrimSuffix(lines[line-1], "\r")
}
