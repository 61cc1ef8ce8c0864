package completion

import (
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/lexcodex/scriptsense/framework/ast"
)

// Config seeds a Provider.
type Config struct {
	// Builtins is the language keyword and standard-library table, loaded by
	// the host and passed in as a plain list.
	Builtins []string
	// Templates are registered on top of (or, with DisableDefaultTemplates,
	// instead of) DefaultTemplates.
	Templates               map[string]string
	DisableDefaultTemplates bool
}

// Option customizes a Provider.
type Option func(*Provider)

// WithLogger routes rebuild diagnostics to logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithExtractor attaches e at construction time.
func WithExtractor(e ast.Extractor) Option {
	return func(p *Provider) {
		p.pending = e
	}
}

// Result is one completion answer.
type Result struct {
	Items []string `json:"items"`
	// Dotted is set when the token was object.member; Object and Prefix hold
	// the two halves.
	Dotted bool   `json:"dotted"`
	Object string `json:"object,omitempty"`
	Prefix string `json:"prefix"`
	// ForceVisible asks the host to show the popup even for zero or one
	// candidate.
	ForceVisible bool `json:"force_visible"`
}

// Provider merges builtin symbols, extractor symbols and template keywords
// into one ranked candidate model and resolves dotted member access through
// an extractor.
type Provider struct {
	mu          sync.RWMutex
	logger      *zap.Logger
	builtins    []string
	builtinSet  map[string]struct{}
	templates   map[string]string
	userSymbols []string
	kinds       map[string]ast.SymbolKind

	extractor ast.Extractor
	pending   ast.Extractor
	cancel    func()

	base   []string
	active []string
}

// NewProvider builds a provider and its initial candidate model.
func NewProvider(cfg Config, opts ...Option) *Provider {
	p := &Provider{
		logger:     zap.NewNop(),
		builtins:   append([]string(nil), cfg.Builtins...),
		builtinSet: make(map[string]struct{}, len(cfg.Builtins)),
		templates:  make(map[string]string),
		kinds:      make(map[string]ast.SymbolKind),
	}
	for _, name := range cfg.Builtins {
		p.builtinSet[name] = struct{}{}
	}
	if !cfg.DisableDefaultTemplates {
		for k, v := range DefaultTemplates() {
			p.templates[k] = v
		}
	}
	for k, v := range cfg.Templates {
		if k != "" {
			p.templates[k] = v
		}
	}
	for _, opt := range opts {
		opt(p)
	}
	p.mu.Lock()
	p.rebuildLocked()
	p.mu.Unlock()
	if p.pending != nil {
		p.SetExtractor(p.pending)
		p.pending = nil
	}
	return p
}

// SetExtractor switches the symbol source. The previous extractor is
// unsubscribed and the new one's current symbols are adopted at once.
func (p *Provider) SetExtractor(e ast.Extractor) {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.extractor = e
	p.mu.Unlock()

	if e == nil {
		p.UpdateUserSymbols(nil)
		return
	}
	cancel := e.OnSymbolsChanged(p.UpdateUserSymbols)
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()
	p.UpdateUserSymbols(e.Symbols())
}

// Extractor returns the current symbol source, if any.
func (p *Provider) Extractor() ast.Extractor {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.extractor
}

// UpdateUserSymbols replaces the document symbols and rebuilds the model.
func (p *Provider) UpdateUserSymbols(symbols []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.userSymbols = append([]string(nil), symbols...)
	p.kinds = make(map[string]ast.SymbolKind)
	if p.extractor != nil {
		// A name used both as keyword and as a declared symbol is reported
		// by its first declaration.
		for _, rec := range p.extractor.Records() {
			existing, ok := p.kinds[rec.Name]
			if !ok || (existing == ast.SymbolKindKeyword && rec.Kind != ast.SymbolKindKeyword) {
				p.kinds[rec.Name] = rec.Kind
			}
		}
	}
	p.rebuildLocked()
}

func (p *Provider) rebuildLocked() {
	all := make([]string, 0, len(p.builtins)+len(p.userSymbols)+len(p.templates))
	all = append(all, p.builtins...)
	all = append(all, p.userSymbols...)
	for keyword := range p.templates {
		all = append(all, keyword)
	}
	p.base = ast.UniqueSorted(all)
	p.active = p.base
	p.logger.Debug("completion model rebuilt",
		zap.Int("builtins", len(p.builtins)),
		zap.Int("symbols", len(p.userSymbols)),
		zap.Int("templates", len(p.templates)),
		zap.Int("candidates", len(p.base)))
}

// Candidates returns the base candidate set without token itself.
func (p *Provider) Candidates(token string) []string {
	token = strings.TrimSpace(token)
	p.mu.RLock()
	defer p.mu.RUnlock()
	return without(p.base, token)
}

// Complete answers a completion request for the in-progress token and makes
// the answer the active model.
func (p *Provider) Complete(token string) Result {
	token = strings.TrimSpace(token)
	object, member, dotted := SplitDotted(token)
	if !dotted {
		items := p.Candidates(token)
		p.mu.Lock()
		p.active = items
		p.mu.Unlock()
		return Result{Items: cloneStrings(items), Prefix: token}
	}

	var members []string
	if e := p.Extractor(); e != nil {
		members = e.ObjectMembers(object)
	}
	ranked := RankMembers(without(members, member), member)
	p.mu.Lock()
	p.active = ranked
	p.mu.Unlock()
	p.logger.Debug("dotted completion",
		zap.String("object", object),
		zap.String("prefix", member),
		zap.Int("members", len(ranked)))
	return Result{
		Items:        cloneStrings(ranked),
		Dotted:       true,
		Object:       object,
		Prefix:       member,
		ForceVisible: true,
	}
}

// Active returns the model produced by the last Complete call, or the base
// set after a rebuild.
func (p *Provider) Active() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return cloneStrings(p.active)
}

// Close detaches the provider from its extractor.
func (p *Provider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.extractor = nil
}

func without(items []string, token string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if token != "" && item == token {
			continue
		}
		out = append(out, item)
	}
	return out
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
