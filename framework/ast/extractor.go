package ast

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnsupportedLanguage is returned when no extractor is registered for a
// language.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// Extractor recovers symbols, positions and inferred object types from the
// full text of one document. Every Extract call replaces all derived state and
// then notifies symbol subscribers followed by position subscribers.
type Extractor interface {
	Language() string
	Extract(text string) []string

	Symbols() []string
	Records() []SymbolRecord
	SymbolAt(line, column int) SymbolRecord
	ObjectMembers(name string) []string
	ObjectType(name string) string
	ObjectTypes() map[string]string
	ClassMembers() map[string][]string
	FunctionParameters() map[string]string
	Snapshot() Snapshot

	OnSymbolsChanged(fn func(symbols []string)) (cancel func())
	OnPositionsChanged(fn func(records []SymbolRecord)) (cancel func())
}

// Factory builds a fresh extractor. Extractors are stateful, so registries
// hand out new instances per document.
type Factory func() Extractor

// ExtractorRegistry keeps extractor factories keyed by language.
type ExtractorRegistry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewExtractorRegistry constructs an empty registry.
func NewExtractorRegistry() *ExtractorRegistry {
	return &ExtractorRegistry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a registry with the Python and Go variants.
func DefaultRegistry() *ExtractorRegistry {
	registry := NewExtractorRegistry()
	registry.Register("python", func() Extractor { return NewPythonExtractor() })
	registry.Register("go", func() Extractor { return NewGoExtractor() })
	return registry
}

// Register adds a factory for language, replacing any previous one.
func (r *ExtractorRegistry) Register(language string, factory Factory) {
	if language == "" || factory == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[language] = factory
}

// New builds an extractor for language.
func (r *ExtractorRegistry) New(language string) (Extractor, error) {
	r.mu.RLock()
	factory, ok := r.factories[language]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, language)
	}
	return factory(), nil
}

// Supports reports whether language has a registered factory.
func (r *ExtractorRegistry) Supports(language string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[language]
	return ok
}

// SupportedLanguages returns all registered languages in sorted order.
func (r *ExtractorRegistry) SupportedLanguages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	langs := make([]string, 0, len(r.factories))
	for lang := range r.factories {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}
