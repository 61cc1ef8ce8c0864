// Package locator answers "which symbol is at this position" and "where is
// this name defined" against the records an extractor publishes.
package locator

import (
	"strings"
	"sync"
	"unicode"

	"github.com/lexcodex/scriptsense/framework/ast"
)

// Locator keeps the latest position list published by one extractor.
type Locator struct {
	mu      sync.RWMutex
	records []ast.SymbolRecord
	cancel  func()
}

// New subscribes to e and adopts its current records.
func New(e ast.Extractor) *Locator {
	l := &Locator{}
	if e == nil {
		return l
	}
	l.cancel = e.OnPositionsChanged(l.update)
	l.update(e.Records())
	return l
}

func (l *Locator) update(records []ast.SymbolRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = records
}

// Records returns a copy of the held snapshot.
func (l *Locator) Records() []ast.SymbolRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]ast.SymbolRecord, len(l.records))
	copy(out, l.records)
	return out
}

// SymbolAt returns the first record covering the 1-based position, or the
// empty record.
func (l *Locator) SymbolAt(line, column int) ast.SymbolRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, rec := range l.records {
		if rec.Contains(line, column) {
			return rec
		}
	}
	return ast.SymbolRecord{}
}

// Definition returns the first declaration record named name. Keyword
// occurrences are not declarations.
func (l *Locator) Definition(name string) (ast.SymbolRecord, bool) {
	if name == "" {
		return ast.SymbolRecord{}, false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, rec := range l.records {
		if rec.Name == name && rec.Kind != ast.SymbolKindKeyword {
			return rec, true
		}
	}
	return ast.SymbolRecord{}, false
}

// DefinitionAt resolves the identifier under the position in text.
func (l *Locator) DefinitionAt(text string, line, column int) (ast.SymbolRecord, bool) {
	return l.Definition(WordAt(text, line, column))
}

// Close stops following the extractor.
func (l *Locator) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}

// WordAt returns the identifier that covers the 1-based position, or "".
// A position just past the end of a word still selects it.
func WordAt(text string, line, column int) string {
	if line < 1 || column < 1 {
		return ""
	}
	lines := strings.Split(text, "\n")
	if line > len(lines) {
		return ""
	}
	runes := []rune(strings.TrimSuffix(lines[line-1], "\r"))
	pos := column - 1
	if pos > len(runes) {
		return ""
	}
	if pos == len(runes) || !isWordRune(runes[pos]) {
		if pos == 0 || !isWordRune(runes[pos-1]) {
			return ""
		}
		pos--
	}
	start, end := pos, pos+1
	for start > 0 && isWordRune(runes[start-1]) {
		start--
	}
	for end < len(runes) && isWordRune(runes[end]) {
		end++
	}
	return string(runes[start:end])
}

func isWordRune(c rune) bool {
	return unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_'
}
