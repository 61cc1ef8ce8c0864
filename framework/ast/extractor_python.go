package ast

import (
	"regexp"
	"strings"
)

// PythonKeywords is the reserved-word vocabulary of the scripting variant.
var PythonKeywords = []string{
	"and", "as", "assert", "async", "await", "break", "class", "continue",
	"def", "del", "elif", "else", "except", "False", "finally", "for",
	"from", "global", "if", "import", "in", "is", "lambda", "None",
	"nonlocal", "not", "or", "pass", "raise", "return", "True", "try",
	"while", "with", "yield",
}

const pythonConstructor = "__init__"

// PythonExtractor recovers symbols from Python-shaped source with a fixed
// set of patterns. It never fails; malformed input just yields fewer matches.
type PythonExtractor struct {
	baseExtractor

	keywords        []string
	keywordSet      map[string]struct{}
	keywordPatterns []*regexp.Regexp
}

// NewPythonExtractor returns an extractor with empty state.
func NewPythonExtractor() *PythonExtractor {
	pe := &PythonExtractor{
		keywords:   append([]string(nil), PythonKeywords...),
		keywordSet: make(map[string]struct{}, len(PythonKeywords)),
	}
	for _, kw := range pe.keywords {
		pe.keywordSet[kw] = struct{}{}
		pe.keywordPatterns = append(pe.keywordPatterns, keywordPattern(kw))
	}
	pe.builtinMembers = pythonBuiltinMembers
	return pe
}

func (pe *PythonExtractor) Language() string { return "python" }

// Extract rescans text, replaces all derived state and notifies subscribers.
func (pe *PythonExtractor) Extract(text string) []string {
	snap := pe.build(text)
	pe.commit(snap)
	return cloneStrings(snap.Symbols)
}

func (pe *PythonExtractor) build(text string) *Snapshot {
	snap := newSnapshot()
	snap.ContentHash = HashContent(text)
	if strings.TrimSpace(text) == "" {
		return snap
	}

	lines := newLineIndex(text)
	classes := findAll(classHeaderPattern, text)
	functions := findAll(functionPattern, text)
	attributes := findAll(attributePattern, text)
	variables := assignments(text)
	imports := findAll(importPattern, text)
	fromImports := findAll(fromImportPattern, text)

	ranges := make([]classRange, 0, len(classes))
	for _, m := range classes {
		ranges = append(ranges, classRange{
			Name:  m.group(text, 0),
			Start: m.start,
			End:   findBlockEnd(text, m.start),
		})
	}
	scopes := newScopeResolver(ranges)

	symbols := append([]string(nil), pe.keywords...)

	for _, m := range classes {
		if name := m.group(text, 0); !isPrivate(name) {
			symbols = append(symbols, name)
		}
	}

	for _, m := range functions {
		name := m.group(text, 0)
		if isPrivate(name) && name != pythonConstructor {
			continue
		}
		symbols = append(symbols, name)
		scope := scopes.ClassAt(m.groupStart(0))
		snap.FunctionParameters[qualify(scope, name)] = strings.TrimSpace(m.group(text, 1))
	}

	members := memberSet{}
	for _, r := range ranges {
		for _, m := range functions {
			if name := m.group(text, 0); inside(r, m.start) && isMember(name) {
				members.add(r.Name, name)
			}
		}
		for _, m := range attributes {
			if name := m.group(text, 0); inside(r, m.start) && isMember(name) {
				members.add(r.Name, name)
			}
		}
		members.add(r.Name, pythonConstructor)
	}
	snap.ClassMembers = members

	for _, m := range variables {
		name := m.group(text, 0)
		if pe.isKeyword(name) || isPrivate(name) {
			continue
		}
		symbols = append(symbols, name)
	}
	for _, m := range attributes {
		symbols = append(symbols, m.group(text, 0))
	}

	for _, m := range imports {
		symbols = append(symbols, m.group(text, 0))
	}
	for _, m := range fromImports {
		symbols = append(symbols, importedName(text, m))
	}

	for _, m := range findAll(constructorPattern, text) {
		snap.ObjectTypes[m.group(text, 0)] = m.group(text, 1)
	}

	snap.Symbols = UniqueSorted(symbols)
	snap.Records = pe.records(text, lines, scopes, classes, functions, variables, attributes, imports, fromImports)
	return snap
}

// records lays out the position list in its fixed category order. Later
// occurrences of an already recorded key are skipped.
func (pe *PythonExtractor) records(text string, lines *lineIndex, scopes *scopeResolver,
	classes, functions, variables, attributes, imports, fromImports []match) []SymbolRecord {
	var out []SymbolRecord
	seen := make(map[string]struct{})
	first := func(key string) bool {
		if _, ok := seen[key]; ok {
			return false
		}
		seen[key] = struct{}{}
		return true
	}

	for i, re := range pe.keywordPatterns {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			out = append(out, lines.record(pe.keywords[i], SymbolKindKeyword, loc[0], loc[1]))
		}
	}

	for _, m := range classes {
		name := m.group(text, 0)
		if !first("c:" + name) {
			continue
		}
		out = append(out, lines.record(name, SymbolKindClass, m.groupStart(0), m.groupEnd(0)))
	}

	for _, m := range functions {
		name := m.group(text, 0)
		scope := scopes.ClassAt(m.groupStart(0))
		if !first("f:" + qualify(scope, name)) {
			continue
		}
		rec := lines.record(name, SymbolKindFunction, m.groupStart(0), m.groupEnd(0))
		rec.Scope = scope
		rec.Parameters = strings.TrimSpace(m.group(text, 1))
		out = append(out, rec)
	}

	for _, m := range variables {
		name := m.group(text, 0)
		if pe.isKeyword(name) {
			continue
		}
		scope := scopes.ClassAt(m.groupStart(0))
		if !first("v:" + qualify(scope, name)) {
			continue
		}
		rec := lines.record(name, SymbolKindVariable, m.groupStart(0), m.groupEnd(0))
		rec.Scope = scope
		out = append(out, rec)
	}

	// Attributes share the variable key space but always carry a separator,
	// so a module-level "x" and a bare "self.x" stay distinct.
	for _, m := range attributes {
		name := m.group(text, 0)
		scope := scopes.ClassAt(m.groupStart(0))
		if !first("v:" + scope + "." + name) {
			continue
		}
		rec := lines.record(name, SymbolKindVariable, m.groupStart(0), m.groupEnd(0))
		rec.Scope = scope
		out = append(out, rec)
	}

	for _, m := range imports {
		name := m.group(text, 0)
		if !first("i:" + name) {
			continue
		}
		out = append(out, lines.record(name, SymbolKindImport, m.groupStart(0), m.groupEnd(0)))
	}
	for _, m := range fromImports {
		name := importedName(text, m)
		if !first("i:" + name) {
			continue
		}
		group := 0
		if m.groupStart(1) >= 0 {
			group = 1
		}
		out = append(out, lines.record(name, SymbolKindImport, m.groupStart(group), m.groupEnd(group)))
	}
	return out
}

func (pe *PythonExtractor) isKeyword(name string) bool {
	_, ok := pe.keywordSet[name]
	return ok
}

func importedName(text string, m match) string {
	if alias := m.group(text, 1); alias != "" {
		return alias
	}
	return m.group(text, 0)
}

func inside(r classRange, offset int) bool {
	return r.Start < offset && offset < r.End
}

func isPrivate(name string) bool {
	return strings.HasPrefix(name, "_")
}

func isMember(name string) bool {
	return !isPrivate(name) || name == pythonConstructor
}

func pythonBuiltinMembers(name string) []string {
	switch {
	case name == "str" || strings.HasPrefix(name, `"`) || strings.HasPrefix(name, "'"):
		return []string{"upper", "lower", "strip", "split", "join", "replace", "find"}
	case name == "list" || strings.HasSuffix(name, "]"):
		return []string{"append", "extend", "insert", "remove", "pop", "clear", "sort", "count"}
	case name == "dict" || strings.HasSuffix(name, "}"):
		return []string{"keys", "values", "items", "get", "update", "pop", "clear"}
	}
	return nil
}
