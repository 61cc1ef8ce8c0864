package ast

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SymbolKind enumerates the categories a symbol record can belong to. The
// zero value is SymbolKindOther so that SymbolRecord{} is the "not found"
// sentinel.
type SymbolKind int

const (
	SymbolKindOther SymbolKind = iota
	SymbolKindKeyword
	SymbolKindClass
	SymbolKindFunction
	SymbolKindVariable
	SymbolKindImport
)

var symbolKindNames = map[SymbolKind]string{
	SymbolKindOther:    "other",
	SymbolKindKeyword:  "keyword",
	SymbolKindClass:    "class",
	SymbolKindFunction: "function",
	SymbolKindVariable: "variable",
	SymbolKindImport:   "import",
}

func (k SymbolKind) String() string {
	if name, ok := symbolKindNames[k]; ok {
		return name
	}
	return "other"
}

// ParseSymbolKind maps a kind name back to its value. Unknown names map to
// SymbolKindOther.
func ParseSymbolKind(name string) SymbolKind {
	name = strings.ToLower(strings.TrimSpace(name))
	for kind, candidate := range symbolKindNames {
		if candidate == name {
			return kind
		}
	}
	return SymbolKindOther
}

func (k SymbolKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *SymbolKind) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("symbol kind: %w", err)
	}
	*k = ParseSymbolKind(name)
	return nil
}

// SymbolRecord is a named, positioned entity recovered from source text.
// Line and Column are 1-based; Length counts characters.
type SymbolRecord struct {
	Name       string     `json:"name"`
	Kind       SymbolKind `json:"kind"`
	Line       int        `json:"line"`
	Column     int        `json:"column"`
	Length     int        `json:"length"`
	Scope      string     `json:"scope,omitempty"`
	Parameters string     `json:"parameters,omitempty"`
}

// IsEmpty reports whether r is the "not found" sentinel.
func (r SymbolRecord) IsEmpty() bool {
	return r == SymbolRecord{}
}

// Contains reports whether the 1-based position falls on the record.
func (r SymbolRecord) Contains(line, column int) bool {
	return r.Line == line && column >= r.Column && column < r.Column+r.Length
}

// QualifiedName joins the scope and the name the same way the parameter map
// keys methods.
func (r SymbolRecord) QualifiedName() string {
	return qualify(r.Scope, r.Name)
}

func qualify(scope, name string) string {
	if scope == "" {
		return name
	}
	return scope + "." + name
}

// Snapshot bundles every structure derived from one extraction call. Values
// handed out by extractors are always deep copies.
type Snapshot struct {
	Symbols            []string            `json:"symbols"`
	Records            []SymbolRecord      `json:"records"`
	ObjectTypes        map[string]string   `json:"object_types"`
	ClassMembers       map[string][]string `json:"class_members"`
	FunctionParameters map[string]string   `json:"function_parameters"`
	ContentHash        string              `json:"content_hash"`
}

func newSnapshot() *Snapshot {
	return &Snapshot{
		Symbols:            []string{},
		Records:            []SymbolRecord{},
		ObjectTypes:        map[string]string{},
		ClassMembers:       map[string][]string{},
		FunctionParameters: map[string]string{},
	}
}

// Clone returns a deep copy.
func (s *Snapshot) Clone() Snapshot {
	if s == nil {
		return *newSnapshot()
	}
	return Snapshot{
		Symbols:            cloneStrings(s.Symbols),
		Records:            cloneRecords(s.Records),
		ObjectTypes:        cloneStringMap(s.ObjectTypes),
		ClassMembers:       cloneMembers(s.ClassMembers),
		FunctionParameters: cloneStringMap(s.FunctionParameters),
		ContentHash:        s.ContentHash,
	}
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneRecords(in []SymbolRecord) []SymbolRecord {
	out := make([]SymbolRecord, len(in))
	copy(out, in)
	return out
}

func cloneStringMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneMembers(in map[string][]string) map[string][]string {
	out := make(map[string][]string, len(in))
	for k, v := range in {
		out[k] = cloneStrings(v)
	}
	return out
}
