package ast

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
)

// HashContent returns a short hash for change detection.
func HashContent(content string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(content))
}

// GenerateFileID produces a stable identifier for a file path.
func GenerateFileID(path string) string {
	return fmt.Sprintf("file:%016x", xxhash.Sum64String(path))
}

// SortCaseInsensitive sorts names ignoring case; names equal under case
// folding keep a deterministic exact-string order.
func SortCaseInsensitive(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		a, b := strings.ToLower(names[i]), strings.ToLower(names[j])
		if a != b {
			return a < b
		}
		return names[i] < names[j]
	})
}

// UniqueSorted removes exact duplicates and sorts case-insensitively.
func UniqueSorted(names []string) []string {
	out := Dedupe(names)
	SortCaseInsensitive(out)
	return out
}

// Dedupe removes exact duplicates keeping first occurrences.
func Dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// lineIndex converts byte offsets into 1-based line/column pairs, counting
// columns in characters.
type lineIndex struct {
	text   string
	starts []int
}

func newLineIndex(text string) *lineIndex {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &lineIndex{text: text, starts: starts}
}

func (li *lineIndex) position(offset int) (line, column int) {
	if offset > len(li.text) {
		offset = len(li.text)
	}
	idx := sort.Search(len(li.starts), func(i int) bool { return li.starts[i] > offset }) - 1
	if idx < 0 {
		idx = 0
	}
	return idx + 1, utf8.RuneCountInString(li.text[li.starts[idx]:offset]) + 1
}

// record builds a SymbolRecord for the byte span [start, end).
func (li *lineIndex) record(name string, kind SymbolKind, start, end int) SymbolRecord {
	line, column := li.position(start)
	return SymbolRecord{
		Name:   name,
		Kind:   kind,
		Line:   line,
		Column: column,
		Length: utf8.RuneCountInString(li.text[start:end]),
	}
}
