package ast

import "sort"

// classRange is the half-open byte interval [Start, End) a class body is
// judged to occupy. Start is the offset of the header match.
type classRange struct {
	Name  string
	Start int
	End   int
}

// scopeResolver answers "which class encloses this offset" over a sorted
// class-range index.
type scopeResolver struct {
	ranges []classRange
}

func newScopeResolver(ranges []classRange) *scopeResolver {
	sorted := make([]classRange, len(ranges))
	copy(sorted, ranges)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	return &scopeResolver{ranges: sorted}
}

// ClassAt returns the innermost class whose body strictly contains offset,
// or "" at module level.
func (sr *scopeResolver) ClassAt(offset int) string {
	idx := sort.Search(len(sr.ranges), func(i int) bool { return sr.ranges[i].Start >= offset }) - 1
	for ; idx >= 0; idx-- {
		r := sr.ranges[idx]
		if r.Start < offset && offset < r.End {
			return r.Name
		}
	}
	return ""
}

// findBlockEnd returns the offset of the first line after the header at
// headerStart whose indentation is at or below the header's own. Blank and
// comment lines never end a block; a line holding only "\r" is blank. Only
// spaces count as indentation.
func findBlockEnd(text string, headerStart int) int {
	lineStart := headerStart
	for lineStart > 0 && text[lineStart-1] != '\n' {
		lineStart--
	}
	indent := leadingSpaces(text, lineStart)

	pos := indexByteFrom(text, '\n', headerStart)
	if pos < 0 {
		return len(text)
	}
	pos++
	for pos < len(text) {
		current := leadingSpaces(text, pos)
		cursor := pos + current
		if cursor >= len(text) || text[cursor] == '\n' || text[cursor] == '\r' || text[cursor] == '#' {
			next := indexByteFrom(text, '\n', pos)
			if next < 0 {
				return len(text)
			}
			pos = next + 1
			continue
		}
		if current <= indent {
			return pos
		}
		next := indexByteFrom(text, '\n', pos)
		if next < 0 {
			return len(text)
		}
		pos = next + 1
	}
	return len(text)
}

func leadingSpaces(text string, pos int) int {
	n := 0
	for pos+n < len(text) && text[pos+n] == ' ' {
		n++
	}
	return n
}

func indexByteFrom(text string, b byte, from int) int {
	for i := from; i < len(text); i++ {
		if text[i] == b {
			return i
		}
	}
	return -1
}
