package ast

import (
	"regexp"
)

const identifier = `[A-Za-z_][A-Za-z0-9_]*`

// Pattern library for the scripting variant. Each category is matched
// independently over the whole text.
var (
	classHeaderPattern = regexp.MustCompile(`class\s+(` + identifier + `)\s*(?:\(.*\))?:`)
	functionPattern    = regexp.MustCompile(`def\s+(` + identifier + `)\s*\(([^)]*)\)`)
	attributePattern   = regexp.MustCompile(`self\.(` + identifier + `)\s*=`)
	// The trailing "not followed by =" check happens in code; RE2 has no
	// lookahead.
	assignmentPattern  = regexp.MustCompile(`(?m)^[ \t]*(` + identifier + `)[ \t]*=`)
	importPattern      = regexp.MustCompile(`import\s+(` + identifier + `)`)
	fromImportPattern  = regexp.MustCompile(`from\s+[A-Za-z0-9_.]+\s+import\s+(` + identifier + `)(?:\s+as\s+(` + identifier + `))?`)
	constructorPattern = regexp.MustCompile(`(` + identifier + `)\s*=\s*(` + identifier + `)\s*\(`)
)

// match is one regexp hit with its capture spans as byte offsets. Missing
// optional groups have start -1.
type match struct {
	start, end int
	groups     [][2]int
}

func (m match) group(text string, i int) string {
	if i >= len(m.groups) || m.groups[i][0] < 0 {
		return ""
	}
	return text[m.groups[i][0]:m.groups[i][1]]
}

func (m match) groupStart(i int) int {
	if i >= len(m.groups) {
		return -1
	}
	return m.groups[i][0]
}

func (m match) groupEnd(i int) int {
	if i >= len(m.groups) {
		return -1
	}
	return m.groups[i][1]
}

func findAll(re *regexp.Regexp, text string) []match {
	raw := re.FindAllStringSubmatchIndex(text, -1)
	out := make([]match, 0, len(raw))
	for _, loc := range raw {
		m := match{start: loc[0], end: loc[1]}
		for i := 2; i+1 < len(loc); i += 2 {
			m.groups = append(m.groups, [2]int{loc[i], loc[i+1]})
		}
		out = append(out, m)
	}
	return out
}

// assignments returns plain assignment matches, dropping comparisons such as
// "x == y".
func assignments(text string) []match {
	all := findAll(assignmentPattern, text)
	out := all[:0]
	for _, m := range all {
		if m.end < len(text) && text[m.end] == '=' {
			continue
		}
		out = append(out, m)
	}
	return out
}

// keywordPattern matches whole-word occurrences of one keyword.
func keywordPattern(keyword string) *regexp.Regexp {
	return regexp.MustCompile(`\b(` + regexp.QuoteMeta(keyword) + `)\b`)
}
