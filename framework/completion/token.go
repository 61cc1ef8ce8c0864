package completion

import (
	"strings"
	"unicode"
)

// TokenBefore returns the in-progress token ending just before the 1-based
// column of line. Dotted chains are included, and so is a quoted or
// bracketed literal directly in front of a dot ("abc". or [1, 2].) so that
// builtin shapes can be resolved.
func TokenBefore(line string, column int) string {
	runes := []rune(line)
	end := column - 1
	if end < 0 {
		end = 0
	}
	if end > len(runes) {
		end = len(runes)
	}
	start := end
	for start > 0 {
		c := runes[start-1]
		switch {
		case isIdentRune(c) || c == '.':
			start--
		case start < end && runes[start] == '.' && isLiteralClose(c):
			open := literalStart(runes, start-1)
			if open < 0 || !standsAlone(runes, open) {
				return string(runes[start:end])
			}
			start = open
		default:
			return string(runes[start:end])
		}
	}
	return string(runes[start:end])
}

// SplitDotted splits token at its last dot. A token without a dot, or with
// nothing in front of its only dot, is bare.
func SplitDotted(token string) (object, member string, dotted bool) {
	idx := strings.LastIndex(token, ".")
	if idx <= 0 {
		return "", token, false
	}
	return token[:idx], token[idx+1:], true
}

func isIdentRune(c rune) bool {
	return unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_'
}

func isLiteralClose(c rune) bool {
	return c == '"' || c == '\'' || c == ']' || c == '}' || c == ')'
}

// standsAlone reports whether the bracketed literal opening at pos is a
// literal rather than a subscript or call on the expression before it.
func standsAlone(runes []rune, pos int) bool {
	switch runes[pos] {
	case '"', '\'':
		return true
	}
	if pos == 0 {
		return true
	}
	prev := runes[pos-1]
	return !isIdentRune(prev) && prev != ')' && prev != ']' && prev != '"' && prev != '\''
}

// literalStart walks back from the closing rune at pos to the rune that
// opens it, or returns -1 when the literal is unbalanced.
func literalStart(runes []rune, pos int) int {
	closer := runes[pos]
	if closer == '"' || closer == '\'' {
		for i := pos - 1; i >= 0; i-- {
			if runes[i] == closer && (i == 0 || runes[i-1] != '\\') {
				return i
			}
		}
		return -1
	}
	opener := map[rune]rune{']': '[', '}': '{', ')': '('}[closer]
	depth := 0
	for i := pos; i >= 0; i-- {
		switch runes[i] {
		case closer:
			depth++
		case opener:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
