package completion

import (
	"strings"

	"github.com/lexcodex/scriptsense/framework/ast"
)

// RankMembers orders members for a dotted completion. Members starting with
// prefix come first, then members containing it, then the rest; matching is
// case-insensitive and each group is sorted case-insensitively. An empty
// prefix sorts the whole set. The exact prefix itself is never returned.
func RankMembers(members []string, prefix string) []string {
	members = ast.Dedupe(members)
	if prefix == "" {
		ast.SortCaseInsensitive(members)
		return members
	}
	needle := strings.ToLower(prefix)
	var starts, contains, rest []string
	for _, member := range members {
		if member == prefix {
			continue
		}
		lower := strings.ToLower(member)
		switch {
		case strings.HasPrefix(lower, needle):
			starts = append(starts, member)
		case strings.Contains(lower, needle):
			contains = append(contains, member)
		default:
			rest = append(rest, member)
		}
	}
	ast.SortCaseInsensitive(starts)
	ast.SortCaseInsensitive(contains)
	ast.SortCaseInsensitive(rest)

	out := make([]string, 0, len(starts)+len(contains)+len(rest))
	out = append(out, starts...)
	out = append(out, contains...)
	return append(out, rest...)
}
