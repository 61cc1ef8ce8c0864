package completion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/lexcodex/scriptsense/framework/ast"
)

func TestRankMembers(t *testing.T) {
	assert.Equal(t, []string{"lower", "flow", "glower"}, RankMembers([]string{"glower", "flow", "lower"}, "low"))
	assert.Equal(t, []string{"apple", "application", "grape", "snap"}, RankMembers([]string{"snap", "grape", "application", "apple"}, "ap"))
	assert.Equal(t, []string{"Alpha", "beta", "Gamma"}, RankMembers([]string{"Gamma", "beta", "Alpha"}, ""))
	assert.Equal(t, []string{"Lower", "lowest"}, RankMembers([]string{"lowest", "low", "Lower"}, "low"))
}

func TestSplitDotted(t *testing.T) {
	cases := []struct {
		token  string
		object string
		member string
		dotted bool
	}{
		{"abc", "", "abc", false},
		{"a.", "a", "", true},
		{"a.b.c", "a.b", "c", true},
		{".x", "", ".x", false},
		{`"s".up`, `"s"`, "up", true},
	}
	for _, tc := range cases {
		object, member, dotted := SplitDotted(tc.token)
		assert.Equal(t, tc.object, object, tc.token)
		assert.Equal(t, tc.member, member, tc.token)
		assert.Equal(t, tc.dotted, dotted, tc.token)
	}
}

func TestTokenBefore(t *testing.T) {
	assert.Equal(t, "a.", TokenBefore("print(a.", 9))
	assert.Equal(t, "obj.me", TokenBefore("    x = obj.me", 15))
	assert.Equal(t, "ob", TokenBefore("    x = obj.me", 11))
	assert.Equal(t, `"abc".`, TokenBefore(`s = "abc".`, 11))
	assert.Equal(t, "[1, 2].ap", TokenBefore("[1, 2].ap", 10))
	assert.Equal(t, "{}.", TokenBefore("d = {}.", 8))
	assert.Equal(t, "", TokenBefore("x = ", 5))
	assert.Equal(t, "é", TokenBefore("é", 2))
	assert.Equal(t, "", TokenBefore("abc", 0))
	assert.Equal(t, "abc", TokenBefore("abc", 40))
	assert.Equal(t, ".", TokenBefore("users[0].", 10))
	assert.Equal(t, ".", TokenBefore(`cfg["k"].`, 10))
	assert.Equal(t, ".", TokenBefore("make().", 8))
	assert.Equal(t, "(1).", TokenBefore("x = (1).", 9))
}

func TestProviderBaseSet(t *testing.T) {
	p := NewProvider(Config{Builtins: []string{"print", "len", "Exception"}}, WithLogger(zaptest.NewLogger(t)))

	candidates := p.Candidates("")
	for _, want := range []string{"print", "len", "Exception", "main", "try", "from"} {
		assert.Contains(t, candidates, want)
	}
	sorted := append([]string(nil), candidates...)
	ast.SortCaseInsensitive(sorted)
	assert.Equal(t, sorted, candidates)

	assert.NotContains(t, p.Candidates("print"), "print")
	assert.NotContains(t, p.Candidates(" len "), "len")
	assert.Contains(t, p.Candidates("pri"), "print")
}

func TestProviderFollowsExtractor(t *testing.T) {
	pe := ast.NewPythonExtractor()
	p := NewProvider(Config{}, WithExtractor(pe))
	assert.NotContains(t, p.Candidates(""), "Widget")

	pe.Extract("class Widget:\n    pass\n")
	assert.Contains(t, p.Candidates(""), "Widget")
	assert.Equal(t, KindClass, p.Classify("Widget", Result{}))

	other := ast.NewPythonExtractor()
	other.Extract("gadget = 1\n")
	p.SetExtractor(other)
	assert.NotContains(t, p.Candidates(""), "Widget")
	assert.Contains(t, p.Candidates(""), "gadget")

	// The old extractor no longer drives the model.
	pe.Extract("class Sprocket:\n    pass\n")
	assert.NotContains(t, p.Candidates(""), "Sprocket")

	p.Close()
	other.Extract("later = 2\n")
	assert.NotContains(t, p.Candidates(""), "later")
}

func TestProviderDottedCompletion(t *testing.T) {
	pe := ast.NewPythonExtractor()
	pe.Extract("class A:\n    def __init__(self):\n        self.x = 1\n\na = A()\nprint(a.")
	p := NewProvider(Config{}, WithExtractor(pe))

	res := p.Complete(TokenBefore("print(a.", 9))
	require.True(t, res.Dotted)
	assert.Equal(t, "a", res.Object)
	assert.Equal(t, "", res.Prefix)
	assert.True(t, res.ForceVisible)
	assert.ElementsMatch(t, []string{"x", "__init__"}, res.Items)
	assert.Equal(t, res.Items, p.Active())
	assert.Equal(t, KindMember, p.Classify("x", res))
	assert.Equal(t, KindFunction, p.Classify("__init__", res))

	res = p.Complete("a.x")
	assert.Equal(t, []string{"__init__"}, res.Items)
	assert.True(t, res.ForceVisible)

	res = p.Complete("nothing.")
	assert.Empty(t, res.Items)
	assert.True(t, res.ForceVisible)
}

func TestProviderBuiltinShapes(t *testing.T) {
	pe := ast.NewPythonExtractor()
	pe.Extract("s = 'x'\n")
	p := NewProvider(Config{}, WithExtractor(pe))

	res := p.Complete(`"abc".sp`)
	require.NotEmpty(t, res.Items)
	assert.Equal(t, "split", res.Items[0])

	res = p.Complete("[1].")
	assert.Contains(t, res.Items, "append")
}

func TestProviderSubscriptIsNotListLiteral(t *testing.T) {
	pe := ast.NewPythonExtractor()
	pe.Extract("class User:\n    def save(self):\n        pass\nusers = [User()]\nconfig = {}\n")
	p := NewProvider(Config{}, WithExtractor(pe))

	for _, line := range []string{"users[0].", `config["name"].`} {
		res := p.Complete(TokenBefore(line, len(line)+1))
		assert.False(t, res.Dotted, line)
		assert.False(t, res.ForceVisible, line)
		assert.NotContains(t, res.Items, "append", line)
		assert.NotContains(t, res.Items, "keys", line)
	}

	res := p.Complete(TokenBefore("x = [1, 2].", 12))
	require.True(t, res.Dotted)
	assert.Contains(t, res.Items, "append")
}

func TestProviderBareCompletionResetsActive(t *testing.T) {
	p := NewProvider(Config{Builtins: []string{"print"}})
	res := p.Complete("pr")
	assert.False(t, res.Dotted)
	assert.False(t, res.ForceVisible)
	assert.Equal(t, p.Candidates("pr"), res.Items)
	assert.Equal(t, res.Items, p.Active())
}

func TestProviderTemplates(t *testing.T) {
	p := NewProvider(Config{DisableDefaultTemplates: true, Templates: map[string]string{"with": "with open(path) as f:\n    "}})
	assert.True(t, p.IsTemplate("with"))
	assert.False(t, p.IsTemplate("main"))
	assert.Contains(t, p.Candidates(""), "with")

	p.AddTemplate("lambda", "lambda x: x")
	expansion, ok := p.Template("lambda")
	require.True(t, ok)
	assert.Equal(t, "lambda x: x", expansion)
	assert.Contains(t, p.Candidates(""), "lambda")
	assert.Equal(t, KindTemplate, p.Classify("lambda", Result{}))

	templates := p.Templates()
	templates["with"] = "mutated"
	expansion, _ = p.Template("with")
	assert.Equal(t, "with open(path) as f:\n    ", expansion)
}

func TestProviderTemplatesSurviveRebuild(t *testing.T) {
	pe := ast.NewPythonExtractor()
	p := NewProvider(Config{}, WithExtractor(pe))
	p.AddTemplate("fixture", "@pytest.fixture\ndef ")
	pe.Extract("x = 1\n")
	assert.Contains(t, p.Candidates(""), "fixture")
	for keyword := range DefaultTemplates() {
		assert.Contains(t, p.Candidates(""), keyword)
	}
}
