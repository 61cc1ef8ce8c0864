package completion

import "github.com/lexcodex/scriptsense/framework/ast"

// Kind classifies a candidate for hosts that render item icons.
type Kind int

const (
	KindText Kind = iota
	KindKeyword
	KindTemplate
	KindClass
	KindFunction
	KindVariable
	KindImport
	KindMember
)

func (k Kind) String() string {
	switch k {
	case KindKeyword:
		return "keyword"
	case KindTemplate:
		return "template"
	case KindClass:
		return "class"
	case KindFunction:
		return "function"
	case KindVariable:
		return "variable"
	case KindImport:
		return "import"
	case KindMember:
		return "member"
	default:
		return "text"
	}
}

// Classify reports what kind of candidate item is. Dotted results are
// members unless the extractor knows a method of that name.
func (p *Provider) Classify(item string, res Result) Kind {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if res.Dotted {
		if p.kinds[item] == ast.SymbolKindFunction {
			return KindFunction
		}
		return KindMember
	}
	if _, ok := p.templates[item]; ok {
		return KindTemplate
	}
	switch p.kinds[item] {
	case ast.SymbolKindKeyword:
		return KindKeyword
	case ast.SymbolKindClass:
		return KindClass
	case ast.SymbolKindFunction:
		return KindFunction
	case ast.SymbolKindVariable:
		return KindVariable
	case ast.SymbolKindImport:
		return KindImport
	}
	if _, ok := p.builtinSet[item]; ok {
		return KindKeyword
	}
	return KindText
}
