package ast

import (
	goast "go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"path"
	"strconv"
	"strings"
)

// GoKeywords lists the Go reserved words.
var GoKeywords = []string{
	"break", "case", "chan", "const", "continue", "default", "defer", "else",
	"fallthrough", "for", "func", "go", "goto", "if", "import", "interface",
	"map", "package", "range", "return", "select", "struct", "switch", "type",
	"var",
}

// GoExtractor recovers symbols from Go source using go/parser. Named struct
// and interface types play the role of classes; methods attach to their
// receiver type. Files with syntax errors still contribute whatever the parser
// recovered.
type GoExtractor struct {
	baseExtractor
}

// NewGoExtractor returns an extractor with empty state.
func NewGoExtractor() *GoExtractor {
	ge := &GoExtractor{}
	ge.builtinMembers = goBuiltinMembers
	return ge
}

func (ge *GoExtractor) Language() string { return "go" }

// Extract rescans text, replaces all derived state and notifies subscribers.
func (ge *GoExtractor) Extract(text string) []string {
	snap := ge.build(text)
	ge.commit(snap)
	return cloneStrings(snap.Symbols)
}

type goSymbol struct {
	name   string
	scope  string
	params string
	offset int
}

type goScan struct {
	text      string
	fset      *token.FileSet
	types     []goSymbol
	functions []goSymbol
	variables []goSymbol
	fields    []goSymbol
	imports   []goSymbol
	members   memberSet
	objects   map[string]string
}

func (ge *GoExtractor) build(text string) *Snapshot {
	snap := newSnapshot()
	snap.ContentHash = HashContent(text)
	if strings.TrimSpace(text) == "" {
		return snap
	}

	scan := &goScan{
		text:    text,
		fset:    token.NewFileSet(),
		members: memberSet{},
		objects: map[string]string{},
	}
	file, _ := parser.ParseFile(scan.fset, "", text, parser.AllErrors|parser.SkipObjectResolution)
	if file != nil {
		scan.collect(file)
	}

	symbols := append([]string(nil), GoKeywords...)
	for _, group := range [][]goSymbol{scan.types, scan.functions, scan.variables, scan.fields, scan.imports} {
		for _, sym := range group {
			symbols = append(symbols, sym.name)
		}
	}
	for _, fn := range scan.functions {
		snap.FunctionParameters[qualify(fn.scope, fn.name)] = fn.params
	}
	snap.Symbols = UniqueSorted(symbols)
	snap.ClassMembers = scan.members
	snap.ObjectTypes = scan.objects
	snap.Records = scan.records()
	return snap
}

func (s *goScan) offset(pos token.Pos) int {
	return s.fset.Position(pos).Offset
}

func (s *goScan) collect(file *goast.File) {
	for _, imp := range file.Imports {
		importPath, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			continue
		}
		if imp.Name != nil {
			if imp.Name.Name == "_" || imp.Name.Name == "." {
				continue
			}
			s.imports = append(s.imports, goSymbol{name: imp.Name.Name, offset: s.offset(imp.Name.Pos())})
			continue
		}
		// Unnamed imports are recorded over the last path element inside
		// the quoted literal.
		name := path.Base(importPath)
		start := s.offset(imp.Path.Pos()) + 1 + strings.LastIndex(importPath, name)
		s.imports = append(s.imports, goSymbol{name: name, offset: start})
	}

	goast.Inspect(file, func(n goast.Node) bool {
		switch decl := n.(type) {
		case *goast.FuncDecl:
			s.addFunc(decl)
		case *goast.GenDecl:
			s.addGenDecl(decl)
		case *goast.AssignStmt:
			s.addAssign(decl)
		}
		return true
	})
}

func (s *goScan) addFunc(decl *goast.FuncDecl) {
	if decl.Name == nil || decl.Name.Name == "_" {
		return
	}
	fn := goSymbol{
		name:   decl.Name.Name,
		offset: s.offset(decl.Name.Pos()),
		params: s.paramText(decl.Type.Params),
	}
	if decl.Recv != nil && len(decl.Recv.List) > 0 {
		fn.scope = receiverName(decl.Recv.List[0].Type)
		if fn.scope != "" {
			s.members.add(fn.scope, fn.name)
		}
	}
	s.functions = append(s.functions, fn)
}

func (s *goScan) addGenDecl(decl *goast.GenDecl) {
	for _, spec := range decl.Specs {
		switch typed := spec.(type) {
		case *goast.TypeSpec:
			name := typed.Name.Name
			switch body := typed.Type.(type) {
			case *goast.StructType:
				s.types = append(s.types, goSymbol{name: name, offset: s.offset(typed.Name.Pos())})
				s.addFields(name, body.Fields)
			case *goast.InterfaceType:
				s.types = append(s.types, goSymbol{name: name, offset: s.offset(typed.Name.Pos())})
				s.addFields(name, body.Methods)
			}
		case *goast.ValueSpec:
			for i, ident := range typed.Names {
				if ident.Name == "_" {
					continue
				}
				s.variables = append(s.variables, goSymbol{name: ident.Name, offset: s.offset(ident.Pos())})
				if typeName := namedType(typed.Type); typeName != "" {
					s.objects[ident.Name] = typeName
				} else if i < len(typed.Values) {
					if typeName := constructedType(typed.Values[i]); typeName != "" {
						s.objects[ident.Name] = typeName
					}
				}
			}
		}
	}
}

func (s *goScan) addFields(owner string, list *goast.FieldList) {
	if list == nil {
		return
	}
	for _, field := range list.List {
		for _, ident := range field.Names {
			if ident.Name == "_" {
				continue
			}
			s.fields = append(s.fields, goSymbol{name: ident.Name, scope: owner, offset: s.offset(ident.Pos())})
			s.members.add(owner, ident.Name)
		}
	}
}

func (s *goScan) addAssign(stmt *goast.AssignStmt) {
	for i, lhs := range stmt.Lhs {
		ident, ok := lhs.(*goast.Ident)
		if !ok || ident.Name == "_" {
			continue
		}
		if stmt.Tok == token.DEFINE {
			s.variables = append(s.variables, goSymbol{name: ident.Name, offset: s.offset(ident.Pos())})
		}
		if i >= len(stmt.Rhs) {
			continue
		}
		if typeName := constructedType(stmt.Rhs[i]); typeName != "" {
			s.objects[ident.Name] = typeName
		}
	}
}

// paramText returns the raw source between a parameter list's parentheses.
func (s *goScan) paramText(list *goast.FieldList) string {
	if list == nil || !list.Opening.IsValid() || !list.Closing.IsValid() {
		return ""
	}
	start, end := s.offset(list.Opening)+1, s.offset(list.Closing)
	if start > end || end > len(s.text) {
		return ""
	}
	return strings.TrimSpace(s.text[start:end])
}

func (s *goScan) records() []SymbolRecord {
	lines := newLineIndex(s.text)
	out := s.keywordRecords(lines)
	seen := make(map[string]struct{})
	add := func(key string, sym goSymbol, kind SymbolKind) {
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		rec := lines.record(sym.name, kind, sym.offset, sym.offset+len(sym.name))
		rec.Scope = sym.scope
		if kind == SymbolKindFunction {
			rec.Parameters = sym.params
		}
		out = append(out, rec)
	}
	for _, sym := range s.types {
		add("c:"+sym.name, sym, SymbolKindClass)
	}
	for _, sym := range s.functions {
		add("f:"+qualify(sym.scope, sym.name), sym, SymbolKindFunction)
	}
	for _, sym := range s.variables {
		add("v:"+sym.name, sym, SymbolKindVariable)
	}
	for _, sym := range s.fields {
		add("v:"+sym.scope+"."+sym.name, sym, SymbolKindVariable)
	}
	for _, sym := range s.imports {
		add("i:"+sym.name, sym, SymbolKindImport)
	}
	return out
}

// keywordRecords tokenizes the text so keywords inside strings and comments
// are not reported.
func (s *goScan) keywordRecords(lines *lineIndex) []SymbolRecord {
	var sc scanner.Scanner
	fset := token.NewFileSet()
	file := fset.AddFile("", fset.Base(), len(s.text))
	sc.Init(file, []byte(s.text), nil, 0)

	var out []SymbolRecord
	for {
		pos, tok, lit := sc.Scan()
		if tok == token.EOF {
			break
		}
		if tok.IsKeyword() {
			start := file.Offset(pos)
			out = append(out, lines.record(lit, SymbolKindKeyword, start, start+len(lit)))
		}
	}
	return out
}

// receiverName strips pointers and type parameters from a receiver type.
func receiverName(expr goast.Expr) string {
	for {
		switch typed := expr.(type) {
		case *goast.StarExpr:
			expr = typed.X
		case *goast.IndexExpr:
			expr = typed.X
		case *goast.IndexListExpr:
			expr = typed.X
		case *goast.ParenExpr:
			expr = typed.X
		case *goast.Ident:
			return typed.Name
		default:
			return ""
		}
	}
}

// namedType returns T for declared types T and *T.
func namedType(expr goast.Expr) string {
	if star, ok := expr.(*goast.StarExpr); ok {
		expr = star.X
	}
	if ident, ok := expr.(*goast.Ident); ok {
		return ident.Name
	}
	return ""
}

// constructedType recognizes T{...}, &T{...} and NewT(...).
func constructedType(expr goast.Expr) string {
	if unary, ok := expr.(*goast.UnaryExpr); ok && unary.Op == token.AND {
		expr = unary.X
	}
	switch typed := expr.(type) {
	case *goast.CompositeLit:
		return namedType(typed.Type)
	case *goast.CallExpr:
		ident, ok := typed.Fun.(*goast.Ident)
		if !ok {
			return ""
		}
		if name := strings.TrimPrefix(ident.Name, "New"); name != ident.Name && name != "" {
			return name
		}
	}
	return ""
}

func goBuiltinMembers(name string) []string {
	switch {
	case name == "string" || strings.HasPrefix(name, `"`) || strings.HasPrefix(name, "`"):
		return []string{"len", "Contains", "HasPrefix", "HasSuffix", "Index", "Split", "TrimSpace", "ToLower", "ToUpper"}
	case strings.HasPrefix(name, "[]") || (strings.HasSuffix(name, "]") && !strings.HasPrefix(name, "map[")):
		return []string{"append", "len", "cap", "copy", "clear"}
	case strings.HasPrefix(name, "map[") || strings.HasSuffix(name, "}"):
		return []string{"len", "delete", "clear"}
	}
	return nil
}
