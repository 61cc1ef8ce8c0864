package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const serverSource = `package demo

import (
	"fmt"
	str "strings"
)

type Server struct {
	Addr string
	port int
}

type Handler interface {
	Serve(path string) error
}

func NewServer(addr string) *Server {
	return &Server{Addr: addr}
}

func (s *Server) Start(verbose bool) error {
	label := str.ToUpper(s.Addr)
	fmt.Println(label)
	return nil
}

var fallback Server

func main() {
	srv := NewServer(":80")
	other := &Server{}
	_ = other
	srv.Start(true)
}
`

func TestGoExtractorSymbols(t *testing.T) {
	ge := NewGoExtractor()
	symbols := ge.Extract(serverSource)

	for _, want := range []string{"Server", "Handler", "Addr", "port", "Serve", "NewServer", "Start", "label", "fallback", "srv", "other", "fmt", "str", "func", "struct"} {
		assert.Contains(t, symbols, want)
	}
	assert.NotContains(t, symbols, "strings")
	assert.NotContains(t, symbols, "_")
}

func TestGoExtractorMembersAndTypes(t *testing.T) {
	ge := NewGoExtractor()
	ge.Extract(serverSource)

	members := ge.ClassMembers()
	assert.Equal(t, []string{"Addr", "port", "Start"}, members["Server"])
	assert.Equal(t, []string{"Serve"}, members["Handler"])

	types := ge.ObjectTypes()
	assert.Equal(t, "Server", types["srv"])
	assert.Equal(t, "Server", types["other"])
	assert.Equal(t, "Server", types["fallback"])
	assert.ElementsMatch(t, []string{"Addr", "port", "Start"}, ge.ObjectMembers("srv"))

	params := ge.FunctionParameters()
	assert.Equal(t, "addr string", params["NewServer"])
	assert.Equal(t, "verbose bool", params["Server.Start"])
	assert.Equal(t, "", params["main"])
}

func TestGoExtractorRecords(t *testing.T) {
	ge := NewGoExtractor()
	ge.Extract(serverSource)

	rec := ge.SymbolAt(8, 6)
	assert.Equal(t, "Server", rec.Name)
	assert.Equal(t, SymbolKindClass, rec.Kind)

	rec = ge.SymbolAt(21, 18)
	assert.Equal(t, "Start", rec.Name)
	assert.Equal(t, "Server", rec.Scope)
	assert.Equal(t, "verbose bool", rec.Parameters)

	rec = ge.SymbolAt(4, 3)
	assert.Equal(t, "fmt", rec.Name)
	assert.Equal(t, SymbolKindImport, rec.Kind)

	rec = ge.SymbolAt(9, 2)
	assert.Equal(t, "Addr", rec.Name)
	assert.Equal(t, "Server", rec.Scope)

	assert.Equal(t, SymbolKindKeyword, ge.SymbolAt(1, 1).Kind)
}

func TestGoExtractorKeywordsSkipStrings(t *testing.T) {
	ge := NewGoExtractor()
	ge.Extract("package p\n\n// for range\nvar s = \"func\"\n")
	for _, rec := range ge.Records() {
		if rec.Kind == SymbolKindKeyword {
			assert.Contains(t, []string{"package", "var"}, rec.Name)
		}
	}
}

func TestGoExtractorPartialSource(t *testing.T) {
	ge := NewGoExtractor()
	symbols := ge.Extract("package p\n\ntype Box struct {\n\tWidth int\n}\n\nfunc broken( {\n")
	assert.Contains(t, symbols, "Box")
	require.Contains(t, ge.ClassMembers(), "Box")
	assert.Contains(t, ge.ClassMembers()["Box"], "Width")
}

func TestGoExtractorBuiltinShapes(t *testing.T) {
	ge := NewGoExtractor()
	ge.Extract("package p\n")
	assert.Contains(t, ge.ObjectMembers("[]int"), "append")
	assert.Contains(t, ge.ObjectMembers("map[string]int"), "delete")
	assert.Contains(t, ge.ObjectMembers(`"x"`), "len")
	assert.Empty(t, ge.ObjectMembers("Unknown"))
}
