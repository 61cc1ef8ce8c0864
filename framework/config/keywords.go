package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lexcodex/scriptsense/framework/ast"
)

// KeywordTable is the builtin completion vocabulary for one language.
type KeywordTable struct {
	Keywords []string `yaml:"keywords"`
	Builtins []string `yaml:"builtins"`
}

// All returns keywords followed by builtins, without duplicates.
func (kt KeywordTable) All() []string {
	all := make([]string, 0, len(kt.Keywords)+len(kt.Builtins))
	all = append(all, kt.Keywords...)
	all = append(all, kt.Builtins...)
	return ast.Dedupe(all)
}

var pythonBuiltins = []string{
	"abs", "all", "any", "bool", "bytes", "callable", "chr", "dict", "dir",
	"enumerate", "Exception", "filter", "float", "format", "getattr",
	"hasattr", "hash", "input", "int", "isinstance", "issubclass", "iter",
	"len", "list", "map", "max", "min", "next", "object", "open", "ord",
	"print", "property", "range", "repr", "reversed", "round", "self", "set",
	"setattr", "sorted", "staticmethod", "classmethod", "str", "sum", "super",
	"tuple", "type", "ValueError", "KeyError", "TypeError", "zip",
}

var goBuiltins = []string{
	"any", "append", "bool", "byte", "cap", "clear", "close", "comparable",
	"complex", "copy", "delete", "error", "false", "float32", "float64",
	"int", "int64", "iota", "len", "make", "max", "min", "new", "nil",
	"panic", "print", "println", "recover", "rune", "string", "true",
	"uint", "uint64",
}

// DefaultKeywordTable returns the built-in table for language.
func DefaultKeywordTable(language string) KeywordTable {
	switch language {
	case "go":
		return KeywordTable{
			Keywords: append([]string(nil), ast.GoKeywords...),
			Builtins: append([]string(nil), goBuiltins...),
		}
	default:
		return KeywordTable{
			Keywords: append([]string(nil), ast.PythonKeywords...),
			Builtins: append([]string(nil), pythonBuiltins...),
		}
	}
}

// keywordFile is the on-disk keyword table. The top-level table belongs to
// Language (python when unset); other languages go under languages.
type keywordFile struct {
	Language     string `yaml:"language"`
	KeywordTable `yaml:",inline"`
	Languages    map[string]KeywordTable `yaml:"languages"`
}

// LoadKeywords reads the table for language from a YAML keyword file.
// Languages the file does not cover, and an empty path, get the default
// table.
func LoadKeywords(path, language string) (KeywordTable, error) {
	if path == "" {
		return DefaultKeywordTable(language), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return KeywordTable{}, fmt.Errorf("read keywords: %w", err)
	}
	var file keywordFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return KeywordTable{}, fmt.Errorf("parse keywords %s: %w", path, err)
	}
	if table, ok := file.Languages[language]; ok {
		return table, nil
	}
	owner := file.Language
	if owner == "" {
		owner = "python"
	}
	if owner == language && len(file.Keywords)+len(file.Builtins) > 0 {
		return file.KeywordTable, nil
	}
	return DefaultKeywordTable(language), nil
}
