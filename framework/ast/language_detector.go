package ast

import (
	"path/filepath"
	"strings"
)

// LanguageDetector maps filenames, extensions and editor language ids to the
// languages an ExtractorRegistry understands.
type LanguageDetector struct {
	extensionMap map[string]string
	filenameMap  map[string]string
	idMap        map[string]string
}

// NewLanguageDetector seeds defaults for the supported variants.
func NewLanguageDetector() *LanguageDetector {
	ld := &LanguageDetector{
		extensionMap: make(map[string]string),
		filenameMap:  make(map[string]string),
		idMap:        make(map[string]string),
	}
	ld.extensionMap[".py"] = "python"
	ld.extensionMap[".pyw"] = "python"
	ld.extensionMap[".pyi"] = "python"
	ld.extensionMap[".go"] = "go"
	ld.filenameMap["SConstruct"] = "python"
	ld.filenameMap["SConscript"] = "python"
	ld.idMap["python"] = "python"
	ld.idMap["py"] = "python"
	ld.idMap["go"] = "go"
	ld.idMap["golang"] = "go"
	return ld
}

// Detect returns the language for a path, or "unknown".
func (ld *LanguageDetector) Detect(path string) string {
	if path == "" {
		return "unknown"
	}
	base := filepath.Base(path)
	if lang, ok := ld.filenameMap[base]; ok {
		return lang
	}
	if lang, ok := ld.extensionMap[strings.ToLower(filepath.Ext(base))]; ok {
		return lang
	}
	return "unknown"
}

// FromLanguageID maps an LSP languageId, falling back to the path when the
// id is empty or unknown.
func (ld *LanguageDetector) FromLanguageID(id, path string) string {
	if lang, ok := ld.idMap[strings.ToLower(strings.TrimSpace(id))]; ok {
		return lang
	}
	return ld.Detect(path)
}
