package ast

import (
	"errors"
	"time"
)

// ErrNotFound is returned by stores when a file or symbol is missing.
var ErrNotFound = errors.New("not found")

// SymbolStore persists extracted symbol records per file.
type SymbolStore interface {
	SaveFile(file *FileRecord, records []SymbolRecord) error
	GetFile(fileID string) (*FileRecord, error)
	GetFileByPath(path string) (*FileRecord, error)
	ListFiles(language string) ([]*FileRecord, error)
	DeleteFile(fileID string) error
	SymbolsByFile(fileID string) ([]StoredSymbol, error)
	SymbolsByName(name string) ([]StoredSymbol, error)
	SearchSymbols(query SymbolQuery) ([]StoredSymbol, error)
	SymbolNames() ([]string, error)
	Vacuum() error
	Stats() (*IndexStats, error)
	Close() error
}

// FileRecord describes one indexed file.
type FileRecord struct {
	ID          string    `json:"id"`
	Path        string    `json:"path"`
	Language    string    `json:"language"`
	ContentHash string    `json:"content_hash"`
	SymbolCount int       `json:"symbol_count"`
	IndexedAt   time.Time `json:"indexed_at"`
}

// StoredSymbol is a record together with the file it came from.
type StoredSymbol struct {
	SymbolRecord
	FileID string `json:"file_id"`
	Path   string `json:"path"`
}

// SymbolQuery filters stored symbols. NamePattern uses SQL LIKE syntax.
type SymbolQuery struct {
	Kinds       []SymbolKind
	Languages   []string
	NamePattern string
	Scope       string
	FileIDs     []string
	Limit       int
	Offset      int
}

// IndexStats exposes counts.
type IndexStats struct {
	TotalFiles      int
	TotalSymbols    int
	SymbolsByKind   map[SymbolKind]int
	FilesByLanguage map[string]int
	DatabaseSize    int64
}
