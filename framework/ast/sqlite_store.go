package ast

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore persists symbol records in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens/creates the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}
	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS files (
		id TEXT PRIMARY KEY,
		path TEXT NOT NULL UNIQUE,
		language TEXT,
		content_hash TEXT,
		symbol_count INTEGER,
		indexed_at TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS symbols (
		file_id TEXT NOT NULL,
		ordinal INTEGER NOT NULL,
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		line INTEGER,
		col INTEGER,
		length INTEGER,
		scope TEXT,
		parameters TEXT,
		PRIMARY KEY(file_id, ordinal),
		FOREIGN KEY(file_id) REFERENCES files(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveFile upserts file metadata and replaces its symbols in one transaction.
func (s *SQLiteStore) SaveFile(file *FileRecord, records []SymbolRecord) error {
	if file == nil {
		return errors.New("file record required")
	}
	if file.IndexedAt.IsZero() {
		file.IndexedAt = time.Now().UTC()
	}
	file.SymbolCount = len(records)

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if err := saveFileTx(tx, file, records); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func saveFileTx(tx *sql.Tx, file *FileRecord, records []SymbolRecord) error {
	_, err := tx.Exec(`
	INSERT INTO files (id, path, language, content_hash, symbol_count, indexed_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		path=excluded.path,
		language=excluded.language,
		content_hash=excluded.content_hash,
		symbol_count=excluded.symbol_count,
		indexed_at=excluded.indexed_at`,
		file.ID, file.Path, file.Language, file.ContentHash, file.SymbolCount, file.IndexedAt)
	if err != nil {
		return fmt.Errorf("upsert file: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM symbols WHERE file_id = ?`, file.ID); err != nil {
		return fmt.Errorf("clear symbols: %w", err)
	}
	if len(records) == 0 {
		return nil
	}
	stmt, err := tx.Prepare(`INSERT INTO symbols (
		file_id, ordinal, name, kind, line, col, length, scope, parameters
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, rec := range records {
		if _, err := stmt.Exec(
			file.ID,
			i,
			rec.Name,
			rec.Kind.String(),
			rec.Line,
			rec.Column,
			rec.Length,
			rec.Scope,
			rec.Parameters,
		); err != nil {
			return fmt.Errorf("insert symbol %s: %w", rec.Name, err)
		}
	}
	return nil
}

const fileColumns = `id, path, language, content_hash, symbol_count, indexed_at`

func (s *SQLiteStore) GetFile(id string) (*FileRecord, error) {
	row := s.db.QueryRow(`SELECT `+fileColumns+` FROM files WHERE id = ?`, id)
	return scanFile(row)
}

func (s *SQLiteStore) GetFileByPath(path string) (*FileRecord, error) {
	row := s.db.QueryRow(`SELECT `+fileColumns+` FROM files WHERE path = ?`, path)
	return scanFile(row)
}

// ListFiles returns every file, or only those of one language.
func (s *SQLiteStore) ListFiles(language string) ([]*FileRecord, error) {
	var rows *sql.Rows
	var err error
	if language == "" {
		rows, err = s.db.Query(`SELECT ` + fileColumns + ` FROM files ORDER BY path`)
	} else {
		rows, err = s.db.Query(`SELECT `+fileColumns+` FROM files WHERE language = ? ORDER BY path`, language)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFiles(rows)
}

func (s *SQLiteStore) DeleteFile(id string) error {
	_, err := s.db.Exec(`DELETE FROM files WHERE id = ?`, id)
	return err
}

const symbolColumns = `s.file_id, f.path, s.name, s.kind, s.line, s.col, s.length, s.scope, s.parameters`

func (s *SQLiteStore) SymbolsByFile(fileID string) ([]StoredSymbol, error) {
	return s.SearchSymbols(SymbolQuery{FileIDs: []string{fileID}})
}

func (s *SQLiteStore) SymbolsByName(name string) ([]StoredSymbol, error) {
	rows, err := s.db.Query(`SELECT `+symbolColumns+`
		FROM symbols s JOIN files f ON f.id = s.file_id
		WHERE s.name = ? ORDER BY f.path, s.ordinal`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSymbols(rows)
}

// SearchSymbols applies every non-empty filter in query.
func (s *SQLiteStore) SearchSymbols(query SymbolQuery) ([]StoredSymbol, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0)
	builder.WriteString(`SELECT ` + symbolColumns + `
		FROM symbols s JOIN files f ON f.id = s.file_id WHERE 1=1`)
	if len(query.Kinds) > 0 {
		builder.WriteString(" AND s.kind IN (")
		builder.WriteString(placeholders(len(query.Kinds)))
		builder.WriteString(")")
		for _, k := range query.Kinds {
			args = append(args, k.String())
		}
	}
	if len(query.Languages) > 0 {
		builder.WriteString(" AND f.language IN (")
		builder.WriteString(placeholders(len(query.Languages)))
		builder.WriteString(")")
		for _, l := range query.Languages {
			args = append(args, l)
		}
	}
	if len(query.FileIDs) > 0 {
		builder.WriteString(" AND s.file_id IN (")
		builder.WriteString(placeholders(len(query.FileIDs)))
		builder.WriteString(")")
		for _, id := range query.FileIDs {
			args = append(args, id)
		}
	}
	if query.NamePattern != "" {
		builder.WriteString(" AND s.name LIKE ?")
		args = append(args, query.NamePattern)
	}
	if query.Scope != "" {
		builder.WriteString(" AND s.scope = ?")
		args = append(args, query.Scope)
	}
	builder.WriteString(" ORDER BY f.path, s.ordinal")
	if query.Limit > 0 {
		builder.WriteString(" LIMIT ?")
		args = append(args, query.Limit)
		if query.Offset > 0 {
			builder.WriteString(" OFFSET ?")
			args = append(args, query.Offset)
		}
	}
	rows, err := s.db.Query(builder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSymbols(rows)
}

// SymbolNames lists every distinct non-keyword name in the index.
func (s *SQLiteStore) SymbolNames() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT name FROM symbols WHERE kind != ? ORDER BY name`, SymbolKindKeyword.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Vacuum performs database maintenance.
func (s *SQLiteStore) Vacuum() error {
	_, err := s.db.Exec(`VACUUM`)
	return err
}

// Stats aggregates counts.
func (s *SQLiteStore) Stats() (*IndexStats, error) {
	stats := &IndexStats{
		SymbolsByKind:   make(map[SymbolKind]int),
		FilesByLanguage: make(map[string]int),
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM files`).Scan(&stats.TotalFiles); err != nil {
		return nil, err
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM symbols`).Scan(&stats.TotalSymbols); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(`SELECT kind, COUNT(*) FROM symbols GROUP BY kind`)
	if err == nil {
		defer rows.Close()
		for rows.Next() {
			var kind string
			var count int
			rows.Scan(&kind, &count)
			stats.SymbolsByKind[ParseSymbolKind(kind)] = count
		}
	}
	langRows, err := s.db.Query(`SELECT language, COUNT(*) FROM files GROUP BY language`)
	if err == nil {
		defer langRows.Close()
		for langRows.Next() {
			var lang string
			var count int
			langRows.Scan(&lang, &count)
			stats.FilesByLanguage[lang] = count
		}
	}
	var pageCount, pageSize int
	s.db.QueryRow(`PRAGMA page_count`).Scan(&pageCount)
	s.db.QueryRow(`PRAGMA page_size`).Scan(&pageSize)
	stats.DatabaseSize = int64(pageCount * pageSize)
	return stats, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "?"
	}
	return strings.Join(parts, ",")
}

func scanFile(row *sql.Row) (*FileRecord, error) {
	file := &FileRecord{}
	err := row.Scan(&file.ID, &file.Path, &file.Language, &file.ContentHash, &file.SymbolCount, &file.IndexedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return file, nil
}

func scanFiles(rows *sql.Rows) ([]*FileRecord, error) {
	results := make([]*FileRecord, 0)
	for rows.Next() {
		file := &FileRecord{}
		if err := rows.Scan(&file.ID, &file.Path, &file.Language, &file.ContentHash, &file.SymbolCount, &file.IndexedAt); err != nil {
			return nil, err
		}
		results = append(results, file)
	}
	return results, rows.Err()
}

func scanSymbols(rows *sql.Rows) ([]StoredSymbol, error) {
	results := make([]StoredSymbol, 0)
	for rows.Next() {
		var sym StoredSymbol
		var kind string
		err := rows.Scan(
			&sym.FileID,
			&sym.Path,
			&sym.Name,
			&kind,
			&sym.Line,
			&sym.Column,
			&sym.Length,
			&sym.Scope,
			&sym.Parameters,
		)
		if err != nil {
			return nil, err
		}
		sym.Kind = ParseSymbolKind(kind)
		results = append(results, sym)
	}
	return results, rows.Err()
}
