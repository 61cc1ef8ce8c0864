package ast

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLanguageDetector(t *testing.T) {
	detector := NewLanguageDetector()
	if lang := detector.Detect("main.go"); lang != "go" {
		t.Fatalf("expected go, got %s", lang)
	}
	if lang := detector.Detect("pkg/Module.PY"); lang != "python" {
		t.Fatalf("expected python, got %s", lang)
	}
	if lang := detector.Detect("README.md"); lang != "unknown" {
		t.Fatalf("expected unknown, got %s", lang)
	}
	if lang := detector.FromLanguageID("Python", "x.txt"); lang != "python" {
		t.Fatalf("expected python from language id, got %s", lang)
	}
	if lang := detector.FromLanguageID("", "x.go"); lang != "go" {
		t.Fatalf("expected path fallback, got %s", lang)
	}
}

func TestExtractorRegistry(t *testing.T) {
	registry := DefaultRegistry()
	supported := registry.SupportedLanguages()
	if len(supported) != 2 || supported[0] != "go" || supported[1] != "python" {
		t.Fatalf("unexpected supported languages: %v", supported)
	}
	extractor, err := registry.New("python")
	if err != nil {
		t.Fatalf("new python extractor: %v", err)
	}
	if extractor.Language() != "python" {
		t.Fatalf("expected python extractor, got %s", extractor.Language())
	}
	if _, err := registry.New("cobol"); !errors.Is(err, ErrUnsupportedLanguage) {
		t.Fatalf("expected ErrUnsupportedLanguage, got %v", err)
	}
}

func TestSQLiteStoreCRUD(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewSQLiteStore(filepath.Join(tmpDir, "index.db"))
	if err != nil {
		t.Fatalf("sqlite init failed: %v", err)
	}
	defer store.Close()
	file := &FileRecord{
		ID:          "file1",
		Path:        "sample.py",
		Language:    "python",
		ContentHash: "hash",
		IndexedAt:   time.Now(),
	}
	records := []SymbolRecord{
		{Name: "class", Kind: SymbolKindKeyword, Line: 1, Column: 1, Length: 5},
		{Name: "Greeter", Kind: SymbolKindClass, Line: 1, Column: 7, Length: 7},
		{Name: "hello", Kind: SymbolKindFunction, Line: 2, Column: 9, Length: 5, Scope: "Greeter", Parameters: "self, name"},
	}
	if err := store.SaveFile(file, records); err != nil {
		t.Fatalf("save file failed: %v", err)
	}
	fetched, err := store.GetFile(file.ID)
	if err != nil || fetched == nil {
		t.Fatalf("get file failed: %v", err)
	}
	if fetched.SymbolCount != 3 {
		t.Fatalf("expected 3 symbols, got %d", fetched.SymbolCount)
	}
	byName, err := store.SymbolsByName("hello")
	if err != nil || len(byName) != 1 {
		t.Fatalf("symbols by name failed: %v %v", byName, err)
	}
	if byName[0].Scope != "Greeter" || byName[0].Parameters != "self, name" || byName[0].Kind != SymbolKindFunction {
		t.Fatalf("unexpected stored symbol: %#v", byName[0])
	}
	results, err := store.SearchSymbols(SymbolQuery{NamePattern: "Gree%", Kinds: []SymbolKind{SymbolKindClass}})
	if err != nil || len(results) != 1 {
		t.Fatalf("search symbols failed: %v %v", results, err)
	}
	names, err := store.SymbolNames()
	if err != nil {
		t.Fatalf("symbol names failed: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("expected keywords excluded from names, got %v", names)
	}

	// Saving again replaces the previous symbols.
	if err := store.SaveFile(file, records[:1]); err != nil {
		t.Fatalf("resave failed: %v", err)
	}
	stats, err := store.Stats()
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.TotalFiles != 1 || stats.TotalSymbols != 1 || stats.SymbolsByKind[SymbolKindKeyword] != 1 {
		t.Fatalf("unexpected stats: %#v", stats)
	}
	if err := store.DeleteFile(file.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := store.GetFile(file.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestIndexManagerWorkspace(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewSQLiteStore(filepath.Join(tmpDir, "index.db"))
	if err != nil {
		t.Fatalf("sqlite init failed: %v", err)
	}
	defer store.Close()
	writeFile(t, filepath.Join(tmpDir, "app.py"), "class Greeter:\n    def greet(self):\n        pass\n")
	writeFile(t, filepath.Join(tmpDir, "lib", "util.go"), "package lib\n\nfunc Greeting() string { return \"hi\" }\n")
	writeFile(t, filepath.Join(tmpDir, ".venv", "site.py"), "class Vendored:\n    pass\n")
	writeFile(t, filepath.Join(tmpDir, "notes.md"), "# notes\n")

	manager := NewIndexManager(store, IndexConfig{
		WorkspacePath:   tmpDir,
		ParallelWorkers: 2,
		IgnorePatterns:  []string{"**/.venv/**", ".venv"},
	})
	if err := manager.IndexWorkspace(context.Background()); err != nil {
		t.Fatalf("index workspace: %v", err)
	}
	files, err := store.ListFiles("")
	if err != nil {
		t.Fatalf("list files: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 indexed files, got %d", len(files))
	}
	hits, err := manager.QuerySymbol("Greet%")
	if err != nil {
		t.Fatalf("query symbol: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("expected Greeter, greet and Greeting, got %v", hits)
	}
	if _, err := store.GetFileByPath(filepath.Join(tmpDir, ".venv", "site.py")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("ignored file was indexed: %v", err)
	}

	fuzzy, err := manager.FuzzySearch("greter", 1)
	if err != nil {
		t.Fatalf("fuzzy search: %v", err)
	}
	if len(fuzzy) != 1 || fuzzy[0].Name != "Greeter" {
		t.Fatalf("unexpected fuzzy result: %v", fuzzy)
	}
}

func TestIndexManagerSkipsUnchanged(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewSQLiteStore(filepath.Join(tmpDir, "index.db"))
	if err != nil {
		t.Fatalf("sqlite init failed: %v", err)
	}
	defer store.Close()
	manager := NewIndexManager(store, IndexConfig{WorkspacePath: tmpDir})
	path := filepath.Join(tmpDir, "main.py")
	writeFile(t, path, "x = 1\n")
	if err := manager.IndexFile(path); err != nil {
		t.Fatalf("index file failed: %v", err)
	}
	first, err := manager.LastIndexedAt(path)
	if err != nil {
		t.Fatalf("last indexed: %v", err)
	}
	if err := manager.IndexFile(path); err != nil {
		t.Fatalf("reindex failed: %v", err)
	}
	second, _ := manager.LastIndexedAt(path)
	if !first.Equal(second) {
		t.Fatalf("unchanged file was reindexed: %v != %v", first, second)
	}
	if err := manager.IndexFile(filepath.Join(tmpDir, "notes.txt")); !errors.Is(err, ErrUnsupportedLanguage) {
		t.Fatalf("expected unsupported language, got %v", err)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
}

func TestIndexWatcherReindexesChanges(t *testing.T) {
	workspace := t.TempDir()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("sqlite init failed: %v", err)
	}
	defer store.Close()
	writeFile(t, filepath.Join(workspace, "ignored", "skip.py"), "x = 1\n")

	manager := NewIndexManager(store, IndexConfig{
		WorkspacePath:  workspace,
		IgnorePatterns: []string{"**/ignored/**", "ignored"},
	})
	type batch struct{ indexed, removed []string }
	batches := make(chan batch, 8)
	watcher, err := NewIndexWatcher(manager,
		WithDebounce(20*time.Millisecond),
		WithBatchHandler(func(indexed, removed []string) {
			batches <- batch{indexed, removed}
		}))
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	watcher.Start(ctx)
	defer watcher.Stop()

	waitFor := func(match func(batch) bool) {
		t.Helper()
		deadline := time.After(5 * time.Second)
		for {
			select {
			case b := <-batches:
				if match(b) {
					return
				}
			case <-deadline:
				t.Fatal("timed out waiting for index batch")
			}
		}
	}

	path := filepath.Join(workspace, "app.py")
	writeFile(t, path, "class Watched:\n    pass\n")
	waitFor(func(b batch) bool {
		if len(b.indexed) != 1 || b.indexed[0] != path {
			return false
		}
		hits, err := store.SymbolsByName("Watched")
		return err == nil && len(hits) == 1
	})

	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	waitFor(func(b batch) bool { return len(b.removed) == 1 && b.removed[0] == path })
	if _, err := store.GetFileByPath(path); !errors.Is(err, ErrNotFound) {
		t.Fatalf("removed file still indexed: %v", err)
	}
}

func TestIndexWatcherStopWithoutStart(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("sqlite init failed: %v", err)
	}
	defer store.Close()
	manager := NewIndexManager(store, IndexConfig{WorkspacePath: t.TempDir()})
	watcher, err := NewIndexWatcher(manager)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}

	stopped := make(chan struct{})
	go func() {
		watcher.Stop()
		watcher.Stop()
		watcher.Start(context.Background())
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked on a watcher that was never started")
	}
}
