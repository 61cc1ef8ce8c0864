package ast

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hbollon/go-edlib"
	"go.uber.org/zap"
)

// IndexConfig configures the IndexManager.
type IndexConfig struct {
	WorkspacePath   string
	ParallelWorkers int
	// IgnorePatterns are doublestar globs matched against workspace-relative
	// slash paths, e.g. "**/.venv/**".
	IgnorePatterns []string
}

// IndexManager walks a workspace, extracts supported files and persists their
// symbol records.
type IndexManager struct {
	store            SymbolStore
	registry         *ExtractorRegistry
	languageDetector *LanguageDetector
	logger           *zap.Logger
	mu               sync.Mutex
	indexing         map[string]bool
	config           IndexConfig
	pathFilter       func(path string, isDir bool) bool
}

// IndexOption customizes an IndexManager.
type IndexOption func(*IndexManager)

// WithIndexLogger routes indexing diagnostics to logger.
func WithIndexLogger(logger *zap.Logger) IndexOption {
	return func(im *IndexManager) {
		if logger != nil {
			im.logger = logger
		}
	}
}

// WithRegistry replaces the default extractor registry.
func WithRegistry(registry *ExtractorRegistry) IndexOption {
	return func(im *IndexManager) {
		if registry != nil {
			im.registry = registry
		}
	}
}

// NewIndexManager builds a manager with the default extractors.
func NewIndexManager(store SymbolStore, config IndexConfig, opts ...IndexOption) *IndexManager {
	manager := &IndexManager{
		store:            store,
		registry:         DefaultRegistry(),
		languageDetector: NewLanguageDetector(),
		logger:           zap.NewNop(),
		indexing:         make(map[string]bool),
		config:           config,
	}
	for _, opt := range opts {
		opt(manager)
	}
	return manager
}

// SetPathFilter installs an optional filter that can skip directories/files
// during indexing.
func (im *IndexManager) SetPathFilter(filter func(path string, isDir bool) bool) {
	im.mu.Lock()
	defer im.mu.Unlock()
	im.pathFilter = filter
}

// Supports reports whether path has a registered extractor.
func (im *IndexManager) Supports(path string) bool {
	return im.registry.Supports(im.languageDetector.Detect(path))
}

// IndexFile extracts and stores symbols for a file path. Unchanged content
// is skipped.
func (im *IndexManager) IndexFile(path string) error {
	im.mu.Lock()
	filter := im.pathFilter
	if filter != nil && !filter(path, false) {
		im.mu.Unlock()
		return nil
	}
	if im.indexing[path] {
		im.mu.Unlock()
		return fmt.Errorf("index already running for %s", path)
	}
	im.indexing[path] = true
	im.mu.Unlock()
	defer func() {
		im.mu.Lock()
		delete(im.indexing, path)
		im.mu.Unlock()
	}()

	language := im.languageDetector.Detect(path)
	extractor, err := im.registry.New(language)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	contentHash := HashContent(string(content))

	if existing, err := im.store.GetFileByPath(path); err == nil && existing != nil {
		if existing.ContentHash == contentHash {
			im.logger.Debug("index skip unchanged", zap.String("path", path))
			return nil
		}
	}

	extractor.Extract(string(content))
	records := extractor.Records()
	file := &FileRecord{
		ID:          GenerateFileID(path),
		Path:        path,
		Language:    language,
		ContentHash: contentHash,
		IndexedAt:   time.Now().UTC(),
	}
	if err := im.store.SaveFile(file, records); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	im.logger.Debug("indexed file",
		zap.String("path", path),
		zap.String("language", language),
		zap.Int("records", len(records)))
	return nil
}

// IndexWorkspace walks the workspace and indexes every supported file.
func (im *IndexManager) IndexWorkspace(ctx context.Context) error {
	root := im.root()
	var files []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		im.mu.Lock()
		filter := im.pathFilter
		im.mu.Unlock()
		if d.IsDir() {
			if path != root && (im.shouldIgnore(root, path) || (filter != nil && !filter(path, true))) {
				return filepath.SkipDir
			}
			return nil
		}
		if filter != nil && !filter(path, false) {
			return nil
		}
		if im.shouldIgnore(root, path) || !im.Supports(path) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return err
	}
	im.logger.Info("indexing workspace", zap.String("root", root), zap.Int("files", len(files)))
	if im.config.ParallelWorkers > 1 {
		return im.indexFilesParallel(ctx, files)
	}
	return im.indexFilesSequential(ctx, files)
}

// RemoveFile drops the stored records of path.
func (im *IndexManager) RemoveFile(path string) error {
	if err := im.store.DeleteFile(GenerateFileID(path)); err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	im.logger.Debug("removed file", zap.String("path", path))
	return nil
}

// Ignored reports whether path matches one of the ignore patterns.
func (im *IndexManager) Ignored(path string) bool {
	return im.shouldIgnore(im.root(), path)
}

func (im *IndexManager) root() string {
	if im.config.WorkspacePath == "" {
		return "."
	}
	return im.config.WorkspacePath
}

func (im *IndexManager) shouldIgnore(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)
	base := filepath.Base(path)
	for _, pattern := range im.config.IgnorePatterns {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
		if ok, err := doublestar.Match(pattern, base); err == nil && ok {
			return true
		}
	}
	return false
}

func (im *IndexManager) indexFilesSequential(ctx context.Context, files []string) error {
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := im.IndexFile(file); err != nil {
			im.logger.Warn("index warning", zap.String("path", file), zap.Error(err))
		}
	}
	return nil
}

func (im *IndexManager) indexFilesParallel(ctx context.Context, files []string) error {
	workerCount := im.config.ParallelWorkers
	if workerCount <= 0 {
		workerCount = 2
	}
	var wg sync.WaitGroup
	fileCh := make(chan string)
	errCh := make(chan error, len(files))
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range fileCh {
				if err := im.IndexFile(file); err != nil {
					errCh <- fmt.Errorf("%s: %w", file, err)
				}
			}
		}()
	}
feed:
	for _, file := range files {
		select {
		case fileCh <- file:
		case <-ctx.Done():
			break feed
		}
	}
	close(fileCh)
	wg.Wait()
	close(errCh)
	for err := range errCh {
		im.logger.Warn("index warning", zap.Error(err))
	}
	return ctx.Err()
}

// QuerySymbol looks up symbols whose name matches the LIKE pattern.
func (im *IndexManager) QuerySymbol(pattern string) ([]StoredSymbol, error) {
	return im.store.SearchSymbols(SymbolQuery{
		NamePattern: pattern,
		Kinds:       []SymbolKind{SymbolKindClass, SymbolKindFunction, SymbolKindVariable, SymbolKindImport},
		Limit:       100,
	})
}

// FuzzyMatch is one FuzzySearch hit.
type FuzzyMatch struct {
	Name  string  `json:"name"`
	Score float32 `json:"score"`
}

// FuzzySearch ranks every indexed name by Jaro-Winkler similarity to name
// and returns the best limit matches.
func (im *IndexManager) FuzzySearch(name string, limit int) ([]FuzzyMatch, error) {
	names, err := im.store.SymbolNames()
	if err != nil {
		return nil, err
	}
	query := strings.ToLower(name)
	matches := make([]FuzzyMatch, 0, len(names))
	for _, candidate := range names {
		score, err := edlib.StringsSimilarity(query, strings.ToLower(candidate), edlib.JaroWinkler)
		if err != nil || score <= 0 {
			continue
		}
		matches = append(matches, FuzzyMatch{Name: candidate, Score: score})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Name < matches[j].Name
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// Stats proxies store.Stats for callers.
func (im *IndexManager) Stats() (*IndexStats, error) {
	return im.store.Stats()
}

// LastIndexedAt fetches the timestamp recorded for a path, if any.
func (im *IndexManager) LastIndexedAt(path string) (time.Time, error) {
	file, err := im.store.GetFileByPath(path)
	if err != nil {
		return time.Time{}, err
	}
	return file.IndexedAt, nil
}

// Store exposes the underlying SymbolStore for advanced queries.
func (im *IndexManager) Store() SymbolStore {
	return im.store
}
