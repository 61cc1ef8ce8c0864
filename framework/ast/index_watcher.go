package ast

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// IndexWatcher keeps an index current by re-extracting files as they change
// on disk. Bursts of events are debounced into batches.
type IndexWatcher struct {
	manager  *IndexManager
	watcher  *fsnotify.Watcher
	logger   *zap.Logger
	debounce time.Duration
	onBatch  func(indexed, removed []string)

	mu      sync.Mutex
	started bool
	stopped bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// WatchOption customizes an IndexWatcher.
type WatchOption func(*IndexWatcher)

// WithDebounce sets the quiet period before a batch is applied.
func WithDebounce(d time.Duration) WatchOption {
	return func(w *IndexWatcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithWatchLogger routes watcher diagnostics to logger.
func WithWatchLogger(logger *zap.Logger) WatchOption {
	return func(w *IndexWatcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithBatchHandler is called after every applied batch with the sorted paths
// that were re-indexed and removed.
func WithBatchHandler(fn func(indexed, removed []string)) WatchOption {
	return func(w *IndexWatcher) { w.onBatch = fn }
}

// NewIndexWatcher registers every non-ignored directory under the manager's
// workspace.
func NewIndexWatcher(manager *IndexManager, opts ...WatchOption) (*IndexWatcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &IndexWatcher{
		manager:  manager,
		watcher:  fw,
		logger:   zap.NewNop(),
		debounce: 300 * time.Millisecond,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if err := w.addTree(manager.root()); err != nil {
		_ = fw.Close()
		return nil, err
	}
	return w, nil
}

func (w *IndexWatcher) addTree(dir string) error {
	root := w.manager.root()
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.manager.shouldIgnore(root, path) {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

// Start runs the event loop until ctx ends or Stop is called. Calls after
// the first, or after Stop, do nothing.
func (w *IndexWatcher) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started || w.stopped {
		return
	}
	w.started = true
	go w.watch(ctx)
}

// Stop ends the event loop, if one is running, and releases the OS watches.
func (w *IndexWatcher) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	started := w.started
	w.mu.Unlock()

	close(w.stopCh)
	if started {
		<-w.doneCh
	}
	_ = w.watcher.Close()
}

func (w *IndexWatcher) watch(ctx context.Context) {
	defer close(w.doneCh)

	pending := make(map[string]fsnotify.Op)
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(event.Name); err != nil {
						w.logger.Warn("watch new directory", zap.String("path", event.Name), zap.Error(err))
					}
					continue
				}
			}
			pending[event.Name] |= event.Op
			timer.Reset(w.debounce)
		case <-timer.C:
			w.apply(pending)
			pending = make(map[string]fsnotify.Op)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *IndexWatcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	return !w.manager.Ignored(event.Name)
}

func (w *IndexWatcher) apply(pending map[string]fsnotify.Op) {
	if len(pending) == 0 {
		return
	}
	paths := make([]string, 0, len(pending))
	for path := range pending {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var indexed, removed []string
	for _, path := range paths {
		if !w.manager.Supports(path) {
			continue
		}
		info, err := os.Stat(path)
		switch {
		case err != nil:
			if err := w.manager.RemoveFile(path); err != nil {
				w.logger.Warn("remove from index", zap.String("path", path), zap.Error(err))
				continue
			}
			removed = append(removed, path)
		case info.IsDir():
		default:
			if err := w.manager.IndexFile(path); err != nil {
				w.logger.Warn("reindex", zap.String("path", path), zap.Error(err))
				continue
			}
			indexed = append(indexed, path)
		}
	}
	if len(indexed) == 0 && len(removed) == 0 {
		return
	}
	w.logger.Info("index updated", zap.Int("indexed", len(indexed)), zap.Int("removed", len(removed)))
	if w.onBatch != nil {
		w.onBatch(indexed, removed)
	}
}
