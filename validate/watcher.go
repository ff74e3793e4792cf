package validate

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatcherConfig configures re-validation on file change.
type WatcherConfig struct {
	// Root is the directory tree to watch.
	Root string

	// DebounceDelay is how long to wait for more changes before
	// re-validating.
	DebounceDelay time.Duration

	// Logger for watch events.
	Logger *slog.Logger
}

// WatchEvent is one re-validation outcome.
type WatchEvent struct {
	// Path is the changed file.
	Path string

	// Result is nil when the file is untagged or was deleted.
	Result *Result

	// Err reports a read or validation problem.
	Err error
}

// Watcher re-validates files as they change. Changes are debounced so a
// save burst triggers one validation per file.
type Watcher struct {
	config  WatcherConfig
	runner  *Runner
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op

	events chan WatchEvent
}

// NewWatcher creates a watcher that validates through runner.
func NewWatcher(runner *Runner, config WatcherConfig) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if config.DebounceDelay == 0 {
		config.DebounceDelay = 200 * time.Millisecond
	}

	return &Watcher{
		config:  config,
		runner:  runner,
		watcher: fsw,
		logger:  logger,
		pending: make(map[string]fsnotify.Op),
		events:  make(chan WatchEvent, 100),
	}, nil
}

// Events returns the re-validation event stream.
func (w *Watcher) Events() <-chan WatchEvent {
	return w.events
}

// Start registers the directory tree and begins watching until ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	err := filepath.Walk(w.config.Root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		base := filepath.Base(path)
		if base != "." && (strings.HasPrefix(base, ".") || base == "node_modules" || base == "vendor") {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
	if err != nil {
		return err
	}

	go w.loop(ctx)
	return nil
}

// Close stops the underlying filesystem watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) loop(ctx context.Context) {
	ticker := time.NewTicker(w.config.DebounceDelay)
	defer ticker.Stop()
	defer close(w.events)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				if event.Op&fsnotify.Create != 0 {
					_ = w.watcher.Add(event.Name)
				}
				continue
			}
			w.pendingMu.Lock()
			w.pending[event.Name] = event.Op
			w.pendingMu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", slog.String("error", err.Error()))

		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

// flush validates every pending path once.
func (w *Watcher) flush(ctx context.Context) {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	pending := w.pending
	w.pending = make(map[string]fsnotify.Op)
	w.pendingMu.Unlock()

	for path, op := range pending {
		if op&(fsnotify.Remove|fsnotify.Rename) != 0 {
			w.events <- WatchEvent{Path: path}
			continue
		}
		res, err := w.runner.ValidateFile(ctx, path)
		w.events <- WatchEvent{Path: path, Result: res, Err: err}
	}
}
