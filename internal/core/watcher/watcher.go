// Package watcher reports source tree changes in debounced batches.
package watcher

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"strata/internal/shared/observability"

	"github.com/fsnotify/fsnotify"
)

// Filter decides which paths matter. discovery.Lister satisfies it, so the
// watcher and the loader agree on what a source file is.
type Filter interface {
	ExcludesDir(name string) bool
	Accepts(name string) bool
}

type Watcher struct {
	fsWatcher  *fsnotify.Watcher
	debounce   time.Duration
	filter     Filter
	onChange   func([]string)
	callbackMu sync.Mutex

	pending   map[string]time.Time
	pendingMu sync.Mutex
	timer     *time.Timer
}

func NewWatcher(debounce time.Duration, filter Filter, onChange func([]string)) (*Watcher, error) {
	if onChange == nil || filter == nil {
		return nil, os.ErrInvalid
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		fsWatcher: fsw,
		debounce:  debounce,
		filter:    filter,
		onChange:  onChange,
		pending:   make(map[string]time.Time),
	}, nil
}

func (w *Watcher) SetDebounce(debounce time.Duration) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	w.debounce = debounce
}

// Watch registers every non-excluded directory under paths and starts the
// event loop.
func (w *Watcher) Watch(paths []string) error {
	for _, path := range paths {
		if err := w.watchRecursive(path); err != nil {
			return err
		}
	}

	go w.run()
	return nil
}

func (w *Watcher) watchRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			if path != root && w.filter.ExcludesDir(info.Name()) {
				return filepath.SkipDir
			}
			return w.fsWatcher.Add(path)
		}

		return nil
	})
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			observability.WatcherEventsTotal.Inc()
			w.handle(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			slog.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	base := filepath.Base(event.Name)

	if event.Op&fsnotify.Create == fsnotify.Create {
		info, err := os.Stat(event.Name)
		if err == nil && info.IsDir() {
			if w.filter.ExcludesDir(base) {
				return
			}
			if err := w.watchRecursive(event.Name); err != nil {
				slog.Warn("failed to watch new directory", "path", event.Name, "error", err)
				return
			}
			// a new package changes the tree even before it has files
			w.scheduleChange(event.Name)
			w.enqueueExistingFiles(event.Name)
			return
		}
	}

	removed := event.Op&(fsnotify.Remove|fsnotify.Rename) != 0
	if removed && filepath.Ext(base) == "" && !w.filter.ExcludesDir(base) {
		// removed directories cannot be stat'ed; treat extensionless paths
		// as packages
		w.scheduleChange(event.Name)
		return
	}

	if !w.filter.Accepts(base) {
		return
	}
	if removed || event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
		w.scheduleChange(event.Name)
	}
}

func (w *Watcher) scheduleChange(path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	w.pending[path] = time.Now()

	if w.timer != nil {
		w.timer.Stop()
	}

	w.timer = time.AfterFunc(w.debounce, w.flushChanges)
}

func (w *Watcher) flushChanges() {
	w.pendingMu.Lock()
	paths := make([]string, 0, len(w.pending))
	for path := range w.pending {
		paths = append(paths, path)
	}
	w.pending = make(map[string]time.Time)
	w.pendingMu.Unlock()

	if len(paths) > 0 {
		sort.Strings(paths)
		w.callbackMu.Lock()
		defer w.callbackMu.Unlock()
		w.onChange(paths)
	}
}

func (w *Watcher) Close() error {
	w.pendingMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pendingMu.Unlock()
	return w.fsWatcher.Close()
}

func (w *Watcher) enqueueExistingFiles(root string) {
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info == nil || info.IsDir() {
			return nil
		}
		if !w.filter.Accepts(info.Name()) {
			return nil
		}
		w.scheduleChange(path)
		return nil
	})
}
