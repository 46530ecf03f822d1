// # internal/core/watcher/watcher.go
package watcher

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"

	"nekoscript/internal/shared/observability"
)

// Watcher reports batches of changed .neko files under one or more roots.
// Changes are debounced and files whose content did not change are dropped.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	debounce  time.Duration
	exclude   *Excluder
	onChange  func([]string)

	callbackMu sync.Mutex

	rootsMu sync.RWMutex
	roots   []string

	pending   map[string]struct{}
	hashes    map[string]uint64
	pendingMu sync.Mutex
	timer     *time.Timer

	done chan struct{}
}

func NewWatcher(debounce time.Duration, exclude []string, onChange func([]string)) (*Watcher, error) {
	if onChange == nil {
		return nil, os.ErrInvalid
	}
	excluder, err := NewExcluder(exclude)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fsWatcher: fsw,
		debounce:  debounce,
		exclude:   excluder,
		onChange:  onChange,
		pending:   make(map[string]struct{}),
		hashes:    make(map[string]uint64),
		done:      make(chan struct{}),
	}, nil
}

// Watch adds every non-excluded directory under paths and starts the event
// loop. Existing sources are hashed so an untouched save is not reported.
func (w *Watcher) Watch(paths []string) error {
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		w.rootsMu.Lock()
		w.roots = append(w.roots, abs)
		w.rootsMu.Unlock()
		if err := w.watchRecursive(abs, false); err != nil {
			return err
		}
	}
	go w.run()
	return nil
}

func (w *Watcher) watchRecursive(root string, schedule bool) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if w.excluded(path, true) {
				return filepath.SkipDir
			}
			return w.fsWatcher.Add(path)
		}
		if w.excluded(path, false) {
			return nil
		}
		if schedule {
			w.scheduleChange(path)
			return nil
		}
		if sum, ok := hashFile(path); ok {
			w.pendingMu.Lock()
			w.hashes[path] = sum
			w.pendingMu.Unlock()
		}
		return nil
	})
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			observability.WatcherEventsTotal.Inc()

			if event.Op&fsnotify.Create == fsnotify.Create {
				info, err := os.Stat(event.Name)
				if err == nil && info.IsDir() {
					if !w.excluded(event.Name, true) {
						if err := w.watchRecursive(event.Name, true); err != nil {
							slog.Warn("failed to watch new directory", "path", event.Name, "error", err)
						}
					}
					continue
				}
			}
			if w.excluded(event.Name, false) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.scheduleChange(event.Name)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			slog.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) scheduleChange(path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	w.pending[path] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flushChanges)
}

func (w *Watcher) flushChanges() {
	w.pendingMu.Lock()
	paths := make([]string, 0, len(w.pending))
	for path := range w.pending {
		sum, ok := hashFile(path)
		prev, seen := w.hashes[path]
		switch {
		case !ok && !seen:
			continue
		case !ok:
			delete(w.hashes, path)
		case seen && prev == sum:
			continue
		default:
			w.hashes[path] = sum
		}
		paths = append(paths, path)
	}
	w.pending = make(map[string]struct{})
	w.pendingMu.Unlock()

	if len(paths) == 0 {
		return
	}
	sort.Strings(paths)
	w.callbackMu.Lock()
	defer w.callbackMu.Unlock()
	w.onChange(paths)
}

func (w *Watcher) excluded(path string, dir bool) bool {
	if !dir && !IsSource(path) {
		return true
	}
	w.rootsMu.RLock()
	defer w.rootsMu.RUnlock()
	for _, root := range w.roots {
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		if w.exclude.Match(rel, dir) {
			return true
		}
	}
	return false
}

func (w *Watcher) Close() error {
	w.pendingMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pendingMu.Unlock()
	select {
	case <-w.done:
	default:
		close(w.done)
	}
	return w.fsWatcher.Close()
}

func hashFile(path string) (uint64, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	return xxhash.Sum64(data), true
}
