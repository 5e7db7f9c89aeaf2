package app

import (
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/gdamore/tcell/v2"
)

// fileChangedEvent is posted to the screen when a loaded file changes on
// disk, so the reload happens on the event loop.
type fileChangedEvent struct {
	tcell.EventTime
	path string
}

// watcher watches the directories of tracked files. Editors often replace
// a file instead of writing it in place, which a watch on the file itself
// would not survive.
type watcher struct {
	fs     *fsnotify.Watcher
	post   func(tcell.Event) error
	logger *slog.Logger

	mu      sync.Mutex
	tracked map[string]bool
	dirs    map[string]bool
}

func newWatcher(post func(tcell.Event) error, logger *slog.Logger) (*watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &watcher{
		fs:      fs,
		post:    post,
		logger:  logger,
		tracked: map[string]bool{},
		dirs:    map[string]bool{},
	}
	go w.run()
	return w, nil
}

func (w *watcher) track(path string) error {
	abs := absPath(path)
	dir := filepath.Dir(abs)

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.dirs[dir] {
		if err := w.fs.Add(dir); err != nil {
			return err
		}
		w.dirs[dir] = true
	}
	w.tracked[abs] = true
	return nil
}

func (w *watcher) isTracked(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tracked[absPath(path)]
}

func (w *watcher) run() {
	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if !w.isTracked(ev.Name) {
				continue
			}
			changed := &fileChangedEvent{path: ev.Name}
			changed.SetEventNow()
			if err := w.post(changed); err != nil {
				w.logger.Debug("dropped file change", "file", ev.Name, "err", err)
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher", "err", err)
		}
	}
}

func (w *watcher) Close() error {
	return w.fs.Close()
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
