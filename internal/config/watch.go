package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultWatchDelay coalesces the burst of events an editor save produces.
const DefaultWatchDelay = 200 * time.Millisecond

// FileWatcher calls a function after a file changes. The parent directory
// is watched so atomic replace-on-save is seen as well.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	path     string
	onChange func()
	debounce func(func())
	log      *zap.Logger

	closed    atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
}

func WatchFile(path string, delay time.Duration, onChange func(), logger *zap.Logger) (*FileWatcher, error) {
	if delay <= 0 {
		delay = DefaultWatchDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	path = filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %q: %w", filepath.Dir(path), err)
	}

	w := &FileWatcher{
		watcher:  watcher,
		path:     path,
		onChange: onChange,
		debounce: debounce.New(delay),
		log:      logger.With(zap.String("path", path)),
		done:     make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *FileWatcher) run() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			w.log.Debug("file changed", zap.String("op", ev.Op.String()))
			w.debounce(w.fire)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("file watcher error", zap.Error(err))
		}
	}
}

func (w *FileWatcher) fire() {
	if w.closed.Load() {
		return
	}
	w.onChange()
}

// Close stops watching; a pending debounced call is dropped.
func (w *FileWatcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		w.closed.Store(true)
		err = w.watcher.Close()
		<-w.done
	})
	return err
}
