package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 100 * time.Millisecond

// fileWatcher fires a callback when a single file changes. It watches the
// parent directory so atomic rename-over writes are seen too.
type fileWatcher struct {
	watcher *fsnotify.Watcher
	path    string
	logger  *slog.Logger
}

func newFileWatcher(path string, logger *slog.Logger) (*fileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("watch usage file: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	return &fileWatcher{watcher: w, path: abs, logger: logger}, nil
}

// Run delivers debounced change notifications to onChange until ctx is
// cancelled or the watcher is closed. On return no notification is pending
// and any onChange call in progress has finished.
func (w *fileWatcher) Run(ctx context.Context, onChange func()) {
	var (
		mu      sync.Mutex
		timer   *time.Timer
		pending sync.WaitGroup
	)
	fire := func() {
		defer pending.Done()
		onChange()
	}
	// stop cancels a scheduled notification. The caller holds mu.
	stop := func() {
		if timer != nil && timer.Stop() {
			pending.Done()
		}
		timer = nil
	}
	defer func() {
		mu.Lock()
		stop()
		mu.Unlock()
		pending.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			w.logger.Debug("usage file changed", "path", event.Name, "op", event.Op.String())
			mu.Lock()
			stop()
			pending.Add(1)
			timer = time.AfterFunc(watchDebounce, fire)
			mu.Unlock()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", "error", err)
		}
	}
}

func (w *fileWatcher) Close() error {
	return w.watcher.Close()
}
