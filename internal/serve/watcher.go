package serve

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"opskit/pkg/logging"
)

// ManifestWatcher observes the plugin and extension manifest directories
// while the server runs. Discovery happens once at startup, so a manifest
// change cannot take effect in the running process; the watcher logs that
// a restart is needed instead of silently ignoring the edit.
type ManifestWatcher struct {
	dirs []string

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	stopCh  chan struct{}
}

// NewManifestWatcher creates a watcher for the given directories. Nothing
// is watched until Start.
func NewManifestWatcher(dirs ...string) *ManifestWatcher {
	return &ManifestWatcher{dirs: dirs}
}

// Start begins watching. Directories that do not exist are skipped; a
// manifest directory the operator never created is the normal case.
// Start is a no-op when the watcher is already running.
func (w *ManifestWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.watcher != nil {
		w.mu.Unlock()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.watcher = watcher
	w.stopCh = make(chan struct{})
	w.mu.Unlock()

	watched := 0
	for _, dir := range w.dirs {
		if _, err := os.Stat(dir); err != nil {
			logging.Debug("serve", "not watching %s: %v", dir, err)
			continue
		}
		if err := watcher.Add(dir); err != nil {
			logging.Warn("serve", "cannot watch %s: %v", dir, err)
			continue
		}
		watched++
		logging.Debug("serve", "watching manifest directory %s", dir)
	}
	if watched == 0 {
		logging.Debug("serve", "no manifest directories to watch")
	}

	go w.processEvents(ctx)
	return nil
}

// Stop ends watching and releases the underlying watcher.
func (w *ManifestWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.watcher == nil {
		return
	}
	close(w.stopCh)
	w.watcher.Close()
	w.watcher = nil
}

func (w *ManifestWatcher) processEvents(ctx context.Context) {
	w.mu.Lock()
	watcher := w.watcher
	stopCh := w.stopCh
	w.mu.Unlock()
	if watcher == nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logging.Error("serve", err, "manifest watcher error")
		}
	}
}

func (w *ManifestWatcher) handleEvent(event fsnotify.Event) {
	if !isManifestFile(event.Name) {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	logging.Warn("serve", "module manifest %s changed; restart opskit to apply", event.Name)
}

func isManifestFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
