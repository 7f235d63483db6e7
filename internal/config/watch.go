package config

import (
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the file+env layers of a Config whenever the backing file
// changes on disk and invokes onReload with the freshly validated Config.
// CLI flags are process-lifetime and are not reapplied by a reload.
type Watcher struct {
	watcher *fsnotify.Watcher
	path    string
	done    chan struct{}
}

// WatchFile starts watching path for changes and calls onReload on every
// write or create event that settles to a valid config. Reload errors are
// logged and the previous in-memory config is left untouched. Call Close to
// stop watching.
func WatchFile(path string, log *slog.Logger, onReload func(*Config)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	w := &Watcher{watcher: fsw, path: path, done: make(chan struct{})}
	go w.loop(log, onReload)
	return w, nil
}

func (w *Watcher) loop(log *slog.Logger, onReload func(*Config)) {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			cfg, err := ReloadFileAndEnv(w.path)
			if err != nil {
				log.Warn("config reload failed, keeping previous configuration", "error", err)
				continue
			}
			log.Info("configuration reloaded from disk")
			onReload(cfg)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn("config watcher error", "error", err)
		case <-w.done:
			return
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
