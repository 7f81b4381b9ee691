package config

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads configuration when the backing file changes, so
// threshold and provider tuning takes effect without a restart.
type Watcher struct {
	path    string
	logger  *slog.Logger
	loader  *Loader
	onCfg   func(*Config)
	watcher *fsnotify.Watcher
}

// NewWatcher creates a watcher for the given config file. onChange is
// called with the freshly loaded config after every successful reload.
func NewWatcher(path string, logger *slog.Logger, onChange func(*Config)) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory, not the file: editors replace files on save,
	// which drops a direct file watch.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, err
	}

	return &Watcher{
		path:    path,
		logger:  logger,
		loader:  NewLoader(logger),
		onCfg:   onChange,
		watcher: fw,
	}, nil
}

// Run processes file events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("config watch error", slog.String("error", err.Error()))
		}
	}
}

// reload rebuilds the full layered configuration, not just the watched
// file, so settings owned by the user-level layer survive a reload.
func (w *Watcher) reload() {
	cfg, err := w.loader.LoadProjectFile(w.path)
	if err != nil {
		w.logger.Warn("config reload failed, keeping previous", slog.String("path", w.path), slog.String("error", err.Error()))
		return
	}

	w.logger.Info("config reloaded", slog.String("path", w.path))
	w.onCfg(cfg)
}
