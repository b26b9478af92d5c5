package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce collapses the burst of events an editor save produces.
const watchDebounce = 250 * time.Millisecond

// WatchOperator calls onChange with the freshly loaded settings every time
// the file at path is written. A file that fails to load is logged and
// skipped. It blocks until ctx is done.
func WatchOperator(ctx context.Context, path string, logger *slog.Logger, onChange func(Operator)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	// Watch the directory: editors often replace the file instead of writing it.
	path = filepath.Clean(path)
	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			pending = time.After(watchDebounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("settings file watch error", "error", err)
		case <-pending:
			pending = nil
			op, err := LoadOperator(path)
			if err != nil {
				logger.Warn("ignoring invalid settings file", "path", path, "error", err)
				continue
			}
			logger.Info("settings file reloaded", "path", path)
			onChange(op)
		}
	}
}
