package background

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// watchedNames returns the files that change when the SQLite database at
// dbPath is written: the database itself and its WAL and journal files.
func watchedNames(dbPath string) map[string]bool {
	clean := filepath.Clean(dbPath)
	return map[string]bool{
		clean:              true,
		clean + "-wal":     true,
		clean + "-journal": true,
	}
}

// StartDatabaseWatcher calls notify whenever another process writes the
// database at dbPath. The containing directory is watched so the files may
// be created or replaced after the watcher starts. The watcher stops when
// ctx is done; the returned channel is closed once it has.
func StartDatabaseWatcher(ctx context.Context, dbPath string, notify func()) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	dir := filepath.Dir(filepath.Clean(dbPath))
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	names := watchedNames(dbPath)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() { _ = watcher.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !names[filepath.Clean(ev.Name)] {
					continue
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove) {
					slog.Debug("reminder database changed on disk", "file", ev.Name, "op", ev.Op.String())
					notify()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("database watcher error", "error", err)
			}
		}
	}()

	slog.Debug("watching reminder database", "path", dbPath)
	return done, nil
}
