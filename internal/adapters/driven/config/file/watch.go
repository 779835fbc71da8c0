package file

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/docwatch/internal/logger"
)

// Watch reloads the store whenever its file is written, created or renamed
// into place, then calls onChange. It blocks until ctx is cancelled.
//
// The parent directory is watched rather than the file itself so that
// editors which save via rename are still observed.
func (s *ConfigStore) Watch(ctx context.Context, onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating config watcher: %w", err)
	}
	defer w.Close()

	dir := filepath.Dir(s.filePath)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	name := filepath.Clean(s.filePath)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != name || !isReloadEvent(event) {
				continue
			}
			if err := s.Load(); err != nil {
				logger.Warn("config reload %s: %v", name, err)
				continue
			}
			logger.Info("config reloaded from %s", name)
			if onChange != nil {
				onChange()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher: %v", err)
		}
	}
}

// isReloadEvent reports whether an event can change the file contents.
func isReloadEvent(event fsnotify.Event) bool {
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}
