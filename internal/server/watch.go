package server

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// WatchPage reloads the page from path whenever it changes on disk, until
// ctx is cancelled. The directory is watched rather than the file so that
// editors replacing the file by rename are seen.
func (s *Server) WatchPage(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve page path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}
	s.log.Info("Watching page", zap.String("path", abs))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if filepath.Clean(event.Name) != abs || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			s.reloadFrom(abs)
		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			s.log.Warn("File watcher error", zap.Error(err))
		}
	}
}

func (s *Server) reloadFrom(path string) {
	page, err := os.ReadFile(path)
	if err != nil {
		s.log.Warn("Reading changed page failed", zap.String("path", path), zap.Error(err))
		return
	}
	if len(page) == 0 {
		// Truncation before a write shows up as an empty file.
		return
	}
	if err := s.SetPage(page); err != nil {
		s.log.Error("Reloading page failed", zap.String("path", path), zap.Error(err))
	}
}
