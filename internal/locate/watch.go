package locate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Wait blocks until one of candidates exists and returns it. It returns
// immediately if a candidate already exists. Candidate directories that do
// not exist yet are not watched.
func Wait(ctx context.Context, candidates []string, logger *slog.Logger) (string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path, ok := First(candidates); ok {
		return path, nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return "", fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	watched := 0
	seen := make(map[string]bool)
	for _, c := range candidates {
		dir := filepath.Dir(c)
		if seen[dir] {
			continue
		}
		seen[dir] = true
		if _, err := os.Stat(dir); err != nil {
			logger.Debug("skipping missing candidate directory", "dir", dir)
			continue
		}
		if err := watcher.Add(dir); err != nil {
			logger.Warn("cannot watch candidate directory", "dir", dir, "error", err)
			continue
		}
		watched++
	}
	if watched == 0 {
		return "", fmt.Errorf("none of the candidate directories exist")
	}

	// The binary may have landed between the first check and watcher.Add.
	if path, ok := First(candidates); ok {
		return path, nil
	}

	logger.Info("waiting for backend sidecar", "dirs", watched)

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return "", fmt.Errorf("watcher closed")
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Chmod) == 0 {
				continue
			}
			logger.Debug("candidate directory changed", "file", event.Name, "op", event.Op)
			if path, ok := First(candidates); ok {
				return path, nil
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return "", fmt.Errorf("watcher closed")
			}
			logger.Error("file watcher error", "error", err)
		}
	}
}
