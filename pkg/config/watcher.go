package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher watches declaration and settings files and triggers re-evaluation
// on change. Events are debounced so a burst of writes causes one reload.
type Watcher struct {
	watcher  *fsnotify.Watcher
	logger   zerolog.Logger
	debounce time.Duration
}

// NewWatcher creates a file watcher.
func NewWatcher(logger zerolog.Logger) *Watcher {
	return &Watcher{
		logger:   logger,
		debounce: 500 * time.Millisecond,
	}
}

// Watch starts watching paths and calls reloadFn after changes to .star or
// .cue files. It returns once watching is established; reloads happen in the
// background until ctx is cancelled.
func (w *Watcher) Watch(ctx context.Context, paths []string, reloadFn func() error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	w.watcher = watcher

	// Add paths to watcher
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			w.logger.Warn().Err(err).Str("path", path).Msg("Failed to stat path for watching")
			continue
		}

		if info.IsDir() {
			if err := w.watchDirectory(path); err != nil {
				w.logger.Warn().Err(err).Str("path", path).Msg("Failed to watch directory")
			}
		} else {
			if err := watcher.Add(path); err != nil {
				w.logger.Warn().Err(err).Str("path", path).Msg("Failed to watch file")
			}
		}
	}

	// Start watching in background
	go w.processEvents(ctx, reloadFn)

	w.logger.Info().
		Int("paths", len(paths)).
		Msg("Started watching declaration paths")

	return nil
}

// watchDirectory adds a directory tree to the watcher.
func (w *Watcher) watchDirectory(dirPath string) error {
	return filepath.WalkDir(dirPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return w.watcher.Add(path)
		}

		return nil
	})
}

// processEvents processes file system events and triggers reloads.
func (w *Watcher) processEvents(ctx context.Context, reloadFn func() error) {
	// Debounce reload events
	var reloadTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			if w.watcher != nil {
				_ = w.watcher.Close()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !strings.HasSuffix(event.Name, ".star") && !strings.HasSuffix(event.Name, ".cue") {
				continue
			}

			w.logger.Debug().
				Str("file", event.Name).
				Str("op", event.Op.String()).
				Msg("Declaration file changed")

			// Debounce reload
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			reloadTimer = time.AfterFunc(w.debounce, func() {
				w.logger.Info().Msg("Reloading declarations")
				if err := reloadFn(); err != nil {
					w.logger.Error().Err(err).Msg("Failed to reload declarations")
				}
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("Watcher error")
		}
	}
}
