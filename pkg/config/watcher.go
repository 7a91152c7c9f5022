package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// reloadDelay debounces bursts of file system events. Editors typically
// produce several events per save.
const reloadDelay = 500 * time.Millisecond

// Watcher reloads a settings file when it changes and hands the result to
// a callback.
type Watcher struct {
	path    string
	logger  zerolog.Logger
	watcher *fsnotify.Watcher

	mu          sync.Mutex
	reloadTimer *time.Timer
}

// NewWatcher creates a watcher for the given settings file.
func NewWatcher(path string, logger zerolog.Logger) *Watcher {
	return &Watcher{
		path:   path,
		logger: logger.With().Str("component", "config-watcher").Logger(),
	}
}

// Watch starts watching the settings file and calls reloadFn with the new
// settings after every successful reload. A file that reloads with errors
// is logged and skipped; the previous settings stay in effect. Watching
// stops when ctx is cancelled.
func (w *Watcher) Watch(ctx context.Context, reloadFn func(*Settings)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	w.watcher = watcher

	// Watch the directory rather than the file: editors that save via
	// rename-and-replace would otherwise detach the watch on first save.
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch settings directory: %w", err)
	}

	go w.processEvents(ctx, reloadFn)

	w.logger.Info().
		Str("path", w.path).
		Msg("Started watching settings file")

	return nil
}

// processEvents handles file system events and triggers debounced reloads.
func (w *Watcher) processEvents(ctx context.Context, reloadFn func(*Settings)) {
	for {
		select {
		case <-ctx.Done():
			_ = w.watcher.Close()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			w.logger.Debug().
				Str("file", event.Name).
				Str("op", event.Op.String()).
				Msg("Settings file changed")

			w.mu.Lock()
			if w.reloadTimer != nil {
				w.reloadTimer.Stop()
			}
			w.reloadTimer = time.AfterFunc(reloadDelay, func() {
				w.triggerReload(reloadFn)
			})
			w.mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("Watcher error")
		}
	}
}

// triggerReload re-reads the settings file and hands the result to the
// reload callback.
func (w *Watcher) triggerReload(reloadFn func(*Settings)) {
	settings, err := Load(w.path)
	if err != nil {
		w.logger.Error().Err(err).Msg("Failed to reload settings")
		return
	}

	reloadFn(settings)

	w.logger.Info().
		Int("profiles", len(settings.Profiles)).
		Msg("Settings reloaded")
}

// Stop stops watching. Safe to call regardless of whether Watch succeeded.
func (w *Watcher) Stop() error {
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}
