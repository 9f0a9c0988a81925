package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce collapses the burst of events an editor save produces.
const reloadDebounce = 200 * time.Millisecond

// Watch reloads the catalog file at path into h whenever it is written or
// replaced. A file that fails to load is logged and the catalog in force is
// kept. Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, h *Holder, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if err := validatePath(path); err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("catalog: create watcher: %w", err)
	}
	defer w.Close()

	// Watch the directory so rename-over saves are seen.
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("catalog: resolve %s: %w", path, err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("catalog: watch %s: %w", filepath.Dir(abs), err)
	}
	logger.Info("watching catalog file", "path", abs)

	timer := time.NewTimer(reloadDebounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			timer.Reset(reloadDebounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("catalog watcher error", "error", err)
		case <-timer.C:
			reload(abs, h, logger)
		}
	}
}

func reload(path string, h *Holder, logger *slog.Logger) {
	c, err := LoadFile(path)
	if err != nil {
		logger.Error("catalog reload rejected, keeping current catalog", "path", path, "error", err)
		return
	}
	prev := h.Load()
	h.Store(c)
	if prev == nil || prev.Version() != c.Version() {
		logger.Info("catalog reloaded", "path", path, "version", c.Version())
	}
}
