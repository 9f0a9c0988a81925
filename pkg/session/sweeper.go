package session

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically discards idle sessions.
type Sweeper struct {
	store    *Store
	interval time.Duration
	logger   *slog.Logger
}

// NewSweeper creates a Sweeper that runs every interval.
func NewSweeper(store *Store, interval time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{store: store, interval: interval, logger: logger}
}

// Run sweeps until the context is cancelled.
func (w *Sweeper) Run(ctx context.Context) {
	if w.store == nil || w.interval <= 0 || w.store.cfg.IdleTTL <= 0 {
		w.logger.Info("session sweeper disabled",
			"interval", w.interval.String(),
			"hasStore", w.store != nil)
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("session sweeper started",
		"idleTTL", w.store.cfg.IdleTTL.String(),
		"interval", w.interval.String())

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("session sweeper stopped")
			return
		case <-ticker.C:
			if n := w.store.Sweep(w.store.now()); n > 0 {
				w.logger.Info("idle sessions discarded", "count", n, "remaining", w.store.Len())
			}
		}
	}
}
