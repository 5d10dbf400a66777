package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/youth-scoreboard/internal/config"
	"github.com/youth-scoreboard/internal/domain"
)

// ViewRefresher rebuilds and republishes public views
type ViewRefresher interface {
	ActiveCodes(ctx context.Context, limit int) ([]string, error)
	Refresh(ctx context.Context, code string) (*domain.PublicView, error)
}

// LiveWorker periodically republishes the public view of every live or
// halftime match so caches stay warm and spectator clocks resync.
type LiveWorker struct {
	views   ViewRefresher
	config  *config.LiveConfig
	logger  *slog.Logger
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
	running bool
}

// NewLiveWorker creates a new live worker
func NewLiveWorker(views ViewRefresher, cfg *config.LiveConfig, logger *slog.Logger) *LiveWorker {
	return &LiveWorker{
		views:  views,
		config: cfg,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start begins the background refresh loop
func (w *LiveWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info("live worker started", "interval", w.config.Interval)

	go w.run(ctx)
	return nil
}

// Stop stops the background refresh loop
func (w *LiveWorker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("live worker stopped")
	return nil
}

// run is the main worker loop
func (w *LiveWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.refreshAll(ctx)
		}
	}
}

// refreshAll republishes every active match and reports how many succeeded
func (w *LiveWorker) refreshAll(ctx context.Context) (refreshed, failed int) {
	startTime := time.Now()

	codes, err := w.views.ActiveCodes(ctx, w.config.Limit)
	if err != nil {
		w.logger.Error("failed to list active matches", "error", err)
		return 0, 0
	}

	for _, code := range codes {
		if _, err := w.views.Refresh(ctx, code); err != nil {
			w.logger.Error("failed to refresh match view",
				"match_code", code,
				"error", err,
			)
			failed++
			continue
		}
		refreshed++
	}

	w.logger.Debug("live refresh completed",
		"duration", time.Since(startTime),
		"refreshed", refreshed,
		"errors", failed,
	)
	return refreshed, failed
}

// IsRunning returns whether the worker is currently running
func (w *LiveWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// RunOnce runs a single refresh cycle. The server calls it at startup to
// warm the view cache.
func (w *LiveWorker) RunOnce(ctx context.Context) (refreshed, failed int) {
	return w.refreshAll(ctx)
}
