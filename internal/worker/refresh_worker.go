package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/crateside/shop_api/internal/service"
)

// RefreshWorker periodically runs a full sync cycle against the POS.
type RefreshWorker struct {
	refreshSvc *service.RefreshService
	interval   time.Duration
}

// NewRefreshWorker constructs a RefreshWorker.
func NewRefreshWorker(refreshSvc *service.RefreshService, interval time.Duration) *RefreshWorker {
	return &RefreshWorker{
		refreshSvc: refreshSvc,
		interval:   interval,
	}
}

// Start begins the periodic refresh loop and listens for context cancellation.
func (w *RefreshWorker) Start(ctx context.Context) {
	log.Info().Dur("interval", w.interval).Msg("Starting refresh worker")

	// Run immediately on start so the mirror is warm before traffic arrives
	w.run(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.run(ctx)
		case <-ctx.Done():
			log.Info().Msg("Refresh worker stopped")
			return
		}
	}
}

func (w *RefreshWorker) run(ctx context.Context) {
	log.Info().Msg("Refreshing mirror from POS...")

	start := time.Now()
	if err := w.refreshSvc.RefreshAll(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to refresh mirror")
		return
	}

	log.Info().Dur("duration", time.Since(start)).Msg("Mirror refresh completed")
}
