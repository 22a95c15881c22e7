package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/crateside/shop_api/internal/service"
)

// Gaps restored per sweep. One sweep per interval keeps the load flat even
// after a large catalog import lands.
const backfillBatchSize = 100

// BackfillWorker periodically restores order lines that were skipped because
// their catalog item had not been mirrored yet.
type BackfillWorker struct {
	orderSvc *service.OrderService
	interval time.Duration
}

// NewBackfillWorker constructs a BackfillWorker.
func NewBackfillWorker(orderSvc *service.OrderService, interval time.Duration) *BackfillWorker {
	return &BackfillWorker{
		orderSvc: orderSvc,
		interval: interval,
	}
}

// Start begins the periodic backfill loop until context is canceled.
func (w *BackfillWorker) Start(ctx context.Context) {
	log.Info().Dur("interval", w.interval).Msg("Starting backfill worker")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.run()
		case <-ctx.Done():
			log.Info().Msg("Backfill worker stopped")
			return
		}
	}
}

func (w *BackfillWorker) run() {
	restored, err := w.orderSvc.Backfill(backfillBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("Failed to backfill order lines")
		return
	}
	if restored > 0 {
		log.Info().Int("restored", restored).Msg("Order line backfill completed")
	}
}
