package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/crateside/shop_api/internal/models"
	"github.com/crateside/shop_api/internal/service"
)

// ReconcileWorker periodically audits the mirror against the POS. It does
// not run at startup: the first refresh cycle has to land first or an empty
// mirror would read as wall-to-wall drift.
type ReconcileWorker struct {
	reportSvc *service.ReportService
	interval  time.Duration
}

// NewReconcileWorker constructs a ReconcileWorker.
func NewReconcileWorker(reportSvc *service.ReportService, interval time.Duration) *ReconcileWorker {
	return &ReconcileWorker{
		reportSvc: reportSvc,
		interval:  interval,
	}
}

// Start begins the periodic reconciliation loop until context is canceled.
func (w *ReconcileWorker) Start(ctx context.Context) {
	log.Info().Dur("interval", w.interval).Msg("Starting reconcile worker")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.run(ctx)
		case <-ctx.Done():
			log.Info().Msg("Reconcile worker stopped")
			return
		}
	}
}

func (w *ReconcileWorker) run(ctx context.Context) {
	for _, checkType := range []models.CheckType{models.CheckInventory, models.CheckOrders} {
		select {
		case <-ctx.Done():
			return
		default:
		}

		report, err := w.reportSvc.Run(ctx, checkType)
		if err != nil {
			log.Error().Err(err).Str("check_type", string(checkType)).Msg("Reconciliation check failed")
			continue
		}

		log.Info().
			Str("check_type", string(checkType)).
			Str("status", string(report.Status)).
			Int("total_checked", report.TotalChecked).
			Int("mismatches", report.MismatchCount).
			Int("missing_orders", len(report.MissingOrders)).
			Msg("Reconciliation check completed")
	}
}
