package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/crateside/shop_api/internal/metrics"
	"github.com/crateside/shop_api/internal/models"
	"github.com/crateside/shop_api/internal/repository"
	"github.com/crateside/shop_api/pkg/pos"
)

// priceTolerance is the currency comparison threshold. Text and integer
// fields compare exactly; only money gets a tolerance.
var priceTolerance = decimal.NewFromFloat(0.01)

// ReconcileService audits the mirror against the POS. Checks are strictly
// read-only: the auditor reporting on writers must never become a second,
// possibly inconsistent writer itself. Callers persist and alert on the
// returned report.
type ReconcileService struct {
	pos               POSClient
	catalogRepo       *repository.CatalogRepository
	inventoryRepo     *repository.InventoryRepository
	orderRepo         *repository.OrderRepository
	propagationWindow time.Duration
	orderLookback     time.Duration
}

// NewReconcileService constructs a ReconcileService.
func NewReconcileService(
	posClient POSClient,
	catalogRepo *repository.CatalogRepository,
	inventoryRepo *repository.InventoryRepository,
	orderRepo *repository.OrderRepository,
	propagationWindow time.Duration,
	orderLookback time.Duration,
) *ReconcileService {
	return &ReconcileService{
		pos:               posClient,
		catalogRepo:       catalogRepo,
		inventoryRepo:     inventoryRepo,
		orderRepo:         orderRepo,
		propagationWindow: propagationWindow,
		orderLookback:     orderLookback,
	}
}

// CheckInventory compares every POS catalog item against the mirror: name
// exactly, price within the currency tolerance, stock level exactly. Items
// present on only one side are reported separately and excluded from the
// mismatch count; sync lag is an expected transient, not drift.
func (s *ReconcileService) CheckInventory(ctx context.Context) (*models.Report, error) {
	started := time.Now()

	external := make(map[string]pos.CatalogObject)
	counts := make(map[string]int)
	cursor := ""
	for {
		page, err := s.pos.ListCatalogItems(ctx, cursor)
		if err != nil {
			metrics.ReconciliationRunsTotal.WithLabelValues(string(models.CheckInventory), "error").Inc()
			return nil, err
		}

		ids := make([]string, 0, len(page.Items))
		for _, item := range page.Items {
			external[item.ID] = item
			ids = append(ids, item.ID)
		}
		if len(ids) > 0 {
			pageCounts, err := s.pos.BatchInventoryCounts(ctx, ids)
			if err != nil {
				metrics.ReconciliationRunsTotal.WithLabelValues(string(models.CheckInventory), "error").Inc()
				return nil, err
			}
			for _, c := range pageCounts {
				counts[c.ItemID] = c.Quantity
			}
		}

		if page.Cursor == "" {
			break
		}
		cursor = page.Cursor
	}

	mirrorItems, err := s.catalogRepo.ListItemsWithDetail()
	if err != nil {
		return nil, err
	}
	mirror := make(map[string]*models.ItemWithDetail, len(mirrorItems))
	for i := range mirrorItems {
		mirror[mirrorItems[i].ID] = &mirrorItems[i]
	}

	levels, err := s.inventoryRepo.CurrentLevels()
	if err != nil {
		return nil, err
	}
	mirrorStock := make(map[string]int, len(levels))
	for _, l := range levels {
		mirrorStock[l.ItemID] = l.StockLevel
	}

	report := &models.Report{
		CheckType:   models.CheckInventory,
		Mismatches:  []models.Mismatch{},
		GeneratedAt: time.Now().UTC(),
	}

	for id, ext := range external {
		m, ok := mirror[id]
		if !ok {
			report.ExternalOnly = append(report.ExternalOnly, id)
			continue
		}
		report.TotalChecked++

		if ext.Name != m.Name {
			report.Mismatches = append(report.Mismatches, models.Mismatch{
				ID: id, Field: "name", Expected: ext.Name, Actual: m.Name,
			})
		}

		extPrice := minorToDecimal(ext.PriceMinor)
		if extPrice.Sub(m.BasePrice).Abs().GreaterThanOrEqual(priceTolerance) {
			report.Mismatches = append(report.Mismatches, models.Mismatch{
				ID: id, Field: "basePrice", Expected: extPrice, Actual: m.BasePrice,
			})
		}

		if extCount, tracked := counts[id]; tracked {
			if level, observed := mirrorStock[id]; observed {
				if extCount != level {
					report.Mismatches = append(report.Mismatches, models.Mismatch{
						ID: id, Field: "stock", Expected: extCount, Actual: level,
					})
				}
			} else {
				// The POS counts it but the ledger has never seen it:
				// that is a dropped event, not a lag.
				report.Mismatches = append(report.Mismatches, models.Mismatch{
					ID: id, Field: "stock", Expected: extCount, Actual: nil,
				})
			}
		}
	}

	for id := range mirror {
		if _, ok := external[id]; !ok {
			report.MirrorOnly = append(report.MirrorOnly, id)
		}
	}

	s.finish(report, started)
	return report, nil
}

// CheckOrders compares recent POS orders against the mirror by order
// number: total within the currency tolerance, mapped status and line count
// exactly. An external order still absent after the propagation window is a
// missing order, the highest-severity finding.
func (s *ReconcileService) CheckOrders(ctx context.Context) (*models.Report, error) {
	started := time.Now()
	now := time.Now().UTC()
	since := now.Add(-s.orderLookback)

	extOrders, err := s.pos.ListOrders(ctx, since)
	if err != nil {
		metrics.ReconciliationRunsTotal.WithLabelValues(string(models.CheckOrders), "error").Inc()
		return nil, err
	}

	mirrorOrders, err := s.orderRepo.ListRecentWithCounts(since)
	if err != nil {
		return nil, err
	}
	mirror := make(map[string]*models.OrderWithItemCount, len(mirrorOrders))
	for i := range mirrorOrders {
		mirror[mirrorOrders[i].ExternalOrderNumber] = &mirrorOrders[i]
	}

	report := &models.Report{
		CheckType:   models.CheckOrders,
		Mismatches:  []models.Mismatch{},
		GeneratedAt: now,
	}

	seen := make(map[string]bool, len(extOrders))
	for _, ext := range extOrders {
		seen[ext.Number] = true

		m, ok := mirror[ext.Number]
		if !ok {
			if now.Sub(ext.CreatedAt) > s.propagationWindow {
				report.MissingOrders = append(report.MissingOrders, models.MissingOrder{
					OrderNumber: ext.Number,
					ExternalID:  ext.ID,
					Amount:      minorToDecimal(ext.TotalMinor),
					CreatedAt:   ext.CreatedAt,
				})
			} else {
				// Young enough that the webhook may simply not have
				// landed yet.
				report.ExternalOnly = append(report.ExternalOnly, ext.Number)
			}
			continue
		}
		report.TotalChecked++

		extTotal := minorToDecimal(ext.TotalMinor)
		if extTotal.Sub(m.TotalAmount).Abs().GreaterThanOrEqual(priceTolerance) {
			report.Mismatches = append(report.Mismatches, models.Mismatch{
				ID: ext.Number, Field: "totalAmount", Expected: extTotal, Actual: m.TotalAmount,
			})
		}

		if want := models.MapOrderStatus(ext.State); want != m.Status {
			report.Mismatches = append(report.Mismatches, models.Mismatch{
				ID: ext.Number, Field: "status", Expected: string(want), Actual: string(m.Status),
			})
		}

		if len(ext.LineItems) != m.ItemCount {
			report.Mismatches = append(report.Mismatches, models.Mismatch{
				ID: ext.Number, Field: "lineItemCount", Expected: len(ext.LineItems), Actual: m.ItemCount,
			})
		}
	}

	for num := range mirror {
		if !seen[num] {
			report.MirrorOnly = append(report.MirrorOnly, num)
		}
	}

	s.finish(report, started)
	return report, nil
}

// finish stamps counts, status, and metrics on a completed report.
func (s *ReconcileService) finish(report *models.Report, started time.Time) {
	report.MismatchCount = len(report.Mismatches)
	report.Status = models.ReportOK
	if report.HasDrift() {
		report.Status = models.ReportDrift
	}

	ct := string(report.CheckType)
	metrics.ReconciliationRunsTotal.WithLabelValues(ct, string(report.Status)).Inc()
	metrics.ReconciliationMismatches.WithLabelValues(ct).Set(float64(report.MismatchCount))
	metrics.ReconciliationDuration.WithLabelValues(ct).Observe(time.Since(started).Seconds())

	log.Info().
		Str("check_type", ct).
		Str("status", string(report.Status)).
		Int("total_checked", report.TotalChecked).
		Int("mismatches", report.MismatchCount).
		Int("external_only", len(report.ExternalOnly)).
		Int("mirror_only", len(report.MirrorOnly)).
		Int("missing_orders", len(report.MissingOrders)).
		Dur("took", time.Since(started)).
		Msg("reconciliation check completed")
}
