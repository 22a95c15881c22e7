package service

import (
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/crateside/shop_api/internal/metrics"
	"github.com/crateside/shop_api/internal/models"
	"github.com/crateside/shop_api/internal/repository"
	"github.com/crateside/shop_api/internal/utils"
)

// OrderService owns writes to the order mirror.
type OrderService struct {
	orderRepo   *repository.OrderRepository
	catalogRepo *repository.CatalogRepository
}

// NewOrderService constructs an OrderService.
func NewOrderService(orderRepo *repository.OrderRepository, catalogRepo *repository.CatalogRepository) *OrderService {
	return &OrderService{orderRepo: orderRepo, catalogRepo: catalogRepo}
}

// minorToDecimal converts integer minor units to a two-place decimal. This
// is the only place amounts are scaled; stored decimals are never
// re-derived, so replay cannot accumulate rounding drift.
func minorToDecimal(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// UpsertFromPayload applies one order event to the mirror. The stored line
// set is replaced with the payload's; lines whose catalog item is not
// mirrored yet are skipped individually and recorded as gaps for backfill.
// Replaying the same payload converges to the same row state.
func (s *OrderService) UpsertFromPayload(p *models.OrderPayload) (*repository.UpsertResult, error) {
	order := &models.Order{
		ExternalOrderNumber: p.OrderNumber,
		CustomerID:          p.CustomerID,
		TotalAmount:         minorToDecimal(p.TotalMinor),
		Status:              models.MapOrderStatus(p.State),
		OrderedAt:           p.OrderedAt,
	}

	var (
		items []models.OrderItem
		gaps  []models.OrderItemGap
	)
	for _, line := range p.LineItems {
		if line.ItemID == "" {
			// Ad hoc register lines carry no catalog id; there is no
			// parent that could ever arrive, so they are not gapped.
			log.Warn().Str("order_number", p.OrderNumber).Msg("order line without catalog id, skipping")
			continue
		}

		exists, err := s.catalogRepo.Exists(line.ItemID)
		if err != nil {
			return nil, err
		}
		if !exists {
			log.Warn().
				Str("order_number", p.OrderNumber).
				Str("item_id", line.ItemID).
				Msg("order line references unmirrored item, recording gap")
			gaps = append(gaps, models.OrderItemGap{
				ExternalOrderNumber: p.OrderNumber,
				ItemID:              line.ItemID,
				Quantity:            line.Quantity,
				PriceAtPurchase:     minorToDecimal(line.PriceMinor),
			})
			continue
		}

		items = append(items, models.OrderItem{
			ItemID:          line.ItemID,
			Quantity:        line.Quantity,
			PriceAtPurchase: minorToDecimal(line.PriceMinor),
		})
	}

	res, err := s.orderRepo.UpsertOrder(order, items, gaps)
	if err != nil {
		return nil, err
	}

	result := "updated"
	if res.WasInserted {
		result = "inserted"
	}
	metrics.OrdersMirroredTotal.WithLabelValues(result).Inc()
	if len(gaps) > 0 {
		metrics.OrderLineGapsTotal.Add(float64(len(gaps)))
	}

	log.Info().
		Str("order_number", p.OrderNumber).
		Str("status", string(order.Status)).
		Int("lines", len(items)).
		Int("gaps", len(gaps)).
		Bool("inserted", res.WasInserted).
		Msg("order mirrored")
	return res, nil
}

// Backfill restores skipped order lines whose catalog item has since been
// mirrored. Each gap is handled in its own transaction so one failure does
// not abort the batch. Returns the number of lines restored.
func (s *OrderService) Backfill(limit int) (int, error) {
	gaps, err := s.orderRepo.ListBackfillableGaps(limit)
	if err != nil {
		return 0, err
	}

	restored := 0
	for i := range gaps {
		gap := &gaps[i]
		if err := s.orderRepo.BackfillGap(gap); err != nil {
			log.Error().Err(err).
				Str("order_number", gap.ExternalOrderNumber).
				Str("item_id", gap.ItemID).
				Msg("failed to backfill order line")
			continue
		}
		restored++
		log.Info().
			Str("order_number", gap.ExternalOrderNumber).
			Str("item_id", gap.ItemID).
			Msg("order line backfilled")
	}

	if restored > 0 {
		metrics.GapsBackfilledTotal.Add(float64(restored))
	}
	if n, err := s.orderRepo.CountUnresolvedGaps(); err == nil {
		metrics.UnresolvedGaps.Set(float64(n))
	}
	return restored, nil
}

// GetOrder returns one mirrored order with its stored line set.
func (s *OrderService) GetOrder(orderNumber string) (*models.Order, []models.OrderItem, error) {
	order, err := s.orderRepo.GetByExternalNumber(orderNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, utils.ErrOrderNotFound
		}
		return nil, nil, err
	}
	items, err := s.orderRepo.ListItems(order.ID)
	if err != nil {
		return nil, nil, err
	}
	return order, items, nil
}

// RecentOrders returns mirrored orders placed within the lookback window.
func (s *OrderService) RecentOrders(lookback time.Duration) ([]models.OrderWithItemCount, error) {
	return s.orderRepo.ListRecentWithCounts(time.Now().UTC().Add(-lookback))
}
