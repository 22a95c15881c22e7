package service

import (
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/crateside/shop_api/internal/metrics"
	"github.com/crateside/shop_api/internal/models"
	"github.com/crateside/shop_api/internal/repository"
	"github.com/crateside/shop_api/internal/utils"
)

// InventoryService owns the append-only stock ledger.
type InventoryService struct {
	inventoryRepo *repository.InventoryRepository
}

// NewInventoryService constructs an InventoryService.
func NewInventoryService(inventoryRepo *repository.InventoryRepository) *InventoryService {
	return &InventoryService{inventoryRepo: inventoryRepo}
}

// Record appends one stock observation. recordedAt is the source's clock,
// not ours; "current" is always resolved by that timestamp, so duplicate
// and out-of-order deliveries are harmless appends.
func (s *InventoryService) Record(itemID string, stockLevel int, recordedAt time.Time, source models.ObservationSource) (*models.InventoryObservation, error) {
	if stockLevel < 0 {
		return nil, utils.ErrInvalidStockLevel
	}
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}

	obs := &models.InventoryObservation{
		ItemID:     itemID,
		StockLevel: stockLevel,
		RecordedAt: recordedAt,
		Source:     source,
	}
	if err := s.inventoryRepo.Insert(obs); err != nil {
		return nil, err
	}

	metrics.InventoryObservationsTotal.WithLabelValues(string(source)).Inc()
	log.Debug().
		Str("item_id", itemID).
		Int("stock_level", stockLevel).
		Str("source", string(source)).
		Msg("stock observation recorded")
	return obs, nil
}

// CurrentLevel returns the latest observation for an item, or nil when the
// item has never been observed. Zero stock is a real level, not absence.
func (s *InventoryService) CurrentLevel(itemID string) (*models.StockLevel, error) {
	level, err := s.inventoryRepo.CurrentLevel(itemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return level, nil
}

// History returns recent observations for one item, newest first.
func (s *InventoryService) History(itemID string, limit int) ([]models.InventoryObservation, error) {
	if limit < 1 || limit > 500 {
		limit = 100
	}
	return s.inventoryRepo.History(itemID, limit)
}
