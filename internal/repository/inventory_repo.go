package repository

import (
	"github.com/jmoiron/sqlx"

	"github.com/crateside/shop_api/internal/models"
)

// InventoryRepository handles data access for the append-only stock ledger.
type InventoryRepository struct {
	db *sqlx.DB
}

// NewInventoryRepository creates a new InventoryRepository.
func NewInventoryRepository(db *sqlx.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// Insert appends one observation. Rows are never updated or deleted.
func (r *InventoryRepository) Insert(obs *models.InventoryObservation) error {
	const q = `
        INSERT INTO inventory_observations (item_id, stock_level, recorded_at, source)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at`

	return r.db.QueryRow(q, obs.ItemID, obs.StockLevel, obs.RecordedAt, obs.Source).
		Scan(&obs.ID, &obs.CreatedAt)
}

// CurrentLevel returns the most recent observation for an item. RecordedAt
// breaks ties by insertion order, so a late-arriving stale reading never
// shadows a newer one.
func (r *InventoryRepository) CurrentLevel(itemID string) (*models.StockLevel, error) {
	const q = `
        SELECT item_id, stock_level, recorded_at
        FROM inventory_observations
        WHERE item_id = $1
        ORDER BY recorded_at DESC, id DESC
        LIMIT 1`

	stmt, err := r.db.Preparex(q)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()
	var level models.StockLevel
	if err := stmt.Get(&level, itemID); err != nil {
		return nil, err
	}
	return &level, nil
}

// CurrentLevels returns the latest observation per item across the whole
// ledger in one pass.
func (r *InventoryRepository) CurrentLevels() ([]models.StockLevel, error) {
	const q = `
        SELECT DISTINCT ON (item_id) item_id, stock_level, recorded_at
        FROM inventory_observations
        ORDER BY item_id, recorded_at DESC, id DESC`

	stmt, err := r.db.Preparex(q)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()
	var levels []models.StockLevel
	if err := stmt.Select(&levels); err != nil {
		return nil, err
	}
	return levels, nil
}

// History returns observations for one item, newest first, capped at limit.
func (r *InventoryRepository) History(itemID string, limit int) ([]models.InventoryObservation, error) {
	const q = `
        SELECT id, item_id, stock_level, recorded_at, source, created_at
        FROM inventory_observations
        WHERE item_id = $1
        ORDER BY recorded_at DESC, id DESC
        LIMIT $2`

	stmt, err := r.db.Preparex(q)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()
	var obs []models.InventoryObservation
	if err := stmt.Select(&obs, itemID, limit); err != nil {
		return nil, err
	}
	return obs, nil
}
