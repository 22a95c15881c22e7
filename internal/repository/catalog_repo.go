package repository

import (
	"github.com/jmoiron/sqlx"

	"github.com/crateside/shop_api/internal/models"
)

// CatalogRepository handles data access for the catalog mirror.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository creates a new CatalogRepository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// itemWithDetailColumns is the shared select list for item+detail joins.
// The detail side comes back all-NULL when no detail row exists.
const itemWithDetailColumns = `
        i.id, i.name, i.base_price, i.created_at, i.updated_at,
        d.category, d.format, d.condition_sleeve, d.condition_media,
        d.description, d.is_staff_pick, d.thumbnail_url,
        d.discogs_release_id, d.discogs_year, d.discogs_label`

// UpsertItem inserts or fully overwrites a catalog item by external id.
// Name and base price are source-of-truth fields, so the newest event wins
// unconditionally.
func (r *CatalogRepository) UpsertItem(item *models.CatalogItem) error {
	const q = `
        INSERT INTO catalog_items (id, name, base_price)
        VALUES ($1, $2, $3)
        ON CONFLICT (id) DO UPDATE SET
            name = EXCLUDED.name,
            base_price = EXCLUDED.base_price,
            updated_at = NOW()`

	stmt, err := r.db.Preparex(q)
	if err != nil {
		return err
	}
	defer stmt.Close()
	_, err = stmt.Exec(item.ID, item.Name, item.BasePrice)
	return err
}

// Exists reports whether a catalog item row exists for the id.
func (r *CatalogRepository) Exists(itemID string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM catalog_items WHERE id = $1)`
	stmt, err := r.db.Preparex(q)
	if err != nil {
		return false, err
	}
	defer stmt.Close()
	var exists bool
	if err := stmt.Get(&exists, itemID); err != nil {
		return false, err
	}
	return exists, nil
}

// UpsertDetail inserts or merges a detail row. Merge is last-non-null-wins
// per column: an incoming NULL keeps whatever the mirror already knows.
func (r *CatalogRepository) UpsertDetail(d *models.ItemDetail) error {
	const q = `
        INSERT INTO item_details (
            item_id, category, format, condition_sleeve, condition_media,
            description, is_staff_pick, thumbnail_url,
            discogs_release_id, discogs_year, discogs_label
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        ON CONFLICT (item_id) DO UPDATE SET
            category = COALESCE(EXCLUDED.category, item_details.category),
            format = COALESCE(EXCLUDED.format, item_details.format),
            condition_sleeve = COALESCE(EXCLUDED.condition_sleeve, item_details.condition_sleeve),
            condition_media = COALESCE(EXCLUDED.condition_media, item_details.condition_media),
            description = COALESCE(EXCLUDED.description, item_details.description),
            is_staff_pick = COALESCE(EXCLUDED.is_staff_pick, item_details.is_staff_pick),
            thumbnail_url = COALESCE(EXCLUDED.thumbnail_url, item_details.thumbnail_url),
            discogs_release_id = COALESCE(EXCLUDED.discogs_release_id, item_details.discogs_release_id),
            discogs_year = COALESCE(EXCLUDED.discogs_year, item_details.discogs_year),
            discogs_label = COALESCE(EXCLUDED.discogs_label, item_details.discogs_label),
            updated_at = NOW()`

	stmt, err := r.db.Preparex(q)
	if err != nil {
		return err
	}
	defer stmt.Close()
	_, err = stmt.Exec(
		d.ItemID,
		d.Category,
		d.Format,
		d.ConditionSleeve,
		d.ConditionMedia,
		d.Description,
		d.IsStaffPick,
		d.ThumbnailURL,
		d.DiscogsReleaseID,
		d.DiscogsYear,
		d.DiscogsLabel,
	)
	return err
}

// GetItemWithDetail returns one item joined with its detail row.
func (r *CatalogRepository) GetItemWithDetail(itemID string) (*models.ItemWithDetail, error) {
	const q = `
        SELECT` + itemWithDetailColumns + `
        FROM catalog_items i
        LEFT JOIN item_details d ON d.item_id = i.id
        WHERE i.id = $1
        LIMIT 1`

	stmt, err := r.db.Preparex(q)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()
	var row models.ItemWithDetail
	if err := stmt.Get(&row, itemID); err != nil {
		return nil, err
	}
	return &row, nil
}

// ListItemsWithDetail returns every mirrored item with details, ordered by
// name for stable snapshot output.
func (r *CatalogRepository) ListItemsWithDetail() ([]models.ItemWithDetail, error) {
	const q = `
        SELECT` + itemWithDetailColumns + `
        FROM catalog_items i
        LEFT JOIN item_details d ON d.item_id = i.id
        ORDER BY i.name, i.id`

	stmt, err := r.db.Preparex(q)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()
	var rows []models.ItemWithDetail
	if err := stmt.Select(&rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// ListItemIDs returns all mirrored catalog item ids.
func (r *CatalogRepository) ListItemIDs() ([]string, error) {
	const q = `SELECT id FROM catalog_items ORDER BY id`
	stmt, err := r.db.Preparex(q)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()
	var ids []string
	if err := stmt.Select(&ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// ListMissingEnrichment returns items that still lack a Discogs release id,
// most recently updated first, capped at limit. Items with no detail row at
// all qualify too.
func (r *CatalogRepository) ListMissingEnrichment(limit int) ([]models.ItemWithDetail, error) {
	const q = `
        SELECT` + itemWithDetailColumns + `
        FROM catalog_items i
        LEFT JOIN item_details d ON d.item_id = i.id
        WHERE d.discogs_release_id IS NULL
        ORDER BY i.updated_at DESC
        LIMIT $1`

	stmt, err := r.db.Preparex(q)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()
	var rows []models.ItemWithDetail
	if err := stmt.Select(&rows, limit); err != nil {
		return nil, err
	}
	return rows, nil
}
