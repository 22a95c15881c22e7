package service

import (
	"database/sql"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/crateside/shop_api/internal/models"
	"github.com/crateside/shop_api/internal/repository"
	"github.com/crateside/shop_api/internal/utils"
)

// CatalogService owns writes to the catalog mirror and the storefront
// product projection built from it.
type CatalogService struct {
	catalogRepo   *repository.CatalogRepository
	inventoryRepo *repository.InventoryRepository
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(catalogRepo *repository.CatalogRepository, inventoryRepo *repository.InventoryRepository) *CatalogService {
	return &CatalogService{catalogRepo: catalogRepo, inventoryRepo: inventoryRepo}
}

// UpsertItem applies one catalog payload to the mirror. Name and base price
// overwrite unconditionally; detail fields merge last-non-null-wins, with
// keyword inference filling only what the payload left empty. Replaying the
// same payload leaves the row unchanged.
func (s *CatalogService) UpsertItem(p *models.CatalogItemPayload) error {
	item := &models.CatalogItem{
		ID:        p.ID,
		Name:      p.Name,
		BasePrice: p.BasePrice,
	}
	if err := s.catalogRepo.UpsertItem(item); err != nil {
		return err
	}

	detail := detailFromPayload(p.ID, p.Detail)

	var description string
	if detail.Description != nil {
		description = *detail.Description
	}
	inferred := InferAttributes(p.Name, description)
	if detail.Category == nil {
		detail.Category = inferred.Category
	}
	if detail.Format == nil {
		detail.Format = inferred.Format
	}
	if detail.IsStaffPick == nil {
		detail.IsStaffPick = inferred.IsStaffPick
	}

	if !hasDetailValues(detail) {
		return nil
	}
	return s.catalogRepo.UpsertDetail(detail)
}

// UpsertItemDetail merges detail fields for an existing item. A detail write
// racing ahead of its catalog event is skipped, not failed: the item will
// carry the data on the next delivery or full sync.
func (s *CatalogService) UpsertItemDetail(itemID string, p *models.ItemDetailPayload) error {
	exists, err := s.catalogRepo.Exists(itemID)
	if err != nil {
		return err
	}
	if !exists {
		log.Warn().Str("item_id", itemID).Msg("detail update for unmirrored item, skipping")
		return nil
	}

	detail := detailFromPayload(itemID, p)
	if !hasDetailValues(detail) {
		return nil
	}
	return s.catalogRepo.UpsertDetail(detail)
}

// ApplyEnrichment stores Discogs metadata for an item, through the same
// merge path as payload details.
func (s *CatalogService) ApplyEnrichment(itemID string, releaseID int64, year int, label, thumbURL string) error {
	detail := &models.ItemDetail{
		ItemID:           itemID,
		DiscogsReleaseID: &releaseID,
	}
	if year > 0 {
		detail.DiscogsYear = &year
	}
	if label != "" {
		detail.DiscogsLabel = &label
	}
	if thumbURL != "" {
		detail.ThumbnailURL = &thumbURL
	}

	exists, err := s.catalogRepo.Exists(itemID)
	if err != nil {
		return err
	}
	if !exists {
		log.Warn().Str("item_id", itemID).Msg("enrichment for unmirrored item, skipping")
		return nil
	}
	return s.catalogRepo.UpsertDetail(detail)
}

// ItemsMissingEnrichment returns up to limit items that have no Discogs
// release yet, most recently updated first.
func (s *CatalogService) ItemsMissingEnrichment(limit int) ([]models.ItemWithDetail, error) {
	return s.catalogRepo.ListMissingEnrichment(limit)
}

// GetProduct returns the storefront projection for one item, including its
// current stock level when the ledger has one.
func (s *CatalogService) GetProduct(itemID string) (*models.Product, error) {
	row, err := s.catalogRepo.GetItemWithDetail(itemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.ErrItemNotFound
		}
		return nil, err
	}

	var stock *int
	level, err := s.inventoryRepo.CurrentLevel(itemID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if level != nil {
		stock = &level.StockLevel
	}

	product := models.ProjectProduct(row, stock)
	return &product, nil
}

// BuildProducts assembles the full storefront product list from the mirror,
// pairing every item with its latest observed stock in one ledger pass.
func (s *CatalogService) BuildProducts() ([]models.Product, error) {
	rows, err := s.catalogRepo.ListItemsWithDetail()
	if err != nil {
		return nil, err
	}

	levels, err := s.inventoryRepo.CurrentLevels()
	if err != nil {
		return nil, err
	}
	byItem := make(map[string]int, len(levels))
	for _, l := range levels {
		byItem[l.ItemID] = l.StockLevel
	}

	products := make([]models.Product, 0, len(rows))
	for i := range rows {
		var stock *int
		if lvl, ok := byItem[rows[i].ID]; ok {
			v := lvl
			stock = &v
		}
		products = append(products, models.ProjectProduct(&rows[i], stock))
	}
	return products, nil
}

// detailFromPayload maps payload detail fields onto a mirror detail row.
// A nil payload produces an empty row that merges as a no-op.
func detailFromPayload(itemID string, p *models.ItemDetailPayload) *models.ItemDetail {
	detail := &models.ItemDetail{ItemID: itemID}
	if p == nil {
		return detail
	}
	detail.Category = p.Category
	detail.Format = p.Format
	detail.ConditionSleeve = p.ConditionSleeve
	detail.ConditionMedia = p.ConditionMedia
	detail.Description = p.Description
	detail.IsStaffPick = p.IsStaffPick
	detail.ThumbnailURL = p.ThumbnailURL
	return detail
}

// hasDetailValues reports whether any mergeable field is set.
func hasDetailValues(d *models.ItemDetail) bool {
	return d.Category != nil || d.Format != nil || d.ConditionSleeve != nil ||
		d.ConditionMedia != nil || d.Description != nil || d.IsStaffPick != nil ||
		d.ThumbnailURL != nil || d.DiscogsReleaseID != nil || d.DiscogsYear != nil ||
		d.DiscogsLabel != nil
}
