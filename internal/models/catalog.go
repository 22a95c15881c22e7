package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CatalogItem is the normalized mirror row for one catalog entry, keyed by
// the external catalog id. Name and price are source-of-truth fields and are
// fully overwritten on every upsert.
type CatalogItem struct {
	ID        string          `db:"id" json:"id"`
	Name      string          `db:"name" json:"name"`
	BasePrice decimal.Decimal `db:"base_price" json:"basePrice"`
	CreatedAt time.Time       `db:"created_at" json:"-"`
	UpdatedAt time.Time       `db:"updated_at" json:"updatedAt"`
}

// ItemDetail holds the descriptive and enrichment attributes of a catalog
// item. All payload-sourced fields are nullable: writes merge with
// last-non-null-wins semantics, so an event that omits a field never erases
// previously known data.
type ItemDetail struct {
	ItemID           string     `db:"item_id" json:"itemId"`
	Category         *string    `db:"category" json:"category,omitempty"`
	Format           *string    `db:"format" json:"format,omitempty"`
	ConditionSleeve  *string    `db:"condition_sleeve" json:"conditionSleeve,omitempty"`
	ConditionMedia   *string    `db:"condition_media" json:"conditionMedia,omitempty"`
	Description      *string    `db:"description" json:"description,omitempty"`
	IsStaffPick      *bool      `db:"is_staff_pick" json:"isStaffPick,omitempty"`
	ThumbnailURL     *string    `db:"thumbnail_url" json:"thumbnailUrl,omitempty"`
	DiscogsReleaseID *int64     `db:"discogs_release_id" json:"discogsReleaseId,omitempty"`
	DiscogsYear      *int       `db:"discogs_year" json:"discogsYear,omitempty"`
	DiscogsLabel     *string    `db:"discogs_label" json:"discogsLabel,omitempty"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updatedAt"`
}

// ItemWithDetail joins a catalog item with its (possibly absent) detail row.
// Detail columns come back NULL when no detail exists yet.
type ItemWithDetail struct {
	CatalogItem
	Category         *string `db:"category"`
	Format           *string `db:"format"`
	ConditionSleeve  *string `db:"condition_sleeve"`
	ConditionMedia   *string `db:"condition_media"`
	Description      *string `db:"description"`
	IsStaffPick      *bool   `db:"is_staff_pick"`
	ThumbnailURL     *string `db:"thumbnail_url"`
	DiscogsReleaseID *int64  `db:"discogs_release_id"`
	DiscogsYear      *int    `db:"discogs_year"`
	DiscogsLabel     *string `db:"discogs_label"`
}

// Product is the denormalized storefront projection: catalog item + detail +
// current stock. Served from the cache snapshot and the item read endpoint.
type Product struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	BasePrice       decimal.Decimal `json:"basePrice"`
	Category        *string         `json:"category,omitempty"`
	Format          *string         `json:"format,omitempty"`
	ConditionSleeve *string         `json:"conditionSleeve,omitempty"`
	ConditionMedia  *string         `json:"conditionMedia,omitempty"`
	Description     *string         `json:"description,omitempty"`
	IsStaffPick     bool            `json:"isStaffPick"`
	ThumbnailURL    *string         `json:"thumbnailUrl,omitempty"`
	DiscogsYear     *int            `json:"discogsYear,omitempty"`
	DiscogsLabel    *string         `json:"discogsLabel,omitempty"`

	// StockLevel is nil when no observation exists yet; 0 is a real level
	// and drives the sold-out display.
	StockLevel *int `json:"stockLevel"`
	SoldOut    bool `json:"soldOut"`

	UpdatedAt time.Time `json:"updatedAt"`
}

// ProjectProduct builds the storefront projection from mirror rows. stock is
// nil when the ledger has no observation for the item.
func ProjectProduct(row *ItemWithDetail, stock *int) Product {
	p := Product{
		ID:              row.ID,
		Name:            row.Name,
		BasePrice:       row.BasePrice,
		Category:        row.Category,
		Format:          row.Format,
		ConditionSleeve: row.ConditionSleeve,
		ConditionMedia:  row.ConditionMedia,
		Description:     row.Description,
		ThumbnailURL:    row.ThumbnailURL,
		DiscogsYear:     row.DiscogsYear,
		DiscogsLabel:    row.DiscogsLabel,
		StockLevel:      stock,
		UpdatedAt:       row.UpdatedAt,
	}
	if row.IsStaffPick != nil {
		p.IsStaffPick = *row.IsStaffPick
	}
	p.SoldOut = stock != nil && *stock == 0
	return p
}
