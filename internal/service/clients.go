package service

import (
	"context"
	"time"

	"github.com/crateside/shop_api/pkg/discogs"
	"github.com/crateside/shop_api/pkg/pos"
)

// POSClient is the slice of the POS pull API the sync services consume.
type POSClient interface {
	ListCatalogItems(ctx context.Context, cursor string) (*pos.CatalogPage, error)
	BatchInventoryCounts(ctx context.Context, itemIDs []string) ([]pos.InventoryCount, error)
	ListOrders(ctx context.Context, since time.Time) ([]pos.Order, error)
}

// DiscogsClient is the slice of the enrichment API the refresh cycle uses.
type DiscogsClient interface {
	Search(ctx context.Context, query string) ([]discogs.SearchResult, error)
	GetRelease(ctx context.Context, id int64) (*discogs.Release, error)
}
