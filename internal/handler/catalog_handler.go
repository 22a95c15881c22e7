package handler

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/crateside/shop_api/internal/cache"
	"github.com/crateside/shop_api/internal/metrics"
	"github.com/crateside/shop_api/internal/models"
	"github.com/crateside/shop_api/internal/service"
	"github.com/crateside/shop_api/internal/utils"
)

// CatalogHandler handles storefront product endpoints.
type CatalogHandler struct {
	catalogSvc   *service.CatalogService
	catalogCache *cache.CatalogCache
}

// NewCatalogHandler constructs a CatalogHandler.
func NewCatalogHandler(catalogSvc *service.CatalogService, catalogCache *cache.CatalogCache) *CatalogHandler {
	return &CatalogHandler{catalogSvc: catalogSvc, catalogCache: catalogCache}
}

// GetProducts handles GET /v1/catalog/products. The list is served from the
// Redis snapshot; a missing or unreadable snapshot falls through to the
// mirror.
func (h *CatalogHandler) GetProducts(c *gin.Context) {
	category := c.Query("category")
	format := c.Query("format")
	search := c.Query("search")
	staffPick := c.Query("staffPick") == "true"

	var (
		products    []models.Product
		generatedAt time.Time
		source      = "cache"
	)

	snap, err := h.catalogCache.ReadSnapshot(c.Request.Context())
	if err != nil {
		log.Warn().Err(err).Msg("Catalog snapshot unreadable, falling back to mirror")
	}

	if snap != nil {
		metrics.CacheReadsTotal.WithLabelValues("hit").Inc()
		products = snap.Products
		generatedAt = snap.GeneratedAt
	} else {
		metrics.CacheReadsTotal.WithLabelValues("miss").Inc()
		source = "mirror"
		products, err = h.catalogSvc.BuildProducts()
		if err != nil {
			utils.Error(c, 500, "INTERNAL_ERROR", "Failed to load products")
			return
		}
		generatedAt = time.Now().UTC()
	}

	if category != "" || format != "" || search != "" || staffPick {
		products = filterProducts(products, category, format, search, staffPick)
	}

	utils.Success(c, 200, "Products retrieved", gin.H{
		"products":    products,
		"count":       len(products),
		"source":      source,
		"generatedAt": generatedAt,
	})
}

// GetProduct handles GET /v1/catalog/products/:id. Reads go to the mirror
// directly so a single product view always shows current stock.
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	itemID := c.Param("id")
	if itemID == "" {
		utils.Error(c, 400, "INVALID_ID", "Product ID is required")
		return
	}

	product, err := h.catalogSvc.GetProduct(itemID)
	if err != nil {
		if errors.Is(err, utils.ErrItemNotFound) {
			utils.Error(c, 404, "ITEM_NOT_FOUND", "Product not found")
			return
		}
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to load product")
		return
	}

	utils.Success(c, 200, "Product retrieved", product)
}

// filterProducts narrows the snapshot list in memory. The snapshot is one
// flat list per store; filters never go back to storage.
func filterProducts(products []models.Product, category, format, search string, staffPick bool) []models.Product {
	search = strings.ToLower(search)
	out := make([]models.Product, 0, len(products))
	for i := range products {
		p := &products[i]
		if category != "" && (p.Category == nil || !strings.EqualFold(*p.Category, category)) {
			continue
		}
		if format != "" && (p.Format == nil || !strings.EqualFold(*p.Format, format)) {
			continue
		}
		if staffPick && !p.IsStaffPick {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		out = append(out, *p)
	}
	return out
}
