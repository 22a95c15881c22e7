package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/crateside/shop_api/internal/cache"
	"github.com/crateside/shop_api/internal/metrics"
	"github.com/crateside/shop_api/internal/models"
	"github.com/crateside/shop_api/internal/ratelimit"
	"github.com/crateside/shop_api/internal/sse"
	"github.com/crateside/shop_api/pkg/pos"
)

// RefreshService runs the periodic full sync: pull the POS catalog,
// inventory counts, and recent orders through the same upsert paths webhooks
// use, enrich a bounded batch of items from Discogs, and rebuild the
// storefront snapshot. Webhooks keep the mirror fresh between cycles; the
// refresh closes the gap left by any dropped delivery.
type RefreshService struct {
	pos             POSClient
	discogs         DiscogsClient
	limiter         *ratelimit.Limiter
	catalogSvc      *CatalogService
	inventorySvc    *InventoryService
	orderSvc        *OrderService
	catalogCache    *cache.CatalogCache
	enrichCache     *cache.EnrichmentCache
	hub             *sse.Hub
	enrichmentLimit int
	orderLookback   time.Duration
}

// NewRefreshService constructs a RefreshService. enrichCache may be nil;
// enrichment then searches every cycle instead of remembering outcomes.
func NewRefreshService(
	posClient POSClient,
	discogsClient DiscogsClient,
	limiter *ratelimit.Limiter,
	catalogSvc *CatalogService,
	inventorySvc *InventoryService,
	orderSvc *OrderService,
	catalogCache *cache.CatalogCache,
	enrichCache *cache.EnrichmentCache,
	hub *sse.Hub,
	enrichmentLimit int,
	orderLookback time.Duration,
) *RefreshService {
	return &RefreshService{
		pos:             posClient,
		discogs:         discogsClient,
		limiter:         limiter,
		catalogSvc:      catalogSvc,
		inventorySvc:    inventorySvc,
		orderSvc:        orderSvc,
		catalogCache:    catalogCache,
		enrichCache:     enrichCache,
		hub:             hub,
		enrichmentLimit: enrichmentLimit,
		orderLookback:   orderLookback,
	}
}

// RefreshAll runs one full cycle. Individual records that fail are logged
// and skipped so one bad row cannot abort the batch; a failed pull aborts,
// since continuing would rebuild the snapshot from a half-synced mirror.
func (s *RefreshService) RefreshAll(ctx context.Context) error {
	started := time.Now()
	log.Info().Msg("full refresh started")

	synced, err := s.syncCatalogAndInventory(ctx)
	if err != nil {
		metrics.RefreshRunsTotal.WithLabelValues("error").Inc()
		return err
	}

	if err := s.syncOrders(ctx); err != nil {
		metrics.RefreshRunsTotal.WithLabelValues("error").Inc()
		return err
	}

	if enriched, err := s.EnrichMissing(ctx, s.enrichmentLimit); err != nil {
		// Enrichment is best-effort decoration; a Discogs outage must not
		// fail the sync. Cancellation still propagates.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			metrics.RefreshRunsTotal.WithLabelValues("error").Inc()
			return err
		}
		log.Error().Err(err).Msg("enrichment pass failed, continuing refresh")
	} else if enriched > 0 {
		log.Info().Int("enriched", enriched).Msg("enrichment pass completed")
	}

	if err := s.RebuildSnapshot(ctx); err != nil {
		metrics.RefreshRunsTotal.WithLabelValues("error").Inc()
		return err
	}

	metrics.RefreshRunsTotal.WithLabelValues("ok").Inc()
	metrics.RefreshDuration.Observe(time.Since(started).Seconds())

	s.hub.Broadcast(&sse.SyncEvent{
		Event: sse.EventRefreshCompleted,
		Count: &synced,
	})
	log.Info().
		Int("items_synced", synced).
		Dur("took", time.Since(started)).
		Msg("full refresh completed")
	return nil
}

// syncCatalogAndInventory walks the catalog pages, upserting items and
// recording a sync-sourced stock observation per counted item. Returns the
// number of items synced.
func (s *RefreshService) syncCatalogAndInventory(ctx context.Context) (int, error) {
	synced := 0
	cursor := ""
	for {
		page, err := s.pos.ListCatalogItems(ctx, cursor)
		if err != nil {
			return synced, err
		}

		ids := make([]string, 0, len(page.Items))
		for i := range page.Items {
			obj := &page.Items[i]
			if err := s.catalogSvc.UpsertItem(payloadFromCatalogObject(obj)); err != nil {
				log.Error().Err(err).Str("item_id", obj.ID).Msg("failed to sync catalog item")
				continue
			}
			synced++
			ids = append(ids, obj.ID)
		}

		if len(ids) > 0 {
			counts, err := s.pos.BatchInventoryCounts(ctx, ids)
			if err != nil {
				return synced, err
			}
			for _, c := range counts {
				if _, err := s.inventorySvc.Record(c.ItemID, c.Quantity, c.CalculatedAt, models.SourceSync); err != nil {
					log.Error().Err(err).Str("item_id", c.ItemID).Msg("failed to record synced stock count")
				}
			}
		}

		if page.Cursor == "" {
			return synced, nil
		}
		cursor = page.Cursor
	}
}

// syncOrders pulls orders from the lookback window through the same upsert
// path webhook deliveries take.
func (s *RefreshService) syncOrders(ctx context.Context) error {
	since := time.Now().UTC().Add(-s.orderLookback)
	orders, err := s.pos.ListOrders(ctx, since)
	if err != nil {
		return err
	}

	for i := range orders {
		payload := payloadFromPOSOrder(&orders[i])
		if _, err := s.orderSvc.UpsertFromPayload(payload); err != nil {
			log.Error().Err(err).Str("order_number", payload.OrderNumber).Msg("failed to sync order")
		}
	}
	return nil
}

// EnrichMissing looks up Discogs metadata for up to limit items that still
// lack a release id. Every lookup rides the shared rate limiter, so a large
// backlog queues instead of tripping the vendor quota.
func (s *RefreshService) EnrichMissing(ctx context.Context, limit int) (int, error) {
	items, err := s.catalogSvc.ItemsMissingEnrichment(limit)
	if err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, nil
	}

	enriched := 0
	for i := range items {
		item := &items[i]
		metrics.EnrichmentQueueDepth.Set(float64(s.limiter.Len()))

		releaseID, skip, err := s.resolveRelease(ctx, item.ID, item.Name)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return enriched, err
			}
			metrics.EnrichmentCallsTotal.WithLabelValues("error").Inc()
			log.Error().Err(err).Str("item_id", item.ID).Msg("discogs search failed")
			continue
		}
		if skip {
			continue
		}
		if releaseID == 0 {
			metrics.EnrichmentCallsTotal.WithLabelValues("no_match").Inc()
			log.Debug().Str("item_id", item.ID).Str("query", item.Name).Msg("no discogs match")
			continue
		}

		release, err := s.discogs.GetRelease(ctx, releaseID)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return enriched, err
			}
			metrics.EnrichmentCallsTotal.WithLabelValues("error").Inc()
			log.Error().Err(err).Str("item_id", item.ID).Int64("release_id", releaseID).Msg("discogs release fetch failed")
			continue
		}

		var label string
		if len(release.Labels) > 0 {
			label = release.Labels[0].Name
		}
		if err := s.catalogSvc.ApplyEnrichment(item.ID, release.ID, release.Year, label, release.Thumb); err != nil {
			metrics.EnrichmentCallsTotal.WithLabelValues("error").Inc()
			log.Error().Err(err).Str("item_id", item.ID).Msg("failed to store enrichment")
			continue
		}

		metrics.EnrichmentCallsTotal.WithLabelValues("enriched").Inc()
		enriched++
	}

	metrics.EnrichmentQueueDepth.Set(float64(s.limiter.Len()))
	return enriched, nil
}

// resolveRelease decides which release, if any, an item maps to. A fresh
// remembered outcome answers without spending quota: an empty one skips the
// item, a match goes straight to the release fetch. Otherwise one search
// runs and its outcome is remembered either way. A zero release id with
// skip=false means the search just came back empty.
func (s *RefreshService) resolveRelease(ctx context.Context, itemID, query string) (releaseID int64, skip bool, err error) {
	if s.enrichCache != nil {
		outcome, err := s.enrichCache.GetOutcome(ctx, itemID)
		if err != nil {
			log.Warn().Err(err).Str("item_id", itemID).Msg("enrichment cache read failed")
		} else if outcome != nil {
			if outcome.ReleaseID == 0 {
				log.Debug().Str("item_id", itemID).Msg("skipping recently unmatched item")
				return 0, true, nil
			}
			return outcome.ReleaseID, false, nil
		}
	}

	results, err := s.discogs.Search(ctx, query)
	if err != nil {
		return 0, false, err
	}

	var id int64
	if len(results) > 0 {
		id = results[0].ID
	}
	if s.enrichCache != nil {
		outcome := &cache.SearchOutcome{ItemID: itemID, Query: query, ReleaseID: id}
		if err := s.enrichCache.SetOutcome(ctx, outcome); err != nil {
			log.Warn().Err(err).Str("item_id", itemID).Msg("enrichment cache write failed")
		}
	}
	return id, false, nil
}

// RebuildSnapshot writes a fresh storefront snapshot from the mirror. The
// snapshot is replaced wholesale; storefront readers never see a partial
// product list.
func (s *RefreshService) RebuildSnapshot(ctx context.Context) error {
	products, err := s.catalogSvc.BuildProducts()
	if err != nil {
		return err
	}
	if err := s.catalogCache.WriteSnapshot(ctx, products); err != nil {
		return err
	}

	metrics.CacheSnapshotRebuilds.Inc()
	metrics.CacheSnapshotProducts.Set(float64(len(products)))
	log.Info().Int("products", len(products)).Msg("catalog snapshot rebuilt")
	return nil
}

// payloadFromCatalogObject maps a POS catalog object onto the webhook
// payload shape so pull and push share one upsert path.
func payloadFromCatalogObject(obj *pos.CatalogObject) *models.CatalogItemPayload {
	p := &models.CatalogItemPayload{
		ID:        obj.ID,
		Name:      obj.Name,
		BasePrice: minorToDecimal(obj.PriceMinor),
	}

	detail := &models.ItemDetailPayload{}
	hasDetail := false
	if obj.Category != "" {
		detail.Category = &obj.Category
		hasDetail = true
	}
	if obj.Description != "" {
		detail.Description = &obj.Description
		hasDetail = true
	}
	if obj.ImageURL != "" {
		detail.ThumbnailURL = &obj.ImageURL
		hasDetail = true
	}
	if hasDetail {
		p.Detail = detail
	}
	return p
}

// payloadFromPOSOrder maps a pulled order onto the webhook payload shape.
func payloadFromPOSOrder(o *pos.Order) *models.OrderPayload {
	p := &models.OrderPayload{
		OrderNumber: o.Number,
		State:       o.State,
		TotalMinor:  o.TotalMinor,
		OrderedAt:   o.CreatedAt,
	}
	if o.CustomerID != "" {
		customerID := o.CustomerID
		p.CustomerID = &customerID
	}
	for _, line := range o.LineItems {
		p.LineItems = append(p.LineItems, models.OrderLinePayload{
			ItemID:     line.CatalogItemID,
			Quantity:   line.Quantity,
			PriceMinor: line.PriceMinor,
		})
	}
	return p
}
