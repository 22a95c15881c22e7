package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/crateside/shop_api/internal/cache"
	"github.com/crateside/shop_api/internal/metrics"
	"github.com/crateside/shop_api/internal/models"
	"github.com/crateside/shop_api/internal/repository"
	"github.com/crateside/shop_api/internal/sse"
	"github.com/crateside/shop_api/internal/utils"
)

// IngestService turns one verified webhook delivery into mirror writes, an
// audit row, metrics, and an ops event. Signature verification happens at
// the handler; everything here assumes an authenticated body.
type IngestService struct {
	catalogSvc   *CatalogService
	inventorySvc *InventoryService
	orderSvc     *OrderService
	eventRepo    *repository.WebhookEventRepository
	catalogCache *cache.CatalogCache
	hub          *sse.Hub
}

// NewIngestService constructs an IngestService.
func NewIngestService(
	catalogSvc *CatalogService,
	inventorySvc *InventoryService,
	orderSvc *OrderService,
	eventRepo *repository.WebhookEventRepository,
	catalogCache *cache.CatalogCache,
	hub *sse.Hub,
) *IngestService {
	return &IngestService{
		catalogSvc:   catalogSvc,
		inventorySvc: inventorySvc,
		orderSvc:     orderSvc,
		eventRepo:    eventRepo,
		catalogCache: catalogCache,
		hub:          hub,
	}
}

// ProcessEvent applies one raw webhook body. The returned status matches the
// audit row: processed and skipped map to 200 at the boundary, failed maps
// to 400 (malformed envelope or payload) or 500 (anything else) so the
// source retries only what can succeed later.
func (s *IngestService) ProcessEvent(ctx context.Context, raw []byte, correlationID string) (models.WebhookEventStatus, error) {
	started := time.Now()

	var env models.Envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Type == "" {
		s.audit(&env, raw, correlationID, models.WebhookFailed, utils.ErrInvalidEnvelope)
		metrics.WebhookEventsTotal.WithLabelValues(string(env.Type), "failed").Inc()
		return models.WebhookFailed, utils.ErrInvalidEnvelope
	}

	ev, err := models.DecodeEvent(&env)
	if err != nil {
		var unknown *models.UnknownEventTypeError
		if errors.As(err, &unknown) {
			// Forward compatibility: a type this version does not know is
			// acknowledged and audited, never bounced into a retry loop.
			s.audit(&env, raw, correlationID, models.WebhookSkipped, err)
			metrics.WebhookEventsTotal.WithLabelValues(string(env.Type), "skipped").Inc()
			log.Warn().
				Str("event_type", string(env.Type)).
				Str("event_id", env.EventID).
				Msg("unknown webhook event type, acknowledged without processing")
			return models.WebhookSkipped, nil
		}
		s.audit(&env, raw, correlationID, models.WebhookFailed, err)
		metrics.WebhookEventsTotal.WithLabelValues(string(env.Type), "failed").Inc()
		return models.WebhookFailed, fmt.Errorf("%w: %s", utils.ErrInvalidEnvelope, err)
	}

	if err := s.dispatch(ev); err != nil {
		s.audit(&env, raw, correlationID, models.WebhookFailed, err)
		metrics.WebhookEventsTotal.WithLabelValues(string(env.Type), "failed").Inc()
		s.hub.Broadcast(&sse.SyncEvent{
			Event:    sse.EventWebhookFailed,
			EventID:  env.EventID,
			EntityID: ev.EntityID(),
			Detail:   string(env.Type),
		})
		return models.WebhookFailed, err
	}

	s.audit(&env, raw, correlationID, models.WebhookProcessed, nil)
	metrics.WebhookEventsTotal.WithLabelValues(string(env.Type), "processed").Inc()
	metrics.WebhookProcessingLatency.WithLabelValues(string(env.Type)).Observe(time.Since(started).Seconds())

	// Order events do not feed the product snapshot, so only catalog and
	// inventory changes invalidate it.
	if ev.Type == models.EventCatalogItemUpdated || ev.Type == models.EventInventoryCountUpdated {
		if err := s.catalogCache.Invalidate(ctx); err != nil {
			log.Error().Err(err).Msg("failed to invalidate catalog snapshot")
		}
	}

	s.hub.Broadcast(&sse.SyncEvent{
		Event:    sse.EventWebhookProcessed,
		EventID:  env.EventID,
		EntityID: ev.EntityID(),
		Detail:   string(env.Type),
	})

	log.Info().
		Str("event_type", string(env.Type)).
		Str("event_id", env.EventID).
		Str("correlation_id", correlationID).
		Dur("took", time.Since(started)).
		Msg("webhook event processed")
	return models.WebhookProcessed, nil
}

// ListEvents returns audit rows for the admin surface.
func (s *IngestService) ListEvents(filter *repository.EventFilter) (*repository.EventListResult, error) {
	return s.eventRepo.ListAdmin(filter)
}

// dispatch routes the decoded event to its mirror writer. The switch is
// exhaustive over the union; DecodeEvent already rejected anything else.
func (s *IngestService) dispatch(ev *models.Event) error {
	switch ev.Type {
	case models.EventInventoryCountUpdated:
		p := ev.InventoryCount
		_, err := s.inventorySvc.Record(p.ItemID, p.StockLevel, p.RecordedAt, models.SourceWebhook)
		return err
	case models.EventCatalogItemUpdated:
		return s.catalogSvc.UpsertItem(ev.CatalogItem)
	case models.EventOrderCreated, models.EventOrderUpdated:
		_, err := s.orderSvc.UpsertFromPayload(ev.Order)
		return err
	}
	return &models.UnknownEventTypeError{Type: ev.Type}
}

// audit appends the delivery to the webhook trail. Audit failures are
// logged, not propagated: by this point the mirror write has already
// happened (or already failed), and bouncing the delivery would only make
// the source redeliver a completed mutation.
func (s *IngestService) audit(env *models.Envelope, raw []byte, correlationID string, status models.WebhookEventStatus, procErr error) {
	// The payload column is jsonb; a body that failed to parse is stored
	// re-encoded as a JSON string so the delivery still lands in the trail.
	payload := json.RawMessage(raw)
	if !json.Valid(raw) {
		payload, _ = json.Marshal(string(raw))
	}

	row := &models.WebhookEvent{
		EventID:       env.EventID,
		EventType:     string(env.Type),
		CorrelationID: correlationID,
		Payload:       payload,
		Status:        status,
	}
	if status != models.WebhookFailed {
		now := time.Now().UTC()
		row.ProcessedAt = &now
	}
	if procErr != nil {
		msg := procErr.Error()
		row.Error = &msg
	}

	if err := s.eventRepo.Insert(row); err != nil {
		log.Error().Err(err).
			Str("event_id", env.EventID).
			Str("status", string(status)).
			Msg("failed to record webhook audit row")
	}
}
