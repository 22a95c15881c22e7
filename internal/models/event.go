package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EventType discriminates the webhook event union.
type EventType string

const (
	EventInventoryCountUpdated EventType = "inventory.count.updated"
	EventCatalogItemUpdated    EventType = "catalog.item.updated"
	EventOrderCreated          EventType = "order.created"
	EventOrderUpdated          EventType = "order.updated"
)

// Envelope is the wire shape of every inbound webhook payload.
type Envelope struct {
	Type      EventType    `json:"type"`
	EventID   string       `json:"eventId"`
	CreatedAt time.Time    `json:"createdAt"`
	Data      EnvelopeData `json:"data"`
}

// EnvelopeData wraps the entity-specific object so the envelope can be
// decoded before the variant is known.
type EnvelopeData struct {
	Object json.RawMessage `json:"object"`
}

// InventoryCountPayload is the object of an inventory.count.updated event.
type InventoryCountPayload struct {
	ItemID     string    `json:"itemId"`
	StockLevel int       `json:"stockLevel"`
	RecordedAt time.Time `json:"recordedAt"`
}

// ItemDetailPayload carries the optional descriptive attributes of a catalog
// event. Omitted fields stay nil and will not overwrite mirrored values.
type ItemDetailPayload struct {
	Category        *string `json:"category,omitempty"`
	Format          *string `json:"format,omitempty"`
	ConditionSleeve *string `json:"conditionSleeve,omitempty"`
	ConditionMedia  *string `json:"conditionMedia,omitempty"`
	Description     *string `json:"description,omitempty"`
	IsStaffPick     *bool   `json:"isStaffPick,omitempty"`
	ThumbnailURL    *string `json:"thumbnailUrl,omitempty"`
}

// CatalogItemPayload is the object of a catalog.item.updated event.
type CatalogItemPayload struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	BasePrice decimal.Decimal    `json:"basePrice"`
	Detail    *ItemDetailPayload `json:"detail,omitempty"`
}

// OrderLinePayload is one authoritative line of an order event. PriceMinor
// is in integer minor units.
type OrderLinePayload struct {
	ItemID     string `json:"itemId"`
	Quantity   int    `json:"quantity"`
	PriceMinor int64  `json:"priceMinor"`
}

// OrderPayload is the object of order.created / order.updated events.
// TotalMinor is in integer minor units; the line item list is the full
// authoritative set as of this event.
type OrderPayload struct {
	OrderNumber string             `json:"orderNumber"`
	CustomerID  *string            `json:"customerId,omitempty"`
	State       string             `json:"state"`
	TotalMinor  int64              `json:"totalMinor"`
	OrderedAt   time.Time          `json:"orderedAt"`
	LineItems   []OrderLinePayload `json:"lineItems"`
}

// Event is the decoded, typed form of an envelope: a tagged union in which
// exactly one payload pointer is non-nil, selected by Type. Dispatchers
// switch on Type exhaustively; an unknown type never reaches dispatch
// because DecodeEvent rejects it first.
type Event struct {
	Type      EventType
	EventID   string
	CreatedAt time.Time

	InventoryCount *InventoryCountPayload
	CatalogItem    *CatalogItemPayload
	Order          *OrderPayload
}

// EntityID returns the id of the entity the event mutates, for logs and the
// ops event feed.
func (e *Event) EntityID() string {
	switch {
	case e.InventoryCount != nil:
		return e.InventoryCount.ItemID
	case e.CatalogItem != nil:
		return e.CatalogItem.ID
	case e.Order != nil:
		return e.Order.OrderNumber
	}
	return ""
}

// UnknownEventTypeError reports an envelope type this version does not
// handle. Ingestion treats it as a processed no-op, not a failure.
type UnknownEventTypeError struct {
	Type EventType
}

func (e *UnknownEventTypeError) Error() string {
	return fmt.Sprintf("unknown event type %q", e.Type)
}

// DecodeEvent turns an envelope into a typed Event. The object is decoded
// according to the envelope type; a type outside the known union returns
// *UnknownEventTypeError.
func DecodeEvent(env *Envelope) (*Event, error) {
	ev := &Event{
		Type:      env.Type,
		EventID:   env.EventID,
		CreatedAt: env.CreatedAt,
	}

	switch env.Type {
	case EventInventoryCountUpdated:
		var p InventoryCountPayload
		if err := json.Unmarshal(env.Data.Object, &p); err != nil {
			return nil, fmt.Errorf("decode inventory payload: %w", err)
		}
		if p.RecordedAt.IsZero() {
			p.RecordedAt = env.CreatedAt
		}
		ev.InventoryCount = &p
	case EventCatalogItemUpdated:
		var p CatalogItemPayload
		if err := json.Unmarshal(env.Data.Object, &p); err != nil {
			return nil, fmt.Errorf("decode catalog payload: %w", err)
		}
		ev.CatalogItem = &p
	case EventOrderCreated, EventOrderUpdated:
		var p OrderPayload
		if err := json.Unmarshal(env.Data.Object, &p); err != nil {
			return nil, fmt.Errorf("decode order payload: %w", err)
		}
		ev.Order = &p
	default:
		return nil, &UnknownEventTypeError{Type: env.Type}
	}

	return ev, nil
}

// WebhookEventStatus is the audit outcome of one webhook delivery.
type WebhookEventStatus string

const (
	WebhookProcessed WebhookEventStatus = "processed"
	WebhookSkipped   WebhookEventStatus = "skipped"
	WebhookFailed    WebhookEventStatus = "failed"
)

// WebhookEvent is the audit trail row written for every delivery, duplicates
// included. Idempotency lives in the mirror upserts, not here; the trail
// feeds failure-rate dashboards and reconciliation of delivery questions.
type WebhookEvent struct {
	ID            int64              `db:"id" json:"id"`
	EventID       string             `db:"event_id" json:"eventId"`
	EventType     string             `db:"event_type" json:"eventType"`
	CorrelationID string             `db:"correlation_id" json:"correlationId"`
	Payload       json.RawMessage    `db:"payload" json:"payload,omitempty"`
	Status        WebhookEventStatus `db:"status" json:"status"`
	Error         *string            `db:"error" json:"error,omitempty"`
	CreatedAt     time.Time          `db:"created_at" json:"createdAt"`
	ProcessedAt   *time.Time         `db:"processed_at" json:"processedAt,omitempty"`
}
