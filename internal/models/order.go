package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the internal four-state order lifecycle.
type OrderStatus string

const (
	OrderPending    OrderStatus = "Pending"
	OrderProcessing OrderStatus = "Processing"
	OrderConfirmed  OrderStatus = "Confirmed"
	OrderCancelled  OrderStatus = "Cancelled"
)

// externalStates maps the POS lifecycle states onto the internal enum.
// Unknown states fall back to Processing so a vendor adding a state never
// hard-fails ingestion.
var externalStates = map[string]OrderStatus{
	"OPEN":      OrderPending,
	"DRAFT":     OrderPending,
	"IN_REVIEW": OrderProcessing,
	"APPROVED":  OrderProcessing,
	"COMPLETED": OrderConfirmed,
	"FULFILLED": OrderConfirmed,
	"CANCELED":  OrderCancelled,
	"CANCELLED": OrderCancelled,
	"REFUNDED":  OrderCancelled,
}

// MapOrderStatus translates an external lifecycle state to the internal
// enum, defaulting to Processing for states this version does not know.
func MapOrderStatus(external string) OrderStatus {
	if s, ok := externalStates[external]; ok {
		return s
	}
	return OrderProcessing
}

// Order mirrors one logical POS order. ExternalOrderNumber is the stable
// identity: redelivery of the same order event updates this row in place.
type Order struct {
	ID                  int64           `db:"id" json:"-"`
	ExternalOrderNumber string          `db:"external_order_number" json:"orderNumber"`
	CustomerID          *string         `db:"customer_id" json:"customerId,omitempty"`
	TotalAmount         decimal.Decimal `db:"total_amount" json:"totalAmount"`
	Status              OrderStatus     `db:"status" json:"status"`
	OrderedAt           time.Time       `db:"ordered_at" json:"orderedAt"`
	CreatedAt           time.Time       `db:"created_at" json:"-"`
	UpdatedAt           time.Time       `db:"updated_at" json:"updatedAt"`
}

// OrderItem is one line of an order. The full line set is replaced on every
// order upsert; the payload is authoritative, not incremental.
type OrderItem struct {
	ID              int64           `db:"id" json:"-"`
	OrderID         int64           `db:"order_id" json:"-"`
	ItemID          string          `db:"item_id" json:"itemId"`
	Quantity        int             `db:"quantity" json:"quantity"`
	PriceAtPurchase decimal.Decimal `db:"price_at_purchase" json:"priceAtPurchase"`
}

// OrderWithItemCount is an order joined with its stored line count, used by
// the order reconciliation check.
type OrderWithItemCount struct {
	Order
	ItemCount int `db:"item_count"`
}

// OrderItemGap records a line item that was skipped because its catalog item
// had not been mirrored yet. The backfill worker re-inserts the line once
// the catalog item arrives and stamps ResolvedAt.
type OrderItemGap struct {
	ID                  int64           `db:"id"`
	ExternalOrderNumber string          `db:"external_order_number"`
	ItemID              string          `db:"item_id"`
	Quantity            int             `db:"quantity"`
	PriceAtPurchase     decimal.Decimal `db:"price_at_purchase"`
	CreatedAt           time.Time       `db:"created_at"`
	ResolvedAt          *time.Time      `db:"resolved_at"`
}
