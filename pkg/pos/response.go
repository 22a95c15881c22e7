package pos

import (
	"fmt"
	"time"
)

// CatalogPage is one page of the catalog listing.
type CatalogPage struct {
	Items  []CatalogObject `json:"items"`
	Cursor string          `json:"cursor,omitempty"`
}

// CatalogObject is a sellable item as the POS represents it.
type CatalogObject struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	PriceMinor  int64     `json:"price_minor"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// InventoryCountsResponse wraps the batch inventory result.
type InventoryCountsResponse struct {
	Counts []InventoryCount `json:"counts"`
}

// InventoryCount is the counted quantity of one item at one location.
type InventoryCount struct {
	ItemID       string    `json:"item_id"`
	Quantity     int       `json:"quantity"`
	CalculatedAt time.Time `json:"calculated_at"`
}

// OrderPage is one page of an order search.
type OrderPage struct {
	Orders []Order `json:"orders"`
	Cursor string  `json:"cursor,omitempty"`
}

// Order is an order as the POS represents it. Number is the human-facing
// order number, the same identity webhook payloads carry; ID is the
// platform's internal object id.
type Order struct {
	ID         string      `json:"id"`
	Number     string      `json:"number"`
	CustomerID string      `json:"customer_id,omitempty"`
	State      string      `json:"state"`
	TotalMinor int64       `json:"total_minor"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
	LineItems  []OrderLine `json:"line_items"`
}

// OrderLine is a single purchased line. CatalogItemID may be empty when the
// line was keyed in ad hoc at the register.
type OrderLine struct {
	CatalogItemID string `json:"catalog_item_id,omitempty"`
	Quantity      int    `json:"quantity"`
	PriceMinor    int64  `json:"price_minor"`
}

type errorResponse struct {
	Error *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// APIError is a non-2xx response from the POS API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("pos: %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("pos: unexpected status %d", e.StatusCode)
}
