package pos

import "time"

// BatchInventoryCountsRequest asks for current counts of specific items at
// one location.
type BatchInventoryCountsRequest struct {
	LocationID string   `json:"location_id"`
	ItemIDs    []string `json:"item_ids"`
}

// SearchOrdersRequest filters orders by location and update time, with
// cursor pagination.
type SearchOrdersRequest struct {
	LocationID     string    `json:"location_id"`
	UpdatedAtAfter time.Time `json:"updated_at_after"`
	Cursor         string    `json:"cursor,omitempty"`
	Limit          int       `json:"limit,omitempty"`
}
