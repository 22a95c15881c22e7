package models

import "time"

// ObservationSource identifies where a stock observation came from.
type ObservationSource string

const (
	SourceWebhook ObservationSource = "webhook"
	SourceSync    ObservationSource = "sync"
	SourceManual  ObservationSource = "manual"
)

// InventoryObservation is one append-only stock-level reading for an item.
// The ledger is never updated or deleted; "current stock" is the level of
// the most recent observation by RecordedAt, which makes the ledger tolerant
// of out-of-order and duplicate webhook delivery.
type InventoryObservation struct {
	ID         int64             `db:"id" json:"-"`
	ItemID     string            `db:"item_id" json:"itemId"`
	StockLevel int               `db:"stock_level" json:"stockLevel"`
	RecordedAt time.Time         `db:"recorded_at" json:"recordedAt"`
	Source     ObservationSource `db:"source" json:"source"`
	CreatedAt  time.Time         `db:"created_at" json:"-"`
}

// StockLevel pairs an item with its current level for batch reads.
type StockLevel struct {
	ItemID     string    `db:"item_id" json:"itemId"`
	StockLevel int       `db:"stock_level" json:"stockLevel"`
	RecordedAt time.Time `db:"recorded_at" json:"recordedAt"`
}
