package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// CheckType names a reconciliation check.
type CheckType string

const (
	CheckInventory CheckType = "inventory"
	CheckOrders    CheckType = "orders"
)

// ReportStatus summarizes a reconciliation outcome.
type ReportStatus string

const (
	ReportOK    ReportStatus = "ok"
	ReportDrift ReportStatus = "drift"
)

// Mismatch is one field-level discrepancy between the external system and
// the mirror. Expected/Actual keep their native JSON types (numbers for
// stock, strings for text fields).
type Mismatch struct {
	ID       string `json:"id"`
	Field    string `json:"field"`
	Expected any    `json:"expected"`
	Actual   any    `json:"actual"`
}

// MissingOrder is an external order absent from the mirror past its
// propagation window. This is the highest-severity finding: it implies a
// missing financial record.
type MissingOrder struct {
	OrderNumber string          `json:"orderNumber"`
	ExternalID  string          `json:"externalId"`
	Amount      decimal.Decimal `json:"amount"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Report is the structured output of one reconciliation check. Items seen on
// only one side are reported separately and excluded from MismatchCount: a
// sync lag is an expected transient, not drift.
type Report struct {
	CheckType     CheckType      `json:"checkType"`
	Status        ReportStatus   `json:"status"`
	TotalChecked  int            `json:"totalChecked"`
	MismatchCount int            `json:"mismatchCount"`
	Mismatches    []Mismatch     `json:"mismatches"`
	ExternalOnly  []string       `json:"externalOnly,omitempty"`
	MirrorOnly    []string       `json:"mirrorOnly,omitempty"`
	MissingOrders []MissingOrder `json:"missingOrders,omitempty"`
	GeneratedAt   time.Time      `json:"generatedAt"`
}

// HasDrift reports whether the check found anything alert-worthy.
func (r *Report) HasDrift() bool {
	return r.MismatchCount > 0 || len(r.MissingOrders) > 0
}

// ReconciliationReport is the persisted form of a Report, kept for the
// admin dashboard and drift history.
type ReconciliationReport struct {
	ID            int64           `db:"id" json:"id"`
	CheckType     CheckType       `db:"check_type" json:"checkType"`
	Status        ReportStatus    `db:"status" json:"status"`
	TotalChecked  int             `db:"total_checked" json:"totalChecked"`
	MismatchCount int             `db:"mismatch_count" json:"mismatchCount"`
	Report        json.RawMessage `db:"report" json:"report"`
	CreatedAt     time.Time       `db:"created_at" json:"createdAt"`
}
