package repository

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/crateside/shop_api/internal/models"
)

// WebhookEventRepository handles data access for the webhook audit trail.
type WebhookEventRepository struct {
	db *sqlx.DB
}

// NewWebhookEventRepository creates a new WebhookEventRepository.
func NewWebhookEventRepository(db *sqlx.DB) *WebhookEventRepository {
	return &WebhookEventRepository{db: db}
}

// Insert appends one audit row. Every delivery gets a row, duplicates and
// failures included.
func (r *WebhookEventRepository) Insert(ev *models.WebhookEvent) error {
	const q = `
        INSERT INTO webhook_events (
            event_id, event_type, correlation_id, payload, status, error, processed_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7
        ) RETURNING id, created_at`

	return r.db.QueryRow(q,
		ev.EventID, ev.EventType, ev.CorrelationID, []byte(ev.Payload), ev.Status, ev.Error, ev.ProcessedAt,
	).Scan(&ev.ID, &ev.CreatedAt)
}

// EventFilter narrows the admin event listing.
type EventFilter struct {
	EventType *string
	Status    *string
	EventID   *string
	Page      int
	Limit     int
}

// EventListResult contains paginated audit rows.
type EventListResult struct {
	Events     []models.WebhookEvent
	TotalItems int
	TotalPages int
	Page       int
	Limit      int
}

// ListAdmin returns audit rows for the admin surface with filters and
// pagination, newest first.
func (r *WebhookEventRepository) ListAdmin(filter *EventFilter) (*EventListResult, error) {
	baseQ := `FROM webhook_events WHERE 1=1`

	args := []interface{}{}
	argIdx := 1

	if filter.EventType != nil && *filter.EventType != "" {
		baseQ += fmt.Sprintf(" AND event_type = $%d", argIdx)
		args = append(args, *filter.EventType)
		argIdx++
	}
	if filter.Status != nil && *filter.Status != "" {
		baseQ += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, *filter.Status)
		argIdx++
	}
	if filter.EventID != nil && *filter.EventID != "" {
		baseQ += fmt.Sprintf(" AND event_id = $%d", argIdx)
		args = append(args, *filter.EventID)
		argIdx++
	}

	countQ := "SELECT COUNT(*) " + baseQ
	var total int
	if err := r.db.Get(&total, countQ, args...); err != nil {
		return nil, err
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	if filter.Limit > 200 {
		filter.Limit = 200
	}
	offset := (filter.Page - 1) * filter.Limit
	totalPages := (total + filter.Limit - 1) / filter.Limit

	selectQ := fmt.Sprintf(`
        SELECT id, event_id, event_type, correlation_id, payload, status, error, created_at, processed_at
        %s
        ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, baseQ, argIdx, argIdx+1)
	args = append(args, filter.Limit, offset)

	var events []models.WebhookEvent
	if err := r.db.Select(&events, selectQ, args...); err != nil {
		return nil, err
	}

	return &EventListResult{
		Events:     events,
		TotalItems: total,
		TotalPages: totalPages,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}, nil
}

// CountFailedSince returns the number of failed deliveries after the cutoff,
// for the drift alert and the health surface.
func (r *WebhookEventRepository) CountFailedSince(cutoff time.Time) (int, error) {
	const q = `SELECT COUNT(*) FROM webhook_events WHERE status = $1 AND created_at >= $2`
	stmt, err := r.db.Preparex(q)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()
	var n int
	if err := stmt.Get(&n, models.WebhookFailed, cutoff); err != nil {
		return 0, err
	}
	return n, nil
}
