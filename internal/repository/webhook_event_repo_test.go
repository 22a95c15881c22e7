package repository

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crateside/shop_api/internal/models"
)

func TestWebhookEventRepositoryInsert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewWebhookEventRepository(db)

	processed := time.Now().UTC()
	ev := &models.WebhookEvent{
		EventID:       "evt_01",
		EventType:     string(models.EventInventoryCountUpdated),
		CorrelationID: "req_abc",
		Payload:       json.RawMessage(`{"type":"inventory.count.updated"}`),
		Status:        models.WebhookProcessed,
		ProcessedAt:   &processed,
	}

	mock.ExpectQuery("INSERT INTO webhook_events").
		WithArgs(ev.EventID, ev.EventType, ev.CorrelationID, []byte(ev.Payload), ev.Status, nil, ev.ProcessedAt).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), time.Now()))

	err := repo.Insert(ev)
	require.NoError(t, err)
	assert.Equal(t, int64(1), ev.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookEventRepositoryListAdminFilters(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewWebhookEventRepository(db)

	status := string(models.WebhookFailed)
	filter := &EventFilter{Status: &status, Page: 1, Limit: 10}

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM webhook_events WHERE 1=1 AND status").
		WithArgs(status).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	rows := sqlmock.NewRows([]string{"id", "event_id", "event_type", "status", "created_at"}).
		AddRow(int64(5), "evt_05", "order.created", status, time.Now())
	mock.ExpectQuery("FROM webhook_events WHERE 1=1 AND status").
		WithArgs(status, 10, 0).
		WillReturnRows(rows)

	res, err := repo.ListAdmin(filter)
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalItems)
	require.Len(t, res.Events, 1)
	assert.Equal(t, "evt_05", res.Events[0].EventID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookEventRepositoryCountFailedSince(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewWebhookEventRepository(db)

	cutoff := time.Now().Add(-time.Hour)
	mock.ExpectPrepare("SELECT COUNT\\(\\*\\) FROM webhook_events WHERE status").
		ExpectQuery().
		WithArgs(models.WebhookFailed, cutoff).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	n, err := repo.CountFailedSince(cutoff)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
