package service

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crateside/shop_api/internal/models"
	"github.com/crateside/shop_api/internal/repository"
	"github.com/crateside/shop_api/internal/utils"
)

func TestInventoryRecordRejectsNegativeLevel(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewInventoryService(repository.NewInventoryRepository(db))

	obs, err := svc.Record("item_1", -1, time.Now(), models.SourceWebhook)
	assert.Nil(t, obs)
	assert.ErrorIs(t, err, utils.ErrInvalidStockLevel)
	assert.NoError(t, mock.ExpectationsWereMet(), "a rejected level must never reach the ledger")
}

func TestInventoryRecordKeepsSourceClock(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewInventoryService(repository.NewInventoryRepository(db))

	// The source's timestamp flows through untouched: "current" resolution
	// depends on it, not on our arrival time.
	recorded := time.Date(2026, 3, 10, 15, 4, 5, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO inventory_observations").
		WithArgs("item_1", 12, recorded, models.SourceWebhook).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), time.Now()))

	obs, err := svc.Record("item_1", 12, recorded, models.SourceWebhook)
	require.NoError(t, err)
	assert.Equal(t, recorded, obs.RecordedAt)
	assert.Equal(t, int64(7), obs.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryRecordDefaultsMissingTimestamp(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewInventoryService(repository.NewInventoryRepository(db))

	mock.ExpectQuery("INSERT INTO inventory_observations").
		WithArgs("item_1", 3, sqlmock.AnyArg(), models.SourceManual).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(8), time.Now()))

	obs, err := svc.Record("item_1", 3, time.Time{}, models.SourceManual)
	require.NoError(t, err)
	assert.False(t, obs.RecordedAt.IsZero())
	assert.WithinDuration(t, time.Now().UTC(), obs.RecordedAt, time.Minute)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryCurrentLevelNeverObserved(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewInventoryService(repository.NewInventoryRepository(db))

	mock.ExpectPrepare("ORDER BY recorded_at DESC, id DESC").
		ExpectQuery().
		WithArgs("item_new").
		WillReturnError(sql.ErrNoRows)

	level, err := svc.CurrentLevel("item_new")
	assert.NoError(t, err, "an unobserved item is nil, not an error")
	assert.Nil(t, level)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryHistoryClampsLimit(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewInventoryService(repository.NewInventoryRepository(db))

	rows := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"id", "item_id", "stock_level", "recorded_at", "source", "created_at"}).
			AddRow(int64(1), "item_1", 4, time.Now(), "webhook", time.Now())
	}

	mock.ExpectPrepare("LIMIT \\$2").
		ExpectQuery().
		WithArgs("item_1", 100).
		WillReturnRows(rows())
	_, err := svc.History("item_1", 0)
	require.NoError(t, err)

	mock.ExpectPrepare("LIMIT \\$2").
		ExpectQuery().
		WithArgs("item_1", 100).
		WillReturnRows(rows())
	_, err = svc.History("item_1", 9999)
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}
