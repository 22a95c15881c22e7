package repository

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crateside/shop_api/internal/models"
)

func TestInventoryRepositoryInsert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewInventoryRepository(db)

	obs := &models.InventoryObservation{
		ItemID:     "item_123",
		StockLevel: 3,
		RecordedAt: time.Date(2026, 3, 10, 15, 4, 5, 0, time.UTC),
		Source:     models.SourceWebhook,
	}

	created := time.Now().UTC()
	mock.ExpectQuery("INSERT INTO inventory_observations").
		WithArgs(obs.ItemID, obs.StockLevel, obs.RecordedAt, obs.Source).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(42), created))

	err := repo.Insert(obs)
	require.NoError(t, err)
	assert.Equal(t, int64(42), obs.ID)
	assert.Equal(t, created, obs.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryRepositoryCurrentLevel(t *testing.T) {
	t.Run("returns latest by recorded_at", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewInventoryRepository(db)

		recorded := time.Date(2026, 3, 10, 15, 4, 5, 0, time.UTC)
		mock.ExpectPrepare("ORDER BY recorded_at DESC, id DESC").
			ExpectQuery().
			WithArgs("item_123").
			WillReturnRows(sqlmock.NewRows([]string{"item_id", "stock_level", "recorded_at"}).
				AddRow("item_123", 0, recorded))

		level, err := repo.CurrentLevel("item_123")
		require.NoError(t, err)
		// Zero is a real level, distinct from "never observed".
		assert.Equal(t, 0, level.StockLevel)
		assert.Equal(t, recorded, level.RecordedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("never observed", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewInventoryRepository(db)

		mock.ExpectPrepare("ORDER BY recorded_at DESC, id DESC").
			ExpectQuery().
			WithArgs("item_new").
			WillReturnError(sql.ErrNoRows)

		level, err := repo.CurrentLevel("item_new")
		assert.Nil(t, level)
		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestInventoryRepositoryCurrentLevels(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewInventoryRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"item_id", "stock_level", "recorded_at"}).
		AddRow("item_1", 5, now).
		AddRow("item_2", 0, now.Add(-time.Hour))

	mock.ExpectPrepare("SELECT DISTINCT ON \\(item_id\\)").
		ExpectQuery().
		WillReturnRows(rows)

	levels, err := repo.CurrentLevels()
	require.NoError(t, err)
	require.Len(t, levels, 2)
	assert.Equal(t, "item_1", levels[0].ItemID)
	assert.Equal(t, 5, levels[0].StockLevel)
	assert.NoError(t, mock.ExpectationsWereMet())
}
