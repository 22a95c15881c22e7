package repository

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crateside/shop_api/internal/models"
)

// newMockDB wraps a sqlmock connection in sqlx for repository tests.
func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return sqlx.NewDb(mockDB, "sqlmock"), mock
}

func strptr(s string) *string { return &s }

func TestCatalogRepositoryUpsertItem(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCatalogRepository(db)

	item := &models.CatalogItem{
		ID:        "item_123",
		Name:      "Blue Train",
		BasePrice: decimal.NewFromFloat(24.99),
	}

	mock.ExpectPrepare("INSERT INTO catalog_items").
		ExpectExec().
		WithArgs(item.ID, item.Name, item.BasePrice).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpsertItem(item)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepositoryUpsertDetailMergesWithCoalesce(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCatalogRepository(db)

	detail := &models.ItemDetail{
		ItemID:   "item_123",
		Category: strptr("Jazz"),
		Format:   strptr("Vinyl"),
	}

	// The merge must keep existing values when the payload omits a field.
	mock.ExpectPrepare(`INSERT INTO item_details(?s).*COALESCE\(EXCLUDED\.category, item_details\.category\)`).
		ExpectExec().
		WithArgs(
			detail.ItemID, detail.Category, detail.Format,
			nil, nil, nil, nil, nil, nil, nil, nil,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpsertDetail(detail)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepositoryExists(t *testing.T) {
	t.Run("present", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewCatalogRepository(db)

		mock.ExpectPrepare("SELECT EXISTS").
			ExpectQuery().
			WithArgs("item_123").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		ok, err := repo.Exists("item_123")
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("absent", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewCatalogRepository(db)

		mock.ExpectPrepare("SELECT EXISTS").
			ExpectQuery().
			WithArgs("item_999").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		ok, err := repo.Exists("item_999")
		assert.NoError(t, err)
		assert.False(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCatalogRepositoryGetItemWithDetailNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCatalogRepository(db)

	mock.ExpectPrepare("FROM catalog_items i").
		ExpectQuery().
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	row, err := repo.GetItemWithDetail("missing")
	assert.Nil(t, row)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepositoryListMissingEnrichment(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCatalogRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "base_price", "discogs_release_id"}).
		AddRow("item_1", "Kind of Blue", "29.99", nil).
		AddRow("item_2", "A Love Supreme", "27.50", nil)

	mock.ExpectPrepare(`WHERE d\.discogs_release_id IS NULL`).
		ExpectQuery().
		WithArgs(25).
		WillReturnRows(rows)

	items, err := repo.ListMissingEnrichment(25)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "item_1", items[0].ID)
	assert.Nil(t, items[0].DiscogsReleaseID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
