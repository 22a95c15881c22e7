package service

import (
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crateside/shop_api/internal/models"
	"github.com/crateside/shop_api/internal/repository"
)

// newMockDB wraps a sqlmock connection in sqlx so service tests can run
// against real repositories.
func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return sqlx.NewDb(mockDB, "sqlmock"), mock
}

func TestMinorToDecimalIsExact(t *testing.T) {
	assert.Equal(t, "19.99", minorToDecimal(1999).String())
	assert.Equal(t, "42.50", minorToDecimal(4250).String())
	assert.Equal(t, "0.09", minorToDecimal(9).String())
	assert.True(t, minorToDecimal(0).IsZero())
}

func TestOrderServiceScreensLines(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewOrderService(repository.NewOrderRepository(db), repository.NewCatalogRepository(db))

	payload := &models.OrderPayload{
		OrderNumber: "ord_1042",
		State:       "COMPLETED",
		TotalMinor:  5497,
		OrderedAt:   time.Date(2026, 4, 2, 11, 30, 0, 0, time.UTC),
		LineItems: []models.OrderLinePayload{
			{ItemID: "item_known", Quantity: 1, PriceMinor: 2499},
			{ItemID: "item_unknown", Quantity: 2, PriceMinor: 1499},
			// Ad hoc register line: no catalog id, silently dropped.
			{Quantity: 1, PriceMinor: 500},
		},
	}

	mock.ExpectPrepare("SELECT EXISTS").
		ExpectQuery().
		WithArgs("item_known").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectPrepare("SELECT EXISTS").
		ExpectQuery().
		WithArgs("item_unknown").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orders").
		WithArgs("ord_1042", nil, decimal.New(5497, -2), models.OrderConfirmed, payload.OrderedAt).
		WillReturnRows(sqlmock.NewRows([]string{"id", "inserted"}).AddRow(int64(7), true))
	mock.ExpectExec("DELETE FROM order_items").
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO order_items").
		WithArgs(int64(7), "item_known", 1, decimal.New(2499, -2)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO order_item_gaps").
		WithArgs("ord_1042", "item_unknown", 2, decimal.New(1499, -2)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE order_item_gaps").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	res, err := svc.UpsertFromPayload(payload)
	require.NoError(t, err)
	assert.True(t, res.WasInserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderServiceMapsExternalState(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewOrderService(repository.NewOrderRepository(db), repository.NewCatalogRepository(db))

	// A state this version does not know must not fail ingestion.
	payload := &models.OrderPayload{
		OrderNumber: "ord_2000",
		State:       "PARTIALLY_SHIPPED",
		TotalMinor:  1000,
		OrderedAt:   time.Now().UTC(),
	}

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orders").
		WithArgs("ord_2000", nil, decimal.New(1000, -2), models.OrderProcessing, payload.OrderedAt).
		WillReturnRows(sqlmock.NewRows([]string{"id", "inserted"}).AddRow(int64(4), true))
	mock.ExpectExec("DELETE FROM order_items").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE order_item_gaps").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	_, err := svc.UpsertFromPayload(payload)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderServiceBackfillContinuesOnFailure(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewOrderService(repository.NewOrderRepository(db), repository.NewCatalogRepository(db))

	price := decimal.New(1999, -2)
	gapRows := sqlmock.NewRows([]string{
		"id", "external_order_number", "item_id", "quantity", "price_at_purchase", "created_at", "resolved_at",
	}).
		AddRow(int64(1), "ord_1001", "item_a", 1, "19.99", time.Now(), nil).
		AddRow(int64(2), "ord_1002", "item_b", 1, "19.99", time.Now(), nil)

	mock.ExpectPrepare("JOIN catalog_items c ON").
		ExpectQuery().
		WithArgs(50).
		WillReturnRows(gapRows)

	// First gap restores cleanly.
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO order_items").
		WithArgs("ord_1001", "item_a", 1, price).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE order_item_gaps SET resolved_at").
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// Second gap fails; the batch must keep going.
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO order_items").
		WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	mock.ExpectPrepare("SELECT COUNT").
		ExpectQuery().
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	restored, err := svc.Backfill(50)
	require.NoError(t, err)
	assert.Equal(t, 1, restored)
	assert.NoError(t, mock.ExpectationsWereMet())
}
