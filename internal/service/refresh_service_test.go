package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crateside/shop_api/internal/ratelimit"
	"github.com/crateside/shop_api/internal/repository"
	"github.com/crateside/shop_api/internal/sse"
	"github.com/crateside/shop_api/pkg/discogs"
)

type stubDiscogs struct {
	results  []discogs.SearchResult
	release  *discogs.Release
	searches []string
}

func (s *stubDiscogs) Search(_ context.Context, query string) ([]discogs.SearchResult, error) {
	s.searches = append(s.searches, query)
	return s.results, nil
}

func (s *stubDiscogs) GetRelease(_ context.Context, _ int64) (*discogs.Release, error) {
	return s.release, nil
}

func newRefreshService(t *testing.T, db *sqlx.DB, dc DiscogsClient) *RefreshService {
	t.Helper()
	catalogRepo := repository.NewCatalogRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db)
	orderRepo := repository.NewOrderRepository(db)

	limiter := ratelimit.New(6000)
	t.Cleanup(limiter.Close)

	return NewRefreshService(
		&stubPOS{},
		dc,
		limiter,
		NewCatalogService(catalogRepo, inventoryRepo),
		NewInventoryService(inventoryRepo),
		NewOrderService(orderRepo, catalogRepo),
		nil,
		nil,
		sse.NewHub(),
		25,
		24*time.Hour,
	)
}

func TestRefreshEnrichMissingAppliesMetadata(t *testing.T) {
	db, mock := newMockDB(t)
	dc := &stubDiscogs{
		results: []discogs.SearchResult{{ID: 123, Title: "John Coltrane - Blue Train"}},
		release: &discogs.Release{
			ID:     123,
			Title:  "Blue Train",
			Year:   1957,
			Labels: []discogs.Label{{Name: "Blue Note", CatNo: "BLP 1577"}},
			Thumb:  "https://img.discogs.test/r/123.jpg",
		},
	}
	svc := newRefreshService(t, db, dc)

	missing := sqlmock.NewRows([]string{"id", "name", "base_price", "discogs_release_id"}).
		AddRow("item_1", "Blue Train", "24.99", nil)
	mock.ExpectPrepare(`WHERE d\.discogs_release_id IS NULL`).
		ExpectQuery().
		WithArgs(25).
		WillReturnRows(missing)

	mock.ExpectPrepare("SELECT EXISTS").
		ExpectQuery().
		WithArgs("item_1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectPrepare("INSERT INTO item_details").
		ExpectExec().
		WithArgs(
			"item_1", nil, nil, nil, nil, nil, nil,
			"https://img.discogs.test/r/123.jpg", int64(123), 1957, "Blue Note",
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	enriched, err := svc.EnrichMissing(context.Background(), 25)
	require.NoError(t, err)
	assert.Equal(t, 1, enriched)
	assert.Equal(t, []string{"Blue Train"}, dc.searches)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshEnrichMissingSkipsUnmatched(t *testing.T) {
	db, mock := newMockDB(t)
	dc := &stubDiscogs{}
	svc := newRefreshService(t, db, dc)

	missing := sqlmock.NewRows([]string{"id", "name", "base_price", "discogs_release_id"}).
		AddRow("item_obscure", "Basement Tape Vol. 9", "5.00", nil)
	mock.ExpectPrepare(`WHERE d\.discogs_release_id IS NULL`).
		ExpectQuery().
		WithArgs(25).
		WillReturnRows(missing)

	enriched, err := svc.EnrichMissing(context.Background(), 25)
	require.NoError(t, err)
	assert.Equal(t, 0, enriched, "an unmatched item stays unenriched until the next pass")
	assert.NoError(t, mock.ExpectationsWereMet(), "no detail row is written without a match")
}

func TestRefreshEnrichMissingNothingToDo(t *testing.T) {
	db, mock := newMockDB(t)
	dc := &stubDiscogs{}
	svc := newRefreshService(t, db, dc)

	mock.ExpectPrepare(`WHERE d\.discogs_release_id IS NULL`).
		ExpectQuery().
		WithArgs(25).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "base_price", "discogs_release_id"}))

	enriched, err := svc.EnrichMissing(context.Background(), 25)
	require.NoError(t, err)
	assert.Equal(t, 0, enriched)
	assert.Empty(t, dc.searches, "no lookups are spent when nothing is missing")
	assert.NoError(t, mock.ExpectationsWereMet())
}
