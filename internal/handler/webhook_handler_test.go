package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crateside/shop_api/internal/middleware"
	"github.com/crateside/shop_api/internal/models"
	"github.com/crateside/shop_api/internal/repository"
	"github.com/crateside/shop_api/internal/service"
	"github.com/crateside/shop_api/internal/sse"
	"github.com/crateside/shop_api/internal/utils"
)

const webhookTestSecret = "whsec_test"

// newWebhookServer mounts the webhook routes the way main wires them:
// signature verification in front, ingest handler behind, storage mocked.
// The snapshot cache stays nil; the deliveries sent here end as skipped,
// failed, or order outcomes, none of which touch it.
func newWebhookServer(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	db := sqlx.NewDb(mockDB, "sqlmock")

	catalogRepo := repository.NewCatalogRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	ingestSvc := service.NewIngestService(
		service.NewCatalogService(catalogRepo, inventoryRepo),
		service.NewInventoryService(inventoryRepo),
		service.NewOrderService(orderRepo, catalogRepo),
		repository.NewWebhookEventRepository(db),
		nil,
		sse.NewHub(),
	)
	h := NewWebhookHandler(ingestSvc)

	sig := middleware.NewSignatureMiddleware(webhookTestSecret)
	router := gin.New()
	router.POST("/webhook/inventory", sig.Handle(), h.HandleInventory)
	router.POST("/webhook/orders", sig.Handle(), h.HandleOrders)
	return router, mock
}

func deliver(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature", utils.GenerateSignature([]byte(body), webhookTestSecret))
	req.Header.Set("X-Correlation-Id", "corr_http")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func expectAuditRow(mock sqlmock.Sqlmock, status models.WebhookEventStatus) {
	mock.ExpectQuery("INSERT INTO webhook_events").
		WithArgs(
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			status, sqlmock.AnyArg(), sqlmock.AnyArg(),
		).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), time.Now()))
}

func TestWebhookDeliveryAcknowledgesUnknownType(t *testing.T) {
	router, mock := newWebhookServer(t)

	expectAuditRow(mock, models.WebhookSkipped)

	body := `{"type":"customer.updated","eventId":"evt_1","createdAt":"2026-04-02T12:00:00Z","data":{"object":{}}}`
	w := deliver(router, "/webhook/inventory", body)

	assert.Equal(t, http.StatusOK, w.Code, "acknowledging unknown types stops the vendor from redelivering them forever")
	assert.Contains(t, w.Body.String(), "skipped")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookDeliveryRejectsMalformedPayload(t *testing.T) {
	router, mock := newWebhookServer(t)

	expectAuditRow(mock, models.WebhookFailed)

	w := deliver(router, "/webhook/inventory", `{"type":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_PAYLOAD")
	assert.NoError(t, mock.ExpectationsWereMet(), "a malformed body leaves only the audit row behind")
}

func TestWebhookDeliveryReturns500WhenStorageFails(t *testing.T) {
	router, mock := newWebhookServer(t)

	mock.ExpectQuery("INSERT INTO inventory_observations").
		WillReturnError(errors.New("connection reset by peer"))
	expectAuditRow(mock, models.WebhookFailed)

	body := `{"type":"inventory.count.updated","eventId":"evt_2","createdAt":"2026-04-02T12:00:00Z","data":{"object":{"itemId":"item_1","stockLevel":4}}}`
	w := deliver(router, "/webhook/inventory", body)

	assert.Equal(t, http.StatusInternalServerError, w.Code, "a 5xx tells the vendor to redeliver once storage recovers")
	assert.Contains(t, w.Body.String(), "PROCESSING_FAILED")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookDeliveryMirrorsOrder(t *testing.T) {
	router, mock := newWebhookServer(t)

	mock.ExpectPrepare("SELECT EXISTS").
		ExpectQuery().
		WithArgs("item_7").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orders").
		WillReturnRows(sqlmock.NewRows([]string{"id", "inserted"}).AddRow(int64(11), true))
	mock.ExpectExec("DELETE FROM order_items").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO order_items").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE order_item_gaps").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	expectAuditRow(mock, models.WebhookProcessed)

	body := `{
		"type": "order.created",
		"eventId": "evt_3",
		"createdAt": "2026-04-02T12:00:00Z",
		"data": {"object": {
			"orderNumber": "ord_2001",
			"state": "OPEN",
			"totalMinor": 3499,
			"orderedAt": "2026-04-02T11:58:00Z",
			"lineItems": [{"itemId": "item_7", "quantity": 1, "priceMinor": 3499}]
		}}
	}`
	w := deliver(router, "/webhook/orders", body)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "processed")
	assert.NoError(t, mock.ExpectationsWereMet())
}
