package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/crateside/shop_api/internal/middleware"
	"github.com/crateside/shop_api/internal/service"
	"github.com/crateside/shop_api/internal/utils"
)

// WebhookHandler handles signed event deliveries from the POS vendor.
type WebhookHandler struct {
	ingestSvc *service.IngestService
}

// NewWebhookHandler constructs a WebhookHandler.
func NewWebhookHandler(ingestSvc *service.IngestService) *WebhookHandler {
	return &WebhookHandler{ingestSvc: ingestSvc}
}

// HandleInventory handles POST /webhook/inventory
func (h *WebhookHandler) HandleInventory(c *gin.Context) {
	h.handle(c)
}

// HandleOrders handles POST /webhook/orders
func (h *WebhookHandler) HandleOrders(c *gin.Context) {
	h.handle(c)
}

func (h *WebhookHandler) handle(c *gin.Context) {
	// 1. Body was verified and stashed by the signature middleware
	body := middleware.VerifiedBody(c)
	if len(body) == 0 {
		utils.Error(c, 400, "INVALID_BODY", "Missing request body")
		return
	}

	// 2. Correlation id: vendor header if present, else this request's id
	correlationID := c.GetHeader("X-Correlation-Id")
	if correlationID == "" {
		correlationID = c.GetString("request_id")
	}

	// 3. Process event
	status, err := h.ingestSvc.ProcessEvent(c.Request.Context(), body, correlationID)
	if err != nil {
		if errors.Is(err, utils.ErrInvalidEnvelope) || errors.Is(err, utils.ErrInvalidStockLevel) {
			utils.Error(c, 400, "INVALID_PAYLOAD", "Event payload failed validation")
			return
		}
		log.Error().Err(err).Str("correlation_id", correlationID).Msg("Failed to process webhook event")
		utils.Error(c, 500, "PROCESSING_FAILED", "Event could not be applied")
		return
	}

	// Skipped deliveries are acknowledged like processed ones so the vendor
	// does not redeliver event types this version does not know.
	utils.Success(c, 200, "Event received", gin.H{"status": status})
}
