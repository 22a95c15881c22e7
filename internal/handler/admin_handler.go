package handler

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/crateside/shop_api/internal/models"
	"github.com/crateside/shop_api/internal/repository"
	"github.com/crateside/shop_api/internal/service"
	"github.com/crateside/shop_api/internal/utils"
)

// AdminHandler handles the operator surface: manual sync triggers,
// reconciliation runs, and read access to the mirror and its audit trails.
type AdminHandler struct {
	reportSvc    *service.ReportService
	refreshSvc   *service.RefreshService
	ingestSvc    *service.IngestService
	orderSvc     *service.OrderService
	inventorySvc *service.InventoryService
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(
	reportSvc *service.ReportService,
	refreshSvc *service.RefreshService,
	ingestSvc *service.IngestService,
	orderSvc *service.OrderService,
	inventorySvc *service.InventoryService,
) *AdminHandler {
	return &AdminHandler{
		reportSvc:    reportSvc,
		refreshSvc:   refreshSvc,
		ingestSvc:    ingestSvc,
		orderSvc:     orderSvc,
		inventorySvc: inventorySvc,
	}
}

// RunInventoryCheck handles POST /v1/admin/reconcile/inventory
func (h *AdminHandler) RunInventoryCheck(c *gin.Context) {
	h.runCheck(c, models.CheckInventory)
}

// RunOrdersCheck handles POST /v1/admin/reconcile/orders
func (h *AdminHandler) RunOrdersCheck(c *gin.Context) {
	h.runCheck(c, models.CheckOrders)
}

func (h *AdminHandler) runCheck(c *gin.Context, checkType models.CheckType) {
	report, err := h.reportSvc.Run(c.Request.Context(), checkType)
	if err != nil {
		log.Error().Err(err).Str("check_type", string(checkType)).Msg("Reconciliation check failed")
		utils.Error(c, 500, "RECONCILE_FAILED", "Reconciliation check failed")
		return
	}

	utils.Success(c, 200, "Reconciliation completed", report)
}

// TriggerRefresh handles POST /v1/admin/refresh. Runs a full sync cycle
// inline and reports when it finished.
func (h *AdminHandler) TriggerRefresh(c *gin.Context) {
	started := time.Now()
	if err := h.refreshSvc.RefreshAll(c.Request.Context()); err != nil {
		log.Error().Err(err).Msg("Manual refresh failed")
		utils.Error(c, 500, "REFRESH_FAILED", "Refresh cycle failed")
		return
	}

	utils.Success(c, 200, "Refresh completed", gin.H{
		"durationMs": time.Since(started).Milliseconds(),
	})
}

// TriggerEnrichment handles POST /v1/admin/enrich. Runs one enrichment batch
// outside the regular refresh cycle.
func (h *AdminHandler) TriggerEnrichment(c *gin.Context) {
	limit := 25
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	enriched, err := h.refreshSvc.EnrichMissing(c.Request.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("Manual enrichment failed")
		utils.Error(c, 500, "ENRICHMENT_FAILED", "Enrichment batch failed")
		return
	}

	utils.Success(c, 200, "Enrichment completed", gin.H{"enriched": enriched})
}

// ListReports handles GET /v1/admin/reports
func (h *AdminHandler) ListReports(c *gin.Context) {
	checkType := models.CheckType(c.Query("checkType"))

	limit := 20
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	reports, err := h.reportSvc.ListRecent(checkType, limit)
	if err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to retrieve reports")
		return
	}

	utils.Success(c, 200, "Reports retrieved", gin.H{"reports": reports})
}

// GetLatestReport handles GET /v1/admin/reports/latest?checkType=inventory
func (h *AdminHandler) GetLatestReport(c *gin.Context) {
	checkType := models.CheckType(c.Query("checkType"))
	if checkType != models.CheckInventory && checkType != models.CheckOrders {
		utils.Error(c, 400, "INVALID_CHECK_TYPE", "checkType must be inventory or orders")
		return
	}

	report, err := h.reportSvc.Latest(checkType)
	if err != nil {
		if errors.Is(err, utils.ErrReportNotFound) {
			utils.Error(c, 404, "REPORT_NOT_FOUND", "No report stored for this check type")
			return
		}
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to retrieve report")
		return
	}

	utils.Success(c, 200, "Report retrieved", report)
}

// ListWebhookEvents handles GET /v1/admin/webhook-events
func (h *AdminHandler) ListWebhookEvents(c *gin.Context) {
	var filter repository.EventFilter

	if eventType := c.Query("eventType"); eventType != "" {
		filter.EventType = &eventType
	}
	if status := c.Query("status"); status != "" {
		filter.Status = &status
	}
	if eventID := c.Query("eventId"); eventID != "" {
		filter.EventID = &eventID
	}

	if v := c.Query("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Page = n
		}
	}
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}

	result, err := h.ingestSvc.ListEvents(&filter)
	if err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to retrieve webhook events")
		return
	}

	utils.SuccessWithPagination(c, 200, "Webhook events retrieved", gin.H{
		"events": result.Events,
	}, result.Page, result.Limit, result.TotalItems)
}

// ListRecentOrders handles GET /v1/admin/orders
func (h *AdminHandler) ListRecentOrders(c *gin.Context) {
	lookback := 24 * time.Hour
	if v := c.Query("lookback"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			lookback = d
		}
	}

	orders, err := h.orderSvc.RecentOrders(lookback)
	if err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to retrieve orders")
		return
	}

	utils.Success(c, 200, "Orders retrieved", gin.H{"orders": orders})
}

// GetOrder handles GET /v1/admin/orders/:orderNumber
func (h *AdminHandler) GetOrder(c *gin.Context) {
	orderNumber := c.Param("orderNumber")
	if orderNumber == "" {
		utils.Error(c, 400, "INVALID_ID", "Order number is required")
		return
	}

	order, items, err := h.orderSvc.GetOrder(orderNumber)
	if err != nil {
		if errors.Is(err, utils.ErrOrderNotFound) {
			utils.Error(c, 404, "ORDER_NOT_FOUND", "Order not found")
			return
		}
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to retrieve order")
		return
	}

	utils.Success(c, 200, "Order retrieved", gin.H{
		"order": order,
		"items": items,
	})
}

// GetStockHistory handles GET /v1/admin/inventory/:itemId/history
func (h *AdminHandler) GetStockHistory(c *gin.Context) {
	itemID := c.Param("itemId")
	if itemID == "" {
		utils.Error(c, 400, "INVALID_ID", "Item ID is required")
		return
	}

	limit := 100
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	history, err := h.inventorySvc.History(itemID, limit)
	if err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to retrieve stock history")
		return
	}

	// An item with no observations yet is an empty ledger, not a 404.
	current, err := h.inventorySvc.CurrentLevel(itemID)
	if err != nil {
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to retrieve stock level")
		return
	}

	data := gin.H{
		"itemId":       itemID,
		"observations": history,
	}
	if current != nil {
		data["currentLevel"] = current.StockLevel
	} else {
		data["currentLevel"] = nil
	}

	utils.Success(c, 200, "Stock history retrieved", data)
}
