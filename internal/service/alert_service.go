package service

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/crateside/shop_api/internal/config"
	"github.com/crateside/shop_api/internal/models"
	"github.com/crateside/shop_api/internal/utils"
)

// maxAlertMismatches bounds how many findings ride along in one alert body;
// the full report stays queryable through the admin API.
const maxAlertMismatches = 20

// AlertService delivers drift notifications to the operator webhook.
type AlertService struct {
	webhookURL    string
	webhookSecret string
	httpClient    *http.Client
}

// NewAlertService constructs an AlertService with a default HTTP client.
func NewAlertService(cfg *config.AlertConfig) *AlertService {
	return &AlertService{
		webhookURL:    cfg.WebhookURL,
		webhookSecret: cfg.WebhookSecret,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

// NotifyDrift posts a signed alert for a reconciliation report that found
// drift. Delivery is best-effort: a down alert endpoint must never fail the
// checker, so problems are logged rather than returned.
func (s *AlertService) NotifyDrift(report *models.Report) {
	if report == nil || s.webhookURL == "" {
		return
	}

	payload := buildAlertPayload(report)

	req, err := http.NewRequest(http.MethodPost, s.webhookURL, bytes.NewReader(payload))
	if err != nil {
		log.Error().Err(err).Msg("failed to create alert request")
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Alert-Event", "sync.drift.detected")
	req.Header.Set("X-Alert-Timestamp", time.Now().Format(time.RFC3339))
	if s.webhookSecret != "" {
		req.Header.Set("X-Alert-Signature", "sha256="+utils.GenerateSignature(payload, s.webhookSecret))
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		log.Error().Err(err).Str("check_type", string(report.CheckType)).Msg("failed to deliver drift alert")
		return
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		log.Warn().
			Int("status", resp.StatusCode).
			Str("check_type", string(report.CheckType)).
			Str("response", string(body)).
			Msg("drift alert rejected")
		return
	}

	log.Info().
		Str("check_type", string(report.CheckType)).
		Int("mismatches", report.MismatchCount).
		Int("missing_orders", len(report.MissingOrders)).
		Msg("drift alert delivered")
}

// buildAlertPayload constructs the JSON body sent to the alert webhook.
func buildAlertPayload(report *models.Report) []byte {
	type dataPayload struct {
		CheckType     string                `json:"checkType"`
		Status        string                `json:"status"`
		TotalChecked  int                   `json:"totalChecked"`
		MismatchCount int                   `json:"mismatchCount"`
		Mismatches    []models.Mismatch     `json:"mismatches,omitempty"`
		MissingOrders []models.MissingOrder `json:"missingOrders,omitempty"`
		GeneratedAt   time.Time             `json:"generatedAt"`
	}
	type payload struct {
		Event     string      `json:"event"`
		Data      dataPayload `json:"data"`
		Timestamp string      `json:"timestamp"`
	}

	mismatches := report.Mismatches
	if len(mismatches) > maxAlertMismatches {
		mismatches = mismatches[:maxAlertMismatches]
	}

	p := payload{
		Event: "sync.drift.detected",
		Data: dataPayload{
			CheckType:     string(report.CheckType),
			Status:        string(report.Status),
			TotalChecked:  report.TotalChecked,
			MismatchCount: report.MismatchCount,
			Mismatches:    mismatches,
			MissingOrders: report.MissingOrders,
			GeneratedAt:   report.GeneratedAt,
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
	b, _ := json.Marshal(p)
	return b
}
