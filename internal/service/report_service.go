package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/crateside/shop_api/internal/models"
	"github.com/crateside/shop_api/internal/repository"
	"github.com/crateside/shop_api/internal/sse"
	"github.com/crateside/shop_api/internal/utils"
)

// ReportService runs reconciliation checks end to end: execute the check,
// persist the report, and raise the alarm on drift. The worker and the admin
// surface both go through here so a manual run behaves exactly like a
// scheduled one.
type ReportService struct {
	reconcileSvc *ReconcileService
	alertSvc     *AlertService
	reportRepo   *repository.ReportRepository
	hub          *sse.Hub
}

// NewReportService constructs a ReportService.
func NewReportService(
	reconcileSvc *ReconcileService,
	alertSvc *AlertService,
	reportRepo *repository.ReportRepository,
	hub *sse.Hub,
) *ReportService {
	return &ReportService{
		reconcileSvc: reconcileSvc,
		alertSvc:     alertSvc,
		reportRepo:   reportRepo,
		hub:          hub,
	}
}

// Run executes one reconciliation check and handles its outcome.
func (s *ReportService) Run(ctx context.Context, checkType models.CheckType) (*models.Report, error) {
	var (
		report *models.Report
		err    error
	)
	switch checkType {
	case models.CheckInventory:
		report, err = s.reconcileSvc.CheckInventory(ctx)
	case models.CheckOrders:
		report, err = s.reconcileSvc.CheckOrders(ctx)
	default:
		return nil, fmt.Errorf("unknown check type %q", checkType)
	}
	if err != nil {
		return nil, err
	}

	s.persist(report)

	if report.HasDrift() {
		mismatches := report.MismatchCount
		s.hub.Broadcast(&sse.SyncEvent{
			Event:     sse.EventDriftDetected,
			CheckType: string(report.CheckType),
			Count:     &mismatches,
		})
		s.alertSvc.NotifyDrift(report)
	}

	return report, nil
}

// persist stores the report for the drift history. The check already ran and
// the caller holds the result, so a storage failure is logged, not raised.
func (s *ReportService) persist(report *models.Report) {
	body, err := json.Marshal(report)
	if err != nil {
		log.Error().Err(err).Str("check_type", string(report.CheckType)).Msg("failed to marshal reconciliation report")
		return
	}

	row := &models.ReconciliationReport{
		CheckType:     report.CheckType,
		Status:        report.Status,
		TotalChecked:  report.TotalChecked,
		MismatchCount: report.MismatchCount,
		Report:        body,
	}
	if err := s.reportRepo.Insert(row); err != nil {
		log.Error().Err(err).Str("check_type", string(report.CheckType)).Msg("failed to store reconciliation report")
	}
}

// ListRecent returns stored reports, newest first.
func (s *ReportService) ListRecent(checkType models.CheckType, limit int) ([]models.ReconciliationReport, error) {
	return s.reportRepo.ListRecent(checkType, limit)
}

// Latest returns the newest stored report of one check type.
func (s *ReportService) Latest(checkType models.CheckType) (*models.ReconciliationReport, error) {
	rep, err := s.reportRepo.Latest(checkType)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.ErrReportNotFound
		}
		return nil, err
	}
	return rep, nil
}
