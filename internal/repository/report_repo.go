package repository

import (
	"github.com/jmoiron/sqlx"

	"github.com/crateside/shop_api/internal/models"
)

// ReportRepository handles data access for stored reconciliation reports.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository creates a new ReportRepository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Insert stores one reconciliation run.
func (r *ReportRepository) Insert(rep *models.ReconciliationReport) error {
	const q = `
        INSERT INTO reconciliation_reports (
            check_type, status, total_checked, mismatch_count, report
        ) VALUES (
            $1, $2, $3, $4, $5
        ) RETURNING id, created_at`

	return r.db.QueryRow(q,
		rep.CheckType, rep.Status, rep.TotalChecked, rep.MismatchCount, []byte(rep.Report),
	).Scan(&rep.ID, &rep.CreatedAt)
}

// ListRecent returns the newest reports, optionally narrowed to one check
// type, capped at limit.
func (r *ReportRepository) ListRecent(checkType models.CheckType, limit int) ([]models.ReconciliationReport, error) {
	if limit < 1 {
		limit = 20
	}

	if checkType == "" {
		const q = `
        SELECT id, check_type, status, total_checked, mismatch_count, report, created_at
        FROM reconciliation_reports
        ORDER BY created_at DESC, id DESC
        LIMIT $1`
		var reports []models.ReconciliationReport
		if err := r.db.Select(&reports, q, limit); err != nil {
			return nil, err
		}
		return reports, nil
	}

	const q = `
        SELECT id, check_type, status, total_checked, mismatch_count, report, created_at
        FROM reconciliation_reports
        WHERE check_type = $1
        ORDER BY created_at DESC, id DESC
        LIMIT $2`
	var reports []models.ReconciliationReport
	if err := r.db.Select(&reports, q, checkType, limit); err != nil {
		return nil, err
	}
	return reports, nil
}

// Latest returns the most recent report of one check type.
func (r *ReportRepository) Latest(checkType models.CheckType) (*models.ReconciliationReport, error) {
	const q = `
        SELECT id, check_type, status, total_checked, mismatch_count, report, created_at
        FROM reconciliation_reports
        WHERE check_type = $1
        ORDER BY created_at DESC, id DESC
        LIMIT 1`

	stmt, err := r.db.Preparex(q)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()
	var rep models.ReconciliationReport
	if err := stmt.Get(&rep, checkType); err != nil {
		return nil, err
	}
	return &rep, nil
}
