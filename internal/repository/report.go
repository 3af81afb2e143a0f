package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"agora/internal/models"
	"agora/internal/observability"

	"gorm.io/gorm"
)

// ReportRepository stores moderation reports.
type ReportRepository interface {
	WithTx(tx *gorm.DB) ReportRepository
	Create(ctx context.Context, report *models.Report) error
	GetByID(ctx context.Context, id uint) (*models.Report, error)
	// Transition moves a pending report to status. It reports false when the
	// report was already terminal, and NOT_FOUND when it does not exist.
	Transition(ctx context.Context, id uint, status models.ReportStatus, actorID uint, at time.Time) (bool, error)
	List(ctx context.Context, filter models.ReportFilter, limit, offset int) ([]models.Report, error)
	ListPending(ctx context.Context) ([]models.Report, error)
	CountPending(ctx context.Context) (int64, error)
	DeleteByReporter(ctx context.Context, reporterID uint) (int64, error)
	DeleteByTarget(ctx context.Context, targetType models.TargetType, targetID uint) (int64, error)
}

type reportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) WithTx(tx *gorm.DB) ReportRepository {
	return &reportRepository{db: tx}
}

func (r *reportRepository) Create(ctx context.Context, report *models.Report) error {
	if report.Status == "" {
		report.Status = models.ReportPending
	}
	if err := r.db.WithContext(ctx).Create(report).Error; err != nil {
		return storageError(err)
	}
	observability.NewRepoLogger("reports").LogCreate(ctx,
		slog.Uint64("report_id", uint64(report.ID)),
		slog.String("target_type", string(report.TargetType)),
		slog.Uint64("target_id", uint64(report.TargetID)),
	)
	return nil
}

func (r *reportRepository) GetByID(ctx context.Context, id uint) (*models.Report, error) {
	var report models.Report
	if err := r.db.WithContext(ctx).First(&report, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Report", id)
		}
		return nil, storageError(err)
	}
	return &report, nil
}

func (r *reportRepository) Transition(ctx context.Context, id uint, status models.ReportStatus, actorID uint, at time.Time) (bool, error) {
	if !status.Terminal() {
		return false, models.NewValidationError("reports may only move to resolved or dismissed")
	}

	res := r.db.WithContext(ctx).Model(&models.Report{}).
		Where("id = ? AND status = ?", id, models.ReportPending).
		Updates(map[string]interface{}{
			"status":      status,
			"resolved_by": actorID,
			"resolved_at": at,
		})
	if res.Error != nil {
		return false, storageError(res.Error)
	}
	if res.RowsAffected > 0 {
		observability.NewRepoLogger("reports").LogUpdate(ctx,
			slog.Uint64("report_id", uint64(id)),
			slog.String("status", string(status)),
		)
		return true, nil
	}

	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Report{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, storageError(err)
	}
	if n == 0 {
		return false, models.NewNotFoundError("Report", id)
	}
	return false, nil
}

// List returns reports newest first.
func (r *reportRepository) List(ctx context.Context, filter models.ReportFilter, limit, offset int) ([]models.Report, error) {
	limit, offset = pageBounds(limit, offset)
	q := r.db.WithContext(ctx).Model(&models.Report{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.TargetType != "" {
		q = q.Where("target_type = ?", filter.TargetType)
	}

	reports := []models.Report{}
	if err := q.Order("created_at DESC").Order("id DESC").
		Limit(limit).Offset(offset).
		Find(&reports).Error; err != nil {
		return nil, storageError(err)
	}
	return reports, nil
}

// ListPending returns the whole pending queue, newest first.
func (r *reportRepository) ListPending(ctx context.Context) ([]models.Report, error) {
	reports := []models.Report{}
	if err := r.db.WithContext(ctx).
		Where("status = ?", models.ReportPending).
		Order("created_at DESC").Order("id DESC").
		Find(&reports).Error; err != nil {
		return nil, storageError(err)
	}
	return reports, nil
}

func (r *reportRepository) CountPending(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Report{}).
		Where("status = ?", models.ReportPending).
		Count(&n).Error; err != nil {
		return 0, storageError(err)
	}
	return n, nil
}

func (r *reportRepository) DeleteByReporter(ctx context.Context, reporterID uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("reporter_id = ?", reporterID).Delete(&models.Report{})
	if res.Error != nil {
		return 0, storageError(res.Error)
	}
	observability.NewRepoLogger("reports").LogDelete(ctx, res.RowsAffected, slog.Uint64("reporter_id", uint64(reporterID)))
	return res.RowsAffected, nil
}

func (r *reportRepository) DeleteByTarget(ctx context.Context, targetType models.TargetType, targetID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("target_type = ? AND target_id = ?", targetType, targetID).
		Delete(&models.Report{})
	if res.Error != nil {
		return 0, storageError(res.Error)
	}
	observability.NewRepoLogger("reports").LogDelete(ctx, res.RowsAffected,
		slog.String("target_type", string(targetType)),
		slog.Uint64("target_id", uint64(targetID)),
	)
	return res.RowsAffected, nil
}
