package service

import (
	"context"
	"log/slog"
	"time"

	"agora/internal/events"
	"agora/internal/middleware"
	"agora/internal/models"
	"agora/internal/observability"
	"agora/internal/repository"
	"agora/internal/validation"
)

// ModerationService provides the report queue: filing, resolving, dismissing.
type ModerationService struct {
	reports repository.ReportRepository
	content repository.ContentRepository
	events  events.Publisher
	now     func() time.Time
}

// NewModerationService returns a new ModerationService.
func NewModerationService(reports repository.ReportRepository, content repository.ContentRepository, pub events.Publisher) *ModerationService {
	return &ModerationService{
		reports: reports,
		content: content,
		events:  pub,
		now:     time.Now,
	}
}

// FileReport queues a new pending report and flags the target as reported.
// Every call creates a row, even for a repeat reporter and target. The flag
// is set after the report is stored; a flag failure is logged, not returned.
func (s *ModerationService) FileReport(ctx context.Context, reporterID uint, targetType models.TargetType, targetID uint, reason string) (*models.Report, error) {
	if !targetType.Valid() {
		return nil, models.NewValidationError("target_type must be post or comment")
	}
	reason, err := validation.ReportReason(reason)
	if err != nil {
		return nil, err
	}
	exists, err := s.content.Exists(ctx, targetType, targetID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, models.NewNotFoundError(string(targetType), targetID)
	}

	report := &models.Report{
		ReporterID: reporterID,
		TargetType: targetType,
		TargetID:   targetID,
		Reason:     reason,
		Status:     models.ReportPending,
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, err
	}

	if err := s.content.SetReported(ctx, targetType, targetID, true); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to flag reported content",
			slog.Uint64("report_id", uint64(report.ID)),
			slog.String("target_type", string(targetType)),
			slog.Uint64("target_id", uint64(targetID)),
			slog.String("error", err.Error()),
		)
	}

	observability.ReportsFiled.WithLabelValues(string(targetType)).Inc()
	events.Emit(ctx, s.events, events.New(events.ReportFiled, reporterID, map[string]any{
		"report_id":   report.ID,
		"target_type": targetType,
		"target_id":   targetID,
	}, reporterID))
	return report, nil
}

// Resolve marks a pending report resolved. Terminal reports are left as they are.
func (s *ModerationService) Resolve(ctx context.Context, actorID, reportID uint) (*models.Report, error) {
	return s.transition(ctx, actorID, reportID, models.ReportResolved)
}

// Dismiss marks a pending report dismissed. Terminal reports are left as they are.
func (s *ModerationService) Dismiss(ctx context.Context, actorID, reportID uint) (*models.Report, error) {
	return s.transition(ctx, actorID, reportID, models.ReportDismissed)
}

func (s *ModerationService) transition(ctx context.Context, actorID, reportID uint, status models.ReportStatus) (*models.Report, error) {
	changed, err := s.reports.Transition(ctx, reportID, status, actorID, s.now().UTC())
	if err != nil {
		return nil, err
	}
	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if !changed {
		return report, nil
	}

	observability.ReportTransitions.WithLabelValues(string(status)).Inc()
	evType := events.ReportResolved
	if status == models.ReportDismissed {
		evType = events.ReportDismissed
	}
	events.Emit(ctx, s.events, events.New(evType, actorID, map[string]any{
		"report_id":   report.ID,
		"target_type": report.TargetType,
		"target_id":   report.TargetID,
	}, report.ReporterID))
	return report, nil
}

// ListPending returns the pending queue, newest first.
func (s *ModerationService) ListPending(ctx context.Context) ([]models.Report, error) {
	return s.reports.ListPending(ctx)
}

func (s *ModerationService) ListReports(ctx context.Context, filter models.ReportFilter, limit, offset int) ([]models.Report, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, models.NewValidationError("unknown report status")
	}
	if filter.TargetType != "" && !filter.TargetType.Valid() {
		return nil, models.NewValidationError("target_type must be post or comment")
	}
	return s.reports.List(ctx, filter, limit, offset)
}

func (s *ModerationService) PendingCount(ctx context.Context) (int64, error) {
	return s.reports.CountPending(ctx)
}
