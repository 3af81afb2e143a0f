package models

import "time"

// ReportStatus is the moderation lifecycle state.
type ReportStatus string

const (
	ReportPending   ReportStatus = "pending"
	ReportResolved  ReportStatus = "resolved"
	ReportDismissed ReportStatus = "dismissed"
)

// Terminal reports whether no transition leaves s.
func (s ReportStatus) Terminal() bool {
	return s == ReportResolved || s == ReportDismissed
}

func (s ReportStatus) Valid() bool {
	return s == ReportPending || s.Terminal()
}

// MaxReportReasonLength caps the stored reason.
const MaxReportReasonLength = 500

// Report is one queued complaint against a post or comment.
type Report struct {
	ID         uint         `gorm:"primaryKey" json:"id"`
	ReporterID uint         `gorm:"not null;index" json:"reporter_id"`
	TargetType TargetType   `gorm:"size:16;not null;index:idx_reports_target,priority:1" json:"target_type"`
	TargetID   uint         `gorm:"not null;index:idx_reports_target,priority:2" json:"target_id"`
	Reason     string       `gorm:"size:500;not null" json:"reason"`
	Status     ReportStatus `gorm:"size:16;not null;default:'pending';index:idx_reports_status_created,priority:1" json:"status"`
	CreatedAt  time.Time    `gorm:"index:idx_reports_status_created,priority:2" json:"created_at"`
	ResolvedBy *uint        `json:"resolved_by,omitempty"`
	ResolvedAt *time.Time   `json:"resolved_at,omitempty"`
}

func (Report) TableName() string { return "reports" }

// ReportFilter narrows an admin listing. Zero values match everything.
type ReportFilter struct {
	Status     ReportStatus
	TargetType TargetType
}
