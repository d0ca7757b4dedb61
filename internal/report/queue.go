// Package report provides the complaint queue: members file reports,
// moderators resolve them, and a report may escalate into a vote.
package report

import (
	"fmt"

	"modguard/backend/internal/models"
	"modguard/backend/internal/moderr"
	"modguard/backend/internal/storage"

	"github.com/rs/zerolog/log"
)

// Queue handles the business logic for reports.
type Queue struct {
	Storage storage.Storage
}

// NewQueue creates a new report queue.
func NewQueue(s storage.Storage) *Queue {
	return &Queue{Storage: s}
}

// File registers a new complaint in pending state. Self-reports are
// rejected before any mutation; both parties' lifetime counters move
// with the insert.
func (q *Queue) File(reporterID, reportedUserID int64, messageID *int, chatID int64, reason, reportType string) (*models.Report, error) {
	if reporterID == reportedUserID {
		return nil, fmt.Errorf("self-report: %w", moderr.ErrValidation)
	}
	if !models.ValidReportType(reportType) {
		reportType = models.ReportTypeOther
	}

	r := &models.Report{
		ChatID:         chatID,
		ReporterID:     reporterID,
		ReportedUserID: reportedUserID,
		MessageID:      messageID,
		Reason:         reason,
		ReportType:     reportType,
		Status:         models.ReportPending,
	}
	if err := q.Storage.CreateReport(r); err != nil {
		return nil, err
	}

	log.Info().Uint("report_id", r.ID).Int64("reporter_id", reporterID).
		Int64("reported_id", reportedUserID).Str("type", reportType).Msg("report filed")
	return r, nil
}

// Resolve moves a pending report into a terminal status, exactly once.
// Re-resolving is a conflict.
func (q *Queue) Resolve(reportID uint, status string, moderatorID int64, resolution string) (*models.Report, error) {
	switch status {
	case models.ReportReviewed, models.ReportDismissed, models.ReportActionTaken:
	default:
		return nil, fmt.Errorf("status %q is not terminal: %w", status, moderr.ErrValidation)
	}

	r, err := q.Storage.ResolveReport(reportID, status, moderatorID, resolution)
	if err != nil {
		return nil, err
	}
	log.Info().Uint("report_id", reportID).Str("status", status).
		Int64("moderator_id", moderatorID).Msg("report resolved")
	return r, nil
}

// Get returns a report by id.
func (q *Queue) Get(reportID uint) (*models.Report, error) {
	return q.Storage.GetReportByID(reportID)
}

// Pending lists the oldest-first pending reports, capped at limit.
func (q *Queue) Pending(limit int) ([]models.Report, error) {
	return q.Storage.ListReports(models.ReportPending, limit)
}
