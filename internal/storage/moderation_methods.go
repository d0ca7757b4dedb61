package storage

import (
	"errors"
	"fmt"
	"time"

	"modguard/backend/internal/models"
	"modguard/backend/internal/moderr"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateReport files the report and bumps both parties' lifetime report
// counters in the same transaction.
func (s *Service) CreateReport(report *models.Report) error {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if report.Status == "" {
			report.Status = models.ReportPending
		}
		if err := tx.Create(report).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).Where("user_id = ?", report.ReporterID).
			Update("reports_made", gorm.Expr("reports_made + 1")).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).Where("user_id = ?", report.ReportedUserID).
			Update("reports_received", gorm.Expr("reports_received + 1")).Error
	})
	if err != nil {
		log.Error().Err(err).Int64("reporter_id", report.ReporterID).Msg("failed to create report")
		return fmt.Errorf("create report: %w", moderr.ErrPersistence)
	}
	return nil
}

func (s *Service) GetReportByID(id uint) (*models.Report, error) {
	var report models.Report
	err := s.DB.First(&report, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("report %d: %w", id, moderr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get report %d: %w", id, moderr.ErrPersistence)
	}
	return &report, nil
}

// ResolveReport moves a pending report into a terminal status. The row
// is locked for the duration of the transaction so two moderators
// resolving at once cannot both win; the loser gets a conflict.
func (s *Service) ResolveReport(id uint, status string, moderatorID int64, resolution string) (*models.Report, error) {
	var report models.Report
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&report, id).Error; err != nil {
			return err
		}
		if report.IsTerminal() {
			return moderr.ErrConflict
		}
		now := time.Now()
		report.Status = status
		report.ModeratorID = &moderatorID
		report.Resolution = resolution
		report.ResolvedAt = &now
		return tx.Save(&report).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("report %d: %w", id, moderr.ErrNotFound)
	}
	if errors.Is(err, moderr.ErrConflict) {
		return nil, fmt.Errorf("report %d already %s: %w", id, report.Status, moderr.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve report %d: %w", id, moderr.ErrPersistence)
	}
	return &report, nil
}

func (s *Service) ListReports(status string, limit int) ([]models.Report, error) {
	var reports []models.Report
	// Oldest first, so moderator queues drain in filing order.
	q := s.DB.Order("created_at asc").Limit(limit)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Find(&reports).Error; err != nil {
		return nil, fmt.Errorf("list reports: %w", moderr.ErrPersistence)
	}
	return reports, nil
}

// LinkReportVote records the vote a report spawned.
func (s *Service) LinkReportVote(reportID, voteID uint) error {
	err := s.DB.Model(&models.Report{}).Where("id = ?", reportID).
		Update("vote_id", voteID).Error
	if err != nil {
		return fmt.Errorf("link report %d to vote %d: %w", reportID, voteID, moderr.ErrPersistence)
	}
	return nil
}

func (s *Service) CreateWarning(w *models.Warning) error {
	if err := s.DB.Create(w).Error; err != nil {
		log.Error().Err(err).Int64("user_id", w.UserID).Msg("failed to create warning")
		return fmt.Errorf("create warning: %w", moderr.ErrPersistence)
	}
	return nil
}

// ActiveWarningCount counts warnings that are flagged active and not yet
// past their expiry. Expiry is evaluated here, on read; nothing sweeps
// the flag itself.
func (s *Service) ActiveWarningCount(userID int64, now time.Time) (int64, error) {
	var count int64
	err := s.DB.Model(&models.Warning{}).
		Where("user_id = ? AND is_active = ? AND (expires_at IS NULL OR expires_at > ?)", userID, true, now).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count warnings for user %d: %w", userID, moderr.ErrPersistence)
	}
	return count, nil
}

func (s *Service) ActiveWarnings(userID int64, now time.Time) ([]models.Warning, error) {
	var warnings []models.Warning
	err := s.DB.
		Where("user_id = ? AND is_active = ? AND (expires_at IS NULL OR expires_at > ?)", userID, true, now).
		Order("created_at desc").
		Find(&warnings).Error
	if err != nil {
		return nil, fmt.Errorf("list warnings for user %d: %w", userID, moderr.ErrPersistence)
	}
	return warnings, nil
}

func (s *Service) DeactivateWarning(id uint) error {
	result := s.DB.Model(&models.Warning{}).Where("id = ?", id).Update("is_active", false)
	if result.Error != nil {
		return fmt.Errorf("deactivate warning %d: %w", id, moderr.ErrPersistence)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("warning %d: %w", id, moderr.ErrNotFound)
	}
	return nil
}
