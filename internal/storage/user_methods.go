package storage

import (
	"errors"
	"fmt"
	"time"

	"modguard/backend/internal/config"
	"modguard/backend/internal/models"
	"modguard/backend/internal/moderr"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EnsureUser creates the user row on first contact and refreshes the
// name fields and last-active timestamp on every later one.
func (s *Service) EnsureUser(userID int64, username, firstName string) (*models.User, error) {
	var user models.User
	defaults := models.User{
		UserID:    userID,
		Username:  username,
		FirstName: firstName,
		Rating:    config.InitialRating,
	}

	result := s.DB.Where("user_id = ?", userID).FirstOrCreate(&user, defaults)
	if result.Error != nil {
		log.Error().Err(result.Error).Int64("user_id", userID).Msg("failed to ensure user")
		return nil, fmt.Errorf("ensure user %d: %w", userID, moderr.ErrPersistence)
	}
	if result.RowsAffected > 0 {
		log.Info().Int64("user_id", userID).Str("username", username).Msg("new user registered")
	}

	updates := map[string]interface{}{"last_active": time.Now()}
	if username != "" && username != user.Username {
		updates["username"] = username
	}
	if firstName != "" && firstName != user.FirstName {
		updates["first_name"] = firstName
		if user.FirstName != "" && !containsAlias(user.Aliases, user.FirstName) {
			updates["aliases"] = append(user.Aliases, user.FirstName)
		}
	}
	if err := s.DB.Model(&user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("refresh user %d: %w", userID, moderr.ErrPersistence)
	}
	return &user, nil
}

func containsAlias(aliases []string, name string) bool {
	for _, a := range aliases {
		if a == name {
			return true
		}
	}
	return false
}

func (s *Service) GetUserByID(userID int64) (*models.User, error) {
	var user models.User
	err := s.DB.Where("user_id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user %d: %w", userID, moderr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", userID, moderr.ErrPersistence)
	}
	return &user, nil
}

// GetUserByUsername resolves an @handle to a typed identity record.
// Unknown handles are an explicit not-found, never a synthetic stand-in.
func (s *Service) GetUserByUsername(username string) (*models.User, error) {
	var user models.User
	err := s.DB.Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user @%s: %w", username, moderr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user @%s: %w", username, moderr.ErrPersistence)
	}
	return &user, nil
}

func (s *Service) UpdateUser(user *models.User) error {
	if err := s.DB.Save(user).Error; err != nil {
		return fmt.Errorf("update user %d: %w", user.UserID, moderr.ErrPersistence)
	}
	return nil
}

// UserSnapshot assembles the voter-facing evidence aggregate inside one
// transaction so all numbers describe the same point in time.
func (s *Service) UserSnapshot(userID int64, now time.Time) (*models.UserSnapshot, error) {
	var snap models.UserSnapshot

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).First(&snap.User).Error; err != nil {
			return err
		}

		var warnings int64
		if err := tx.Model(&models.Warning{}).
			Where("user_id = ? AND is_active = ? AND (expires_at IS NULL OR expires_at > ?)", userID, true, now).
			Count(&warnings).Error; err != nil {
			return err
		}
		snap.ActiveWarnings = int(warnings)

		var pending int64
		if err := tx.Model(&models.Report{}).
			Where("reported_user_id = ? AND status = ?", userID, models.ReportPending).
			Count(&pending).Error; err != nil {
			return err
		}
		snap.PendingReports = int(pending)

		if err := tx.Model(&models.Warning{}).
			Where("user_id = ? AND is_active = ?", userID, true).
			Order("created_at desc").Limit(3).
			Pluck("reason", &snap.WarningReasons).Error; err != nil {
			return err
		}

		return tx.Model(&models.Report{}).
			Where("reported_user_id = ?", userID).
			Order("created_at desc").Limit(3).
			Pluck("reason", &snap.ReportReasons).Error
	})

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("snapshot of user %d: %w", userID, moderr.ErrNotFound)
	}
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("failed to build user snapshot")
		return nil, fmt.Errorf("snapshot of user %d: %w", userID, moderr.ErrPersistence)
	}
	return &snap, nil
}

// TopReactions returns the most frequent reaction emoji received by the
// user's messages, for the detailed statistics view.
func (s *Service) TopReactions(userID int64, limit int) ([]ReactionCount, error) {
	var rows []ReactionCount
	err := s.DB.Model(&models.Reaction{}).
		Select("reactions.emoji as emoji, COUNT(*) as count").
		Joins("JOIN archived_messages ON archived_messages.message_id = reactions.message_id AND archived_messages.chat_id = reactions.chat_id").
		Where("archived_messages.user_id = ?", userID).
		Group("reactions.emoji").
		Order("count desc").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("top reactions for user %d: %w", userID, moderr.ErrPersistence)
	}
	return rows, nil
}

// ApplyReactionEvent records the reaction and applies every ledger
// mutation it implies as one atomic unit: the author's rating and tally,
// and the reactor's participation point. It returns false without any
// mutation when the exact reaction tuple was already recorded.
func (s *Service) ApplyReactionEvent(r *models.Reaction, authorID int64, class ReactionClass, authorDelta, reactorDelta int) (bool, error) {
	applied := false
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		insert := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(r)
		if insert.Error != nil {
			return insert.Error
		}
		if insert.RowsAffected == 0 {
			// Duplicate tuple, nothing to apply.
			return nil
		}

		authorCols := map[string]interface{}{}
		switch class {
		case ReactionPositive:
			authorCols["positive_reactions"] = gorm.Expr("positive_reactions + 1")
			authorCols["rating"] = gorm.Expr("rating + ?", authorDelta)
		case ReactionNegative:
			authorCols["negative_reactions"] = gorm.Expr("negative_reactions + 1")
			authorCols["rating"] = gorm.Expr("rating + ?", authorDelta)
		default:
			authorCols["neutral_reactions"] = gorm.Expr("neutral_reactions + 1")
		}
		if err := tx.Model(&models.User{}).Where("user_id = ?", authorID).Updates(authorCols).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.User{}).Where("user_id = ?", r.UserID).
			Update("rating", gorm.Expr("rating + ?", reactorDelta)).Error; err != nil {
			return err
		}

		applied = true
		return nil
	})
	if err != nil {
		log.Error().Err(err).Int("message_id", r.MessageID).Int64("reactor_id", r.UserID).Msg("failed to apply reaction event")
		return false, fmt.Errorf("apply reaction: %w", moderr.ErrPersistence)
	}
	return applied, nil
}
