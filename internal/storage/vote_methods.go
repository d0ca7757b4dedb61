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

func (s *Service) CreateVote(v *models.Vote) error {
	if err := s.DB.Create(v).Error; err != nil {
		log.Error().Err(err).Int64("target_id", v.TargetUserID).Msg("failed to create vote")
		return fmt.Errorf("create vote: %w", moderr.ErrPersistence)
	}
	return nil
}

func (s *Service) GetVoteByID(id uint) (*models.Vote, error) {
	var vote models.Vote
	err := s.DB.First(&vote, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("vote %d: %w", id, moderr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get vote %d: %w", id, moderr.ErrPersistence)
	}
	return &vote, nil
}

// CastBallot applies one voter's choice atomically. The mutation itself
// lives in Vote.ApplyBallot; this wrapper only adds the row lock so the
// voter set and counters stay consistent when several engine instances
// share the store.
func (s *Service) CastBallot(voteID uint, voterID int64, inFavor bool) (*models.Vote, error) {
	var vote models.Vote
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&vote, voteID).Error; err != nil {
			return err
		}
		if err := vote.ApplyBallot(voterID, inFavor, time.Now()); err != nil {
			return err
		}
		return tx.Save(&vote).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("vote %d: %w", voteID, moderr.ErrNotFound)
	}
	if errors.Is(err, moderr.ErrConflict) {
		return nil, err
	}
	if err != nil {
		log.Error().Err(err).Uint("vote_id", voteID).Int64("voter_id", voterID).Msg("failed to cast ballot")
		return nil, fmt.Errorf("cast ballot on vote %d: %w", voteID, moderr.ErrPersistence)
	}
	return &vote, nil
}

// ResolveVote closes an open vote, deciding the result from the current
// tally. It is idempotent: a vote already closed (by quorum or by an
// earlier resolution) is returned unchanged with changed == false.
func (s *Service) ResolveVote(voteID uint) (*models.Vote, bool, error) {
	var vote models.Vote
	changed := false
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&vote, voteID).Error; err != nil {
			return err
		}
		if !vote.IsActive {
			return nil
		}
		passed := vote.QuorumReached()
		vote.IsActive = false
		vote.Result = &passed
		changed = true
		return tx.Save(&vote).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("vote %d: %w", voteID, moderr.ErrNotFound)
	}
	if err != nil {
		log.Error().Err(err).Uint("vote_id", voteID).Msg("failed to resolve vote")
		return nil, false, fmt.Errorf("resolve vote %d: %w", voteID, moderr.ErrPersistence)
	}
	return &vote, changed, nil
}

// WithdrawVote closes an open vote with a failed result on behalf of its
// initiator. Anyone else gets a validation error; a closed vote gets a
// conflict, so the at-most-one-resolution guarantee holds even when a
// withdrawal races a timer fire.
func (s *Service) WithdrawVote(voteID uint, initiatorID int64) (*models.Vote, error) {
	var vote models.Vote
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&vote, voteID).Error; err != nil {
			return err
		}
		if vote.InitiatorID != initiatorID {
			return moderr.ErrValidation
		}
		if !vote.IsActive {
			return moderr.ErrAlreadyClosed
		}
		passed := false
		vote.IsActive = false
		vote.Result = &passed
		return tx.Save(&vote).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("vote %d: %w", voteID, moderr.ErrNotFound)
	}
	if errors.Is(err, moderr.ErrValidation) {
		return nil, fmt.Errorf("vote %d belongs to another initiator: %w", voteID, moderr.ErrValidation)
	}
	if errors.Is(err, moderr.ErrConflict) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("withdraw vote %d: %w", voteID, moderr.ErrPersistence)
	}
	return &vote, nil
}

// MarkVoteExecuted latches the enforcement flag so the side effect is
// never attempted twice.
func (s *Service) MarkVoteExecuted(voteID uint) error {
	err := s.DB.Model(&models.Vote{}).Where("id = ?", voteID).
		Update("ban_executed", true).Error
	if err != nil {
		return fmt.Errorf("mark vote %d executed: %w", voteID, moderr.ErrPersistence)
	}
	return nil
}

// ActiveVotes returns every open vote, soonest expiry first. Used by the
// moderator API and to re-arm timers after a restart.
func (s *Service) ActiveVotes() ([]models.Vote, error) {
	var votes []models.Vote
	err := s.DB.Where("is_active = ?", true).Order("expires_at asc").Find(&votes).Error
	if err != nil {
		return nil, fmt.Errorf("list active votes: %w", moderr.ErrPersistence)
	}
	return votes, nil
}

func (s *Service) UpsertChatMember(member *models.ChatMember) error {
	err := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chat_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"left_at", "is_admin"}),
	}).Create(member).Error
	if err != nil {
		return fmt.Errorf("upsert chat member %d/%d: %w", member.ChatID, member.UserID, moderr.ErrPersistence)
	}
	return nil
}

func (s *Service) RemoveChatMember(chatID, userID int64) error {
	now := time.Now()
	err := s.DB.Model(&models.ChatMember{}).
		Where("chat_id = ? AND user_id = ?", chatID, userID).
		Update("left_at", &now).Error
	if err != nil {
		return fmt.Errorf("remove chat member %d/%d: %w", chatID, userID, moderr.ErrPersistence)
	}
	return nil
}

// CountChatMembers counts current members, feeding the quorum snapshot.
func (s *Service) CountChatMembers(chatID int64) (int64, error) {
	var count int64
	err := s.DB.Model(&models.ChatMember{}).
		Where("chat_id = ? AND left_at IS NULL", chatID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count members of chat %d: %w", chatID, moderr.ErrPersistence)
	}
	return count, nil
}
