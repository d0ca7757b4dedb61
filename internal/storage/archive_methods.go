package storage

import (
	"errors"
	"fmt"
	"time"

	"modguard/backend/internal/models"
	"modguard/backend/internal/moderr"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SaveMessage captures a message into the archive. Repeat captures of
// the same (message, chat) key are a no-op.
func (s *Service) SaveMessage(msg *models.ArchivedMessage) error {
	err := s.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(msg).Error
	if err != nil {
		return fmt.Errorf("archive message %d/%d: %w", msg.MessageID, msg.ChatID, moderr.ErrPersistence)
	}
	return nil
}

// MarkMessageDeleted sets the deletion flag; the content stays archived.
func (s *Service) MarkMessageDeleted(messageID int, chatID int64) error {
	now := time.Now()
	err := s.DB.Model(&models.ArchivedMessage{}).
		Where("message_id = ? AND chat_id = ?", messageID, chatID).
		Updates(map[string]interface{}{
			"is_deleted": true,
			"deleted_at": &now,
		}).Error
	if err != nil {
		return fmt.Errorf("mark message %d/%d deleted: %w", messageID, chatID, moderr.ErrPersistence)
	}
	return nil
}

func (s *Service) GetMessage(messageID int, chatID int64) (*models.ArchivedMessage, error) {
	var msg models.ArchivedMessage
	err := s.DB.Where("message_id = ? AND chat_id = ?", messageID, chatID).First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("message %d/%d: %w", messageID, chatID, moderr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get message %d/%d: %w", messageID, chatID, moderr.ErrPersistence)
	}
	return &msg, nil
}

// LookupAuthor resolves the author of an archived message. Reactions on
// messages that were never captured resolve to not-found and the event
// is dropped upstream.
func (s *Service) LookupAuthor(messageID int, chatID int64) (int64, error) {
	var authorID int64
	err := s.DB.Model(&models.ArchivedMessage{}).
		Where("message_id = ? AND chat_id = ?", messageID, chatID).
		Limit(1).
		Pluck("user_id", &authorID).Error
	if err != nil {
		return 0, fmt.Errorf("lookup author of %d/%d: %w", messageID, chatID, moderr.ErrPersistence)
	}
	if authorID == 0 {
		return 0, fmt.Errorf("message %d/%d: %w", messageID, chatID, moderr.ErrNotFound)
	}
	return authorID, nil
}
