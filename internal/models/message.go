package models

import "time"

// ArchivedMessage is a captured copy of a group message, kept so that
// reports and votes can show the offending content after deletion.
// The (MessageID, ChatID) pair is the composite key; capture is an
// idempotent upsert and rows are only ever mutated to set the deletion
// flag, never removed.
type ArchivedMessage struct {
	MessageID int   `gorm:"primaryKey;autoIncrement:false"`
	ChatID    int64 `gorm:"primaryKey;autoIncrement:false"`

	// UserID is the author of the message.
	UserID int64 `gorm:"index;not null"`

	// MessageType is "text", "photo", "video", "document" and so on.
	MessageType string `gorm:"type:text;not null"`
	// Content is the text body for text messages.
	Content string `gorm:"type:text"`
	// FileID is the platform file reference for media messages.
	FileID string `gorm:"type:text"`
	// Caption is the media caption, if any.
	Caption string `gorm:"type:text"`

	IsDeleted bool `gorm:"default:false"`
	DeletedAt *time.Time

	CreatedAt time.Time
}
