package models

import "time"

// Reaction is one user's reaction emoji on one message. The four-column
// primary key makes repeat inserts of the same reaction a no-op, while
// distinct emoji from the same user stay independent records. Rows are
// immutable once created.
type Reaction struct {
	MessageID int    `gorm:"primaryKey;autoIncrement:false"`
	ChatID    int64  `gorm:"primaryKey;autoIncrement:false"`
	UserID    int64  `gorm:"primaryKey;autoIncrement:false;index"`
	Emoji     string `gorm:"primaryKey"`

	CreatedAt time.Time
}
