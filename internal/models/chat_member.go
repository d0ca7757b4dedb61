package models

import "time"

// ChatMember records membership of a user in a group chat. The member
// count per chat feeds the quorum computation at vote creation.
type ChatMember struct {
	ChatID int64 `gorm:"primaryKey;autoIncrement:false"`
	UserID int64 `gorm:"primaryKey;autoIncrement:false"`

	IsAdmin  bool `gorm:"default:false"`
	JoinedAt time.Time
	LeftAt   *time.Time
}
