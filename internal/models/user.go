package models

import (
	"time"

	"github.com/lib/pq"
)

// User represents a chat member tracked by the moderation system.
// A row is created on the first observed event from that user and is
// never deleted afterwards.
type User struct {
	// UserID is the platform-assigned numeric identifier.
	UserID int64 `gorm:"primaryKey;autoIncrement:false"`
	// Username is the current @handle, if the user has one.
	Username string `gorm:"index"`
	// FirstName is the current display name.
	FirstName string
	// Aliases keeps every display name the user has been seen under.
	Aliases pq.StringArray `gorm:"type:text[]"`

	// Rating is the reputation score adjusted by peer reactions.
	Rating int `gorm:"default:1000"`
	// PositiveReactions, NegativeReactions and NeutralReactions are
	// monotonically non-decreasing tallies of reactions received.
	PositiveReactions int `gorm:"default:0"`
	NegativeReactions int `gorm:"default:0"`
	NeutralReactions  int `gorm:"default:0"`

	ReportsReceived int `gorm:"default:0"`
	ReportsMade     int `gorm:"default:0"`

	LastActive time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DisplayName returns the @handle when present, the first name otherwise.
func (u *User) DisplayName() string {
	if u.Username != "" {
		return "@" + u.Username
	}
	return u.FirstName
}
