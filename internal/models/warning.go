package models

import "time"

// Warning is a moderator-issued strike. Active warnings count toward
// the escalation threshold; expiry is a passive comparison against the
// current time, nothing ever sweeps the flag in the background.
type Warning struct {
	ID uint `gorm:"primaryKey"`

	UserID int64 `gorm:"index:idx_warn_user_active"`
	ChatID int64 `gorm:"index"`

	Reason   string `gorm:"type:text"`
	IssuedBy int64
	// Severity is 1..3.
	Severity int `gorm:"default:1"`

	IsActive  bool `gorm:"default:true;index:idx_warn_user_active"`
	ExpiresAt *time.Time

	CreatedAt time.Time
}

// ActiveAt reports whether the warning counts at the given instant.
func (w *Warning) ActiveAt(now time.Time) bool {
	if !w.IsActive {
		return false
	}
	return w.ExpiresAt == nil || w.ExpiresAt.After(now)
}
