package models

import "time"

// Report statuses. A report starts pending and moves exactly once into
// one of the terminal states.
const (
	ReportPending     = "pending"
	ReportReviewed    = "reviewed"
	ReportDismissed   = "dismissed"
	ReportActionTaken = "action_taken"
)

// Report types accepted from reporters.
const (
	ReportTypeAbuse = "abuse"
	ReportTypeSpam  = "spam"
	ReportTypeScam  = "scam"
	ReportTypeOther = "other"
)

// Report is a member-filed complaint against another member.
type Report struct {
	ID uint `gorm:"primaryKey"`

	ChatID         int64 `gorm:"index"`
	ReporterID     int64 `gorm:"index"`
	ReportedUserID int64 `gorm:"index:idx_reported_status"`
	// MessageID references the archived message the report is about.
	MessageID *int

	Reason     string `gorm:"type:text"`
	ReportType string `gorm:"type:text;default:'abuse'"`
	Status     string `gorm:"type:text;default:'pending';index:idx_reported_status"`

	// ModeratorID and Resolution are set when the report leaves pending.
	ModeratorID *int64
	Resolution  string `gorm:"type:text"`

	// VoteID links the vote this report spawned, if any.
	VoteID *uint

	CreatedAt  time.Time
	ResolvedAt *time.Time
}

// IsTerminal reports whether the status can no longer change.
func (r *Report) IsTerminal() bool {
	return r.Status != ReportPending
}

// ValidReportType reports whether t is one of the accepted report types.
func ValidReportType(t string) bool {
	switch t {
	case ReportTypeAbuse, ReportTypeSpam, ReportTypeScam, ReportTypeOther:
		return true
	}
	return false
}
