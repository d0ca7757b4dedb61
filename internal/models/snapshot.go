package models

// UserSnapshot is the read-only aggregate shown to voters as evidence.
// It is assembled inside one transaction so the numbers are consistent
// with each other even under concurrent writers.
type UserSnapshot struct {
	User User

	ActiveWarnings int
	PendingReports int

	// WarningReasons and ReportReasons hold the most recent reasons,
	// newest first.
	WarningReasons []string
	ReportReasons  []string
}

// AtWarningThreshold reports whether the user has accumulated enough
// active warnings to sit at the escalation threshold.
func (s *UserSnapshot) AtWarningThreshold(threshold int) bool {
	return s.ActiveWarnings >= threshold
}
