// Package warning tracks moderator-issued strikes and the escalation
// threshold. Issuing a warning never enforces anything by itself; the
// threshold is a signal for callers.
package warning

import (
	"fmt"
	"time"

	"modguard/backend/internal/config"
	"modguard/backend/internal/models"
	"modguard/backend/internal/moderr"
	"modguard/backend/internal/storage"

	"github.com/rs/zerolog/log"
)

// Accumulator issues warnings and answers threshold queries.
type Accumulator struct {
	Storage storage.Storage
}

func NewAccumulator(s storage.Storage) *Accumulator {
	return &Accumulator{Storage: s}
}

// Issue creates an active warning. Severity must be 1..3; expiresAt may
// be nil for a warning that never ages out.
func (a *Accumulator) Issue(userID, chatID int64, reason string, issuerID int64, severity int, expiresAt *time.Time) (*models.Warning, error) {
	if severity < 1 || severity > config.MaxWarningSeverity {
		return nil, fmt.Errorf("severity %d out of range 1..%d: %w", severity, config.MaxWarningSeverity, moderr.ErrValidation)
	}

	w := &models.Warning{
		UserID:    userID,
		ChatID:    chatID,
		Reason:    reason,
		IssuedBy:  issuerID,
		Severity:  severity,
		IsActive:  true,
		ExpiresAt: expiresAt,
	}
	if err := a.Storage.CreateWarning(w); err != nil {
		return nil, err
	}

	count, err := a.ActiveCount(userID)
	if err != nil {
		return w, err
	}
	log.Info().Int64("user_id", userID).Int64("issued_by", issuerID).
		Int64("active", count).Msg("warning issued")
	if count >= config.WarningThreshold {
		log.Warn().Int64("user_id", userID).Int64("active", count).
			Msg("user at warning threshold")
	}
	return w, nil
}

// ActiveCount counts warnings that are flagged active and not expired at
// the time of the call.
func (a *Accumulator) ActiveCount(userID int64) (int64, error) {
	return a.Storage.ActiveWarningCount(userID, time.Now())
}

// AtThreshold reports whether the user has reached the escalation
// threshold. What to do about it is the caller's policy.
func (a *Accumulator) AtThreshold(userID int64) (bool, error) {
	count, err := a.ActiveCount(userID)
	if err != nil {
		return false, err
	}
	return count >= config.WarningThreshold, nil
}

// Revoke deactivates a warning by id.
func (a *Accumulator) Revoke(id uint) error {
	return a.Storage.DeactivateWarning(id)
}
