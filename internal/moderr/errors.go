// Package moderr defines the error taxonomy shared by the moderation engine.
// Callers branch on these sentinels with errors.Is; concrete causes are
// attached by wrapping with fmt.Errorf("...: %w", ...).
package moderr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks input rejected before any mutation
	// (bad duration, self-targeted vote, self-report).
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a lookup of an unknown vote, user or message.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks benign idempotence: duplicate ballot, duplicate
	// reaction, or re-resolving a terminal report. Not a failure for the
	// end user beyond a neutral acknowledgment.
	ErrConflict = errors.New("conflict")

	// ErrPersistence marks a failed store operation. The transaction is
	// rolled back, so the operation is safe to retry from scratch.
	ErrPersistence = errors.New("persistence failure")

	// ErrEnforcement marks a platform-level action (ban/mute/kick) the
	// chat platform rejected. Surfaced to an operator, never retried.
	ErrEnforcement = errors.New("enforcement failure")
)

// Specific ballot conflicts. Both satisfy errors.Is(err, ErrConflict);
// callers that need to word the acknowledgment differently can match the
// narrower sentinel.
var (
	ErrAlreadyClosed  = fmt.Errorf("vote already closed: %w", ErrConflict)
	ErrDuplicateVoter = fmt.Errorf("duplicate voter: %w", ErrConflict)
)
