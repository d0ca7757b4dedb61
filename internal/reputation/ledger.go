// Package reputation maintains the per-user standing derived from peer
// reactions. It is the evidence source for votes: quorum framing and the
// voter-facing statistics both read from here.
package reputation

import (
	"errors"
	"time"

	"modguard/backend/internal/config"
	"modguard/backend/internal/models"
	"modguard/backend/internal/moderr"
	"modguard/backend/internal/storage"

	"github.com/rs/zerolog/log"
)

// Ledger applies reaction events to user ratings and tallies.
type Ledger struct {
	Storage storage.Storage
}

// NewLedger creates a new reputation ledger.
func NewLedger(s storage.Storage) *Ledger {
	return &Ledger{Storage: s}
}

// Classify buckets a reaction emoji into positive, negative or neutral.
func Classify(emoji string) storage.ReactionClass {
	if _, ok := config.PositiveReactions[emoji]; ok {
		return storage.ReactionPositive
	}
	if _, ok := config.NegativeReactions[emoji]; ok {
		return storage.ReactionNegative
	}
	return storage.ReactionNeutral
}

// RecordReaction applies a reaction-add event. A reaction on a message
// the archive never captured is dropped, so no mutation can reference an
// unknown author. A duplicate of an already-recorded tuple is a no-op.
// On the first occurrence the author's rating and tally and the
// reactor's participation point move as one atomic unit.
func (l *Ledger) RecordReaction(ev models.ReactionEvent) error {
	authorID, err := l.Storage.LookupAuthor(ev.MessageID, ev.ChatID)
	if errors.Is(err, moderr.ErrNotFound) {
		log.Debug().Int("message_id", ev.MessageID).Int64("chat_id", ev.ChatID).
			Msg("reaction on unarchived message dropped")
		return nil
	}
	if err != nil {
		return err
	}

	class := Classify(ev.Emoji)
	authorDelta := 0
	switch class {
	case storage.ReactionPositive:
		authorDelta = config.PositiveReactionGain
	case storage.ReactionNegative:
		authorDelta = -config.NegativeReactionLoss
	}

	reaction := &models.Reaction{
		MessageID: ev.MessageID,
		ChatID:    ev.ChatID,
		UserID:    ev.ReactorID,
		Emoji:     ev.Emoji,
	}

	applied, err := l.Storage.ApplyReactionEvent(reaction, authorID, class, authorDelta, config.ReactorParticipation)
	if err != nil {
		return err
	}
	if !applied {
		log.Debug().Int("message_id", ev.MessageID).Int64("reactor_id", ev.ReactorID).
			Str("emoji", ev.Emoji).Msg("duplicate reaction ignored")
		return nil
	}

	log.Info().Int64("author_id", authorID).Int64("reactor_id", ev.ReactorID).
		Str("class", string(class)).Msg("reaction recorded")
	return nil
}

// Snapshot returns the consistent evidence aggregate for a user.
func (l *Ledger) Snapshot(userID int64) (*models.UserSnapshot, error) {
	return l.Storage.UserSnapshot(userID, time.Now())
}

// TopReactions returns the user's most received reaction emoji.
func (l *Ledger) TopReactions(userID int64, limit int) ([]storage.ReactionCount, error) {
	return l.Storage.TopReactions(userID, limit)
}
