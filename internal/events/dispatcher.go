// Package events hosts the event dispatcher: every inbound chat event
// is classified by the platform layer, dropped onto a channel here, and
// routed to exactly one engine component. The dispatcher also fans live
// vote updates out to feed subscribers.
package events

import (
	"modguard/backend/internal/models"
	"modguard/backend/internal/reputation"
	"modguard/backend/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Subscriber is a consumer of the live vote-update feed (e.g. a
// moderator dashboard websocket).
type Subscriber interface {
	// GetSendChannel returns the channel the dispatcher writes updates to.
	GetSendChannel() chan<- models.VoteUpdate
	// Run starts the subscriber's pumps.
	Run()
	// Close shuts the subscriber down and releases its channel.
	Close()
}

// Dispatcher routes chat events to engine components without blocking
// the intake path: each event is one unit of work.
type Dispatcher struct {
	Ledger  *reputation.Ledger
	Storage storage.Storage

	// ReactionCh carries reaction-add events to the reputation ledger.
	ReactionCh chan models.ReactionEvent
	// ArchiveCh carries observed messages to the archive.
	ArchiveCh chan models.ArchivedMessage

	RegisterCh   chan Subscriber
	UnregisterCh chan Subscriber

	subscribers map[Subscriber]struct{}
	updateCh    chan models.VoteUpdate
}

// NewDispatcher creates a dispatcher wired to the ledger and storage.
func NewDispatcher(ledger *reputation.Ledger, s storage.Storage) *Dispatcher {
	return &Dispatcher{
		Ledger:       ledger,
		Storage:      s,
		ReactionCh:   make(chan models.ReactionEvent, 64),
		ArchiveCh:    make(chan models.ArchivedMessage, 64),
		RegisterCh:   make(chan Subscriber),
		UnregisterCh: make(chan Subscriber),
		subscribers:  make(map[Subscriber]struct{}),
		updateCh:     make(chan models.VoteUpdate, 64),
	}
}

// Run is the dispatcher's main loop.
func (d *Dispatcher) Run() {
	d.startFeedListener()
	log.Info().Msg("event dispatcher started")

	for {
		select {
		case ev := <-d.ReactionCh:
			eventID := uuid.NewString()
			if err := d.Ledger.RecordReaction(ev); err != nil {
				log.Error().Err(err).Str("event_id", eventID).
					Int("message_id", ev.MessageID).Msg("reaction event failed")
			}

		case msg := <-d.ArchiveCh:
			if err := d.Storage.SaveMessage(&msg); err != nil {
				log.Error().Err(err).Int("message_id", msg.MessageID).
					Int64("chat_id", msg.ChatID).Msg("archive capture failed")
			}

		case sub := <-d.RegisterCh:
			d.subscribers[sub] = struct{}{}
			sub.Run()

		case sub := <-d.UnregisterCh:
			if _, ok := d.subscribers[sub]; ok {
				delete(d.subscribers, sub)
				sub.Close()
			}

		case update := <-d.updateCh:
			for sub := range d.subscribers {
				select {
				case sub.GetSendChannel() <- update:
				default:
					// Slow subscriber, drop the update rather than
					// stall the loop.
				}
			}
		}
	}
}

// startFeedListener bridges the Redis pub/sub channel into the run loop
// so updates published by any engine instance reach local subscribers.
func (d *Dispatcher) startFeedListener() {
	pubsub := d.Storage.SubscribeVoteUpdates()

	go func() {
		defer pubsub.Close()
		for msg := range pubsub.Channel() {
			update, err := decodeVoteUpdate([]byte(msg.Payload))
			if err != nil {
				log.Error().Err(err).Msg("malformed vote update on pub/sub channel")
				continue
			}
			d.updateCh <- update
		}
	}()
}
