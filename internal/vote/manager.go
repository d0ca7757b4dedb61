// Package vote owns the ballot lifecycle: creation, concurrent casting,
// quorum evaluation, timed expiry, resolution and downstream
// enforcement.
//
// State machine:
//
//	Open --[quorum reached]--> Resolved(Passed) --[apply action]--> Executed
//	Open --[window elapsed, quorum not reached]--> Resolved(Failed)
//
// No transition leaves a terminal state. Per-vote mutation is serialized
// twice: a keyed mutex inside the process and row-level locking in the
// store, so additional engine instances sharing the store stay safe.
package vote

import (
	"errors"
	"fmt"
	"math"
	"time"

	"modguard/backend/internal/config"
	"modguard/backend/internal/models"
	"modguard/backend/internal/moderr"
	"modguard/backend/internal/storage"
	"modguard/backend/internal/warning"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// Enforcer applies the platform-level moderation action after a vote
// passes. Implementations talk to the chat platform.
type Enforcer interface {
	Ban(chatID, userID int64, duration time.Duration) error
	Mute(chatID, userID int64, duration time.Duration) error
	Kick(chatID, userID int64) error
}

// MemberCounter supplies the chat size for the quorum snapshot.
type MemberCounter interface {
	CountMembers(chatID int64) (int, error)
}

// Manager drives the vote state machine.
type Manager struct {
	Storage   storage.Storage
	Scheduler Scheduler
	Enforcer  Enforcer
	Warnings  *warning.Accumulator
	Members   MemberCounter

	// OnRefresh and OnResolved feed the presentation layer (keyboard
	// edits, result announcements). Either may be nil.
	OnRefresh  func(v *models.Vote, remaining time.Duration)
	OnResolved func(v *models.Vote)

	locks *keyedMutex
}

// NewManager creates a vote manager. members may be nil, in which case
// the stored chat membership is counted instead.
func NewManager(s storage.Storage, sched Scheduler, enf Enforcer, warns *warning.Accumulator, members MemberCounter) *Manager {
	return &Manager{
		Storage:   s,
		Scheduler: sched,
		Enforcer:  enf,
		Warnings:  warns,
		Members:   members,
		locks:     newKeyedMutex(),
	}
}

// RequiredVotes computes the quorum for a chat of the given size.
func RequiredVotes(memberCount int) int {
	q := int(math.Ceil(config.QuorumShare * float64(memberCount)))
	if q < config.QuorumFloor {
		return config.QuorumFloor
	}
	return q
}

func (m *Manager) memberCount(chatID int64) (int, error) {
	if m.Members != nil {
		return m.Members.CountMembers(chatID)
	}
	n, err := m.Storage.CountChatMembers(chatID)
	return int(n), err
}

// Create opens a new vote against a target member. The quorum is a
// snapshot of the membership at this moment; later joins and leaves do
// not change it. The 5-minute ballot window is fixed and independent of
// the requested enforcement duration.
func (m *Manager) Create(chatID, initiatorID, targetID int64, voteType string, durationMinutes int, reason string, relatedMessageID *int, relatedReportID *uint) (*models.Vote, error) {
	if targetID == initiatorID {
		return nil, fmt.Errorf("self-targeted vote: %w", moderr.ErrValidation)
	}
	if durationMinutes < config.MinVoteDuration || durationMinutes > config.MaxVoteDuration {
		return nil, fmt.Errorf("duration %d outside [%d, %d] minutes: %w",
			durationMinutes, config.MinVoteDuration, config.MaxVoteDuration, moderr.ErrValidation)
	}
	if !models.ValidVoteType(voteType) {
		return nil, fmt.Errorf("unknown vote type %q: %w", voteType, moderr.ErrValidation)
	}

	count, err := m.memberCount(chatID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	v := &models.Vote{
		ChatID:           chatID,
		TargetUserID:     targetID,
		InitiatorID:      initiatorID,
		VoteType:         voteType,
		DurationMinutes:  durationMinutes,
		Reason:           reason,
		RelatedMessageID: relatedMessageID,
		RelatedReportID:  relatedReportID,
		RequiredVotes:    RequiredVotes(count),
		Voters:           pq.Int64Array{},
		CreatedAt:        now,
		ExpiresAt:        now.Add(config.VoteWindow),
		IsActive:         true,
	}
	if err := m.Storage.CreateVote(v); err != nil {
		return nil, err
	}

	if relatedReportID != nil {
		if err := m.Storage.LinkReportVote(*relatedReportID, v.ID); err != nil {
			log.Error().Err(err).Uint("vote_id", v.ID).Msg("failed to link spawning report")
		}
	}

	m.Scheduler.ScheduleRefresh(v.ID, config.VoteRefreshPeriod, m.RefreshTick)
	m.Scheduler.ScheduleResolution(v.ID, config.VoteWindow, m.ResolveOnExpiry)
	m.publish(v)

	log.Info().Uint("vote_id", v.ID).Int64("chat_id", chatID).
		Int64("target_id", targetID).Str("type", voteType).
		Int("required_votes", v.RequiredVotes).Msg("vote created")
	return v, nil
}

// CastBallot applies one voter's choice. Duplicate voters and closed
// votes are conflicts; a ballot that crosses the quorum closes the vote
// immediately and triggers enforcement.
func (m *Manager) CastBallot(voteID uint, voterID int64, inFavor bool) (*models.Vote, error) {
	m.locks.Lock(voteID)
	defer m.locks.Unlock(voteID)

	v, err := m.Storage.CastBallot(voteID, voterID, inFavor)
	if err != nil {
		return nil, err
	}
	m.publish(v)

	if !v.IsActive {
		// This ballot reached the quorum: the vote passed before the
		// window elapsed.
		m.Scheduler.Cancel(voteID)
		if m.OnResolved != nil {
			m.OnResolved(v)
		}
		m.execute(v)
	}
	return v, nil
}

// RefreshTick recomputes display state. When the vote has independently
// closed, the tick cancels its own scheduling instead. A transient lookup
// failure skips the tick but leaves both timers armed, so a later tick or
// the resolution timer still gets its chance.
func (m *Manager) RefreshTick(voteID uint) {
	v, err := m.Storage.GetVoteByID(voteID)
	if err != nil {
		log.Error().Err(err).Uint("vote_id", voteID).Msg("refresh tick lookup failed")
		return
	}
	if !v.IsActive {
		m.Scheduler.Cancel(voteID)
		return
	}

	remaining := v.Remaining(time.Now())
	if remaining == 0 {
		// The window elapsed but the resolution timer has not fired yet.
		// Resolve here; ResolveOnExpiry is idempotent and cancels the
		// timers itself.
		m.ResolveOnExpiry(voteID)
		return
	}

	m.publish(v)
	if m.OnRefresh != nil {
		m.OnRefresh(v, remaining)
	}
}

// ResolveOnExpiry fires once at the window boundary. A vote already
// closed by quorum makes this a no-op.
func (m *Manager) ResolveOnExpiry(voteID uint) {
	m.locks.Lock(voteID)
	defer m.locks.Unlock(voteID)

	v, changed, err := m.Storage.ResolveVote(voteID)
	m.Scheduler.Cancel(voteID)
	if err != nil {
		log.Error().Err(err).Uint("vote_id", voteID).Msg("resolution failed")
		return
	}
	if !changed {
		return
	}

	m.publish(v)
	if m.OnResolved != nil {
		m.OnResolved(v)
	}
	if v.Result != nil && *v.Result {
		m.execute(v)
	} else {
		log.Info().Uint("vote_id", voteID).Int("votes_for", v.VotesFor).
			Int("required", v.RequiredVotes).Msg("vote expired without quorum")
	}
}

// Withdraw lets the initiator cancel an open vote. Both timers are
// cancelled; a timer that already fired lost the race inside the store,
// so at most one resolution ever takes effect.
func (m *Manager) Withdraw(voteID uint, initiatorID int64) (*models.Vote, error) {
	m.locks.Lock(voteID)
	defer m.locks.Unlock(voteID)

	v, err := m.Storage.WithdrawVote(voteID, initiatorID)
	if err != nil {
		return nil, err
	}
	m.Scheduler.Cancel(voteID)
	m.publish(v)
	log.Info().Uint("vote_id", voteID).Int64("initiator_id", initiatorID).Msg("vote withdrawn")
	return v, nil
}

// Execute applies the enforcement action for a passed vote. It is the
// manual re-entry point for operators; the manager's own paths call the
// internal variant right after resolution.
func (m *Manager) Execute(voteID uint) error {
	m.locks.Lock(voteID)
	defer m.locks.Unlock(voteID)

	v, err := m.Storage.GetVoteByID(voteID)
	if err != nil {
		return err
	}
	if v.Result == nil || !*v.Result {
		return fmt.Errorf("vote %d has not passed: %w", voteID, moderr.ErrValidation)
	}
	if v.BanExecuted {
		return fmt.Errorf("vote %d already executed: %w", voteID, moderr.ErrConflict)
	}
	m.execute(v)
	return nil
}

// execute dispatches the enforcement side effect for the vote type.
// Success and permanent failure both latch BanExecuted so the action is
// never retried; a failure is surfaced to operators through the log.
func (m *Manager) execute(v *models.Vote) {
	duration := time.Duration(v.DurationMinutes) * time.Minute

	var err error
	switch v.VoteType {
	case models.VoteTypeBan:
		err = m.Enforcer.Ban(v.ChatID, v.TargetUserID, duration)
	case models.VoteTypeMute:
		err = m.Enforcer.Mute(v.ChatID, v.TargetUserID, duration)
	case models.VoteTypeKick:
		err = m.Enforcer.Kick(v.ChatID, v.TargetUserID)
	case models.VoteTypeWarn:
		reason := fmt.Sprintf("community vote #%d: %s", v.ID, v.Reason)
		_, err = m.Warnings.Issue(v.TargetUserID, v.ChatID, reason, v.InitiatorID, 1, nil)
	}

	if markErr := m.Storage.MarkVoteExecuted(v.ID); markErr != nil {
		log.Error().Err(markErr).Uint("vote_id", v.ID).Msg("failed to latch execution flag")
	}

	if err != nil {
		log.Error().Err(fmt.Errorf("%v: %w", err, moderr.ErrEnforcement)).
			Uint("vote_id", v.ID).Int64("target_id", v.TargetUserID).
			Str("type", v.VoteType).Msg("enforcement rejected by platform, operator attention required")
		return
	}

	if v.VoteType == models.VoteTypeBan || v.VoteType == models.VoteTypeMute {
		if err := m.Storage.SetEnforcementStatus(v.TargetUserID, v.VoteType, duration); err != nil {
			log.Error().Err(err).Uint("vote_id", v.ID).Msg("failed to cache enforcement status")
		}
	}

	if v.RelatedMessageID != nil {
		if err := m.Storage.MarkMessageDeleted(*v.RelatedMessageID, v.ChatID); err != nil {
			log.Error().Err(err).Uint("vote_id", v.ID).Msg("failed to flag offending message")
		}
	}
	if v.RelatedReportID != nil {
		resolution := fmt.Sprintf("vote #%d passed", v.ID)
		if _, err := m.Storage.ResolveReport(*v.RelatedReportID, models.ReportActionTaken, v.InitiatorID, resolution); err != nil && !errors.Is(err, moderr.ErrConflict) {
			log.Error().Err(err).Uint("vote_id", v.ID).Msg("failed to close spawning report")
		}
	}

	log.Info().Uint("vote_id", v.ID).Int64("target_id", v.TargetUserID).
		Str("type", v.VoteType).Dur("duration", duration).Msg("enforcement applied")
}

// RestoreActiveVotes re-arms timers for votes that were open when the
// process last stopped. Votes already past their window resolve at once.
func (m *Manager) RestoreActiveVotes() error {
	votes, err := m.Storage.ActiveVotes()
	if err != nil {
		return err
	}
	now := time.Now()
	for _, v := range votes {
		remaining := v.Remaining(now)
		if remaining == 0 {
			m.ResolveOnExpiry(v.ID)
			continue
		}
		m.Scheduler.ScheduleRefresh(v.ID, config.VoteRefreshPeriod, m.RefreshTick)
		m.Scheduler.ScheduleResolution(v.ID, remaining, m.ResolveOnExpiry)
	}
	log.Info().Int("count", len(votes)).Msg("active votes restored")
	return nil
}

func (m *Manager) publish(v *models.Vote) {
	update := models.VoteUpdate{
		VoteID:        v.ID,
		ChatID:        v.ChatID,
		TargetUserID:  v.TargetUserID,
		VoteType:      v.VoteType,
		VotesFor:      v.VotesFor,
		VotesAgainst:  v.VotesAgainst,
		RequiredVotes: v.RequiredVotes,
		IsActive:      v.IsActive,
		Result:        v.Result,
		ExpiresAt:     v.ExpiresAt,
	}
	if err := m.Storage.PublishVoteUpdate(update); err != nil {
		log.Error().Err(err).Uint("vote_id", v.ID).Msg("failed to publish vote update")
	}
}
