package models

import (
	"time"

	"modguard/backend/internal/moderr"

	"github.com/lib/pq"
)

// Vote types. Each drives a different enforcement side effect after the
// vote passes.
const (
	VoteTypeBan  = "ban"
	VoteTypeKick = "kick"
	VoteTypeMute = "mute"
	VoteTypeWarn = "warn"
)

// Vote is a time-boxed community ballot against a target member.
//
// Invariant: VotesFor + VotesAgainst == len(Voters), and each voter id
// appears in Voters at most once. IsActive is true only while the window
// is open and no quorum has been reached; once it drops to false, Result
// is set exactly once and never changes.
type Vote struct {
	ID uint `gorm:"primaryKey"`

	ChatID       int64 `gorm:"index"`
	TargetUserID int64 `gorm:"index"`
	InitiatorID  int64

	VoteType string `gorm:"type:text;not null"`
	// DurationMinutes parameterizes the enforcement consequence, not the
	// ballot period.
	DurationMinutes int
	Reason          string `gorm:"type:text"`

	RelatedMessageID *int
	RelatedReportID  *uint

	VotesFor     int `gorm:"default:0"`
	VotesAgainst int `gorm:"default:0"`
	// RequiredVotes is the quorum, snapshotted from the member count at
	// creation time. Later membership changes do not change it.
	RequiredVotes int `gorm:"not null"`
	// Voters holds every user id that has cast a ballot.
	Voters pq.Int64Array `gorm:"type:bigint[]"`

	CreatedAt time.Time
	ExpiresAt time.Time `gorm:"index:idx_vote_active_expiry"`

	IsActive bool `gorm:"default:true;index:idx_vote_active_expiry"`
	// Result is nil while the vote is open, then latched once: true for
	// passed, false for failed or expired without quorum.
	Result *bool
	// BanExecuted latches after the enforcement side effect was attempted,
	// on success or permanent failure, so it is never retried.
	BanExecuted bool `gorm:"default:false"`
}

// HasVoted reports whether the user already cast a ballot.
func (v *Vote) HasVoted(userID int64) bool {
	for _, id := range v.Voters {
		if id == userID {
			return true
		}
	}
	return false
}

// ApplyBallot records one voter's choice as of the given instant. A
// closed or expired vote and a repeat voter are conflicts; the voter set
// and the matching counter move together, and a "for" ballot that meets
// the quorum closes the vote with a passed result on the spot.
func (v *Vote) ApplyBallot(voterID int64, inFavor bool, now time.Time) error {
	if !v.IsActive || !v.ExpiresAt.After(now) {
		return moderr.ErrAlreadyClosed
	}
	if v.HasVoted(voterID) {
		return moderr.ErrDuplicateVoter
	}

	v.Voters = append(v.Voters, voterID)
	if inFavor {
		v.VotesFor++
	} else {
		v.VotesAgainst++
	}

	if v.QuorumReached() {
		passed := true
		v.IsActive = false
		v.Result = &passed
	}
	return nil
}

// QuorumReached reports whether the "for" tally meets the quorum.
func (v *Vote) QuorumReached() bool {
	return v.VotesFor >= v.RequiredVotes
}

// Remaining returns the time left in the ballot window, floored at zero.
func (v *Vote) Remaining(now time.Time) time.Duration {
	if d := v.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// ValidVoteType reports whether t is one of the accepted vote types.
func ValidVoteType(t string) bool {
	switch t {
	case VoteTypeBan, VoteTypeKick, VoteTypeMute, VoteTypeWarn:
		return true
	}
	return false
}
