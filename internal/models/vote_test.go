package models_test

import (
	"testing"
	"time"

	"modguard/backend/internal/models"
	"modguard/backend/internal/moderr"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVoteHasVoted(t *testing.T) {
	v := models.Vote{Voters: pq.Int64Array{7, 8, 9}}

	assert.True(t, v.HasVoted(8))
	assert.False(t, v.HasVoted(10))

	empty := models.Vote{}
	assert.False(t, empty.HasVoted(7))
}

func TestVoteQuorumReached(t *testing.T) {
	v := models.Vote{VotesFor: 2, RequiredVotes: 3}
	assert.False(t, v.QuorumReached())

	v.VotesFor = 3
	assert.True(t, v.QuorumReached())

	// Against votes never count toward the quorum.
	v = models.Vote{VotesFor: 2, VotesAgainst: 5, RequiredVotes: 3}
	assert.False(t, v.QuorumReached())
}

// A chat of ten members keeps the quorum floor of three, so the third
// "for" ballot closes the vote on the spot.
func TestVoteApplyBallot(t *testing.T) {
	now := time.Now()
	newVote := func() *models.Vote {
		return &models.Vote{
			RequiredVotes: 3,
			Voters:        pq.Int64Array{},
			IsActive:      true,
			ExpiresAt:     now.Add(5 * time.Minute),
		}
	}

	t.Run("quorum closes on the deciding ballot", func(t *testing.T) {
		v := newVote()
		ballots := []struct {
			voter   int64
			inFavor bool
		}{
			{11, true},
			{12, false},
			{13, true},
			{14, false},
			{15, true},
		}
		for i, b := range ballots {
			require.NoError(t, v.ApplyBallot(b.voter, b.inFavor, now), "ballot %d", i)
		}

		assert.Equal(t, 3, v.VotesFor)
		assert.Equal(t, 2, v.VotesAgainst)
		assert.False(t, v.IsActive)
		require.NotNil(t, v.Result)
		assert.True(t, *v.Result)
	})

	t.Run("duplicate voter rejected without moving the tally", func(t *testing.T) {
		v := newVote()
		require.NoError(t, v.ApplyBallot(11, true, now))

		err := v.ApplyBallot(11, false, now)

		assert.ErrorIs(t, err, moderr.ErrDuplicateVoter)
		assert.Equal(t, 1, v.VotesFor)
		assert.Zero(t, v.VotesAgainst)
		assert.Len(t, v.Voters, 1)
	})

	t.Run("against ballots never close the vote", func(t *testing.T) {
		v := newVote()
		for i, voter := range []int64{11, 12, 13, 14} {
			require.NoError(t, v.ApplyBallot(voter, false, now), "ballot %d", i)
		}

		assert.True(t, v.IsActive)
		assert.Nil(t, v.Result)
		assert.Equal(t, 4, v.VotesAgainst)
	})

	t.Run("closed vote rejected", func(t *testing.T) {
		v := newVote()
		v.IsActive = false

		assert.ErrorIs(t, v.ApplyBallot(11, true, now), moderr.ErrAlreadyClosed)
	})

	t.Run("expired vote rejected even while still flagged active", func(t *testing.T) {
		v := newVote()

		err := v.ApplyBallot(11, true, v.ExpiresAt.Add(time.Second))

		assert.ErrorIs(t, err, moderr.ErrAlreadyClosed)
		assert.Empty(t, v.Voters)
	})

	t.Run("counters always match the voter set", func(t *testing.T) {
		v := newVote()
		v.RequiredVotes = 30
		for i := int64(0); i < 10; i++ {
			require.NoError(t, v.ApplyBallot(100+i, i%2 == 0, now))
		}

		assert.Equal(t, len(v.Voters), v.VotesFor+v.VotesAgainst)
	})
}

func TestVoteRemaining(t *testing.T) {
	now := time.Now()

	open := models.Vote{ExpiresAt: now.Add(2 * time.Minute)}
	assert.InDelta(t, float64(2*time.Minute), float64(open.Remaining(now)), float64(time.Second))

	past := models.Vote{ExpiresAt: now.Add(-time.Minute)}
	assert.Equal(t, time.Duration(0), past.Remaining(now))
}

func TestValidVoteType(t *testing.T) {
	for _, vt := range []string{
		models.VoteTypeBan, models.VoteTypeKick, models.VoteTypeMute, models.VoteTypeWarn,
	} {
		assert.True(t, models.ValidVoteType(vt), vt)
	}
	assert.False(t, models.ValidVoteType("exile"))
	assert.False(t, models.ValidVoteType(""))
}

func TestReportIsTerminal(t *testing.T) {
	pending := models.Report{Status: models.ReportPending}
	assert.False(t, pending.IsTerminal())

	for _, status := range []string{
		models.ReportReviewed, models.ReportDismissed, models.ReportActionTaken,
	} {
		r := models.Report{Status: status}
		assert.True(t, r.IsTerminal(), status)
	}
}

func TestUserDisplayName(t *testing.T) {
	withHandle := models.User{Username: "alice", FirstName: "Alice"}
	assert.Equal(t, "@alice", withHandle.DisplayName())

	noHandle := models.User{FirstName: "Bob"}
	assert.Equal(t, "Bob", noHandle.DisplayName())
}

func TestSnapshotAtWarningThreshold(t *testing.T) {
	snap := models.UserSnapshot{ActiveWarnings: 2}
	assert.False(t, snap.AtWarningThreshold(3))

	snap.ActiveWarnings = 3
	assert.True(t, snap.AtWarningThreshold(3))
}
