package vote_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"modguard/backend/internal/models"
	"modguard/backend/internal/moderr"
	"modguard/backend/internal/storage/storagetest"
	"modguard/backend/internal/vote"
	"modguard/backend/internal/warning"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestManager() (*vote.Manager, *storagetest.MockStorage, *MockScheduler, *MockEnforcer, *MockMemberCounter) {
	storageMock := new(storagetest.MockStorage)
	schedulerMock := new(MockScheduler)
	enforcerMock := new(MockEnforcer)
	counterMock := new(MockMemberCounter)
	warnings := warning.NewAccumulator(storageMock)
	m := vote.NewManager(storageMock, schedulerMock, enforcerMock, warnings, counterMock)
	return m, storageMock, schedulerMock, enforcerMock, counterMock
}

func TestRequiredVotes(t *testing.T) {
	cases := []struct {
		members int
		want    int
	}{
		{1, 3},
		{3, 3},
		{10, 3},
		{11, 4},
		{20, 6},
		{34, 11},
		{100, 30},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, vote.RequiredVotes(c.members), "members=%d", c.members)
	}
}

func TestCreate_SelfTargetRejected(t *testing.T) {
	m, storageMock, _, _, _ := newTestManager()

	_, err := m.Create(100, 7, 7, models.VoteTypeBan, 60, "spam", nil, nil)

	assert.ErrorIs(t, err, moderr.ErrValidation)
	storageMock.AssertNotCalled(t, "CreateVote", mock.Anything)
}

func TestCreate_DurationBounds(t *testing.T) {
	m, _, _, _, _ := newTestManager()

	_, err := m.Create(100, 7, 8, models.VoteTypeBan, 0, "spam", nil, nil)
	assert.ErrorIs(t, err, moderr.ErrValidation)

	_, err = m.Create(100, 7, 8, models.VoteTypeBan, 10081, "spam", nil, nil)
	assert.ErrorIs(t, err, moderr.ErrValidation)
}

func TestCreate_UnknownTypeRejected(t *testing.T) {
	m, _, _, _, _ := newTestManager()

	_, err := m.Create(100, 7, 8, "exile", 60, "spam", nil, nil)

	assert.ErrorIs(t, err, moderr.ErrValidation)
}

func TestCreate_SnapshotsQuorumAndArmsTimers(t *testing.T) {
	m, storageMock, schedulerMock, _, counterMock := newTestManager()

	counterMock.On("CountMembers", int64(100)).Return(10, nil)
	storageMock.On("CreateVote", mock.AnythingOfType("*models.Vote")).Run(func(args mock.Arguments) {
		args.Get(0).(*models.Vote).ID = 1
	}).Return(nil)
	storageMock.On("PublishVoteUpdate", mock.AnythingOfType("models.VoteUpdate")).Return(nil)
	schedulerMock.On("ScheduleRefresh", uint(1), mock.Anything, mock.Anything).Return()
	schedulerMock.On("ScheduleResolution", uint(1), mock.Anything, mock.Anything).Return()

	v, err := m.Create(100, 7, 8, models.VoteTypeBan, 60, "spam", nil, nil)

	require.NoError(t, err)
	assert.Equal(t, 3, v.RequiredVotes, "10 members keep the quorum floor")
	assert.True(t, v.IsActive)
	assert.Nil(t, v.Result)
	assert.WithinDuration(t, v.CreatedAt.Add(5*time.Minute), v.ExpiresAt, time.Second,
		"ballot window is fixed and independent of the enforcement duration")
	schedulerMock.AssertExpectations(t)
}

func TestCreate_LinksSpawningReport(t *testing.T) {
	m, storageMock, schedulerMock, _, counterMock := newTestManager()

	reportID := uint(55)
	counterMock.On("CountMembers", int64(100)).Return(10, nil)
	storageMock.On("CreateVote", mock.AnythingOfType("*models.Vote")).Run(func(args mock.Arguments) {
		args.Get(0).(*models.Vote).ID = 9
	}).Return(nil)
	storageMock.On("LinkReportVote", reportID, uint(9)).Return(nil)
	storageMock.On("PublishVoteUpdate", mock.AnythingOfType("models.VoteUpdate")).Return(nil)
	schedulerMock.On("ScheduleRefresh", uint(9), mock.Anything, mock.Anything).Return()
	schedulerMock.On("ScheduleResolution", uint(9), mock.Anything, mock.Anything).Return()

	_, err := m.Create(100, 7, 8, models.VoteTypeBan, 60, "spam", nil, &reportID)

	require.NoError(t, err)
	storageMock.AssertCalled(t, "LinkReportVote", reportID, uint(9))
}

func passedVote(voteType string) *models.Vote {
	result := true
	return &models.Vote{
		ID:              1,
		ChatID:          100,
		TargetUserID:    8,
		InitiatorID:     7,
		VoteType:        voteType,
		DurationMinutes: 60,
		VotesFor:        3,
		RequiredVotes:   3,
		IsActive:        false,
		Result:          &result,
		ExpiresAt:       time.Now().Add(3 * time.Minute),
	}
}

func TestCastBallot_QuorumClosesAndEnforcesOnce(t *testing.T) {
	m, storageMock, schedulerMock, enforcerMock, _ := newTestManager()

	resolved := 0
	m.OnResolved = func(v *models.Vote) { resolved++ }

	v := passedVote(models.VoteTypeBan)
	storageMock.On("CastBallot", uint(1), int64(20), true).Return(v, nil)
	storageMock.On("PublishVoteUpdate", mock.AnythingOfType("models.VoteUpdate")).Return(nil)
	storageMock.On("MarkVoteExecuted", uint(1)).Return(nil).Once()
	storageMock.On("SetEnforcementStatus", int64(8), models.VoteTypeBan, time.Hour).Return(nil)
	schedulerMock.On("Cancel", uint(1)).Return()
	enforcerMock.On("Ban", int64(100), int64(8), time.Hour).Return(nil).Once()

	got, err := m.CastBallot(1, 20, true)

	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Equal(t, 1, resolved)
	enforcerMock.AssertExpectations(t)
	storageMock.AssertExpectations(t)
}

func TestCastBallot_OpenVoteDoesNotEnforce(t *testing.T) {
	m, storageMock, schedulerMock, enforcerMock, _ := newTestManager()

	open := &models.Vote{ID: 1, ChatID: 100, TargetUserID: 8, VoteType: models.VoteTypeBan,
		VotesFor: 1, RequiredVotes: 3, IsActive: true, ExpiresAt: time.Now().Add(4 * time.Minute)}
	storageMock.On("CastBallot", uint(1), int64(20), true).Return(open, nil)
	storageMock.On("PublishVoteUpdate", mock.AnythingOfType("models.VoteUpdate")).Return(nil)

	got, err := m.CastBallot(1, 20, true)

	require.NoError(t, err)
	assert.True(t, got.IsActive)
	schedulerMock.AssertNotCalled(t, "Cancel", mock.Anything)
	enforcerMock.AssertNotCalled(t, "Ban", mock.Anything, mock.Anything, mock.Anything)
}

func TestCastBallot_DuplicateVoter(t *testing.T) {
	m, storageMock, _, enforcerMock, _ := newTestManager()

	storageMock.On("CastBallot", uint(1), int64(20), true).Return(nil, moderr.ErrDuplicateVoter)

	_, err := m.CastBallot(1, 20, true)

	assert.ErrorIs(t, err, moderr.ErrDuplicateVoter)
	assert.ErrorIs(t, err, moderr.ErrConflict)
	enforcerMock.AssertNotCalled(t, "Ban", mock.Anything, mock.Anything, mock.Anything)
}

func TestCastBallot_ClosedVote(t *testing.T) {
	m, storageMock, _, _, _ := newTestManager()

	storageMock.On("CastBallot", uint(1), int64(20), false).Return(nil, moderr.ErrAlreadyClosed)

	_, err := m.CastBallot(1, 20, false)

	assert.ErrorIs(t, err, moderr.ErrAlreadyClosed)
}

func TestRefreshTick_ActiveVotePublishes(t *testing.T) {
	m, storageMock, schedulerMock, _, _ := newTestManager()

	var seen time.Duration
	m.OnRefresh = func(v *models.Vote, remaining time.Duration) { seen = remaining }

	open := &models.Vote{ID: 1, IsActive: true, ExpiresAt: time.Now().Add(2 * time.Minute)}
	storageMock.On("GetVoteByID", uint(1)).Return(open, nil)
	storageMock.On("PublishVoteUpdate", mock.AnythingOfType("models.VoteUpdate")).Return(nil)

	m.RefreshTick(1)

	assert.Greater(t, seen, time.Minute)
	schedulerMock.AssertNotCalled(t, "Cancel", mock.Anything)
}

func TestRefreshTick_ExpiredOpenVoteResolves(t *testing.T) {
	m, storageMock, schedulerMock, enforcerMock, _ := newTestManager()

	resolved := 0
	m.OnResolved = func(v *models.Vote) { resolved++ }

	// The window elapsed but the resolution timer has not fired: the tick
	// must resolve instead of tearing the timers down.
	overdue := &models.Vote{ID: 1, IsActive: true, VotesFor: 1, RequiredVotes: 3,
		ExpiresAt: time.Now().Add(-time.Second)}
	result := false
	failed := &models.Vote{ID: 1, IsActive: false, VotesFor: 1, RequiredVotes: 3, Result: &result}
	storageMock.On("GetVoteByID", uint(1)).Return(overdue, nil)
	storageMock.On("ResolveVote", uint(1)).Return(failed, true, nil).Once()
	storageMock.On("PublishVoteUpdate", mock.AnythingOfType("models.VoteUpdate")).Return(nil)
	schedulerMock.On("Cancel", uint(1)).Return()

	m.RefreshTick(1)

	assert.Equal(t, 1, resolved)
	storageMock.AssertExpectations(t)
	enforcerMock.AssertNotCalled(t, "Ban", mock.Anything, mock.Anything, mock.Anything)
}

func TestRefreshTick_LookupErrorKeepsTimers(t *testing.T) {
	m, storageMock, schedulerMock, _, _ := newTestManager()

	storageMock.On("GetVoteByID", uint(1)).Return(nil, moderr.ErrPersistence)

	m.RefreshTick(1)

	schedulerMock.AssertNotCalled(t, "Cancel", mock.Anything,
		"a transient lookup failure must not disarm the resolution timer")
}

func TestRefreshTick_ClosedVoteCancelsScheduling(t *testing.T) {
	m, storageMock, schedulerMock, _, _ := newTestManager()

	closed := passedVote(models.VoteTypeBan)
	storageMock.On("GetVoteByID", uint(1)).Return(closed, nil)
	schedulerMock.On("Cancel", uint(1)).Return().Once()

	m.RefreshTick(1)

	schedulerMock.AssertExpectations(t)
	storageMock.AssertNotCalled(t, "ResolveVote", mock.Anything)
}

func TestResolveOnExpiry_QuorumNotReached(t *testing.T) {
	m, storageMock, schedulerMock, enforcerMock, _ := newTestManager()

	var resolvedVote *models.Vote
	m.OnResolved = func(v *models.Vote) { resolvedVote = v }

	result := false
	failed := &models.Vote{ID: 1, ChatID: 100, TargetUserID: 8, VoteType: models.VoteTypeBan,
		VotesFor: 2, RequiredVotes: 3, IsActive: false, Result: &result}
	storageMock.On("ResolveVote", uint(1)).Return(failed, true, nil)
	storageMock.On("PublishVoteUpdate", mock.AnythingOfType("models.VoteUpdate")).Return(nil)
	schedulerMock.On("Cancel", uint(1)).Return()

	m.ResolveOnExpiry(1)

	require.NotNil(t, resolvedVote)
	assert.False(t, *resolvedVote.Result)
	enforcerMock.AssertNotCalled(t, "Ban", mock.Anything, mock.Anything, mock.Anything)
	storageMock.AssertNotCalled(t, "MarkVoteExecuted", mock.Anything)
}

func TestResolveOnExpiry_AlreadyResolvedIsNoOp(t *testing.T) {
	m, storageMock, schedulerMock, _, _ := newTestManager()

	resolved := 0
	m.OnResolved = func(v *models.Vote) { resolved++ }

	v := passedVote(models.VoteTypeBan)
	storageMock.On("ResolveVote", uint(1)).Return(v, false, nil)
	schedulerMock.On("Cancel", uint(1)).Return()

	m.ResolveOnExpiry(1)

	assert.Zero(t, resolved, "a vote closed by quorum must not announce twice")
	storageMock.AssertNotCalled(t, "PublishVoteUpdate", mock.Anything)
}

func TestExecute_WarnVoteIssuesWarning(t *testing.T) {
	m, storageMock, _, _, _ := newTestManager()

	v := passedVote(models.VoteTypeWarn)
	storageMock.On("GetVoteByID", uint(1)).Return(v, nil)
	storageMock.On("CreateWarning", mock.AnythingOfType("*models.Warning")).Run(func(args mock.Arguments) {
		w := args.Get(0).(*models.Warning)
		assert.Equal(t, int64(8), w.UserID)
		assert.Equal(t, 1, w.Severity)
		assert.True(t, w.IsActive)
	}).Return(nil).Once()
	storageMock.On("ActiveWarningCount", int64(8), mock.AnythingOfType("time.Time")).Return(int64(1), nil)
	storageMock.On("MarkVoteExecuted", uint(1)).Return(nil).Once()

	err := m.Execute(1)

	require.NoError(t, err)
	storageMock.AssertExpectations(t)
}

func TestExecute_ClosesSpawningReportAndFlagsMessage(t *testing.T) {
	m, storageMock, _, enforcerMock, _ := newTestManager()

	v := passedVote(models.VoteTypeBan)
	messageID := 10
	reportID := uint(55)
	v.RelatedMessageID = &messageID
	v.RelatedReportID = &reportID

	storageMock.On("GetVoteByID", uint(1)).Return(v, nil)
	enforcerMock.On("Ban", int64(100), int64(8), time.Hour).Return(nil)
	storageMock.On("MarkVoteExecuted", uint(1)).Return(nil)
	storageMock.On("SetEnforcementStatus", int64(8), models.VoteTypeBan, time.Hour).Return(nil)
	storageMock.On("MarkMessageDeleted", 10, int64(100)).Return(nil).Once()
	storageMock.On("ResolveReport", reportID, models.ReportActionTaken, int64(7), mock.AnythingOfType("string")).
		Return(&models.Report{ID: reportID, Status: models.ReportActionTaken}, nil).Once()

	err := m.Execute(1)

	require.NoError(t, err)
	storageMock.AssertExpectations(t)
}

func TestExecute_ConcurrentCallsEnforceOnce(t *testing.T) {
	m, storageMock, _, enforcerMock, _ := newTestManager()

	fresh := passedVote(models.VoteTypeBan)
	executed := *fresh
	executed.BanExecuted = true
	// The per-vote lock serializes the two callers, so the second lookup
	// observes the latched flag.
	storageMock.On("GetVoteByID", uint(1)).Return(fresh, nil).Once()
	storageMock.On("GetVoteByID", uint(1)).Return(&executed, nil)
	enforcerMock.On("Ban", int64(100), int64(8), time.Hour).Return(nil).Once()
	storageMock.On("MarkVoteExecuted", uint(1)).Return(nil).Once()
	storageMock.On("SetEnforcementStatus", int64(8), models.VoteTypeBan, time.Hour).Return(nil).Once()

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- m.Execute(1)
		}()
	}
	wg.Wait()
	close(errs)

	var succeeded, conflicted int
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, moderr.ErrConflict):
			conflicted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, conflicted)
	enforcerMock.AssertNumberOfCalls(t, "Ban", 1)
}

func TestExecute_NotPassed(t *testing.T) {
	m, storageMock, _, enforcerMock, _ := newTestManager()

	open := &models.Vote{ID: 1, IsActive: true}
	storageMock.On("GetVoteByID", uint(1)).Return(open, nil)

	err := m.Execute(1)

	assert.ErrorIs(t, err, moderr.ErrValidation)
	enforcerMock.AssertNotCalled(t, "Ban", mock.Anything, mock.Anything, mock.Anything)
}

func TestExecute_AlreadyExecuted(t *testing.T) {
	m, storageMock, _, enforcerMock, _ := newTestManager()

	v := passedVote(models.VoteTypeBan)
	v.BanExecuted = true
	storageMock.On("GetVoteByID", uint(1)).Return(v, nil)

	err := m.Execute(1)

	assert.ErrorIs(t, err, moderr.ErrConflict)
	enforcerMock.AssertNotCalled(t, "Ban", mock.Anything, mock.Anything, mock.Anything)
}

func TestWithdraw_CancelsTimers(t *testing.T) {
	m, storageMock, schedulerMock, _, _ := newTestManager()

	resolved := 0
	m.OnResolved = func(v *models.Vote) { resolved++ }

	result := false
	withdrawn := &models.Vote{ID: 1, InitiatorID: 7, IsActive: false, Result: &result}
	storageMock.On("WithdrawVote", uint(1), int64(7)).Return(withdrawn, nil)
	storageMock.On("PublishVoteUpdate", mock.AnythingOfType("models.VoteUpdate")).Return(nil)
	schedulerMock.On("Cancel", uint(1)).Return().Once()

	v, err := m.Withdraw(1, 7)

	require.NoError(t, err)
	assert.False(t, v.IsActive)
	assert.Zero(t, resolved, "withdrawal is announced by the caller, not as a vote result")
	schedulerMock.AssertExpectations(t)
}

func TestWithdraw_NotInitiator(t *testing.T) {
	m, storageMock, schedulerMock, _, _ := newTestManager()

	storageMock.On("WithdrawVote", uint(1), int64(99)).Return(nil, moderr.ErrValidation)

	_, err := m.Withdraw(1, 99)

	assert.ErrorIs(t, err, moderr.ErrValidation)
	schedulerMock.AssertNotCalled(t, "Cancel", mock.Anything)
}

func TestRestoreActiveVotes_ReArmsOpenVotes(t *testing.T) {
	m, storageMock, schedulerMock, _, _ := newTestManager()

	open := models.Vote{ID: 3, IsActive: true, ExpiresAt: time.Now().Add(2 * time.Minute)}
	storageMock.On("ActiveVotes").Return([]models.Vote{open}, nil)
	schedulerMock.On("ScheduleRefresh", uint(3), mock.Anything, mock.Anything).Return().Once()
	schedulerMock.On("ScheduleResolution", uint(3), mock.Anything, mock.Anything).Return().Once()

	err := m.RestoreActiveVotes()

	require.NoError(t, err)
	schedulerMock.AssertExpectations(t)
}

func TestRestoreActiveVotes_ResolvesOverdueVotes(t *testing.T) {
	m, storageMock, schedulerMock, enforcerMock, _ := newTestManager()

	overdue := models.Vote{ID: 4, IsActive: true, ExpiresAt: time.Now().Add(-time.Minute)}
	result := false
	failed := &models.Vote{ID: 4, IsActive: false, Result: &result}
	storageMock.On("ActiveVotes").Return([]models.Vote{overdue}, nil)
	storageMock.On("ResolveVote", uint(4)).Return(failed, true, nil).Once()
	storageMock.On("PublishVoteUpdate", mock.AnythingOfType("models.VoteUpdate")).Return(nil)
	schedulerMock.On("Cancel", uint(4)).Return()

	err := m.RestoreActiveVotes()

	require.NoError(t, err)
	storageMock.AssertExpectations(t)
	enforcerMock.AssertNotCalled(t, "Ban", mock.Anything, mock.Anything, mock.Anything)
}
