// Package storagetest provides a mock persistence layer for unit tests.
package storagetest

import (
	"time"

	"modguard/backend/internal/models"
	"modguard/backend/internal/storage"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
)

type MockStorage struct {
	mock.Mock
}

var _ storage.Storage = (*MockStorage)(nil)

func (m *MockStorage) EnsureUser(userID int64, username, firstName string) (*models.User, error) {
	args := m.Called(userID, username, firstName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStorage) GetUserByID(userID int64) (*models.User, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStorage) GetUserByUsername(username string) (*models.User, error) {
	args := m.Called(username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStorage) UpdateUser(user *models.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockStorage) UserSnapshot(userID int64, now time.Time) (*models.UserSnapshot, error) {
	args := m.Called(userID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserSnapshot), args.Error(1)
}

func (m *MockStorage) TopReactions(userID int64, limit int) ([]storage.ReactionCount, error) {
	args := m.Called(userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storage.ReactionCount), args.Error(1)
}

func (m *MockStorage) SaveMessage(msg *models.ArchivedMessage) error {
	args := m.Called(msg)
	return args.Error(0)
}

func (m *MockStorage) MarkMessageDeleted(messageID int, chatID int64) error {
	args := m.Called(messageID, chatID)
	return args.Error(0)
}

func (m *MockStorage) GetMessage(messageID int, chatID int64) (*models.ArchivedMessage, error) {
	args := m.Called(messageID, chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ArchivedMessage), args.Error(1)
}

func (m *MockStorage) LookupAuthor(messageID int, chatID int64) (int64, error) {
	args := m.Called(messageID, chatID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) ApplyReactionEvent(r *models.Reaction, authorID int64, class storage.ReactionClass, authorDelta, reactorDelta int) (bool, error) {
	args := m.Called(r, authorID, class, authorDelta, reactorDelta)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) CreateReport(report *models.Report) error {
	args := m.Called(report)
	return args.Error(0)
}

func (m *MockStorage) GetReportByID(id uint) (*models.Report, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Report), args.Error(1)
}

func (m *MockStorage) ResolveReport(id uint, status string, moderatorID int64, resolution string) (*models.Report, error) {
	args := m.Called(id, status, moderatorID, resolution)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Report), args.Error(1)
}

func (m *MockStorage) ListReports(status string, limit int) ([]models.Report, error) {
	args := m.Called(status, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Report), args.Error(1)
}

func (m *MockStorage) LinkReportVote(reportID, voteID uint) error {
	args := m.Called(reportID, voteID)
	return args.Error(0)
}

func (m *MockStorage) CreateWarning(w *models.Warning) error {
	args := m.Called(w)
	return args.Error(0)
}

func (m *MockStorage) ActiveWarningCount(userID int64, now time.Time) (int64, error) {
	args := m.Called(userID, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) ActiveWarnings(userID int64, now time.Time) ([]models.Warning, error) {
	args := m.Called(userID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Warning), args.Error(1)
}

func (m *MockStorage) DeactivateWarning(id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockStorage) CreateVote(v *models.Vote) error {
	args := m.Called(v)
	return args.Error(0)
}

func (m *MockStorage) GetVoteByID(id uint) (*models.Vote, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Vote), args.Error(1)
}

func (m *MockStorage) CastBallot(voteID uint, voterID int64, inFavor bool) (*models.Vote, error) {
	args := m.Called(voteID, voterID, inFavor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Vote), args.Error(1)
}

func (m *MockStorage) ResolveVote(voteID uint) (*models.Vote, bool, error) {
	args := m.Called(voteID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.Vote), args.Bool(1), args.Error(2)
}

func (m *MockStorage) WithdrawVote(voteID uint, initiatorID int64) (*models.Vote, error) {
	args := m.Called(voteID, initiatorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Vote), args.Error(1)
}

func (m *MockStorage) MarkVoteExecuted(voteID uint) error {
	args := m.Called(voteID)
	return args.Error(0)
}

func (m *MockStorage) ActiveVotes() ([]models.Vote, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Vote), args.Error(1)
}

func (m *MockStorage) UpsertChatMember(member *models.ChatMember) error {
	args := m.Called(member)
	return args.Error(0)
}

func (m *MockStorage) RemoveChatMember(chatID, userID int64) error {
	args := m.Called(chatID, userID)
	return args.Error(0)
}

func (m *MockStorage) CountChatMembers(chatID int64) (int64, error) {
	args := m.Called(chatID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) SetEnforcementStatus(userID int64, status string, ttl time.Duration) error {
	args := m.Called(userID, status, ttl)
	return args.Error(0)
}

func (m *MockStorage) IsUserRestricted(userID int64) (bool, error) {
	args := m.Called(userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) PublishVoteUpdate(update models.VoteUpdate) error {
	args := m.Called(update)
	return args.Error(0)
}

func (m *MockStorage) SubscribeVoteUpdates() *redis.PubSub {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*redis.PubSub)
}
