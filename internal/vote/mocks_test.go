package vote_test

import (
	"time"

	"github.com/stretchr/testify/mock"
)

type MockScheduler struct {
	mock.Mock
}

func (m *MockScheduler) ScheduleRefresh(voteID uint, interval time.Duration, fn func(voteID uint)) {
	m.Called(voteID, interval, fn)
}

func (m *MockScheduler) ScheduleResolution(voteID uint, delay time.Duration, fn func(voteID uint)) {
	m.Called(voteID, delay, fn)
}

func (m *MockScheduler) Cancel(voteID uint) {
	m.Called(voteID)
}

type MockEnforcer struct {
	mock.Mock
}

func (m *MockEnforcer) Ban(chatID, userID int64, duration time.Duration) error {
	args := m.Called(chatID, userID, duration)
	return args.Error(0)
}

func (m *MockEnforcer) Mute(chatID, userID int64, duration time.Duration) error {
	args := m.Called(chatID, userID, duration)
	return args.Error(0)
}

func (m *MockEnforcer) Kick(chatID, userID int64) error {
	args := m.Called(chatID, userID)
	return args.Error(0)
}

type MockMemberCounter struct {
	mock.Mock
}

func (m *MockMemberCounter) CountMembers(chatID int64) (int, error) {
	args := m.Called(chatID)
	return args.Int(0), args.Error(1)
}
