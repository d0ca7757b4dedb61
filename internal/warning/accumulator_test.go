package warning_test

import (
	"testing"
	"time"

	"modguard/backend/internal/models"
	"modguard/backend/internal/moderr"
	"modguard/backend/internal/storage/storagetest"
	"modguard/backend/internal/warning"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestIssue_SeverityBounds(t *testing.T) {
	storageMock := new(storagetest.MockStorage)
	acc := warning.NewAccumulator(storageMock)

	_, err := acc.Issue(8, 100, "spam", 7, 0, nil)
	assert.ErrorIs(t, err, moderr.ErrValidation)

	_, err = acc.Issue(8, 100, "spam", 7, 4, nil)
	assert.ErrorIs(t, err, moderr.ErrValidation)

	storageMock.AssertNotCalled(t, "CreateWarning", mock.Anything)
}

func TestIssue_CreatesActiveWarning(t *testing.T) {
	storageMock := new(storagetest.MockStorage)
	acc := warning.NewAccumulator(storageMock)

	storageMock.On("CreateWarning", mock.AnythingOfType("*models.Warning")).Run(func(args mock.Arguments) {
		w := args.Get(0).(*models.Warning)
		assert.Equal(t, int64(8), w.UserID)
		assert.Equal(t, int64(100), w.ChatID)
		assert.Equal(t, int64(7), w.IssuedBy)
		assert.Equal(t, 2, w.Severity)
		assert.True(t, w.IsActive)
		assert.Nil(t, w.ExpiresAt)
	}).Return(nil).Once()
	storageMock.On("ActiveWarningCount", int64(8), mock.AnythingOfType("time.Time")).Return(int64(1), nil)

	w, err := acc.Issue(8, 100, "spam", 7, 2, nil)

	require.NoError(t, err)
	assert.Equal(t, "spam", w.Reason)
	storageMock.AssertExpectations(t)
}

func TestIssue_ExpiringWarningKeepsDeadline(t *testing.T) {
	storageMock := new(storagetest.MockStorage)
	acc := warning.NewAccumulator(storageMock)

	deadline := time.Now().Add(30 * 24 * time.Hour)
	storageMock.On("CreateWarning", mock.AnythingOfType("*models.Warning")).Return(nil)
	storageMock.On("ActiveWarningCount", int64(8), mock.AnythingOfType("time.Time")).Return(int64(1), nil)

	w, err := acc.Issue(8, 100, "spam", 7, 1, &deadline)

	require.NoError(t, err)
	require.NotNil(t, w.ExpiresAt)
	assert.True(t, w.ExpiresAt.Equal(deadline))
}

func TestAtThreshold(t *testing.T) {
	storageMock := new(storagetest.MockStorage)
	acc := warning.NewAccumulator(storageMock)

	storageMock.On("ActiveWarningCount", int64(8), mock.AnythingOfType("time.Time")).Return(int64(3), nil).Once()
	at, err := acc.AtThreshold(8)
	require.NoError(t, err)
	assert.True(t, at)

	storageMock.On("ActiveWarningCount", int64(9), mock.AnythingOfType("time.Time")).Return(int64(2), nil).Once()
	at, err = acc.AtThreshold(9)
	require.NoError(t, err)
	assert.False(t, at)
}

func TestRevoke(t *testing.T) {
	storageMock := new(storagetest.MockStorage)
	acc := warning.NewAccumulator(storageMock)

	storageMock.On("DeactivateWarning", uint(5)).Return(nil).Once()

	require.NoError(t, acc.Revoke(5))
	storageMock.AssertExpectations(t)
}

func TestWarningActiveAt(t *testing.T) {
	now := time.Now()
	later := now.Add(time.Hour)
	earlier := now.Add(-time.Hour)

	perpetual := models.Warning{IsActive: true}
	assert.True(t, perpetual.ActiveAt(now))

	expiring := models.Warning{IsActive: true, ExpiresAt: &later}
	assert.True(t, expiring.ActiveAt(now))

	expired := models.Warning{IsActive: true, ExpiresAt: &earlier}
	assert.False(t, expired.ActiveAt(now))

	revoked := models.Warning{IsActive: false, ExpiresAt: &later}
	assert.False(t, revoked.ActiveAt(now))
}
