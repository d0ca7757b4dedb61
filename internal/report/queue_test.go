package report_test

import (
	"fmt"
	"testing"

	"modguard/backend/internal/models"
	"modguard/backend/internal/moderr"
	"modguard/backend/internal/report"
	"modguard/backend/internal/storage/storagetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestFile_SelfReportRejected(t *testing.T) {
	storageMock := new(storagetest.MockStorage)
	q := report.NewQueue(storageMock)

	_, err := q.File(7, 7, nil, 100, "spam", models.ReportTypeSpam)

	assert.ErrorIs(t, err, moderr.ErrValidation)
	storageMock.AssertNotCalled(t, "CreateReport", mock.Anything)
}

func TestFile_CreatesPendingReport(t *testing.T) {
	storageMock := new(storagetest.MockStorage)
	q := report.NewQueue(storageMock)

	messageID := 10
	storageMock.On("CreateReport", mock.AnythingOfType("*models.Report")).Run(func(args mock.Arguments) {
		r := args.Get(0).(*models.Report)
		assert.Equal(t, int64(7), r.ReporterID)
		assert.Equal(t, int64(8), r.ReportedUserID)
		assert.Equal(t, models.ReportPending, r.Status)
		assert.Equal(t, models.ReportTypeSpam, r.ReportType)
		require.NotNil(t, r.MessageID)
		assert.Equal(t, 10, *r.MessageID)
		r.ID = 1
	}).Return(nil).Once()

	r, err := q.File(7, 8, &messageID, 100, "spam", models.ReportTypeSpam)

	require.NoError(t, err)
	assert.Equal(t, uint(1), r.ID)
	storageMock.AssertExpectations(t)
}

func TestFile_UnknownTypeFallsBackToOther(t *testing.T) {
	storageMock := new(storagetest.MockStorage)
	q := report.NewQueue(storageMock)

	storageMock.On("CreateReport", mock.AnythingOfType("*models.Report")).Run(func(args mock.Arguments) {
		assert.Equal(t, models.ReportTypeOther, args.Get(0).(*models.Report).ReportType)
	}).Return(nil).Once()

	_, err := q.File(7, 8, nil, 100, "weird", "slander")

	require.NoError(t, err)
	storageMock.AssertExpectations(t)
}

func TestResolve_RejectsNonTerminalStatus(t *testing.T) {
	storageMock := new(storagetest.MockStorage)
	q := report.NewQueue(storageMock)

	_, err := q.Resolve(1, models.ReportPending, 7, "")
	assert.ErrorIs(t, err, moderr.ErrValidation)

	_, err = q.Resolve(1, "archived", 7, "")
	assert.ErrorIs(t, err, moderr.ErrValidation)

	storageMock.AssertNotCalled(t, "ResolveReport",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestResolve_TerminalReportIsConflict(t *testing.T) {
	storageMock := new(storagetest.MockStorage)
	q := report.NewQueue(storageMock)

	storageMock.On("ResolveReport", uint(1), models.ReportDismissed, int64(7), "").
		Return(nil, fmt.Errorf("report 1 already dismissed: %w", moderr.ErrConflict))

	_, err := q.Resolve(1, models.ReportDismissed, 7, "")

	assert.ErrorIs(t, err, moderr.ErrConflict)
}

func TestResolve_Succeeds(t *testing.T) {
	storageMock := new(storagetest.MockStorage)
	q := report.NewQueue(storageMock)

	resolved := &models.Report{ID: 1, Status: models.ReportActionTaken}
	storageMock.On("ResolveReport", uint(1), models.ReportActionTaken, int64(7), "vote passed").
		Return(resolved, nil).Once()

	r, err := q.Resolve(1, models.ReportActionTaken, 7, "vote passed")

	require.NoError(t, err)
	assert.True(t, r.IsTerminal())
	storageMock.AssertExpectations(t)
}

func TestPending_ListsPendingOnly(t *testing.T) {
	storageMock := new(storagetest.MockStorage)
	q := report.NewQueue(storageMock)

	storageMock.On("ListReports", models.ReportPending, 20).
		Return([]models.Report{{ID: 1}, {ID: 2}}, nil).Once()

	reports, err := q.Pending(20)

	require.NoError(t, err)
	assert.Len(t, reports, 2)
	storageMock.AssertExpectations(t)
}
