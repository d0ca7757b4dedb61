package reputation_test

import (
	"fmt"
	"testing"

	"modguard/backend/internal/models"
	"modguard/backend/internal/moderr"
	"modguard/backend/internal/reputation"
	"modguard/backend/internal/storage"
	"modguard/backend/internal/storage/storagetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		emoji string
		want  storage.ReactionClass
	}{
		{"👍", storage.ReactionPositive},
		{"❤️", storage.ReactionPositive},
		{"🔥", storage.ReactionPositive},
		{"👎", storage.ReactionNegative},
		{"💩", storage.ReactionNegative},
		{"🤔", storage.ReactionNeutral},
		{"🤷", storage.ReactionNeutral},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, reputation.Classify(c.emoji), "emoji=%s", c.emoji)
	}
}

func TestRecordReaction_PositiveMovesBothParties(t *testing.T) {
	storageMock := new(storagetest.MockStorage)
	ledger := reputation.NewLedger(storageMock)

	storageMock.On("LookupAuthor", 10, int64(100)).Return(int64(42), nil)
	storageMock.On("ApplyReactionEvent",
		mock.AnythingOfType("*models.Reaction"), int64(42), storage.ReactionPositive, 5, 1,
	).Run(func(args mock.Arguments) {
		r := args.Get(0).(*models.Reaction)
		assert.Equal(t, int64(7), r.UserID)
		assert.Equal(t, "👍", r.Emoji)
	}).Return(true, nil).Once()

	err := ledger.RecordReaction(models.ReactionEvent{
		MessageID: 10, ChatID: 100, ReactorID: 7, Emoji: "👍",
	})

	require.NoError(t, err)
	storageMock.AssertExpectations(t)
}

func TestRecordReaction_NegativeCostsAuthor(t *testing.T) {
	storageMock := new(storagetest.MockStorage)
	ledger := reputation.NewLedger(storageMock)

	storageMock.On("LookupAuthor", 10, int64(100)).Return(int64(42), nil)
	storageMock.On("ApplyReactionEvent",
		mock.AnythingOfType("*models.Reaction"), int64(42), storage.ReactionNegative, -3, 1,
	).Return(true, nil).Once()

	err := ledger.RecordReaction(models.ReactionEvent{
		MessageID: 10, ChatID: 100, ReactorID: 7, Emoji: "👎",
	})

	require.NoError(t, err)
	storageMock.AssertExpectations(t)
}

func TestRecordReaction_NeutralOnlyTallies(t *testing.T) {
	storageMock := new(storagetest.MockStorage)
	ledger := reputation.NewLedger(storageMock)

	storageMock.On("LookupAuthor", 10, int64(100)).Return(int64(42), nil)
	storageMock.On("ApplyReactionEvent",
		mock.AnythingOfType("*models.Reaction"), int64(42), storage.ReactionNeutral, 0, 1,
	).Return(true, nil).Once()

	err := ledger.RecordReaction(models.ReactionEvent{
		MessageID: 10, ChatID: 100, ReactorID: 7, Emoji: "🤔",
	})

	require.NoError(t, err)
	storageMock.AssertExpectations(t)
}

func TestRecordReaction_UnarchivedMessageDropped(t *testing.T) {
	storageMock := new(storagetest.MockStorage)
	ledger := reputation.NewLedger(storageMock)

	storageMock.On("LookupAuthor", 10, int64(100)).
		Return(int64(0), fmt.Errorf("message 10 has no archived author: %w", moderr.ErrNotFound))

	err := ledger.RecordReaction(models.ReactionEvent{
		MessageID: 10, ChatID: 100, ReactorID: 7, Emoji: "👍",
	})

	assert.NoError(t, err, "a reaction on an unknown message is silently dropped")
	storageMock.AssertNotCalled(t, "ApplyReactionEvent",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRecordReaction_DuplicateIsNoOp(t *testing.T) {
	storageMock := new(storagetest.MockStorage)
	ledger := reputation.NewLedger(storageMock)

	storageMock.On("LookupAuthor", 10, int64(100)).Return(int64(42), nil)
	storageMock.On("ApplyReactionEvent",
		mock.Anything, int64(42), storage.ReactionPositive, 5, 1,
	).Return(false, nil)

	err := ledger.RecordReaction(models.ReactionEvent{
		MessageID: 10, ChatID: 100, ReactorID: 7, Emoji: "👍",
	})

	assert.NoError(t, err)
}
