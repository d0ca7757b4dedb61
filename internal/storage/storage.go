// Package storage is the persistence boundary of the moderation engine.
// PostgreSQL (via gorm) is the single source of truth; Redis carries the
// fast enforcement-status keys and the vote-update pub/sub channel.
package storage

import (
	"context"
	"time"

	"modguard/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ReactionClass is the ledger's classification of a reaction emoji.
type ReactionClass string

const (
	ReactionPositive ReactionClass = "positive"
	ReactionNegative ReactionClass = "negative"
	ReactionNeutral  ReactionClass = "neutral"
)

// ReactionCount is one row of a per-user reaction leaderboard.
type ReactionCount struct {
	Emoji string
	Count int64
}

type Storage interface {
	// Users
	EnsureUser(userID int64, username, firstName string) (*models.User, error)
	GetUserByID(userID int64) (*models.User, error)
	GetUserByUsername(username string) (*models.User, error)
	UpdateUser(user *models.User) error
	UserSnapshot(userID int64, now time.Time) (*models.UserSnapshot, error)
	TopReactions(userID int64, limit int) ([]ReactionCount, error)

	// Message archive
	SaveMessage(msg *models.ArchivedMessage) error
	MarkMessageDeleted(messageID int, chatID int64) error
	GetMessage(messageID int, chatID int64) (*models.ArchivedMessage, error)
	LookupAuthor(messageID int, chatID int64) (int64, error)

	// Reactions (atomic ledger mutation)
	ApplyReactionEvent(r *models.Reaction, authorID int64, class ReactionClass, authorDelta, reactorDelta int) (bool, error)

	// Reports
	CreateReport(report *models.Report) error
	GetReportByID(id uint) (*models.Report, error)
	ResolveReport(id uint, status string, moderatorID int64, resolution string) (*models.Report, error)
	ListReports(status string, limit int) ([]models.Report, error)
	LinkReportVote(reportID, voteID uint) error

	// Warnings
	CreateWarning(w *models.Warning) error
	ActiveWarningCount(userID int64, now time.Time) (int64, error)
	ActiveWarnings(userID int64, now time.Time) ([]models.Warning, error)
	DeactivateWarning(id uint) error

	// Votes
	CreateVote(v *models.Vote) error
	GetVoteByID(id uint) (*models.Vote, error)
	CastBallot(voteID uint, voterID int64, inFavor bool) (*models.Vote, error)
	ResolveVote(voteID uint) (*models.Vote, bool, error)
	WithdrawVote(voteID uint, initiatorID int64) (*models.Vote, error)
	MarkVoteExecuted(voteID uint) error
	ActiveVotes() ([]models.Vote, error)

	// Chat membership
	UpsertChatMember(member *models.ChatMember) error
	RemoveChatMember(chatID, userID int64) error
	CountChatMembers(chatID int64) (int64, error)

	// Redis
	SetEnforcementStatus(userID int64, status string, ttl time.Duration) error
	IsUserRestricted(userID int64) (bool, error)
	PublishVoteUpdate(update models.VoteUpdate) error
	SubscribeVoteUpdates() *redis.PubSub
}

type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Ctx:   context.Background(),
	}
}
