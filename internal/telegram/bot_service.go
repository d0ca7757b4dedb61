// Package telegram handles the integration with the Telegram Bot API.
// It receives updates, classifies each one into exactly one engine
// event, and renders the voting surface back into the chat.
package telegram

import (
	"fmt"
	"sync"
	"time"

	"modguard/backend/internal/events"
	"modguard/backend/internal/localization"
	"modguard/backend/internal/models"
	"modguard/backend/internal/report"
	"modguard/backend/internal/reputation"
	"modguard/backend/internal/storage"
	"modguard/backend/internal/vote"
	"modguard/backend/internal/warning"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// BotService receives Telegram updates and routes them to the engine.
type BotService struct {
	BotAPI     *tgbotapi.BotAPI
	Dispatcher *events.Dispatcher
	Storage    storage.Storage
	Votes      *vote.Manager
	Reports    *report.Queue
	Warnings   *warning.Accumulator
	Ledger     *reputation.Ledger
	Localizer  *localization.Localizer
	Lang       string

	// panels maps vote id to the chat message carrying its keyboard, so
	// refresh ticks can edit the tallies in place.
	panelMu sync.Mutex
	panels  map[uint]votePanel
}

type votePanel struct {
	chatID    int64
	messageID int
}

// NewBotService creates a new BotService instance.
func NewBotService(token, lang string, d *events.Dispatcher, s storage.Storage, votes *vote.Manager, reports *report.Queue, warns *warning.Accumulator, ledger *reputation.Ledger) (*BotService, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	bot.Debug = false
	log.Info().Str("account", bot.Self.UserName).Msg("authorized on telegram")

	localizer, err := localization.NewLocalizer("internal/localization")
	if err != nil {
		return nil, fmt.Errorf("failed to create localizer: %w", err)
	}
	if lang == "" {
		lang = "en"
	}

	svc := &BotService{
		BotAPI:     bot,
		Dispatcher: d,
		Storage:    s,
		Votes:      votes,
		Reports:    reports,
		Warnings:   warns,
		Ledger:     ledger,
		Localizer:  localizer,
		Lang:       lang,
		panels:     make(map[uint]votePanel),
	}
	votes.OnRefresh = svc.refreshVotePanel
	votes.OnResolved = svc.announceVoteResult
	return svc, nil
}

func (s *BotService) t(key string) string { return s.Localizer.GetString(s.Lang, key) }

func (s *BotService) tf(key string, args ...interface{}) string {
	return s.Localizer.Format(s.Lang, key, args...)
}

// Run is the main loop for receiving Telegram updates.
func (s *BotService) Run() {
	if err := s.Votes.RestoreActiveVotes(); err != nil {
		log.Error().Err(err).Msg("failed to restore active votes")
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	u.AllowedUpdates = []string{"message", "edited_message", "callback_query", "message_reaction"}
	updates := s.BotAPI.GetUpdatesChan(u)

	for update := range updates {
		switch {
		case update.MessageReaction != nil:
			s.handleReaction(update.MessageReaction)
		case update.Message != nil:
			s.handleMessage(update.Message)
		case update.EditedMessage != nil:
			s.archiveMessage(update.EditedMessage)
		case update.CallbackQuery != nil:
			s.handleCallbackQuery(update.CallbackQuery)
		}
	}
}

// handleMessage processes one inbound chat message: the sender is
// registered, membership is tracked, the content is archived, and
// commands are dispatched.
func (s *BotService) handleMessage(msg *tgbotapi.Message) {
	if msg.From != nil {
		if _, err := s.Storage.EnsureUser(msg.From.ID, msg.From.UserName, msg.From.FirstName); err != nil {
			log.Error().Err(err).Int64("user_id", msg.From.ID).Msg("failed to ensure sender")
			return
		}
		if msg.Chat.IsGroup() || msg.Chat.IsSuperGroup() {
			member := &models.ChatMember{ChatID: msg.Chat.ID, UserID: msg.From.ID, JoinedAt: time.Now()}
			if err := s.Storage.UpsertChatMember(member); err != nil {
				log.Error().Err(err).Int64("user_id", msg.From.ID).Msg("failed to track membership")
			}
		}
	}

	s.handleMembershipUpdates(msg)
	s.archiveMessage(msg)

	if msg.IsCommand() {
		s.handleCommand(msg)
	}
}

// handleMembershipUpdates tracks joins and leaves so the stored member
// count stays usable as a quorum fallback.
func (s *BotService) handleMembershipUpdates(msg *tgbotapi.Message) {
	if msg.NewChatMembers != nil {
		for _, joined := range msg.NewChatMembers {
			if _, err := s.Storage.EnsureUser(joined.ID, joined.UserName, joined.FirstName); err != nil {
				continue
			}
			member := &models.ChatMember{ChatID: msg.Chat.ID, UserID: joined.ID, JoinedAt: time.Now()}
			if err := s.Storage.UpsertChatMember(member); err != nil {
				log.Error().Err(err).Int64("user_id", joined.ID).Msg("failed to record join")
			}
		}
	}
	if msg.LeftChatMember != nil {
		if err := s.Storage.RemoveChatMember(msg.Chat.ID, msg.LeftChatMember.ID); err != nil {
			log.Error().Err(err).Int64("user_id", msg.LeftChatMember.ID).Msg("failed to record leave")
		}
	}
}

// archiveMessage captures the message content for later review.
func (s *BotService) archiveMessage(msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	msgType, fileID, caption := extractMediaInfo(msg)

	archived := models.ArchivedMessage{
		MessageID:   msg.MessageID,
		ChatID:      msg.Chat.ID,
		UserID:      msg.From.ID,
		MessageType: msgType,
		FileID:      fileID,
		Caption:     caption,
	}
	if msgType == "text" {
		archived.Content = msg.Text
	}
	s.Dispatcher.ArchiveCh <- archived
}

// handleReaction forwards a reaction-add event to the dispatcher. Only
// the newest reaction in the update carries new information.
func (s *BotService) handleReaction(mr *tgbotapi.MessageReactionUpdated) {
	if mr.User == nil || len(mr.NewReaction) == 0 {
		return
	}
	emoji := mr.NewReaction[len(mr.NewReaction)-1].Emoji
	if emoji == "" {
		return
	}
	if _, err := s.Storage.EnsureUser(mr.User.ID, mr.User.UserName, mr.User.FirstName); err != nil {
		log.Error().Err(err).Int64("user_id", mr.User.ID).Msg("failed to ensure reactor")
		return
	}

	s.Dispatcher.ReactionCh <- models.ReactionEvent{
		MessageID: mr.MessageID,
		ChatID:    mr.Chat.ID,
		ReactorID: mr.User.ID,
		Emoji:     emoji,
	}
}

// extractMediaInfo uniformly extracts media type, file ID, and caption
// from a message.
func extractMediaInfo(msg *tgbotapi.Message) (msgType, fileID, caption string) {
	caption = msg.Caption
	switch {
	case msg.Photo != nil:
		msgType = "photo"
		fileID = msg.Photo[len(msg.Photo)-1].FileID
	case msg.Video != nil:
		msgType = "video"
		fileID = msg.Video.FileID
	case msg.Animation != nil:
		msgType = "animation"
		fileID = msg.Animation.FileID
	case msg.Sticker != nil:
		msgType = "sticker"
		fileID = msg.Sticker.FileID
	case msg.Voice != nil:
		msgType = "voice"
		fileID = msg.Voice.FileID
	case msg.Document != nil:
		msgType = "document"
		fileID = msg.Document.FileID
	default:
		msgType = "text"
	}
	return
}

func (s *BotService) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := s.BotAPI.Send(msg); err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("failed to send message")
	}
}
