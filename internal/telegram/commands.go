package telegram

import (
	"errors"
	"strconv"
	"strings"

	"modguard/backend/internal/models"
	"modguard/backend/internal/moderr"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

const defaultVoteDuration = 60 // minutes

func (s *BotService) handleCommand(msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		s.handleStart(msg)
	case "report":
		s.handleReportCommand(msg)
	case "vote_ban":
		s.handleVoteCommand(msg, models.VoteTypeBan)
	case "vote_mute":
		s.handleVoteCommand(msg, models.VoteTypeMute)
	case "vote_kick":
		s.handleVoteCommand(msg, models.VoteTypeKick)
	case "vote_warn":
		s.handleVoteCommand(msg, models.VoteTypeWarn)
	case "vote_help":
		s.reply(msg.Chat.ID, s.t("vote_help"))
	case "stats":
		s.handleStatsCommand(msg)
	case "withdraw":
		s.handleWithdrawCommand(msg)
	}
}

func (s *BotService) handleStart(msg *tgbotapi.Message) {
	reply := tgbotapi.NewMessage(msg.Chat.ID, s.tf("start_welcome", msg.From.FirstName))
	reply.ParseMode = tgbotapi.ModeHTML
	reply.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(s.t("btn_my_stats"), "my_stats"),
			tgbotapi.NewInlineKeyboardButtonData(s.t("btn_vote_help"), "vote_help"),
		),
	)
	if _, err := s.BotAPI.Send(reply); err != nil {
		log.Error().Err(err).Msg("failed to send start message")
	}
}

// handleReportCommand files a complaint against the author of the
// replied-to message and offers the follow-up actions.
func (s *BotService) handleReportCommand(msg *tgbotapi.Message) {
	if msg.ReplyToMessage == nil || msg.ReplyToMessage.From == nil {
		s.reply(msg.Chat.ID, s.t("report_usage"))
		return
	}
	if s.isRestricted(msg.From.ID) {
		s.reply(msg.Chat.ID, s.t("restricted_user"))
		return
	}
	reported := msg.ReplyToMessage.From
	if reported.ID == msg.From.ID {
		s.reply(msg.Chat.ID, s.t("report_self"))
		return
	}

	reason := msg.CommandArguments()
	if reason == "" {
		reason = "rule violation"
	}

	// Archive synchronously so the report's message reference is
	// resolvable the moment the buttons appear.
	s.archiveReplySync(msg.ReplyToMessage)

	messageID := msg.ReplyToMessage.MessageID
	r, err := s.Reports.File(msg.From.ID, reported.ID, &messageID, msg.Chat.ID, reason, models.ReportTypeAbuse)
	if err != nil {
		log.Error().Err(err).Int64("reporter_id", msg.From.ID).Msg("report command failed")
		return
	}

	reply := tgbotapi.NewMessage(msg.Chat.ID, s.tf("report_registered", r.ID, displayName(reported), reason))
	reply.ParseMode = tgbotapi.ModeHTML
	reply.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(s.t("btn_start_vote"), "vote_from_report:"+strconv.FormatUint(uint64(r.ID), 10)),
			tgbotapi.NewInlineKeyboardButtonData(s.t("btn_warn"), "warn:"+strconv.FormatInt(reported.ID, 10)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(s.t("btn_view_message"), "view_message:"+strconv.Itoa(messageID)),
			tgbotapi.NewInlineKeyboardButtonData(s.t("btn_dismiss_report"), "dismiss_report:"+strconv.FormatUint(uint64(r.ID), 10)),
		),
	)
	if _, err := s.BotAPI.Send(reply); err != nil {
		log.Error().Err(err).Msg("failed to send report menu")
	}
}

// handleVoteCommand opens a vote against the reply target or against an
// explicit @username.
func (s *BotService) handleVoteCommand(msg *tgbotapi.Message, voteType string) {
	if s.isRestricted(msg.From.ID) {
		s.reply(msg.Chat.ID, s.t("restricted_user"))
		return
	}

	args := strings.Fields(msg.CommandArguments())

	var targetID int64
	var targetName string
	var relatedMessageID *int

	switch {
	case msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil:
		target := msg.ReplyToMessage.From
		targetID = target.ID
		targetName = displayName(target)
		s.archiveReplySync(msg.ReplyToMessage)
		mid := msg.ReplyToMessage.MessageID
		relatedMessageID = &mid

	case len(args) > 0 && strings.HasPrefix(args[0], "@"):
		user, err := s.Storage.GetUserByUsername(strings.TrimPrefix(args[0], "@"))
		if errors.Is(err, moderr.ErrNotFound) {
			s.reply(msg.Chat.ID, s.tf("vote_user_not_found", args[0]))
			return
		}
		if err != nil {
			log.Error().Err(err).Str("username", args[0]).Msg("target lookup failed")
			return
		}
		targetID = user.UserID
		targetName = user.DisplayName()
		args = args[1:]

	default:
		s.reply(msg.Chat.ID, s.tf("vote_usage", "vote_"+voteType))
		return
	}

	if targetID == msg.From.ID {
		s.reply(msg.Chat.ID, s.t("vote_self"))
		return
	}

	duration := defaultVoteDuration
	if len(args) > 0 {
		if d, err := strconv.Atoi(args[0]); err == nil {
			duration = d
			args = args[1:]
		}
	}
	reason := strings.Join(args, " ")
	if reason == "" {
		reason = "violation of chat rules"
	}

	snap, err := s.Ledger.Snapshot(targetID)
	if err != nil {
		log.Error().Err(err).Int64("target_id", targetID).Msg("snapshot for vote failed")
		return
	}

	v, err := s.Votes.Create(msg.Chat.ID, msg.From.ID, targetID, voteType, duration, reason, relatedMessageID, nil)
	if errors.Is(err, moderr.ErrValidation) {
		s.reply(msg.Chat.ID, s.t("vote_bad_duration"))
		return
	}
	if err != nil {
		log.Error().Err(err).Int64("target_id", targetID).Msg("vote creation failed")
		return
	}

	s.sendVotePanel(v, targetName, s.statsBlock(snap))
}

func (s *BotService) handleStatsCommand(msg *tgbotapi.Message) {
	snap, err := s.Ledger.Snapshot(msg.From.ID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", msg.From.ID).Msg("stats command failed")
		return
	}
	s.reply(msg.Chat.ID, s.statsDetail(snap))
}

func (s *BotService) handleWithdrawCommand(msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) == 0 {
		return
	}
	voteID, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return
	}

	v, err := s.Votes.Withdraw(uint(voteID), msg.From.ID)
	switch {
	case errors.Is(err, moderr.ErrAlreadyClosed):
		s.reply(msg.Chat.ID, s.t("vote_closed"))
	case errors.Is(err, moderr.ErrNotFound):
		s.reply(msg.Chat.ID, s.t("vote_not_found"))
	case err != nil:
		log.Error().Err(err).Uint64("vote_id", voteID).Msg("withdraw failed")
	default:
		s.clearVotePanel(v)
		s.reply(msg.Chat.ID, s.tf("vote_withdrawn", v.ID))
	}
}

// archiveReplySync persists the replied-to message immediately, outside
// the async archive channel.
func (s *BotService) archiveReplySync(msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	msgType, fileID, caption := extractMediaInfo(msg)
	archived := &models.ArchivedMessage{
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
	if err := s.Storage.SaveMessage(archived); err != nil {
		log.Error().Err(err).Int("message_id", msg.MessageID).Msg("failed to archive reply target")
	}
}

// isRestricted consults the fast enforcement-status key; a lookup error
// fails open so a Redis outage cannot block moderation commands.
func (s *BotService) isRestricted(userID int64) bool {
	restricted, err := s.Storage.IsUserRestricted(userID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("restriction lookup failed")
		return false
	}
	return restricted
}

func displayName(u *tgbotapi.User) string {
	if u.UserName != "" {
		return "@" + u.UserName
	}
	return u.FirstName
}
