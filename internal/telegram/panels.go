package telegram

import (
	"strconv"
	"strings"
	"time"

	"modguard/backend/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// sendVotePanel posts the voting surface: the vote header with the
// target's evidence block, and the ballot keyboard underneath.
func (s *BotService) sendVotePanel(v *models.Vote, targetName, statsBlock string) {
	text := s.tf("vote_header", v.ID, strings.ToUpper(v.VoteType), targetName, v.DurationMinutes, v.Reason, statsBlock, v.RequiredVotes)

	msg := tgbotapi.NewMessage(v.ChatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = s.voteKeyboard(v)

	sent, err := s.BotAPI.Send(msg)
	if err != nil {
		log.Error().Err(err).Uint("vote_id", v.ID).Msg("failed to send vote panel")
		return
	}

	s.panelMu.Lock()
	s.panels[v.ID] = votePanel{chatID: sent.Chat.ID, messageID: sent.MessageID}
	s.panelMu.Unlock()
}

func (s *BotService) voteKeyboard(v *models.Vote) tgbotapi.InlineKeyboardMarkup {
	voteID := strconv.FormatUint(uint64(v.ID), 10)
	remaining := v.Remaining(time.Now())
	minutes := int(remaining / time.Minute)
	seconds := int(remaining/time.Second) % 60

	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(s.tf("btn_vote_for", v.VotesFor), "vote:for:"+voteID),
			tgbotapi.NewInlineKeyboardButtonData(s.tf("btn_vote_against", v.VotesAgainst), "vote:against:"+voteID),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(s.tf("btn_vote_timer", minutes, seconds), "noop"),
		),
	}
	if v.RelatedMessageID != nil {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(s.t("btn_view_message"), "view_message:"+strconv.Itoa(*v.RelatedMessageID)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// refreshVotePanel redraws the ballot keyboard with current tallies and
// the remaining time. Invoked on every scheduler refresh tick.
func (s *BotService) refreshVotePanel(v *models.Vote, remaining time.Duration) {
	s.panelMu.Lock()
	panel, ok := s.panels[v.ID]
	s.panelMu.Unlock()
	if !ok {
		return
	}

	edit := tgbotapi.NewEditMessageReplyMarkup(panel.chatID, panel.messageID, s.voteKeyboard(v))
	if _, err := s.BotAPI.Request(edit); err != nil {
		log.Debug().Err(err).Uint("vote_id", v.ID).Msg("vote panel refresh skipped")
	}
}

// announceVoteResult posts the outcome once the vote leaves the active
// state and removes the stale keyboard.
func (s *BotService) announceVoteResult(v *models.Vote) {
	s.clearVotePanel(v)

	if v.Result != nil && *v.Result {
		targetName := strconv.FormatInt(v.TargetUserID, 10)
		if user, err := s.Storage.GetUserByID(v.TargetUserID); err == nil {
			targetName = user.DisplayName()
		}
		s.reply(v.ChatID, s.tf("vote_passed", v.ID, v.VoteType, targetName))
		if v.RelatedMessageID != nil {
			if _, err := s.BotAPI.Request(tgbotapi.NewDeleteMessage(v.ChatID, *v.RelatedMessageID)); err != nil {
				log.Debug().Err(err).Uint("vote_id", v.ID).Msg("offending message removal skipped")
			}
		}
		return
	}
	s.reply(v.ChatID, s.tf("vote_failed", v.ID))
}

// clearVotePanel strips the keyboard off the panel message and forgets
// the panel.
func (s *BotService) clearVotePanel(v *models.Vote) {
	s.panelMu.Lock()
	panel, ok := s.panels[v.ID]
	delete(s.panels, v.ID)
	s.panelMu.Unlock()
	if !ok {
		return
	}

	empty := tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}}
	edit := tgbotapi.NewEditMessageReplyMarkup(panel.chatID, panel.messageID, empty)
	if _, err := s.BotAPI.Request(edit); err != nil {
		log.Debug().Err(err).Uint("vote_id", v.ID).Msg("vote panel cleanup skipped")
	}
}

func (s *BotService) statsBlock(snap *models.UserSnapshot) string {
	block := s.tf("vote_stats_block",
		snap.User.PositiveReactions,
		snap.User.NegativeReactions,
		snap.User.NeutralReactions,
		snap.User.ReportsReceived,
		snap.ActiveWarnings,
		snap.User.Rating,
	)
	if reasons := snap.ReportReasons; len(reasons) > 0 {
		if len(reasons) > 3 {
			reasons = reasons[:3]
		}
		block += s.tf("recent_reasons", strings.Join(reasons, "; "))
	}
	return block
}

func (s *BotService) statsDetail(snap *models.UserSnapshot) string {
	return s.tf("stats_detail",
		snap.User.DisplayName(),
		snap.User.Rating,
		snap.ActiveWarnings,
		snap.User.PositiveReactions,
		snap.User.NegativeReactions,
		snap.User.NeutralReactions,
		snap.User.ReportsReceived,
		snap.PendingReports,
	)
}
