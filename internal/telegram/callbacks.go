package telegram

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"modguard/backend/internal/models"
	"modguard/backend/internal/moderr"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// handleCallbackQuery routes inline button presses. Ballot presses go
// straight to the vote manager so the caller can be told about
// duplicates and closed votes in the answer popup.
func (s *BotService) handleCallbackQuery(cq *tgbotapi.CallbackQuery) {
	data := cq.Data
	switch {
	case strings.HasPrefix(data, "vote:"):
		s.handleBallot(cq)
	case strings.HasPrefix(data, "view_message:"):
		s.handleViewMessage(cq)
	case strings.HasPrefix(data, "vote_from_report:"):
		s.handleVoteFromReport(cq)
	case strings.HasPrefix(data, "warn:"):
		s.handleWarnButton(cq)
	case strings.HasPrefix(data, "dismiss_report:"):
		s.handleDismissReport(cq)
	case data == "my_stats":
		s.handleMyStats(cq)
	case data == "vote_help":
		s.answer(cq.ID, "")
		s.reply(cq.Message.Chat.ID, s.t("vote_help"))
	default:
		s.answer(cq.ID, "")
	}
}

func (s *BotService) handleBallot(cq *tgbotapi.CallbackQuery) {
	parts := strings.Split(cq.Data, ":")
	if len(parts) != 3 {
		s.answer(cq.ID, "")
		return
	}
	voteID, err := strconv.ParseUint(parts[2], 10, 32)
	if err != nil {
		s.answer(cq.ID, "")
		return
	}
	inFavor := parts[1] == "for"

	if _, err := s.Storage.EnsureUser(cq.From.ID, cq.From.UserName, cq.From.FirstName); err != nil {
		log.Error().Err(err).Int64("user_id", cq.From.ID).Msg("failed to ensure voter")
	}

	v, err := s.Votes.CastBallot(uint(voteID), cq.From.ID, inFavor)
	switch {
	case errors.Is(err, moderr.ErrDuplicateVoter):
		s.alert(cq.ID, s.t("vote_duplicate"))
		return
	case errors.Is(err, moderr.ErrAlreadyClosed):
		s.alert(cq.ID, s.t("vote_closed"))
		return
	case errors.Is(err, moderr.ErrNotFound):
		s.alert(cq.ID, s.t("vote_not_found"))
		return
	case err != nil:
		log.Error().Err(err).Uint64("vote_id", voteID).Msg("ballot failed")
		s.answer(cq.ID, "")
		return
	}

	s.answer(cq.ID, s.t("vote_accepted"))
	if v.IsActive {
		s.refreshVotePanel(v, v.Remaining(time.Now()))
	}
}

func (s *BotService) handleViewMessage(cq *tgbotapi.CallbackQuery) {
	messageID, err := strconv.Atoi(strings.TrimPrefix(cq.Data, "view_message:"))
	if err != nil {
		s.answer(cq.ID, "")
		return
	}

	archived, err := s.Storage.GetMessage(messageID, cq.Message.Chat.ID)
	if errors.Is(err, moderr.ErrNotFound) {
		s.alert(cq.ID, s.t("message_not_archived"))
		return
	}
	if err != nil {
		log.Error().Err(err).Int("message_id", messageID).Msg("archive lookup failed")
		s.answer(cq.ID, "")
		return
	}

	s.answer(cq.ID, "")
	content := archived.Content
	if content == "" {
		content = archived.Caption
	}
	s.reply(cq.Message.Chat.ID, s.tf("message_preview", archived.MessageID, archived.MessageType, content))
}

// handleVoteFromReport escalates a filed report into a ban vote linked
// back to the report.
func (s *BotService) handleVoteFromReport(cq *tgbotapi.CallbackQuery) {
	reportID, err := strconv.ParseUint(strings.TrimPrefix(cq.Data, "vote_from_report:"), 10, 32)
	if err != nil {
		s.answer(cq.ID, "")
		return
	}

	r, err := s.Reports.Get(uint(reportID))
	if errors.Is(err, moderr.ErrNotFound) {
		s.alert(cq.ID, s.t("vote_not_found"))
		return
	}
	if err != nil {
		log.Error().Err(err).Uint64("report_id", reportID).Msg("report lookup failed")
		s.answer(cq.ID, "")
		return
	}
	if r.IsTerminal() {
		s.alert(cq.ID, s.t("report_already_resolved"))
		return
	}

	snap, err := s.Ledger.Snapshot(r.ReportedUserID)
	if err != nil {
		log.Error().Err(err).Int64("target_id", r.ReportedUserID).Msg("snapshot for vote failed")
		s.answer(cq.ID, "")
		return
	}

	rid := uint(reportID)
	v, err := s.Votes.Create(r.ChatID, cq.From.ID, r.ReportedUserID, models.VoteTypeBan, defaultVoteDuration, r.Reason, r.MessageID, &rid)
	if err != nil {
		log.Error().Err(err).Uint64("report_id", reportID).Msg("vote creation from report failed")
		s.answer(cq.ID, "")
		return
	}

	s.answer(cq.ID, "")
	s.sendVotePanel(v, snap.User.DisplayName(), s.statsBlock(snap))
}

func (s *BotService) handleWarnButton(cq *tgbotapi.CallbackQuery) {
	targetID, err := strconv.ParseInt(strings.TrimPrefix(cq.Data, "warn:"), 10, 64)
	if err != nil {
		s.answer(cq.ID, "")
		return
	}

	if _, err := s.Warnings.Issue(targetID, cq.Message.Chat.ID, "issued from report", cq.From.ID, 1, nil); err != nil {
		log.Error().Err(err).Int64("target_id", targetID).Msg("failed to issue warning")
		s.answer(cq.ID, "")
		return
	}

	count, err := s.Warnings.ActiveCount(targetID)
	if err != nil {
		count = 1
	}

	targetName := strconv.FormatInt(targetID, 10)
	if user, err := s.Storage.GetUserByID(targetID); err == nil {
		targetName = user.DisplayName()
	}

	s.answer(cq.ID, "")
	s.reply(cq.Message.Chat.ID, s.tf("warn_issued", targetName, count))

	if at, err := s.Warnings.AtThreshold(targetID); err == nil && at {
		s.reply(cq.Message.Chat.ID, s.tf("warn_threshold_reached", targetName))
	}
}

func (s *BotService) handleDismissReport(cq *tgbotapi.CallbackQuery) {
	reportID, err := strconv.ParseUint(strings.TrimPrefix(cq.Data, "dismiss_report:"), 10, 32)
	if err != nil {
		s.answer(cq.ID, "")
		return
	}

	if _, err := s.Reports.Resolve(uint(reportID), models.ReportDismissed, cq.From.ID, "dismissed from chat"); err != nil {
		if errors.Is(err, moderr.ErrConflict) {
			s.alert(cq.ID, s.t("report_already_resolved"))
			return
		}
		log.Error().Err(err).Uint64("report_id", reportID).Msg("failed to dismiss report")
		s.answer(cq.ID, "")
		return
	}

	s.answer(cq.ID, "")
	s.reply(cq.Message.Chat.ID, s.tf("report_dismissed", reportID))
}

func (s *BotService) handleMyStats(cq *tgbotapi.CallbackQuery) {
	snap, err := s.Ledger.Snapshot(cq.From.ID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", cq.From.ID).Msg("stats lookup failed")
		s.answer(cq.ID, "")
		return
	}
	s.answer(cq.ID, "")
	s.reply(cq.Message.Chat.ID, s.statsDetail(snap))
}

func (s *BotService) answer(callbackID, text string) {
	if _, err := s.BotAPI.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		log.Debug().Err(err).Msg("callback answer failed")
	}
}

func (s *BotService) alert(callbackID, text string) {
	if _, err := s.BotAPI.Request(tgbotapi.NewCallbackWithAlert(callbackID, text)); err != nil {
		log.Debug().Err(err).Msg("callback alert failed")
	}
}
