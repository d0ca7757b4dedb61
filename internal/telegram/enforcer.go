package telegram

import (
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// Enforcer applies passed vote outcomes through the Telegram moderation
// API. It also serves the live member count used to size quorums.
type Enforcer struct {
	BotAPI *tgbotapi.BotAPI
}

func NewEnforcer(bot *tgbotapi.BotAPI) *Enforcer {
	return &Enforcer{BotAPI: bot}
}

func memberConfig(chatID, userID int64) tgbotapi.ChatMemberConfig {
	return tgbotapi.ChatMemberConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
		UserID:     userID,
	}
}

// Ban removes the user for the given duration. Telegram treats a ban
// shorter than 30 seconds or longer than 366 days as permanent.
func (e *Enforcer) Ban(chatID, userID int64, duration time.Duration) error {
	cfg := tgbotapi.BanChatMemberConfig{
		ChatMemberConfig: memberConfig(chatID, userID),
		UntilDate:        time.Now().Add(duration).Unix(),
	}
	if _, err := e.BotAPI.Request(cfg); err != nil {
		return fmt.Errorf("ban user %d in chat %d: %w", userID, chatID, err)
	}
	log.Info().Int64("chat_id", chatID).Int64("user_id", userID).Dur("duration", duration).Msg("user banned")
	return nil
}

// Mute revokes all sending permissions for the given duration.
func (e *Enforcer) Mute(chatID, userID int64, duration time.Duration) error {
	cfg := tgbotapi.RestrictChatMemberConfig{
		ChatMemberConfig: memberConfig(chatID, userID),
		UntilDate:        time.Now().Add(duration).Unix(),
		Permissions:      &tgbotapi.ChatPermissions{},
	}
	if _, err := e.BotAPI.Request(cfg); err != nil {
		return fmt.Errorf("mute user %d in chat %d: %w", userID, chatID, err)
	}
	log.Info().Int64("chat_id", chatID).Int64("user_id", userID).Dur("duration", duration).Msg("user muted")
	return nil
}

// Kick removes the user without a lasting ban: a ban immediately
// followed by an unban lets them rejoin by invite link.
func (e *Enforcer) Kick(chatID, userID int64) error {
	ban := tgbotapi.BanChatMemberConfig{
		ChatMemberConfig: memberConfig(chatID, userID),
	}
	if _, err := e.BotAPI.Request(ban); err != nil {
		return fmt.Errorf("kick user %d in chat %d: %w", userID, chatID, err)
	}

	unban := tgbotapi.UnbanChatMemberConfig{
		ChatMemberConfig: memberConfig(chatID, userID),
		OnlyIfBanned:     true,
	}
	if _, err := e.BotAPI.Request(unban); err != nil {
		return fmt.Errorf("unban after kick of user %d in chat %d: %w", userID, chatID, err)
	}
	log.Info().Int64("chat_id", chatID).Int64("user_id", userID).Msg("user kicked")
	return nil
}

// CountMembers returns the live chat member count from Telegram.
func (e *Enforcer) CountMembers(chatID int64) (int, error) {
	count, err := e.BotAPI.GetChatMembersCount(tgbotapi.ChatMemberCountConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
	})
	if err != nil {
		return 0, fmt.Errorf("member count of chat %d: %w", chatID, err)
	}
	return count, nil
}
