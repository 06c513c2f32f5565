package bot

// Telegram transport glue: the leaderboard publisher adapter and chat id
// parsing helpers.

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"spyton-bot/internal/leaderboard"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Transport adapts the Bot API to the publisher's three operations and maps
// Telegram's stringly-typed failures onto the publisher's sentinels.
type Transport struct {
	bot *tgbotapi.BotAPI
}

func NewTransport(botAPI *tgbotapi.BotAPI) *Transport {
	return &Transport{bot: botAPI}
}

func (t *Transport) Send(_ context.Context, destination int64, text string) (int, error) {
	msg := tgbotapi.NewMessage(destination, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	sent, err := t.bot.Send(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (t *Transport) Edit(_ context.Context, destination int64, messageID int, text string) error {
	edit := tgbotapi.NewEditMessageText(destination, messageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	_, err := t.bot.Send(edit)
	return classifyEditError(err)
}

func (t *Transport) Pin(_ context.Context, destination int64, messageID int) error {
	pin := tgbotapi.PinChatMessageConfig{
		ChatID:              destination,
		MessageID:           messageID,
		DisableNotification: true,
	}
	_, err := t.bot.Request(pin)
	return err
}

func classifyEditError(err error) error {
	if err == nil {
		return nil
	}
	text := strings.ToLower(err.Error())
	switch {
	case strings.Contains(text, "message is not modified"):
		return leaderboard.ErrNotModified
	case strings.Contains(text, "message to edit not found"),
		strings.Contains(text, "message_id_invalid"):
		return leaderboard.ErrNotFound
	default:
		return err
	}
}

var chatIDRe = regexp.MustCompile(`-?\d+`)

// ParseChatID accepts a chat id with the unicode dashes iOS keyboards
// produce in place of the minus sign.
func ParseChatID(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	for _, dash := range []string{"–", "—", "−"} {
		s = strings.ReplaceAll(s, dash, "-")
	}
	m := chatIDRe.FindString(s)
	if m == "" {
		return 0, fmt.Errorf("invalid chat id: %q", raw)
	}
	return strconv.ParseInt(m, 10, 64)
}
