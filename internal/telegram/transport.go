package telegram

import (
	"context"
	"fmt"
	"strconv"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/PoluyanbIch/pollquizbot/internal/service"
)

// Telegram poll limits.
const (
	maxPollQuestion = 300
	maxPollOption   = 100
)

const moduleCallbackPrefix = "module:"

// sender is the part of *tgbotapi.BotAPI used to talk to users.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Transport presents quiz output in private chats, where chat ID equals user ID.
type Transport struct {
	api sender
}

func NewTransport(api sender) *Transport {
	return &Transport{api: api}
}

func (t *Transport) ShowModules(_ context.Context, userID int64, titles []string) error {
	msg := tgbotapi.NewMessage(userID, "👋 Welcome to the *Quiz Bot!*\n\nChoose a module to begin:")
	msg.ParseMode = tgbotapi.ModeMarkdown

	rows := lo.Map(titles, func(title string, i int) []tgbotapi.InlineKeyboardButton {
		return tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(title, moduleCallbackPrefix+strconv.Itoa(i)),
		)
	})
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)

	_, err := t.api.Send(msg)
	return errors.Wrap(err, "send module menu")
}

func (t *Transport) PresentPoll(_ context.Context, userID int64, poll service.Poll) (string, error) {
	options := lo.Map(poll.Options, func(o string, _ int) string {
		return truncate(o, maxPollOption)
	})
	cfg := tgbotapi.NewPoll(userID, truncate(fmt.Sprintf("Q%d. %s", poll.Number, poll.Question), maxPollQuestion), options...)
	cfg.Type = "quiz"
	cfg.IsAnonymous = false
	cfg.CorrectOptionID = int64(poll.Correct)

	msg, err := t.api.Send(cfg)
	if err != nil {
		return "", errors.Wrap(err, "send poll")
	}
	if msg.Poll == nil {
		return "", errors.New("send poll: response has no poll")
	}
	return msg.Poll.ID, nil
}

func (t *Transport) SendMessage(_ context.Context, userID int64, text string) error {
	msg := tgbotapi.NewMessage(userID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err := t.api.Send(msg)
	return errors.Wrap(err, "send message")
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}
