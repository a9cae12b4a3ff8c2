package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/golang/glog"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/PoluyanbIch/pollquizbot/internal/service"
)

type updateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type BotAPI interface {
	sender
	updateSource
}

// Bot routes Telegram updates into the session controller.
type Bot struct {
	api     BotAPI
	quiz    *service.SessionController
	bank    *service.QuestionBank
	scores  service.ScoreStore
	workers int
}

func NewBot(api BotAPI, quiz *service.SessionController, bank *service.QuestionBank, scores service.ScoreStore, workers int) *Bot {
	if workers < 1 {
		workers = 1
	}
	return &Bot{
		api:     api,
		quiz:    quiz,
		bank:    bank,
		scores:  scores,
		workers: workers,
	}
}

// Start long-polls for updates until ctx is cancelled. Updates are handled on up
// to workers goroutines; per-user ordering is left to the controller's locks.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	u.AllowedUpdates = []string{"message", "callback_query", "poll_answer"}

	updates := b.api.GetUpdatesChan(u)

	var g errgroup.Group
	g.SetLimit(b.workers)
	defer g.Wait()

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			g.Go(func() error {
				b.handleUpdate(ctx, update)
				return nil
			})
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.PollAnswer != nil:
		b.handlePollAnswer(ctx, update.PollAnswer)
	}
}

func (b *Bot) handleMessage(ctx context.Context, m *tgbotapi.Message) {
	if m.From == nil || m.Chat == nil || !m.Chat.IsPrivate() {
		return
	}
	userID := m.From.ID

	var err error
	switch m.Command() {
	case "start":
		err = b.quiz.Start(ctx, userID)
	case "scores":
		err = b.handleScores(ctx, userID)
	case "help":
		b.sendMessage(userID, "Use /start to choose a module and /scores to see your results.")
	default:
		b.sendMessage(userID, "Unknown command. Use /start to choose a module.")
	}
	if err != nil {
		glog.Errorf("user %d /%s: %v", userID, m.Command(), err)
	}
}

func (b *Bot) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		glog.Warningf("Error answering callback: %v", err)
	}
	if callback.From == nil {
		return
	}
	userID := callback.From.ID

	if !strings.HasPrefix(callback.Data, moduleCallbackPrefix) {
		b.sendMessage(userID, "Unknown command. Use /start to choose a module.")
		return
	}
	module := ""
	if i, err := strconv.Atoi(strings.TrimPrefix(callback.Data, moduleCallbackPrefix)); err == nil {
		module, _ = b.bank.ModuleAt(i)
	}

	_, err := b.quiz.SelectModule(ctx, userID, module)
	switch {
	case errors.Is(err, service.ErrModuleNotFound):
		b.rejectSelection(callback, userID)
	case err != nil:
		glog.Errorf("user %d selecting %q: %v", userID, module, err)
	}
}

func (b *Bot) rejectSelection(callback *tgbotapi.CallbackQuery, userID int64) {
	const text = "❌ Module not found. Please try again."
	if callback.Message == nil || callback.Message.Chat == nil {
		b.sendMessage(userID, text)
		return
	}
	edit := tgbotapi.NewEditMessageText(callback.Message.Chat.ID, callback.Message.MessageID, text)
	if _, err := b.api.Send(edit); err != nil {
		glog.Warningf("Error editing menu: %v", err)
	}
}

func (b *Bot) handlePollAnswer(ctx context.Context, answer *tgbotapi.PollAnswer) {
	var chosen *int
	if len(answer.OptionIDs) > 0 {
		chosen = &answer.OptionIDs[0]
	}
	userID := answer.User.ID

	_, err := b.quiz.ResolveAnswer(ctx, userID, answer.PollID, chosen)
	var perr *service.PersistenceError
	switch {
	case err == nil:
	case errors.As(err, &perr):
		glog.Errorf("user %d poll %s: %v", userID, answer.PollID, perr)
	case errors.Is(err, service.ErrIndexOutOfRange):
		glog.Errorf("user %d poll %s: invariant violated, session reset: %v", userID, answer.PollID, err)
	default:
		glog.Errorf("user %d poll %s: %v", userID, answer.PollID, err)
	}
}

func (b *Bot) handleScores(ctx context.Context, userID int64) error {
	records, err := service.UserScores(ctx, b.scores, userID, b.bank.ListModules())
	if err != nil {
		b.sendMessage(userID, "⚠️ Your scores could not be loaded right now. Please try again later.")
		return err
	}
	if len(records) == 0 {
		b.sendMessage(userID, "You have not answered any questions yet. Use /start to begin.")
		return nil
	}

	var sb strings.Builder
	sb.WriteString("📊 Your scores\n\n")
	for _, r := range records {
		fmt.Fprintf(&sb, "• %s: %d/%d (%d%%)\n", r.Module, r.Score, r.Total, r.Percentage())
	}
	b.sendMessage(userID, sb.String())
	return nil
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		glog.Warningf("Error sending msg: %v", err)
	}
}
