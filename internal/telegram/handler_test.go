package telegram

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PoluyanbIch/pollquizbot/internal/service"
)

type fakeAPI struct {
	mu        sync.Mutex
	seq       int
	sent      []tgbotapi.Chattable
	requests  []tgbotapi.Chattable
	sendErr   error
	updates   chan tgbotapi.Update
	stopCalls int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{updates: make(chan tgbotapi.Update)}
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return tgbotapi.Message{}, f.sendErr
	}
	f.sent = append(f.sent, c)
	f.seq++
	msg := tgbotapi.Message{MessageID: f.seq}
	if _, ok := c.(tgbotapi.SendPollConfig); ok {
		msg.Poll = &tgbotapi.Poll{ID: fmt.Sprintf("poll-%d", f.seq)}
	}
	return msg, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCalls++
}

func (f *fakeAPI) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		switch m := c.(type) {
		case tgbotapi.MessageConfig:
			out = append(out, m.Text)
		case tgbotapi.EditMessageTextConfig:
			out = append(out, m.Text)
		}
	}
	return out
}

func (f *fakeAPI) polls() []tgbotapi.SendPollConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.SendPollConfig
	for _, c := range f.sent {
		if p, ok := c.(tgbotapi.SendPollConfig); ok {
			out = append(out, p)
		}
	}
	return out
}

func testBank() *service.QuestionBank {
	return service.NewQuestionBank([]service.RawModule{
		{Title: "Module - I: Basics", Questions: []service.RawQuestion{
			{Question: "Pick b", Options: []string{"a", "b"}, Answer: "B", Explanation: "b is right"},
			{Question: "Pick c", Options: []string{"a", "b", "c"}, Answer: "c"},
		}},
	})
}

func newTestBot(api *fakeAPI) (*Bot, service.ScoreStore) {
	bank := testBank()
	store := service.NewMemoryScoreStore()
	ctrl := service.NewSessionController(bank, store, NewTransport(api))
	return NewBot(api, ctrl, bank, store, 4), store
}

func command(userID int64, cmd string) tgbotapi.Update {
	text := "/" + cmd
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text:     text,
		From:     &tgbotapi.User{ID: userID},
		Chat:     &tgbotapi.Chat{ID: userID, Type: "private"},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}},
	}}
}

func callback(userID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: userID},
		Message: &tgbotapi.Message{MessageID: 99, Chat: &tgbotapi.Chat{ID: userID, Type: "private"}},
		Data:    data,
	}}
}

func pollAnswer(userID int64, pollID string, options ...int) tgbotapi.Update {
	return tgbotapi.Update{PollAnswer: &tgbotapi.PollAnswer{
		PollID:    pollID,
		User:      tgbotapi.User{ID: userID},
		OptionIDs: options,
	}}
}

func TestStartShowsModuleKeyboard(t *testing.T) {
	api := newFakeAPI()
	bot, _ := newTestBot(api)

	bot.handleUpdate(context.Background(), command(7, "start"))

	require.Len(t, api.sent, 1)
	msg, ok := api.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(7), msg.ChatID)
	markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, markup.InlineKeyboard, 1)
	button := markup.InlineKeyboard[0][0]
	assert.Equal(t, "Module - I: Basics", button.Text)
	require.NotNil(t, button.CallbackData)
	assert.Equal(t, "module:0", *button.CallbackData)
}

func TestFullQuizOverTelegram(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	bot, store := newTestBot(api)

	bot.handleUpdate(ctx, callback(7, "module:0"))
	require.Len(t, api.requests, 1, "callback must be answered")

	polls := api.polls()
	require.Len(t, polls, 1)
	assert.Equal(t, "Q1. Pick b", polls[0].Question)
	assert.Equal(t, []string{"a", "b"}, polls[0].Options)
	assert.Equal(t, "quiz", polls[0].Type)
	assert.False(t, polls[0].IsAnonymous)
	assert.Equal(t, int64(1), polls[0].CorrectOptionID)

	bot.handleUpdate(ctx, pollAnswer(7, "poll-2", 1))
	polls = api.polls()
	require.Len(t, polls, 2)
	assert.Equal(t, "Q2. Pick c", polls[1].Question)

	bot.handleUpdate(ctx, pollAnswer(7, "poll-4"))

	rec, err := store.GetScore(ctx, 7, "Module - I: Basics")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Score)
	assert.Equal(t, 2, rec.Total)

	texts := api.texts()
	require.NotEmpty(t, texts)
	assert.Contains(t, texts[len(texts)-1], "You got 1/2 correct")

	// A replayed answer to a finished poll is ignored.
	before := len(api.sent)
	bot.handleUpdate(ctx, pollAnswer(7, "poll-4", 2))
	assert.Len(t, api.sent, before)
}

func TestUnknownModuleCallback(t *testing.T) {
	for _, data := range []string{"module:5", "module:x", "module:-1"} {
		t.Run(data, func(t *testing.T) {
			api := newFakeAPI()
			bot, _ := newTestBot(api)

			bot.handleUpdate(context.Background(), callback(7, data))

			require.Len(t, api.sent, 1)
			edit, ok := api.sent[0].(tgbotapi.EditMessageTextConfig)
			require.True(t, ok)
			assert.Equal(t, 99, edit.MessageID)
			assert.Contains(t, edit.Text, "Module not found")
			_, known := bot.quiz.Session(7)
			assert.False(t, known)
		})
	}
}

func TestScoresCommand(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	bot, store := newTestBot(api)

	bot.handleUpdate(ctx, command(3, "scores"))
	require.Len(t, api.texts(), 1)
	assert.Contains(t, api.texts()[0], "not answered any questions")

	_, err := store.RecordAnswer(ctx, 3, "Module - I: Basics", true)
	require.NoError(t, err)
	_, err = store.RecordAnswer(ctx, 3, "Module - I: Basics", false)
	require.NoError(t, err)

	bot.handleUpdate(ctx, command(3, "scores"))
	texts := api.texts()
	require.Len(t, texts, 2)
	assert.Contains(t, texts[1], "Module - I: Basics: 1/2 (50%)")
}

func TestUnknownCommand(t *testing.T) {
	api := newFakeAPI()
	bot, _ := newTestBot(api)

	bot.handleUpdate(context.Background(), command(3, "frobnicate"))
	require.Len(t, api.texts(), 1)
	assert.Contains(t, api.texts()[0], "Unknown command")
}

func TestGroupMessagesIgnored(t *testing.T) {
	api := newFakeAPI()
	bot, _ := newTestBot(api)

	up := command(3, "start")
	up.Message.Chat.Type = "group"
	bot.handleUpdate(context.Background(), up)
	assert.Empty(t, api.sent)
}

func TestPresentPollTruncatesText(t *testing.T) {
	api := newFakeAPI()
	tr := NewTransport(api)

	id, err := tr.PresentPoll(context.Background(), 1, service.Poll{
		Number:   1,
		Question: strings.Repeat("q", 400),
		Options:  []string{strings.Repeat("o", 150), "short"},
		Correct:  1,
	})
	require.NoError(t, err)
	assert.Equal(t, "poll-1", id)

	p := api.polls()[0]
	assert.Equal(t, maxPollQuestion, len([]rune(p.Question)))
	assert.True(t, strings.HasSuffix(p.Question, "…"))
	assert.Equal(t, maxPollOption, len([]rune(p.Options[0])))
	assert.Equal(t, "short", p.Options[1])
}

func TestPresentPollSendError(t *testing.T) {
	api := newFakeAPI()
	api.sendErr = errors.New("Forbidden: bot was blocked by the user")
	tr := NewTransport(api)

	_, err := tr.PresentPoll(context.Background(), 1, service.Poll{Question: "q", Options: []string{"a", "b"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked")
}

func TestStartStopsOnCancel(t *testing.T) {
	api := newFakeAPI()
	bot, _ := newTestBot(api)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- bot.Start(ctx) }()

	api.updates <- command(4, "start")
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, 1, api.stopCalls)
	require.Len(t, api.sent, 1)
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello!", 5, "hell…"},
		{"привет мир", 4, "при…"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, truncate(tt.in, tt.n))
	}
}
