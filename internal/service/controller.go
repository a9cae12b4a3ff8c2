package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Poll is what the transport is asked to show for one question. Correct is only
// for the chat provider's own quiz display; grading happens in the controller.
type Poll struct {
	Number   int
	Question string
	Options  []string
	Correct  int
}

// Transport delivers output to a chat user.
type Transport interface {
	ShowModules(ctx context.Context, userID int64, titles []string) error
	PresentPoll(ctx context.Context, userID int64, poll Poll) (pollID string, err error)
	SendMessage(ctx context.Context, userID int64, text string) error
}

type Feedback struct {
	Correct       bool
	CorrectOption string
	Explanation   string
	Record        ScoreRecord
}

type Completion struct {
	Module string
	Score  int
	Total  int
}

// Outcome reports what a transition emitted. Both fields are nil for ignored events.
type Outcome struct {
	Feedback   *Feedback
	Completion *Completion
}

type Option func(*SessionController)

func WithExplainer(fn ExplainFunc) Option {
	return func(c *SessionController) { c.explain = fn }
}

func WithObserver(o Observer) Option {
	return func(c *SessionController) { c.observer = o }
}

func WithRunIDs(fn func() string) Option {
	return func(c *SessionController) { c.newRunID = fn }
}

type userSession struct {
	mu    sync.Mutex
	state *QuizSession
}

// SessionController runs the per-user quiz state machine. Transitions for one user
// are serialized by that user's lock, which is held across transport calls so an
// answer racing a poll send waits until the poll is tracked.
type SessionController struct {
	bank      *QuestionBank
	scores    ScoreStore
	transport Transport
	explain   ExplainFunc
	observer  Observer
	newRunID  func() string

	mu       sync.Mutex
	sessions map[int64]*userSession
}

func NewSessionController(bank *QuestionBank, scores ScoreStore, transport Transport, opts ...Option) *SessionController {
	c := &SessionController{
		bank:      bank,
		scores:    scores,
		transport: transport,
		explain:   NewExplanationResolver("").Explain,
		observer:  Observers(nil),
		newRunID:  uuid.NewString,
		sessions:  make(map[int64]*userSession),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *SessionController) session(userID int64) *userSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	us, ok := c.sessions[userID]
	if !ok {
		us = &userSession{state: newQuizSession(userID)}
		c.sessions[userID] = us
	}
	return us
}

func (c *SessionController) lookup(userID int64) (*userSession, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	us, ok := c.sessions[userID]
	return us, ok
}

// Session returns a copy of the user's state. ok is false for users never seen.
func (c *SessionController) Session(userID int64) (Snapshot, bool) {
	us, ok := c.lookup(userID)
	if !ok {
		return Snapshot{}, false
	}
	us.mu.Lock()
	defer us.mu.Unlock()
	return us.state.snapshot(), true
}

// Start lists the available modules to the user.
func (c *SessionController) Start(ctx context.Context, userID int64) error {
	titles := c.bank.ListModules()
	if len(titles) == 0 {
		return c.transport.SendMessage(ctx, userID, "No quiz modules are available yet. Please try again later.")
	}
	return c.transport.ShowModules(ctx, userID, titles)
}

// SelectModule starts module from its first question, silently abandoning any quiz
// in progress. An unknown module leaves the session untouched.
func (c *SessionController) SelectModule(ctx context.Context, userID int64, module string) (Outcome, error) {
	if !c.bank.HasModule(module) {
		return Outcome{}, errors.Wrapf(ErrModuleNotFound, "%q", module)
	}

	us := c.session(userID)
	us.mu.Lock()
	defer us.mu.Unlock()

	abandoned := !us.state.Idle()
	runID := c.newRunID()
	us.state.Begin(module, runID)
	glog.Infof("user %d selected module %q (run %s, abandoned previous: %t)", userID, module, runID, abandoned)
	c.observer.ModuleSelected(ctx, SelectionEvent{UserID: userID, Module: module, RunID: runID, Abandoned: abandoned})

	text := fmt.Sprintf("✅ You selected %s\n\nGet ready for your quiz!", bold(module))
	if err := c.transport.SendMessage(ctx, userID, text); err != nil {
		glog.Warningf("user %d: selection message: %v", userID, err)
	}

	comp, err := c.presentNext(ctx, us.state)
	return Outcome{Completion: comp}, err
}

// ResolveAnswer grades the answer to pollID and moves the session on. chosen is nil
// when no option was selected. Polls the session does not know are ignored.
func (c *SessionController) ResolveAnswer(ctx context.Context, userID int64, pollID string, chosen *int) (Outcome, error) {
	us, ok := c.lookup(userID)
	if !ok {
		glog.V(1).Infof("user %d: answer for poll %s without a session, ignored", userID, pollID)
		return Outcome{}, nil
	}
	us.mu.Lock()
	defer us.mu.Unlock()

	s := us.state
	index, ok := s.Resolve(pollID)
	if !ok || s.Idle() {
		glog.V(1).Infof("user %d: stale or duplicate poll %s, ignored", userID, pollID)
		return Outcome{}, nil
	}

	p := *s.progress
	q, err := c.bank.Question(p.Module, index)
	if err != nil {
		glog.Errorf("user %d: session points at %q question %d: %v", userID, p.Module, index, err)
		c.interrupt(ctx, s, "")
		return Outcome{}, errors.Wrapf(ErrIndexOutOfRange, "module %q index %d", p.Module, index)
	}

	correct := chosen != nil && *chosen == q.Correct
	rec, err := c.recordAnswer(ctx, userID, p.Module, correct)
	if err != nil {
		glog.Errorf("user %d: recording answer for %q question %d: %v", userID, p.Module, index, err)
		perr := &PersistenceError{Op: "record answer", Err: err}
		if serr := c.transport.SendMessage(ctx, userID, "⚠️ Your answer could not be saved. Here is the question again."); serr != nil {
			glog.Warningf("user %d: failure message: %v", userID, serr)
		}
		if _, rerr := c.presentNext(ctx, s); rerr != nil {
			glog.Errorf("user %d: re-presenting question %d: %v", userID, index, rerr)
		}
		return Outcome{}, perr
	}

	fb := &Feedback{
		Correct:       correct,
		CorrectOption: q.CorrectOption(),
		Explanation:   c.explain(q.Question, q.CorrectOption(), q.Explanation),
		Record:        rec,
	}
	text := fmt.Sprintf("✅ Correct answer: %s\n💡 %s", bold(fb.CorrectOption), escapeMarkdown(fb.Explanation))
	if err := c.transport.SendMessage(ctx, userID, text); err != nil {
		glog.Warningf("user %d: feedback message: %v", userID, err)
	}

	chosenIx := -1
	if chosen != nil {
		chosenIx = *chosen
	}
	c.observer.AnswerRecorded(ctx, AnswerEvent{
		UserID:  userID,
		Module:  p.Module,
		RunID:   p.RunID,
		Index:   index,
		Chosen:  chosenIx,
		Correct: correct,
		Score:   rec.Score,
		Total:   rec.Total,
	})

	s.Advance()
	comp, err := c.presentNext(ctx, s)
	return Outcome{Feedback: fb, Completion: comp}, err
}

// recordAnswer retries a failed write once. A write whose error arrived after the
// store committed is counted twice by the retry. Context errors, the usual way that
// happens, are not retried.
func (c *SessionController) recordAnswer(ctx context.Context, userID int64, module string, correct bool) (ScoreRecord, error) {
	rec, err := c.scores.RecordAnswer(ctx, userID, module, correct)
	if err == nil {
		return rec, nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ScoreRecord{}, err
	}
	glog.Warningf("user %d: score write failed, retrying: %v", userID, err)
	return c.scores.RecordAnswer(ctx, userID, module, correct)
}

// presentNext shows the question at the session index, or finishes the module when
// the index is past the end. Caller holds the user lock.
func (c *SessionController) presentNext(ctx context.Context, s *QuizSession) (*Completion, error) {
	p := *s.progress
	n, err := c.bank.ModuleLength(p.Module)
	if err != nil {
		c.interrupt(ctx, s, "")
		return nil, err
	}

	if p.Index >= n {
		rec, err := c.scores.GetScore(ctx, s.UserID, p.Module)
		if err != nil {
			c.interrupt(ctx, s, "⚠️ Quiz finished, but your score could not be loaded. Use /scores later.")
			return nil, &PersistenceError{Op: "get score", Err: err}
		}
		s.Reset()
		comp := &Completion{Module: p.Module, Score: rec.Score, Total: rec.Total}
		text := fmt.Sprintf("🎉 Quiz completed for %s!\n✅ You got %d/%d correct.", bold(p.Module), comp.Score, comp.Total)
		if err := c.transport.SendMessage(ctx, s.UserID, text); err != nil {
			glog.Warningf("user %d: completion message: %v", s.UserID, err)
		}
		glog.Infof("user %d completed module %q with %d/%d", s.UserID, p.Module, comp.Score, comp.Total)
		c.observer.ModuleCompleted(ctx, CompletionEvent{
			UserID: s.UserID,
			Module: p.Module,
			RunID:  p.RunID,
			Score:  comp.Score,
			Total:  comp.Total,
		})
		return comp, nil
	}

	q, err := c.bank.Question(p.Module, p.Index)
	if err != nil {
		c.interrupt(ctx, s, "")
		return nil, errors.Wrapf(ErrIndexOutOfRange, "module %q index %d", p.Module, p.Index)
	}
	pollID, err := c.transport.PresentPoll(ctx, s.UserID, Poll{
		Number:   p.Index + 1,
		Question: q.Question,
		Options:  q.Options,
		Correct:  q.Correct,
	})
	if err != nil {
		c.interrupt(ctx, s, "⚠️ The next question could not be sent. Use /start to try again.")
		return nil, errors.Wrapf(err, "present %q question %d", p.Module, p.Index)
	}
	s.Track(pollID, p.Index)
	glog.V(1).Infof("user %d: poll %s for %q question %d", s.UserID, pollID, p.Module, p.Index)
	return nil, nil
}

// interrupt ends the running quiz when it cannot continue, tells the user when text
// is set and reports the quiz as ended. Caller holds the user lock.
func (c *SessionController) interrupt(ctx context.Context, s *QuizSession, text string) {
	p := *s.progress
	s.Reset()
	if text != "" {
		if err := c.transport.SendMessage(ctx, s.UserID, text); err != nil {
			glog.Warningf("user %d: failure message: %v", s.UserID, err)
		}
	}
	glog.Warningf("user %d: quiz %q interrupted at question %d", s.UserID, p.Module, p.Index)
	c.observer.ModuleCompleted(ctx, CompletionEvent{
		UserID:      s.UserID,
		Module:      p.Module,
		RunID:       p.RunID,
		Interrupted: true,
	})
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// bold wraps s in a Markdown bold span. Text inside an entity is taken literally, so
// it is not escaped; text that would close the span early is sent unformatted.
func bold(s string) string {
	if strings.Contains(s, "*") {
		return escapeMarkdown(s)
	}
	return "*" + s + "*"
}
