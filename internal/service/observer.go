package service

import "context"

type SelectionEvent struct {
	UserID int64
	Module string
	RunID  string
	// Abandoned is true when the selection replaced a quiz that was still running.
	Abandoned bool
}

type AnswerEvent struct {
	UserID  int64
	Module  string
	RunID   string
	Index   int
	Chosen  int // -1 when nothing was chosen
	Correct bool
	Score   int
	Total   int
}

type CompletionEvent struct {
	UserID int64
	Module string
	RunID  string
	Score  int
	Total  int
	// Interrupted is true when the quiz ended on a failure instead of its last
	// answer. Score and Total are zero then.
	Interrupted bool
}

// Observer is notified after each transition has been applied. Implementations must
// not call back into the controller.
type Observer interface {
	ModuleSelected(ctx context.Context, ev SelectionEvent)
	AnswerRecorded(ctx context.Context, ev AnswerEvent)
	ModuleCompleted(ctx context.Context, ev CompletionEvent)
}

// Observers fans every notification out in order.
type Observers []Observer

func (obs Observers) ModuleSelected(ctx context.Context, ev SelectionEvent) {
	for _, o := range obs {
		o.ModuleSelected(ctx, ev)
	}
}

func (obs Observers) AnswerRecorded(ctx context.Context, ev AnswerEvent) {
	for _, o := range obs {
		o.AnswerRecorded(ctx, ev)
	}
}

func (obs Observers) ModuleCompleted(ctx context.Context, ev CompletionEvent) {
	for _, o := range obs {
		o.ModuleCompleted(ctx, ev)
	}
}
