package service

// RawQuestion is one authored entry of the question bank source file.
type RawQuestion struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Answer      string   `json:"answer"`
	Explanation string   `json:"explanation,omitempty"`
}

// RawModule is a titled group of authored questions as read from the source file.
type RawModule struct {
	Title     string
	Questions []RawQuestion
}

// QuizQuestion is a question ready to be presented. Correct is resolved once when
// the bank is built.
type QuizQuestion struct {
	Question    string
	Options     []string
	Correct     int
	Explanation string
}

// CorrectOption returns the text of the correct option.
func (q QuizQuestion) CorrectOption() string {
	return q.Options[q.Correct]
}

type Module struct {
	Title     string
	Questions []QuizQuestion
}

// Progress is the in-progress part of a session. A nil *Progress means the user is idle.
type Progress struct {
	Module string
	Index  int
	RunID  string
}

// QuizSession is the per-user state owned by the controller.
type QuizSession struct {
	UserID   int64
	progress *Progress
	polls    map[string]int
}

func newQuizSession(userID int64) *QuizSession {
	return &QuizSession{UserID: userID, polls: make(map[string]int)}
}

func (s *QuizSession) Idle() bool {
	return s.progress == nil
}

// Begin discards whatever the session held and starts the module at question 0.
func (s *QuizSession) Begin(module, runID string) {
	s.progress = &Progress{Module: module, Index: 0, RunID: runID}
	s.polls = make(map[string]int)
}

// Reset returns the session to idle and forgets every outstanding poll.
func (s *QuizSession) Reset() {
	s.progress = nil
	s.polls = make(map[string]int)
}

func (s *QuizSession) Track(pollID string, index int) {
	s.polls[pollID] = index
}

// Resolve consumes the poll entry. ok is false for polls this session never sent
// or already resolved.
func (s *QuizSession) Resolve(pollID string) (index int, ok bool) {
	index, ok = s.polls[pollID]
	if ok {
		delete(s.polls, pollID)
	}
	return index, ok
}

func (s *QuizSession) Advance() {
	s.progress.Index++
}

func (s *QuizSession) Outstanding() int {
	return len(s.polls)
}

// Snapshot is a read-only copy of a session, used by callers that want to inspect
// progress without touching the controller's state.
type Snapshot struct {
	UserID      int64
	Idle        bool
	Module      string
	Index       int
	RunID       string
	Outstanding int
}

func (s *QuizSession) snapshot() Snapshot {
	snap := Snapshot{UserID: s.UserID, Idle: s.Idle(), Outstanding: len(s.polls)}
	if s.progress != nil {
		snap.Module = s.progress.Module
		snap.Index = s.progress.Index
		snap.RunID = s.progress.RunID
	}
	return snap
}
