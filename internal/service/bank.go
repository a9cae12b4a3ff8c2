package service

import (
	"fmt"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

const missingQuestionText = "No question"

// QuestionBank is the read-only set of modules. It is built once at startup and
// shared by reference; nothing mutates it afterwards.
type QuestionBank struct {
	titles   []string
	modules  map[string]*Module
	warnings []string
}

// NewQuestionBank resolves every question's correct option and keeps the module
// order of raw. Entries that cannot be presented are dropped, never fatal.
func NewQuestionBank(raw []RawModule) *QuestionBank {
	b := &QuestionBank{modules: make(map[string]*Module, len(raw))}
	for _, rm := range raw {
		m := &Module{Title: rm.Title, Questions: make([]QuizQuestion, 0, len(rm.Questions))}
		for i, rq := range rm.Questions {
			q, ok := b.buildQuestion(rm.Title, i, rq)
			if ok {
				m.Questions = append(m.Questions, q)
			}
		}
		if _, dup := b.modules[rm.Title]; dup {
			b.warnf("module %q: duplicate title, later definition replaces earlier one", rm.Title)
		} else {
			b.titles = append(b.titles, rm.Title)
		}
		b.modules[rm.Title] = m
	}
	return b
}

func (b *QuestionBank) buildQuestion(module string, i int, rq RawQuestion) (QuizQuestion, bool) {
	options := make([]string, len(rq.Options))
	copy(options, rq.Options)
	if len(options) < 2 {
		b.warnf("module %q question %d: %d option(s), skipped", module, i+1, len(options))
		return QuizQuestion{}, false
	}

	text := strings.TrimSpace(rq.Question)
	if text == "" {
		b.warnf("module %q question %d: empty question text", module, i+1)
		text = missingQuestionText
	}

	correct, matched := ResolveCorrectIndex(rq.Answer, options)
	if !matched {
		b.warnf("module %q question %d: answer %q matches no option, option 1 will be graded correct",
			module, i+1, rq.Answer)
	}

	return QuizQuestion{
		Question:    text,
		Options:     options,
		Correct:     correct,
		Explanation: rq.Explanation,
	}, true
}

func (b *QuestionBank) warnf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	glog.Warning(msg)
	b.warnings = append(b.warnings, msg)
}

// ResolveCorrectIndex maps an authored answer onto the option list. Option text is
// compared case-insensitively after trimming; failing that a single letter such as
// "B" or "b)" selects by position. matched is false when neither applies, in which
// case index 0 is returned.
func ResolveCorrectIndex(answer string, options []string) (index int, matched bool) {
	want := strings.ToLower(strings.TrimSpace(answer))
	if want == "" {
		return 0, false
	}
	for i, opt := range options {
		if want == strings.ToLower(strings.TrimSpace(opt)) {
			return i, true
		}
	}
	if ix, ok := letterIndex(want); ok && ix < len(options) {
		return ix, true
	}
	return 0, false
}

func letterIndex(s string) (int, bool) {
	s = strings.TrimRight(s, ").")
	if len(s) != 1 || s[0] < 'a' || s[0] > 'z' {
		return 0, false
	}
	return int(s[0] - 'a'), true
}

// ListModules returns module titles in presentation order.
func (b *QuestionBank) ListModules() []string {
	out := make([]string, len(b.titles))
	copy(out, b.titles)
	return out
}

// ModuleAt returns the title at position i of ListModules.
func (b *QuestionBank) ModuleAt(i int) (string, bool) {
	if i < 0 || i >= len(b.titles) {
		return "", false
	}
	return b.titles[i], true
}

func (b *QuestionBank) HasModule(title string) bool {
	_, ok := b.modules[title]
	return ok
}

func (b *QuestionBank) ModuleLength(module string) (int, error) {
	m, ok := b.modules[module]
	if !ok {
		return 0, errors.Wrapf(ErrNotFound, "module %q", module)
	}
	return len(m.Questions), nil
}

// Question returns a copy of the question so callers cannot alter the bank.
func (b *QuestionBank) Question(module string, index int) (QuizQuestion, error) {
	m, ok := b.modules[module]
	if !ok {
		return QuizQuestion{}, errors.Wrapf(ErrNotFound, "module %q", module)
	}
	if index < 0 || index >= len(m.Questions) {
		return QuizQuestion{}, errors.Wrapf(ErrNotFound, "module %q question %d", module, index)
	}
	q := m.Questions[index]
	q.Options = append([]string(nil), q.Options...)
	return q, nil
}

// Size is the total number of questions across modules.
func (b *QuestionBank) Size() int {
	n := 0
	for _, m := range b.modules {
		n += len(m.Questions)
	}
	return n
}

// Warnings lists the authoring problems found while building the bank.
func (b *QuestionBank) Warnings() []string {
	return append([]string(nil), b.warnings...)
}
