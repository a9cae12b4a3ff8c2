package service

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const courseText = `Human Computer Interaction
Course notes

Module - I: Foundations of HCI
Some introduction text that is not a question.

1. What does HCI stand for?
A. Human Computer Interaction
B. High Cost Item
C. Hot Cold Ice
D. None of these
Answer: A

Q2. Which is a usability goal?
A) Learnability
B) Obscurity
Answer: a)

3. Incomplete question without options
Answer: B

Module - II: Design Process
Question 1: Which step comes first?
A. Prototype
B. Understand users and
their context
D. Ship
Answer: B
`

func TestParseModuleText(t *testing.T) {
	sb := ParseModuleText(courseText)
	require.Len(t, sb, 2)

	assert.Equal(t, "Module - I: Foundations of HCI", sb[0].Title)
	require.Len(t, sb[0].Questions, 2)
	assert.Equal(t, RawQuestion{
		Question: "What does HCI stand for?",
		Options:  []string{"Human Computer Interaction", "High Cost Item", "Hot Cold Ice", "None of these"},
		Answer:   "A",
	}, sb[0].Questions[0])
	assert.Equal(t, "Which is a usability goal?", sb[0].Questions[1].Question)
	assert.Equal(t, []string{"Learnability", "Obscurity"}, sb[0].Questions[1].Options)
	assert.Equal(t, "A", sb[0].Questions[1].Answer)

	assert.Equal(t, "Module - II: Design Process", sb[1].Title)
	require.Len(t, sb[1].Questions, 1)
	q := sb[1].Questions[0]
	assert.Equal(t, "Which step comes first?", q.Question)
	assert.Equal(t, []string{"Prototype", "Understand users and their context", "N/A", "Ship"}, q.Options)
	assert.Equal(t, "B", q.Answer)
}

func TestParseModuleTextWithoutHeadings(t *testing.T) {
	sb := ParseModuleText("1. Pick one\nA. yes\nB. no\nAnswer: B\n")
	require.Len(t, sb, 1)
	assert.Equal(t, fallbackModuleTitle, sb[0].Title)
	require.Len(t, sb[0].Questions, 1)
	assert.Equal(t, "B", sb[0].Questions[0].Answer)
}

func TestParsedQuestionsBuildIntoBank(t *testing.T) {
	bank := NewQuestionBank(ParseModuleText(courseText))
	q, err := bank.Question("Module - II: Design Process", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, q.Correct)
	assert.Empty(t, bank.Warnings())
}

func TestParseModuleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "course.txt")
	require.NoError(t, os.WriteFile(path, []byte(courseText), 0o644))

	sb, err := ParseModuleFile(path)
	require.NoError(t, err)
	assert.Len(t, sb, 2)

	_, err = ParseModuleFile(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}

func TestSplitModules(t *testing.T) {
	sections := SplitModules("Preface\r\nModule - I: One\r\nalpha\r\nModule – IV: Four\nbeta\n")
	require.Len(t, sections, 2)
	assert.Equal(t, "Module - I: One", sections[0].Title)
	assert.Equal(t, "\nalpha\n", sections[0].Text)
	assert.Equal(t, "Module – IV: Four", sections[1].Title)
	assert.Equal(t, "\nbeta\n", sections[1].Text)

	plain := SplitModules("just text")
	require.Len(t, plain, 1)
	assert.Equal(t, fallbackModuleTitle, plain[0].Title)
	assert.Equal(t, "just text", plain[0].Text)
}
