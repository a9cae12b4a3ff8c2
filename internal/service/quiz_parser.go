package service

import (
	"os"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

var (
	moduleHeadingRe = regexp.MustCompile(`(?im)^[ \t]*(Module\s*[-–]\s*[IVXLC]+[: \t].+)$`)
	blockSplitRe    = regexp.MustCompile(`\n\s*\n`)
	questionStartRe = regexp.MustCompile(`(?i)^\s*(Q\s*\d+|Question\s*\d+|\d+\.)`)
	questionNumRe   = regexp.MustCompile(`(?i)^(Q\s*\d+|Question\s*\d+|\d+)[.):]?\s*`)
	optionLineRe    = regexp.MustCompile(`(?i)^\s*([A-D])[.)]\s*(.+)$`)
	answerRe        = regexp.MustCompile(`(?i)Answer[:\s]*([A-D]\)?)`)
	answerLineRe    = regexp.MustCompile(`(?i)^\s*Answer\b`)
)

const fallbackModuleTitle = "Module 1"

// ParseModuleFile reads text extracted from a course document and parses it with
// ParseModuleText.
func ParseModuleFile(filename string) (SourceBank, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open file")
	}
	return ParseModuleText(string(data)), nil
}

// ModuleSection is the raw text under one module heading.
type ModuleSection struct {
	Title string
	Text  string
}

// SplitModules cuts text on "Module - <roman>: ..." headings. Text without
// headings becomes a single section titled "Module 1".
func SplitModules(text string) []ModuleSection {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	heads := moduleHeadingRe.FindAllStringSubmatchIndex(text, -1)
	if len(heads) == 0 {
		return []ModuleSection{{Title: fallbackModuleTitle, Text: text}}
	}

	sections := make([]ModuleSection, 0, len(heads))
	for i, h := range heads {
		end := len(text)
		if i+1 < len(heads) {
			end = heads[i+1][0]
		}
		sections = append(sections, ModuleSection{
			Title: strings.TrimSpace(text[h[2]:h[3]]),
			Text:  text[h[1]:end],
		})
	}
	return sections
}

// ParseModuleText extracts multiple-choice questions from each section of text.
// Sections without recognisable questions yield empty modules.
func ParseModuleText(text string) SourceBank {
	sections := SplitModules(text)
	sb := make(SourceBank, 0, len(sections))
	for _, sec := range sections {
		sb = append(sb, RawModule{Title: sec.Title, Questions: ParseQuestions(sec.Text)})
	}
	return sb
}

// ParseQuestions extracts questions from blank-line separated blocks. A block is a
// question when it starts with a number, has at least two lettered options and an
// "Answer:" line. Missing option letters are filled with "N/A".
func ParseQuestions(text string) []RawQuestion {
	var out []RawQuestion
	for _, block := range blockSplitRe.Split(text, -1) {
		if q, ok := parseQuestionBlock(block); ok {
			out = append(out, q)
		}
	}
	return out
}

func parseQuestionBlock(block string) (RawQuestion, bool) {
	block = strings.Trim(block, "\n")
	if !questionStartRe.MatchString(block) {
		return RawQuestion{}, false
	}

	lines := strings.Split(block, "\n")
	slots := map[int]string{}
	maxIdx, found := -1, 0
	cur := -1
	for _, ln := range lines[1:] {
		if answerLineRe.MatchString(ln) {
			cur = -1
			continue
		}
		if m := optionLineRe.FindStringSubmatch(ln); m != nil {
			cur = int(strings.ToUpper(m[1])[0] - 'A')
			if _, dup := slots[cur]; !dup {
				found++
			}
			slots[cur] = strings.TrimSpace(m[2])
			if cur > maxIdx {
				maxIdx = cur
			}
			continue
		}
		if cur >= 0 && strings.TrimSpace(ln) != "" {
			slots[cur] += " " + strings.TrimSpace(ln)
		}
	}

	am := answerRe.FindStringSubmatch(block)
	if found < 2 || am == nil {
		return RawQuestion{}, false
	}

	options := make([]string, maxIdx+1)
	for i := range options {
		if s, ok := slots[i]; ok && s != "" {
			options[i] = s
		} else {
			options[i] = "N/A"
		}
	}

	first := strings.TrimSpace(lines[0])
	return RawQuestion{
		Question: strings.TrimSpace(questionNumRe.ReplaceAllString(first, "")),
		Options:  options,
		Answer:   strings.ToUpper(strings.TrimRight(strings.TrimSpace(am[1]), ").")),
	}, true
}
