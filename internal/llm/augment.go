// Package llm generates extra multiple-choice questions for a module with a
// language model.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/PoluyanbIch/pollquizbot/internal/service"
)

const DefaultModel = "gpt-4o-mini"

const questionPrompt = `You are an exam question writer. Make %d multiple choice questions (4 options A-D) on this topic. Provide correct answer letter. Keep questions clear and factual.

Topic: %s

Content:
%s

Return JSON array of objects: { "question": "...", "options":["...","...","...","..."], "answer":"A" }
`

type Augmenter struct {
	model       llms.Model
	temperature float64
	maxTokens   int
}

func New(model llms.Model) *Augmenter {
	return &Augmenter{
		model:       model,
		temperature: 0.2,
		maxTokens:   1200,
	}
}

// NewOpenAI builds an Augmenter backed by the OpenAI chat API.
func NewOpenAI(apiKey, model string) (*Augmenter, error) {
	if model == "" {
		model = DefaultModel
	}
	m, err := openai.New(
		openai.WithModel(model),
		openai.WithToken(apiKey),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize OpenAI client")
	}
	return New(m), nil
}

// Generate asks the model for count questions about content. Entries without a
// question or with fewer than two options are dropped.
func (a *Augmenter) Generate(ctx context.Context, title, content string, count int) ([]service.RawQuestion, error) {
	if count <= 0 {
		return nil, nil
	}
	prompt := fmt.Sprintf(questionPrompt, count, title, content)
	completion, err := llms.GenerateFromSinglePrompt(ctx, a.model, prompt,
		llms.WithTemperature(a.temperature),
		llms.WithMaxTokens(a.maxTokens),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "generate questions for %q", title)
	}

	questions, err := parseQuestions(completion)
	if err != nil {
		return nil, errors.Wrapf(err, "questions for %q", title)
	}
	return lo.Filter(questions, func(q service.RawQuestion, _ int) bool {
		return strings.TrimSpace(q.Question) != "" && len(q.Options) >= 2
	}), nil
}

// AugmentBank appends up to count generated questions to every module, using the
// module's existing questions as source text. A module whose generation fails is
// kept unchanged.
func (a *Augmenter) AugmentBank(ctx context.Context, sb service.SourceBank, count int) service.SourceBank {
	out := make(service.SourceBank, 0, len(sb))
	for _, m := range sb {
		glog.Infof("Generating for %s", m.Title)
		extra, err := a.Generate(ctx, m.Title, moduleText(m), count)
		if err != nil {
			glog.Warningf("Module %q not augmented: %v", m.Title, err)
		}
		questions := append(append([]service.RawQuestion{}, m.Questions...), extra...)
		out = append(out, service.RawModule{Title: m.Title, Questions: questions})
	}
	return out
}

func moduleText(m service.RawModule) string {
	parts := lo.Map(m.Questions, func(q service.RawQuestion, _ int) string {
		return q.Question + " " + strings.Join(q.Options, " ")
	})
	return strings.Join(parts, " ")
}

// parseQuestions reads the JSON array out of a completion, tolerating code fences
// and surrounding prose.
func parseQuestions(completion string) ([]service.RawQuestion, error) {
	start := strings.Index(completion, "[")
	end := strings.LastIndex(completion, "]")
	if start < 0 || end < start {
		return nil, errors.New("response has no JSON array")
	}
	var questions []service.RawQuestion
	if err := json.Unmarshal([]byte(completion[start:end+1]), &questions); err != nil {
		return nil, errors.Wrap(err, "response not parseable")
	}
	return questions, nil
}
