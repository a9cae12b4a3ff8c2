package service

import (
	"fmt"
	"strings"
)

// ExplainFunc produces the feedback shown after an answer.
type ExplainFunc func(question, correctOption, authored string) string

// ExplanationRule supplies Text when Keyword appears in the question.
type ExplanationRule struct {
	Keyword string
	Text    string
}

// ExplanationResolver picks an explanation: authored text first, then the first
// matching rule, then a generic sentence naming the correct option.
type ExplanationResolver struct {
	Subject string
	Rules   []ExplanationRule
}

func NewExplanationResolver(subject string) *ExplanationResolver {
	if subject == "" {
		subject = "HCI"
	}
	return &ExplanationResolver{
		Subject: subject,
		Rules: []ExplanationRule{
			{Keyword: "interaction", Text: "It focuses on how users engage with computer systems effectively."},
			{Keyword: "design", Text: fmt.Sprintf("Design in %s ensures usability and better user experience.", subject)},
		},
	}
}

func (r *ExplanationResolver) Explain(question, correctOption, authored string) string {
	if s := strings.TrimSpace(authored); s != "" {
		return s
	}
	lower := strings.ToLower(question)
	for _, rule := range r.Rules {
		if strings.Contains(lower, strings.ToLower(rule.Keyword)) {
			return rule.Text
		}
	}
	return fmt.Sprintf("The correct answer '%s' fits best based on the core %s concepts.", correctOption, r.Subject)
}
