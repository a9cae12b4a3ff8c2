package service

import (
	"math/rand/v2"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

var sentenceSplitRe = regexp.MustCompile(`[.\n]`)

const conceptStemRunes = 80

// NewRand returns a generator seeded from seed, or from the clock when seed is 0.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// GenerateConceptQuestions builds up to count placeholder questions from the
// sentences of text. They exist to pad sparse modules and need human review: the
// answer letter is picked at random.
func GenerateConceptQuestions(text string, count int, r *rand.Rand) []RawQuestion {
	var sentences []string
	for _, s := range sentenceSplitRe.Split(text, -1) {
		s = strings.TrimSpace(s)
		if len(strings.Fields(s)) > 5 {
			sentences = append(sentences, s)
		}
	}
	r.Shuffle(len(sentences), func(i, j int) {
		sentences[i], sentences[j] = sentences[j], sentences[i]
	})

	count = max(0, min(count, len(sentences)))
	letters := []string{"A", "B", "C", "D"}
	questions := make([]RawQuestion, 0, count)
	for _, base := range sentences[:count] {
		words := strings.Fields(base)
		questions = append(questions, RawQuestion{
			Question: "What best describes this concept: " + truncateRunes(base, conceptStemRunes) + "...",
			Options: []string{
				words[0],
				words[len(words)-1],
				"All of the above",
				"None of the above",
			},
			Answer: letters[r.IntN(len(letters))],
		})
	}
	return questions
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
