// Command bankgen builds the question bank consumed by the bot from text extracted
// out of course material.
package main

import (
	"context"
	"flag"
	"os"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/PoluyanbIch/pollquizbot/internal/config"
	"github.com/PoluyanbIch/pollquizbot/internal/llm"
	"github.com/PoluyanbIch/pollquizbot/internal/service"
)

var (
	inPath   = flag.String("in", "course.txt", "extracted course text, or a .json bank to extend")
	outPath  = flag.String("out", "questions.json", "where to write the question bank")
	concepts = flag.Int("concepts", 0, "pad each module with up to N generated concept questions")
	augment  = flag.Int("augment", 0, "ask the language model for N extra questions per module")
	seed     = flag.Uint64("seed", 0, "random seed for concept questions (0 uses the clock)")
)

func main() {
	flag.Parse()
	defer glog.Flush()

	if err := run(context.Background(), config.Load()); err != nil {
		glog.Flush()
		glog.Exit(err)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	sb, sections, err := readInput(*inPath)
	if err != nil {
		return err
	}

	if *concepts > 0 {
		r := service.NewRand(*seed)
		for i := range sb {
			extra := service.GenerateConceptQuestions(sections[sb[i].Title], *concepts, r)
			glog.Infof("Generated %d concept questions for %s", len(extra), sb[i].Title)
			sb[i].Questions = append(sb[i].Questions, extra...)
		}
	}

	if *augment > 0 {
		if cfg.OpenAIKey == "" {
			return errors.New("OPENAI_API_KEY is required for -augment")
		}
		a, err := llm.NewOpenAI(cfg.OpenAIKey, cfg.OpenAIModel)
		if err != nil {
			return err
		}
		sb = a.AugmentBank(ctx, sb, *augment)
	}

	// Authoring problems are logged here rather than at bot start.
	bank := service.NewQuestionBank(sb)

	if err := service.WriteSourceBank(*outPath, sb); err != nil {
		return err
	}
	glog.Infof("✅ Saved %d modules with %d questions to %s", len(sb), bank.Size(), *outPath)
	return nil
}

// readInput returns the bank in the input and, for text input, each module's raw
// section text keyed by title.
func readInput(path string) (service.SourceBank, map[string]string, error) {
	if strings.HasSuffix(strings.ToLower(path), ".json") {
		sb, err := service.ReadSourceBank(path)
		if err != nil {
			return nil, nil, err
		}
		sections := make(map[string]string, len(sb))
		for _, m := range sb {
			var parts []string
			for _, q := range m.Questions {
				parts = append(parts, q.Question+". "+strings.Join(q.Options, " "))
			}
			sections[m.Title] = strings.Join(parts, "\n")
		}
		return sb, sections, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to open file")
	}
	sections := make(map[string]string)
	for _, sec := range service.SplitModules(string(data)) {
		sections[sec.Title] += sec.Text
	}
	return service.ParseModuleText(string(data)), sections, nil
}
