package service

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// SourceBank is the on-disk question bank: a JSON object mapping module title to
// its questions. Key order in the file is the module order.
type SourceBank []RawModule

func (sb *SourceBank) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.New("question bank must be a JSON object of module title to questions")
	}

	var out SourceBank
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		title, _ := tok.(string)

		var entries []json.RawMessage
		if err := dec.Decode(&entries); err != nil {
			return errors.Wrapf(err, "module %q", title)
		}

		rm := RawModule{Title: title, Questions: make([]RawQuestion, 0, len(entries))}
		for i, raw := range entries {
			var rq RawQuestion
			if err := json.Unmarshal(raw, &rq); err != nil {
				glog.Warningf("module %q entry %d: %v, skipped", title, i+1, err)
				continue
			}
			rm.Questions = append(rm.Questions, rq)
		}
		out = append(out, rm)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*sb = out
	return nil
}

func (sb SourceBank) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range sb {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(m.Title)
		if err != nil {
			return nil, err
		}
		qs := m.Questions
		if qs == nil {
			qs = []RawQuestion{}
		}
		val, err := json.Marshal(qs)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func ReadSourceBank(path string) (SourceBank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read question bank")
	}
	var sb SourceBank
	if err := json.Unmarshal(data, &sb); err != nil {
		return nil, errors.Wrapf(err, "parse question bank %s", path)
	}
	return sb, nil
}

func WriteSourceBank(path string, sb SourceBank) error {
	data, err := json.MarshalIndent(sb, "", "  ")
	if err != nil {
		return err
	}
	return errors.Wrap(os.WriteFile(path, append(data, '\n'), 0o644), "write question bank")
}

// LoadQuestionBank builds the bank from path. A missing or unreadable file leaves the
// bot running with no modules.
func LoadQuestionBank(path string) *QuestionBank {
	sb, err := ReadSourceBank(path)
	if err != nil {
		glog.Errorf("Failed to load questions from %s: %v", path, err)
		return NewQuestionBank(nil)
	}
	bank := NewQuestionBank(sb)
	glog.Infof("Loaded %d modules, %d questions from %s (%d warnings)",
		len(bank.ListModules()), bank.Size(), path, len(bank.Warnings()))
	return bank
}
