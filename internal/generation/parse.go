package generation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrNoUsableQuestions = errors.New("generation produced no usable questions")

// cleanJSON strips markdown fences and any prose around the outermost object.
func cleanJSON(raw string) string {
	clean := strings.TrimSpace(raw)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)

	if json.Valid([]byte(clean)) {
		return clean
	}
	first := strings.Index(clean, "{")
	last := strings.LastIndex(clean, "}")
	if first >= 0 && last > first {
		return clean[first : last+1]
	}
	return clean
}

// ParseOutput turns raw model text into topics, dropping malformed questions.
// Practice output is a flat question list and becomes one topic named after the subject.
func ParseOutput(spec Spec, raw string) ([]Topic, error) {
	clean := cleanJSON(raw)

	if err := validateOutput(spec.Kind, []byte(clean)); err != nil {
		return nil, err
	}

	var out output
	if err := json.Unmarshal([]byte(clean), &out); err != nil {
		return nil, fmt.Errorf("decode generation output: %w", err)
	}

	topics := out.Topics
	if spec.Kind == KindPractice {
		name := spec.Subject
		if name == "" {
			name = "Practice"
		}
		topics = []Topic{{Name: name, Questions: out.Questions}}
	}

	var usable []Topic
	for _, t := range topics {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			name = fmt.Sprintf("Round %d", len(usable)+1)
		}
		var qs []Question
		for _, q := range t.Questions {
			if sq, ok := sanitizeQuestion(q); ok {
				qs = append(qs, sq)
			}
		}
		if len(qs) == 0 {
			continue
		}
		usable = append(usable, Topic{Name: name, Questions: qs})
	}

	if len(usable) == 0 {
		return nil, ErrNoUsableQuestions
	}
	return usable, nil
}

func sanitizeQuestion(q Question) (Question, bool) {
	prompt := strings.TrimSpace(q.Prompt)
	if prompt == "" || len(q.Options) != OptionsPerQuestion {
		return Question{}, false
	}

	options := make([]string, len(q.Options))
	for i, opt := range q.Options {
		options[i] = strings.TrimSpace(opt)
		if options[i] == "" {
			return Question{}, false
		}
	}

	answer, ok := resolveAnswer(options, strings.TrimSpace(q.Answer))
	if !ok {
		return Question{}, false
	}

	return Question{
		Prompt:      prompt,
		Options:     options,
		Answer:      answer,
		Explanation: strings.TrimSpace(q.Explanation),
	}, true
}

// resolveAnswer returns the option text the answer refers to. Models sometimes
// answer with a letter ("C") or with different casing; both map to the option.
func resolveAnswer(options []string, answer string) (string, bool) {
	if answer == "" {
		return "", false
	}
	for _, opt := range options {
		if opt == answer {
			return opt, true
		}
	}
	for _, opt := range options {
		if strings.EqualFold(opt, answer) {
			return opt, true
		}
	}
	if len(answer) == 1 {
		idx := int(strings.ToUpper(answer)[0] - 'A')
		if idx >= 0 && idx < len(options) {
			return options[idx], true
		}
	}
	return "", false
}
