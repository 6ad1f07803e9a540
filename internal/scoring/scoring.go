// Package scoring evaluates multiple-choice answers by exact option-text match.
package scoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Unanswered marks a question with no selected option.
const Unanswered = -1

// Question is the scoring view of a multiple-choice question. Answer holds the
// literal text of the correct option.
type Question struct {
	Options []string
	Answer  string
}

type Score struct {
	Correct    int `json:"correct"`
	Total      int `json:"total"`
	Percentage int `json:"score"`
}

// IsCorrect reports whether the option at selected matches the canonical answer.
func IsCorrect(q Question, selected int) bool {
	if selected < 0 || selected >= len(q.Options) {
		return false
	}
	return q.Options[selected] == q.Answer
}

// Evaluate scores answers positionally against questions. Missing trailing
// answers count as unanswered; extra answers are ignored.
func Evaluate(questions []Question, answers []int) Score {
	correct := 0
	for i, q := range questions {
		if i >= len(answers) {
			break
		}
		if IsCorrect(q, answers[i]) {
			correct++
		}
	}
	return Score{
		Correct:    correct,
		Total:      len(questions),
		Percentage: Percentage(correct, len(questions)),
	}
}

func Percentage(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}

// Answer is a submitted selection as it arrives on the wire: either an option
// index or the literal option text echoed back by the client.
type Answer struct {
	index   int
	literal string
	isText  bool
}

func IndexAnswer(i int) Answer { return Answer{index: i} }

func TextAnswer(s string) Answer { return Answer{literal: s, isText: true} }

func (a *Answer) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*a = Answer{index: Unanswered}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = TextAnswer(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("answer must be an option index or option text: %w", err)
	}
	if f != math.Trunc(f) {
		*a = Answer{index: Unanswered}
		return nil
	}
	*a = IndexAnswer(int(f))
	return nil
}

func (a Answer) MarshalJSON() ([]byte, error) {
	if a.isText {
		return json.Marshal(a.literal)
	}
	return json.Marshal(a.index)
}

// Index resolves the answer to an option index of q, or Unanswered when it
// names no option. Literal text is matched against option text first, so an
// echoed canonical answer resolves to the same index as the option itself.
func (a Answer) Index(q Question) int {
	if !a.isText {
		if a.index < 0 || a.index >= len(q.Options) {
			return Unanswered
		}
		return a.index
	}
	for i, opt := range q.Options {
		if opt == a.literal {
			return i
		}
	}
	if n, err := strconv.Atoi(strings.TrimSpace(a.literal)); err == nil && n >= 0 && n < len(q.Options) {
		return n
	}
	return Unanswered
}

// Normalize maps raw answers onto option indices, one per question.
func Normalize(questions []Question, answers []Answer) []int {
	out := make([]int, len(questions))
	for i, q := range questions {
		out[i] = Unanswered
		if i < len(answers) {
			out[i] = answers[i].Index(q)
		}
	}
	return out
}
