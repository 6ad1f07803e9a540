package session

import (
	"context"
	"errors"

	"github.com/saulo-duarte/chronos-prep/internal/scoring"
)

var (
	ErrNotFound               = errors.New("assessment not found")
	ErrNotReady               = errors.New("assessment has no questions yet")
	ErrAlreadyCompleted       = errors.New("topic already completed")
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
)

// Snapshot is the persisted shape of an in-flight attempt.
type Snapshot struct {
	Answers      []int `json:"answers"`
	RemainingSec int   `json:"remaining_sec"`
	Locked       []int `json:"locked"`
	Flags        []int `json:"flags"`
}

type Question struct {
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
	Answer  string   `json:"answer"`
}

type Topic struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Completed bool       `json:"completed"`
	Questions []Question `json:"questions"`
	Progress  Snapshot   `json:"progress"`
}

type Set struct {
	ID         string  `json:"id"`
	Kind       string  `json:"kind"`
	Title      string  `json:"title"`
	Generating bool    `json:"generating"`
	Topics     []Topic `json:"topics"`
}

// SetStatus is the list view used while waiting on generation.
type SetStatus struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Generating bool   `json:"generating"`
}

type Result struct {
	Score       int `json:"score"`
	Correct     int `json:"correct"`
	Total       int `json:"total"`
	DurationSec int `json:"duration_sec"`
}

// RemoteStore is the durable side of a session. Implementations map their
// failures onto ErrNotFound, ErrAlreadyCompleted and ErrPersistenceUnavailable.
type RemoteStore interface {
	FetchSet(ctx context.Context, setID string) (*Set, error)
	ListSets(ctx context.Context) ([]SetStatus, error)
	SaveProgress(ctx context.Context, setID, topicID string, snap Snapshot) error
	Submit(ctx context.Context, setID, topicID string, answers []int, durationSec int) (*Result, error)
	Retake(ctx context.Context, setID, topicID string) error
}

func (t Topic) scoringQuestions() []scoring.Question {
	out := make([]scoring.Question, len(t.Questions))
	for i, q := range t.Questions {
		out[i] = scoring.Question{Options: q.Options, Answer: q.Answer}
	}
	return out
}

func (s *Set) findTopic(topicID string) (*Topic, bool) {
	if topicID == "" {
		if len(s.Topics) == 1 {
			return &s.Topics[0], true
		}
		return nil, false
	}
	for i := range s.Topics {
		if s.Topics[i].ID == topicID {
			return &s.Topics[i], true
		}
	}
	return nil, false
}
