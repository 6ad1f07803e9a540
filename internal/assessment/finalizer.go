package assessment

import (
	"context"

	"github.com/google/uuid"
	"github.com/saulo-duarte/chronos-prep/internal/generation"
	"gorm.io/datatypes"
)

// Finalizer stores generation outcomes through the repository.
type Finalizer struct {
	repo Repository
}

var _ generation.Finalizer = (*Finalizer)(nil)

func NewFinalizer(repo Repository) *Finalizer {
	return &Finalizer{repo: repo}
}

func (f *Finalizer) CompleteGeneration(ctx context.Context, setID uuid.UUID, topics []generation.Topic) error {
	return f.repo.ReplaceTopics(ctx, setID, toTopics(setID, topics))
}

func (f *Finalizer) FailGeneration(ctx context.Context, setID uuid.UUID) error {
	return f.repo.ClearGenerating(ctx, setID)
}

func toTopics(setID uuid.UUID, generated []generation.Topic) []Topic {
	topics := make([]Topic, 0, len(generated))
	for i, gt := range generated {
		topicID := uuid.New()
		questions := make([]Question, 0, len(gt.Questions))
		for j, gq := range gt.Questions {
			questions = append(questions, Question{
				ID:          uuid.New(),
				TopicID:     topicID,
				Prompt:      gq.Prompt,
				Options:     datatypes.NewJSONSlice(gq.Options),
				Answer:      gq.Answer,
				Explanation: gq.Explanation,
				OrderIndex:  j,
			})
		}
		topics = append(topics, Topic{
			ID:             topicID,
			SetID:          setID,
			Name:           gt.Name,
			OrderIndex:     i,
			TotalQuestions: len(questions),
			Progress: Progress{
				Answers: datatypes.NewJSONSlice([]int{}),
				Locked:  datatypes.NewJSONSlice([]int{}),
				Flags:   datatypes.NewJSONSlice([]int{}),
			},
			Questions: questions,
		})
	}
	return topics
}
