package assessment

import (
	"time"

	"github.com/google/uuid"
	"github.com/saulo-duarte/chronos-prep/internal/scoring"
)

type CreateInterviewDTO struct {
	Company      string   `json:"company"`
	Role         string   `json:"role"`
	Type         string   `json:"type"`
	TechStack    []string `json:"tech_stack"`
	Salary       string   `json:"salary"`
	NumQuestions int      `json:"num_questions"`
	Rounds       int      `json:"rounds"`
	PerRound     int      `json:"per_round"`
}

type CreatePracticeDTO struct {
	Language     string `json:"language"`
	Subject      string `json:"subject"`
	NumQuestions int    `json:"num_questions"`
}

type ProgressInput struct {
	TopicID      string `json:"topic_id"`
	Answers      []int  `json:"answers"`
	RemainingSec int    `json:"remaining_sec"`
	Locked       []int  `json:"locked"`
	Flags        []int  `json:"flags"`
}

type SubmitInput struct {
	TopicID     string           `json:"topic_id"`
	Answers     []scoring.Answer `json:"answers"`
	DurationSec int              `json:"duration_sec"`
}

type SubmitResponse struct {
	Score       int `json:"score"`
	Correct     int `json:"correct"`
	Total       int `json:"total"`
	DurationSec int `json:"duration_sec"`
}

type RetakeInput struct {
	TopicID string `json:"topic_id"`
}

type TopicSummary struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Completed      bool      `json:"completed"`
	LastScore      int       `json:"last_score"`
	TotalQuestions int       `json:"total_questions"`
}

type SetSummary struct {
	ID         uuid.UUID      `json:"id"`
	Kind       Kind           `json:"kind"`
	Title      string         `json:"title"`
	Company    string         `json:"company,omitempty"`
	Role       string         `json:"role,omitempty"`
	Type       string         `json:"type,omitempty"`
	Generating bool           `json:"generating"`
	Rounds     int            `json:"rounds"`
	PerRound   int            `json:"per_round"`
	Topics     []TopicSummary `json:"topics"`
	Results    []Result       `json:"results"`
	CreatedAt  time.Time      `json:"created_at"`
}

func toSummary(s *AssessmentSet) SetSummary {
	topics := make([]TopicSummary, 0, len(s.Topics))
	for _, t := range s.Topics {
		topics = append(topics, TopicSummary{
			ID:             t.ID,
			Name:           t.Name,
			Completed:      t.Completed,
			LastScore:      t.LastScore,
			TotalQuestions: t.TotalQuestions,
		})
	}
	return SetSummary{
		ID:         s.ID,
		Kind:       s.Kind,
		Title:      s.Title,
		Company:    s.Company,
		Role:       s.Role,
		Type:       s.Type,
		Generating: s.Generating,
		Rounds:     s.Rounds,
		PerRound:   s.PerRound,
		Topics:     topics,
		Results:    s.Results,
		CreatedAt:  s.CreatedAt,
	}
}
