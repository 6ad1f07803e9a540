package generation

import "github.com/google/uuid"

type Kind string

const (
	KindInterview Kind = "interview"
	KindPractice  Kind = "practice"
)

// Spec carries everything a generator needs to produce a question set.
type Spec struct {
	Kind         Kind
	Company      string
	Role         string
	Type         string
	TechStack    []string
	Rounds       int
	PerRound     int
	NumQuestions int
	Language     string
	Subject      string
}

type Question struct {
	Prompt      string   `json:"prompt"`
	Options     []string `json:"options"`
	Answer      string   `json:"answer"`
	Explanation string   `json:"explanation"`
}

type Topic struct {
	Name      string     `json:"name"`
	Questions []Question `json:"questions"`
}

// output is the union of the interview and practice response shapes.
type output struct {
	Topics    []Topic    `json:"topics"`
	Questions []Question `json:"questions"`
}

type Job struct {
	SetID uuid.UUID
	Spec  Spec
}
