package assessment

import (
	"time"

	"github.com/google/uuid"
	"github.com/saulo-duarte/chronos-prep/internal/scoring"
	"gorm.io/datatypes"
)

type Kind string

const (
	KindInterview Kind = "interview"
	KindPractice  Kind = "practice"
)

type AssessmentSet struct {
	ID           uuid.UUID                   `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID       uuid.UUID                   `gorm:"type:uuid;not null;index" json:"user_id"`
	Kind         Kind                        `gorm:"type:text;not null;index" json:"kind"`
	Title        string                      `gorm:"type:text;not null" json:"title"`
	Company      string                      `gorm:"type:text" json:"company,omitempty"`
	Role         string                      `gorm:"type:text" json:"role,omitempty"`
	Type         string                      `gorm:"type:text" json:"type,omitempty"`
	TechStack    datatypes.JSONSlice[string] `json:"tech_stack,omitempty"`
	Salary       string                      `gorm:"type:text" json:"salary,omitempty"`
	Language     string                      `gorm:"type:text" json:"language,omitempty"`
	Subject      string                      `gorm:"type:text" json:"subject,omitempty"`
	NumQuestions int                         `gorm:"not null;default:20" json:"num_questions"`
	Rounds       int                         `gorm:"not null;default:1" json:"rounds"`
	PerRound     int                         `gorm:"not null;default:5" json:"per_round"`
	Generating   bool                        `gorm:"not null;default:false;index" json:"generating"`
	CreatedAt    time.Time                   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time                   `gorm:"autoUpdateTime" json:"updated_at"`

	Topics  []Topic  `gorm:"foreignKey:SetID;constraint:OnDelete:CASCADE" json:"topics"`
	Results []Result `gorm:"foreignKey:SetID;constraint:OnDelete:CASCADE" json:"results"`
}

type Topic struct {
	ID             uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SetID          uuid.UUID `gorm:"type:uuid;not null;index" json:"set_id"`
	Name           string    `gorm:"type:text;not null" json:"name"`
	OrderIndex     int       `gorm:"not null" json:"order_index"`
	Completed      bool      `gorm:"not null;default:false" json:"completed"`
	LastScore      int       `gorm:"not null;default:0" json:"last_score"`
	TotalQuestions int       `gorm:"not null;default:0" json:"total_questions"`
	Progress       Progress  `gorm:"embedded;embeddedPrefix:progress_" json:"progress"`

	Questions []Question `gorm:"foreignKey:TopicID;constraint:OnDelete:CASCADE" json:"questions,omitempty"`
}

// Progress is the durable snapshot of one in-flight attempt. It is always
// written wholesale.
type Progress struct {
	Answers      datatypes.JSONSlice[int] `json:"answers"`
	RemainingSec int                      `gorm:"not null;default:0" json:"remaining_sec"`
	Locked       datatypes.JSONSlice[int] `json:"locked"`
	Flags        datatypes.JSONSlice[int] `json:"flags"`
	UpdatedAt    *time.Time               `json:"updated_at,omitempty"`
}

type Question struct {
	ID          uuid.UUID                   `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TopicID     uuid.UUID                   `gorm:"type:uuid;not null;index" json:"topic_id"`
	Prompt      string                      `gorm:"type:text;not null" json:"prompt"`
	Options     datatypes.JSONSlice[string] `gorm:"not null" json:"options"`
	Answer      string                      `gorm:"type:text;not null" json:"answer"`
	Explanation string                      `gorm:"type:text" json:"explanation,omitempty"`
	OrderIndex  int                         `gorm:"not null" json:"order_index"`
}

// Result is appended on every submission. Archived results stay for history
// but are skipped when looking up the latest attempt.
type Result struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SetID       uuid.UUID `gorm:"type:uuid;not null;index" json:"set_id"`
	TopicID     uuid.UUID `gorm:"type:uuid;not null;index" json:"topic_id"`
	Correct     int       `gorm:"not null" json:"correct"`
	Total       int       `gorm:"not null" json:"total"`
	DurationSec int       `gorm:"not null;default:0" json:"duration_sec"`
	Archived    bool      `gorm:"not null;default:false" json:"archived"`
	TakenAt     time.Time `gorm:"not null" json:"taken_at"`
}

func (q Question) Scoring() scoring.Question {
	return scoring.Question{Options: q.Options, Answer: q.Answer}
}

func (t *Topic) ScoringQuestions() []scoring.Question {
	out := make([]scoring.Question, len(t.Questions))
	for i, q := range t.Questions {
		out[i] = q.Scoring()
	}
	return out
}

// FindTopic resolves a topic by id. An empty id selects the only topic of a
// practice set.
func (s *AssessmentSet) FindTopic(topicID string) (*Topic, error) {
	if topicID == "" {
		if s.Kind == KindPractice && len(s.Topics) == 1 {
			return &s.Topics[0], nil
		}
		return nil, ErrTopicNotFound
	}
	id, err := uuid.Parse(topicID)
	if err != nil {
		return nil, ErrInvalidID
	}
	for i := range s.Topics {
		if s.Topics[i].ID == id {
			return &s.Topics[i], nil
		}
	}
	return nil, ErrTopicNotFound
}

func (s *AssessmentSet) LatestResult(topicID uuid.UUID) *Result {
	var latest *Result
	for i := range s.Results {
		r := &s.Results[i]
		if r.TopicID != topicID || r.Archived {
			continue
		}
		if latest == nil || r.TakenAt.After(latest.TakenAt) {
			latest = r
		}
	}
	return latest
}
