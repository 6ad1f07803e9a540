package assessment

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/saulo-duarte/chronos-prep/internal/generation"
	"gorm.io/datatypes"
)

// memRepo mirrors the conditional-update semantics of the gorm repository.
type memRepo struct {
	mu      sync.Mutex
	sets    map[uuid.UUID]*AssessmentSet
	cleared []uuid.UUID
}

func newMemRepo() *memRepo {
	return &memRepo{sets: make(map[uuid.UUID]*AssessmentSet)}
}

func cloneSet(s *AssessmentSet) *AssessmentSet {
	cp := *s
	cp.Topics = make([]Topic, len(s.Topics))
	for i, t := range s.Topics {
		t.Questions = append([]Question(nil), t.Questions...)
		t.Progress.Answers = append(datatypes.JSONSlice[int](nil), t.Progress.Answers...)
		t.Progress.Locked = append(datatypes.JSONSlice[int](nil), t.Progress.Locked...)
		t.Progress.Flags = append(datatypes.JSONSlice[int](nil), t.Progress.Flags...)
		cp.Topics[i] = t
	}
	cp.Results = append([]Result(nil), s.Results...)
	return &cp
}

func (r *memRepo) CreateSet(_ context.Context, set *AssessmentSet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if set.UpdatedAt.IsZero() {
		set.UpdatedAt = time.Now()
	}
	r.sets[set.ID] = cloneSet(set)
	return nil
}

func (r *memRepo) GetSet(_ context.Context, id, userID uuid.UUID) (*AssessmentSet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sets[id]
	if !ok || s.UserID != userID {
		return nil, ErrNotFound
	}
	return cloneSet(s), nil
}

func (r *memRepo) ListSetsByUser(_ context.Context, userID uuid.UUID) ([]*AssessmentSet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*AssessmentSet
	for _, s := range r.sets {
		if s.UserID == userID {
			out = append(out, cloneSet(s))
		}
	}
	return out, nil
}

func (r *memRepo) StartGeneration(_ context.Context, id, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sets[id]
	if !ok || s.UserID != userID {
		return ErrNotFound
	}
	s.Generating = true
	s.UpdatedAt = time.Now()
	return nil
}

func (r *memRepo) ReplaceTopics(_ context.Context, setID uuid.UUID, topics []Topic) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sets[setID]
	if !ok {
		return ErrNotFound
	}
	for i := range s.Results {
		s.Results[i].Archived = true
	}
	s.Topics = topics
	s.Generating = false
	return nil
}

func (r *memRepo) ClearGenerating(_ context.Context, setID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleared = append(r.cleared, setID)
	if s, ok := r.sets[setID]; ok {
		s.Generating = false
	}
	return nil
}

func (r *memRepo) ClearStaleGenerating(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, s := range r.sets {
		if s.Generating && s.UpdatedAt.Before(before) {
			s.Generating = false
			n++
		}
	}
	return n, nil
}

func (r *memRepo) backdate(id uuid.UUID, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sets[id].UpdatedAt = time.Now().Add(-d)
}

func (r *memRepo) topic(setID, topicID uuid.UUID) (*AssessmentSet, *Topic) {
	s, ok := r.sets[setID]
	if !ok {
		return nil, nil
	}
	for i := range s.Topics {
		if s.Topics[i].ID == topicID {
			return s, &s.Topics[i]
		}
	}
	return s, nil
}

func (r *memRepo) SaveProgress(_ context.Context, setID, topicID uuid.UUID, p Progress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, t := r.topic(setID, topicID)
	if t == nil {
		return ErrTopicNotFound
	}
	if t.Completed {
		return ErrAlreadyCompleted
	}
	t.Progress = p
	return nil
}

func (r *memRepo) CompleteTopic(_ context.Context, setID, topicID uuid.UUID, lastScore int, result *Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, t := r.topic(setID, topicID)
	if t == nil {
		return ErrTopicNotFound
	}
	if t.Completed {
		return ErrAlreadyCompleted
	}
	t.Completed = true
	t.LastScore = lastScore
	t.TotalQuestions = result.Total
	t.Progress = Progress{}
	s.Results = append(s.Results, *result)
	return nil
}

func (r *memRepo) ResetTopic(_ context.Context, setID, topicID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, t := r.topic(setID, topicID)
	if t == nil {
		return false, ErrTopicNotFound
	}
	if !t.Completed {
		return false, nil
	}
	t.Completed = false
	t.LastScore = 0
	t.Progress = Progress{}
	for i := range s.Results {
		if s.Results[i].TopicID == topicID {
			s.Results[i].Archived = true
		}
	}
	return true, nil
}

type recordingQueue struct {
	mu   sync.Mutex
	jobs []generation.Job
	err  error
}

func (q *recordingQueue) Enqueue(job generation.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}
