package assessment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/saulo-duarte/chronos-prep/internal/auth"
	"github.com/saulo-duarte/chronos-prep/internal/scoring"
	"github.com/saulo-duarte/chronos-prep/internal/session"
)

// LocalStore runs a session directly against the service, acting as the
// given user. It is the in-process counterpart of client.HTTPStore.
type LocalStore struct {
	service Service
	userID  uuid.UUID
}

var _ session.RemoteStore = (*LocalStore)(nil)

func NewLocalStore(service Service, userID uuid.UUID) *LocalStore {
	return &LocalStore{service: service, userID: userID}
}

func (l *LocalStore) asUser(ctx context.Context) context.Context {
	return auth.WithClaims(ctx, &auth.Claims{UserID: l.userID.String(), Role: "user"})
}

func toSessionError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrTopicNotFound), errors.Is(err, ErrInvalidID):
		return fmt.Errorf("%w: %w", session.ErrNotFound, err)
	case errors.Is(err, ErrAlreadyCompleted):
		return fmt.Errorf("%w: %w", session.ErrAlreadyCompleted, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %w", session.ErrPersistenceUnavailable, err)
	}
}

func toSessionSet(set *AssessmentSet) *session.Set {
	out := &session.Set{
		ID:         set.ID.String(),
		Kind:       string(set.Kind),
		Title:      set.Title,
		Generating: set.Generating,
		Topics:     make([]session.Topic, 0, len(set.Topics)),
	}
	for _, t := range set.Topics {
		questions := make([]session.Question, 0, len(t.Questions))
		for _, q := range t.Questions {
			questions = append(questions, session.Question{Prompt: q.Prompt, Options: q.Options, Answer: q.Answer})
		}
		out.Topics = append(out.Topics, session.Topic{
			ID:        t.ID.String(),
			Name:      t.Name,
			Completed: t.Completed,
			Questions: questions,
			Progress: session.Snapshot{
				Answers:      t.Progress.Answers,
				RemainingSec: t.Progress.RemainingSec,
				Locked:       t.Progress.Locked,
				Flags:        t.Progress.Flags,
			},
		})
	}
	return out
}

func (l *LocalStore) FetchSet(ctx context.Context, setID string) (*session.Set, error) {
	set, err := l.service.Get(l.asUser(ctx), setID)
	if err != nil {
		return nil, toSessionError(err)
	}
	return toSessionSet(set), nil
}

func (l *LocalStore) ListSets(ctx context.Context) ([]session.SetStatus, error) {
	sets, err := l.service.List(l.asUser(ctx))
	if err != nil {
		return nil, toSessionError(err)
	}
	out := make([]session.SetStatus, 0, len(sets))
	for _, s := range sets {
		out = append(out, session.SetStatus{ID: s.ID.String(), Title: s.Title, Generating: s.Generating})
	}
	return out, nil
}

func (l *LocalStore) SaveProgress(ctx context.Context, setID, topicID string, snap session.Snapshot) error {
	return toSessionError(l.service.SaveProgress(l.asUser(ctx), setID, ProgressInput{
		TopicID:      topicID,
		Answers:      snap.Answers,
		RemainingSec: snap.RemainingSec,
		Locked:       snap.Locked,
		Flags:        snap.Flags,
	}))
}

func (l *LocalStore) Submit(ctx context.Context, setID, topicID string, answers []int, durationSec int) (*session.Result, error) {
	in := SubmitInput{TopicID: topicID, DurationSec: durationSec, Answers: make([]scoring.Answer, len(answers))}
	for i, a := range answers {
		in.Answers[i] = scoring.IndexAnswer(a)
	}
	res, err := l.service.Submit(l.asUser(ctx), setID, in)
	if err != nil {
		return nil, toSessionError(err)
	}
	return &session.Result{
		Score:       res.Score,
		Correct:     res.Correct,
		Total:       res.Total,
		DurationSec: res.DurationSec,
	}, nil
}

func (l *LocalStore) Retake(ctx context.Context, setID, topicID string) error {
	return toSessionError(l.service.Retake(l.asUser(ctx), setID, RetakeInput{TopicID: topicID}))
}
