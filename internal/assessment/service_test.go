package assessment

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/saulo-duarte/chronos-prep/internal/auth"
	"github.com/saulo-duarte/chronos-prep/internal/generation"
	"github.com/saulo-duarte/chronos-prep/internal/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userCtx(id uuid.UUID) context.Context {
	return auth.WithClaims(context.Background(), &auth.Claims{UserID: id.String(), Role: "user"})
}

func generatedTopic(name string, n int) generation.Topic {
	t := generation.Topic{Name: name}
	for i := 0; i < n; i++ {
		t.Questions = append(t.Questions, generation.Question{
			Prompt:  "question",
			Options: []string{"alpha", "beta", "gamma", "delta"},
			Answer:  "beta",
		})
	}
	return t
}

type fixture struct {
	repo    *memRepo
	queue   *recordingQueue
	service Service
	user    uuid.UUID
	ctx     context.Context
}

func newFixture() *fixture {
	repo := newMemRepo()
	queue := &recordingQueue{}
	user := uuid.New()
	return &fixture{
		repo:    repo,
		queue:   queue,
		service: NewService(repo, queue),
		user:    user,
		ctx:     userCtx(user),
	}
}

// readyPractice creates a practice set and completes its generation with n
// questions whose correct option is index 1.
func (f *fixture) readyPractice(t *testing.T, n int) *AssessmentSet {
	t.Helper()
	set, err := f.service.CreatePractice(f.ctx, CreatePracticeDTO{NumQuestions: n})
	require.NoError(t, err)
	require.NoError(t, NewFinalizer(f.repo).CompleteGeneration(context.Background(), set.ID, []generation.Topic{generatedTopic("DSA", n)}))

	ready, err := f.service.Get(f.ctx, set.ID.String())
	require.NoError(t, err)
	require.False(t, ready.Generating)
	require.Len(t, ready.Topics, 1)
	return ready
}

func TestService_CreateInterview(t *testing.T) {
	f := newFixture()

	set, err := f.service.CreateInterview(f.ctx, CreateInterviewDTO{
		Company:   " Acme ",
		Role:      "Backend Engineer",
		TechStack: []string{"Go", "Postgres"},
		Rounds:    42,
		PerRound:  2,
	})
	require.NoError(t, err)

	assert.True(t, set.Generating)
	assert.Equal(t, KindInterview, set.Kind)
	assert.Equal(t, "Acme - Backend Engineer", set.Title)
	assert.Equal(t, "technical", set.Type)
	assert.Equal(t, 10, set.Rounds)
	assert.Equal(t, 5, set.PerRound)
	assert.Equal(t, 20, set.NumQuestions)
	assert.Empty(t, set.Topics)

	require.Len(t, f.queue.jobs, 1)
	job := f.queue.jobs[0]
	assert.Equal(t, set.ID, job.SetID)
	assert.Equal(t, generation.KindInterview, job.Spec.Kind)
	assert.Equal(t, []string{"Go", "Postgres"}, job.Spec.TechStack)
	assert.Equal(t, 10, job.Spec.Rounds)
}

func TestService_CreateInterviewValidation(t *testing.T) {
	f := newFixture()

	_, err := f.service.CreateInterview(f.ctx, CreateInterviewDTO{Role: "SRE"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.service.CreateInterview(f.ctx, CreateInterviewDTO{Company: "Acme", Role: "SRE", Type: "trivia"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.service.CreateInterview(context.Background(), CreateInterviewDTO{Company: "Acme", Role: "SRE"})
	assert.ErrorIs(t, err, ErrUnauthorized)

	assert.Empty(t, f.queue.jobs)
}

func TestService_CreatePracticeDefaults(t *testing.T) {
	f := newFixture()

	set, err := f.service.CreatePractice(f.ctx, CreatePracticeDTO{})
	require.NoError(t, err)

	assert.Equal(t, KindPractice, set.Kind)
	assert.Equal(t, "DSA (English)", set.Title)
	assert.Equal(t, "English", set.Language)
	assert.Equal(t, "DSA", set.Subject)
	assert.Equal(t, 20, set.NumQuestions)
	require.Len(t, f.queue.jobs, 1)
	assert.Equal(t, generation.KindPractice, f.queue.jobs[0].Spec.Kind)
}

func TestService_QueueRejectionLeavesSetRetriable(t *testing.T) {
	f := newFixture()
	f.queue.err = generation.ErrQueueFull

	set, err := f.service.CreatePractice(f.ctx, CreatePracticeDTO{Subject: "Go"})
	require.NoError(t, err)
	assert.False(t, set.Generating)
	assert.Equal(t, []uuid.UUID{set.ID}, f.repo.cleared)

	stored, err := f.service.Get(f.ctx, set.ID.String())
	require.NoError(t, err)
	assert.False(t, stored.Generating)
	assert.Empty(t, stored.Topics)
}

func TestService_RecoverStaleGenerations(t *testing.T) {
	f := newFixture()
	fresh, err := f.service.CreatePractice(f.ctx, CreatePracticeDTO{Subject: "Go"})
	require.NoError(t, err)
	stuck, err := f.service.CreatePractice(f.ctx, CreatePracticeDTO{Subject: "SQL"})
	require.NoError(t, err)
	require.True(t, stuck.Generating)

	n, err := f.service.RecoverStaleGenerations(context.Background(), 10*time.Minute)
	require.NoError(t, err)
	assert.Zero(t, n)

	f.repo.backdate(stuck.ID, time.Hour)
	n, err = f.service.RecoverStaleGenerations(context.Background(), 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := f.service.Get(f.ctx, stuck.ID.String())
	require.NoError(t, err)
	assert.False(t, got.Generating)
	got, err = f.service.Get(f.ctx, fresh.ID.String())
	require.NoError(t, err)
	assert.True(t, got.Generating)

	require.NoError(t, f.service.Regenerate(f.ctx, stuck.ID.String()))
}

func TestService_OwnerScoping(t *testing.T) {
	f := newFixture()
	set := f.readyPractice(t, 2)

	other := userCtx(uuid.New())
	_, err := f.service.Get(other, set.ID.String())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.service.Get(f.ctx, "not-a-uuid")
	assert.ErrorIs(t, err, ErrInvalidID)

	list, err := f.service.List(other)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestService_SubmitScoresAndRejectsResubmission(t *testing.T) {
	f := newFixture()
	set := f.readyPractice(t, 5)

	answers := []scoring.Answer{
		scoring.IndexAnswer(1),
		scoring.TextAnswer("beta"),
		scoring.IndexAnswer(1),
		scoring.IndexAnswer(0),
		scoring.IndexAnswer(scoring.Unanswered),
	}
	res, err := f.service.Submit(f.ctx, set.ID.String(), SubmitInput{Answers: answers, DurationSec: -4})
	require.NoError(t, err)
	assert.Equal(t, &SubmitResponse{Score: 60, Correct: 3, Total: 5, DurationSec: 0}, res)

	stored, err := f.service.Get(f.ctx, set.ID.String())
	require.NoError(t, err)
	topic := stored.Topics[0]
	assert.True(t, topic.Completed)
	assert.Equal(t, 60, topic.LastScore)
	assert.Equal(t, 5, topic.TotalQuestions)
	assert.Empty(t, topic.Progress.Answers)
	require.Len(t, stored.Results, 1)

	_, err = f.service.Submit(f.ctx, set.ID.String(), SubmitInput{Answers: answers})
	assert.ErrorIs(t, err, ErrAlreadyCompleted)

	stored, err = f.service.Get(f.ctx, set.ID.String())
	require.NoError(t, err)
	assert.Len(t, stored.Results, 1)

	err = f.service.SaveProgress(f.ctx, set.ID.String(), ProgressInput{Answers: []int{1, 1, 1, 1, 1}})
	assert.ErrorIs(t, err, ErrAlreadyCompleted)
}

func TestService_SaveProgressNormalises(t *testing.T) {
	f := newFixture()
	set := f.readyPractice(t, 3)

	err := f.service.SaveProgress(f.ctx, set.ID.String(), ProgressInput{
		Answers:      []int{1, -1, 2},
		RemainingSec: -10,
		Locked:       []int{2, 0, 2, 9},
		Flags:        []int{1, -3},
	})
	require.NoError(t, err)

	stored, err := f.service.Get(f.ctx, set.ID.String())
	require.NoError(t, err)
	p := stored.Topics[0].Progress
	assert.Equal(t, []int{1, -1, 2}, []int(p.Answers))
	assert.Equal(t, []int{0, 2}, []int(p.Locked))
	assert.Equal(t, []int{1}, []int(p.Flags))
	assert.Zero(t, p.RemainingSec)
	assert.NotNil(t, p.UpdatedAt)
}

func TestService_InterviewTopicRequired(t *testing.T) {
	f := newFixture()
	set, err := f.service.CreateInterview(f.ctx, CreateInterviewDTO{Company: "Acme", Role: "SRE", Rounds: 2})
	require.NoError(t, err)
	require.NoError(t, NewFinalizer(f.repo).CompleteGeneration(context.Background(), set.ID, []generation.Topic{
		generatedTopic("Networking", 5),
		generatedTopic("Linux", 5),
	}))

	_, err = f.service.Submit(f.ctx, set.ID.String(), SubmitInput{})
	assert.ErrorIs(t, err, ErrTopicNotFound)

	_, err = f.service.Submit(f.ctx, set.ID.String(), SubmitInput{TopicID: uuid.NewString()})
	assert.ErrorIs(t, err, ErrTopicNotFound)

	stored, err := f.service.Get(f.ctx, set.ID.String())
	require.NoError(t, err)
	second := stored.Topics[1]
	assert.Equal(t, "Linux", second.Name)

	res, err := f.service.Submit(f.ctx, set.ID.String(), SubmitInput{TopicID: second.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Correct)
	assert.Equal(t, 5, res.Total)
}

func TestService_RetakeIsIdempotent(t *testing.T) {
	f := newFixture()
	set := f.readyPractice(t, 2)
	id := set.ID.String()

	require.NoError(t, f.service.Retake(f.ctx, id, RetakeInput{}))

	_, err := f.service.Submit(f.ctx, id, SubmitInput{Answers: []scoring.Answer{scoring.IndexAnswer(1), scoring.IndexAnswer(1)}})
	require.NoError(t, err)

	latest, err := f.service.LatestResult(f.ctx, id, "")
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Correct)

	require.NoError(t, f.service.Retake(f.ctx, id, RetakeInput{}))
	require.NoError(t, f.service.Retake(f.ctx, id, RetakeInput{}))

	stored, err := f.service.Get(f.ctx, id)
	require.NoError(t, err)
	topic := stored.Topics[0]
	assert.False(t, topic.Completed)
	assert.Zero(t, topic.LastScore)
	require.Len(t, stored.Results, 1)
	assert.True(t, stored.Results[0].Archived)

	_, err = f.service.LatestResult(f.ctx, id, "")
	assert.ErrorIs(t, err, ErrNotFound)

	res, err := f.service.Submit(f.ctx, id, SubmitInput{Answers: []scoring.Answer{scoring.IndexAnswer(0)}})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Correct)
	assert.Equal(t, 2, res.Total)
}

type flakyGenerator struct {
	calls atomic.Int32
}

func (g *flakyGenerator) Generate(_ context.Context, spec generation.Spec) ([]generation.Topic, error) {
	if g.calls.Add(1) == 1 {
		return nil, errors.New("upstream unavailable")
	}
	return []generation.Topic{generatedTopic(spec.Subject, spec.NumQuestions)}, nil
}

func TestService_GenerationFailureThenRegenerate(t *testing.T) {
	repo := newMemRepo()
	manager := generation.NewManager(&flakyGenerator{}, NewFinalizer(repo), generation.ManagerOptions{Workers: 1, QueueSize: 4, Timeout: time.Second})
	manager.Start(context.Background())
	defer manager.Stop()

	user := uuid.New()
	ctx := userCtx(user)
	svc := NewService(repo, manager)

	set, err := svc.CreatePractice(ctx, CreatePracticeDTO{Subject: "Go", NumQuestions: 3})
	require.NoError(t, err)
	require.True(t, set.Generating)

	id := set.ID.String()
	require.Eventually(t, func() bool {
		s, err := svc.Get(ctx, id)
		return err == nil && !s.Generating
	}, time.Second, 5*time.Millisecond)

	failed, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, failed.Topics)

	require.NoError(t, svc.Regenerate(ctx, id))
	require.Eventually(t, func() bool {
		s, err := svc.Get(ctx, id)
		return err == nil && !s.Generating && len(s.Topics) == 1
	}, time.Second, 5*time.Millisecond)

	ready, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Go", ready.Topics[0].Name)
	assert.Len(t, ready.Topics[0].Questions, 3)
}
