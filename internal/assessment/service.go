package assessment

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/saulo-duarte/chronos-prep/internal/auth"
	"github.com/saulo-duarte/chronos-prep/internal/config"
	"github.com/saulo-duarte/chronos-prep/internal/generation"
	"github.com/saulo-duarte/chronos-prep/internal/scoring"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

type Service interface {
	CreateInterview(ctx context.Context, dto CreateInterviewDTO) (*AssessmentSet, error)
	CreatePractice(ctx context.Context, dto CreatePracticeDTO) (*AssessmentSet, error)
	Regenerate(ctx context.Context, setID string) error
	List(ctx context.Context) ([]SetSummary, error)
	Get(ctx context.Context, setID string) (*AssessmentSet, error)
	SaveProgress(ctx context.Context, setID string, in ProgressInput) error
	Submit(ctx context.Context, setID string, in SubmitInput) (*SubmitResponse, error)
	Retake(ctx context.Context, setID string, in RetakeInput) error
	LatestResult(ctx context.Context, setID, topicID string) (*Result, error)
	RecoverStaleGenerations(ctx context.Context, maxAge time.Duration) (int64, error)
}

type service struct {
	repo  Repository
	queue generation.Enqueuer
	now   func() time.Time
}

func NewService(repo Repository, queue generation.Enqueuer) Service {
	return &service{repo: repo, queue: queue, now: time.Now}
}

func getUserIDFromContext(ctx context.Context, log logrus.FieldLogger, action string) (uuid.UUID, error) {
	claims, err := auth.GetUserClaimsFromContext(ctx)
	if err != nil {
		log.WithError(err).Warnf("Attempt to %s without authentication", action)
		return uuid.Nil, ErrUnauthorized
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		log.WithError(err).Warnf("Attempt to %s with malformed user id", action)
		return uuid.Nil, ErrUnauthorized
	}
	return id, nil
}

func parseUUID(log logrus.FieldLogger, id string, entityName string) (uuid.UUID, error) {
	parsedID, err := uuid.Parse(id)
	if err != nil {
		log.WithError(err).Warnf("Invalid %s ID", entityName)
		return uuid.Nil, ErrInvalidID
	}
	return parsedID, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func orDefault(v, def string) string {
	if s := strings.TrimSpace(v); s != "" {
		return s
	}
	return def
}

func (s *service) CreateInterview(ctx context.Context, dto CreateInterviewDTO) (*AssessmentSet, error) {
	log := config.WithContext(ctx)
	userID, err := getUserIDFromContext(ctx, log, "create interview")
	if err != nil {
		return nil, err
	}

	company := strings.TrimSpace(dto.Company)
	role := strings.TrimSpace(dto.Role)
	if company == "" || role == "" {
		return nil, fmt.Errorf("%w: company and role are required", ErrInvalidInput)
	}

	interviewType := orDefault(dto.Type, "technical")
	switch interviewType {
	case "technical", "behavioral", "other":
	default:
		return nil, fmt.Errorf("%w: type must be technical, behavioral or other", ErrInvalidInput)
	}

	numQuestions := dto.NumQuestions
	if numQuestions <= 0 {
		numQuestions = 20
	}
	rounds := dto.Rounds
	if rounds == 0 {
		rounds = 5
	}
	perRound := dto.PerRound
	if perRound == 0 {
		perRound = 5
	}

	set := &AssessmentSet{
		ID:           uuid.New(),
		UserID:       userID,
		Kind:         KindInterview,
		Title:        fmt.Sprintf("%s - %s", company, role),
		Company:      company,
		Role:         role,
		Type:         interviewType,
		TechStack:    datatypes.NewJSONSlice(dto.TechStack),
		Salary:       strings.TrimSpace(dto.Salary),
		NumQuestions: numQuestions,
		Rounds:       clamp(rounds, 1, 10),
		PerRound:     clamp(perRound, 5, 10),
		Generating:   true,
	}
	return s.createAndGenerate(ctx, log, set)
}

func (s *service) CreatePractice(ctx context.Context, dto CreatePracticeDTO) (*AssessmentSet, error) {
	log := config.WithContext(ctx)
	userID, err := getUserIDFromContext(ctx, log, "create practice set")
	if err != nil {
		return nil, err
	}

	language := orDefault(dto.Language, "English")
	subject := orDefault(dto.Subject, "DSA")
	numQuestions := dto.NumQuestions
	if numQuestions <= 0 {
		numQuestions = 20
	}

	set := &AssessmentSet{
		ID:           uuid.New(),
		UserID:       userID,
		Kind:         KindPractice,
		Title:        fmt.Sprintf("%s (%s)", subject, language),
		Language:     language,
		Subject:      subject,
		NumQuestions: clamp(numQuestions, 1, 50),
		Rounds:       1,
		PerRound:     clamp(numQuestions, 1, 50),
		Generating:   true,
	}
	return s.createAndGenerate(ctx, log, set)
}

func (s *service) createAndGenerate(ctx context.Context, log logrus.FieldLogger, set *AssessmentSet) (*AssessmentSet, error) {
	set.Topics = []Topic{}
	set.Results = []Result{}
	if err := s.repo.CreateSet(ctx, set); err != nil {
		log.WithError(err).Error("Failed to create assessment set")
		return nil, err
	}

	if !s.enqueue(ctx, log, set) {
		set.Generating = false
	}

	log.WithFields(logrus.Fields{"set_id": set.ID, "kind": set.Kind}).Info("Assessment set created, generation queued")
	return set, nil
}

// enqueue hands generation to the worker pool. A rejected job is recorded as a
// failed generation so the set stays retriable.
func (s *service) enqueue(ctx context.Context, log logrus.FieldLogger, set *AssessmentSet) bool {
	err := s.queue.Enqueue(generation.Job{SetID: set.ID, Spec: specFromSet(set)})
	if err == nil {
		return true
	}
	log.WithError(err).WithField("set_id", set.ID).Error("Failed to queue generation")
	if cerr := s.repo.ClearGenerating(ctx, set.ID); cerr != nil {
		log.WithError(cerr).WithField("set_id", set.ID).Error("Failed to clear generating flag")
	}
	return false
}

func specFromSet(set *AssessmentSet) generation.Spec {
	return generation.Spec{
		Kind:         generation.Kind(set.Kind),
		Company:      set.Company,
		Role:         set.Role,
		Type:         set.Type,
		TechStack:    append([]string(nil), set.TechStack...),
		Rounds:       set.Rounds,
		PerRound:     set.PerRound,
		NumQuestions: set.NumQuestions,
		Language:     set.Language,
		Subject:      set.Subject,
	}
}

func (s *service) Regenerate(ctx context.Context, setID string) error {
	log := config.WithContext(ctx)
	userID, err := getUserIDFromContext(ctx, log, "regenerate assessment")
	if err != nil {
		return err
	}
	id, err := parseUUID(log, setID, "assessment set")
	if err != nil {
		return err
	}

	set, err := s.repo.GetSet(ctx, id, userID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.WithError(err).Error("Error finding assessment set for regeneration")
		}
		return err
	}

	if err := s.repo.StartGeneration(ctx, id, userID); err != nil {
		log.WithError(err).Error("Failed to mark set as generating")
		return err
	}
	s.enqueue(ctx, log, set)

	log.WithField("set_id", id).Info("Regeneration queued")
	return nil
}

func (s *service) List(ctx context.Context) ([]SetSummary, error) {
	log := config.WithContext(ctx)
	userID, err := getUserIDFromContext(ctx, log, "list assessment sets")
	if err != nil {
		return nil, err
	}

	sets, err := s.repo.ListSetsByUser(ctx, userID)
	if err != nil {
		log.WithError(err).Error("Failed to list assessment sets")
		return nil, err
	}

	out := make([]SetSummary, 0, len(sets))
	for _, set := range sets {
		out = append(out, toSummary(set))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, setID string) (*AssessmentSet, error) {
	log := config.WithContext(ctx)
	userID, err := getUserIDFromContext(ctx, log, "get assessment set")
	if err != nil {
		return nil, err
	}
	id, err := parseUUID(log, setID, "assessment set")
	if err != nil {
		return nil, err
	}

	set, err := s.repo.GetSet(ctx, id, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.WithFields(logrus.Fields{"set_id": setID, "user_id": userID}).Warn("Assessment set not found or does not belong to user")
		} else {
			log.WithError(err).Error("Error finding assessment set")
		}
		return nil, err
	}
	return set, nil
}

func (s *service) loadTopic(ctx context.Context, setID, topicID string, action string) (*AssessmentSet, *Topic, error) {
	set, err := s.Get(ctx, setID)
	if err != nil {
		return nil, nil, err
	}
	topic, err := set.FindTopic(topicID)
	if err != nil {
		config.WithContext(ctx).WithFields(logrus.Fields{
			"set_id":   setID,
			"topic_id": topicID,
		}).Warnf("Topic not found to %s", action)
		return nil, nil, err
	}
	return set, topic, nil
}

func normalizeIndexSet(values []int, size int) datatypes.JSONSlice[int] {
	seen := make(map[int]bool, len(values))
	out := make([]int, 0, len(values))
	for _, v := range values {
		if v < 0 || v >= size || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Ints(out)
	return datatypes.NewJSONSlice(out)
}

func (s *service) SaveProgress(ctx context.Context, setID string, in ProgressInput) error {
	log := config.WithContext(ctx)
	set, topic, err := s.loadTopic(ctx, setID, in.TopicID, "save progress")
	if err != nil {
		return err
	}
	if topic.Completed {
		log.WithField("topic_id", topic.ID).Info("Progress save rejected for completed topic")
		return ErrAlreadyCompleted
	}

	answers := in.Answers
	if answers == nil {
		answers = []int{}
	}
	now := s.now()
	progress := Progress{
		Answers:      datatypes.NewJSONSlice(answers),
		RemainingSec: max(in.RemainingSec, 0),
		Locked:       normalizeIndexSet(in.Locked, len(topic.Questions)),
		Flags:        normalizeIndexSet(in.Flags, len(topic.Questions)),
		UpdatedAt:    &now,
	}

	if err := s.repo.SaveProgress(ctx, set.ID, topic.ID, progress); err != nil {
		if !errors.Is(err, ErrAlreadyCompleted) && !errors.Is(err, ErrTopicNotFound) {
			log.WithError(err).Error("Failed to save progress")
		}
		return err
	}
	return nil
}

func (s *service) Submit(ctx context.Context, setID string, in SubmitInput) (*SubmitResponse, error) {
	log := config.WithContext(ctx)
	set, topic, err := s.loadTopic(ctx, setID, in.TopicID, "submit")
	if err != nil {
		return nil, err
	}
	if topic.Completed {
		log.WithField("topic_id", topic.ID).Warn("Resubmission rejected for completed topic")
		return nil, ErrAlreadyCompleted
	}

	questions := topic.ScoringQuestions()
	score := scoring.Evaluate(questions, scoring.Normalize(questions, in.Answers))
	duration := max(in.DurationSec, 0)

	result := &Result{
		ID:          uuid.New(),
		SetID:       set.ID,
		TopicID:     topic.ID,
		Correct:     score.Correct,
		Total:       score.Total,
		DurationSec: duration,
		TakenAt:     s.now(),
	}
	if err := s.repo.CompleteTopic(ctx, set.ID, topic.ID, score.Percentage, result); err != nil {
		if !errors.Is(err, ErrAlreadyCompleted) {
			log.WithError(err).Error("Failed to store submission")
		}
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"set_id":   set.ID,
		"topic_id": topic.ID,
		"correct":  score.Correct,
		"total":    score.Total,
	}).Info("Topic submitted")

	return &SubmitResponse{
		Score:       score.Percentage,
		Correct:     score.Correct,
		Total:       score.Total,
		DurationSec: duration,
	}, nil
}

func (s *service) Retake(ctx context.Context, setID string, in RetakeInput) error {
	log := config.WithContext(ctx)
	set, topic, err := s.loadTopic(ctx, setID, in.TopicID, "retake")
	if err != nil {
		return err
	}

	reset, err := s.repo.ResetTopic(ctx, set.ID, topic.ID)
	if err != nil {
		log.WithError(err).Error("Failed to reset topic")
		return err
	}
	if !reset {
		log.WithField("topic_id", topic.ID).Debug("Retake ignored, topic not completed")
		return nil
	}

	log.WithFields(logrus.Fields{"set_id": set.ID, "topic_id": topic.ID}).Info("Topic reset for retake")
	return nil
}

func (s *service) LatestResult(ctx context.Context, setID, topicID string) (*Result, error) {
	set, topic, err := s.loadTopic(ctx, setID, topicID, "read latest result")
	if err != nil {
		return nil, err
	}
	latest := set.LatestResult(topic.ID)
	if latest == nil {
		return nil, ErrNotFound
	}
	return latest, nil
}

// RecoverStaleGenerations releases sets left generating by a process that
// stopped mid-job, so they can be regenerated. It is not scoped to a user.
func (s *service) RecoverStaleGenerations(ctx context.Context, maxAge time.Duration) (int64, error) {
	log := config.WithContext(ctx)
	n, err := s.repo.ClearStaleGenerating(ctx, s.now().Add(-maxAge))
	if err != nil {
		log.WithError(err).Error("Failed to clear stale generations")
		return 0, err
	}
	if n > 0 {
		log.WithField("sets", n).Warn("Cleared stale generations")
	}
	return n, nil
}
