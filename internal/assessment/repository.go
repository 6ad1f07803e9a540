package assessment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Repository interface {
	CreateSet(ctx context.Context, set *AssessmentSet) error
	GetSet(ctx context.Context, id, userID uuid.UUID) (*AssessmentSet, error)
	ListSetsByUser(ctx context.Context, userID uuid.UUID) ([]*AssessmentSet, error)

	StartGeneration(ctx context.Context, id, userID uuid.UUID) error
	ReplaceTopics(ctx context.Context, setID uuid.UUID, topics []Topic) error
	ClearGenerating(ctx context.Context, setID uuid.UUID) error
	ClearStaleGenerating(ctx context.Context, before time.Time) (int64, error)

	SaveProgress(ctx context.Context, setID, topicID uuid.UUID, p Progress) error
	CompleteTopic(ctx context.Context, setID, topicID uuid.UUID, lastScore int, result *Result) error
	ResetTopic(ctx context.Context, setID, topicID uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func AutoMigrate(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		return err
	}
	return db.AutoMigrate(&AssessmentSet{}, &Topic{}, &Question{}, &Result{})
}

func byOrderIndex(db *gorm.DB) *gorm.DB { return db.Order("order_index ASC") }

func byTakenAt(db *gorm.DB) *gorm.DB { return db.Order("taken_at ASC") }

func emptyProgress(now time.Time) map[string]interface{} {
	return map[string]interface{}{
		"progress_answers":       datatypes.JSONSlice[int]{},
		"progress_remaining_sec": 0,
		"progress_locked":        datatypes.JSONSlice[int]{},
		"progress_flags":         datatypes.JSONSlice[int]{},
		"progress_updated_at":    now,
	}
}

func (r *repository) CreateSet(ctx context.Context, set *AssessmentSet) error {
	return r.db.WithContext(ctx).Create(set).Error
}

func (r *repository) GetSet(ctx context.Context, id, userID uuid.UUID) (*AssessmentSet, error) {
	var set AssessmentSet
	err := r.db.WithContext(ctx).
		Preload("Topics", byOrderIndex).
		Preload("Topics.Questions", byOrderIndex).
		Preload("Results", byTakenAt).
		First(&set, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &set, nil
}

func (r *repository) ListSetsByUser(ctx context.Context, userID uuid.UUID) ([]*AssessmentSet, error) {
	var sets []*AssessmentSet
	if err := r.db.WithContext(ctx).
		Preload("Topics", byOrderIndex).
		Preload("Results", byTakenAt).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&sets).Error; err != nil {
		return nil, err
	}
	return sets, nil
}

func (r *repository) StartGeneration(ctx context.Context, id, userID uuid.UUID) error {
	res := r.db.WithContext(ctx).Model(&AssessmentSet{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("generating", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceTopics swaps the whole topic list of a set and clears its generating
// flag in one transaction. Prior results stay as archived history.
func (r *repository) ReplaceTopics(ctx context.Context, setID uuid.UUID, topics []Topic) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		oldTopics := tx.Model(&Topic{}).Select("id").Where("set_id = ?", setID)
		if err := tx.Where("topic_id IN (?)", oldTopics).Delete(&Question{}).Error; err != nil {
			return err
		}
		if err := tx.Where("set_id = ?", setID).Delete(&Topic{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&Result{}).
			Where("set_id = ? AND archived = ?", setID, false).
			Update("archived", true).Error; err != nil {
			return err
		}

		for i := range topics {
			topics[i].SetID = setID
		}
		if len(topics) > 0 {
			if err := tx.Create(&topics).Error; err != nil {
				return err
			}
		}

		res := tx.Model(&AssessmentSet{}).Where("id = ?", setID).Update("generating", false)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *repository) ClearGenerating(ctx context.Context, setID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&AssessmentSet{}).
		Where("id = ?", setID).
		Update("generating", false).Error
}

// ClearStaleGenerating clears the generating flag on sets whose generation
// started before the cutoff and never finished.
func (r *repository) ClearStaleGenerating(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&AssessmentSet{}).
		Where("generating = ? AND updated_at < ?", true, before).
		Update("generating", false)
	return res.RowsAffected, res.Error
}

// topicState explains why a conditional topic update matched no rows.
func topicState(tx *gorm.DB, setID, topicID uuid.UUID) (*Topic, error) {
	var t Topic
	if err := tx.Select("id", "completed").First(&t, "id = ? AND set_id = ?", topicID, setID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTopicNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *repository) SaveProgress(ctx context.Context, setID, topicID uuid.UUID, p Progress) error {
	db := r.db.WithContext(ctx)
	updatedAt := time.Now()
	if p.UpdatedAt != nil {
		updatedAt = *p.UpdatedAt
	}

	res := db.Model(&Topic{}).
		Where("id = ? AND set_id = ? AND completed = ?", topicID, setID, false).
		Updates(map[string]interface{}{
			"progress_answers":       p.Answers,
			"progress_remaining_sec": p.RemainingSec,
			"progress_locked":        p.Locked,
			"progress_flags":         p.Flags,
			"progress_updated_at":    updatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	t, err := topicState(db, setID, topicID)
	if err != nil {
		return err
	}
	if t.Completed {
		return ErrAlreadyCompleted
	}
	return nil
}

// CompleteTopic marks a topic completed, clears its snapshot and appends the
// result. The completed = false guard makes concurrent submits fail cleanly.
func (r *repository) CompleteTopic(ctx context.Context, setID, topicID uuid.UUID, lastScore int, result *Result) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fields := emptyProgress(result.TakenAt)
		fields["completed"] = true
		fields["last_score"] = lastScore
		fields["total_questions"] = result.Total

		res := tx.Model(&Topic{}).
			Where("id = ? AND set_id = ? AND completed = ?", topicID, setID, false).
			Updates(fields)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			if _, err := topicState(tx, setID, topicID); err != nil {
				return err
			}
			return ErrAlreadyCompleted
		}

		return tx.Create(result).Error
	})
}

// ResetTopic reopens a completed topic. It reports false when the topic was
// not completed, which makes repeated retakes no-ops.
func (r *repository) ResetTopic(ctx context.Context, setID, topicID uuid.UUID) (bool, error) {
	reset := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fields := emptyProgress(time.Now())
		fields["completed"] = false
		fields["last_score"] = 0

		res := tx.Model(&Topic{}).
			Where("id = ? AND set_id = ? AND completed = ?", topicID, setID, true).
			Updates(fields)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			_, err := topicState(tx, setID, topicID)
			return err
		}
		reset = true

		return tx.Model(&Result{}).
			Where("set_id = ? AND topic_id = ? AND archived = ?", setID, topicID, false).
			Update("archived", true).Error
	})
	return reset, err
}
