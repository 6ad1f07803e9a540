package assessment

import (
	"github.com/saulo-duarte/chronos-prep/internal/generation"
	"gorm.io/gorm"
)

type AssessmentContainer struct {
	Repo      Repository
	Finalizer *Finalizer
	Service   Service
	Handler   *Handler
}

// NewAssessmentContainer wires the HTTP side. The queue is attached later with
// AttachQueue because the generation manager needs the finalizer first.
func NewAssessmentContainer(db *gorm.DB) *AssessmentContainer {
	repo := NewRepository(db)
	return &AssessmentContainer{
		Repo:      repo,
		Finalizer: NewFinalizer(repo),
	}
}

func (c *AssessmentContainer) AttachQueue(queue generation.Enqueuer) {
	c.Service = NewService(c.Repo, queue)
	c.Handler = NewHandler(c.Service)
}
