package container

import (
	"context"
	"fmt"
	"net/http"

	"github.com/saulo-duarte/chronos-prep/internal/assessment"
	"github.com/saulo-duarte/chronos-prep/internal/auth"
	"github.com/saulo-duarte/chronos-prep/internal/config"
	"github.com/saulo-duarte/chronos-prep/internal/generation"
	"github.com/saulo-duarte/chronos-prep/internal/router"
)

type Container struct {
	Settings            config.Settings
	AssessmentContainer *assessment.AssessmentContainer
	GenerationContainer *generation.GenerationContainer
}

// New loads settings, connects the database and wires the generation pool to
// the assessment service. The pool is not started here.
func New(ctx context.Context) (*Container, error) {
	settings := config.Load()
	config.InitLogger(settings.LogLevel, settings.LogFormat)
	auth.Init()

	if err := config.Connect(ctx, settings.DatabaseDSN); err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	assessmentContainer := assessment.NewAssessmentContainer(config.DB)
	generationContainer, err := generation.NewGenerationContainer(ctx, settings, assessmentContainer.Finalizer)
	if err != nil {
		return nil, fmt.Errorf("generation provider: %w", err)
	}
	assessmentContainer.AttachQueue(generationContainer.Manager)

	return &Container{
		Settings:            settings,
		AssessmentContainer: assessmentContainer,
		GenerationContainer: generationContainer,
	}, nil
}

func (c *Container) Router() http.Handler {
	return router.New(router.RouterConfig{
		AssessmentHandler: c.AssessmentContainer.Handler,
		CorsOrigins:       c.Settings.CorsOrigins,
	})
}
