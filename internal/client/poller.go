package client

import (
	"context"
	"errors"
	"time"

	"github.com/saulo-duarte/chronos-prep/internal/config"
	"github.com/saulo-duarte/chronos-prep/internal/session"
)

var ErrPollTimeout = errors.New("generation still running after max polls")

const (
	DefaultPollInterval = 2 * time.Second
	DefaultMaxPolls     = 150
)

type Lister interface {
	ListSets(ctx context.Context) ([]session.SetStatus, error)
}

func anyGenerating(sets []session.SetStatus) bool {
	for _, s := range sets {
		if s.Generating {
			return true
		}
	}
	return false
}

// WaitForGeneration polls the set list until no set is generating. Failed
// polls count against maxPolls and are otherwise ignored.
func WaitForGeneration(ctx context.Context, lister Lister, interval time.Duration, maxPolls int) ([]session.SetStatus, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if maxPolls <= 0 {
		maxPolls = DefaultMaxPolls
	}
	log := config.WithContext(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for poll := 1; ; poll++ {
		sets, err := lister.ListSets(ctx)
		switch {
		case err == nil && !anyGenerating(sets):
			return sets, nil
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.WithError(err).WithField("poll", poll).Debug("Generation poll failed")
		}

		if poll >= maxPolls {
			return sets, ErrPollTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
