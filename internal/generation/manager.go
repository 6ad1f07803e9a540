package generation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/saulo-duarte/chronos-prep/internal/config"
	"github.com/sirupsen/logrus"
)

var (
	ErrGenerationFailed = errors.New("generation failed")
	ErrQueueFull        = errors.New("generation queue is full")
	ErrManagerStopped   = errors.New("generation manager stopped")
)

// Finalizer records the outcome of a job on the owning set. Both calls must
// clear the set's generating flag atomically with any question changes.
type Finalizer interface {
	CompleteGeneration(ctx context.Context, setID uuid.UUID, topics []Topic) error
	FailGeneration(ctx context.Context, setID uuid.UUID) error
}

type Enqueuer interface {
	Enqueue(job Job) error
}

type ManagerOptions struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

type Manager struct {
	generator Generator
	finalizer Finalizer
	opts      ManagerOptions

	jobs   chan Job
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewManager(generator Generator, finalizer Finalizer, opts ManagerOptions) *Manager {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.QueueSize < 1 {
		opts.QueueSize = 16
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Minute
	}
	return &Manager{
		generator: generator,
		finalizer: finalizer,
		opts:      opts,
		jobs:      make(chan Job, opts.QueueSize),
	}
}

func (m *Manager) Start(ctx context.Context) {
	config.WithContext(ctx).WithField("workers", m.opts.Workers).Info("Starting generation workers")
	for i := 0; i < m.opts.Workers; i++ {
		m.wg.Add(1)
		go m.runLoop(ctx, i+1)
	}
}

// Enqueue hands a job to the worker pool without blocking the caller.
func (m *Manager) Enqueue(job Job) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrManagerStopped
	}
	select {
	case m.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop rejects new jobs and waits for queued ones to drain.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.closed {
		m.closed = true
		close(m.jobs)
	}
	m.mu.Unlock()
	m.wg.Wait()
}

func (m *Manager) runLoop(ctx context.Context, workerID int) {
	defer m.wg.Done()
	for job := range m.jobs {
		m.process(ctx, workerID, job)
	}
}

func (m *Manager) process(ctx context.Context, workerID int, job Job) {
	log := config.WithContext(ctx).WithFields(logrus.Fields{
		"worker_id": workerID,
		"set_id":    job.SetID,
		"kind":      job.Spec.Kind,
	})

	topics, err := m.run(ctx, job)

	// Finalize even when the worker context is shutting down.
	finCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err != nil {
		log.WithError(err).Error("Generation failed, set left ready for retry")
		if ferr := m.finalizer.FailGeneration(finCtx, job.SetID); ferr != nil {
			log.WithError(ferr).Error("Failed to record generation failure")
		}
		return
	}

	if err := m.finalizer.CompleteGeneration(finCtx, job.SetID, topics); err != nil {
		log.WithError(err).Error("Failed to store generated questions")
		if ferr := m.finalizer.FailGeneration(finCtx, job.SetID); ferr != nil {
			log.WithError(ferr).Error("Failed to record generation failure")
		}
		return
	}
	log.WithField("topics", len(topics)).Info("Generation completed")
}

func (m *Manager) run(ctx context.Context, job Job) (topics []Topic, err error) {
	defer func() {
		if r := recover(); r != nil {
			topics, err = nil, fmt.Errorf("%w: panic: %v", ErrGenerationFailed, r)
		}
	}()

	jobCtx, cancel := context.WithTimeout(ctx, m.opts.Timeout)
	defer cancel()

	topics, err = m.generator.Generate(jobCtx, job.Spec)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	if len(topics) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, ErrNoUsableQuestions)
	}
	return topics, nil
}
