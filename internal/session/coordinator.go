package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/saulo-duarte/chronos-prep/internal/config"
	"github.com/sirupsen/logrus"
)

type Options struct {
	InterviewDuration time.Duration
	PracticeDuration  time.Duration
	Debounce          time.Duration
	TickInterval      time.Duration
	SaveTimeout       time.Duration
}

func DefaultOptions() Options {
	return Options{
		InterviewDuration: 60 * time.Minute,
		PracticeDuration:  20 * time.Minute,
		Debounce:          600 * time.Millisecond,
		TickInterval:      time.Second,
		SaveTimeout:       10 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.InterviewDuration <= 0 {
		o.InterviewDuration = d.InterviewDuration
	}
	if o.PracticeDuration <= 0 {
		o.PracticeDuration = d.PracticeDuration
	}
	if o.Debounce <= 0 {
		o.Debounce = d.Debounce
	}
	if o.TickInterval <= 0 {
		o.TickInterval = d.TickInterval
	}
	if o.SaveTimeout <= 0 {
		o.SaveTimeout = d.SaveTimeout
	}
	return o
}

func (o Options) durationFor(kind string) int {
	if kind == "practice" {
		return int(o.PracticeDuration / time.Second)
	}
	return int(o.InterviewDuration / time.Second)
}

// View is a read-only copy of the session for rendering.
type View struct {
	Status    Status
	Current   int
	Remaining int
	Answers   []int
	States    []QuestionState
	Flags     []int
}

// Coordinator owns one Session and keeps the local cache and the remote store
// in step with it. All state sits behind mu; network calls run without it.
type Coordinator struct {
	remote  RemoteStore
	cache   LocalCache
	opts    Options
	setID   string
	topicID string
	log     logrus.FieldLogger

	mu             sync.Mutex
	session        *Session
	seq            uint64
	gen            uint64
	timer          *time.Timer
	cancelInflight context.CancelFunc
	terminal       bool
	closed         bool
	ticking        bool
	stopTick       chan struct{}

	// sem allows a single in-flight autosave.
	sem chan struct{}

	cacheMu   sync.Mutex
	mirrored  uint64
	cacheDone bool
}

// Open loads a topic and restores its progress. Remote answers win when they
// fit the questions, then the local cache, then a fresh attempt. The timer
// takes the first positive remaining value in the same order.
func Open(ctx context.Context, remote RemoteStore, cache LocalCache, setID, topicID string, opts Options) (*Coordinator, error) {
	if cache == nil {
		cache = NewMemoryCache()
	}
	opts = opts.withDefaults()

	set, err := remote.FetchSet(ctx, setID)
	if err != nil {
		return nil, err
	}
	if set.Generating || len(set.Topics) == 0 {
		return nil, ErrNotReady
	}
	topic, ok := set.findTopic(topicID)
	if !ok {
		return nil, ErrNotFound
	}
	if topic.Completed {
		return nil, ErrAlreadyCompleted
	}
	if len(topic.Questions) == 0 {
		return nil, ErrNotReady
	}

	questions := topic.scoringQuestions()
	s := New(questions, opts.durationFor(set.Kind))

	remoteOK := ValidSnapshot(topic.Progress, questions)
	local, localOK := cache.Load(ctx, setID, topic.ID)
	localOK = localOK && ValidSnapshot(local, questions)

	remaining := s.Duration()
	switch {
	case remoteOK && topic.Progress.RemainingSec > 0:
		remaining = topic.Progress.RemainingSec
	case localOK && local.RemainingSec > 0:
		remaining = local.RemainingSec
	}

	switch {
	case remoteOK:
		s.Restore(topic.Progress, remaining)
	case localOK:
		s.Restore(local, remaining)
	default:
		s.SetRemaining(remaining)
	}
	s.Start()

	log := config.WithContext(ctx).WithFields(logrus.Fields{
		"set_id":   setID,
		"topic_id": topic.ID,
	})
	log.WithFields(logrus.Fields{
		"restored_remote": remoteOK,
		"restored_local":  !remoteOK && localOK,
		"remaining_sec":   remaining,
	}).Debug("Session opened")

	return &Coordinator{
		remote:  remote,
		cache:   cache,
		opts:    opts,
		setID:   setID,
		topicID: topic.ID,
		log:     log,
		session: s,
		sem:     make(chan struct{}, 1),
	}, nil
}

func (c *Coordinator) TopicID() string { return c.topicID }

// Start runs the countdown ticker until the session ends or ExitFlush/Close
// is called.
func (c *Coordinator) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.ticking = true
	c.startTickerLocked()
}

func (c *Coordinator) startTickerLocked() {
	if c.stopTick != nil {
		return
	}
	stop := make(chan struct{})
	c.stopTick = stop
	interval := c.opts.TickInterval
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				c.Tick()
			}
		}
	}()
}

func (c *Coordinator) stopTickerLocked() {
	if c.stopTick != nil {
		close(c.stopTick)
		c.stopTick = nil
	}
}

// Tick decrements the countdown once. It counts as a mutation.
func (c *Coordinator) Tick() int {
	c.mu.Lock()
	if c.closed || c.session.Status() != InProgress {
		rem := c.session.Remaining()
		c.mu.Unlock()
		return rem
	}
	rem := c.session.Tick()
	seq, snap := c.mutatedLocked()
	c.mu.Unlock()

	c.mirror(seq, snap)
	return rem
}

func (c *Coordinator) mutate(fn func(s *Session) error) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrNotInProgress
	}
	if err := fn(c.session); err != nil {
		c.mu.Unlock()
		return err
	}
	seq, snap := c.mutatedLocked()
	c.mu.Unlock()

	c.mirror(seq, snap)
	return nil
}

func (c *Coordinator) SelectOption(idx, option int) error {
	return c.mutate(func(s *Session) error { return s.SelectOption(idx, option) })
}

func (c *Coordinator) LockAnswer(idx int) (bool, error) {
	var correct bool
	err := c.mutate(func(s *Session) error {
		var err error
		correct, err = s.LockAnswer(idx)
		return err
	})
	return correct, err
}

func (c *Coordinator) ToggleFlag(idx int) error {
	return c.mutate(func(s *Session) error { return s.ToggleFlag(idx) })
}

func (c *Coordinator) Goto(idx int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Goto(idx)
}

func (c *Coordinator) Next() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Next()
}

func (c *Coordinator) Prev() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Prev()
}

func (c *Coordinator) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.session
	states := make([]QuestionState, s.Len())
	for i := range states {
		states[i] = s.QuestionState(i)
	}
	return View{
		Status:    s.Status(),
		Current:   s.Current(),
		Remaining: s.Remaining(),
		Answers:   s.Answers(),
		States:    states,
		Flags:     indexes(s.flags),
	}
}

func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Snapshot()
}

// Terminal reports whether the server has refused further saves.
func (c *Coordinator) Terminal() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.terminal
}

func (c *Coordinator) mutatedLocked() (uint64, Snapshot) {
	c.seq++
	c.scheduleSaveLocked()
	return c.seq, c.session.Snapshot()
}

// mirror writes to the local cache outside mu, dropping writes older than the
// last one applied.
func (c *Coordinator) mirror(seq uint64, snap Snapshot) {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	if c.cacheDone || seq <= c.mirrored {
		return
	}
	c.mirrored = seq
	c.cache.Save(context.Background(), c.setID, c.topicID, snap)
}

func (c *Coordinator) cancelSaveLocked() {
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.cancelInflight != nil {
		c.cancelInflight()
		c.cancelInflight = nil
	}
}

func (c *Coordinator) scheduleSaveLocked() {
	if c.terminal || c.closed || c.session.Status() != InProgress {
		return
	}
	c.cancelSaveLocked()
	gen := c.gen
	c.timer = time.AfterFunc(c.opts.Debounce, func() { c.autosave(gen) })
}

func (c *Coordinator) autosave(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.terminal || c.closed || c.session.Status() != InProgress {
		c.mu.Unlock()
		return
	}
	snap := c.session.Snapshot()
	ctx, cancel := context.WithTimeout(context.Background(), c.opts.SaveTimeout)
	c.cancelInflight = cancel
	c.timer = nil
	c.mu.Unlock()
	defer cancel()

	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return
	}
	err := c.remote.SaveProgress(ctx, c.setID, c.topicID, snap)
	<-c.sem

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen == c.gen {
		c.cancelInflight = nil
	}
	switch {
	case err == nil:
	case errors.Is(err, ErrAlreadyCompleted):
		c.terminal = true
		c.cancelSaveLocked()
		c.log.Info("Topic completed elsewhere, autosave stopped")
	case errors.Is(err, context.Canceled):
	default:
		c.log.WithError(err).Warn("Autosave failed")
	}
}

// Flush saves the current state now, bypassing the debounce. It is meant for
// callers that exit right after and cannot rely on ExitFlush finishing.
func (c *Coordinator) Flush(ctx context.Context) error {
	c.mu.Lock()
	if c.terminal {
		c.mu.Unlock()
		return ErrAlreadyCompleted
	}
	if c.closed || c.session.Status() != InProgress {
		c.mu.Unlock()
		return ErrNotInProgress
	}
	c.cancelSaveLocked()
	snap := c.session.Snapshot()
	c.mu.Unlock()

	err := c.remote.SaveProgress(ctx, c.setID, c.topicID, snap)
	if errors.Is(err, ErrAlreadyCompleted) {
		c.mu.Lock()
		c.terminal = true
		c.mu.Unlock()
	}
	return err
}

// ExitFlush sends one last save in the background and stops the session's
// timers. The result is never observed.
func (c *Coordinator) ExitFlush() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.stopTickerLocked()
	c.cancelSaveLocked()
	send := !c.terminal && c.session.Status() == InProgress
	snap := c.session.Snapshot()
	c.mu.Unlock()

	if !send {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.opts.SaveTimeout)
		defer cancel()
		if err := c.remote.SaveProgress(ctx, c.setID, c.topicID, snap); err != nil {
			c.log.WithError(err).Debug("Exit flush failed")
		}
	}()
}

// Close stops timers without saving.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.stopTickerLocked()
	c.cancelSaveLocked()
}

// Submit sends every selected answer to the remote store. On success the
// local cache entry and any pending autosave are dropped.
func (c *Coordinator) Submit(ctx context.Context) (*Result, error) {
	c.mu.Lock()
	if c.closed || c.session.Status() != InProgress {
		c.mu.Unlock()
		return nil, ErrNotInProgress
	}
	answers := c.session.Answers()
	duration := c.session.Elapsed()
	c.mu.Unlock()

	res, err := c.remote.Submit(ctx, c.setID, c.topicID, answers, duration)
	if err != nil {
		if errors.Is(err, ErrAlreadyCompleted) {
			c.mu.Lock()
			c.terminal = true
			c.cancelSaveLocked()
			c.mu.Unlock()
		}
		return nil, err
	}

	c.mu.Lock()
	if _, err := c.session.Submit(); err != nil {
		c.log.WithError(err).Debug("Session already closed at submit")
	}
	c.stopTickerLocked()
	c.cancelSaveLocked()
	c.mu.Unlock()

	c.cacheMu.Lock()
	c.cacheDone = true
	c.cache.Delete(ctx, c.setID, c.topicID)
	c.cacheMu.Unlock()

	c.log.WithFields(logrus.Fields{
		"score":   res.Score,
		"correct": res.Correct,
		"total":   res.Total,
	}).Info("Session submitted")
	return res, nil
}

// RetakeTopic reopens a completed topic remotely and drops its cached
// progress. It serves callers whose Open failed with ErrAlreadyCompleted.
func RetakeTopic(ctx context.Context, remote RemoteStore, cache LocalCache, setID, topicID string) error {
	if err := remote.Retake(ctx, setID, topicID); err != nil {
		return err
	}
	if cache != nil {
		cache.Delete(ctx, setID, topicID)
	}
	return nil
}

// Retake resets a completed topic remotely and restarts this session from
// scratch at the full duration. A topic completed elsewhere counts as completed.
func (c *Coordinator) Retake(ctx context.Context) error {
	c.mu.Lock()
	if c.session.Status() != Completed && !c.terminal {
		c.mu.Unlock()
		return ErrNotCompleted
	}
	c.mu.Unlock()

	if err := c.remote.Retake(ctx, c.setID, c.topicID); err != nil {
		return err
	}
	c.cacheMu.Lock()
	c.cacheDone = false
	c.cache.Delete(ctx, c.setID, c.topicID)
	c.cacheMu.Unlock()

	c.mu.Lock()
	c.cancelSaveLocked()
	c.session.Reset()
	c.session.Start()
	c.terminal = false
	c.closed = false
	if c.ticking {
		c.startTickerLocked()
	}
	c.mu.Unlock()

	c.log.Info("Session restarted for retake")
	return nil
}
