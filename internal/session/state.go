package session

import (
	"errors"
	"sort"

	"github.com/saulo-duarte/chronos-prep/internal/scoring"
)

var (
	ErrNoSelection   = errors.New("no option selected")
	ErrNotInProgress = errors.New("session is not in progress")
	ErrOutOfRange    = errors.New("index out of range")
	ErrLocked        = errors.New("question is locked")
	ErrNotCompleted  = errors.New("topic is not completed")
)

type QuestionState int

const (
	Unanswered QuestionState = iota
	Answered
	LockedCorrect
	LockedIncorrect
)

func (q QuestionState) String() string {
	switch q {
	case Answered:
		return "answered"
	case LockedCorrect:
		return "locked_correct"
	case LockedIncorrect:
		return "locked_incorrect"
	default:
		return "unanswered"
	}
}

type Status int

const (
	NotStarted Status = iota
	InProgress
	Completed
)

func (s Status) String() string {
	switch s {
	case InProgress:
		return "in_progress"
	case Completed:
		return "completed"
	default:
		return "not_started"
	}
}

// Session is the in-memory attempt at one topic. It is not safe for
// concurrent use; Coordinator serialises access.
type Session struct {
	questions []scoring.Question
	answers   []int
	locked    []bool
	flags     []bool
	current   int
	duration  int
	remaining int
	status    Status
}

func New(questions []scoring.Question, durationSec int) *Session {
	s := &Session{questions: questions, duration: max(durationSec, 0)}
	s.clear()
	return s
}

func (s *Session) clear() {
	n := len(s.questions)
	s.answers = make([]int, n)
	for i := range s.answers {
		s.answers[i] = scoring.Unanswered
	}
	s.locked = make([]bool, n)
	s.flags = make([]bool, n)
	s.current = 0
	s.remaining = s.duration
}

// ValidSnapshot reports whether snap fits the given questions. Anything that
// does not fit is discarded as a whole by Restore.
func ValidSnapshot(snap Snapshot, questions []scoring.Question) bool {
	n := len(questions)
	if len(snap.Answers) != n {
		return false
	}
	for i, a := range snap.Answers {
		if a != scoring.Unanswered && (a < 0 || a >= len(questions[i].Options)) {
			return false
		}
	}
	for _, idx := range snap.Locked {
		if idx < 0 || idx >= n || snap.Answers[idx] == scoring.Unanswered {
			return false
		}
	}
	for _, idx := range snap.Flags {
		if idx < 0 || idx >= n {
			return false
		}
	}
	return snap.RemainingSec >= 0
}

// Restore applies a stored snapshot. remainingSec overrides the snapshot's own
// timer so callers can pick the timer source independently.
func (s *Session) Restore(snap Snapshot, remainingSec int) bool {
	if !ValidSnapshot(snap, s.questions) {
		return false
	}
	s.clear()
	copy(s.answers, snap.Answers)
	for _, idx := range snap.Locked {
		s.locked[idx] = true
	}
	for _, idx := range snap.Flags {
		s.flags[idx] = true
	}
	s.remaining = max(remainingSec, 0)
	return true
}

func (s *Session) SetRemaining(sec int) { s.remaining = max(sec, 0) }

func (s *Session) Start() {
	if s.status == NotStarted {
		s.status = InProgress
	}
}

func (s *Session) inRange(idx int) bool { return idx >= 0 && idx < len(s.questions) }

func (s *Session) SelectOption(idx, option int) error {
	if s.status != InProgress {
		return ErrNotInProgress
	}
	if !s.inRange(idx) || option < 0 || option >= len(s.questions[idx].Options) {
		return ErrOutOfRange
	}
	if s.locked[idx] {
		return ErrLocked
	}
	s.answers[idx] = option
	return nil
}

// LockAnswer freezes the current selection and reports whether it was
// correct. Locking twice is a no-op that reports the same outcome.
func (s *Session) LockAnswer(idx int) (bool, error) {
	if s.status != InProgress {
		return false, ErrNotInProgress
	}
	if !s.inRange(idx) {
		return false, ErrOutOfRange
	}
	correct := scoring.IsCorrect(s.questions[idx], s.answers[idx])
	if s.locked[idx] {
		return correct, nil
	}
	if s.answers[idx] == scoring.Unanswered {
		return false, ErrNoSelection
	}
	s.locked[idx] = true
	return correct, nil
}

func (s *Session) ToggleFlag(idx int) error {
	if !s.inRange(idx) {
		return ErrOutOfRange
	}
	s.flags[idx] = !s.flags[idx]
	return nil
}

func (s *Session) Goto(idx int) error {
	if !s.inRange(idx) {
		return ErrOutOfRange
	}
	s.current = idx
	return nil
}

func (s *Session) Next() int {
	if s.current < len(s.questions)-1 {
		s.current++
	}
	return s.current
}

func (s *Session) Prev() int {
	if s.current > 0 {
		s.current--
	}
	return s.current
}

// Tick advances the countdown by one second, flooring at zero.
func (s *Session) Tick() int {
	if s.status == InProgress && s.remaining > 0 {
		s.remaining--
	}
	return s.remaining
}

// Submit scores every selected answer, locked or not.
func (s *Session) Submit() (scoring.Score, error) {
	if s.status != InProgress {
		return scoring.Score{}, ErrNotInProgress
	}
	score := scoring.Evaluate(s.questions, s.answers)
	s.status = Completed
	return score, nil
}

// Reset prepares the session for a retake. Start must be called again.
func (s *Session) Reset() {
	s.clear()
	s.status = NotStarted
}

func (s *Session) QuestionState(idx int) QuestionState {
	if !s.inRange(idx) || s.answers[idx] == scoring.Unanswered {
		return Unanswered
	}
	if !s.locked[idx] {
		return Answered
	}
	if scoring.IsCorrect(s.questions[idx], s.answers[idx]) {
		return LockedCorrect
	}
	return LockedIncorrect
}

func (s *Session) Status() Status { return s.status }
func (s *Session) Current() int { return s.current }
func (s *Session) Remaining() int { return s.remaining }
func (s *Session) Duration() int { return s.duration }
func (s *Session) Len() int { return len(s.questions) }
func (s *Session) Flagged(idx int) bool { return s.inRange(idx) && s.flags[idx] }

// Elapsed is the time spent so far, used as the submission duration.
func (s *Session) Elapsed() int { return max(s.duration-s.remaining, 0) }

func (s *Session) Answers() []int { return append([]int(nil), s.answers...) }

func indexes(marks []bool) []int {
	out := []int{}
	for i, set := range marks {
		if set {
			out = append(out, i)
		}
	}
	sort.Ints(out)
	return out
}

// Snapshot returns the persistable state. A completed session yields the empty
// snapshot.
func (s *Session) Snapshot() Snapshot {
	if s.status == Completed {
		return Snapshot{Answers: []int{}, Locked: []int{}, Flags: []int{}}
	}
	return Snapshot{
		Answers:      s.Answers(),
		RemainingSec: s.remaining,
		Locked:       indexes(s.locked),
		Flags:        indexes(s.flags),
	}
}
