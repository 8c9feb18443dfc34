package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fluentpath/detprep-backend/internal/exercise"
	"github.com/fluentpath/detprep-backend/internal/model"
)

var (
	ErrNotActive     = errors.New("session is not active")
	ErrAlreadyActive = errors.New("session is already active")
	ErrTornDown      = errors.New("session was torn down")
)

// FinishFunc receives the result exactly once, on the terminal transition.
// It is called with the machine lock held; keep it cheap (hand off to a
// queue or channel).
type FinishFunc func(result *model.ExamResult)

// Machine orchestrates one exercise attempt:
//
//	Idle → Active → Submitting → {Scored | Expired}
//
// The only way out of Active is through the Submitting guard, shared by
// explicit submits and timer expiry, so scoring happens at most once.
// All methods are safe for concurrent use.
type Machine struct {
	mu sync.Mutex

	id         uuid.UUID
	userID     int
	kind       model.ExerciseKind
	status     model.SessionStatus
	startedAt  time.Time
	finishedAt *time.Time

	answer   exercise.Answer
	timer    *Countdown
	result   *model.ExamResult
	tornDown bool
	onFinish FinishFunc
}

// New builds an Idle machine for the given answer state. Read & Select and
// Speaking tick at 100ms (their UIs show sub-second countdowns); the text
// exercises tick at 1s.
func New(userID int, answer exercise.Answer, onFinish FinishFunc) (*Machine, error) {
	kind := answer.Kind()
	budget, err := exercise.Budget(kind)
	if err != nil {
		return nil, err
	}

	tick := time.Second
	if kind == model.KindReadSelect || kind == model.KindSpeaking {
		tick = 100 * time.Millisecond
	}

	return &Machine{
		id:       uuid.New(),
		userID:   userID,
		kind:     kind,
		status:   model.SessionStatusIdle,
		answer:   answer,
		timer:    NewCountdown(budget, tick),
		onFinish: onFinish,
	}, nil
}

// ID returns the session identifier.
func (m *Machine) ID() uuid.UUID { return m.id }

// Kind returns the exercise kind.
func (m *Machine) Kind() model.ExerciseKind { return m.kind }

// TickInterval returns the timer granularity for the driver.
func (m *Machine) TickInterval() time.Duration { return m.timer.Interval() }

// Start moves Idle → Active and arms the timer. Speaking sessions stay Idle
// until the explicit record-start event arrives; every other kind starts
// immediately.
func (m *Machine) Start(now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startLocked(now)
}

func (m *Machine) startLocked(now time.Time) error {
	if m.tornDown {
		return ErrTornDown
	}
	if m.status != model.SessionStatusIdle {
		return ErrAlreadyActive
	}
	m.status = model.SessionStatusActive
	m.startedAt = now
	return nil
}

// Apply feeds one answer event into the session. Events only mutate state
// while Active, with one exception: record_start activates an Idle Speaking
// session. Recoverable input errors (mic denial, unknown gap) leave the
// session Active.
func (m *Machine) Apply(ev *model.AnswerEventRequest, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tornDown {
		return ErrTornDown
	}

	if ev.Type == model.EventRecordStart && m.status == model.SessionStatusIdle && m.kind == model.KindSpeaking {
		if err := m.startLocked(now); err != nil {
			return err
		}
	}

	if m.status != model.SessionStatusActive {
		return ErrNotActive
	}

	switch ev.Type {
	case model.EventJudgeWord:
		return m.applyJudgment(ev.Real, now)

	case model.EventFillGap:
		answer, ok := m.answer.(*exercise.ReadComplete)
		if !ok {
			return exercise.ErrWrongEvent
		}
		_, err := answer.Fill(ev.Index, ev.Value)
		return err

	case model.EventRecordStart:
		answer, ok := m.answer.(*exercise.Speaking)
		if !ok {
			return exercise.ErrWrongEvent
		}
		return answer.Start()

	case model.EventRecordStop:
		answer, ok := m.answer.(*exercise.Speaking)
		if !ok {
			return exercise.ErrWrongEvent
		}
		return answer.Stop(ev.Seconds)

	case model.EventMicDenied:
		// Recoverable: abort any in-progress take, stay Active for retry.
		answer, ok := m.answer.(*exercise.Speaking)
		if !ok {
			return exercise.ErrWrongEvent
		}
		if answer.Recording() {
			return answer.Stop(0)
		}
		return nil

	case model.EventSetText:
		answer, ok := m.answer.(*exercise.Writing)
		if !ok {
			return exercise.ErrWrongEvent
		}
		answer.SetText(ev.Text)
		return nil
	}

	return exercise.ErrWrongEvent
}

// applyJudgment records a Read & Select call, rearms the item sub-timer,
// and finishes the session after the last word.
func (m *Machine) applyJudgment(real *bool, now time.Time) error {
	answer, ok := m.answer.(*exercise.ReadSelect)
	if !ok {
		return exercise.ErrWrongEvent
	}
	if err := answer.Judge(real); err != nil {
		return err
	}
	if answer.Done() {
		_, err := m.finishLocked(now, false)
		return err
	}
	m.timer.Reset(exercise.ReadSelectItemBudget)
	return nil
}

// HandleTick advances the timer by one step. Called by the driver at the
// machine's tick interval. On expiry, Read & Select times out the current
// word and moves on; every other kind auto-submits through the same
// Submitting guard as an explicit submit, terminating as Expired.
func (m *Machine) HandleTick(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != model.SessionStatusActive {
		return
	}

	_, expired := m.timer.Tick()
	if !expired {
		return
	}

	if answer, ok := m.answer.(*exercise.ReadSelect); ok {
		_ = answer.Timeout()
		if answer.Done() {
			_, _ = m.finishLocked(now, false)
			return
		}
		m.timer.Reset(exercise.ReadSelectItemBudget)
		return
	}

	_, _ = m.finishLocked(now, true)
}

// Submit handles an explicit submit. Submitting an already-finished session
// is a no-op returning the existing result. A Writing submit below the
// manual word minimum is rejected and the session stays Active.
func (m *Machine) Submit(now time.Time) (*model.ExamResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.result != nil {
		return m.result, nil
	}
	if m.status != model.SessionStatusActive {
		return nil, ErrNotActive
	}

	if answer, ok := m.answer.(*exercise.Writing); ok {
		if err := answer.CheckSubmittable(); err != nil {
			return nil, err
		}
	}

	return m.finishLocked(now, false)
}

// finishLocked is the Submitting guard: the single funnel out of Active.
func (m *Machine) finishLocked(now time.Time, expired bool) (*model.ExamResult, error) {
	if m.status != model.SessionStatusActive {
		return m.result, ErrNotActive
	}

	m.status = model.SessionStatusSubmitting
	m.timer.Cancel()

	elapsed := now.Sub(m.startedAt)
	outcome := m.answer.Outcome(elapsed)

	// The result inherits the session ID: one attempt, one result, so a
	// requeued persistence write can never duplicate a row.
	result := &model.ExamResult{
		ID:              m.id,
		UserID:          m.userID,
		Kind:            m.kind,
		Date:            now,
		Score:           outcome.Score,
		DurationMinutes: outcome.DurationMinutes,
		Accuracy:        outcome.Accuracy,
		CorrectAnswers:  outcome.CorrectAnswers,
		TotalQuestions:  outcome.TotalQuestions,
		Expired:         expired,
	}

	m.result = result
	m.finishedAt = &now
	if expired {
		m.status = model.SessionStatusExpired
	} else {
		m.status = model.SessionStatusScored
	}

	if m.onFinish != nil {
		m.onFinish(result)
	}
	return result, nil
}

// Teardown cancels the timer and marks the machine unusable. A torn-down
// session produces no result; results already produced are unaffected.
func (m *Machine) Teardown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timer.Cancel()
	m.tornDown = true
}

// Terminal reports whether the session has finished.
func (m *Machine) Terminal() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status.Terminal()
}

// Result returns the scored result, or nil before the terminal transition.
func (m *Machine) Result() *model.ExamResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.result
}

// Snapshot returns the wire representation of the session's current state.
func (m *Machine) Snapshot() model.PracticeSession {
	m.mu.Lock()
	defer m.mu.Unlock()

	budget, _ := exercise.Budget(m.kind)
	return model.PracticeSession{
		ID:               m.id,
		UserID:           m.userID,
		Kind:             m.kind,
		Status:           m.status,
		StartedAt:        m.startedAt,
		FinishedAt:       m.finishedAt,
		DurationBudget:   int(budget.Seconds()),
		RemainingSeconds: m.timer.Remaining().Seconds(),
		Result:           m.result,
	}
}
