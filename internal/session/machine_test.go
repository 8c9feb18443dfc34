package session

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/fluentpath/detprep-backend/internal/exercise"
	"github.com/fluentpath/detprep-backend/internal/model"
)

func boolPtr(b bool) *bool { return &b }

func newMachine(t *testing.T, kind model.ExerciseKind, onFinish FinishFunc) *Machine {
	t.Helper()

	var payload []byte
	switch kind {
	case model.KindReadSelect:
		words := make([]model.WordItem, 3)
		for i := range words {
			words[i] = model.WordItem{Text: "word", IsReal: true}
		}
		payload, _ = json.Marshal(model.ReadSelectPayload{Words: words})
	case model.KindReadComplete:
		payload, _ = json.Marshal(model.ReadCompletePayload{
			Passage: "as{{1}}nomy",
			Gaps:    []model.Gap{{ID: 1, Answer: "tro", MaxLength: 4}},
		})
	default:
		payload, _ = json.Marshal(model.TextPromptPayload{Instruction: "talk"})
	}

	answer, err := exercise.New(kind, &model.Prompt{Kind: kind, Payload: payload})
	if err != nil {
		t.Fatalf("exercise.New: %v", err)
	}
	m, err := New(7, answer, onFinish)
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	return m
}

// drainTimer ticks the machine until its current countdown expires.
func drainTimer(m *Machine, budget time.Duration, now time.Time) {
	steps := int(budget/m.TickInterval()) + 1
	for i := 0; i < steps; i++ {
		m.HandleTick(now)
	}
}

func TestMachineLifecycleScored(t *testing.T) {
	var finished []*model.ExamResult
	m := newMachine(t, model.KindReadComplete, func(r *model.ExamResult) {
		finished = append(finished, r)
	})

	now := time.Now()
	if err := m.Start(now); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := m.Apply(&model.AnswerEventRequest{Type: model.EventFillGap, Index: 1, Value: "tro"}, now); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	result, err := m.Submit(now.Add(30 * time.Second))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.Score.Overall != 160 {
		t.Errorf("overall = %d, want 160", result.Score.Overall)
	}
	if result.Expired {
		t.Error("explicit submit must not be marked expired")
	}
	if snap := m.Snapshot(); snap.Status != model.SessionStatusScored {
		t.Errorf("status = %s, want SCORED", snap.Status)
	}
	if len(finished) != 1 {
		t.Errorf("onFinish called %d times, want 1", len(finished))
	}
	if result.ID != m.ID() {
		t.Error("result must inherit the session ID")
	}
}

func TestMachineDoubleSubmitIsNoOp(t *testing.T) {
	calls := 0
	m := newMachine(t, model.KindReadComplete, func(*model.ExamResult) { calls++ })

	now := time.Now()
	m.Start(now)

	first, err := m.Submit(now)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	second, err := m.Submit(now.Add(time.Second))
	if err != nil {
		t.Fatalf("second Submit: %v", err)
	}
	if first != second {
		t.Error("second submit must return the stored result")
	}
	if calls != 1 {
		t.Errorf("onFinish called %d times, want exactly 1", calls)
	}
}

func TestMachineTimeoutExpires(t *testing.T) {
	m := newMachine(t, model.KindWriting, nil)
	now := time.Now()
	m.Start(now)

	drainTimer(m, exercise.WritingBudget, now.Add(exercise.WritingBudget))

	result := m.Result()
	if result == nil {
		t.Fatal("expected a result after timer expiry")
	}
	if !result.Expired {
		t.Error("timeout result must be marked expired")
	}
	if snap := m.Snapshot(); snap.Status != model.SessionStatusExpired {
		t.Errorf("status = %s, want EXPIRED", snap.Status)
	}
	// An empty essay still lands in the lowest tier.
	if result.Score.Overall != 60 {
		t.Errorf("overall = %d, want 60", result.Score.Overall)
	}
}

func TestMachineWritingManualGateTimeoutBypass(t *testing.T) {
	m := newMachine(t, model.KindWriting, nil)
	now := time.Now()
	m.Start(now)

	if err := m.Apply(&model.AnswerEventRequest{Type: model.EventSetText, Text: "too short"}, now); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if _, err := m.Submit(now); err != exercise.ErrTooFewWords {
		t.Fatalf("Submit below minimum: err = %v, want ErrTooFewWords", err)
	}
	if snap := m.Snapshot(); snap.Status != model.SessionStatusActive {
		t.Errorf("status = %s, rejected submit must stay ACTIVE", snap.Status)
	}

	// Timer expiry scores the same draft without the gate.
	drainTimer(m, exercise.WritingBudget, now.Add(exercise.WritingBudget))
	if m.Result() == nil {
		t.Fatal("expected timeout to score the session")
	}
}

func TestMachineReadSelectItemTimeoutAdvances(t *testing.T) {
	m := newMachine(t, model.KindReadSelect, nil)
	now := time.Now()
	m.Start(now)

	// First word answered, second and third time out item by item.
	if err := m.Apply(&model.AnswerEventRequest{Type: model.EventJudgeWord, Real: boolPtr(true)}, now); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	drainTimer(m, exercise.ReadSelectItemBudget, now)
	if m.Terminal() {
		t.Fatal("one item timeout must not end a 3-word session")
	}
	drainTimer(m, exercise.ReadSelectItemBudget, now)

	result := m.Result()
	if result == nil {
		t.Fatal("expected a result after the last item timed out")
	}
	// Item timeouts end the session Scored, not Expired: only whole-session
	// budget exhaustion means expiry, and this kind has no such budget.
	if result.Expired {
		t.Error("item timeouts must not mark the session expired")
	}
	if result.CorrectAnswers != 1 || result.TotalQuestions != 3 {
		t.Errorf("counts = %d/%d, want 1/3", result.CorrectAnswers, result.TotalQuestions)
	}
}

func TestMachineSpeakingStaysIdleUntilRecordStart(t *testing.T) {
	m := newMachine(t, model.KindSpeaking, nil)
	now := time.Now()

	// The countdown must not run before recording starts.
	m.HandleTick(now)
	if snap := m.Snapshot(); snap.Status != model.SessionStatusIdle {
		t.Fatalf("status = %s, want IDLE before record_start", snap.Status)
	}

	if err := m.Apply(&model.AnswerEventRequest{Type: model.EventRecordStart}, now); err != nil {
		t.Fatalf("record_start: %v", err)
	}
	if snap := m.Snapshot(); snap.Status != model.SessionStatusActive {
		t.Errorf("status = %s, want ACTIVE after record_start", snap.Status)
	}

	if err := m.Apply(&model.AnswerEventRequest{Type: model.EventRecordStop, Seconds: 25}, now); err != nil {
		t.Fatalf("record_stop: %v", err)
	}
	result, err := m.Submit(now.Add(25 * time.Second))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.Score.Overall != 115 {
		t.Errorf("overall = %d, want 115 for a 25s take", result.Score.Overall)
	}
}

func TestMachineMicDeniedIsRecoverable(t *testing.T) {
	m := newMachine(t, model.KindSpeaking, nil)
	now := time.Now()

	m.Apply(&model.AnswerEventRequest{Type: model.EventRecordStart}, now)
	if err := m.Apply(&model.AnswerEventRequest{Type: model.EventMicDenied}, now); err != nil {
		t.Fatalf("mic_denied: %v", err)
	}
	if snap := m.Snapshot(); snap.Status != model.SessionStatusActive {
		t.Errorf("status = %s, mic denial must leave the session ACTIVE", snap.Status)
	}

	// A fresh take still works.
	if err := m.Apply(&model.AnswerEventRequest{Type: model.EventRecordStart}, now); err != nil {
		t.Errorf("retry record_start: %v", err)
	}
}

func TestMachineWrongEventForKind(t *testing.T) {
	m := newMachine(t, model.KindWriting, nil)
	now := time.Now()
	m.Start(now)

	if err := m.Apply(&model.AnswerEventRequest{Type: model.EventJudgeWord, Real: boolPtr(true)}, now); err != exercise.ErrWrongEvent {
		t.Errorf("err = %v, want ErrWrongEvent", err)
	}
	if snap := m.Snapshot(); snap.Status != model.SessionStatusActive {
		t.Errorf("status = %s, rejected event must leave the session ACTIVE", snap.Status)
	}
}

func TestMachineEventsRejectedWhenNotActive(t *testing.T) {
	m := newMachine(t, model.KindReadComplete, nil)
	now := time.Now()

	if err := m.Apply(&model.AnswerEventRequest{Type: model.EventFillGap, Index: 1, Value: "x"}, now); err != ErrNotActive {
		t.Errorf("idle: err = %v, want ErrNotActive", err)
	}

	m.Start(now)
	m.Submit(now)
	if err := m.Apply(&model.AnswerEventRequest{Type: model.EventFillGap, Index: 1, Value: "x"}, now); err != ErrNotActive {
		t.Errorf("scored: err = %v, want ErrNotActive", err)
	}
}

func TestMachineTeardown(t *testing.T) {
	m := newMachine(t, model.KindWriting, nil)
	now := time.Now()
	m.Start(now)
	m.Teardown()

	if err := m.Apply(&model.AnswerEventRequest{Type: model.EventSetText, Text: "x"}, now); err != ErrTornDown {
		t.Errorf("err = %v, want ErrTornDown", err)
	}
	drainTimer(m, exercise.WritingBudget, now)
	if m.Result() != nil {
		t.Error("torn-down session must not produce a result")
	}
}

func TestDriverStopsOnTerminal(t *testing.T) {
	m := newMachine(t, model.KindReadComplete, nil)
	now := time.Now()
	m.Start(now)

	d := StartDriver(m)
	m.Submit(now)

	done := make(chan struct{})
	go func() {
		d.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("driver did not exit after the session finished")
	}

	// Stop after exit is a safe no-op, repeatedly.
	d.Stop()
	d.Stop()
}
