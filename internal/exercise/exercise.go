package exercise

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fluentpath/detprep-backend/internal/model"
)

// Time budgets per exercise kind. READ_SELECT budgets each word item
// individually; the other kinds budget the whole session.
const (
	ReadSelectItemBudget = 5 * time.Second
	ReadCompleteBudget   = 180 * time.Second
	SpeakingBudget       = 35 * time.Second
	WritingBudget        = 300 * time.Second
)

// MinWords is the word-count threshold for a fully credited Writing answer.
// ManualSubmitMinWords gates explicit submits only; timeout submits below it
// still score (at the lowest tier).
const (
	MinWords             = 50
	ManualSubmitMinWords = 20
)

var (
	ErrUnknownKind      = errors.New("unknown exercise kind")
	ErrWrongEvent       = errors.New("event does not apply to this exercise kind")
	ErrUnknownGap       = errors.New("unknown gap id")
	ErrAllWordsJudged   = errors.New("all words already judged")
	ErrNotRecording     = errors.New("no recording in progress")
	ErrAlreadyRecording = errors.New("recording already in progress")
	ErrTooFewWords      = errors.New("response is below the minimum word count")
)

// Outcome is the scored judgment of a finished answer.
type Outcome struct {
	Score           model.ExamScore
	Accuracy        int
	CorrectAnswers  int
	TotalQuestions  int
	DurationMinutes int
}

// Answer is the kind-tagged union over the four exercise answer states.
// Implementations accumulate raw input during the Active phase and produce
// a deterministic Outcome when the session is scored.
type Answer interface {
	Kind() model.ExerciseKind

	// Outcome scores the current answer state. Pure: repeated calls with the
	// same elapsed time yield the same result.
	Outcome(elapsed time.Duration) Outcome
}

// Budget returns the session time budget for a kind. For READ_SELECT this is
// the per-item sub-budget, not a whole-session value.
func Budget(kind model.ExerciseKind) (time.Duration, error) {
	switch kind {
	case model.KindReadSelect:
		return ReadSelectItemBudget, nil
	case model.KindReadComplete:
		return ReadCompleteBudget, nil
	case model.KindSpeaking:
		return SpeakingBudget, nil
	case model.KindWriting:
		return WritingBudget, nil
	}
	return 0, ErrUnknownKind
}

// New constructs the answer state for a kind from its task-bank prompt.
func New(kind model.ExerciseKind, prompt *model.Prompt) (Answer, error) {
	switch kind {
	case model.KindReadSelect:
		var payload model.ReadSelectPayload
		if err := json.Unmarshal(prompt.Payload, &payload); err != nil {
			return nil, fmt.Errorf("decode read-select payload: %w", err)
		}
		return NewReadSelect(payload.Words), nil
	case model.KindReadComplete:
		var payload model.ReadCompletePayload
		if err := json.Unmarshal(prompt.Payload, &payload); err != nil {
			return nil, fmt.Errorf("decode read-complete payload: %w", err)
		}
		return NewReadComplete(payload.Gaps), nil
	case model.KindSpeaking:
		return NewSpeaking(), nil
	case model.KindWriting:
		return NewWriting(), nil
	}
	return nil, ErrUnknownKind
}
