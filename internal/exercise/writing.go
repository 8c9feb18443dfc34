package exercise

import (
	"math"
	"strings"
	"time"

	"github.com/fluentpath/detprep-backend/internal/model"
)

// Writing captures a free-text essay. Quality reduces to word-count tiers;
// content is not graded.
type Writing struct {
	text string
}

// NewWriting creates an empty writing answer state.
func NewWriting() *Writing {
	return &Writing{}
}

func (a *Writing) Kind() model.ExerciseKind { return model.KindWriting }

// SetText replaces the essay draft.
func (a *Writing) SetText(text string) {
	a.text = text
}

// Text returns the current draft.
func (a *Writing) Text() string { return a.text }

// WordCount returns the number of whitespace-separated words in the draft.
func (a *Writing) WordCount() int {
	return len(strings.Fields(a.text))
}

// CheckSubmittable gates explicit submits: below the manual minimum the
// submit is rejected as a recoverable input error. Timeout submits bypass
// this check.
func (a *Writing) CheckSubmittable() error {
	if a.WordCount() < ManualSubmitMinWords {
		return ErrTooFewWords
	}
	return nil
}

// Outcome scores the word count against the writing tiers.
func (a *Writing) Outcome(elapsed time.Duration) Outcome {
	words := a.WordCount()
	score := writingTiers.lookup(float64(words))

	accuracy := 100
	correct := 1
	if words < MinWords {
		accuracy = int(math.Round(float64(words) / MinWords * 100))
		correct = 0
	}

	return Outcome{
		Score: model.ExamScore{
			Literacy:   score,
			Production: score,
			Overall:    clampOverall(score),
		},
		Accuracy:        accuracy,
		CorrectAnswers:  correct,
		TotalQuestions:  1,
		DurationMinutes: int(math.Ceil(WritingBudget.Seconds() / 60)),
	}
}
