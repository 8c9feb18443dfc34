package exercise

import (
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/fluentpath/detprep-backend/internal/model"
)

// ReadComplete captures short text blanks against known answers. Input is
// lowercased, stripped of whitespace, and truncated to the gap's max length;
// over-long input is never rejected outright.
type ReadComplete struct {
	gaps   []model.Gap
	values map[int]string
}

// NewReadComplete creates the answer state for a gapped passage.
func NewReadComplete(gaps []model.Gap) *ReadComplete {
	return &ReadComplete{
		gaps:   gaps,
		values: make(map[int]string, len(gaps)),
	}
}

func (a *ReadComplete) Kind() model.ExerciseKind { return model.KindReadComplete }

// Total returns the number of blanks.
func (a *ReadComplete) Total() int { return len(a.gaps) }

// Fill normalizes and stores input for one blank, returning the stored
// value. The caller advances focus when the value reaches the gap's max
// length.
func (a *ReadComplete) Fill(gapID int, value string) (string, error) {
	gap := a.gap(gapID)
	if gap == nil {
		return "", ErrUnknownGap
	}

	clean := normalizeBlank(value)
	if len(clean) > gap.MaxLength {
		clean = clean[:gap.MaxLength]
	}
	a.values[gapID] = clean
	return clean, nil
}

// Value returns the stored input for a blank.
func (a *ReadComplete) Value(gapID int) string { return a.values[gapID] }

// AllFilled reports whether every blank has non-empty input.
func (a *ReadComplete) AllFilled() bool {
	for _, gap := range a.gaps {
		if a.values[gap.ID] == "" {
			return false
		}
	}
	return true
}

// CorrectCount returns the number of blanks matching their answer
// (case-insensitive exact match).
func (a *ReadComplete) CorrectCount() int {
	correct := 0
	for _, gap := range a.gaps {
		if a.values[gap.ID] == strings.ToLower(gap.Answer) {
			correct++
		}
	}
	return correct
}

func (a *ReadComplete) gap(id int) *model.Gap {
	for i := range a.gaps {
		if a.gaps[i].ID == id {
			return &a.gaps[i]
		}
	}
	return nil
}

// Outcome scores the blanks against their answers.
func (a *ReadComplete) Outcome(elapsed time.Duration) Outcome {
	correct := a.CorrectCount()
	total := len(a.gaps)
	score := ratioScore(correct, total)

	accuracy := 0
	if total > 0 {
		accuracy = int(math.Round(float64(correct) / float64(total) * 100))
	}

	return Outcome{
		Score: model.ExamScore{
			Literacy:      score,
			Comprehension: score,
			Overall:       clampOverall(score),
		},
		Accuracy:        accuracy,
		CorrectAnswers:  correct,
		TotalQuestions:  total,
		DurationMinutes: int(math.Ceil(ReadCompleteBudget.Seconds() / 60)),
	}
}

func normalizeBlank(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
