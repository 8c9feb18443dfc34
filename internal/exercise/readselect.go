package exercise

import (
	"math"
	"time"

	"github.com/fluentpath/detprep-backend/internal/model"
)

// ReadSelect captures binary real/invented judgments over an ordered word
// list. Each item has its own sub-timer; an item that times out is recorded
// as unanswered and counts against the score.
type ReadSelect struct {
	words     []model.WordItem
	judgments []*bool // nil = not answered (timed out)
	current   int
}

// NewReadSelect creates the answer state for a word list.
func NewReadSelect(words []model.WordItem) *ReadSelect {
	return &ReadSelect{
		words:     words,
		judgments: make([]*bool, len(words)),
	}
}

func (a *ReadSelect) Kind() model.ExerciseKind { return model.KindReadSelect }

// CurrentIndex returns the word the user is judging now.
func (a *ReadSelect) CurrentIndex() int { return a.current }

// CurrentWord returns the word text at the cursor, or "" when done.
func (a *ReadSelect) CurrentWord() string {
	if a.Done() {
		return ""
	}
	return a.words[a.current].Text
}

// Total returns the number of words in the list.
func (a *ReadSelect) Total() int { return len(a.words) }

// Done reports whether every word has been consumed.
func (a *ReadSelect) Done() bool { return a.current >= len(a.words) }

// Judge records the user's call for the current word and advances the
// cursor. A nil judgment marks the item as timed out / unanswered.
func (a *ReadSelect) Judge(real *bool) error {
	if a.Done() {
		return ErrAllWordsJudged
	}
	a.judgments[a.current] = real
	a.current++
	return nil
}

// Timeout marks the current word as unanswered and advances. Called by the
// session when the item sub-timer expires.
func (a *ReadSelect) Timeout() error {
	return a.Judge(nil)
}

func (a *ReadSelect) counts() (correct, answered int) {
	for i, j := range a.judgments {
		if j == nil {
			continue
		}
		answered++
		if *j == a.words[i].IsReal {
			correct++
		}
	}
	return correct, answered
}

// Outcome scores the judgments. The score divides by the full word list;
// accuracy divides by answered items only.
func (a *ReadSelect) Outcome(elapsed time.Duration) Outcome {
	correct, answered := a.counts()
	total := len(a.words)

	score := ratioScore(correct, total)
	accuracy := 0
	if answered > 0 {
		accuracy = int(math.Round(float64(correct) / float64(answered) * 100))
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
		DurationMinutes: int(math.Round(elapsed.Seconds() / 60)),
	}
}
