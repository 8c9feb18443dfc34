package exercise

import (
	"math"
	"time"

	"github.com/fluentpath/detprep-backend/internal/model"
)

// Speaking captures a recorded-audio attempt. Scoring is a duration-tier
// lookup only; there is no speech analysis. This mirrors the product's
// current behavior and is a deliberate stub, not a placeholder for a real
// grader.
type Speaking struct {
	recording       bool
	recordedSeconds float64
}

// NewSpeaking creates an empty speaking answer state.
func NewSpeaking() *Speaking {
	return &Speaking{}
}

func (a *Speaking) Kind() model.ExerciseKind { return model.KindSpeaking }

// Recording reports whether a take is in progress.
func (a *Speaking) Recording() bool { return a.recording }

// RecordedSeconds returns the duration of the last finished take.
func (a *Speaking) RecordedSeconds() float64 { return a.recordedSeconds }

// Start begins a take. Starting over discards the previous take.
func (a *Speaking) Start() error {
	if a.recording {
		return ErrAlreadyRecording
	}
	a.recording = true
	a.recordedSeconds = 0
	return nil
}

// Stop ends the take, clamping the reported duration to the budget.
func (a *Speaking) Stop(seconds float64) error {
	if !a.recording {
		return ErrNotRecording
	}
	a.recording = false
	if seconds < 0 {
		seconds = 0
	}
	if max := SpeakingBudget.Seconds(); seconds > max {
		seconds = max
	}
	a.recordedSeconds = seconds
	return nil
}

// Outcome scores the recorded duration against the speaking tiers.
func (a *Speaking) Outcome(elapsed time.Duration) Outcome {
	recorded := a.recordedSeconds
	if a.recording {
		// Forced stop on timeout: credit the full elapsed take.
		recorded = elapsed.Seconds()
		if max := SpeakingBudget.Seconds(); recorded > max {
			recorded = max
		}
	}

	score := speakingTiers.lookup(recorded)

	accuracy := 100
	correct := 1
	if recorded < 20 {
		accuracy = int(math.Round(recorded / 20 * 100))
		correct = 0
	}

	return Outcome{
		Score: model.ExamScore{
			Conversation: score,
			Production:   score,
			Overall:      clampOverall(score),
		},
		Accuracy:        accuracy,
		CorrectAnswers:  correct,
		TotalQuestions:  1,
		DurationMinutes: 1,
	}
}
