package exercise

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/fluentpath/detprep-backend/internal/model"
)

func boolPtr(b bool) *bool { return &b }

func testWords(n int) []model.WordItem {
	words := make([]model.WordItem, n)
	for i := range words {
		words[i] = model.WordItem{Text: "word", IsReal: i%2 == 0}
	}
	return words
}

func TestReadSelectAllCorrect(t *testing.T) {
	words := testWords(20)
	a := NewReadSelect(words)
	for _, w := range words {
		if err := a.Judge(boolPtr(w.IsReal)); err != nil {
			t.Fatalf("Judge: %v", err)
		}
	}
	if !a.Done() {
		t.Fatal("expected all words consumed")
	}

	out := a.Outcome(100 * time.Second)
	if out.Score.Overall != 160 {
		t.Errorf("overall = %d, want 160", out.Score.Overall)
	}
	if out.Accuracy != 100 {
		t.Errorf("accuracy = %d, want 100", out.Accuracy)
	}
	if out.CorrectAnswers != 20 || out.TotalQuestions != 20 {
		t.Errorf("counts = %d/%d, want 20/20", out.CorrectAnswers, out.TotalQuestions)
	}
}

func TestReadSelectPartial(t *testing.T) {
	words := testWords(20)
	a := NewReadSelect(words)

	// 15 correct, 5 wrong.
	for i, w := range words {
		call := w.IsReal
		if i >= 15 {
			call = !w.IsReal
		}
		if err := a.Judge(boolPtr(call)); err != nil {
			t.Fatalf("Judge: %v", err)
		}
	}

	out := a.Outcome(100 * time.Second)
	// round(15/20*160) = 120
	if out.Score.Overall != 120 {
		t.Errorf("overall = %d, want 120", out.Score.Overall)
	}
	// round(15/20*100) = 75
	if out.Accuracy != 75 {
		t.Errorf("accuracy = %d, want 75", out.Accuracy)
	}
}

func TestReadSelectTimeoutsCountAgainstScoreNotAccuracy(t *testing.T) {
	words := testWords(4)
	a := NewReadSelect(words)

	if err := a.Judge(boolPtr(words[0].IsReal)); err != nil {
		t.Fatalf("Judge: %v", err)
	}
	if err := a.Judge(boolPtr(words[1].IsReal)); err != nil {
		t.Fatalf("Judge: %v", err)
	}
	if err := a.Timeout(); err != nil {
		t.Fatalf("Timeout: %v", err)
	}
	if err := a.Timeout(); err != nil {
		t.Fatalf("Timeout: %v", err)
	}

	out := a.Outcome(20 * time.Second)
	// Score divides by all 4 items: round(2/4*160) = 80.
	if out.Score.Overall != 80 {
		t.Errorf("overall = %d, want 80", out.Score.Overall)
	}
	// Accuracy divides by the 2 answered items only.
	if out.Accuracy != 100 {
		t.Errorf("accuracy = %d, want 100", out.Accuracy)
	}
}

func TestReadSelectJudgeAfterDone(t *testing.T) {
	a := NewReadSelect(testWords(1))
	if err := a.Judge(boolPtr(true)); err != nil {
		t.Fatalf("Judge: %v", err)
	}
	if err := a.Judge(boolPtr(true)); err != ErrAllWordsJudged {
		t.Errorf("err = %v, want ErrAllWordsJudged", err)
	}
}

func TestReadSelectAllTimedOut(t *testing.T) {
	a := NewReadSelect(testWords(3))
	for i := 0; i < 3; i++ {
		if err := a.Timeout(); err != nil {
			t.Fatalf("Timeout: %v", err)
		}
	}
	out := a.Outcome(15 * time.Second)
	if out.Accuracy != 0 {
		t.Errorf("accuracy = %d, want 0 with nothing answered", out.Accuracy)
	}
	if out.Score.Overall != ScoreFloor {
		t.Errorf("overall = %d, want clamped to %d", out.Score.Overall, ScoreFloor)
	}
}

func testGaps() []model.Gap {
	return []model.Gap{
		{ID: 1, Answer: "tro", MaxLength: 4},
		{ID: 2, Answer: "ating", MaxLength: 5},
		{ID: 3, Answer: "ation", MaxLength: 5},
		{ID: 4, Answer: "te", MaxLength: 2},
	}
}

func TestReadCompleteAllCorrect(t *testing.T) {
	a := NewReadComplete(testGaps())
	for _, in := range []struct {
		id    int
		value string
	}{{1, "tro"}, {2, "ating"}, {3, "ation"}, {4, "te"}} {
		if _, err := a.Fill(in.id, in.value); err != nil {
			t.Fatalf("Fill(%d): %v", in.id, err)
		}
	}
	if !a.AllFilled() {
		t.Fatal("expected all gaps filled")
	}

	out := a.Outcome(90 * time.Second)
	if out.Score.Overall != 160 {
		t.Errorf("overall = %d, want 160", out.Score.Overall)
	}
	if out.Accuracy != 100 {
		t.Errorf("accuracy = %d, want 100", out.Accuracy)
	}
	if out.DurationMinutes != 3 {
		t.Errorf("duration = %d, want 3", out.DurationMinutes)
	}
}

func TestReadCompleteNormalization(t *testing.T) {
	a := NewReadComplete(testGaps())

	// Uppercase and whitespace are normalized away.
	v, err := a.Fill(1, " TRO ")
	if err != nil {
		t.Fatalf("Fill: %v", err)
	}
	if v != "tro" {
		t.Errorf("stored = %q, want %q", v, "tro")
	}

	// Over-long input truncates to max length instead of failing.
	v, err = a.Fill(4, "tense")
	if err != nil {
		t.Fatalf("Fill: %v", err)
	}
	if v != "te" {
		t.Errorf("stored = %q, want %q", v, "te")
	}

	if a.CorrectCount() != 2 {
		t.Errorf("correct = %d, want 2", a.CorrectCount())
	}
}

func TestReadCompleteUnknownGap(t *testing.T) {
	a := NewReadComplete(testGaps())
	if _, err := a.Fill(99, "x"); err != ErrUnknownGap {
		t.Errorf("err = %v, want ErrUnknownGap", err)
	}
}

func TestReadCompletePartialScore(t *testing.T) {
	a := NewReadComplete(testGaps())
	a.Fill(1, "tro")
	a.Fill(2, "wrong")

	out := a.Outcome(180 * time.Second)
	// round(1/4*160) = 40, round(1/4*100) = 25
	if out.Score.Overall != 40 {
		t.Errorf("overall = %d, want 40", out.Score.Overall)
	}
	if out.Accuracy != 25 {
		t.Errorf("accuracy = %d, want 25", out.Accuracy)
	}
}

func TestSpeakingTiers(t *testing.T) {
	tests := []struct {
		seconds float64
		score   int
	}{
		{35, 135},
		{30, 135},
		{29.9, 115},
		{20, 115},
		{19.9, 95},
		{10, 95},
		{9.9, 70},
		{0, 70},
	}
	for _, tt := range tests {
		a := NewSpeaking()
		if err := a.Start(); err != nil {
			t.Fatalf("Start: %v", err)
		}
		if err := a.Stop(tt.seconds); err != nil {
			t.Fatalf("Stop: %v", err)
		}
		out := a.Outcome(time.Duration(tt.seconds) * time.Second)
		if out.Score.Overall != tt.score {
			t.Errorf("%.1fs: overall = %d, want %d", tt.seconds, out.Score.Overall, tt.score)
		}
	}
}

func TestSpeakingAccuracy(t *testing.T) {
	a := NewSpeaking()
	a.Start()
	a.Stop(10)
	out := a.Outcome(10 * time.Second)
	if out.Accuracy != 50 {
		t.Errorf("accuracy = %d, want 50 for 10s of 20s", out.Accuracy)
	}
	if out.CorrectAnswers != 0 {
		t.Errorf("correct = %d, want 0 below the 20s threshold", out.CorrectAnswers)
	}

	a = NewSpeaking()
	a.Start()
	a.Stop(25)
	out = a.Outcome(25 * time.Second)
	if out.Accuracy != 100 || out.CorrectAnswers != 1 {
		t.Errorf("accuracy/correct = %d/%d, want 100/1", out.Accuracy, out.CorrectAnswers)
	}
}

func TestSpeakingForcedStopUsesElapsed(t *testing.T) {
	a := NewSpeaking()
	a.Start()
	// Still recording when the budget expires: the elapsed take counts.
	out := a.Outcome(SpeakingBudget)
	if out.Score.Overall != 135 {
		t.Errorf("overall = %d, want 135 for a full-budget take", out.Score.Overall)
	}
}

func TestSpeakingRecordingStateErrors(t *testing.T) {
	a := NewSpeaking()
	if err := a.Stop(5); err != ErrNotRecording {
		t.Errorf("Stop before Start: err = %v, want ErrNotRecording", err)
	}
	a.Start()
	if err := a.Start(); err != ErrAlreadyRecording {
		t.Errorf("double Start: err = %v, want ErrAlreadyRecording", err)
	}
}

func TestSpeakingStopClampsToBudget(t *testing.T) {
	a := NewSpeaking()
	a.Start()
	a.Stop(9999)
	if got := a.RecordedSeconds(); got != SpeakingBudget.Seconds() {
		t.Errorf("recorded = %.1f, want clamped to %.1f", got, SpeakingBudget.Seconds())
	}
}

func essay(words int) string {
	out := ""
	for i := 0; i < words; i++ {
		if i > 0 {
			out += " "
		}
		out += "word"
	}
	return out
}

func TestWritingTiers(t *testing.T) {
	tests := []struct {
		words int
		score int
	}{
		{120, 140},
		{100, 140},
		{99, 120},
		{75, 120},
		{74, 100},
		{50, 100},
		{49, 80},
		{25, 80},
		{24, 60},
		{0, 60},
	}
	for _, tt := range tests {
		a := NewWriting()
		a.SetText(essay(tt.words))
		out := a.Outcome(WritingBudget)
		if out.Score.Overall != tt.score {
			t.Errorf("%d words: overall = %d, want %d", tt.words, out.Score.Overall, tt.score)
		}
	}
}

func TestWritingAccuracyBelowMinimum(t *testing.T) {
	a := NewWriting()
	a.SetText(essay(25))
	out := a.Outcome(WritingBudget)
	if out.Accuracy != 50 {
		t.Errorf("accuracy = %d, want 50 for 25 of 50 words", out.Accuracy)
	}
	if out.DurationMinutes != 5 {
		t.Errorf("duration = %d, want 5", out.DurationMinutes)
	}
}

func TestWritingManualSubmitGate(t *testing.T) {
	a := NewWriting()
	a.SetText(essay(19))
	if err := a.CheckSubmittable(); err != ErrTooFewWords {
		t.Errorf("19 words: err = %v, want ErrTooFewWords", err)
	}
	a.SetText(essay(20))
	if err := a.CheckSubmittable(); err != nil {
		t.Errorf("20 words: err = %v, want nil", err)
	}
}

func TestNewDecodesPromptPayloads(t *testing.T) {
	wordsPayload, _ := json.Marshal(model.ReadSelectPayload{Words: testWords(3)})
	a, err := New(model.KindReadSelect, &model.Prompt{Kind: model.KindReadSelect, Payload: wordsPayload})
	if err != nil {
		t.Fatalf("New(READ_SELECT): %v", err)
	}
	if rs, ok := a.(*ReadSelect); !ok || rs.Total() != 3 {
		t.Errorf("unexpected READ_SELECT state: %T", a)
	}

	gapsPayload, _ := json.Marshal(model.ReadCompletePayload{Passage: "x", Gaps: testGaps()})
	a, err = New(model.KindReadComplete, &model.Prompt{Kind: model.KindReadComplete, Payload: gapsPayload})
	if err != nil {
		t.Fatalf("New(READ_COMPLETE): %v", err)
	}
	if rc, ok := a.(*ReadComplete); !ok || rc.Total() != 4 {
		t.Errorf("unexpected READ_COMPLETE state: %T", a)
	}

	if _, err := New("BOGUS", &model.Prompt{}); err != ErrUnknownKind {
		t.Errorf("err = %v, want ErrUnknownKind", err)
	}
}

func TestTierLookupOrdering(t *testing.T) {
	if got := writingTiers.lookup(50); got != 100 {
		t.Errorf("lookup(50) = %d, want the >=50 tier (100)", got)
	}
	if got := speakingTiers.lookup(30); got != 135 {
		t.Errorf("lookup(30) = %d, want the >=30 tier (135)", got)
	}
}

func TestClampOverall(t *testing.T) {
	if got := clampOverall(0); got != ScoreFloor {
		t.Errorf("clamp(0) = %d, want %d", got, ScoreFloor)
	}
	if got := clampOverall(200); got != ScoreCeiling {
		t.Errorf("clamp(200) = %d, want %d", got, ScoreCeiling)
	}
	if got := clampOverall(95); got != 95 {
		t.Errorf("clamp(95) = %d, want 95", got)
	}
}
