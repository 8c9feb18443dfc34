package model

import "testing"

func TestLevelForScore(t *testing.T) {
	tests := []struct {
		score int
		level CEFRLevel
	}{
		{10, LevelA1},
		{55, LevelA1},
		{56, LevelA2},
		{75, LevelA2},
		{95, LevelB1},
		{115, LevelB2},
		{140, LevelC1},
		{141, LevelC2},
		{160, LevelC2},
	}
	for _, tt := range tests {
		if got := LevelForScore(tt.score); got.Level != tt.level {
			t.Errorf("LevelForScore(%d) = %s, want %s", tt.score, got.Level, tt.level)
		}
	}
}

func TestExerciseKindValid(t *testing.T) {
	for _, k := range []ExerciseKind{KindReadSelect, KindReadComplete, KindSpeaking, KindWriting} {
		if !k.Valid() {
			t.Errorf("%s should be valid", k)
		}
	}
	if ExerciseKind("LISTENING").Valid() {
		t.Error("unknown kind should be invalid")
	}
}

func TestSessionStatusTerminal(t *testing.T) {
	if !SessionStatusScored.Terminal() || !SessionStatusExpired.Terminal() {
		t.Error("SCORED and EXPIRED are terminal")
	}
	if SessionStatusIdle.Terminal() || SessionStatusActive.Terminal() || SessionStatusSubmitting.Terminal() {
		t.Error("IDLE, ACTIVE, SUBMITTING are not terminal")
	}
}
