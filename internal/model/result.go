package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamScore holds the four DET skill subscores plus the overall score.
// Subscores are 0 for skills an exercise does not test; overall is always
// within [10,160] after scoring.
type ExamScore struct {
	Literacy      int `json:"literacy"`
	Conversation  int `json:"conversation"`
	Comprehension int `json:"comprehension"`
	Production    int `json:"production"`
	Overall       int `json:"overall"`
}

// ExamResult is one finished practice attempt as stored in the history.
type ExamResult struct {
	ID              uuid.UUID    `json:"id"`
	UserID          int          `json:"user_id"`
	Kind            ExerciseKind `json:"kind"`
	Date            time.Time    `json:"date"`
	Score           ExamScore    `json:"score"`
	DurationMinutes int          `json:"duration"`
	Accuracy        int          `json:"accuracy"`
	CorrectAnswers  int          `json:"correct_answers"`
	TotalQuestions  int          `json:"total_questions"`
	Expired         bool         `json:"expired"`
}

// ScoreRange is the min/max overall score across recent attempts.
type ScoreRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// ExamStats aggregates a user's practice history.
type ExamStats struct {
	TotalSessions   int        `json:"total_sessions"`
	AverageAccuracy int        `json:"average_accuracy"`
	AverageScore    int        `json:"average_score"`
	TotalHours      int        `json:"total_hours"`
	ScoreRange      ScoreRange `json:"score_range"`
}

// CEFRLevel is a Common European Framework proficiency band.
type CEFRLevel string

const (
	LevelA1 CEFRLevel = "A1"
	LevelA2 CEFRLevel = "A2"
	LevelB1 CEFRLevel = "B1"
	LevelB2 CEFRLevel = "B2"
	LevelC1 CEFRLevel = "C1"
	LevelC2 CEFRLevel = "C2"
)

// LevelBand maps a CEFR level to its DET score interval.
type LevelBand struct {
	Level    CEFRLevel `json:"level"`
	MinScore int       `json:"min_score"`
	MaxScore int       `json:"max_score"`
}

// LevelBands lists the DET score intervals in ascending order.
var LevelBands = []LevelBand{
	{Level: LevelA1, MinScore: 10, MaxScore: 55},
	{Level: LevelA2, MinScore: 55, MaxScore: 75},
	{Level: LevelB1, MinScore: 75, MaxScore: 95},
	{Level: LevelB2, MinScore: 95, MaxScore: 115},
	{Level: LevelC1, MinScore: 115, MaxScore: 140},
	{Level: LevelC2, MinScore: 140, MaxScore: 160},
}

// LevelForScore returns the CEFR band containing the given overall score.
// Scores below the scale floor map to A1.
func LevelForScore(score int) LevelBand {
	for _, band := range LevelBands {
		if score >= band.MinScore && score <= band.MaxScore {
			return band
		}
	}
	return LevelBands[0]
}
