package model

import (
	"time"

	"github.com/google/uuid"
)

// ExerciseKind enumerates the four practice exercise types.
type ExerciseKind string

const (
	KindReadSelect   ExerciseKind = "READ_SELECT"
	KindReadComplete ExerciseKind = "READ_COMPLETE"
	KindSpeaking     ExerciseKind = "SPEAKING"
	KindWriting      ExerciseKind = "WRITING"
)

// Valid reports whether k is a known exercise kind.
func (k ExerciseKind) Valid() bool {
	switch k {
	case KindReadSelect, KindReadComplete, KindSpeaking, KindWriting:
		return true
	}
	return false
}

// SessionStatus enumerates practice session states.
type SessionStatus string

const (
	SessionStatusIdle       SessionStatus = "IDLE"
	SessionStatusActive     SessionStatus = "ACTIVE"
	SessionStatusSubmitting SessionStatus = "SUBMITTING"
	SessionStatusScored     SessionStatus = "SCORED"
	SessionStatusExpired    SessionStatus = "EXPIRED"
)

// Terminal reports whether the session has reached a final state.
func (s SessionStatus) Terminal() bool {
	return s == SessionStatusScored || s == SessionStatusExpired
}

// PracticeSession is the wire representation of one exercise attempt.
type PracticeSession struct {
	ID               uuid.UUID     `json:"id"`
	UserID           int           `json:"user_id"`
	Kind             ExerciseKind  `json:"kind"`
	Status           SessionStatus `json:"status"`
	StartedAt        time.Time     `json:"started_at"`
	FinishedAt       *time.Time    `json:"finished_at,omitempty"`
	DurationBudget   int           `json:"duration_budget"` // seconds; per-item for READ_SELECT
	RemainingSeconds float64       `json:"remaining_seconds"`
	Result           *ExamResult   `json:"result,omitempty"`
}

// StartSessionRequest is the payload for opening a practice session.
type StartSessionRequest struct {
	Kind ExerciseKind `json:"kind" binding:"required,oneof=READ_SELECT READ_COMPLETE SPEAKING WRITING"`
}

// EventType enumerates answer events a client can send during a session.
type EventType string

const (
	EventJudgeWord   EventType = "judge_word"   // READ_SELECT
	EventFillGap     EventType = "fill_gap"     // READ_COMPLETE
	EventRecordStart EventType = "record_start" // SPEAKING
	EventRecordStop  EventType = "record_stop"  // SPEAKING
	EventMicDenied   EventType = "mic_denied"   // SPEAKING
	EventSetText     EventType = "set_text"     // WRITING
)

// AnswerEventRequest is the payload for an answer mutation.
// Fields are interpreted per event type; unused fields are ignored.
type AnswerEventRequest struct {
	Type    EventType `json:"type" binding:"required,oneof=judge_word fill_gap record_start record_stop mic_denied set_text"`
	Index   int       `json:"index"`              // word index or gap id
	Real    *bool     `json:"real,omitempty"`     // judge_word: nil means no judgment
	Value   string    `json:"value,omitempty"`    // fill_gap input
	Text    string    `json:"text,omitempty"`     // set_text content
	Seconds float64   `json:"seconds,omitempty"`  // record_stop: recorded duration
}
