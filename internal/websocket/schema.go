package websocket

import "github.com/fluentpath/detprep-backend/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionEvent  Action = "event"
	ActionSubmit Action = "submit"
	ActionPing   Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// EventRequest carries one answer event into the session.
type EventRequest struct {
	Action Action                   `json:"action"`
	Event  model.AnswerEventRequest `json:"event"`
}

// SubmitRequest finalizes and scores the session.
type SubmitRequest struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError  Event = "error"
	EventTick   Event = "tick"
	EventState  Event = "state"
	EventGraded Event = "graded"
	EventPong   Event = "pong"
)

// TickResponse streams the countdown to the client.
type TickResponse struct {
	Event            Event   `json:"event"`
	RemainingSeconds float64 `json:"remaining_seconds"`
}

// StateResponse echoes the full session snapshot after a mutation.
type StateResponse struct {
	Event   Event                 `json:"event"`
	Session model.PracticeSession `json:"session"`
}

// GradedResponse delivers the scored result on the terminal transition.
type GradedResponse struct {
	Event  Event             `json:"event"`
	Result *model.ExamResult `json:"result"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
