package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// WordItem is one entry of a Read & Select word list.
type WordItem struct {
	Text   string `json:"text"`
	IsReal bool   `json:"is_real"`
}

// Gap is one blank of a Read & Complete passage.
type Gap struct {
	ID        int    `json:"id"`
	Answer    string `json:"answer"`
	MaxLength int    `json:"max_length"`
}

// Prompt is one task-bank entry for a given exercise kind.
// Payload is kind-specific: a word list for READ_SELECT, passage text plus
// gaps for READ_COMPLETE, and an instruction string for SPEAKING/WRITING.
type Prompt struct {
	ID        uuid.UUID       `json:"id"`
	Kind      ExerciseKind    `json:"kind"`
	Title     string          `json:"title"`
	Payload   json.RawMessage `json:"payload"`
	Active    bool            `json:"active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ReadSelectPayload is the decoded payload of a READ_SELECT prompt.
type ReadSelectPayload struct {
	Words []WordItem `json:"words"`
}

// ReadCompletePayload is the decoded payload of a READ_COMPLETE prompt.
type ReadCompletePayload struct {
	Passage string `json:"passage"`
	Gaps    []Gap  `json:"gaps"`
}

// TextPromptPayload is the decoded payload of SPEAKING and WRITING prompts.
type TextPromptPayload struct {
	Instruction string `json:"instruction"`
}

// CreatePromptRequest is the payload for adding a task-bank entry.
type CreatePromptRequest struct {
	Kind    ExerciseKind    `json:"kind" binding:"required,oneof=READ_SELECT READ_COMPLETE SPEAKING WRITING"`
	Title   string          `json:"title" binding:"required,min=3,max=255"`
	Payload json.RawMessage `json:"payload" binding:"required"`
}
