package service

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/fluentpath/detprep-backend/internal/model"
)

func TestForClientStripsWordFlags(t *testing.T) {
	payload, _ := json.Marshal(model.ReadSelectPayload{Words: []model.WordItem{
		{Text: "beautiful", IsReal: true},
		{Text: "quozzle", IsReal: false},
	}})
	p := &model.Prompt{ID: uuid.New(), Kind: model.KindReadSelect, Title: "words", Payload: payload}

	cp, err := ForClient(p)
	if err != nil {
		t.Fatalf("ForClient: %v", err)
	}

	raw := string(cp.Payload)
	if strings.Contains(raw, "is_real") || strings.Contains(raw, "IsReal") {
		t.Errorf("client payload leaks grading flags: %s", raw)
	}

	var out struct {
		Words []string `json:"words"`
	}
	if err := json.Unmarshal(cp.Payload, &out); err != nil {
		t.Fatalf("decode client payload: %v", err)
	}
	if len(out.Words) != 2 || out.Words[0] != "beautiful" {
		t.Errorf("words = %v, want the bare word list", out.Words)
	}
}

func TestForClientStripsGapAnswers(t *testing.T) {
	payload, _ := json.Marshal(model.ReadCompletePayload{
		Passage: "as{{1}}nomy",
		Gaps:    []model.Gap{{ID: 1, Answer: "tro", MaxLength: 4}},
	})
	p := &model.Prompt{ID: uuid.New(), Kind: model.KindReadComplete, Title: "passage", Payload: payload}

	cp, err := ForClient(p)
	if err != nil {
		t.Fatalf("ForClient: %v", err)
	}

	raw := string(cp.Payload)
	if strings.Contains(raw, `"answer"`) || strings.Contains(raw, "tro") {
		t.Errorf("client payload leaks gap answers: %s", raw)
	}
	if !strings.Contains(raw, "max_length") || !strings.Contains(raw, "passage") {
		t.Errorf("client payload missing gap shape: %s", raw)
	}
}

func TestForClientPassesTextPromptsThrough(t *testing.T) {
	payload, _ := json.Marshal(model.TextPromptPayload{Instruction: "talk about technology"})
	p := &model.Prompt{ID: uuid.New(), Kind: model.KindSpeaking, Title: "topic", Payload: payload}

	cp, err := ForClient(p)
	if err != nil {
		t.Fatalf("ForClient: %v", err)
	}
	if string(cp.Payload) != string(payload) {
		t.Errorf("payload = %s, want passthrough", cp.Payload)
	}
}

func TestValidatePromptPayload(t *testing.T) {
	goodWords, _ := json.Marshal(model.ReadSelectPayload{Words: []model.WordItem{{Text: "x", IsReal: true}}})
	if err := validatePromptPayload(model.KindReadSelect, goodWords); err != nil {
		t.Errorf("valid word list rejected: %v", err)
	}
	emptyWords, _ := json.Marshal(model.ReadSelectPayload{})
	if err := validatePromptPayload(model.KindReadSelect, emptyWords); err == nil {
		t.Error("empty word list accepted")
	}

	badGap, _ := json.Marshal(model.ReadCompletePayload{
		Gaps: []model.Gap{{ID: 1, Answer: "longer", MaxLength: 2}},
	})
	if err := validatePromptPayload(model.KindReadComplete, badGap); err == nil {
		t.Error("gap with answer longer than max length accepted")
	}

	noInstruction, _ := json.Marshal(model.TextPromptPayload{})
	if err := validatePromptPayload(model.KindWriting, noInstruction); err == nil {
		t.Error("empty instruction accepted")
	}

	if err := validatePromptPayload("BOGUS", goodWords); err == nil {
		t.Error("unknown kind accepted")
	}
}
