package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fluentpath/detprep-backend/internal/config"
	"github.com/fluentpath/detprep-backend/internal/database"
	"github.com/fluentpath/detprep-backend/internal/logger"
	"github.com/fluentpath/detprep-backend/internal/model"
	"github.com/fluentpath/detprep-backend/internal/repository"
)

// Starter task bank: one prompt per exercise kind.

var readSelectWords = []model.WordItem{
	{Text: "beautiful", IsReal: true},
	{Text: "flumptious", IsReal: false},
	{Text: "knowledge", IsReal: true},
	{Text: "brindle", IsReal: true},
	{Text: "quozzle", IsReal: false},
	{Text: "ephemeral", IsReal: true},
	{Text: "cromulent", IsReal: false},
	{Text: "serendipity", IsReal: true},
	{Text: "snarfle", IsReal: false},
	{Text: "abundance", IsReal: true},
	{Text: "flibbert", IsReal: false},
	{Text: "magnificent", IsReal: true},
	{Text: "zephyr", IsReal: true},
	{Text: "blornag", IsReal: false},
	{Text: "resilience", IsReal: true},
	{Text: "quibble", IsReal: true},
	{Text: "fribble", IsReal: false},
	{Text: "eloquent", IsReal: true},
	{Text: "snizzle", IsReal: false},
	{Text: "catastrophe", IsReal: true},
}

// Gap markers {{n}} refer to gap IDs.
const readCompletePassage = "The study of as{{1}}nomy has fascin{{2}} implications for our dedic{{3}} to solving the mys{{4}}ries of the universe."

var readCompleteGaps = []model.Gap{
	{ID: 1, Answer: "tro", MaxLength: 4},
	{ID: 2, Answer: "ating", MaxLength: 5},
	{ID: 3, Answer: "ation", MaxLength: 5},
	{ID: 4, Answer: "te", MaxLength: 2},
}

const speakingInstruction = "Do you think technology brings people closer together or pushes them apart? Explain your opinion with examples from your own experience."

const writingInstruction = "Do you agree or disagree with the following statement? Technology has made our lives more complicated rather than simpler. Use specific reasons and examples to support your answer."

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	promptRepo := repository.NewPromptRepository(pool)

	fmt.Println("=== Seeding Starter Task Bank ===")

	seeds := []struct {
		kind    model.ExerciseKind
		title   string
		payload any
	}{
		{
			kind:    model.KindReadSelect,
			title:   "Real or invented words",
			payload: model.ReadSelectPayload{Words: readSelectWords},
		},
		{
			kind:    model.KindReadComplete,
			title:   "Astronomy passage",
			payload: model.ReadCompletePayload{Passage: readCompletePassage, Gaps: readCompleteGaps},
		},
		{
			kind:    model.KindSpeaking,
			title:   "Technology and connection",
			payload: model.TextPromptPayload{Instruction: speakingInstruction},
		},
		{
			kind:    model.KindWriting,
			title:   "Technology: simpler or more complicated",
			payload: model.TextPromptPayload{Instruction: writingInstruction},
		},
	}

	for _, seed := range seeds {
		// Idempotent: skip kinds that already have an active prompt.
		if _, err := promptRepo.GetActiveByKind(ctx, seed.kind); err == nil {
			fmt.Printf("Skipping %s: active prompt already exists\n", seed.kind)
			continue
		}

		raw, err := json.Marshal(seed.payload)
		if err != nil {
			log.Fatal().Err(err).Str("kind", string(seed.kind)).Msg("Failed to encode payload")
		}

		p := &model.Prompt{
			Kind:    seed.kind,
			Title:   seed.title,
			Payload: raw,
			Active:  true,
		}
		if err := promptRepo.Create(ctx, p); err != nil {
			log.Fatal().Err(err).Str("kind", string(seed.kind)).Msg("Failed to create prompt")
		}
		fmt.Printf("Seeded %s prompt: %s (%s)\n", seed.kind, seed.title, p.ID)
	}

	fmt.Println("Done.")
}
