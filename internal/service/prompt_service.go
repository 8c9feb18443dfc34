package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/fluentpath/detprep-backend/internal/config"
	"github.com/fluentpath/detprep-backend/internal/model"
	"github.com/fluentpath/detprep-backend/internal/repository"
)

// ErrNoPrompt is returned when no active task-bank entry exists for a kind.
var ErrNoPrompt = errors.New("no active prompt for this exercise kind")

// ClientPrompt is a prompt with grading data stripped: word lists lose their
// real/invented flags and gaps lose their answers. This is what session
// starts hand to the UI.
type ClientPrompt struct {
	ID      string             `json:"id"`
	Kind    model.ExerciseKind `json:"kind"`
	Title   string             `json:"title"`
	Payload json.RawMessage    `json:"payload"`
}

// PromptService serves task-bank prompts with a Redis read-through cache.
type PromptService struct {
	promptRepo *repository.PromptRepository
	rdb        *redis.Client
	log        zerolog.Logger
}

// NewPromptService creates a new PromptService.
func NewPromptService(promptRepo *repository.PromptRepository, rdb *redis.Client, log zerolog.Logger) *PromptService {
	return &PromptService{
		promptRepo: promptRepo,
		rdb:        rdb,
		log:        log.With().Str("component", "prompt_service").Logger(),
	}
}

// GetActive returns the active prompt for a kind, preferring the cache.
func (s *PromptService) GetActive(ctx context.Context, kind model.ExerciseKind) (*model.Prompt, error) {
	cacheKey := config.CacheKey.PromptKey(string(kind))

	raw, err := s.rdb.Get(ctx, cacheKey).Bytes()
	if err == nil {
		var p model.Prompt
		if err := json.Unmarshal(raw, &p); err == nil {
			return &p, nil
		}
		s.log.Warn().Str("kind", string(kind)).Msg("Corrupted prompt cache entry, reloading")
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Msg("Prompt cache read failed, falling back to database")
	}

	p, err := s.promptRepo.GetActiveByKind(ctx, kind)
	if err != nil {
		return nil, ErrNoPrompt
	}

	if encoded, err := json.Marshal(p); err == nil {
		if err := s.rdb.Set(ctx, cacheKey, encoded, 0).Err(); err != nil {
			s.log.Warn().Err(err).Msg("Prompt cache write failed")
		}
	}
	return p, nil
}

// PrewarmAllCaches loads the active prompt for every kind into Redis before
// the server accepts traffic, so session starts never race a cold cache.
func (s *PromptService) PrewarmAllCaches(ctx context.Context) error {
	kinds := []model.ExerciseKind{
		model.KindReadSelect, model.KindReadComplete, model.KindSpeaking, model.KindWriting,
	}

	var firstErr error
	for _, kind := range kinds {
		if _, err := s.GetActive(ctx, kind); err != nil {
			s.log.Warn().Str("kind", string(kind)).Err(err).Msg("Prewarm skipped kind")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// InvalidateCache drops the cached prompt for a kind (after task-bank edits).
func (s *PromptService) InvalidateCache(ctx context.Context, kind model.ExerciseKind) error {
	return s.rdb.Del(ctx, config.CacheKey.PromptKey(string(kind))).Err()
}

// Create adds a task-bank entry after validating its payload shape, then
// invalidates the kind's cache.
func (s *PromptService) Create(ctx context.Context, req *model.CreatePromptRequest) (*model.Prompt, error) {
	if err := validatePromptPayload(req.Kind, req.Payload); err != nil {
		return nil, err
	}

	// One active prompt per kind: the previous one is retired, not deleted.
	if prev, err := s.promptRepo.GetActiveByKind(ctx, req.Kind); err == nil {
		if err := s.promptRepo.Deactivate(ctx, prev.ID); err != nil {
			return nil, fmt.Errorf("retire previous prompt: %w", err)
		}
	}

	p := &model.Prompt{
		Kind:    req.Kind,
		Title:   req.Title,
		Payload: req.Payload,
		Active:  true,
	}
	if err := s.promptRepo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create prompt: %w", err)
	}

	if err := s.InvalidateCache(ctx, req.Kind); err != nil {
		s.log.Warn().Err(err).Msg("Prompt cache invalidation failed")
	}
	return p, nil
}

// ListBank returns every task-bank entry for a kind, newest first. These are
// full prompts with grading data, for bank management rather than play.
func (s *PromptService) ListBank(ctx context.Context, kind model.ExerciseKind) ([]model.Prompt, error) {
	return s.promptRepo.ListByKind(ctx, kind)
}

// Retire deactivates a task-bank entry. The kind ends up with no active
// prompt until a new one is created.
func (s *PromptService) Retire(ctx context.Context, id uuid.UUID) error {
	p, err := s.promptRepo.GetByID(ctx, id)
	if err != nil {
		return ErrNoPrompt
	}

	if err := s.promptRepo.Deactivate(ctx, p.ID); err != nil {
		return fmt.Errorf("retire prompt: %w", err)
	}

	if err := s.InvalidateCache(ctx, p.Kind); err != nil {
		s.log.Warn().Err(err).Msg("Prompt cache invalidation failed")
	}
	return nil
}

// ForClient strips grading data from a prompt before it leaves the server.
func ForClient(p *model.Prompt) (*ClientPrompt, error) {
	out := &ClientPrompt{
		ID:    p.ID.String(),
		Kind:  p.Kind,
		Title: p.Title,
	}

	switch p.Kind {
	case model.KindReadSelect:
		var payload model.ReadSelectPayload
		if err := json.Unmarshal(p.Payload, &payload); err != nil {
			return nil, fmt.Errorf("decode read-select payload: %w", err)
		}
		words := make([]string, len(payload.Words))
		for i, w := range payload.Words {
			words[i] = w.Text
		}
		encoded, err := json.Marshal(map[string]any{"words": words})
		if err != nil {
			return nil, err
		}
		out.Payload = encoded

	case model.KindReadComplete:
		var payload model.ReadCompletePayload
		if err := json.Unmarshal(p.Payload, &payload); err != nil {
			return nil, fmt.Errorf("decode read-complete payload: %w", err)
		}
		type clientGap struct {
			ID        int `json:"id"`
			MaxLength int `json:"max_length"`
		}
		gaps := make([]clientGap, len(payload.Gaps))
		for i, g := range payload.Gaps {
			gaps[i] = clientGap{ID: g.ID, MaxLength: g.MaxLength}
		}
		encoded, err := json.Marshal(map[string]any{"passage": payload.Passage, "gaps": gaps})
		if err != nil {
			return nil, err
		}
		out.Payload = encoded

	default:
		// Speaking and Writing prompts contain no grading data.
		out.Payload = p.Payload
	}

	return out, nil
}

func validatePromptPayload(kind model.ExerciseKind, payload json.RawMessage) error {
	switch kind {
	case model.KindReadSelect:
		var p model.ReadSelectPayload
		if err := json.Unmarshal(payload, &p); err != nil || len(p.Words) == 0 {
			return errors.New("read-select payload requires a non-empty word list")
		}
	case model.KindReadComplete:
		var p model.ReadCompletePayload
		if err := json.Unmarshal(payload, &p); err != nil || len(p.Gaps) == 0 {
			return errors.New("read-complete payload requires a non-empty gap list")
		}
		for _, g := range p.Gaps {
			if g.Answer == "" || g.MaxLength < len(g.Answer) {
				return errors.New("each gap requires an answer no longer than its max length")
			}
		}
	case model.KindSpeaking, model.KindWriting:
		var p model.TextPromptPayload
		if err := json.Unmarshal(payload, &p); err != nil || p.Instruction == "" {
			return errors.New("prompt payload requires an instruction")
		}
	default:
		return errors.New("unknown exercise kind")
	}
	return nil
}
