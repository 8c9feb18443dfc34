package history

import (
	"context"
	"encoding/json"
	"errors"
	"math"

	"github.com/rs/zerolog"

	"github.com/fluentpath/detprep-backend/internal/config"
	"github.com/fluentpath/detprep-backend/internal/model"
)

// MaxEntries caps the per-user history; recording an entry beyond the cap
// silently evicts the oldest.
const MaxEntries = 10

// rangeWindow is how many recent attempts feed the score range stat.
const rangeWindow = 3

// History is the result persistence adapter: a bounded, most-recent-first
// list of finished attempts per user, plus aggregate statistics. It is
// single-writer by construction (only the session being scored records), so
// a plain read-modify-write per record is enough.
type History struct {
	kv  KV
	log zerolog.Logger
}

// New creates a history over the given KV backend.
func New(kv KV, log zerolog.Logger) *History {
	return &History{
		kv:  kv,
		log: log.With().Str("component", "history").Logger(),
	}
}

// Record prepends a finished result to the user's history, evicting beyond
// the cap. Storage failures are logged and swallowed: the caller always gets
// the in-memory result back, because a lost history write must never cost
// the user the score they just earned.
func (h *History) Record(ctx context.Context, result *model.ExamResult) *model.ExamResult {
	entries := h.load(ctx, result.UserID)

	entries = append([]model.ExamResult{*result}, entries...)
	if len(entries) > MaxEntries {
		entries = entries[:MaxEntries]
	}

	raw, err := json.Marshal(entries)
	if err != nil {
		h.log.Error().Err(err).Int("user_id", result.UserID).Msg("Encode history failed")
		return result
	}
	if err := h.kv.Set(ctx, config.CacheKey.HistoryKey(result.UserID), raw); err != nil {
		h.log.Error().Err(err).Int("user_id", result.UserID).Msg("Persist history failed")
	}
	return result
}

// List returns up to limit entries, most recent first. limit <= 0 means all.
func (h *History) List(ctx context.Context, userID, limit int) []model.ExamResult {
	entries := h.load(ctx, userID)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// Latest returns the most recent result, or nil for an empty history.
func (h *History) Latest(ctx context.Context, userID int) *model.ExamResult {
	entries := h.load(ctx, userID)
	if len(entries) == 0 {
		return nil
	}
	return &entries[0]
}

// Clear removes the user's history.
func (h *History) Clear(ctx context.Context, userID int) error {
	return h.kv.Remove(ctx, config.CacheKey.HistoryKey(userID))
}

// Stats aggregates the stored history. The score range covers the last
// three attempts only, matching what the dashboard displays.
func (h *History) Stats(ctx context.Context, userID int) model.ExamStats {
	entries := h.load(ctx, userID)
	stats := model.ExamStats{TotalSessions: len(entries)}
	if len(entries) == 0 {
		return stats
	}

	var accuracySum, scoreSum, minutes int
	for _, e := range entries {
		accuracySum += e.Accuracy
		scoreSum += e.Score.Overall
		minutes += e.DurationMinutes
	}
	n := float64(len(entries))
	stats.AverageAccuracy = int(math.Round(float64(accuracySum) / n))
	stats.AverageScore = int(math.Round(float64(scoreSum) / n))
	stats.TotalHours = int(math.Round(float64(minutes) / 60))

	recent := entries
	if len(recent) > rangeWindow {
		recent = recent[:rangeWindow]
	}
	stats.ScoreRange = model.ScoreRange{Min: recent[0].Score.Overall, Max: recent[0].Score.Overall}
	for _, e := range recent[1:] {
		if e.Score.Overall < stats.ScoreRange.Min {
			stats.ScoreRange.Min = e.Score.Overall
		}
		if e.Score.Overall > stats.ScoreRange.Max {
			stats.ScoreRange.Max = e.Score.Overall
		}
	}
	return stats
}

// load reads and decodes the stored list. A missing key yields an empty
// history; a corrupted one is logged and treated as empty rather than
// blocking new records.
func (h *History) load(ctx context.Context, userID int) []model.ExamResult {
	raw, err := h.kv.Get(ctx, config.CacheKey.HistoryKey(userID))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			h.log.Warn().Err(err).Int("user_id", userID).Msg("Read history failed")
		}
		return nil
	}

	var entries []model.ExamResult
	if err := json.Unmarshal(raw, &entries); err != nil {
		h.log.Warn().Err(err).Int("user_id", userID).Msg("Corrupted history, starting fresh")
		return nil
	}
	return entries
}
