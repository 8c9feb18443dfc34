package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fluentpath/detprep-backend/internal/config"
	"github.com/fluentpath/detprep-backend/internal/model"
)

func newTestHistory() (*History, *MemoryKV) {
	kv := NewMemoryKV()
	return New(kv, zerolog.Nop()), kv
}

func result(userID, overall int) *model.ExamResult {
	return &model.ExamResult{
		ID:     uuid.New(),
		UserID: userID,
		Kind:   model.KindWriting,
		Date:   time.Now(),
		Score: model.ExamScore{
			Literacy:   overall,
			Production: overall,
			Overall:    overall,
		},
		DurationMinutes: 5,
		Accuracy:        80,
	}
}

func TestRecordPrependsMostRecentFirst(t *testing.T) {
	h, _ := newTestHistory()
	ctx := context.Background()

	h.Record(ctx, result(1, 100))
	h.Record(ctx, result(1, 120))
	h.Record(ctx, result(1, 140))

	entries := h.List(ctx, 1, 0)
	if len(entries) != 3 {
		t.Fatalf("len = %d, want 3", len(entries))
	}
	if entries[0].Score.Overall != 140 || entries[2].Score.Overall != 100 {
		t.Errorf("order = [%d %d %d], want most recent first",
			entries[0].Score.Overall, entries[1].Score.Overall, entries[2].Score.Overall)
	}
}

func TestRecordEvictsBeyondCap(t *testing.T) {
	h, _ := newTestHistory()
	ctx := context.Background()

	for i := 0; i < MaxEntries+1; i++ {
		h.Record(ctx, result(1, 60+i))
	}

	entries := h.List(ctx, 1, 0)
	if len(entries) != MaxEntries {
		t.Fatalf("len = %d, want %d", len(entries), MaxEntries)
	}
	// The very first result (overall 60) fell off the end.
	for _, e := range entries {
		if e.Score.Overall == 60 {
			t.Error("oldest entry survived past the cap")
		}
	}
	if entries[0].Score.Overall != 60+MaxEntries {
		t.Errorf("newest = %d, want %d", entries[0].Score.Overall, 60+MaxEntries)
	}
}

func TestHistoriesAreIsolatedPerUser(t *testing.T) {
	h, _ := newTestHistory()
	ctx := context.Background()

	h.Record(ctx, result(1, 100))
	h.Record(ctx, result(2, 140))

	if got := len(h.List(ctx, 1, 0)); got != 1 {
		t.Errorf("user 1 entries = %d, want 1", got)
	}
	if latest := h.Latest(ctx, 2); latest == nil || latest.Score.Overall != 140 {
		t.Errorf("user 2 latest = %+v, want overall 140", latest)
	}
	if latest := h.Latest(ctx, 3); latest != nil {
		t.Errorf("user 3 latest = %+v, want nil", latest)
	}
}

func TestStats(t *testing.T) {
	h, _ := newTestHistory()
	ctx := context.Background()

	// Oldest to newest: 100, 120, 80, 140. Range covers the last 3 recorded.
	for _, overall := range []int{100, 120, 80, 140} {
		r := result(1, overall)
		r.DurationMinutes = 30
		h.Record(ctx, r)
	}

	stats := h.Stats(ctx, 1)
	if stats.TotalSessions != 4 {
		t.Errorf("sessions = %d, want 4", stats.TotalSessions)
	}
	if stats.AverageScore != 110 {
		t.Errorf("average score = %d, want 110", stats.AverageScore)
	}
	if stats.AverageAccuracy != 80 {
		t.Errorf("average accuracy = %d, want 80", stats.AverageAccuracy)
	}
	// 4 * 30min = 2h
	if stats.TotalHours != 2 {
		t.Errorf("total hours = %d, want 2", stats.TotalHours)
	}
	// Last three attempts: 140, 80, 120.
	if stats.ScoreRange.Min != 80 || stats.ScoreRange.Max != 140 {
		t.Errorf("range = %+v, want min 80 max 140", stats.ScoreRange)
	}
}

func TestStatsEmptyHistory(t *testing.T) {
	h, _ := newTestHistory()
	stats := h.Stats(context.Background(), 1)
	if stats.TotalSessions != 0 || stats.AverageScore != 0 {
		t.Errorf("stats = %+v, want zero values", stats)
	}
}

func TestClear(t *testing.T) {
	h, _ := newTestHistory()
	ctx := context.Background()

	h.Record(ctx, result(1, 100))
	if err := h.Clear(ctx, 1); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if got := len(h.List(ctx, 1, 0)); got != 0 {
		t.Errorf("entries after clear = %d, want 0", got)
	}
}

// failingKV rejects every operation, simulating a Redis outage.
type failingKV struct{}

func (failingKV) Get(context.Context, string) ([]byte, error) { return nil, errors.New("down") }
func (failingKV) Set(context.Context, string, []byte) error   { return errors.New("down") }
func (failingKV) Remove(context.Context, string) error        { return errors.New("down") }

func TestRecordSurvivesStorageFailure(t *testing.T) {
	h := New(failingKV{}, zerolog.Nop())

	r := result(1, 100)
	got := h.Record(context.Background(), r)
	if got == nil || got.Score.Overall != 100 {
		t.Fatal("Record must return the result even when persistence fails")
	}
}

func TestLoadToleratesCorruptedStore(t *testing.T) {
	h, kv := newTestHistory()
	ctx := context.Background()

	kv.Set(ctx, config.CacheKey.HistoryKey(1), []byte("{not json"))

	if got := len(h.List(ctx, 1, 0)); got != 0 {
		t.Errorf("entries = %d, want 0 for corrupted store", got)
	}
	// A fresh record replaces the corrupted blob.
	h.Record(ctx, result(1, 100))
	if got := len(h.List(ctx, 1, 0)); got != 1 {
		t.Errorf("entries = %d, want 1 after recovery", got)
	}
}

func TestListLimit(t *testing.T) {
	h, _ := newTestHistory()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		h.Record(ctx, result(1, 100))
	}

	if got := len(h.List(ctx, 1, 2)); got != 2 {
		t.Errorf("limited entries = %d, want 2", got)
	}
	if got := len(h.List(ctx, 1, 0)); got != 5 {
		t.Errorf("unlimited entries = %d, want 5", got)
	}
}

func TestRecordKeepsHistoriesDistinctUnderLoad(t *testing.T) {
	h, _ := newTestHistory()
	ctx := context.Background()

	for user := 1; user <= 3; user++ {
		for i := 0; i < MaxEntries; i++ {
			h.Record(ctx, result(user, 100))
		}
	}
	for user := 1; user <= 3; user++ {
		if got := len(h.List(ctx, user, 0)); got != MaxEntries {
			t.Errorf("user %d entries = %d, want %d", user, got, MaxEntries)
		}
	}
}
