package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fluentpath/detprep-backend/internal/model"
)

type fakeStore struct {
	bulkErr error
	failIDs map[uuid.UUID]bool
	single  []uuid.UUID
}

func (s *fakeStore) BulkInsert(ctx context.Context, batch []*model.ExamResult) error {
	return s.bulkErr
}

func (s *fakeStore) Insert(ctx context.Context, res *model.ExamResult) error {
	if s.failIDs[res.ID] {
		return errors.New("row rejected")
	}
	s.single = append(s.single, res.ID)
	return nil
}

func testBatch(n int) []*model.ExamResult {
	batch := make([]*model.ExamResult, n)
	for i := range batch {
		batch[i] = &model.ExamResult{
			ID:     uuid.New(),
			UserID: 1,
			Kind:   model.KindWriting,
			Date:   time.Now(),
		}
	}
	return batch
}

func TestPersistBulkPath(t *testing.T) {
	store := &fakeStore{}
	w := &ResultWorker{resultRepo: store, log: zerolog.Nop()}

	batch := testBatch(3)
	persisted, failed := w.persist(context.Background(), batch)
	if len(persisted) != 3 || len(failed) != 0 {
		t.Fatalf("persisted/failed = %d/%d, want 3/0", len(persisted), len(failed))
	}
	if len(store.single) != 0 {
		t.Error("bulk path must not touch the single-row insert")
	}
}

func TestPersistFallbackPartitionsRows(t *testing.T) {
	batch := testBatch(3)
	store := &fakeStore{
		bulkErr: errors.New("bulk down"),
		failIDs: map[uuid.UUID]bool{batch[1].ID: true},
	}
	w := &ResultWorker{resultRepo: store, log: zerolog.Nop()}

	persisted, failed := w.persist(context.Background(), batch)
	if len(persisted) != 2 {
		t.Fatalf("persisted = %d, want the 2 rows the fallback wrote", len(persisted))
	}
	for _, res := range persisted {
		if res.ID == batch[1].ID {
			t.Error("rejected row reported as persisted")
		}
	}
	if len(failed) != 1 || failed[0].ID != batch[1].ID {
		t.Fatalf("failed = %v, want only the rejected row", failed)
	}
}

func TestPersistFallbackAllRowsFail(t *testing.T) {
	batch := testBatch(2)
	store := &fakeStore{
		bulkErr: errors.New("bulk down"),
		failIDs: map[uuid.UUID]bool{batch[0].ID: true, batch[1].ID: true},
	}
	w := &ResultWorker{resultRepo: store, log: zerolog.Nop()}

	persisted, failed := w.persist(context.Background(), batch)
	if len(persisted) != 0 || len(failed) != 2 {
		t.Fatalf("persisted/failed = %d/%d, want 0/2", len(persisted), len(failed))
	}
}
