package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/fluentpath/detprep-backend/internal/config"
	"github.com/fluentpath/detprep-backend/internal/model"
	"github.com/fluentpath/detprep-backend/internal/repository"
)

const (
	ResultBatchSize    = 50
	ResultBatchTimeout = 2 * time.Second
	ResultPollTimeout  = 1 * time.Second
)

// resultStore is the slice of ResultRepository the worker writes through.
type resultStore interface {
	Insert(ctx context.Context, res *model.ExamResult) error
	BulkInsert(ctx context.Context, batch []*model.ExamResult) error
}

// ResultWorker drains the persistence queue into PostgreSQL. Scored results
// are pushed to Redis at finish time so the request path never waits on the
// database; this worker batches them into bulk inserts.
type ResultWorker struct {
	resultRepo resultStore
	rdb        *redis.Client
	log        zerolog.Logger
}

func NewResultWorker(resultRepo *repository.ResultRepository, rdb *redis.Client, log zerolog.Logger) *ResultWorker {
	return &ResultWorker{
		resultRepo: resultRepo,
		rdb:        rdb,
		log:        log.With().Str("component", "result_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

func (w *ResultWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ResultWorker started")

	batch := make([]*model.ExamResult, 0, ResultBatchSize)
	lastFlush := time.Now()

	for {
		// Should flush?
		if len(batch) > 0 &&
			(len(batch) >= ResultBatchSize || time.Since(lastFlush) >= ResultBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, ResultPollTimeout, config.WorkerKey.PersistResultsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var res model.ExamResult
			if err := json.Unmarshal([]byte(item[1]), &res); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &res)
		}
	}
}

// ----------------------------------------------------------------
// Batch insert wrapper with single-row fallback
// ----------------------------------------------------------------

func (w *ResultWorker) flushSafe(ctx context.Context, batch []*model.ExamResult) {
	if len(batch) == 0 {
		return
	}

	persisted, failed := w.persist(ctx, batch)

	for _, res := range failed {
		raw, _ := json.Marshal(res)
		w.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, raw)
	}

	// After a durable write the start-time keys are no longer needed. This
	// covers rows the single-row fallback wrote, not just clean bulk flushes.
	w.bulkClearStartTimes(ctx, persisted)

	w.log.Debug().Int("count", len(persisted)).Int("requeued", len(failed)).Msg("Result batch persisted")
}

// persist writes the batch in one bulk insert, falling back to single-row
// inserts when the bulk statement fails. Rows that fail both ways are
// returned for requeueing.
func (w *ResultWorker) persist(ctx context.Context, batch []*model.ExamResult) (persisted, failed []*model.ExamResult) {
	err := w.resultRepo.BulkInsert(ctx, batch)
	if err == nil {
		return batch, nil
	}
	w.log.Warn().Err(err).Msg("bulk result insert failed, using fallback")

	for _, res := range batch {
		if err := w.resultRepo.Insert(ctx, res); err != nil {
			w.log.Error().Err(err).Str("result_id", res.ID.String()).Msg("single insert failed, requeueing")
			failed = append(failed, res)
			continue
		}
		persisted = append(persisted, res)
	}
	return persisted, failed
}

// ----------------------------------------------------------------
// BULK Redis DEL for spent session start-time keys
// ----------------------------------------------------------------

func (w *ResultWorker) bulkClearStartTimes(ctx context.Context, batch []*model.ExamResult) {
	if len(batch) == 0 {
		return
	}

	pipe := w.rdb.Pipeline()

	for _, res := range batch {
		pipe.Del(ctx, config.CacheKey.SessionStartKey(res.ID.String()))
	}

	_, _ = pipe.Exec(ctx)
}
