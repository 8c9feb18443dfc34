package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fluentpath/detprep-backend/internal/model"
)

// ResultRepository handles the durable record of finished practice attempts.
// The bounded per-user history lives in Redis; this table is the full
// append-only archive the dashboards aggregate over.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// Insert stores one finished result.
func (r *ResultRepository) Insert(ctx context.Context, res *model.ExamResult) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO practice_results
		   (id, user_id, kind, taken_at, literacy, conversation, comprehension, production,
		    overall, duration_minutes, accuracy, correct_answers, total_questions, expired)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 ON CONFLICT (id) DO NOTHING`,
		res.ID, res.UserID, res.Kind, res.Date,
		res.Score.Literacy, res.Score.Conversation, res.Score.Comprehension, res.Score.Production,
		res.Score.Overall, res.DurationMinutes, res.Accuracy, res.CorrectAnswers,
		res.TotalQuestions, res.Expired,
	)
	return err
}

// BulkInsert stores a batch of results in one round trip using UNNEST.
func (r *ResultRepository) BulkInsert(ctx context.Context, batch []*model.ExamResult) error {
	n := len(batch)
	if n == 0 {
		return nil
	}

	ids := make([]uuid.UUID, n)
	userIDs := make([]int, n)
	kinds := make([]string, n)
	takenAts := make([]time.Time, n)
	literacy := make([]int, n)
	conversation := make([]int, n)
	comprehension := make([]int, n)
	production := make([]int, n)
	overall := make([]int, n)
	durations := make([]int, n)
	accuracies := make([]int, n)
	corrects := make([]int, n)
	totals := make([]int, n)
	expireds := make([]bool, n)

	for i, res := range batch {
		ids[i] = res.ID
		userIDs[i] = res.UserID
		kinds[i] = string(res.Kind)
		takenAts[i] = res.Date
		literacy[i] = res.Score.Literacy
		conversation[i] = res.Score.Conversation
		comprehension[i] = res.Score.Comprehension
		production[i] = res.Score.Production
		overall[i] = res.Score.Overall
		durations[i] = res.DurationMinutes
		accuracies[i] = res.Accuracy
		corrects[i] = res.CorrectAnswers
		totals[i] = res.TotalQuestions
		expireds[i] = res.Expired
	}

	query := `
		INSERT INTO practice_results
		  (id, user_id, kind, taken_at, literacy, conversation, comprehension, production,
		   overall, duration_minutes, accuracy, correct_answers, total_questions, expired)
		SELECT * FROM UNNEST(
			$1::uuid[],
			$2::int[],
			$3::text[],
			$4::timestamptz[],
			$5::int[],
			$6::int[],
			$7::int[],
			$8::int[],
			$9::int[],
			$10::int[],
			$11::int[],
			$12::int[],
			$13::int[],
			$14::bool[]
		)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := r.pool.Exec(ctx, query,
		ids, userIDs, kinds, takenAts,
		literacy, conversation, comprehension, production,
		overall, durations, accuracies, corrects, totals, expireds,
	)
	return err
}

// ListByUser retrieves a user's archived results, newest first.
func (r *ResultRepository) ListByUser(ctx context.Context, userID, limit int) ([]model.ExamResult, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, kind, taken_at, literacy, conversation, comprehension, production,
		        overall, duration_minutes, accuracy, correct_answers, total_questions, expired
		 FROM practice_results
		 WHERE user_id = $1
		 ORDER BY taken_at DESC
		 LIMIT $2`, userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.ExamResult
	for rows.Next() {
		var res model.ExamResult
		if err := rows.Scan(
			&res.ID, &res.UserID, &res.Kind, &res.Date,
			&res.Score.Literacy, &res.Score.Conversation, &res.Score.Comprehension, &res.Score.Production,
			&res.Score.Overall, &res.DurationMinutes, &res.Accuracy, &res.CorrectAnswers,
			&res.TotalQuestions, &res.Expired,
		); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}
