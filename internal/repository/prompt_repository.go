package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fluentpath/detprep-backend/internal/model"
)

// PromptRepository handles task-bank data access.
type PromptRepository struct {
	pool *pgxpool.Pool
}

// NewPromptRepository creates a new PromptRepository.
func NewPromptRepository(pool *pgxpool.Pool) *PromptRepository {
	return &PromptRepository{pool: pool}
}

// GetActiveByKind retrieves the newest active prompt for an exercise kind.
func (r *PromptRepository) GetActiveByKind(ctx context.Context, kind model.ExerciseKind) (*model.Prompt, error) {
	p := &model.Prompt{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, kind, title, payload, active, created_at, updated_at
		 FROM prompts
		 WHERE kind = $1 AND active = TRUE
		 ORDER BY created_at DESC
		 LIMIT 1`, kind,
	).Scan(&p.ID, &p.Kind, &p.Title, &p.Payload, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetByID retrieves a prompt by ID.
func (r *PromptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Prompt, error) {
	p := &model.Prompt{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, kind, title, payload, active, created_at, updated_at
		 FROM prompts WHERE id = $1`, id,
	).Scan(&p.ID, &p.Kind, &p.Title, &p.Payload, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListByKind retrieves all prompts for a kind, newest first.
func (r *PromptRepository) ListByKind(ctx context.Context, kind model.ExerciseKind) ([]model.Prompt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, kind, title, payload, active, created_at, updated_at
		 FROM prompts
		 WHERE kind = $1
		 ORDER BY created_at DESC`, kind,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prompts []model.Prompt
	for rows.Next() {
		var p model.Prompt
		if err := rows.Scan(&p.ID, &p.Kind, &p.Title, &p.Payload, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		prompts = append(prompts, p)
	}
	return prompts, rows.Err()
}

// Create inserts a task-bank entry.
func (r *PromptRepository) Create(ctx context.Context, p *model.Prompt) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO prompts (kind, title, payload, active)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		p.Kind, p.Title, p.Payload, p.Active,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

// Deactivate retires a prompt without deleting it.
func (r *PromptRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE prompts SET active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	return err
}
