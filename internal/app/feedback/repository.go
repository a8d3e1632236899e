package feedback

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Submission is a product signal left by a field user.
type Submission struct {
	ID        uuid.UUID `json:"id"`
	AuthorID  string    `json:"author_id"`
	Kind      string    `json:"kind"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type Repository interface {
	EnsureSchema(ctx context.Context) error
	Insert(ctx context.Context, s Submission) error
	List(ctx context.Context, limit int) ([]Submission, error)
}

type PostgresRepository struct {
	Pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{Pool: pool}
}

func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS feedback_submissions (
			id UUID PRIMARY KEY,
			author_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			body TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_feedback_created_at ON feedback_submissions (created_at DESC);
	`)
	return err
}

func (r *PostgresRepository) Insert(ctx context.Context, s Submission) error {
	_, err := r.Pool.Exec(ctx,
		`INSERT INTO feedback_submissions (id, author_id, kind, body, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		s.ID, s.AuthorID, s.Kind, s.Text, s.CreatedAt,
	)
	return err
}

func (r *PostgresRepository) List(ctx context.Context, limit int) ([]Submission, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.Pool.Query(ctx,
		`SELECT id, author_id, kind, body, created_at
		 FROM feedback_submissions
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]Submission, 0)
	for rows.Next() {
		var s Submission
		if err := rows.Scan(&s.ID, &s.AuthorID, &s.Kind, &s.Text, &s.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}
