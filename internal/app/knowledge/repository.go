package knowledge

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrArticleNotFound = errors.New("article not found")

// Article is a knowledge base entry shared with every field user.
type Article struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Tags      []string  `json:"tags"`
	AuthorID  string    `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Repository interface {
	EnsureSchema(ctx context.Context) error
	Insert(ctx context.Context, a Article) error
	Update(ctx context.Context, a Article) error
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (Article, error)
	List(ctx context.Context, search string, limit int) ([]Article, error)
}

type PostgresRepository struct {
	Pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{Pool: pool}
}

func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS kb_articles (
			id UUID PRIMARY KEY,
			title TEXT NOT NULL,
			body TEXT NOT NULL,
			tags TEXT[] NOT NULL DEFAULT '{}',
			author_id TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_kb_articles_updated_at ON kb_articles (updated_at DESC);
	`)
	return err
}

func (r *PostgresRepository) Insert(ctx context.Context, a Article) error {
	_, err := r.Pool.Exec(ctx,
		`INSERT INTO kb_articles (id, title, body, tags, author_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.Title, a.Body, a.Tags, a.AuthorID, a.CreatedAt, a.UpdatedAt,
	)
	return err
}

func (r *PostgresRepository) Update(ctx context.Context, a Article) error {
	tag, err := r.Pool.Exec(ctx,
		`UPDATE kb_articles
		 SET title = $2, body = $3, tags = $4, updated_at = $5
		 WHERE id = $1`,
		a.ID, a.Title, a.Body, a.Tags, a.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrArticleNotFound
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.Pool.Exec(ctx, `DELETE FROM kb_articles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrArticleNotFound
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (Article, error) {
	var a Article
	err := r.Pool.QueryRow(ctx,
		`SELECT id, title, body, tags, author_id, created_at, updated_at
		 FROM kb_articles WHERE id = $1`,
		id,
	).Scan(&a.ID, &a.Title, &a.Body, &a.Tags, &a.AuthorID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Article{}, ErrArticleNotFound
		}
		return Article{}, err
	}
	return a, nil
}

func (r *PostgresRepository) List(ctx context.Context, search string, limit int) ([]Article, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var rows pgx.Rows
	var err error
	if search == "" {
		rows, err = r.Pool.Query(ctx,
			`SELECT id, title, body, tags, author_id, created_at, updated_at
			 FROM kb_articles
			 ORDER BY updated_at DESC
			 LIMIT $1`,
			limit,
		)
	} else {
		rows, err = r.Pool.Query(ctx,
			`SELECT id, title, body, tags, author_id, created_at, updated_at
			 FROM kb_articles
			 WHERE title ILIKE '%' || $1 || '%' OR body ILIKE '%' || $1 || '%'
			 ORDER BY updated_at DESC
			 LIMIT $2`,
			search, limit,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]Article, 0)
	for rows.Next() {
		var a Article
		if err := rows.Scan(&a.ID, &a.Title, &a.Body, &a.Tags, &a.AuthorID, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}
