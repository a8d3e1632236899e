package prefs

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/crewboard/platform/internal/schedule"
)

var ErrInvalidView = errors.New("view must be day, week or month")

type Repository interface {
	EnsureSchema(ctx context.Context) error
	GetView(ctx context.Context, userID string) (string, error)
	SetView(ctx context.Context, userID, view string, updatedAt time.Time) error
}

type PostgresRepository struct {
	Pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{Pool: pool}
}

func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS user_preferences (
			user_id TEXT PRIMARY KEY,
			default_view TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
	`)
	return err
}

func (r *PostgresRepository) GetView(ctx context.Context, userID string) (string, error) {
	var view string
	err := r.Pool.QueryRow(ctx,
		`SELECT default_view FROM user_preferences WHERE user_id = $1`,
		userID,
	).Scan(&view)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return view, nil
}

func (r *PostgresRepository) SetView(ctx context.Context, userID, view string, updatedAt time.Time) error {
	_, err := r.Pool.Exec(ctx,
		`INSERT INTO user_preferences (user_id, default_view, updated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE SET default_view = EXCLUDED.default_view, updated_at = EXCLUDED.updated_at`,
		userID, view, updatedAt,
	)
	return err
}

// Service holds each user's preferred dashboard calendar view.
type Service struct {
	Repo Repository
	Now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		Repo: repo,
		Now:  func() time.Time { return time.Now().UTC() },
	}
}

// DefaultView returns the stored view, falling back to the month view when
// the user never picked one.
func (s *Service) DefaultView(ctx context.Context, userID string) (string, error) {
	view, err := s.Repo.GetView(ctx, userID)
	if err != nil {
		return "", err
	}
	if !schedule.IsValidView(view) {
		return schedule.ViewMonth, nil
	}
	return view, nil
}

func (s *Service) SetDefaultView(ctx context.Context, userID, view string) error {
	if !schedule.IsValidView(view) {
		return ErrInvalidView
	}
	return s.Repo.SetView(ctx, userID, view, s.Now())
}
