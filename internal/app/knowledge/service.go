package knowledge

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrTitleRequired = errors.New("title is required")
var ErrBodyRequired = errors.New("body is required")
var ErrForbidden = errors.New("insufficient permissions")

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

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := map[string]bool{}
	for _, tag := range tags {
		tag = strings.TrimSpace(strings.ToLower(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

// Create adds an article. Writes are admin only; reads are open to everyone.
func (s *Service) Create(ctx context.Context, actorIsAdmin bool, authorID, title, body string, tags []string) (Article, error) {
	if !actorIsAdmin {
		return Article{}, ErrForbidden
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return Article{}, ErrTitleRequired
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return Article{}, ErrBodyRequired
	}

	now := s.Now()
	article := Article{
		ID:        uuid.New(),
		Title:     title,
		Body:      body,
		Tags:      normalizeTags(tags),
		AuthorID:  authorID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Repo.Insert(ctx, article); err != nil {
		return Article{}, err
	}
	return article, nil
}

func (s *Service) Update(ctx context.Context, actorIsAdmin bool, id uuid.UUID, title, body string, tags []string) (Article, error) {
	if !actorIsAdmin {
		return Article{}, ErrForbidden
	}
	existing, err := s.Repo.Get(ctx, id)
	if err != nil {
		return Article{}, err
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return Article{}, ErrTitleRequired
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return Article{}, ErrBodyRequired
	}

	existing.Title = title
	existing.Body = body
	existing.Tags = normalizeTags(tags)
	existing.UpdatedAt = s.Now()
	if err := s.Repo.Update(ctx, existing); err != nil {
		return Article{}, err
	}
	return existing, nil
}

func (s *Service) Delete(ctx context.Context, actorIsAdmin bool, id uuid.UUID) error {
	if !actorIsAdmin {
		return ErrForbidden
	}
	return s.Repo.Delete(ctx, id)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (Article, error) {
	return s.Repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, search string, limit int) ([]Article, error) {
	return s.Repo.List(ctx, strings.TrimSpace(search), limit)
}
