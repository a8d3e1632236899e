package feedback

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrTextRequired = errors.New("feedback text is required")
var ErrInvalidKind = errors.New("kind must be idea, feedback or issue")
var ErrForbidden = errors.New("insufficient permissions")

const (
	KindIdea     = "idea"
	KindFeedback = "feedback"
	KindIssue    = "issue"
)

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

func isValidKind(kind string) bool {
	switch kind {
	case KindIdea, KindFeedback, KindIssue:
		return true
	default:
		return false
	}
}

func (s *Service) Submit(ctx context.Context, authorID, kind, text string) (Submission, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Submission{}, ErrTextRequired
	}
	kind = strings.TrimSpace(strings.ToLower(kind))
	if kind == "" {
		kind = KindFeedback
	}
	if !isValidKind(kind) {
		return Submission{}, ErrInvalidKind
	}

	sub := Submission{
		ID:        uuid.New(),
		AuthorID:  authorID,
		Kind:      kind,
		Text:      text,
		CreatedAt: s.Now(),
	}
	if err := s.Repo.Insert(ctx, sub); err != nil {
		return Submission{}, err
	}
	return sub, nil
}

// List returns recent submissions, newest first. Admin only.
func (s *Service) List(ctx context.Context, actorIsAdmin bool, limit int) ([]Submission, error) {
	if !actorIsAdmin {
		return nil, ErrForbidden
	}
	return s.Repo.List(ctx, limit)
}
