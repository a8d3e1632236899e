package feedback

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeRepo struct {
	items []Submission
}

func (f *fakeRepo) EnsureSchema(ctx context.Context) error { return nil }
func (f *fakeRepo) Insert(ctx context.Context, s Submission) error {
	f.items = append(f.items, s)
	return nil
}
func (f *fakeRepo) List(ctx context.Context, limit int) ([]Submission, error) {
	return f.items, nil
}

func newServiceForTests() (*Service, *fakeRepo) {
	repo := &fakeRepo{}
	svc := NewService(repo)
	svc.Now = func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) }
	return svc, repo
}

func TestSubmit_StoresTrimmedText(t *testing.T) {
	svc, repo := newServiceForTests()

	sub, err := svc.Submit(context.Background(), "u1", "idea", "  offline mode for the van  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sub.Text != "offline mode for the van" || sub.Kind != KindIdea {
		t.Fatalf("unexpected submission: %+v", sub)
	}
	if len(repo.items) != 1 {
		t.Fatalf("expected 1 stored item, got %d", len(repo.items))
	}
}

func TestSubmit_RejectsEmptyText(t *testing.T) {
	svc, _ := newServiceForTests()
	if _, err := svc.Submit(context.Background(), "u1", "idea", "   "); !errors.Is(err, ErrTextRequired) {
		t.Fatalf("expected ErrTextRequired, got %v", err)
	}
}

func TestSubmit_KindDefaultsAndValidates(t *testing.T) {
	svc, _ := newServiceForTests()

	sub, err := svc.Submit(context.Background(), "u1", "", "works fine")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sub.Kind != KindFeedback {
		t.Fatalf("expected default kind feedback, got %q", sub.Kind)
	}

	if _, err := svc.Submit(context.Background(), "u1", "complaint", "x"); !errors.Is(err, ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
}

func TestList_AdminOnly(t *testing.T) {
	svc, _ := newServiceForTests()
	if _, err := svc.List(context.Background(), false, 10); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := svc.List(context.Background(), true, 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
