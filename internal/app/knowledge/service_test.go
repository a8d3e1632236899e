package knowledge

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeRepo struct {
	items map[uuid.UUID]Article
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{items: map[uuid.UUID]Article{}}
}

func (f *fakeRepo) EnsureSchema(ctx context.Context) error { return nil }
func (f *fakeRepo) Insert(ctx context.Context, a Article) error {
	f.items[a.ID] = a
	return nil
}
func (f *fakeRepo) Update(ctx context.Context, a Article) error {
	if _, ok := f.items[a.ID]; !ok {
		return ErrArticleNotFound
	}
	f.items[a.ID] = a
	return nil
}
func (f *fakeRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := f.items[id]; !ok {
		return ErrArticleNotFound
	}
	delete(f.items, id)
	return nil
}
func (f *fakeRepo) Get(ctx context.Context, id uuid.UUID) (Article, error) {
	a, ok := f.items[id]
	if !ok {
		return Article{}, ErrArticleNotFound
	}
	return a, nil
}
func (f *fakeRepo) List(ctx context.Context, search string, limit int) ([]Article, error) {
	out := []Article{}
	for _, a := range f.items {
		if search == "" || strings.Contains(strings.ToLower(a.Title), strings.ToLower(search)) {
			out = append(out, a)
		}
	}
	return out, nil
}

func newServiceForTests() (*Service, *fakeRepo) {
	repo := newFakeRepo()
	svc := NewService(repo)
	svc.Now = func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) }
	return svc, repo
}

func TestCreate_AdminOnly(t *testing.T) {
	svc, _ := newServiceForTests()
	if _, err := svc.Create(context.Background(), false, "u1", "Boiler reset", "Hold button 5s", nil); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestCreate_NormalizesTags(t *testing.T) {
	svc, _ := newServiceForTests()
	a, err := svc.Create(context.Background(), true, "u1", "Boiler reset", "Hold button 5s", []string{" HVAC ", "hvac", "", "Boilers"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(a.Tags) != 2 || a.Tags[0] != "hvac" || a.Tags[1] != "boilers" {
		t.Fatalf("unexpected tags: %v", a.Tags)
	}
}

func TestCreate_RequiresTitleAndBody(t *testing.T) {
	svc, _ := newServiceForTests()
	if _, err := svc.Create(context.Background(), true, "u1", " ", "body", nil); !errors.Is(err, ErrTitleRequired) {
		t.Fatalf("expected ErrTitleRequired, got %v", err)
	}
	if _, err := svc.Create(context.Background(), true, "u1", "title", " ", nil); !errors.Is(err, ErrBodyRequired) {
		t.Fatalf("expected ErrBodyRequired, got %v", err)
	}
}

func TestUpdate_PreservesCreatedAt(t *testing.T) {
	svc, _ := newServiceForTests()
	created, err := svc.Create(context.Background(), true, "u1", "Boiler reset", "Hold button 5s", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	svc.Now = func() time.Time { return time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC) }
	updated, err := svc.Update(context.Background(), true, created.ID, "Boiler reset v2", "Hold button 10s", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("created_at changed on update")
	}
	if !updated.UpdatedAt.After(created.UpdatedAt) {
		t.Fatalf("updated_at did not advance")
	}
}

func TestDelete_UnknownArticle(t *testing.T) {
	svc, _ := newServiceForTests()
	if err := svc.Delete(context.Background(), true, uuid.New()); !errors.Is(err, ErrArticleNotFound) {
		t.Fatalf("expected ErrArticleNotFound, got %v", err)
	}
}
