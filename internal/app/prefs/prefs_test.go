package prefs

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeRepo struct {
	views map[string]string
}

func (f *fakeRepo) EnsureSchema(ctx context.Context) error { return nil }
func (f *fakeRepo) GetView(ctx context.Context, userID string) (string, error) {
	return f.views[userID], nil
}
func (f *fakeRepo) SetView(ctx context.Context, userID, view string, _ time.Time) error {
	f.views[userID] = view
	return nil
}

func newServiceForTests() *Service {
	return NewService(&fakeRepo{views: map[string]string{}})
}

func TestDefaultView_FallsBackToMonth(t *testing.T) {
	svc := newServiceForTests()
	view, err := svc.DefaultView(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view != "month" {
		t.Fatalf("expected month fallback, got %q", view)
	}
}

func TestSetDefaultView_RoundTrip(t *testing.T) {
	svc := newServiceForTests()
	if err := svc.SetDefaultView(context.Background(), "u1", "week"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	view, err := svc.DefaultView(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view != "week" {
		t.Fatalf("expected week, got %q", view)
	}
}

func TestSetDefaultView_RejectsUnknownView(t *testing.T) {
	svc := newServiceForTests()
	if err := svc.SetDefaultView(context.Background(), "u1", "agenda"); !errors.Is(err, ErrInvalidView) {
		t.Fatalf("expected ErrInvalidView, got %v", err)
	}
}
