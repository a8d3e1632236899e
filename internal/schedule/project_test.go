package schedule

import (
	"testing"
	"time"
)

func TestProject_ResolvesAssigneeName(t *testing.T) {
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	directory := map[string]string{"tech-1": "Dana Reyes"}

	ev := Project(Task{
		ID:          "t-1",
		Description: "Inspect panel",
		AssignedTo:  "tech-1",
		DueDate:     "2025-03-10",
		DueTime:     "09:00",
	}, directory, now)

	if ev.AssignedToName != "Dana Reyes" {
		t.Fatalf("expected resolved name, got %q", ev.AssignedToName)
	}
	if ev.Title != "Inspect panel" || ev.Description != "Inspect panel" {
		t.Fatalf("title and description should both carry the task description: %+v", ev)
	}
	if ev.Status != StatusDueToday {
		t.Fatalf("expected derived due_today status, got %s", ev.Status)
	}
	if ev.Priority != PlaceholderPriority {
		t.Fatalf("expected placeholder priority, got %q", ev.Priority)
	}
}

func TestProject_UnknownAssigneeLeavesNameEmpty(t *testing.T) {
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	ev := Project(Task{ID: "t-2", Description: "x", AssignedTo: "ghost", DueDate: "2025-03-11"}, nil, now)
	if ev.AssignedToName != "" {
		t.Fatalf("unresolved assignee should leave name empty, got %q", ev.AssignedToName)
	}
}
