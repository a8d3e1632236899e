package schedule

import (
	"strings"
	"testing"
	"time"
)

var recurNow = time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

func TestNextOnCompletion_SpawnsFollowUp(t *testing.T) {
	parent := Task{
		ID:                "t-1",
		Description:       "Flush hydrant line",
		AssignedTo:        "tech-7",
		DueDate:           "2025-03-08",
		DueTime:           "09:30",
		Completed:         true,
		IsRecurring:       true,
		RecurringType:     RecurOnCompletion,
		RecurringInterval: 1,
		RecurringEndDate:  "2025-12-31",
	}

	next, ok := NextOnCompletion(parent, recurNow)
	if !ok {
		t.Fatal("expected a follow-up task")
	}
	if next.ParentTaskID != "t-1" {
		t.Fatalf("follow-up must reference the parent: %+v", next)
	}
	if next.Completed {
		t.Fatal("follow-up must be open")
	}
	if next.DueDate != "2025-03-10" {
		t.Fatalf("follow-up due date should be today, got %q", next.DueDate)
	}
	if next.DueTime != "09:30" {
		t.Fatalf("follow-up should keep the parent's time, got %q", next.DueTime)
	}
	if !strings.HasPrefix(next.Description, "[Repeat] ") {
		t.Fatalf("follow-up description should be marked as a repeat: %q", next.Description)
	}
	if next.AssignedTo != "tech-7" || next.RecurringType != RecurOnCompletion || next.RecurringEndDate != "2025-12-31" {
		t.Fatalf("follow-up should copy assignee and recurrence fields: %+v", next)
	}
}

func TestNextOnCompletion_NonRecurringYieldsNothing(t *testing.T) {
	if _, ok := NextOnCompletion(Task{ID: "t-2", Completed: true}, recurNow); ok {
		t.Fatal("non-recurring task must not spawn")
	}
}

func TestNextOnCompletion_CalendarTypesAreMetadataOnly(t *testing.T) {
	for _, typ := range []string{RecurDaily, RecurWeekly, RecurMonthly} {
		parent := Task{ID: "t-3", IsRecurring: true, RecurringType: typ, Completed: true}
		if _, ok := NextOnCompletion(parent, recurNow); ok {
			t.Fatalf("%s recurrence must not spawn on completion", typ)
		}
	}
}

func TestEndDateReached(t *testing.T) {
	base := Task{IsRecurring: true, RecurringType: RecurOnCompletion}

	base.RecurringEndDate = ""
	if EndDateReached(base, recurNow) {
		t.Fatal("no end date means never reached")
	}

	base.RecurringEndDate = "2025-03-09"
	if !EndDateReached(base, recurNow) {
		t.Fatal("end date before today should be reached")
	}

	base.RecurringEndDate = "2025-03-10"
	if EndDateReached(base, recurNow) {
		t.Fatal("end date of today is still inside the window")
	}

	base.RecurringEndDate = "2025-03-11"
	if EndDateReached(base, recurNow) {
		t.Fatal("future end date should not be reached")
	}
}
