package schedule

import (
	"testing"
	"time"
)

var classifyNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func TestClassify_CompletedWinsRegardlessOfDate(t *testing.T) {
	if got := Classify("2020-01-01", "09:00", true, classifyNow); got != StatusCompleted {
		t.Fatalf("expected completed, got %s", got)
	}
	if got := Classify("2030-01-01", "", true, classifyNow); got != StatusCompleted {
		t.Fatalf("expected completed, got %s", got)
	}
}

func TestClassify_Overdue(t *testing.T) {
	if got := Classify("2025-03-09", "16:00", false, classifyNow); got != StatusOverdue {
		t.Fatalf("expected overdue, got %s", got)
	}
	// Earlier today is overdue once the instant has passed.
	if got := Classify("2025-03-10", "09:00", false, classifyNow); got != StatusOverdue {
		t.Fatalf("expected overdue, got %s", got)
	}
}

func TestClassify_DueToday(t *testing.T) {
	if got := Classify("2025-03-10", "18:00", false, classifyNow); got != StatusDueToday {
		t.Fatalf("expected due_today, got %s", got)
	}
}

func TestClassify_DueExactlyNowIsNotOverdue(t *testing.T) {
	if got := Classify("2025-03-10", "12:00", false, classifyNow); got != StatusDueToday {
		t.Fatalf("expected due_today for task due exactly at now, got %s", got)
	}
}

func TestClassify_Upcoming(t *testing.T) {
	if got := Classify("2025-03-12", "08:00", false, classifyNow); got != StatusUpcoming {
		t.Fatalf("expected upcoming, got %s", got)
	}
}

func TestClassify_MissingTimeMeansStartOfDay(t *testing.T) {
	// No time on a past date: overdue at midnight already.
	if got := Classify("2025-03-09", "", false, classifyNow); got != StatusOverdue {
		t.Fatalf("expected overdue, got %s", got)
	}
	// No time today: 00:00 has passed by noon.
	if got := Classify("2025-03-10", "00:00", false, classifyNow); got != StatusOverdue {
		t.Fatalf("expected overdue, got %s", got)
	}
}
