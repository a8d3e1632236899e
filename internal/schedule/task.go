package schedule

import (
	"strings"
	"time"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Completion statuses a technician can record when closing a task.
const (
	CompletionCompleted  = "completed"
	CompletionWithIssues = "completed_with_issues"
	CompletionFailed     = "failed"
)

// Recurrence types. Only on_completion spawns follow-up tasks; the calendar
// types are stored and exported as metadata but no scheduler advances them.
const (
	RecurDaily        = "daily"
	RecurWeekly       = "weekly"
	RecurMonthly      = "monthly"
	RecurOnCompletion = "on_completion"
)

// Calendar view granularities.
const (
	ViewDay   = "day"
	ViewWeek  = "week"
	ViewMonth = "month"
)

// Task is the scheduling-relevant slice of a work-order record.
type Task struct {
	ID          string
	Description string
	AssignedTo  string
	DueDate     string
	DueTime     string

	Completed        bool
	CompletionStatus string
	CompletionNotes  string

	IsRecurring       bool
	RecurringType     string
	RecurringInterval int
	RecurringEndDate  string
	ParentTaskID      string
}

// DueInstant combines a task's date and time into a wall-clock instant in loc.
// A missing time means start of day.
func DueInstant(dueDate, dueTime string, loc *time.Location) (time.Time, error) {
	t := strings.TrimSpace(dueTime)
	if t == "" {
		t = "00:00"
	}
	return time.ParseInLocation(DateLayout+" "+TimeLayout, strings.TrimSpace(dueDate)+" "+t, loc)
}

// IsValidDate reports whether s is a calendar date in ISO YYYY-MM-DD form.
func IsValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// IsValidTime reports whether s is a 24-hour HH:MM time. Empty is allowed
// and means "no specific time".
func IsValidTime(s string) bool {
	if strings.TrimSpace(s) == "" {
		return true
	}
	_, err := time.Parse(TimeLayout, s)
	return err == nil
}

// IsValidView reports whether v is a supported calendar view.
func IsValidView(v string) bool {
	switch v {
	case ViewDay, ViewWeek, ViewMonth:
		return true
	default:
		return false
	}
}

// IsValidRecurringType reports whether t is a known recurrence type.
func IsValidRecurringType(t string) bool {
	switch t {
	case RecurDaily, RecurWeekly, RecurMonthly, RecurOnCompletion:
		return true
	default:
		return false
	}
}

// IsValidCompletionStatus reports whether s is a known completion status.
func IsValidCompletionStatus(s string) bool {
	switch s {
	case CompletionCompleted, CompletionWithIssues, CompletionFailed:
		return true
	default:
		return false
	}
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
