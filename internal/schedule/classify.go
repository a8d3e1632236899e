package schedule

import "time"

// Status is the display state derived from a task's due instant and
// completion flag. It is recomputed on every read, never stored.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusOverdue   Status = "overdue"
	StatusDueToday  Status = "due_today"
	StatusUpcoming  Status = "upcoming"
)

// Classify derives the display status of a task relative to now.
// Completed wins unconditionally; overdue uses a strict < comparison so a
// task due exactly at now is still due_today.
func Classify(dueDate, dueTime string, completed bool, now time.Time) Status {
	if completed {
		return StatusCompleted
	}
	due, err := DueInstant(dueDate, dueTime, now.Location())
	if err != nil {
		return StatusUpcoming
	}
	if due.Before(now) {
		return StatusOverdue
	}
	if sameDay(due, now) {
		return StatusDueToday
	}
	return StatusUpcoming
}
