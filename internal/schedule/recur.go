package schedule

import "time"

const repeatPrefix = "[Repeat] "

// EndDateReached reports whether a recurring task's end date lies strictly
// before today, meaning no further occurrences may be generated. Callers
// must check this before NextOnCompletion.
func EndDateReached(task Task, now time.Time) bool {
	if task.RecurringEndDate == "" {
		return false
	}
	end, err := time.ParseInLocation(DateLayout, task.RecurringEndDate, now.Location())
	if err != nil {
		return false
	}
	return dateOnly(now).After(end)
}

// NextOnCompletion derives the follow-up task spawned by completing an
// on_completion recurring task. Other recurrence types are metadata only and
// yield nothing. The parent is never mutated; the follow-up is due today at
// the parent's time, open, and back-references the parent.
func NextOnCompletion(parent Task, now time.Time) (Task, bool) {
	if !parent.IsRecurring || parent.RecurringType != RecurOnCompletion {
		return Task{}, false
	}
	return Task{
		Description:       repeatPrefix + parent.Description,
		AssignedTo:        parent.AssignedTo,
		DueDate:           now.Format(DateLayout),
		DueTime:           parent.DueTime,
		IsRecurring:       true,
		RecurringType:     parent.RecurringType,
		RecurringInterval: parent.RecurringInterval,
		RecurringEndDate:  parent.RecurringEndDate,
		ParentTaskID:      parent.ID,
	}, true
}
