package schedule

import "time"

// Buckets partitions a task list for agenda display. Every input task lands
// in exactly one bucket; input order is preserved inside each bucket.
type Buckets struct {
	Overdue  []Task `json:"overdue"`
	Today    []Task `json:"today"`
	Tomorrow []Task `json:"tomorrow"`
	ThisWeek []Task `json:"this_week"`
	NextWeek []Task `json:"next_week"`
	Later    []Task `json:"later"`
}

// GroupTasks assigns each task to its agenda bucket relative to now.
// Buckets are evaluated in priority order: overdue (per Classify, so
// completed tasks never land there), today, tomorrow, the rest of the
// Monday-start week containing now, the following Monday-start week, later.
func GroupTasks(tasks []Task, now time.Time) Buckets {
	today := dateOnly(now)
	tomorrow := today.AddDate(0, 0, 1)
	weekStart := StartOfWeek(now)
	nextWeekStart := weekStart.AddDate(0, 0, 7)
	weekAfterNext := weekStart.AddDate(0, 0, 14)

	var b Buckets
	for _, task := range tasks {
		if Classify(task.DueDate, task.DueTime, task.Completed, now) == StatusOverdue {
			b.Overdue = append(b.Overdue, task)
			continue
		}

		due, err := DueInstant(task.DueDate, "", now.Location())
		if err != nil {
			b.Later = append(b.Later, task)
			continue
		}

		switch {
		case due.Equal(today):
			b.Today = append(b.Today, task)
		case due.Equal(tomorrow):
			b.Tomorrow = append(b.Tomorrow, task)
		case !due.Before(weekStart) && due.Before(nextWeekStart):
			b.ThisWeek = append(b.ThisWeek, task)
		case !due.Before(nextWeekStart) && due.Before(weekAfterNext):
			b.NextWeek = append(b.NextWeek, task)
		default:
			b.Later = append(b.Later, task)
		}
	}
	return b
}

// Len reports the total number of tasks across all buckets.
func (b Buckets) Len() int {
	return len(b.Overdue) + len(b.Today) + len(b.Tomorrow) +
		len(b.ThisWeek) + len(b.NextWeek) + len(b.Later)
}
