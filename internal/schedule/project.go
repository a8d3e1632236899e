package schedule

import "time"

// PlaceholderPriority is the constant priority stamped on every projected
// event. Priority is not derived from task content yet; this is a known
// limitation of the projection layer.
const PlaceholderPriority = "normal"

// CalendarEvent is the read-only display projection of a Task. It is never
// persisted.
type CalendarEvent struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	AssignedTo     string `json:"assigned_to"`
	AssignedToName string `json:"assigned_to_name,omitempty"`
	DueDate        string `json:"due_date"`
	DueTime        string `json:"due_time"`
	Completed      bool   `json:"completed"`
	Status         Status `json:"status"`
	Priority       string `json:"priority"`
}

// Project maps a task to its display event. The assignee name is resolved
// from the directory and left empty when unknown; resolution never fails.
// Title and description both carry the task description since the underlying
// record has no separate title field.
func Project(task Task, directory map[string]string, now time.Time) CalendarEvent {
	ev := CalendarEvent{
		ID:          task.ID,
		Title:       task.Description,
		Description: task.Description,
		AssignedTo:  task.AssignedTo,
		DueDate:     task.DueDate,
		DueTime:     task.DueTime,
		Completed:   task.Completed,
		Status:      Classify(task.DueDate, task.DueTime, task.Completed, now),
		Priority:    PlaceholderPriority,
	}
	if name, ok := directory[task.AssignedTo]; ok {
		ev.AssignedToName = name
	}
	return ev
}

// ProjectAll maps a task list against the same directory and now.
func ProjectAll(tasks []Task, directory map[string]string, now time.Time) []CalendarEvent {
	events := make([]CalendarEvent, 0, len(tasks))
	for _, task := range tasks {
		events = append(events, Project(task, directory, now))
	}
	return events
}
