package contracts

import "time"

// TaskCommand is the command published by command-api and processed by domain-engine.
type TaskCommand struct {
	CommandID   string `json:"command_id"`
	TaskID      string `json:"task_id"`
	ActorUserID string `json:"actor_user_id"`
	ActorName   string `json:"actor_name"`
	Action      string `json:"action"`

	Description string `json:"description"`
	AssignedTo  string `json:"assigned_to"`
	DueDate     string `json:"due_date"`
	DueTime     string `json:"due_time"`

	CompletionStatus string `json:"completion_status,omitempty"`
	CompletionNotes  string `json:"completion_notes,omitempty"`

	IsRecurring       bool   `json:"is_recurring,omitempty"`
	RecurringType     string `json:"recurring_type,omitempty"`
	RecurringInterval int    `json:"recurring_interval,omitempty"`
	RecurringEndDate  string `json:"recurring_end_date,omitempty"`
	ParentTaskID      string `json:"parent_task_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// TaskEvent is the event published by domain-engine and consumed by the
// data-sink, the SSE streamer and the notifier.
type TaskEvent struct {
	EventID     string `json:"event_id"`
	CommandID   string `json:"command_id"`
	TaskID      string `json:"task_id"`
	ActorUserID string `json:"actor_user_id"`
	ActorName   string `json:"actor_name"`
	EventType   string `json:"event_type"`

	Description string `json:"description"`
	AssignedTo  string `json:"assigned_to"`
	DueDate     string `json:"due_date"`
	DueTime     string `json:"due_time"`

	CompletionStatus string `json:"completion_status,omitempty"`
	CompletionNotes  string `json:"completion_notes,omitempty"`

	IsRecurring       bool   `json:"is_recurring,omitempty"`
	RecurringType     string `json:"recurring_type,omitempty"`
	RecurringInterval int    `json:"recurring_interval,omitempty"`
	RecurringEndDate  string `json:"recurring_end_date,omitempty"`
	ParentTaskID      string `json:"parent_task_id,omitempty"`

	OccurredAt time.Time `json:"occurred_at"`
	ShardID    int       `json:"shard_id"`
}

// Notification is the fire-and-forget payload handed to the external
// notification service by the notifier.
type Notification struct {
	RecipientIDs []string          `json:"recipient_ids"`
	Kind         string            `json:"kind"`
	Title        string            `json:"title"`
	Body         string            `json:"body"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	DeepLink     string            `json:"deep_link,omitempty"`
}
