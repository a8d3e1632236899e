package datasink

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/crewboard/platform/internal/contracts"
)

const createEventsTableSQL = `
CREATE TABLE IF NOT EXISTS task_events (
  event_id text PRIMARY KEY,
  command_id text NOT NULL,
  task_id text NOT NULL,
  assigned_to text NOT NULL,
  actor_user_id text NOT NULL,
  actor_name text NOT NULL DEFAULT '',
  event_type text NOT NULL,
  description text NOT NULL DEFAULT '',
  due_date text NOT NULL DEFAULT '',
  due_time text NOT NULL DEFAULT '',
  completion_status text NOT NULL DEFAULT '',
  completion_notes text NOT NULL DEFAULT '',
  is_recurring boolean NOT NULL DEFAULT false,
  recurring_type text NOT NULL DEFAULT '',
  recurring_interval integer NOT NULL DEFAULT 0,
  recurring_end_date text NOT NULL DEFAULT '',
  parent_task_id text NOT NULL DEFAULT '',
  shard_id integer NOT NULL,
  occurred_at timestamptz NOT NULL,
  inserted_at timestamptz NOT NULL DEFAULT now()
)`

const createEventsIndexSQL = `
CREATE INDEX IF NOT EXISTS idx_task_events_command ON task_events (command_id, assigned_to)`

const createTasksTableSQL = `
CREATE TABLE IF NOT EXISTS tasks (
  task_id text PRIMARY KEY,
  description text NOT NULL,
  assigned_to text NOT NULL,
  due_date text NOT NULL,
  due_time text NOT NULL DEFAULT '',
  completed boolean NOT NULL DEFAULT false,
  completion_status text NOT NULL DEFAULT '',
  completion_notes text NOT NULL DEFAULT '',
  is_recurring boolean NOT NULL DEFAULT false,
  recurring_type text NOT NULL DEFAULT '',
  recurring_interval integer NOT NULL DEFAULT 0,
  recurring_end_date text NOT NULL DEFAULT '',
  parent_task_id text NOT NULL DEFAULT '',
  created_by text NOT NULL,
  created_by_name text NOT NULL DEFAULT '',
  created_at timestamptz NOT NULL,
  updated_at timestamptz NOT NULL
)`

const createTasksIndexSQL = `
CREATE INDEX IF NOT EXISTS idx_tasks_assignee_due ON tasks (assigned_to, due_date, due_time)`

const createScopeProjectionOffsetsSQL = `
CREATE TABLE IF NOT EXISTS scope_projection_offsets (
  scope text PRIMARY KEY,
  last_event_seq bigint NOT NULL DEFAULT 0,
  updated_at timestamptz NOT NULL DEFAULT now()
)`

const insertEventSQL = `
INSERT INTO task_events (
  event_id, command_id, task_id, assigned_to, actor_user_id, actor_name,
  event_type, description, due_date, due_time,
  completion_status, completion_notes,
  is_recurring, recurring_type, recurring_interval, recurring_end_date, parent_task_id,
  shard_id, occurred_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
ON CONFLICT (event_id) DO NOTHING
`

const upsertTaskCreatedSQL = `
INSERT INTO tasks (
  task_id, description, assigned_to, due_date, due_time,
  is_recurring, recurring_type, recurring_interval, recurring_end_date, parent_task_id,
  created_by, created_by_name, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
ON CONFLICT (task_id) DO NOTHING
`

const applyTaskUpdatedSQL = `
UPDATE tasks
SET description = $2,
    assigned_to = $3,
    due_date = CASE WHEN $4 <> '' THEN $4 ELSE due_date END,
    due_time = $5,
    is_recurring = $6,
    recurring_type = $7,
    recurring_interval = $8,
    recurring_end_date = $9,
    updated_at = $10
WHERE task_id = $1
`

const applyTaskRescheduledSQL = `
UPDATE tasks
SET due_date = $2,
    due_time = $3,
    updated_at = $4
WHERE task_id = $1
`

const applyTaskCompletedSQL = `
UPDATE tasks
SET completed = true,
    completion_status = $2,
    completion_notes = $3,
    updated_at = $4
WHERE task_id = $1
`

const applyTaskReopenedSQL = `
UPDATE tasks
SET completed = false,
    completion_status = '',
    completion_notes = '',
    updated_at = $2
WHERE task_id = $1
`

// Deletion is permanent; the audit trail lives in task_events.
const applyTaskDeletedSQL = `
DELETE FROM tasks WHERE task_id = $1
`

const upsertScopeProjectionOffsetSQL = `
INSERT INTO scope_projection_offsets (scope, last_event_seq, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (scope) DO UPDATE
SET last_event_seq = GREATEST(scope_projection_offsets.last_event_seq, EXCLUDED.last_event_seq),
    updated_at = now()
`

type EventRepository struct {
	Pool *pgxpool.Pool
}

func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{Pool: pool}
}

func (r *EventRepository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range []string{
		createEventsTableSQL,
		createEventsIndexSQL,
		createTasksTableSQL,
		createTasksIndexSQL,
		createScopeProjectionOffsetsSQL,
	} {
		if _, err := r.Pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (r *EventRepository) InsertEvent(ctx context.Context, event contracts.TaskEvent, eventSeq uint64) error {
	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, insertEventSQL,
		event.EventID,
		event.CommandID,
		event.TaskID,
		event.AssignedTo,
		event.ActorUserID,
		event.ActorName,
		event.EventType,
		event.Description,
		event.DueDate,
		event.DueTime,
		event.CompletionStatus,
		event.CompletionNotes,
		event.IsRecurring,
		event.RecurringType,
		event.RecurringInterval,
		event.RecurringEndDate,
		event.ParentTaskID,
		event.ShardID,
		event.OccurredAt,
	); err != nil {
		return err
	}

	switch event.EventType {
	case "task.created":
		if _, err := tx.Exec(ctx, upsertTaskCreatedSQL,
			event.TaskID,
			event.Description,
			event.AssignedTo,
			event.DueDate,
			event.DueTime,
			event.IsRecurring,
			event.RecurringType,
			event.RecurringInterval,
			event.RecurringEndDate,
			event.ParentTaskID,
			event.ActorUserID,
			event.ActorName,
			event.OccurredAt,
		); err != nil {
			return err
		}
	case "task.updated":
		if _, err := tx.Exec(ctx, applyTaskUpdatedSQL,
			event.TaskID,
			event.Description,
			event.AssignedTo,
			event.DueDate,
			event.DueTime,
			event.IsRecurring,
			event.RecurringType,
			event.RecurringInterval,
			event.RecurringEndDate,
			event.OccurredAt,
		); err != nil {
			return err
		}
	case "task.rescheduled":
		if _, err := tx.Exec(ctx, applyTaskRescheduledSQL,
			event.TaskID,
			event.DueDate,
			event.DueTime,
			event.OccurredAt,
		); err != nil {
			return err
		}
	case "task.completed":
		if _, err := tx.Exec(ctx, applyTaskCompletedSQL,
			event.TaskID,
			event.CompletionStatus,
			event.CompletionNotes,
			event.OccurredAt,
		); err != nil {
			return err
		}
	case "task.reopened":
		if _, err := tx.Exec(ctx, applyTaskReopenedSQL,
			event.TaskID,
			event.OccurredAt,
		); err != nil {
			return err
		}
	case "task.deleted":
		if _, err := tx.Exec(ctx, applyTaskDeletedSQL, event.TaskID); err != nil {
			return err
		}
	default:
		return ErrUnsupportedEventType
	}

	if _, err := tx.Exec(ctx, upsertScopeProjectionOffsetSQL, event.AssignedTo, int64(eventSeq)); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
