package query

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/crewboard/platform/internal/schedule"
)

var ErrTaskNotFound = errors.New("task not found")

// TaskView is the projected read model of a work-order task.
type TaskView struct {
	TaskID      string `json:"task_id"`
	Description string `json:"description"`
	AssignedTo  string `json:"assigned_to"`
	DueDate     string `json:"due_date"`
	DueTime     string `json:"due_time"`

	Completed        bool   `json:"completed"`
	CompletionStatus string `json:"completion_status,omitempty"`
	CompletionNotes  string `json:"completion_notes,omitempty"`

	IsRecurring       bool   `json:"is_recurring"`
	RecurringType     string `json:"recurring_type,omitempty"`
	RecurringInterval int    `json:"recurring_interval,omitempty"`
	RecurringEndDate  string `json:"recurring_end_date,omitempty"`
	ParentTaskID      string `json:"parent_task_id,omitempty"`

	CreatedBy     string    `json:"created_by"`
	CreatedByName string    `json:"created_by_name"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ToSchedule converts the view to the scheduling package's task shape.
func (t TaskView) ToSchedule() schedule.Task {
	return schedule.Task{
		ID:                t.TaskID,
		Description:       t.Description,
		AssignedTo:        t.AssignedTo,
		DueDate:           t.DueDate,
		DueTime:           t.DueTime,
		Completed:         t.Completed,
		CompletionStatus:  t.CompletionStatus,
		CompletionNotes:   t.CompletionNotes,
		IsRecurring:       t.IsRecurring,
		RecurringType:     t.RecurringType,
		RecurringInterval: t.RecurringInterval,
		RecurringEndDate:  t.RecurringEndDate,
		ParentTaskID:      t.ParentTaskID,
	}
}

const taskColumns = `task_id, description, assigned_to, due_date, due_time,
 completed, completion_status, completion_notes,
 is_recurring, recurring_type, recurring_interval, recurring_end_date, parent_task_id,
 created_by, created_by_name, created_at, updated_at`

type TaskRepository struct {
	Pool *pgxpool.Pool
}

func NewTaskRepository(pool *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{Pool: pool}
}

func scanTask(row pgx.Row) (TaskView, error) {
	var t TaskView
	err := row.Scan(
		&t.TaskID,
		&t.Description,
		&t.AssignedTo,
		&t.DueDate,
		&t.DueTime,
		&t.Completed,
		&t.CompletionStatus,
		&t.CompletionNotes,
		&t.IsRecurring,
		&t.RecurringType,
		&t.RecurringInterval,
		&t.RecurringEndDate,
		&t.ParentTaskID,
		&t.CreatedBy,
		&t.CreatedByName,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	return t, err
}

func (r *TaskRepository) collect(rows pgx.Rows) ([]TaskView, error) {
	defer rows.Close()
	result := make([]TaskView, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListForAssignee returns a technician's tasks ordered by due date and time.
func (r *TaskRepository) ListForAssignee(ctx context.Context, assignee string, limit int) ([]TaskView, error) {
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	rows, err := r.Pool.Query(ctx,
		`SELECT `+taskColumns+`
		 FROM tasks
		 WHERE assigned_to = $1
		 ORDER BY due_date, due_time
		 LIMIT $2`,
		assignee, limit,
	)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

// ListAll returns every task, admin-scoped, ordered by due date and time.
func (r *TaskRepository) ListAll(ctx context.Context, limit int) ([]TaskView, error) {
	if limit <= 0 || limit > 1000 {
		limit = 500
	}
	rows, err := r.Pool.Query(ctx,
		`SELECT `+taskColumns+`
		 FROM tasks
		 ORDER BY due_date, due_time
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

// ListBetween returns tasks due inside [from, to], inclusive, for calendar
// grids. An empty assignee means all assignees.
func (r *TaskRepository) ListBetween(ctx context.Context, assignee, fromDate, toDate string) ([]TaskView, error) {
	if assignee == "" {
		rows, err := r.Pool.Query(ctx,
			`SELECT `+taskColumns+`
			 FROM tasks
			 WHERE due_date >= $1 AND due_date <= $2
			 ORDER BY due_date, due_time`,
			fromDate, toDate,
		)
		if err != nil {
			return nil, err
		}
		return r.collect(rows)
	}

	rows, err := r.Pool.Query(ctx,
		`SELECT `+taskColumns+`
		 FROM tasks
		 WHERE assigned_to = $1 AND due_date >= $2 AND due_date <= $3
		 ORDER BY due_date, due_time`,
		assignee, fromDate, toDate,
	)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

func (r *TaskRepository) GetTaskByID(ctx context.Context, taskID string) (TaskView, error) {
	t, err := scanTask(r.Pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE task_id = $1`,
		taskID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TaskView{}, ErrTaskNotFound
		}
		return TaskView{}, err
	}
	return t, nil
}

// GetScopeProjectionOffset returns the last event sequence applied for an
// assignee scope, 0 when the scope (or its table) does not exist yet.
func (r *TaskRepository) GetScopeProjectionOffset(ctx context.Context, scope string) (uint64, error) {
	var offset uint64
	err := r.Pool.QueryRow(ctx,
		`SELECT COALESCE(last_event_seq, 0)
		 FROM scope_projection_offsets
		 WHERE scope = $1`,
		scope,
	).Scan(&offset)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "42P01" {
			// Projection offset table is not available yet.
			return 0, nil
		}
		return 0, err
	}
	return offset, nil
}

// WaitForCommandApplied polls the event log until the command shows up in the
// projection, giving read-your-write behavior after an accepted command.
func (r *TaskRepository) WaitForCommandApplied(ctx context.Context, commandID, assignee string, timeout time.Duration) error {
	commandID = strings.TrimSpace(commandID)
	assignee = strings.TrimSpace(assignee)
	if commandID == "" || assignee == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	deadline := time.Now().Add(timeout)
	delay := 20 * time.Millisecond
	for time.Now().Before(deadline) {
		var marker int
		err := r.Pool.QueryRow(ctx,
			`SELECT 1
			 FROM task_events
			 WHERE command_id = $1 AND assigned_to = $2
			 LIMIT 1`,
			commandID, assignee,
		).Scan(&marker)
		if err == nil {
			return nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			var pgErr *pgconn.PgError
			if !(errors.As(err, &pgErr) && pgErr.Code == "42P01") {
				return err
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		nextDelay := time.Duration(float64(delay) * 1.5)
		if nextDelay > 250*time.Millisecond {
			nextDelay = 250 * time.Millisecond
		}
		delay = nextDelay
	}
	return nil
}
