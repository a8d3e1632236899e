package commandapi

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/nats-io/nuid"
	"github.com/crewboard/platform/internal/contracts"
	"github.com/crewboard/platform/internal/platform/metrics"
	"github.com/crewboard/platform/internal/schedule"
	"github.com/crewboard/platform/internal/sharding"
)

var ErrDescriptionRequired = errors.New("description is required")
var ErrAssigneeRequired = errors.New("assigned_to is required")
var ErrTaskIDRequired = errors.New("task_id is required")
var ErrInvalidDueDate = errors.New("due_date must be YYYY-MM-DD")
var ErrInvalidDueTime = errors.New("due_time must be HH:MM")
var ErrInvalidCompletionStatus = errors.New("completion_status must be completed, completed_with_issues or failed")
var ErrNotesRequired = errors.New("completion_notes are required when completion_status is failed")
var ErrInvalidRecurrence = errors.New("invalid recurrence settings")
var ErrUnsupportedAction = errors.New("unsupported action")

type PublishFunc func(subject string, payload []byte) error

type Service struct {
	Publish PublishFunc
	Now     func() time.Time
	NewID   func() string
}

type Actor struct {
	UserID      string
	Username    string
	DisplayName string
	Role        string
}

// TaskCommandRequest is the client payload for every task mutation.
type TaskCommandRequest struct {
	Action      string `json:"action"`
	TaskID      string `json:"task_id"`
	Description string `json:"description"`
	AssignedTo  string `json:"assigned_to"`
	DueDate     string `json:"due_date"`
	DueTime     string `json:"due_time"`

	CompletionStatus string `json:"completion_status"`
	CompletionNotes  string `json:"completion_notes"`

	IsRecurring       bool   `json:"is_recurring"`
	RecurringType     string `json:"recurring_type"`
	RecurringInterval int    `json:"recurring_interval"`
	RecurringEndDate  string `json:"recurring_end_date"`
}

type CommandResponse struct {
	Status    string `json:"status"`
	CommandID string `json:"command_id"`
	TaskID    string `json:"task_id"`
}

func NewService(publish PublishFunc) *Service {
	return &Service{
		Publish: publish,
		Now:     func() time.Time { return time.Now().UTC() },
		NewID:   nuid.Next,
	}
}

func normalizeAction(action string) string {
	action = strings.TrimSpace(strings.ToLower(action))
	if action == "" {
		return "create-task"
	}
	return action
}

func validateRecurrence(req TaskCommandRequest) error {
	if !req.IsRecurring {
		return nil
	}
	if !schedule.IsValidRecurringType(req.RecurringType) {
		return ErrInvalidRecurrence
	}
	if req.RecurringInterval < 0 {
		return ErrInvalidRecurrence
	}
	if req.RecurringEndDate != "" && !schedule.IsValidDate(req.RecurringEndDate) {
		return ErrInvalidRecurrence
	}
	return nil
}

func (s *Service) validate(action string, req TaskCommandRequest) error {
	taskID := strings.TrimSpace(req.TaskID)

	switch action {
	case "create-task":
		if strings.TrimSpace(req.Description) == "" {
			return ErrDescriptionRequired
		}
		if strings.TrimSpace(req.AssignedTo) == "" {
			return ErrAssigneeRequired
		}
		if !schedule.IsValidDate(req.DueDate) {
			return ErrInvalidDueDate
		}
		if !schedule.IsValidTime(req.DueTime) {
			return ErrInvalidDueTime
		}
		return validateRecurrence(req)
	case "update-task":
		if taskID == "" {
			return ErrTaskIDRequired
		}
		if strings.TrimSpace(req.Description) == "" {
			return ErrDescriptionRequired
		}
		if strings.TrimSpace(req.AssignedTo) == "" {
			return ErrAssigneeRequired
		}
		if req.DueDate != "" && !schedule.IsValidDate(req.DueDate) {
			return ErrInvalidDueDate
		}
		if !schedule.IsValidTime(req.DueTime) {
			return ErrInvalidDueTime
		}
		return validateRecurrence(req)
	case "reschedule-task":
		if taskID == "" {
			return ErrTaskIDRequired
		}
		if !schedule.IsValidDate(req.DueDate) {
			return ErrInvalidDueDate
		}
		if !schedule.IsValidTime(req.DueTime) {
			return ErrInvalidDueTime
		}
		return nil
	case "complete-task":
		if taskID == "" {
			return ErrTaskIDRequired
		}
		status := strings.TrimSpace(req.CompletionStatus)
		if status != "" && !schedule.IsValidCompletionStatus(status) {
			return ErrInvalidCompletionStatus
		}
		// A failed outcome is rejected before anything reaches the stream.
		if status == schedule.CompletionFailed && strings.TrimSpace(req.CompletionNotes) == "" {
			return ErrNotesRequired
		}
		return nil
	case "reopen-task", "delete-task":
		if taskID == "" {
			return ErrTaskIDRequired
		}
		return nil
	default:
		return ErrUnsupportedAction
	}
}

func (s *Service) Accept(actor Actor, req TaskCommandRequest) (CommandResponse, error) {
	action := normalizeAction(req.Action)
	if err := s.validate(action, req); err != nil {
		metrics.CommandsRejected.WithLabelValues(action).Inc()
		return CommandResponse{}, err
	}

	if strings.TrimSpace(actor.UserID) == "" {
		actor.UserID = "user-1"
	}
	if strings.TrimSpace(actor.Username) == "" {
		actor.Username = "unknown"
	}

	assignedTo := strings.TrimSpace(req.AssignedTo)
	if assignedTo == "" {
		// Mutations of an existing task route through its owner's shard; the
		// handler resolves the assignee before calling Accept.
		assignedTo = actor.UserID
	}

	status := strings.TrimSpace(req.CompletionStatus)
	if action == "complete-task" && status == "" {
		status = schedule.CompletionCompleted
	}

	interval := req.RecurringInterval
	if req.IsRecurring && interval == 0 {
		interval = 1
	}

	commandID := s.NewID()
	taskID := strings.TrimSpace(req.TaskID)
	if taskID == "" {
		// For create, make the task ID stable and explicit for later mutations.
		taskID = commandID
	}

	cmd := contracts.TaskCommand{
		CommandID:         commandID,
		TaskID:            taskID,
		ActorUserID:       actor.UserID,
		ActorName:         actor.DisplayName,
		Action:            action,
		Description:       strings.TrimSpace(req.Description),
		AssignedTo:        assignedTo,
		DueDate:           strings.TrimSpace(req.DueDate),
		DueTime:           strings.TrimSpace(req.DueTime),
		CompletionStatus:  status,
		CompletionNotes:   strings.TrimSpace(req.CompletionNotes),
		IsRecurring:       req.IsRecurring,
		RecurringType:     strings.TrimSpace(req.RecurringType),
		RecurringInterval: interval,
		RecurringEndDate:  strings.TrimSpace(req.RecurringEndDate),
		CreatedAt:         s.Now(),
	}
	payload, err := json.Marshal(cmd)
	if err != nil {
		return CommandResponse{}, err
	}

	subject := sharding.GetSubject("tech", cmd.AssignedTo)
	if err := s.Publish(subject, payload); err != nil {
		return CommandResponse{}, err
	}
	metrics.CommandsAccepted.WithLabelValues(action).Inc()

	return CommandResponse{
		Status:    "accepted",
		CommandID: cmd.CommandID,
		TaskID:    cmd.TaskID,
	}, nil
}
