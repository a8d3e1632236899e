package domainengine

import (
	"encoding/json"
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nuid"
	"github.com/crewboard/platform/internal/contracts"
	"github.com/crewboard/platform/internal/schedule"
	"github.com/crewboard/platform/internal/sharding"
)

var ErrInvalidCommandPayload = errors.New("invalid command payload")

// ErrUnsupportedCommandAction prevents unknown write-model transitions.
var ErrUnsupportedCommandAction = errors.New("unsupported command action")

type PublishFunc func(subject string, payload []byte) error

type Service struct {
	Publish PublishFunc
	Now     func() time.Time
	NewID   func() string
	Logger  *log.Logger
}

func NewService(publish PublishFunc) *Service {
	return &Service{
		Publish: publish,
		Now:     func() time.Time { return time.Now().UTC() },
		NewID:   nuid.Next,
		Logger:  log.Default(),
	}
}

func (s *Service) Handle(commandSubject string, commandPayload []byte) error {
	var cmd contracts.TaskCommand
	if err := json.Unmarshal(commandPayload, &cmd); err != nil {
		return ErrInvalidCommandPayload
	}

	shardID := ShardFromSubject(cmd.AssignedTo, commandSubject)
	eventType, err := mapEventType(cmd.Action)
	if err != nil {
		return err
	}

	event := contracts.TaskEvent{
		EventID:           s.NewID(),
		CommandID:         cmd.CommandID,
		TaskID:            cmd.TaskID,
		ActorUserID:       cmd.ActorUserID,
		ActorName:         cmd.ActorName,
		EventType:         eventType,
		Description:       cmd.Description,
		AssignedTo:        cmd.AssignedTo,
		DueDate:           cmd.DueDate,
		DueTime:           cmd.DueTime,
		CompletionStatus:  cmd.CompletionStatus,
		CompletionNotes:   cmd.CompletionNotes,
		IsRecurring:       cmd.IsRecurring,
		RecurringType:     cmd.RecurringType,
		RecurringInterval: cmd.RecurringInterval,
		RecurringEndDate:  cmd.RecurringEndDate,
		ParentTaskID:      cmd.ParentTaskID,
		OccurredAt:        s.Now(),
		ShardID:           shardID,
	}

	switch eventType {
	case "task.reopened":
		// Reopening clears the whole completion record so a later completion
		// starts from a clean slate.
		event.CompletionStatus = ""
		event.CompletionNotes = ""
	case "task.completed":
		if event.CompletionStatus == "" {
			event.CompletionStatus = schedule.CompletionCompleted
		}
	}

	eventPayload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := s.Publish(EventSubject(event), eventPayload); err != nil {
		return err
	}

	if eventType == "task.completed" {
		s.spawnFollowUp(event)
	}
	return nil
}

// spawnFollowUp emits a task.created event for the next occurrence of an
// on-completion recurring task. The primary completion event is already on
// the stream, so a failed spawn is logged and dropped rather than retried;
// retrying would re-publish the completion and duplicate it downstream.
func (s *Service) spawnFollowUp(completed contracts.TaskEvent) {
	parent := schedule.Task{
		ID:                completed.TaskID,
		Description:       completed.Description,
		AssignedTo:        completed.AssignedTo,
		DueDate:           completed.DueDate,
		DueTime:           completed.DueTime,
		IsRecurring:       completed.IsRecurring,
		RecurringType:     completed.RecurringType,
		RecurringInterval: completed.RecurringInterval,
		RecurringEndDate:  completed.RecurringEndDate,
		ParentTaskID:      completed.ParentTaskID,
	}
	if schedule.EndDateReached(parent, s.Now()) {
		return
	}
	next, ok := schedule.NextOnCompletion(parent, s.Now())
	if !ok {
		return
	}

	spawn := contracts.TaskEvent{
		EventID:           s.NewID(),
		CommandID:         completed.CommandID,
		TaskID:            s.NewID(),
		ActorUserID:       completed.ActorUserID,
		ActorName:         completed.ActorName,
		EventType:         "task.created",
		Description:       next.Description,
		AssignedTo:        next.AssignedTo,
		DueDate:           next.DueDate,
		DueTime:           next.DueTime,
		IsRecurring:       next.IsRecurring,
		RecurringType:     next.RecurringType,
		RecurringInterval: next.RecurringInterval,
		RecurringEndDate:  next.RecurringEndDate,
		ParentTaskID:      next.ParentTaskID,
		OccurredAt:        s.Now(),
		ShardID:           completed.ShardID,
	}
	payload, err := json.Marshal(spawn)
	if err != nil {
		s.Logger.Printf("recurrence spawn marshal failed task=%s: %v", completed.TaskID, err)
		return
	}
	if err := s.Publish(EventSubject(spawn), payload); err != nil {
		s.Logger.Printf("recurrence spawn publish failed task=%s: %v", completed.TaskID, err)
	}
}

func mapEventType(action string) (string, error) {
	switch strings.TrimSpace(strings.ToLower(action)) {
	case "create-task":
		return "task.created", nil
	case "update-task":
		return "task.updated", nil
	case "reschedule-task":
		return "task.rescheduled", nil
	case "complete-task":
		return "task.completed", nil
	case "reopen-task":
		return "task.reopened", nil
	case "delete-task":
		return "task.deleted", nil
	default:
		return "", ErrUnsupportedCommandAction
	}
}

func EventSubject(event contracts.TaskEvent) string {
	return "ops.event." + strconv.Itoa(event.ShardID) + ".tech." + event.AssignedTo
}

func ShardFromSubject(entityID, subject string) int {
	parts := strings.Split(subject, ".")
	if len(parts) > 2 {
		if shard, err := strconv.Atoi(parts[2]); err == nil {
			return shard
		}
	}
	return sharding.GetShardID(entityID)
}
