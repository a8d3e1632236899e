package domainengine

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/crewboard/platform/internal/contracts"
)

type capturedPublish struct {
	subject string
	payload []byte
}

func newServiceForTests() (*Service, *[]capturedPublish) {
	published := []capturedPublish{}
	svc := NewService(func(subject string, payload []byte) error {
		published = append(published, capturedPublish{subject: subject, payload: payload})
		return nil
	})
	svc.Now = func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) }
	ids := 0
	svc.NewID = func() string {
		ids++
		return fmt.Sprintf("id-%d", ids)
	}
	return svc, &published
}

func commandPayload(t *testing.T, cmd contracts.TaskCommand) []byte {
	t.Helper()
	payload, err := json.Marshal(cmd)
	if err != nil {
		t.Fatalf("marshal command: %v", err)
	}
	return payload
}

func TestHandle_MapsActionsToEventTypes(t *testing.T) {
	cases := map[string]string{
		"create-task":     "task.created",
		"update-task":     "task.updated",
		"reschedule-task": "task.rescheduled",
		"complete-task":   "task.completed",
		"reopen-task":     "task.reopened",
		"delete-task":     "task.deleted",
	}
	for action, wantType := range cases {
		t.Run(action, func(t *testing.T) {
			svc, published := newServiceForTests()
			cmd := contracts.TaskCommand{
				CommandID:  "cmd-1",
				TaskID:     "task-1",
				Action:     action,
				AssignedTo: "tech-7",
				DueDate:    "2025-03-12",
			}
			if err := svc.Handle("ops.command.42.tech.tech-7", commandPayload(t, cmd)); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(*published) != 1 {
				t.Fatalf("expected 1 event, got %d", len(*published))
			}
			var event contracts.TaskEvent
			if err := json.Unmarshal((*published)[0].payload, &event); err != nil {
				t.Fatalf("invalid event payload: %v", err)
			}
			if event.EventType != wantType {
				t.Fatalf("expected %s, got %s", wantType, event.EventType)
			}
			if event.ShardID != 42 {
				t.Fatalf("shard must be carried over from the command subject, got %d", event.ShardID)
			}
			if (*published)[0].subject != "ops.event.42.tech.tech-7" {
				t.Fatalf("unexpected event subject: %s", (*published)[0].subject)
			}
		})
	}
}

func TestHandle_ReopenClearsCompletionRecord(t *testing.T) {
	svc, published := newServiceForTests()
	cmd := contracts.TaskCommand{
		CommandID:        "cmd-1",
		TaskID:           "task-1",
		Action:           "reopen-task",
		AssignedTo:       "tech-7",
		CompletionStatus: "failed",
		CompletionNotes:  "parts missing",
	}
	if err := svc.Handle("ops.command.1.tech.tech-7", commandPayload(t, cmd)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var event contracts.TaskEvent
	if err := json.Unmarshal((*published)[0].payload, &event); err != nil {
		t.Fatalf("invalid event payload: %v", err)
	}
	if event.CompletionStatus != "" || event.CompletionNotes != "" {
		t.Fatalf("reopen must clear completion fields, got %+v", event)
	}
}

func TestHandle_CompleteDefaultsStatus(t *testing.T) {
	svc, published := newServiceForTests()
	cmd := contracts.TaskCommand{
		CommandID:  "cmd-1",
		TaskID:     "task-1",
		Action:     "complete-task",
		AssignedTo: "tech-7",
	}
	if err := svc.Handle("ops.command.1.tech.tech-7", commandPayload(t, cmd)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var event contracts.TaskEvent
	if err := json.Unmarshal((*published)[0].payload, &event); err != nil {
		t.Fatalf("invalid event payload: %v", err)
	}
	if event.CompletionStatus != "completed" {
		t.Fatalf("expected default status completed, got %q", event.CompletionStatus)
	}
}

func TestHandle_CompletingOnCompletionTaskSpawnsFollowUp(t *testing.T) {
	svc, published := newServiceForTests()
	cmd := contracts.TaskCommand{
		CommandID:     "cmd-1",
		TaskID:        "task-1",
		Action:        "complete-task",
		Description:   "Flush radiators",
		AssignedTo:    "tech-7",
		DueDate:       "2025-03-09",
		DueTime:       "08:30",
		IsRecurring:   true,
		RecurringType: "on_completion",
	}
	if err := svc.Handle("ops.command.5.tech.tech-7", commandPayload(t, cmd)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(*published) != 2 {
		t.Fatalf("expected completion plus spawned create, got %d events", len(*published))
	}

	var spawn contracts.TaskEvent
	if err := json.Unmarshal((*published)[1].payload, &spawn); err != nil {
		t.Fatalf("invalid spawn payload: %v", err)
	}
	if spawn.EventType != "task.created" {
		t.Fatalf("expected task.created spawn, got %s", spawn.EventType)
	}
	if spawn.TaskID == "task-1" || spawn.TaskID == "" {
		t.Fatalf("spawned task must get a fresh id, got %q", spawn.TaskID)
	}
	if spawn.ParentTaskID != "task-1" {
		t.Fatalf("spawn must reference its parent, got %q", spawn.ParentTaskID)
	}
	if spawn.DueDate != "2025-03-10" || spawn.DueTime != "08:30" {
		t.Fatalf("spawn must be due today at the parent's time, got %s %s", spawn.DueDate, spawn.DueTime)
	}
	if !strings.HasPrefix(spawn.Description, "[Repeat] ") {
		t.Fatalf("spawn description must carry the repeat marker, got %q", spawn.Description)
	}
}

func TestHandle_NoSpawnPastEndDate(t *testing.T) {
	svc, published := newServiceForTests()
	cmd := contracts.TaskCommand{
		CommandID:        "cmd-1",
		TaskID:           "task-1",
		Action:           "complete-task",
		AssignedTo:       "tech-7",
		DueDate:          "2025-03-01",
		IsRecurring:      true,
		RecurringType:    "on_completion",
		RecurringEndDate: "2025-03-05",
	}
	if err := svc.Handle("ops.command.5.tech.tech-7", commandPayload(t, cmd)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(*published) != 1 {
		t.Fatalf("no spawn expected past the end date, got %d events", len(*published))
	}
}

func TestHandle_CalendarRecurrenceDoesNotSpawn(t *testing.T) {
	svc, published := newServiceForTests()
	cmd := contracts.TaskCommand{
		CommandID:     "cmd-1",
		TaskID:        "task-1",
		Action:        "complete-task",
		AssignedTo:    "tech-7",
		DueDate:       "2025-03-09",
		IsRecurring:   true,
		RecurringType: "weekly",
	}
	if err := svc.Handle("ops.command.5.tech.tech-7", commandPayload(t, cmd)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(*published) != 1 {
		t.Fatalf("calendar recurrence types are metadata only, got %d events", len(*published))
	}
}

func TestHandle_SpawnPublishFailureIsNonFatal(t *testing.T) {
	published := []capturedPublish{}
	svc := NewService(func(subject string, payload []byte) error {
		if len(published) >= 1 {
			return errors.New("stream unavailable")
		}
		published = append(published, capturedPublish{subject: subject, payload: payload})
		return nil
	})
	svc.Now = func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) }

	cmd := contracts.TaskCommand{
		CommandID:     "cmd-1",
		TaskID:        "task-1",
		Action:        "complete-task",
		AssignedTo:    "tech-7",
		DueDate:       "2025-03-09",
		IsRecurring:   true,
		RecurringType: "on_completion",
	}
	if err := svc.Handle("ops.command.5.tech.tech-7", commandPayload(t, cmd)); err != nil {
		t.Fatalf("completion must succeed even when the spawn publish fails: %v", err)
	}
	if len(published) != 1 {
		t.Fatalf("expected exactly the completion event, got %d", len(published))
	}
}

func TestHandle_RejectsBadPayloadAndAction(t *testing.T) {
	svc, _ := newServiceForTests()
	if err := svc.Handle("ops.command.1.tech.t", []byte("{")); !errors.Is(err, ErrInvalidCommandPayload) {
		t.Fatalf("expected ErrInvalidCommandPayload, got %v", err)
	}
	cmd := contracts.TaskCommand{Action: "archive-task", AssignedTo: "t"}
	if err := svc.Handle("ops.command.1.tech.t", commandPayload(t, cmd)); !errors.Is(err, ErrUnsupportedCommandAction) {
		t.Fatalf("expected ErrUnsupportedCommandAction, got %v", err)
	}
}

func TestShardFromSubject_FallsBackToHash(t *testing.T) {
	if got := ShardFromSubject("tech-7", "ops.command.17.tech.tech-7"); got != 17 {
		t.Fatalf("expected subject shard 17, got %d", got)
	}
	if got := ShardFromSubject("tech-7", "bogus"); got < 0 || got > 255 {
		t.Fatalf("fallback shard out of range: %d", got)
	}
}
