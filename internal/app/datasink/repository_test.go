package datasink

import (
	"strings"
	"testing"
)

// The event log is the audit trail for follow-up spawning decisions, so every
// recurrence attribute on the event must land in a task_events column.
func TestEventLogPersistsRecurrenceColumns(t *testing.T) {
	columns := []string{
		"is_recurring",
		"recurring_type",
		"recurring_interval",
		"recurring_end_date",
		"parent_task_id",
	}
	for _, column := range columns {
		if !strings.Contains(createEventsTableSQL, column) {
			t.Errorf("task_events table is missing column %q", column)
		}
		if !strings.Contains(insertEventSQL, column) {
			t.Errorf("event insert does not write column %q", column)
		}
	}

	// Placeholder count has to match the column list or the insert fails at
	// runtime with a protocol error.
	colStart := strings.Index(insertEventSQL, "(")
	colEnd := strings.Index(insertEventSQL, ")")
	if colStart < 0 || colEnd < colStart {
		t.Fatalf("unexpected insert statement shape: %s", insertEventSQL)
	}
	wantArgs := len(strings.Split(insertEventSQL[colStart+1:colEnd], ","))
	gotArgs := strings.Count(insertEventSQL, "$")
	if gotArgs != wantArgs {
		t.Fatalf("insert lists %d columns but binds %d placeholders", wantArgs, gotArgs)
	}
}
