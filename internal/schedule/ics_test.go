package schedule

import (
	"strings"
	"testing"
	"time"
)

func TestBuildICS_TwoEvents(t *testing.T) {
	now := time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC)
	events := []CalendarEvent{
		{ID: "t1", Title: "Inspect panel", Description: "Inspect panel", DueDate: "2025-03-10", DueTime: "09:00", Completed: false},
		{ID: "t2", Title: "Replace filter", Description: "Replace filter", DueDate: "2025-03-11", DueTime: "14:30", Completed: true},
	}

	ics := BuildICS(events, now)

	if got := strings.Count(ics, "BEGIN:VEVENT"); got != 2 {
		t.Fatalf("expected 2 BEGIN:VEVENT blocks, got %d", got)
	}
	if got := strings.Count(ics, "END:VEVENT"); got != 2 {
		t.Fatalf("expected 2 END:VEVENT blocks, got %d", got)
	}
	for _, want := range []string{
		"DTSTART:20250310T090000",
		"DTSTART:20250311T143000",
		"STATUS:CONFIRMED",
		"STATUS:COMPLETED",
		"SUMMARY:Inspect panel",
		"UID:task-t1@crewboard",
	} {
		if !strings.Contains(ics, want) {
			t.Fatalf("export missing %q:\n%s", want, ics)
		}
	}
	if !strings.HasPrefix(ics, "BEGIN:VCALENDAR\r\n") {
		t.Fatalf("export must open a VCALENDAR with CRLF line endings:\n%s", ics)
	}
	if !strings.HasSuffix(ics, "END:VCALENDAR\r\n") {
		t.Fatalf("export must close the VCALENDAR:\n%s", ics)
	}
}

func TestBuildICS_EscapesText(t *testing.T) {
	now := time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC)
	events := []CalendarEvent{
		{ID: "t3", Title: "Check valves; pumps, lines", DueDate: "2025-03-12", DueTime: ""},
	}
	ics := BuildICS(events, now)
	if !strings.Contains(ics, `SUMMARY:Check valves\; pumps\, lines`) {
		t.Fatalf("summary not escaped:\n%s", ics)
	}
	if !strings.Contains(ics, "DTSTART:20250312T000000") {
		t.Fatalf("missing time should export as start of day:\n%s", ics)
	}
}

func TestBuildICS_SkipsUnparsableDates(t *testing.T) {
	now := time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC)
	ics := BuildICS([]CalendarEvent{{ID: "bad", Title: "x", DueDate: "soon"}}, now)
	if strings.Contains(ics, "BEGIN:VEVENT") {
		t.Fatalf("unparsable event should be skipped:\n%s", ics)
	}
}
