package schedule

import (
	"fmt"
	"strings"
	"time"
)

const icsStampLayout = "20060102T150405"

// BuildICS renders the events as a VCALENDAR document, one VEVENT per event.
// DTSTART is local date+time without a timezone designator; completed events
// carry STATUS:COMPLETED, open ones STATUS:CONFIRMED. Events whose due date
// cannot be parsed are skipped so one bad record does not sink the export.
func BuildICS(events []CalendarEvent, now time.Time) string {
	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//Crewboard//Agenda Export//EN",
		"CALSCALE:GREGORIAN",
		"METHOD:PUBLISH",
	}

	for _, ev := range events {
		start, err := DueInstant(ev.DueDate, ev.DueTime, now.Location())
		if err != nil {
			continue
		}

		status := "CONFIRMED"
		if ev.Completed {
			status = "COMPLETED"
		}

		uid := fmt.Sprintf("task-%s@crewboard", strings.TrimSpace(ev.ID))
		if strings.TrimSpace(ev.ID) == "" {
			uid = fmt.Sprintf("task-export-%d@crewboard", now.UnixNano())
		}

		lines = append(lines,
			"BEGIN:VEVENT",
			"UID:"+escapeICSText(uid),
			"DTSTAMP:"+now.UTC().Format(icsStampLayout+"Z"),
			"DTSTART:"+start.Format(icsStampLayout),
			"SUMMARY:"+escapeICSText(ev.Title),
		)
		if desc := strings.TrimSpace(ev.Description); desc != "" {
			lines = append(lines, "DESCRIPTION:"+escapeICSText(desc))
		}
		lines = append(lines, "STATUS:"+status, "END:VEVENT")
	}

	lines = append(lines, "END:VCALENDAR", "")
	return strings.Join(lines, "\r\n")
}

func escapeICSText(s string) string {
	repl := strings.NewReplacer(
		"\\", "\\\\",
		";", "\\;",
		",", "\\,",
		"\r\n", "\\n",
		"\n", "\\n",
		"\r", "\\n",
	)
	return repl.Replace(s)
}
