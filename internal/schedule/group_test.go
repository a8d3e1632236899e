package schedule

import (
	"testing"
	"time"
)

// Wednesday 2025-03-12, 09:00. Week runs Mon 03-10 .. Sun 03-16.
var groupNow = time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)

func task(id, dueDate, dueTime string, completed bool) Task {
	return Task{ID: id, Description: id, AssignedTo: "tech-1", DueDate: dueDate, DueTime: dueTime, Completed: completed}
}

func TestGroupTasks_BucketAssignment(t *testing.T) {
	tasks := []Task{
		task("overdue", "2025-03-11", "08:00", false),
		task("today", "2025-03-12", "17:00", false),
		task("tomorrow", "2025-03-13", "10:00", false),
		task("this-week", "2025-03-15", "10:00", false),
		task("next-week", "2025-03-18", "10:00", false),
		task("later", "2025-04-02", "10:00", false),
	}

	b := GroupTasks(tasks, groupNow)

	if len(b.Overdue) != 1 || b.Overdue[0].ID != "overdue" {
		t.Fatalf("unexpected overdue bucket: %+v", b.Overdue)
	}
	if len(b.Today) != 1 || b.Today[0].ID != "today" {
		t.Fatalf("unexpected today bucket: %+v", b.Today)
	}
	if len(b.Tomorrow) != 1 || b.Tomorrow[0].ID != "tomorrow" {
		t.Fatalf("unexpected tomorrow bucket: %+v", b.Tomorrow)
	}
	if len(b.ThisWeek) != 1 || b.ThisWeek[0].ID != "this-week" {
		t.Fatalf("unexpected this-week bucket: %+v", b.ThisWeek)
	}
	if len(b.NextWeek) != 1 || b.NextWeek[0].ID != "next-week" {
		t.Fatalf("unexpected next-week bucket: %+v", b.NextWeek)
	}
	if len(b.Later) != 1 || b.Later[0].ID != "later" {
		t.Fatalf("unexpected later bucket: %+v", b.Later)
	}
}

func TestGroupTasks_PartitionIsComplete(t *testing.T) {
	tasks := []Task{
		task("a", "2025-03-01", "08:00", false),
		task("b", "2025-03-12", "23:00", false),
		task("c", "2025-03-13", "", false),
		task("d", "2025-03-16", "09:00", false),
		task("e", "2025-03-21", "09:00", false),
		task("f", "2025-06-01", "", false),
		task("g", "not-a-date", "", false),
		task("h", "2025-03-12", "23:30", true),
	}

	b := GroupTasks(tasks, groupNow)
	if b.Len() != len(tasks) {
		t.Fatalf("partition dropped or duplicated tasks: got %d want %d", b.Len(), len(tasks))
	}
}

func TestGroupTasks_CompletedNeverOverdue(t *testing.T) {
	b := GroupTasks([]Task{task("done", "2025-03-12", "07:00", true)}, groupNow)
	if len(b.Overdue) != 0 {
		t.Fatalf("completed task placed in overdue: %+v", b.Overdue)
	}
	if len(b.Today) != 1 {
		t.Fatalf("completed task due today should land in today bucket: %+v", b)
	}
}

func TestGroupTasks_SundayStillThisWeek(t *testing.T) {
	// 2025-03-16 is the Sunday of the week containing groupNow.
	b := GroupTasks([]Task{task("sun", "2025-03-16", "10:00", false)}, groupNow)
	if len(b.ThisWeek) != 1 {
		t.Fatalf("Sunday of the current week should be this-week: %+v", b)
	}
}

func TestGroupTasks_NextMondayIsNextWeek(t *testing.T) {
	b := GroupTasks([]Task{task("mon", "2025-03-17", "10:00", false)}, groupNow)
	if len(b.NextWeek) != 1 {
		t.Fatalf("next Monday should be next-week: %+v", b)
	}
}

func TestGroupTasks_OrderPreservedWithinBucket(t *testing.T) {
	tasks := []Task{
		task("first", "2025-04-01", "09:00", false),
		task("second", "2025-04-02", "09:00", false),
		task("third", "2025-04-03", "09:00", false),
	}
	b := GroupTasks(tasks, groupNow)
	if len(b.Later) != 3 || b.Later[0].ID != "first" || b.Later[1].ID != "second" || b.Later[2].ID != "third" {
		t.Fatalf("incoming order not preserved: %+v", b.Later)
	}
}
