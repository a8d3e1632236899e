package schedule

import "time"

// StartOfWeek returns midnight of the Monday on/before t, in t's location.
func StartOfWeek(t time.Time) time.Time {
	d := dateOnly(t)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// MonthGrid returns the 42 cell dates (6 rows of 7) for the month view
// containing ref, starting on the Monday on/before the first of the month.
// Six fixed rows cover every month regardless of how many weeks it spans.
func MonthGrid(ref time.Time) []time.Time {
	first := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
	start := StartOfWeek(first)
	cells := make([]time.Time, 0, 42)
	for i := 0; i < 42; i++ {
		cells = append(cells, start.AddDate(0, 0, i))
	}
	return cells
}

// WeekGrid returns the 7 dates of the Monday-start week containing ref.
func WeekGrid(ref time.Time) []time.Time {
	start := StartOfWeek(ref)
	cells := make([]time.Time, 0, 7)
	for i := 0; i < 7; i++ {
		cells = append(cells, start.AddDate(0, 0, i))
	}
	return cells
}

// ShiftRef moves a view's reference date by delta steps: one day for the day
// view, seven days for the week view, one calendar month for the month view.
func ShiftRef(ref time.Time, view string, delta int) time.Time {
	switch view {
	case ViewDay:
		return ref.AddDate(0, 0, delta)
	case ViewWeek:
		return ref.AddDate(0, 0, 7*delta)
	case ViewMonth:
		return ref.AddDate(0, delta, 0)
	default:
		return ref
	}
}
