package report

import (
	"fmt"
	"time"

	"github.com/Freeeeeet/bizsuite/internal/model"
)

// Bounds returns the half-open interval [start, end) of the period containing t.
// Weeks start on Monday; months on the 1st. Both are computed in loc.
func Bounds(pt model.PeriodType, t time.Time, loc *time.Location) (time.Time, time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)

	switch pt {
	case model.PeriodWeekly:
		// Sunday is the last day of the week
		offset := (int(day.Weekday()) + 6) % 7
		start := day.AddDate(0, 0, -offset)
		return start, start.AddDate(0, 0, 7), nil
	case model.PeriodMonthly:
		start := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(0, 1, 0), nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("unknown period type %q", pt)
	}
}

// Next returns the start of the period after the one starting at start.
func Next(pt model.PeriodType, start time.Time) time.Time {
	if pt == model.PeriodWeekly {
		return start.AddDate(0, 0, 7)
	}
	return start.AddDate(0, 1, 0)
}

// Previous returns the start of the period before the one starting at start.
func Previous(pt model.PeriodType, start time.Time) time.Time {
	if pt == model.PeriodWeekly {
		return start.AddDate(0, 0, -7)
	}
	return start.AddDate(0, -1, 0)
}

// Civil reinterprets a calendar date (a DATE column, usually decoded as UTC midnight)
// as midnight of the same day in loc.
func Civil(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// Label renders a period for humans: "2024-W09" or "2024-03".
func Label(pt model.PeriodType, start time.Time) string {
	if pt == model.PeriodWeekly {
		year, week := start.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	}
	return start.Format("2006-01")
}

func within(t, start, end time.Time) bool {
	return !t.Before(start) && t.Before(end)
}
