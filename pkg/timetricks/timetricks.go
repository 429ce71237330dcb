package timetricks

import (
	"time"
)

const (
	dayFormat   = "2006-01-02"
	clockFormat = "03:04 PM"
	shortDate   = "01/02"
)

// DayKey returns the calendar date of t in loc. Two instants that fall on the
// same local day return identical keys.
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dayFormat)
}

// TrimClock returns midnight of t's calendar day in t's own location.
func TrimClock(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// StartOfDay returns local midnight of the day containing t in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	return TrimClock(t.In(loc))
}

// Clock formats the wall clock of t, e.g. "03:04 PM".
func Clock(t time.Time) string {
	return t.Format(clockFormat)
}

// Day names the calendar day of t relative to now: "Today", "Tomorrow", a
// weekday within the coming week, or a short date beyond it. Both times are
// compared in t's location.
func Day(t, now time.Time) string {
	now = now.In(t.Location())
	today := TrimClock(now)
	switch day := TrimClock(t); {
	case day.Equal(today):
		return "Today"
	case day.Equal(today.AddDate(0, 0, 1)):
		return "Tomorrow"
	case day.After(today) && day.Before(today.AddDate(0, 0, 7)):
		return t.Weekday().String()
	default:
		return t.Format(shortDate)
	}
}
