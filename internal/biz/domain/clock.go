package domain

import (
	"fmt"
	"time"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

// LocalDate returns the calendar date of t in loc as YYYY-MM-DD
func LocalDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dateLayout)
}

// LocalClock returns the wall clock time of t in loc as HH:mm
func LocalClock(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(clockLayout)
}

// DayRange converts an inclusive range of local calendar dates into UTC
// instants: the first instant of from and the last millisecond of to.
func DayRange(from, to string, loc *time.Location) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(dateLayout, from, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid date %q: %w", from, err)
	}
	last, err := time.ParseInLocation(dateLayout, to, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid date %q: %w", to, err)
	}
	if last.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("range end %s is before start %s", to, from)
	}

	// Next local midnight, so days that are 23 or 25 hours long still line up
	end := time.Date(last.Year(), last.Month(), last.Day()+1, 0, 0, 0, 0, loc).Add(-time.Millisecond)
	return start.UTC(), end.UTC(), nil
}

// wholeMinutes rounds the span from a to b to whole minutes, never below zero
func wholeMinutes(a, b time.Time) int {
	d := b.Sub(a)
	if d <= 0 {
		return 0
	}
	return int(d.Round(time.Minute) / time.Minute)
}
