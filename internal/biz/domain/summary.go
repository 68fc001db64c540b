package domain

import (
	"sort"
	"time"
)

// DailySummaryRow is the reconstructed attendance of one user on one local date
type DailySummaryRow struct {
	Date          string `json:"date"`
	UserName      string `json:"user_name"`
	ShiftStart    string `json:"shift_start_time,omitempty"` // HH:mm, empty if no SHIFT_START
	ShiftEnd      string `json:"shift_end_time,omitempty"`   // HH:mm, empty if no SHIFT_END
	BreakMinutes  int    `json:"total_break_minutes"`
	WorkedMinutes int    `json:"total_worked_minutes"`
	Incomplete    bool   `json:"incomplete"`
}

type dayKey struct {
	date     string
	userName string
}

type interval struct {
	start time.Time
	end   time.Time
}

// clamp trims iv to [lo, hi]; ok is false when nothing is left
func (iv interval) clamp(lo, hi time.Time) (interval, bool) {
	if iv.start.Before(lo) {
		iv.start = lo
	}
	if iv.end.After(hi) {
		iv.end = hi
	}
	if !iv.end.After(iv.start) {
		return interval{}, false
	}
	return iv, true
}

// Summarize builds one row per (local date, user) present in events,
// ordered by date then user name. Input order does not matter.
func Summarize(events []AttendanceEvent, loc *time.Location) []DailySummaryRow {
	if loc == nil {
		loc = time.UTC
	}

	buckets := make(map[dayKey][]AttendanceEvent)
	for _, e := range events {
		key := dayKey{date: LocalDate(e.CreatedAt, loc), userName: e.UserName}
		buckets[key] = append(buckets[key], e)
	}

	rows := make([]DailySummaryRow, 0, len(buckets))
	for key, list := range buckets {
		rows = append(rows, summarizeDay(key, list, loc))
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Date != rows[j].Date {
			return rows[i].Date < rows[j].Date
		}
		return rows[i].UserName < rows[j].UserName
	})
	return rows
}

func summarizeDay(key dayKey, list []AttendanceEvent, loc *time.Location) DailySummaryRow {
	sortEvents(list)

	row := DailySummaryRow{Date: key.date, UserName: key.userName}

	var start, end *time.Time
	for i := range list {
		if list[i].Type == EventShiftStart {
			start = &list[i].CreatedAt
			break
		}
	}
	for i := len(list) - 1; i >= 0; i-- {
		if list[i].Type == EventShiftEnd {
			end = &list[i].CreatedAt
			break
		}
	}

	if start != nil {
		row.ShiftStart = LocalClock(*start, loc)
	}
	if end != nil {
		row.ShiftEnd = LocalClock(*end, loc)
	}
	if start == nil || end == nil {
		row.Incomplete = true
		return row
	}

	for _, iv := range pairBreaks(list) {
		if clamped, ok := iv.clamp(*start, *end); ok {
			row.BreakMinutes += wholeMinutes(clamped.start, clamped.end)
		}
	}

	row.WorkedMinutes = wholeMinutes(*start, *end) - row.BreakMinutes
	if row.WorkedMinutes < 0 {
		row.WorkedMinutes = 0
	}
	return row
}

// pairBreaks walks time-ordered events and closes each open BREAK_START
// with the next BREAK_END. Orphan ends and a trailing open start are dropped.
func pairBreaks(list []AttendanceEvent) []interval {
	var out []interval
	var open *time.Time
	for i := range list {
		switch list[i].Type {
		case EventBreakStart:
			open = &list[i].CreatedAt
		case EventBreakEnd:
			if open != nil {
				out = append(out, interval{start: *open, end: list[i].CreatedAt})
				open = nil
			}
		}
	}
	return out
}

// sortEvents orders by instant; ties fall back to type and text so the
// result is the same whatever order the caller passed in.
func sortEvents(list []AttendanceEvent) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		if a.Type != b.Type {
			return eventRank(a.Type) < eventRank(b.Type)
		}
		return a.Text < b.Text
	})
}

func eventRank(t EventType) int {
	for i, known := range EventTypes {
		if t == known {
			return i
		}
	}
	return len(EventTypes)
}
