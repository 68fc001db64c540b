package export

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/pinetree-ops/shiftlog/internal/biz/domain"
)

// Column headers shared by the CSV and XLSX renditions
var (
	EventColumns   = []string{"Date", "User", "Event type", "Time (local)", "Notes/status text"}
	SummaryColumns = []string{"Date", "User", "Shift start time", "Shift end time", "Total break duration (min)", "Total worked duration (min)", "Incomplete"}
)

// WriteEventsCSV writes one row per event, oldest first
func WriteEventsCSV(w io.Writer, events []domain.AttendanceEvent, loc *time.Location) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(EventColumns); err != nil {
		return err
	}
	for _, e := range sortedByInstant(events) {
		if err := cw.Write(eventRecord(e, loc)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSummaryCSV writes the daily summary rows in the order given
func WriteSummaryCSV(w io.Writer, rows []domain.DailySummaryRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(SummaryColumns); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			row.Date,
			row.UserName,
			row.ShiftStart,
			row.ShiftEnd,
			strconv.Itoa(row.BreakMinutes),
			strconv.Itoa(row.WorkedMinutes),
			yesNo(row.Incomplete),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func eventRecord(e domain.AttendanceEvent, loc *time.Location) []string {
	return []string{
		domain.LocalDate(e.CreatedAt, loc),
		e.UserName,
		string(e.Type),
		domain.LocalClock(e.CreatedAt, loc),
		e.Text,
	}
}

func sortedByInstant(events []domain.AttendanceEvent) []domain.AttendanceEvent {
	sorted := make([]domain.AttendanceEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})
	return sorted
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
