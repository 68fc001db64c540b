package export

import (
	"fmt"
	"io"
	"time"

	"github.com/pinetree-ops/shiftlog/internal/biz/domain"
	"github.com/xuri/excelize/v2"
)

const (
	EventsSheet  = "Events"
	SummarySheet = "Daily Summary"

	// ContentTypeXLSX is the MIME type of the workbook
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var (
	eventColumnWidths   = []float64{12, 24, 14, 12, 50}
	summaryColumnWidths = []float64{12, 24, 16, 16, 24, 24, 12}
)

// WriteXLSX writes a workbook with the raw events and the daily summary
func WriteXLSX(w io.Writer, events []domain.AttendanceEvent, summary []domain.DailySummaryRow, loc *time.Location) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetDocProps(&excelize.DocProperties{Creator: "shiftlog"}); err != nil {
		return fmt.Errorf("set doc props: %w", err)
	}

	if err := f.SetSheetName("Sheet1", EventsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	eventRows := make([][]interface{}, 0, len(events))
	for _, e := range sortedByInstant(events) {
		eventRows = append(eventRows, toCells(eventRecord(e, loc)))
	}
	if err := writeSheet(f, EventsSheet, EventColumns, eventColumnWidths, eventRows, header); err != nil {
		return err
	}

	summaryRows := make([][]interface{}, 0, len(summary))
	for _, row := range summary {
		summaryRows = append(summaryRows, []interface{}{
			row.Date,
			row.UserName,
			row.ShiftStart,
			row.ShiftEnd,
			row.BreakMinutes,
			row.WorkedMinutes,
			yesNo(row.Incomplete),
		})
	}
	if err := writeSheet(f, SummarySheet, SummaryColumns, summaryColumnWidths, summaryRows, header); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, columns []string, widths []float64, rows [][]interface{}, headerStyle int) error {
	if err := f.SetSheetRow(sheet, "A1", &columns); err != nil {
		return fmt.Errorf("%s header: %w", sheet, err)
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("%s header style: %w", sheet, err)
	}

	for i, width := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return fmt.Errorf("%s column width: %w", sheet, err)
		}
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
