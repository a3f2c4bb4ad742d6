package annotate

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/phillip-england/shiftrecon/internal/reconcile"
	"github.com/phillip-england/shiftrecon/internal/workbook"
	"github.com/xuri/excelize/v2"
)

var shiftHeader = []any{
	"Row", "Employee", "Original name", "Planned start", "Planned end",
	"Actual start", "Actual end", "Start source", "End source", "Worked hours",
}

var nameHeader = []any{"Planned name", "Resolved name", "Match", "Score", "Rows"}

// WriteReportSheet replaces the sheet with the run summary: counters,
// consecutive pairs, per-shift rows, per-name rows and skipped rows.
func WriteReportSheet(f *excelize.File, report *reconcile.Report, sheet string) error {
	if idx, err := f.GetSheetIndex(sheet); err == nil && idx >= 0 {
		if err := f.DeleteSheet(sheet); err != nil {
			return fmt.Errorf("%w: drop report sheet: %w", workbook.ErrWriteBack, err)
		}
	}
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("%w: create report sheet: %w", workbook.ErrWriteBack, err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("%w: %w", workbook.ErrWriteBack, err)
	}

	w := &sheetWriter{f: f, sheet: sheet, row: 1, bold: bold}
	w.heading("Summary")
	w.line("Run", report.RunID)
	w.line("Generated", report.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	w.line("Planned shifts", report.TotalShifts)
	w.line("Clock events", report.TotalClockEvents)
	w.line("Skipped planned rows", report.SkippedPlannedRows)
	w.line("Skipped clock rows", report.SkippedClockRows)
	w.line("Names", report.TotalNames)
	w.line("Exact name matches", report.ExactMatches)
	w.line("Corrected names", report.SafeMatches)
	w.line("Unmatched names", report.NoMatches)
	w.line("Shifts with start", report.ShiftsWithStart)
	w.line("Shifts with end", report.ShiftsWithEnd)
	w.line("Shifts with both", report.ShiftsWithBoth)
	w.line("Consecutive pairs", report.ConsecutivePairs)
	w.line("Worked hours", report.WorkedHours.StringFixed(2))
	w.blank()

	if len(report.Pairs) > 0 {
		w.heading("Consecutive shifts")
		w.header("Employee", "First row", "Second row", "Gap (min)")
		for _, p := range report.Pairs {
			w.line(p.Employee, p.FirstRow, p.SecondRow, int(p.Gap.Minutes()))
		}
		w.blank()
	}

	w.heading("Shifts")
	w.header(shiftHeader...)
	for _, m := range report.Matches {
		hours := ""
		if m.WorkedHours.Valid {
			hours = m.WorkedHours.Decimal.StringFixed(2)
		}
		w.line(
			m.ShiftRow,
			m.Employee,
			m.OriginalName,
			m.PlannedStart.Format(stampLayout),
			m.PlannedEnd.Format(stampLayout),
			formatStamp(m.ActualStart),
			formatStamp(m.ActualEnd),
			string(m.StartSource),
			string(m.EndSource),
			hours,
		)
	}
	w.blank()

	w.heading("Names")
	w.header(nameHeader...)
	for _, n := range report.Names {
		w.line(n.OriginalName, n.ResolvedName, string(n.MatchType), n.Score, joinRows(n.Rows))
	}

	if len(report.Skipped) > 0 {
		w.blank()
		w.heading("Skipped rows")
		w.header("Sheet", "Row", "Reason")
		for _, s := range report.Skipped {
			w.line(s.Sheet, s.Row, s.Reason)
		}
	}

	if w.err != nil {
		return fmt.Errorf("%w: report sheet: %w", workbook.ErrWriteBack, w.err)
	}
	if err := f.SetColWidth(sheet, "A", "C", 24); err != nil {
		return fmt.Errorf("%w: %w", workbook.ErrWriteBack, err)
	}
	if err := f.SetColWidth(sheet, "D", "G", 18); err != nil {
		return fmt.Errorf("%w: %w", workbook.ErrWriteBack, err)
	}
	return nil
}

const stampLayout = "02.01.2006 15:04"

// sheetWriter appends rows and keeps the first error.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	row   int
	bold  int
	err   error
}

func (w *sheetWriter) line(values ...any) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, w.row)
	if err != nil {
		w.err = err
		return
	}
	w.err = w.f.SetSheetRow(w.sheet, cell, &values)
	w.row++
}

func (w *sheetWriter) header(values ...any) {
	start := w.row
	w.line(values...)
	if w.err != nil {
		return
	}
	from, _ := excelize.CoordinatesToCellName(1, start)
	to, _ := excelize.CoordinatesToCellName(len(values), start)
	w.err = w.f.SetCellStyle(w.sheet, from, to, w.bold)
}

func (w *sheetWriter) heading(title string) {
	w.header(title)
}

func (w *sheetWriter) blank() {
	w.row++
}

func formatStamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(stampLayout)
}

func joinRows(rows []int) string {
	parts := make([]string, len(rows))
	for i, r := range rows {
		parts[i] = strconv.Itoa(r)
	}
	return strings.Join(parts, ", ")
}
