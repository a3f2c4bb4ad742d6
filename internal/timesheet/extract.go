package timesheet

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type PlannedLayout struct {
	Sheet             string
	StartRow          int
	NameColumn        string
	DateColumn        string
	StartColumn       string
	EndColumn         string
	ActualStartColumn string
	ActualEndColumn   string
}

type ClockLayout struct {
	Sheet           string
	StartRow        int
	TimestampColumn string
	NameColumn      string
	// TimeColumn is optional; when set TimestampColumn holds only the date.
	TimeColumn string
}

func ReadPlanned(f *excelize.File, layout PlannedLayout, log *zap.Logger) (*Extraction[*PlannedShift], error) {
	rows, err := readSheetRows(f, layout.Sheet)
	if err != nil {
		return nil, err
	}
	cols, err := columnIndexes(layout.NameColumn, layout.DateColumn, layout.StartColumn, layout.EndColumn, layout.ActualStartColumn, layout.ActualEndColumn)
	if err != nil {
		return nil, err
	}
	nameIdx, dateIdx, startIdx, endIdx, actualStartIdx, actualEndIdx := cols[0], cols[1], cols[2], cols[3], cols[4], cols[5]

	out := &Extraction[*PlannedShift]{}
	skip := func(rowNum int, reason string) {
		out.Skipped = append(out.Skipped, SkippedRow{Sheet: layout.Sheet, Row: rowNum, Reason: reason})
		log.Warn("skipping planned row", zap.String("sheet", layout.Sheet), zap.Int("row", rowNum), zap.String("reason", reason))
	}

	for i := max(layout.StartRow-1, 0); i < len(rows); i++ {
		row := rows[i]
		rowNum := i + 1
		if blankRow(row) {
			continue
		}

		name := cellValue(row, nameIdx)
		rawDate := cellValue(row, dateIdx)
		if name == "" || rawDate == "" {
			log.Debug("planned row without name or date", zap.Int("row", rowNum))
			continue
		}

		date, err := ParseDate(rawDate)
		if err != nil {
			skip(rowNum, err.Error())
			continue
		}
		start, err := ParseTimeOfDay(cellValue(row, startIdx))
		if err != nil {
			skip(rowNum, "planned start: "+err.Error())
			continue
		}
		end, err := ParseTimeOfDay(cellValue(row, endIdx))
		if err != nil {
			skip(rowNum, "planned end: "+err.Error())
			continue
		}
		if start == day {
			start = 0
			date = date.Add(day)
		}

		shift := &PlannedShift{
			Row:          rowNum,
			Name:         name,
			OriginalName: name,
			Date:         date,
			PlannedStart: start,
			PlannedEnd:   end,
		}
		if at, ok := presetInstant(row, actualStartIdx, shift.StartInstant(), rowNum, "actual start", log); ok {
			shift.ActualStart = &at
			shift.PresetStart = true
		}
		if at, ok := presetInstant(row, actualEndIdx, shift.EndInstant(), rowNum, "actual end", log); ok {
			shift.ActualEnd = &at
			shift.PresetEnd = true
		}
		log.Debug("planned shift",
			zap.Int("row", rowNum),
			zap.String("start", FormatClock(start)),
			zap.String("end", FormatClock(end)),
			zap.Bool("overnight", shift.Overnight()))
		out.Records = append(out.Records, shift)
	}

	log.Info("planned shifts extracted",
		zap.String("sheet", layout.Sheet),
		zap.Int("shifts", len(out.Records)),
		zap.Int("skipped", len(out.Skipped)))
	return out, nil
}

func ReadClock(f *excelize.File, layout ClockLayout, log *zap.Logger) (*Extraction[ClockEvent], error) {
	rows, err := readSheetRows(f, layout.Sheet)
	if err != nil {
		return nil, err
	}
	return clockEventsFromRows(rows, layout, log)
}

func clockEventsFromRows(rows [][]string, layout ClockLayout, log *zap.Logger) (*Extraction[ClockEvent], error) {
	cols, err := columnIndexes(layout.TimestampColumn, layout.NameColumn)
	if err != nil {
		return nil, err
	}
	tsIdx, nameIdx := cols[0], cols[1]
	timeIdx := -1
	if layout.TimeColumn != "" {
		if timeIdx, err = columnIndex(layout.TimeColumn); err != nil {
			return nil, err
		}
	}

	out := &Extraction[ClockEvent]{}
	for i := max(layout.StartRow-1, 0); i < len(rows); i++ {
		row := rows[i]
		rowNum := i + 1
		if blankRow(row) {
			continue
		}

		name := cellValue(row, nameIdx)
		rawTS := cellValue(row, tsIdx)
		if name == "" || rawTS == "" {
			log.Debug("clock row without name or timestamp", zap.Int("row", rowNum))
			continue
		}

		var ts time.Time
		if timeIdx >= 0 {
			ts, err = joinDateAndTime(rawTS, cellValue(row, timeIdx))
		} else {
			ts, err = ParseTimestamp(rawTS)
		}
		if err != nil {
			out.Skipped = append(out.Skipped, SkippedRow{Sheet: layout.Sheet, Row: rowNum, Reason: err.Error()})
			log.Warn("skipping clock row", zap.String("sheet", layout.Sheet), zap.Int("row", rowNum), zap.Error(err))
			continue
		}
		out.Records = append(out.Records, ClockEvent{Row: rowNum, Name: name, Timestamp: ts})
	}

	log.Info("clock events extracted",
		zap.String("sheet", layout.Sheet),
		zap.Int("events", len(out.Records)),
		zap.Int("skipped", len(out.Skipped)))
	return out, nil
}

func joinDateAndTime(rawDate, rawTime string) (time.Time, error) {
	date, err := ParseDate(rawDate)
	if err != nil {
		return time.Time{}, err
	}
	clock, err := ParseTimeOfDay(rawTime)
	if err != nil {
		return time.Time{}, err
	}
	return date.Add(clock), nil
}

func presetInstant(row []string, idx int, anchor time.Time, rowNum int, label string, log *zap.Logger) (time.Time, bool) {
	if idx < 0 {
		return time.Time{}, false
	}
	raw := cellValue(row, idx)
	if raw == "" {
		return time.Time{}, false
	}
	clock, err := ParseTimeOfDay(raw)
	if err != nil {
		log.Warn("ignoring unreadable preset value", zap.Int("row", rowNum), zap.String("field", label), zap.Error(err))
		return time.Time{}, false
	}
	return PlaceNear(anchor, clock), true
}

// PlaceNear puts a time-of-day on whichever calendar day (anchor's, the one
// before or the one after) lands closest to anchor.
func PlaceNear(anchor time.Time, clock time.Duration) time.Time {
	base := dateOnly(anchor).Add(clock)
	best := base
	for _, candidate := range []time.Time{base.Add(-day), base.Add(day)} {
		if absDuration(candidate.Sub(anchor)) < absDuration(best.Sub(anchor)) {
			best = candidate
		}
	}
	return best
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

func readSheetRows(f *excelize.File, sheet string) ([][]string, error) {
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, &SheetMissingError{Sheet: sheet}
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func columnIndexes(names ...string) ([]int, error) {
	out := make([]int, len(names))
	for i, name := range names {
		if name == "" {
			out[i] = -1
			continue
		}
		idx, err := columnIndex(name)
		if err != nil {
			return nil, err
		}
		out[i] = idx
	}
	if len(out) > 0 && out[0] < 0 {
		return nil, errors.New("primary column is required")
	}
	return out, nil
}

func columnIndex(name string) (int, error) {
	n, err := excelize.ColumnNameToNumber(strings.TrimSpace(name))
	if err != nil {
		return -1, fmt.Errorf("column %q: %w", name, err)
	}
	return n - 1, nil
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
