package timesheet

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const maxExportRows = 100000

var ErrExportUnreadable = errors.New("clock export is unreadable")

// ReadClockExport reads clock events from a separately delivered access-control
// export. Legacy .xls files go through the xls reader, everything else through
// excelize. The layout's sheet is used when present, otherwise a single-sheet
// export is accepted as is.
func ReadClockExport(r io.Reader, filename string, layout ClockLayout, log *zap.Logger) (*Extraction[ClockEvent], error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExportUnreadable, err)
	}

	var rows [][]string
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xls":
		rows, layout.Sheet, err = readXLSRows(data, layout.Sheet)
	default:
		rows, layout.Sheet, err = readXLSXRows(data, layout.Sheet)
	}
	if err != nil {
		return nil, err
	}

	log.Debug("clock export loaded", zap.String("file", filename), zap.String("sheet", layout.Sheet), zap.Int("rows", len(rows)))
	return clockEventsFromRows(rows, layout, log)
}

func readXLSRows(data []byte, sheetName string) ([][]string, string, error) {
	workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, "", fmt.Errorf("%w: xls: %w", ErrExportUnreadable, err)
	}
	if workbook.NumSheets() == 0 {
		return nil, "", fmt.Errorf("%w: no worksheet found", ErrExportUnreadable)
	}

	var sheet *xls.WorkSheet
	for i := 0; i < workbook.NumSheets(); i++ {
		if candidate := workbook.GetSheet(i); candidate != nil && candidate.Name == sheetName {
			sheet = candidate
			break
		}
	}
	if sheet == nil {
		if workbook.NumSheets() > 1 {
			return nil, "", &SheetMissingError{Sheet: sheetName}
		}
		sheet = workbook.GetSheet(0)
	}
	if sheet == nil {
		return nil, "", fmt.Errorf("%w: no worksheet found", ErrExportUnreadable)
	}

	lastRow := min(int(sheet.MaxRow), maxExportRows)
	rows := make([][]string, 0, lastRow+1)
	for i := 0; i <= lastRow; i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, row.LastCol()+1)
		for c := row.FirstCol(); c <= row.LastCol(); c++ {
			cells[c] = row.Col(c)
		}
		rows = append(rows, cells)
	}
	return rows, sheet.Name, nil
}

func readXLSXRows(data []byte, sheetName string) ([][]string, string, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrExportUnreadable, err)
	}
	defer func() { _ = file.Close() }()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, "", fmt.Errorf("%w: no worksheet found", ErrExportUnreadable)
	}
	name := sheetName
	if idx, err := file.GetSheetIndex(sheetName); err != nil || idx < 0 {
		if len(sheets) > 1 {
			return nil, "", &SheetMissingError{Sheet: sheetName}
		}
		name = sheets[0]
	}

	rows, err := readSheetRows(file, name)
	if err != nil {
		return nil, "", err
	}
	return rows, name, nil
}
