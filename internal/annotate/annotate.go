package annotate

import (
	"fmt"
	"strings"
	"time"

	"github.com/phillip-england/shiftrecon/internal/reconcile"
	"github.com/phillip-england/shiftrecon/internal/timesheet"
	"github.com/phillip-england/shiftrecon/internal/workbook"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type Layout struct {
	Sheet             string
	NameColumn        string
	ActualStartColumn string
	ActualEndColumn   string
	BackupColumn      string
	NoteColumn        string
}

type Colors struct {
	Success     string
	Warning     string
	Error       string
	Consecutive string
}

type Options struct {
	Layout      Layout
	Colors      Colors
	TimeFormat  string
	ReportSheet string
}

const (
	noteStartMissing = "start not found in clock log"
	noteEndMissing   = "end not found in clock log"
	noteConsecutive  = "consecutive shift"
)

// Apply writes the outcome of a reconciliation run into the planned sheet
// and recreates the report sheet. Failures are write-back errors.
func Apply(f *excelize.File, report *reconcile.Report, opts Options, log *zap.Logger) error {
	paint := newStyler(f)
	sheet := opts.Layout.Sheet

	for _, m := range report.Matches {
		var notes []string
		if err := writeTime(f, paint, sheet, opts.Layout.ActualStartColumn, m.ShiftRow, m.ActualStart, m.StartSource, opts); err != nil {
			return err
		}
		if !m.StartSource.Found() {
			notes = append(notes, noteStartMissing)
		}
		if err := writeTime(f, paint, sheet, opts.Layout.ActualEndColumn, m.ShiftRow, m.ActualEnd, m.EndSource, opts); err != nil {
			return err
		}
		if !m.EndSource.Found() {
			notes = append(notes, noteEndMissing)
		}
		if m.StartSource == reconcile.SourceForced || m.EndSource == reconcile.SourceForced {
			notes = append(notes, noteConsecutive)
		}
		if len(notes) > 0 && opts.Layout.NoteColumn != "" {
			if err := setCell(f, sheet, opts.Layout.NoteColumn, m.ShiftRow, strings.Join(notes, "; ")); err != nil {
				return err
			}
		}
	}

	for _, n := range report.Names {
		switch {
		case n.Corrected():
			for _, row := range n.Rows {
				if err := setCell(f, sheet, opts.Layout.NameColumn, row, n.ResolvedName); err != nil {
					return err
				}
				if opts.Layout.BackupColumn != "" {
					if err := setCell(f, sheet, opts.Layout.BackupColumn, row, n.OriginalName); err != nil {
						return err
					}
				}
				if err := paintCell(paint, sheet, opts.Layout.NameColumn, row, opts.Colors.Warning, ""); err != nil {
					return err
				}
			}
		case n.MatchType == reconcile.MatchNone:
			for _, row := range n.Rows {
				if err := paintCell(paint, sheet, opts.Layout.NameColumn, row, opts.Colors.Error, ""); err != nil {
					return err
				}
			}
		}
	}

	if opts.ReportSheet != "" {
		if err := WriteReportSheet(f, report, opts.ReportSheet); err != nil {
			return err
		}
	}
	log.Debug("workbook annotated",
		zap.Int("shifts", len(report.Matches)),
		zap.Int("names", len(report.Names)),
		zap.Int("styles", len(paint.cache)))
	return nil
}

func writeTime(f *excelize.File, paint *styler, sheet, column string, row int, value *time.Time, source reconcile.Source, opts Options) error {
	var color string
	switch source {
	case reconcile.SourceNone:
		return paintCell(paint, sheet, column, row, opts.Colors.Warning, "")
	case reconcile.SourcePreset:
		return paintCell(paint, sheet, column, row, opts.Colors.Success, "")
	case reconcile.SourceForced:
		color = opts.Colors.Consecutive
	default:
		color = opts.Colors.Success
	}
	if value == nil {
		return nil
	}
	if err := setCell(f, sheet, column, row, timesheet.TimeSerial(timesheet.TimeOfDay(*value))); err != nil {
		return err
	}
	return paintCell(paint, sheet, column, row, color, opts.TimeFormat)
}

func setCell(f *excelize.File, sheet, column string, row int, value any) error {
	cell, err := excelize.JoinCellName(column, row)
	if err != nil {
		return fmt.Errorf("%w: %w", workbook.ErrWriteBack, err)
	}
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		return fmt.Errorf("%w: %s!%s: %w", workbook.ErrWriteBack, sheet, cell, err)
	}
	return nil
}

func paintCell(paint *styler, sheet, column string, row int, color, numFmt string) error {
	cell, err := excelize.JoinCellName(column, row)
	if err != nil {
		return fmt.Errorf("%w: %w", workbook.ErrWriteBack, err)
	}
	if err := paint.paint(sheet, cell, color, numFmt); err != nil {
		return fmt.Errorf("%w: %w", workbook.ErrWriteBack, err)
	}
	return nil
}
