package timesheet

import (
	"errors"
	"fmt"
	"time"
)

const day = 24 * time.Hour

var ErrSheetMissing = errors.New("required sheet missing")

type SheetMissingError struct {
	Sheet string
}

func (e *SheetMissingError) Error() string {
	return fmt.Sprintf("%s: %q", ErrSheetMissing, e.Sheet)
}

func (e *SheetMissingError) Unwrap() error {
	return ErrSheetMissing
}

// PlannedShift is a view over one row of the planned-shift sheet. Name is the
// resolved employee name; OriginalName keeps what the sheet said.
type PlannedShift struct {
	Row          int
	Name         string
	OriginalName string
	Date         time.Time
	PlannedStart time.Duration
	PlannedEnd   time.Duration

	ActualStart *time.Time
	ActualEnd   *time.Time
	PresetStart bool
	PresetEnd   bool

	HasConsecutiveShift   bool
	IsSecondOfConsecutive bool
}

func (s *PlannedShift) StartInstant() time.Time {
	return s.Date.Add(s.PlannedStart)
}

// EndInstant applies the overnight rule: an end earlier in the day than the
// start belongs to the next calendar day.
func (s *PlannedShift) EndInstant() time.Time {
	if s.Overnight() {
		return s.Date.Add(day + s.PlannedEnd)
	}
	return s.Date.Add(s.PlannedEnd)
}

func (s *PlannedShift) Overnight() bool {
	return s.PlannedEnd < s.PlannedStart
}

type ClockEvent struct {
	Row       int
	Name      string
	Timestamp time.Time
}

type Extraction[T any] struct {
	Records []T
	Skipped []SkippedRow
}

type SkippedRow struct {
	Sheet  string `json:"sheet"`
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// TimeOfDay returns the offset of t from its midnight.
func TimeOfDay(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second
}

func FormatClock(d time.Duration) string {
	d = d.Round(time.Minute)
	return fmt.Sprintf("%02d:%02d", int(d/time.Hour), int(d%time.Hour/time.Minute))
}
