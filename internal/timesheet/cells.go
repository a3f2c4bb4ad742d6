package timesheet

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	minDateSerial = 1
	maxDateSerial = 2958466
)

var errEmptyCell = errors.New("empty cell")

var dateLayouts = []string{
	"02.01.2006",
	"2.1.2006",
	"2. 1. 2006",
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
	"2006/01/02",
}

var timestampLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.RFC3339,
}

// ParseDate accepts a spreadsheet date serial or a textual date with day
// before month. Any time part is dropped.
func ParseDate(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, errEmptyCell
	}

	if serial, err := strconv.ParseFloat(value, 64); err == nil {
		if serial < minDateSerial || serial >= maxDateSerial {
			return time.Time{}, fmt.Errorf("date serial %v out of range", serial)
		}
		parsed, err := excelize.ExcelDateToTime(math.Floor(serial), false)
		if err != nil {
			return time.Time{}, fmt.Errorf("date serial %v: %w", serial, err)
		}
		return dateOnly(parsed), nil
	}

	if head, _, found := strings.Cut(value, " "); found && !strings.HasSuffix(head, ".") {
		value = head
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return dateOnly(parsed), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

// ParseTimeOfDay accepts a fractional-day serial or HH:MM[:SS]. A whole
// serial of 1 and the text 24:00 both mean end of day. Other whole numbers
// are rejected so a typed "8" is not read as midnight.
func ParseTimeOfDay(raw string) (time.Duration, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, errEmptyCell
	}

	if serial, err := strconv.ParseFloat(value, 64); err == nil {
		if serial < 0 || math.IsNaN(serial) || math.IsInf(serial, 0) {
			return 0, fmt.Errorf("time serial %v out of range", serial)
		}
		if serial == 1 {
			return day, nil
		}
		if whole, frac := math.Modf(serial); whole >= 1 && frac == 0 {
			return 0, fmt.Errorf("time serial %v has no time part", serial)
		}
		return serialClock(serial), nil
	}

	if idx := strings.LastIndex(value, " "); idx >= 0 {
		value = strings.TrimSpace(value[idx+1:])
	}
	return parseClockText(value)
}

// serialClock returns the time-of-day held in the fractional part of a
// spreadsheet serial.
func serialClock(serial float64) time.Duration {
	_, frac := math.Modf(serial)
	seconds := math.Round(frac * float64(day/time.Second))
	return time.Duration(seconds) * time.Second
}

func parseClockText(value string) (time.Duration, error) {
	parts := strings.Split(value, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("unrecognized time %q", value)
	}

	fields := make([]int, len(parts))
	for i, part := range parts {
		if part == "" || len(part) > 2 {
			return 0, fmt.Errorf("unrecognized time %q", value)
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("unrecognized time %q", value)
		}
		fields[i] = n
	}

	hours, minutes := fields[0], fields[1]
	seconds := 0
	if len(fields) == 3 {
		seconds = fields[2]
	}
	if minutes > 59 || seconds > 59 || hours > 24 || (hours == 24 && (minutes > 0 || seconds > 0)) {
		return 0, fmt.Errorf("time %q out of range", value)
	}
	return time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute + time.Duration(seconds)*time.Second, nil
}

// ParseTimestamp accepts a date-time serial, "DD.MM.YYYY HH:MM[:SS]" split on
// its first space, or an ISO timestamp.
func ParseTimestamp(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, errEmptyCell
	}

	if serial, err := strconv.ParseFloat(value, 64); err == nil {
		if serial < minDateSerial || serial >= maxDateSerial {
			return time.Time{}, fmt.Errorf("timestamp serial %v out of range", serial)
		}
		date, err := excelize.ExcelDateToTime(math.Floor(serial), false)
		if err != nil {
			return time.Time{}, fmt.Errorf("timestamp serial %v: %w", serial, err)
		}
		return dateOnly(date).Add(serialClock(serial)), nil
	}

	datePart, timePart, found := strings.Cut(value, " ")
	if !found {
		for _, layout := range timestampLayouts {
			if parsed, err := time.Parse(layout, value); err == nil {
				return time.Date(parsed.Year(), parsed.Month(), parsed.Day(), parsed.Hour(), parsed.Minute(), parsed.Second(), 0, time.UTC), nil
			}
		}
		return time.Time{}, fmt.Errorf("timestamp %q has no time part", raw)
	}

	date, err := ParseDate(datePart)
	if err != nil {
		return time.Time{}, err
	}
	clock, err := parseClockText(strings.TrimSpace(timePart))
	if err != nil {
		return time.Time{}, err
	}
	return date.Add(clock), nil
}

// TimeSerial converts a time-of-day into the fraction of a day spreadsheets
// store for time cells.
func TimeSerial(d time.Duration) float64 {
	return float64(d) / float64(day)
}
