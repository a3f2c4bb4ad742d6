package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

const EnvPrefix = "SHIFTRECON_"

// ApplyEnv overrides fields from SHIFTRECON_* variables. Unset or empty
// variables leave the field alone.
func (c *Config) ApplyEnv() error {
	strs := map[string]*string{
		"PLANNED_SHEET":     &c.Planned.Sheet,
		"CLOCK_SHEET":       &c.Clock.Sheet,
		"NAME_COLUMN":       &c.Planned.NameColumn,
		"CLOCK_NAME_COLUMN": &c.Clock.NameColumn,
		"TIME_FORMAT":       &c.Format.TimeFormat,
		"REPORT_SHEET":      &c.Format.ReportSheet,
		"COLOR_SUCCESS":     &c.Colors.Success,
		"COLOR_WARNING":     &c.Colors.Warning,
		"COLOR_ERROR":       &c.Colors.Error,
		"COLOR_CONSECUTIVE": &c.Colors.Consecutive,
		"LOG_LEVEL":         &c.Logging.Level,
		"LOG_FORMAT":        &c.Logging.Format,
		"API_ADDR":          &c.API.Addr,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"PLANNED_START_ROW": &c.Planned.StartRow,
		"CLOCK_START_ROW":   &c.Clock.StartRow,
		"THRESHOLD":         &c.Names.Threshold,
		"MAX_ROWS":          &c.Names.MaxRows,
	}
	for _, key := range sortedKeys(ints) {
		v, ok := lookup(key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s%s=%q is not an integer", ErrInvalid, EnvPrefix, key, v)
		}
		*ints[key] = n
	}

	bools := map[string]*bool{
		"CONSECUTIVE":      &c.Time.Consecutive,
		"EXCLUSIVE_EVENTS": &c.Time.ExclusiveEvents,
		"STRIP_DIACRITICS": &c.Names.StripDiacritics,
	}
	for _, key := range sortedKeys(bools) {
		v, ok := lookup(key)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %s%s=%q is not a boolean", ErrInvalid, EnvPrefix, key, v)
		}
		*bools[key] = b
	}

	if v, ok := lookup("WINDOW_HOURS"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: %sWINDOW_HOURS=%q is not a number", ErrInvalid, EnvPrefix, v)
		}
		c.Time.WindowHours = f
	}
	if v, ok := lookup("ALLOWED_ORIGINS"); ok {
		c.API.AllowedOrigins = splitList(v)
	}
	return nil
}

// EnvTemplate returns the variables `shiftrecon init` writes into a .env
// file, filled from c.
func (c *Config) EnvTemplate() map[string]string {
	return map[string]string{
		EnvPrefix + "PLANNED_SHEET":    c.Planned.Sheet,
		EnvPrefix + "CLOCK_SHEET":      c.Clock.Sheet,
		EnvPrefix + "THRESHOLD":        strconv.Itoa(c.Names.Threshold),
		EnvPrefix + "WINDOW_HOURS":     strconv.FormatFloat(c.Time.WindowHours, 'f', -1, 64),
		EnvPrefix + "EXCLUSIVE_EVENTS": strconv.FormatBool(c.Time.ExclusiveEvents),
		EnvPrefix + "LOG_LEVEL":        c.Logging.Level,
		EnvPrefix + "API_ADDR":         c.API.Addr,
	}
}

// PathFromEnv returns the config file named by SHIFTRECON_CONFIG.
func PathFromEnv() (string, bool) {
	return lookup("CONFIG")
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
