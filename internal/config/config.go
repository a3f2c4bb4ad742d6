package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/phillip-england/shiftrecon/internal/reconcile"
	"github.com/phillip-england/shiftrecon/internal/timesheet"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Planned PlannedConfig `yaml:"planned" json:"planned"`
	Clock   ClockConfig   `yaml:"clock" json:"clock"`
	Names   NamesConfig   `yaml:"names" json:"names"`
	Time    TimeConfig    `yaml:"time" json:"time"`
	Format  FormatConfig  `yaml:"format" json:"format"`
	Colors  ColorsConfig  `yaml:"colors" json:"colors"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
	API     APIConfig     `yaml:"api" json:"api"`
}

type PlannedConfig struct {
	Sheet             string `yaml:"sheet" json:"sheet"`
	StartRow          int    `yaml:"start_row" json:"startRow"`
	NameColumn        string `yaml:"name_column" json:"nameColumn"`
	DateColumn        string `yaml:"date_column" json:"dateColumn"`
	StartColumn       string `yaml:"start_column" json:"startColumn"`
	EndColumn         string `yaml:"end_column" json:"endColumn"`
	ActualStartColumn string `yaml:"actual_start_column" json:"actualStartColumn"`
	ActualEndColumn   string `yaml:"actual_end_column" json:"actualEndColumn"`
	BackupColumn      string `yaml:"backup_column" json:"backupColumn"`
	NoteColumn        string `yaml:"note_column" json:"noteColumn"`
}

type ClockConfig struct {
	Sheet           string `yaml:"sheet" json:"sheet"`
	StartRow        int    `yaml:"start_row" json:"startRow"`
	TimestampColumn string `yaml:"timestamp_column" json:"timestampColumn"`
	NameColumn      string `yaml:"name_column" json:"nameColumn"`
	TimeColumn      string `yaml:"time_column,omitempty" json:"timeColumn,omitempty"` // optional, when date and time are split
}

type NamesConfig struct {
	Threshold       int  `yaml:"threshold" json:"threshold"`
	MaxRows         int  `yaml:"max_rows" json:"maxRows"`
	StripDiacritics bool `yaml:"strip_diacritics" json:"stripDiacritics"`
}

type TimeConfig struct {
	WindowHours           float64 `yaml:"window_hours" json:"windowHours"`
	Consecutive           bool    `yaml:"consecutive" json:"consecutive"`
	ConsecutiveGapMinutes int     `yaml:"consecutive_gap_minutes" json:"consecutiveGapMinutes"`
	ExclusiveEvents       bool    `yaml:"exclusive_events" json:"exclusiveEvents"`
}

type FormatConfig struct {
	TimeFormat  string `yaml:"time_format" json:"timeFormat"`
	ReportSheet string `yaml:"report_sheet" json:"reportSheet"`
}

type ColorsConfig struct {
	Success     string `yaml:"success" json:"success"`
	Warning     string `yaml:"warning" json:"warning"`
	Error       string `yaml:"error" json:"error"`
	Consecutive string `yaml:"consecutive" json:"consecutive"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`   // debug, info, warn, error
	Format string `yaml:"format" json:"format"` // json, console
}

type APIConfig struct {
	Addr           string   `yaml:"addr" json:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowedOrigins"`
	MaxUploadMB    int64    `yaml:"max_upload_mb" json:"maxUploadMb"`
}

// Default returns the layout of the Podklady/Avaris workbook the tool was
// built for.
func Default() *Config {
	return &Config{
		Planned: PlannedConfig{
			Sheet:             "Podklady",
			StartRow:          5,
			NameColumn:        "A",
			DateColumn:        "B",
			StartColumn:       "C",
			EndColumn:         "D",
			ActualStartColumn: "E",
			ActualEndColumn:   "F",
			BackupColumn:      "G",
			NoteColumn:        "H",
		},
		Clock: ClockConfig{
			Sheet:           "Avaris",
			StartRow:        6,
			TimestampColumn: "A",
			NameColumn:      "B",
		},
		Names: NamesConfig{
			Threshold:       2,
			MaxRows:         100,
			StripDiacritics: true,
		},
		Time: TimeConfig{
			WindowHours:           3,
			Consecutive:           true,
			ConsecutiveGapMinutes: 30,
		},
		Format: FormatConfig{
			TimeFormat:  "hh:mm",
			ReportSheet: "Report",
		},
		Colors: ColorsConfig{
			Success:     "#C6EFCE",
			Warning:     "#FFEB9C",
			Error:       "#FFC7CE",
			Consecutive: "#BDD7EE",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		API: APIConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"*"},
			MaxUploadMB:    32,
		},
	}
}

// Load reads a YAML file over the defaults. A missing file yields the
// defaults. Environment overrides are applied afterwards.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if strings.TrimSpace(c.Planned.Sheet) == "" {
		fail("planned.sheet is empty")
	}
	if strings.TrimSpace(c.Clock.Sheet) == "" {
		fail("clock.sheet is empty")
	}
	if c.Planned.StartRow < 1 {
		fail("planned.start_row must be >= 1, got %d", c.Planned.StartRow)
	}
	if c.Clock.StartRow < 1 {
		fail("clock.start_row must be >= 1, got %d", c.Clock.StartRow)
	}

	columns := map[string]string{
		"planned.name_column":         c.Planned.NameColumn,
		"planned.date_column":         c.Planned.DateColumn,
		"planned.start_column":        c.Planned.StartColumn,
		"planned.end_column":          c.Planned.EndColumn,
		"planned.actual_start_column": c.Planned.ActualStartColumn,
		"planned.actual_end_column":   c.Planned.ActualEndColumn,
		"planned.backup_column":       c.Planned.BackupColumn,
		"planned.note_column":         c.Planned.NoteColumn,
		"clock.timestamp_column":      c.Clock.TimestampColumn,
		"clock.name_column":           c.Clock.NameColumn,
	}
	if c.Clock.TimeColumn != "" {
		columns["clock.time_column"] = c.Clock.TimeColumn
	}
	for _, key := range sortedKeys(columns) {
		if _, err := excelize.ColumnNameToNumber(columns[key]); err != nil {
			fail("%s: %q is not a column letter", key, columns[key])
		}
	}

	if c.Names.Threshold < 0 {
		fail("names.threshold must be >= 0, got %d", c.Names.Threshold)
	}
	if c.Names.MaxRows < 1 {
		fail("names.max_rows must be >= 1, got %d", c.Names.MaxRows)
	}
	if c.Time.WindowHours <= 0 {
		fail("time.window_hours must be > 0, got %v", c.Time.WindowHours)
	}
	if c.Time.ConsecutiveGapMinutes < 0 {
		fail("time.consecutive_gap_minutes must be >= 0, got %d", c.Time.ConsecutiveGapMinutes)
	}
	if strings.TrimSpace(c.Format.TimeFormat) == "" {
		fail("format.time_format is empty")
	}
	if strings.TrimSpace(c.Format.ReportSheet) == "" {
		fail("format.report_sheet is empty")
	}
	if c.Format.ReportSheet == c.Planned.Sheet || c.Format.ReportSheet == c.Clock.Sheet {
		fail("format.report_sheet %q collides with a data sheet", c.Format.ReportSheet)
	}

	for name, color := range map[string]string{
		"colors.success":     c.Colors.Success,
		"colors.warning":     c.Colors.Warning,
		"colors.error":       c.Colors.Error,
		"colors.consecutive": c.Colors.Consecutive,
	} {
		if !hexColor.MatchString(color) {
			fail("%s: %q is not a #RRGGBB color", name, color)
		}
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		fail("logging.format must be json or console, got %q", c.Logging.Format)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

func (c *Config) PlannedLayout() timesheet.PlannedLayout {
	return timesheet.PlannedLayout{
		Sheet:             c.Planned.Sheet,
		StartRow:          c.Planned.StartRow,
		NameColumn:        c.Planned.NameColumn,
		DateColumn:        c.Planned.DateColumn,
		StartColumn:       c.Planned.StartColumn,
		EndColumn:         c.Planned.EndColumn,
		ActualStartColumn: c.Planned.ActualStartColumn,
		ActualEndColumn:   c.Planned.ActualEndColumn,
	}
}

func (c *Config) ClockLayout() timesheet.ClockLayout {
	return timesheet.ClockLayout{
		Sheet:           c.Clock.Sheet,
		StartRow:        c.Clock.StartRow,
		TimestampColumn: c.Clock.TimestampColumn,
		NameColumn:      c.Clock.NameColumn,
		TimeColumn:      c.Clock.TimeColumn,
	}
}

func (c *Config) ReconcileOptions() reconcile.Options {
	return reconcile.Options{
		Threshold:       c.Names.Threshold,
		MaxRows:         c.Names.MaxRows,
		StripDiacritics: c.Names.StripDiacritics,
		Window:          time.Duration(c.Time.WindowHours * float64(time.Hour)),
		Consecutive:     c.Time.Consecutive,
		ConsecutiveGap:  time.Duration(c.Time.ConsecutiveGapMinutes) * time.Minute,
		ExclusiveEvents: c.Time.ExclusiveEvents,
	}
}
