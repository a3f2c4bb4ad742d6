package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/phillip-england/shiftrecon/internal/annotate"
	"github.com/phillip-england/shiftrecon/internal/config"
	"github.com/phillip-england/shiftrecon/internal/logging"
	"github.com/phillip-england/shiftrecon/internal/reconcile"
	"github.com/phillip-england/shiftrecon/internal/timesheet"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// Env carries everything one run needs. Build a fresh one per run.
type Env struct {
	Config *config.Config
	Logger *zap.Logger
	RunID  string
}

func NewEnv(cfg *config.Config, base *zap.Logger) *Env {
	runID := logging.NewRunID()
	return &Env{Config: cfg, Logger: logging.ForRun(base, runID), RunID: runID}
}

// ClockExport is a clock log delivered as its own file instead of a sheet
// of the planned workbook.
type ClockExport struct {
	Filename string
	Reader   io.Reader
}

type Options struct {
	ClockExport *ClockExport
	// DryRun computes the report without touching the workbook.
	DryRun bool
}

type Result struct {
	Report *reconcile.Report
	Shifts []*timesheet.PlannedShift
	HTML   []byte
}

// Process reconciles the workbook f and, unless DryRun is set, annotates it
// in memory. Saving is left to the caller.
func Process(ctx context.Context, env *Env, f *excelize.File, opts Options) (*Result, error) {
	cfg, log := env.Config, env.Logger

	planned, err := timesheet.ReadPlanned(f, cfg.PlannedLayout(), log)
	if err != nil {
		return nil, fmt.Errorf("read planned shifts: %w", err)
	}

	var clock *timesheet.Extraction[timesheet.ClockEvent]
	if opts.ClockExport != nil {
		clock, err = timesheet.ReadClockExport(opts.ClockExport.Reader, opts.ClockExport.Filename, cfg.ClockLayout(), log)
	} else {
		clock, err = timesheet.ReadClock(f, cfg.ClockLayout(), log)
	}
	if err != nil {
		return nil, fmt.Errorf("read clock events: %w", err)
	}
	log.Info("extraction finished",
		zap.Int("shifts", len(planned.Records)),
		zap.Int("clockEvents", len(clock.Records)),
		zap.Int("skippedPlanned", len(planned.Skipped)),
		zap.Int("skippedClock", len(clock.Skipped)))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := reconcile.Run(reconcile.Input{
		Shifts:         planned.Records,
		Events:         clock.Records,
		SkippedPlanned: planned.Skipped,
		SkippedClock:   clock.Skipped,
	}, cfg.ReconcileOptions(), env.RunID, log)
	for _, n := range report.Corrections() {
		log.Info("name corrected",
			zap.String("from", n.OriginalName),
			zap.String("to", n.ResolvedName),
			zap.Int("score", n.Score),
			zap.Ints("rows", n.Rows))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if opts.DryRun {
		log.Info("dry run, workbook left untouched")
	} else if err := annotate.Apply(f, report, AnnotateOptions(cfg), log); err != nil {
		return nil, err
	}

	page, err := annotate.HTML(report)
	if err != nil {
		return nil, err
	}
	return &Result{Report: report, Shifts: planned.Records, HTML: page}, nil
}

func AnnotateOptions(cfg *config.Config) annotate.Options {
	return annotate.Options{
		Layout: annotate.Layout{
			Sheet:             cfg.Planned.Sheet,
			NameColumn:        cfg.Planned.NameColumn,
			ActualStartColumn: cfg.Planned.ActualStartColumn,
			ActualEndColumn:   cfg.Planned.ActualEndColumn,
			BackupColumn:      cfg.Planned.BackupColumn,
			NoteColumn:        cfg.Planned.NoteColumn,
		},
		Colors: annotate.Colors{
			Success:     cfg.Colors.Success,
			Warning:     cfg.Colors.Warning,
			Error:       cfg.Colors.Error,
			Consecutive: cfg.Colors.Consecutive,
		},
		TimeFormat:  cfg.Format.TimeFormat,
		ReportSheet: cfg.Format.ReportSheet,
	}
}
