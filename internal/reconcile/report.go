package reconcile

import (
	"time"

	"github.com/phillip-england/shiftrecon/internal/similarity"
	"github.com/phillip-england/shiftrecon/internal/timesheet"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Options struct {
	Threshold       int
	MaxRows         int
	StripDiacritics bool
	Window          time.Duration
	Consecutive     bool
	ConsecutiveGap  time.Duration
	ExclusiveEvents bool
}

type Report struct {
	RunID       string    `json:"runId"`
	GeneratedAt time.Time `json:"generatedAt"`

	TotalShifts        int `json:"totalShifts"`
	TotalClockEvents   int `json:"totalClockEvents"`
	SkippedPlannedRows int `json:"skippedPlannedRows"`
	SkippedClockRows   int `json:"skippedClockRows"`

	TotalNames   int `json:"totalNames"`
	ExactMatches int `json:"exactMatches"`
	SafeMatches  int `json:"safeMatches"`
	NoMatches    int `json:"noMatches"`

	ShiftsWithStart  int `json:"shiftsWithStart"`
	ShiftsWithEnd    int `json:"shiftsWithEnd"`
	ShiftsWithBoth   int `json:"shiftsWithBoth"`
	ConsecutivePairs int `json:"consecutivePairs"`

	WorkedHours decimal.Decimal `json:"workedHours"`

	Names   []NameOutcome          `json:"names"`
	Matches []MatchOutcome         `json:"matches"`
	Pairs   []ConsecutivePair      `json:"pairs"`
	Skipped []timesheet.SkippedRow `json:"skipped"`
}

type Input struct {
	Shifts         []*timesheet.PlannedShift
	Events         []timesheet.ClockEvent
	SkippedPlanned []timesheet.SkippedRow
	SkippedClock   []timesheet.SkippedRow
}

// Run executes name reconciliation, consecutive detection and time matching
// over already extracted records. Shifts are mutated in place.
func Run(in Input, opts Options, runID string, log *zap.Logger) *Report {
	cmp := similarity.NewComparer(opts.Threshold, similarity.Options{StripDiacritics: opts.StripDiacritics})

	report := &Report{
		RunID:              runID,
		GeneratedAt:        time.Now().UTC(),
		TotalShifts:        len(in.Shifts),
		TotalClockEvents:   len(in.Events),
		SkippedPlannedRows: len(in.SkippedPlanned),
		SkippedClockRows:   len(in.SkippedClock),
	}
	report.Skipped = append(report.Skipped, in.SkippedPlanned...)
	report.Skipped = append(report.Skipped, in.SkippedClock...)

	report.Names = ReconcileNames(in.Shifts, in.Events, cmp, opts.MaxRows, log)
	log.Debug("name comparison cache", zap.Int("hits", cmp.CacheHits()))

	if opts.Consecutive {
		gap := opts.ConsecutiveGap
		if gap < 0 {
			gap = DefaultConsecutiveGap
		}
		report.Pairs = DetectConsecutive(in.Shifts, gap, cmp.Normalize)
	}

	matcher := NewMatcher(in.Events, opts.Window, opts.ExclusiveEvents, cmp.Normalize)
	report.Matches = matcher.MatchAll(in.Shifts)

	report.tally()
	log.Info("reconciliation finished",
		zap.Int("shifts", report.TotalShifts),
		zap.Int("exact", report.ExactMatches),
		zap.Int("safe", report.SafeMatches),
		zap.Int("unmatched", report.NoMatches),
		zap.Int("withBoth", report.ShiftsWithBoth),
		zap.Int("consecutivePairs", report.ConsecutivePairs))
	return report
}

func (r *Report) tally() {
	r.TotalNames = len(r.Names)
	for _, n := range r.Names {
		switch n.MatchType {
		case MatchExact:
			r.ExactMatches++
		case MatchSafe:
			r.SafeMatches++
		default:
			r.NoMatches++
		}
	}

	r.ConsecutivePairs = len(r.Pairs)
	r.WorkedHours = decimal.Zero
	for _, m := range r.Matches {
		hasStart := m.ActualStart != nil
		hasEnd := m.ActualEnd != nil
		if hasStart {
			r.ShiftsWithStart++
		}
		if hasEnd {
			r.ShiftsWithEnd++
		}
		if hasStart && hasEnd {
			r.ShiftsWithBoth++
		}
		if m.WorkedHours.Valid {
			r.WorkedHours = r.WorkedHours.Add(m.WorkedHours.Decimal)
		}
	}
}

func (r *Report) Corrections() []NameOutcome {
	var out []NameOutcome
	for _, n := range r.Names {
		if n.Corrected() {
			out = append(out, n)
		}
	}
	return out
}
