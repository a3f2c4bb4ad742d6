package reconcile

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/phillip-england/shiftrecon/internal/similarity"
	"github.com/phillip-england/shiftrecon/internal/timesheet"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var march1 = time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

func defaultOptions() Options {
	return Options{
		Threshold:       2,
		MaxRows:         100,
		StripDiacritics: true,
		Window:          3 * time.Hour,
		Consecutive:     true,
		ConsecutiveGap:  30 * time.Minute,
	}
}

func hm(h, m int) time.Duration {
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute
}

func shift(row int, name string, date time.Time, start, end time.Duration) *timesheet.PlannedShift {
	return &timesheet.PlannedShift{Row: row, Name: name, OriginalName: name, Date: date, PlannedStart: start, PlannedEnd: end}
}

func event(t *testing.T, row int, name, raw string) timesheet.ClockEvent {
	t.Helper()
	ts, err := timesheet.ParseTimestamp(raw)
	require.NoError(t, err)
	return timesheet.ClockEvent{Row: row, Name: name, Timestamp: ts}
}

func at(t *testing.T, raw string) time.Time {
	t.Helper()
	ts, err := timesheet.ParseTimestamp(raw)
	require.NoError(t, err)
	return ts
}

func keyFn() func(string) string {
	opts := similarity.DefaultOptions()
	return func(s string) string { return similarity.Normalize(s, opts) }
}

func TestRunSingleShiftFoundBySearch(t *testing.T) {
	// GIVEN: one planned shift and clock readings spelled with diacritics
	shifts := []*timesheet.PlannedShift{shift(5, "Jan Novak", march1, hm(8, 0), hm(16, 0))}
	events := []timesheet.ClockEvent{
		event(t, 6, "Jan Novák", "01.03.2024 07:55:00"),
		event(t, 7, "Jan Novák", "01.03.2024 16:10:00"),
	}

	// WHEN
	report := Run(Input{Shifts: shifts, Events: events}, defaultOptions(), "run-1", zap.NewNop())

	// THEN
	require.Len(t, report.Matches, 1)
	m := report.Matches[0]
	require.NotNil(t, m.ActualStart)
	require.NotNil(t, m.ActualEnd)
	assert.Equal(t, at(t, "01.03.2024 07:55:00"), *m.ActualStart)
	assert.Equal(t, at(t, "01.03.2024 16:10:00"), *m.ActualEnd)
	assert.Equal(t, SourceSearch, m.StartSource)
	assert.Equal(t, SourceSearch, m.EndSource)
	assert.True(t, m.StartUpdated)
	assert.True(t, m.EndUpdated)
	assert.False(t, m.HasConsecutiveShift)
	assert.False(t, m.IsSecondOfConsecutive)
	require.NotNil(t, m.StartEvent)
	assert.Equal(t, 6, m.StartEvent.Row)
	assert.True(t, decimal.RequireFromString("8.25").Equal(m.WorkedHours.Decimal))

	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, 1, report.ExactMatches)
	assert.Equal(t, 1, report.ShiftsWithBoth)
	assert.Equal(t, 0, report.ConsecutivePairs)
	assert.Equal(t, "Jan Novak", shifts[0].Name, "exact matches keep the planned spelling")
}

func TestRunConsecutiveShifts(t *testing.T) {
	shifts := []*timesheet.PlannedShift{
		shift(5, "Svoboda Petr", march1, hm(14, 20), hm(22, 0)),
		shift(6, "Svoboda Petr", march1, hm(6, 0), hm(14, 0)),
	}
	events := []timesheet.ClockEvent{
		event(t, 6, "Svoboda Petr", "01.03.2024 05:50:00"),
		event(t, 7, "Svoboda Petr", "01.03.2024 14:02:00"),
		event(t, 8, "Svoboda Petr", "01.03.2024 14:18:00"),
		event(t, 9, "Svoboda Petr", "01.03.2024 22:05:00"),
	}

	report := Run(Input{Shifts: shifts, Events: events}, defaultOptions(), "run", zap.NewNop())

	require.Len(t, report.Pairs, 1)
	assert.Equal(t, ConsecutivePair{Employee: "Svoboda Petr", FirstRow: 6, SecondRow: 5, Gap: 20 * time.Minute}, report.Pairs[0])

	second, first := report.Matches[0], report.Matches[1]
	assert.True(t, first.HasConsecutiveShift)
	assert.True(t, second.IsSecondOfConsecutive)

	assert.Equal(t, SourceSearch, first.StartSource)
	assert.Equal(t, at(t, "01.03.2024 05:50:00"), *first.ActualStart)
	assert.Equal(t, SourceForced, first.EndSource)
	assert.Equal(t, at(t, "01.03.2024 14:00:00"), *first.ActualEnd)
	assert.Nil(t, first.EndEvent)

	assert.Equal(t, SourceForced, second.StartSource)
	assert.Equal(t, at(t, "01.03.2024 14:20:00"), *second.ActualStart)
	assert.Equal(t, SourceSearch, second.EndSource)
	assert.Equal(t, at(t, "01.03.2024 22:05:00"), *second.ActualEnd)

	assert.Equal(t, 1, report.ConsecutivePairs)
	assert.Equal(t, 2, report.ShiftsWithBoth)
}

func TestRunConsecutiveDisabled(t *testing.T) {
	shifts := []*timesheet.PlannedShift{
		shift(5, "Svoboda Petr", march1, hm(6, 0), hm(14, 0)),
		shift(6, "Svoboda Petr", march1, hm(14, 20), hm(22, 0)),
	}
	opts := defaultOptions()
	opts.Consecutive = false

	report := Run(Input{Shifts: shifts}, opts, "run", zap.NewNop())
	assert.Empty(t, report.Pairs)
	assert.False(t, shifts[0].HasConsecutiveShift)
	assert.Equal(t, SourceNone, report.Matches[0].EndSource)
}

func TestRunSurnameOnlyNameIsCorrected(t *testing.T) {
	shifts := []*timesheet.PlannedShift{
		shift(5, "Novak", march1, hm(8, 0), hm(16, 0)),
		shift(6, "Novak", march1.AddDate(0, 0, 1), hm(8, 0), hm(16, 0)),
	}
	events := []timesheet.ClockEvent{
		event(t, 6, "Novák Jan", "01.03.2024 08:01:00"),
		event(t, 7, "Novák Jan", "02.03.2024 15:58:00"),
	}

	report := Run(Input{Shifts: shifts, Events: events}, defaultOptions(), "run", zap.NewNop())

	require.Len(t, report.Names, 1)
	want := NameOutcome{OriginalName: "Novak", ResolvedName: "Novák Jan", MatchType: MatchSafe, Score: 70, Rows: []int{5, 6}}
	if diff := cmp.Diff(want, report.Names[0]); diff != "" {
		t.Fatalf("name outcome mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, report.Names[0].Corrected())
	assert.Len(t, report.Corrections(), 1)
	for _, s := range shifts {
		assert.Equal(t, "Novák Jan", s.Name)
		assert.Equal(t, "Novak", s.OriginalName)
	}

	assert.Equal(t, 1, report.SafeMatches)
	assert.Equal(t, 1, report.ShiftsWithStart)
	assert.Equal(t, 1, report.ShiftsWithEnd)
	assert.Equal(t, 0, report.ShiftsWithBoth)
}

func TestRunNoEventInWindow(t *testing.T) {
	shifts := []*timesheet.PlannedShift{shift(5, "Jan Novak", march1, hm(8, 0), hm(16, 0))}
	events := []timesheet.ClockEvent{
		event(t, 6, "Jan Novak", "01.03.2024 04:59:00"),
		event(t, 7, "Jan Novak", "01.03.2024 16:05:00"),
	}

	report := Run(Input{Shifts: shifts, Events: events}, defaultOptions(), "run", zap.NewNop())

	m := report.Matches[0]
	assert.False(t, m.StartUpdated)
	assert.Equal(t, SourceNone, m.StartSource)
	assert.Nil(t, m.ActualStart)
	assert.False(t, m.WorkedHours.Valid)
	assert.Equal(t, 0, report.ShiftsWithStart)
	assert.Equal(t, 1, report.ShiftsWithEnd)
}

func TestRunUnmatchedName(t *testing.T) {
	shifts := []*timesheet.PlannedShift{shift(5, "Zeman Karel", march1, hm(8, 0), hm(16, 0))}
	events := []timesheet.ClockEvent{event(t, 6, "Novák Jan", "01.03.2024 08:00:00")}

	report := Run(Input{Shifts: shifts, Events: events}, defaultOptions(), "run", zap.NewNop())

	require.Len(t, report.Names, 1)
	assert.Equal(t, MatchNone, report.Names[0].MatchType)
	assert.Equal(t, "Zeman Karel", report.Names[0].ResolvedName)
	assert.Equal(t, 1, report.NoMatches)
	assert.Equal(t, SourceNone, report.Matches[0].StartSource)
}

func TestReconcileNamesPrefersExactAndBestScore(t *testing.T) {
	c := similarity.NewComparer(2, similarity.DefaultOptions())
	events := []timesheet.ClockEvent{
		{Row: 1, Name: "Svoboda Petra"},
		{Row: 2, Name: "Svoboda Petr"},
		{Row: 3, Name: "Dvořák Jana"},
		{Row: 4, Name: "Dvorak Jan"},
		{Row: 5, Name: "Dvorak Jana"},
	}
	shifts := []*timesheet.PlannedShift{
		shift(1, "Svoboda Petr", march1, 0, hm(8, 0)),
		shift(2, "Dvorak Janu", march1, 0, hm(8, 0)),
	}

	outcomes := ReconcileNames(shifts, events, c, 100, zap.NewNop())

	require.Len(t, outcomes, 2)
	assert.Equal(t, MatchExact, outcomes[0].MatchType)
	assert.Equal(t, 100, outcomes[0].Score)
	assert.Equal(t, MatchSafe, outcomes[1].MatchType)
	assert.Equal(t, "Dvořák Jana", outcomes[1].ResolvedName, "first of equally scored candidates wins")
	assert.Equal(t, 90, outcomes[1].Score)
}

func TestReconcileNamesMaxRows(t *testing.T) {
	c := similarity.NewComparer(2, similarity.DefaultOptions())
	events := []timesheet.ClockEvent{{Row: 1, Name: "Novák Jan"}, {Row: 2, Name: "Svoboda Petr"}}
	shifts := []*timesheet.PlannedShift{
		shift(1, "Novak Jan", march1, 0, hm(8, 0)),
		shift(2, "Svoboda Petr", march1, 0, hm(8, 0)),
	}

	outcomes := ReconcileNames(shifts, events, c, 1, zap.NewNop())

	require.Len(t, outcomes, 2)
	assert.Equal(t, MatchExact, outcomes[0].MatchType)
	assert.Equal(t, MatchNone, outcomes[1].MatchType, "names beyond the cap are left unmatched")
}

func TestDetectConsecutiveBoundary(t *testing.T) {
	cases := []struct {
		gap  time.Duration
		want bool
	}{
		{0, true},
		{29 * time.Minute, true},
		{30 * time.Minute, true},
		{31 * time.Minute, false},
		{-1 * time.Minute, false},
	}
	for _, tc := range cases {
		first := shift(1, "Svoboda Petr", march1, hm(6, 0), hm(14, 0))
		second := shift(2, "Svoboda Petr", march1, hm(14, 0)+tc.gap, hm(22, 0))
		pairs := DetectConsecutive([]*timesheet.PlannedShift{first, second}, DefaultConsecutiveGap, keyFn())
		assert.Equal(t, tc.want, len(pairs) == 1, "gap %v", tc.gap)
		assert.Equal(t, tc.want, first.HasConsecutiveShift, "gap %v", tc.gap)
		assert.Equal(t, tc.want, second.IsSecondOfConsecutive, "gap %v", tc.gap)
	}
}

func TestDetectConsecutiveOvernightAndChains(t *testing.T) {
	night := shift(1, "Horak Jiri", march1, hm(22, 0), hm(6, 0))
	morning := shift(2, "Horák Jiří", march1.AddDate(0, 0, 1), hm(6, 15), hm(14, 0))
	afternoon := shift(3, "Horak Jiri", march1.AddDate(0, 0, 1), hm(14, 0), hm(22, 0))
	other := shift(4, "Novak Jan", march1.AddDate(0, 0, 1), hm(14, 0), hm(22, 0))

	pairs := DetectConsecutive([]*timesheet.PlannedShift{afternoon, night, other, morning}, DefaultConsecutiveGap, keyFn())

	require.Len(t, pairs, 2)
	assert.Equal(t, 1, pairs[0].FirstRow)
	assert.Equal(t, 2, pairs[0].SecondRow)
	assert.Equal(t, 15*time.Minute, pairs[0].Gap)
	assert.Equal(t, 2, pairs[1].FirstRow)
	assert.Equal(t, 3, pairs[1].SecondRow)

	assert.True(t, night.HasConsecutiveShift)
	assert.False(t, night.IsSecondOfConsecutive)
	assert.True(t, morning.HasConsecutiveShift)
	assert.True(t, morning.IsSecondOfConsecutive)
	assert.False(t, afternoon.HasConsecutiveShift)
	assert.True(t, afternoon.IsSecondOfConsecutive)
	assert.False(t, other.HasConsecutiveShift)
}

func TestMatcherWindowIsInclusive(t *testing.T) {
	planned := shift(5, "Jan Novak", march1, hm(8, 0), hm(16, 0))

	exact := []timesheet.ClockEvent{event(t, 1, "Jan Novak", "01.03.2024 05:00:00")}
	m := NewMatcher(exact, 3*time.Hour, false, keyFn())
	out := m.Match(planned)
	assert.Equal(t, SourceSearch, out.StartSource)

	planned = shift(5, "Jan Novak", march1, hm(8, 0), hm(16, 0))
	outside := []timesheet.ClockEvent{event(t, 1, "Jan Novak", "01.03.2024 04:59:59")}
	m = NewMatcher(outside, 3*time.Hour, false, keyFn())
	out = m.Match(planned)
	assert.Equal(t, SourceNone, out.StartSource)
	assert.Nil(t, planned.ActualStart)
}

func TestMatcherEarliestStartLatestEnd(t *testing.T) {
	planned := shift(5, "Jan Novak", march1, hm(8, 0), hm(16, 0))
	events := []timesheet.ClockEvent{
		event(t, 4, "Jan Novak", "01.03.2024 08:10:00"),
		event(t, 1, "Jan Novak", "01.03.2024 07:40:00"),
		event(t, 2, "Jan Novak", "01.03.2024 15:50:00"),
		event(t, 3, "Jan Novak", "01.03.2024 16:30:00"),
	}

	out := NewMatcher(events, 3*time.Hour, false, keyFn()).Match(planned)
	assert.Equal(t, at(t, "01.03.2024 07:40:00"), *out.ActualStart)
	assert.Equal(t, at(t, "01.03.2024 16:30:00"), *out.ActualEnd)
}

func TestMatcherOvernightEnd(t *testing.T) {
	planned := shift(5, "Horak Jiri", march1, hm(22, 0), hm(6, 0))
	events := []timesheet.ClockEvent{
		event(t, 1, "Horak Jiri", "01.03.2024 21:50:00"),
		event(t, 2, "Horak Jiri", "02.03.2024 06:07:00"),
	}

	out := NewMatcher(events, 3*time.Hour, false, keyFn()).Match(planned)
	assert.Equal(t, at(t, "01.03.2024 21:50:00"), *out.ActualStart)
	assert.Equal(t, at(t, "02.03.2024 06:07:00"), *out.ActualEnd)
	assert.True(t, decimal.RequireFromString("8.28").Equal(out.WorkedHours.Decimal))
}

func TestMatcherPermissiveVersusExclusive(t *testing.T) {
	events := []timesheet.ClockEvent{event(t, 1, "Jan Novak", "01.03.2024 08:30:00")}
	build := func() []*timesheet.PlannedShift {
		return []*timesheet.PlannedShift{
			shift(5, "Jan Novak", march1, hm(8, 0), hm(12, 0)),
			shift(6, "Jan Novak", march1, hm(9, 0), hm(13, 0)),
		}
	}

	permissive := NewMatcher(events, 3*time.Hour, false, keyFn()).MatchAll(build())
	assert.Equal(t, SourceSearch, permissive[0].StartSource)
	assert.Equal(t, SourceSearch, permissive[1].StartSource, "an event may serve more than one shift")

	exclusive := NewMatcher(events, 3*time.Hour, true, keyFn()).MatchAll(build())
	assert.Equal(t, SourceSearch, exclusive[0].StartSource)
	assert.Equal(t, SourceNone, exclusive[1].StartSource)
}

func TestMatcherPresetValuesAreFinal(t *testing.T) {
	planned := shift(5, "Jan Novak", march1, hm(8, 0), hm(16, 0))
	preset := at(t, "01.03.2024 07:58:00")
	planned.ActualStart = &preset
	planned.PresetStart = true
	planned.HasConsecutiveShift = true
	presetEnd := at(t, "01.03.2024 16:45:00")
	planned.ActualEnd = &presetEnd
	planned.PresetEnd = true

	events := []timesheet.ClockEvent{
		event(t, 1, "Jan Novak", "01.03.2024 07:30:00"),
		event(t, 2, "Jan Novak", "01.03.2024 07:58:41"),
	}

	out := NewMatcher(events, 3*time.Hour, false, keyFn()).Match(planned)
	assert.Equal(t, SourcePreset, out.StartSource)
	assert.False(t, out.StartUpdated)
	assert.Equal(t, preset, *out.ActualStart)
	require.NotNil(t, out.StartEvent)
	assert.Equal(t, 2, out.StartEvent.Row)

	assert.Equal(t, SourcePreset, out.EndSource, "preset end wins over the consecutive rule")
	assert.Nil(t, out.EndEvent)
	assert.Equal(t, presetEnd, *out.ActualEnd)
}
