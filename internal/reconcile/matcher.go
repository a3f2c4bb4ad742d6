package reconcile

import (
	"sort"
	"time"

	"github.com/phillip-england/shiftrecon/internal/timesheet"
	"github.com/shopspring/decimal"
)

type Source string

const (
	SourceSearch Source = "search"
	SourceForced Source = "forced"
	SourcePreset Source = "preset"
	SourceNone   Source = "none"
)

func (s Source) Found() bool {
	return s != SourceNone
}

type MatchOutcome struct {
	ShiftRow     int       `json:"shiftRow"`
	Employee     string    `json:"employee"`
	OriginalName string    `json:"originalName"`
	PlannedStart time.Time `json:"plannedStart"`
	PlannedEnd   time.Time `json:"plannedEnd"`

	ActualStart *time.Time            `json:"actualStart,omitempty"`
	ActualEnd   *time.Time            `json:"actualEnd,omitempty"`
	StartEvent  *timesheet.ClockEvent `json:"startEvent,omitempty"`
	EndEvent    *timesheet.ClockEvent `json:"endEvent,omitempty"`

	StartUpdated bool   `json:"startUpdated"`
	EndUpdated   bool   `json:"endUpdated"`
	StartSource  Source `json:"startSource"`
	EndSource    Source `json:"endSource"`

	HasConsecutiveShift   bool `json:"hasConsecutiveShift"`
	IsSecondOfConsecutive bool `json:"isSecondOfConsecutive"`

	WorkedHours decimal.NullDecimal `json:"workedHours"`
}

// Matcher looks up clock events around planned instants. With exclusive set,
// an event picked by one search is not offered to later searches.
type Matcher struct {
	window    time.Duration
	exclusive bool
	key       func(string) string
	events    map[string][]timesheet.ClockEvent
	claimed   map[int]struct{}
}

func NewMatcher(events []timesheet.ClockEvent, window time.Duration, exclusive bool, key func(string) string) *Matcher {
	m := &Matcher{
		window:    window,
		exclusive: exclusive,
		key:       key,
		events:    make(map[string][]timesheet.ClockEvent),
		claimed:   make(map[int]struct{}),
	}
	for _, ev := range events {
		k := key(ev.Name)
		m.events[k] = append(m.events[k], ev)
	}
	for k := range m.events {
		list := m.events[k]
		sort.SliceStable(list, func(i, j int) bool {
			if !list[i].Timestamp.Equal(list[j].Timestamp) {
				return list[i].Timestamp.Before(list[j].Timestamp)
			}
			return list[i].Row < list[j].Row
		})
	}
	return m
}

func (m *Matcher) MatchAll(shifts []*timesheet.PlannedShift) []MatchOutcome {
	out := make([]MatchOutcome, 0, len(shifts))
	for _, shift := range shifts {
		out = append(out, m.Match(shift))
	}
	return out
}

// Match fills ActualStart and ActualEnd of the shift. Preset values are final,
// consecutive sides are forced to the planned instant, everything else is
// searched: earliest event in the window for a start, latest for an end.
func (m *Matcher) Match(shift *timesheet.PlannedShift) MatchOutcome {
	out := MatchOutcome{
		ShiftRow:              shift.Row,
		Employee:              shift.Name,
		OriginalName:          shift.OriginalName,
		PlannedStart:          shift.StartInstant(),
		PlannedEnd:            shift.EndInstant(),
		HasConsecutiveShift:   shift.HasConsecutiveShift,
		IsSecondOfConsecutive: shift.IsSecondOfConsecutive,
	}
	candidates := m.events[m.key(shift.Name)]

	switch {
	case shift.PresetStart && shift.ActualStart != nil:
		out.StartSource = SourcePreset
		out.StartEvent = m.provenance(candidates, out.PlannedStart, *shift.ActualStart)
	case shift.IsSecondOfConsecutive:
		at := out.PlannedStart
		shift.ActualStart = &at
		out.StartSource = SourceForced
		out.StartUpdated = true
	default:
		if ev := m.search(candidates, out.PlannedStart, true); ev != nil {
			at := ev.Timestamp
			shift.ActualStart = &at
			out.StartEvent = ev
			out.StartSource = SourceSearch
			out.StartUpdated = true
		} else {
			out.StartSource = SourceNone
		}
	}

	switch {
	case shift.PresetEnd && shift.ActualEnd != nil:
		out.EndSource = SourcePreset
		out.EndEvent = m.provenance(candidates, out.PlannedEnd, *shift.ActualEnd)
	case shift.HasConsecutiveShift:
		at := out.PlannedEnd
		shift.ActualEnd = &at
		out.EndSource = SourceForced
		out.EndUpdated = true
	default:
		if ev := m.search(candidates, out.PlannedEnd, false); ev != nil {
			at := ev.Timestamp
			shift.ActualEnd = &at
			out.EndEvent = ev
			out.EndSource = SourceSearch
			out.EndUpdated = true
		} else {
			out.EndSource = SourceNone
		}
	}

	out.ActualStart = shift.ActualStart
	out.ActualEnd = shift.ActualEnd
	out.WorkedHours = workedHours(shift.ActualStart, shift.ActualEnd)
	return out
}

func (m *Matcher) search(candidates []timesheet.ClockEvent, anchor time.Time, earliest bool) *timesheet.ClockEvent {
	from, to := anchor.Add(-m.window), anchor.Add(m.window)
	var picked *timesheet.ClockEvent
	for i := range candidates {
		ev := &candidates[i]
		if ev.Timestamp.Before(from) || ev.Timestamp.After(to) || m.isClaimed(ev) {
			continue
		}
		picked = ev
		if earliest {
			break
		}
	}
	if picked == nil {
		return nil
	}
	m.claim(picked)
	found := *picked
	return &found
}

func (m *Matcher) provenance(candidates []timesheet.ClockEvent, anchor, actual time.Time) *timesheet.ClockEvent {
	from, to := anchor.Add(-m.window), anchor.Add(m.window)
	for i := range candidates {
		ev := &candidates[i]
		if ev.Timestamp.Before(from) || ev.Timestamp.After(to) || m.isClaimed(ev) {
			continue
		}
		if ev.Timestamp.Hour() == actual.Hour() && ev.Timestamp.Minute() == actual.Minute() {
			m.claim(ev)
			found := *ev
			return &found
		}
	}
	return nil
}

func (m *Matcher) isClaimed(ev *timesheet.ClockEvent) bool {
	if !m.exclusive {
		return false
	}
	_, ok := m.claimed[ev.Row]
	return ok
}

func (m *Matcher) claim(ev *timesheet.ClockEvent) {
	if m.exclusive {
		m.claimed[ev.Row] = struct{}{}
	}
}

func workedHours(start, end *time.Time) decimal.NullDecimal {
	if start == nil || end == nil || end.Before(*start) {
		return decimal.NullDecimal{}
	}
	minutes := decimal.NewFromInt(int64(end.Sub(*start) / time.Minute))
	return decimal.NewNullDecimal(minutes.Div(decimal.NewFromInt(60)).Round(2))
}
