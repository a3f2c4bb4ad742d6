package reconcile

import (
	"github.com/phillip-england/shiftrecon/internal/similarity"
	"github.com/phillip-england/shiftrecon/internal/timesheet"
	"go.uber.org/zap"
)

type MatchType string

const (
	MatchExact MatchType = "exact"
	MatchSafe  MatchType = "safe"
	MatchNone  MatchType = "none"
)

type NameOutcome struct {
	OriginalName string    `json:"originalName"`
	ResolvedName string    `json:"resolvedName"`
	MatchType    MatchType `json:"matchType"`
	Score        int       `json:"score"`
	Rows         []int     `json:"rows"`
}

func (o NameOutcome) Corrected() bool {
	return o.MatchType == MatchSafe && o.ResolvedName != o.OriginalName
}

type nameCandidate struct {
	raw string
	key string
}

// ReconcileNames resolves every distinct planned name against the names seen
// in the clock log. A safe, non-exact winner is written through to every
// shift carrying that name.
func ReconcileNames(shifts []*timesheet.PlannedShift, events []timesheet.ClockEvent, cmp *similarity.Comparer, maxRows int, log *zap.Logger) []NameOutcome {
	clockNames := distinctClockNames(events, cmp)
	if maxRows > 0 && len(clockNames) > maxRows {
		log.Warn("clock names over limit, extra names ignored", zap.Int("names", len(clockNames)), zap.Int("maxRows", maxRows))
		clockNames = clockNames[:maxRows]
	}

	var order []string
	rowsByName := make(map[string][]*timesheet.PlannedShift)
	for _, shift := range shifts {
		if _, seen := rowsByName[shift.Name]; !seen {
			order = append(order, shift.Name)
		}
		rowsByName[shift.Name] = append(rowsByName[shift.Name], shift)
	}
	if maxRows > 0 && len(order) > maxRows {
		log.Warn("planned names over limit, extra names left unmatched", zap.Int("names", len(order)), zap.Int("maxRows", maxRows))
	}

	outcomes := make([]NameOutcome, 0, len(order))
	for i, name := range order {
		group := rowsByName[name]
		outcome := NameOutcome{OriginalName: name, ResolvedName: name, MatchType: MatchNone}
		for _, shift := range group {
			outcome.Rows = append(outcome.Rows, shift.Row)
		}

		if maxRows <= 0 || i < maxRows {
			if best, res, ok := bestClockName(name, clockNames, cmp); ok {
				outcome.Score = res.Score
				if res.Exact {
					outcome.MatchType = MatchExact
				} else {
					outcome.MatchType = MatchSafe
					outcome.ResolvedName = best.raw
				}
			}
		}

		if outcome.MatchType == MatchSafe {
			for _, shift := range group {
				shift.Name = outcome.ResolvedName
			}
			log.Info("planned name corrected",
				zap.String("from", name),
				zap.String("to", outcome.ResolvedName),
				zap.Int("score", outcome.Score))
		} else if outcome.MatchType == MatchNone {
			log.Warn("planned name has no clock match", zap.String("name", name))
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

func bestClockName(name string, candidates []nameCandidate, cmp *similarity.Comparer) (nameCandidate, similarity.Result, bool) {
	var (
		best    nameCandidate
		bestRes similarity.Result
		found   bool
	)
	for _, candidate := range candidates {
		res := cmp.Compare(name, candidate.raw)
		if res.Exact {
			return candidate, res, true
		}
		if !res.Safe {
			continue
		}
		if !found || res.Score > bestRes.Score {
			best, bestRes, found = candidate, res, true
		}
	}
	return best, bestRes, found
}

func distinctClockNames(events []timesheet.ClockEvent, cmp *similarity.Comparer) []nameCandidate {
	seen := make(map[string]struct{})
	var out []nameCandidate
	for _, ev := range events {
		key := cmp.Normalize(ev.Name)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, nameCandidate{raw: ev.Name, key: key})
	}
	return out
}
