package reconcile

import (
	"sort"
	"time"

	"github.com/phillip-england/shiftrecon/internal/timesheet"
)

const DefaultConsecutiveGap = 30 * time.Minute

type ConsecutivePair struct {
	Employee  string        `json:"employee"`
	FirstRow  int           `json:"firstRow"`
	SecondRow int           `json:"secondRow"`
	Gap       time.Duration `json:"gap"`
}

// DetectConsecutive flags shift pairs of one employee where the next shift
// starts no later than maxGap after the previous one ends. Chains of three or
// more shifts fall out of the pairwise flags.
func DetectConsecutive(shifts []*timesheet.PlannedShift, maxGap time.Duration, key func(string) string) []ConsecutivePair {
	var order []string
	groups := make(map[string][]*timesheet.PlannedShift)
	for _, shift := range shifts {
		k := key(shift.Name)
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], shift)
	}

	var pairs []ConsecutivePair
	for _, k := range order {
		group := groups[k]
		if len(group) < 2 {
			continue
		}
		sorted := make([]*timesheet.PlannedShift, len(group))
		copy(sorted, group)
		sort.SliceStable(sorted, func(i, j int) bool {
			if !sorted[i].Date.Equal(sorted[j].Date) {
				return sorted[i].Date.Before(sorted[j].Date)
			}
			return sorted[i].PlannedStart < sorted[j].PlannedStart
		})

		for i := 0; i+1 < len(sorted); i++ {
			current, next := sorted[i], sorted[i+1]
			gap := next.StartInstant().Sub(current.EndInstant())
			if gap < 0 || gap > maxGap {
				continue
			}
			current.HasConsecutiveShift = true
			next.IsSecondOfConsecutive = true
			pairs = append(pairs, ConsecutivePair{
				Employee:  current.Name,
				FirstRow:  current.Row,
				SecondRow: next.Row,
				Gap:       gap,
			})
		}
	}
	return pairs
}
