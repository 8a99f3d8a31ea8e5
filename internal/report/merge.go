package report

import (
	"sort"
)

// Habit frequencies as reported by Habitica.
const (
	frequencyDaily  = "daily"
	frequencyWeekly = "weekly"
)

// Summary is a merge of several daily snapshots.
type Summary struct {
	// Habits maps habit name to its net count. Weekly habits keep the
	// highest net seen and daily habits sum their nets. Habits of any
	// other frequency keep the first net seen.
	Habits map[string]int

	// Dailies maps daily name to the number of days it was completed.
	Dailies map[string]int

	// Todos lists completed to-do names in snapshot date order.
	Todos []string
}

// Merge combines snapshots. The result does not depend on the order of
// snaps: they are processed by date.
func Merge(snaps []Snapshot) Summary {
	ordered := make([]Snapshot, len(snaps))
	copy(ordered, snaps)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Date < ordered[j].Date
	})

	out := Summary{
		Habits:  make(map[string]int),
		Dailies: make(map[string]int),
	}

	for _, snap := range ordered {
		for _, h := range snap.Habits {
			net := h.Net()
			prev, seen := out.Habits[h.Name]
			switch {
			case !seen:
				out.Habits[h.Name] = net
			case h.Frequency == frequencyWeekly:
				out.Habits[h.Name] = max(prev, net)
			case h.Frequency == frequencyDaily:
				out.Habits[h.Name] = prev + net
			}
		}

		for _, d := range snap.Dailys {
			out.Dailies[d.Name]++
		}

		for _, t := range snap.Todos {
			out.Todos = append(out.Todos, t.Name)
		}
	}

	return out
}

// Count is a named total for rendering.
type Count struct {
	Name  string
	Value int
}

// sortedCounts returns m as a slice ordered by name.
func sortedCounts(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for name, v := range m {
		out = append(out, Count{Name: name, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
