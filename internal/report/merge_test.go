package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func habit(name, freq string, up, down int) HabitEntry {
	return HabitEntry{Name: name, Frequency: freq, CounterUp: up, CounterDown: down}
}

func weekOfSnapshots() []Snapshot {
	return []Snapshot{
		{
			Date:   "2024-03-04",
			Habits: []HabitEntry{habit("Stretch", "daily", 2, 0), habit("Gym", "weekly", 1, 0)},
			Dailys: []DailyEntry{{Name: "Read"}},
			Todos:  []TodoEntry{{Name: "Taxes"}},
		},
		{
			Date:   "2024-03-05",
			Habits: []HabitEntry{habit("Stretch", "daily", 3, 1), habit("Gym", "weekly", 3, 0)},
			Dailys: []DailyEntry{{Name: "Read"}, {Name: "Floss"}},
		},
		{
			Date:   "2024-03-07",
			Habits: []HabitEntry{habit("Gym", "weekly", 2, 0)},
			Dailys: []DailyEntry{{Name: "Read"}},
			Todos:  []TodoEntry{{Name: "Call mom"}, {Name: "Laundry"}},
		},
	}
}

func TestMerge(t *testing.T) {
	got := Merge(weekOfSnapshots())

	assert.Equal(t, map[string]int{"Stretch": 4, "Gym": 3}, got.Habits)
	assert.Equal(t, map[string]int{"Read": 3, "Floss": 1}, got.Dailies)
	assert.Equal(t, []string{"Taxes", "Call mom", "Laundry"}, got.Todos)
}

func TestMerge_OtherFrequenciesKeepFirstValue(t *testing.T) {
	got := Merge([]Snapshot{
		{Date: "2024-03-06", Habits: []HabitEntry{habit("Budget", "monthly", 5, 0)}},
		{Date: "2024-03-05", Habits: []HabitEntry{habit("Budget", "monthly", 2, 0)}},
		{Date: "2024-03-07", Habits: []HabitEntry{habit("Budget", "monthly", 9, 1)}},
	})
	assert.Equal(t, map[string]int{"Budget": 2}, got.Habits)
}

func TestMerge_OrderIndependent(t *testing.T) {
	snaps := weekOfSnapshots()
	want := Merge(snaps)

	permutations := [][]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}
	for _, p := range permutations {
		shuffled := []Snapshot{snaps[p[0]], snaps[p[1]], snaps[p[2]]}
		assert.Equal(t, want, Merge(shuffled), "permutation %v", p)
	}
}

func TestMerge_SkippedDayOnlyDropsItsOwnData(t *testing.T) {
	snaps := weekOfSnapshots()
	got := Merge([]Snapshot{snaps[0], snaps[2]})

	assert.Equal(t, map[string]int{"Stretch": 2, "Gym": 2}, got.Habits)
	assert.Equal(t, map[string]int{"Read": 2}, got.Dailies)
	assert.Equal(t, []string{"Taxes", "Call mom", "Laundry"}, got.Todos)
}

func TestMerge_Empty(t *testing.T) {
	got := Merge(nil)
	assert.Empty(t, got.Habits)
	assert.Empty(t, got.Dailies)
	assert.Empty(t, got.Todos)
}
