package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	fileDateLayout = "20060102"
	dateLayout     = "2006-01-02"
)

// ErrSnapshotExists is returned when a snapshot for the day and user
// has already been written.
var ErrSnapshotExists = errors.New("snapshot already exists")

// HabitEntry is a habit scored during the day. The counters are the
// habit's running totals at the time the snapshot was taken.
type HabitEntry struct {
	Name        string `json:"text"`
	Frequency   string `json:"frequency"`
	Notes       string `json:"notes,omitempty"`
	CounterUp   int    `json:"counterUp"`
	CounterDown int    `json:"counterDown"`
}

// Net is the habit's up count minus its down count.
func (h HabitEntry) Net() int {
	return h.CounterUp - h.CounterDown
}

// DailyEntry is a daily that was due and completed during the day.
type DailyEntry struct {
	Name      string `json:"text"`
	Frequency string `json:"frequency"`
	Notes     string `json:"notes,omitempty"`
	EveryX    int    `json:"everyX"`
	Streak    int    `json:"streak"`
}

// TodoEntry is a to-do completed during the day.
type TodoEntry struct {
	ID          string    `json:"id"`
	Name        string    `json:"text"`
	Notes       string    `json:"notes,omitempty"`
	CompletedAt time.Time `json:"dateCompleted"`
}

// Snapshot is one user's activity on one calendar day.
type Snapshot struct {
	Date   string       `json:"date"`
	UserID string       `json:"user_id"`
	Habits []HabitEntry `json:"habits"`
	Dailys []DailyEntry `json:"dailys"`
	Todos  []TodoEntry  `json:"todos"`
}

// SnapshotStore keeps snapshots as JSON files named {YYYYMMDD}_{userID}.json
// in a single directory.
type SnapshotStore struct {
	Dir string
}

// Path returns the file for day and userID.
func (s SnapshotStore) Path(day time.Time, userID string) string {
	return filepath.Join(s.Dir, day.Format(fileDateLayout)+"_"+userID+".json")
}

// Write stores snap for day. Snapshots are immutable: if the file already
// exists it is left untouched and ErrSnapshotExists is returned.
func (s SnapshotStore) Write(day time.Time, snap Snapshot) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("creating report dir: %w", err)
	}

	path := s.Path(day, snap.UserID)
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding snapshot: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		return path, ErrSnapshotExists
	}
	if err != nil {
		return "", fmt.Errorf("creating snapshot %s: %w", path, err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("writing snapshot %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("closing snapshot %s: %w", path, err)
	}
	return path, nil
}

// Load reads the snapshot for day and userID. A missing file returns an
// error satisfying errors.Is(err, os.ErrNotExist).
func (s SnapshotStore) Load(day time.Time, userID string) (Snapshot, string, error) {
	path := s.Path(day, userID)
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, path, err
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, path, fmt.Errorf("decoding snapshot %s: %w", path, err)
	}
	return snap, path, nil
}

// LoadRange loads the snapshots of the given days for userID, skipping
// days without a file. Paths are returned alongside in day order.
// Unreadable files are skipped as well; their errors are joined into err,
// which is returned together with the snapshots that did load.
func (s SnapshotStore) LoadRange(days []time.Time, userID string) (snaps []Snapshot, paths []string, err error) {
	var errs []error
	for _, day := range days {
		snap, path, loadErr := s.Load(day, userID)
		if errors.Is(loadErr, os.ErrNotExist) {
			continue
		}
		if loadErr != nil {
			errs = append(errs, loadErr)
			continue
		}
		snaps = append(snaps, snap)
		paths = append(paths, path)
	}
	return snaps, paths, errors.Join(errs...)
}
