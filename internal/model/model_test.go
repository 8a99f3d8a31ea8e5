package model

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecurrenceColumnsRoundTrip(t *testing.T) {
	for _, r := range []Recurrence{
		DayRecurrence{DelayDays: 3},
		WeekRecurrence{Weekday: time.Saturday},
		MonthRecurrence{Day: 31},
	} {
		cols, err := EncodeRecurrence(r)
		require.NoError(t, err)
		assert.Equal(t, string(r.Kind()), cols.Kind)

		got, err := cols.Decode()
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}
}

func TestRecurrenceColumns_RejectsBadRows(t *testing.T) {
	_, err := EncodeRecurrence(nil)
	assert.Error(t, err)

	_, err = RecurrenceColumns{Kind: "hourly"}.Decode()
	assert.Error(t, err)

	_, err = RecurrenceColumns{Kind: "month", MonthDay: 0}.Decode()
	assert.Error(t, err)
}

func TestParsePriority(t *testing.T) {
	p, err := ParsePriority("medium")
	require.NoError(t, err)
	assert.Equal(t, PriorityMedium, p)

	p, err = ParsePriority("0.1")
	require.NoError(t, err)
	assert.Equal(t, PriorityTrivial, p)
	assert.Equal(t, "trivial", p.String())

	_, err = ParsePriority("3")
	assert.Error(t, err)
}

func TestParseWeekday(t *testing.T) {
	for in, want := range map[string]time.Weekday{
		"sunday": time.Sunday, "Mon": time.Monday, " SATURDAY ": time.Saturday, "3": time.Wednesday,
	} {
		got, err := ParseWeekday(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"someday", "7", "-1", "s"} {
		_, err := ParseWeekday(bad)
		assert.Error(t, err, bad)
	}
}

func TestTrackedTaskValidate(t *testing.T) {
	task := TrackedTask{
		ID: "t1", RemoteID: "r1", OwnerID: "u1", Name: "Water plants",
		Priority: PriorityEasy, Recurrence: DayRecurrence{DelayDays: 2},
	}
	require.NoError(t, task.Validate())

	bad := task
	bad.Priority = 3
	assert.Error(t, bad.Validate())

	bad = task
	bad.Recurrence = MonthRecurrence{Day: 40}
	assert.Error(t, bad.Validate())

	bad = task
	bad.DueInDays = -1
	assert.Error(t, bad.Validate())
}

func TestLoadConfig_DefaultsWhenFileMissing(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "https://habitica.com/api/v3", cfg.Remote.BaseURL)
	assert.Equal(t, 90*time.Second, cfg.Backoff.Step)
	assert.Equal(t, 500*time.Second, cfg.Backoff.Ceiling)
	assert.Equal(t, 10*time.Minute, cfg.Schedule.SyncInterval)
	assert.Equal(t, "23:45", cfg.Schedule.DailyAt)
	assert.Equal(t, 465, cfg.Mail.Port)
}

func TestLoadConfig_FileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  path: /var/lib/todo-overs/data.db
report:
  timezone: Europe/Berlin
schedule:
  sync_interval: 5m
`), 0o600))

	t.Setenv("EMAIL_TO", "me@example.com")
	t.Setenv("TODOOVERS_LOG_LEVEL", "debug")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/todo-overs/data.db", cfg.Database.Path)
	assert.Equal(t, 5*time.Minute, cfg.Schedule.SyncInterval)
	assert.Equal(t, "me@example.com", cfg.Mail.To)
	assert.Equal(t, "debug", cfg.Log.Level)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
backoff:
  step: 90s
  ceiling: 10s
`), 0o600))

	_, err := LoadConfig(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("report:\n  timezone: Mars/Olympus\n"), 0o600))
	_, err = LoadConfig(path)
	assert.Error(t, err)
}
