package schedule

import (
	"fmt"
	"strings"
	"time"
)

// Trigger computes when a job is next due.
type Trigger interface {
	// Next returns the first firing time strictly after t, in t's location.
	Next(t time.Time) time.Time
	String() string
}

// Clock is a wall-clock time of day.
type Clock struct {
	Hour, Minute int
}

// ParseClock parses "HH:MM" in 24-hour form.
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return Clock{}, fmt.Errorf("invalid time of day %q: want HH:MM", s)
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

func (c Clock) on(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, c.Hour, c.Minute, 0, 0, day.Location())
}

type every struct{ interval time.Duration }

// Every fires once per interval. The first firing is one interval after
// the scheduler starts.
func Every(interval time.Duration) Trigger { return every{interval: interval} }

func (e every) Next(t time.Time) time.Time { return t.Add(e.interval) }
func (e every) String() string             { return "every " + e.interval.String() }

type daily struct{ at Clock }

// Daily fires every day at the given time.
func Daily(at Clock) Trigger { return daily{at: at} }

func (d daily) Next(t time.Time) time.Time {
	next := d.at.on(t)
	if !next.After(t) {
		next = d.at.on(t.AddDate(0, 0, 1))
	}
	return next
}

func (d daily) String() string { return "daily at " + d.at.String() }

type weekly struct {
	day time.Weekday
	at  Clock
}

// Weekly fires once a week on day at the given time.
func Weekly(day time.Weekday, at Clock) Trigger { return weekly{day: day, at: at} }

func (w weekly) Next(t time.Time) time.Time {
	ahead := (int(w.day) - int(t.Weekday()) + 7) % 7
	next := w.at.on(t.AddDate(0, 0, ahead))
	if !next.After(t) {
		next = w.at.on(t.AddDate(0, 0, ahead+7))
	}
	return next
}

func (w weekly) String() string {
	return fmt.Sprintf("every %s at %s", w.day, w.at)
}
