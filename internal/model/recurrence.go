package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RecurrenceKind is the cadence class of a tracked task.
type RecurrenceKind string

const (
	RecurrenceDay   RecurrenceKind = "day"
	RecurrenceWeek  RecurrenceKind = "week"
	RecurrenceMonth RecurrenceKind = "month"
)

// Recurrence is implemented only by DayRecurrence, WeekRecurrence and
// MonthRecurrence.
type Recurrence interface {
	Kind() RecurrenceKind
	Validate() error
	isRecurrence()
}

// DayRecurrence recreates a task DelayDays calendar days after it was
// completed. A zero delay recreates it as soon as completion is seen.
type DayRecurrence struct {
	DelayDays int
}

// WeekRecurrence recreates a completed task on the given weekday.
type WeekRecurrence struct {
	Weekday time.Weekday
}

// MonthRecurrence recreates a completed task on the given day of the
// month (1-31). Months without that day are skipped.
type MonthRecurrence struct {
	Day int
}

func (DayRecurrence) Kind() RecurrenceKind   { return RecurrenceDay }
func (WeekRecurrence) Kind() RecurrenceKind  { return RecurrenceWeek }
func (MonthRecurrence) Kind() RecurrenceKind { return RecurrenceMonth }

func (DayRecurrence) isRecurrence()   {}
func (WeekRecurrence) isRecurrence()  {}
func (MonthRecurrence) isRecurrence() {}

func (r DayRecurrence) Validate() error {
	if r.DelayDays < 0 {
		return fmt.Errorf("day recurrence: delay %d must not be negative", r.DelayDays)
	}
	return nil
}

func (r WeekRecurrence) Validate() error {
	if r.Weekday < time.Sunday || r.Weekday > time.Saturday {
		return fmt.Errorf("week recurrence: weekday %d out of range", int(r.Weekday))
	}
	return nil
}

func (r MonthRecurrence) Validate() error {
	if r.Day < 1 || r.Day > 31 {
		return fmt.Errorf("month recurrence: day %d out of range 1-31", r.Day)
	}
	return nil
}

// RecurrenceColumns is the flattened storage form of a Recurrence.
// Only the parameter matching Kind is meaningful.
type RecurrenceColumns struct {
	Kind      string `db:"recurrence_kind"`
	DelayDays int    `db:"delay_days"`
	Weekday   int    `db:"weekday"`
	MonthDay  int    `db:"month_day"`
}

// EncodeRecurrence flattens r for storage.
func EncodeRecurrence(r Recurrence) (RecurrenceColumns, error) {
	switch v := r.(type) {
	case DayRecurrence:
		return RecurrenceColumns{Kind: string(RecurrenceDay), DelayDays: v.DelayDays, MonthDay: 1}, nil
	case WeekRecurrence:
		return RecurrenceColumns{Kind: string(RecurrenceWeek), Weekday: int(v.Weekday), MonthDay: 1}, nil
	case MonthRecurrence:
		return RecurrenceColumns{Kind: string(RecurrenceMonth), MonthDay: v.Day}, nil
	case nil:
		return RecurrenceColumns{}, fmt.Errorf("missing recurrence")
	default:
		return RecurrenceColumns{}, fmt.Errorf("unknown recurrence %T", r)
	}
}

// Decode rebuilds the Recurrence stored in c.
func (c RecurrenceColumns) Decode() (Recurrence, error) {
	var r Recurrence
	switch RecurrenceKind(c.Kind) {
	case RecurrenceDay:
		r = DayRecurrence{DelayDays: c.DelayDays}
	case RecurrenceWeek:
		r = WeekRecurrence{Weekday: time.Weekday(c.Weekday)}
	case RecurrenceMonth:
		r = MonthRecurrence{Day: c.MonthDay}
	default:
		return nil, fmt.Errorf("unknown recurrence kind %q", c.Kind)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// ParseWeekday accepts an English weekday name or abbreviation
// ("monday", "Mon") or a number where 0 is Sunday.
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > 6 {
			return 0, fmt.Errorf("weekday %d out of range 0-6", n)
		}
		return time.Weekday(n), nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || (len(s) >= 3 && strings.HasPrefix(name, s)) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}
