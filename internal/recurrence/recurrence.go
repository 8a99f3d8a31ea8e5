// Package recurrence decides when a completed recurring task is due to
// be recreated.
package recurrence

import (
	"time"

	"github.com/nhle/todo-overs/internal/model"
)

// Decision is the evaluator's verdict for one task.
type Decision int

const (
	// NoAction means nothing is due and nothing is pending.
	NoAction Decision = iota
	// Wait means the task is completed but its delay has not elapsed.
	Wait
	// RecreateNow means a fresh instance should be created.
	RecreateNow
)

func (d Decision) String() string {
	switch d {
	case Wait:
		return "wait"
	case RecreateNow:
		return "recreate_now"
	default:
		return "no_action"
	}
}

// RemoteState is the completion state reported by the remote service.
// CompletedAt is nil when the service omitted the completion time.
type RemoteState struct {
	Completed   bool
	CompletedAt *time.Time
}

// Decide evaluates rec against the remote state at now. Calendar
// comparisons happen in now's location.
func Decide(rec model.Recurrence, state RemoteState, now time.Time) Decision {
	if !state.Completed {
		return NoAction
	}

	switch r := rec.(type) {
	case model.DayRecurrence:
		if r.DelayDays == 0 {
			return RecreateNow
		}
		if state.CompletedAt == nil {
			return NoAction
		}
		if ElapsedDays(*state.CompletedAt, now) >= r.DelayDays {
			return RecreateNow
		}
		return Wait

	case model.WeekRecurrence:
		if now.Weekday() != r.Weekday || completedToday(state, now) {
			return NoAction
		}
		return RecreateNow

	case model.MonthRecurrence:
		if now.Day() != r.Day || completedToday(state, now) {
			return NoAction
		}
		return RecreateNow
	}

	return NoAction
}

// ElapsedDays counts calendar midnights between from and to, both
// truncated to the start of their day in to's location.
func ElapsedDays(from, to time.Time) int {
	loc := to.Location()
	a := midnight(from.In(loc))
	b := midnight(to)
	// Round absorbs DST shifts of up to an hour.
	return int(b.Sub(a).Round(24*time.Hour) / (24 * time.Hour))
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// completedToday compares day-of-month only. A missing completion time
// counts as today.
func completedToday(state RemoteState, now time.Time) bool {
	if state.CompletedAt == nil {
		return true
	}
	return state.CompletedAt.In(now.Location()).Day() == now.Day()
}
