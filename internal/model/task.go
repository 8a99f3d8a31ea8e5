package model

import (
	"fmt"
	"strconv"
	"time"
)

// Priority is the Habitica difficulty multiplier of a task.
type Priority float64

// Difficulty levels accepted by Habitica.
const (
	PriorityTrivial Priority = 0.1
	PriorityEasy    Priority = 1
	PriorityMedium  Priority = 1.5
	PriorityHard    Priority = 2
)

var priorityNames = map[string]Priority{
	"trivial": PriorityTrivial,
	"easy":    PriorityEasy,
	"medium":  PriorityMedium,
	"hard":    PriorityHard,
}

// ParsePriority accepts a difficulty name ("easy") or its numeric
// multiplier ("1.5").
func ParsePriority(s string) (Priority, error) {
	if p, ok := priorityNames[s]; ok {
		return p, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid priority %q", s)
	}
	p := Priority(f)
	if !p.Valid() {
		return 0, fmt.Errorf("invalid priority %q: must be 0.1, 1, 1.5 or 2", s)
	}
	return p, nil
}

// Valid reports whether p is one of the Habitica difficulty levels.
func (p Priority) Valid() bool {
	switch p {
	case PriorityTrivial, PriorityEasy, PriorityMedium, PriorityHard:
		return true
	}
	return false
}

func (p Priority) String() string {
	for name, v := range priorityNames {
		if v == p {
			return name
		}
	}
	return strconv.FormatFloat(float64(p), 'f', -1, 64)
}

// TrackedTask is a recurring to-do mirrored from Habitica. Every
// recreation produces a new remote task, so RemoteID changes over the
// lifetime of the record while ID stays fixed.
type TrackedTask struct {
	// ID is the local identifier.
	ID string `json:"id" validate:"required"`

	// RemoteID is the Habitica UUID of the live task instance.
	RemoteID string `json:"remote_id" validate:"required"`

	// OwnerID is the Habitica user id of the owning account.
	OwnerID string `json:"owner_id" validate:"required"`

	Name  string `json:"name" validate:"required"`
	Notes string `json:"notes"`

	Priority Priority `json:"priority"`

	// DueInDays is the number of days allotted to complete a recreated
	// task. Zero means the task is created without a due date.
	DueInDays int `json:"due_in_days" validate:"gte=0"`

	Recurrence Recurrence `json:"-" validate:"required"`

	// TagIDs are remote tag UUIDs, not local keys.
	TagIDs []string `json:"tag_ids"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the task fields and its recurrence parameters.
func (t TrackedTask) Validate() error {
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("invalid task: %w", err)
	}
	if !t.Priority.Valid() {
		return fmt.Errorf("invalid task: priority %v", float64(t.Priority))
	}
	if err := t.Recurrence.Validate(); err != nil {
		return fmt.Errorf("invalid task: %w", err)
	}
	return nil
}
