package habitica

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Task types.
const (
	TypeTodo  = "todo"
	TypeHabit = "habit"
	TypeDaily = "daily"
)

// envelope is the wrapper around every Habitica v3 response.
type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// Task is the subset of a Habitica task this client consumes. Fields
// that only apply to some task types are zero for the others.
type Task struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Text     string   `json:"text"`
	Notes    string   `json:"notes"`
	Priority float64  `json:"priority"`
	Tags     []string `json:"tags"`

	// Todos.
	Completed     bool       `json:"completed"`
	DateCompleted *time.Time `json:"dateCompleted,omitempty"`
	Date          *time.Time `json:"date,omitempty"`

	// Habits and dailies.
	Frequency string         `json:"frequency,omitempty"`
	History   []HistoryEntry `json:"history,omitempty"`

	// Habits.
	CounterUp   int `json:"counterUp"`
	CounterDown int `json:"counterDown"`

	// Dailies.
	IsDue  bool            `json:"isDue"`
	Repeat map[string]bool `json:"repeat,omitempty"`
	EveryX int             `json:"everyX"`
	Streak int             `json:"streak"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HistoryEntry is one scoring event of a habit or daily.
type HistoryEntry struct {
	Date       EpochMillis `json:"date"`
	Value      float64     `json:"value"`
	IsDue      bool        `json:"isDue"`
	Completed  bool        `json:"completed"`
	ScoredUp   int         `json:"scoredUp"`
	ScoredDown int         `json:"scoredDown"`
}

// EpochMillis is a timestamp encoded as milliseconds since the Unix
// epoch. Older history entries carry it as a numeric string or an
// ISO-8601 string, both of which are accepted.
type EpochMillis struct {
	time.Time
}

func (e *EpochMillis) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		e.Time = time.Time{}
		return nil
	}

	var ms float64
	if err := json.Unmarshal(b, &ms); err == nil {
		e.Time = time.UnixMilli(int64(ms))
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("epoch millis: %w", err)
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		e.Time = time.UnixMilli(n)
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("epoch millis: %w", err)
	}
	e.Time = t
	return nil
}

func (e EpochMillis) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.UnixMilli())
}

// Tag is a Habitica tag.
type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// UserProfile is the subset of GET /user used to confirm a credential.
type UserProfile struct {
	ID   string `json:"id"`
	Auth struct {
		Local struct {
			Username string `json:"username"`
		} `json:"local"`
	} `json:"auth"`
}

// Username returns the local login name.
func (u UserProfile) Username() string {
	return u.Auth.Local.Username
}

// TaskSpec describes a to-do to create.
type TaskSpec struct {
	Name     string
	Notes    string
	Priority float64
	TagIDs   []string

	// DueInDays sets the due date to now plus this many days. Zero
	// leaves the task without a due date.
	DueInDays int
}

// newTaskRequest is the POST body for /tasks/user.
type newTaskRequest struct {
	Text     string     `json:"text"`
	Type     string     `json:"type"`
	Notes    string     `json:"notes"`
	Date     *time.Time `json:"date,omitempty"`
	Priority float64    `json:"priority"`
	Tags     []string   `json:"tags"`
}

func newTaskRequestFrom(spec TaskSpec, now time.Time) newTaskRequest {
	req := newTaskRequest{
		Text:     spec.Name,
		Type:     TypeTodo,
		Notes:    spec.Notes,
		Priority: spec.Priority,
		Tags:     spec.TagIDs,
	}
	if req.Tags == nil {
		req.Tags = []string{}
	}
	if spec.DueInDays > 0 {
		due := now.AddDate(0, 0, spec.DueInDays)
		req.Date = &due
	}
	return req
}
