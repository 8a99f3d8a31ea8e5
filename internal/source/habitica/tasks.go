package habitica

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/nhle/todo-overs/internal/model"
)

// FetchTask returns the task with the given id.
func (c *Client) FetchTask(ctx context.Context, cred model.Credential, taskID string) (*Task, error) {
	task, err := do[Task](ctx, c, cred, request{
		method:   http.MethodGet,
		path:     "/tasks/" + url.PathEscape(taskID),
		endpoint: "/tasks/{id}",
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// FetchTags returns every tag of the user.
func (c *Client) FetchTags(ctx context.Context, cred model.Credential) ([]Tag, error) {
	return do[[]Tag](ctx, c, cred, request{
		method:   http.MethodGet,
		path:     "/tags",
		endpoint: "/tags",
	})
}

// CreateTask creates a to-do and returns it with its new id.
func (c *Client) CreateTask(ctx context.Context, cred model.Credential, spec TaskSpec) (*Task, error) {
	task, err := do[Task](ctx, c, cred, request{
		method:   http.MethodPost,
		path:     "/tasks/user",
		endpoint: "/tasks/user",
		body:     newTaskRequestFrom(spec, c.now()),
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// ValidateUser confirms the credential and returns the account profile.
func (c *Client) ValidateUser(ctx context.Context, cred model.Credential) (*UserProfile, error) {
	profile, err := do[UserProfile](ctx, c, cred, request{
		method:   http.MethodGet,
		path:     "/user?userFields=auth.local.username",
		endpoint: "/user",
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (c *Client) fetchUserTasks(ctx context.Context, cred model.Credential, kind string) ([]Task, error) {
	return do[[]Task](ctx, c, cred, request{
		method:   http.MethodGet,
		path:     "/tasks/user?type=" + kind,
		endpoint: "/tasks/user?type=" + kind,
	})
}

// FetchCompletedTodos returns the to-dos completed on the calendar day
// of day, in day's location.
func (c *Client) FetchCompletedTodos(ctx context.Context, cred model.Credential, day time.Time) ([]Task, error) {
	tasks, err := c.fetchUserTasks(ctx, cred, "completedTodos")
	if err != nil {
		return nil, err
	}

	var out []Task
	for _, t := range tasks {
		if t.Type != TypeTodo || t.DateCompleted == nil {
			continue
		}
		if sameDay(*t.DateCompleted, day) {
			out = append(out, t)
		}
	}
	return out, nil
}

// FetchHabitsOn returns the habits scored on the calendar day of day.
// Each habit appears once; its History is narrowed to that day.
func (c *Client) FetchHabitsOn(ctx context.Context, cred model.Credential, day time.Time) ([]Task, error) {
	tasks, err := c.fetchUserTasks(ctx, cred, "habits")
	if err != nil {
		return nil, err
	}

	var out []Task
	for _, t := range tasks {
		entries := historyOn(t.History, day, func(HistoryEntry) bool { return true })
		if len(entries) == 0 {
			continue
		}
		t.History = entries
		out = append(out, t)
	}
	return out, nil
}

// FetchDailiesCompletedOn returns the dailies that were due and
// completed on the calendar day of day. Dailies sharing a name are
// reported once.
func (c *Client) FetchDailiesCompletedOn(ctx context.Context, cred model.Credential, day time.Time) ([]Task, error) {
	tasks, err := c.fetchUserTasks(ctx, cred, "dailys")
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var out []Task
	for _, t := range tasks {
		if seen[t.Text] {
			continue
		}
		entries := historyOn(t.History, day, func(h HistoryEntry) bool {
			return h.IsDue && h.Completed
		})
		if len(entries) == 0 {
			continue
		}
		seen[t.Text] = true
		t.History = entries
		out = append(out, t)
	}
	return out, nil
}

func historyOn(history []HistoryEntry, day time.Time, keep func(HistoryEntry) bool) []HistoryEntry {
	var out []HistoryEntry
	for _, h := range history {
		if sameDay(h.Date.Time, day) && keep(h) {
			out = append(out, h)
		}
	}
	return out
}

// sameDay compares calendar dates in day's location.
func sameDay(t, day time.Time) bool {
	ty, tm, td := t.In(day.Location()).Date()
	dy, dm, dd := day.Date()
	return ty == dy && tm == dm && td == dd
}
