package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/nhle/todo-overs/internal/model"
	"github.com/nhle/todo-overs/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// SeedUser stores a user whose token is the given bytes verbatim.
func SeedUser(t *testing.T, s store.Store, id string, token []byte) model.User {
	t.Helper()

	u := model.User{ID: id, Username: id, APIToken: token}
	if err := s.UpsertUser(context.Background(), u); err != nil {
		t.Fatalf("seeding user %s: %v", id, err)
	}
	return u
}

// SeedTask stores a tracked task with sensible defaults for unset fields.
func SeedTask(t *testing.T, s store.Store, task model.TrackedTask) model.TrackedTask {
	t.Helper()

	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if task.Name == "" {
		task.Name = "task " + task.RemoteID
	}
	if task.Priority == 0 {
		task.Priority = model.PriorityEasy
	}
	if task.Recurrence == nil {
		task.Recurrence = model.DayRecurrence{}
	}
	if err := s.CreateTask(context.Background(), task); err != nil {
		t.Fatalf("seeding task %s: %v", task.RemoteID, err)
	}
	return task
}
