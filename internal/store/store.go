package store

import (
	"context"
	"errors"

	"github.com/nhle/todo-overs/internal/model"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a compare-and-swap finds a different
	// value than expected.
	ErrConflict = errors.New("conflict")
)

// TaskFilter narrows task queries. Results are always ordered by
// creation time, then id.
type TaskFilter struct {
	OwnerID *string
	Kind    *model.RecurrenceKind
	Limit   int
	Offset  int
}

// Store defines the persistence interface for users, their tags, and
// tracked tasks.
type Store interface {
	// === Users ===

	UpsertUser(ctx context.Context, user model.User) error
	GetUsers(ctx context.Context) ([]model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)

	// === Tags ===

	// ReconcileTags makes the stored tag set of ownerID equal to tags:
	// every given tag is upserted and every other tag of that owner is
	// deleted. It returns the number of deleted tags.
	ReconcileTags(ctx context.Context, ownerID string, tags []model.Tag) (int, error)
	GetTags(ctx context.Context, ownerID string) ([]model.Tag, error)

	// === Tracked tasks ===

	CreateTask(ctx context.Context, task model.TrackedTask) error
	GetTasks(ctx context.Context, filter TaskFilter) ([]model.TrackedTask, error)
	GetTaskByID(ctx context.Context, id string) (*model.TrackedTask, error)

	// ReplaceRemoteID swaps the task's remote id from oldRemoteID to
	// newRemoteID. It returns ErrConflict if the stored remote id is not
	// oldRemoteID, and ErrNotFound if the task does not exist.
	ReplaceRemoteID(ctx context.Context, id, oldRemoteID, newRemoteID string) error
	DeleteTask(ctx context.Context, id string) error

	Close() error
}
