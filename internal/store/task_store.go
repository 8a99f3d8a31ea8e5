package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/todo-overs/internal/model"
)

// taskRow is the flattened tasks row.
type taskRow struct {
	ID        string  `db:"id"`
	RemoteID  string  `db:"remote_id"`
	OwnerID   string  `db:"owner_id"`
	Name      string  `db:"name"`
	Notes     string  `db:"notes"`
	Priority  float64 `db:"priority"`
	DueInDays int     `db:"due_in_days"`
	model.RecurrenceColumns
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

const taskColumns = `id, remote_id, owner_id, name, notes, priority, due_in_days,
	recurrence_kind, delay_days, weekday, month_day, created_at, updated_at`

func (r taskRow) toModel(tagIDs []string) (model.TrackedTask, error) {
	rec, err := r.RecurrenceColumns.Decode()
	if err != nil {
		return model.TrackedTask{}, fmt.Errorf("task %s: %w", r.ID, err)
	}
	return model.TrackedTask{
		ID:         r.ID,
		RemoteID:   r.RemoteID,
		OwnerID:    r.OwnerID,
		Name:       r.Name,
		Notes:      r.Notes,
		Priority:   model.Priority(r.Priority),
		DueInDays:  r.DueInDays,
		Recurrence: rec,
		TagIDs:     tagIDs,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}, nil
}

// CreateTask inserts a tracked task and its tag references. An empty ID
// is assigned a new UUID.
func (s *SQLiteStore) CreateTask(ctx context.Context, task model.TrackedTask) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if err := task.Validate(); err != nil {
		return err
	}
	cols, err := model.EncodeRecurrence(task.Recurrence)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.RemoteID, task.OwnerID, task.Name, task.Notes,
		float64(task.Priority), task.DueInDays,
		cols.Kind, cols.DelayDays, cols.Weekday, cols.MonthDay,
		task.CreatedAt.UTC(), now,
	)
	if err != nil {
		return fmt.Errorf("creating task: %w", err)
	}

	for i, tagID := range task.TagIDs {
		_, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO task_tags (task_id, tag_id, position) VALUES (?, ?, ?)",
			task.ID, tagID, i,
		)
		if err != nil {
			return fmt.Errorf("linking tag %s to task %s: %w", tagID, task.ID, err)
		}
	}

	return tx.Commit()
}

// GetTasks retrieves tracked tasks matching the filter.
func (s *SQLiteStore) GetTasks(ctx context.Context, filter TaskFilter) ([]model.TrackedTask, error) {
	var conditions []string
	var args []interface{}

	if filter.OwnerID != nil {
		conditions = append(conditions, "owner_id = ?")
		args = append(args, *filter.OwnerID)
	}
	if filter.Kind != nil {
		conditions = append(conditions, "recurrence_kind = ?")
		args = append(args, string(*filter.Kind))
	}

	query := "SELECT " + taskColumns + " FROM tasks"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at, id"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}

	var rows []taskRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	tagIDs, err := s.tagIDsFor(ctx, ids)
	if err != nil {
		return nil, err
	}

	tasks := make([]model.TrackedTask, 0, len(rows))
	for _, r := range rows {
		t, err := r.toModel(tagIDs[r.ID])
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// GetTaskByID retrieves a single tracked task or ErrNotFound.
func (s *SQLiteStore) GetTaskByID(ctx context.Context, id string) (*model.TrackedTask, error) {
	var row taskRow
	err := s.db.GetContext(ctx, &row, "SELECT "+taskColumns+" FROM tasks WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying task %s: %w", id, err)
	}

	tagIDs, err := s.tagIDsFor(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	task, err := row.toModel(tagIDs[id])
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// ReplaceRemoteID moves a task to its newly created remote instance.
func (s *SQLiteStore) ReplaceRemoteID(ctx context.Context, id, oldRemoteID, newRemoteID string) error {
	if newRemoteID == "" {
		return fmt.Errorf("replacing remote id of task %s: empty id", id)
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE tasks SET remote_id = ?, updated_at = ? WHERE id = ? AND remote_id = ?",
		newRemoteID, time.Now().UTC(), id, oldRemoteID,
	)
	if err != nil {
		return fmt.Errorf("replacing remote id of task %s: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n > 0 {
		return nil
	}

	var count int
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM tasks WHERE id = ?", id); err != nil {
		return fmt.Errorf("checking task %s: %w", id, err)
	}
	if count == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return fmt.Errorf("task %s no longer has remote id %s: %w", id, oldRemoteID, ErrConflict)
}

// DeleteTask removes a tracked task. CASCADE on task_tags removes its
// tag references.
func (s *SQLiteStore) DeleteTask(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting task %s: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) tagIDsFor(ctx context.Context, taskIDs []string) (map[string][]string, error) {
	query, args, err := sqlx.In(
		"SELECT task_id, tag_id FROM task_tags WHERE task_id IN (?) ORDER BY task_id, position",
		taskIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("building tag query: %w", err)
	}

	var links []struct {
		TaskID string `db:"task_id"`
		TagID  string `db:"tag_id"`
	}
	if err := s.db.SelectContext(ctx, &links, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("querying task tags: %w", err)
	}

	out := make(map[string][]string, len(taskIDs))
	for _, l := range links {
		out[l.TaskID] = append(out[l.TaskID], l.TagID)
	}
	return out, nil
}
