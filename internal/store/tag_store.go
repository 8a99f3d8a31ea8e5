package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nhle/todo-overs/internal/model"
)

// ReconcileTags upserts tags for ownerID and deletes the owner's tags
// that are not among them, in one transaction. Links from the owner's
// tasks to deleted tags are dropped too. An empty tags slice deletes all
// of the owner's tags.
func (s *SQLiteStore) ReconcileTags(
	ctx context.Context,
	ownerID string,
	tags []model.Tag,
) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	ids := make([]string, 0, len(tags))

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO tags (id, owner_id, name, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(owner_id, id) DO UPDATE SET
			name = excluded.name,
			updated_at = excluded.updated_at`)
	if err != nil {
		return 0, fmt.Errorf("preparing tag upsert: %w", err)
	}
	defer stmt.Close()

	for _, t := range tags {
		if t.ID == "" {
			return 0, fmt.Errorf("tag %q has no id", t.Name)
		}
		if _, err := stmt.ExecContext(ctx, t.ID, ownerID, t.Name, now); err != nil {
			return 0, fmt.Errorf("upserting tag %s: %w", t.ID, err)
		}
		ids = append(ids, t.ID)
	}

	linkQuery := "DELETE FROM task_tags WHERE task_id IN (SELECT id FROM tasks WHERE owner_id = ?)"
	linkArgs := []interface{}{ownerID}
	query, args := "DELETE FROM tags WHERE owner_id = ?", []interface{}{ownerID}
	if len(ids) > 0 {
		linkQuery, linkArgs, err = sqlx.In(linkQuery+" AND tag_id NOT IN (?)", ownerID, ids)
		if err != nil {
			return 0, fmt.Errorf("building task tag delete: %w", err)
		}
		query, args, err = sqlx.In("DELETE FROM tags WHERE owner_id = ? AND id NOT IN (?)", ownerID, ids)
		if err != nil {
			return 0, fmt.Errorf("building tag delete: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind(linkQuery), linkArgs...); err != nil {
		return 0, fmt.Errorf("unlinking stale tags for %s: %w", ownerID, err)
	}

	result, err := tx.ExecContext(ctx, tx.Rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("deleting stale tags for %s: %w", ownerID, err)
	}
	removed, _ := result.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing tags for %s: %w", ownerID, err)
	}
	return int(removed), nil
}

// GetTags returns the owner's tags ordered by name.
func (s *SQLiteStore) GetTags(ctx context.Context, ownerID string) ([]model.Tag, error) {
	var tags []model.Tag
	err := s.db.SelectContext(ctx, &tags,
		"SELECT id, owner_id, name, updated_at FROM tags WHERE owner_id = ? ORDER BY name, id",
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("querying tags for %s: %w", ownerID, err)
	}
	return tags, nil
}
