package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nhle/todo-overs/internal/model"
)

// UpsertUser inserts a user or replaces its username and token.
func (s *SQLiteStore) UpsertUser(ctx context.Context, user model.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("invalid user: %w", err)
	}
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, api_token, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username = excluded.username,
			api_token = excluded.api_token,
			updated_at = excluded.updated_at`,
		user.ID, user.Username, user.APIToken, now, now,
	)
	if err != nil {
		return fmt.Errorf("upserting user %s: %w", user.ID, err)
	}
	return nil
}

// GetUsers returns every user ordered by id.
func (s *SQLiteStore) GetUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := s.db.SelectContext(ctx, &users,
		"SELECT id, username, api_token, created_at, updated_at FROM users ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	return users, nil
}

// GetUserByID returns one user or ErrNotFound.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := s.db.GetContext(ctx, &user,
		"SELECT id, username, api_token, created_at, updated_at FROM users WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying user %s: %w", id, err)
	}
	return &user, nil
}
