package model

import "time"

// Tag mirrors a Habitica tag. ID is the remote UUID and is used as the
// key everywhere; there is no local surrogate.
type Tag struct {
	ID        string    `json:"id" db:"id"`
	OwnerID   string    `json:"owner_id" db:"owner_id"`
	Name      string    `json:"name" db:"name"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
