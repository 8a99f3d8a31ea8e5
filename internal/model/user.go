package model

import (
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// User is a Habitica account whose tasks are tracked. APIToken holds
// ciphertext; the plaintext token never leaves the remote client.
type User struct {
	ID        string    `db:"id" validate:"required"`
	Username  string    `db:"username"`
	APIToken  []byte    `db:"api_token" validate:"required"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Credential is what the remote client needs to authenticate a call.
type Credential struct {
	UserID         string
	EncryptedToken []byte
}

// Credential returns the user's remote credential.
func (u User) Credential() Credential {
	return Credential{UserID: u.ID, EncryptedToken: u.APIToken}
}

// Validate checks required fields.
func (u User) Validate() error {
	return validate.Struct(u)
}
