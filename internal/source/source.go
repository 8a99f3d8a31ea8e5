// Package source defines the error taxonomy shared by remote clients and
// maps it onto backoff outcomes.
package source

import (
	"errors"
	"fmt"

	"github.com/nhle/todo-overs/internal/backoff"
)

var (
	// ErrRateLimited is returned when the remote answers 429.
	ErrRateLimited = errors.New("rate limited")

	// ErrNotFound is returned when the remote object no longer exists.
	ErrNotFound = errors.New("remote object not found")

	// ErrTransient marks local faults that should be retried like rate
	// limiting, such as a credential that could not be decrypted.
	ErrTransient = errors.New("transient fault")
)

// StatusError is an unclassified non-2xx response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d on %s %s: %s", e.Code, e.Method, e.Path, e.Body)
}

// DecodeError indicates a response body that did not match the expected
// schema. It is terminal.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding response from %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// AuthError indicates that the remote rejected the credential (401).
type AuthError struct {
	UserID  string
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (user %s): %s", e.UserID, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// Classify maps an error returned by a remote client to a backoff outcome.
func Classify(err error) backoff.Outcome {
	switch {
	case err == nil:
		return backoff.OutcomeSuccess
	case errors.Is(err, ErrRateLimited):
		return backoff.OutcomeRateLimited
	case errors.Is(err, ErrTransient):
		return backoff.OutcomeTransient
	case errors.Is(err, ErrNotFound):
		return backoff.OutcomeNotFound
	default:
		return backoff.OutcomeFailure
	}
}
