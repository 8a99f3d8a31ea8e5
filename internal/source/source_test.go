package source

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/todo-overs/internal/backoff"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want backoff.Outcome
	}{
		{"nil", nil, backoff.OutcomeSuccess},
		{"rate limited", fmt.Errorf("GET /tags: %w", ErrRateLimited), backoff.OutcomeRateLimited},
		{"transient", fmt.Errorf("%w: bad key", ErrTransient), backoff.OutcomeTransient},
		{"not found", fmt.Errorf("GET /tasks/x: %w", ErrNotFound), backoff.OutcomeNotFound},
		{"status", &StatusError{Code: 500}, backoff.OutcomeFailure},
		{"decode", &DecodeError{Path: "/tags", Err: errors.New("eof")}, backoff.OutcomeFailure},
		{"auth", &AuthError{UserID: "u"}, backoff.OutcomeFailure},
		{"context", context.DeadlineExceeded, backoff.OutcomeFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestIsAuthError(t *testing.T) {
	assert.True(t, IsAuthError(fmt.Errorf("wrapped: %w", &AuthError{UserID: "u"})))
	assert.False(t, IsAuthError(ErrNotFound))
}
