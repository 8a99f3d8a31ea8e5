// Package backoff implements bounded linear backoff as an explicit state
// machine. Policy.Next decides; the caller (or Retrier) sleeps.
package backoff

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Outcome classifies the result of one remote attempt.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeRateLimited
	OutcomeTransient
	OutcomeNotFound
	OutcomeFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeTransient:
		return "transient"
	case OutcomeNotFound:
		return "not_found"
	default:
		return "failure"
	}
}

// Retryable reports whether the outcome should escalate the backoff.
// Transient faults are treated exactly like rate limiting.
func (o Outcome) Retryable() bool {
	return o == OutcomeRateLimited || o == OutcomeTransient
}

// Action is what the caller should do after an attempt.
type Action int

const (
	// Proceed means the attempt settled (success or terminal failure).
	Proceed Action = iota
	// Retry means sleep for Decision.Delay and try again.
	Retry
	// GiveUp means the accumulated delay exceeded the ceiling.
	GiveUp
)

func (a Action) String() string {
	switch a {
	case Proceed:
		return "proceed"
	case Retry:
		return "retry"
	default:
		return "give_up"
	}
}

// Decision is the result of feeding one outcome into the policy.
type Decision struct {
	Action Action
	Delay  time.Duration
}

// State is the accumulated delay of one retry loop. The zero value is
// the initial state. It is a value; never share one between loops.
type State struct {
	Delay time.Duration
}

// Policy holds the backoff parameters.
type Policy struct {
	Step    time.Duration
	Ceiling time.Duration
}

// DefaultPolicy escalates by 90s and gives up past 500s.
func DefaultPolicy() Policy {
	return Policy{Step: 90 * time.Second, Ceiling: 500 * time.Second}
}

// Next returns the state after outcome o and what to do about it.
// Retryable outcomes add Step to the accumulated delay; once that exceeds
// Ceiling the loop gives up. Any settled outcome or a give-up resets the
// state to zero.
func (p Policy) Next(s State, o Outcome) (State, Decision) {
	if !o.Retryable() {
		return State{}, Decision{Action: Proceed}
	}
	delay := s.Delay + p.Step
	if delay > p.Ceiling {
		return State{}, Decision{Action: GiveUp}
	}
	return State{Delay: delay}, Decision{Action: Retry, Delay: delay}
}

// ErrGaveUp wraps the last error of a loop that hit the ceiling.
var ErrGaveUp = errors.New("backoff ceiling exceeded")

// Sleeper suspends for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the default Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Retrier runs an operation under a Policy. Each call to Do starts from
// a fresh State, so one Retrier may be reused for sequential loops.
type Retrier struct {
	Policy   Policy
	Sleep    Sleeper
	Classify func(error) Outcome

	// Observe, if set, is called after every attempt.
	Observe func(outcome Outcome, d Decision, err error)
}

// Do calls op until it settles or the policy gives up. It returns op's
// last error, wrapped with ErrGaveUp on give-up.
func (r Retrier) Do(ctx context.Context, op func(context.Context) error) error {
	sleep := r.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	var state State
	for {
		err := op(ctx)
		outcome := r.Classify(err)

		var d Decision
		state, d = r.Policy.Next(state, outcome)
		if r.Observe != nil {
			r.Observe(outcome, d, err)
		}

		switch d.Action {
		case Proceed:
			return err
		case GiveUp:
			return fmt.Errorf("%w: %w", ErrGaveUp, err)
		}

		if err := sleep(ctx, d.Delay); err != nil {
			return err
		}
	}
}
