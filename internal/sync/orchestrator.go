// Package sync drives the recurring-task cycle: it fetches each tracked
// task from Habitica, decides whether to recreate it, and keeps the
// local tag mirror reconciled.
package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nhle/todo-overs/internal/backoff"
	"github.com/nhle/todo-overs/internal/credential"
	"github.com/nhle/todo-overs/internal/logger"
	"github.com/nhle/todo-overs/internal/metrics"
	"github.com/nhle/todo-overs/internal/model"
	"github.com/nhle/todo-overs/internal/recurrence"
	"github.com/nhle/todo-overs/internal/source"
	"github.com/nhle/todo-overs/internal/source/habitica"
	"github.com/nhle/todo-overs/internal/store"
)

// Remote is the subset of the Habitica client used by the sync loop.
type Remote interface {
	FetchTask(ctx context.Context, cred model.Credential, taskID string) (*habitica.Task, error)
	FetchTags(ctx context.Context, cred model.Credential) ([]habitica.Tag, error)
	CreateTask(ctx context.Context, cred model.Credential, spec habitica.TaskSpec) (*habitica.Task, error)
}

// Outcome is the result of processing one task in one cycle.
type Outcome string

const (
	OutcomeRecreated Outcome = "recreated"
	OutcomeDeleted   Outcome = "deleted"
	OutcomeWaiting   Outcome = "waiting"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeGaveUp    Outcome = "gave_up"
	OutcomeFailed    Outcome = "failed"
)

// Orchestrator runs the per-task state machine. It holds no per-task
// state between calls; every retry loop starts from a zero backoff.
type Orchestrator struct {
	store   store.Store
	remote  Remote
	policy  backoff.Policy
	sleep   backoff.Sleeper
	now     func() time.Time
	loc     *time.Location
	log     *logger.Logger
	metrics *metrics.Metrics
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPolicy overrides the default backoff policy.
func WithPolicy(p backoff.Policy) Option {
	return func(o *Orchestrator) { o.policy = p }
}

// WithSleeper overrides how backoff delays are waited out.
func WithSleeper(s backoff.Sleeper) Option {
	return func(o *Orchestrator) { o.sleep = s }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithLocation sets the calendar used for recurrence decisions.
func WithLocation(loc *time.Location) Option {
	return func(o *Orchestrator) { o.loc = loc }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// WithMetrics records outcomes and backoff activity.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(s store.Store, remote Remote, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:  s,
		remote: remote,
		policy: backoff.DefaultPolicy(),
		sleep:  backoff.Sleep,
		now:    time.Now,
		loc:    time.Local,
		log:    logger.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ProcessTask runs one cycle for task:
//
//	fetch -> not found: delete locally
//	      -> completed and due: create a new instance, swap the remote id
//	      -> otherwise: nothing
//
// Rate limits and transient faults are retried under the backoff
// policy; the creation call is retried on its own without refetching.
// A failure leaves the stored remote id untouched.
func (o *Orchestrator) ProcessTask(ctx context.Context, task model.TrackedTask, user model.User) (Outcome, error) {
	log := o.log.WithUserID(user.ID).WithTaskID(task.ID, task.RemoteID)
	cred := user.Credential()

	var remote *habitica.Task
	err := o.retrier("fetch_task", log).Do(ctx, func(ctx context.Context) error {
		var err error
		remote, err = o.remote.FetchTask(ctx, cred, task.RemoteID)
		return err
	})
	switch {
	case errors.Is(err, source.ErrNotFound):
		if err := o.store.DeleteTask(ctx, task.ID); err != nil {
			return o.outcome(OutcomeFailed), fmt.Errorf("deleting vanished task %s: %w", task.ID, err)
		}
		log.Infow("Remote task is gone; deleted local record", "name", task.Name)
		return o.outcome(OutcomeDeleted), nil
	case err != nil:
		return o.failure(err), fmt.Errorf("fetching task %s: %w", task.RemoteID, err)
	}

	now := o.now().In(o.loc)
	state := recurrence.RemoteState{Completed: remote.Completed, CompletedAt: remote.DateCompleted}
	decision := recurrence.Decide(task.Recurrence, state, now)
	log.Debugw("Evaluated recurrence", "kind", task.Recurrence.Kind(), "decision", decision.String())

	switch decision {
	case recurrence.Wait:
		return o.outcome(OutcomeWaiting), nil
	case recurrence.NoAction:
		return o.outcome(OutcomeUnchanged), nil
	}

	spec := habitica.TaskSpec{
		Name:      task.Name,
		Notes:     task.Notes,
		Priority:  float64(task.Priority),
		TagIDs:    task.TagIDs,
		DueInDays: task.DueInDays,
	}

	var created *habitica.Task
	err = o.retrier("create_task", log).Do(ctx, func(ctx context.Context) error {
		var err error
		created, err = o.remote.CreateTask(ctx, cred, spec)
		return err
	})
	if err != nil {
		return o.failure(err), fmt.Errorf("recreating task %s: %w", task.ID, err)
	}
	if created.ID == "" {
		return o.outcome(OutcomeFailed), fmt.Errorf("recreating task %s: remote returned no id", task.ID)
	}

	if err := o.store.ReplaceRemoteID(ctx, task.ID, task.RemoteID, created.ID); err != nil {
		log.Errorw("Created remote task but could not record it", "new_remote_id", created.ID, "error", err)
		return o.outcome(OutcomeFailed), fmt.Errorf("recording new remote id for task %s: %w", task.ID, err)
	}

	log.Infow("Recreated task", "name", task.Name, "new_remote_id", created.ID)
	return o.outcome(OutcomeRecreated), nil
}

// RefreshTags mirrors the user's remote tags into the store: fetched
// tags are upserted and all others deleted.
func (o *Orchestrator) RefreshTags(ctx context.Context, user model.User) error {
	log := o.log.WithUserID(user.ID)
	cred := user.Credential()

	var remote []habitica.Tag
	err := o.retrier("fetch_tags", log).Do(ctx, func(ctx context.Context) error {
		var err error
		remote, err = o.remote.FetchTags(ctx, cred)
		return err
	})
	if err != nil {
		return fmt.Errorf("fetching tags for %s: %w", user.ID, err)
	}

	tags := make([]model.Tag, len(remote))
	for i, t := range remote {
		tags[i] = model.Tag{ID: t.ID, OwnerID: user.ID, Name: t.Name}
	}

	removed, err := o.store.ReconcileTags(ctx, user.ID, tags)
	if err != nil {
		return fmt.Errorf("reconciling tags for %s: %w", user.ID, err)
	}
	log.Debugw("Refreshed tags", "count", len(tags), "removed", removed)
	return nil
}

func (o *Orchestrator) retrier(operation string, log *logger.Logger) backoff.Retrier {
	return backoff.Retrier{
		Policy:   o.policy,
		Sleep:    o.sleep,
		Classify: source.Classify,
		Observe: func(outcome backoff.Outcome, d backoff.Decision, err error) {
			if errors.Is(err, credential.ErrDecrypt) {
				o.metrics.DecryptError()
				log.Errorw("Stored API token could not be decrypted", "operation", operation, "error", err)
			}
			switch d.Action {
			case backoff.Retry:
				o.metrics.BackoffSleep(operation, outcome.String())
				log.Warnw("Backing off", "operation", operation, "outcome", outcome.String(), "delay", d.Delay)
			case backoff.GiveUp:
				o.metrics.BackoffGiveUp(operation)
				log.Warnw("Backoff ceiling exceeded; deferring to next cycle", "operation", operation)
			}
		},
	}
}

func (o *Orchestrator) outcome(out Outcome) Outcome {
	o.metrics.TaskOutcome(string(out))
	return out
}

func (o *Orchestrator) failure(err error) Outcome {
	if errors.Is(err, backoff.ErrGaveUp) {
		return o.outcome(OutcomeGaveUp)
	}
	return o.outcome(OutcomeFailed)
}
