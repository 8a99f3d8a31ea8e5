package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nhle/todo-overs/internal/logger"
	"github.com/nhle/todo-overs/internal/model"
	"github.com/nhle/todo-overs/internal/store"
)

// Summary counts what one cycle did.
type Summary struct {
	Tasks         int
	Outcomes      map[Outcome]int
	TagRefreshes  int
	TagFailures   int
	MissingOwners int
	Duration      time.Duration
}

// Runner processes every tracked task once per invocation, strictly in
// order. A failure on one task or user never stops the cycle.
type Runner struct {
	store        store.Store
	orchestrator *Orchestrator
	log          *logger.Logger
}

// NewRunner creates a Runner.
func NewRunner(s store.Store, o *Orchestrator, log *logger.Logger) *Runner {
	if log == nil {
		log = logger.NewNop()
	}
	return &Runner{store: s, orchestrator: o, log: log.WithComponent("sync")}
}

// Name identifies the job to the scheduler.
func (r *Runner) Name() string { return "sync" }

// Run executes one cycle.
func (r *Runner) Run(ctx context.Context) error {
	_, err := r.RunOnce(ctx)
	return err
}

// RunOnce loads users and tasks, refreshes each owner's tags once, and
// processes every task. It returns an error only if the store could not
// be read or ctx was cancelled.
func (r *Runner) RunOnce(ctx context.Context) (Summary, error) {
	start := time.Now()
	summary := Summary{Outcomes: make(map[Outcome]int)}

	users, err := r.store.GetUsers(ctx)
	if err != nil {
		return summary, fmt.Errorf("loading users: %w", err)
	}
	byID := make(map[string]model.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	tasks, err := r.store.GetTasks(ctx, store.TaskFilter{})
	if err != nil {
		return summary, fmt.Errorf("loading tasks: %w", err)
	}

	refreshed := make(map[string]bool)
	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		user, ok := byID[task.OwnerID]
		if !ok {
			summary.MissingOwners++
			r.log.Warnw("Skipping task with unknown owner", "task_id", task.ID, "user_id", task.OwnerID)
			continue
		}

		if !refreshed[user.ID] {
			refreshed[user.ID] = true
			summary.TagRefreshes++
			if err := r.orchestrator.RefreshTags(ctx, user); err != nil {
				summary.TagFailures++
				r.log.WithUserID(user.ID).WithError(err).Warnw("Tag refresh failed")
			}
		}

		// The refresh may have unlinked tags deleted remotely.
		fresh, err := r.store.GetTaskByID(ctx, task.ID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			continue
		case err != nil:
			r.log.WithTaskID(task.ID, task.RemoteID).WithError(err).Warnw("Reloading task failed")
		default:
			task.TagIDs = fresh.TagIDs
		}

		summary.Tasks++
		outcome, err := r.orchestrator.ProcessTask(ctx, task, user)
		summary.Outcomes[outcome]++
		if err != nil {
			r.log.WithUserID(user.ID).WithTaskID(task.ID, task.RemoteID).WithError(err).
				Warnw("Task cycle failed", "outcome", string(outcome))
		}
	}

	summary.Duration = time.Since(start)
	r.log.Infow("Sync cycle finished",
		"tasks", summary.Tasks,
		"recreated", summary.Outcomes[OutcomeRecreated],
		"deleted", summary.Outcomes[OutcomeDeleted],
		"failed", summary.Outcomes[OutcomeFailed]+summary.Outcomes[OutcomeGaveUp],
		"duration", summary.Duration,
	)
	return summary, nil
}
