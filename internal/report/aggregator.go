// Package report builds daily activity snapshots and the weekly roll-up
// mailed to the account owner.
package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nhle/todo-overs/internal/backoff"
	"github.com/nhle/todo-overs/internal/logger"
	"github.com/nhle/todo-overs/internal/mail"
	"github.com/nhle/todo-overs/internal/model"
	"github.com/nhle/todo-overs/internal/source"
	"github.com/nhle/todo-overs/internal/source/habitica"
)

// Remote is the subset of the Habitica client used for reports.
type Remote interface {
	FetchCompletedTodos(ctx context.Context, cred model.Credential, day time.Time) ([]habitica.Task, error)
	FetchHabitsOn(ctx context.Context, cred model.Credential, day time.Time) ([]habitica.Task, error)
	FetchDailiesCompletedOn(ctx context.Context, cred model.Credential, day time.Time) ([]habitica.Task, error)
}

// Users lists the accounts to report on.
type Users interface {
	GetUsers(ctx context.Context) ([]model.User, error)
}

// Aggregator produces the daily snapshots and weekly summaries.
type Aggregator struct {
	users     Users
	remote    Remote
	snapshots SnapshotStore
	sender    mail.Sender
	from, to  string
	policy    backoff.Policy
	sleep     backoff.Sleeper
	now       func() time.Time
	loc       *time.Location
	log       *logger.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithMailer sets where weekly reports are sent.
func WithMailer(s mail.Sender, from, to string) Option {
	return func(a *Aggregator) {
		a.sender = s
		a.from = from
		a.to = to
	}
}

// WithBackoff sets the retry policy and sleeper for remote calls.
func WithBackoff(p backoff.Policy, s backoff.Sleeper) Option {
	return func(a *Aggregator) {
		a.policy = p
		if s != nil {
			a.sleep = s
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// WithLocation sets the reporting timezone.
func WithLocation(loc *time.Location) Option {
	return func(a *Aggregator) { a.loc = loc }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(a *Aggregator) { a.log = l }
}

// NewAggregator creates an Aggregator writing snapshots to snapshots.Dir.
func NewAggregator(users Users, remote Remote, snapshots SnapshotStore, opts ...Option) *Aggregator {
	a := &Aggregator{
		users:     users,
		remote:    remote,
		snapshots: snapshots,
		policy:    backoff.DefaultPolicy(),
		sleep:     backoff.Sleep,
		now:       time.Now,
		loc:       time.Local,
		log:       logger.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = a.log.WithComponent("report")
	return a
}

// Daily writes today's snapshot for every user and returns how many were
// written. A user whose activity cannot be fetched is skipped; an
// existing snapshot is left alone.
func (a *Aggregator) Daily(ctx context.Context) (int, error) {
	users, err := a.users.GetUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading users: %w", err)
	}

	day := a.now().In(a.loc)
	written := 0
	for _, user := range users {
		log := a.log.WithUserID(user.ID)

		snap, err := a.collect(ctx, user, day)
		if err != nil {
			log.WithError(err).Warnw("Skipping daily snapshot")
			continue
		}

		path, err := a.snapshots.Write(day, snap)
		switch {
		case errors.Is(err, ErrSnapshotExists):
			log.Infow("Daily snapshot already exists", "path", path)
		case err != nil:
			log.WithError(err).Errorw("Writing daily snapshot failed")
		default:
			written++
			log.Infow("Wrote daily snapshot", "path", path,
				"todos", len(snap.Todos), "habits", len(snap.Habits), "dailys", len(snap.Dailys))
		}
	}
	return written, nil
}

func (a *Aggregator) collect(ctx context.Context, user model.User, day time.Time) (Snapshot, error) {
	cred := user.Credential()

	todos, err := fetch(ctx, a, "fetch_todos", func(ctx context.Context) ([]habitica.Task, error) {
		return a.remote.FetchCompletedTodos(ctx, cred, day)
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("fetching completed todos: %w", err)
	}
	habits, err := fetch(ctx, a, "fetch_habits", func(ctx context.Context) ([]habitica.Task, error) {
		return a.remote.FetchHabitsOn(ctx, cred, day)
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("fetching habits: %w", err)
	}
	dailies, err := fetch(ctx, a, "fetch_dailys", func(ctx context.Context) ([]habitica.Task, error) {
		return a.remote.FetchDailiesCompletedOn(ctx, cred, day)
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("fetching dailies: %w", err)
	}

	return BuildSnapshot(day, user.ID, todos, habits, dailies), nil
}

func fetch[T any](ctx context.Context, a *Aggregator, operation string, op func(context.Context) (T, error)) (T, error) {
	var out T
	r := backoff.Retrier{
		Policy:   a.policy,
		Sleep:    a.sleep,
		Classify: source.Classify,
		Observe: func(o backoff.Outcome, d backoff.Decision, _ error) {
			if d.Action == backoff.Retry {
				a.log.Warnw("Backing off", "operation", operation, "outcome", o.String(), "delay", d.Delay)
			}
		},
	}
	err := r.Do(ctx, func(ctx context.Context) error {
		var err error
		out, err = op(ctx)
		return err
	})
	return out, err
}

// BuildSnapshot converts fetched tasks into a snapshot. Habits are
// listed once per name.
func BuildSnapshot(day time.Time, userID string, todos, habits, dailies []habitica.Task) Snapshot {
	snap := Snapshot{
		Date:   day.Format(dateLayout),
		UserID: userID,
		Habits: []HabitEntry{},
		Dailys: []DailyEntry{},
		Todos:  []TodoEntry{},
	}

	seen := make(map[string]bool)
	for _, h := range habits {
		if seen[h.Text] {
			continue
		}
		seen[h.Text] = true
		snap.Habits = append(snap.Habits, HabitEntry{
			Name:        h.Text,
			Frequency:   h.Frequency,
			Notes:       h.Notes,
			CounterUp:   h.CounterUp,
			CounterDown: h.CounterDown,
		})
	}

	for _, d := range dailies {
		snap.Dailys = append(snap.Dailys, DailyEntry{
			Name:      d.Text,
			Frequency: d.Frequency,
			Notes:     d.Notes,
			EveryX:    d.EveryX,
			Streak:    d.Streak,
		})
	}

	for _, t := range todos {
		entry := TodoEntry{ID: t.ID, Name: t.Text, Notes: t.Notes}
		if t.DateCompleted != nil {
			entry.CompletedAt = *t.DateCompleted
		}
		snap.Todos = append(snap.Todos, entry)
	}

	return snap
}

// WeekDays returns the seven calendar days ending on end's day, oldest
// first.
func WeekDays(end time.Time) []time.Time {
	days := make([]time.Time, 7)
	for i := range days {
		days[i] = end.AddDate(0, 0, i-6)
	}
	return days
}

// Weekly merges the last seven snapshots of every user and mails the
// summary with the snapshot files attached. Users without snapshots are
// skipped. Per-user failures are logged and returned together.
func (a *Aggregator) Weekly(ctx context.Context) error {
	if a.sender == nil {
		return errors.New("weekly report: no mailer configured")
	}

	users, err := a.users.GetUsers(ctx)
	if err != nil {
		return fmt.Errorf("loading users: %w", err)
	}

	now := a.now().In(a.loc)
	days := WeekDays(now)

	var errs []error
	for _, user := range users {
		log := a.log.WithUserID(user.ID)

		snaps, paths, err := a.snapshots.LoadRange(days, user.ID)
		if err != nil {
			log.WithError(err).Warnw("Skipping unreadable snapshots")
		}
		if len(snaps) == 0 {
			log.Infow("No snapshots this week; skipping")
			continue
		}

		name := user.Username
		if name == "" {
			name = user.ID
		}
		html, err := RenderHTML(name, days[0], days[len(days)-1], Merge(snaps))
		if err != nil {
			errs = append(errs, err)
			continue
		}

		attachments, err := fileAttachments(paths)
		if err != nil {
			log.WithError(err).Errorw("Attaching snapshots failed")
			errs = append(errs, err)
			continue
		}

		err = a.sender.Send(ctx, mail.Message{
			From:        a.from,
			To:          a.to,
			Subject:     Subject(now),
			HTML:        html,
			Attachments: attachments,
			Date:        now,
		})
		if err != nil {
			log.WithError(err).Errorw("Sending weekly report failed")
			errs = append(errs, fmt.Errorf("sending report for %s: %w", user.ID, err))
			continue
		}
		log.Infow("Sent weekly report", "snapshots", len(snaps))
	}

	return errors.Join(errs...)
}

func fileAttachments(paths []string) ([]mail.Attachment, error) {
	out := make([]mail.Attachment, 0, len(paths))
	for _, p := range paths {
		att, err := mail.FileAttachment(p)
		if err != nil {
			return nil, err
		}
		out = append(out, att)
	}
	return out, nil
}
