package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nhle/todo-overs/internal/model"
	"github.com/nhle/todo-overs/internal/schedule"
)

// NewRunCommand creates the long-running scheduler command.
func NewRunCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the sync and report jobs on their schedule",
		Long: "Run the task sync on a fixed interval, write the daily snapshot once a day " +
			"and mail the weekly report once a week until interrupted.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runScheduler(ctx, a)
		},
	}
}

func runScheduler(ctx context.Context, a *app) error {
	sc := a.cfg.Schedule

	dailyAt, err := schedule.ParseClock(sc.DailyAt)
	if err != nil {
		return fmt.Errorf("schedule.daily_at: %w", err)
	}
	weeklyAt, err := schedule.ParseClock(sc.WeeklyAt)
	if err != nil {
		return fmt.Errorf("schedule.weekly_at: %w", err)
	}
	weeklyDay, err := model.ParseWeekday(sc.WeeklyDay)
	if err != nil {
		return fmt.Errorf("schedule.weekly_day: %w", err)
	}

	daily, err := a.aggregator(false)
	if err != nil {
		return err
	}
	weekly, err := a.aggregator(true)
	if err != nil {
		a.log.WithError(err).Warnw("Weekly report mail is not configured; the job will fail until it is")
		weekly = daily
	}

	s := schedule.New(
		schedule.WithTick(sc.Tick),
		schedule.WithLocation(a.loc),
		schedule.WithLogger(a.log),
		schedule.WithMetrics(a.metrics),
	)
	s.Add(a.runner(), schedule.Every(sc.SyncInterval))
	s.Add(schedule.Func("daily_report", func(ctx context.Context) error {
		_, err := daily.Daily(ctx)
		return err
	}), schedule.Daily(dailyAt))
	s.Add(schedule.Func("weekly_report", weekly.Weekly), schedule.Weekly(weeklyDay, weeklyAt))

	if addr := a.cfg.Metrics.Addr; addr != "" {
		go func() {
			a.log.Infow("Serving metrics", "addr", addr)
			if err := a.metrics.Serve(ctx, addr); err != nil {
				a.log.WithError(err).Errorw("Metrics server failed")
			}
		}()
	}

	a.log.Infow("Starting scheduler", "timezone", a.loc.String())
	return s.Run(ctx)
}
