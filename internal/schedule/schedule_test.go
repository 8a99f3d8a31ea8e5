package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/todo-overs/internal/metrics"
)

// Sunday.
var base = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func TestParseClock(t *testing.T) {
	c, err := ParseClock("23:45")
	require.NoError(t, err)
	assert.Equal(t, Clock{Hour: 23, Minute: 45}, c)
	assert.Equal(t, "23:45", c.String())

	for _, bad := range []string{"", "24:00", "9pm", "12:60"} {
		_, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}
}

func TestTriggers(t *testing.T) {
	tests := []struct {
		name    string
		trigger Trigger
		from    time.Time
		want    time.Time
	}{
		{"every", Every(10 * time.Minute), base, base.Add(10 * time.Minute)},
		{"daily later today", Daily(Clock{23, 45}), base, time.Date(2024, 3, 10, 23, 45, 0, 0, time.UTC)},
		{"daily already passed", Daily(Clock{9, 0}), base, time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)},
		{"daily exactly now", Daily(Clock{12, 0}), base, time.Date(2024, 3, 11, 12, 0, 0, 0, time.UTC)},
		{"weekly same day later", Weekly(time.Sunday, Clock{23, 55}), base, time.Date(2024, 3, 10, 23, 55, 0, 0, time.UTC)},
		{"weekly same day passed", Weekly(time.Sunday, Clock{8, 0}), base, time.Date(2024, 3, 17, 8, 0, 0, 0, time.UTC)},
		{"weekly midweek", Weekly(time.Wednesday, Clock{8, 0}), base, time.Date(2024, 3, 13, 8, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.trigger.Next(tt.from))
		})
	}
}

func TestDailyTrigger_KeepsWallClockAcrossDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// Clocks spring forward on 2024-03-10.
	from := time.Date(2024, 3, 9, 23, 50, 0, 0, ny)
	next := Daily(Clock{23, 45}).Next(from)
	assert.Equal(t, time.Date(2024, 3, 10, 23, 45, 0, 0, ny), next)
}

type recordingJob struct {
	name  string
	err   error
	order *[]string
}

func (j recordingJob) Name() string { return j.name }

func (j recordingJob) Run(context.Context) error {
	*j.order = append(*j.order, j.name)
	return j.err
}

func TestRunPending(t *testing.T) {
	var order []string
	m := metrics.New()
	s := New(WithLocation(time.UTC), WithMetrics(m))
	s.Add(recordingJob{name: "sync", order: &order}, Every(10*time.Minute))
	s.Add(recordingJob{name: "daily", err: errors.New("boom"), order: &order}, Daily(Clock{12, 5}))

	ctx := context.Background()
	assert.Zero(t, s.RunPending(ctx, base), "first pass only schedules")
	assert.Zero(t, s.RunPending(ctx, base.Add(time.Minute)))

	assert.Equal(t, 1, s.RunPending(ctx, base.Add(5*time.Minute)))
	assert.Equal(t, []string{"daily"}, order)

	assert.Equal(t, 1, s.RunPending(ctx, base.Add(10*time.Minute)))
	assert.Equal(t, []string{"daily", "sync"}, order)

	// The failed daily job is not retried until tomorrow.
	assert.Zero(t, s.RunPending(ctx, base.Add(15*time.Minute)))
	n, err := testutil.GatherAndCount(m.Registry(), "todoovers_job_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRunPending_SimultaneousJobsRunInOrder(t *testing.T) {
	var order []string
	s := New(WithLocation(time.UTC))
	s.Add(recordingJob{name: "sync", order: &order}, Every(time.Hour))
	s.Add(Func("report", func(context.Context) error {
		order = append(order, "report")
		return nil
	}), Daily(Clock{13, 0}))

	ctx := context.Background()
	s.RunPending(ctx, base)
	assert.Equal(t, 2, s.RunPending(ctx, base.Add(time.Hour)))
	assert.Equal(t, []string{"sync", "report"}, order)
}

func TestRun_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ran := make(chan struct{}, 1)

	s := New(WithTick(time.Millisecond))
	s.Add(Func("tick", func(context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	}), Every(time.Millisecond))

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("job never ran")
	}
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
