// Package metrics exposes Prometheus collectors for the sync engine.
// All methods are safe on a nil *Metrics, which records nothing.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors and their registry.
type Metrics struct {
	registry *prometheus.Registry

	remoteRequests *prometheus.CounterVec
	remoteDuration *prometheus.HistogramVec
	backoffSleeps  *prometheus.CounterVec
	backoffGiveUps *prometheus.CounterVec
	taskOutcomes   *prometheus.CounterVec
	decryptErrors  prometheus.Counter
	jobRuns        *prometheus.CounterVec
	jobDuration    *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		remoteRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "todoovers_remote_requests_total",
				Help: "Total requests sent to Habitica",
			},
			[]string{"method", "endpoint", "status"},
		),
		remoteDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "todoovers_remote_request_duration_seconds",
				Help:    "Habitica request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		backoffSleeps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "todoovers_backoff_sleeps_total",
				Help: "Backoff suspensions by outcome that caused them",
			},
			[]string{"operation", "outcome"},
		),
		backoffGiveUps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "todoovers_backoff_give_ups_total",
				Help: "Retry loops that exceeded the backoff ceiling",
			},
			[]string{"operation"},
		),
		taskOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "todoovers_task_outcomes_total",
				Help: "Per-task results of a sync cycle",
			},
			[]string{"outcome"},
		),
		decryptErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "todoovers_credential_decrypt_errors_total",
				Help: "Stored API tokens that failed to decrypt",
			},
		),
		jobRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "todoovers_job_runs_total",
				Help: "Scheduled job executions",
			},
			[]string{"job", "result"},
		),
		jobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "todoovers_job_duration_seconds",
				Help:    "Scheduled job wall time",
				Buckets: []float64{0.1, 1, 10, 60, 300, 900, 1800},
			},
			[]string{"job"},
		),
	}

	registry.MustRegister(
		m.remoteRequests, m.remoteDuration,
		m.backoffSleeps, m.backoffGiveUps,
		m.taskOutcomes, m.decryptErrors,
		m.jobRuns, m.jobDuration,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRemote records one HTTP exchange. status is 0 when no response
// was received.
func (m *Metrics) ObserveRemote(method, endpoint string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.remoteRequests.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	m.remoteDuration.WithLabelValues(method, endpoint).Observe(d.Seconds())
}

// BackoffSleep counts one suspension.
func (m *Metrics) BackoffSleep(operation, outcome string) {
	if m == nil {
		return
	}
	m.backoffSleeps.WithLabelValues(operation, outcome).Inc()
}

// BackoffGiveUp counts one abandoned retry loop.
func (m *Metrics) BackoffGiveUp(operation string) {
	if m == nil {
		return
	}
	m.backoffGiveUps.WithLabelValues(operation).Inc()
}

// TaskOutcome counts one processed task.
func (m *Metrics) TaskOutcome(outcome string) {
	if m == nil {
		return
	}
	m.taskOutcomes.WithLabelValues(outcome).Inc()
}

// DecryptError counts one credential decryption failure.
func (m *Metrics) DecryptError() {
	if m == nil {
		return
	}
	m.decryptErrors.Inc()
}

// JobRun records one scheduled job execution.
func (m *Metrics) JobRun(job string, d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.jobRuns.WithLabelValues(job, result).Inc()
	m.jobDuration.WithLabelValues(job).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
