package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/smallbiznis/tixora/internal/clock"
	invitedomain "github.com/smallbiznis/tixora/internal/invitecode/domain"
	obsmetrics "github.com/smallbiznis/tixora/internal/observability/metrics"
	tixoratestutil "github.com/smallbiznis/tixora/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubInvites struct {
	invitedomain.Service

	mu    sync.Mutex
	calls []time.Time
	count int64
	err   error
	panic bool
	block bool
}

func (s *stubInvites) ExpirePending(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	s.calls = append(s.calls, now)
	count, err, shouldPanic, block := s.count, s.err, s.panic, s.block
	s.mu.Unlock()

	if shouldPanic {
		panic("sweep exploded")
	}
	if block {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	return count, err
}

func (s *stubInvites) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func newTestScheduler(t *testing.T, invites *stubInvites, cfg Config, now time.Time) (*Scheduler, *prometheus.Registry, *clock.FakeClock) {
	t.Helper()
	registry := prometheus.NewRegistry()
	fc := clock.NewFakeClock(now)
	sched, err := New(Params{
		Log:     zap.NewNop(),
		GenID:   tixoratestutil.NewNode(t),
		Clock:   fc,
		Invites: invites,
		Config:  cfg,
		Metrics: obsmetrics.NewSchedulerMetrics(registry, obsmetrics.Config{ServiceName: "tixora", Environment: "test"}),
	})
	require.NoError(t, err)
	return sched, registry, fc
}

func counterValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := registry.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelsMatch(m.GetLabel(), labels) {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func labelsMatch(pairs []*dto.LabelPair, want map[string]string) bool {
	for _, lp := range pairs {
		if v, ok := want[lp.GetName()]; ok && v != lp.GetValue() {
			return false
		}
	}
	return true
}

func TestRunOnceSweepsWithClockTime(t *testing.T) {
	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	invites := &stubInvites{count: 4}
	sched, registry, fc := newTestScheduler(t, invites, DefaultConfig(), now)

	require.NoError(t, sched.RunOnce(context.Background()))
	fc.Advance(5 * time.Minute)
	require.NoError(t, sched.RunOnce(context.Background()))

	require.Len(t, invites.calls, 2)
	assert.True(t, invites.calls[0].Equal(now))
	assert.True(t, invites.calls[1].Equal(now.Add(5*time.Minute)))

	series, err := promtestutil.GatherAndCount(registry, "tixora_scheduler_job_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, series)

	job := map[string]string{"job": JobExpireInviteCodes}
	assert.Equal(t, 2.0, counterValue(t, registry, "tixora_scheduler_job_runs_total", job))
	assert.Equal(t, 8.0, counterValue(t, registry, "tixora_scheduler_batch_processed_total", map[string]string{"job": JobExpireInviteCodes, "resource": "invite_codes"}))
}

func TestRunOnceReportsFailureWithoutPanicking(t *testing.T) {
	invites := &stubInvites{err: errors.New("connection refused")}
	sched, registry, _ := newTestScheduler(t, invites, DefaultConfig(), time.Now())

	err := sched.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), JobExpireInviteCodes)
	assert.Equal(t, 1.0, counterValue(t, registry, "tixora_scheduler_job_errors_total", map[string]string{"reason": obsmetrics.SchedulerJobReasonUnknown}))

	// the next run is unaffected
	invites.mu.Lock()
	invites.err = nil
	invites.mu.Unlock()
	assert.NoError(t, sched.RunOnce(context.Background()))
}

func TestRunOnceRecoversPanics(t *testing.T) {
	invites := &stubInvites{panic: true}
	sched, registry, _ := newTestScheduler(t, invites, DefaultConfig(), time.Now())

	var err error
	require.NotPanics(t, func() { err = sched.RunOnce(context.Background()) })
	assert.ErrorIs(t, err, obsmetrics.ErrJobPanicked)
	assert.Equal(t, 1.0, counterValue(t, registry, "tixora_scheduler_job_panics_total", nil))
	assert.Equal(t, 1.0, counterValue(t, registry, "tixora_scheduler_job_errors_total", map[string]string{"reason": obsmetrics.SchedulerJobReasonPanic}))
}

func TestRunOnceTreatsTimeoutAsSoftFailure(t *testing.T) {
	invites := &stubInvites{block: true}
	cfg := DefaultConfig()
	cfg.JobTimeout = 20 * time.Millisecond
	sched, registry, _ := newTestScheduler(t, invites, cfg, time.Now())

	assert.NoError(t, sched.RunOnce(context.Background()))
	assert.Equal(t, 1.0, counterValue(t, registry, "tixora_scheduler_job_timeouts_total", nil))
	assert.Equal(t, 1.0, counterValue(t, registry, "tixora_scheduler_job_errors_total", map[string]string{"reason": obsmetrics.SchedulerJobReasonDeadlineExceeded}))
}

func TestStartRunsAfterDelayAndStops(t *testing.T) {
	invites := &stubInvites{}
	cfg := Config{Enabled: true, RunInterval: 10 * time.Millisecond, StartupDelay: 30 * time.Millisecond, JobTimeout: time.Second}
	sched, _, _ := newTestScheduler(t, invites, cfg, time.Now())

	sched.Start()
	sched.Start()
	assert.Zero(t, invites.callCount())

	require.Eventually(t, func() bool { return invites.callCount() >= 3 }, 2*time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, sched.Stop(ctx))

	stopped := invites.callCount()
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, stopped, invites.callCount())
	assert.NoError(t, sched.Stop(ctx))
}

func TestLoopSurvivesFailingRuns(t *testing.T) {
	invites := &stubInvites{err: errors.New("db down")}
	cfg := Config{RunInterval: 5 * time.Millisecond, JobTimeout: time.Second}
	sched, _, _ := newTestScheduler(t, invites, cfg, time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	var finished atomic.Bool
	go func() {
		sched.RunForever(ctx)
		finished.Store(true)
	}()

	require.Eventually(t, func() bool { return invites.callCount() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.Eventually(t, finished.Load, time.Second, 5*time.Millisecond)
}

func TestNewRejectsMissingDependencies(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop()})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{StartupDelay: -time.Second}.withDefaults()
	assert.Equal(t, 5*time.Minute, cfg.RunInterval)
	assert.Equal(t, time.Duration(0), cfg.StartupDelay)
	assert.Equal(t, time.Minute, cfg.JobTimeout)
}
