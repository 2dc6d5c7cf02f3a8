package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gorm.io/gorm"
)

func TestClassifySchedulerJobReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "deadline",
			err:  context.DeadlineExceeded,
			want: SchedulerJobReasonDeadlineExceeded,
		},
		{
			name: "panic",
			err:  fmt.Errorf("%w: boom", ErrJobPanicked),
			want: SchedulerJobReasonPanic,
		},
		{
			name: "db_lock_timeout",
			err:  &pgconn.PgError{Code: "55P03"},
			want: SchedulerJobReasonDBLockTimeout,
		},
		{
			name: "serialization_failure",
			err:  &pgconn.PgError{Code: "40001"},
			want: SchedulerJobReasonSerializationFailure,
		},
		{
			name: "unique_violation",
			err:  gorm.ErrDuplicatedKey,
			want: SchedulerJobReasonUniqueViolation,
		},
		{
			name: "unknown",
			err:  errors.New("boom"),
			want: SchedulerJobReasonUnknown,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifySchedulerJobReason(tc.err); got != tc.want {
				t.Fatalf("expected reason %q, got %q", tc.want, got)
			}
		})
	}
}

func TestClassifySchedulerErrorType(t *testing.T) {
	if got := ClassifySchedulerErrorType(&pgconn.PgError{Code: "23503"}); got != SchedulerErrorTypeDB {
		t.Fatalf("expected db, got %q", got)
	}
	if got := ClassifySchedulerErrorType(gorm.ErrRecordNotFound); got != SchedulerErrorTypeBusinessRule {
		t.Fatalf("expected business_rule, got %q", got)
	}
	if !IsSchedulerErrorRetryable(&pgconn.PgError{Code: "40001"}) {
		t.Fatalf("expected serialization failure to be retryable")
	}
	if IsSchedulerErrorRetryable(errors.New("boom")) {
		t.Fatalf("expected plain error to be final")
	}
}

func TestAddBatchProcessed(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewSchedulerMetrics(registry, Config{
		ServiceName: "tixora",
		Environment: "test",
	})

	metrics.AddBatchProcessed("expire_invite_codes", "invite_codes", 3)
	metrics.AddBatchProcessed("expire_invite_codes", "invite_codes", 0)

	got := testutil.ToFloat64(metrics.batchProcessed.WithLabelValues("expire_invite_codes", "invite_codes"))
	if got != 3 {
		t.Fatalf("expected processed count 3, got %v", got)
	}
}

func TestJobCountersRegisterOnRegistry(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewSchedulerMetrics(registry, Config{ServiceName: "tixora", Environment: "test"})

	metrics.IncJobRun("expire_invite_codes")
	metrics.IncJobPanic("expire_invite_codes")
	metrics.IncJobError("expire_invite_codes", context.DeadlineExceeded)
	metrics.ObserveJobDuration("expire_invite_codes", 10*time.Millisecond)
	metrics.ObserveRunLoopLag(-time.Second)

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	names := map[string]bool{}
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	for _, want := range []string{
		"tixora_scheduler_job_runs_total",
		"tixora_scheduler_job_panics_total",
		"tixora_scheduler_job_errors_total",
		"tixora_scheduler_job_duration_seconds",
		"tixora_scheduler_runloop_lag_seconds",
	} {
		if !names[want] {
			t.Fatalf("expected metric %s to be gathered", want)
		}
	}
}
