package scheduler

import (
	"context"
	"time"

	obscontext "github.com/smallbiznis/tixora/internal/observability/context"
	obslogger "github.com/smallbiznis/tixora/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/tixora/internal/observability/metrics"
	"go.uber.org/zap"
)

// jobRun is one execution of a job. Its id is also the request id, so audit rows
// written by the sweep can be traced back to the run.
type jobRun struct {
	started time.Time
	log     *zap.Logger
}

func (s *Scheduler) beginRun(ctx context.Context, job Job) (context.Context, *jobRun) {
	id := s.genID.Generate().String()
	ctx = obscontext.WithActor(ctx, "system", "scheduler")
	ctx = obscontext.WithRequestID(ctx, id)

	run := &jobRun{
		started: time.Now(),
		log:     obslogger.WithContext(ctx, s.log).With(zap.String("job", job.Name), zap.String("run_id", id)),
	}
	run.log.Debug("sweep started")
	return ctx, run
}

// finish writes the closing line. Idle runs stay at debug.
func (r *jobRun) finish(processed int64, err error, timedOut bool) {
	fields := []zap.Field{
		zap.Duration("elapsed", time.Since(r.started)),
		zap.Int64("processed", processed),
	}
	switch {
	case timedOut:
		r.log.Warn("sweep timed out", append(fields, zap.Error(err))...)
	case err != nil:
		r.log.Error("sweep failed", append(fields,
			zap.Error(err),
			zap.String("error_type", obsmetrics.ClassifySchedulerErrorType(err)),
			zap.Bool("retryable", obsmetrics.IsSchedulerErrorRetryable(err)),
		)...)
	case processed > 0:
		r.log.Info("sweep finished", fields...)
	default:
		r.log.Debug("sweep finished", fields...)
	}
}
