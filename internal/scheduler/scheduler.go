package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tixora/internal/clock"
	invitedomain "github.com/smallbiznis/tixora/internal/invitecode/domain"
	obsmetrics "github.com/smallbiznis/tixora/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("scheduler_invalid_config")

// Job is one unit of periodic work. Run returns the number of rows it changed.
type Job struct {
	Name     string
	Resource string
	Run      func(ctx context.Context) (int64, error)
}

type Params struct {
	fx.In

	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Invites invitedomain.Service
	Config  Config                       `optional:"true"`
	Metrics *obsmetrics.SchedulerMetrics `optional:"true"`
}

type Scheduler struct {
	log     *zap.Logger
	cfg     Config
	genID   *snowflake.Node
	clock   clock.Clock
	invites invitedomain.Service
	metrics *obsmetrics.SchedulerMetrics
	jobs    []Job

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GenID == nil || p.Clock == nil || p.Invites == nil {
		return nil, ErrInvalidConfig
	}
	schedMetrics := p.Metrics
	if schedMetrics == nil {
		schedMetrics = obsmetrics.Scheduler()
	}
	s := &Scheduler{
		log:     p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:     p.Config.withDefaults(),
		genID:   p.GenID,
		clock:   p.Clock,
		invites: p.Invites,
		metrics: schedMetrics,
	}
	s.jobs = []Job{
		{Name: JobExpireInviteCodes, Resource: "invite_codes", Run: s.ExpireInviteCodesJob},
	}
	return s, nil
}

// Start launches the run loop in the background. It is a no-op when already running.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		s.RunForever(ctx)
	}(s.done)
}

// Stop cancels the run loop and waits for the current iteration to return or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunForever waits out the startup delay, then runs every job once per interval
// until ctx is cancelled. Job failures never end the loop.
func (s *Scheduler) RunForever(ctx context.Context) {
	if s.cfg.StartupDelay > 0 {
		timer := time.NewTimer(s.cfg.StartupDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}

	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := time.Now()

	for {
		if lag := time.Since(nextRun); lag > 0 {
			s.metrics.ObserveRunLoopLag(lag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce runs each job in turn and joins their errors.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	var err error
	for _, job := range s.jobs {
		if ctx.Err() != nil {
			return errors.Join(err, ctx.Err())
		}
		err = errors.Join(err, s.runJob(ctx, job, s.cfg.JobTimeout))
	}
	return err
}

func (s *Scheduler) runJob(parent context.Context, job Job, timeout time.Duration) (err error) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run := s.beginRun(ctx, job)
	s.metrics.IncJobRun(job.Name)

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		err = fmt.Errorf("%s: %w: %v", job.Name, obsmetrics.ErrJobPanicked, r)
		s.metrics.IncJobPanic(job.Name)
		s.metrics.IncJobError(job.Name, err)
		run.log.Error("sweep panicked", zap.ByteString("stack", debug.Stack()))
		run.finish(0, err, false)
	}()

	processed, runErr := job.Run(ctx)
	s.metrics.ObserveJobDuration(job.Name, time.Since(run.started))
	if processed > 0 {
		s.metrics.AddBatchProcessed(job.Name, job.Resource, int(processed))
	}
	if runErr == nil {
		run.finish(processed, nil, false)
		return nil
	}

	s.metrics.IncJobError(job.Name, runErr)
	// an overrun is picked up again on the next tick
	timedOut := errors.Is(runErr, context.DeadlineExceeded) && parent.Err() == nil
	if timedOut {
		s.metrics.IncJobTimeout(job.Name)
	}
	run.finish(processed, runErr, timedOut)
	if timedOut {
		return nil
	}
	return fmt.Errorf("%s: %w", job.Name, runErr)
}
