// Package scheduler runs background jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"portfolio_tracker/internal/app/port"
)

// Job is a unit of scheduled work.
type Job interface {
	Run(ctx context.Context) error
	Name() string
}

// Scheduler manages background jobs. Overlapping runs of the same job are skipped.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
}

// New creates a stopped scheduler.
func New(logger *zap.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger))),
		ctx:    ctx,
		cancel: cancel,
		logger: logger.Named("Scheduler"),
	}
}

// AddJob registers job under a standard five-field or descriptor ("@every 10m") schedule.
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() { s.run(job) })
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", schedule, job.Name(), err)
	}
	s.logger.Info("Job registered", zap.String("job", job.Name()), zap.String("schedule", schedule))
	return nil
}

// RunNow executes job immediately, outside its schedule.
func (s *Scheduler) RunNow(job Job) error {
	s.logger.Info("Running job immediately", zap.String("job", job.Name()))
	return job.Run(s.ctx)
}

// Start starts the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) run(job Job) {
	started := time.Now()
	s.logger.Debug("Running job", zap.String("job", job.Name()))
	if err := job.Run(s.ctx); err != nil {
		s.logger.Error("Job failed", zap.String("job", job.Name()), zap.Error(err))
		return
	}
	s.logger.Debug("Job completed", zap.String("job", job.Name()), zap.Duration("duration", time.Since(started)))
}

// RefreshJob forces a portfolio refresh so readers keep hitting a warm cache.
type RefreshJob struct {
	portfolio port.PortfolioService
}

// NewRefreshJob creates a RefreshJob over ps.
func NewRefreshJob(ps port.PortfolioService) *RefreshJob {
	return &RefreshJob{portfolio: ps}
}

// Name implements Job.
func (j *RefreshJob) Name() string { return "portfolio_refresh" }

// Run implements Job.
func (j *RefreshJob) Run(ctx context.Context) error {
	_, err := j.portfolio.GetPortfolio(ctx, true)
	return err
}
