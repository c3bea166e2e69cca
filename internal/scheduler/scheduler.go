// Package scheduler fires pipeline runs on a recurring cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"pdfcourier/internal/apperrors"
	"pdfcourier/internal/pipeline"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

// Runner executes one run.
type Runner interface {
	Run(ctx context.Context) (*pipeline.RunReport, error)
}

// Scheduler triggers runs on a schedule, plus once on start when configured.
// A tick that fires while the previous scheduled run is still going is skipped.
type Scheduler struct {
	cfg     Config
	runner  Runner
	cron    *cron.Cron
	entry   cron.EntryID
	logger  *slog.Logger
	started atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup // run on start
}

// New validates the schedule and creates a stopped scheduler.
func New(cfg Config, runner Runner) (*Scheduler, error) {
	cfg = cfg.withDefaults()
	logger := slog.With("component", "scheduler")
	cl := cronLogger{logger: logger}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cfg:    cfg,
		runner: runner,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
	}

	entry, err := s.cron.AddFunc(cfg.Schedule, s.fire)
	if err != nil {
		cancel()
		return nil, apperrors.Validation("schedule", fmt.Sprintf("invalid schedule %q: %v", cfg.Schedule, err))
	}
	s.entry = entry
	return s, nil
}

// Start begins firing runs. It does not block.
func (s *Scheduler) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	s.cron.Start()
	s.logger.Info("Scheduler started", "schedule", s.cfg.Schedule, "next", s.Next())

	if s.cfg.RunOnStart {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.fire()
		}()
	}
}

// Stop halts the schedule and waits for an in-flight run. When ctx ends
// first, the run is cancelled at its next subject or artifact boundary and
// ctx.Err() is returned once it has returned.
func (s *Scheduler) Stop(ctx context.Context) error {
	if !s.started.CompareAndSwap(true, false) {
		s.cancel()
		return nil
	}

	cronDone := s.cron.Stop()
	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Cancelling in-flight run")
		s.cancel()
		<-done
		return ctx.Err()
	}
}

// Next returns the next scheduled fire time, or zero when not started.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entry).Next
}

// Ready reports whether the scheduler is running.
func (s *Scheduler) Ready(ctx context.Context) error {
	if !s.started.Load() {
		return errors.New("scheduler not started")
	}
	return nil
}

func (s *Scheduler) fire() {
	report, err := s.runner.Run(s.ctx)
	switch {
	case errors.Is(err, apperrors.ErrConflict):
		s.logger.Info("Scheduled run skipped, a run is already in progress")
	case err != nil:
		s.logger.Warn("Scheduled run ended early", "error", err)
	default:
		s.logger.Info("Scheduled run completed", "runId", report.RunID, "outcome", report.Outcome)
	}
}

// cronLogger routes cron's logging through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
