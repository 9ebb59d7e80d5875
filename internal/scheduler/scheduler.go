// Package scheduler triggers jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/newthinker/moverscan/internal/core"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is a unit of scheduled work.
type Job func(ctx context.Context) error

type entry struct {
	id      cron.EntryID
	job     Job
	running sync.Mutex
}

// Scheduler runs jobs on standard five-field cron expressions (descriptors such as
// "@hourly" and "@every 1h" are accepted too). A job never overlaps with itself: a
// tick that fires while the previous run is still going is skipped.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	entries map[string]*entry
}

// New creates a stopped scheduler.
func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.Recover(cronLogger{logger}))),
		logger:  logger,
		ctx:     context.Background(),
		entries: make(map[string]*entry),
	}
}

// Add registers job under name with the given cron spec.
func (s *Scheduler) Add(name, spec string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[name]; ok {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("job %q already registered", name))
	}

	e := &entry{job: job}
	id, err := s.cron.AddFunc(spec, func() {
		if _, err := s.dispatch(s.jobContext(), name, e); err != nil {
			s.logger.Error("job failed", zap.String("job", name), zap.Error(err))
		}
	})
	if err != nil {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("job %q: invalid cron %q: %w", name, spec, err))
	}
	e.id = id
	s.entries[name] = e
	return nil
}

// RunNow runs the named job immediately on the calling goroutine.
// It returns false without running when the job is already in progress.
func (s *Scheduler) RunNow(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	e, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return false, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown job %q", name))
	}
	return s.dispatch(ctx, name, e)
}

func (s *Scheduler) dispatch(ctx context.Context, name string, e *entry) (bool, error) {
	if !e.running.TryLock() {
		s.logger.Warn("previous run still in progress, skipping", zap.String("job", name))
		return false, nil
	}
	defer e.running.Unlock()

	s.logger.Debug("running job", zap.String("job", name))
	return true, e.job(ctx)
}

func (s *Scheduler) jobContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// Next returns the next activation time of the named job. It is zero when the job is
// unknown or the scheduler has not been started.
func (s *Scheduler) Next(name string) time.Time {
	s.mu.Lock()
	e, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}
	}
	return s.cron.Entry(e.id).Next
}

// Start begins dispatching jobs. Jobs receive a context that is cancelled by Stop
// or when ctx ends.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	n := len(s.entries)
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("scheduler started", zap.Int("jobs", n))
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct{ l *zap.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug(msg, zap.Any("cron", keysAndValues))
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error(msg, zap.Error(err), zap.Any("cron", keysAndValues))
}
