package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Job is the scheduled unit of work.
type Job func(ctx context.Context) error

// Status reports the job's run history.
type Status struct {
	Schedule   string        `json:"schedule"`
	LastRun    time.Time     `json:"last_run"`
	NextRun    time.Time     `json:"next_run"`
	RunCount   int           `json:"run_count"`
	ErrorCount int           `json:"error_count"`
	LastError  string        `json:"last_error,omitempty"`
	Duration   time.Duration `json:"duration"`
	Running    bool          `json:"running"`
}

// Scheduler runs one job on a cron schedule. Overlapping firings are skipped.
type Scheduler struct {
	cron    *cron.Cron
	entry   cron.EntryID
	job     Job
	logger  *logrus.Entry
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration

	mu     sync.RWMutex
	status Status
}

// New parses schedule (standard five-field cron or a descriptor like @daily).
// A zero timeout leaves runs unbounded.
func New(schedule string, timeout time.Duration, job Job, logger *logrus.Entry) (*Scheduler, error) {
	c := cron.New(
		cron.WithLogger(cron.VerbosePrintfLogger(logger)),
		cron.WithChain(cron.Recover(cron.PrintfLogger(logger)), cron.SkipIfStillRunning(cron.PrintfLogger(logger))),
	)
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:    c,
		job:     job,
		logger:  logger.WithField("component", "scheduler"),
		ctx:     ctx,
		cancel:  cancel,
		timeout: timeout,
		status:  Status{Schedule: schedule},
	}

	entry, err := c.AddFunc(schedule, func() {
		if err := s.Trigger(s.ctx); err != nil {
			s.logger.WithError(err).Error("Scheduled run failed")
		}
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to parse schedule %q: %w", schedule, err)
	}
	s.entry = entry
	return s, nil
}

// Start begins firing on schedule.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.WithFields(logrus.Fields{
		"schedule": s.status.Schedule,
		"next_run": s.cron.Entry(s.entry).Next,
	}).Info("Scheduler started")
}

// Stop cancels any in-flight run and waits for it to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// Trigger runs the job immediately and records the outcome.
func (s *Scheduler) Trigger(ctx context.Context) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	s.mu.Lock()
	s.status.Running = true
	s.mu.Unlock()

	start := time.Now()
	err := s.job(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Running = false
	s.status.LastRun = start
	s.status.Duration = time.Since(start)
	s.status.RunCount++
	if err != nil {
		s.status.ErrorCount++
		s.status.LastError = err.Error()
	} else {
		s.status.LastError = ""
	}
	return err
}

// Status returns a snapshot of the job's run history.
func (s *Scheduler) Status() Status {
	s.mu.RLock()
	st := s.status
	s.mu.RUnlock()
	st.NextRun = s.cron.Entry(s.entry).Next
	return st
}
