package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// SessionPurger removes expired sessions
type SessionPurger interface {
	PurgeExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// LogPruner removes daily log files older than keep days
type LogPruner interface {
	Prune(keep int) (int, error)
}

// Options configures the housekeeping jobs
type Options struct {
	SessionPurgeSpec string
	LogPruneSpec     string
	LogRetentionDays int
}

// Scheduler runs periodic housekeeping jobs
type Scheduler struct {
	cron     *cron.Cron
	sessions SessionPurger
	logs     LogPruner
	opts     Options
}

// New creates a scheduler; call Start to run it
func New(sessions SessionPurger, logs LogPruner, opts Options) (*Scheduler, error) {
	if opts.SessionPurgeSpec == "" {
		opts.SessionPurgeSpec = "@every 5m"
	}
	if opts.LogPruneSpec == "" {
		opts.LogPruneSpec = "@daily"
	}
	if opts.LogRetentionDays <= 0 {
		opts.LogRetentionDays = 30
	}

	s := &Scheduler{
		cron:     cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		sessions: sessions,
		logs:     logs,
		opts:     opts,
	}
	if _, err := s.cron.AddFunc(opts.SessionPurgeSpec, s.PurgeSessions); err != nil {
		return nil, fmt.Errorf("scheduler: invalid session purge spec %q: %w", opts.SessionPurgeSpec, err)
	}
	if _, err := s.cron.AddFunc(opts.LogPruneSpec, s.PruneLogs); err != nil {
		return nil, fmt.Errorf("scheduler: invalid log prune spec %q: %w", opts.LogPruneSpec, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	slog.Info("scheduler started", "jobs", len(s.cron.Entries()))
	s.cron.Start()
}

// Stop waits for running jobs to finish or ctx to expire
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
	slog.Info("scheduler stopped")
}

// PurgeSessions is the session cleanup job
func (s *Scheduler) PurgeSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	n, err := s.sessions.PurgeExpiredSessions(ctx, time.Now().UTC())
	if err != nil {
		slog.Error("session purge failed", "job", "session_purge", "error", err)
		return
	}
	slog.Info("session purge finished", "job", "session_purge", "removed", n)
}

// PruneLogs is the log retention job
func (s *Scheduler) PruneLogs() {
	n, err := s.logs.Prune(s.opts.LogRetentionDays)
	if err != nil {
		slog.Error("log prune failed", "job", "log_prune", "error", err)
		return
	}
	slog.Info("log prune finished", "job", "log_prune", "removed", n)
}
