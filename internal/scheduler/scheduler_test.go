package scheduler

import (
	"context"
	"testing"
	"time"
)

type purger struct{ calls int }

func (p *purger) PurgeExpiredSessions(context.Context, time.Time) (int64, error) {
	p.calls++
	return 3, nil
}

type pruner struct{ keep int }

func (p *pruner) Prune(keep int) (int, error) {
	p.keep = keep
	return 0, nil
}

func TestNewRejectsBadSchedule(t *testing.T) {
	if _, err := New(&purger{}, &pruner{}, Options{SessionPurgeSpec: "every now and then"}); err == nil {
		t.Fatalf("expected error for invalid schedule")
	}
}

func TestJobsUseOptions(t *testing.T) {
	p, l := &purger{}, &pruner{}
	s, err := New(p, l, Options{LogRetentionDays: 14})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if got := len(s.cron.Entries()); got != 2 {
		t.Fatalf("expected 2 jobs, got %d", got)
	}
	s.PurgeSessions()
	s.PruneLogs()
	if p.calls != 1 || l.keep != 14 {
		t.Fatalf("unexpected job calls: purge=%d keep=%d", p.calls, l.keep)
	}
}

func TestStartStop(t *testing.T) {
	s, err := New(&purger{}, &pruner{}, Options{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
