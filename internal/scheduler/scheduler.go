// internal/scheduler/scheduler.go
package scheduler

import (
	"fmt"

	cronlib "github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// cronParser supports standard 5-field cron and descriptors like "@hourly".
var cronParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

// Scheduler fires the job cycle on a cron expression.
type Scheduler struct {
	cron *cronlib.Cron
	log  *zap.Logger
}

// New validates expr and registers run to fire on it. The callback runs in
// the cron goroutine; overlap protection is the job's own single-flight.
func New(expr string, log *zap.Logger, run func()) (*Scheduler, error) {
	if _, err := cronParser.Parse(expr); err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}

	c := cronlib.New(cronlib.WithParser(cronParser))
	if _, err := c.AddFunc(expr, run); err != nil {
		return nil, fmt.Errorf("register cron entry: %w", err)
	}
	return &Scheduler{cron: c, log: log}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started")
}

// Stop halts scheduling; a cycle already running is left to finish.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.log.Info("scheduler stopped")
}
