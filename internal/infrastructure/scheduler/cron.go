package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"IntelScanner/internal/ports"
)

// CronScheduler drives recurring jobs from standard cron expressions in a
// fixed timezone.
type CronScheduler struct {
	cron *cron.Cron
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler bound to the given location.
func NewCronScheduler(loc *time.Location) *CronScheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &CronScheduler{cron: cron.New(cron.WithLocation(loc))}
}

// AddJob registers a job under a cron expression.
func (c *CronScheduler) AddJob(spec string, job func()) error {
	_, err := c.cron.AddFunc(spec, job)
	return err
}

// Start begins firing registered jobs in a background goroutine.
func (c *CronScheduler) Start() {
	c.cron.Start()
}

// Stop halts scheduling and waits for running jobs, bounded by ctx.
func (c *CronScheduler) Stop(ctx context.Context) error {
	select {
	case <-c.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
