// Package scheduler runs periodic pipeline jobs.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job represents a scheduled task
type Job func(ctx context.Context) error

// Scheduler manages periodic tasks
type Scheduler struct {
	cron     *cron.Cron
	jobs     map[string]cron.EntryID
	timezone *time.Location
}

// New creates a new scheduler with the given timezone
func New(timezone string) (*Scheduler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %s: %w", timezone, err)
	}

	c := cron.New(cron.WithLocation(loc))

	return &Scheduler{
		cron:     c,
		jobs:     make(map[string]cron.EntryID),
		timezone: loc,
	}, nil
}

// AddJob adds a job with a cron schedule
func (s *Scheduler) AddJob(name, schedule string, job Job) error {
	entryID, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()

		slog.Info("starting job", "job", name)
		start := time.Now()

		if err := job(ctx); err != nil {
			slog.Error("job failed", "job", name, "error", err)
		} else {
			slog.Info("job completed", "job", name, "duration", time.Since(start))
		}
	})

	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}

	s.jobs[name] = entryID
	slog.Info("added job", "job", name, "schedule", schedule)

	return nil
}

// AddIntervalJob adds a job that runs every intervalHours hours
func (s *Scheduler) AddIntervalJob(name string, intervalHours int, job Job) error {
	schedule := fmt.Sprintf("0 */%d * * *", intervalHours)
	return s.AddJob(name, schedule, job)
}

// Start begins running scheduled jobs
func (s *Scheduler) Start() {
	slog.Info("starting scheduler")
	s.cron.Start()
}

// Stop halts the scheduler and returns a context that completes when
// running jobs finish.
func (s *Scheduler) Stop() context.Context {
	slog.Info("stopping scheduler")
	return s.cron.Stop()
}
