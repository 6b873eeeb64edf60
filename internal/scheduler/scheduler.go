// Package scheduler runs recurring maintenance jobs on cron schedules.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/clusterrisk/clusterrisk/internal/events"
)

// Job represents a scheduled job
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler manages background jobs
type Scheduler struct {
	cron   *cron.Cron
	bus    *events.Bus
	ctx    context.Context
	cancel context.CancelFunc
	log    zerolog.Logger
}

// New creates a new scheduler. Overlapping runs of the same job are skipped.
func New(bus *events.Bus, log zerolog.Logger) *Scheduler {
	logger := log.With().Str("component", "scheduler").Logger()
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger})),
		),
		bus:    bus,
		ctx:    ctx,
		cancel: cancel,
		log:    logger,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish.
// The job context is cancelled first so long runs wind down quickly.
func (s *Scheduler) Stop() {
	s.cancel()
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers a new job with a six-field cron schedule (with seconds).
// Schedule examples:
//   - "0 */5 * * * *"      - Every 5 minutes
//   - "0 0 3 * * *"        - Daily at 03:00
//   - "0 0 4 * * 0"        - Sundays at 04:00
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.runJob(job)
	})

	if err != nil {
		return err
	}

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")

	return nil
}

// RunNow executes a job immediately (outside schedule)
func (s *Scheduler) RunNow(job Job) error {
	s.log.Info().Str("job", job.Name()).Msg("Running job immediately")
	return s.runJob(job)
}

func (s *Scheduler) runJob(job Job) error {
	start := time.Now()
	s.log.Debug().Str("job", job.Name()).Msg("Running job")
	s.bus.Publish(events.JobStarted, "scheduler", map[string]interface{}{
		"job": job.Name(),
	})

	if err := job.Run(s.ctx); err != nil {
		s.log.Error().
			Err(err).
			Str("job", job.Name()).
			Dur("duration", time.Since(start)).
			Msg("Job failed")
		s.bus.Publish(events.JobFailed, "scheduler", map[string]interface{}{
			"job":   job.Name(),
			"error": err.Error(),
		})
		return err
	}

	s.log.Info().
		Str("job", job.Name()).
		Dur("duration", time.Since(start)).
		Msg("Job completed")
	s.bus.Publish(events.JobCompleted, "scheduler", map[string]interface{}{
		"job":         job.Name(),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return nil
}

// cronLogger adapts zerolog to the cron.Logger interface so schedule
// internals (skipped overlaps in particular) land in the normal log stream.
type cronLogger struct {
	log zerolog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debug().Fields(fieldsOf(keysAndValues)).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error().Err(err).Fields(fieldsOf(keysAndValues)).Msg(msg)
}

func fieldsOf(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		fields[key] = keysAndValues[i+1]
	}
	return fields
}
