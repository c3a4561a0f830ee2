package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// JobFunc is invoked on every scheduled fire time.
type JobFunc func(ctx context.Context, fireTime time.Time) error

// Options tune scheduler behaviour.
type Options struct {
	// Spec is a standard five-field cron expression or a descriptor such as
	// "@daily" or "@every 1h".
	Spec       string
	Location   *time.Location
	RunOnStart bool
}

// Scheduler drives cron-timed execution of pipeline runs.
type Scheduler struct {
	opts     Options
	schedule cron.Schedule
	logger   zerolog.Logger
}

// New parses the cron expression and constructs a Scheduler.
func New(opts Options, logger zerolog.Logger) (*Scheduler, error) {
	if opts.Spec == "" {
		return nil, errors.New("scheduler spec must not be empty")
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	schedule, err := cron.ParseStandard(opts.Spec)
	if err != nil {
		return nil, fmt.Errorf("parse cron spec %q: %w", opts.Spec, err)
	}
	return &Scheduler{
		opts:     opts,
		schedule: schedule,
		logger:   logger.With().Str("component", "scheduler").Logger(),
	}, nil
}

// Next reports the first fire time strictly after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t.In(s.opts.Location))
}

// Run blocks, invoking job at every fire time until ctx is cancelled. A run
// still in progress when the next fire time arrives causes that tick to be
// skipped. Job errors are logged and do not stop the scheduler.
func (s *Scheduler) Run(ctx context.Context, job JobFunc) error {
	c := cron.New(
		cron.WithLocation(s.opts.Location),
		cron.WithLogger(cronLogger{s.logger}),
		cron.WithChain(cron.Recover(cronLogger{s.logger}), cron.SkipIfStillRunning(cronLogger{s.logger})),
	)
	c.Schedule(s.schedule, cron.FuncJob(func() {
		s.execute(ctx, job, time.Now().In(s.opts.Location))
	}))

	if s.opts.RunOnStart {
		s.execute(ctx, job, time.Now().In(s.opts.Location))
	}

	c.Start()
	s.logger.Info().Str("spec", s.opts.Spec).Time("next_run", s.Next(time.Now())).Msg("scheduler started")

	<-ctx.Done()
	stopped := c.Stop()
	<-stopped.Done()
	s.logger.Info().Msg("scheduler stopped")
	return ctx.Err()
}

func (s *Scheduler) execute(ctx context.Context, job JobFunc, fireTime time.Time) {
	if ctx.Err() != nil {
		return
	}
	s.logger.Info().Time("fire_time", fireTime).Msg("executing scheduled run")
	if err := job(ctx, fireTime); err != nil {
		s.logger.Error().Err(err).Time("fire_time", fireTime).Msg("scheduled run failed")
		return
	}
	s.logger.Debug().Time("next_run", s.Next(fireTime)).Msg("waiting for next run")
}

// cronLogger adapts zerolog to the cron.Logger interface.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
