// Package scheduler runs the sync cycle on a cron schedule until the
// context is cancelled.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	domainErrors "github.com/prskeet/prskeet/internal/errors"
	"github.com/prskeet/prskeet/internal/logger"
)

// Job is one scheduled unit of work. The scheduler never inspects the
// error; the job decides what is fatal and what is just a bad cycle.
type Job func(ctx context.Context) error

type Scheduler struct {
	cron *cron.Cron
	spec string
	job  Job

	// ctx is the run context, set before the cron loop starts so tick
	// closures observe cancellation.
	ctx context.Context
}

// New validates the cron spec against loc and registers job on it. Ticks
// fire in loc; a tick that arrives while the previous job still runs is
// the job's problem, not ours (the sync engine drops it).
func New(spec string, loc *time.Location, job Job) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}

	s := &Scheduler{
		cron: cron.New(cron.WithLocation(loc)),
		spec: spec,
		job:  job,
		ctx:  context.Background(),
	}

	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, domainErrors.ErrInvalidCronSpec.
			WithContext("spec", spec).
			WithError(err)
	}

	return s, nil
}

func (s *Scheduler) tick() {
	if s.ctx.Err() != nil {
		return
	}
	if err := s.job(s.ctx); err != nil {
		logger.Error(s.ctx, "scheduled sync cycle failed", err)
	}
}

// Spec returns the schedule this scheduler was built with.
func (s *Scheduler) Spec() string {
	return s.spec
}

// Run starts the cron loop and blocks until ctx is cancelled, then waits
// for an in-flight job to finish.
func (s *Scheduler) Run(ctx context.Context) {
	s.ctx = ctx
	logger.Info(ctx, "scheduler started", "spec", s.spec, "next", s.Next(time.Now()))
	s.cron.Start()

	<-ctx.Done()

	logger.Info(ctx, "scheduler stopping, waiting for in-flight work")
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
}

// Next reports when the schedule would fire after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Schedule.Next(t)
}
