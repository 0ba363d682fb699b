// Package scheduler runs the periodic maintenance jobs: expiring
// unpaid bookings and extending the availability window.
package scheduler

import (
	"context"
	"log"

	"github.com/robfig/cron/v3"
)

type sweeper interface {
	ExpireSweep(ctx context.Context) (int, error)
	SeedAvailability(ctx context.Context) error
}

// Scheduler owns the cron instance.  Jobs are wrapped with
// SkipIfStillRunning so a slow sweep never overlaps itself.
type Scheduler struct {
	cron    *cron.Cron
	manager sweeper
}

// New builds a scheduler with expireSpec and seedSpec cron expressions
// (robfig/cron syntax, @every shorthands included).
func New(manager sweeper, expireSpec, seedSpec string) (*Scheduler, error) {
	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))
	s := &Scheduler{cron: c, manager: manager}

	if _, err := c.AddFunc(expireSpec, s.runExpire); err != nil {
		return nil, err
	}
	if _, err := c.AddFunc(seedSpec, s.runSeed); err != nil {
		return nil, err
	}
	return s, nil
}

// Start launches the cron loop in its own goroutine.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() context.Context { return s.cron.Stop() }

func (s *Scheduler) runExpire() {
	n, err := s.manager.ExpireSweep(context.Background())
	if err != nil {
		log.Printf("scheduler: expire sweep: %v", err)
	}
	if n > 0 {
		log.Printf("scheduler: expired %d stale booking(s)", n)
	}
}

func (s *Scheduler) runSeed() {
	if err := s.manager.SeedAvailability(context.Background()); err != nil {
		log.Printf("scheduler: seed availability: %v", err)
	}
}
