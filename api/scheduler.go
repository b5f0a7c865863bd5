/*
scheduler.go - Automated accrual and carry-forward sweep scheduler

PURPOSE:
  Periodically runs the leave.Sweeper: rolls unused balance across the year
  boundary, expires stale carried days, and deposits newly accrued
  entitlement for every employee and leave type.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - The sweep itself is idempotent, so overlapping schedules are harmless
  - Per-row failures inside a run are logged, not fatal

CONFIGURATION:
  - Interval: How often to run (default: 1 hour)
  - Enabled:  Whether the scheduler is active (default: true)

USAGE:
  scheduler := NewSweepScheduler(sweeper)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - leave/sweep.go: The sweep logic
  - handlers.go: TriggerSweep endpoint (manual run)
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/warp/leave-engine/leave"
)

// SweepScheduler drives the periodic accrual/carry-forward sweep.
type SweepScheduler struct {
	Sweeper  *leave.Sweeper
	Interval time.Duration
	Enabled  bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewSweepScheduler creates a new scheduler.
func NewSweepScheduler(sweeper *leave.Sweeper) *SweepScheduler {
	return &SweepScheduler{
		Sweeper:  sweeper,
		Interval: 1 * time.Hour,
		Enabled:  true,
		stop:     make(chan bool),
	}
}

// Start begins the scheduler.
func (s *SweepScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		log.Println("[Sweep] Disabled, not starting")
		return
	}

	s.ticker = time.NewTicker(s.Interval)
	s.wg.Add(1)

	go s.run()

	log.Printf("[Sweep] Started with interval: %v", s.Interval)
}

// Stop stops the scheduler.
func (s *SweepScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stop)
		s.wg.Wait()
		log.Println("[Sweep] Stopped")
	}
}

func (s *SweepScheduler) run() {
	defer s.wg.Done()

	// Run immediately on start
	s.sweep()

	for {
		select {
		case <-s.ticker.C:
			s.sweep()
		case <-s.stop:
			return
		}
	}
}

func (s *SweepScheduler) sweep() {
	ctx := context.Background()
	start := time.Now()

	result, err := s.Sweeper.Run(ctx)
	if err != nil {
		log.Printf("[Sweep] Run failed: %v", err)
		return
	}

	for _, rowErr := range result.Errors {
		log.Printf("[Sweep] Row error: %v", rowErr)
	}
	log.Printf("[Sweep] Completed in %v: %d employees, carried=%s, expired=%s, errors=%d",
		time.Since(start).Round(time.Millisecond),
		result.Employees, result.CarriedOver, result.Expired, len(result.Errors))
}

// RunNow triggers an immediate sweep (for testing/admin).
func (s *SweepScheduler) RunNow() {
	s.sweep()
}
