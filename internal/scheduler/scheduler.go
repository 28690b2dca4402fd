// internal/scheduler/scheduler.go
//
// Periodic round rotation.
//
// A Scheduler calls its tick function once per period from a single
// goroutine. The timer is re-armed only after a tick returns, so a slow tick
// delays the next one instead of overlapping it. Stop cancels the loop and
// waits for an in-flight tick to finish.

package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Tick is the work performed each period.
type Tick func(ctx context.Context)

// Scheduler runs a Tick at a fixed period.
type Scheduler struct {
	period time.Duration
	tick   Tick

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New returns a scheduler that calls tick every period. A non-positive
// period is treated as one minute.
func New(period time.Duration, tick Tick) *Scheduler {
	if period <= 0 {
		period = time.Minute
	}
	return &Scheduler{period: period, tick: tick}
}

// Period is the configured interval between ticks.
func (s *Scheduler) Period() time.Duration { return s.period }

// Run blocks, ticking every period until ctx ends.
func (s *Scheduler) Run(ctx context.Context) {
	timer := time.NewTimer(s.period)
	defer timer.Stop()

	log.Info().Dur("period", s.period).Msg("round scheduler started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("round scheduler stopped")
			return
		case <-timer.C:
			s.tick(ctx)
			timer.Reset(s.period)
		}
	}
}

// Start runs the loop in its own goroutine. Calling Start on a running
// scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel, s.done = cancel, done
	go func() {
		defer close(done)
		s.Run(ctx)
	}()
}

// Stop cancels the loop and waits for it, including any tick in progress.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}
