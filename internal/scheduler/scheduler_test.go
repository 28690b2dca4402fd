package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicksRepeatedly(t *testing.T) {
	var n atomic.Int32
	s := New(5*time.Millisecond, func(context.Context) { n.Add(1) })
	s.Start(context.Background())
	defer s.Stop()

	require.Eventually(t, func() bool { return n.Load() >= 3 }, time.Second, time.Millisecond)
}

func TestTicksNeverOverlap(t *testing.T) {
	var running, overlaps, ticks atomic.Int32
	s := New(time.Millisecond, func(context.Context) {
		if running.Add(1) > 1 {
			overlaps.Add(1)
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
		ticks.Add(1)
	})
	s.Start(context.Background())
	require.Eventually(t, func() bool { return ticks.Load() >= 4 }, time.Second, time.Millisecond)
	s.Stop()

	assert.Zero(t, overlaps.Load())
}

func TestStopWaitsForInFlightTick(t *testing.T) {
	entered := make(chan struct{})
	var finished atomic.Bool
	s := New(time.Millisecond, func(context.Context) {
		select {
		case entered <- struct{}{}:
		default:
		}
		time.Sleep(20 * time.Millisecond)
		finished.Store(true)
	})
	s.Start(context.Background())
	<-entered

	s.Stop()
	assert.True(t, finished.Load(), "Stop returned before the tick completed")
}

func TestStopIsIdempotent(t *testing.T) {
	s := New(time.Hour, func(context.Context) {})
	s.Stop()
	s.Start(context.Background())
	s.Start(context.Background())
	s.Stop()
	s.Stop()
}

func TestRunEndsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		New(time.Hour, func(context.Context) {}).Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestDefaultPeriod(t *testing.T) {
	assert.Equal(t, time.Minute, New(0, nil).Period())
}
