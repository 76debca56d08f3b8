package sched

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestRunnerTicksOnManualClock(t *testing.T) {
	clock := NewManualClock(time.Unix(1700000000, 0))

	var runs atomic.Int64
	r := NewRunner(RunnerOptions{
		Name:     "test",
		Interval: 2 * time.Minute,
		Clock:    clock,
		Logger:   zerolog.Nop(),
	}, func(context.Context) error {
		runs.Add(1)
		return nil
	})

	r.Start(context.Background())
	defer r.Stop()

	waitFor(t, r.IsRunning)

	clock.Advance(2 * time.Minute)
	waitFor(t, func() bool { return runs.Load() == 1 })

	clock.Advance(2 * time.Minute)
	waitFor(t, func() bool { return runs.Load() == 2 })

	// Under one period: no tick
	clock.Advance(time.Minute)
	time.Sleep(10 * time.Millisecond)
	if got := runs.Load(); got != 2 {
		t.Errorf("runs = %d, want 2", got)
	}
}

func TestRunnerRunImmediately(t *testing.T) {
	clock := NewManualClock(time.Unix(1700000000, 0))

	var runs atomic.Int64
	r := NewRunner(RunnerOptions{
		Name:           "test",
		Interval:       time.Hour,
		RunImmediately: true,
		Clock:          clock,
		Logger:         zerolog.Nop(),
	}, func(context.Context) error {
		runs.Add(1)
		return nil
	})

	r.Start(context.Background())
	defer r.Stop()

	waitFor(t, func() bool { return runs.Load() == 1 })
}

func TestRunnerStopDrainsInFlightTick(t *testing.T) {
	clock := NewManualClock(time.Unix(1700000000, 0))

	entered := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool

	r := NewRunner(RunnerOptions{
		Name:     "test",
		Interval: time.Minute,
		Clock:    clock,
		Logger:   zerolog.Nop(),
	}, func(context.Context) error {
		close(entered)
		<-release
		finished.Store(true)
		return nil
	})

	r.Start(context.Background())
	waitFor(t, r.IsRunning)

	clock.Advance(time.Minute)
	<-entered

	go func() {
		time.Sleep(10 * time.Millisecond)
		close(release)
	}()

	r.Stop()
	if !finished.Load() {
		t.Error("Stop returned before in-flight tick finished")
	}
	if r.IsRunning() {
		t.Error("runner still reports running after Stop")
	}
}

func TestRunnerSurvivesPanicAndError(t *testing.T) {
	clock := NewManualClock(time.Unix(1700000000, 0))

	var runs atomic.Int64
	r := NewRunner(RunnerOptions{
		Name:     "test",
		Interval: time.Minute,
		Clock:    clock,
		Logger:   zerolog.Nop(),
	}, func(context.Context) error {
		n := runs.Add(1)
		switch n {
		case 1:
			panic("boom")
		case 2:
			return errors.New("cycle failed")
		}
		return nil
	})

	r.Start(context.Background())
	defer r.Stop()
	waitFor(t, r.IsRunning)

	for i := 0; i < 3; i++ {
		want := int64(i + 1)
		clock.Advance(time.Minute)
		waitFor(t, func() bool { return runs.Load() == want })
	}
}

func TestRunnerStartStopIdempotent(t *testing.T) {
	r := NewRunner(RunnerOptions{
		Name:     "test",
		Interval: time.Hour,
		Logger:   zerolog.Nop(),
	}, func(context.Context) error { return nil })

	r.Stop() // stop before start is a no-op

	r.Start(context.Background())
	r.Start(context.Background())
	waitFor(t, r.IsRunning)

	r.Stop()
	r.Stop()
	if r.IsRunning() {
		t.Error("runner running after Stop")
	}
}
