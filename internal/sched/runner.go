// Package sched runs periodic pipeline tasks on fixed intervals. Components
// expose a RunOnce method; the runner supplies the cadence, so tests drive
// components directly and never sleep.
package sched

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Task is one unit of periodic work. Errors are logged, not fatal; the next
// tick runs regardless.
type Task func(ctx context.Context) error

// Clock abstracts time for the runner. The real implementation wraps the
// time package; tests substitute a manual clock.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// Ticker is the subset of time.Ticker the runner needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTicker(d time.Duration) Ticker {
	return &realTicker{ticker: time.NewTicker(d)}
}

type realTicker struct {
	ticker *time.Ticker
}

func (t *realTicker) C() <-chan time.Time { return t.ticker.C }
func (t *realTicker) Stop()               { t.ticker.Stop() }

// RealClock returns a Clock backed by the time package.
func RealClock() Clock { return realClock{} }

// RunnerOptions configures an interval runner.
type RunnerOptions struct {
	// Name identifies the runner in logs.
	Name string
	// Interval is the tick period. Required.
	Interval time.Duration
	// RunImmediately fires the task once at Start before the first tick.
	RunImmediately bool
	// Clock overrides the real clock in tests.
	Clock Clock

	Logger zerolog.Logger
}

// Runner invokes a task on a fixed interval. Ticks are serialized: a tick
// that fires while the task is still running is skipped. Stop waits for any
// in-flight invocation to drain.
type Runner struct {
	name           string
	interval       time.Duration
	runImmediately bool
	clock          Clock
	task           Task
	log            zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRunner creates a runner for the given task.
func NewRunner(opts RunnerOptions, task Task) *Runner {
	clock := opts.Clock
	if clock == nil {
		clock = RealClock()
	}

	return &Runner{
		name:           opts.Name,
		interval:       opts.Interval,
		runImmediately: opts.RunImmediately,
		clock:          clock,
		task:           task,
		log:            opts.Logger.With().Str("runner", opts.Name).Logger(),
	}
}

// Start launches the tick loop. Calling Start on a running runner is a no-op.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})

	// Created here so the ticker exists before Start returns
	ticker := r.clock.NewTicker(r.interval)

	r.log.Info().Dur("interval", r.interval).Msg("runner started")
	go r.loop(runCtx, ticker)
}

// Stop halts the loop and waits for an in-flight tick to finish. Calling
// Stop on a stopped runner is a no-op.
func (r *Runner) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel = nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	r.log.Info().Msg("runner stopped")
}

// IsRunning reports whether the loop is active.
func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel != nil
}

func (r *Runner) loop(ctx context.Context, ticker Ticker) {
	defer close(r.done)
	defer ticker.Stop()

	if r.runImmediately {
		r.tick(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			r.tick(ctx)
		}
	}
}

// tick runs the task once, recovering panics so one bad cycle cannot kill
// the loop.
func (r *Runner) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error().Str("panic", fmt.Sprint(rec)).Msg("tick panicked")
		}
	}()

	start := r.clock.Now()
	if err := r.task(ctx); err != nil {
		r.log.Error().Err(err).Dur("elapsed", r.clock.Now().Sub(start)).Msg("tick failed")
		return
	}
	r.log.Debug().Dur("elapsed", r.clock.Now().Sub(start)).Msg("tick completed")
}
