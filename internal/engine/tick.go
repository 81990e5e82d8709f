// Package engine drives the simulation: the world registry, the year
// pipeline, combat, and a paced year loop for long-running sessions.
package engine

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Engine drives the world forward one year at a time.
type Engine struct {
	Year     int           // years completed
	Years    int           // stop after this many years; 0 runs until stopped
	Interval time.Duration // pause between years; 0 runs flat out

	running atomic.Bool
	wake    chan struct{}

	// OnYear plays one year. An error stops the loop.
	OnYear func(ctx context.Context) error
	// OnFinish runs once after the last year.
	OnFinish func()
}

// NewEngine creates an engine that plays the given number of years.
func NewEngine(years int) *Engine {
	return &Engine{Years: years, wake: make(chan struct{}, 1)}
}

// Running reports whether Run is in progress.
func (e *Engine) Running() bool { return e.running.Load() }

// Run blocks until the configured years are played, Stop is called or ctx
// is done.
func (e *Engine) Run(ctx context.Context) error {
	select {
	case <-e.wake:
	default:
	}
	e.running.Store(true)
	defer e.running.Store(false)
	slog.Info("simulation engine started", "years", e.Years, "interval", e.Interval)

	for e.Years == 0 || e.Year < e.Years {
		if !e.running.Load() {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.OnYear != nil {
			if err := e.OnYear(ctx); err != nil {
				return err
			}
		}
		e.Year++

		if e.Interval > 0 {
			timer := time.NewTimer(e.Interval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-e.wake:
				timer.Stop()
			case <-timer.C:
			}
		}
	}

	slog.Info("simulation engine stopped", "year", e.Year)
	if e.OnFinish != nil {
		e.OnFinish()
	}
	return nil
}

// Stop halts the loop after the current year. A year already in progress
// still completes and OnFinish still runs; a pause between years is cut short.
func (e *Engine) Stop() {
	e.running.Store(false)
	select {
	case e.wake <- struct{}{}:
	default:
	}
}
