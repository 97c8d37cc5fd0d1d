// Package scheduler runs background jobs on a fixed period.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/facebookgo/clock"
)

// Task is one run of a periodic job. It returns how many rows it affected.
type Task func(ctx context.Context) (int, error)

// Periodic runs a Task once at start and then every Interval until its
// context is cancelled. A run that overlaps the next tick delays that tick
// instead of running concurrently.
type Periodic struct {
	Name     string
	Interval time.Duration
	Task     Task
	Clock    clock.Clock
}

// Run blocks until ctx is cancelled.
func (p *Periodic) Run(ctx context.Context) {
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}

	ticker := clk.Ticker(p.Interval)
	defer ticker.Stop()

	slog.Info("periodic task started", "task", p.Name, "interval", p.Interval.String())
	p.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("periodic task stopped", "task", p.Name)
			return
		case <-ticker.C:
			p.runOnce(ctx)
		}
	}
}

func (p *Periodic) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	n, err := p.Task(ctx)
	if err != nil {
		slog.Error("periodic task failed", "task", p.Name, "error", err)
		return
	}
	if n > 0 {
		slog.Debug("periodic task done", "task", p.Name, "affected", n)
	}
}
