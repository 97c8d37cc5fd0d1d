package scheduler_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/facebookgo/clock"

	"github.com/samirrijal/busticket/internal/scheduler"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestPeriodic_RunsAtStartAndEveryTick(t *testing.T) {
	mock := clock.NewMock()
	var runs atomic.Int32

	p := &scheduler.Periodic{
		Name:     "test",
		Interval: 30 * time.Second,
		Clock:    mock,
		Task: func(ctx context.Context) (int, error) {
			runs.Add(1)
			return 1, nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	waitFor(t, func() bool { return runs.Load() == 1 })

	mock.Add(30 * time.Second)
	waitFor(t, func() bool { return runs.Load() == 2 })

	mock.Add(30 * time.Second)
	waitFor(t, func() bool { return runs.Load() == 3 })

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestPeriodic_ErrorDoesNotStopLoop(t *testing.T) {
	mock := clock.NewMock()
	var runs atomic.Int32

	p := &scheduler.Periodic{
		Name:     "failing",
		Interval: time.Minute,
		Clock:    mock,
		Task: func(ctx context.Context) (int, error) {
			runs.Add(1)
			return 0, errors.New("store down")
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	waitFor(t, func() bool { return runs.Load() == 1 })
	mock.Add(time.Minute)
	waitFor(t, func() bool { return runs.Load() == 2 })
}

func TestPeriodic_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	p := &scheduler.Periodic{
		Name:     "cancelled",
		Interval: time.Second,
		Clock:    clock.NewMock(),
		Task: func(ctx context.Context) (int, error) {
			called = true
			return 0, nil
		},
	}
	p.Run(ctx)
	if called {
		t.Error("task should not run with a cancelled context")
	}
}
