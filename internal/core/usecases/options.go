package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/facebookgo/clock"

	"github.com/samirrijal/busticket/internal/core/domain"
	"github.com/samirrijal/busticket/internal/core/ports"
	"github.com/samirrijal/busticket/internal/pkg/telemetry"
)

var tracer = telemetry.Tracer("usecases")

const (
	defaultHoldTTL       = 5 * time.Minute
	defaultStoreTimeout  = 5 * time.Second
	defaultNoShowGrace   = 5 * time.Minute
	defaultBatchSize     = 500
	defaultNotifyTimeout = time.Minute
)

type options struct {
	clock         clock.Clock
	holdTTL       time.Duration
	storeTimeout  time.Duration
	noShowGrace   time.Duration
	batchSize     int
	notifyTimeout time.Duration
}

// Option tunes a booking service.
type Option func(*options)

func newOptions(opts []Option) options {
	o := options{
		clock:         clock.New(),
		holdTTL:       defaultHoldTTL,
		storeTimeout:  defaultStoreTimeout,
		noShowGrace:   defaultNoShowGrace,
		batchSize:     defaultBatchSize,
		notifyTimeout: defaultNotifyTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithHoldTTL sets how long a new hold blocks its seat.
func WithHoldTTL(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.holdTTL = d
		}
	}
}

// WithStoreTimeout bounds every store round-trip of one operation.
// Zero disables the bound.
func WithStoreTimeout(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.storeTimeout = d
		}
	}
}

// WithNoShowGrace sets how long after departure a SOLD ticket becomes a no-show.
func WithNoShowGrace(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.noShowGrace = d
		}
	}
}

// WithBatchSize caps how many rows one sweep batch selects.
func WithBatchSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// WithNotifyTimeout bounds the background delivery of one cancellation notice.
func WithNotifyTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.notifyTimeout = d
		}
	}
}

func (o options) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.storeTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.storeTimeout)
}

// storeErr turns an elapsed store deadline into the retryable store error.
func storeErr(err error) error {
	if err == nil || errors.Is(err, domain.ErrStoreUnavailable) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return err
}

func publish(ctx context.Context, p ports.EventPublisher, event *domain.SeatEvent) {
	if p == nil {
		return
	}
	if err := p.PublishSeatEvent(ctx, event); err != nil {
		slog.WarnContext(ctx, "publish seat event failed",
			"type", event.Type, "trip_id", event.TripID, "seat", event.SeatNumber, "error", err)
	}
}
