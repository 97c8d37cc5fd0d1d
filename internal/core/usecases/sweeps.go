package usecases

import (
	"context"
	"log/slog"
	"time"

	"github.com/samirrijal/busticket/internal/core/domain"
	"github.com/samirrijal/busticket/internal/core/ports"
	"github.com/samirrijal/busticket/internal/pkg/metrics"
)

// Sweeper holds the two periodic clean-up jobs: expiring stale holds and
// closing out unused tickets after departure.
//
// Each candidate row is written with a guarded update, so overlapping runs
// and multiple instances are safe: a row already moved by someone else is
// simply skipped.
type Sweeper struct {
	tickets   ports.TicketRepository
	holds     ports.SeatHoldRepository
	publisher ports.EventPublisher
	opts      options
}

// NewSweeper creates a new Sweeper. publisher may be nil.
func NewSweeper(tickets ports.TicketRepository, holds ports.SeatHoldRepository, publisher ports.EventPublisher, opts ...Option) *Sweeper {
	return &Sweeper{tickets: tickets, holds: holds, publisher: publisher, opts: newOptions(opts)}
}

// ExpireHolds moves every HOLD whose expiry is strictly before now to EXPIRED
// and returns how many holds it changed. Candidates are read in batches of
// the configured size until the backlog is drained.
func (s *Sweeper) ExpireHolds(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "Sweeper.ExpireHolds")
	defer span.End()
	defer observe("expire_holds", time.Now())

	now := s.opts.clock.Now()
	count, err := s.drain(ctx, func(ctx context.Context) (int, int, error) {
		return s.expireHoldBatch(ctx, now)
	})
	metrics.HoldsExpired.Add(float64(count))
	if err != nil {
		span.RecordError(err)
		return count, err
	}
	slog.InfoContext(ctx, "holds expired", "count", count)
	return count, nil
}

func (s *Sweeper) expireHoldBatch(ctx context.Context, now time.Time) (changed, selected int, err error) {
	listCtx, cancel := s.opts.storeContext(ctx)
	candidates, err := s.holds.ListExpired(listCtx, now, s.opts.batchSize)
	cancel()
	if err != nil {
		return 0, 0, storeErr(err)
	}

	for i := range candidates {
		h := &candidates[i]
		rowCtx, cancel := s.opts.storeContext(ctx)
		ok, err := s.holds.Expire(rowCtx, h.ID, now)
		cancel()
		if err != nil {
			metrics.SweepRowErrors.WithLabelValues("expire_holds").Inc()
			slog.WarnContext(ctx, "expire hold failed, skipping", "hold_id", h.ID, "error", storeErr(err))
			continue
		}
		if !ok {
			continue
		}
		changed++
		publish(ctx, s.publisher, holdExpiredEvent(h, now))
	}
	return changed, len(candidates), nil
}

// MarkNoShows moves SOLD tickets whose trip departed more than the grace
// window ago to NO_SHOW and returns how many tickets it changed.
func (s *Sweeper) MarkNoShows(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "Sweeper.MarkNoShows")
	defer span.End()
	defer observe("no_shows", time.Now())

	now := s.opts.clock.Now()
	cutoff := now.Add(-s.opts.noShowGrace)
	count, err := s.drain(ctx, func(ctx context.Context) (int, int, error) {
		return s.noShowBatch(ctx, cutoff, now)
	})
	metrics.NoShows.Add(float64(count))
	if err != nil {
		span.RecordError(err)
		return count, err
	}
	slog.InfoContext(ctx, "tickets marked no-show", "count", count, "cutoff", cutoff)
	return count, nil
}

func (s *Sweeper) noShowBatch(ctx context.Context, cutoff, now time.Time) (changed, selected int, err error) {
	listCtx, cancel := s.opts.storeContext(ctx)
	candidates, err := s.tickets.ListNoShowCandidates(listCtx, cutoff, s.opts.batchSize)
	cancel()
	if err != nil {
		return 0, 0, storeErr(err)
	}

	for i := range candidates {
		t := &candidates[i]
		rowCtx, cancel := s.opts.storeContext(ctx)
		ok, err := s.tickets.MarkNoShow(rowCtx, t.ID, now)
		cancel()
		if err != nil {
			metrics.SweepRowErrors.WithLabelValues("no_shows").Inc()
			slog.WarnContext(ctx, "mark no-show failed, skipping", "ticket_id", t.ID, "error", storeErr(err))
			continue
		}
		if !ok {
			continue
		}
		changed++
		publish(ctx, s.publisher, ticketEvent(domain.EventTicketNoShow, t, now))
	}
	return changed, len(candidates), nil
}

// drain repeats batch until a batch comes back short of the batch size or
// changes nothing. Rows that keep failing stay selectable, so a batch with
// no progress ends the run and leaves them for the next tick.
func (s *Sweeper) drain(ctx context.Context, batch func(ctx context.Context) (changed, selected int, err error)) (int, error) {
	total := 0
	for {
		changed, selected, err := batch(ctx)
		total += changed
		if err != nil {
			return total, err
		}
		if selected < s.opts.batchSize || changed == 0 || ctx.Err() != nil {
			return total, nil
		}
	}
}

func observe(sweep string, start time.Time) {
	metrics.SweepDuration.WithLabelValues(sweep).Observe(time.Since(start).Seconds())
}
