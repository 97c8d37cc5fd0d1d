package usecases_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/samirrijal/busticket/internal/core/domain"
	"github.com/samirrijal/busticket/internal/core/usecases"
)

func TestSweeper_ExpireHolds(t *testing.T) {
	f := newFixture(t, 48*time.Hour)
	now := f.clock.Now()
	f.store.PutHold(domain.SeatHold{ID: "stale", TripID: tripID, SeatNumber: "1A", Status: domain.HoldActive, ExpiresAt: now.Add(-time.Second)})
	f.store.PutHold(domain.SeatHold{ID: "boundary", TripID: tripID, SeatNumber: "1B", Status: domain.HoldActive, ExpiresAt: now})
	f.store.PutHold(domain.SeatHold{ID: "live", TripID: tripID, SeatNumber: "1C", Status: domain.HoldActive, ExpiresAt: now.Add(time.Minute)})
	f.store.PutHold(domain.SeatHold{ID: "used", TripID: tripID, SeatNumber: "1D", Status: domain.HoldConsumed, ExpiresAt: now.Add(-time.Hour)})

	n, err := f.sweeper.ExpireHolds(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 hold expired, got %d", n)
	}

	want := map[string]domain.HoldStatus{
		"stale":    domain.HoldExpired,
		"boundary": domain.HoldActive,
		"live":     domain.HoldActive,
		"used":     domain.HoldConsumed,
	}
	for id, status := range want {
		h, _ := f.store.Holds().GetByID(context.Background(), id)
		if h.Status != status {
			t.Errorf("hold %s: expected %s, got %s", id, status, h.Status)
		}
	}

	n, _ = f.sweeper.ExpireHolds(context.Background())
	if n != 0 {
		t.Errorf("second run must be a no-op, changed %d", n)
	}
}

func TestSweeper_ExpireHolds_BatchSize(t *testing.T) {
	f := newFixture(t, 48*time.Hour)
	now := f.clock.Now()
	for _, id := range []string{"a", "b", "c"} {
		f.store.PutHold(domain.SeatHold{ID: id, TripID: tripID, SeatNumber: id, Status: domain.HoldActive, ExpiresAt: now.Add(-time.Minute)})
	}
	sw := usecases.NewSweeper(f.store.Tickets(), f.store.Holds(), nil, usecases.WithClock(f.clock), usecases.WithBatchSize(2))

	if n, _ := sw.ExpireHolds(context.Background()); n != 3 {
		t.Errorf("expected one run to drain the backlog in batches of 2, got %d", n)
	}
	if n, _ := sw.ExpireHolds(context.Background()); n != 0 {
		t.Errorf("expected nothing left for the second run, got %d", n)
	}
}

func TestSweeper_ExpireHolds_StopsWhenBatchMakesNoProgress(t *testing.T) {
	f := newFixture(t, 48*time.Hour)
	now := f.clock.Now()
	for _, id := range []string{"a", "b"} {
		f.store.PutHold(domain.SeatHold{ID: id, TripID: tripID, SeatNumber: id, Status: domain.HoldActive, ExpiresAt: now.Add(-time.Minute)})
	}
	holds := f.store.Holds()
	lists := 0
	repo := &failingHolds{
		lister: listCounter{holds, &lists},
		expireFn: func(ctx context.Context, id string, at time.Time) (bool, error) {
			return false, errors.New("lock timeout")
		},
	}
	sw := usecases.NewSweeper(f.store.Tickets(), repo, nil, usecases.WithClock(f.clock), usecases.WithBatchSize(2))

	n, err := sw.ExpireHolds(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 0 {
		t.Errorf("expected no holds expired, got %d", n)
	}
	if lists != 1 {
		t.Errorf("a batch without progress must end the run, listed %d times", lists)
	}
}

func TestSweeper_MarkNoShows_DrainsBacklog(t *testing.T) {
	f := newFixture(t, 48*time.Hour)
	ctx := context.Background()
	f.store.PutTrip(domain.Trip{ID: "gone", RouteID: routeID, DepartureAt: f.clock.Now().Add(-time.Hour), Status: domain.TripDeparted})
	for _, seat := range []string{"1A", "1B", "1C", "1D", "1E"} {
		f.store.PutTicket(domain.Ticket{ID: seat, TripID: "gone", SeatNumber: seat, Status: domain.TicketSold})
	}
	sw := usecases.NewSweeper(f.store.Tickets(), f.store.Holds(), nil, usecases.WithClock(f.clock), usecases.WithBatchSize(2))

	n, err := sw.MarkNoShows(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 5 {
		t.Errorf("expected all 5 tickets in one run, got %d", n)
	}
}

type listCounter struct {
	inner interface {
		ListExpired(ctx context.Context, now time.Time, limit int) ([]domain.SeatHold, error)
	}
	calls *int
}

func (l listCounter) ListExpired(ctx context.Context, now time.Time, limit int) ([]domain.SeatHold, error) {
	*l.calls++
	return l.inner.ListExpired(ctx, now, limit)
}

// failingHolds fails the guarded update for one hold id.
type failingHolds struct {
	lister interface {
		ListExpired(ctx context.Context, now time.Time, limit int) ([]domain.SeatHold, error)
	}
	expireFn func(ctx context.Context, id string, at time.Time) (bool, error)
}

func (m *failingHolds) Create(ctx context.Context, h *domain.SeatHold) error { return nil }
func (m *failingHolds) GetByID(ctx context.Context, id string) (*domain.SeatHold, error) {
	return nil, domain.ErrNotFound
}
func (m *failingHolds) Expire(ctx context.Context, id string, at time.Time) (bool, error) {
	return m.expireFn(ctx, id, at)
}
func (m *failingHolds) Consume(ctx context.Context, id string, at time.Time) (bool, error) {
	return false, nil
}
func (m *failingHolds) ExpireAll(ctx context.Context, now time.Time) ([]domain.SeatHold, error) {
	return nil, nil
}
func (m *failingHolds) ListExpired(ctx context.Context, now time.Time, limit int) ([]domain.SeatHold, error) {
	return m.lister.ListExpired(ctx, now, limit)
}
func (m *failingHolds) ListActiveBySeat(ctx context.Context, tripID, seat string, now time.Time) ([]domain.SeatHold, error) {
	return nil, nil
}

func TestSweeper_ExpireHolds_SkipsFailingRow(t *testing.T) {
	f := newFixture(t, 48*time.Hour)
	now := f.clock.Now()
	for _, id := range []string{"ok-1", "broken", "ok-2"} {
		f.store.PutHold(domain.SeatHold{ID: id, TripID: tripID, SeatNumber: id, Status: domain.HoldActive, ExpiresAt: now.Add(-time.Minute)})
	}
	holds := f.store.Holds()
	repo := &failingHolds{
		lister: holds,
		expireFn: func(ctx context.Context, id string, at time.Time) (bool, error) {
			if id == "broken" {
				return false, errors.New("deadlock detected")
			}
			return holds.Expire(ctx, id, at)
		},
	}
	sw := usecases.NewSweeper(f.store.Tickets(), repo, nil, usecases.WithClock(f.clock))

	n, err := sw.ExpireHolds(context.Background())
	if err != nil {
		t.Fatalf("a row failure must not fail the sweep: %v", err)
	}
	if n != 2 {
		t.Errorf("expected the two healthy holds expired, got %d", n)
	}
	if h, _ := holds.GetByID(context.Background(), "broken"); h.Status != domain.HoldActive {
		t.Errorf("failed row must be left for the next run, got %s", h.Status)
	}
}

func TestSweeper_MarkNoShows(t *testing.T) {
	f := newFixture(t, 48*time.Hour)
	ctx := context.Background()
	now := f.clock.Now()

	f.store.PutTrip(domain.Trip{ID: "gone", RouteID: routeID, DepartureAt: now.Add(-10 * time.Minute), Status: domain.TripDeparted})
	f.store.PutTrip(domain.Trip{ID: "grace", RouteID: routeID, DepartureAt: now.Add(-4 * time.Minute), Status: domain.TripDeparted})

	f.store.PutTicket(domain.Ticket{ID: "late", TripID: "gone", SeatNumber: "1A", Status: domain.TicketSold})
	f.store.PutTicket(domain.Ticket{ID: "in-grace", TripID: "grace", SeatNumber: "1A", Status: domain.TicketSold})
	f.store.PutTicket(domain.Ticket{ID: "future", TripID: tripID, SeatNumber: "1A", Status: domain.TicketSold})
	f.store.PutTicket(domain.Ticket{ID: "cancelled", TripID: "gone", SeatNumber: "1B", Status: domain.TicketCancelled})

	n, err := f.sweeper.MarkNoShows(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 no-show, got %d", n)
	}

	want := map[string]domain.TicketStatus{
		"late":      domain.TicketNoShow,
		"in-grace":  domain.TicketSold,
		"future":    domain.TicketSold,
		"cancelled": domain.TicketCancelled,
	}
	for id, status := range want {
		tk, _ := f.store.Tickets().GetByID(ctx, id)
		if tk.Status != status {
			t.Errorf("ticket %s: expected %s, got %s", id, status, tk.Status)
		}
	}
	if f.events.count(domain.EventTicketNoShow) != 1 {
		t.Error("expected one ticket.no_show event")
	}

	if n, _ := f.sweeper.MarkNoShows(ctx); n != 0 {
		t.Errorf("second run must be a no-op, changed %d", n)
	}
}

func TestSweeper_MarkNoShows_SkipsTicketCancelledJustBefore(t *testing.T) {
	// Trip leaves in 3h; the passenger cancels, then the clock jumps past
	// departure and the grace window before the sweep runs.
	f := newFixture(t, 3*time.Hour)
	ctx := context.Background()
	kept := f.mustIssue(t, "1A", 0, 2)
	gone := f.mustIssue(t, "1A", 2, 4)

	f.clock.Add(3*time.Hour + 6*time.Minute - time.Second)
	// Too late to cancel through the service now; flip it in the store one
	// second before the sweep observes it.
	if ok, _ := f.store.Tickets().Cancel(ctx, gone.ID, gone.Price, f.clock.Now()); !ok {
		t.Fatal("setup: cancel")
	}
	f.clock.Add(time.Second)

	n, err := f.sweeper.MarkNoShows(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("expected only the uncancelled ticket flipped, got %d", n)
	}
	if tk, _ := f.store.Tickets().GetByID(ctx, gone.ID); tk.Status != domain.TicketCancelled {
		t.Errorf("cancelled ticket must stay CANCELLED, got %s", tk.Status)
	}
	if tk, _ := f.store.Tickets().GetByID(ctx, kept.ID); tk.Status != domain.TicketNoShow {
		t.Errorf("expected NO_SHOW, got %s", tk.Status)
	}
}
