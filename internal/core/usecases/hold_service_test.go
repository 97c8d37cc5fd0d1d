package usecases_test

import (
	"context"
	"testing"
	"time"

	"github.com/samirrijal/busticket/internal/core/domain"
)

func TestHoldService_Create(t *testing.T) {
	f := newFixture(t, 48*time.Hour)
	now := f.clock.Now()

	h, err := f.holds.Create(context.Background(), tripID, " 2C ", "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.Status != domain.HoldActive {
		t.Errorf("expected HOLD, got %s", h.Status)
	}
	if h.SeatNumber != "2C" {
		t.Errorf("expected trimmed seat 2C, got %q", h.SeatNumber)
	}
	if !h.ExpiresAt.Equal(now.Add(5 * time.Minute)) {
		t.Errorf("expected expiry %v, got %v", now.Add(5*time.Minute), h.ExpiresAt)
	}
	if f.events.count(domain.EventHoldCreated) != 1 {
		t.Error("expected one hold.created event")
	}
}

func TestHoldService_Create_IsAdvisory(t *testing.T) {
	f := newFixture(t, 48*time.Hour)
	ctx := context.Background()
	a, err := f.holds.Create(ctx, tripID, "2C", "user-1")
	if err != nil {
		t.Fatalf("first hold: %v", err)
	}
	b, err := f.holds.Create(ctx, tripID, "2C", "user-2")
	if err != nil {
		t.Fatalf("second hold on the same seat must be allowed: %v", err)
	}
	if a.ID == b.ID {
		t.Error("holds must have distinct ids")
	}
}

func TestHoldService_Create_Rejects(t *testing.T) {
	f := newFixture(t, 48*time.Hour)
	ctx := context.Background()

	_, err := f.holds.Create(ctx, tripID, "", "user-1")
	expectErr(t, err, domain.ErrInvalidInput)

	_, err = f.holds.Create(ctx, "no-such-trip", "1A", "user-1")
	expectErr(t, err, domain.ErrNotFound)

	trip, _ := f.store.Trips().GetByID(ctx, tripID)
	trip.Status = domain.TripCancelled
	f.store.PutTrip(*trip)
	_, err = f.holds.Create(ctx, tripID, "1A", "user-1")
	expectErr(t, err, domain.ErrInvalidState)
}

func TestHoldService_Expire_Idempotent(t *testing.T) {
	f := newFixture(t, 48*time.Hour)
	ctx := context.Background()
	h, _ := f.holds.Create(ctx, tripID, "1A", "user-1")

	if err := f.holds.Expire(ctx, h.ID); err != nil {
		t.Fatalf("first expire: %v", err)
	}
	if err := f.holds.Expire(ctx, h.ID); err != nil {
		t.Fatalf("second expire must be a no-op: %v", err)
	}
	got, _ := f.holds.Get(ctx, h.ID)
	if got.Status != domain.HoldExpired {
		t.Errorf("expected EXPIRED, got %s", got.Status)
	}
	if f.events.count(domain.EventHoldExpired) != 1 {
		t.Errorf("expected exactly one hold.expired event, got %d", f.events.count(domain.EventHoldExpired))
	}
}

func TestHoldService_Expire_ConsumedIsNoop(t *testing.T) {
	f := newFixture(t, 48*time.Hour)
	ctx := context.Background()
	f.store.PutHold(domain.SeatHold{ID: "used", TripID: tripID, SeatNumber: "1A", Status: domain.HoldConsumed, ExpiresAt: f.clock.Now()})

	if err := f.holds.Expire(ctx, "used"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := f.holds.Get(ctx, "used")
	if got.Status != domain.HoldConsumed {
		t.Errorf("consumed hold must stay CONSUMED, got %s", got.Status)
	}
}

func TestHoldService_Expire_NotFound(t *testing.T) {
	f := newFixture(t, 48*time.Hour)
	expectErr(t, f.holds.Expire(context.Background(), "missing"), domain.ErrNotFound)
}

func TestHoldService_ExpireAll(t *testing.T) {
	f := newFixture(t, 48*time.Hour)
	ctx := context.Background()
	old1, _ := f.holds.Create(ctx, tripID, "1A", "user-1")
	old2, _ := f.holds.Create(ctx, tripID, "1B", "user-2")
	f.clock.Add(10 * time.Minute)
	fresh, _ := f.holds.Create(ctx, tripID, "1C", "user-3")

	n, err := f.holds.ExpireAll(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 holds expired, got %d", n)
	}
	for _, id := range []string{old1.ID, old2.ID} {
		if h, _ := f.holds.Get(ctx, id); h.Status != domain.HoldExpired {
			t.Errorf("hold %s: expected EXPIRED, got %s", id, h.Status)
		}
	}
	if h, _ := f.holds.Get(ctx, fresh.ID); h.Status != domain.HoldActive {
		t.Errorf("fresh hold must stay HOLD, got %s", h.Status)
	}
}

func TestHoldService_CheckAvailability(t *testing.T) {
	f := newFixture(t, 48*time.Hour)
	ctx := context.Background()
	f.mustIssue(t, "6F", 0, 2)
	if _, err := f.holds.Create(ctx, tripID, "6F", "user-2"); err != nil {
		t.Fatalf("create hold: %v", err)
	}

	a, err := f.holds.CheckAvailability(ctx, tripID, "6F", stopID(2), stopID(4), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !a.Free || !a.HeldByOthers {
		t.Errorf("expected free and held by others, got %+v", a)
	}

	a, _ = f.holds.CheckAvailability(ctx, tripID, "6F", stopID(1), stopID(3), "user-2")
	if a.Free {
		t.Error("[1,3) overlaps the sold [0,2)")
	}
	if a.HeldByOthers {
		t.Error("the caller's own hold must not count as held by others")
	}

	f.clock.Add(6 * time.Minute)
	a, _ = f.holds.CheckAvailability(ctx, tripID, "6F", stopID(2), stopID(4), "user-1")
	if a.HeldByOthers {
		t.Error("an expired hold must not block the seat")
	}
}
