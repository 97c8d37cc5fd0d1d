package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/samirrijal/busticket/internal/core/domain"
)

// TicketRepository persists tickets.
//
// Status transitions are guarded updates: they only touch a row still in the
// expected source status and report whether the row was changed.
type TicketRepository interface {
	// WithSeatLock runs fn inside one store transaction that holds an
	// exclusive lock on (tripID, seatNumber). Repository calls made with the
	// ctx passed to fn join that transaction.
	WithSeatLock(ctx context.Context, tripID, seatNumber string, fn func(ctx context.Context) error) error

	// ListActiveBySeat returns every non-cancelled ticket on a seat.
	ListActiveBySeat(ctx context.Context, tripID, seatNumber string) ([]domain.Ticket, error)
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	Cancel(ctx context.Context, id string, refund decimal.Decimal, at time.Time) (bool, error)
	MarkNoShow(ctx context.Context, id string, at time.Time) (bool, error)

	// ListNoShowCandidates returns SOLD tickets whose trip departed before cutoff.
	ListNoShowCandidates(ctx context.Context, cutoff time.Time, limit int) ([]domain.Ticket, error)
	ListByTrip(ctx context.Context, tripID string, limit, offset int) ([]domain.Ticket, int, error)
	ListBySeat(ctx context.Context, tripID, seatNumber string) ([]domain.Ticket, error)
}

// SeatHoldRepository persists seat holds.
type SeatHoldRepository interface {
	Create(ctx context.Context, hold *domain.SeatHold) error
	GetByID(ctx context.Context, id string) (*domain.SeatHold, error)
	Expire(ctx context.Context, id string, at time.Time) (bool, error)
	Consume(ctx context.Context, id string, at time.Time) (bool, error)

	// ExpireAll expires every HOLD whose expiry is before now in one write
	// and returns the holds it changed.
	ExpireAll(ctx context.Context, now time.Time) ([]domain.SeatHold, error)
	ListExpired(ctx context.Context, now time.Time, limit int) ([]domain.SeatHold, error)
	ListActiveBySeat(ctx context.Context, tripID, seatNumber string, now time.Time) ([]domain.SeatHold, error)
}

// TripRepository looks up trips.
type TripRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Trip, error)
}

// StopRepository looks up stops.
type StopRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Stop, error)
}

// PassengerRepository looks up passenger contact details.
type PassengerRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Passenger, error)
}

// ConfigRepository reads runtime business settings.
type ConfigRepository interface {
	GetValue(ctx context.Context, key string) (decimal.Decimal, error)
}
