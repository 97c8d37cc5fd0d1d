package usecases

import (
	"context"

	"github.com/samirrijal/busticket/internal/core/domain"
	"github.com/samirrijal/busticket/internal/core/ports"
)

// OverlapValidator decides whether a segment of a seat is still sellable.
//
// It only reads; callers that go on to insert must run it inside
// TicketRepository.WithSeatLock so the check and the insert are atomic.
type OverlapValidator struct {
	tickets ports.TicketRepository
}

// NewOverlapValidator creates a new OverlapValidator.
func NewOverlapValidator(tickets ports.TicketRepository) *OverlapValidator {
	return &OverlapValidator{tickets: tickets}
}

// IsSegmentFree reports whether no live ticket on the seat overlaps [fromOrder, toOrder).
func (v *OverlapValidator) IsSegmentFree(ctx context.Context, tripID, seatNumber string, fromOrder, toOrder int) (bool, error) {
	seg, err := domain.NewSegment(fromOrder, toOrder)
	if err != nil {
		return false, err
	}
	conflict, err := v.FindConflict(ctx, tripID, seatNumber, seg)
	if err != nil {
		return false, err
	}
	return conflict == nil, nil
}

// FindConflict returns the first non-cancelled ticket on the seat whose
// segment overlaps seg, or nil when the segment is free.
func (v *OverlapValidator) FindConflict(ctx context.Context, tripID, seatNumber string, seg domain.Segment) (*domain.Ticket, error) {
	tickets, err := v.tickets.ListActiveBySeat(ctx, tripID, seatNumber)
	if err != nil {
		return nil, err
	}
	for i := range tickets {
		if tickets[i].Status == domain.TicketCancelled {
			continue
		}
		if tickets[i].Segment().Overlaps(seg) {
			return &tickets[i], nil
		}
	}
	return nil, nil
}
