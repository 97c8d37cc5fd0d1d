package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/samirrijal/busticket/internal/core/domain"
	"github.com/samirrijal/busticket/internal/core/ports"
	"github.com/samirrijal/busticket/internal/pkg/metrics"
)

// HoldService manages advisory seat holds taken during checkout.
//
// Holds reserve a whole seat for the holder's checkout window. They never
// block another hold; segment exclusivity is enforced when the ticket is issued.
type HoldService struct {
	holds     ports.SeatHoldRepository
	catalog   *Catalog
	validator *OverlapValidator
	publisher ports.EventPublisher
	opts      options
}

// NewHoldService creates a new HoldService. publisher may be nil.
func NewHoldService(
	holds ports.SeatHoldRepository,
	catalog *Catalog,
	validator *OverlapValidator,
	publisher ports.EventPublisher,
	opts ...Option,
) *HoldService {
	return &HoldService{
		holds:     holds,
		catalog:   catalog,
		validator: validator,
		publisher: publisher,
		opts:      newOptions(opts),
	}
}

// Create places a hold on a seat that expires after the configured TTL.
func (s *HoldService) Create(ctx context.Context, tripID, seatNumber, userID string) (*domain.SeatHold, error) {
	ctx, span := tracer.Start(ctx, "HoldService.Create")
	defer span.End()

	seatNumber = strings.TrimSpace(seatNumber)
	if tripID == "" || seatNumber == "" || userID == "" {
		return nil, fmt.Errorf("%w: trip, seat and user are required", domain.ErrInvalidInput)
	}

	storeCtx, cancel := s.opts.storeContext(ctx)
	defer cancel()

	trip, err := s.catalog.Trip(storeCtx, tripID)
	if err != nil {
		return nil, storeErr(err)
	}
	if !trip.Status.Sellable() {
		return nil, fmt.Errorf("%w: trip %s is %s", domain.ErrInvalidState, trip.ID, trip.Status)
	}

	now := s.opts.clock.Now()
	hold := &domain.SeatHold{
		ID:         uuid.NewString(),
		TripID:     tripID,
		SeatNumber: seatNumber,
		UserID:     userID,
		ExpiresAt:  now.Add(s.opts.holdTTL),
		Status:     domain.HoldActive,
		CreatedAt:  now,
	}
	if err := s.holds.Create(storeCtx, hold); err != nil {
		span.RecordError(err)
		return nil, storeErr(err)
	}

	metrics.HoldsCreated.Inc()
	publish(ctx, s.publisher, &domain.SeatEvent{
		Type:       domain.EventHoldCreated,
		TripID:     hold.TripID,
		SeatNumber: hold.SeatNumber,
		HoldID:     hold.ID,
		Time:       now,
	})
	return hold, nil
}

// Get returns a hold by id.
func (s *HoldService) Get(ctx context.Context, id string) (*domain.SeatHold, error) {
	storeCtx, cancel := s.opts.storeContext(ctx)
	defer cancel()

	hold, err := s.holds.GetByID(storeCtx, id)
	return hold, storeErr(err)
}

// Expire releases a single hold. Expiring a hold that is already EXPIRED or
// CONSUMED is a no-op.
func (s *HoldService) Expire(ctx context.Context, id string) error {
	storeCtx, cancel := s.opts.storeContext(ctx)
	defer cancel()

	now := s.opts.clock.Now()
	changed, err := s.holds.Expire(storeCtx, id, now)
	if err != nil {
		return storeErr(err)
	}
	hold, err := s.holds.GetByID(storeCtx, id)
	if err != nil {
		return storeErr(err)
	}
	if !changed {
		return nil
	}

	metrics.HoldsExpired.Inc()
	publish(ctx, s.publisher, holdExpiredEvent(hold, now))
	return nil
}

// ExpireAll expires every hold whose window has already closed in a single
// write and returns how many holds changed.
func (s *HoldService) ExpireAll(ctx context.Context) (int, error) {
	storeCtx, cancel := s.opts.storeContext(ctx)
	defer cancel()

	now := s.opts.clock.Now()
	expired, err := s.holds.ExpireAll(storeCtx, now)
	if err != nil {
		return 0, storeErr(err)
	}

	metrics.HoldsExpired.Add(float64(len(expired)))
	for i := range expired {
		publish(ctx, s.publisher, holdExpiredEvent(&expired[i], now))
	}
	slog.InfoContext(ctx, "holds expired", "count", len(expired), "trigger", "admin")
	return len(expired), nil
}

// CheckAvailability reports whether a segment can be sold and whether anyone
// other than userID currently holds the seat.
func (s *HoldService) CheckAvailability(ctx context.Context, tripID, seatNumber, fromStopID, toStopID, userID string) (*domain.Availability, error) {
	storeCtx, cancel := s.opts.storeContext(ctx)
	defer cancel()

	trip, err := s.catalog.Trip(storeCtx, tripID)
	if err != nil {
		return nil, storeErr(err)
	}
	seg, err := s.catalog.Segment(storeCtx, trip, fromStopID, toStopID)
	if err != nil {
		return nil, storeErr(err)
	}
	free, err := s.validator.IsSegmentFree(storeCtx, tripID, seatNumber, seg.From, seg.To)
	if err != nil {
		return nil, storeErr(err)
	}
	holds, err := s.holds.ListActiveBySeat(storeCtx, tripID, seatNumber, s.opts.clock.Now())
	if err != nil {
		return nil, storeErr(err)
	}

	heldByOthers := false
	for _, h := range holds {
		if h.UserID != userID {
			heldByOthers = true
			break
		}
	}
	return &domain.Availability{
		TripID:       tripID,
		SeatNumber:   seatNumber,
		FromOrder:    seg.From,
		ToOrder:      seg.To,
		Free:         free,
		HeldByOthers: heldByOthers,
	}, nil
}

func holdExpiredEvent(h *domain.SeatHold, now time.Time) *domain.SeatEvent {
	return &domain.SeatEvent{
		Type:       domain.EventHoldExpired,
		TripID:     h.TripID,
		SeatNumber: h.SeatNumber,
		HoldID:     h.ID,
		Time:       now,
	}
}
