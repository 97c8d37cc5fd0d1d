package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/samirrijal/busticket/internal/core/domain"
	"github.com/samirrijal/busticket/internal/core/ports"
	"github.com/samirrijal/busticket/internal/pkg/metrics"
)

// IssueTicketInput describes a confirmed purchase.
type IssueTicketInput struct {
	TripID        string
	PassengerID   string
	SeatNumber    string
	FromStopID    string
	ToStopID      string
	Price         decimal.Decimal
	PaymentMethod domain.PaymentMethod
	// HoldID, when set, is consumed in the same transaction as the ticket insert.
	HoldID string
}

func (in *IssueTicketInput) validate() error {
	in.SeatNumber = strings.TrimSpace(in.SeatNumber)
	switch {
	case in.TripID == "" || in.PassengerID == "":
		return fmt.Errorf("%w: trip and passenger are required", domain.ErrInvalidInput)
	case in.SeatNumber == "":
		return fmt.Errorf("%w: seat number is required", domain.ErrInvalidInput)
	case in.FromStopID == "" || in.ToStopID == "":
		return fmt.Errorf("%w: boarding and alighting stops are required", domain.ErrInvalidInput)
	case !in.Price.IsPositive():
		return fmt.Errorf("%w: price must be positive", domain.ErrInvalidInput)
	case !in.PaymentMethod.Valid():
		return fmt.Errorf("%w: unknown payment method %q", domain.ErrInvalidInput, in.PaymentMethod)
	}
	return nil
}

// TicketService runs the ticket lifecycle: issuance, cancellation with
// time-tiered refunds, and read views for admins.
type TicketService struct {
	tickets   ports.TicketRepository
	holds     ports.SeatHoldRepository
	catalog   *Catalog
	validator *OverlapValidator
	publisher ports.EventPublisher
	notifier  ports.NotificationService
	cache     ports.CacheService
	tiers     []domain.RefundTier
	opts      options

	notices sync.WaitGroup
}

// NewTicketService creates a new TicketService. publisher, notifier and cache may be nil.
func NewTicketService(
	tickets ports.TicketRepository,
	holds ports.SeatHoldRepository,
	catalog *Catalog,
	validator *OverlapValidator,
	publisher ports.EventPublisher,
	notifier ports.NotificationService,
	cache ports.CacheService,
	opts ...Option,
) *TicketService {
	return &TicketService{
		tickets:   tickets,
		holds:     holds,
		catalog:   catalog,
		validator: validator,
		publisher: publisher,
		notifier:  notifier,
		cache:     cache,
		tiers:     domain.RefundTiers,
		opts:      newOptions(opts),
	}
}

// SeatTicketsGenKey holds the generation of a seat's cached ticket listing.
func SeatTicketsGenKey(tripID, seatNumber string) string {
	return "tickets:seatgen:" + tripID + ":" + seatNumber
}

// SeatTicketsCacheKey is the cache key of one generation of a seat's ticket
// listing.
func SeatTicketsCacheKey(tripID, seatNumber, gen string) string {
	return "tickets:seat:" + tripID + ":" + seatNumber + ":" + gen
}

// Listings live far shorter than generations, so a listing cached under a
// generation that has since expired is gone too.
const (
	seatListingTTL    = 60
	seatGenerationTTL = 3600
)

// InvalidateSeat starts a new generation for a seat's ticket listing. A
// listing a slow reader caches afterwards under the old generation is never
// read again.
func InvalidateSeat(ctx context.Context, cache ports.CacheService, tripID, seatNumber string) error {
	return cache.Set(ctx, SeatTicketsGenKey(tripID, seatNumber), []byte(uuid.NewString()), seatGenerationTTL)
}

func seatGeneration(ctx context.Context, cache ports.CacheService, tripID, seatNumber string) string {
	gen, err := cache.Get(ctx, SeatTicketsGenKey(tripID, seatNumber))
	if err != nil || len(gen) == 0 {
		return "0"
	}
	return string(gen)
}

// Issue sells a seat segment. The overlap check and the insert run under the
// seat lock, so of two racing purchases for overlapping segments exactly one
// succeeds and the other gets ErrSeatUnavailable.
func (s *TicketService) Issue(ctx context.Context, in IssueTicketInput) (*domain.Ticket, error) {
	ctx, span := tracer.Start(ctx, "TicketService.Issue")
	defer span.End()

	if err := in.validate(); err != nil {
		return nil, err
	}

	storeCtx, cancel := s.opts.storeContext(ctx)
	defer cancel()

	trip, err := s.catalog.FreshTrip(storeCtx, in.TripID)
	if err != nil {
		return nil, storeErr(err)
	}
	if !trip.Status.Sellable() {
		return nil, fmt.Errorf("%w: trip %s is %s", domain.ErrInvalidState, trip.ID, trip.Status)
	}
	if _, err := s.catalog.Passenger(storeCtx, in.PassengerID); err != nil {
		return nil, storeErr(err)
	}
	seg, err := s.catalog.Segment(storeCtx, trip, in.FromStopID, in.ToStopID)
	if err != nil {
		return nil, storeErr(err)
	}

	now := s.opts.clock.Now()
	ticket := &domain.Ticket{
		ID:            uuid.NewString(),
		TripID:        in.TripID,
		PassengerID:   in.PassengerID,
		SeatNumber:    in.SeatNumber,
		FromStopID:    in.FromStopID,
		ToStopID:      in.ToStopID,
		FromOrder:     seg.From,
		ToOrder:       seg.To,
		Price:         in.Price,
		PaymentMethod: in.PaymentMethod,
		Status:        domain.TicketSold,
		QRCode:        "BT-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.tickets.WithSeatLock(storeCtx, in.TripID, in.SeatNumber, func(txCtx context.Context) error {
		var hold *domain.SeatHold
		if in.HoldID != "" {
			h, err := s.checkHold(txCtx, in, now)
			if err != nil {
				return err
			}
			hold = h
		}

		conflict, err := s.validator.FindConflict(txCtx, in.TripID, in.SeatNumber, seg)
		if err != nil {
			return err
		}
		if conflict != nil {
			metrics.SeatConflicts.Inc()
			return fmt.Errorf("%w: seat %s on trip %s is already sold for stops %d to %d",
				domain.ErrSeatUnavailable, in.SeatNumber, in.TripID, conflict.FromOrder, conflict.ToOrder)
		}

		if hold != nil {
			ok, err := s.holds.Consume(txCtx, hold.ID, now)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: hold %s is no longer active", domain.ErrInvalidState, hold.ID)
			}
		}
		return s.tickets.Create(txCtx, ticket)
	})
	if err != nil {
		span.RecordError(err)
		return nil, storeErr(err)
	}

	metrics.TicketsIssued.Inc()
	s.invalidate(ctx, ticket)
	slog.InfoContext(ctx, "ticket issued",
		"ticket_id", ticket.ID, "trip_id", ticket.TripID, "seat", ticket.SeatNumber, "segment", seg.String())

	if in.HoldID != "" {
		publish(ctx, s.publisher, &domain.SeatEvent{
			Type: domain.EventHoldConsumed, TripID: ticket.TripID, SeatNumber: ticket.SeatNumber,
			HoldID: in.HoldID, TicketID: ticket.ID, Time: now,
		})
	}
	publish(ctx, s.publisher, ticketEvent(domain.EventTicketIssued, ticket, now))
	return ticket, nil
}

func (s *TicketService) checkHold(ctx context.Context, in IssueTicketInput, now time.Time) (*domain.SeatHold, error) {
	hold, err := s.holds.GetByID(ctx, in.HoldID)
	if err != nil {
		return nil, err
	}
	if hold.TripID != in.TripID || hold.SeatNumber != in.SeatNumber {
		return nil, fmt.Errorf("%w: hold %s is for another trip or seat", domain.ErrInvalidState, hold.ID)
	}
	if !hold.ActiveAt(now) {
		return nil, fmt.Errorf("%w: hold %s is no longer active", domain.ErrInvalidState, hold.ID)
	}
	return hold, nil
}

// Cancel moves a SOLD ticket to CANCELLED and records the refund owed for the
// time left before departure. Cancellations inside the last refund tier's
// window are rejected without any change.
func (s *TicketService) Cancel(ctx context.Context, id string) (*domain.Ticket, error) {
	ctx, span := tracer.Start(ctx, "TicketService.Cancel")
	defer span.End()

	storeCtx, cancel := s.opts.storeContext(ctx)
	defer cancel()

	ticket, err := s.tickets.GetByID(storeCtx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	if ticket.Status != domain.TicketSold {
		return nil, errOnlySold(ticket)
	}

	trip, err := s.catalog.FreshTrip(storeCtx, ticket.TripID)
	if err != nil {
		return nil, storeErr(err)
	}

	now := s.opts.clock.Now()
	hours := trip.DepartureAt.Sub(now).Hours()
	tier, err := domain.MatchRefundTier(s.tiers, hours)
	if err != nil {
		return nil, err
	}
	percent, err := s.catalog.ConfigValue(storeCtx, tier.ConfigKey)
	if err != nil {
		return nil, storeErr(fmt.Errorf("refund percentage %s: %w", tier.ConfigKey, err))
	}
	refund, err := domain.RefundAmount(ticket.Price, percent)
	if err != nil {
		return nil, err
	}

	ok, err := s.tickets.Cancel(storeCtx, ticket.ID, refund, now)
	if err != nil {
		span.RecordError(err)
		return nil, storeErr(err)
	}
	if !ok {
		// Lost the race against the no-show sweep or a concurrent cancel.
		current, err := s.tickets.GetByID(storeCtx, ticket.ID)
		if err != nil {
			return nil, storeErr(err)
		}
		return nil, errOnlySold(current)
	}

	ticket.Status = domain.TicketCancelled
	ticket.RefundAmount = &refund
	ticket.UpdatedAt = now

	metrics.TicketsCancelled.Inc()
	metrics.RefundAmount.Add(refund.InexactFloat64())
	s.invalidate(ctx, ticket)
	slog.InfoContext(ctx, "ticket cancelled",
		"ticket_id", ticket.ID, "hours_until_departure", hours, "refund_tier", tier.ConfigKey, "refund", refund.String())
	publish(ctx, s.publisher, ticketEvent(domain.EventTicketCancelled, ticket, now))

	s.notifyCancellation(ctx, ticket, refund)
	return ticket, nil
}

// notifyCancellation hands the notice to the notifier in the background.
// The cancellation is already committed; delivery has its own deadline and
// outlives the request.
func (s *TicketService) notifyCancellation(ctx context.Context, ticket *domain.Ticket, refund decimal.Decimal) {
	if s.notifier == nil {
		return
	}
	t := *ticket
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.notifyTimeout)
	s.notices.Add(1)
	go func() {
		defer s.notices.Done()
		defer cancel()
		s.sendNotice(nctx, &t, refund)
	}()
}

func (s *TicketService) sendNotice(ctx context.Context, ticket *domain.Ticket, refund decimal.Decimal) {
	storeCtx, cancel := s.opts.storeContext(ctx)
	passenger, err := s.catalog.Passenger(storeCtx, ticket.PassengerID)
	cancel()
	if err != nil {
		slog.WarnContext(ctx, "cancellation notice skipped", "ticket_id", ticket.ID, "error", storeErr(err))
		return
	}
	notice := domain.CancellationNotice{
		Phone:         passenger.Phone,
		Name:          passenger.Name,
		TicketID:      ticket.ID,
		RefundAmount:  refund,
		PaymentMethod: ticket.PaymentMethod,
	}
	if err := s.notifier.SendTicketCancellation(ctx, notice); err != nil {
		slog.WarnContext(ctx, "cancellation notice failed", "ticket_id", ticket.ID, "error", err)
	}
}

// Wait blocks until every cancellation notice handed off so far has been
// delivered or given up on.
func (s *TicketService) Wait() {
	s.notices.Wait()
}

// Get returns a ticket by id.
func (s *TicketService) Get(ctx context.Context, id string) (*domain.Ticket, error) {
	storeCtx, cancel := s.opts.storeContext(ctx)
	defer cancel()

	t, err := s.tickets.GetByID(storeCtx, id)
	return t, storeErr(err)
}

// ListByTrip returns one page of a trip's tickets and the total count.
func (s *TicketService) ListByTrip(ctx context.Context, tripID string, limit, offset int) ([]domain.Ticket, int, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	storeCtx, cancel := s.opts.storeContext(ctx)
	defer cancel()

	tickets, total, err := s.tickets.ListByTrip(storeCtx, tripID, limit, offset)
	return tickets, total, storeErr(err)
}

// ListBySeat returns every ticket ever sold on a seat, cancelled ones
// included, ordered by boarding stop.
func (s *TicketService) ListBySeat(ctx context.Context, tripID, seatNumber string) ([]domain.Ticket, error) {
	var cacheKey string
	if s.cache != nil {
		cacheKey = SeatTicketsCacheKey(tripID, seatNumber, seatGeneration(ctx, s.cache, tripID, seatNumber))
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var tickets []domain.Ticket
			if err := json.Unmarshal(data, &tickets); err == nil {
				return tickets, nil
			}
		}
	}

	storeCtx, cancel := s.opts.storeContext(ctx)
	defer cancel()

	tickets, err := s.tickets.ListBySeat(storeCtx, tripID, seatNumber)
	if err != nil {
		return nil, storeErr(err)
	}

	if s.cache != nil {
		if data, err := json.Marshal(tickets); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, seatListingTTL)
		}
	}
	return tickets, nil
}

func (s *TicketService) invalidate(ctx context.Context, t *domain.Ticket) {
	if s.cache == nil {
		return
	}
	if err := InvalidateSeat(ctx, s.cache, t.TripID, t.SeatNumber); err != nil {
		slog.WarnContext(ctx, "seat listing invalidation failed", "trip_id", t.TripID, "seat", t.SeatNumber, "error", err)
	}
}

func errOnlySold(t *domain.Ticket) error {
	return fmt.Errorf("%w: only SOLD tickets can be cancelled (ticket %s is %s)", domain.ErrInvalidState, t.ID, t.Status)
}

func ticketEvent(typ domain.SeatEventType, t *domain.Ticket, now time.Time) *domain.SeatEvent {
	return &domain.SeatEvent{
		Type:       typ,
		TripID:     t.TripID,
		SeatNumber: t.SeatNumber,
		TicketID:   t.ID,
		FromOrder:  t.FromOrder,
		ToOrder:    t.ToOrder,
		Time:       now,
	}
}
