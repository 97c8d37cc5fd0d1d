// Package memory is an in-process store for local runs and tests. It keeps
// the same locking and guarded-update contract as the postgres adapter.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/samirrijal/busticket/internal/core/domain"
)

// Store holds every table in maps behind one RWMutex.
type Store struct {
	mu         sync.RWMutex
	tickets    map[string]domain.Ticket
	holds      map[string]domain.SeatHold
	trips      map[string]domain.Trip
	stops      map[string]domain.Stop
	passengers map[string]domain.Passenger
	config     map[string]decimal.Decimal

	seatLocks sync.Map // "trip\x00seat" -> *sync.Mutex
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		tickets:    make(map[string]domain.Ticket),
		holds:      make(map[string]domain.SeatHold),
		trips:      make(map[string]domain.Trip),
		stops:      make(map[string]domain.Stop),
		passengers: make(map[string]domain.Passenger),
		config:     make(map[string]decimal.Decimal),
	}
}

// PutTrip inserts or replaces a trip.
func (s *Store) PutTrip(t domain.Trip) {
	s.mu.Lock()
	s.trips[t.ID] = t
	s.mu.Unlock()
}

// PutStop inserts or replaces a stop.
func (s *Store) PutStop(st domain.Stop) {
	s.mu.Lock()
	s.stops[st.ID] = st
	s.mu.Unlock()
}

// PutPassenger inserts or replaces a passenger.
func (s *Store) PutPassenger(p domain.Passenger) {
	s.mu.Lock()
	s.passengers[p.ID] = p
	s.mu.Unlock()
}

// PutTicket inserts or replaces a ticket without any overlap check.
func (s *Store) PutTicket(t domain.Ticket) {
	s.mu.Lock()
	s.tickets[t.ID] = t
	s.mu.Unlock()
}

// PutHold inserts or replaces a hold.
func (s *Store) PutHold(h domain.SeatHold) {
	s.mu.Lock()
	s.holds[h.ID] = h
	s.mu.Unlock()
}

// SetConfig sets a decimal setting.
func (s *Store) SetConfig(key string, v decimal.Decimal) {
	s.mu.Lock()
	s.config[key] = v
	s.mu.Unlock()
}

// Tickets returns the ticket repository view.
func (s *Store) Tickets() *TicketRepo { return &TicketRepo{s: s} }

// Holds returns the seat hold repository view.
func (s *Store) Holds() *HoldRepo { return &HoldRepo{s: s} }

// Trips returns the trip lookup view.
func (s *Store) Trips() *TripRepo { return &TripRepo{s: s} }

// Stops returns the stop lookup view.
func (s *Store) Stops() *StopRepo { return &StopRepo{s: s} }

// Passengers returns the passenger lookup view.
func (s *Store) Passengers() *PassengerRepo { return &PassengerRepo{s: s} }

// Config returns the settings lookup view.
func (s *Store) Config() *ConfigRepo { return &ConfigRepo{s: s} }

func (s *Store) seatLock(tripID, seatNumber string) *sync.Mutex {
	l, _ := s.seatLocks.LoadOrStore(tripID+"\x00"+seatNumber, &sync.Mutex{})
	return l.(*sync.Mutex)
}

// TicketRepo implements ports.TicketRepository.
type TicketRepo struct{ s *Store }

// WithSeatLock serialises fn against every other caller for the same seat.
func (r *TicketRepo) WithSeatLock(ctx context.Context, tripID, seatNumber string, fn func(ctx context.Context) error) error {
	l := r.s.seatLock(tripID, seatNumber)
	l.Lock()
	defer l.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}

func (r *TicketRepo) ListActiveBySeat(_ context.Context, tripID, seatNumber string) ([]domain.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Ticket
	for _, t := range r.s.tickets {
		if t.TripID == tripID && t.SeatNumber == seatNumber && t.Status != domain.TicketCancelled {
			out = append(out, t)
		}
	}
	sortBySegment(out)
	return out, nil
}

func (r *TicketRepo) Create(_ context.Context, t *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tickets[t.ID]; ok {
		return fmt.Errorf("ticket %s already exists", t.ID)
	}
	for _, other := range r.s.tickets {
		if other.QRCode == t.QRCode {
			return fmt.Errorf("qr code %s already issued", t.QRCode)
		}
	}
	r.s.tickets[t.ID] = *t
	return nil
}

func (r *TicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.tickets[id]
	if !ok {
		return nil, fmt.Errorf("%w: ticket %s", domain.ErrNotFound, id)
	}
	return &t, nil
}

func (r *TicketRepo) Cancel(_ context.Context, id string, refund decimal.Decimal, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tickets[id]
	if !ok || t.Status != domain.TicketSold {
		return false, nil
	}
	t.Status = domain.TicketCancelled
	t.RefundAmount = &refund
	t.UpdatedAt = at
	r.s.tickets[id] = t
	return true, nil
}

func (r *TicketRepo) MarkNoShow(_ context.Context, id string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tickets[id]
	if !ok || t.Status != domain.TicketSold {
		return false, nil
	}
	t.Status = domain.TicketNoShow
	t.UpdatedAt = at
	r.s.tickets[id] = t
	return true, nil
}

func (r *TicketRepo) ListNoShowCandidates(_ context.Context, cutoff time.Time, limit int) ([]domain.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Ticket
	for _, t := range r.s.tickets {
		if t.Status != domain.TicketSold {
			continue
		}
		trip, ok := r.s.trips[t.TripID]
		if ok && trip.DepartureAt.Before(cutoff) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *TicketRepo) ListByTrip(_ context.Context, tripID string, limit, offset int) ([]domain.Ticket, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var all []domain.Ticket
	for _, t := range r.s.tickets {
		if t.TripID == tripID {
			all = append(all, t)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].SeatNumber != all[j].SeatNumber {
			return all[i].SeatNumber < all[j].SeatNumber
		}
		return all[i].FromOrder < all[j].FromOrder
	})
	total := len(all)
	if offset >= total {
		return []domain.Ticket{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (r *TicketRepo) ListBySeat(_ context.Context, tripID, seatNumber string) ([]domain.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.Ticket{}
	for _, t := range r.s.tickets {
		if t.TripID == tripID && t.SeatNumber == seatNumber {
			out = append(out, t)
		}
	}
	sortBySegment(out)
	return out, nil
}

func sortBySegment(ts []domain.Ticket) {
	sort.Slice(ts, func(i, j int) bool {
		if ts[i].FromOrder != ts[j].FromOrder {
			return ts[i].FromOrder < ts[j].FromOrder
		}
		return ts[i].CreatedAt.Before(ts[j].CreatedAt)
	})
}

// HoldRepo implements ports.SeatHoldRepository.
type HoldRepo struct{ s *Store }

func (r *HoldRepo) Create(_ context.Context, h *domain.SeatHold) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.holds[h.ID]; ok {
		return fmt.Errorf("hold %s already exists", h.ID)
	}
	r.s.holds[h.ID] = *h
	return nil
}

func (r *HoldRepo) GetByID(_ context.Context, id string) (*domain.SeatHold, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	h, ok := r.s.holds[id]
	if !ok {
		return nil, fmt.Errorf("%w: hold %s", domain.ErrNotFound, id)
	}
	return &h, nil
}

func (r *HoldRepo) Expire(_ context.Context, id string, _ time.Time) (bool, error) {
	return r.transition(id, domain.HoldExpired), nil
}

func (r *HoldRepo) Consume(_ context.Context, id string, _ time.Time) (bool, error) {
	return r.transition(id, domain.HoldConsumed), nil
}

func (r *HoldRepo) transition(id string, to domain.HoldStatus) bool {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	h, ok := r.s.holds[id]
	if !ok || h.Status != domain.HoldActive {
		return false
	}
	h.Status = to
	r.s.holds[id] = h
	return true
}

func (r *HoldRepo) ExpireAll(_ context.Context, now time.Time) ([]domain.SeatHold, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.SeatHold
	for id, h := range r.s.holds {
		if h.Status == domain.HoldActive && h.ExpiresAt.Before(now) {
			h.Status = domain.HoldExpired
			r.s.holds[id] = h
			out = append(out, h)
		}
	}
	return out, nil
}

func (r *HoldRepo) ListExpired(_ context.Context, now time.Time, limit int) ([]domain.SeatHold, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.SeatHold
	for _, h := range r.s.holds {
		if h.Status == domain.HoldActive && h.ExpiresAt.Before(now) {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *HoldRepo) ListActiveBySeat(_ context.Context, tripID, seatNumber string, now time.Time) ([]domain.SeatHold, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.SeatHold
	for _, h := range r.s.holds {
		if h.TripID == tripID && h.SeatNumber == seatNumber && h.ActiveAt(now) {
			out = append(out, h)
		}
	}
	return out, nil
}

// TripRepo implements ports.TripRepository.
type TripRepo struct{ s *Store }

func (r *TripRepo) GetByID(_ context.Context, id string) (*domain.Trip, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.trips[id]
	if !ok {
		return nil, fmt.Errorf("%w: trip %s", domain.ErrNotFound, id)
	}
	return &t, nil
}

// StopRepo implements ports.StopRepository.
type StopRepo struct{ s *Store }

func (r *StopRepo) GetByID(_ context.Context, id string) (*domain.Stop, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	st, ok := r.s.stops[id]
	if !ok {
		return nil, fmt.Errorf("%w: stop %s", domain.ErrNotFound, id)
	}
	return &st, nil
}

// PassengerRepo implements ports.PassengerRepository.
type PassengerRepo struct{ s *Store }

func (r *PassengerRepo) GetByID(_ context.Context, id string) (*domain.Passenger, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.passengers[id]
	if !ok {
		return nil, fmt.Errorf("%w: passenger %s", domain.ErrNotFound, id)
	}
	return &p, nil
}

// ConfigRepo implements ports.ConfigRepository.
type ConfigRepo struct{ s *Store }

func (r *ConfigRepo) GetValue(_ context.Context, key string) (decimal.Decimal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	v, ok := r.s.config[key]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: config %s", domain.ErrNotFound, key)
	}
	return v, nil
}
