package usecases_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/facebookgo/clock"
	"github.com/shopspring/decimal"

	"github.com/samirrijal/busticket/internal/adapters/memory"
	"github.com/samirrijal/busticket/internal/core/domain"
	"github.com/samirrijal/busticket/internal/core/usecases"
)

// --- Recording EventPublisher ---

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.SeatEvent
}

func (p *recordingPublisher) PublishSeatEvent(ctx context.Context, e *domain.SeatEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, *e)
	return nil
}

func (p *recordingPublisher) count(typ domain.SeatEventType) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

// --- Mock NotificationService ---

type mockNotifier struct {
	mu      sync.Mutex
	sendFn  func(ctx context.Context, n domain.CancellationNotice) error
	notices []domain.CancellationNotice
}

func (m *mockNotifier) SendTicketCancellation(ctx context.Context, n domain.CancellationNotice) error {
	m.mu.Lock()
	m.notices = append(m.notices, n)
	m.mu.Unlock()
	if m.sendFn != nil {
		return m.sendFn(ctx, n)
	}
	return nil
}

// --- In-memory CacheService ---

type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMapCache() *mapCache { return &mapCache{data: map[string][]byte{}} }

func (c *mapCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return nil, errors.New("cache miss")
	}
	return v, nil
}

func (c *mapCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *mapCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

// --- Fixture ---

const (
	tripID      = "trip-1"
	routeID     = "route-1"
	passengerID = "pax-1"
)

type fixture struct {
	store     *memory.Store
	clock     *clock.Mock
	events    *recordingPublisher
	notifier  *mockNotifier
	validator *usecases.OverlapValidator
	holds     *usecases.HoldService
	tickets   *usecases.TicketService
	sweeper   *usecases.Sweeper
}

// newFixture seeds one trip on a six-stop route (orders 0..5, ids s0..s5)
// departing departIn after the mock clock's now.
func newFixture(t *testing.T, departIn time.Duration) *fixture {
	t.Helper()
	mock := clock.NewMock()
	mock.Add(72 * time.Hour)

	store := memory.New()
	store.PutTrip(domain.Trip{
		ID:          tripID,
		RouteID:     routeID,
		BusID:       "bus-1",
		DepartureAt: mock.Now().Add(departIn),
		ArrivalETA:  mock.Now().Add(departIn + 6*time.Hour),
		Status:      domain.TripScheduled,
	})
	for i := 0; i < 6; i++ {
		store.PutStop(domain.Stop{ID: stopID(i), RouteID: routeID, Order: i})
	}
	store.PutStop(domain.Stop{ID: "elsewhere", RouteID: "route-2", Order: 3})
	store.PutPassenger(domain.Passenger{ID: passengerID, Name: "Ana Pérez", Phone: "+34600000000"})
	store.SetConfig(domain.ConfigRefund24h, decimal.NewFromInt(100))
	store.SetConfig(domain.ConfigRefund12h, decimal.NewFromInt(50))
	store.SetConfig(domain.ConfigRefund2h, decimal.Zero)

	f := &fixture{store: store, clock: mock, events: &recordingPublisher{}, notifier: &mockNotifier{}}
	catalog := usecases.NewCatalog(store.Trips(), store.Stops(), store.Passengers(), store.Config(), nil)
	f.validator = usecases.NewOverlapValidator(store.Tickets())
	opts := []usecases.Option{usecases.WithClock(mock), usecases.WithHoldTTL(5 * time.Minute)}
	f.holds = usecases.NewHoldService(store.Holds(), catalog, f.validator, f.events, opts...)
	f.tickets = usecases.NewTicketService(store.Tickets(), store.Holds(), catalog, f.validator, f.events, f.notifier, nil, opts...)
	f.sweeper = usecases.NewSweeper(store.Tickets(), store.Holds(), f.events, opts...)
	return f
}

func stopID(order int) string {
	return "s" + string(rune('0'+order))
}

func (f *fixture) issue(seat string, from, to int) (*domain.Ticket, error) {
	return f.tickets.Issue(context.Background(), usecases.IssueTicketInput{
		TripID:        tripID,
		PassengerID:   passengerID,
		SeatNumber:    seat,
		FromStopID:    stopID(from),
		ToStopID:      stopID(to),
		Price:         decimal.RequireFromString("40.00"),
		PaymentMethod: domain.PaymentCard,
	})
}

func (f *fixture) mustIssue(t *testing.T, seat string, from, to int) *domain.Ticket {
	t.Helper()
	tk, err := f.issue(seat, from, to)
	if err != nil {
		t.Fatalf("issue %s [%d,%d): %v", seat, from, to, err)
	}
	return tk
}

func expectErr(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("expected %v, got %v", target, err)
	}
}
