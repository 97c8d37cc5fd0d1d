package usecases

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/samirrijal/busticket/internal/core/domain"
	"github.com/samirrijal/busticket/internal/core/ports"
)

// Catalog reads the collaborator data the booking core depends on: trips,
// stops, passengers and runtime settings.
type Catalog struct {
	trips      ports.TripRepository
	stops      ports.StopRepository
	passengers ports.PassengerRepository
	config     ports.ConfigRepository
	cache      ports.CacheService
}

// NewCatalog creates a new Catalog. cache may be nil.
func NewCatalog(
	trips ports.TripRepository,
	stops ports.StopRepository,
	passengers ports.PassengerRepository,
	config ports.ConfigRepository,
	cache ports.CacheService,
) *Catalog {
	return &Catalog{trips: trips, stops: stops, passengers: passengers, config: config, cache: cache}
}

// TripCacheKey is the cache key of a single trip.
func TripCacheKey(id string) string { return "trips:id:" + id }

// Trip returns a trip. Cached briefly since status changes during the day.
func (c *Catalog) Trip(ctx context.Context, id string) (*domain.Trip, error) {
	var trip domain.Trip
	if c.cached(ctx, TripCacheKey(id), &trip) {
		return &trip, nil
	}
	t, err := c.trips.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.store(ctx, TripCacheKey(id), t, 30)
	return t, nil
}

// FreshTrip reads a trip from the store and refreshes its cache entry.
// Selling and refunding use it so a status or departure change takes effect
// immediately.
func (c *Catalog) FreshTrip(ctx context.Context, id string) (*domain.Trip, error) {
	t, err := c.trips.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.store(ctx, TripCacheKey(id), t, 30)
	return t, nil
}

// Stop returns a stop.
func (c *Catalog) Stop(ctx context.Context, id string) (*domain.Stop, error) {
	cacheKey := "stops:id:" + id
	var stop domain.Stop
	if c.cached(ctx, cacheKey, &stop) {
		return &stop, nil
	}
	s, err := c.stops.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.store(ctx, cacheKey, s, 600)
	return s, nil
}

// Passenger returns contact details. Never cached.
func (c *Catalog) Passenger(ctx context.Context, id string) (*domain.Passenger, error) {
	return c.passengers.GetByID(ctx, id)
}

// ConfigValue returns a decimal setting such as a refund percentage.
func (c *Catalog) ConfigValue(ctx context.Context, key string) (decimal.Decimal, error) {
	cacheKey := "config:" + key
	var v decimal.Decimal
	if c.cached(ctx, cacheKey, &v) {
		return v, nil
	}
	v, err := c.config.GetValue(ctx, key)
	if err != nil {
		return decimal.Zero, err
	}
	c.store(ctx, cacheKey, v, 60)
	return v, nil
}

// Segment resolves two stop ids into a segment on the trip's route.
func (c *Catalog) Segment(ctx context.Context, trip *domain.Trip, fromStopID, toStopID string) (domain.Segment, error) {
	from, err := c.Stop(ctx, fromStopID)
	if err != nil {
		return domain.Segment{}, fmt.Errorf("boarding stop: %w", err)
	}
	to, err := c.Stop(ctx, toStopID)
	if err != nil {
		return domain.Segment{}, fmt.Errorf("alighting stop: %w", err)
	}
	if from.RouteID != trip.RouteID || to.RouteID != trip.RouteID {
		return domain.Segment{}, fmt.Errorf("%w: stops %s and %s are not both on route %s", domain.ErrInvalidSegment, from.ID, to.ID, trip.RouteID)
	}
	return domain.NewSegment(from.Order, to.Order)
}

func (c *Catalog) cached(ctx context.Context, key string, dst any) bool {
	if c.cache == nil {
		return false
	}
	data, err := c.cache.Get(ctx, key)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

func (c *Catalog) store(ctx context.Context, key string, v any, ttlSeconds int) {
	if c.cache == nil {
		return
	}
	if data, err := json.Marshal(v); err == nil {
		_ = c.cache.Set(ctx, key, data, ttlSeconds)
	}
}
