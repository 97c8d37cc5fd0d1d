package ports

import (
	"context"

	"github.com/samirrijal/busticket/internal/core/domain"
)

// EventPublisher publishes seat inventory events to a message broker.
type EventPublisher interface {
	PublishSeatEvent(ctx context.Context, event *domain.SeatEvent) error
}

// EventSubscriber subscribes to seat inventory events from a message broker.
type EventSubscriber interface {
	SubscribeSeatEvents(ctx context.Context, handler func(ctx context.Context, event *domain.SeatEvent) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// NotificationService delivers passenger notices. Delivery is best-effort.
type NotificationService interface {
	SendTicketCancellation(ctx context.Context, notice domain.CancellationNotice) error
}
