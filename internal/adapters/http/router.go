package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/busticket/internal/pkg/metrics"
)

const requestTimeout = 15 * time.Second

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout; fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")

	// Holds
	v1.Post("/holds", timeout.NewWithContext(CreateHoldHandler(deps), requestTimeout))
	v1.Post("/holds/expire-all", timeout.NewWithContext(ExpireAllHoldsHandler(deps), requestTimeout))
	v1.Get("/holds/:id", timeout.NewWithContext(GetHoldHandler(deps), requestTimeout))
	v1.Post("/holds/:id/expire", timeout.NewWithContext(ExpireHoldHandler(deps), requestTimeout))

	// Tickets
	v1.Post("/tickets", timeout.NewWithContext(IssueTicketHandler(deps), requestTimeout))
	v1.Get("/tickets/:id", timeout.NewWithContext(GetTicketHandler(deps), requestTimeout))
	v1.Post("/tickets/:id/cancel", timeout.NewWithContext(CancelTicketHandler(deps), requestTimeout))

	// Seat inventory by trip
	v1.Get("/trips/:id/tickets", timeout.NewWithContext(TripTicketsHandler(deps), requestTimeout))
	v1.Get("/trips/:id/seats/:seat/tickets", timeout.NewWithContext(SeatTicketsHandler(deps), requestTimeout))
	v1.Get("/trips/:id/seats/:seat/availability", timeout.NewWithContext(SeatAvailabilityHandler(deps), requestTimeout))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// API documentation (Swagger UI)
	docs := deps.DocsPath
	if docs == "" {
		docs = "api/openapi.yaml"
	}
	SetupDocs(app, docs)

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}
