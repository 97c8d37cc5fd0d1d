package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.temporal.io/sdk/client"

	"github.com/samirrijal/busticket/internal/adapters/http"
	natsadapter "github.com/samirrijal/busticket/internal/adapters/nats"
	"github.com/samirrijal/busticket/internal/adapters/notify"
	"github.com/samirrijal/busticket/internal/adapters/postgres"
	"github.com/samirrijal/busticket/internal/adapters/valkey"
	"github.com/samirrijal/busticket/internal/core/domain"
	"github.com/samirrijal/busticket/internal/core/ports"
	"github.com/samirrijal/busticket/internal/core/usecases"
	"github.com/samirrijal/busticket/internal/pkg/config"
	"github.com/samirrijal/busticket/internal/pkg/logging"
	"github.com/samirrijal/busticket/internal/pkg/telemetry"
	"github.com/samirrijal/busticket/internal/workflows"
)

func main() {
	cfg, err := config.Load("busticket-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format, cfg.Telemetry.ServiceName)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.ConnectWait)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go db.ReportPoolStats(ctx, 15*time.Second)

	// Cache. Interface values stay nil when the backend is down.
	var (
		cache       ports.CacheService
		cachePinger http.Pinger
	)
	if vc, err := valkey.New(cfg.Valkey.Addr); err != nil {
		slog.Warn("valkey unavailable, caching disabled", "error", err)
	} else {
		defer vc.Close()
		cache, cachePinger = vc, vc
	}

	// Seat events
	var publisher ports.EventPublisher
	if pub, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable, seat events disabled", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
	}

	// Raw NATS connection for the WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	} else {
		defer natsConn.Close()
	}

	// Sweeps running in other processes change seats behind this
	// process's back; drop the cached listings they touch.
	if cache != nil {
		sub, err := natsadapter.NewSubscriber(cfg.NATS.URL, cfg.NATS.Durable)
		if err != nil {
			slog.Warn("nats subscriber unavailable, cache relies on TTLs", "error", err)
		} else {
			defer sub.Close()
			var events ports.EventSubscriber = sub
			err := events.SubscribeSeatEvents(ctx, func(ctx context.Context, ev *domain.SeatEvent) error {
				if err := usecases.InvalidateSeat(ctx, cache, ev.TripID, ev.SeatNumber); err != nil {
					return err
				}
				return cache.Delete(ctx, usecases.TripCacheKey(ev.TripID))
			})
			if err != nil {
				slog.Warn("seat event subscription failed", "error", err)
			}
		}
	}

	// Cancellation notices
	var notifier ports.NotificationService
	if cfg.Temporal.Enabled {
		tc, err := client.Dial(client.Options{
			HostPort:  cfg.Temporal.HostPort,
			Namespace: cfg.Temporal.Namespace,
			Logger:    slog.Default(),
		})
		if err != nil {
			log.Fatalf("temporal: %v", err)
		}
		defer tc.Close()
		notifier = workflows.NewNotifier(tc, cfg.Temporal.TaskQueue)
	} else {
		provider, err := notify.NewProvider(cfg.Notifier)
		if err != nil {
			log.Fatalf("notifier: %v", err)
		}
		notifier = notify.NewDirect(provider)
	}

	// Repos
	ticketRepo := postgres.NewTicketRepo(db)
	holdRepo := postgres.NewHoldRepo(db)
	catalog := usecases.NewCatalog(
		postgres.NewTripRepo(db),
		postgres.NewStopRepo(db),
		postgres.NewPassengerRepo(db),
		postgres.NewConfigRepo(db),
		cache,
	)

	// Use cases
	opts := []usecases.Option{
		usecases.WithHoldTTL(cfg.Booking.HoldTTL),
		usecases.WithStoreTimeout(cfg.Booking.StoreTimeout),
		usecases.WithNotifyTimeout(cfg.Notifier.Deadline),
	}
	validator := usecases.NewOverlapValidator(ticketRepo)
	holdSvc := usecases.NewHoldService(holdRepo, catalog, validator, publisher, opts...)
	ticketSvc := usecases.NewTicketService(ticketRepo, holdRepo, catalog, validator, publisher, notifier, cache, opts...)

	deps := &http.Dependencies{
		Holds:   holdSvc,
		Tickets: ticketSvc,
		NATS:    natsConn,
		DB:      db,
		Cache:   cachePinger,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    256 * 1024,
		AppName:      "BusTicket API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "http://localhost:3000, http://localhost:5173",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		MaxAge:       3600,
	}))

	http.SetupRoutes(app, deps)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown signal received, draining connections...")

	// Give in-flight requests up to 10s to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	// Let pending cancellation notices finish before their clients close.
	ticketSvc.Wait()

	slog.Info("server stopped")
}
