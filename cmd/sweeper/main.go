package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"

	natsadapter "github.com/samirrijal/busticket/internal/adapters/nats"
	"github.com/samirrijal/busticket/internal/adapters/postgres"
	"github.com/samirrijal/busticket/internal/core/ports"
	"github.com/samirrijal/busticket/internal/core/usecases"
	"github.com/samirrijal/busticket/internal/pkg/config"
	"github.com/samirrijal/busticket/internal/pkg/logging"
	"github.com/samirrijal/busticket/internal/pkg/metrics"
	"github.com/samirrijal/busticket/internal/pkg/telemetry"
	"github.com/samirrijal/busticket/internal/scheduler"
)

func main() {
	cfg, err := config.Load("busticket-sweeper")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format, cfg.Telemetry.ServiceName)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.ConnectWait)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Events are best-effort; sweeps run without a broker.
	var publisher ports.EventPublisher
	if nc, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable, seat events disabled", "error", err)
	} else {
		defer nc.Close()
		publisher = nc
	}

	sweeper := usecases.NewSweeper(
		postgres.NewTicketRepo(db),
		postgres.NewHoldRepo(db),
		publisher,
		usecases.WithNoShowGrace(cfg.Sweeper.NoShowGrace),
		usecases.WithBatchSize(cfg.Sweeper.BatchSize),
		usecases.WithStoreTimeout(cfg.Booking.StoreTimeout),
	)

	jobs := []*scheduler.Periodic{
		{Name: "expire_holds", Interval: cfg.Sweeper.HoldInterval, Task: sweeper.ExpireHolds},
		{Name: "mark_no_shows", Interval: cfg.Sweeper.NoShowInterval, Task: sweeper.MarkNoShows},
	}

	var wg sync.WaitGroup
	for _, job := range jobs {
		wg.Add(1)
		go func(p *scheduler.Periodic) {
			defer wg.Done()
			p.Run(ctx)
		}(job)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		db.ReportPoolStats(ctx, 15*time.Second)
	}()

	// Metrics only; the sweeper serves no API.
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/metrics", metrics.Handler())
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		if err := app.Listen(addr); err != nil {
			slog.Error("metrics listener stopped", "error", err)
		}
	}()

	slog.Info("sweeper started",
		"hold_interval", cfg.Sweeper.HoldInterval.String(),
		"no_show_interval", cfg.Sweeper.NoShowInterval.String(),
		"batch_size", cfg.Sweeper.BatchSize)

	<-ctx.Done()
	slog.Info("shutdown signal received, waiting for sweeps to finish")

	_ = app.ShutdownWithTimeout(5 * time.Second)
	wg.Wait()
	slog.Info("sweeper stopped")
}
