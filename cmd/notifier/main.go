package main

import (
	"log"
	"log/slog"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/samirrijal/busticket/internal/adapters/notify"
	"github.com/samirrijal/busticket/internal/pkg/config"
	"github.com/samirrijal/busticket/internal/pkg/logging"
	"github.com/samirrijal/busticket/internal/workflows"
)

func main() {
	cfg, err := config.Load("busticket-notifier")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format, cfg.Telemetry.ServiceName)

	provider, err := notify.NewProvider(cfg.Notifier)
	if err != nil {
		log.Fatalf("notification provider: %v", err)
	}

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    slog.Default(),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	// Register workflow & activities
	w.RegisterWorkflow(workflows.CancellationNoticeWorkflow)
	w.RegisterActivity(&workflows.Activities{Provider: provider})

	slog.Info("notifier worker started", "task_queue", cfg.Temporal.TaskQueue, "provider", cfg.Notifier.Provider)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
