package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/samirrijal/busticket/internal/pkg/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := config.Load("busticket-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Booking.HoldTTL != 5*time.Minute {
		t.Errorf("expected 5m hold ttl, got %v", cfg.Booking.HoldTTL)
	}
	if cfg.Booking.StoreTimeout != 5*time.Second {
		t.Errorf("expected 5s store timeout, got %v", cfg.Booking.StoreTimeout)
	}
	if cfg.Sweeper.HoldInterval != 30*time.Second || cfg.Sweeper.NoShowInterval != time.Minute {
		t.Errorf("unexpected sweep intervals: %+v", cfg.Sweeper)
	}
	if cfg.Sweeper.BatchSize != 500 {
		t.Errorf("expected batch size 500, got %d", cfg.Sweeper.BatchSize)
	}
	if cfg.Telemetry.ServiceName != "busticket-test" {
		t.Errorf("expected service name default, got %q", cfg.Telemetry.ServiceName)
	}
	if cfg.Notifier.Provider != "log" {
		t.Errorf("expected log provider, got %q", cfg.Notifier.Provider)
	}
	if cfg.Notifier.Deadline != time.Minute {
		t.Errorf("expected 1m notice deadline, got %v", cfg.Notifier.Deadline)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("BUSTICKET_DATABASE_HOST", "db.internal")
	t.Setenv("BUSTICKET_BOOKING_HOLD_TTL", "90s")
	t.Setenv("BUSTICKET_SWEEPER_BATCH_SIZE", "50")

	cfg, err := config.Load("busticket-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.Host != "db.internal" {
		t.Errorf("expected env host, got %q", cfg.Database.Host)
	}
	if cfg.Booking.HoldTTL != 90*time.Second {
		t.Errorf("expected 90s, got %v", cfg.Booking.HoldTTL)
	}
	if cfg.Sweeper.BatchSize != 50 {
		t.Errorf("expected 50, got %d", cfg.Sweeper.BatchSize)
	}
	if !strings.Contains(cfg.Database.DSN(), "@db.internal:5432/busticket") {
		t.Errorf("unexpected dsn %q", cfg.Database.DSN())
	}
}

func validConfig() config.Config {
	return config.Config{
		Server:   config.ServerConfig{Port: 8080, ReadTimeout: 10, WriteTimeout: 10},
		Log:      config.LogConfig{Level: "info"},
		Database: config.DatabaseConfig{Host: "localhost", Port: 5432, User: "u", DBName: "d"},
		NATS:     config.NATSConfig{URL: "nats://localhost:4222"},
		Valkey:   config.ValkeyConfig{Addr: "localhost:6379"},
		Booking:  config.BookingConfig{HoldTTL: time.Minute},
		Sweeper:  config.SweeperConfig{HoldInterval: time.Second, NoShowInterval: time.Second, BatchSize: 1},
		Notifier: config.NotifierConfig{Provider: "noop"},
	}
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_AggregatesErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	cfg.Booking.HoldTTL = 0
	cfg.Sweeper.BatchSize = -1
	cfg.Notifier.Provider = "webhook"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"server.port", "booking.hold_ttl", "sweeper.batch_size", "notifier.webhook_url"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %q", want, err.Error())
		}
	}
}

func TestValidate_UnknownProvider(t *testing.T) {
	cfg := validConfig()
	cfg.Notifier.Provider = "pigeon"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "notifier.provider") {
		t.Errorf("expected provider error, got %v", err)
	}
}
