package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/samirrijal/busticket/internal/pkg/logging"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Booking   BookingConfig   `mapstructure:"booking"`
	Sweeper   SweeperConfig   `mapstructure:"sweeper"`
	Notifier  NotifierConfig  `mapstructure:"notifier"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DatabaseConfig struct {
	Host          string        `mapstructure:"host"`
	Port          int           `mapstructure:"port"`
	User          string        `mapstructure:"user"`
	Password      string        `mapstructure:"password"`
	DBName        string        `mapstructure:"dbname"`
	SSLMode       string        `mapstructure:"sslmode"`
	ConnectWait   time.Duration `mapstructure:"connect_wait"`
	MigrationsDir string        `mapstructure:"migrations_dir"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Durable string `mapstructure:"durable"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
	Enabled   bool   `mapstructure:"enabled"`
}

// BookingConfig tunes the hold and ticket services.
type BookingConfig struct {
	HoldTTL      time.Duration `mapstructure:"hold_ttl"`
	StoreTimeout time.Duration `mapstructure:"store_timeout"`
}

// SweeperConfig tunes the background expiry and no-show sweeps.
type SweeperConfig struct {
	HoldInterval   time.Duration `mapstructure:"hold_interval"`
	NoShowInterval time.Duration `mapstructure:"no_show_interval"`
	NoShowGrace    time.Duration `mapstructure:"no_show_grace"`
	BatchSize      int           `mapstructure:"batch_size"`
}

type NotifierConfig struct {
	Provider     string        `mapstructure:"provider"`
	WebhookURL   string        `mapstructure:"webhook_url"`
	WebhookToken string        `mapstructure:"webhook_token"`
	Timeout      time.Duration `mapstructure:"timeout"`
	// Deadline bounds one notice end to end, retries included.
	Deadline time.Duration `mapstructure:"deadline"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()
	setDefaults(v, service)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: BUSTICKET_DATABASE_HOST → database.host
	v.SetEnvPrefix("BUSTICKET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, service string) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "busticket")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "busticket")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.connect_wait", 30*time.Second)
	v.SetDefault("database.migrations_dir", "migrations")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.durable", "busticket-api-cache")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "busticket-notices")
	v.SetDefault("temporal.enabled", false)
	v.SetDefault("booking.hold_ttl", 5*time.Minute)
	v.SetDefault("booking.store_timeout", 5*time.Second)
	v.SetDefault("sweeper.hold_interval", 30*time.Second)
	v.SetDefault("sweeper.no_show_interval", time.Minute)
	v.SetDefault("sweeper.no_show_grace", 5*time.Minute)
	v.SetDefault("sweeper.batch_size", 500)
	v.SetDefault("notifier.provider", "log")
	v.SetDefault("notifier.timeout", 10*time.Second)
	v.SetDefault("notifier.deadline", time.Minute)
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, "log.level: "+err.Error())
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Temporal.Enabled && c.Temporal.HostPort == "" {
		errs = append(errs, "temporal.host_port is required when temporal is enabled")
	}
	if c.Booking.HoldTTL <= 0 {
		errs = append(errs, "booking.hold_ttl must be positive")
	}
	if c.Booking.StoreTimeout < 0 {
		errs = append(errs, "booking.store_timeout must not be negative")
	}
	if c.Sweeper.HoldInterval <= 0 {
		errs = append(errs, "sweeper.hold_interval must be positive")
	}
	if c.Sweeper.NoShowInterval <= 0 {
		errs = append(errs, "sweeper.no_show_interval must be positive")
	}
	if c.Sweeper.NoShowGrace < 0 {
		errs = append(errs, "sweeper.no_show_grace must not be negative")
	}
	if c.Sweeper.BatchSize <= 0 {
		errs = append(errs, "sweeper.batch_size must be positive")
	}
	if c.Notifier.Deadline < 0 {
		errs = append(errs, "notifier.deadline must not be negative")
	}
	switch c.Notifier.Provider {
	case "log", "noop":
	case "webhook":
		if c.Notifier.WebhookURL == "" {
			errs = append(errs, "notifier.webhook_url is required for the webhook provider")
		}
	default:
		errs = append(errs, fmt.Sprintf("notifier.provider must be log, webhook or noop, got %q", c.Notifier.Provider))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
