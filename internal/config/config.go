package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	// Server
	Port        int      `envconfig:"PORT" default:"8080"`
	Environment string   `envconfig:"ENV" default:"development"`
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`

	// Storage
	Store        string `envconfig:"STORE" default:"postgres"`
	DatabaseURL  string `envconfig:"DATABASE_URL"`
	DatabaseName string `envconfig:"DATABASE_NAME" default:"parkops"`

	// Notifications
	RedisURL            string `envconfig:"REDIS_URL"`
	NotifyChannelPrefix string `envconfig:"NOTIFY_CHANNEL_PREFIX" default:"parkops:tickets"`

	// Security
	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`

	// Reconciliation
	ScanSchedule    string        `envconfig:"SCAN_SCHEDULE" default:"@every 30s"`
	ScanBatchSize   int           `envconfig:"SCAN_BATCH_SIZE" default:"100"`
	ScanConcurrency int           `envconfig:"SCAN_CONCURRENCY" default:"4"`
	ScanTimeout     time.Duration `envconfig:"SCAN_TIMEOUT" default:"25s"`

	// Telemetry. Tracing stays off while OTLPEndpoint is empty.
	OTelServiceName string `envconfig:"OTEL_SERVICE_NAME" default:"parkops"`
	OTLPEndpoint    string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure    bool   `envconfig:"OTEL_EXPORTER_OTLP_INSECURE" default:"false"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Store {
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL not set")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown STORE %q", c.Store)
	}
	if c.ScanBatchSize <= 0 {
		return errors.New("SCAN_BATCH_SIZE must be positive")
	}
	if c.ScanConcurrency <= 0 {
		return errors.New("SCAN_CONCURRENCY must be positive")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
