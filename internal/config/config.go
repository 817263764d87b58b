// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Tier identifies a position in the service chain.
type Tier string

const (
	TierFront  Tier = "front"
	TierMiddle Tier = "middle"
	TierData   Tier = "data"
)

// IsValid reports whether t is a known tier.
func (t Tier) IsValid() bool {
	switch t {
	case TierFront, TierMiddle, TierData:
		return true
	}
	return false
}

// Forwards reports whether the tier relays requests to a downstream tier.
func (t Tier) Forwards() bool {
	return t == TierFront || t == TierMiddle
}

// DefaultServiceName is the service identifier used when SERVICE_NAME is unset.
func (t Tier) DefaultServiceName() string {
	switch t {
	case TierFront:
		return "service-a"
	case TierMiddle:
		return "service-b"
	default:
		return "service-c"
	}
}

// DefaultPort is the listen port used when APP_PORT is unset.
func (t Tier) DefaultPort() int {
	switch t {
	case TierFront:
		return 8080
	case TierMiddle:
		return 8081
	default:
		return 8082
	}
}

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv      string `env:"APP_ENV" envDefault:"development"`
	AppPort     int    `env:"APP_PORT"`
	Tier        Tier   `env:"TIER"`
	ServiceName string `env:"SERVICE_NAME"`

	// Next tier in the chain (front and middle only)
	DownstreamURL     string        `env:"DOWNSTREAM_URL"`
	DownstreamTimeout time.Duration `env:"DOWNSTREAM_TIMEOUT" envDefault:"30s"`
	ForwardDelayUser  time.Duration `env:"FORWARD_DELAY_USER"`
	ForwardDelayOrder time.Duration `env:"FORWARD_DELAY_ORDER"`

	// Database (PostgreSQL); empty selects the in-memory store
	DatabaseURL      string `env:"DATABASE_URL"`
	DatabaseMaxConns int32  `env:"DATABASE_MAX_CONNS" envDefault:"10"`
	RunMigrations    bool   `env:"RUN_MIGRATIONS" envDefault:"true"`

	// Event bus (Redis Streams); empty disables publishing and consuming
	RedisURL             string        `env:"REDIS_URL"`
	EventStream          string        `env:"EVENT_STREAM" envDefault:"service-events"`
	EventGroup           string        `env:"EVENT_GROUP"`
	EventProcessingDelay time.Duration `env:"EVENT_PROCESSING_DELAY"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`

	// Browser origins allowed to call the tier; empty disables CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	// Tracing
	TracesExporter string `env:"OTEL_TRACES_EXPORTER" envDefault:"none"`
	OTLPEndpoint   string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	OTLPInsecure   bool   `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`

	// Workload generators
	RandomSeed            uint64        `env:"RANDOM_SEED" envDefault:"0"`
	HashDigest            string        `env:"HASH_DIGEST" envDefault:"sha256"`
	WorkloadMaxAllocateMB int           `env:"WORKLOAD_MAX_ALLOCATE_MB" envDefault:"1024"`
	WorkloadMaxItems      int           `env:"WORKLOAD_MAX_ITEMS" envDefault:"10000000"`
	WorkloadMaxDelay      time.Duration `env:"WORKLOAD_MAX_DELAY" envDefault:"30s"`

	explicit map[string]bool
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// UserForwardDelay is the synthetic pause before forwarding a user lookup.
// Only the middle tier pauses unless overridden.
func (c *Config) UserForwardDelay() time.Duration {
	if c.explicit["FORWARD_DELAY_USER"] {
		return c.ForwardDelayUser
	}
	if c.Tier == TierMiddle {
		return 100 * time.Millisecond
	}
	return 0
}

// OrderForwardDelay is the synthetic pause before forwarding an order lookup.
func (c *Config) OrderForwardDelay() time.Duration {
	if c.explicit["FORWARD_DELAY_ORDER"] {
		return c.ForwardDelayOrder
	}
	if c.Tier == TierMiddle {
		return 150 * time.Millisecond
	}
	return 0
}

// ProcessingDelay is the simulated work time per consumed event.
func (c *Config) ProcessingDelay() time.Duration {
	if c.explicit["EVENT_PROCESSING_DELAY"] {
		return c.EventProcessingDelay
	}
	if c.Tier == TierData {
		return 150 * time.Millisecond
	}
	return 100 * time.Millisecond
}

// ConsumesEvents reports whether this tier runs the event consumer.
func (c *Config) ConsumesEvents() bool {
	return c.RedisURL != "" && (c.Tier == TierMiddle || c.Tier == TierData)
}

// Load parses environment variables and returns a Config for the given tier.
// An empty tier falls back to the TIER variable.
// Returns an error if the resulting configuration is inconsistent.
func Load(tier Tier) (*Config, error) {
	cfg := &Config{explicit: map[string]bool{}}
	opts := env.Options{
		OnSet: func(tag string, value interface{}, isDefault bool) {
			if !isDefault && value != "" {
				cfg.explicit[tag] = true
			}
		},
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if tier != "" {
		if cfg.Tier != "" && cfg.Tier != tier {
			return nil, fmt.Errorf("TIER=%q conflicts with binary tier %q", cfg.Tier, tier)
		}
		cfg.Tier = tier
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = c.Tier.DefaultServiceName()
	}
	if c.AppPort == 0 {
		c.AppPort = c.Tier.DefaultPort()
	}
	if c.EventGroup == "" {
		c.EventGroup = c.ServiceName + "-group"
	}
}

var validDigests = map[string]bool{"sha256": true, "sha3-256": true, "blake2b-256": true}

var validExporters = map[string]bool{"none": true, "stdout": true, "otlp": true}

// Validate checks cross-field constraints env tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	if !c.Tier.IsValid() {
		errs = append(errs, fmt.Errorf("unknown tier %q", c.Tier))
	}
	if c.Tier.Forwards() && c.DownstreamURL == "" {
		errs = append(errs, fmt.Errorf("DOWNSTREAM_URL is required for the %s tier", c.Tier))
	}
	if !validDigests[c.HashDigest] {
		errs = append(errs, fmt.Errorf("unknown HASH_DIGEST %q", c.HashDigest))
	}
	if !validExporters[c.TracesExporter] {
		errs = append(errs, fmt.Errorf("unknown OTEL_TRACES_EXPORTER %q", c.TracesExporter))
	}
	if c.DownstreamTimeout <= 0 {
		errs = append(errs, errors.New("DOWNSTREAM_TIMEOUT must be positive"))
	}
	if c.WorkloadMaxAllocateMB < 0 || c.WorkloadMaxItems < 0 || c.WorkloadMaxDelay < 0 {
		errs = append(errs, errors.New("workload limits must be non-negative"))
	}
	// A slow query must finish before the server gives up writing the response.
	if c.WriteTimeout > 0 && c.WorkloadMaxDelay >= c.WriteTimeout {
		errs = append(errs, fmt.Errorf("WORKLOAD_MAX_DELAY (%s) must be shorter than WRITE_TIMEOUT (%s)", c.WorkloadMaxDelay, c.WriteTimeout))
	}

	return errors.Join(errs...)
}
