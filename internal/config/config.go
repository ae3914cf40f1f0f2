// Package config loads the service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/neomorfeo/tenantscope/internal/adapter/otel"
)

// Config describes everything the service reads at startup.
type Config struct {
	Port         string `env:"PORT" envDefault:"8080"`
	DatabasePath string `env:"DATABASE_PATH" envDefault:"tenantscope.db"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`

	// TenantCheckEnabled turns on per-operation tenant authorization.
	TenantCheckEnabled bool `env:"TENANT_CHECK_ENABLED" envDefault:"true"`
	// AuthSecret is the HS256 key for bearer tokens. Empty disables
	// authentication: every request runs without an identity.
	AuthSecret string `env:"AUTH_SECRET"`
	// TenantIDVariable, when set, installs a provider that reads the tenant
	// of new tenant-less instances from this variable.
	TenantIDVariable string `env:"TENANT_ID_VARIABLE"`

	JobWorkers      int           `env:"JOB_WORKERS" envDefault:"4"`
	JobMaxAttempts  int           `env:"JOB_MAX_ATTEMPTS" envDefault:"3"`
	MonitorInterval time.Duration `env:"MONITOR_INTERVAL" envDefault:"5s"`

	Telemetry Telemetry
}

// Telemetry holds the OpenTelemetry settings.
type Telemetry struct {
	ServiceName    string  `env:"OTEL_SERVICE_NAME" envDefault:"tenantscope"`
	ServiceVersion string  `env:"OTEL_SERVICE_VERSION" envDefault:"0.1.0"`
	Environment    string  `env:"OTEL_ENVIRONMENT" envDefault:"development"`
	Exporter       string  `env:"OTEL_EXPORTER" envDefault:"stdout"`
	SampleRatio    float64 `env:"OTEL_SAMPLE_RATIO" envDefault:"1"`
}

// Load parses the environment into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the engine cannot run with.
func (c Config) Validate() error {
	if c.JobWorkers < 1 {
		return fmt.Errorf("JOB_WORKERS must be at least 1, got %d", c.JobWorkers)
	}
	if c.JobMaxAttempts < 1 {
		return fmt.Errorf("JOB_MAX_ATTEMPTS must be at least 1, got %d", c.JobMaxAttempts)
	}
	if c.MonitorInterval <= 0 {
		return fmt.Errorf("MONITOR_INTERVAL must be positive, got %s", c.MonitorInterval)
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATIO must be within [0, 1], got %v", c.Telemetry.SampleRatio)
	}
	return nil
}

// OTel converts the telemetry settings for the otel adapter.
func (c Config) OTel() otel.Config {
	return otel.Config{
		ServiceName:    c.Telemetry.ServiceName,
		ServiceVersion: c.Telemetry.ServiceVersion,
		Environment:    c.Telemetry.Environment,
		Exporter:       c.Telemetry.Exporter,
		Insecure:       c.Telemetry.Environment == "development",
		SampleRatio:    c.Telemetry.SampleRatio,
	}
}
