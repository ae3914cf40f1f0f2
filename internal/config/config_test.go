package config_test

import (
	"testing"
	"time"

	"github.com/neomorfeo/tenantscope/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want %q", cfg.Port, "8080")
	}
	if cfg.DatabasePath != "tenantscope.db" {
		t.Errorf("DatabasePath = %q, want %q", cfg.DatabasePath, "tenantscope.db")
	}
	if !cfg.TenantCheckEnabled {
		t.Error("TenantCheckEnabled = false, want true")
	}
	if cfg.JobMaxAttempts != 3 {
		t.Errorf("JobMaxAttempts = %d, want 3", cfg.JobMaxAttempts)
	}
	if cfg.MonitorInterval != 5*time.Second {
		t.Errorf("MonitorInterval = %s, want 5s", cfg.MonitorInterval)
	}

	otel := cfg.OTel()
	if otel.ServiceName != "tenantscope" {
		t.Errorf("ServiceName = %q, want %q", otel.ServiceName, "tenantscope")
	}
	if otel.Exporter != "stdout" {
		t.Errorf("Exporter = %q, want %q", otel.Exporter, "stdout")
	}
	if !otel.Insecure {
		t.Error("Insecure = false, want true in development")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("TENANT_CHECK_ENABLED", "false")
	t.Setenv("TENANT_ID_VARIABLE", "tenant")
	t.Setenv("JOB_WORKERS", "8")
	t.Setenv("MONITOR_INTERVAL", "250ms")
	t.Setenv("OTEL_ENVIRONMENT", "production")
	t.Setenv("OTEL_EXPORTER", "otlp")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want %q", cfg.Port, "9090")
	}
	if cfg.TenantCheckEnabled {
		t.Error("TenantCheckEnabled = true, want false")
	}
	if cfg.TenantIDVariable != "tenant" {
		t.Errorf("TenantIDVariable = %q, want %q", cfg.TenantIDVariable, "tenant")
	}
	if cfg.JobWorkers != 8 {
		t.Errorf("JobWorkers = %d, want 8", cfg.JobWorkers)
	}
	if cfg.MonitorInterval != 250*time.Millisecond {
		t.Errorf("MonitorInterval = %s, want 250ms", cfg.MonitorInterval)
	}
	if cfg.OTel().Insecure {
		t.Error("Insecure = true, want false in production")
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"zero workers", "JOB_WORKERS", "0"},
		{"zero attempts", "JOB_MAX_ATTEMPTS", "0"},
		{"bad duration", "MONITOR_INTERVAL", "soon"},
		{"ratio above one", "OTEL_SAMPLE_RATIO", "2"},
		{"not a bool", "TENANT_CHECK_ENABLED", "maybe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := config.Load(); err == nil {
				t.Errorf("expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}
