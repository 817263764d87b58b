package config

import (
	"testing"
	"time"
)

func TestLoad_DataTierDefaults(t *testing.T) {
	cfg, err := Load(TierData)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.ServiceName != "service-c" {
		t.Errorf("expected default ServiceName 'service-c', got %s", cfg.ServiceName)
	}

	if cfg.AppPort != 8082 {
		t.Errorf("expected default AppPort 8082, got %d", cfg.AppPort)
	}

	if cfg.EventStream != "service-events" {
		t.Errorf("expected default EventStream 'service-events', got %s", cfg.EventStream)
	}

	if cfg.EventGroup != "service-c-group" {
		t.Errorf("expected derived EventGroup, got %s", cfg.EventGroup)
	}

	if cfg.ProcessingDelay() != 150*time.Millisecond {
		t.Errorf("expected 150ms processing delay, got %v", cfg.ProcessingDelay())
	}

	if cfg.DownstreamTimeout != 30*time.Second {
		t.Errorf("expected 30s downstream timeout, got %v", cfg.DownstreamTimeout)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("expected default LogLevel 'info', got %s", cfg.LogLevel)
	}

	if cfg.LogFormat != "json" {
		t.Errorf("expected default LogFormat 'json', got %s", cfg.LogFormat)
	}

	if cfg.WorkloadMaxDelay >= cfg.WriteTimeout {
		t.Errorf("expected default WorkloadMaxDelay %v below WriteTimeout %v", cfg.WorkloadMaxDelay, cfg.WriteTimeout)
	}

	if cfg.HashDigest != "sha256" {
		t.Errorf("expected default HashDigest 'sha256', got %s", cfg.HashDigest)
	}
}

func TestLoad_ForwardingTierRequiresDownstream(t *testing.T) {
	t.Setenv("DOWNSTREAM_URL", "")

	if _, err := Load(TierFront); err == nil {
		t.Fatal("expected error for missing DOWNSTREAM_URL, got nil")
	}

	t.Setenv("DOWNSTREAM_URL", "http://service-b:8081")
	cfg, err := Load(TierFront)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.DownstreamURL != "http://service-b:8081" {
		t.Errorf("expected DownstreamURL to be set, got %s", cfg.DownstreamURL)
	}
}

func TestLoad_TierFromEnvironment(t *testing.T) {
	t.Setenv("TIER", "middle")
	t.Setenv("DOWNSTREAM_URL", "http://service-c:8082")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Tier != TierMiddle || cfg.ServiceName != "service-b" {
		t.Errorf("unexpected tier %s / service %s", cfg.Tier, cfg.ServiceName)
	}

	if _, err := Load(TierData); err == nil {
		t.Fatal("expected conflict between TIER and binary tier")
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := []struct {
		name string
		key  string
		val  string
	}{
		{"unknown_digest", "HASH_DIGEST", "md5"},
		{"unknown_exporter", "OTEL_TRACES_EXPORTER", "jaeger"},
		{"zero_timeout", "DOWNSTREAM_TIMEOUT", "0s"},
		{"negative_limit", "WORKLOAD_MAX_ITEMS", "-1"},
		{"bad_duration", "EVENT_PROCESSING_DELAY", "soon"},
		{"delay_outlives_write_timeout", "WORKLOAD_MAX_DELAY", "60s"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.val)
			if _, err := Load(TierData); err == nil {
				t.Fatalf("expected error for %s=%s", tc.key, tc.val)
			}
		})
	}

	if _, err := Load(Tier("edge")); err == nil {
		t.Fatal("expected error for unknown tier")
	}
}

func TestConfig_ForwardDelays(t *testing.T) {
	middle := &Config{Tier: TierMiddle}
	if middle.UserForwardDelay() != 100*time.Millisecond {
		t.Errorf("expected 100ms user delay, got %v", middle.UserForwardDelay())
	}
	if middle.OrderForwardDelay() != 150*time.Millisecond {
		t.Errorf("expected 150ms order delay, got %v", middle.OrderForwardDelay())
	}

	front := &Config{Tier: TierFront}
	if front.UserForwardDelay() != 0 || front.OrderForwardDelay() != 0 {
		t.Error("expected front tier not to pause")
	}

	t.Setenv("DOWNSTREAM_URL", "http://service-c:8082")
	t.Setenv("FORWARD_DELAY_USER", "0s")
	cfg, err := Load(TierMiddle)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.UserForwardDelay() != 0 {
		t.Errorf("expected explicit zero override, got %v", cfg.UserForwardDelay())
	}
	if cfg.ProcessingDelay() != 100*time.Millisecond {
		t.Errorf("expected 100ms middle processing delay, got %v", cfg.ProcessingDelay())
	}
	if cfg.OrderForwardDelay() != 150*time.Millisecond {
		t.Errorf("expected default order delay, got %v", cfg.OrderForwardDelay())
	}
}

func TestConfig_ConsumesEvents(t *testing.T) {
	cfg := &Config{Tier: TierFront, RedisURL: "redis://localhost:6379"}
	if cfg.ConsumesEvents() {
		t.Error("expected front tier not to consume events")
	}

	cfg.Tier = TierMiddle
	if !cfg.ConsumesEvents() {
		t.Error("expected middle tier to consume events")
	}

	cfg.RedisURL = ""
	if cfg.ConsumesEvents() {
		t.Error("expected no consumer without REDIS_URL")
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	cfg := &Config{AppEnv: "development"}
	if !cfg.IsDevelopment() {
		t.Error("expected IsDevelopment to return true")
	}

	cfg.AppEnv = "production"
	if cfg.IsDevelopment() {
		t.Error("expected IsDevelopment to return false")
	}
}

func TestLoad_CORSOrigins(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://dash.example.com,*.example.org")

	cfg, err := Load(TierData)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "*.example.org" {
		t.Errorf("unexpected origins %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoad_SlowQueryFitsWriteTimeout(t *testing.T) {
	t.Setenv("WRITE_TIMEOUT", "200ms")
	t.Setenv("WORKLOAD_MAX_DELAY", "1s")
	if _, err := Load(TierData); err == nil {
		t.Fatal("expected error when WORKLOAD_MAX_DELAY outlives WRITE_TIMEOUT")
	}

	t.Setenv("WORKLOAD_MAX_DELAY", "150ms")
	if _, err := Load(TierData); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}
