package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nexus-edge/ble-gateway/internal/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "service:\n  name: test-gateway\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Service.Name != "test-gateway" {
		t.Errorf("service name = %q", cfg.Service.Name)
	}
	if cfg.HTTP.Port != 8080 {
		t.Errorf("default http port = %d, want 8080", cfg.HTTP.Port)
	}
	if cfg.Manager.MaxConcurrentConnections != 5 {
		t.Errorf("default max concurrent = %d, want 5", cfg.Manager.MaxConcurrentConnections)
	}
	if cfg.Manager.TickInterval != 250*time.Millisecond {
		t.Errorf("default tick interval = %v", cfg.Manager.TickInterval)
	}
	if cfg.Transport.Kind != "ble" {
		t.Errorf("default transport kind = %q, want ble", cfg.Transport.Kind)
	}
	if !cfg.Breaker.Enabled {
		t.Error("breaker should default to enabled")
	}
	if cfg.MQTT.Enabled {
		t.Error("mqtt bridge should default to disabled")
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
manager:
  max_concurrent_connections: 2
  tick_interval: 100ms
transport:
  kind: sim
  failure_rate: 0.5
defaults:
  max_retries: 7
  retry_strategy: linear
  priority: high
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Manager.MaxConcurrentConnections != 2 {
		t.Errorf("max concurrent = %d, want 2", cfg.Manager.MaxConcurrentConnections)
	}
	if cfg.Manager.TickInterval != 100*time.Millisecond {
		t.Errorf("tick interval = %v, want 100ms", cfg.Manager.TickInterval)
	}
	if cfg.Transport.Kind != "sim" {
		t.Errorf("transport kind = %q, want sim", cfg.Transport.Kind)
	}
	if cfg.Transport.FailureRate != 0.5 {
		t.Errorf("failure rate = %v, want 0.5", cfg.Transport.FailureRate)
	}

	devCfg := cfg.Defaults.ToDomain()
	if devCfg.MaxRetries != 7 {
		t.Errorf("device max retries = %d, want 7", devCfg.MaxRetries)
	}
	if devCfg.RetryStrategy != domain.RetryLinear {
		t.Errorf("device retry strategy = %q, want linear", devCfg.RetryStrategy)
	}
	if devCfg.Priority != domain.PriorityHigh {
		t.Errorf("device priority = %q, want high", devCfg.Priority)
	}
	// Unset fields still carry the built-in defaults
	if devCfg.ConnectionTimeout != 30*time.Second {
		t.Errorf("device connection timeout = %v, want 30s", devCfg.ConnectionTimeout)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("BLE_GATEWAY_HTTP_PORT", "9090")
	t.Setenv("BLE_GATEWAY_LOGGING_LEVEL", "debug")

	path := writeConfig(t, "service:\n  name: env-test\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("http port = %d, want env override 9090", cfg.HTTP.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("logging level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"bad transport kind", "transport:\n  kind: nfc\n"},
		{"zero concurrency", "manager:\n  max_concurrent_connections: 0\n"},
		{"failure rate above one", "transport:\n  kind: sim\n  failure_rate: 1.5\n"},
		{"bad qos", "mqtt:\n  enabled: true\n  qos: 3\n"},
		{"bad device strategy", "defaults:\n  retry_strategy: quadratic\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.content)
			if _, err := Load(path); err == nil {
				t.Error("Load() accepted invalid configuration")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load() should fail for a missing file")
	}
}
