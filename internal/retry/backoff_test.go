package retry

import (
	"testing"
	"time"

	"github.com/nexus-edge/ble-gateway/internal/domain"
)

func testConfig(strategy domain.RetryStrategy) domain.ConnectionConfig {
	return domain.ConnectionConfig{
		InitialRetryDelay: 1 * time.Second,
		MaxRetryDelay:     8 * time.Second,
		RetryStrategy:     strategy,
	}
}

func TestDelayExponential(t *testing.T) {
	cfg := testConfig(domain.RetryExponential)

	expected := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		8 * time.Second, // capped
	}
	for n, want := range expected {
		if got := Delay(cfg, n); got != want {
			t.Errorf("attempt %d: got %v, want %v", n, got, want)
		}
	}
}

func TestDelayLinear(t *testing.T) {
	cfg := testConfig(domain.RetryLinear)

	expected := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		3 * time.Second,
		4 * time.Second,
	}
	for n, want := range expected {
		if got := Delay(cfg, n); got != want {
			t.Errorf("attempt %d: got %v, want %v", n, got, want)
		}
	}

	if got := Delay(cfg, 100); got != cfg.MaxRetryDelay {
		t.Errorf("attempt 100: got %v, want cap %v", got, cfg.MaxRetryDelay)
	}
}

func TestDelayFixed(t *testing.T) {
	cfg := testConfig(domain.RetryFixed)
	// Fixed ignores the cap even when initial exceeds it.
	cfg.InitialRetryDelay = 10 * time.Second

	for _, n := range []int{0, 1, 5, 50} {
		if got := Delay(cfg, n); got != 10*time.Second {
			t.Errorf("attempt %d: got %v, want 10s", n, got)
		}
	}
}

func TestDelayNonDecreasingAndCapped(t *testing.T) {
	for _, strategy := range []domain.RetryStrategy{domain.RetryExponential, domain.RetryLinear} {
		cfg := testConfig(strategy)
		prev := time.Duration(0)
		for n := 0; n < 64; n++ {
			d := Delay(cfg, n)
			if d < prev {
				t.Errorf("%s: delay decreased at attempt %d: %v < %v", strategy, n, d, prev)
			}
			if d > cfg.MaxRetryDelay {
				t.Errorf("%s: delay %v exceeds cap at attempt %d", strategy, d, n)
			}
			prev = d
		}
	}
}

func TestDelayNegativeAttempt(t *testing.T) {
	cfg := testConfig(domain.RetryExponential)
	if got := Delay(cfg, -3); got != cfg.InitialRetryDelay {
		t.Errorf("got %v, want initial delay", got)
	}
}
