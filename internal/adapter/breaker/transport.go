// Package breaker wraps a transport with a circuit breaker so a dead or
// wedged adapter is reported as a capability outage instead of burning
// per-device retry budgets.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nexus-edge/ble-gateway/internal/domain"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// Config holds circuit breaker tuning.
type Config struct {
	// Name identifies the breaker in logs
	Name string

	// ConsecutiveFailures trips the breaker once this many transport
	// calls fail in a row
	ConsecutiveFailures uint32

	// OpenTimeout is how long the breaker stays open before probing
	OpenTimeout time.Duration
}

// Transport decorates a domain.Transport; when the breaker is open every
// call fails fast with ErrCapabilityUnavailable.
type Transport struct {
	inner  domain.Transport
	cb     *gobreaker.CircuitBreaker
	logger zerolog.Logger
}

// Wrap builds the decorated transport.
func Wrap(inner domain.Transport, config Config, logger zerolog.Logger) *Transport {
	if config.Name == "" {
		config.Name = "ble-transport"
	}
	if config.ConsecutiveFailures == 0 {
		config.ConsecutiveFailures = 8
	}
	if config.OpenTimeout <= 0 {
		config.OpenTimeout = 30 * time.Second
	}

	log := logger.With().Str("component", "transport-breaker").Logger()

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    config.Name,
		Timeout: config.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	})

	return &Transport{inner: inner, cb: cb, logger: log}
}

// Healthy reports whether the breaker currently admits transport calls.
func (t *Transport) Healthy() bool {
	return t.cb.State() != gobreaker.StateOpen
}

func (t *Transport) Connect(ctx context.Context, address string) error {
	_, err := t.cb.Execute(func() (interface{}, error) {
		return nil, t.inner.Connect(ctx, address)
	})
	return t.translate(err)
}

func (t *Transport) Disconnect(ctx context.Context, address string) error {
	// Teardown must always reach the radio, even with the breaker open.
	return t.inner.Disconnect(ctx, address)
}

func (t *Transport) ReadCharacteristic(ctx context.Context, address, characteristicID string) ([]byte, error) {
	v, err := t.cb.Execute(func() (interface{}, error) {
		return t.inner.ReadCharacteristic(ctx, address, characteristicID)
	})
	if err != nil {
		return nil, t.translate(err)
	}
	data, _ := v.([]byte)
	return data, nil
}

func (t *Transport) IsConnected(address string) bool {
	return t.inner.IsConnected(address)
}

// translate maps breaker rejections to the capability error; transport
// errors pass through untouched.
func (t *Transport) translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: circuit open", domain.ErrCapabilityUnavailable)
	}
	return err
}
