// Package sim provides an in-memory transport simulating a fleet of BLE
// peripherals, used for demos and end-to-end runs without radio hardware.
package sim

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/nexus-edge/ble-gateway/internal/domain"
	"github.com/rs/zerolog"
)

// Config holds simulation parameters applied to every peripheral.
type Config struct {
	// ConnectLatency is how long a connect attempt takes
	ConnectLatency time.Duration

	// FailureRate is the probability in [0,1] that a connect attempt or
	// probe fails
	FailureRate float64

	// DropRate is the per-probe probability that an established link
	// silently drops
	DropRate float64

	// Seed makes runs reproducible; zero seeds from the current time
	Seed int64
}

// Fleet implements domain.Transport against imaginary peripherals.
type Fleet struct {
	config Config
	logger zerolog.Logger

	mu        sync.Mutex
	rng       *rand.Rand
	connected map[string]bool
}

// NewFleet creates a simulated fleet.
func NewFleet(config Config, logger zerolog.Logger) *Fleet {
	if config.ConnectLatency <= 0 {
		config.ConnectLatency = 150 * time.Millisecond
	}
	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Fleet{
		config:    config,
		logger:    logger.With().Str("component", "sim-fleet").Logger(),
		rng:       rand.New(rand.NewSource(seed)),
		connected: make(map[string]bool),
	}
}

func (f *Fleet) Connect(ctx context.Context, address string) error {
	select {
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return domain.ErrConnectionTimeout
		}
		return ctx.Err()
	case <-time.After(f.config.ConnectLatency):
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rng.Float64() < f.config.FailureRate {
		return fmt.Errorf("%w: simulated radio failure", domain.ErrConnectionRefused)
	}
	f.connected[address] = true
	return nil
}

func (f *Fleet) Disconnect(ctx context.Context, address string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected[address] = false
	return nil
}

func (f *Fleet) ReadCharacteristic(ctx context.Context, address, characteristicID string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.connected[address] {
		return nil, fmt.Errorf("%w: %s not connected", domain.ErrHealthCheckFailed, address)
	}
	if f.rng.Float64() < f.config.DropRate {
		// The peripheral wandered off; subsequent IsConnected calls
		// report the drop.
		f.connected[address] = false
		f.logger.Debug().Str("address", address).Msg("Simulated link drop")
		return nil, fmt.Errorf("%w: link dropped", domain.ErrHealthCheckFailed)
	}
	if f.rng.Float64() < f.config.FailureRate {
		return nil, fmt.Errorf("%w: simulated read failure", domain.ErrHealthCheckFailed)
	}

	// A plausible battery level reading.
	return []byte{byte(20 + f.rng.Intn(80))}, nil
}

func (f *Fleet) IsConnected(address string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected[address]
}
