// Package ble implements the transport capability on a real Bluetooth
// adapter via tinygo.org/x/bluetooth.
package ble

import (
	"context"
	"fmt"
	"sync"

	"github.com/nexus-edge/ble-gateway/internal/domain"
	"github.com/rs/zerolog"
	"tinygo.org/x/bluetooth"
)

// Transport drives a BLE central adapter. Peripheral handles and the
// characteristics resolved for probing are cached per address.
type Transport struct {
	adapter *bluetooth.Adapter
	logger  zerolog.Logger

	mu      sync.Mutex
	devices map[string]bluetooth.Device
	chars   map[string]bluetooth.DeviceCharacteristic
}

// New enables the default adapter and returns the transport.
func New(logger zerolog.Logger) (*Transport, error) {
	adapter := bluetooth.DefaultAdapter
	if err := adapter.Enable(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCapabilityUnavailable, err)
	}

	t := &Transport{
		adapter: adapter,
		logger:  logger.With().Str("component", "ble-transport").Logger(),
		devices: make(map[string]bluetooth.Device),
		chars:   make(map[string]bluetooth.DeviceCharacteristic),
	}

	adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		if connected {
			return
		}
		// Drop the cached handle so IsConnected reflects reality and
		// the orchestrator notices the unsolicited disconnect.
		address := device.Address.String()
		t.mu.Lock()
		delete(t.devices, address)
		t.dropCharsLocked(address)
		t.mu.Unlock()
		t.logger.Debug().Str("address", address).Msg("Peripheral disconnected")
	})

	return t, nil
}

func (t *Transport) Connect(ctx context.Context, address string) error {
	mac, err := bluetooth.ParseMAC(address)
	if err != nil {
		return fmt.Errorf("%w: bad address %q: %v", domain.ErrConnectionRefused, address, err)
	}
	target := bluetooth.Address{MACAddress: bluetooth.MACAddress{MAC: mac}}

	type result struct {
		device bluetooth.Device
		err    error
	}
	done := make(chan result, 1)
	go func() {
		device, err := t.adapter.Connect(target, bluetooth.ConnectionParams{})
		done <- result{device: device, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return fmt.Errorf("%w: %v", domain.ErrConnectionRefused, res.err)
		}
		t.mu.Lock()
		t.devices[address] = res.device
		t.mu.Unlock()
		return nil
	case <-ctx.Done():
		// The attempt cannot be aborted mid-flight; if it lands later
		// the handle is discarded.
		go func() {
			if res := <-done; res.err == nil {
				res.device.Disconnect()
			}
		}()
		if ctx.Err() == context.DeadlineExceeded {
			return domain.ErrConnectionTimeout
		}
		return ctx.Err()
	}
}

func (t *Transport) Disconnect(ctx context.Context, address string) error {
	t.mu.Lock()
	device, ok := t.devices[address]
	delete(t.devices, address)
	t.dropCharsLocked(address)
	t.mu.Unlock()

	if !ok {
		return nil
	}
	if err := device.Disconnect(); err != nil {
		return fmt.Errorf("disconnect %s: %w", address, err)
	}
	return nil
}

func (t *Transport) ReadCharacteristic(ctx context.Context, address, characteristicID string) ([]byte, error) {
	char, err := t.resolveCharacteristic(address, characteristicID)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 64)
	n, err := char.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrHealthCheckFailed, err)
	}
	return buf[:n], nil
}

func (t *Transport) IsConnected(address string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.devices[address]
	return ok
}

// resolveCharacteristic finds the probe characteristic, discovering
// services on first use and caching the handle afterwards.
func (t *Transport) resolveCharacteristic(address, characteristicID string) (bluetooth.DeviceCharacteristic, error) {
	key := address + "|" + characteristicID

	t.mu.Lock()
	if char, ok := t.chars[key]; ok {
		t.mu.Unlock()
		return char, nil
	}
	device, ok := t.devices[address]
	t.mu.Unlock()

	var zero bluetooth.DeviceCharacteristic
	if !ok {
		return zero, fmt.Errorf("%w: %s not connected", domain.ErrHealthCheckFailed, address)
	}

	uuid, err := bluetooth.ParseUUID(characteristicID)
	if err != nil {
		return zero, fmt.Errorf("%w: bad characteristic %q: %v", domain.ErrHealthCheckFailed, characteristicID, err)
	}

	services, err := device.DiscoverServices(nil)
	if err != nil {
		return zero, fmt.Errorf("%w: service discovery: %v", domain.ErrHealthCheckFailed, err)
	}
	for _, svc := range services {
		chars, err := svc.DiscoverCharacteristics([]bluetooth.UUID{uuid})
		if err != nil {
			continue
		}
		if len(chars) > 0 {
			t.mu.Lock()
			t.chars[key] = chars[0]
			t.mu.Unlock()
			return chars[0], nil
		}
	}
	return zero, fmt.Errorf("%w: characteristic %s not found on %s", domain.ErrHealthCheckFailed, characteristicID, address)
}

// dropCharsLocked evicts cached characteristic handles for an address.
func (t *Transport) dropCharsLocked(address string) {
	prefix := address + "|"
	for key := range t.chars {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(t.chars, key)
		}
	}
}
