package persist

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/nexus-edge/ble-gateway/internal/domain"
	"github.com/rs/zerolog"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "state", "devices.yaml"), zerolog.Nop())
}

func sampleRecord(address string, state domain.ConnectionState) DeviceRecord {
	cfg := domain.DefaultConnectionConfig()
	cfg.Priority = domain.PriorityHigh
	cfg.RetryStrategy = domain.RetryLinear

	lastSuccess := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return DeviceRecord{
		Address: address,
		Config:  cfg,
		State:   state,
		Metrics: domain.ConnectionMetrics{
			TotalAttempts:       10,
			Successes:           7,
			Failures:            3,
			ConsecutiveFailures: 1,
			RetryAttempts:       2,
			ConnectedDuration:   90 * time.Minute,
			LastConnectDuration: 800 * time.Millisecond,
			AvgConnectDuration:  1200 * time.Millisecond,
			LastSuccess:         &lastSuccess,
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)

	saved := Snapshot{
		SavedAt: time.Now().UTC(),
		Devices: []DeviceRecord{
			sampleRecord("AA:BB:CC:DD:EE:01", domain.StateConnected),
			sampleRecord("AA:BB:CC:DD:EE:02", domain.StateDisabled),
			sampleRecord("AA:BB:CC:DD:EE:03", domain.StatePaused),
		},
	}
	if err := store.Save(saved); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.Devices) != 3 {
		t.Fatalf("loaded %d devices, want 3", len(loaded.Devices))
	}

	for i, want := range saved.Devices {
		got := loaded.Devices[i]
		if got.Address != want.Address {
			t.Errorf("device %d: address %q, want %q", i, got.Address, want.Address)
		}
		if got.Config != want.Config {
			t.Errorf("device %d: config %+v, want %+v", i, got.Config, want.Config)
		}
		if got.Metrics.Successes != want.Metrics.Successes ||
			got.Metrics.ConnectedDuration != want.Metrics.ConnectedDuration ||
			got.Metrics.RetryAttempts != want.Metrics.RetryAttempts {
			t.Errorf("device %d: metrics did not round-trip: %+v", i, got.Metrics)
		}
	}
}

func TestSaveCollapsesTransientStates(t *testing.T) {
	store := newTestStore(t)

	snap := Snapshot{
		SavedAt: time.Now().UTC(),
		Devices: []DeviceRecord{
			sampleRecord("AA:01", domain.StateConnecting),
			sampleRecord("AA:02", domain.StateReconnecting),
			sampleRecord("AA:03", domain.StateDegraded),
			sampleRecord("AA:04", domain.StateFailed),
		},
	}
	if err := store.Save(snap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := []domain.ConnectionState{
		domain.StateDisconnected,
		domain.StateDisconnected,
		domain.StateConnected,
		domain.StateFailed,
	}
	for i, state := range want {
		if loaded.Devices[i].State != state {
			t.Errorf("device %d: state %q, want %q", i, loaded.Devices[i].State, state)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	store := newTestStore(t)

	snap, err := store.Load()
	if err != nil {
		t.Fatalf("Load on missing file: %v", err)
	}
	if len(snap.Devices) != 0 {
		t.Errorf("expected empty snapshot, got %d devices", len(snap.Devices))
	}
}

func TestSaveOverwritesAtomically(t *testing.T) {
	store := newTestStore(t)

	first := Snapshot{Devices: []DeviceRecord{sampleRecord("AA:01", domain.StateConnected)}}
	if err := store.Save(first); err != nil {
		t.Fatalf("Save: %v", err)
	}

	second := Snapshot{Devices: []DeviceRecord{sampleRecord("AA:02", domain.StateDisconnected)}}
	if err := store.Save(second); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.Devices) != 1 || loaded.Devices[0].Address != "AA:02" {
		t.Errorf("latest snapshot not reflected: %+v", loaded.Devices)
	}
}
