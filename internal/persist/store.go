// Package persist serializes the orchestrator's device table to a YAML
// snapshot file so the fleet survives process restarts.
package persist

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nexus-edge/ble-gateway/internal/domain"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// DeviceRecord is one persisted device: its address, configuration,
// collapsed last-known state, and accumulated metrics.
type DeviceRecord struct {
	Address string                   `yaml:"address"`
	Config  domain.ConnectionConfig  `yaml:"config"`
	State   domain.ConnectionState   `yaml:"state"`
	Metrics domain.ConnectionMetrics `yaml:"metrics"`
}

// Snapshot is the full persisted document.
type Snapshot struct {
	SavedAt time.Time      `yaml:"saved_at"`
	Devices []DeviceRecord `yaml:"devices"`
}

// Store reads and writes snapshots at a fixed path configured at
// construction. Writes are atomic (temp file + rename) so a crash never
// leaves a torn document behind.
type Store struct {
	path   string
	logger zerolog.Logger
}

// NewStore creates a store writing to path.
func NewStore(path string, logger zerolog.Logger) *Store {
	return &Store{
		path:   path,
		logger: logger.With().Str("component", "state-store").Logger(),
	}
}

// Path returns the snapshot file location.
func (s *Store) Path() string {
	return s.path
}

// Save writes the snapshot, collapsing each device's state to its durable
// equivalent.
func (s *Store) Save(snap Snapshot) error {
	for i := range snap.Devices {
		snap.Devices[i].State = snap.Devices[i].State.Collapse()
	}

	data, err := yaml.Marshal(&snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}

	s.logger.Debug().
		Int("devices", len(snap.Devices)).
		Str("path", s.path).
		Msg("Saved state snapshot")
	return nil
}

// Load reads the snapshot. A missing file is not an error: it means no
// devices are pre-registered.
func (s *Store) Load() (Snapshot, error) {
	var snap Snapshot

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return snap, nil
		}
		return snap, fmt.Errorf("failed to read snapshot: %w", err)
	}

	if err := yaml.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("failed to parse snapshot: %w", err)
	}

	s.logger.Info().
		Int("devices", len(snap.Devices)).
		Str("path", s.path).
		Msg("Loaded state snapshot")
	return snap, nil
}
