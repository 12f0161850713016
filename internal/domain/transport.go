package domain

import "context"

// Transport is the abstract radio capability the orchestrator drives.
// Implementations perform the actual connect/read/disconnect operations;
// the orchestrator only decides whether and when to call them.
//
// Connect blocks until the link is up, the context is done, or the device
// refuses. Implementations should return ErrCapabilityUnavailable (wrapped
// or bare) when the adapter itself is unreachable, as that outcome is
// handled differently from an ordinary refusal.
type Transport interface {
	Connect(ctx context.Context, address string) error
	Disconnect(ctx context.Context, address string) error
	ReadCharacteristic(ctx context.Context, address, characteristicID string) ([]byte, error)
	IsConnected(address string) bool
}
