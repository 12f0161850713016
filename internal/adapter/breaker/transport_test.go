package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nexus-edge/ble-gateway/internal/domain"
	"github.com/rs/zerolog"
)

type flakyTransport struct {
	err error
}

func (f *flakyTransport) Connect(ctx context.Context, address string) error { return f.err }
func (f *flakyTransport) Disconnect(ctx context.Context, address string) error {
	return nil
}
func (f *flakyTransport) ReadCharacteristic(ctx context.Context, address, char string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte{0x01}, nil
}
func (f *flakyTransport) IsConnected(address string) bool { return false }

func TestBreakerTripsToCapabilityUnavailable(t *testing.T) {
	inner := &flakyTransport{err: errors.New("hci socket gone")}
	tr := Wrap(inner, Config{ConsecutiveFailures: 3, OpenTimeout: time.Minute}, zerolog.Nop())

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := tr.Connect(ctx, "AA:BB"); errors.Is(err, domain.ErrCapabilityUnavailable) {
			t.Fatalf("call %d: breaker tripped too early", i)
		}
	}

	err := tr.Connect(ctx, "AA:BB")
	if !errors.Is(err, domain.ErrCapabilityUnavailable) {
		t.Errorf("error after trip = %v, want ErrCapabilityUnavailable", err)
	}
	if tr.Healthy() {
		t.Error("Healthy() = true with breaker open")
	}
}

func TestBreakerPassesThroughSuccess(t *testing.T) {
	inner := &flakyTransport{}
	tr := Wrap(inner, Config{}, zerolog.Nop())

	data, err := tr.ReadCharacteristic(context.Background(), "AA:BB", "2a19")
	if err != nil {
		t.Fatalf("ReadCharacteristic: %v", err)
	}
	if len(data) != 1 {
		t.Errorf("data = %v, want one byte", data)
	}
	if !tr.Healthy() {
		t.Error("Healthy() = false with breaker closed")
	}
}

func TestDisconnectBypassesBreaker(t *testing.T) {
	inner := &flakyTransport{err: errors.New("adapter down")}
	tr := Wrap(inner, Config{ConsecutiveFailures: 1}, zerolog.Nop())

	// Trip the breaker.
	tr.Connect(context.Background(), "AA:BB")
	tr.Connect(context.Background(), "AA:BB")

	if err := tr.Disconnect(context.Background(), "AA:BB"); err != nil {
		t.Errorf("Disconnect must bypass the open breaker, got %v", err)
	}
}
