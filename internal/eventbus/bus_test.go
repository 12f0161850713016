package eventbus

import (
	"testing"
	"time"

	"github.com/nexus-edge/ble-gateway/internal/domain"
	"github.com/rs/zerolog"
)

func newTestBus() *Bus {
	return New(zerolog.Nop())
}

func recvEvent(t *testing.T, ch <-chan domain.Event) domain.Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatal("channel closed unexpectedly")
		}
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return domain.Event{}
}

func TestPublishFanOut(t *testing.T) {
	bus := newTestBus()
	defer bus.Close()

	ch1, unsub1 := bus.Subscribe()
	ch2, unsub2 := bus.Subscribe()
	defer unsub1()
	defer unsub2()

	ev := domain.NewEvent(domain.EventConnectionSuccess, "AA:BB:CC:DD:EE:FF", time.Now())
	bus.Publish(ev)

	for _, ch := range []<-chan domain.Event{ch1, ch2} {
		got := recvEvent(t, ch)
		if got.ID != ev.ID || got.Type != domain.EventConnectionSuccess {
			t.Errorf("got event %+v, want %+v", got, ev)
		}
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := newTestBus()
	defer bus.Close()

	ch, unsub := bus.Subscribe()
	unsub()

	// Channel must be closed and no further delivery attempted.
	if _, ok := <-ch; ok {
		t.Error("expected closed channel after unsubscribe")
	}

	bus.Publish(domain.NewEvent(domain.EventDisconnected, "AA:BB", time.Now()))
	if n := bus.Dropped(); n != 0 {
		t.Errorf("publish after unsubscribe counted %d drops", n)
	}
}

func TestSlowSubscriberDropsNotBlocks(t *testing.T) {
	bus := newTestBus()
	defer bus.Close()

	_, unsub := bus.SubscribeBuffered(1)
	defer unsub()

	// Second publish overflows the buffer; it must return immediately.
	done := make(chan struct{})
	go func() {
		bus.Publish(domain.NewEvent(domain.EventConnectionAttempt, "AA:BB", time.Now()))
		bus.Publish(domain.NewEvent(domain.EventConnectionAttempt, "AA:BB", time.Now()))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on slow subscriber")
	}

	if n := bus.Dropped(); n != 1 {
		t.Errorf("dropped = %d, want 1", n)
	}
}

func TestCloseClosesSubscribers(t *testing.T) {
	bus := newTestBus()
	ch, _ := bus.Subscribe()
	bus.Close()

	if _, ok := <-ch; ok {
		t.Error("expected closed channel after bus close")
	}

	// Publishing and re-closing after close are no-ops.
	bus.Publish(domain.NewEvent(domain.EventDisconnected, "AA:BB", time.Now()))
	bus.Close()
}
