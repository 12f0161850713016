// Package mqtt bridges device lifecycle events to an MQTT broker.
package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/goccy/go-json"
	"github.com/nexus-edge/ble-gateway/internal/domain"
	"github.com/nexus-edge/ble-gateway/internal/eventbus"
	"github.com/rs/zerolog"
)

// BridgeConfig contains MQTT bridge configuration
type BridgeConfig struct {
	BrokerURL      string
	ClientID       string
	Username       string
	Password       string
	TopicPrefix    string
	QoS            byte
	KeepAlive      time.Duration
	ReconnectDelay time.Duration
}

// Bridge subscribes to the in-process event bus and republishes every
// lifecycle event to <prefix>/<address>/<type>.
type Bridge struct {
	config BridgeConfig
	client paho.Client
	bus    *eventbus.Bus
	logger zerolog.Logger

	isConnected atomic.Bool

	eventsPublished atomic.Uint64
	publishErrors   atomic.Uint64

	cancel      context.CancelFunc
	unsubscribe func()
	wg          sync.WaitGroup
}

// NewBridge creates a new event bridge
func NewBridge(config BridgeConfig, bus *eventbus.Bus, logger zerolog.Logger) *Bridge {
	b := &Bridge{
		config: config,
		bus:    bus,
		logger: logger.With().Str("component", "mqtt-bridge").Logger(),
	}

	opts := paho.NewClientOptions().
		AddBroker(config.BrokerURL).
		SetClientID(config.ClientID).
		SetKeepAlive(config.KeepAlive).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(config.ReconnectDelay).
		SetConnectionLostHandler(b.onConnectionLost).
		SetOnConnectHandler(b.onConnect)

	if config.Username != "" {
		opts.SetUsername(config.Username)
	}
	if config.Password != "" {
		opts.SetPassword(config.Password)
	}

	b.client = paho.NewClient(opts)

	return b
}

// Start connects to the broker and begins forwarding events.
func (b *Bridge) Start(ctx context.Context) error {
	b.logger.Info().
		Str("broker", b.config.BrokerURL).
		Str("client_id", b.config.ClientID).
		Msg("Connecting to MQTT broker")

	token := b.client.Connect()
	if !token.WaitTimeout(30 * time.Second) {
		return fmt.Errorf("connection timeout")
	}
	if token.Error() != nil {
		return fmt.Errorf("connection failed: %w", token.Error())
	}

	runCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel

	events, unsubscribe := b.bus.SubscribeBuffered(256)
	b.unsubscribe = unsubscribe

	b.wg.Add(1)
	go b.forward(runCtx, events)

	return nil
}

// Stop halts forwarding and disconnects from the broker.
func (b *Bridge) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
	if b.unsubscribe != nil {
		b.unsubscribe()
	}
	b.wg.Wait()
	b.client.Disconnect(5000)
	b.isConnected.Store(false)
	b.logger.Info().
		Uint64("events_published", b.eventsPublished.Load()).
		Uint64("publish_errors", b.publishErrors.Load()).
		Msg("MQTT bridge stopped")
}

// IsConnected returns current broker connection status
func (b *Bridge) IsConnected() bool {
	return b.isConnected.Load() && b.client.IsConnected()
}

// Stats returns bridge statistics
func (b *Bridge) Stats() map[string]interface{} {
	return map[string]interface{}{
		"connected":        b.IsConnected(),
		"events_published": b.eventsPublished.Load(),
		"publish_errors":   b.publishErrors.Load(),
	}
}

func (b *Bridge) forward(ctx context.Context, events <-chan domain.Event) {
	defer b.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			b.publish(event)
		}
	}
}

func (b *Bridge) publish(event domain.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		b.publishErrors.Add(1)
		b.logger.Error().Err(err).Str("event_id", event.ID).Msg("Failed to encode event")
		return
	}

	topic := fmt.Sprintf("%s/%s/%s", b.config.TopicPrefix, event.Address, event.Type)
	token := b.client.Publish(topic, b.config.QoS, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		b.publishErrors.Add(1)
		b.logger.Warn().Str("topic", topic).Msg("Publish timeout")
		return
	}
	if token.Error() != nil {
		b.publishErrors.Add(1)
		b.logger.Error().Err(token.Error()).Str("topic", topic).Msg("Publish failed")
		return
	}

	b.eventsPublished.Add(1)
}

func (b *Bridge) onConnect(client paho.Client) {
	b.isConnected.Store(true)
	b.logger.Info().Msg("Connected to MQTT broker")
}

func (b *Bridge) onConnectionLost(client paho.Client, err error) {
	b.isConnected.Store(false)
	b.logger.Warn().Err(err).Msg("Lost connection to MQTT broker")
}
