package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nexus-edge/ble-gateway/internal/adapter/ble"
	"github.com/nexus-edge/ble-gateway/internal/adapter/breaker"
	"github.com/nexus-edge/ble-gateway/internal/adapter/config"
	"github.com/nexus-edge/ble-gateway/internal/adapter/mqtt"
	"github.com/nexus-edge/ble-gateway/internal/adapter/sim"
	"github.com/nexus-edge/ble-gateway/internal/domain"
	"github.com/nexus-edge/ble-gateway/internal/eventbus"
	"github.com/nexus-edge/ble-gateway/internal/health"
	"github.com/nexus-edge/ble-gateway/internal/metrics"
	"github.com/nexus-edge/ble-gateway/internal/persist"
	"github.com/nexus-edge/ble-gateway/internal/service"
	"github.com/nexus-edge/ble-gateway/pkg/logging"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var version = "dev"

func main() {
	// Bootstrap logger until the configured one is available
	logger := logging.NewLogger("info", "json")
	logger.Info().
		Str("version", version).
		Str("service", "ble-gateway").
		Msg("Starting BLE Gateway")

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/gateway.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger = logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metricsRegistry := metrics.NewRegistry()

	// Transport: real adapter or simulated fleet
	var transport domain.Transport
	switch cfg.Transport.Kind {
	case "sim":
		transport = sim.NewFleet(sim.Config{
			ConnectLatency: cfg.Transport.ConnectLatency,
			FailureRate:    cfg.Transport.FailureRate,
			DropRate:       cfg.Transport.DropRate,
			Seed:           cfg.Transport.Seed,
		}, logger)
	default:
		bleTransport, err := ble.New(logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to initialize Bluetooth adapter")
		}
		transport = bleTransport
	}

	var transportProbe health.TransportProbe
	if cfg.Breaker.Enabled {
		wrapped := breaker.Wrap(transport, breaker.Config{
			Name:                "ble-transport",
			ConsecutiveFailures: cfg.Breaker.ConsecutiveFailures,
			OpenTimeout:         cfg.Breaker.OpenTimeout,
		}, logger)
		transport = wrapped
		transportProbe = wrapped
	}

	bus := eventbus.New(logger)
	defer bus.Close()

	store := persist.NewStore(cfg.Manager.StatePath, logger)

	orchestrator := service.NewOrchestrator(service.OrchestratorConfig{
		MaxConcurrentConnections: cfg.Manager.MaxConcurrentConnections,
		TickInterval:             cfg.Manager.TickInterval,
		CheckpointInterval:       cfg.Manager.CheckpointInterval,
		DisconnectTimeout:        cfg.Manager.DisconnectTimeout,
		DefaultDeviceConfig:      cfg.Defaults.ToDomain(),
	}, transport, bus, store, logger, metricsRegistry)

	// Re-register devices persisted by a previous run
	snap, err := store.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load device snapshot")
	}
	if len(snap.Devices) > 0 {
		if err := orchestrator.Restore(snap); err != nil {
			logger.Fatal().Err(err).Msg("Failed to restore device snapshot")
		}
		logger.Info().Int("devices", len(snap.Devices)).Msg("Restored persisted devices")
	}

	// Optional MQTT event bridge
	var bridge *mqtt.Bridge
	if cfg.MQTT.Enabled {
		bridge = mqtt.NewBridge(mqtt.BridgeConfig{
			BrokerURL:      cfg.MQTT.BrokerURL,
			ClientID:       cfg.MQTT.ClientID,
			Username:       cfg.MQTT.Username,
			Password:       cfg.MQTT.Password,
			TopicPrefix:    cfg.MQTT.TopicPrefix,
			QoS:            byte(cfg.MQTT.QoS),
			KeepAlive:      cfg.MQTT.KeepAlive,
			ReconnectDelay: cfg.MQTT.ReconnectDelay,
		}, bus, logger)
		if err := bridge.Start(ctx); err != nil {
			logger.Fatal().Err(err).Msg("Failed to start MQTT bridge")
		}
	}

	healthChecker := health.NewChecker(transportProbe, orchestrator, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthChecker.HealthHandler)
	mux.HandleFunc("/health/live", healthChecker.LiveHandler)
	mux.HandleFunc("/health/ready", healthChecker.ReadyHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(metricsRegistry.Gatherer(), promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      mux,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		logger.Info().Int("port", cfg.HTTP.Port).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	if err := orchestrator.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start connection orchestrator")
	}

	logger.Info().Msg("BLE Gateway started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("Shutdown signal received, stopping services...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := orchestrator.Stop(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Error stopping connection orchestrator")
	}
	if bridge != nil {
		bridge.Stop()
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Error stopping HTTP server")
	}

	logger.Info().Msg("BLE Gateway stopped")
}
