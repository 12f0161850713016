// Package config loads the gateway configuration from a YAML file with
// BLE_GATEWAY_* environment overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/nexus-edge/ble-gateway/internal/domain"
	"github.com/spf13/viper"
)

// Config represents the complete service configuration
type Config struct {
	Service   ServiceConfig   `mapstructure:"service"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Manager   ManagerConfig   `mapstructure:"manager"`
	Transport TransportConfig `mapstructure:"transport"`
	Breaker   BreakerConfig   `mapstructure:"breaker"`
	MQTT      MQTTConfig      `mapstructure:"mqtt"`
	Defaults  DefaultsConfig  `mapstructure:"defaults"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServiceConfig contains service identification
type ServiceConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// HTTPConfig contains HTTP server settings
type HTTPConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// ManagerConfig contains connection orchestrator settings
type ManagerConfig struct {
	MaxConcurrentConnections int           `mapstructure:"max_concurrent_connections"`
	TickInterval             time.Duration `mapstructure:"tick_interval"`
	CheckpointInterval       time.Duration `mapstructure:"checkpoint_interval"`
	StatePath                string        `mapstructure:"state_path"`
	DisconnectTimeout        time.Duration `mapstructure:"disconnect_timeout"`
}

// TransportConfig selects the transport backing the gateway
type TransportConfig struct {
	Kind           string        `mapstructure:"kind"` // "ble" or "sim"
	ConnectLatency time.Duration `mapstructure:"connect_latency"`
	FailureRate    float64       `mapstructure:"failure_rate"`
	DropRate       float64       `mapstructure:"drop_rate"`
	Seed           int64         `mapstructure:"seed"`
}

// BreakerConfig contains circuit breaker settings for the transport
type BreakerConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	ConsecutiveFailures uint32        `mapstructure:"consecutive_failures"`
	OpenTimeout         time.Duration `mapstructure:"open_timeout"`
}

// MQTTConfig contains MQTT event bridge settings
type MQTTConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	BrokerURL      string        `mapstructure:"broker_url"`
	ClientID       string        `mapstructure:"client_id"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	TopicPrefix    string        `mapstructure:"topic_prefix"`
	QoS            int           `mapstructure:"qos"`
	KeepAlive      time.Duration `mapstructure:"keep_alive"`
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
}

// DefaultsConfig contains the per-device connection defaults applied to
// registrations that do not carry their own configuration.
type DefaultsConfig struct {
	MaxRetries             int           `mapstructure:"max_retries"`
	InitialRetryDelay      time.Duration `mapstructure:"initial_retry_delay"`
	MaxRetryDelay          time.Duration `mapstructure:"max_retry_delay"`
	RetryStrategy          string        `mapstructure:"retry_strategy"`
	HealthCheckInterval    time.Duration `mapstructure:"health_check_interval"`
	HealthCharacteristic   string        `mapstructure:"health_characteristic"`
	MaxConsecutiveFailures int           `mapstructure:"max_consecutive_failures"`
	ConnectionTimeout      time.Duration `mapstructure:"connection_timeout"`
	Priority               string        `mapstructure:"priority"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ToDomain converts the defaults section into a device configuration.
func (d DefaultsConfig) ToDomain() domain.ConnectionConfig {
	cfg := domain.DefaultConnectionConfig()
	if d.MaxRetries != 0 {
		cfg.MaxRetries = d.MaxRetries
	}
	if d.InitialRetryDelay != 0 {
		cfg.InitialRetryDelay = d.InitialRetryDelay
	}
	if d.MaxRetryDelay != 0 {
		cfg.MaxRetryDelay = d.MaxRetryDelay
	}
	if d.RetryStrategy != "" {
		cfg.RetryStrategy = domain.RetryStrategy(d.RetryStrategy)
	}
	if d.HealthCheckInterval != 0 {
		cfg.HealthCheckInterval = d.HealthCheckInterval
	}
	if d.HealthCharacteristic != "" {
		cfg.HealthCharacteristic = d.HealthCharacteristic
	}
	if d.MaxConsecutiveFailures != 0 {
		cfg.MaxConsecutiveFailures = d.MaxConsecutiveFailures
	}
	if d.ConnectionTimeout != 0 {
		cfg.ConnectionTimeout = d.ConnectionTimeout
	}
	if d.Priority != "" {
		cfg.Priority = domain.Priority(d.Priority)
	}
	return cfg
}

// Load reads the configuration file and applies environment overrides.
// Every key can be overridden via BLE_GATEWAY_<SECTION>_<KEY>.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v)

	v.SetEnvPrefix("BLE_GATEWAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, statErr := os.Stat(path); statErr == nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	hostname, _ := os.Hostname()

	v.SetDefault("service.name", "ble-gateway")
	v.SetDefault("service.environment", "development")

	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 10*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)

	v.SetDefault("manager.max_concurrent_connections", 5)
	v.SetDefault("manager.tick_interval", 250*time.Millisecond)
	v.SetDefault("manager.checkpoint_interval", 60*time.Second)
	v.SetDefault("manager.state_path", "data/devices.yaml")
	v.SetDefault("manager.disconnect_timeout", 10*time.Second)

	v.SetDefault("transport.kind", "ble")
	v.SetDefault("transport.connect_latency", 150*time.Millisecond)
	v.SetDefault("transport.failure_rate", 0.0)
	v.SetDefault("transport.drop_rate", 0.0)
	v.SetDefault("transport.seed", 0)

	v.SetDefault("breaker.enabled", true)
	v.SetDefault("breaker.consecutive_failures", 8)
	v.SetDefault("breaker.open_timeout", 30*time.Second)

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker_url", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", fmt.Sprintf("ble-gateway-%s", hostname))
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.topic_prefix", "ble/events")
	v.SetDefault("mqtt.qos", 1)
	v.SetDefault("mqtt.keep_alive", 30*time.Second)
	v.SetDefault("mqtt.reconnect_delay", 5*time.Second)

	def := domain.DefaultConnectionConfig()
	v.SetDefault("defaults.max_retries", def.MaxRetries)
	v.SetDefault("defaults.initial_retry_delay", def.InitialRetryDelay)
	v.SetDefault("defaults.max_retry_delay", def.MaxRetryDelay)
	v.SetDefault("defaults.retry_strategy", string(def.RetryStrategy))
	v.SetDefault("defaults.health_check_interval", def.HealthCheckInterval)
	v.SetDefault("defaults.health_characteristic", def.HealthCharacteristic)
	v.SetDefault("defaults.max_consecutive_failures", def.MaxConsecutiveFailures)
	v.SetDefault("defaults.connection_timeout", def.ConnectionTimeout)
	v.SetDefault("defaults.priority", string(def.Priority))

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

func validate(cfg *Config) error {
	switch cfg.Transport.Kind {
	case "ble", "sim":
	default:
		return fmt.Errorf("transport.kind must be \"ble\" or \"sim\", got %q", cfg.Transport.Kind)
	}
	if cfg.Manager.MaxConcurrentConnections < 1 {
		return fmt.Errorf("manager.max_concurrent_connections must be at least 1")
	}
	if cfg.Manager.TickInterval <= 0 {
		return fmt.Errorf("manager.tick_interval must be positive")
	}
	if cfg.Transport.FailureRate < 0 || cfg.Transport.FailureRate > 1 {
		return fmt.Errorf("transport.failure_rate must be within [0, 1]")
	}
	if cfg.Transport.DropRate < 0 || cfg.Transport.DropRate > 1 {
		return fmt.Errorf("transport.drop_rate must be within [0, 1]")
	}
	if cfg.MQTT.Enabled && cfg.MQTT.BrokerURL == "" {
		return fmt.Errorf("mqtt.broker_url is required when the bridge is enabled")
	}
	if cfg.MQTT.QoS < 0 || cfg.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2")
	}
	defaults := cfg.Defaults.ToDomain()
	if err := defaults.Validate(); err != nil {
		return fmt.Errorf("defaults: %w", err)
	}
	return nil
}
