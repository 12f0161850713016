// Package domain contains the core business entities and interfaces.
// These are transport-agnostic and represent the core concepts of the system.
package domain

import (
	"time"
)

// ConnectionState represents the current lifecycle state of a managed link.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateDegraded     ConnectionState = "degraded"
	StateReconnecting ConnectionState = "reconnecting"
	StateFailed       ConnectionState = "failed"
	StateDisabled     ConnectionState = "disabled"
	StatePaused       ConnectionState = "paused"
)

// CountsAgainstBudget reports whether a device in this state occupies a
// slot under the orchestrator's max-concurrent-connections budget.
func (s ConnectionState) CountsAgainstBudget() bool {
	switch s {
	case StateConnecting, StateConnected, StateDegraded, StateReconnecting:
		return true
	}
	return false
}

// Collapse maps transient states to their durable equivalent for
// persistence: in-flight states collapse to disconnected, degraded
// collapses to connected, rest states are preserved as-is.
func (s ConnectionState) Collapse() ConnectionState {
	switch s {
	case StateConnecting, StateReconnecting:
		return StateDisconnected
	case StateDegraded:
		return StateConnected
	}
	return s
}

// RetryStrategy selects how the delay between connect attempts grows.
type RetryStrategy string

const (
	RetryExponential RetryStrategy = "exponential"
	RetryLinear      RetryStrategy = "linear"
	RetryFixed       RetryStrategy = "fixed"
)

// Priority ranks devices for admission when connection slots are scarce.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank returns the admission rank for this priority; lower is admitted first.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	}
	return 3
}

// ConnectionConfig holds per-device connection management parameters.
// It is immutable once attached to a managed device except through an
// explicit reconfigure operation.
type ConnectionConfig struct {
	// MaxRetries is how many failed attempts are tolerated before the
	// device is parked in the failed state
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// InitialRetryDelay is the base delay before the first retry
	InitialRetryDelay time.Duration `json:"initial_retry_delay" yaml:"initial_retry_delay"`

	// MaxRetryDelay caps the computed backoff delay
	MaxRetryDelay time.Duration `json:"max_retry_delay" yaml:"max_retry_delay"`

	// RetryStrategy selects the backoff curve
	RetryStrategy RetryStrategy `json:"retry_strategy" yaml:"retry_strategy"`

	// ConnectionTimeout bounds a single connect attempt
	ConnectionTimeout time.Duration `json:"connection_timeout" yaml:"connection_timeout"`

	// HealthCheckInterval is how often an established link is probed
	HealthCheckInterval time.Duration `json:"health_check_interval" yaml:"health_check_interval"`

	// HealthCharacteristic is the GATT characteristic read as a liveness probe
	HealthCharacteristic string `json:"health_characteristic,omitempty" yaml:"health_characteristic,omitempty"`

	// Priority ranks this device for slot admission
	Priority Priority `json:"priority" yaml:"priority"`

	// MaxConsecutiveFailures is how many health probe failures in a row
	// force the link back through reconnection
	MaxConsecutiveFailures int `json:"max_consecutive_failures" yaml:"max_consecutive_failures"`
}

// DefaultConnectionConfig returns the defaults applied to devices
// registered without explicit configuration.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		MaxRetries:             5,
		InitialRetryDelay:      1 * time.Second,
		MaxRetryDelay:          60 * time.Second,
		RetryStrategy:          RetryExponential,
		ConnectionTimeout:      30 * time.Second,
		HealthCheckInterval:    30 * time.Second,
		Priority:               PriorityMedium,
		MaxConsecutiveFailures: 3,
	}
}

// Normalize fills zero-valued fields from the defaults.
func (c *ConnectionConfig) Normalize() {
	def := DefaultConnectionConfig()
	if c.InitialRetryDelay <= 0 {
		c.InitialRetryDelay = def.InitialRetryDelay
	}
	if c.MaxRetryDelay <= 0 {
		c.MaxRetryDelay = def.MaxRetryDelay
	}
	if c.RetryStrategy == "" {
		c.RetryStrategy = def.RetryStrategy
	}
	if c.ConnectionTimeout <= 0 {
		c.ConnectionTimeout = def.ConnectionTimeout
	}
	if c.HealthCheckInterval <= 0 {
		c.HealthCheckInterval = def.HealthCheckInterval
	}
	if c.Priority == "" {
		c.Priority = def.Priority
	}
	if c.MaxConsecutiveFailures <= 0 {
		c.MaxConsecutiveFailures = def.MaxConsecutiveFailures
	}
}

// Validate performs validation on the connection configuration.
func (c *ConnectionConfig) Validate() error {
	if c.MaxRetries < 0 {
		return ErrInvalidMaxRetries
	}
	if c.InitialRetryDelay > c.MaxRetryDelay {
		return ErrInvalidRetryDelay
	}
	switch c.RetryStrategy {
	case RetryExponential, RetryLinear, RetryFixed:
	default:
		return ErrInvalidRetryStrategy
	}
	switch c.Priority {
	case PriorityHigh, PriorityMedium, PriorityLow:
	default:
		return ErrInvalidPriority
	}
	if c.MaxConsecutiveFailures < 1 {
		return ErrInvalidConsecutiveFailures
	}
	return nil
}

// ConnectionMetrics accumulates per-device connection statistics.
type ConnectionMetrics struct {
	// TotalAttempts counts connect attempts, successful or not
	TotalAttempts uint64 `json:"total_attempts" yaml:"total_attempts"`

	// Successes counts attempts that established a link
	Successes uint64 `json:"successes" yaml:"successes"`

	// Failures counts attempts that did not
	Failures uint64 `json:"failures" yaml:"failures"`

	// ConsecutiveFailures counts failed attempts and failed health probes
	// since the last success
	ConsecutiveFailures int `json:"consecutive_failures" yaml:"consecutive_failures"`

	// RetryAttempts counts failed attempts since the disconnect that
	// started the current retry cycle; resets to zero on success and on
	// re-enable
	RetryAttempts int `json:"retry_attempts" yaml:"retry_attempts"`

	// ConnectedDuration is the cumulative time the link has been up
	ConnectedDuration time.Duration `json:"connected_duration" yaml:"connected_duration"`

	// LastConnectDuration is how long the most recent successful attempt took
	LastConnectDuration time.Duration `json:"last_connect_duration" yaml:"last_connect_duration"`

	// AvgConnectDuration is the running average over successful attempts
	AvgConnectDuration time.Duration `json:"avg_connect_duration" yaml:"avg_connect_duration"`

	// LastSuccess is when the link was last established
	LastSuccess *time.Time `json:"last_success,omitempty" yaml:"last_success,omitempty"`

	// LastFailure is when an attempt last failed
	LastFailure *time.Time `json:"last_failure,omitempty" yaml:"last_failure,omitempty"`
}

// SuccessRate returns successes over total attempts, zero if no attempts.
func (m *ConnectionMetrics) SuccessRate() float64 {
	if m.TotalAttempts == 0 {
		return 0
	}
	return float64(m.Successes) / float64(m.TotalAttempts)
}

// DeviceStatus is a point-in-time snapshot of a managed device, safe to
// hand out across the orchestrator boundary.
type DeviceStatus struct {
	Address     string            `json:"address"`
	State       ConnectionState   `json:"state"`
	Config      ConnectionConfig  `json:"config"`
	Metrics     ConnectionMetrics `json:"metrics"`
	NextAttempt *time.Time        `json:"next_attempt,omitempty"`

	// Uptime is the live duration of the current session when the device
	// is connected or degraded, zero otherwise
	Uptime time.Duration `json:"uptime"`
}
