package domain

import "errors"

// Caller-input errors, returned synchronously from orchestrator operations.
var (
	ErrAlreadyRegistered = errors.New("device already registered")
	ErrNotFound          = errors.New("device not found")
)

// Transport and lifecycle errors. Timeout, refusal and failed probes are
// absorbed by the retry machinery and surfaced as events; capability
// unavailability is returned to the caller and never consumes a retry.
var (
	ErrConnectionTimeout     = errors.New("connection attempt timed out")
	ErrConnectionRefused     = errors.New("connection refused by device")
	ErrHealthCheckFailed     = errors.New("health check failed")
	ErrMaxRetriesExceeded    = errors.New("max retries exceeded")
	ErrCapabilityUnavailable = errors.New("transport capability unavailable")
)

// Configuration validation errors.
var (
	ErrInvalidMaxRetries          = errors.New("max_retries must be non-negative")
	ErrInvalidRetryDelay          = errors.New("initial_retry_delay must not exceed max_retry_delay")
	ErrInvalidRetryStrategy       = errors.New("unknown retry strategy")
	ErrInvalidPriority            = errors.New("unknown priority")
	ErrInvalidConsecutiveFailures = errors.New("max_consecutive_failures must be positive")
	ErrAddressRequired            = errors.New("device address is required")
)
