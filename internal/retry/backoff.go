// Package retry computes backoff delays between connect attempts.
package retry

import (
	"time"

	"github.com/nexus-edge/ble-gateway/internal/domain"
)

// maxShift bounds the exponential shift so the computation cannot
// overflow before the cap is applied.
const maxShift = 32

// Delay returns the wait before retry attempt n (0-indexed, counted since
// the disconnect that started the current retry cycle).
//
// Exponential and linear delays are capped at MaxRetryDelay; the fixed
// strategy always returns InitialRetryDelay.
func Delay(cfg domain.ConnectionConfig, attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	var delay time.Duration
	switch cfg.RetryStrategy {
	case domain.RetryLinear:
		delay = cfg.InitialRetryDelay * time.Duration(attempt+1)
	case domain.RetryFixed:
		return cfg.InitialRetryDelay
	default: // exponential
		if attempt >= maxShift {
			return cfg.MaxRetryDelay
		}
		delay = cfg.InitialRetryDelay << uint(attempt)
	}

	if delay > cfg.MaxRetryDelay || delay <= 0 {
		delay = cfg.MaxRetryDelay
	}
	return delay
}
