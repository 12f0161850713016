package service

import (
	"context"
	"time"

	"github.com/nexus-edge/ble-gateway/internal/domain"
)

// managedConn is the per-device state machine record. All fields are
// guarded by the orchestrator mutex; in-flight connect attempts and probes
// carry the generation they were launched under and their results are
// discarded if the generation has moved on.
type managedConn struct {
	address string
	config  domain.ConnectionConfig
	state   domain.ConnectionState
	metrics domain.ConnectionMetrics

	// gen invalidates in-flight work when bumped (deregister, disable,
	// pause, reset)
	gen uint64

	// eligibleSince orders devices within a priority tier (FIFO)
	eligibleSince time.Time

	// nextAttempt is when a reconnecting device may try again
	nextAttempt time.Time

	// connectedAt marks the start of the current session
	connectedAt time.Time

	// healthFailures counts consecutive failed liveness probes
	healthFailures int

	// nextProbe is when the link is probed next
	nextProbe time.Time

	// probing is set while a probe is in flight
	probing bool

	// cancelWork aborts the in-flight connect attempt or probe
	cancelWork context.CancelFunc
}

// interrupt invalidates in-flight work for this device and cancels it
// cooperatively.
func (mc *managedConn) interrupt() {
	mc.gen++
	if mc.cancelWork != nil {
		mc.cancelWork()
		mc.cancelWork = nil
	}
	mc.probing = false
}

// sessionUptime returns how long the current session has been up.
func (mc *managedConn) sessionUptime(now time.Time) time.Duration {
	if mc.state != domain.StateConnected && mc.state != domain.StateDegraded {
		return 0
	}
	if mc.connectedAt.IsZero() {
		return 0
	}
	return now.Sub(mc.connectedAt)
}

// snapshot builds an externally safe status view.
func (mc *managedConn) snapshot(now time.Time) domain.DeviceStatus {
	status := domain.DeviceStatus{
		Address: mc.address,
		State:   mc.state,
		Config:  mc.config,
		Metrics: mc.metrics,
		Uptime:  mc.sessionUptime(now),
	}
	if mc.state == domain.StateReconnecting && !mc.nextAttempt.IsZero() {
		next := mc.nextAttempt
		status.NextAttempt = &next
	}
	return status
}

// recordSuccess updates metrics for an established link.
func (mc *managedConn) recordSuccess(now time.Time, connectTime time.Duration) {
	m := &mc.metrics
	m.TotalAttempts++
	m.Successes++
	m.ConsecutiveFailures = 0
	m.RetryAttempts = 0
	m.LastConnectDuration = connectTime
	if m.Successes == 1 {
		m.AvgConnectDuration = connectTime
	} else {
		// Running average over successful attempts.
		total := time.Duration(m.Successes-1) * m.AvgConnectDuration
		m.AvgConnectDuration = (total + connectTime) / time.Duration(m.Successes)
	}
	t := now
	m.LastSuccess = &t
}

// recordFailure updates metrics for a failed attempt.
func (mc *managedConn) recordFailure(now time.Time) {
	m := &mc.metrics
	m.TotalAttempts++
	m.Failures++
	m.ConsecutiveFailures++
	m.RetryAttempts++
	t := now
	m.LastFailure = &t
}
