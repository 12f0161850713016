package service

import (
	"context"
	"time"

	"github.com/nexus-edge/ble-gateway/internal/domain"
)

// maxProbeTimeout caps how long a single liveness probe may run even for
// devices with long health check intervals.
const maxProbeTimeout = 5 * time.Second

// probeTask identifies one scheduled liveness probe.
type probeTask struct {
	address string
	gen     uint64
	cfg     domain.ConnectionConfig
	ctx     context.Context
	cancel  context.CancelFunc
}

// probeTimeout derives the probe deadline from the check interval.
func probeTimeout(cfg domain.ConnectionConfig) time.Duration {
	timeout := cfg.HealthCheckInterval / 2
	if timeout <= 0 || timeout > maxProbeTimeout {
		timeout = maxProbeTimeout
	}
	return timeout
}

// dueProbesLocked collects devices whose next probe has come due and marks
// them as probing so a slow probe is never doubled up.
func (o *Orchestrator) dueProbesLocked(now time.Time) []probeTask {
	var due []probeTask
	for _, mc := range o.devices {
		if mc.state != domain.StateConnected && mc.state != domain.StateDegraded {
			continue
		}
		if mc.probing || now.Before(mc.nextProbe) {
			continue
		}

		ctx, cancel := context.WithTimeout(o.ctx, probeTimeout(mc.config))
		mc.probing = true
		mc.cancelWork = cancel
		due = append(due, probeTask{
			address: mc.address,
			gen:     mc.gen,
			cfg:     mc.config,
			ctx:     ctx,
			cancel:  cancel,
		})
	}
	return due
}

// runProbe issues one liveness read against an established link.
func (o *Orchestrator) runProbe(p probeTask) {
	defer o.wg.Done()
	defer p.cancel()

	_, err := o.transport.ReadCharacteristic(p.ctx, p.address, p.cfg.HealthCharacteristic)
	o.applyProbeResult(p.address, p.gen, err)
}

// applyProbeResult folds a probe outcome back into the state machine.
// Stale results are discarded; by the time they arrive the device has been
// paused, disabled, reset or deregistered.
func (o *Orchestrator) applyProbeResult(address string, gen uint64, err error) {
	o.mu.Lock()
	mc, exists := o.devices[address]
	if !exists || mc.gen != gen ||
		(mc.state != domain.StateConnected && mc.state != domain.StateDegraded) {
		o.mu.Unlock()
		return
	}

	now := o.clock.Now()
	mc.probing = false
	mc.cancelWork = nil
	mc.nextProbe = now.Add(mc.config.HealthCheckInterval)

	if err == nil {
		mc.healthFailures = 0
		mc.metrics.ConsecutiveFailures = 0
		if mc.state == domain.StateDegraded {
			o.transitionLocked(mc, domain.StateConnected, now)
		}
		o.publishLocked(domain.NewEvent(domain.EventHealthCheckSuccess, address, now))
		o.mu.Unlock()
		return
	}

	mc.healthFailures++
	mc.metrics.ConsecutiveFailures++
	failures := mc.healthFailures

	ev := domain.NewEvent(domain.EventHealthCheckFailed, address, now)
	ev.Error = err.Error()
	ev.Attempt = failures
	o.publishLocked(ev)
	if o.metrics != nil {
		o.metrics.IncHealthCheckFailures()
	}

	if failures >= mc.config.MaxConsecutiveFailures {
		// The link is gone in all but name; tear it down and go back
		// through reconnection.
		o.publishLocked(domain.NewEvent(domain.EventDisconnected, address, now))
		o.scheduleRetryLocked(mc, now)
		o.mu.Unlock()

		o.teardown(address)
		o.logger.Warn().
			Str("address", address).
			Int("failures", failures).
			Msg("Health check limit reached, reconnecting")
		return
	}

	if mc.state == domain.StateConnected {
		o.transitionLocked(mc, domain.StateDegraded, now)
	}
	o.mu.Unlock()

	o.logger.Warn().
		Err(err).
		Str("address", address).
		Int("failures", failures).
		Msg("Health check failed")
}
