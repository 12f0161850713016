// Package service provides the connection orchestrator that keeps links to
// managed BLE peripherals alive: admission under a concurrency budget,
// retry scheduling, liveness probing, and durable state checkpoints.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/nexus-edge/ble-gateway/internal/analytics"
	"github.com/nexus-edge/ble-gateway/internal/domain"
	"github.com/nexus-edge/ble-gateway/internal/eventbus"
	"github.com/nexus-edge/ble-gateway/internal/metrics"
	"github.com/nexus-edge/ble-gateway/internal/persist"
	"github.com/nexus-edge/ble-gateway/internal/retry"
	"github.com/rs/zerolog"
)

// OrchestratorConfig holds configuration for the orchestrator.
type OrchestratorConfig struct {
	// MaxConcurrentConnections bounds how many devices may hold a
	// connection slot (connecting, connected, degraded or reconnecting)
	MaxConcurrentConnections int

	// TickInterval is the cadence of the scheduling loop
	TickInterval time.Duration

	// CheckpointInterval is how often state is persisted between
	// lifecycle checkpoints
	CheckpointInterval time.Duration

	// DefaultDeviceConfig applies to devices registered without explicit
	// configuration
	DefaultDeviceConfig domain.ConnectionConfig

	// DisconnectTimeout bounds teardown calls into the transport
	DisconnectTimeout time.Duration
}

// Orchestrator owns the set of managed connections and drives each
// device's state machine forward on a single scheduling loop. It is the
// only mutator of device state; connect attempts and probes run in
// goroutines but apply their results back under the orchestrator lock,
// guarded by a per-device generation counter.
type Orchestrator struct {
	config    OrchestratorConfig
	transport domain.Transport
	bus       *eventbus.Bus
	store     *persist.Store
	clock     clock.Clock
	logger    zerolog.Logger
	metrics   *metrics.Registry
	engine    *analytics.Engine

	mu      sync.Mutex
	devices map[string]*managedConn

	started        atomic.Bool
	ctx            context.Context
	cancel         context.CancelFunc
	wg             sync.WaitGroup
	lastCheckpoint time.Time
	lastDropped    uint64
}

// NewOrchestrator creates an orchestrator. The store may be nil, in which
// case no state is persisted.
func NewOrchestrator(
	config OrchestratorConfig,
	transport domain.Transport,
	bus *eventbus.Bus,
	store *persist.Store,
	logger zerolog.Logger,
	metricsReg *metrics.Registry,
) *Orchestrator {
	// Apply defaults
	if config.MaxConcurrentConnections <= 0 {
		config.MaxConcurrentConnections = 5
	}
	if config.TickInterval <= 0 {
		config.TickInterval = 250 * time.Millisecond
	}
	if config.CheckpointInterval <= 0 {
		config.CheckpointInterval = 60 * time.Second
	}
	if config.DisconnectTimeout <= 0 {
		config.DisconnectTimeout = 10 * time.Second
	}
	def := config.DefaultDeviceConfig
	def.Normalize()
	config.DefaultDeviceConfig = def

	return &Orchestrator{
		config:    config,
		transport: transport,
		bus:       bus,
		store:     store,
		clock:     clock.New(),
		logger:    logger.With().Str("component", "orchestrator").Logger(),
		metrics:   metricsReg,
		engine:    analytics.NewEngine(),
		devices:   make(map[string]*managedConn),
		ctx:       context.Background(),
		cancel:    func() {},
	}
}

// Start begins the scheduling loop.
func (o *Orchestrator) Start(ctx context.Context) error {
	if o.started.Load() {
		return nil
	}

	o.ctx, o.cancel = context.WithCancel(ctx)
	o.started.Store(true)
	o.lastCheckpoint = o.clock.Now()

	o.mu.Lock()
	deviceCount := len(o.devices)
	o.mu.Unlock()

	o.logger.Info().
		Int("devices", deviceCount).
		Int("max_concurrent", o.config.MaxConcurrentConnections).
		Dur("tick", o.config.TickInterval).
		Msg("Starting connection orchestrator")

	o.wg.Add(1)
	go o.run()
	return nil
}

// Stop halts the loop, tears down established links and writes a final
// checkpoint. The context bounds how long teardown may take.
func (o *Orchestrator) Stop(ctx context.Context) error {
	if !o.started.Load() {
		return nil
	}

	o.logger.Info().Msg("Stopping connection orchestrator")
	o.cancel()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		o.logger.Warn().Msg("Timeout waiting for in-flight work to settle")
	}

	o.mu.Lock()
	now := o.clock.Now()
	var connected []string
	for _, mc := range o.devices {
		mc.interrupt()
		if mc.state == domain.StateConnected || mc.state == domain.StateDegraded {
			connected = append(connected, mc.address)
			mc.metrics.ConnectedDuration += mc.sessionUptime(now)
			mc.state = domain.StateDisconnected
		}
	}
	snap, hasStore := o.checkpointLocked(now)
	o.mu.Unlock()

	for _, address := range connected {
		if err := o.transport.Disconnect(ctx, address); err != nil {
			o.logger.Warn().Err(err).Str("address", address).Msg("Teardown disconnect failed")
		}
	}
	if hasStore {
		if err := o.store.Save(snap); err != nil {
			o.logger.Error().Err(err).Msg("Failed to write final checkpoint")
		}
	}

	o.started.Store(false)
	return nil
}

// Register adds a device under management in the disconnected state.
// A nil config applies the orchestrator defaults.
func (o *Orchestrator) Register(address string, config *domain.ConnectionConfig) error {
	if address == "" {
		return domain.ErrAddressRequired
	}

	cfg := o.config.DefaultDeviceConfig
	if config != nil {
		cfg = *config
		cfg.Normalize()
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config for %s: %w", address, err)
	}

	o.mu.Lock()
	if _, exists := o.devices[address]; exists {
		o.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrAlreadyRegistered, address)
	}

	now := o.clock.Now()
	o.devices[address] = &managedConn{
		address:       address,
		config:        cfg,
		state:         domain.StateDisconnected,
		eligibleSince: now,
	}
	if o.metrics != nil {
		o.metrics.SetRegisteredDevices(len(o.devices))
	}
	snap, hasStore := o.checkpointLocked(now)
	o.mu.Unlock()

	o.logger.Info().
		Str("address", address).
		Str("priority", string(cfg.Priority)).
		Str("strategy", string(cfg.RetryStrategy)).
		Msg("Registered device")

	o.saveCheckpoint(snap, hasStore)
	return nil
}

// Deregister removes a device, cancelling pending work and tearing down
// its link, and drops it from the persisted snapshot.
func (o *Orchestrator) Deregister(address string) error {
	o.mu.Lock()
	mc, exists := o.devices[address]
	if !exists {
		o.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrNotFound, address)
	}

	mc.interrupt()
	wasUp := mc.state == domain.StateConnected || mc.state == domain.StateDegraded
	delete(o.devices, address)
	now := o.clock.Now()
	if o.metrics != nil {
		o.metrics.SetRegisteredDevices(len(o.devices))
		o.metrics.SetActiveConnections(o.budgetCountLocked())
	}
	snap, hasStore := o.checkpointLocked(now)
	o.mu.Unlock()

	if wasUp {
		o.teardown(address)
	}

	o.logger.Info().Str("address", address).Msg("Deregistered device")
	o.saveCheckpoint(snap, hasStore)
	return nil
}

// Disable parks a device: pending retries are cancelled, an established
// link is torn down, and the device is excluded from admission until
// explicitly re-enabled.
func (o *Orchestrator) Disable(address string) error {
	return o.park(address, domain.StateDisabled, domain.EventDisabled)
}

// Enable returns a disabled device to the disconnected state with its
// retry counter cleared.
func (o *Orchestrator) Enable(address string) error {
	o.mu.Lock()
	mc, exists := o.devices[address]
	if !exists {
		o.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrNotFound, address)
	}
	if mc.state != domain.StateDisabled {
		o.mu.Unlock()
		return nil
	}

	now := o.clock.Now()
	mc.metrics.RetryAttempts = 0
	mc.healthFailures = 0
	o.transitionLocked(mc, domain.StateDisconnected, now)
	o.publishLocked(domain.NewEvent(domain.EventEnabled, address, now))
	o.mu.Unlock()
	return nil
}

// Pause parks a device like Disable but preserves its retry counter.
func (o *Orchestrator) Pause(address string) error {
	return o.park(address, domain.StatePaused, domain.EventPaused)
}

// Resume returns a paused device to the disconnected state; the retry
// counter is untouched.
func (o *Orchestrator) Resume(address string) error {
	o.mu.Lock()
	mc, exists := o.devices[address]
	if !exists {
		o.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrNotFound, address)
	}
	if mc.state != domain.StatePaused {
		o.mu.Unlock()
		return nil
	}

	now := o.clock.Now()
	o.transitionLocked(mc, domain.StateDisconnected, now)
	o.publishLocked(domain.NewEvent(domain.EventResumed, address, now))
	o.mu.Unlock()
	return nil
}

// Reset returns a failed device to the disconnected state so automatic
// retries start over.
func (o *Orchestrator) Reset(address string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	mc, exists := o.devices[address]
	if !exists {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, address)
	}
	if mc.state != domain.StateFailed {
		return nil
	}

	mc.gen++
	mc.metrics.RetryAttempts = 0
	mc.metrics.ConsecutiveFailures = 0
	mc.healthFailures = 0
	o.transitionLocked(mc, domain.StateDisconnected, o.clock.Now())
	return nil
}

// Reconfigure replaces a device's connection configuration.
func (o *Orchestrator) Reconfigure(address string, config domain.ConnectionConfig) error {
	config.Normalize()
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid config for %s: %w", address, err)
	}

	o.mu.Lock()
	mc, exists := o.devices[address]
	if !exists {
		o.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrNotFound, address)
	}
	mc.config = config
	snap, hasStore := o.checkpointLocked(o.clock.Now())
	o.mu.Unlock()

	o.logger.Info().Str("address", address).Msg("Reconfigured device")
	o.saveCheckpoint(snap, hasStore)
	return nil
}

// Status returns the current state and metrics snapshot for one device.
func (o *Orchestrator) Status(address string) (domain.DeviceStatus, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	mc, exists := o.devices[address]
	if !exists {
		return domain.DeviceStatus{}, fmt.Errorf("%w: %s", domain.ErrNotFound, address)
	}
	return mc.snapshot(o.clock.Now()), nil
}

// StatusAll returns snapshots for every registered device, ordered by
// address.
func (o *Orchestrator) StatusAll() []domain.DeviceStatus {
	o.mu.Lock()
	defer o.mu.Unlock()

	now := o.clock.Now()
	statuses := make([]domain.DeviceStatus, 0, len(o.devices))
	for _, mc := range o.devices {
		statuses = append(statuses, mc.snapshot(now))
	}
	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Address < statuses[j].Address
	})
	return statuses
}

// Running reports whether the scheduling loop has been started and not
// yet stopped.
func (o *Orchestrator) Running() bool {
	return o.started.Load()
}

// Report generates the analytics report for the current fleet.
func (o *Orchestrator) Report() analytics.Report {
	return o.engine.Generate(o.StatusAll(), o.clock.Now())
}

// Restore re-registers devices from a persisted snapshot. Connected-like
// states load as disconnected; disabled, paused and failed are preserved.
// Intended to be called before Start.
func (o *Orchestrator) Restore(snap persist.Snapshot) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	now := o.clock.Now()
	for _, rec := range snap.Devices {
		if rec.Address == "" {
			continue
		}
		if _, exists := o.devices[rec.Address]; exists {
			continue
		}

		cfg := rec.Config
		cfg.Normalize()
		if err := cfg.Validate(); err != nil {
			o.logger.Warn().Err(err).Str("address", rec.Address).Msg("Skipping persisted device with invalid config")
			continue
		}

		state := rec.State.Collapse()
		if state == domain.StateConnected {
			state = domain.StateDisconnected
		}

		o.devices[rec.Address] = &managedConn{
			address:       rec.Address,
			config:        cfg,
			state:         state,
			metrics:       rec.Metrics,
			eligibleSince: now,
		}
	}
	if o.metrics != nil {
		o.metrics.SetRegisteredDevices(len(o.devices))
	}

	o.logger.Info().Int("devices", len(o.devices)).Msg("Restored device table")
	return nil
}

// run is the scheduling loop.
func (o *Orchestrator) run() {
	defer o.wg.Done()

	ticker := o.clock.Ticker(o.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-o.ctx.Done():
			return
		case <-ticker.C:
			o.tick()
		}
	}
}

// tick advances every device's state machine: drop detection, admission,
// probe scheduling and the periodic checkpoint.
func (o *Orchestrator) tick() {
	now := o.clock.Now()

	o.mu.Lock()
	o.detectDropsLocked(now)
	o.admitLocked(now)
	probes := o.dueProbesLocked(now)

	var snap persist.Snapshot
	hasStore := false
	if o.store != nil && now.Sub(o.lastCheckpoint) >= o.config.CheckpointInterval {
		snap, hasStore = o.checkpointLocked(now)
		o.lastCheckpoint = now
	}

	if o.metrics != nil {
		dropped := o.bus.Dropped()
		if delta := dropped - o.lastDropped; delta > 0 {
			o.metrics.AddEventsDropped(delta)
		}
		o.lastDropped = dropped
	}
	o.mu.Unlock()

	for _, p := range probes {
		o.wg.Add(1)
		go o.runProbe(p)
	}
	o.saveCheckpoint(snap, hasStore)
}

// detectDropsLocked moves devices whose transport link silently went away
// into reconnection.
func (o *Orchestrator) detectDropsLocked(now time.Time) {
	for _, mc := range o.devices {
		if mc.state != domain.StateConnected && mc.state != domain.StateDegraded {
			continue
		}
		if o.transport.IsConnected(mc.address) {
			continue
		}

		o.logger.Warn().Str("address", mc.address).Msg("Unsolicited disconnect detected")
		mc.interrupt()
		o.publishLocked(domain.NewEvent(domain.EventDisconnected, mc.address, now))
		o.scheduleRetryLocked(mc, now)
	}
}

// admitLocked runs priority-ordered admission. Reconnecting devices whose
// delay elapsed already hold a slot and proceed unconditionally; devices
// in disconnected compete for free slots by priority then FIFO.
func (o *Orchestrator) admitLocked(now time.Time) {
	var waiting []*managedConn
	for _, mc := range o.devices {
		switch mc.state {
		case domain.StateReconnecting:
			if !now.Before(mc.nextAttempt) {
				o.launchConnectLocked(mc, now)
			}
		case domain.StateDisconnected:
			waiting = append(waiting, mc)
		}
	}

	free := o.config.MaxConcurrentConnections - o.budgetCountLocked()
	if free <= 0 || len(waiting) == 0 {
		return
	}

	sort.Slice(waiting, func(i, j int) bool {
		a, b := waiting[i], waiting[j]
		if ra, rb := a.config.Priority.Rank(), b.config.Priority.Rank(); ra != rb {
			return ra < rb
		}
		if !a.eligibleSince.Equal(b.eligibleSince) {
			return a.eligibleSince.Before(b.eligibleSince)
		}
		return a.address < b.address
	})

	for _, mc := range waiting {
		if free <= 0 {
			break
		}
		o.launchConnectLocked(mc, now)
		free--
	}
}

// launchConnectLocked transitions a device to connecting and starts the
// attempt goroutine.
func (o *Orchestrator) launchConnectLocked(mc *managedConn, now time.Time) {
	o.transitionLocked(mc, domain.StateConnecting, now)

	attemptCtx, cancel := context.WithTimeout(o.ctx, mc.config.ConnectionTimeout)
	mc.cancelWork = cancel

	ev := domain.NewEvent(domain.EventConnectionAttempt, mc.address, now)
	ev.Attempt = mc.metrics.RetryAttempts
	o.publishLocked(ev)
	if o.metrics != nil {
		o.metrics.IncConnectAttempts()
	}

	gen := mc.gen
	address := mc.address
	o.wg.Add(1)
	go o.runConnect(attemptCtx, cancel, address, gen)
}

// runConnect performs one connect attempt and applies the outcome.
func (o *Orchestrator) runConnect(ctx context.Context, cancel context.CancelFunc, address string, gen uint64) {
	defer o.wg.Done()
	defer cancel()

	start := o.clock.Now()
	err := o.transport.Connect(ctx, address)
	elapsed := o.clock.Now().Sub(start)

	// Classify the outcome. A deadline hit counts as a timeout failure
	// regardless of how the transport wrapped it.
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrCapabilityUnavailable):
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, domain.ErrConnectionTimeout):
		err = domain.ErrConnectionTimeout
	case errors.Is(ctx.Err(), context.Canceled):
		// Cancelled by pause/disable/deregister or shutdown; the
		// generation check below discards the result.
	default:
		err = fmt.Errorf("%w: %v", domain.ErrConnectionRefused, err)
	}

	o.applyConnectResult(address, gen, err, elapsed)
}

// applyConnectResult folds an attempt outcome back into the state machine.
// Stale results (generation moved on, or the device left connecting) are
// discarded.
func (o *Orchestrator) applyConnectResult(address string, gen uint64, err error, elapsed time.Duration) {
	o.mu.Lock()
	mc, exists := o.devices[address]
	if !exists || mc.gen != gen || mc.state != domain.StateConnecting {
		// A newer attempt may already own a live link on this address;
		// tearing down here would sever it.
		live := exists && (mc.state == domain.StateConnected || mc.state == domain.StateDegraded)
		o.mu.Unlock()
		if err == nil && !live {
			// The link came up but nobody wants it anymore.
			o.teardown(address)
		}
		return
	}

	now := o.clock.Now()
	mc.cancelWork = nil

	if err == nil {
		mc.recordSuccess(now, elapsed)
		mc.connectedAt = now
		mc.healthFailures = 0
		mc.nextProbe = now.Add(mc.config.HealthCheckInterval)
		o.transitionLocked(mc, domain.StateConnected, now)

		ev := domain.NewEvent(domain.EventConnectionSuccess, address, now)
		ev.ConnectTime = elapsed
		o.publishLocked(ev)
		if o.metrics != nil {
			o.metrics.IncConnectSuccesses()
			o.metrics.ObserveConnectDuration(elapsed.Seconds())
		}
		o.mu.Unlock()

		o.logger.Info().
			Str("address", address).
			Dur("connect_time", elapsed).
			Msg("Device connected")
		return
	}

	if errors.Is(err, domain.ErrCapabilityUnavailable) {
		// The adapter itself is gone; this never consumes a retry
		// attempt. Hold the slot and try again after the initial delay.
		o.transitionLocked(mc, domain.StateReconnecting, now)
		mc.nextAttempt = now.Add(mc.config.InitialRetryDelay)
		o.mu.Unlock()

		o.logger.Error().
			Str("address", address).
			Msg("Transport capability unavailable, retry deferred")
		return
	}

	mc.recordFailure(now)
	if o.metrics != nil {
		o.metrics.IncConnectFailures()
	}

	ev := domain.NewEvent(domain.EventConnectionFailed, address, now)
	ev.Attempt = mc.metrics.RetryAttempts
	ev.Error = err.Error()

	attempt := mc.metrics.RetryAttempts
	if attempt > mc.config.MaxRetries {
		o.publishLocked(ev)
		o.transitionLocked(mc, domain.StateFailed, now)
		o.publishLocked(domain.NewEvent(domain.EventMaxRetriesExceeded, address, now))
		if o.metrics != nil {
			o.metrics.IncMaxRetriesExceeded()
		}
		o.mu.Unlock()

		o.logger.Error().
			Str("address", address).
			Int("attempts", attempt).
			Msg("Max retries exceeded, device parked")
		return
	}

	delay := retry.Delay(mc.config, attempt-1)
	ev.NextRetryIn = delay
	o.publishLocked(ev)
	o.transitionLocked(mc, domain.StateReconnecting, now)
	mc.nextAttempt = now.Add(delay)
	o.mu.Unlock()

	o.logger.Warn().
		Err(err).
		Str("address", address).
		Int("attempt", attempt).
		Dur("next_retry_in", delay).
		Msg("Connect attempt failed")
}

// scheduleRetryLocked moves a device into reconnecting with its backoff
// delay applied.
func (o *Orchestrator) scheduleRetryLocked(mc *managedConn, now time.Time) {
	o.transitionLocked(mc, domain.StateReconnecting, now)
	mc.nextAttempt = now.Add(retry.Delay(mc.config, mc.metrics.RetryAttempts))
}

// park implements Disable and Pause: cancel pending work, tear down an
// established link, and move to the target rest state.
func (o *Orchestrator) park(address string, target domain.ConnectionState, eventType domain.EventType) error {
	o.mu.Lock()
	mc, exists := o.devices[address]
	if !exists {
		o.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrNotFound, address)
	}
	if mc.state == target {
		o.mu.Unlock()
		return nil
	}

	now := o.clock.Now()
	mc.interrupt()
	wasUp := mc.state == domain.StateConnected || mc.state == domain.StateDegraded
	o.transitionLocked(mc, target, now)
	o.publishLocked(domain.NewEvent(eventType, address, now))
	o.mu.Unlock()

	if wasUp {
		o.teardown(address)
	}
	return nil
}

// transitionLocked applies a state change, maintaining uptime accounting,
// FIFO eligibility ordering and gauges, and emits state_changed.
func (o *Orchestrator) transitionLocked(mc *managedConn, to domain.ConnectionState, now time.Time) {
	from := mc.state
	if from == to {
		return
	}

	if from == domain.StateConnected || from == domain.StateDegraded {
		mc.metrics.ConnectedDuration += mc.sessionUptime(now)
		if to != domain.StateConnected && to != domain.StateDegraded {
			mc.connectedAt = time.Time{}
		}
	}
	if to == domain.StateDisconnected {
		mc.eligibleSince = now
		mc.nextAttempt = time.Time{}
	}

	mc.state = to

	ev := domain.NewEvent(domain.EventStateChanged, mc.address, now)
	ev.From = from
	ev.To = to
	o.publishLocked(ev)

	if o.metrics != nil {
		o.metrics.SetActiveConnections(o.budgetCountLocked())
	}

	o.logger.Debug().
		Str("address", mc.address).
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("State transition")
}

// budgetCountLocked counts devices occupying a connection slot.
func (o *Orchestrator) budgetCountLocked() int {
	n := 0
	for _, mc := range o.devices {
		if mc.state.CountsAgainstBudget() {
			n++
		}
	}
	return n
}

// publishLocked emits an event. The bus never blocks, so publishing under
// the orchestrator lock is safe.
func (o *Orchestrator) publishLocked(ev domain.Event) {
	o.bus.Publish(ev)
}

// checkpointLocked builds a snapshot of the device table for persistence.
func (o *Orchestrator) checkpointLocked(now time.Time) (persist.Snapshot, bool) {
	if o.store == nil {
		return persist.Snapshot{}, false
	}

	snap := persist.Snapshot{
		SavedAt: now,
		Devices: make([]persist.DeviceRecord, 0, len(o.devices)),
	}
	for _, mc := range o.devices {
		m := mc.metrics
		m.ConnectedDuration += mc.sessionUptime(now)
		snap.Devices = append(snap.Devices, persist.DeviceRecord{
			Address: mc.address,
			Config:  mc.config,
			State:   mc.state,
			Metrics: m,
		})
	}
	sort.Slice(snap.Devices, func(i, j int) bool {
		return snap.Devices[i].Address < snap.Devices[j].Address
	})
	return snap, true
}

// saveCheckpoint writes a snapshot built under the lock. Failures are
// logged, never fatal.
func (o *Orchestrator) saveCheckpoint(snap persist.Snapshot, hasStore bool) {
	if !hasStore {
		return
	}
	if err := o.store.Save(snap); err != nil {
		o.logger.Error().Err(err).Msg("Failed to write checkpoint")
	}
}

// teardown closes the transport link for a device, best effort.
func (o *Orchestrator) teardown(address string) {
	ctx, cancel := context.WithTimeout(context.Background(), o.config.DisconnectTimeout)
	defer cancel()
	if err := o.transport.Disconnect(ctx, address); err != nil {
		o.logger.Warn().Err(err).Str("address", address).Msg("Disconnect failed")
	}
}
