package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds all Prometheus metrics
type Registry struct {
	reg                 *prometheus.Registry
	connectAttempts     prometheus.Counter
	connectSuccesses    prometheus.Counter
	connectFailures     prometheus.Counter
	healthCheckFailures prometheus.Counter
	maxRetriesExceeded  prometheus.Counter
	eventsDropped       prometheus.Counter
	activeConnections   prometheus.Gauge
	registeredDevices   prometheus.Gauge
	connectDuration     prometheus.Histogram
}

// NewRegistry creates a new metrics registry backed by its own Prometheus
// registry, so multiple instances never collide on metric names.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Registry{
		reg: reg,
		connectAttempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "ble_gateway_connect_attempts_total",
			Help: "Total number of connect attempts across all devices",
		}),
		connectSuccesses: factory.NewCounter(prometheus.CounterOpts{
			Name: "ble_gateway_connect_successes_total",
			Help: "Total number of successful connect attempts",
		}),
		connectFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "ble_gateway_connect_failures_total",
			Help: "Total number of failed connect attempts",
		}),
		healthCheckFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "ble_gateway_health_check_failures_total",
			Help: "Total number of failed liveness probes",
		}),
		maxRetriesExceeded: factory.NewCounter(prometheus.CounterOpts{
			Name: "ble_gateway_max_retries_exceeded_total",
			Help: "Total number of devices parked in the failed state",
		}),
		eventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "ble_gateway_events_dropped_total",
			Help: "Total number of lifecycle events dropped for slow subscribers",
		}),
		activeConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ble_gateway_active_connections",
			Help: "Devices currently holding a connection slot",
		}),
		registeredDevices: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ble_gateway_registered_devices",
			Help: "Devices currently under management",
		}),
		connectDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ble_gateway_connect_duration_seconds",
			Help:    "Duration of successful connect attempts",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		}),
	}
}

// Gatherer exposes the underlying registry for the /metrics handler
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// IncConnectAttempts increments the connect attempts counter
func (r *Registry) IncConnectAttempts() {
	r.connectAttempts.Inc()
}

// IncConnectSuccesses increments the connect successes counter
func (r *Registry) IncConnectSuccesses() {
	r.connectSuccesses.Inc()
}

// IncConnectFailures increments the connect failures counter
func (r *Registry) IncConnectFailures() {
	r.connectFailures.Inc()
}

// IncHealthCheckFailures increments the failed probe counter
func (r *Registry) IncHealthCheckFailures() {
	r.healthCheckFailures.Inc()
}

// IncMaxRetriesExceeded increments the parked device counter
func (r *Registry) IncMaxRetriesExceeded() {
	r.maxRetriesExceeded.Inc()
}

// AddEventsDropped adds to the dropped events counter
func (r *Registry) AddEventsDropped(n uint64) {
	r.eventsDropped.Add(float64(n))
}

// SetActiveConnections sets the slot occupancy gauge
func (r *Registry) SetActiveConnections(n int) {
	r.activeConnections.Set(float64(n))
}

// SetRegisteredDevices sets the managed device gauge
func (r *Registry) SetRegisteredDevices(n int) {
	r.registeredDevices.Set(float64(n))
}

// ObserveConnectDuration records a successful connect duration
func (r *Registry) ObserveConnectDuration(seconds float64) {
	r.connectDuration.Observe(seconds)
}
