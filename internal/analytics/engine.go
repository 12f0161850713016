// Package analytics derives health scores and tuning recommendations from
// connection metrics. It holds no state of its own; reports are recomputed
// from a status snapshot on every request.
package analytics

import (
	"time"

	"github.com/nexus-edge/ble-gateway/internal/domain"
)

// Score weights. Success rate dominates; speed, freedom from recent
// failures and accumulated uptime share the remainder equally.
const (
	weightSuccessRate    = 0.40
	weightConnectSpeed   = 0.20
	weightFailureFreedom = 0.20
	weightUptime         = 0.20
)

// Normalization ceilings. A device connecting in under idealConnectTime
// gets a perfect speed sub-score; uptimeCeiling caps the uptime sub-score
// at one day of cumulative connected time.
const (
	idealConnectTime = 1 * time.Second
	uptimeCeiling    = 24 * time.Hour
)

// DeviceReport is the per-device analytics result.
type DeviceReport struct {
	Address         string   `json:"address"`
	HealthScore     float64  `json:"health_score"`
	SuccessRate     float64  `json:"success_rate"`
	Recommendations []string `json:"recommendations"`
}

// Report is the orchestrator-wide analytics result.
type Report struct {
	GeneratedAt        time.Time      `json:"generated_at"`
	Devices            []DeviceReport `json:"devices"`
	AvgSuccessRate     float64        `json:"avg_success_rate"`
	AvgConnectDuration time.Duration  `json:"avg_connect_duration"`
}

// Engine computes analytics reports.
type Engine struct{}

// NewEngine creates an analytics engine.
func NewEngine() *Engine {
	return &Engine{}
}

// DeviceReport scores a single device from its status snapshot.
func (e *Engine) DeviceReport(status domain.DeviceStatus) DeviceReport {
	m := status.Metrics

	if m.TotalAttempts == 0 {
		return DeviceReport{
			Address:         status.Address,
			HealthScore:     0,
			Recommendations: []string{"no data: no connection attempts recorded yet"},
		}
	}

	successRate := m.SuccessRate()

	speed := 0.0
	if m.AvgConnectDuration > 0 {
		speed = clamp01(float64(idealConnectTime) / float64(m.AvgConnectDuration))
	}

	failureFreedom := 1.0
	if status.Config.MaxConsecutiveFailures > 0 {
		ratio := float64(m.ConsecutiveFailures) / float64(status.Config.MaxConsecutiveFailures)
		failureFreedom = 1 - clamp01(ratio)
	}

	uptime := clamp01(float64(m.ConnectedDuration+status.Uptime) / float64(uptimeCeiling))

	score := 100 * clamp01(weightSuccessRate*successRate+
		weightConnectSpeed*speed+
		weightFailureFreedom*failureFreedom+
		weightUptime*uptime)

	return DeviceReport{
		Address:         status.Address,
		HealthScore:     score,
		SuccessRate:     successRate,
		Recommendations: e.recommend(status, successRate),
	}
}

// Generate builds the orchestrator-wide report. Disabled devices are
// excluded from the aggregates but still listed individually.
func (e *Engine) Generate(statuses []domain.DeviceStatus, now time.Time) Report {
	report := Report{
		GeneratedAt: now,
		Devices:     make([]DeviceReport, 0, len(statuses)),
	}

	var (
		rateSum     float64
		durationSum time.Duration
		counted     int
	)
	for _, status := range statuses {
		report.Devices = append(report.Devices, e.DeviceReport(status))

		if status.State == domain.StateDisabled {
			continue
		}
		rateSum += status.Metrics.SuccessRate()
		durationSum += status.Metrics.AvgConnectDuration
		counted++
	}

	if counted > 0 {
		report.AvgSuccessRate = rateSum / float64(counted)
		report.AvgConnectDuration = durationSum / time.Duration(counted)
	}
	return report
}

// recommend produces rule-based tuning hints for a device.
func (e *Engine) recommend(status domain.DeviceStatus, successRate float64) []string {
	var recs []string
	m := status.Metrics

	if successRate < 0.5 {
		recs = append(recs, "success rate below 50%: investigate signal quality or retry configuration")
	}
	if m.ConsecutiveFailures >= status.Config.MaxConsecutiveFailures {
		recs = append(recs, "consecutive failure limit reached: device may be out of range or powered off")
	}
	if m.AvgConnectDuration > status.Config.ConnectionTimeout/2 {
		recs = append(recs, "connect time near timeout: consider raising connection_timeout")
	}
	if status.State == domain.StateFailed {
		recs = append(recs, "device parked in failed state: explicit reset required to resume retries")
	}
	if m.RetryAttempts > 0 && status.Config.Priority == domain.PriorityLow {
		recs = append(recs, "retrying at low priority: slot contention may delay reconnection")
	}
	return recs
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
