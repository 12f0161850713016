package analytics

import (
	"strings"
	"testing"
	"time"

	"github.com/nexus-edge/ble-gateway/internal/domain"
)

func statusWithMetrics(m domain.ConnectionMetrics) domain.DeviceStatus {
	return domain.DeviceStatus{
		Address: "AA:BB:CC:DD:EE:FF",
		State:   domain.StateConnected,
		Config:  domain.DefaultConnectionConfig(),
		Metrics: m,
	}
}

func TestDeviceReportNoData(t *testing.T) {
	engine := NewEngine()

	report := engine.DeviceReport(statusWithMetrics(domain.ConnectionMetrics{}))
	if report.HealthScore != 0 {
		t.Errorf("score = %v, want 0 for zero attempts", report.HealthScore)
	}
	if len(report.Recommendations) != 1 || !strings.Contains(report.Recommendations[0], "no data") {
		t.Errorf("recommendations = %v, want single no-data hint", report.Recommendations)
	}
}

func TestDeviceReportScoreBounds(t *testing.T) {
	engine := NewEngine()

	cases := []domain.ConnectionMetrics{
		{TotalAttempts: 1, Failures: 1, ConsecutiveFailures: 10},
		{TotalAttempts: 100, Successes: 100, AvgConnectDuration: time.Millisecond, ConnectedDuration: 1000 * time.Hour},
		{TotalAttempts: 50, Successes: 25, Failures: 25, AvgConnectDuration: 5 * time.Second},
	}
	for i, m := range cases {
		report := engine.DeviceReport(statusWithMetrics(m))
		if report.HealthScore < 0 || report.HealthScore > 100 {
			t.Errorf("case %d: score %v out of [0,100]", i, report.HealthScore)
		}
	}
}

func TestDeviceReportPerfectDevice(t *testing.T) {
	engine := NewEngine()

	report := engine.DeviceReport(statusWithMetrics(domain.ConnectionMetrics{
		TotalAttempts:      10,
		Successes:          10,
		AvgConnectDuration: 500 * time.Millisecond,
		ConnectedDuration:  48 * time.Hour,
	}))
	if report.HealthScore != 100 {
		t.Errorf("score = %v, want 100", report.HealthScore)
	}
	if len(report.Recommendations) != 0 {
		t.Errorf("unexpected recommendations for healthy device: %v", report.Recommendations)
	}
}

func TestDeviceReportLowSuccessRecommendation(t *testing.T) {
	engine := NewEngine()

	report := engine.DeviceReport(statusWithMetrics(domain.ConnectionMetrics{
		TotalAttempts: 10,
		Successes:     2,
		Failures:      8,
	}))
	found := false
	for _, rec := range report.Recommendations {
		if strings.Contains(rec, "signal quality") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected signal quality recommendation, got %v", report.Recommendations)
	}
}

func TestGenerateExcludesDisabledFromAggregates(t *testing.T) {
	engine := NewEngine()

	good := statusWithMetrics(domain.ConnectionMetrics{
		TotalAttempts:      10,
		Successes:          10,
		AvgConnectDuration: 2 * time.Second,
	})
	disabled := statusWithMetrics(domain.ConnectionMetrics{
		TotalAttempts: 10,
		Failures:      10,
	})
	disabled.Address = "AA:BB:CC:DD:EE:00"
	disabled.State = domain.StateDisabled

	report := engine.Generate([]domain.DeviceStatus{good, disabled}, time.Now())

	if len(report.Devices) != 2 {
		t.Fatalf("device reports = %d, want 2 (disabled still listed)", len(report.Devices))
	}
	if report.AvgSuccessRate != 1.0 {
		t.Errorf("avg success rate = %v, want 1.0 with disabled excluded", report.AvgSuccessRate)
	}
	if report.AvgConnectDuration != 2*time.Second {
		t.Errorf("avg connect duration = %v, want 2s", report.AvgConnectDuration)
	}
}

func TestGenerateEmptyFleet(t *testing.T) {
	engine := NewEngine()

	report := engine.Generate(nil, time.Now())
	if report.AvgSuccessRate != 0 || len(report.Devices) != 0 {
		t.Errorf("unexpected report for empty fleet: %+v", report)
	}
}
