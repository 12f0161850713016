package health

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

type fakeProbe struct {
	healthy bool
	running bool
}

func (f *fakeProbe) Healthy() bool { return f.healthy }
func (f *fakeProbe) Running() bool { return f.running }

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestHealthHandlerAllHealthy(t *testing.T) {
	probe := &fakeProbe{healthy: true, running: true}
	checker := NewChecker(probe, probe, zerolog.Nop())

	rec := httptest.NewRecorder()
	checker.HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	body := decode(t, rec)
	if body["status"] != "healthy" {
		t.Errorf("status field = %v", body["status"])
	}
}

func TestHealthHandlerDegraded(t *testing.T) {
	probe := &fakeProbe{healthy: false, running: true}
	checker := NewChecker(probe, probe, zerolog.Nop())

	rec := httptest.NewRecorder()
	checker.HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
	body := decode(t, rec)
	if body["status"] != "degraded" {
		t.Errorf("status field = %v", body["status"])
	}
	components := body["components"].(map[string]interface{})
	if components["transport"] != "unhealthy" {
		t.Errorf("transport component = %v", components["transport"])
	}
	if components["manager"] != "healthy" {
		t.Errorf("manager component = %v", components["manager"])
	}
}

func TestHealthHandlerNilTransportProbe(t *testing.T) {
	probe := &fakeProbe{running: true}
	checker := NewChecker(nil, probe, zerolog.Nop())

	rec := httptest.NewRecorder()
	checker.HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 with no transport probe", rec.Code)
	}
}

func TestLiveHandler(t *testing.T) {
	checker := NewChecker(nil, &fakeProbe{}, zerolog.Nop())

	rec := httptest.NewRecorder()
	checker.LiveHandler(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestReadyHandler(t *testing.T) {
	probe := &fakeProbe{healthy: true, running: false}
	checker := NewChecker(probe, probe, zerolog.Nop())

	rec := httptest.NewRecorder()
	checker.ReadyHandler(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503 before the manager starts", rec.Code)
	}

	probe.running = true
	rec = httptest.NewRecorder()
	checker.ReadyHandler(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 once running", rec.Code)
	}
	body := decode(t, rec)
	if body["status"] != "ready" {
		t.Errorf("status field = %v", body["status"])
	}
}
