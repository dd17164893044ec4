package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swing-trainer/models"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := NewServer(&Config{
		Port:           "0",
		DebounceMs:     250,
		AllowedOrigins: []string{"http://localhost:3000"},
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		s.engine.Close()
		s.hub.Stop()
	})
	return s
}

func doRequest(s *Server, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func swingsAccepted() int64 {
	appMetrics.mu.RLock()
	defer appMetrics.mu.RUnlock()
	return appMetrics.swingCount
}

// TestHealthHandler tests the health endpoint without a database
func TestHealthHandler(t *testing.T) {
	s := newTestServer(t)

	rr := doRequest(s, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	var health map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, "disabled", health["database"])
}

// TestStateEndpoint tests the initial observable state
func TestStateEndpoint(t *testing.T) {
	s := newTestServer(t)

	rr := doRequest(s, "GET", "/api/state", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	var state StateResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &state))
	assert.Equal(t, models.PhaseIdle, state.Phase)
	assert.False(t, state.InFlight)
	assert.False(t, state.SensorConnected)
	assert.Equal(t, 0, state.PitchCount)
	assert.Nil(t, state.LastResult)
}

// TestPitchEndpoint tests that a pitch request moves the session in flight
func TestPitchEndpoint(t *testing.T) {
	s := newTestServer(t)

	rr := doRequest(s, "POST", "/api/pitch", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	var state StateResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &state))
	assert.Equal(t, models.PhaseInFlight, state.Phase)
	assert.True(t, state.InFlight)
}

// TestSwingDebounceOverHTTP tests that rapid swing posts coalesce to one
func TestSwingDebounceOverHTTP(t *testing.T) {
	s := newTestServer(t)
	before := swingsAccepted()

	for i := 0; i < 3; i++ {
		rr := doRequest(s, "POST", "/api/swing", nil)
		assert.Equal(t, http.StatusOK, rr.Code)
	}

	assert.Equal(t, int64(1), swingsAccepted()-before,
		"three rapid swing posts should count as one accepted swing")
}

// TestConfigEndpoints tests defaults, partial updates and clamping over HTTP
func TestConfigEndpoints(t *testing.T) {
	s := newTestServer(t)

	rr := doRequest(s, "GET", "/api/config", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	var cfg models.Config
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &cfg))
	assert.Equal(t, models.DefaultConfig(), cfg)

	// A partial update touches only the posted field.
	rr = doRequest(s, "POST", "/api/config", []byte(`{"velocity_mph": 95}`))
	assert.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &cfg))
	assert.Equal(t, 95.0, cfg.VelocityMPH)
	assert.Equal(t, models.DefaultPitchGapMs, cfg.PitchGapMs)
	assert.Equal(t, models.DefaultMaxPitches, cfg.MaxPitches)

	// Out-of-range values come back clamped, not rejected.
	rr = doRequest(s, "PUT", "/api/config", []byte(`{"velocity_mph": 500, "pitch_gap_ms": 1}`))
	assert.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &cfg))
	assert.Equal(t, models.MaxVelocityMPH, cfg.VelocityMPH)
	assert.Equal(t, models.MinPitchGapMs, cfg.PitchGapMs)

	rr = doRequest(s, "POST", "/api/config", []byte(`{not json`))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// TestResetEndpoint tests the reset round trip
func TestResetEndpoint(t *testing.T) {
	s := newTestServer(t)

	doRequest(s, "POST", "/api/pitch", nil)
	rr := doRequest(s, "POST", "/api/reset", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	var state StateResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &state))
	assert.Equal(t, models.PhaseIdle, state.Phase)
	assert.Equal(t, 0, state.PitchCount)
}

// TestSensorsEndpoint tests the device listing with no devices
func TestSensorsEndpoint(t *testing.T) {
	s := newTestServer(t)

	rr := doRequest(s, "GET", "/api/sensors", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Connected bool                     `json:"connected"`
		Devices   []map[string]interface{} `json:"devices"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.False(t, body.Connected)
	assert.Empty(t, body.Devices)
}

// TestSessionEndpointsWithoutStore tests the persistence-disabled responses
func TestSessionEndpointsWithoutStore(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{
		"/api/sessions/recent",
		"/api/sessions/stats",
		"/api/sessions/4e1243bd-22c6-4abc-8a51-1e3f5e2d1a9f",
	} {
		rr := doRequest(s, "GET", path, nil)
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code, path)
	}
}

// TestMethodNotAllowed tests routing method restrictions
func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t)

	rr := doRequest(s, "GET", "/api/pitch", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	rr = doRequest(s, "DELETE", "/api/config", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

// TestMetricsEndpoint tests the metrics surface without a database
func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)

	doRequest(s, "POST", "/api/pitch", nil)
	rr := doRequest(s, "GET", "/metrics", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	var m MetricsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &m))
	assert.GreaterOrEqual(t, m.Application.TotalRequests, int64(1))
	assert.GreaterOrEqual(t, m.Trainer.PitchRequests, int64(1))
	assert.Nil(t, m.Database)
	assert.Nil(t, m.Cache)
	assert.NotEmpty(t, m.Uptime)
}

// TestNewConfigDefaults tests environment fallbacks
func TestNewConfigDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SENSOR_DEBOUNCE_MS", "")
	t.Setenv("ALLOWED_ORIGINS", "")

	config := NewConfig()
	assert.Equal(t, "8082", config.Port)
	assert.Equal(t, 250, config.DebounceMs)
	assert.NotEmpty(t, config.AllowedOrigins)

	t.Setenv("SENSOR_DEBOUNCE_MS", "100")
	t.Setenv("ALLOWED_ORIGINS", "http://a.example,http://b.example")
	config = NewConfig()
	assert.Equal(t, 100, config.DebounceMs)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, config.AllowedOrigins)
}
