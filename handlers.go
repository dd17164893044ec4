package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"swing-trainer/models"
	"swing-trainer/sensor"
)

// StateResponse is the full observable state: the engine snapshot plus the
// sensor links, which exist for display only
type StateResponse struct {
	models.Snapshot
	SensorConnected bool                  `json:"sensor_connected"`
	Sensors         []sensor.DeviceStatus `json:"sensors"`
}

func (s *Server) currentState() StateResponse {
	return StateResponse{
		Snapshot:        s.engine.Snapshot(),
		SensorConnected: s.sensors.Connected(),
		Sensors:         s.sensors.Devices(),
	}
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":   "healthy",
		"time":     time.Now().UTC(),
		"database": "disabled",
	}

	if s.db != nil {
		health["database"] = "connected"

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := s.db.Ping(ctx); err != nil {
			health["database"] = "disconnected"
			health["status"] = "unhealthy"
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}

	writeJSON(w, health)
}

func (s *Server) stateHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.currentState())
}

func (s *Server) pitchHandler(w http.ResponseWriter, r *http.Request) {
	appMetrics.IncrementPitches()
	s.engine.RequestPitch()
	writeJSON(w, s.currentState())
}

func (s *Server) swingHandler(w http.ResponseWriter, r *http.Request) {
	if s.debounce.Allow(time.Now()) {
		s.acceptSwing()
	}
	writeJSON(w, s.currentState())
}

func (s *Server) getConfigHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.engine.Snapshot().Config)
}

func (s *Server) updateConfigHandler(w http.ResponseWriter, r *http.Request) {
	// Decode over the current configuration so partial updates keep the
	// untouched fields.
	cfg := s.engine.Snapshot().Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	applied := s.engine.UpdateConfig(cfg)
	writeJSON(w, applied)
}

func (s *Server) resetHandler(w http.ResponseWriter, r *http.Request) {
	s.engine.Reset()
	writeJSON(w, s.currentState())
}

func (s *Server) sensorsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"connected": s.sensors.Connected(),
		"devices":   s.sensors.Devices(),
	})
}

func (s *Server) recentSessionsHandler(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "Session persistence is not enabled", http.StatusServiceUnavailable)
		return
	}

	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	results, err := s.store.RecentSessions(r.Context(), limit)
	if err != nil {
		log.Printf("Failed to load recent sessions: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if results == nil {
		results = []models.SessionResult{}
	}

	writeJSON(w, results)
}

func (s *Server) sessionStatsHandler(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "Session persistence is not enabled", http.StatusServiceUnavailable)
		return
	}

	stats, err := s.store.Aggregate(r.Context())
	if err != nil {
		log.Printf("Failed to aggregate sessions: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, stats)
}

func (s *Server) getSessionHandler(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "Session persistence is not enabled", http.StatusServiceUnavailable)
		return
	}

	vars := mux.Vars(r)
	result, err := s.store.GetSession(r.Context(), vars["id"])
	if err != nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	writeJSON(w, result)
}
