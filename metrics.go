package main

import (
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"
)

// Metrics tracks system and application metrics
type Metrics struct {
	mu                sync.RWMutex
	requestCount      int64
	errorCount        int64
	totalResponseTime int64
	pitchCount        int64
	swingCount        int64
	startTime         time.Time
}

type MetricsResponse struct {
	System      SystemMetrics      `json:"system"`
	Application ApplicationMetrics `json:"application"`
	Trainer     TrainerMetrics     `json:"trainer"`
	Cache       *CacheMetrics      `json:"cache,omitempty"`
	Database    *DatabaseMetrics   `json:"database,omitempty"`
	Uptime      string             `json:"uptime"`
}

type SystemMetrics struct {
	GoVersion     string  `json:"go_version"`
	NumGoroutines int     `json:"num_goroutines"`
	NumCPU        int     `json:"num_cpu"`
	MemAllocMB    float64 `json:"mem_alloc_mb"`
	MemTotalMB    float64 `json:"mem_total_mb"`
	MemSysMB      float64 `json:"mem_sys_mb"`
	NumGC         uint32  `json:"num_gc"`
}

type ApplicationMetrics struct {
	TotalRequests     int64   `json:"total_requests"`
	TotalErrors       int64   `json:"total_errors"`
	ErrorRate         float64 `json:"error_rate_percent"`
	AvgResponseTime   float64 `json:"avg_response_time_ms"`
	RequestsPerSecond float64 `json:"requests_per_second"`
}

// TrainerMetrics counts accepted control signals since startup
type TrainerMetrics struct {
	PitchRequests    int64 `json:"pitch_requests"`
	SwingsAccepted   int64 `json:"swings_accepted"`
	BrowserClients   int   `json:"browser_clients"`
	SensorsConnected bool  `json:"sensors_connected"`
}

type CacheMetrics struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	HitRate   float64 `json:"hit_rate_percent"`
	CacheSize int     `json:"cache_size"`
}

type DatabaseMetrics struct {
	MaxConns     int32 `json:"max_connections"`
	AcquireCount int64 `json:"acquire_count"`
	IdleConns    int32 `json:"idle_connections"`
	TotalConns   int32 `json:"total_connections"`
}

var appMetrics = &Metrics{
	startTime: time.Now(),
}

func (m *Metrics) IncrementRequests() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount++
}

func (m *Metrics) IncrementErrors() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount++
}

func (m *Metrics) AddResponseTime(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalResponseTime += duration.Milliseconds()
}

func (m *Metrics) IncrementPitches() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pitchCount++
}

func (m *Metrics) IncrementSwings() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.swingCount++
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	appMetrics.mu.RLock()
	requestCount := appMetrics.requestCount
	errorCount := appMetrics.errorCount
	totalResponseTime := appMetrics.totalResponseTime
	pitchCount := appMetrics.pitchCount
	swingCount := appMetrics.swingCount
	startTime := appMetrics.startTime
	appMetrics.mu.RUnlock()

	// Calculate rates
	uptime := time.Since(startTime)
	uptimeSeconds := uptime.Seconds()

	var errorRate float64
	if requestCount > 0 {
		errorRate = (float64(errorCount) / float64(requestCount)) * 100
	}

	var avgResponseTime float64
	if requestCount > 0 {
		avgResponseTime = float64(totalResponseTime) / float64(requestCount)
	}

	var requestsPerSecond float64
	if uptimeSeconds > 0 {
		requestsPerSecond = float64(requestCount) / uptimeSeconds
	}

	response := MetricsResponse{
		System: SystemMetrics{
			GoVersion:     runtime.Version(),
			NumGoroutines: runtime.NumGoroutine(),
			NumCPU:        runtime.NumCPU(),
			MemAllocMB:    float64(memStats.Alloc) / 1024 / 1024,
			MemTotalMB:    float64(memStats.TotalAlloc) / 1024 / 1024,
			MemSysMB:      float64(memStats.Sys) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		Application: ApplicationMetrics{
			TotalRequests:     requestCount,
			TotalErrors:       errorCount,
			ErrorRate:         errorRate,
			AvgResponseTime:   avgResponseTime,
			RequestsPerSecond: requestsPerSecond,
		},
		Trainer: TrainerMetrics{
			PitchRequests:    pitchCount,
			SwingsAccepted:   swingCount,
			BrowserClients:   s.hub.Clients(),
			SensorsConnected: s.sensors.Connected(),
		},
		Uptime: formatUptime(uptime),
	}

	if s.store != nil {
		hits, misses, size := s.store.CacheStats()
		var hitRate float64
		if total := hits + misses; total > 0 {
			hitRate = (float64(hits) / float64(total)) * 100
		}
		response.Cache = &CacheMetrics{
			Hits:      hits,
			Misses:    misses,
			HitRate:   hitRate,
			CacheSize: size,
		}
	}

	if s.db != nil {
		dbStats := s.db.Stat()
		response.Database = &DatabaseMetrics{
			MaxConns:     dbStats.MaxConns(),
			AcquireCount: dbStats.AcquireCount(),
			IdleConns:    dbStats.IdleConns(),
			TotalConns:   dbStats.TotalConns(),
		}
	}

	writeJSON(w, response)
}

func formatUptime(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	} else if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}
