package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/debashish-mukherjee/go-snmpfleet/internal/actor"
	"github.com/debashish-mukherjee/go-snmpfleet/internal/pool"
	"github.com/debashish-mukherjee/go-snmpfleet/internal/startup"
)

// Server exposes fleet state over HTTP for monitoring and tooling.
type Server struct {
	pool       *pool.Pool
	manager    *startup.Manager
	httpServer *http.Server

	mu       sync.RWMutex
	listener StatisticsSource
}

// StatisticsSource supplies the UDP front-end counters without the api
// package importing the engine.
type StatisticsSource interface {
	Statistics() map[string]interface{}
}

// PoolStatus is the JSON shape served by /api/stats.
type PoolStatus struct {
	ActiveDevices   int    `json:"active_devices"`
	DevicesCreated  uint64 `json:"devices_created"`
	DevicesCleaned  uint64 `json:"devices_cleaned_up"`
	PeakDevices     int    `json:"peak_devices"`
	EvictedNow      int    `json:"evicted_now,omitempty"`
	CollectedAtUnix int64  `json:"collected_at"`
}

// DeviceSummary is one row in the /api/devices listing.
type DeviceSummary struct {
	DeviceID      string  `json:"device_id"`
	Port          int     `json:"port"`
	DeviceType    string  `json:"device_type"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	PollCount     int64   `json:"poll_count"`
	LastActivity  string  `json:"last_activity"`
}

// NewServer creates the HTTP server on addr.
func NewServer(addr string, p *pool.Pool, m *startup.Manager) *Server {
	s := &Server{
		pool:    p,
		manager: m,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/devices", s.handleDevices)
	mux.HandleFunc("/api/devices/shutdown", s.handleShutdownDevice)
	mux.HandleFunc("/api/cleanup", s.handleCleanup)
	mux.Handle("/metrics", promhttp.Handler())

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	return s
}

// SetListener attaches the UDP front-end so /api/status can include its
// counters. Optional; status works without it.
func (s *Server) SetListener(l StatisticsSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = l
}

// Start starts the HTTP server and blocks until it fails or is stopped.
func (s *Server) Start() error {
	log.Printf("Starting API on http://localhost%s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Stop stops the HTTP server gracefully.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// handleStats returns pool counters.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats := s.pool.Stats()
	writeJSON(w, PoolStatus{
		ActiveDevices:   stats.ActiveCount,
		DevicesCreated:  stats.CreatedTotal,
		DevicesCleaned:  stats.CleanedUpTotal,
		PeakDevices:     stats.PeakCount,
		CollectedAtUnix: time.Now().Unix(),
	})
}

// handleStatus returns startup progress plus listener counters when attached.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := s.manager.GetStartupStatus()
	body := map[string]interface{}{
		"active_devices": status.ActiveDevices,
	}
	if !status.StartedAt.IsZero() {
		body["started_at"] = status.StartedAt.Format(time.RFC3339)
		body["uptime"] = time.Since(status.StartedAt).Round(time.Second).String()
	}
	if status.LastError != nil {
		body["last_error"] = status.LastError.Error()
	}

	s.mu.RLock()
	l := s.listener
	s.mu.RUnlock()
	if l != nil {
		body["listener"] = l.Statistics()
	}

	writeJSON(w, body)
}

// handleDevices lists every materialized device.
func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	infos := s.pool.ActiveDevices()
	out := make([]DeviceSummary, 0, len(infos))
	for _, info := range infos {
		out = append(out, summarize(info))
	}
	writeJSON(w, out)
}

// handleShutdownDevice evicts a single device by port.
func (s *Server) handleShutdownDevice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Port int `json:"port"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request: %v", err), http.StatusBadRequest)
		return
	}
	if req.Port <= 0 {
		http.Error(w, "Port required", http.StatusBadRequest)
		return
	}

	s.pool.ShutdownDevice(req.Port)
	writeJSON(w, map[string]string{"status": "shutdown"})
}

// handleCleanup runs an idle sweep on demand.
func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	evicted := s.pool.CleanupIdleDevices()
	stats := s.pool.Stats()
	writeJSON(w, PoolStatus{
		ActiveDevices:   stats.ActiveCount,
		DevicesCreated:  stats.CreatedTotal,
		DevicesCleaned:  stats.CleanedUpTotal,
		PeakDevices:     stats.PeakCount,
		EvictedNow:      evicted,
		CollectedAtUnix: time.Now().Unix(),
	})
}

func summarize(info actor.Info) DeviceSummary {
	return DeviceSummary{
		DeviceID:      info.DeviceID,
		Port:          info.Port,
		DeviceType:    string(info.DeviceType),
		UptimeSeconds: info.UptimeSeconds,
		PollCount:     info.PollCount,
		LastActivity:  info.LastActivity.Format(time.RFC3339),
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
