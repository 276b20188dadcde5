// Package api provides a read-only HTTP API for observing a running
// simulation.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"freightsim/internal/engine"
)

// Server serves simulation state over HTTP. All endpoints are GET.
type Server struct {
	Sim  *engine.Simulation
	Port int
}

// Start begins serving in a goroutine.
func (s *Server) Start() {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/summary", s.handleSummary)
	mux.HandleFunc("/api/v1/carriers", s.handleCarriers)
	mux.HandleFunc("/api/v1/loads", s.handleLoads)

	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr)

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func guardGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !guardGet(w, r) {
		return
	}

	writeJSON(w, map[string]any{
		"step":               s.Sim.CurrentStep,
		"week":               s.Sim.CurrentWeek,
		"active_loads":       len(s.Sim.Broker.Active),
		"total_carriers":     len(s.Sim.Carriers),
		"available_carriers": s.Sim.AvailableCarriers(),
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if !guardGet(w, r) {
		return
	}
	writeJSON(w, s.Sim.Summary())
}

func (s *Server) handleCarriers(w http.ResponseWriter, r *http.Request) {
	if !guardGet(w, r) {
		return
	}
	writeJSON(w, s.Sim.CarrierStatuses())
}

func (s *Server) handleLoads(w http.ResponseWriter, r *http.Request) {
	if !guardGet(w, r) {
		return
	}
	writeJSON(w, s.Sim.Broker.Active)
}
