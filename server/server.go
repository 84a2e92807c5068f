// Package server serves an interactive ascent over HTTP and paces it with a frame loop.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/ChristopherRabotin/ascent"
	"github.com/ChristopherRabotin/ascent/telemetry"
	kitlog "github.com/go-kit/log"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server owns a mission and serializes its access between the frame loop and the handlers.
type Server struct {
	mu        sync.Mutex
	mission   *ascent.Mission
	telemetry *telemetry.Collector
	registry  *prometheus.Registry
	router    *mux.Router
	logger    kitlog.Logger
}

// New returns a server of the provided mission with its own metrics registry.
func New(m *ascent.Mission, logger kitlog.Logger) (*Server, error) {
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	reg := prometheus.NewRegistry()
	col, err := telemetry.NewCollector(reg)
	if err != nil {
		return nil, err
	}
	s := &Server{mission: m, telemetry: col, registry: reg, logger: kitlog.With(logger, "subsys", "server")}
	s.router = mux.NewRouter()
	s.router.Use(cors)
	s.router.HandleFunc("/simulation", s.getSimulation).Methods("GET")
	s.router.HandleFunc("/simulation/events", s.getEvents).Methods("GET")
	s.router.HandleFunc("/simulation/reset", s.reset).Methods("POST", "OPTIONS")
	s.router.HandleFunc("/simulation/burn/{mode}", s.setBurn).Methods("PUT", "OPTIONS")
	s.router.HandleFunc("/simulation/warp/{factor}", s.setWarp).Methods("PUT", "OPTIONS")
	s.router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods("GET")
	col.Observe(m.Snapshot())
	return s, nil
}

// Handler returns the HTTP handler of the API.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Step advances the mission by the wall clock duration and updates the telemetry.
func (s *Server) Step(wall time.Duration) []ascent.Event {
	s.mu.Lock()
	events := s.mission.Advance(wall.Seconds())
	snap := s.mission.Snapshot()
	s.mu.Unlock()
	s.telemetry.Observe(snap)
	s.telemetry.Count(events)
	return events
}

// Run advances the mission at every tick, by the measured wall clock time, until the context
// is done.
func (s *Server) Run(ctx context.Context, tick time.Duration) error {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			s.Step(now.Sub(last))
			last = now
		}
	}
}

// cors adds the headers needed by browser front ends and answers preflight requests.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Log("level", "error", "msg", "could not encode response", "err", err)
	}
}

func (s *Server) getSimulation(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	snap := s.mission.Snapshot()
	s.mu.Unlock()
	s.writeJSON(w, snap)
}

func (s *Server) getEvents(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	events := s.mission.Events()
	s.mu.Unlock()
	if events == nil {
		events = []ascent.Event{}
	}
	s.writeJSON(w, events)
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.mission.Reset()
	snap := s.mission.Snapshot()
	s.mu.Unlock()
	s.telemetry.Observe(snap)
	s.logger.Log("level", "notice", "request", "reset")
	s.writeJSON(w, snap)
}

func (s *Server) setBurn(w http.ResponseWriter, r *http.Request) {
	mode, err := ascent.ParseBurnMode(mux.Vars(r)["mode"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.mission.SetBurnMode(mode)
	snap := s.mission.Snapshot()
	s.mu.Unlock()
	s.writeJSON(w, snap)
}

func (s *Server) setWarp(w http.ResponseWriter, r *http.Request) {
	factor, err := strconv.ParseFloat(mux.Vars(r)["factor"], 64)
	if err != nil {
		http.Error(w, "invalid time acceleration", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	err = s.mission.SetTimeAcceleration(factor)
	snap := s.mission.Snapshot()
	s.mu.Unlock()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.logger.Log("level", "info", "request", "warp", "factor", factor)
	s.writeJSON(w, snap)
}
