// Package api serves the latest published view over HTTP.
package api

import (
	"Go2SessionSpectra/internal/config"
	"Go2SessionSpectra/internal/model"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 5 * time.Second

// Server is a sink that keeps the latest view in memory and exposes it as
// JSON. Every endpoint answers 503 until the first view is published.
type Server struct {
	addr   string
	latest atomic.Pointer[model.View]
	server *http.Server
	logger zerolog.Logger
}

// NewServer creates an API server for cfg. Call Start to begin listening.
func NewServer(cfg config.APIConfig, logger zerolog.Logger) *Server {
	s := &Server{addr: cfg.ListenAddr, logger: logger}
	s.server = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Router returns the HTTP routes of the API.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/v1/view", s.viewHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/sessions", s.sessionsHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/devices", s.devicesHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/stats", s.statsHandler).Methods(http.MethodGet)
	return r
}

// Start binds the listen address and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("could not listen on %s: %w", s.addr, err)
	}

	go func() {
		s.logger.Info().Str("addr", ln.Addr().String()).Msg("API server starting")
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("API server stopped")
		}
	}()
	return nil
}

func (*Server) Name() string { return "api" }

// Publish replaces the view served by the API.
func (s *Server) Publish(_ context.Context, view model.View) error {
	s.latest.Store(&view)
	return nil
}

// Close shuts the HTTP server down gracefully.
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("API server forced to shutdown: %w", err)
	}
	s.logger.Info().Msg("API server exited")
	return nil
}

type sessionsResponse struct {
	CycleID string                `json:"cycle_id"`
	Round   uint64                `json:"round"`
	Rows    []model.AggregatedRow `json:"rows"`
}

type devicesResponse struct {
	CycleID string               `json:"cycle_id"`
	Round   uint64               `json:"round"`
	Devices []model.DeviceStatus `json:"devices"`
}

type statsResponse struct {
	CycleID     string        `json:"cycle_id"`
	Round       uint64        `json:"round"`
	PublishedAt time.Time     `json:"published_at"`
	Summary     model.Summary `json:"summary"`
	Devices     int           `json:"devices"`
	Unreachable int           `json:"unreachable"`
}

// current returns the latest view, or writes 503 and returns nil.
func (s *Server) current(w http.ResponseWriter) *model.View {
	v := s.latest.Load()
	if v == nil {
		http.Error(w, "no view published yet", http.StatusServiceUnavailable)
	}
	return v
}

func (s *Server) viewHandler(w http.ResponseWriter, r *http.Request) {
	if v := s.current(w); v != nil {
		s.writeJSON(w, v)
	}
}

// sessionsHandler lists aggregated rows, optionally filtered by ?class= and
// ?user=.
func (s *Server) sessionsHandler(w http.ResponseWriter, r *http.Request) {
	v := s.current(w)
	if v == nil {
		return
	}

	q := r.URL.Query()
	var class model.Class
	if raw := q.Get("class"); raw != "" {
		c, err := model.ParseClass(raw)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid class: %v", err), http.StatusBadRequest)
			return
		}
		class = c
	}
	user := q.Get("user")

	rows := make([]model.AggregatedRow, 0, len(v.Rows))
	for _, row := range v.Rows {
		if class != "" && row.Class != class {
			continue
		}
		if user != "" && row.User != user {
			continue
		}
		rows = append(rows, row)
	}

	s.writeJSON(w, sessionsResponse{CycleID: v.CycleID, Round: v.Round, Rows: rows})
}

func (s *Server) devicesHandler(w http.ResponseWriter, r *http.Request) {
	if v := s.current(w); v != nil {
		s.writeJSON(w, devicesResponse{CycleID: v.CycleID, Round: v.Round, Devices: v.Devices})
	}
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	v := s.current(w)
	if v == nil {
		return
	}

	resp := statsResponse{
		CycleID:     v.CycleID,
		Round:       v.Round,
		PublishedAt: v.PublishedAt,
		Summary:     v.Summary,
		Devices:     len(v.Devices),
	}
	for _, d := range v.Devices {
		if !d.Reachable {
			resp.Unreachable++
		}
	}
	s.writeJSON(w, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to marshal response: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(jsonBytes); err != nil {
		s.logger.Debug().Err(err).Msg("Failed to write response")
	}
}
