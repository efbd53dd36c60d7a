// Package server provides the HTTP server: renderer frame feed, camera
// preview, photo upload, carousel textures and landmark fixtures.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ayusman/evergreen/internal/app"
	"github.com/ayusman/evergreen/internal/logging"
	"github.com/ayusman/evergreen/internal/server/api"
	"github.com/ayusman/evergreen/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	App       *app.App
	Store     *store.Store
	Log       logging.Logger
}

// Server represents the HTTP server.
type Server struct {
	config Config
	mux    *http.ServeMux
	hub    *FrameHub
	log    logging.Logger
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		log:    logging.OrNop(config.Log),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	a := s.config.App
	if a != nil {
		s.hub = NewFrameHub(a, s.log)
		s.mux.Handle("/api/frames", s.hub)
		s.mux.Handle("/api/stream", NewStreamHandler(a.Preview()))
		s.mux.Handle("/api/photos", api.NewPhotoHandler(a, s.log))
		s.mux.Handle("/api/textures/", api.NewTextureHandler(a.Textures()))
		s.mux.HandleFunc("/api/tracking", s.handleTracking)
	}

	if s.config.Store != nil {
		var live api.Classification
		if a != nil {
			live = a
		}
		fixtures := api.NewFixtureHandler(s.config.Store, live, s.log)
		s.mux.Handle("/api/fixtures", fixtures)
		s.mux.Handle("/api/fixtures/", fixtures)
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type healthResponse struct {
	Status   string `json:"status"`
	Uptime   string `json:"uptime"`
	Tick     uint64 `json:"tick"`
	Tracking string `json:"tracking,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Clients  int    `json:"clients"`
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := healthResponse{
		Status: "ok",
		Uptime: time.Since(s.start).Round(time.Millisecond).String(),
	}
	if a := s.config.App; a != nil {
		response.Uptime = a.Uptime().Round(time.Millisecond).String()
		response.Tick = a.Ticks()
		response.Tracking = string(a.Status())
		if err := a.Failure(); err != nil {
			response.Reason = err.Error()
		}
	}
	if s.hub != nil {
		response.Clients = s.hub.Clients()
	}

	writeJSON(w, http.StatusOK, response)
}

type trackingRequest struct {
	Enabled *bool `json:"enabled"`
}

type trackingResponse struct {
	Enabled bool   `json:"enabled"`
	Status  string `json:"status"`
}

// handleTracking reports tracking state on GET and pauses or resumes it on
// POST {"enabled": bool}.
func (s *Server) handleTracking(w http.ResponseWriter, r *http.Request) {
	a := s.config.App

	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		var req trackingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Expected {\"enabled\": bool}"})
			return
		}
		a.SetEnabled(*req.Enabled)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, trackingResponse{Enabled: a.IsEnabled(), Status: string(a.Status())})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Close disconnects every renderer.
func (s *Server) Close() {
	if s.hub != nil {
		s.hub.Close()
	}
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
