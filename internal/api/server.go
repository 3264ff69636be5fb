package api

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"

	"hifi-download-manager/internal/config"
	"hifi-download-manager/internal/models"
	"hifi-download-manager/internal/status"
	"hifi-download-manager/internal/store"
	"hifi-download-manager/internal/telemetry"
)

//go:embed dashboard.html
var dashboardHTML []byte

// Server wires HTTP handlers for the download dashboard and polling API.
// All handlers are read-only; job-state access goes through the same
// load/lock path as every other process.
type Server struct {
	cfg    config.Config
	store  *store.Store
	reader *status.Reader
}

// New constructs the dashboard server.
func New(cfg config.Config, st *store.Store) *Server {
	return &Server{
		cfg:    cfg,
		store:  st,
		reader: status.NewReader(st),
	}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/metrics", telemetry.Handler(s.store))

	r.Get("/", s.handleDashboard)
	r.Get("/downloads", s.handleDashboard)
	r.Get("/api/downloads", s.handleList)
	r.Get("/api/downloads/{id}", s.handleGet)
	r.Get("/api/summary", s.handleSummary)
	return r
}

// Listen binds to the loopback address, scanning forward from the preferred
// port when it is already taken.
func (s *Server) Listen() (net.Listener, error) {
	attempts := s.cfg.PortScanRange
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		addr := fmt.Sprintf("%s:%d", s.cfg.DashboardHost, s.cfg.DashboardPort+i)
		l, err := net.Listen("tcp", addr)
		if err == nil {
			return l, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("no available port in %d-%d: %w",
		s.cfg.DashboardPort, s.cfg.DashboardPort+attempts-1, lastErr)
}

func (s *Server) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	noCache(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(dashboardHTML)
}

type listResponse struct {
	Total     int               `json:"total"`
	Downloads []models.Download `json:"downloads"`
}

// handleList serves the dashboard poll. A missing or unreadable state file
// is zero downloads, never an error to the poller.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	telemetry.PollCounter.Inc()
	downloads, err := s.reader.List(r.Context(), false)
	if err != nil || downloads == nil {
		downloads = []models.Download{}
	}
	noCache(w)
	writeJSON(w, http.StatusOK, listResponse{Total: len(downloads), Downloads: downloads})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	d, err := s.reader.Get(r.Context(), id)
	if err != nil {
		noCache(w)
		if errors.Is(err, store.ErrNotFound) {
			telemetry.NotFoundCounter.Inc()
			writeJSON(w, http.StatusNotFound, map[string]string{"error": fmt.Sprintf("download %s not found", id)})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	noCache(w)
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.reader.Summarize(r.Context())
	if err != nil {
		summary = status.Summary{}
	}
	noCache(w)
	writeJSON(w, http.StatusOK, summary)
}

// noCache disables response caching so every poll reflects the latest
// on-disk state.
func noCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
