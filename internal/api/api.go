// Package api exposes the control operations (start/stop processing) and the
// record management endpoints over HTTP.
package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"countcam/internal/metrics"
	"countcam/internal/registry"
	"countcam/internal/store"
	"countcam/internal/ws"
)

// Server bundles the dependencies of the HTTP handlers.
type Server struct {
	registry *registry.Registry
	store    store.RecordStore
	metrics  *metrics.Metrics
	logger   *log.Logger
}

// NewServer creates the API server.
func NewServer(reg *registry.Registry, st store.RecordStore, m *metrics.Metrics, logger *log.Logger) *Server {
	return &Server{
		registry: reg,
		store:    st,
		metrics:  m,
		logger:   logger,
	}
}

// Routes mounts all API endpoints on a fresh router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", s.index)
	r.Post("/start_processing", s.startProcessing)
	r.Post("/stop_processing", s.stopProcessing)
	r.Get("/records", s.listRecords)
	r.Put("/records/{id}", s.renameRecord)
	r.Delete("/records/{id}", s.deleteRecord)

	return r
}

// clientID resolves the client id for a control request: explicit body value
// first, session cookie as fallback.
func clientID(r *http.Request, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	if cookie, err := r.Cookie(ws.CookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func (s *Server) respond(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Printf("response encode error: %v", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, code int, message string) {
	s.respond(w, code, map[string]string{
		"status":  "error",
		"message": message,
	})
}
