// Package api exposes the delivery log and build information over REST.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shaharia-lab/finance-notifier/internal/storage"
)

// Server holds all dependencies for the REST API handlers.
type Server struct {
	deliveries storage.DeliveryStore
	logger     *slog.Logger
}

// New creates a new API Server. deliveries may be nil when the delivery log
// is disabled.
func New(deliveries storage.DeliveryStore, logger *slog.Logger) *Server {
	return &Server{deliveries: deliveries, logger: logger}
}

// Mount registers all API routes under the given router.
func (s *Server) Mount(r chi.Router) {
	r.Get("/deliveries", s.handleListDeliveries)
	r.Get("/version", s.handleVersion)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
