package api

import (
	"net/http"
	"strconv"
)

const (
	defaultDeliveryLimit = 50
	maxDeliveryLimit     = 500
)

// handleListDeliveries returns recent delivery log entries, newest first.
// Accepts an optional ?limit=N query parameter (default 50, max 500).
func (s *Server) handleListDeliveries(w http.ResponseWriter, r *http.Request) {
	if s.deliveries == nil {
		writeError(w, http.StatusNotFound, "delivery log is disabled")
		return
	}

	limit := defaultDeliveryLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxDeliveryLimit)
	}

	entries, err := s.deliveries.ListDeliveries(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list deliveries", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list deliveries")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
