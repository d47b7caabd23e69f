package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/c4bridge-core/internal/audit"
)

// handleBridgeStats returns device and command queue counts.
func (s *Server) handleBridgeStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Stats())
}

// handleListDevices returns the bridge devices recorded in the host device
// registry.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	if s.registry == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "device registry not configured")
		return
	}
	devices := s.registry.ListDevices(s.store.BridgeID())
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleCommandHistory returns paginated command lifecycle events, newest first.
//
// Query parameters:
//   - device_id: filter by device
//   - command_id: filter by command
//   - event: filter by event (queued, delivered, acked)
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleCommandHistory(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "command audit trail disabled")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		DeviceID:  q.Get("device_id"),
		CommandID: q.Get("command_id"),
		Event:     q.Get("event"),
	}
	switch filter.Event {
	case "", audit.EventQueued, audit.EventDelivered, audit.EventAcked:
	default:
		writeBadRequest(w, "event must be one of queued, delivered, acked")
		return
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeBadRequest(w, "offset must be a non-negative integer")
			return
		}
		filter.Offset = n
	}

	result, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing command history failed", "error", err)
		writeInternalError(w, "failed to list command history")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
