package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Driver endpoint paths.
const (
	BridgePathPrefix = "/api/control4_bridge"
	SyncPath         = BridgePathPrefix + "/sync"
	CommandsPath     = BridgePathPrefix + "/commands"
	AckPath          = BridgePathPrefix + "/ack"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// Control4 driver endpoints. Authentication is the shared secret only.
	r.Route(BridgePathPrefix, func(r chi.Router) {
		r.Use(s.bridgeSecretMiddleware)

		r.Post("/sync", s.handleSync)
		r.Get("/commands", s.handleCommands)
		r.Post("/ack", s.handleAck)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/bridge/stats", s.handleBridgeStats)
		r.Get("/devices", s.handleListDevices)
		r.Get("/commands/history", s.handleCommandHistory)

		r.Route("/entities", func(r chi.Router) {
			r.Get("/", s.handleListEntities)

			r.Route("/{uniqueID}", func(r chi.Router) {
				r.Get("/", s.handleGetEntity)
				r.Post("/turn_on", s.handleTurnOn)
				r.Post("/turn_off", s.handleTurnOff)
			})
		})

		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"version":   s.version,
		"bridge_id": s.store.BridgeID(),
	})
}
