package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Device endpoints. Device IDs are structured location/kind/instance,
		// so a single device path spans three URL segments.
		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Get("/stats", s.handleDeviceStats)

			r.Route("/{room}/{kind}/{instance}", func(r chi.Router) {
				r.Get("/", s.handleGetDevice)
				r.Patch("/", s.handleUpdateDevice)
				r.Post("/commands", s.handleDeviceCommand)
			})
		})

		// Room endpoints
		r.Get("/rooms", s.handleListRooms)

		// Telemetry endpoints
		r.Post("/telemetry", s.handleIngestTelemetry)
		r.Get("/telemetry/{room}/{kind}/{instance}", s.handleDeviceTelemetry)

		// WebSocket, mounted at the configured path (default /ws).
		r.Get(s.wsCfg.Path, s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	devices, _ := s.store.Snapshot()

	clients := 0
	if s.hub != nil {
		clients = s.hub.ClientCount()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":                "ok",
		"version":               s.version,
		"devices_count":         len(devices),
		"websocket_connections": clients,
	})
}
