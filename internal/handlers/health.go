package handlers

import (
	"context"
	"net/http"
	"time"

	"account-service/internal/middleware"
)

// Version is reported by the health endpoint; cmd/api overrides it at startup.
var Version = "1.0.0"

// Root is the unauthenticated landing route.
// @Summary      API root
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       / [get]
func (h *Handlers) Root(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, http.StatusOK, "Welcome to the API", nil)
}

// Health checks the user store and, when configured, Redis.
// @Summary      Health check
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]interface{}
// @Router       /health [get]
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.RequestIDFrom(r.Context())
	healthCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	degraded := false
	services := map[string]interface{}{}

	check := func(name string, ping func(context.Context) error) {
		start := time.Now()
		if err := ping(healthCtx); err != nil {
			degraded = true
			services[name] = map[string]interface{}{"status": "disconnected"}
			h.app.Logger.Error().
				Str("request_id", requestID).
				Str("service", name).
				Err(err).
				Msg("Health check failed")
			return
		}
		services[name] = map[string]interface{}{
			"status":  "connected",
			"latency": time.Since(start).String(),
		}
	}

	check("store", h.app.Store.Ping)
	if h.app.Redis != nil {
		check("redis", func(ctx context.Context) error {
			return h.app.Redis.Ping(ctx).Err()
		})
	}

	health := map[string]interface{}{
		"status":      "healthy",
		"timestamp":   time.Now().UTC(),
		"uptime":      time.Since(startTime).String(),
		"version":     Version,
		"environment": h.app.Config.AppEnv,
		"store":       h.app.Config.StoreDriver,
		"request_id":  requestID,
		"services":    services,
	}

	if degraded {
		health["status"] = "degraded"
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"success": false,
			"message": "Service is degraded",
			"data":    health,
		})
		return
	}

	h.writeSuccess(w, http.StatusOK, "Service is healthy", health)
}
