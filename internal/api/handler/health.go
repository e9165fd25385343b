package handler

import (
	"net/http"

	"github.com/mcoot/partyroom/internal/api/response"
	"github.com/mcoot/partyroom/internal/services/registry"
	"github.com/mcoot/partyroom/internal/web/stream"
)

// HealthHandler reports liveness
type HealthHandler struct {
	registry   *registry.Registry
	hubManager *stream.HubManager
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(registry *registry.Registry, hubManager *stream.HubManager) *HealthHandler {
	return &HealthHandler{registry: registry, hubManager: hubManager}
}

// Get handles GET /api/v1/health
func (h *HealthHandler) Get(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, response.Health{
		Status:   "ok",
		Sessions: h.registry.SessionCount(),
		Streams:  h.hubManager.HubCount(),
	})
}
