package api

import (
	"net/http"
	"time"

	"github.com/phrazzld/mornoningo-api/internal/api/shared"
)

// HealthHandler answers liveness probes.
type HealthHandler struct {
	model string
	now   func() time.Time
}

// NewHealthHandler creates a HealthHandler reporting the configured model.
func NewHealthHandler(model string) *HealthHandler {
	return &HealthHandler{model: model, now: time.Now}
}

// Health handles GET /health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{
		Status: "ok",
		Model:  h.model,
		Time:   h.now().UTC(),
	})
}
