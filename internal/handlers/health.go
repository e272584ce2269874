package handlers

import (
	"net/http"

	"gemini-relay/internal/config"
	"gemini-relay/internal/models"
)

type HealthHandler struct {
	model  string
	hasKey bool
}

func NewHealthHandler(cfg *config.Config) *HealthHandler {
	return &HealthHandler{model: cfg.GeminiModel, hasKey: cfg.HasGeminiKey()}
}

// Check always answers 200; hasKey tells whether chat can reach Gemini.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.HealthResponse{
		OK:     true,
		Model:  h.model,
		HasKey: h.hasKey,
	})
}
