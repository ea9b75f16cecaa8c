package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/smartbotly/smartbotly/internal/models"
	"github.com/smartbotly/smartbotly/internal/usage"
)

// ValidateKey handles POST /api/validate-key. The metered widget calls it
// before each send to learn how many chat calls the key has left.
func (h *Handler) ValidateKey(w http.ResponseWriter, r *http.Request) {
	var req models.ValidateKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.APIKey == "" {
		http.Error(w, "API key is required", http.StatusBadRequest)
		return
	}

	if h.usage == nil {
		http.Error(w, "Usage metering is not enabled", http.StatusNotImplemented)
		return
	}

	remaining, err := h.usage.Remaining(r.Context(), req.APIKey)
	if err != nil {
		if errors.Is(err, usage.ErrUnknownKey) {
			http.Error(w, "Invalid API key", http.StatusUnauthorized)
			return
		}
		h.logger.Error().Err(err).Msg("failed to look up api key")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(models.ValidateKeyResponse{APICalls: remaining})
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
