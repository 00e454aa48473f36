// Package avatar relays avatar generation requests to the image
// service.
package avatar

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/personarena/backend/pkg/utils"
)

// Generator is the slice of the completion gateway the relay needs.
type Generator interface {
	GenerateAvatar(ctx context.Context, prompt string) (string, error)
}

// Handler relays avatar requests.
type Handler struct {
	gateway Generator
}

// New creates the avatar relay handler.
func New(gateway Generator) *Handler {
	return &Handler{gateway: gateway}
}

// RegisterRoutes mounts the relay endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/avatar", h.handleGenerateAvatar)
}

func (h *Handler) handleGenerateAvatar(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if payload.Prompt == "" {
		utils.RespondError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	url, err := h.gateway.GenerateAvatar(r.Context(), payload.Prompt)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"url": url})
}
