// Package profile relays persona-profile generation requests to the
// completion gateway.
package profile

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/personarena/backend/internal/model/persona"
	"github.com/personarena/backend/pkg/utils"
)

// Generator is the slice of the completion gateway the relay needs.
type Generator interface {
	GeneratePersonaProfile(ctx context.Context, answers persona.OnboardingAnswers) (persona.Profile, error)
}

// Handler relays structured-profile requests.
type Handler struct {
	gateway Generator
}

// New creates the profile relay handler.
func New(gateway Generator) *Handler {
	return &Handler{gateway: gateway}
}

// RegisterRoutes mounts the relay endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/persona/profile", h.handleGenerateProfile)
}

func (h *Handler) handleGenerateProfile(w http.ResponseWriter, r *http.Request) {
	var answers persona.OnboardingAnswers
	if err := json.NewDecoder(r.Body).Decode(&answers); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if answers.Topics == "" && answers.CommunicationStyle == "" {
		utils.RespondError(w, http.StatusBadRequest, "onboarding answers are required")
		return
	}

	profile, err := h.gateway.GeneratePersonaProfile(r.Context(), answers)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, profile)
}
