// Package debate exposes the turn-submission relay used by browser
// clients, which keep no completion credential of their own.
package debate

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/personarena/backend/internal/model/chat"
	"github.com/personarena/backend/internal/model/debate"
	"github.com/personarena/backend/pkg/utils"
)

// Generator is the slice of the completion gateway the relay needs.
type Generator interface {
	GenerateDebateTurn(ctx context.Context, systemPrompt string, transcript []debate.Message) (string, error)
}

// Handler relays turn-submission requests to the completion gateway.
type Handler struct {
	gateway Generator
}

// New creates the turn relay handler.
func New(gateway Generator) *Handler {
	return &Handler{gateway: gateway}
}

// RegisterRoutes mounts the relay endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/debate", h.handleSubmitTurn)
}

type turnRequest struct {
	PersonaID    string `json:"personaId"`
	SessionID    string `json:"sessionId"`
	SystemPrompt string `json:"systemPrompt"`
	Messages     []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func (h *Handler) handleSubmitTurn(w http.ResponseWriter, r *http.Request) {
	var payload turnRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if payload.PersonaID == "" || payload.SessionID == "" || payload.SystemPrompt == "" {
		utils.RespondError(w, http.StatusBadRequest, "personaId, sessionId and systemPrompt are required")
		return
	}

	transcript := make([]debate.Message, 0, len(payload.Messages))
	for _, msg := range payload.Messages {
		transcript = append(transcript, debate.Message{
			Message: chat.Message{Content: msg.Content, Role: msg.Role},
		})
	}

	content, err := h.gateway.GenerateDebateTurn(r.Context(), payload.SystemPrompt, transcript)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "Failed to generate response")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"content": content})
}
