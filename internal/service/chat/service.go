// Package chat drives the one-on-one persona conversations.
package chat

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/personarena/backend/internal/model/chat"
	"github.com/personarena/backend/internal/service/ai"
	"github.com/personarena/backend/internal/store"
)

var ErrPersonaNotFound = errors.New("persona not found")

// Gateway is the slice of the completion gateway chat needs.
type Gateway interface {
	GenerateChatResponse(ctx context.Context, personaContext string, history []chat.Message, userMessage string) (string, error)
}

// Service appends user turns and persona replies to the transcript.
type Service struct {
	store   store.Store
	gateway Gateway
}

// NewService wires the chat flow to its store and gateway.
func NewService(st store.Store, gateway Gateway) *Service {
	return &Service{store: st, gateway: gateway}
}

// SendMessage records the user's message, asks the gateway for the
// persona's reply and records that too. A gateway failure leaves the
// user message in place and surfaces to the caller, who may retry.
func (s *Service) SendMessage(ctx context.Context, personaID, text string) (chat.Message, error) {
	profile, ok := s.store.FindPersona(personaID)
	if !ok {
		return chat.Message{}, ErrPersonaNotFound
	}

	history := s.store.ChatHistory(personaID)

	userMessage := chat.Message{
		ID:        uuid.NewString(),
		Content:   text,
		Role:      chat.RoleUser,
		Timestamp: time.Now().UTC(),
	}
	if err := s.store.AppendChatMessage(personaID, userMessage); err != nil {
		return chat.Message{}, err
	}

	reply, err := s.gateway.GenerateChatResponse(ctx, ai.BuildChatContext(profile), history, text)
	if err != nil {
		return chat.Message{}, err
	}

	assistantMessage := chat.Message{
		ID:        uuid.NewString(),
		Content:   reply,
		Role:      chat.RoleAssistant,
		Timestamp: time.Now().UTC(),
	}
	if err := s.store.AppendChatMessage(personaID, assistantMessage); err != nil {
		return chat.Message{}, err
	}

	return assistantMessage, nil
}

// History returns the persona's transcript, oldest first.
func (s *Service) History(personaID string) []chat.Message {
	return s.store.ChatHistory(personaID)
}
