// Package ai is the completion gateway: a thin client over the text
// completion and image generation services. Every failure surfaces as
// ErrGenerationFailed with the underlying reason; there is no retry,
// caching or rate limiting here — callers decide whether to re-issue.
package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/personarena/backend/internal/config"
	"github.com/personarena/backend/internal/model/chat"
	"github.com/personarena/backend/internal/model/debate"
	"github.com/personarena/backend/internal/model/persona"
)

// ErrGenerationFailed covers any completion or image service failure.
var ErrGenerationFailed = errors.New("generation failed")

// Service wraps the chat model and the image endpoint behind the
// gateway contract.
type Service struct {
	chatModel model.ChatModel
	convChain compose.Runnable[map[string]any, *schema.Message]
	turnChain compose.Runnable[map[string]any, *schema.Message]
	imageCfg  config.ImageConfig
	httpCli   *http.Client
}

// NewService compiles the completion chains and prepares the image
// client.
func NewService(ctx context.Context, aiCfg config.AIConfig, imageCfg config.ImageConfig) (*Service, error) {
	chatModel, err := aiCfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	convTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)
	convChain := compose.NewChain[map[string]any, *schema.Message]()
	convChain.AppendChatTemplate(convTemplate)
	convChain.AppendChatModel(chatModel)
	conv, err := convChain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile conversation chain: %w", err)
	}

	// Debate turns carry no user query: the transcript alone is the
	// context the persona responds to.
	turnTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
	)
	turnChain := compose.NewChain[map[string]any, *schema.Message]()
	turnChain.AppendChatTemplate(turnTemplate)
	turnChain.AppendChatModel(chatModel)
	turn, err := turnChain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile debate turn chain: %w", err)
	}

	return &Service{
		chatModel: chatModel,
		convChain: conv,
		turnChain: turn,
		imageCfg:  imageCfg,
		httpCli:   &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// GeneratePersonaProfile asks the completion service for the
// generative profile fields matching the onboarding answers. A
// response that does not parse as the expected structure fails with
// ErrGenerationFailed.
func (s *Service) GeneratePersonaProfile(ctx context.Context, answers persona.OnboardingAnswers) (persona.Profile, error) {
	response, err := s.convChain.Invoke(ctx, map[string]any{
		"system":  "You respond with a single JSON object and nothing else.",
		"history": nil,
		"query":   BuildProfilePrompt(answers),
	})
	if err != nil {
		return persona.Profile{}, fmt.Errorf("%w: %s", ErrGenerationFailed, err)
	}
	if response.Content == "" {
		return persona.Profile{}, fmt.Errorf("%w: no content received from completion service", ErrGenerationFailed)
	}

	profile, err := parseProfile(response.Content)
	if err != nil {
		return persona.Profile{}, fmt.Errorf("%w: %s", ErrGenerationFailed, err)
	}

	log.Printf("[ai] generated profile: style=%s traits=%d", profile.CommunicationStyle, len(profile.Traits))
	return profile, nil
}

// GenerateChatResponse produces a persona reply for a one-on-one chat.
// An empty completion is returned as empty text, not an error.
func (s *Service) GenerateChatResponse(ctx context.Context, personaContext string, history []chat.Message, userMessage string) (string, error) {
	response, err := s.convChain.Invoke(ctx, map[string]any{
		"system":  personaContext,
		"history": buildHistory(history),
		"query":   userMessage,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrGenerationFailed, err)
	}

	log.Printf("[ai] generated chat response, length=%d", len(response.Content))
	return response.Content, nil
}

// GenerateDebateTurn produces the next statement for the persona
// described by systemPrompt given the debate transcript so far. An
// empty completion is returned as empty text, not an error.
func (s *Service) GenerateDebateTurn(ctx context.Context, systemPrompt string, transcript []debate.Message) (string, error) {
	history := make([]*schema.Message, 0, len(transcript))
	for _, msg := range transcript {
		history = append(history, schema.AssistantMessage(msg.Content, nil))
	}
	if len(history) == 0 {
		// The very first turn still needs something to respond to.
		history = append(history, schema.UserMessage("Please open the debate with your position."))
	}

	response, err := s.turnChain.Invoke(ctx, map[string]any{
		"system":  systemPrompt,
		"history": history,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrGenerationFailed, err)
	}

	log.Printf("[ai] generated debate turn, length=%d", len(response.Content))
	return response.Content, nil
}

// buildHistory converts stored chat messages into model messages,
// keeping only the most recent ones.
func buildHistory(messages []chat.Message) []*schema.Message {
	const historyLimit = 10

	if len(messages) == 0 {
		return nil
	}

	startIdx := 0
	if len(messages) > historyLimit {
		startIdx = len(messages) - historyLimit
	}

	history := make([]*schema.Message, 0, len(messages)-startIdx)
	for _, msg := range messages[startIdx:] {
		switch msg.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(msg.Content))
		case chat.RoleAssistant:
			history = append(history, schema.AssistantMessage(msg.Content, nil))
		}
	}

	return history
}
