package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/personarena/backend/internal/model/persona"
)

// BuildProfilePrompt renders the onboarding answers into the
// structured-profile request.
func BuildProfilePrompt(answers persona.OnboardingAnswers) string {
	return fmt.Sprintf(`Based on the following user preferences, create a detailed persona profile in JSON format:
Topics: %s
Communication Style: %s
Response to Criticism: %s
Motivation: %s

Return a JSON object with these fields:
- description: A detailed description of the persona
- traits: An array of 5-7 key personality traits
- communicationStyle: The preferred communication style
- imagePrompt: A detailed prompt for generating an avatar image`,
		answers.Topics,
		answers.CommunicationStyle,
		answers.CriticismResponse,
		answers.Motivation,
	)
}

// BuildChatContext renders a persona into the system context for a
// one-on-one chat.
func BuildChatContext(p persona.Profile) string {
	return fmt.Sprintf(`You are a persona with the following characteristics:
Name: %s
Description: %s
Communication Style: %s
Traits: %s

Please respond in a way that matches these characteristics.`,
		p.Name,
		p.Description,
		p.CommunicationStyle,
		strings.Join(p.Traits, ", "),
	)
}

// BuildDebatePrompt renders a persona and topic into the system prompt
// for a debate turn.
func BuildDebatePrompt(p persona.Profile, topic string) string {
	return fmt.Sprintf(`You are %s, a %s AI persona with the following traits: %s. You are participating in a debate on the topic: %q. Respond to the previous statements.`,
		p.Name,
		p.CommunicationStyle,
		strings.Join(p.Traits, ", "),
		topic,
	)
}

// parseProfile decodes the generative profile fields out of the model
// response, tolerating a fenced code block around the JSON object.
func parseProfile(content string) (persona.Profile, error) {
	payload := strings.TrimSpace(content)
	if strings.HasPrefix(payload, "```") {
		payload = strings.TrimPrefix(payload, "```json")
		payload = strings.TrimPrefix(payload, "```")
		payload = strings.TrimSuffix(strings.TrimSpace(payload), "```")
		payload = strings.TrimSpace(payload)
	}

	var fields struct {
		Description        string   `json:"description"`
		Traits             []string `json:"traits"`
		CommunicationStyle string   `json:"communicationStyle"`
		ImagePrompt        string   `json:"imagePrompt"`
	}
	if err := json.Unmarshal([]byte(payload), &fields); err != nil {
		return persona.Profile{}, fmt.Errorf("profile response is not the expected JSON shape: %v", err)
	}
	if fields.Description == "" || len(fields.Traits) == 0 {
		return persona.Profile{}, fmt.Errorf("profile response is missing required fields")
	}

	return persona.Profile{
		Description:        fields.Description,
		Traits:             fields.Traits,
		CommunicationStyle: fields.CommunicationStyle,
		ImagePrompt:        fields.ImagePrompt,
	}, nil
}
