// Package onboarding runs the persona creation wizard: answers go to
// the completion service for a profile, the profile's image prompt
// goes to the image service for an avatar, and the result lands in the
// store.
package onboarding

import (
	"context"
	"log"
	"strings"

	"github.com/personarena/backend/internal/model/persona"
	"github.com/personarena/backend/internal/store"
)

// Gateway is the slice of the completion gateway the wizard needs.
type Gateway interface {
	GeneratePersonaProfile(ctx context.Context, answers persona.OnboardingAnswers) (persona.Profile, error)
	GenerateAvatar(ctx context.Context, prompt string) (string, error)
}

// Service creates personas from onboarding answers.
type Service struct {
	store   store.Store
	gateway Gateway
}

// NewService wires the wizard to its store and gateway.
func NewService(st store.Store, gateway Gateway) *Service {
	return &Service{store: st, gateway: gateway}
}

// CreatePersona generates a profile and avatar for the answers and
// stores the persona. Any gateway failure aborts the whole creation;
// nothing partial is stored. The persona cap is enforced before the
// gateway is called and again by the store on insert.
func (s *Service) CreatePersona(ctx context.Context, answers persona.OnboardingAnswers) (persona.Profile, error) {
	if len(s.store.Personas()) >= persona.MaxPersonas {
		return persona.Profile{}, store.ErrCapacityExceeded
	}

	profile, err := s.gateway.GeneratePersonaProfile(ctx, answers)
	if err != nil {
		return persona.Profile{}, err
	}

	avatarURL, err := s.gateway.GenerateAvatar(ctx, profile.ImagePrompt)
	if err != nil {
		return persona.Profile{}, err
	}

	profile.AvatarURL = avatarURL
	profile.Name = strings.TrimSpace(answers.Name)
	if profile.Name == "" {
		profile.Name = "AI Persona"
	}

	added, err := s.store.AddPersona(profile)
	if err != nil {
		return persona.Profile{}, err
	}

	log.Printf("[onboarding] created persona id=%s name=%s", added.ID, added.Name)
	return added, nil
}
