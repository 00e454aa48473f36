package persona

// Communication styles offered by the onboarding wizard. Profiles may
// carry any other free-text style the completion service comes up with.
const (
	StyleFriendly = "Friendly"
	StyleFormal   = "Formal"
	StyleDirect   = "Direct"
	StyleHumorous = "Humorous"
)

// MaxPersonas is the hard cap on concurrently existing personas.
const MaxPersonas = 3

// Profile captures a generated AI persona exposed to the frontend.
type Profile struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Description        string   `json:"description"`
	Traits             []string `json:"traits"`
	CommunicationStyle string   `json:"communicationStyle"`
	ImagePrompt        string   `json:"imagePrompt"`
	AvatarURL          string   `json:"avatarUrl,omitempty"`
}

// OnboardingAnswers holds the wizard responses the completion service
// turns into a Profile.
type OnboardingAnswers struct {
	Name               string `json:"name"`
	Topics             string `json:"topics"`
	CommunicationStyle string `json:"communicationStyle"`
	CriticismResponse  string `json:"criticismResponse"`
	Motivation         string `json:"motivation"`
}

// KnownStyles lists the closed style set in wizard order.
func KnownStyles() []string {
	return []string{StyleFriendly, StyleFormal, StyleDirect, StyleHumorous}
}
