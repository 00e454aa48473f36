package chat

import "time"

// Message roles. Debate transcripts only ever contain assistant turns.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn in a persona's one-on-one transcript.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Role      string    `json:"role"`
	Timestamp time.Time `json:"timestamp"`
}
