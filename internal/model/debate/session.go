package debate

import (
	"errors"
	"sort"
	"time"

	"github.com/personarena/backend/internal/model/chat"
)

// Participant bounds for a debate session.
const (
	MinParticipants = 2
	MaxParticipants = 3
)

var (
	ErrInvalidParticipants = errors.New("debate requires 2 to 3 distinct personas")
	ErrTopicRequired       = errors.New("debate topic is required")
)

// Message is a chat message authored by one of the session's personas.
// The role is always assistant; there is no user role in a debate.
type Message struct {
	chat.Message
	PersonaID string `json:"personaId"`
}

// Session is a shared, topic-scoped transcript among 2-3 personas.
type Session struct {
	ID         string    `json:"id"`
	PersonaIDs []string  `json:"personaIds"`
	Topic      string    `json:"topic"`
	Messages   []Message `json:"messages"`
	CreatedAt  time.Time `json:"createdAt"`
	IsActive   bool      `json:"isActive"`
}

// ValidateSetup checks the participant set and topic for a new session.
func ValidateSetup(personaIDs []string, topic string) error {
	if topic == "" {
		return ErrTopicRequired
	}
	if len(personaIDs) < MinParticipants || len(personaIDs) > MaxParticipants {
		return ErrInvalidParticipants
	}
	seen := make(map[string]struct{}, len(personaIDs))
	for _, id := range personaIDs {
		if _, dup := seen[id]; dup {
			return ErrInvalidParticipants
		}
		seen[id] = struct{}{}
	}
	return nil
}

// HasParticipant reports whether personaID is a member of the session.
func (s *Session) HasParticipant(personaID string) bool {
	for _, id := range s.PersonaIDs {
		if id == personaID {
			return true
		}
	}
	return false
}

// SameParticipants compares two participant sets order-insensitively.
func SameParticipants(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

// RoomID maps a session id to its broadcast room. The two are the same
// string today; every caller goes through this function so the coupling
// stays in one place.
func RoomID(sessionID string) string {
	return sessionID
}
