// Package store holds the client-local durable state: personas, chat
// transcripts and debate sessions. One named record is serialized as a
// whole on every mutation; the store is the sole source of truth for
// anything rendered to the user.
package store

import (
	"errors"

	"github.com/personarena/backend/internal/model/chat"
	"github.com/personarena/backend/internal/model/debate"
	"github.com/personarena/backend/internal/model/persona"
)

var (
	ErrCapacityExceeded = errors.New("maximum number of personas (3) reached")
	ErrSessionNotFound  = errors.New("debate session not found")
	ErrNotParticipant   = errors.New("persona is not a participant of this session")
)

// Store is the narrow read/write surface handed to services. A store
// instance belongs to exactly one client; it is never shared.
type Store interface {
	Personas() []persona.Profile
	FindPersona(id string) (persona.Profile, bool)
	AddPersona(profile persona.Profile) (persona.Profile, error)
	DeletePersona(id string) error

	AppendChatMessage(personaID string, message chat.Message) error
	ChatHistory(personaID string) []chat.Message
	ClearChatHistory(personaID string) error

	CreateDebateSession(personaIDs []string, topic string) (debate.Session, error)
	DebateSession(sessionID string) (debate.Session, bool)
	DebateSessions() []debate.Session
	ActiveDebateSession() (debate.Session, bool)
	AppendDebateMessage(sessionID string, message debate.Message) error
	EndDebateSession(sessionID string) error

	Close() error
}

// State is the persisted record layout. It is loaded and saved as one
// unit under the record name configured for the store.
type State struct {
	Personas            []persona.Profile         `json:"personas"`
	ActivePersonaID     string                    `json:"activePersonaId,omitempty"`
	ChatHistory         map[string][]chat.Message `json:"chatHistory"`
	DebateSessions      []debate.Session          `json:"debateSessions"`
	ActiveDebateSession *debate.Session           `json:"activeDebateSession"`
}

func newState() State {
	return State{
		ChatHistory: make(map[string][]chat.Message),
	}
}

func (st *State) clone() State {
	next := State{
		Personas:        append([]persona.Profile(nil), st.Personas...),
		ActivePersonaID: st.ActivePersonaID,
		ChatHistory:     make(map[string][]chat.Message, len(st.ChatHistory)),
		DebateSessions:  make([]debate.Session, 0, len(st.DebateSessions)),
	}
	for id, history := range st.ChatHistory {
		next.ChatHistory[id] = append([]chat.Message(nil), history...)
	}
	for _, session := range st.DebateSessions {
		next.DebateSessions = append(next.DebateSessions, cloneSession(session))
	}
	if st.ActiveDebateSession != nil {
		active := cloneSession(*st.ActiveDebateSession)
		next.ActiveDebateSession = &active
	}
	return next
}

func cloneSession(s debate.Session) debate.Session {
	s.PersonaIDs = append([]string(nil), s.PersonaIDs...)
	s.Messages = append([]debate.Message(nil), s.Messages...)
	return s
}
