// Package debate mediates between the session store and the broadcast
// channel so one session is simultaneously a store record and a
// transport room.
package debate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/personarena/backend/internal/model/chat"
	"github.com/personarena/backend/internal/model/debate"
	"github.com/personarena/backend/internal/service/ai"
	"github.com/personarena/backend/internal/store"
)

var (
	ErrPersonaNotFound = errors.New("persona not found")
	ErrTurnInFlight    = errors.New("a turn is already in flight for this persona")
)

// Gateway is the slice of the completion gateway the manager needs.
type Gateway interface {
	GenerateDebateTurn(ctx context.Context, systemPrompt string, transcript []debate.Message) (string, error)
}

// Connection is an established broadcast transport.
type Connection interface {
	OnMessage(handler func(sessionID string, message debate.Message))
	JoinRoom(sessionID string) error
	Publish(sessionID string, message debate.Message) error
	Close() error
}

// Connector establishes broadcast connections; it reports
// realtime.ErrConnectionFailed once its attempt budget is spent.
type Connector interface {
	Connect(ctx context.Context) (Connection, error)
}

// Manager owns the debate session lifecycle for one client.
type Manager struct {
	store     store.Store
	gateway   Gateway
	connector Connector

	mu       sync.Mutex
	conn     Connection
	inFlight map[string]bool
	observer func(sessionID string, message debate.Message)
}

// NewManager wires the manager to its collaborators.
func NewManager(st store.Store, gateway Gateway, connector Connector) *Manager {
	return &Manager{
		store:     st,
		gateway:   gateway,
		connector: connector,
		inFlight:  make(map[string]bool),
	}
}

// OnRelayed registers a callback invoked after a relayed message has
// been appended to the local store. Set it before Join.
func (m *Manager) OnRelayed(fn func(sessionID string, message debate.Message)) {
	m.mu.Lock()
	m.observer = fn
	m.mu.Unlock()
}

// Start validates the setup and returns the session to debate in. An
// active session with the same topic and the same participant set
// (order-insensitive) is reused; otherwise a fresh record becomes the
// active session. Start does not open a transport connection.
func (m *Manager) Start(personaIDs []string, topic string) (debate.Session, error) {
	if err := debate.ValidateSetup(personaIDs, topic); err != nil {
		return debate.Session{}, err
	}

	if active, ok := m.store.ActiveDebateSession(); ok {
		if active.Topic == topic && debate.SameParticipants(active.PersonaIDs, personaIDs) {
			return active, nil
		}
	}

	return m.store.CreateDebateSession(personaIDs, topic)
}

// Join opens the transport connection and enters the session's room.
// Messages relayed by other viewers are appended to the local store as
// they arrive. A client holds at most one connection; joining again
// replaces the previous one.
func (m *Manager) Join(ctx context.Context, sessionID string) error {
	if _, ok := m.store.DebateSession(sessionID); !ok {
		return store.ErrSessionNotFound
	}

	conn, err := m.connector.Connect(ctx)
	if err != nil {
		return err
	}

	conn.OnMessage(func(msgSessionID string, message debate.Message) {
		if err := m.store.AppendDebateMessage(msgSessionID, message); err != nil {
			log.Printf("[debate] dropping relayed message session=%s: %v", msgSessionID, err)
			return
		}
		m.mu.Lock()
		observer := m.observer
		m.mu.Unlock()
		if observer != nil {
			observer(msgSessionID, message)
		}
	})

	if err := conn.JoinRoom(sessionID); err != nil {
		conn.Close()
		return fmt.Errorf("failed to join debate room: %w", err)
	}

	m.mu.Lock()
	if m.conn != nil {
		m.conn.Close()
	}
	m.conn = conn
	m.mu.Unlock()

	log.Printf("[debate] joined session=%s", sessionID)
	return nil
}

// SubmitTurn generates the next statement for a persona, appends it to
// the local store first and then publishes it to the room. On gateway
// failure nothing is appended or published and the same turn may be
// retried. At most one turn per persona is outstanding at a time; the
// manager imposes no ordering between personas.
func (m *Manager) SubmitTurn(ctx context.Context, sessionID, personaID string) (debate.Message, error) {
	profile, ok := m.store.FindPersona(personaID)
	if !ok {
		return debate.Message{}, ErrPersonaNotFound
	}
	session, ok := m.store.DebateSession(sessionID)
	if !ok {
		return debate.Message{}, store.ErrSessionNotFound
	}
	if !session.HasParticipant(personaID) {
		return debate.Message{}, store.ErrNotParticipant
	}

	m.mu.Lock()
	if m.inFlight[personaID] {
		m.mu.Unlock()
		return debate.Message{}, ErrTurnInFlight
	}
	m.inFlight[personaID] = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		delete(m.inFlight, personaID)
		m.mu.Unlock()
	}()

	systemPrompt := ai.BuildDebatePrompt(profile, session.Topic)
	content, err := m.gateway.GenerateDebateTurn(ctx, systemPrompt, session.Messages)
	if err != nil {
		return debate.Message{}, err
	}

	message := debate.Message{
		Message: chat.Message{
			ID:        uuid.NewString(),
			Content:   content,
			Role:      chat.RoleAssistant,
			Timestamp: time.Now().UTC(),
		},
		PersonaID: personaID,
	}

	// Local store first, then the network: this client never
	// broadcasts a message its own store does not yet contain.
	if err := m.store.AppendDebateMessage(sessionID, message); err != nil {
		return debate.Message{}, err
	}

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn != nil {
		if err := conn.Publish(sessionID, message); err != nil {
			// Best-effort transport: the local append stands.
			log.Printf("[debate] publish failed session=%s: %v", sessionID, err)
		}
	}

	return message, nil
}

// End deactivates the session, releases the active slot and closes
// this client's transport connection. Other viewers keep their room
// membership; they simply stop hearing from this client.
func (m *Manager) End(sessionID string) error {
	if err := m.store.EndDebateSession(sessionID); err != nil {
		return err
	}

	m.mu.Lock()
	conn := m.conn
	m.conn = nil
	m.mu.Unlock()
	if conn != nil {
		conn.Close()
	}

	log.Printf("[debate] ended session=%s", sessionID)
	return nil
}
