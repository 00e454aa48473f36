package debate

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/personarena/backend/internal/model/debate"
	"github.com/personarena/backend/internal/model/persona"
	"github.com/personarena/backend/internal/service/ai"
	"github.com/personarena/backend/internal/store"
)

type fakeGateway struct {
	mu      sync.Mutex
	content string
	err     error
	started chan struct{}
	release chan struct{}
	calls   int
}

func (g *fakeGateway) GenerateDebateTurn(ctx context.Context, systemPrompt string, transcript []debate.Message) (string, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	if g.started != nil {
		g.started <- struct{}{}
	}
	if g.release != nil {
		<-g.release
	}
	if g.err != nil {
		return "", g.err
	}
	return g.content, nil
}

type publishedEvent struct {
	sessionID string
	message   debate.Message
}

type fakeConnection struct {
	mu        sync.Mutex
	handler   func(sessionID string, message debate.Message)
	joined    []string
	published []publishedEvent
	closed    bool
}

func (c *fakeConnection) OnMessage(handler func(sessionID string, message debate.Message)) {
	c.mu.Lock()
	c.handler = handler
	c.mu.Unlock()
}

func (c *fakeConnection) JoinRoom(sessionID string) error {
	c.mu.Lock()
	c.joined = append(c.joined, sessionID)
	c.mu.Unlock()
	return nil
}

func (c *fakeConnection) Publish(sessionID string, message debate.Message) error {
	c.mu.Lock()
	c.published = append(c.published, publishedEvent{sessionID: sessionID, message: message})
	c.mu.Unlock()
	return nil
}

func (c *fakeConnection) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *fakeConnection) deliver(sessionID string, message debate.Message) {
	c.mu.Lock()
	handler := c.handler
	c.mu.Unlock()
	if handler != nil {
		handler(sessionID, message)
	}
}

type fakeConnector struct {
	conn *fakeConnection
	err  error
}

func (f *fakeConnector) Connect(ctx context.Context) (Connection, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.conn, nil
}

func setupManager(t *testing.T, gateway *fakeGateway) (*Manager, store.Store, *fakeConnection, []string) {
	t.Helper()
	st, err := store.OpenSQLite(filepath.Join(t.TempDir(), "arena.db"), "")
	if err != nil {
		t.Fatalf("OpenSQLite err: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	ids := make([]string, 0, 2)
	for _, name := range []string{"Felix", "Rex"} {
		p, err := st.AddPersona(persona.Profile{Name: name, CommunicationStyle: persona.StyleDirect, Traits: []string{"stubborn"}})
		if err != nil {
			t.Fatalf("AddPersona err: %v", err)
		}
		ids = append(ids, p.ID)
	}

	conn := &fakeConnection{}
	manager := NewManager(st, gateway, &fakeConnector{conn: conn})
	return manager, st, conn, ids
}

func TestStartCreatesActiveSession(t *testing.T) {
	manager, st, _, ids := setupManager(t, &fakeGateway{})

	session, err := manager.Start(ids, "Cats vs Dogs")
	if err != nil {
		t.Fatalf("Start err: %v", err)
	}
	if !session.IsActive {
		t.Fatal("expected session to be active")
	}
	if len(session.Messages) != 0 {
		t.Fatalf("expected empty transcript, got %d messages", len(session.Messages))
	}
	if active, ok := st.ActiveDebateSession(); !ok || active.ID != session.ID {
		t.Fatal("expected store active slot to hold the session")
	}
}

func TestStartReusesMatchingActiveSession(t *testing.T) {
	manager, _, _, ids := setupManager(t, &fakeGateway{})

	first, err := manager.Start(ids, "Cats vs Dogs")
	if err != nil {
		t.Fatalf("Start err: %v", err)
	}

	// Same topic, participants in reverse order: reuse.
	reversed := []string{ids[1], ids[0]}
	second, err := manager.Start(reversed, "Cats vs Dogs")
	if err != nil {
		t.Fatalf("second Start err: %v", err)
	}
	if second.ID != first.ID {
		t.Fatal("expected the active session to be reused")
	}

	// Different topic: a fresh session takes the active slot.
	third, err := manager.Start(ids, "Tea vs Coffee")
	if err != nil {
		t.Fatalf("third Start err: %v", err)
	}
	if third.ID == first.ID {
		t.Fatal("expected a new session for a different topic")
	}
}

func TestStartValidatesSetup(t *testing.T) {
	manager, _, _, ids := setupManager(t, &fakeGateway{})

	if _, err := manager.Start(ids[:1], "Cats vs Dogs"); !errors.Is(err, debate.ErrInvalidParticipants) {
		t.Fatalf("expected ErrInvalidParticipants, got %v", err)
	}
	if _, err := manager.Start(ids, ""); !errors.Is(err, debate.ErrTopicRequired) {
		t.Fatalf("expected ErrTopicRequired, got %v", err)
	}
}

func TestSubmitTurnAppendsThenPublishes(t *testing.T) {
	gateway := &fakeGateway{content: "Cats are superior."}
	manager, st, conn, ids := setupManager(t, gateway)

	session, err := manager.Start(ids, "Cats vs Dogs")
	if err != nil {
		t.Fatalf("Start err: %v", err)
	}
	if err := manager.Join(context.Background(), session.ID); err != nil {
		t.Fatalf("Join err: %v", err)
	}

	message, err := manager.SubmitTurn(context.Background(), session.ID, ids[0])
	if err != nil {
		t.Fatalf("SubmitTurn err: %v", err)
	}
	if message.Content != "Cats are superior." || message.Role != "assistant" || message.PersonaID != ids[0] {
		t.Fatalf("unexpected message: %+v", message)
	}

	stored, _ := st.DebateSession(session.ID)
	if len(stored.Messages) != 1 || stored.Messages[0].Content != "Cats are superior." {
		t.Fatalf("unexpected transcript: %+v", stored.Messages)
	}

	conn.mu.Lock()
	defer conn.mu.Unlock()
	if len(conn.published) != 1 {
		t.Fatalf("expected 1 publish, got %d", len(conn.published))
	}
	if conn.published[0].sessionID != session.ID || conn.published[0].message.ID != message.ID {
		t.Fatalf("unexpected publish: %+v", conn.published[0])
	}
}

func TestSubmitTurnGatewayFailure(t *testing.T) {
	gateway := &fakeGateway{err: ai.ErrGenerationFailed}
	manager, st, conn, ids := setupManager(t, gateway)

	session, _ := manager.Start(ids, "Cats vs Dogs")
	if err := manager.Join(context.Background(), session.ID); err != nil {
		t.Fatalf("Join err: %v", err)
	}

	if _, err := manager.SubmitTurn(context.Background(), session.ID, ids[0]); !errors.Is(err, ai.ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}

	stored, _ := st.DebateSession(session.ID)
	if len(stored.Messages) != 0 {
		t.Fatal("expected transcript unchanged after gateway failure")
	}
	conn.mu.Lock()
	defer conn.mu.Unlock()
	if len(conn.published) != 0 {
		t.Fatal("expected no publish after gateway failure")
	}
}

func TestSubmitTurnUnknownPersonaAndSession(t *testing.T) {
	manager, _, _, ids := setupManager(t, &fakeGateway{content: "x"})
	session, _ := manager.Start(ids, "Cats vs Dogs")

	if _, err := manager.SubmitTurn(context.Background(), session.ID, "ghost"); !errors.Is(err, ErrPersonaNotFound) {
		t.Fatalf("expected ErrPersonaNotFound, got %v", err)
	}
	if _, err := manager.SubmitTurn(context.Background(), "missing", ids[0]); !errors.Is(err, store.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSubmitTurnRejectsConcurrentTurnForSamePersona(t *testing.T) {
	gateway := &fakeGateway{
		content: "slow answer",
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	manager, _, _, ids := setupManager(t, gateway)
	session, _ := manager.Start(ids, "Cats vs Dogs")

	done := make(chan error, 1)
	go func() {
		_, err := manager.SubmitTurn(context.Background(), session.ID, ids[0])
		done <- err
	}()

	<-gateway.started
	if _, err := manager.SubmitTurn(context.Background(), session.ID, ids[0]); !errors.Is(err, ErrTurnInFlight) {
		t.Fatalf("expected ErrTurnInFlight, got %v", err)
	}

	close(gateway.release)
	if err := <-done; err != nil {
		t.Fatalf("first turn err: %v", err)
	}

	// The guard is per persona: once cleared, the persona may speak again.
	gateway.release = nil
	gateway.started = nil
	if _, err := manager.SubmitTurn(context.Background(), session.ID, ids[0]); err != nil {
		t.Fatalf("follow-up turn err: %v", err)
	}
}

func TestJoinAppendsRelayedMessages(t *testing.T) {
	manager, st, conn, ids := setupManager(t, &fakeGateway{})
	session, _ := manager.Start(ids, "Cats vs Dogs")
	if err := manager.Join(context.Background(), session.ID); err != nil {
		t.Fatalf("Join err: %v", err)
	}
	if len(conn.joined) != 1 || conn.joined[0] != session.ID {
		t.Fatalf("expected join for %s, got %v", session.ID, conn.joined)
	}

	var observed []debate.Message
	manager.OnRelayed(func(sessionID string, message debate.Message) {
		observed = append(observed, message)
	})

	conn.deliver(session.ID, debateMessage(ids[1], "Dogs are loyal."))

	stored, _ := st.DebateSession(session.ID)
	if len(stored.Messages) != 1 || stored.Messages[0].Content != "Dogs are loyal." {
		t.Fatalf("expected relayed message in store, got %+v", stored.Messages)
	}
	if len(observed) != 1 {
		t.Fatalf("expected observer to fire once, got %d", len(observed))
	}
}

func TestJoinUnknownSession(t *testing.T) {
	manager, _, _, _ := setupManager(t, &fakeGateway{})
	if err := manager.Join(context.Background(), "missing"); !errors.Is(err, store.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestEndDeactivatesAndCloses(t *testing.T) {
	manager, st, conn, ids := setupManager(t, &fakeGateway{})
	session, _ := manager.Start(ids, "Cats vs Dogs")
	if err := manager.Join(context.Background(), session.ID); err != nil {
		t.Fatalf("Join err: %v", err)
	}

	if err := manager.End(session.ID); err != nil {
		t.Fatalf("End err: %v", err)
	}

	if _, ok := st.ActiveDebateSession(); ok {
		t.Fatal("expected active slot to be released")
	}
	ended, _ := st.DebateSession(session.ID)
	if ended.IsActive {
		t.Fatal("expected session to be inactive")
	}
	conn.mu.Lock()
	defer conn.mu.Unlock()
	if !conn.closed {
		t.Fatal("expected transport connection to be closed")
	}
}

func debateMessage(personaID, content string) debate.Message {
	msg := debate.Message{PersonaID: personaID}
	msg.ID = personaID + "-" + content
	msg.Content = content
	msg.Role = "assistant"
	return msg
}
