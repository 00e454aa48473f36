package chat

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	chatmodel "github.com/personarena/backend/internal/model/chat"
	"github.com/personarena/backend/internal/model/persona"
	"github.com/personarena/backend/internal/service/ai"
	"github.com/personarena/backend/internal/store"
)

type fakeGateway struct {
	reply       string
	err         error
	lastHistory []chatmodel.Message
}

func (g *fakeGateway) GenerateChatResponse(ctx context.Context, personaContext string, history []chatmodel.Message, userMessage string) (string, error) {
	g.lastHistory = history
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func setupService(t *testing.T, gateway *fakeGateway) (*Service, store.Store, string) {
	t.Helper()
	st, err := store.OpenSQLite(filepath.Join(t.TempDir(), "arena.db"), "")
	if err != nil {
		t.Fatalf("OpenSQLite err: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	p, err := st.AddPersona(persona.Profile{Name: "Maya", CommunicationStyle: persona.StyleFriendly, Traits: []string{"curious"}})
	if err != nil {
		t.Fatalf("AddPersona err: %v", err)
	}
	return NewService(st, gateway), st, p.ID
}

func TestSendMessageAppendsBothTurns(t *testing.T) {
	gateway := &fakeGateway{reply: "Hello there!"}
	svc, _, personaID := setupService(t, gateway)

	reply, err := svc.SendMessage(context.Background(), personaID, "Hi")
	if err != nil {
		t.Fatalf("SendMessage err: %v", err)
	}
	if reply.Content != "Hello there!" || reply.Role != chatmodel.RoleAssistant {
		t.Fatalf("unexpected reply: %+v", reply)
	}

	history := svc.History(personaID)
	if len(history) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(history))
	}
	if history[0].Role != chatmodel.RoleUser || history[0].Content != "Hi" {
		t.Fatalf("unexpected first turn: %+v", history[0])
	}
	if history[1].Role != chatmodel.RoleAssistant {
		t.Fatalf("unexpected second turn: %+v", history[1])
	}
}

func TestSendMessagePassesPriorHistoryOnly(t *testing.T) {
	gateway := &fakeGateway{reply: "Again!"}
	svc, _, personaID := setupService(t, gateway)

	if _, err := svc.SendMessage(context.Background(), personaID, "first"); err != nil {
		t.Fatalf("SendMessage err: %v", err)
	}
	if _, err := svc.SendMessage(context.Background(), personaID, "second"); err != nil {
		t.Fatalf("SendMessage err: %v", err)
	}

	// The gateway sees the transcript as it stood before the new user
	// turn was appended.
	if len(gateway.lastHistory) != 2 {
		t.Fatalf("expected 2 prior messages, got %d", len(gateway.lastHistory))
	}
	if gateway.lastHistory[0].Content != "first" {
		t.Fatalf("unexpected history head: %+v", gateway.lastHistory[0])
	}
}

func TestSendMessageGatewayFailureKeepsUserTurn(t *testing.T) {
	gateway := &fakeGateway{err: ai.ErrGenerationFailed}
	svc, _, personaID := setupService(t, gateway)

	if _, err := svc.SendMessage(context.Background(), personaID, "Hi"); !errors.Is(err, ai.ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}

	history := svc.History(personaID)
	if len(history) != 1 || history[0].Role != chatmodel.RoleUser {
		t.Fatalf("expected only the user turn to survive, got %+v", history)
	}
}

func TestSendMessageUnknownPersona(t *testing.T) {
	svc, _, _ := setupService(t, &fakeGateway{reply: "x"})
	if _, err := svc.SendMessage(context.Background(), "ghost", "Hi"); !errors.Is(err, ErrPersonaNotFound) {
		t.Fatalf("expected ErrPersonaNotFound, got %v", err)
	}
}
