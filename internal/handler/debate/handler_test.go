package debate_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	handler "github.com/personarena/backend/internal/handler/debate"
	"github.com/personarena/backend/internal/model/debate"
	"github.com/personarena/backend/internal/service/ai"
)

type fakeGenerator struct {
	content        string
	err            error
	lastPrompt     string
	lastTranscript []debate.Message
}

func (g *fakeGenerator) GenerateDebateTurn(ctx context.Context, systemPrompt string, transcript []debate.Message) (string, error) {
	g.lastPrompt = systemPrompt
	g.lastTranscript = transcript
	if g.err != nil {
		return "", g.err
	}
	return g.content, nil
}

func newTestRouter(gen *fakeGenerator) http.Handler {
	r := chi.NewRouter()
	handler.New(gen).RegisterRoutes(r)
	return r
}

func postTurn(t *testing.T, router http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/debate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSubmitTurnSuccess(t *testing.T) {
	gen := &fakeGenerator{content: "Cats are superior."}
	router := newTestRouter(gen)

	body := `{
		"personaId": "p1",
		"sessionId": "s1",
		"systemPrompt": "You are debating.",
		"messages": [{"role": "assistant", "content": "Dogs are loyal."}]
	}`
	rec := postTurn(t, router, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if resp["content"] != "Cats are superior." {
		t.Fatalf("unexpected content: %q", resp["content"])
	}
	if gen.lastPrompt != "You are debating." {
		t.Fatalf("unexpected prompt: %q", gen.lastPrompt)
	}
	if len(gen.lastTranscript) != 1 || gen.lastTranscript[0].Content != "Dogs are loyal." {
		t.Fatalf("unexpected transcript: %+v", gen.lastTranscript)
	}
}

func TestSubmitTurnMissingFields(t *testing.T) {
	router := newTestRouter(&fakeGenerator{content: "x"})

	rec := postTurn(t, router, `{"personaId": "p1", "sessionId": "s1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSubmitTurnBadBody(t *testing.T) {
	router := newTestRouter(&fakeGenerator{content: "x"})

	rec := postTurn(t, router, `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSubmitTurnGatewayFailure(t *testing.T) {
	router := newTestRouter(&fakeGenerator{err: ai.ErrGenerationFailed})

	body := `{"personaId": "p1", "sessionId": "s1", "systemPrompt": "debate"}`
	rec := postTurn(t, router, body)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
