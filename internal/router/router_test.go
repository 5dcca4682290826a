package router

import (
	"context"
	"io"
	"iter"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"notra-backend/internal/chatui"
	"notra-backend/internal/handlers"
	"notra-backend/internal/models"
	"notra-backend/internal/services"
)

type scriptedProvider struct {
	fragments []string
}

func (p scriptedProvider) ID() services.ProviderID            { return services.OpenAIFast }
func (p scriptedProvider) UpstreamModel() string              { return "scripted" }
func (p scriptedProvider) SupportsIncrementalStreaming() bool { return true }
func (p scriptedProvider) Validate() error                    { return nil }
func (p scriptedProvider) StreamCompletion(ctx context.Context, conv models.Conversation) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, f := range p.fragments {
			if !yield(f, nil) {
				return
			}
		}
	}
}

func newTestServer(t *testing.T, fragments ...string) *httptest.Server {
	t.Helper()
	reg, err := services.NewRegistryWith(services.OpenAIFast, scriptedProvider{fragments: fragments})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	h := New(handlers.NewChatHandler(reg, time.Minute), chatui.Handler(), "*")
	return httptest.NewServer(h)
}

func TestRouter_Health(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	resp, err := http.Get(server.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatalf("expected X-Request-ID on every response")
	}
}

func TestRouter_ChatStreamsThroughMiddleware(t *testing.T) {
	server := newTestServer(t, "Hel", "lo, ", "world")
	defer server.Close()

	resp, err := http.Post(server.URL+"/api/chat", "application/json",
		strings.NewReader(`{"messages":[{"role":"user","content":"hi"}]}`))
	if err != nil {
		t.Fatalf("POST /api/chat: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "Hello, world" {
		t.Fatalf("expected %q, got %q", "Hello, world", body)
	}
}

func TestRouter_SessionAgainstBridge(t *testing.T) {
	server := newTestServer(t, "Hel", "lo")
	defer server.Close()

	s := chatui.NewSession(server.URL+"/api/chat", "openai-fast", server.Client())
	if err := s.Submit(context.Background(), "hi"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	msgs := s.Messages()
	if last := msgs[len(msgs)-1]; last.Role != models.RoleAssistant || last.Content != "Hello" {
		t.Fatalf("unexpected last message: %+v", last)
	}
}

func TestRouter_ChatRejectsGet(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/chat")
	if err != nil {
		t.Fatalf("GET /api/chat: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected status %d, got %d", http.StatusMethodNotAllowed, resp.StatusCode)
	}
}

func TestRouter_ServesUI(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	resp, err := http.Get(server.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("expected HTML, got %q", ct)
	}
}
