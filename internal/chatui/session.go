// Package chatui holds the client side of the chat: the in-memory
// conversation a user sees, how a streamed answer is folded into it, and
// the embedded browser page that does the same in JavaScript.
package chatui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"notra-backend/internal/models"
)

const (
	WelcomeMessage  = "Hi, I'm Notra, your intelligent learning & writing companion. What would you like to work on today?"
	FallbackMessage = "⚠️ Something went wrong. Please check your network or API key and try again."
)

// ErrSuperseded is returned by Submit when a newer submission replaced it.
var ErrSuperseded = errors.New("chatui: submission superseded by a newer one")

// Session is one page's worth of chat state. Submissions are
// cancel-and-replace: starting a new one cancels the request in flight,
// and the cancelled request never touches the conversation again.
type Session struct {
	endpoint string
	client   *http.Client

	// OnUpdate, if set, receives a snapshot after every change.
	OnUpdate func(models.Conversation)

	mu         sync.Mutex
	provider   string
	messages   models.Conversation
	generation uint64
	cancel     context.CancelFunc
}

func NewSession(endpoint, provider string, client *http.Client) *Session {
	if client == nil {
		client = http.DefaultClient
	}
	return &Session{
		endpoint: endpoint,
		client:   client,
		provider: provider,
		messages: models.Conversation{{Role: models.RoleAssistant, Content: WelcomeMessage}},
	}
}

func (s *Session) SetProvider(provider string) {
	s.mu.Lock()
	s.provider = provider
	s.mu.Unlock()
}

// Messages returns a copy of the conversation.
func (s *Session) Messages() models.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(models.Conversation(nil), s.messages...)
}

// Submit sends text as a user message and folds the streamed answer into
// the conversation. Blank input is ignored.
func (s *Session) Submit(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.generation++
	gen := s.generation
	s.messages = append(s.messages, models.Message{Role: models.RoleUser, Content: text})
	payload := struct {
		Messages models.Conversation `json:"messages"`
		Provider string              `json:"provider,omitempty"`
	}{
		Messages: append(models.Conversation(nil), s.messages...),
		Provider: s.provider,
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()
	defer s.finish(gen, cancel)

	s.notify()

	body, err := s.send(ctx, payload)
	if err != nil {
		return s.fail(gen, err)
	}
	defer body.Close()

	if !s.apply(gen, func() {
		s.messages = append(s.messages, models.Message{Role: models.RoleAssistant})
	}) {
		return ErrSuperseded
	}

	var answer strings.Builder
	for fragment, err := range Fragments(body) {
		if err != nil {
			return s.fail(gen, err)
		}
		answer.WriteString(fragment)
		content := answer.String()
		if !s.apply(gen, func() {
			s.messages[len(s.messages)-1].Content = content
		}) {
			return ErrSuperseded
		}
	}

	return nil
}

func (s *Session) send(ctx context.Context, payload interface{}) (io.ReadCloser, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr models.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		resp.Body.Close()
		if apiErr.Error != "" {
			return nil, fmt.Errorf("chat request failed: %s (status %d)", apiErr.Error, resp.StatusCode)
		}
		return nil, fmt.Errorf("chat request failed with status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// apply runs mutate under the lock if gen is still the current submission.
func (s *Session) apply(gen uint64, mutate func()) bool {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return false
	}
	mutate()
	s.mu.Unlock()
	s.notify()
	return true
}

// fail swaps partial output for the fallback message. A superseded
// submission leaves the conversation alone.
func (s *Session) fail(gen uint64, err error) error {
	if !s.apply(gen, func() {
		last := len(s.messages) - 1
		if s.messages[last].Role == models.RoleAssistant {
			s.messages[last].Content = FallbackMessage
			return
		}
		s.messages = append(s.messages, models.Message{Role: models.RoleAssistant, Content: FallbackMessage})
	}) {
		return ErrSuperseded
	}
	return err
}

func (s *Session) finish(gen uint64, cancel context.CancelFunc) {
	cancel()
	s.mu.Lock()
	if gen == s.generation {
		s.cancel = nil
	}
	s.mu.Unlock()
}

func (s *Session) notify() {
	if s.OnUpdate != nil {
		s.OnUpdate(s.Messages())
	}
}

// Fragments yields the body as decoded UTF-8 text, one fragment per read.
// A multi-byte character split across reads is held back until complete.
func Fragments(body io.Reader) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		r := transform.NewReader(body, unicode.UTF8.NewDecoder())
		buf := make([]byte, 4096)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				if !yield(string(buf[:n]), nil) {
					return
				}
			}
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield("", err)
				return
			}
		}
	}
}
