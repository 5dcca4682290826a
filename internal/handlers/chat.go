package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"notra-backend/internal/middleware"
	"notra-backend/internal/models"
	"notra-backend/internal/services"
)

// MidStreamNotice is written in-band when the upstream fails after the
// response has already started. The stream is closed right after it.
const MidStreamNotice = "\n\n[Notra is temporarily unavailable, please try again later]"

type providerRegistry interface {
	Resolve(id string) (services.Provider, error)
	List() []services.Provider
}

type ChatHandler struct {
	providers       providerRegistry
	upstreamTimeout time.Duration
}

func NewChatHandler(providers providerRegistry, upstreamTimeout time.Duration) *ChatHandler {
	return &ChatHandler{
		providers:       providers,
		upstreamTimeout: upstreamTimeout,
	}
}

// Stream relays the selected provider's answer as a plain-text byte stream.
func (h *ChatHandler) Stream(w http.ResponseWriter, r *http.Request) {
	var req models.StreamChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("Invalid request body", err.Error(), r))
		return
	}

	conv, err := parseConversation(req.Messages)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	provider, err := h.providers.Resolve(req.Provider)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	if err := provider.Validate(); err != nil {
		handleServiceError(w, r, err)
		return
	}

	ctx := r.Context()
	if h.upstreamTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.upstreamTimeout)
		defer cancel()
	}

	requestID := r.Header.Get(middleware.RequestIDHeader)
	flusher, _ := w.(http.Flusher)
	started := false

	for fragment, err := range provider.StreamCompletion(ctx, conv) {
		if err != nil {
			if !started {
				handleServiceError(w, r, err)
				return
			}
			log.Printf("✗ [%s] stream error after partial output: %v", requestID, err)
			// Client still connected: tell it the answer is cut short.
			if r.Context().Err() == nil {
				io.WriteString(w, MidStreamNotice)
				if flusher != nil {
					flusher.Flush()
				}
			}
			return
		}

		if !started {
			startStream(w)
			started = true
		}
		if _, err := io.WriteString(w, fragment); err != nil {
			log.Printf("✗ [%s] client write failed: %v", requestID, err)
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}

	if !started {
		startStream(w)
	}
}

// Providers lists the selectable providers and whether each is usable.
func (h *ChatHandler) Providers(w http.ResponseWriter, r *http.Request) {
	list := h.providers.List()
	out := make([]models.ProviderInfo, 0, len(list))
	for _, p := range list {
		out = append(out, models.ProviderInfo{
			ID:         string(p.ID()),
			Model:      p.UpstreamModel(),
			Streaming:  p.SupportsIncrementalStreaming(),
			Configured: p.Validate() == nil,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"providers": out})
}

func startStream(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("Cache-Control", "no-cache")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
}

func parseConversation(raw json.RawMessage) (models.Conversation, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, &services.ValidationError{Message: "Invalid request body: messages is required"}
	}
	if trimmed[0] != '[' {
		return nil, &services.ValidationError{Message: "Invalid request body: messages must be an array"}
	}

	var conv models.Conversation
	if err := json.Unmarshal(trimmed, &conv); err != nil {
		return nil, &services.ValidationError{Message: "Invalid request body: malformed messages", Detail: err.Error()}
	}
	if len(conv) == 0 {
		return nil, &services.ValidationError{Message: "Invalid request body: messages must not be empty"}
	}
	for i, m := range conv {
		if !m.Role.Valid() {
			return nil, &services.ValidationError{
				Message: "Invalid request body: unsupported message role",
				Detail:  fmt.Sprintf("messages[%d].role = %q", i, m.Role),
			}
		}
	}
	return conv, nil
}
