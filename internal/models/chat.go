package models

import "encoding/json"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is one of the roles the bridge forwards upstream.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	default:
		return false
	}
}

// Message represents a single message in a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Conversation is the ordered message history, sent in full on every request.
type Conversation []Message

// StreamChatRequest is the payload sent to the streaming chat endpoint.
// Messages is kept raw so a non-array value can be told apart from an absent one.
type StreamChatRequest struct {
	Messages json.RawMessage `json:"messages"`
	Provider string          `json:"provider,omitempty"`
}

// ProviderInfo describes one selectable provider for the UI picker.
type ProviderInfo struct {
	ID         string `json:"id"`
	Model      string `json:"model"`
	Streaming  bool   `json:"streaming"`
	Configured bool   `json:"configured"`
}
