package services

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log"

	"notra-backend/internal/config"
	"notra-backend/internal/models"
)

// Persona is the default system instruction placed ahead of every conversation.
const Persona = `You are Notra, a smart, professional and warm AI assistant for learning and writing.
Guidelines:
- Answer naturally and clearly, in the language the user writes in.
- Structure longer answers into paragraphs and use Markdown headings or lists where they help.
- Be logical and focused, and use examples where they make a point clearer.
- Never mention which model, vendor or company powers you. Refer to yourself only as "Notra".`

type ProviderID string

const (
	OpenAIFast    ProviderID = "openai-fast"
	OpenAIStrong  ProviderID = "openai-strong"
	GenerativeAlt ProviderID = "generative-alt"
)

// ProviderIDs lists every selectable provider in display order.
var ProviderIDs = []ProviderID{OpenAIFast, OpenAIStrong, GenerativeAlt}

func ParseProviderID(s string) (ProviderID, error) {
	for _, id := range ProviderIDs {
		if string(id) == s {
			return id, nil
		}
	}
	return "", &UnknownProviderError{ID: s}
}

// Provider is one upstream model behind a client-facing identifier.
//
// StreamCompletion returns a lazy, finite sequence of text fragments in
// arrival order. Nothing is sent upstream until the sequence is ranged
// over, and it must be ranged over at most once. A non-nil error is
// always the last element.
type Provider interface {
	ID() ProviderID
	UpstreamModel() string
	SupportsIncrementalStreaming() bool
	Validate() error
	StreamCompletion(ctx context.Context, conv models.Conversation) iter.Seq2[string, error]
}

type Registry struct {
	providers map[ProviderID]Provider
	order     []ProviderID
	defaultID ProviderID
}

// NewRegistry builds the static provider table from cfg. Providers without
// a credential are still registered so requests for them fail with
// MisconfiguredError instead of UnknownProviderError.
func NewRegistry(cfg *config.Config) (*Registry, error) {
	persona := cfg.SystemPrompt
	if persona == "" {
		persona = Persona
	}

	defaultID, err := ParseProviderID(cfg.DefaultProvider)
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_PROVIDER: %w", err)
	}

	return NewRegistryWith(defaultID,
		NewOpenAIProvider(OpenAIFast, cfg.OpenAI.FastModel, cfg.OpenAI, persona),
		NewOpenAIProvider(OpenAIStrong, cfg.OpenAI.StrongModel, cfg.OpenAI, persona),
		NewGenerativeProvider(cfg.Gemini, persona),
	)
}

func NewRegistryWith(defaultID ProviderID, providers ...Provider) (*Registry, error) {
	r := &Registry{
		providers: make(map[ProviderID]Provider, len(providers)),
		defaultID: defaultID,
	}
	for _, p := range providers {
		if _, dup := r.providers[p.ID()]; dup {
			return nil, fmt.Errorf("provider %s registered twice", p.ID())
		}
		r.providers[p.ID()] = p
		r.order = append(r.order, p.ID())
	}
	if _, ok := r.providers[defaultID]; !ok {
		return nil, fmt.Errorf("default provider %s is not registered", defaultID)
	}
	return r, nil
}

// Resolve maps a client-facing identifier to its provider. An empty
// identifier selects the default.
func (r *Registry) Resolve(id string) (Provider, error) {
	if id == "" {
		return r.providers[r.defaultID], nil
	}
	p, ok := r.providers[ProviderID(id)]
	if !ok {
		return nil, &UnknownProviderError{ID: id}
	}
	return p, nil
}

func (r *Registry) Default() Provider {
	return r.providers[r.defaultID]
}

func (r *Registry) List() []Provider {
	out := make([]Provider, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.providers[id])
	}
	return out
}

// Close releases provider clients that hold resources.
func (r *Registry) Close() {
	for _, id := range r.order {
		if c, ok := r.providers[id].(io.Closer); ok {
			if err := c.Close(); err != nil {
				log.Printf("close provider %s: %v", id, err)
			}
		}
	}
}
