package services

import (
	"context"
	"errors"
	"io"
	"iter"

	"github.com/sashabaranov/go-openai"

	"notra-backend/internal/config"
	"notra-backend/internal/models"
)

// OpenAIProvider streams chat completions from an OpenAI-compatible API.
type OpenAIProvider struct {
	id          ProviderID
	model       string
	temperature float32
	persona     string
	client      *openai.Client
}

func NewOpenAIProvider(id ProviderID, model string, cfg config.OpenAI, persona string) *OpenAIProvider {
	p := &OpenAIProvider{
		id:          id,
		model:       model,
		temperature: cfg.Temperature,
		persona:     persona,
	}

	if cfg.APIKey != "" {
		clientConfig := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientConfig.BaseURL = cfg.BaseURL
		}
		p.client = openai.NewClientWithConfig(clientConfig)
	}

	return p
}

func (p *OpenAIProvider) ID() ProviderID                     { return p.id }
func (p *OpenAIProvider) UpstreamModel() string              { return p.model }
func (p *OpenAIProvider) SupportsIncrementalStreaming() bool { return true }

func (p *OpenAIProvider) Validate() error {
	if p.client == nil {
		return &MisconfiguredError{Message: "Missing OPENAI_API_KEY on server"}
	}
	return nil
}

func (p *OpenAIProvider) StreamCompletion(ctx context.Context, conv models.Conversation) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if err := p.Validate(); err != nil {
			yield("", err)
			return
		}

		req := openai.ChatCompletionRequest{
			Model:       p.model,
			Temperature: p.temperature,
			Messages:    p.buildMessages(conv),
			Stream:      true,
		}

		stream, err := p.client.CreateChatCompletionStream(ctx, req)
		if err != nil {
			yield("", &UpstreamError{Provider: p.id, Err: err})
			return
		}
		defer stream.Close()

		for {
			response, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield("", &UpstreamError{Provider: p.id, Err: err})
				return
			}

			if len(response.Choices) == 0 {
				continue
			}
			delta := response.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			if !yield(delta, nil) {
				return
			}
		}
	}
}

// buildMessages puts the persona first. Caller system messages follow it
// and cannot replace it.
func (p *OpenAIProvider) buildMessages(conv models.Conversation) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(conv)+1)
	if p.persona != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: p.persona,
		})
	}
	for _, m := range conv {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	return messages
}
