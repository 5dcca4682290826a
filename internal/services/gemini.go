package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"log"
	"net/http"
	"strings"

	"notra-backend/internal/config"
	"notra-backend/internal/models"
)

// Wire types for the generateContent REST endpoint.
type generateContentRequest struct {
	SystemInstruction *geminiContent   `json:"systemInstruction,omitempty"`
	Contents          []geminiContent  `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text    string `json:"text,omitempty"`
	Thought bool   `json:"thought,omitempty"`
}

type generationConfig struct {
	ThinkingConfig *thinkingConfig `json:"thinkingConfig,omitempty"`
}

type thinkingConfig struct {
	ThinkingBudget  *int `json:"thinkingBudget,omitempty"`
	IncludeThoughts bool `json:"includeThoughts,omitempty"`
}

type generateContentResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiCandidate struct {
	Content      *geminiContent `json:"content"`
	FinishReason string         `json:"finishReason"`
}

type geminiErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// GenerativeProvider calls the generative-content API once per request and
// emits the whole answer as a single fragment.
type GenerativeProvider struct {
	apiKey         string
	baseURL        string
	model          string
	persona        string
	thinkingBudget int
	client         *http.Client
}

func NewGenerativeProvider(cfg config.Gemini, persona string) *GenerativeProvider {
	return &GenerativeProvider{
		apiKey:         cfg.APIKey,
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		model:          cfg.Model,
		persona:        persona,
		thinkingBudget: cfg.ThinkingBudget,
		client:         &http.Client{},
	}
}

func (p *GenerativeProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

func (p *GenerativeProvider) ID() ProviderID                     { return GenerativeAlt }
func (p *GenerativeProvider) UpstreamModel() string              { return p.model }
func (p *GenerativeProvider) SupportsIncrementalStreaming() bool { return false }

func (p *GenerativeProvider) Validate() error {
	if p.apiKey == "" {
		return &MisconfiguredError{Message: "Missing GEMINI_API_KEY on server"}
	}
	return nil
}

func (p *GenerativeProvider) StreamCompletion(ctx context.Context, conv models.Conversation) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if err := p.Validate(); err != nil {
			yield("", err)
			return
		}

		resp, err := p.generateContent(ctx, p.buildRequest(conv))
		if err != nil {
			yield("", &UpstreamError{Provider: GenerativeAlt, Err: err})
			return
		}

		for i, cand := range resp.Candidates {
			if cand.FinishReason != "" && cand.FinishReason != "STOP" {
				log.Printf("WARNING: Gemini candidate %d stopped due to %s", i, cand.FinishReason)
			}
		}

		if text := extractText(resp); text != "" {
			yield(text, nil)
		}
	}
}

// buildRequest sends the persona as the system instruction and the
// conversation as one flattened user turn.
func (p *GenerativeProvider) buildRequest(conv models.Conversation) generateContentRequest {
	req := generateContentRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: flattenConversation(conv)}},
		}},
	}
	if p.persona != "" {
		req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: p.persona}}}
	}
	budget := p.thinkingBudget
	req.GenerationConfig.ThinkingConfig = &thinkingConfig{ThinkingBudget: &budget}
	return req
}

func (p *GenerativeProvider) generateContent(ctx context.Context, body generateContentRequest) (*generateContentResponse, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", p.baseURL, p.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr geminiErrorBody
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("status %d (%s): %s", resp.StatusCode, apiErr.Error.Status, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out generateContentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

// flattenConversation renders the conversation as "Role: content" lines.
func flattenConversation(conv models.Conversation) string {
	lines := make([]string, 0, len(conv))
	for _, m := range conv {
		lines = append(lines, roleLabel(m.Role)+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}

func roleLabel(r models.Role) string {
	switch r {
	case models.RoleUser:
		return "User"
	case models.RoleAssistant:
		return "Assistant"
	case models.RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// extractText joins the answer text of every candidate. Thought summaries
// are skipped.
func extractText(resp *generateContentResponse) string {
	if resp == nil {
		return ""
	}
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if !part.Thought {
				text.WriteString(part.Text)
			}
		}
	}
	return text.String()
}
