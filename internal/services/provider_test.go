package services

import (
	"context"
	"errors"
	"iter"
	"testing"
	"time"

	"notra-backend/internal/config"
	"notra-backend/internal/models"
)

type fakeProvider struct{ id ProviderID }

func (f fakeProvider) ID() ProviderID                     { return f.id }
func (f fakeProvider) UpstreamModel() string              { return "fake-" + string(f.id) }
func (f fakeProvider) SupportsIncrementalStreaming() bool { return true }
func (f fakeProvider) Validate() error                    { return nil }
func (f fakeProvider) StreamCompletion(ctx context.Context, conv models.Conversation) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {}
}

func TestParseProviderID(t *testing.T) {
	for _, id := range ProviderIDs {
		got, err := ParseProviderID(string(id))
		if err != nil || got != id {
			t.Errorf("ParseProviderID(%q) = %q, %v", id, got, err)
		}
	}

	_, err := ParseProviderID("gpt-5-ultra")
	var unknown *UnknownProviderError
	if !errors.As(err, &unknown) || unknown.ID != "gpt-5-ultra" {
		t.Fatalf("expected UnknownProviderError naming the id, got %v", err)
	}
}

func TestRegistry_Resolve(t *testing.T) {
	reg, err := NewRegistryWith(OpenAIStrong, fakeProvider{OpenAIFast}, fakeProvider{OpenAIStrong})
	if err != nil {
		t.Fatalf("NewRegistryWith: %v", err)
	}

	p, err := reg.Resolve("")
	if err != nil || p.ID() != OpenAIStrong {
		t.Fatalf("expected default provider for empty id, got %v, %v", p, err)
	}

	p, err = reg.Resolve("openai-fast")
	if err != nil || p.ID() != OpenAIFast {
		t.Fatalf("expected openai-fast, got %v, %v", p, err)
	}

	_, err = reg.Resolve("generative-alt")
	var unknown *UnknownProviderError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownProviderError for unregistered id, got %v", err)
	}

	list := reg.List()
	if len(list) != 2 || list[0].ID() != OpenAIFast || list[1].ID() != OpenAIStrong {
		t.Fatalf("unexpected list order: %v", list)
	}
}

func TestNewRegistryWith_Errors(t *testing.T) {
	if _, err := NewRegistryWith(OpenAIFast, fakeProvider{OpenAIFast}, fakeProvider{OpenAIFast}); err == nil {
		t.Errorf("expected error for duplicate provider")
	}
	if _, err := NewRegistryWith(GenerativeAlt, fakeProvider{OpenAIFast}); err == nil {
		t.Errorf("expected error for unregistered default")
	}
}

func TestNewRegistry_FromConfig(t *testing.T) {
	cfg := &config.Config{
		OpenAI: config.OpenAI{
			APIKey:      "sk-test",
			BaseURL:     "http://127.0.0.1:1/v1",
			FastModel:   "gpt-4o-mini",
			StrongModel: "gpt-4o",
		},
		Gemini:          config.Gemini{Model: "gemini-2.5-pro"},
		DefaultProvider: "openai-fast",
		UpstreamTimeout: time.Minute,
	}

	reg, err := NewRegistry(cfg)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	defer reg.Close()

	want := map[ProviderID]string{
		OpenAIFast:    "gpt-4o-mini",
		OpenAIStrong:  "gpt-4o",
		GenerativeAlt: "gemini-2.5-pro",
	}
	for id, model := range want {
		p, err := reg.Resolve(string(id))
		if err != nil {
			t.Fatalf("Resolve(%s): %v", id, err)
		}
		if p.UpstreamModel() != model {
			t.Errorf("%s: expected model %s, got %s", id, model, p.UpstreamModel())
		}
	}

	if reg.Default().ID() != OpenAIFast {
		t.Errorf("expected openai-fast default, got %s", reg.Default().ID())
	}

	gen, _ := reg.Resolve(string(GenerativeAlt))
	var misconfigured *MisconfiguredError
	if !errors.As(gen.Validate(), &misconfigured) {
		t.Errorf("expected generative-alt to be misconfigured without GEMINI_API_KEY")
	}
	fast, _ := reg.Resolve(string(OpenAIFast))
	if err := fast.Validate(); err != nil {
		t.Errorf("expected openai-fast to be configured, got %v", err)
	}
}

func TestNewRegistry_InvalidDefault(t *testing.T) {
	cfg := &config.Config{DefaultProvider: "claude"}
	if _, err := NewRegistry(cfg); err == nil {
		t.Fatalf("expected error for unknown default provider")
	}
}
