package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type OpenAI struct {
	APIKey      string  `env:"OPENAI_API_KEY"`
	BaseURL     string  `env:"OPENAI_BASE_URL" env-default:"https://api.openai.com/v1"`
	FastModel   string  `env:"OPENAI_FAST_MODEL" env-default:"gpt-4o-mini"`
	StrongModel string  `env:"OPENAI_STRONG_MODEL" env-default:"gpt-4o"`
	Temperature float32 `env:"OPENAI_TEMPERATURE" env-default:"0.9"`
}

type Gemini struct {
	APIKey  string `env:"GEMINI_API_KEY"`
	BaseURL string `env:"GEMINI_BASE_URL" env-default:"https://generativelanguage.googleapis.com/v1beta"`
	Model   string `env:"GEMINI_MODEL" env-default:"gemini-2.5-pro"`

	// ThinkingBudget is sent as generationConfig.thinkingConfig.thinkingBudget.
	// 32768 is the ceiling for gemini-2.5-pro.
	ThinkingBudget int `env:"GEMINI_THINKING_BUDGET" env-default:"32768"`
}

type Config struct {
	// Server
	Port        string `env:"PORT" env-default:"8080"`
	Env         string `env:"ENV" env-default:"development"`
	FrontendURL string `env:"FRONTEND_URL" env-default:"*"`

	// Providers
	OpenAI          OpenAI
	Gemini          Gemini
	DefaultProvider string `env:"DEFAULT_PROVIDER" env-default:"openai-fast"`
	SystemPrompt    string `env:"SYSTEM_PROMPT"`

	// Timeouts
	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT" env-default:"2m"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"30s"`
}

// Load reads an optional .env file and then the process environment.
// Provider credentials are optional here; a missing key only disables
// the providers that need it.
func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT must not be empty")
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be positive, got %s", c.UpstreamTimeout)
	}
	if c.Gemini.ThinkingBudget == 0 || c.Gemini.ThinkingBudget < -1 {
		return fmt.Errorf("GEMINI_THINKING_BUDGET must be positive or -1 (dynamic), got %d", c.Gemini.ThinkingBudget)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive, got %s", c.ShutdownTimeout)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
