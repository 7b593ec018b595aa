// Package llm provides the generative-model collaborator used as the Pass-2
// categorization fallback. The engine depends only on the Client interface,
// never a concrete provider.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Client defines the interface for generative-model providers. The model is
// a black box: prompt in, structured category response out.
type Client interface {
	Classify(ctx context.Context, prompt string, temperature float64) (Response, error)
}

// Response contains the model's categorization result.
type Response struct {
	Category   string
	Rationale  string
	Attributes map[string]string
	Confidence float64
}

// Config holds LLM provider configuration.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// NewClient creates a model client based on the provided configuration.
func NewClient(cfg Config) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "openai":
		return newOpenAIClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
