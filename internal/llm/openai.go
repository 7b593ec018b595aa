package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ledgerline/ledgerline/internal/common"
)

const systemPrompt = "You are a bookkeeping transaction categorizer. " +
	"Respond only with JSON in the exact format requested."

// openAIClient implements the Client interface using the OpenAI API.
type openAIClient struct {
	api       *openai.Client
	model     string
	maxTokens int
	timeout   time.Duration
}

func newOpenAIClient(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: %w: api key", common.ErrMissingConfig)
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 300
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &openAIClient{
		api:       openai.NewClientWithConfig(clientCfg),
		model:     model,
		maxTokens: maxTokens,
		timeout:   timeout,
	}, nil
}

// Classify sends a categorization prompt and parses the structured response.
func (c *openAIClient) Classify(ctx context.Context, prompt string, temperature float64) (Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: float32(temperature),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return Response{}, classifyError(err)
	}

	if len(resp.Choices) == 0 {
		return Response{}, fmt.Errorf("%w: no choices in completion", common.ErrMalformedResponse)
	}

	return ParseResponse(resp.Choices[0].Message.Content)
}

// classifyError maps provider errors onto the retry taxonomy.
func classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", common.ErrRateLimit, err)
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
			return &common.RetryableError{Err: err, Retryable: false}
		}
	}
	// Server-side and transport failures mean the model is unavailable
	// right now, which is worth retrying.
	return &common.RetryableError{
		Err:       fmt.Errorf("%w: %v", common.ErrModelUnavailable, err),
		Retryable: true,
	}
}
