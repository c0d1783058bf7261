package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/nfrund/tafep-voice/internal/retry"
)

// OpenAI calls the chat completions API.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI creates a provider. baseURL may be empty for the public API.
func NewOpenAI(apiKey, model, baseURL string) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg), model: model}
}

func (o *OpenAI) Name() string   { return "openai" }
func (o *OpenAI) Flavor() Flavor { return FlavorPlain }

func (o *OpenAI) Generate(ctx context.Context, system, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && permanentStatus(apiErr.HTTPStatusCode) {
			return "", retry.Stop(fmt.Errorf("%w: openai: %w", ErrUpstream, err))
		}
		return "", fmt.Errorf("%w: openai: %w", ErrUpstream, err)
	}
	if len(resp.Choices) == 0 {
		return "", retry.Stop(ErrEmptyResponse)
	}
	return nonEmpty(resp.Choices[0].Message.Content)
}
