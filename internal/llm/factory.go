package llm

import (
	"context"
	"fmt"

	"github.com/nfrund/tafep-voice/internal/config"
	"github.com/nfrund/tafep-voice/internal/retry"
)

// New builds the provider selected by AI_MODEL, wrapped in retries.
func New(ctx context.Context, cfg *config.Config) (Provider, error) {
	var p Provider
	switch cfg.AIModel {
	case config.ModelAnthropic:
		p = NewAnthropic(cfg.AnthropicAPIKey, cfg.ModelVersion())
	case config.ModelOpenAI:
		p = NewOpenAI(cfg.OpenAIAPIKey, cfg.ModelVersion(), "")
	case config.ModelGemini:
		g, err := NewGemini(ctx, cfg.GeminiAPIKey, cfg.ModelVersion())
		if err != nil {
			return nil, err
		}
		p = g
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", cfg.AIModel)
	}
	return WithRetry(p, retry.New()), nil
}
