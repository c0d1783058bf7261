// Package conversation drives the advisory dialogue: it classifies each user
// turn, generates the reply for the chosen step and files the case.
package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nfrund/tafep-voice/internal/domain"
	"github.com/nfrund/tafep-voice/internal/llm"
	"github.com/nfrund/tafep-voice/internal/prompts"
)

// Analyzer picks the next action and turns emotions into tone guidance.
type Analyzer struct {
	llm        llm.Provider
	prompts    *prompts.Registry
	probeLimit int
}

// NewAnalyzer creates an analyzer backed by provider.
func NewAnalyzer(provider llm.Provider, reg *prompts.Registry, probeLimit int) *Analyzer {
	return &Analyzer{llm: provider, prompts: reg, probeLimit: probeLimit}
}

// Classify asks the model for the next action. An answer that names no known
// action falls back to the rule the model is told to follow.
func (a *Analyzer) Classify(ctx context.Context, input, history string, state domain.ConversationState) (domain.Action, error) {
	name := prompts.Classify
	if a.llm.Flavor() == llm.FlavorXML {
		name = prompts.ClassifyXML
	}
	prompt, err := a.prompts.Render(name, prompts.Data{
		Input:      input,
		History:    history,
		State:      state,
		ProbeLimit: a.probeLimit,
	})
	if err != nil {
		return "", err
	}

	answer, err := a.llm.Generate(ctx, llm.DefaultSystemPrompt, prompt)
	if err != nil {
		return "", fmt.Errorf("classify: %w", err)
	}

	action, ok := domain.ParseAction(answer)
	if !ok {
		action = state.NextAction()
		slog.WarnContext(ctx, "Unrecognized category from model, using state rule",
			"answer", answer, "fallback", action)
	}
	return action, nil
}

// Tone suggests a short tone adjustment for the detected emotions. It returns
// an empty string when there are no emotions or the model fails.
func (a *Analyzer) Tone(ctx context.Context, emotions []domain.EmotionScore) string {
	if len(emotions) == 0 {
		return ""
	}
	prompt, err := a.prompts.Render(prompts.Tone, prompts.Data{Emotions: emotions})
	if err != nil {
		slog.ErrorContext(ctx, "Failed to render tone prompt", "error", err)
		return ""
	}
	out, err := a.llm.Generate(ctx, llm.DefaultSystemPrompt, prompt)
	if err != nil {
		slog.WarnContext(ctx, "Error analyzing emotions", "error", err)
		return ""
	}
	return strings.Trim(strings.TrimSpace(out), `"`)
}
