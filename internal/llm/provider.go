// Package llm wraps the hosted language models behind one small interface.
package llm

//go:generate mockgen -source=provider.go -destination=llmmock/provider.go -package=llmmock

import (
	"context"
	"errors"
)

// DefaultSystemPrompt frames every generation.
const DefaultSystemPrompt = "You are a professional TAFEP advisor speaking directly to users via voice chat. Use concise, clear language and show empathy."

var (
	ErrUpstream      = errors.New("llm: provider request failed")
	ErrEmptyResponse = errors.New("llm: provider returned no text")
)

// Flavor selects the prompt dialect a provider follows best.
type Flavor int

const (
	// FlavorPlain is a plain instruction prompt.
	FlavorPlain Flavor = iota
	// FlavorXML wraps prompt sections in XML tags.
	FlavorXML
)

// Provider generates a single completion.
type Provider interface {
	Name() string
	Flavor() Flavor
	Generate(ctx context.Context, system, prompt string) (string, error)
}
