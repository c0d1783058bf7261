package stt

import (
	"context"
	"errors"
	"fmt"

	"github.com/nfrund/tafep-voice/internal/hume"
)

// emotionAnalyzer is satisfied by *hume.Client.
type emotionAnalyzer interface {
	Analyze(ctx context.Context, wav []byte) (*hume.Result, error)
}

// Hume transcribes through the EVI socket and returns prosody scores.
type Hume struct {
	client emotionAnalyzer
}

// NewHume wraps a Hume EVI client.
func NewHume(client emotionAnalyzer) *Hume {
	return &Hume{client: client}
}

func (h *Hume) Name() string { return "hume" }

func (h *Hume) Transcribe(ctx context.Context, rec Recording) (*Utterance, error) {
	res, err := h.client.Analyze(ctx, rec.Data)
	switch {
	case errors.Is(err, hume.ErrNoSpeech):
		return nil, fmt.Errorf("%w: %w", ErrNoSpeech, err)
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	return newUtterance(res.Transcript, res.Emotions)
}
