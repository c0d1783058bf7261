// Package tts turns assistant replies into speech.
package tts

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrEmptyText = errors.New("tts: empty or invalid input for text-to-speech")
	ErrUpstream  = errors.New("tts: synthesis request failed")
)

const (
	MIMEMPEG = "audio/mpeg"
	MIMEWAV  = "audio/wav"
)

// Audio is a synthesized utterance ready for the browser to play.
type Audio struct {
	Data     []byte
	MIMEType string
}

// Synthesizer converts text to audio.
type Synthesizer interface {
	Name() string
	Synthesize(ctx context.Context, text string) (*Audio, error)
}

func checkText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyText
	}
	return text, nil
}
