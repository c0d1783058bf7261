// Package stt turns recorded utterances into text, with vocal emotion
// scores when the provider supports them.
package stt

//go:generate mockgen -source=stt.go -destination=sttmock/transcriber.go -package=sttmock

import (
	"context"
	"errors"
	"strings"

	"github.com/abadojack/whatlanggo"

	"github.com/nfrund/tafep-voice/internal/domain"
)

var (
	ErrNoSpeech          = errors.New("stt: no speech recognised")
	ErrUpstream          = errors.New("stt: provider error")
	ErrUnsupportedFormat = errors.New("stt: unsupported audio format")
)

// Recording is prepared audio ready for transcription.
type Recording struct {
	Data       []byte
	MIMEType   string
	SampleRate int
}

// Utterance is what the user said and how they sounded.
type Utterance struct {
	Text     string                `json:"text"`
	Emotions []domain.EmotionScore `json:"emotions,omitempty"`
	Language string                `json:"language,omitempty"`
}

// Transcriber is implemented by every speech-to-text backend.
type Transcriber interface {
	Name() string
	Transcribe(ctx context.Context, rec Recording) (*Utterance, error)
}

func newUtterance(text string, emotions []domain.EmotionScore) (*Utterance, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrNoSpeech
	}
	return &Utterance{Text: text, Emotions: emotions, Language: DetectLanguage(text)}, nil
}

// DetectLanguage returns the ISO 639-1 code of text, or "" when unsure.
func DetectLanguage(text string) string {
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.Iso6391()
}
