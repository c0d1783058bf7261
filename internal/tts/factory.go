package tts

import (
	"context"
	"fmt"

	"github.com/nfrund/tafep-voice/internal/config"
)

// New builds the synthesizer selected by TTS_PROVIDER.
func New(ctx context.Context, cfg *config.Config) (Synthesizer, error) {
	switch cfg.TTSProvider {
	case config.TTSElevenLabs:
		return NewElevenLabs(cfg.ElevenLabsAPIKey, cfg.ElevenLabsVoiceID, cfg.TTSModel), nil
	case config.TTSWaveNet:
		return NewWaveNet(ctx, cfg.GoogleCredentials, cfg.TTSVoice)
	default:
		return nil, fmt.Errorf("unsupported TTS provider: %s", cfg.TTSProvider)
	}
}
