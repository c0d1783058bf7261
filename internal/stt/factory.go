package stt

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/nfrund/tafep-voice/internal/config"
	"github.com/nfrund/tafep-voice/internal/hume"
)

// New builds the transcriber selected by STT_PROVIDER. recorder may be nil.
func New(ctx context.Context, cfg *config.Config, recorder hume.FrameRecorder) (Transcriber, error) {
	switch cfg.STTProvider {
	case config.STTHume:
		auth := hume.NewAuthenticator(cfg.HumeAPIKey, cfg.HumeSecretKey, cfg.HumeTokenURL(),
			&http.Client{Timeout: 15 * time.Second})
		opts := []hume.Option{hume.WithMessageTimeout(cfg.HumeMessageTimeout)}
		if recorder != nil {
			opts = append(opts, hume.WithRecorder(recorder))
		}
		return NewHume(hume.NewClient(auth, cfg.HumeWebSocketURL, opts...)), nil
	case config.STTGoogle:
		return NewGoogle(ctx, cfg.GoogleCredentials)
	default:
		return nil, fmt.Errorf("unsupported STT provider: %s", cfg.STTProvider)
	}
}
