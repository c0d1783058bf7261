package stt

import (
	"context"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"

	"github.com/nfrund/tafep-voice/internal/audio"
)

type recognizeFunc func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error)

// Google transcribes with Cloud Speech-to-Text. It has no emotion output.
type Google struct {
	recognize    recognizeFunc
	languageCode string
	close        func() error
}

// NewGoogle creates a Cloud Speech client. credentialsFile may be empty to use ADC.
func NewGoogle(ctx context.Context, credentialsFile string) (*Google, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}
	return &Google{
		recognize: func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
			return client.Recognize(ctx, req)
		},
		languageCode: "en-US",
		close:        client.Close,
	}, nil
}

func (g *Google) Name() string { return "google" }

// Close releases the underlying gRPC connection.
func (g *Google) Close() error {
	if g.close == nil {
		return nil
	}
	return g.close()
}

func (g *Google) Transcribe(ctx context.Context, rec Recording) (*Utterance, error) {
	cfg, err := recognitionConfig(rec, g.languageCode)
	if err != nil {
		return nil, err
	}
	resp, err := g.recognize(ctx, &speechpb.RecognizeRequest{
		Config: cfg,
		Audio:  &speechpb.RecognitionAudio{AudioSource: &speechpb.RecognitionAudio_Content{Content: rec.Data}},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	var parts []string
	for _, result := range resp.GetResults() {
		if alts := result.GetAlternatives(); len(alts) > 0 {
			parts = append(parts, strings.TrimSpace(alts[0].GetTranscript()))
		}
	}
	return newUtterance(strings.Join(parts, " "), nil)
}

func recognitionConfig(rec Recording, lang string) (*speechpb.RecognitionConfig, error) {
	cfg := &speechpb.RecognitionConfig{
		LanguageCode:               lang,
		EnableAutomaticPunctuation: true,
	}
	switch rec.MIMEType {
	case audio.MIMEWAV:
		cfg.Encoding = speechpb.RecognitionConfig_LINEAR16
		cfg.SampleRateHertz = int32(rec.SampleRate)
	case audio.MIMEWebM:
		cfg.Encoding = speechpb.RecognitionConfig_WEBM_OPUS
		cfg.SampleRateHertz = 48000
	case audio.MIMEOgg:
		cfg.Encoding = speechpb.RecognitionConfig_OGG_OPUS
		cfg.SampleRateHertz = 48000
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, rec.MIMEType)
	}
	return cfg, nil
}
