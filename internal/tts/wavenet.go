package tts

import (
	"context"
	"fmt"
	"html"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"google.golang.org/api/option"
)

type synthesizeFunc func(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest) (*texttospeechpb.SynthesizeSpeechResponse, error)

// WaveNet calls Google Cloud Text-to-Speech with a WaveNet voice.
type WaveNet struct {
	synthesize synthesizeFunc
	close      func() error
	voice      string
	pitch      string
	rate       string
}

// NewWaveNet connects with the given service account file. An empty path
// uses application default credentials.
func NewWaveNet(ctx context.Context, credentialsFile, voice string) (*WaveNet, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := texttospeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create text-to-speech client: %w", err)
	}
	return &WaveNet{
		synthesize: func(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest) (*texttospeechpb.SynthesizeSpeechResponse, error) {
			return client.SynthesizeSpeech(ctx, req)
		},
		close: client.Close,
		voice: voice,
		pitch: "-10%",
		rate:  "medium",
	}, nil
}

func (w *WaveNet) Name() string { return "wavenet" }

func (w *WaveNet) Close() error {
	if w.close == nil {
		return nil
	}
	return w.close()
}

// SSML wraps text in a prosody element. The text is XML escaped.
func SSML(text, pitch, rate string) string {
	return fmt.Sprintf(`<speak><prosody pitch="%s" rate="%s">%s</prosody></speak>`,
		html.EscapeString(pitch), html.EscapeString(rate), html.EscapeString(text))
}

func (w *WaveNet) Synthesize(ctx context.Context, text string) (*Audio, error) {
	text, err := checkText(text)
	if err != nil {
		return nil, err
	}

	resp, err := w.synthesize(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Ssml{Ssml: SSML(text, w.pitch, w.rate)},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: "en-US",
			Name:         w.voice,
			SsmlGender:   texttospeechpb.SsmlVoiceGender_FEMALE,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_LINEAR16,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: wavenet: %w", ErrUpstream, err)
	}
	if len(resp.GetAudioContent()) == 0 {
		return nil, fmt.Errorf("%w: wavenet returned no audio", ErrUpstream)
	}
	return &Audio{Data: resp.GetAudioContent(), MIMEType: MIMEWAV}, nil
}
