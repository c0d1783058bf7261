package tts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElevenLabs_Synthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/voice-1", r.URL.Path)
		assert.Equal(t, "k-123", r.Header.Get("xi-api-key"))
		assert.Equal(t, MIMEMPEG, r.Header.Get("Accept"))

		var body elevenLabsRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "I hear you.", body.Text)
		assert.Equal(t, "eleven_multilingual_v2", body.ModelID)
		assert.Equal(t, 0.3, body.VoiceSettings.Stability)
		assert.Equal(t, 0.8, body.VoiceSettings.SimilarityBoost)
		assert.True(t, body.VoiceSettings.UseSpeakerBoost)

		w.Header().Set("Content-Type", MIMEMPEG)
		_, _ = w.Write([]byte("ID3-mp3"))
	}))
	defer srv.Close()

	e := NewElevenLabs("k-123", "voice-1", "eleven_multilingual_v2")
	e.baseURL = srv.URL + "/"

	a, err := e.Synthesize(context.Background(), "  I hear you. ")
	require.NoError(t, err)
	assert.Equal(t, []byte("ID3-mp3"), a.Data)
	assert.Equal(t, MIMEMPEG, a.MIMEType)
}

func TestElevenLabs_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"quota exceeded"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	e := NewElevenLabs("k", "v", "m")
	e.baseURL = srv.URL + "/"

	_, err := e.Synthesize(context.Background(), "hello")
	require.ErrorIs(t, err, ErrUpstream)
	assert.Contains(t, err.Error(), "quota exceeded")

	_, err = e.Synthesize(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestWaveNet_Synthesize(t *testing.T) {
	var got *texttospeechpb.SynthesizeSpeechRequest
	w := &WaveNet{
		voice: "en-US-Wavenet-D",
		pitch: "-10%",
		rate:  "medium",
		synthesize: func(_ context.Context, req *texttospeechpb.SynthesizeSpeechRequest) (*texttospeechpb.SynthesizeSpeechResponse, error) {
			got = req
			return &texttospeechpb.SynthesizeSpeechResponse{AudioContent: []byte("RIFF")}, nil
		},
	}

	a, err := w.Synthesize(context.Background(), "Tom & Jerry <said>")
	require.NoError(t, err)
	assert.Equal(t, MIMEWAV, a.MIMEType)
	assert.Equal(t, []byte("RIFF"), a.Data)

	require.NotNil(t, got)
	assert.Equal(t,
		`<speak><prosody pitch="-10%" rate="medium">Tom &amp; Jerry &lt;said&gt;</prosody></speak>`,
		got.GetInput().GetSsml())
	assert.Equal(t, "en-US-Wavenet-D", got.GetVoice().GetName())
	assert.Equal(t, texttospeechpb.SsmlVoiceGender_FEMALE, got.GetVoice().GetSsmlGender())
	assert.Equal(t, texttospeechpb.AudioEncoding_LINEAR16, got.GetAudioConfig().GetAudioEncoding())
	assert.NoError(t, w.Close())
}

func TestWaveNet_Errors(t *testing.T) {
	w := &WaveNet{synthesize: func(context.Context, *texttospeechpb.SynthesizeSpeechRequest) (*texttospeechpb.SynthesizeSpeechResponse, error) {
		return nil, errors.New("permission denied")
	}}
	_, err := w.Synthesize(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrUpstream)

	w.synthesize = func(context.Context, *texttospeechpb.SynthesizeSpeechRequest) (*texttospeechpb.SynthesizeSpeechResponse, error) {
		return &texttospeechpb.SynthesizeSpeechResponse{}, nil
	}
	_, err = w.Synthesize(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrUpstream)
}

type fakeSynth struct {
	gate chan struct{}
	fail string
}

func (f *fakeSynth) Name() string { return "fake" }

func (f *fakeSynth) Synthesize(ctx context.Context, text string) (*Audio, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if text == f.fail {
		return nil, ErrUpstream
	}
	return &Audio{Data: []byte(text), MIMEType: MIMEWAV}, nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingSink) SpeakingChanged(_ context.Context, id string, speaking bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if speaking {
		r.events = append(r.events, id+":start")
		return
	}
	r.events = append(r.events, id+":stop")
}

func (r *recordingSink) Spoken(_ context.Context, id string, a *Audio) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, id+":audio:"+string(a.Data))
}

func (r *recordingSink) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func TestSpeaker_PlaysInOrderAndDrainsOnClose(t *testing.T) {
	sink := &recordingSink{}
	sp := NewSpeaker(&fakeSynth{fail: "broken"}, sink, 4)
	go sp.Run(context.Background())

	assert.True(t, sp.Enqueue("c1", "first"))
	assert.True(t, sp.Enqueue("c1", "broken"))
	assert.True(t, sp.Enqueue("c2", "second"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, sp.Close(ctx))

	assert.Equal(t, []string{
		"c1:start", "c1:audio:first", "c1:stop",
		"c1:start", "c1:stop",
		"c2:start", "c2:audio:second", "c2:stop",
	}, sink.snapshot())

	assert.False(t, sp.Enqueue("c1", "after close"))
}

func TestSpeaker_DropsWhenFull(t *testing.T) {
	synth := &fakeSynth{gate: make(chan struct{})}
	sink := &recordingSink{}
	sp := NewSpeaker(synth, sink, 1)
	go sp.Run(context.Background())

	require.True(t, sp.Enqueue("c1", "one"))
	// Wait until the worker has taken "one" and is blocked on the gate.
	require.Eventually(t, func() bool { return len(sink.snapshot()) == 1 }, time.Second, 5*time.Millisecond)

	assert.True(t, sp.Enqueue("c1", "two"))
	assert.False(t, sp.Enqueue("c1", "three"), "queue of one is full")
	assert.False(t, sp.Enqueue("c1", ""), "empty text is rejected")

	close(synth.gate)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, sp.Close(ctx))

	assert.Equal(t, []string{
		"c1:start", "c1:audio:one", "c1:stop",
		"c1:start", "c1:audio:two", "c1:stop",
	}, sink.snapshot())
}

func TestSpeaker_CloseHonoursContext(t *testing.T) {
	synth := &fakeSynth{gate: make(chan struct{})}
	sp := NewSpeaker(synth, &recordingSink{}, 1)
	runCtx, stop := context.WithCancel(context.Background())
	defer stop()
	go sp.Run(runCtx)

	require.True(t, sp.Enqueue("c1", "stuck"))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, sp.Close(ctx), context.DeadlineExceeded)
}
