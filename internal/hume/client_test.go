package hume

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (s staticToken) Token(context.Context) (string, error) { return string(s), nil }

type recordedFrames struct {
	mu    sync.Mutex
	types []string
}

func (r *recordedFrames) RecordFrame(_ context.Context, frameType string, _ []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, frameType)
}

// eviServer upgrades the connection, checks the audio frame and replays frames.
func eviServer(t *testing.T, wantAudio []byte, frames []string, hold time.Duration) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok-1", r.URL.Query().Get("access_token"))

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var in audioInput
		if err := conn.ReadJSON(&in); err != nil {
			return
		}
		assert.Equal(t, TypeAudioInput, in.Type)
		got, err := base64.StdEncoding.DecodeString(in.Data)
		assert.NoError(t, err)
		assert.Equal(t, wantAudio, got)

		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		time.Sleep(hold)
	}))
}

func clientFor(srv *httptest.Server, opts ...Option) *Client {
	base := "ws" + strings.TrimPrefix(srv.URL, "http")
	return NewClient(staticToken("tok-1"), func(token string) string {
		return base + "/v0/evi/chat?access_token=" + token
	}, opts...)
}

const userMessage = `{"type":"user_message","message":{"role":"user","content":"My manager keeps ignoring me"},
"models":{"prosody":{"scores":{"Anger":0.41,"Sadness":0.62,"Calmness":0.05,"Distress":0.33}}}}`

func TestAnalyze_TranscriptAndEmotions(t *testing.T) {
	audio := []byte("RIFF....WAVE")
	srv := eviServer(t, audio, []string{
		`{"type":"chat_metadata","chat_id":"abc"}`,
		`{"type":"transcription","text":"my manager keeps ignoring me"}`,
		userMessage,
		`{"type":"assistant_message","message":{"content":"ignored"}}`,
	}, 500*time.Millisecond)
	defer srv.Close()

	rec := &recordedFrames{}
	res, err := clientFor(srv, WithRecorder(rec)).Analyze(context.Background(), audio)
	require.NoError(t, err)

	assert.Equal(t, "My manager keeps ignoring me", res.Transcript)
	require.Len(t, res.Emotions, 3)
	assert.Equal(t, "Sadness", res.Emotions[0].Name)
	assert.Equal(t, "Anger", res.Emotions[1].Name)
	assert.Equal(t, "Distress", res.Emotions[2].Name)
	assert.Equal(t, 3, res.Frames, "stops reading once both parts are known")
	assert.Equal(t, []string{"chat_metadata", "transcription", "user_message"}, rec.types)
}

func TestAnalyze_TimeoutReturnsPartial(t *testing.T) {
	audio := []byte("wav")
	srv := eviServer(t, audio, []string{
		`{"type":"transcription","text":"hello there"}`,
	}, time.Second)
	defer srv.Close()

	res, err := clientFor(srv, WithMessageTimeout(100*time.Millisecond)).Analyze(context.Background(), audio)
	require.NoError(t, err)
	assert.Equal(t, "hello there", res.Transcript)
	assert.Empty(t, res.Emotions)
}

func TestAnalyze_NoSpeech(t *testing.T) {
	audio := []byte("wav")
	srv := eviServer(t, audio, nil, time.Second)
	defer srv.Close()

	_, err := clientFor(srv, WithMessageTimeout(100*time.Millisecond)).Analyze(context.Background(), audio)
	assert.ErrorIs(t, err, ErrNoSpeech)
}

func TestAnalyze_ErrorFrame(t *testing.T) {
	audio := []byte("wav")
	srv := eviServer(t, audio, []string{
		`{"type":"error","code":"E0101","slug":"invalid_audio","message":"audio could not be decoded"}`,
	}, time.Second)
	defer srv.Close()

	_, err := clientFor(srv).Analyze(context.Background(), audio)
	require.ErrorIs(t, err, ErrUpstream)
	assert.Contains(t, err.Error(), "audio could not be decoded")
}

func TestAnalyze_DialFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := clientFor(srv).Analyze(context.Background(), []byte("wav"))
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestAuthenticator(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "key", user)
		assert.Equal(t, "secret", pass)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-1",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
	defer srv.Close()

	auth := NewAuthenticator("key", "secret", srv.URL, srv.Client())
	tok, err := auth.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)

	_, err = auth.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "token is cached until expiry")
}

func TestAuthenticator_MissingAccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"token_type":"Bearer"}`))
	}))
	defer srv.Close()

	_, err := NewAuthenticator("key", "secret", srv.URL, srv.Client()).Token(context.Background())
	assert.ErrorIs(t, err, ErrAuth)
}

func TestAuthenticator_HonorsContext(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	auth := NewAuthenticator("key", "secret", srv.URL, srv.Client())

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := auth.Token(cancelled)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls.Load(), "no request once the caller is gone")

	ctx, done := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer done()
	start := time.Now()
	_, err = auth.Token(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}
