// Package hume talks to the Hume empathic voice interface to obtain a
// transcript and vocal emotion scores for a recorded utterance.
package hume

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nfrund/tafep-voice/internal/domain"
)

var (
	ErrAuth     = errors.New("hume: authentication failed")
	ErrUpstream = errors.New("hume: upstream error")
	ErrNoSpeech = errors.New("hume: no speech recognised")
)

// FrameRecorder receives every raw frame read from the socket.
type FrameRecorder interface {
	RecordFrame(ctx context.Context, frameType string, raw []byte)
}

// Result is what one EVI exchange produced.
type Result struct {
	Transcript string
	Emotions   []domain.EmotionScore
	Frames     int
}

// Client opens one EVI session per utterance.
type Client struct {
	tokens   TokenProvider
	url      func(token string) string
	dialer   *websocket.Dialer
	timeout  time.Duration
	recorder FrameRecorder
}

// Option customizes a Client.
type Option func(*Client)

// WithDialer replaces the default websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

// WithMessageTimeout bounds the wait for each frame.
func WithMessageTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRecorder stores raw frames, typically for debugging.
func WithRecorder(r FrameRecorder) Option {
	return func(c *Client) { c.recorder = r }
}

// NewClient creates a client. url maps an access token to the chat socket URL.
func NewClient(tokens TokenProvider, url func(token string) string, opts ...Option) *Client {
	c := &Client{
		tokens:  tokens,
		url:     url,
		dialer:  websocket.DefaultDialer,
		timeout: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Analyze sends a WAV utterance and collects the transcript and top emotions.
// It stops when both are known, when a frame does not arrive within the
// message timeout, or when ctx ends. A timeout returns what was gathered.
func (c *Client) Analyze(ctx context.Context, wav []byte) (*Result, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	conn, resp, err := c.dialer.DialContext(ctx, c.url(token), nil)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		return nil, fmt.Errorf("%w: dial failed (status %d): %v", ErrUpstream, status, err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if err := conn.WriteJSON(audioInput{Type: TypeAudioInput, Data: base64.StdEncoding.EncodeToString(wav)}); err != nil {
		return nil, fmt.Errorf("%w: failed to send audio: %v", ErrUpstream, err)
	}

	res := &Result{}
	for res.Transcript == "" || res.Emotions == nil {
		if err := conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
			return nil, err
		}
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				slog.DebugContext(ctx, "Hume response timeout, returning partial result",
					"has_transcript", res.Transcript != "", "emotions", len(res.Emotions))
				break
			}
			if res.Transcript != "" {
				break
			}
			return nil, fmt.Errorf("%w: read failed: %v", ErrUpstream, err)
		}
		res.Frames++

		env, err := decode[envelope](raw)
		if err != nil {
			slog.WarnContext(ctx, "Ignoring malformed Hume frame", "error", err)
			continue
		}
		if c.recorder != nil {
			c.recorder.RecordFrame(ctx, env.Type, raw)
		}

		if err := c.apply(res, env.Type, raw); err != nil {
			return nil, err
		}
	}

	if strings.TrimSpace(res.Transcript) == "" {
		return nil, ErrNoSpeech
	}
	return res, nil
}

func (c *Client) apply(res *Result, frameType string, raw []byte) error {
	switch frameType {
	case TypeTranscription:
		f, err := decode[transcriptionFrame](raw)
		if err == nil && f.Text != "" {
			res.Transcript = f.Text
		}
	case TypeUserMessage:
		f, err := decode[userMessageFrame](raw)
		if err != nil {
			return nil
		}
		if f.Message.Content != "" {
			res.Transcript = f.Message.Content
		}
		if f.Models.Prosody != nil {
			res.Emotions = domain.TopEmotions(f.Models.Prosody.Scores, domain.MaxEmotions)
			if res.Emotions == nil {
				res.Emotions = []domain.EmotionScore{}
			}
		}
	case TypeError:
		f, _ := decode[errorFrame](raw)
		return fmt.Errorf("%w: %s %s", ErrUpstream, f.Code, f.Message)
	}
	return nil
}
