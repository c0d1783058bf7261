package tts

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Sink receives the speaker's output for one conversation.
type Sink interface {
	SpeakingChanged(ctx context.Context, conversationID string, speaking bool)
	Spoken(ctx context.Context, conversationID string, audio *Audio)
}

type utterance struct {
	conversationID string
	text           string
}

// Speaker synthesizes utterances one at a time in the order they were queued.
type Speaker struct {
	synth   Synthesizer
	sink    Sink
	timeout time.Duration

	mu     sync.Mutex
	closed bool
	queue  chan utterance
	done   chan struct{}
}

// NewSpeaker creates a speaker whose queue holds size pending utterances.
func NewSpeaker(synth Synthesizer, sink Sink, size int) *Speaker {
	if size <= 0 {
		size = 1
	}
	return &Speaker{
		synth:   synth,
		sink:    sink,
		timeout: 30 * time.Second,
		queue:   make(chan utterance, size),
		done:    make(chan struct{}),
	}
}

// Enqueue adds an utterance. It reports false when the text is empty, the
// queue is full or the speaker is closed.
func (s *Speaker) Enqueue(conversationID, text string) bool {
	if _, err := checkText(text); err != nil {
		slog.Error("Empty or invalid input for text-to-speech", "conversation_id", conversationID)
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.queue <- utterance{conversationID: conversationID, text: text}:
		return true
	default:
		slog.Warn("Speech queue full, dropping utterance", "conversation_id", conversationID, "queued", len(s.queue))
		return false
	}
}

// Run processes the queue until Close is called and the queue is drained, or
// ctx ends.
func (s *Speaker) Run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-s.queue:
			if !ok {
				return
			}
			s.speak(ctx, u)
		}
	}
}

func (s *Speaker) speak(ctx context.Context, u utterance) {
	s.sink.SpeakingChanged(ctx, u.conversationID, true)
	defer s.sink.SpeakingChanged(ctx, u.conversationID, false)

	sctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	audio, err := s.synth.Synthesize(sctx, u.text)
	if err != nil {
		slog.Error("TTS error", "provider", s.synth.Name(), "conversation_id", u.conversationID, "error", err)
		return
	}
	slog.Debug("Synthesized speech",
		"provider", s.synth.Name(),
		"conversation_id", u.conversationID,
		"bytes", len(audio.Data),
		"duration_ms", time.Since(start).Milliseconds())
	s.sink.Spoken(ctx, u.conversationID, audio)
}

// Close stops accepting work and waits for queued utterances to finish or
// for ctx to end.
func (s *Speaker) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
