package assistant

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nfrund/tafep-voice/internal/audio"
	"github.com/nfrund/tafep-voice/internal/debugstore"
	"github.com/nfrund/tafep-voice/internal/domain"
	"github.com/nfrund/tafep-voice/internal/pubsub"
	"github.com/nfrund/tafep-voice/internal/websocket"
)

type prepareFunc func(data []byte, mimeType string) (*audio.Prepared, error)

func (f prepareFunc) Prepare(data []byte, mimeType string) (*audio.Prepared, error) {
	return f(data, mimeType)
}

// passthrough accepts anything as 16 kHz audio.
var passthrough = prepareFunc(func(data []byte, mimeType string) (*audio.Prepared, error) {
	return &audio.Prepared{Data: data, MIMEType: mimeType, SampleRate: 16000, Duration: time.Second}, nil
})

type respondFunc func(ctx context.Context, conv *domain.Conversation, input string, emotions []domain.EmotionScore) (string, error)

func (f respondFunc) Respond(ctx context.Context, conv *domain.Conversation, input string, emotions []domain.EmotionScore) (string, error) {
	return f(ctx, conv, input, emotions)
}

func echoReply(prefix string) respondFunc {
	return func(_ context.Context, conv *domain.Conversation, input string, _ []domain.EmotionScore) (string, error) {
		conv.State.IssueEstablished = true
		return prefix + input, nil
	}
}

// recordingBus keeps every published message.
type recordingBus struct {
	mu   sync.Mutex
	msgs []pubsub.Message
}

func (b *recordingBus) Publish(_ context.Context, msg pubsub.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = append(b.msgs, msg)
	return nil
}

func (b *recordingBus) Close() error { return nil }

func (b *recordingBus) topics() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.msgs))
	for i, m := range b.msgs {
		out[i] = m.Topic
	}
	return out
}

func (b *recordingBus) find(t *testing.T, topic string) pubsub.Message {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, m := range b.msgs {
		if m.Topic == topic {
			return m
		}
	}
	require.Failf(t, "message not published", "topic %s", topic)
	return pubsub.Message{}
}

type spoken struct {
	conversationID string
	text           string
}

type speechRecorder struct {
	mu     sync.Mutex
	queued []spoken
}

func (s *speechRecorder) Enqueue(conversationID, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queued = append(s.queued, spoken{conversationID, text})
	return true
}

type debugRecorder struct {
	saved [][]byte
}

func (d *debugRecorder) SaveRecording(_ context.Context, data []byte, _ string, _ time.Duration) (*debugstore.Recording, error) {
	d.saved = append(d.saved, data)
	return &debugstore.Recording{Timestamp: "20240101_120000", Counter: len(d.saved), Name: "recording.wav"}, nil
}

type caseMap map[string]*domain.Case

func (m caseMap) FindByReference(_ context.Context, ref string) (*domain.Case, error) {
	if c, ok := m[ref]; ok {
		return c, nil
	}
	return nil, domain.ErrNotFound
}

// frameSink collects frames sent to browsers.
type frameSink struct {
	mu     sync.Mutex
	frames []sentFrame
	err    error
}

type sentFrame struct {
	conversationID string
	frame          *websocket.Frame
}

func (s *frameSink) Send(conversationID string, f *websocket.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.frames = append(s.frames, sentFrame{conversationID, f})
	return nil
}
