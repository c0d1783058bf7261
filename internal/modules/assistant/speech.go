package assistant

import (
	"context"
	"log/slog"

	"github.com/nfrund/tafep-voice/internal/pubsub"
	"github.com/nfrund/tafep-voice/internal/tts"
)

// SpeechEvents publishes the speaker's output on the bus.
type SpeechEvents struct {
	publisher pubsub.Publisher
}

func NewSpeechEvents(pub pubsub.Publisher) *SpeechEvents {
	return &SpeechEvents{publisher: pub}
}

var _ tts.Sink = (*SpeechEvents)(nil)

func (e *SpeechEvents) SpeakingChanged(ctx context.Context, conversationID string, speaking bool) {
	if err := pubsub.Publish(ctx, e.publisher, SpeakingChangedEvent, conversationID, SpeakingChanged{Speaking: speaking}); err != nil {
		slog.ErrorContext(ctx, "Failed to publish speaking state", "conversation_id", conversationID, "error", err)
	}
}

func (e *SpeechEvents) Spoken(ctx context.Context, conversationID string, audio *tts.Audio) {
	payload := AudioReady{MIMEType: audio.MIMEType, Data: audio.Data}
	if err := pubsub.Publish(ctx, e.publisher, AudioReadyEvent, conversationID, payload); err != nil {
		slog.ErrorContext(ctx, "Failed to publish synthesized audio", "conversation_id", conversationID, "error", err)
	}
}
