package assistant

import (
	"github.com/nfrund/tafep-voice/internal/domain"
	"github.com/nfrund/tafep-voice/internal/pubsub"
)

// MessageAppended carries a chat bubble to render.
type MessageAppended struct {
	Message domain.Message `json:"message"`
}

// SpeakingChanged toggles the browser's speaking indicator.
type SpeakingChanged struct {
	Speaking bool `json:"speaking"`
}

// AudioReady carries synthesized speech for playback.
type AudioReady struct {
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

// TurnFailed is shown to the user in the error banner.
type TurnFailed struct {
	Message string `json:"message"`
}

// ChatCleared tells the browser to drop the rendered history.
type ChatCleared struct{}

var (
	MessageAppendedEvent = pubsub.NewEvent[MessageAppended](
		"chat.message.appended",
		"A message was added to a conversation")
	ChatClearedEvent = pubsub.NewEvent[ChatCleared](
		"chat.history.cleared",
		"A conversation was reset to the greeting")
	TurnFailedEvent = pubsub.NewEvent[TurnFailed](
		"chat.turn.failed",
		"A turn could not be completed")
	SpeakingChangedEvent = pubsub.NewEvent[SpeakingChanged](
		"voice.speaking.changed",
		"Speech playback for a conversation started or stopped")
	AudioReadyEvent = pubsub.NewEvent[AudioReady](
		"voice.audio.ready",
		"Synthesized speech is ready for a conversation")
)
