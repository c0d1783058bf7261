package websocket

import (
	"time"

	"github.com/nfrund/tafep-voice/internal/pubsub"
)

// ClientMessage is a whitelisted frame received from a browser.
type ClientMessage struct {
	Action     string    `json:"action"`
	Text       string    `json:"text,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

// Connected announces a new browser connection.
type Connected struct {
	ConversationID string    `json:"conversation_id"`
	ConnectedAt    time.Time `json:"connected_at"`
}

var (
	ClientMessageEvent = pubsub.NewEvent[ClientMessage](
		"client.chat.message.new",
		"A browser sent a whitelisted frame over the chat websocket")
	ConnectedEvent = pubsub.NewEvent[Connected](
		"system.websocket.connected",
		"A browser opened the chat websocket")
)
