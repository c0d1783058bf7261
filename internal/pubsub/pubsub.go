// Package pubsub is the in-process message bus between the assistant
// service, the speech worker and the websocket bridge.
package pubsub

import "context"

// Message is the envelope carried on the bus.
type Message struct {
	Topic string
	// ConversationID routes the message to one browser session. Empty means
	// every connected client.
	ConversationID string
	Payload        []byte
	Metadata       map[string]string
}

// Handler processes a received message.
type Handler func(ctx context.Context, msg Message) error

type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

type Subscriber interface {
	// Subscribe registers handler for topic and returns once the
	// subscription is live. Delivery stops when ctx ends.
	Subscribe(ctx context.Context, topic string, handler Handler) error
	Close() error
}
