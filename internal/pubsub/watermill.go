package pubsub

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.opentelemetry.io/otel/trace"
)

const (
	metaKeyConversationID = "conversation_id"
	metaKeyTopic          = "topic"
)

// WatermillBridge implements Publisher and Subscriber on watermill's GoChannel.
type WatermillBridge struct {
	pub    message.Publisher
	sub    message.Subscriber
	tracer trace.Tracer
}

// BridgeOption customizes the bridge.
type BridgeOption func(*WatermillBridge)

// WithTracer records a span for every publish and handled message.
func WithTracer(t trace.Tracer) BridgeOption {
	return func(b *WatermillBridge) { b.tracer = t }
}

// NewWatermillBridge creates an in-memory bus.
func NewWatermillBridge(opts ...BridgeOption) *WatermillBridge {
	goChannel := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermill.NewStdLogger(false, false),
	)
	b := &WatermillBridge{pub: goChannel, sub: goChannel}
	for _, opt := range opts {
		opt(b)
	}
	if b.tracer != nil {
		b.pub = NewPublisherTracingMiddleware(goChannel, b.tracer)
	}
	return b
}

func toWatermill(ctx context.Context, msg Message) *message.Message {
	wm := message.NewMessage(watermill.NewUUID(), msg.Payload)
	wm.Metadata.Set(metaKeyConversationID, msg.ConversationID)
	wm.Metadata.Set(metaKeyTopic, msg.Topic)
	for k, v := range msg.Metadata {
		wm.Metadata.Set(k, v)
	}
	wm.SetContext(ctx)
	return wm
}

func fromWatermill(wm *message.Message) Message {
	metadata := make(map[string]string, len(wm.Metadata))
	for k, v := range wm.Metadata {
		if k != metaKeyConversationID && k != metaKeyTopic {
			metadata[k] = v
		}
	}
	return Message{
		Topic:          wm.Metadata.Get(metaKeyTopic),
		ConversationID: wm.Metadata.Get(metaKeyConversationID),
		Payload:        wm.Payload,
		Metadata:       metadata,
	}
}

func (b *WatermillBridge) Publish(ctx context.Context, msg Message) error {
	return b.pub.Publish(msg.Topic, toWatermill(ctx, msg))
}

func (b *WatermillBridge) Subscribe(ctx context.Context, topic string, handler Handler) error {
	messages, err := b.sub.Subscribe(ctx, topic)
	if err != nil {
		return err
	}

	h := func(wm *message.Message) ([]*message.Message, error) {
		return nil, handler(wm.Context(), fromWatermill(wm))
	}
	if b.tracer != nil {
		h = TracingMiddleware(b.tracer)(h)
	}

	go func() {
		for wm := range messages {
			if wm.Context() == nil {
				wm.SetContext(ctx)
			}
			// GoChannel redelivers nacked messages forever, so failures are
			// logged and acked.
			if _, err := h(wm); err != nil {
				slog.Error("Failed to handle message", "topic", topic, "msg_id", wm.UUID, "error", err)
			}
			wm.Ack()
		}
		slog.Debug("Subscription message loop ended", "topic", topic)
	}()
	return nil
}

// Close stops delivery to every subscriber.
func (b *WatermillBridge) Close() error {
	return b.sub.Close()
}
