package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nfrund/tafep-voice/internal/pubsub"
	"github.com/nfrund/tafep-voice/internal/rendering"
	"github.com/nfrund/tafep-voice/internal/view"
	"github.com/nfrund/tafep-voice/internal/websocket"
)

// Sender delivers frames to the browsers of one conversation.
type Sender interface {
	Send(conversationID string, f *websocket.Frame) error
}

// Subscriber turns bus events into websocket frames.
type Subscriber struct {
	subscriber pubsub.Subscriber
	sender     Sender
	renderer   rendering.Renderer
	service    *Service

	// turns tracks socket-typed turns still running.
	turns sync.WaitGroup
}

func NewSubscriber(sub pubsub.Subscriber, sender Sender, renderer rendering.Renderer, service *Service) *Subscriber {
	return &Subscriber{subscriber: sub, sender: sender, renderer: renderer, service: service}
}

// Start registers every handler. Delivery stops when ctx ends.
func (s *Subscriber) Start(ctx context.Context) error {
	slog.Info("Starting assistant subscriber")

	handlers := map[string]pubsub.Handler{
		MessageAppendedEvent.Name():         s.handleMessage,
		ChatClearedEvent.Name():             s.handleCleared,
		TurnFailedEvent.Name():              s.handleFailure,
		SpeakingChangedEvent.Name():         s.handleSpeaking,
		AudioReadyEvent.Name():              s.handleAudio,
		websocket.ClientMessageEvent.Name(): s.handleClientMessage,
		websocket.ConnectedEvent.Name():     s.handleConnected,
	}
	for topic, h := range handlers {
		if err := s.subscriber.Subscribe(ctx, topic, h); err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
	}
	return nil
}

func (s *Subscriber) send(id string, f *websocket.Frame) error {
	err := s.sender.Send(id, f)
	if errors.Is(err, websocket.ErrClosed) {
		return nil
	}
	return err
}

func (s *Subscriber) handleMessage(ctx context.Context, msg pubsub.Message) error {
	ev, err := pubsub.Decode(MessageAppendedEvent, msg)
	if err != nil {
		return err
	}
	html, err := s.renderer.RenderComponent(ctx, view.MessageBubble(ev.Message))
	if err != nil {
		return fmt.Errorf("render message: %w", err)
	}
	if err := s.send(msg.ConversationID, websocket.NewCommand(websocket.CmdClearError)); err != nil {
		return err
	}
	return s.send(msg.ConversationID, websocket.NewHTMLFrame(string(html), view.ChatMessagesID))
}

func (s *Subscriber) handleCleared(ctx context.Context, msg pubsub.Message) error {
	conv, err := s.service.History(ctx, msg.ConversationID)
	if err != nil {
		return err
	}
	var html []byte
	for _, m := range conv.Messages {
		b, err := s.renderer.RenderComponent(ctx, view.MessageBubble(m))
		if err != nil {
			return fmt.Errorf("render message: %w", err)
		}
		html = append(html, b...)
	}
	return s.send(msg.ConversationID, websocket.NewCommand(websocket.CmdClearChat, string(html)))
}

func (s *Subscriber) handleFailure(ctx context.Context, msg pubsub.Message) error {
	ev, err := pubsub.Decode(TurnFailedEvent, msg)
	if err != nil {
		return err
	}
	html, err := s.renderer.RenderComponent(ctx, view.ErrorBanner(ev.Message))
	if err != nil {
		return fmt.Errorf("render error banner: %w", err)
	}
	return s.send(msg.ConversationID, websocket.NewCommand(websocket.CmdShowError, string(html)))
}

func (s *Subscriber) handleSpeaking(_ context.Context, msg pubsub.Message) error {
	ev, err := pubsub.Decode(SpeakingChangedEvent, msg)
	if err != nil {
		return err
	}
	return s.send(msg.ConversationID, websocket.NewDataFrame("speaking", ev))
}

func (s *Subscriber) handleAudio(_ context.Context, msg pubsub.Message) error {
	ev, err := pubsub.Decode(AudioReadyEvent, msg)
	if err != nil {
		return err
	}
	return s.send(msg.ConversationID, websocket.NewDataFrame("audio", ev))
}

// handleClientMessage answers text typed into the socket instead of the form.
// Each turn runs on its own goroutine. Turns of one conversation are still
// serialized by the service.
func (s *Subscriber) handleClientMessage(ctx context.Context, msg pubsub.Message) error {
	ev, err := pubsub.Decode(websocket.ClientMessageEvent, msg)
	if err != nil {
		return err
	}
	if ev.Action != websocket.ActionChatMessage {
		return nil
	}

	turnCtx := context.WithoutCancel(ctx)
	s.turns.Add(1)
	go func() {
		defer s.turns.Done()
		if _, err := s.service.ProcessText(turnCtx, msg.ConversationID, ev.Text); err != nil {
			slog.ErrorContext(turnCtx, "Socket turn failed", "conversation_id", msg.ConversationID, "error", err)
		}
	}()
	return nil
}

// Wait blocks until every socket-typed turn has finished or ctx ends.
func (s *Subscriber) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.turns.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Subscriber) handleConnected(ctx context.Context, msg pubsub.Message) error {
	slog.DebugContext(ctx, "Browser connected", "conversation_id", msg.ConversationID)
	return s.send(msg.ConversationID, websocket.NewCommand(websocket.CmdScrollToEnd))
}
