package assistant

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/tafep-voice/internal/domain"
	"github.com/nfrund/tafep-voice/internal/pubsub"
	"github.com/nfrund/tafep-voice/internal/rendering"
	"github.com/nfrund/tafep-voice/internal/tts"
	"github.com/nfrund/tafep-voice/internal/view"
	"github.com/nfrund/tafep-voice/internal/websocket"
)

type topicRecorder struct {
	handlers map[string]pubsub.Handler
}

func (r *topicRecorder) Subscribe(_ context.Context, topic string, h pubsub.Handler) error {
	if r.handlers == nil {
		r.handlers = map[string]pubsub.Handler{}
	}
	r.handlers[topic] = h
	return nil
}

func (r *topicRecorder) Close() error { return nil }

func newSubscriberFixture(t *testing.T) (*Subscriber, *frameSink, *fixture) {
	t.Helper()
	f := newFixture(t, echoReply("Re: "))
	sink := &frameSink{}
	return NewSubscriber(&topicRecorder{}, sink, rendering.NewUniversalRenderer(), f.service), sink, f
}

func message[T any](t *testing.T, event pubsub.Event[T], conversationID string, payload T) pubsub.Message {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return pubsub.Message{Topic: event.Name(), ConversationID: conversationID, Payload: data}
}

func TestSubscriber_StartSubscribesEveryTopic(t *testing.T) {
	rec := &topicRecorder{}
	s := NewSubscriber(rec, &frameSink{}, rendering.NewUniversalRenderer(), nil)
	require.NoError(t, s.Start(context.Background()))

	for _, topic := range []string{
		MessageAppendedEvent.Name(),
		ChatClearedEvent.Name(),
		TurnFailedEvent.Name(),
		SpeakingChangedEvent.Name(),
		AudioReadyEvent.Name(),
		websocket.ClientMessageEvent.Name(),
		websocket.ConnectedEvent.Name(),
	} {
		assert.Contains(t, rec.handlers, topic)
	}
}

func TestSubscriber_MessageBecomesBubble(t *testing.T) {
	s, sink, _ := newSubscriberFixture(t)
	msg := domain.Message{
		ID:       "m1",
		Role:     domain.RoleUser,
		Content:  "My supervisor <b>shouts</b> at me",
		Emotions: []domain.EmotionScore{{Name: "anger", Score: 0.5}},
	}

	require.NoError(t, s.handleMessage(context.Background(), message(t, MessageAppendedEvent, "conv-1", MessageAppended{Message: msg})))

	require.Len(t, sink.frames, 2)
	assert.Equal(t, websocket.FrameCommand, sink.frames[0].frame.Type)
	assert.Equal(t, websocket.CmdClearError, sink.frames[0].frame.Payload.(websocket.Command).Name)

	html := sink.frames[1]
	assert.Equal(t, "conv-1", html.conversationID)
	assert.Equal(t, websocket.FrameHTML, html.frame.Type)
	assert.Equal(t, view.ChatMessagesID, html.frame.Target)
	body := html.frame.Payload.(string)
	assert.Contains(t, body, `id="msg-m1"`)
	assert.Contains(t, body, "user-message")
	assert.Contains(t, body, "emotion-expander")
	assert.Contains(t, body, "&lt;b&gt;shouts&lt;/b&gt;")
}

func TestSubscriber_FailureShowsBanner(t *testing.T) {
	s, sink, _ := newSubscriberFixture(t)

	require.NoError(t, s.handleFailure(context.Background(), message(t, TurnFailedEvent, "conv-1", TurnFailed{Message: "Speech recognition is unavailable"})))

	require.Len(t, sink.frames, 1)
	cmd := sink.frames[0].frame.Payload.(websocket.Command)
	assert.Equal(t, websocket.CmdShowError, cmd.Name)
	assert.Contains(t, cmd.Payload, "streamlit-error")
	assert.Contains(t, cmd.Payload, "Speech recognition is unavailable")
}

func TestSubscriber_SpeechFrames(t *testing.T) {
	s, sink, _ := newSubscriberFixture(t)
	ctx := context.Background()

	require.NoError(t, s.handleSpeaking(ctx, message(t, SpeakingChangedEvent, "conv-1", SpeakingChanged{Speaking: true})))
	require.NoError(t, s.handleAudio(ctx, message(t, AudioReadyEvent, "conv-1", AudioReady{MIMEType: tts.MIMEMPEG, Data: []byte("mp3")})))

	require.Len(t, sink.frames, 2)
	assert.Equal(t, "speaking", sink.frames[0].frame.Target)
	assert.Equal(t, SpeakingChanged{Speaking: true}, sink.frames[0].frame.Payload)

	out, err := json.Marshal(sink.frames[1].frame)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"data","target":"audio","payload":{"mime_type":"audio/mpeg","data":"bXAz"}}`, string(out))
}

func TestSubscriber_ClearedResendsGreeting(t *testing.T) {
	s, sink, _ := newSubscriberFixture(t)

	require.NoError(t, s.handleCleared(context.Background(), message(t, ChatClearedEvent, "conv-1", ChatCleared{})))

	require.Len(t, sink.frames, 1)
	cmd := sink.frames[0].frame.Payload.(websocket.Command)
	assert.Equal(t, websocket.CmdClearChat, cmd.Name)
	assert.Contains(t, cmd.Payload, "Hello, welcome to TAFEP!")
}

func TestSubscriber_ClientMessageRunsTurn(t *testing.T) {
	s, _, f := newSubscriberFixture(t)
	ctx := context.Background()

	require.NoError(t, s.handleClientMessage(ctx, message(t, websocket.ClientMessageEvent, "conv-1",
		websocket.ClientMessage{Action: websocket.ActionChatMessage, Text: "hello there"})))
	require.NoError(t, s.handleClientMessage(ctx, message(t, websocket.ClientMessageEvent, "conv-1",
		websocket.ClientMessage{Action: "something.else", Text: "ignored"})))
	require.NoError(t, s.Wait(ctx))

	conv, err := f.sessions.Get(ctx, "conv-1")
	require.NoError(t, err)
	require.Len(t, conv.Messages, 3)
	assert.Equal(t, "Re: hello there", conv.Messages[2].Content)
}

func TestSubscriber_SocketTurnsDoNotBlockOtherConversations(t *testing.T) {
	release := make(chan struct{})
	responder := respondFunc(func(_ context.Context, conv *domain.Conversation, input string, _ []domain.EmotionScore) (string, error) {
		if conv.ID == "slow" {
			<-release
		}
		return "Re: " + input, nil
	})
	f := newFixture(t, responder)
	s := NewSubscriber(&topicRecorder{}, &frameSink{}, rendering.NewUniversalRenderer(), f.service)
	ctx := context.Background()

	send := func(id, text string) {
		done := make(chan error, 1)
		go func() {
			done <- s.handleClientMessage(ctx, message(t, websocket.ClientMessageEvent, id,
				websocket.ClientMessage{Action: websocket.ActionChatMessage, Text: text}))
		}()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatalf("handler for %s blocked the subscription", id)
		}
	}

	send("slow", "first")
	send("fast", "second")

	assert.Eventually(t, func() bool {
		conv, err := f.sessions.Get(ctx, "fast")
		return err == nil && len(conv.Messages) == 3
	}, time.Second, 10*time.Millisecond, "the fast conversation is answered while the slow one is busy")

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Wait(waitCtx), context.DeadlineExceeded)

	close(release)
	require.NoError(t, s.Wait(ctx))
	conv, err := f.sessions.Get(ctx, "slow")
	require.NoError(t, err)
	assert.Equal(t, "Re: first", conv.Messages[2].Content)
}

func TestSubscriber_ClosedBridgeIsNotAnError(t *testing.T) {
	s, sink, _ := newSubscriberFixture(t)
	sink.err = websocket.ErrClosed

	err := s.handleSpeaking(context.Background(), message(t, SpeakingChangedEvent, "conv-1", SpeakingChanged{}))
	assert.NoError(t, err)
}

func TestSpeechEvents(t *testing.T) {
	bus := &recordingBus{}
	events := NewSpeechEvents(bus)
	ctx := context.Background()

	events.SpeakingChanged(ctx, "conv-1", true)
	events.Spoken(ctx, "conv-1", &tts.Audio{Data: []byte("pcm"), MIMEType: tts.MIMEWAV})
	events.SpeakingChanged(ctx, "conv-1", false)

	assert.Equal(t, []string{
		SpeakingChangedEvent.Name(),
		AudioReadyEvent.Name(),
		SpeakingChangedEvent.Name(),
	}, bus.topics())

	audio, err := pubsub.Decode(AudioReadyEvent, bus.find(t, AudioReadyEvent.Name()))
	require.NoError(t, err)
	assert.Equal(t, []byte("pcm"), audio.Data)
	assert.Equal(t, tts.MIMEWAV, audio.MIMEType)
}
