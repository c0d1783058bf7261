// Package assistant is the voice chat feature: the chat page, the recording
// and message API, and the websocket that streams replies back.
package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/samber/do/v2"

	"github.com/nfrund/tafep-voice/internal/audio"
	"github.com/nfrund/tafep-voice/internal/cases"
	"github.com/nfrund/tafep-voice/internal/config"
	"github.com/nfrund/tafep-voice/internal/conversation"
	"github.com/nfrund/tafep-voice/internal/debugstore"
	"github.com/nfrund/tafep-voice/internal/middleware"
	"github.com/nfrund/tafep-voice/internal/module"
	"github.com/nfrund/tafep-voice/internal/pubsub"
	"github.com/nfrund/tafep-voice/internal/rendering"
	"github.com/nfrund/tafep-voice/internal/session"
	"github.com/nfrund/tafep-voice/internal/stt"
	"github.com/nfrund/tafep-voice/internal/tts"
	"github.com/nfrund/tafep-voice/internal/websocket"
)

// uploadsPerSecond bounds recording uploads per client IP.
const uploadsPerSecond = 2

// Module implements module.Module for the assistant.
type Module struct {
	module.BaseModule

	mu         sync.Mutex
	speaker    *tts.Speaker
	subscriber *Subscriber
	cancel     context.CancelFunc
}

func New() *Module {
	return &Module{}
}

func (m *Module) Name() string {
	return "assistant"
}

// Register provides the bridge, the speaker and the service.
func (m *Module) Register(i do.Injector) error {
	do.Provide(i, func(i do.Injector) (*websocket.Bridge, error) {
		return websocket.NewBridge(do.MustInvoke[pubsub.Publisher](i), websocket.DefaultWhitelist()), nil
	})

	do.Provide(i, func(i do.Injector) (*tts.Speaker, error) {
		synth, err := do.Invoke[tts.Synthesizer](i)
		if err != nil {
			return nil, err
		}
		cfg := do.MustInvoke[*config.Config](i)
		sink := NewSpeechEvents(do.MustInvoke[pubsub.Publisher](i))
		return tts.NewSpeaker(synth, sink, cfg.SpeechQueueSize), nil
	})

	do.Provide(i, func(i do.Injector) (*Service, error) {
		cfg := do.MustInvoke[*config.Config](i)
		transcriber, err := do.Invoke[stt.Transcriber](i)
		if err != nil {
			return nil, err
		}
		responder, err := do.Invoke[*conversation.Handler](i)
		if err != nil {
			return nil, err
		}
		sessions, err := do.Invoke[session.Store](i)
		if err != nil {
			return nil, err
		}
		store, err := do.Invoke[cases.Store](i)
		if err != nil {
			return nil, err
		}
		speaker, err := do.Invoke[*tts.Speaker](i)
		if err != nil {
			return nil, err
		}
		deps := Dependencies{
			Preparer:    do.MustInvoke[audio.Preparer](i),
			Transcriber: transcriber,
			Responder:   responder,
			Sessions:    sessions,
			Cases:       store,
			Publisher:   do.MustInvoke[pubsub.Publisher](i),
			Speech:      speaker,
			HistoryLen:  cfg.MaxConversationHistory,
		}
		if cfg.Debug {
			deps.Debug = do.MustInvoke[*debugstore.Store](i)
		}
		return NewService(deps), nil
	})
	return nil
}

// Boot starts the websocket router, the speech worker and the bus
// subscriber, then mounts the routes.
func (m *Module) Boot(ctx context.Context, g *echo.Group, i do.Injector) error {
	cfg := do.MustInvoke[*config.Config](i)
	service, err := do.Invoke[*Service](i)
	if err != nil {
		return fmt.Errorf("assistant service: %w", err)
	}
	bridge := do.MustInvoke[*websocket.Bridge](i)
	speaker := do.MustInvoke[*tts.Speaker](i)
	renderer := do.MustInvoke[rendering.Renderer](i)

	// Workers outlive the request context so Shutdown can drain them.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.mu.Lock()
	m.speaker = speaker
	m.cancel = cancel
	m.mu.Unlock()

	go bridge.Run(runCtx)
	go speaker.Run(runCtx)

	sub := NewSubscriber(do.MustInvoke[pubsub.Subscriber](i), bridge, renderer, service)
	if err := sub.Start(runCtx); err != nil {
		return err
	}
	m.mu.Lock()
	m.subscriber = sub
	m.mu.Unlock()

	if cfg.Debug {
		store := do.MustInvoke[*debugstore.Store](i)
		if _, err := store.Cleanup(cfg.MaxDebugRecordings); err != nil {
			slog.Warn("Debug recording cleanup failed", "error", err)
		}
		slog.Info("Debug artifacts enabled", "dir", store.SessionDir())
	}

	h := NewHandler(service, renderer, cfg.MaxUploadBytes)
	g.GET("/", h.ChatGet)
	g.GET("/ws", bridge.Handler(middleware.ConversationID))

	api := g.Group("/api/v1")
	api.POST("/recordings", h.RecordingPost,
		middleware.RateLimiter(uploadsPerSecond),
		echomw.BodyLimit(fmt.Sprintf("%dK", cfg.MaxUploadBytes/1024+64)))
	api.POST("/messages", h.MessagePost)
	api.GET("/messages", h.MessagesGet)
	api.DELETE("/messages", h.MessagesDelete)
	api.POST("/contact", h.ContactPost)
	api.GET("/cases/:reference", h.CaseGet)

	slog.Info("Assistant module booted")
	return nil
}

// Shutdown lets running turns and queued speech finish, then stops the
// workers.
func (m *Module) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	speaker, sub, cancel := m.speaker, m.subscriber, m.cancel
	m.mu.Unlock()
	if cancel == nil {
		return nil
	}
	defer cancel()

	slog.Info("Shutting down assistant module...")
	if sub != nil {
		if err := sub.Wait(ctx); err != nil {
			return fmt.Errorf("wait for socket turns: %w", err)
		}
	}
	if err := speaker.Close(ctx); err != nil {
		return fmt.Errorf("drain speech queue: %w", err)
	}
	return nil
}
