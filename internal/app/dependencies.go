// Package app wires the application's services and modules.
package app

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/samber/do/v2"
	"github.com/spf13/afero"

	"github.com/nfrund/tafep-voice/internal/audio"
	"github.com/nfrund/tafep-voice/internal/cases"
	"github.com/nfrund/tafep-voice/internal/config"
	"github.com/nfrund/tafep-voice/internal/conversation"
	"github.com/nfrund/tafep-voice/internal/debugstore"
	"github.com/nfrund/tafep-voice/internal/domain"
	"github.com/nfrund/tafep-voice/internal/email"
	"github.com/nfrund/tafep-voice/internal/hume"
	"github.com/nfrund/tafep-voice/internal/llm"
	"github.com/nfrund/tafep-voice/internal/prompts"
	"github.com/nfrund/tafep-voice/internal/pubsub"
	"github.com/nfrund/tafep-voice/internal/rendering"
	"github.com/nfrund/tafep-voice/internal/session"
	"github.com/nfrund/tafep-voice/internal/stt"
	"github.com/nfrund/tafep-voice/internal/tts"
)

// Bus is the message bus shared by every module.
type Bus interface {
	pubsub.Publisher
	pubsub.Subscriber
}

// Provide registers the shared services. Each is built on first use; ctx
// bounds connection setup and background watchers.
func Provide(ctx context.Context, i do.Injector, cfg *config.Config, bus Bus, closers *Closers) {
	do.ProvideValue(i, cfg)
	do.ProvideValue(i, closers)
	do.ProvideValue[pubsub.Publisher](i, bus)
	do.ProvideValue[pubsub.Subscriber](i, bus)
	do.ProvideValue[rendering.Renderer](i, rendering.NewUniversalRenderer())
	do.ProvideValue(i, audio.Preparer{
		SampleRate:       cfg.SampleRate,
		SilenceThreshold: cfg.SilenceThreshold,
		ChunkSize:        cfg.ChunkSize,
		MinLength:        seconds(cfg.MinAudioLength),
		MaxSilence:       seconds(cfg.MaxSilenceDuration),
	})

	do.Provide(i, func(do.Injector) (session.Store, error) {
		store, err := session.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		addCloser(closers, "session store", store)
		return store, nil
	})

	do.Provide(i, func(do.Injector) (cases.Store, error) {
		store, closer, err := cases.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		addCloser(closers, "case store", closer)
		return store, nil
	})

	do.Provide(i, func(do.Injector) (domain.EmailSender, error) {
		return email.NewEmailService(cfg)
	})

	do.Provide(i, func(do.Injector) (llm.Provider, error) {
		return llm.New(ctx, cfg)
	})

	do.Provide(i, func(do.Injector) (*prompts.Registry, error) {
		reg, err := prompts.New(cfg.PromptsDir)
		if err != nil {
			return nil, err
		}
		if err := reg.Watch(ctx); err != nil {
			slog.Warn("Prompt hot reload disabled", "error", err)
		}
		return reg, nil
	})

	do.Provide(i, func(do.Injector) (*debugstore.Store, error) {
		return debugstore.New(afero.NewOsFs(), cfg.DebugDir), nil
	})

	do.Provide(i, func(i do.Injector) (stt.Transcriber, error) {
		var recorder hume.FrameRecorder
		if cfg.Debug {
			recorder = do.MustInvoke[*debugstore.Store](i)
		}
		t, err := stt.New(ctx, cfg, recorder)
		if err != nil {
			return nil, err
		}
		addCloser(closers, "transcriber", t)
		return t, nil
	})

	do.Provide(i, func(do.Injector) (tts.Synthesizer, error) {
		s, err := tts.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		addCloser(closers, "synthesizer", s)
		return s, nil
	})

	do.Provide(i, func(i do.Injector) (*conversation.Handler, error) {
		provider, err := do.Invoke[llm.Provider](i)
		if err != nil {
			return nil, err
		}
		reg, err := do.Invoke[*prompts.Registry](i)
		if err != nil {
			return nil, err
		}
		store, err := do.Invoke[cases.Store](i)
		if err != nil {
			return nil, err
		}
		mailer, err := do.Invoke[domain.EmailSender](i)
		if err != nil {
			return nil, err
		}
		return conversation.NewHandler(provider, reg, store, mailer, conversation.Options{
			ProbeLimit: cfg.ProbeLimit,
			HistoryLen: cfg.MaxConversationHistory,
			CaseInbox:  cfg.CaseInbox,
		}), nil
	})
}

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}

// addCloser registers v when it holds a connection.
func addCloser(closers *Closers, name string, v any) {
	if c, ok := v.(io.Closer); ok {
		closers.Add(name, func(context.Context) error { return c.Close() })
	}
}
