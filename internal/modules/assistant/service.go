package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nfrund/tafep-voice/internal/audio"
	"github.com/nfrund/tafep-voice/internal/debugstore"
	"github.com/nfrund/tafep-voice/internal/domain"
	"github.com/nfrund/tafep-voice/internal/handlers"
	"github.com/nfrund/tafep-voice/internal/pubsub"
	"github.com/nfrund/tafep-voice/internal/session"
	"github.com/nfrund/tafep-voice/internal/stt"
)

// Preparer cleans up an uploaded recording before transcription.
type Preparer interface {
	Prepare(data []byte, mimeType string) (*audio.Prepared, error)
}

// Responder produces the assistant reply for a user turn.
type Responder interface {
	Respond(ctx context.Context, conv *domain.Conversation, input string, emotions []domain.EmotionScore) (string, error)
}

// CaseFinder looks up filed cases.
type CaseFinder interface {
	FindByReference(ctx context.Context, ref string) (*domain.Case, error)
}

// Speech queues a reply for synthesis.
type Speech interface {
	Enqueue(conversationID, text string) bool
}

// DebugRecorder keeps copies of recordings. Optional.
type DebugRecorder interface {
	SaveRecording(ctx context.Context, data []byte, mimeType string, duration time.Duration) (*debugstore.Recording, error)
}

// Turn is the outcome of one user utterance.
type Turn struct {
	User      domain.Message `json:"user"`
	Assistant domain.Message `json:"assistant"`
	// Degraded is set when the reply is the apology.
	Degraded bool `json:"degraded,omitempty"`
}

// Dependencies for NewService. Debug may be nil.
type Dependencies struct {
	Preparer    Preparer
	Transcriber stt.Transcriber
	Responder   Responder
	Sessions    session.Store
	Cases       CaseFinder
	Publisher   pubsub.Publisher
	Speech      Speech
	Debug       DebugRecorder
	HistoryLen  int
}

// Service runs conversation turns. Turns for the same conversation are
// serialized; different conversations proceed in parallel.
type Service struct {
	deps  Dependencies
	locks *keyedLock
}

func NewService(deps Dependencies) *Service {
	return &Service{deps: deps, locks: newKeyedLock()}
}

// ProcessRecording transcribes a recording and answers it.
func (s *Service) ProcessRecording(ctx context.Context, conversationID string, data []byte, mimeType string) (*Turn, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty recording", domain.ErrInvalidInput)
	}

	prepared, err := s.deps.Preparer.Prepare(data, mimeType)
	if err != nil {
		s.fail(ctx, conversationID, err)
		return nil, err
	}

	if s.deps.Debug != nil {
		rec, err := s.deps.Debug.SaveRecording(ctx, prepared.Data, prepared.MIMEType, prepared.Duration)
		if err != nil {
			slog.WarnContext(ctx, "Failed to save debug recording", "error", err)
		} else {
			ctx = debugstore.WithRecording(ctx, rec)
		}
	}

	start := time.Now()
	utt, err := s.deps.Transcriber.Transcribe(ctx, stt.Recording{
		Data:       prepared.Data,
		MIMEType:   prepared.MIMEType,
		SampleRate: prepared.SampleRate,
	})
	if err != nil {
		s.fail(ctx, conversationID, err)
		return nil, err
	}
	slog.InfoContext(ctx, "Transcribed recording",
		"conversation_id", conversationID,
		"provider", s.deps.Transcriber.Name(),
		"elapsed", time.Since(start),
		"language", utt.Language,
		"emotions", len(utt.Emotions))

	return s.turn(ctx, conversationID, domain.Message{
		Role:     domain.RoleUser,
		Content:  utt.Text,
		Emotions: utt.Emotions,
		Language: utt.Language,
	})
}

// ProcessText answers typed input.
func (s *Service) ProcessText(ctx context.Context, conversationID, text string) (*Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: message is empty", domain.ErrInvalidInput)
	}
	return s.turn(ctx, conversationID, domain.Message{
		Role:     domain.RoleUser,
		Content:  text,
		Language: stt.DetectLanguage(text),
	})
}

func (s *Service) turn(ctx context.Context, conversationID string, user domain.Message) (*Turn, error) {
	unlock := s.locks.Lock(conversationID)
	defer unlock()

	conv, err := session.Load(ctx, s.deps.Sessions, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}

	user = conv.Append(user)
	s.publishMessage(ctx, conversationID, user)

	reply, respondErr := s.deps.Responder.Respond(ctx, conv, user.Content, user.Emotions)
	assistant := conv.Append(domain.Message{Role: domain.RoleAssistant, Content: reply})

	if err := s.deps.Sessions.Save(ctx, conv); err != nil {
		return nil, fmt.Errorf("save conversation: %w", err)
	}

	s.publishMessage(ctx, conversationID, assistant)
	if respondErr != nil {
		s.fail(ctx, conversationID, respondErr)
	}
	if s.deps.Speech != nil && !s.deps.Speech.Enqueue(conversationID, reply) {
		slog.WarnContext(ctx, "Reply was not queued for speech", "conversation_id", conversationID)
	}

	return &Turn{User: user, Assistant: assistant, Degraded: respondErr != nil}, nil
}

// History returns the conversation's messages, starting a new one if needed.
func (s *Service) History(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	conv, err := session.Load(ctx, s.deps.Sessions, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	return conv, nil
}

// Clear resets the conversation to the greeting.
func (s *Service) Clear(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	unlock := s.locks.Lock(conversationID)
	defer unlock()

	conv, err := session.Load(ctx, s.deps.Sessions, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	conv.Reset()
	if err := s.deps.Sessions.Save(ctx, conv); err != nil {
		return nil, fmt.Errorf("save conversation: %w", err)
	}
	if err := pubsub.Publish(ctx, s.deps.Publisher, ChatClearedEvent, conversationID, ChatCleared{}); err != nil {
		slog.ErrorContext(ctx, "Failed to publish chat cleared", "conversation_id", conversationID, "error", err)
	}
	slog.InfoContext(ctx, "Chat history cleared", "conversation_id", conversationID)
	return conv, nil
}

// SetContact records the address that receives the case confirmation.
func (s *Service) SetContact(ctx context.Context, conversationID, email string) error {
	email = strings.TrimSpace(email)
	if !domain.ValidEmail(email) {
		return fmt.Errorf("%w: %q is not a valid email address", domain.ErrInvalidInput, email)
	}

	unlock := s.locks.Lock(conversationID)
	defer unlock()

	conv, err := session.Load(ctx, s.deps.Sessions, conversationID)
	if err != nil {
		return fmt.Errorf("load conversation: %w", err)
	}
	conv.ContactEmail = email
	return s.deps.Sessions.Save(ctx, conv)
}

// FindCase returns a filed case by reference.
func (s *Service) FindCase(ctx context.Context, reference string) (*domain.Case, error) {
	if s.deps.Cases == nil {
		return nil, domain.ErrNotFound
	}
	return s.deps.Cases.FindByReference(ctx, reference)
}

func (s *Service) publishMessage(ctx context.Context, conversationID string, msg domain.Message) {
	if err := pubsub.Publish(ctx, s.deps.Publisher, MessageAppendedEvent, conversationID, MessageAppended{Message: msg}); err != nil {
		slog.ErrorContext(ctx, "Failed to publish message", "conversation_id", conversationID, "error", err)
	}
}

// fail pushes a user-facing description of err to the error banner.
func (s *Service) fail(ctx context.Context, conversationID string, err error) {
	payload := TurnFailed{Message: handlers.FailureText(err)}
	if perr := pubsub.Publish(ctx, s.deps.Publisher, TurnFailedEvent, conversationID, payload); perr != nil {
		slog.ErrorContext(ctx, "Failed to publish turn failure", "conversation_id", conversationID, "error", perr)
	}
}

