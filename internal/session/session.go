// Package session persists conversations between requests.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nfrund/tafep-voice/internal/config"
	"github.com/nfrund/tafep-voice/internal/domain"
)

// Store keeps one conversation per browser session.
type Store interface {
	// Get returns domain.ErrNotFound for unknown ids.
	Get(ctx context.Context, id string) (*domain.Conversation, error)
	Save(ctx context.Context, conv *domain.Conversation) error
	Delete(ctx context.Context, id string) error
}

// Load returns the stored conversation or starts a fresh one.
func Load(ctx context.Context, s Store, id string) (*domain.Conversation, error) {
	conv, err := s.Get(ctx, id)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return domain.NewConversation(id), nil
}

// MemoryStore keeps conversations in process memory. Values are copied on
// the way in and out.
type MemoryStore struct {
	mu    sync.RWMutex
	convs map[string]*domain.Conversation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{convs: make(map[string]*domain.Conversation)}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*domain.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.convs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return c.Clone(), nil
}

func (m *MemoryStore) Save(_ context.Context, conv *domain.Conversation) error {
	if conv == nil || conv.ID == "" {
		return fmt.Errorf("%w: conversation id is required", domain.ErrInvalidInput)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.convs[conv.ID] = conv.Clone()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.convs, id)
	return nil
}

// New builds the store selected by SESSION_STORE.
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.SessionStore {
	case "memory":
		return NewMemoryStore(), nil
	case "redis":
		return DialRedis(ctx, cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, cfg.SessionTTL)
	default:
		return nil, fmt.Errorf("unknown session store: %s", cfg.SessionStore)
	}
}

var _ Store = (*MemoryStore)(nil)
var _ Store = (*RedisStore)(nil)

const defaultTTL = 24 * time.Hour
