// Package cases archives filed complaints.
package cases

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/nfrund/tafep-voice/internal/domain"
)

// Store persists filed cases.
type Store interface {
	Create(ctx context.Context, c *domain.Case) error
	// FindByReference returns domain.ErrNotFound for unknown references.
	FindByReference(ctx context.Context, ref string) (*domain.Case, error)
	// ListRecent returns the newest cases first.
	ListRecent(ctx context.Context, limit int) ([]*domain.Case, error)
}

// MemoryStore keeps cases for the life of the process.
type MemoryStore struct {
	mu    sync.RWMutex
	cases []*domain.Case
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Create(_ context.Context, c *domain.Case) error {
	if err := c.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.cases {
		if existing.Reference == c.Reference {
			return fmt.Errorf("%w %s", domain.ErrDuplicateReference, c.Reference)
		}
	}
	cp := *c
	m.cases = append(m.cases, &cp)
	return nil
}

func (m *MemoryStore) FindByReference(_ context.Context, ref string) (*domain.Case, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.cases {
		if c.Reference == ref {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MemoryStore) ListRecent(_ context.Context, limit int) ([]*domain.Case, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*domain.Case, 0, len(m.cases))
	for _, c := range slices.Backward(m.cases) {
		if limit > 0 && len(out) == limit {
			break
		}
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*SurrealStore)(nil)
)
