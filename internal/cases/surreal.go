package cases

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/nfrund/tafep-voice/internal/database"
	"github.com/nfrund/tafep-voice/internal/domain"
)

const caseTable = "tafep_case"

type caseRecord struct {
	ID             *surrealmodels.RecordID      `json:"id,omitempty"`
	Reference      string                       `json:"reference"`
	ConversationID string                       `json:"conversation_id"`
	Summary        string                       `json:"summary"`
	Transcript     string                       `json:"transcript"`
	ContactEmail   string                       `json:"contact_email"`
	CreatedAt      surrealmodels.CustomDateTime `json:"created_at"`
}

func (r *caseRecord) toDomain() *domain.Case {
	return &domain.Case{
		Reference:      r.Reference,
		ConversationID: r.ConversationID,
		Summary:        r.Summary,
		Transcript:     r.Transcript,
		ContactEmail:   r.ContactEmail,
		CreatedAt:      r.CreatedAt.Time,
	}
}

// SurrealStore keeps cases in a SurrealDB table.
type SurrealStore struct {
	db *surrealdb.DB
}

func NewSurrealStore(db *surrealdb.DB) *SurrealStore {
	return &SurrealStore{db: db}
}

func (s *SurrealStore) Create(ctx context.Context, c *domain.Case) error {
	if err := c.Validate(); err != nil {
		return err
	}
	existing, err := database.QueryOne[caseRecord](ctx, s.db,
		"SELECT * FROM type::table($table) WHERE reference = $reference",
		map[string]any{"table": caseTable, "reference": c.Reference})
	if err != nil {
		return fmt.Errorf("failed to check case reference: %w", err)
	}
	if existing != nil {
		return fmt.Errorf("%w %s", domain.ErrDuplicateReference, c.Reference)
	}

	content := map[string]any{
		"reference":       c.Reference,
		"conversation_id": c.ConversationID,
		"summary":         c.Summary,
		"transcript":      c.Transcript,
		"contact_email":   c.ContactEmail,
		"created_at":      surrealmodels.CustomDateTime{Time: c.CreatedAt.UTC()},
	}
	if err := database.Execute(ctx, s.db, "CREATE type::table($table) CONTENT $content",
		map[string]any{"table": caseTable, "content": content}); err != nil {
		return fmt.Errorf("failed to create case: %w", err)
	}
	return nil
}

func (s *SurrealStore) FindByReference(ctx context.Context, ref string) (*domain.Case, error) {
	rec, err := database.QueryOne[caseRecord](ctx, s.db,
		"SELECT * FROM type::table($table) WHERE reference = $reference",
		map[string]any{"table": caseTable, "reference": ref})
	if err != nil {
		return nil, fmt.Errorf("failed to find case: %w", err)
	}
	if rec == nil {
		return nil, domain.ErrNotFound
	}
	return rec.toDomain(), nil
}

func (s *SurrealStore) ListRecent(ctx context.Context, limit int) ([]*domain.Case, error) {
	if limit <= 0 {
		limit = 50
	}
	recs, err := database.Query[caseRecord](ctx, s.db,
		"SELECT * FROM type::table($table) ORDER BY created_at DESC LIMIT $limit",
		map[string]any{"table": caseTable, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}
	out := make([]*domain.Case, len(recs))
	for i := range recs {
		out[i] = recs[i].toDomain()
	}
	return out, nil
}
