package cases

import (
	"context"
	"fmt"
	"io"

	"github.com/nfrund/tafep-voice/internal/config"
	"github.com/nfrund/tafep-voice/internal/database"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// New builds the store selected by CASE_STORE. The closer releases any
// database connection.
func New(ctx context.Context, cfg *config.Config) (Store, io.Closer, error) {
	switch cfg.CaseStore {
	case "memory":
		return NewMemoryStore(), closerFunc(func() error { return nil }), nil
	case "surreal":
		db, err := database.NewDB(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return NewSurrealStore(db), closerFunc(func() error { return db.Close(context.Background()) }), nil
	default:
		return nil, nil, fmt.Errorf("unknown case store: %s", cfg.CaseStore)
	}
}
