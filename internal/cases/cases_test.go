package cases

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/nfrund/tafep-voice/internal/config"
	"github.com/nfrund/tafep-voice/internal/database"
	"github.com/nfrund/tafep-voice/internal/domain"
)

type StoreSuite struct {
	suite.Suite
	open  func() (Store, func())
	store Store
	close func()
	ctx   context.Context
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store, s.close = s.open()
}

func (s *StoreSuite) TearDownTest() {
	s.close()
}

func newCase(i int) *domain.Case {
	at := time.Date(2024, 1, 31, 15, 45, i, 0, time.UTC)
	return &domain.Case{
		Reference:      domain.NewCaseReference(at),
		ConversationID: fmt.Sprintf("conv-%d", i),
		Summary:        "summary",
		Transcript:     "User: hello",
		CreatedAt:      at,
	}
}

func (s *StoreSuite) TestCreateAndFind() {
	c := newCase(1)
	c.ContactEmail = "a@b.co"
	s.Require().NoError(s.store.Create(s.ctx, c))

	got, err := s.store.FindByReference(s.ctx, c.Reference)
	s.Require().NoError(err)
	s.Equal(c.ConversationID, got.ConversationID)
	s.Equal("a@b.co", got.ContactEmail)
	s.True(c.CreatedAt.Equal(got.CreatedAt))
}

func (s *StoreSuite) TestFindUnknown() {
	_, err := s.store.FindByReference(s.ctx, "TAFEP-00000000000000")
	s.ErrorIs(err, domain.ErrNotFound)
}

func (s *StoreSuite) TestRejectsInvalidAndDuplicates() {
	s.ErrorIs(s.store.Create(s.ctx, &domain.Case{Reference: "bogus"}), domain.ErrInvalidInput)

	c := newCase(2)
	s.Require().NoError(s.store.Create(s.ctx, c))
	err := s.store.Create(s.ctx, c)
	s.ErrorIs(err, domain.ErrDuplicateReference)
	s.ErrorIs(err, domain.ErrInvalidInput)
}

func (s *StoreSuite) TestListRecent() {
	for i := 1; i <= 3; i++ {
		s.Require().NoError(s.store.Create(s.ctx, newCase(i)))
	}
	got, err := s.store.ListRecent(s.ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal("conv-3", got[0].ConversationID)
	s.Equal("conv-2", got[1].ConversationID)
}

func TestMemoryStore(t *testing.T) {
	suite.Run(t, &StoreSuite{open: func() (Store, func()) { return NewMemoryStore(), func() {} }})
}

func TestSurrealStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	url := os.Getenv("SURREAL_TEST_URL")
	if url == "" {
		t.Skip("SURREAL_TEST_URL not set")
	}
	cfg := &config.Config{
		DBUrl: url, DBNs: "tafep_test", DBDb: "tafep_test",
		DBUser: os.Getenv("SURREAL_TEST_USER"), DBPass: os.Getenv("SURREAL_TEST_PASS"),
	}

	suite.Run(t, &StoreSuite{open: func() (Store, func()) {
		ctx := context.Background()
		db, err := database.NewDB(ctx, cfg)
		if err != nil {
			t.Fatalf("connect: %v", err)
		}
		_ = database.Execute(ctx, db, "DELETE "+caseTable, nil)
		return NewSurrealStore(db), func() { db.Close(ctx) }
	}})
}
