package persistence

import (
	"database/sql"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/suite"

	"github.com/petrijr/tempalert/internal/testutil"
)

type PostgresStoreTestSuite struct {
	suite.Suite
	db *sql.DB
	p  Persistence
}

func TestPostgresStoreTestSuite(t *testing.T) {
	db, err := sql.Open("pgx", testutil.GetPostgresDSN(t))
	if err != nil {
		t.Fatalf("sql.Open failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	p, err := NewPostgres(db)
	if err != nil {
		t.Fatalf("NewPostgres failed: %v", err)
	}
	suite.Run(t, &PostgresStoreTestSuite{db: db, p: p})
}

func (s *PostgresStoreTestSuite) SetupTest() {
	_, err := s.db.Exec("TRUNCATE TABLE instances, workflow_events")
	s.NoError(err, "TRUNCATE failed")
}

func (s *PostgresStoreTestSuite) TestInstanceStoreContract() {
	runInstanceStoreContract(s.T(), s.p.Instances)
}

func (s *PostgresStoreTestSuite) TestEventStoreContract() {
	runEventStoreContract(s.T(), s.p.Events)
}

func (s *PostgresStoreTestSuite) TestSchemaIsIdempotent() {
	_, err := NewPostgres(s.db)
	s.NoError(err)
}
